package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"movup/internal/api"
	"movup/internal/assembler"
	"movup/internal/export"
	"movup/internal/report"
)

func newReportsCommand(ctx *commandContext) *cobra.Command {
	reportsCmd := &cobra.Command{
		Use:     "reports",
		Aliases: []string{"analises"},
		Short:   "Inspect and manage stored analyses",
	}

	reportsCmd.AddCommand(newReportsListCommand(ctx))
	reportsCmd.AddCommand(newReportsShowCommand(ctx))
	reportsCmd.AddCommand(newReportsImportCommand(ctx))
	reportsCmd.AddCommand(newReportsExportCommand(ctx))
	reportsCmd.AddCommand(newReportsDeleteCommand(ctx))

	return reportsCmd
}

func newReportsListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list <userId>",
		Short: "List a user's analyses, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := api.ParseUserID(args[0])
			if err != nil {
				return err
			}
			sess, err := ctx.openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			entries, err := sess.service.List(cmd.Context(), userID)
			if err != nil {
				return err
			}
			if asJSON {
				if entries == nil {
					entries = []api.AnalysisEntry{}
				}
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No analyses for user %d\n", userID)
				return nil
			}
			printTable(cmd, tableSpec{
				title:   fmt.Sprintf("Analyses for user %d", userID),
				headers: []string{"ID", "Created", "Status", "Error Frames", "Seconds", "Error %"},
				aligns:  []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight},
				rows:    listRows(entries),
			})
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")
	return cmd
}

func listRows(entries []api.AnalysisEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		row := []string{strconv.FormatInt(e.ID, 10), e.CreatedAt}
		if !e.Decoded() || e.Stats == nil {
			row = append(row, e.Error, "-", "-", "-")
		} else {
			row = append(row, "ok",
				strconv.Itoa(e.Stats.TotalErrorFrames),
				strconv.FormatFloat(e.Stats.SecondsWithError, 'f', 1, 64),
				strconv.FormatFloat(e.Stats.ErrorPercentage, 'f', 1, 64),
			)
		}
		rows = append(rows, row)
	}
	return rows
}

func newReportsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <userId> <id>",
		Short: "Show one analysis with its issue sections",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, id, err := parseOwnerAndID(args)
			if err != nil {
				return err
			}
			sess, err := ctx.openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			detail, err := sess.service.Get(cmd.Context(), userID, id)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, detail)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Analysis %d (user %d) created %s\n", detail.ID, detail.UserID, detail.CreatedAt)
			if detail.Report == nil {
				fmt.Fprintln(out, detail.Error)
				return nil
			}
			if detail.Stats != nil {
				fmt.Fprintf(out, "Error frames: %d  Seconds with error: %.1f  Error: %.1f%%\n",
					detail.Stats.TotalErrorFrames, detail.Stats.SecondsWithError, detail.Stats.ErrorPercentage)
			}
			if len(detail.Sections) == 0 {
				fmt.Fprintln(out, "No issues detected")
				return nil
			}
			rows := make([][]string, 0, len(detail.Sections))
			for _, s := range detail.Sections {
				worst := "-"
				if s.WorstFrameNumber > 0 {
					worst = fmt.Sprintf("#%d %s", s.WorstFrameNumber, s.WorstFrameImage)
				}
				rows = append(rows, []string{
					s.Title,
					s.Severity,
					strconv.Itoa(s.FrameCount),
					strconv.FormatFloat(s.TotalSeconds, 'f', 1, 64),
					worst,
				})
			}
			printTable(cmd, tableSpec{
				headers: []string{"Issue", "Severity", "Frames", "Seconds", "Worst Frame"},
				aligns:  []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				rows:    rows,
			})
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the detail as JSON")
	return cmd
}

func newReportsImportCommand(ctx *commandContext) *cobra.Command {
	var legacy bool
	var assemble bool
	var createdAt string

	cmd := &cobra.Command{
		Use:   "import <userId> <file>",
		Short: "Store an analysis-service document for a user",
		Long: "Reads an analysis-service JSON document (or - for stdin) and stores it as a new analysis.\n" +
			"With --legacy the file is an index-keyed payload exported from an older deployment and is stored verbatim.\n" +
			"With --assemble the document is assembled first and stored as a tagged report.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := api.ParseUserID(args[0])
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			sess, err := ctx.openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			out := cmd.OutOrStdout()
			if legacy && assemble {
				return errors.New("--legacy and --assemble cannot be combined")
			}
			if legacy {
				when := time.Now().UTC()
				if strings.TrimSpace(createdAt) != "" {
					when, err = time.Parse(time.RFC3339, createdAt)
					if err != nil {
						return fmt.Errorf("parse --created-at: %w", err)
					}
				}
				rec, err := sess.store.CreateLegacy(cmd.Context(), userID, when, data)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Imported legacy analysis %d for user %d\n", rec.ID, rec.UserID)
				return nil
			}

			var resp api.CreateResponse
			if assemble {
				var r report.AnalysisReport
				if r, err = assembler.FromPayload(data); err != nil {
					return err
				}
				resp, err = sess.service.CreateReport(cmd.Context(), userID, r)
			} else {
				resp, err = sess.service.CreateDocument(cmd.Context(), userID, data)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Imported analysis %d for user %d\n", resp.ReportID, resp.Analise.UserID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&legacy, "legacy", false, "Store an index-keyed legacy payload as-is")
	cmd.Flags().BoolVar(&assemble, "assemble", false, "Assemble the document and store the resulting report")
	cmd.Flags().StringVar(&createdAt, "created-at", "", "RFC3339 creation time for legacy imports")
	return cmd
}

func newReportsExportCommand(ctx *commandContext) *cobra.Command {
	var formatFlag string
	var outputPath string
	var locale string

	cmd := &cobra.Command{
		Use:   "export <userId> <id>",
		Short: "Export one analysis as JSON, YAML, or text",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, id, err := parseOwnerAndID(args)
			if err != nil {
				return err
			}
			format, err := export.ParseFormat(formatFlag)
			if err != nil {
				return err
			}
			sess, err := ctx.openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			if strings.TrimSpace(locale) == "" {
				locale = sess.cfg.Export.Locale
			}
			exporter, err := export.New(locale)
			if err != nil {
				return err
			}
			detail, err := sess.service.Get(cmd.Context(), userID, id)
			if err != nil {
				return err
			}
			doc, err := export.FromDetail(detail)
			if err != nil {
				return err
			}

			if outputPath == "" || outputPath == "-" {
				return exporter.Write(cmd.OutOrStdout(), format, doc)
			}
			f, err := os.Create(outputPath)
			if err != nil {
				return fmt.Errorf("create output: %w", err)
			}
			if err := exporter.Write(f, format, doc); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s export to %s\n", format, outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&formatFlag, "format", "f", "text", "Output format: json, yaml, or text")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write to file instead of stdout")
	cmd.Flags().StringVar(&locale, "locale", "", "Override export.locale for text output")
	return cmd
}

func newReportsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <userId> <id>",
		Short: "Delete one analysis",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, id, err := parseOwnerAndID(args)
			if err != nil {
				return err
			}
			sess, err := ctx.openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.service.Delete(cmd.Context(), userID, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted analysis %d for user %d\n", id, userID)
			return nil
		},
	}
}

func parseOwnerAndID(args []string) (int64, int64, error) {
	userID, err := api.ParseUserID(args[0])
	if err != nil {
		return 0, 0, err
	}
	id, err := api.ParseRecordID(args[1])
	if err != nil {
		return 0, 0, err
	}
	return userID, id, nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("input file %s not found", path)
		}
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}
