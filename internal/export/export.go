// Package export renders a stored analysis as JSON, YAML, or a localized
// plain-text report.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"movup/internal/api"
	"movup/internal/assembler"
	"movup/internal/report"
	"movup/internal/services"
)

// Format selects the output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatText Format = "text"
)

// ParseFormat accepts json, yaml/yml, and text/txt.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "text", "txt":
		return FormatText, nil
	default:
		return "", services.Wrap(services.ErrValidation, "export", "parse format", fmt.Sprintf("unsupported format %q", value), nil)
	}
}

// Summary is the video-level block of an exported document.
type Summary struct {
	TotalFrames     int            `json:"totalFrames"`
	FPS             float64        `json:"fps"`
	DurationSeconds float64        `json:"durationSeconds"`
	IssueCounts     map[string]int `json:"issueCounts,omitempty"`
}

// Document is the export view of one stored analysis.
type Document struct {
	ID        int64               `json:"id"`
	UserID    int64               `json:"userId"`
	CreatedAt string              `json:"createdAt,omitempty"`
	Summary   Summary             `json:"summary"`
	Stats     assembler.Stats     `json:"stats"`
	Sections  []assembler.Section `json:"sections"`
}

// FromDetail builds a Document. Records whose payload could not be decoded
// cannot be exported.
func FromDetail(detail api.AnalysisDetail) (Document, error) {
	if detail.Report == nil {
		msg := fmt.Sprintf("record %d has no decodable report", detail.ID)
		if detail.Error != "" {
			msg += ": " + detail.Error
		}
		return Document{}, services.Wrap(services.ErrDecode, "export", "build document", msg, nil)
	}
	r := *detail.Report
	doc := Document{
		ID:        detail.ID,
		UserID:    detail.UserID,
		CreatedAt: detail.CreatedAt,
		Summary: Summary{
			TotalFrames:     r.Summary.TotalFrames,
			FPS:             r.Summary.FPS,
			DurationSeconds: r.Summary.TotalDurationSeconds,
		},
		Stats:    assembler.Summarize(r),
		Sections: detail.Sections,
	}
	if len(r.Summary.PerIssueCounts) > 0 {
		doc.Summary.IssueCounts = make(map[string]int, len(r.Summary.PerIssueCounts))
		for issue, count := range r.Summary.PerIssueCounts {
			doc.Summary.IssueCounts[string(issue)] = count
		}
	}
	if doc.Sections == nil {
		doc.Sections = []assembler.Section{}
	}
	return doc, nil
}

// Exporter writes documents using a locale for the text format.
type Exporter struct {
	printer *message.Printer
}

// New returns an Exporter for the BCP 47 locale tag, e.g. "pt-BR".
func New(locale string) (*Exporter, error) {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "export", "parse locale", locale, err)
	}
	return &Exporter{printer: message.NewPrinter(tag)}, nil
}

// Write renders doc to w in the requested format.
func (e *Exporter) Write(w io.Writer, format Format, doc Document) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		data, err := toYAML(doc)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case FormatText:
		return e.writeText(w, doc)
	default:
		return services.Wrap(services.ErrValidation, "export", "write", fmt.Sprintf("unsupported format %q", format), nil)
	}
}

// toYAML re-encodes v through its JSON form so YAML keys and order match the
// JSON export.
func toYAML(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("convert document: %w", err)
	}
	plainStyle(&node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// plainStyle drops the flow and quoting styles inherited from JSON input.
func plainStyle(node *yaml.Node) {
	node.Style = 0
	for _, child := range node.Content {
		plainStyle(child)
	}
}

func (e *Exporter) writeText(w io.Writer, doc Document) error {
	p := e.printer
	var buf bytes.Buffer

	buf.WriteString("Relatório de Análise Biomecânica\n")
	buf.WriteString("MovUp - Análise de Corrida\n")
	fmt.Fprintf(&buf, "Registro #%d · Usuário #%d", doc.ID, doc.UserID)
	if doc.CreatedAt != "" {
		buf.WriteString(" · " + doc.CreatedAt)
	}
	buf.WriteString("\n\nResumo Geral\n")
	p.Fprintf(&buf, "  Total de Frames: %d\n", doc.Summary.TotalFrames)
	p.Fprintf(&buf, "  FPS: %v\n", doc.Summary.FPS)
	for _, issue := range report.AllIssueTypes() {
		count, ok := doc.Summary.IssueCounts[string(issue)]
		if !ok {
			continue
		}
		text, _ := report.TextFor(issue)
		p.Fprintf(&buf, "  %s: %d\n", text.Title, count)
	}
	p.Fprintf(&buf, "  Tempo com Erro: %.1fs\n", doc.Stats.SecondsWithError)
	p.Fprintf(&buf, "  Percentual de Erro: %.1f%%\n", doc.Stats.ErrorPercentage)

	for _, section := range doc.Sections {
		buf.WriteString("\n")
		buf.WriteString(section.Title)
		buf.WriteString("\n")
		p.Fprintf(&buf, "  O que é: %s\n", section.Description)
		p.Fprintf(&buf, "  Impacto: %s\n", section.Impact)
		p.Fprintf(&buf, "  Frames com Erro: %d\n", section.FrameCount)
		p.Fprintf(&buf, "  Tempo Total Afetado: %.1fs\n", section.TotalSeconds)
		if section.WorstFrameImage != "" {
			if section.WorstFrameNumber > 0 {
				fmt.Fprintf(&buf, "  Frame com Erro (#%d): %s\n", section.WorstFrameNumber, section.WorstFrameImage)
			} else {
				p.Fprintf(&buf, "  Frame com Erro: %s\n", section.WorstFrameImage)
			}
		}
		if section.SuccessFrameImage != "" {
			p.Fprintf(&buf, "  Frame de Sucesso: %s\n", section.SuccessFrameImage)
		}
		if section.IssueType == report.IssueOverstride && section.AnalyzedSeconds > 0 {
			p.Fprintf(&buf, "  Segundos com Overstride: %d de %d\n", section.FlaggedSeconds, section.AnalyzedSeconds)
		}
	}

	_, err := w.Write(buf.Bytes())
	return err
}
