package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"movup/internal/api"
	"movup/internal/testsupport"
)

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	full := append([]string{}, args...)
	if configPath != "" {
		full = append(full, "--config", configPath)
	}
	cmd.SetArgs(full)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q\n%s", substr, output)
	}
}

func writeTestConfig(t *testing.T, extra string) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[logging]
level = "warn"
%s`, filepath.Join(base, "data"), filepath.Join(base, "logs"), extra)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func writeDocument(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "analysis.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write document: %v", err)
	}
	return path
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	target := filepath.Join(t.TempDir(), "movup", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected second init to fail without --overwrite")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	cfgPath := writeTestConfig(t, "\n[api]\ntoken = \"super-secret\"\n")

	out, _, err := runCLI(t, []string{"config", "show"}, cfgPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "super-secret") {
		t.Fatalf("token leaked in output:\n%s", out)
	}
	requireContains(t, out, "********")
}

func TestConfigValidateReportsDriver(t *testing.T) {
	cfgPath := writeTestConfig(t, "")

	out, _, err := runCLI(t, []string{"config", "validate"}, cfgPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Storage: sqlite")
	requireContains(t, out, "Configuration valid")
}

func TestReportsLifecycle(t *testing.T) {
	cfgPath := writeTestConfig(t, "")
	docPath := writeDocument(t, testsupport.SampleServiceDocument)

	out, _, err := runCLI(t, []string{"reports", "import", "7", docPath}, cfgPath)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	requireContains(t, out, "Imported analysis 1 for user 7")

	out, _, err = runCLI(t, []string{"reports", "list", "7"}, cfgPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "Analyses for user 7")
	requireContains(t, out, "ok")

	out, _, err = runCLI(t, []string{"reports", "list", "7", "--json"}, cfgPath)
	if err != nil {
		t.Fatalf("list --json: %v", err)
	}
	var entries []api.AnalysisEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode list: %v\n%s", err, out)
	}
	if len(entries) != 1 || entries[0].ID != 1 || !entries[0].Decoded() || entries[0].Stats == nil {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	out, _, err = runCLI(t, []string{"reports", "show", "7", "1"}, cfgPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "Problemas de Postura")
	requireContains(t, out, "Problemas de Overstride")

	out, _, err = runCLI(t, []string{"reports", "export", "7", "1", "--format", "text"}, cfgPath)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	requireContains(t, out, "Resumo Geral")

	outFile := filepath.Join(t.TempDir(), "report.yaml")
	out, _, err = runCLI(t, []string{"reports", "export", "7", "1", "-f", "yaml", "-o", outFile}, cfgPath)
	if err != nil {
		t.Fatalf("export yaml: %v", err)
	}
	requireContains(t, out, "Wrote yaml export")
	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	requireContains(t, string(data), "userId: 7")

	if _, _, err := runCLI(t, []string{"reports", "show", "8", "1"}, cfgPath); err == nil {
		t.Fatal("expected another user's record to be hidden")
	}

	out, _, err = runCLI(t, []string{"reports", "delete", "7", "1"}, cfgPath)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	requireContains(t, out, "Deleted analysis 1")

	out, _, err = runCLI(t, []string{"reports", "list", "7"}, cfgPath)
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	requireContains(t, out, "No analyses for user 7")
}

func TestReportsImportLegacy(t *testing.T) {
	cfgPath := writeTestConfig(t, "")
	legacy := testsupport.LegacyIndexed(t, []byte(testsupport.SampleServiceDocument))
	docPath := writeDocument(t, string(legacy))

	out, _, err := runCLI(t, []string{"reports", "import", "3", docPath, "--legacy", "--created-at", "2024-05-01T10:00:00Z"}, cfgPath)
	if err != nil {
		t.Fatalf("legacy import: %v", err)
	}
	requireContains(t, out, "Imported legacy analysis")

	out, _, err = runCLI(t, []string{"reports", "list", "3", "--json"}, cfgPath)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var entries []api.AnalysisEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(entries) != 1 || !entries[0].Decoded() {
		t.Fatalf("legacy entry should decode: %+v", entries)
	}
	if !strings.HasPrefix(entries[0].CreatedAt, "2024-05-01T10:00:00") {
		t.Fatalf("createdAt = %q", entries[0].CreatedAt)
	}
}

func TestReportsImportAssembled(t *testing.T) {
	cfgPath := writeTestConfig(t, "")
	docPath := writeDocument(t, testsupport.SampleServiceDocument)

	out, _, err := runCLI(t, []string{"reports", "import", "5", docPath, "--assemble"}, cfgPath)
	if err != nil {
		t.Fatalf("assembled import: %v", err)
	}
	requireContains(t, out, "Imported analysis 1 for user 5")

	out, _, err = runCLI(t, []string{"reports", "show", "5", "1", "--json"}, cfgPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	var detail api.AnalysisDetail
	if err := json.Unmarshal([]byte(out), &detail); err != nil {
		t.Fatalf("decode detail: %v\n%s", err, out)
	}
	if !detail.Decoded() || detail.Report == nil || len(detail.Sections) != 2 {
		t.Fatalf("assembled record should decode with both sections: %+v", detail.AnalysisEntry)
	}
	requireContains(t, string(detail.Data), `"analysis_report"`)

	if _, _, err := runCLI(t, []string{"reports", "import", "5", docPath, "--assemble", "--legacy"}, cfgPath); err == nil {
		t.Fatal("expected --assemble with --legacy to fail")
	}
}

func TestReportsRejectInvalidArguments(t *testing.T) {
	cfgPath := writeTestConfig(t, "")

	if _, _, err := runCLI(t, []string{"reports", "list", "abc"}, cfgPath); err == nil {
		t.Fatal("expected invalid user id to fail")
	}
	if _, _, err := runCLI(t, []string{"reports", "export", "1", "1", "--format", "pdf"}, cfgPath); err == nil {
		t.Fatal("expected unsupported format to fail")
	}
	if _, _, err := runCLI(t, []string{"reports", "import", "1", filepath.Join(t.TempDir(), "missing.json")}, cfgPath); err == nil {
		t.Fatal("expected missing input to fail")
	}
}
