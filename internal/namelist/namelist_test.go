package namelist

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/c-hydro/shybox/pkg/descriptor"
	"github.com/c-hydro/shybox/pkg/model"
)

const templateText = `&HMC_Parameters
  sDomainName = 'default'
  iDt = 0
  iDtData = 0
  dUc = 20
/
&HMC_Namelist
  sTimeStart = '197822051255'
  sPathData = '/default'
/
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeTemplate(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "template.txt")
	if err := os.WriteFile(path, []byte(templateText), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	return path
}

func spec(template, project string, fields descriptor.NamelistFields) *descriptor.NamelistSpec {
	return &descriptor.NamelistSpec{
		File:   descriptor.NamelistFile{Template: template, Project: project},
		Fields: fields,
	}
}

func TestGenerate_ByValue(t *testing.T) {
	dir := t.TempDir()
	template := writeTemplate(t, dir)
	target := filepath.Join(dir, "out", "namelist.txt")
	ts := time.Date(2025, 1, 1, 6, 0, 0, 0, time.UTC)

	vars := map[string]any{
		"domain_name": "marche",
		"path_data":   "/data/marche",
	}
	fields := descriptor.NamelistFields{
		ByValue: map[string]any{
			"sDomainName": "{domain_name}",
			"sTimeStart":  "$yyyy$mm$dd$HH$MM",
			"sPathData":   "{path_data}/$yyyy/$mm/$dd",
			"dUc":         30,
		},
	}

	res, err := New(testLogger(), true).Generate(spec(template, target, fields), vars, ts)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Skipped {
		t.Fatal("expected a fresh write, not a skip")
	}

	out, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	text := string(out)

	for _, want := range []string{
		"  sDomainName = 'marche'",
		"  sTimeStart = '202501010600'",
		"  sPathData = '/data/marche/2025/01/01'",
		"  dUc = 30",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q\n%s", want, text)
		}
	}
	// Untouched fields keep their template value.
	if !strings.Contains(text, "iDt = 0") {
		t.Errorf("untouched field rewritten:\n%s", text)
	}
}

func TestGenerate_ByPattern(t *testing.T) {
	dir := t.TempDir()
	template := writeTemplate(t, dir)
	target := filepath.Join(dir, "namelist.txt")
	ts := time.Date(2025, 1, 1, 6, 0, 0, 0, time.UTC)

	fields := descriptor.NamelistFields{
		ByPattern: descriptor.PatternList{
			{Name: "model_dt", Active: true, Template: "iDt", Value: 3600},
			{Name: "disabled", Active: false, Template: "dUc", Value: 99},
		},
	}

	if _, err := New(testLogger(), true).Generate(spec(template, target, fields), nil, ts); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	out, _ := os.ReadFile(target)
	text := string(out)

	// Every field whose name carries the tag is completed.
	if !strings.Contains(text, "iDt = 3600") || !strings.Contains(text, "iDtData = 3600") {
		t.Errorf("by_pattern not applied to all tagged fields:\n%s", text)
	}
	// Inactive patterns change nothing.
	if !strings.Contains(text, "dUc = 20") {
		t.Errorf("inactive pattern applied:\n%s", text)
	}
}

func TestGenerate_LongestTagWins(t *testing.T) {
	dir := t.TempDir()
	template := writeTemplate(t, dir)
	target := filepath.Join(dir, "namelist.txt")
	ts := time.Date(2025, 1, 1, 6, 0, 0, 0, time.UTC)

	// iDtData matches both tags; the longer one must win regardless of
	// declaration order.
	fields := descriptor.NamelistFields{
		ByPattern: descriptor.PatternList{
			{Name: "dt", Active: true, Template: "iDt", Value: 3600},
			{Name: "dt_data", Active: true, Template: "iDtData", Value: 600},
		},
	}

	if _, err := New(testLogger(), true).Generate(spec(template, target, fields), nil, ts); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	out, _ := os.ReadFile(target)
	text := string(out)

	if !strings.Contains(text, "iDtData = 600") {
		t.Errorf("longest tag did not win:\n%s", text)
	}
	if !strings.Contains(text, "iDt = 3600") {
		t.Errorf("shorter tag not applied to its own field:\n%s", text)
	}
}

func TestGenerate_UpdateDisabledReusesExisting(t *testing.T) {
	dir := t.TempDir()
	template := writeTemplate(t, dir)
	target := filepath.Join(dir, "namelist.txt")
	ts := time.Date(2025, 1, 1, 6, 0, 0, 0, time.UTC)
	fields := descriptor.NamelistFields{
		ByValue: map[string]any{"sDomainName": "marche"},
	}

	gen := New(testLogger(), false)
	res, err := gen.Generate(spec(template, target, fields), nil, ts)
	if err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	if res.Skipped {
		t.Fatal("first generation must write")
	}
	first, _ := os.ReadFile(target)

	res, err = gen.Generate(spec(template, target, fields), nil, ts)
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if !res.Skipped {
		t.Fatal("second generation must be a skip")
	}
	second, _ := os.ReadFile(target)
	if !bytes.Equal(first, second) {
		t.Error("existing namelist changed despite update disabled")
	}
}

func TestGenerate_TemplateNotFound(t *testing.T) {
	dir := t.TempDir()
	_, err := New(testLogger(), true).Generate(
		spec(filepath.Join(dir, "missing.txt"), filepath.Join(dir, "out.txt"), descriptor.NamelistFields{}),
		nil, time.Now())
	if model.KindOf(err) != model.KindTemplateNotFound {
		t.Fatalf("kind = %v, want TEMPLATE_NOT_FOUND", model.KindOf(err))
	}
}

func TestGenerate_PathPlaceholders(t *testing.T) {
	dir := t.TempDir()
	template := writeTemplate(t, dir)
	ts := time.Date(2025, 1, 1, 6, 0, 0, 0, time.UTC)
	vars := map[string]any{"path_run": dir}

	res, err := New(testLogger(), true).Generate(
		spec(template, "{path_run}/$yyyy$mm$dd/namelist.txt", descriptor.NamelistFields{}), vars, ts)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := filepath.Join(dir, "20250101", "namelist.txt")
	if res.Path != want {
		t.Errorf("path = %q, want %q", res.Path, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("target not written: %v", err)
	}
}

func TestGenerate_QuietAtInfoLevel(t *testing.T) {
	dir := t.TempDir()
	template := writeTemplate(t, dir)
	target := filepath.Join(dir, "namelist.txt")
	ts := time.Date(2025, 1, 1, 6, 0, 0, 0, time.UTC)
	fields := descriptor.NamelistFields{
		ByValue: map[string]any{"sDomainName": "marche"},
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	gen := New(logger, false)
	if _, err := gen.Generate(spec(template, target, fields), nil, ts); err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	if _, err := gen.Generate(spec(template, target, fields), nil, ts); err != nil {
		t.Fatalf("second Generate: %v", err)
	}

	// Per-timestamp reporting belongs to the caller, which logs in sequence
	// order after all workers finish; the generator stays below Info.
	if buf.Len() != 0 {
		t.Errorf("unexpected Info-level output:\n%s", buf.String())
	}
}

func TestRenderValue_QuoteStyle(t *testing.T) {
	tests := []struct{ v, old, want string }{
		{"marche", "'default'", "'marche'"},
		{"marche", `"default"`, `"marche"`},
		{"3600", "0", "3600"},
	}
	for _, tt := range tests {
		if got := renderValue(tt.v, tt.old); got != tt.want {
			t.Errorf("renderValue(%q, %q) = %q, want %q", tt.v, tt.old, got, tt.want)
		}
	}
}
