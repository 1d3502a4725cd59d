package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mindmorass/clipdeck/internal/augment"
	"github.com/mindmorass/clipdeck/internal/item"
)

type cliEnv struct {
	configDir string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	t.Setenv("API_KEY", "")
	t.Setenv(envPassphrase, "")
	return &cliEnv{configDir: t.TempDir()}
}

func (e *cliEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config-dir", e.configDir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (e *cliEnv) mustRun(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	out, err := e.run(t, stdin, args...)
	if err != nil {
		t.Fatalf("%v: %v\n%s", args, err, out)
	}
	return out
}

func TestAddListAndShow(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun(t, "", "add", "--tag", "docs", "https://go.dev")
	fields := strings.Fields(out)
	if len(fields) != 2 || fields[1] != "LINK" {
		t.Fatalf("unexpected add output %q", out)
	}
	id := fields[0]

	env.mustRun(t, "line one\nline two\n", "add", "--type", "text")

	var items []item.ClipboardItem
	if err := json.Unmarshal([]byte(env.mustRun(t, "", "list")), &items); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(items) != 2 || items[1].ID != id {
		t.Fatalf("unexpected items %+v", items)
	}
	if items[0].Content != "line one\nline two" {
		t.Fatalf("stdin content not trimmed: %q", items[0].Content)
	}

	items = nil
	if err := json.Unmarshal([]byte(env.mustRun(t, "", "list", "--tag", "docs")), &items); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(items) != 1 || items[0].ID != id {
		t.Fatalf("tag filter failed: %+v", items)
	}

	var shown item.ClipboardItem
	if err := json.Unmarshal([]byte(env.mustRun(t, "", "show", id)), &shown); err != nil {
		t.Fatalf("decode show: %v", err)
	}
	if shown.Content != "https://go.dev" {
		t.Fatalf("unexpected item %+v", shown)
	}

	if _, err := env.run(t, "", "list", "--type", "video"); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestTagAndRemove(t *testing.T) {
	env := newCLIEnv(t)
	id := strings.Fields(env.mustRun(t, "", "add", "hello"))[0]

	if out := env.mustRun(t, "", "tag", id, "a", "b"); strings.TrimSpace(out) != "a, b" {
		t.Fatalf("unexpected tags %q", out)
	}
	if out := env.mustRun(t, "", "tag", "--remove", id, "a"); strings.TrimSpace(out) != "b" {
		t.Fatalf("unexpected tags %q", out)
	}

	var tags []item.Tag
	if err := json.Unmarshal([]byte(env.mustRun(t, "", "tags")), &tags); err != nil {
		t.Fatalf("decode tags: %v", err)
	}
	if len(tags) != 1 || tags[0].Name != "b" || tags[0].Count != 1 {
		t.Fatalf("unexpected tags %+v", tags)
	}

	env.mustRun(t, "", "rm", id)
	if _, err := env.run(t, "", "show", id); err == nil {
		t.Fatal("expected error for deleted item")
	}
}

func TestTemplateCommands(t *testing.T) {
	env := newCLIEnv(t)

	id := strings.TrimSpace(env.mustRun(t, "", "template", "add", "sig", "Best,", "Sam"))
	env.mustRun(t, "multi\nline\n", "template", "add", "block")

	var templates []item.Template
	if err := json.Unmarshal([]byte(env.mustRun(t, "", "template", "list")), &templates); err != nil {
		t.Fatalf("decode templates: %v", err)
	}
	if len(templates) != 2 || templates[0].Name != "block" || templates[1].Content != "Best, Sam" {
		t.Fatalf("unexpected templates %+v", templates)
	}

	env.mustRun(t, "", "template", "rm", id)
	templates = nil
	if err := json.Unmarshal([]byte(env.mustRun(t, "", "template", "list")), &templates); err != nil {
		t.Fatalf("decode templates: %v", err)
	}
	if len(templates) != 1 {
		t.Fatalf("expected 1 template, got %d", len(templates))
	}
}

func TestAugmentCommandsDegradeWithoutCredential(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "", "translate", "--to", "fr", "hello")
	if !errors.Is(err, errDegraded) {
		t.Fatalf("expected degraded error, got %v", err)
	}
	if strings.TrimSpace(out) != augment.FallbackNotConfigured {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = env.run(t, "x=1", "format", "--language", "python")
	if !errors.Is(err, errDegraded) || strings.TrimSpace(out) != "x=1" {
		t.Fatalf("format: out=%q err=%v", out, err)
	}

	out = env.mustRun(t, "x=1", "analyze", "--json")
	var analysis augment.CodeAnalysis
	if err := json.Unmarshal([]byte(out), &analysis); err != nil {
		t.Fatalf("decode analysis: %v", err)
	}
	if analysis.Language != "plaintext" || analysis.IsSensitive || !analysis.Degraded() {
		t.Fatalf("unexpected analysis %+v", analysis)
	}

	if _, err := env.run(t, "", "translate", "hello"); err == nil {
		t.Fatal("expected error without --to")
	}
	if _, err := env.run(t, "", "format", "--apply"); err == nil {
		t.Fatal("expected error for --apply without --id")
	}
}

func TestOCRRejectsNonImages(t *testing.T) {
	env := newCLIEnv(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	writeFile(t, path, "plain text")

	if _, err := env.run(t, "", "ocr", path); err == nil || !strings.Contains(err.Error(), "not an image") {
		t.Fatalf("expected not an image error, got %v", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "", "add", "--tag", "keep", "remember this")
	env.mustRun(t, "", "template", "add", "sig", "Regards")

	backups := t.TempDir()
	out := env.mustRun(t, "", "export", "--location", backups)
	if !strings.Contains(out, "1 items, 1 templates, encrypted: no") {
		t.Fatalf("unexpected export output %q", out)
	}

	other := newCLIEnv(t)
	out = other.mustRun(t, "", "import", "--dry-run", "--location", backups)
	if !strings.Contains(out, "Found backup") || !strings.Contains(out, "1 items, 1 templates") {
		t.Fatalf("unexpected dry run output %q", out)
	}
	if listed := other.mustRun(t, "", "list", "--json"); strings.Contains(listed, "remember this") {
		t.Fatalf("dry run imported items: %q", listed)
	}

	out = other.mustRun(t, "", "import", "--location", backups)
	if !strings.Contains(out, "items: 1 added, 0 skipped") || !strings.Contains(out, "templates: 1 added, 0 skipped") {
		t.Fatalf("unexpected import output %q", out)
	}

	out = other.mustRun(t, "", "import", "--location", backups)
	if !strings.Contains(out, "items: 0 added, 1 skipped") {
		t.Fatalf("second import should skip existing items: %q", out)
	}
}

func TestImportMissingBackup(t *testing.T) {
	env := newCLIEnv(t)
	if _, err := env.run(t, "", "import", "--location", t.TempDir()); err == nil {
		t.Fatal("expected error for missing backup")
	}
}

func TestReadPassphrase(t *testing.T) {
	t.Setenv(envPassphrase, "")
	orig := promptPassphrase
	t.Cleanup(func() { promptPassphrase = orig })

	answers := []string{"secret", "secret"}
	promptPassphrase = func(string) (string, error) {
		next := answers[0]
		answers = answers[1:]
		return next, nil
	}
	if p, err := readPassphrase(true); err != nil || p != "secret" {
		t.Fatalf("readPassphrase: %q %v", p, err)
	}

	answers = []string{"one", "two"}
	if _, err := readPassphrase(true); err == nil {
		t.Fatal("expected mismatch error")
	}

	t.Setenv(envPassphrase, "from-env")
	if p, err := readPassphrase(true); err != nil || p != "from-env" {
		t.Fatalf("expected env passphrase, got %q %v", p, err)
	}
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"Tag", "Items"}, [][]string{{"work", "12"}, {"home"}}, []columnAlignment{alignLeft, alignRight})
	for _, want := range []string{"TAG", "ITEMS", "work", "12", "home"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
}
