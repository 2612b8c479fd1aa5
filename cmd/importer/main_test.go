package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Simplici0/recipecost/internal/importer"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("RECIPECOST_DB_PATH", filepath.Join(dir, "importer.db"))
	t.Setenv("RECIPECOST_LOG_LEVEL", "error")
	return dir
}

func TestRunImportThenExport(t *testing.T) {
	dir := setupEnv(t)
	ctx := context.Background()

	in := filepath.Join(dir, "in.yaml")
	if err := os.WriteFile(in, []byte(`
ingredients:
  - name: Vodka
    unit: ml
    pack_qty: 700
    pack_price: 14
products:
  - name: Mule
    sale_price: 5
    slots:
      - name: SPIRIT
        qty: 50
    bindings:
      SPIRIT: Vodka
`), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	var out bytes.Buffer
	if err := run(ctx, "import", in, &out); err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out.String(), "Imported 1 ingredients and 1 products") {
		t.Fatalf("unexpected import output: %q", out.String())
	}

	exported := filepath.Join(dir, "out.yaml")
	out.Reset()
	if err := run(ctx, "export", exported, &out); err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := importer.LoadFile(exported)
	if err != nil {
		t.Fatalf("load export: %v", err)
	}
	if len(f.Products) != 1 || f.Products[0].Bindings["SPIRIT"] != "Vodka" {
		t.Fatalf("unexpected export: %+v", f.Products)
	}
}

func TestRunSeedAndReset(t *testing.T) {
	setupEnv(t)
	ctx := context.Background()

	var out bytes.Buffer
	if err := run(ctx, "seed", "", &out); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !strings.Contains(out.String(), "24 inserts") {
		t.Fatalf("unexpected seed output: %q", out.String())
	}

	out.Reset()
	if err := run(ctx, "reset", "", &out); err != nil {
		t.Fatalf("reset: %v", err)
	}

	out.Reset()
	if err := run(ctx, "seed", "", &out); err != nil {
		t.Fatalf("seed after reset: %v", err)
	}
	if !strings.Contains(out.String(), "24 inserts") {
		t.Fatalf("expected a fresh seed after reset, got %q", out.String())
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	setupEnv(t)
	ctx := context.Background()

	if err := run(ctx, "import", "", &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for missing -file")
	}
	if err := run(ctx, "explode", "", &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for unknown command")
	}
}
