package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Simplici0/recipecost/internal/config"
	"github.com/Simplici0/recipecost/internal/db"
	"github.com/Simplici0/recipecost/internal/importer"
	"github.com/Simplici0/recipecost/internal/logger"
	"github.com/Simplici0/recipecost/internal/migrations"
	"github.com/Simplici0/recipecost/internal/seed"
)

func main() {
	cmd := flag.String("cmd", "import", "command: import|export|seed|reset")
	file := flag.String("file", "", "YAML catalog file (import reads it, export writes it)")
	flag.Parse()

	if err := run(context.Background(), *cmd, *file, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", *cmd, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd, file string, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logg := logger.New(logger.Options{
		ServiceName: "importer",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		Output:      os.Stderr,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"cmd":     cmd,
		"db_path": cfg.DB.Path,
	})

	if (cmd == "import" || cmd == "export") && strings.TrimSpace(file) == "" {
		return fmt.Errorf("-file is required for %s", cmd)
	}

	database, err := db.Open(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	if err := migrations.Up(ctx, database, logg); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	switch cmd {
	case "import":
		f, err := importer.LoadFile(file)
		if err != nil {
			return err
		}
		stats, err := importer.Apply(ctx, database, f, logg)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Imported %d ingredients and %d products (%d items, %d slot lines, %d bindings) from %s\n",
			stats.Ingredients, stats.Products, stats.FixedLines, stats.SlotLines, stats.Bindings, file)

	case "export":
		f, err := importer.Export(ctx, database)
		if err != nil {
			return err
		}
		if err := importer.WriteFile(f, file); err != nil {
			return err
		}
		fmt.Fprintf(out, "Exported %d ingredients and %d products to %s\n", len(f.Ingredients), len(f.Products), file)

	case "seed":
		stats, err := seed.Run(ctx, database, logg)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Seeded demo catalog (%d inserts)\n", stats.Inserts)

	case "reset":
		if err := migrations.Reset(ctx, database, logg); err != nil {
			return fmt.Errorf("reset schema: %w", err)
		}
		if err := migrations.Up(ctx, database, logg); err != nil {
			return fmt.Errorf("rerun migrations: %w", err)
		}
		fmt.Fprintln(out, "Database reset")

	default:
		return fmt.Errorf("unknown -cmd value %q", cmd)
	}

	return nil
}
