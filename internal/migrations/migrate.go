package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/Simplici0/recipecost/internal/logger"
)

const (
	sqliteDialect = "sqlite3"
	migrationsDir = "sql"
)

//go:embed sql/*.sql
var embedded embed.FS

// goose keeps its dialect, base FS and logger in package globals.
var gooseMu sync.Mutex

// Up runs all pending embedded SQL migrations.
func Up(ctx context.Context, db *sql.DB, logg *logger.Logger) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := prepare(ctx, logg); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
		return fmt.Errorf("run goose up migrations: %w", err)
	}

	return nil
}

// Reset rolls back every applied migration.
func Reset(ctx context.Context, db *sql.DB, logg *logger.Logger) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := prepare(ctx, logg); err != nil {
		return err
	}

	if err := goose.ResetContext(ctx, db, migrationsDir); err != nil {
		return fmt.Errorf("run goose reset: %w", err)
	}

	return nil
}

// Version reports the current schema version.
func Version(ctx context.Context, db *sql.DB) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := prepare(ctx, nil); err != nil {
		return 0, err
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("get goose db version: %w", err)
	}
	return version, nil
}

func prepare(ctx context.Context, logg *logger.Logger) error {
	if err := goose.SetDialect(sqliteDialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	goose.SetBaseFS(embedded)
	if logg == nil {
		logg = logger.Nop()
	}
	goose.SetLogger(gooseLogger{ctx: ctx, logg: logg})
	return nil
}

type gooseLogger struct {
	ctx  context.Context
	logg *logger.Logger
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.logg.Debug(g.ctx, fmt.Sprintf(format, v...))
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.logg.Error(g.ctx, "goose fatal", fmt.Errorf(format, v...))
	os.Exit(1)
}
