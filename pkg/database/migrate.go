package database

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// mockable
var (
	gooseUp      = goose.UpContext
	gooseVersion = goose.GetDBVersionContext
)

// Migrate applies the goose migrations found at the root of fsys and returns the resulting schema version.
func Migrate(ctx context.Context, db *sqlx.DB, fsys fs.FS, logr *zap.Logger) (int64, error) {
	if logr == nil {
		logr = zap.NewNop()
	}
	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(gooseLogger{logr.Sugar()})
	if err := goose.SetDialect("postgres"); err != nil {
		return 0, fmt.Errorf("goose dialect: %w", err)
	}

	if err := gooseUp(ctx, db.DB, "."); err != nil {
		return 0, fmt.Errorf("goose up: %w", err)
	}
	version, err := gooseVersion(ctx, db.DB)
	if err != nil {
		return 0, fmt.Errorf("goose version: %w", err)
	}
	return version, nil
}

// gooseLogger routes goose progress lines into zap.
type gooseLogger struct {
	*zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.Infof(format, v...)
}
