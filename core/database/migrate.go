package database

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/infobot/core/config"
	"github.com/m3rciful/infobot/core/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const (
	readyTimeout   = 30 * time.Second
	previewEntries = 6
)

// migrationFile is one *.up.sql file; Version is its numeric prefix.
type migrationFile struct {
	Version uint64
	Name    string
}

// RunMigrations applies every pending up migration found in cfg.MigrationsDir.
func RunMigrations(cfg coreconfig.DatabaseConfig) error {
	ctx := logger.Background()
	fail := func(stage string, err error) error {
		logger.Error(ctx, "db.migrate", "db.migrate",
			slog.String("status", "fail"),
			slog.String("op", stage),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return fmt.Errorf("migrations: %s: %w", stage, err)
	}

	if err := WaitForPostgres(ctx, KeywordDSN(cfg), readyTimeout); err != nil {
		return fail("wait", err)
	}
	dir, err := resolveMigrationsDir(cfg.MigrationsDir)
	if err != nil {
		return fail("resolve", err)
	}
	files, err := scanMigrations(dir)
	if err != nil {
		return fail("scan", err)
	}
	logger.Debug(ctx, "db.migrate", "db.migrate.resolved", append(
		[]slog.Attr{slog.String("path", dir), slog.Int("count", len(files))},
		previewAttrs(names(files))...,
	)...)

	m, err := migrate.New("file://"+dir, URLDSN(cfg))
	if err != nil {
		return fail("init", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn(ctx, "db.migrate", "db.migrate.close",
				slog.String("status", "fail"),
				slog.Any("err", errors.Join(srcErr, dbErr)),
			)
		}
	}()

	from, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fail("apply", upErr)
	}
	to, _, _ := m.Version()

	applied := between(files, uint64(from), uint64(to))
	logger.Info(ctx, "db.migrate", "db.migrate.summary", append([]slog.Attr{
		slog.String("status", "ok"),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("count", len(applied)),
		slog.Duration("duration", logger.Took(start)),
	}, previewAttrs(applied)...)...)
	return nil
}

func resolveMigrationsDir(dir string) (string, error) {
	if dir == "" {
		dir = "migrations"
	}
	if filepath.IsAbs(dir) {
		return dir, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", dir, err)
	}
	return abs, nil
}

// scanMigrations lists the up migrations in dir ordered by version.
func scanMigrations(dir string) ([]migrationFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []migrationFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		prefix, _, _ := strings.Cut(name, "_")
		v, err := strconv.ParseUint(prefix, 10, 64)
		if err != nil {
			continue
		}
		files = append(files, migrationFile{Version: v, Name: name})
	}
	slices.SortFunc(files, func(a, b migrationFile) int {
		return cmp.Compare(a.Version, b.Version)
	})
	return files, nil
}

// between returns the names of files with from < version <= to.
func between(files []migrationFile, from, to uint64) []string {
	var out []string
	for _, f := range files {
		if f.Version > from && f.Version <= to {
			out = append(out, f.Name)
		}
	}
	return out
}

func names(files []migrationFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}

func previewAttrs(list []string) []slog.Attr {
	preview, truncated := logger.SummarizeStrings(list, previewEntries)
	if preview == "" {
		return nil
	}
	attrs := []slog.Attr{slog.String("files", preview)}
	if truncated {
		attrs = append(attrs, slog.Bool("files_truncated", true))
	}
	return attrs
}
