package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const DefaultDir = "pkg/migrate/migrations"

// Runner applies the SQL migrations in a directory to Postgres.
type Runner struct {
	provider *goose.Provider
	logg     *logger.Logger
}

func NewRunner(db *sql.DB, dir string, logg *logger.Logger) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if dir == "" {
		return nil, errors.New("migrations dir is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("load migrations from %s: %w", dir, err)
	}
	if logg == nil {
		logg = logger.New(logger.Options{ServiceName: "migrate", Output: io.Discard})
	}
	return &Runner{provider: provider, logg: logg}, nil
}

// Run executes up, down or status.
func (r *Runner) Run(ctx context.Context, command string) error {
	switch command {
	case "up":
		results, err := r.provider.Up(ctx)
		r.report(ctx, results...)
		return wrapGoose("up", err)
	case "down":
		result, err := r.provider.Down(ctx)
		if result != nil {
			r.report(ctx, result)
		}
		return wrapGoose("down", err)
	case "status":
		statuses, err := r.provider.Status(ctx)
		if err != nil {
			return wrapGoose("status", err)
		}
		for _, st := range statuses {
			r.logg.Info(r.logg.WithFields(ctx, map[string]any{
				"version":    st.Source.Version,
				"file":       st.Source.Path,
				"state":      string(st.State),
				"applied_at": st.AppliedAt,
			}), "migration status")
		}
		return nil
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
}

// MigrateTo moves the schema up or down until it sits at target.
func (r *Runner) MigrateTo(ctx context.Context, target string) error {
	version, err := parseVersion(target)
	if err != nil {
		return err
	}
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return wrapGoose("version", err)
	}

	var results []*goose.MigrationResult
	switch {
	case version > current:
		results, err = r.provider.UpTo(ctx, version)
	case version < current:
		results, err = r.provider.DownTo(ctx, version)
	default:
		r.logg.Info(r.logg.WithField(ctx, "version", current), "schema already at requested version")
		return nil
	}
	r.report(ctx, results...)
	return wrapGoose(fmt.Sprintf("migrate to %d", version), err)
}

func (r *Runner) report(ctx context.Context, results ...*goose.MigrationResult) {
	for _, res := range results {
		fields := map[string]any{
			"direction":   res.Direction,
			"duration_ms": res.Duration.Milliseconds(),
		}
		if res.Source != nil {
			fields["version"] = res.Source.Version
			fields["file"] = res.Source.Path
		}
		r.logg.Info(r.logg.WithFields(ctx, fields), "migration applied")
	}
}

func parseVersion(raw string) (int64, error) {
	if raw == "" {
		return 0, errors.New("target version is required")
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid version %q, expected YYYYMMDDHHMMSS", raw)
	}
	return v, nil
}

func wrapGoose(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("goose %s: %w", op, err)
}
