package migrator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/postgres"
	"ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"
	"github.com/jmoiron/sqlx"

	"github.com/eleven-am/taskboard/internal/orm"
)

// Drift lists schema objects the embedded migrations create but the live
// database lacks.
type Drift struct {
	MissingTables  []string
	MissingColumns []string
	MissingIndexes []string
}

func (d *Drift) Empty() bool {
	return len(d.MissingTables) == 0 && len(d.MissingColumns) == 0 && len(d.MissingIndexes) == 0
}

func (d *Drift) String() string {
	if d.Empty() {
		return "schema matches"
	}
	var parts []string
	if len(d.MissingTables) > 0 {
		parts = append(parts, "missing tables: "+strings.Join(d.MissingTables, ", "))
	}
	if len(d.MissingColumns) > 0 {
		parts = append(parts, "missing columns: "+strings.Join(d.MissingColumns, ", "))
	}
	if len(d.MissingIndexes) > 0 {
		parts = append(parts, "missing indexes: "+strings.Join(d.MissingIndexes, ", "))
	}
	return strings.Join(parts, "; ")
}

func openAtlas(db *sqlx.DB, dialect orm.Dialect) (migrate.Driver, error) {
	if dialect == orm.SQLite {
		return sqlite.Open(db)
	}
	return postgres.Open(db)
}

func inspectSchema(ctx context.Context, db *sqlx.DB, dialect orm.Dialect) (*schema.Schema, error) {
	drv, err := openAtlas(db, dialect)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s driver: %w", dialect, err)
	}
	s, err := drv.InspectSchema(ctx, "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect schema: %w", err)
	}
	return s, nil
}

// expectedSchema materialises the embedded migrations in a scratch
// in-memory SQLite database and inspects the result. Object names are the
// same for every dialect.
func expectedSchema(ctx context.Context) (*schema.Schema, error) {
	scratch, err := orm.NewDBConfig(orm.SQLite, ":memory:").Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("open scratch database: %w", err)
	}
	defer scratch.Close()

	if _, err := New(scratch, orm.SQLite).Migrate(ctx); err != nil {
		return nil, fmt.Errorf("build reference schema: %w", err)
	}
	return inspectSchema(ctx, scratch, orm.SQLite)
}

// Inspect compares the live schema against the embedded migrations.
func Inspect(ctx context.Context, db *sqlx.DB, dialect orm.Dialect) (*Drift, error) {
	live, err := inspectSchema(ctx, db, dialect)
	if err != nil {
		return nil, err
	}
	want, err := expectedSchema(ctx)
	if err != nil {
		return nil, err
	}
	return compareSchemas(want, live), nil
}

func compareSchemas(want, live *schema.Schema) *Drift {
	drift := &Drift{}
	for _, wt := range want.Tables {
		lt, ok := live.Table(wt.Name)
		if !ok {
			drift.MissingTables = append(drift.MissingTables, wt.Name)
			continue
		}
		for _, c := range wt.Columns {
			if _, ok := lt.Column(c.Name); !ok {
				drift.MissingColumns = append(drift.MissingColumns, wt.Name+"."+c.Name)
			}
		}
		for _, idx := range wt.Indexes {
			if strings.HasPrefix(idx.Name, "sqlite_autoindex") {
				continue
			}
			if _, ok := lt.Index(idx.Name); !ok {
				drift.MissingIndexes = append(drift.MissingIndexes, idx.Name)
			}
		}
	}
	sort.Strings(drift.MissingTables)
	sort.Strings(drift.MissingColumns)
	sort.Strings(drift.MissingIndexes)
	return drift
}
