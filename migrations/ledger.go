package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	persistence "github.com/goliatone/go-persistence-bun"
	topgg "github.com/goliatone/go-topgg"
)

// Dialect selects one tree of the embedded vote ledger migrations.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

const ledgerRoot = "data/sql/migrations"

// Migrator is the part of a persistence client that runs SQL migrations.
type Migrator interface {
	RegisterSQLMigrations(migrations ...fs.FS) *persistence.Migrations
	Migrate(ctx context.Context) error
}

var _ Migrator = persistence.Client{}

// Step is one versioned vote ledger migration and its rollback file.
type Step struct {
	Name string
	Up   string
	Down string
}

// Ledger returns the vote ledger tree for dialect. Postgres files live at the
// root of the tree and sqlite files in their own directory. source overrides
// the embedded filesystem.
func Ledger(dialect Dialect, source ...fs.FS) (fs.FS, error) {
	root := topgg.GetMigrationsFS()
	if len(source) > 0 && source[0] != nil {
		root = source[0]
	}
	base, err := fs.Sub(root, ledgerRoot)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve %s: %w", ledgerRoot, err)
	}

	var tree fs.FS
	switch dialect {
	case DialectPostgres:
		tree = base
	case DialectSQLite:
		tree, err = fs.Sub(base, string(DialectSQLite))
		if err != nil {
			return nil, fmt.Errorf("migrations: resolve sqlite tree: %w", err)
		}
	default:
		return nil, fmt.Errorf("migrations: unsupported dialect %q", dialect)
	}

	if _, err := Steps(tree); err != nil {
		return nil, fmt.Errorf("migrations: %s ledger: %w", dialect, err)
	}
	return tree, nil
}

// Steps lists the migrations in tree by version. Every up file needs a
// matching down file.
func Steps(tree fs.FS) ([]Step, error) {
	ups, err := fs.Glob(tree, "*.up.sql")
	if err != nil {
		return nil, err
	}
	if len(ups) == 0 {
		return nil, fmt.Errorf("no *.up.sql files")
	}
	sort.Strings(ups)

	steps := make([]Step, 0, len(ups))
	for _, up := range ups {
		name := strings.TrimSuffix(up, ".up.sql")
		down := name + ".down.sql"
		if _, err := fs.Stat(tree, down); err != nil {
			return nil, fmt.Errorf("%s has no down migration: %w", name, err)
		}
		steps = append(steps, Step{Name: name, Up: up, Down: down})
	}
	return steps, nil
}

// Apply registers the ledger tree for dialect on client and runs pending
// migrations.
func Apply(ctx context.Context, client Migrator, dialect Dialect) error {
	if client == nil {
		return fmt.Errorf("migrations: persistence client is required")
	}
	tree, err := Ledger(dialect)
	if err != nil {
		return err
	}
	client.RegisterSQLMigrations(tree)
	if err := client.Migrate(ctx); err != nil {
		return fmt.Errorf("migrations: apply %s ledger: %w", dialect, err)
	}
	return nil
}
