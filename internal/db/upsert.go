package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Upsert describes a keyed bulk write, e.g. metric observations keyed on
// id: Upsert{Table: "metrics", Columns: metricColumns, Key: []string{"id"}}.
type Upsert struct {
	Table   string
	Columns []string
	Key     []string
	// Update lists the columns overwritten on conflict. Nil means every
	// column outside Key.
	Update []string
}

func (u Upsert) validate() error {
	switch {
	case len(u.Columns) == 0:
		return eris.New("db: upsert: no columns specified")
	case len(u.Key) == 0:
		return eris.New("db: upsert: no conflict keys specified")
	}
	return nil
}

func (u Upsert) updateColumns() []string {
	if u.Update != nil {
		return u.Update
	}
	key := make(map[string]bool, len(u.Key))
	for _, k := range u.Key {
		key[k] = true
	}
	var out []string
	for _, c := range u.Columns {
		if !key[c] {
			out = append(out, c)
		}
	}
	return out
}

func (u Upsert) staging() pgx.Identifier {
	return pgx.Identifier{"_tmp_upsert_" + strings.ReplaceAll(u.Table, ".", "_")}
}

func (u Upsert) createStaging() string {
	return fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		u.staging().Sanitize(), sanitizeTable(u.Table))
}

func (u Upsert) mergeStaging() string {
	set := make([]string, 0, len(u.Columns))
	for _, c := range u.updateColumns() {
		col := pgx.Identifier{c}.Sanitize()
		set = append(set, col+" = EXCLUDED."+col)
	}
	cols := quoteAndJoin(u.Columns)
	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO UPDATE SET %s",
		sanitizeTable(u.Table), cols, cols, u.staging().Sanitize(), quoteAndJoin(u.Key), strings.Join(set, ", "))
}

// BulkUpsert stages rows in a temp table with COPY and merges them into
// u.Table in one transaction. It returns the number of rows merged.
func BulkUpsert(ctx context.Context, pool Pool, u Upsert, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := u.validate(); err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, u.createStaging()); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: stage %s", u.Table)
	}
	if _, err := tx.CopyFrom(ctx, u.staging(), u.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: copy %s", u.Table)
	}
	tag, err := tx.Exec(ctx, u.mergeStaging())
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: merge %s", u.Table)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}
	return tag.RowsAffected(), nil
}

// identifier splits an optionally schema-qualified table name.
func identifier(table string) pgx.Identifier {
	return pgx.Identifier(strings.SplitN(table, ".", 2))
}

func sanitizeTable(table string) string {
	return identifier(table).Sanitize()
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
