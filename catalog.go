package sheetql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// OpenDatabase opens the backing SQLite database. Use ":memory:" for an
// in-memory store. The connection pool is pinned to one connection so an
// in-memory database is not silently duplicated per connection.
func OpenDatabase(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// Builder loads workbooks into the relational store and produces catalogs.
//
// Builds are single-flight: a Build that arrives while another is in progress
// blocks until the in-flight build finishes and returns that build's catalog,
// so DDL from concurrent rebuilds can never interleave.
type Builder struct {
	db     *sql.DB
	logger *slog.Logger
	group  singleflight.Group
}

// NewBuilder creates a Builder writing to db.
func NewBuilder(db *sql.DB, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{db: db, logger: logger}
}

// Build loads every sheet of wb into its own table and returns the new
// catalog. Each table is dropped, created and populated inside one
// transaction, so readers only ever observe a table fully absent or fully
// present. A sheet that fails to load is recorded in Catalog.SheetErrors and
// does not block the remaining sheets.
func (b *Builder) Build(ctx context.Context, wb *Workbook) (*Catalog, error) {
	v, err, shared := b.group.Do("catalog", func() (any, error) {
		return b.build(ctx, wb)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		b.logger.Debug("catalog build coalesced with in-flight build")
	}
	return v.(*Catalog), nil
}

func (b *Builder) build(ctx context.Context, wb *Workbook) (*Catalog, error) {
	if wb == nil || len(wb.Sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}

	catalog := &Catalog{SheetErrors: make(map[string]error)}
	taken := make(map[string]bool)

	for _, sheet := range wb.Sheets {
		def, rows := LoadSheet(sheet)
		if len(def.Columns) == 0 {
			catalog.SheetErrors[sheet.Name] = fmt.Errorf("%w: sheet %q has no usable columns", ErrIngestFailure, sheet.Name)
			b.logger.Warn("skipping sheet", "sheet", sheet.Name, "reason", "no usable columns")
			continue
		}

		name, err := uniqueTableName(sheet.Name, taken)
		if err != nil {
			catalog.SheetErrors[sheet.Name] = err
			b.logger.Warn("skipping sheet", "sheet", sheet.Name, "err", err)
			continue
		}
		def.Name = name

		if err := b.loadTable(ctx, def, rows); err != nil {
			catalog.SheetErrors[sheet.Name] = fmt.Errorf("%w: sheet %q: %w", ErrIngestFailure, sheet.Name, err)
			b.logger.Error("table load failed", "table", name, "sheet", sheet.Name, "err", err)
			continue
		}
		taken[name] = true

		b.logger.Info("table loaded",
			"table", name, "sheet", sheet.Name,
			"columns", len(def.Columns), "rows", def.RowCount)
		catalog.Tables = append(catalog.Tables, def)
	}

	if err := b.dropStaleTables(ctx, taken); err != nil {
		return nil, fmt.Errorf("%w: dropping stale tables: %w", ErrIngestFailure, err)
	}

	catalog.BaseTable = selectBaseTable(catalog.Tables)
	return catalog, nil
}

// dropStaleTables removes tables left over from a previous build whose
// sheets are gone or renamed, so the store only ever holds the current
// catalog's tables.
func (b *Builder) dropStaleTables(ctx context.Context, taken map[string]bool) error {
	rows, err := b.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		if !taken[name] {
			stale = append(stale, name)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, name := range stale {
		if _, err := b.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS "%s"`, name)); err != nil {
			return err
		}
		b.logger.Info("stale table dropped", "table", name)
	}
	return nil
}

// loadTable recreates one table and bulk-inserts its rows inside a single
// transaction.
func (b *Builder) loadTable(ctx context.Context, def TableDef, rows [][]any) (err error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS "%s"`, def.Name)); err != nil {
		return fmt.Errorf("drop: %w", err)
	}

	cols := make([]string, len(def.Columns))
	for i, col := range def.Columns {
		cols[i] = fmt.Sprintf(`"%s" %s`, col.Name, col.Type.SQLType())
	}
	createStmt := fmt.Sprintf(`CREATE TABLE "%s" (%s)`, def.Name, strings.Join(cols, ", "))
	if _, err = tx.ExecContext(ctx, createStmt); err != nil {
		return fmt.Errorf("create: %w", err)
	}

	if len(rows) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(def.Columns)), ", ")
		insert := fmt.Sprintf(`INSERT INTO "%s" VALUES (%s)`, def.Name, placeholders)
		stmt, prepErr := tx.PrepareContext(ctx, insert)
		if prepErr != nil {
			err = fmt.Errorf("prepare: %w", prepErr)
			return err
		}
		defer func() {
			_ = stmt.Close()
		}()
		for _, row := range rows {
			if _, err = stmt.ExecContext(ctx, row...); err != nil {
				return fmt.Errorf("insert: %w", err)
			}
		}
	}

	return tx.Commit()
}

// uniqueTableName assigns a catalog-unique table name for sheetName,
// appending a numeric suffix on collision.
func uniqueTableName(sheetName string, taken map[string]bool) (string, error) {
	base := safeTableName(sheetName)
	if !taken[base] {
		return base, nil
	}
	for i := 2; i <= maxNameCollisions; i++ {
		suffix := fmt.Sprintf("_%d", i)
		candidate := base
		if len(candidate)+len(suffix) > maxIdentifierLen {
			candidate = candidate[:maxIdentifierLen-len(suffix)]
		}
		candidate += suffix
		if !taken[candidate] {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: cannot disambiguate table name for sheet %q", ErrSchemaConflict, sheetName)
}

// selectBaseTable picks the table with the most rows, first-encountered on
// ties. Empty when no table has any rows.
func selectBaseTable(tables []TableDef) string {
	best := ""
	bestRows := 0
	for _, t := range tables {
		if t.RowCount > bestRows {
			best = t.Name
			bestRows = t.RowCount
		}
	}
	return best
}
