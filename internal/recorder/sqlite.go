package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"OHLCPipeline/internal/model"
)

const dateLayout = time.DateTime

// SQLiteStore persists series to a SQLite database file. A connection is
// opened and closed around each operation.
type SQLiteStore struct {
	Path   string
	Logger *zap.Logger
}

// NewSQLiteStore creates a store backed by the database file at path.
func NewSQLiteStore(path string, logger *zap.Logger) *SQLiteStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLiteStore{Path: path, Logger: logger.Named("store")}
}

func (r *SQLiteStore) Name() string { return "sqlite" }

func (r *SQLiteStore) open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", r.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	return db, nil
}

// Reset deletes the database file and its rollback journal.
func (r *SQLiteStore) Reset() error {
	for _, p := range []string{r.Path, r.Path + "-journal"} {
		err := os.Remove(p)
		switch {
		case err == nil:
			r.Logger.Info("removed existing database file", zap.String("path", p))
		case errors.Is(err, os.ErrNotExist):
		default:
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}

// schemaColumns lists the value columns of table in storage order: OHLCV,
// partition columns, every known indicator, then any extra series columns.
func schemaColumns(s *model.Series) []string {
	cols := append([]string{}, model.OHLCVColumns...)
	cols = append(cols, model.ColYear, model.ColMonth)
	cols = append(cols, model.IndicatorColumns...)
	known := make(map[string]bool, len(cols))
	for _, c := range cols {
		known[strings.ToLower(c)] = true
	}
	for _, c := range s.Columns() {
		if !known[strings.ToLower(c)] {
			cols = append(cols, c)
			known[strings.ToLower(c)] = true
		}
	}
	return cols
}

func columnType(name string) string {
	switch name {
	case model.ColYear, model.ColMonth:
		return "INTEGER"
	default:
		return "REAL"
	}
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// migrate creates the table if absent and adds any column it lacks.
func (r *SQLiteStore) migrate(ctx context.Context, db *sql.DB, table string, cols []string) error {
	defs := []string{"date TEXT NOT NULL", "ticker TEXT NOT NULL"}
	for _, c := range cols {
		defs = append(defs, quote(c)+" "+columnType(c))
	}
	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", quote(table), strings.Join(defs, ",\n\t")),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(ticker, date)", quote("idx_"+table+"_ticker_date"), quote(table)),
	}
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("exec %q: %w", firstLine(s), err)
		}
	}

	existing, err := tableColumns(ctx, db, table)
	if err != nil {
		return err
	}
	for _, c := range cols {
		if existing[strings.ToLower(c)] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", quote(table), quote(c), columnType(c))
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("add column %s: %w", c, err)
		}
		r.Logger.Info("added column", zap.String("table", table), zap.String("column", c))
	}
	return nil
}

func tableColumns(ctx context.Context, db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quote(table)))
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		out[strings.ToLower(name)] = true
	}
	return out, rows.Err()
}

// Persist appends all rows of s in a single transaction.
func (r *SQLiteStore) Persist(ctx context.Context, s *model.Series, table string) error {
	if s.Empty() {
		r.Logger.Info("no data to store", zap.String("table", table))
		return nil
	}
	if err := checkTable(table); err != nil {
		return err
	}

	db, err := r.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	cols := schemaColumns(s)
	if err := r.migrate(ctx, db, table, cols); err != nil {
		return fmt.Errorf("migrate %s: %w", table, err)
	}

	names := []string{"date", "ticker"}
	for _, c := range cols {
		names = append(names, quote(c))
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quote(table), strings.Join(names, ", "), placeholders)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(names))
	for i := 0; i < s.Len(); i++ {
		date := s.Dates[i]
		args[0] = date.Format(dateLayout)
		args[1] = s.Tickers[i]
		for j, c := range cols {
			switch c {
			case model.ColYear:
				args[j+2] = date.Year()
			case model.ColMonth:
				args[j+2] = int(date.Month())
			default:
				args[j+2] = nullable(s.Value(c, i))
			}
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	r.Logger.Info("stored rows",
		zap.String("table", table),
		zap.String("ticker", s.Symbol()),
		zap.Int("rows", s.Len()))
	return nil
}

// Query reads rows matching f ordered by ascending date.
func (r *SQLiteStore) Query(ctx context.Context, table string, f Filter) (*model.Series, error) {
	out, err := r.query(ctx, table, f)
	if err != nil {
		return model.NewSeries(), err
	}
	r.Logger.Info("retrieved rows", zap.String("table", table), zap.Int("rows", out.Len()))
	return out, nil
}

func (r *SQLiteStore) query(ctx context.Context, table string, f Filter) (*model.Series, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	db, err := r.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	q := "SELECT * FROM " + quote(table)
	var (
		conds []string
		args  []any
	)
	if f.Ticker != "" {
		conds = append(conds, "ticker = ?")
		args = append(args, f.Ticker)
	}
	if f.Year != 0 {
		conds = append(conds, "year = ?")
		args = append(args, f.Year)
	}
	if f.Month != 0 {
		conds = append(conds, "month = ?")
		args = append(args, f.Month)
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY date, rowid"

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	out := model.NewSeries()
	for _, n := range names {
		if n != "date" && n != model.ColTicker {
			_ = out.SetColumn(n, []float64{})
		}
	}

	cells := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range cells {
		ptrs[i] = &cells[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var (
			date   time.Time
			ticker string
		)
		values := make(map[string]float64, len(names))
		for i, n := range names {
			switch n {
			case "date":
				if date, err = parseDate(cells[i]); err != nil {
					return nil, err
				}
			case model.ColTicker:
				ticker = asString(cells[i])
			default:
				values[n] = asFloat(cells[i])
			}
		}
		out.Append(date, ticker, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

func nullable(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func parseDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d.UTC(), nil
	case string, []byte:
		s := asString(d)
		for _, layout := range []string{dateLayout, time.DateOnly, time.RFC3339} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable date %q", s)
	default:
		return time.Time{}, fmt.Errorf("unexpected date type %T", v)
	}
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	default:
		return math.NaN()
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
