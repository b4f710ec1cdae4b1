package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"budgetapp/internal/core"
	"budgetapp/internal/ledger"

	_ "modernc.org/sqlite"
)

const busyTimeoutMillis = 5000

type SQLiteRepository struct {
	db *sql.DB
}

var _ ledger.Repository = (*SQLiteRepository)(nil)

// DSN builds the connection string for dbPath. Write transactions take the
// database lock on BEGIN so concurrent materializers serialize instead of
// failing at commit.
func DSN(dbPath string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)&_txlock=immediate",
		dbPath, busyTimeoutMillis)
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	version, dirty, err := SchemaVersion(dsn)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		db.Close()
		return nil, fmt.Errorf("schema version %d is dirty; fix the database and retry", version)
	}
	slog.Debug("SQLite schema ready", "path", dbPath, "schema_version", version)

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func nullableDate(d core.Date) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, c.Name)
	if isUniqueConstraintError(err) {
		return core.Category{}, ledger.ErrDuplicateCategory
	}
	if err != nil {
		return core.Category{}, ledger.Fail("create category", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return core.Category{}, ledger.Fail("create category", err)
	}
	return c, nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	id, err := insertExpense(ctx, r.db, e)
	if err != nil {
		return core.Expense{}, err
	}
	e.ID = id

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"name", e.Name,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.String())
	return e, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertExpense(ctx context.Context, x execer, e core.Expense) (int64, error) {
	res, err := x.ExecContext(ctx,
		`INSERT INTO expenses (name, amount_cents, date, category_id) VALUES (?, ?, ?, ?)`,
		e.Name, e.Amount.Cents, e.Date.String(), e.CategoryID)
	if isForeignKeyError(err) {
		return 0, fmt.Errorf("category %d: %w", e.CategoryID, ledger.ErrNotFound)
	}
	if err != nil {
		return 0, ledger.Fail("insert expense", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, ledger.Fail("insert expense", err)
	}
	return id, nil
}

func (r *SQLiteRepository) CreateIncome(ctx context.Context, i core.Income) (core.Income, error) {
	if err := i.Validate(); err != nil {
		return core.Income{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO incomes (source, amount_cents, date) VALUES (?, ?, ?)`,
		i.Source, i.Amount.Cents, i.Date.String())
	if err != nil {
		return core.Income{}, ledger.Fail("create income", err)
	}
	i.ID, err = res.LastInsertId()
	if err != nil {
		return core.Income{}, ledger.Fail("create income", err)
	}
	return i, nil
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (month, amount_cents, category_id) VALUES (?, ?, ?)`,
		b.Month.String(), b.Amount.Cents, b.CategoryID)
	switch {
	case isUniqueConstraintError(err):
		return core.Budget{}, ledger.ErrDuplicateBudget
	case isForeignKeyError(err):
		return core.Budget{}, fmt.Errorf("category %d: %w", b.CategoryID, ledger.ErrNotFound)
	case err != nil:
		return core.Budget{}, ledger.Fail("create budget", err)
	}
	b.ID, err = res.LastInsertId()
	if err != nil {
		return core.Budget{}, ledger.Fail("create budget", err)
	}
	return b, nil
}

func (r *SQLiteRepository) CreateRecurringTemplate(ctx context.Context, t core.RecurringTemplate) (core.RecurringTemplate, error) {
	if err := t.Validate(); err != nil {
		return core.RecurringTemplate{}, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_templates (name, amount_cents, interval, next_occurrence, end_date, active, category_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Name, t.Amount.Cents, string(t.Interval), t.NextOccurrence.String(), nullableDate(t.EndDate), t.Active, t.CategoryID)
	if isForeignKeyError(err) {
		return core.RecurringTemplate{}, fmt.Errorf("category %d: %w", t.CategoryID, ledger.ErrNotFound)
	}
	if err != nil {
		return core.RecurringTemplate{}, ledger.Fail("create recurring template", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return core.RecurringTemplate{}, ledger.Fail("create recurring template", err)
	}
	return t, nil
}

const templateColumns = `id, name, amount_cents, interval, next_occurrence, end_date, active, category_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row scanner) (core.RecurringTemplate, error) {
	var (
		t        core.RecurringTemplate
		interval string
		next     string
		end      sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Amount.Cents, &interval, &next, &end, &t.Active, &t.CategoryID); err != nil {
		return core.RecurringTemplate{}, err
	}
	t.Interval = core.Interval(interval)

	var err error
	if t.NextOccurrence, err = core.ParseDate(next); err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("template %d next occurrence: %w", t.ID, err)
	}
	if end.Valid {
		if t.EndDate, err = core.ParseDate(end.String); err != nil {
			return core.RecurringTemplate{}, fmt.Errorf("template %d end date: %w", t.ID, err)
		}
	}
	return t, nil
}

func (r *SQLiteRepository) GetRecurringTemplate(ctx context.Context, id int64) (core.RecurringTemplate, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM recurring_templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringTemplate{}, fmt.Errorf("recurring template %d: %w", id, ledger.ErrNotFound)
	}
	if err != nil {
		return core.RecurringTemplate{}, ledger.Fail("get recurring template", err)
	}
	return t, nil
}

func (r *SQLiteRepository) ListDueRecurringTemplates(ctx context.Context, asOf time.Time) ([]core.RecurringTemplate, error) {
	day := core.DateOf(asOf).String()
	out, err := r.queryTemplates(ctx,
		`WHERE active = 1 AND next_occurrence <= ? AND (end_date IS NULL OR end_date >= ?)`, day, day)
	if err != nil {
		return nil, ledger.Fail("list due recurring templates", err)
	}
	return out, nil
}

func (r *SQLiteRepository) ListRecurringTemplates(ctx context.Context) ([]core.RecurringTemplate, error) {
	out, err := r.queryTemplates(ctx, "")
	if err != nil {
		return nil, ledger.Fail("list recurring templates", err)
	}
	return out, nil
}

func (r *SQLiteRepository) queryTemplates(ctx context.Context, where string, args ...any) ([]core.RecurringTemplate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+templateColumns+` FROM recurring_templates `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.RecurringTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SetRecurringTemplateActive pauses or resumes a template. The schedule is
// left untouched, so a resumed template catches up from where it stopped.
func (r *SQLiteRepository) SetRecurringTemplateActive(ctx context.Context, id int64, active bool) (core.RecurringTemplate, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_templates SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return core.RecurringTemplate{}, ledger.Fail("set recurring template active", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.RecurringTemplate{}, ledger.Fail("set recurring template active", err)
	}
	if n == 0 {
		return core.RecurringTemplate{}, fmt.Errorf("recurring template %d: %w", id, ledger.ErrNotFound)
	}
	return r.GetRecurringTemplate(ctx, id)
}

// SaveMaterializationBatch writes the batch in one transaction. Each advance
// is a compare-and-set on next_occurrence; if any affects no row the whole
// transaction is rolled back.
func (r *SQLiteRepository) SaveMaterializationBatch(ctx context.Context, batch ledger.MaterializationBatch) error {
	if batch.IsEmpty() {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Fail("begin materialization", err)
	}
	defer tx.Rollback()

	for _, a := range batch.Advances {
		res, err := tx.ExecContext(ctx,
			`UPDATE recurring_templates SET next_occurrence = ? WHERE id = ? AND next_occurrence = ?`,
			a.To.String(), a.TemplateID, a.From.String())
		if err != nil {
			return ledger.Fail("advance recurring template", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return ledger.Fail("advance recurring template", err)
		}
		if n == 0 {
			return fmt.Errorf("recurring template %d: %w", a.TemplateID, ledger.ErrConcurrentModification)
		}
	}

	for _, e := range batch.Expenses {
		if err := e.Validate(); err != nil {
			return err
		}
		if _, err := insertExpense(ctx, tx, e); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return ledger.Fail("commit materialization", err)
	}

	slog.DebugContext(ctx, "Materialization batch committed",
		"expenses", len(batch.Expenses),
		"advances", len(batch.Advances))
	return nil
}

func (r *SQLiteRepository) SumAmount(ctx context.Context, kind ledger.EntryKind, rg core.DateRange, categoryID *int64) (core.Money, error) {
	var (
		query string
		args  = []any{rg.From.String(), rg.To.String()}
	)
	switch kind {
	case ledger.KindExpense:
		query = `SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE date >= ? AND date < ?`
		if categoryID != nil {
			query += ` AND category_id = ?`
			args = append(args, *categoryID)
		}
	case ledger.KindIncome:
		query = `SELECT COALESCE(SUM(amount_cents), 0) FROM incomes WHERE date >= ? AND date < ?`
	default:
		return core.Zero, fmt.Errorf("sum amount: unknown entry kind %d", kind)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return core.Zero, ledger.Fail("sum "+kind.String(), err)
	}
	return core.Cents(total), nil
}

func (r *SQLiteRepository) FindBudget(ctx context.Context, categoryID int64, month core.Month) (core.Budget, bool, error) {
	b := core.Budget{CategoryID: categoryID, Month: month}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, amount_cents FROM budgets WHERE category_id = ? AND month = ?`,
		categoryID, month.String()).Scan(&b.ID, &b.Amount.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, false, nil
	}
	if err != nil {
		return core.Budget{}, false, ledger.Fail("find budget", err)
	}
	return b, true, nil
}

func (r *SQLiteRepository) ListCategoriesOrderedByName(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name FROM categories ORDER BY name COLLATE NOCASE, name, id`)
	if err != nil {
		return nil, ledger.Fail("list categories", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, ledger.Fail("list categories", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, ledger.Fail("list categories", err)
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// expenseWhere turns f into a WHERE clause. Bounds are inclusive and zero
// values are left out.
func expenseWhere(f ledger.ExpenseFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if !f.From.IsZero() {
		conds = append(conds, "date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		conds = append(conds, "date <= ?")
		args = append(args, f.To.String())
	}
	if f.CategoryID > 0 {
		conds = append(conds, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.Min.IsPositive() {
		conds = append(conds, "amount_cents >= ?")
		args = append(args, f.Min.Cents)
	}
	if f.Max.IsPositive() {
		conds = append(conds, "amount_cents <= ?")
		args = append(args, f.Max.Cents)
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		conds = append(conds, `name LIKE '%' || ? || '%' ESCAPE '\'`)
		args = append(args, likeEscaper.Replace(q))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// ListExpenses returns matching expenses, newest first.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, f ledger.ExpenseFilter) ([]core.Expense, error) {
	where, args := expenseWhere(f)
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, amount_cents, date, category_id FROM expenses `+where+`
		 ORDER BY date DESC, id DESC`, args...)
	if err != nil {
		return nil, ledger.Fail("list expenses", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e    core.Expense
			date string
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Amount.Cents, &date, &e.CategoryID); err != nil {
			return nil, ledger.Fail("list expenses", err)
		}
		if e.Date, err = core.ParseDate(date); err != nil {
			return nil, ledger.Fail("list expenses", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, ledger.Fail("list expenses", err)
	}
	return out, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, month core.Month) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, category_id, amount_cents FROM budgets WHERE month = ? ORDER BY category_id`,
		month.String())
	if err != nil {
		return nil, ledger.Fail("list budgets", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b := core.Budget{Month: month}
		if err := rows.Scan(&b.ID, &b.CategoryID, &b.Amount.Cents); err != nil {
			return nil, ledger.Fail("list budgets", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, ledger.Fail("list budgets", err)
	}
	return out, nil
}
