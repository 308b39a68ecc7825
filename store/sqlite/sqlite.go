/*
Package sqlite provides a SQLite-backed attendance record store.

PURPOSE:
  Holds what the classification engine reads and what it may write back:
  employee metadata, uploaded day marks, the casual leave ledger and a
  record of each processing run. Classified days themselves are never
  stored; they are recomputed from the marks.

INTERFACES IMPLEMENTED:
  generic.Store: Casual leave ledger persistence

KEY TABLES:
  employees:     Employee metadata (organization, category, joining date)
  day_marks:     One raw mark per employee per day (upsert on re-upload)
  transactions:  Append-only casual leave ledger
  runs:          Processing run log

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE is ever issued against transactions.

CONCURRENCY:
  Uses sync.RWMutex around the connection; WAL mode lets readers proceed
  while a single writer commits.

USAGE:
  store, err := sqlite.New("./data/attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  batch, err := store.LoadBatch(ctx, window)

SEE ALSO:
  - generic/store.go: Interface definitions
  - attendance/processor.go: Consumes the Batch
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// each connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		department TEXT NOT NULL DEFAULT '',
		organization TEXT NOT NULL,
		category TEXT NOT NULL,
		joining_date TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_department
		ON employees(department);

	CREATE TABLE IF NOT EXISTS day_marks (
		employee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		code TEXT,
		in_time TEXT,
		out_time TEXT,
		uploaded_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, date)
	);

	CREATE INDEX IF NOT EXISTS idx_day_marks_date
		ON day_marks(date);

	-- Casual leave ledger (append-only)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		entity_id TEXT NOT NULL,
		policy_id TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		effective_at TEXT NOT NULL,
		delta_value TEXT NOT NULL,
		delta_unit TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		reference_id TEXT,
		reason TEXT,
		idempotency_key TEXT UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_entity_policy_date
		ON transactions(entity_id, policy_id, effective_at);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		employees INTEGER NOT NULL,
		succeeded INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		persist INTEGER NOT NULL DEFAULT 0,
		persisted INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_period
		ON runs(period_start, period_end, persist);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEES
// =============================================================================

// SaveEmployee inserts or replaces an employee's metadata.
func (s *Store) SaveEmployee(ctx context.Context, emp attendance.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, name, department, organization, category, joining_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			department = excluded.department,
			organization = excluded.organization,
			category = excluded.category,
			joining_date = excluded.joining_date
	`

	_, err := s.db.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.Department, emp.Organization, emp.Category,
		nullDate(emp.JoiningDate),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetEmployee returns generic.ErrEntityNotFound when id is unknown.
func (s *Store) GetEmployee(ctx context.Context, id generic.EntityID) (attendance.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, department, organization, category, joining_date FROM employees WHERE id = ?", id)
	emp, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return attendance.Employee{}, fmt.Errorf("%w: employee %s", generic.ErrEntityNotFound, id)
	}
	return emp, err
}

// ListEmployees returns all employees ordered by ID.
func (s *Store) ListEmployees(ctx context.Context) ([]attendance.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listEmployees(ctx)
}

func (s *Store) listEmployees(ctx context.Context) ([]attendance.Employee, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, department, organization, category, joining_date FROM employees ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []attendance.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (attendance.Employee, error) {
	var (
		emp         attendance.Employee
		joiningDate sql.NullString
	)
	if err := row.Scan(&emp.ID, &emp.Name, &emp.Department, &emp.Organization, &emp.Category, &joiningDate); err != nil {
		return attendance.Employee{}, err
	}
	if joiningDate.Valid && joiningDate.String != "" {
		tp, err := generic.ParseTimePoint(joiningDate.String)
		if err != nil {
			return attendance.Employee{}, fmt.Errorf("employee %s: %w", emp.ID, err)
		}
		emp.JoiningDate = &tp
	}
	return emp, nil
}

// =============================================================================
// DAY MARKS
// =============================================================================

// SaveMarks upserts marks atomically; a re-uploaded day replaces the old one.
func (s *Store) SaveMarks(ctx context.Context, marks []attendance.RawDayMark) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	query := `
		INSERT INTO day_marks (employee_id, date, status, code, in_time, out_time, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, date) DO UPDATE SET
			status = excluded.status,
			code = excluded.code,
			in_time = excluded.in_time,
			out_time = excluded.out_time,
			uploaded_at = excluded.uploaded_at
	`
	now := time.Now().UTC().Format(time.RFC3339)
	for _, m := range marks {
		if _, err := sqlTx.ExecContext(ctx, query,
			m.EmployeeID, m.Date.String(), m.Status,
			nullString(m.Code), nullString(m.InTime), nullString(m.OutTime), now,
		); err != nil {
			return fmt.Errorf("failed to save mark %s/%s: %w", m.EmployeeID, m.Date, err)
		}
	}
	return sqlTx.Commit()
}

// LoadMarks returns an employee's marks in window, oldest first.
func (s *Store) LoadMarks(ctx context.Context, employeeID generic.EntityID, window generic.Period) ([]attendance.RawDayMark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT employee_id, date, status, code, in_time, out_time
		FROM day_marks
		WHERE employee_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`
	return s.queryMarks(ctx, query, employeeID, window.Start.String(), window.End.String())
}

func (s *Store) queryMarks(ctx context.Context, query string, args ...any) ([]attendance.RawDayMark, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query marks: %w", err)
	}
	defer rows.Close()

	var marks []attendance.RawDayMark
	for rows.Next() {
		var (
			m                     attendance.RawDayMark
			date                  string
			code, inTime, outTime sql.NullString
		)
		if err := rows.Scan(&m.EmployeeID, &date, &m.Status, &code, &inTime, &outTime); err != nil {
			return nil, fmt.Errorf("failed to scan mark: %w", err)
		}
		if m.Date, err = generic.ParseTimePoint(date); err != nil {
			return nil, err
		}
		m.Code, m.InTime, m.OutTime = code.String, inTime.String, outTime.String
		marks = append(marks, m)
	}
	return marks, rows.Err()
}

// LoadBatch materializes every employee with at least one mark in window,
// plus their marks, ready for attendance.Processor.
func (s *Store) LoadBatch(ctx context.Context, window generic.Period) (attendance.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batch := attendance.Batch{
		Employees: make(map[generic.EntityID]attendance.Employee),
		Marks:     make(map[generic.EntityID][]attendance.RawDayMark),
	}

	marks, err := s.queryMarks(ctx, `
		SELECT employee_id, date, status, code, in_time, out_time
		FROM day_marks
		WHERE date >= ? AND date <= ?
		ORDER BY employee_id ASC, date ASC
	`, window.Start.String(), window.End.String())
	if err != nil {
		return batch, err
	}
	for _, m := range marks {
		batch.Marks[m.EmployeeID] = append(batch.Marks[m.EmployeeID], m)
	}

	employees, err := s.listEmployees(ctx)
	if err != nil {
		return batch, err
	}
	for _, emp := range employees {
		if _, ok := batch.Marks[emp.ID]; ok {
			batch.Employees[emp.ID] = emp
		}
	}
	return batch, nil
}

// =============================================================================
// TRANSACTION STORE (generic.Store interface)
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Append adds a transaction to the ledger.
func (s *Store) Append(ctx context.Context, tx generic.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendTx(ctx, s.db, tx)
}

func (s *Store) appendTx(ctx context.Context, db execer, tx generic.Transaction) error {
	query := `
		INSERT INTO transactions
		(id, entity_id, policy_id, resource_type, effective_at, delta_value, delta_unit,
		 tx_type, reference_id, reason, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	resourceID := ""
	if tx.ResourceType != nil {
		resourceID = tx.ResourceType.ResourceID()
	}

	_, err := db.ExecContext(ctx, query,
		tx.ID,
		tx.EntityID,
		tx.PolicyID,
		resourceID,
		tx.EffectiveAt.String(),
		tx.Delta.Value.String(),
		tx.Delta.Unit,
		tx.Type,
		tx.ReferenceID,
		tx.Reason,
		nullString(tx.IdempotencyKey),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// AppendBatch adds multiple transactions atomically.
func (s *Store) AppendBatch(ctx context.Context, txs []generic.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idempotencyKeys := make(map[string]bool)
	for _, tx := range txs {
		if tx.IdempotencyKey != "" {
			if idempotencyKeys[tx.IdempotencyKey] {
				return generic.ErrDuplicateIdempotencyKey
			}
			idempotencyKeys[tx.IdempotencyKey] = true
		}
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, tx := range txs {
		if err := s.appendTx(ctx, sqlTx, tx); err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

const transactionColumns = `id, entity_id, policy_id, resource_type, effective_at, delta_value, delta_unit,
	tx_type, reference_id, reason, idempotency_key, created_at`

// Load returns all transactions for an entity+policy.
func (s *Store) Load(ctx context.Context, entityID generic.EntityID, policyID generic.PolicyID) ([]generic.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE entity_id = ? AND policy_id = ?
		ORDER BY effective_at ASC, created_at ASC`
	return s.queryTransactions(ctx, query, entityID, policyID)
}

// LoadRange returns transactions effective in [from, to].
func (s *Store) LoadRange(ctx context.Context, entityID generic.EntityID, policyID generic.PolicyID, from, to generic.TimePoint) ([]generic.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE entity_id = ? AND policy_id = ?
		  AND effective_at >= ? AND effective_at <= ?
		ORDER BY effective_at ASC, created_at ASC`
	return s.queryTransactions(ctx, query, entityID, policyID, from.String(), to.String())
}

// Exists checks if an idempotency key exists.
func (s *Store) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM transactions WHERE idempotency_key = ?",
		idempotencyKey,
	).Scan(&count)
	return count > 0, err
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]generic.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []generic.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

func scanTransaction(rows *sql.Rows) (generic.Transaction, error) {
	var (
		tx             generic.Transaction
		resourceTypeID string
		effectiveAt    string
		deltaValue     string
		deltaUnit      string
		referenceID    sql.NullString
		reason         sql.NullString
		idempotencyKey sql.NullString
		createdAt      string
	)

	err := rows.Scan(
		&tx.ID, &tx.EntityID, &tx.PolicyID, &resourceTypeID,
		&effectiveAt, &deltaValue, &deltaUnit, &tx.Type,
		&referenceID, &reason, &idempotencyKey, &createdAt,
	)
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.ResourceType = generic.GetOrCreateResource(resourceTypeID)
	if tx.EffectiveAt, err = generic.ParseTimePoint(effectiveAt); err != nil {
		return tx, err
	}
	value, err := decimal.NewFromString(deltaValue)
	if err != nil {
		return tx, fmt.Errorf("transaction %s: bad delta %q: %w", tx.ID, deltaValue, err)
	}
	tx.Delta = generic.Amount{Value: value, Unit: generic.Unit(deltaUnit)}
	tx.ReferenceID = referenceID.String
	tx.Reason = reason.String
	tx.IdempotencyKey = idempotencyKey.String
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		tx.CreatedAt = generic.FromTime(t)
	}
	return tx, nil
}

// =============================================================================
// RUNS
// =============================================================================

// Run records one processing pass.
type Run struct {
	ID        string
	Period    generic.Period
	Employees int
	Succeeded int
	Failed    int
	Persist   bool // consumption was recorded in the ledger
	Persisted int  // ledger transactions newly written
	CreatedAt time.Time
}

func (s *Store) SaveRun(ctx context.Context, r Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, period_start, period_end, employees, succeeded, failed, persist, persisted, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Period.Start.String(), r.Period.End.String(),
		r.Employees, r.Succeeded, r.Failed, r.Persist, r.Persisted, r.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

// PersistedRunExists reports whether a run covering exactly window recorded
// its consumption in the ledger. Preview runs do not count.
func (s *Store) PersistedRunExists(ctx context.Context, window generic.Period) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM runs WHERE period_start = ? AND period_end = ? AND persist = 1",
		window.Start.String(), window.End.String(),
	).Scan(&count)
	return count > 0, err
}

// ListRuns returns runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, period_start, period_end, employees, succeeded, failed, persist, persisted, created_at
		FROM runs ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                     Run
			start, end, createdAt string
		)
		if err := rows.Scan(&r.ID, &start, &end, &r.Employees, &r.Succeeded, &r.Failed, &r.Persist, &r.Persisted, &createdAt); err != nil {
			return nil, err
		}
		if r.Period.Start, err = generic.ParseTimePoint(start); err != nil {
			return nil, err
		}
		if r.Period.End, err = generic.ParseTimePoint(end); err != nil {
			return nil, err
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"transactions", "day_marks", "runs", "employees"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(tp *generic.TimePoint) sql.NullString {
	if tp == nil || tp.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: tp.String(), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ generic.Store = (*Store)(nil)
