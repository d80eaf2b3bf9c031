package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pasarindo/payments/internal/core/domain"

	// Register the pure-Go SQLite driver. No CGO requirement keeps container
	// builds simple.
	_ "modernc.org/sqlite"
)

// schema is the DDL executed once on startup. One row per invoice; the row is
// updated in place as authoritative status observations arrive.
// Timestamps are stored as RFC3339 TEXT, the usual SQLite idiom.
const schema = `
CREATE TABLE IF NOT EXISTS transactions (
    invoice_number   TEXT PRIMARY KEY,
    order_id         TEXT NOT NULL,
    amount_minor     INTEGER NOT NULL,
    status           TEXT NOT NULL,
    created_at       TEXT NOT NULL,
    last_checked_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_order_id ON transactions(order_id);
`

// SQLiteStore is the SQLite-backed TransactionStore.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
// WAL mode is enabled so status updates never block concurrent reads from the
// callback handler.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the database connection. Call it with defer in main().
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save records a newly issued invoice. An existing row is left untouched so
// that initiation retries never reset an already observed status.
func (s *SQLiteStore) Save(ctx context.Context, rec domain.TransactionRecord) error {
	const q = `
		INSERT INTO transactions
			(invoice_number, order_id, amount_minor, status, created_at, last_checked_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(invoice_number) DO NOTHING`

	_, err := s.db.ExecContext(ctx, q,
		rec.InvoiceNumber,
		rec.OrderID,
		rec.AmountMinorUnits,
		string(rec.Status),
		rec.CreatedAt.UTC().Format(time.RFC3339),
		rec.LastCheckedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save transaction %q: %w", rec.InvoiceNumber, err)
	}
	return nil
}

// Get returns the record for an invoice number.
func (s *SQLiteStore) Get(ctx context.Context, invoiceNumber string) (*domain.TransactionRecord, error) {
	const q = `
		SELECT invoice_number, order_id, amount_minor, status, created_at, last_checked_at
		FROM   transactions
		WHERE  invoice_number = ?`

	row := s.db.QueryRowContext(ctx, q, invoiceNumber)

	var rec domain.TransactionRecord
	var status, createdAt, lastCheckedAt string
	err := row.Scan(&rec.InvoiceNumber, &rec.OrderID, &rec.AmountMinorUnits,
		&status, &createdAt, &lastCheckedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get transaction %q: %w", invoiceNumber, err)
	}

	rec.Status = domain.TransactionStatus(status)
	if rec.CreatedAt, err = parseRFC3339(createdAt); err != nil {
		return nil, err
	}
	if rec.LastCheckedAt, err = parseRFC3339(lastCheckedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateStatus applies an authoritative status observation inside a
// transaction so the current-state check and the write are atomic.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, invoiceNumber string, status domain.TransactionStatus, checkedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin update for %q: %w", invoiceNumber, err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM transactions WHERE invoice_number = ?`, invoiceNumber).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrInvoiceNotFound
	}
	if err != nil {
		return fmt.Errorf("sqlite: read status for %q: %w", invoiceNumber, err)
	}

	if !domain.CanTransition(domain.TransactionStatus(current), status) {
		return domain.ErrInvalidTransition
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE transactions SET status = ?, last_checked_at = ? WHERE invoice_number = ?`,
		string(status), checkedAt.UTC().Format(time.RFC3339), invoiceNumber)
	if err != nil {
		return fmt.Errorf("sqlite: update status for %q: %w", invoiceNumber, err)
	}

	return tx.Commit()
}

// parseRFC3339 parses the timestamp strings stored in SQLite.
func parseRFC3339(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}
