package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Storage provides SQLite database access for reconciliation runs and their
// matches. It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// SaveRun inserts the run row and its initial match set in one transaction.
func (s *Storage) SaveRun(run *RunRecord, matches []MatchRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM reconciliation_runs WHERE id = ?`, run.ID); err != nil {
		return err
	}

	_, err = tx.Exec(`
	INSERT INTO reconciliation_runs
	(id, threshold, total_invoices, total_bank, match_count, unmatched_invoices,
	 unmatched_bank, candidate_count, cross_product_size, total_invoice_amount_cents, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Threshold,
		run.TotalInvoices,
		run.TotalBank,
		run.MatchCount,
		run.UnmatchedInvoices,
		run.UnmatchedBank,
		run.CandidateCount,
		run.CrossProductSize,
		run.TotalInvoiceCents,
		run.CreatedAt,
	)
	if err != nil {
		return err
	}

	for i := range matches {
		if err := insertMatch(tx, &matches[i]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertMatch(tx *sql.Tx, m *MatchRecord) error {
	_, err := tx.Exec(`
	INSERT INTO reconciliation_matches
	(match_id, run_id, invoice_ref, bank_ref, invoice_description,
	 bank_description, invoice_amount_cents, bank_amount_cents, score, is_manual, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.MatchID,
		m.RunID,
		m.InvoiceRef,
		m.BankRef,
		m.InvoiceDescription,
		m.BankDescription,
		m.InvoiceAmountCents,
		m.BankAmountCents,
		m.Score,
		m.IsManual,
		m.CreatedAt,
	)
	return err
}

// GetRun retrieves a run row by id.
func (s *Storage) GetRun(runID string) (*RunRecord, error) {
	run := &RunRecord{}
	err := s.db.QueryRow(`
	SELECT id, threshold, total_invoices, total_bank, match_count, unmatched_invoices,
	       unmatched_bank, candidate_count, cross_product_size, total_invoice_amount_cents, created_at
	FROM reconciliation_runs WHERE id = ?`, runID).Scan(
		&run.ID,
		&run.Threshold,
		&run.TotalInvoices,
		&run.TotalBank,
		&run.MatchCount,
		&run.UnmatchedInvoices,
		&run.UnmatchedBank,
		&run.CandidateCount,
		&run.CrossProductSize,
		&run.TotalInvoiceCents,
		&run.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Storage) ListRuns(limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
	SELECT id, threshold, total_invoices, total_bank, match_count, unmatched_invoices,
	       unmatched_bank, candidate_count, cross_product_size, total_invoice_amount_cents, created_at
	FROM reconciliation_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		run := &RunRecord{}
		if err := rows.Scan(
			&run.ID,
			&run.Threshold,
			&run.TotalInvoices,
			&run.TotalBank,
			&run.MatchCount,
			&run.UnmatchedInvoices,
			&run.UnmatchedBank,
			&run.CandidateCount,
			&run.CrossProductSize,
			&run.TotalInvoiceCents,
			&run.CreatedAt,
		); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetMatches returns a run's matches ordered by creation time.
func (s *Storage) GetMatches(runID string) ([]MatchRecord, error) {
	rows, err := s.db.Query(`
	SELECT match_id, run_id, invoice_ref, bank_ref, invoice_description,
	       bank_description, invoice_amount_cents, bank_amount_cents, score, is_manual, created_at
	FROM reconciliation_matches WHERE run_id = ? ORDER BY created_at, invoice_ref`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []MatchRecord
	for rows.Next() {
		var m MatchRecord
		if err := rows.Scan(
			&m.MatchID,
			&m.RunID,
			&m.InvoiceRef,
			&m.BankRef,
			&m.InvoiceDescription,
			&m.BankDescription,
			&m.InvoiceAmountCents,
			&m.BankAmountCents,
			&m.Score,
			&m.IsManual,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// SaveMatch inserts one match row and bumps the run's counters.
func (s *Storage) SaveMatch(m *MatchRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertMatch(tx, m); err != nil {
		return err
	}

	res, err := tx.Exec(`
	UPDATE reconciliation_runs
	SET match_count = match_count + 1,
	    unmatched_invoices = unmatched_invoices - 1,
	    unmatched_bank = unmatched_bank - 1
	WHERE id = ?`, m.RunID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", m.RunID, ErrNotFound)
	}

	return tx.Commit()
}

// DeleteMatch removes a match row and restores the run's counters.
func (s *Storage) DeleteMatch(matchID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var runID string
	err = tx.QueryRow(
		`SELECT run_id FROM reconciliation_matches WHERE match_id = ?`, matchID,
	).Scan(&runID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("match %s: %w", matchID, ErrNotFound)
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(
		`DELETE FROM reconciliation_matches WHERE match_id = ?`, matchID,
	); err != nil {
		return err
	}

	if _, err := tx.Exec(`
	UPDATE reconciliation_runs
	SET match_count = match_count - 1,
	    unmatched_invoices = unmatched_invoices + 1,
	    unmatched_bank = unmatched_bank + 1
	WHERE id = ?`, runID); err != nil {
		return err
	}

	return tx.Commit()
}
