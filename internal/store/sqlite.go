package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

var (
	ErrTestNotFound    = errors.New("test not found")
	ErrVariantNotFound = errors.New("variant not found")
	// ErrStatusConflict means a conditional status update found the test in
	// a different status than expected.
	ErrStatusConflict = errors.New("test status conflict")
	// ErrInvalidAllocation means variant traffic percentages do not sum to 100.
	ErrInvalidAllocation = errors.New("variant traffic allocations must sum to 100")
)

type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS tests (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    owner_id INTEGER NOT NULL,
    name TEXT NOT NULL,
    email_type TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'running',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tests_owner ON tests(owner_id, created_at);
CREATE INDEX IF NOT EXISTS idx_tests_status ON tests(status);

CREATE TABLE IF NOT EXISTS variants (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    test_id INTEGER NOT NULL,
    label TEXT NOT NULL,
    subject TEXT NOT NULL,
    body TEXT NOT NULL,
    traffic_allocation INTEGER NOT NULL,
    sent_count INTEGER NOT NULL DEFAULT 0,
    open_count INTEGER NOT NULL DEFAULT 0,
    click_count INTEGER NOT NULL DEFAULT 0,
    reply_count INTEGER NOT NULL DEFAULT 0,
    conversion_count INTEGER NOT NULL DEFAULT 0,
    open_rate INTEGER NOT NULL DEFAULT 0,
    click_rate INTEGER NOT NULL DEFAULT 0,
    reply_rate INTEGER NOT NULL DEFAULT 0,
    conversion_rate INTEGER NOT NULL DEFAULT 0,
    is_winner INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (test_id) REFERENCES tests(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_variants_test ON variants(test_id);

CREATE TABLE IF NOT EXISTS snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    test_id INTEGER NOT NULL,
    variant_id INTEGER NOT NULL,
    sent_count INTEGER NOT NULL,
    open_count INTEGER NOT NULL,
    click_count INTEGER NOT NULL,
    reply_count INTEGER NOT NULL,
    conversion_count INTEGER NOT NULL,
    open_rate INTEGER NOT NULL,
    click_rate INTEGER NOT NULL,
    reply_rate INTEGER NOT NULL,
    conversion_rate INTEGER NOT NULL,
    confidence_level INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_test ON snapshots(test_id, created_at);
`

func Open(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Apply schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for health checks.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) CreateTest(ctx context.Context, ownerID int64, name string, emailType EmailType, specs []VariantSpec) (*Test, []*Variant, error) {
	total := 0
	for _, spec := range specs {
		total += spec.TrafficAllocation
	}
	if total != 100 {
		return nil, nil, fmt.Errorf("%w: got %d", ErrInvalidAllocation, total)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO tests (owner_id, name, email_type, status, created_at, updated_at)
		 VALUES (?, ?, ?, 'running', ?, ?)`,
		ownerID, name, string(emailType), now, now,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to insert test: %w", err)
	}

	testID, err := result.LastInsertId()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	variants := make([]*Variant, 0, len(specs))
	for _, spec := range specs {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO variants (test_id, label, subject, body, traffic_allocation, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			testID, spec.Label, spec.Subject, spec.Body, spec.TrafficAllocation, now,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to insert variant: %w", err)
		}
		variantID, err := res.LastInsertId()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to get last insert id: %w", err)
		}
		variants = append(variants, &Variant{
			ID:                variantID,
			TestID:            testID,
			Label:             spec.Label,
			Subject:           spec.Subject,
			Body:              spec.Body,
			TrafficAllocation: spec.TrafficAllocation,
			CreatedAt:         time.Unix(now, 0),
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	test := &Test{
		ID:        testID,
		OwnerID:   ownerID,
		Name:      name,
		EmailType: emailType,
		Status:    StatusRunning,
		CreatedAt: time.Unix(now, 0),
		UpdatedAt: time.Unix(now, 0),
	}
	return test, variants, nil
}

func (s *SQLiteStore) GetTest(ctx context.Context, id int64) (*Test, error) {
	var test Test
	var createdAt, updatedAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, email_type, status, created_at, updated_at
		 FROM tests WHERE id = ?`, id,
	).Scan(&test.ID, &test.OwnerID, &test.Name, &test.EmailType, &test.Status, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrTestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	test.CreatedAt = time.Unix(createdAt, 0)
	test.UpdatedAt = time.Unix(updatedAt, 0)
	return &test, nil
}

func (s *SQLiteStore) ListTestsByOwner(ctx context.Context, ownerID int64) ([]*Test, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, name, email_type, status, created_at, updated_at
		 FROM tests WHERE owner_id = ? ORDER BY created_at DESC, id DESC`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}
	defer rows.Close()

	var tests []*Test
	for rows.Next() {
		var test Test
		var createdAt, updatedAt int64
		if err := rows.Scan(&test.ID, &test.OwnerID, &test.Name, &test.EmailType, &test.Status, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan test: %w", err)
		}
		test.CreatedAt = time.Unix(createdAt, 0)
		test.UpdatedAt = time.Unix(updatedAt, 0)
		tests = append(tests, &test)
	}
	return tests, rows.Err()
}

func (s *SQLiteStore) UpdateTestStatus(ctx context.Context, id int64, from, to TestStatus) error {
	now := time.Now().Unix()
	result, err := s.db.ExecContext(ctx,
		`UPDATE tests SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), now, id, string(from),
	)
	if err != nil {
		return fmt.Errorf("failed to update test status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Distinguish a missing test from a status mismatch.
		if _, err := s.GetTest(ctx, id); err != nil {
			return err
		}
		return ErrStatusConflict
	}
	return nil
}

func (s *SQLiteStore) DeleteTest(ctx context.Context, id int64) error {
	// Snapshots are retained on purpose; only the test and its variants go.
	result, err := s.db.ExecContext(ctx, `DELETE FROM tests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete test: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTestNotFound
	}
	return nil
}

const variantColumns = `id, test_id, label, subject, body, traffic_allocation,
	sent_count, open_count, click_count, reply_count, conversion_count,
	open_rate, click_rate, reply_rate, conversion_rate, is_winner, created_at`

func scanVariant(row interface{ Scan(...any) error }) (*Variant, error) {
	var v Variant
	var createdAt int64
	err := row.Scan(&v.ID, &v.TestID, &v.Label, &v.Subject, &v.Body, &v.TrafficAllocation,
		&v.SentCount, &v.OpenCount, &v.ClickCount, &v.ReplyCount, &v.ConversionCount,
		&v.OpenRate, &v.ClickRate, &v.ReplyRate, &v.ConversionRate, &v.IsWinner, &createdAt)
	if err != nil {
		return nil, err
	}
	v.CreatedAt = time.Unix(createdAt, 0)
	return &v, nil
}

func (s *SQLiteStore) GetVariant(ctx context.Context, id int64) (*Variant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+variantColumns+` FROM variants WHERE id = ?`, id)
	v, err := scanVariant(row)
	if err == sql.ErrNoRows {
		return nil, ErrVariantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get variant: %w", err)
	}
	return v, nil
}

func (s *SQLiteStore) ListVariants(ctx context.Context, testID int64) ([]*Variant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+variantColumns+` FROM variants WHERE test_id = ? ORDER BY id`, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to list variants: %w", err)
	}
	defer rows.Close()

	var variants []*Variant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

// IncrementCounter bumps one counter and recomputes the derived rates in a
// single UPDATE, so concurrent event reports cannot lose updates. All
// right-hand expressions see the pre-update row, hence the explicit +1.
func (s *SQLiteStore) IncrementCounter(ctx context.Context, variantID int64, kind EventKind) error {
	var stmt string
	switch kind {
	case EventSent:
		stmt = `UPDATE variants SET
			sent_count = sent_count + 1,
			open_rate = CAST(ROUND(open_count * 100.0 / (sent_count + 1)) AS INTEGER),
			click_rate = CAST(ROUND(click_count * 100.0 / (sent_count + 1)) AS INTEGER),
			reply_rate = CAST(ROUND(reply_count * 100.0 / (sent_count + 1)) AS INTEGER),
			conversion_rate = CAST(ROUND(conversion_count * 100.0 / (sent_count + 1)) AS INTEGER)
			WHERE id = ?`
	case EventOpen:
		stmt = `UPDATE variants SET
			open_count = open_count + 1,
			open_rate = CASE WHEN sent_count > 0 THEN CAST(ROUND((open_count + 1) * 100.0 / sent_count) AS INTEGER) ELSE 0 END
			WHERE id = ?`
	case EventClick:
		stmt = `UPDATE variants SET
			click_count = click_count + 1,
			click_rate = CASE WHEN sent_count > 0 THEN CAST(ROUND((click_count + 1) * 100.0 / sent_count) AS INTEGER) ELSE 0 END
			WHERE id = ?`
	case EventReply:
		stmt = `UPDATE variants SET
			reply_count = reply_count + 1,
			reply_rate = CASE WHEN sent_count > 0 THEN CAST(ROUND((reply_count + 1) * 100.0 / sent_count) AS INTEGER) ELSE 0 END
			WHERE id = ?`
	case EventConversion:
		stmt = `UPDATE variants SET
			conversion_count = conversion_count + 1,
			conversion_rate = CASE WHEN sent_count > 0 THEN CAST(ROUND((conversion_count + 1) * 100.0 / sent_count) AS INTEGER) ELSE 0 END
			WHERE id = ?`
	default:
		return fmt.Errorf("unknown event kind: %q", kind)
	}

	result, err := s.db.ExecContext(ctx, stmt, variantID)
	if err != nil {
		return fmt.Errorf("failed to increment counter: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrVariantNotFound
	}
	return nil
}

func (s *SQLiteStore) SetWinner(ctx context.Context, variantID int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE variants SET is_winner = 1 WHERE id = ?`, variantID)
	if err != nil {
		return fmt.Errorf("failed to set winner: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrVariantNotFound
	}
	return nil
}

func (s *SQLiteStore) SetTrafficAllocation(ctx context.Context, variantID int64, pct int) error {
	if pct < 0 || pct > 100 {
		return fmt.Errorf("traffic allocation out of range: %d", pct)
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE variants SET traffic_allocation = ? WHERE id = ?`, pct, variantID)
	if err != nil {
		return fmt.Errorf("failed to set traffic allocation: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrVariantNotFound
	}
	return nil
}

func (s *SQLiteStore) InsertSnapshots(ctx context.Context, snapshots []*Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, snap := range snapshots {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO snapshots (test_id, variant_id,
				sent_count, open_count, click_count, reply_count, conversion_count,
				open_rate, click_rate, reply_rate, conversion_rate,
				confidence_level, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.TestID, snap.VariantID,
			snap.SentCount, snap.OpenCount, snap.ClickCount, snap.ReplyCount, snap.ConversionCount,
			snap.OpenRate, snap.ClickRate, snap.ReplyRate, snap.ConversionRate,
			snap.ConfidenceLevel, snap.CreatedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		snap.ID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context, testID int64) ([]*Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, test_id, variant_id,
			sent_count, open_count, click_count, reply_count, conversion_count,
			open_rate, click_rate, reply_rate, conversion_rate,
			confidence_level, created_at
		 FROM snapshots WHERE test_id = ? ORDER BY created_at ASC, id ASC`, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*Snapshot
	for rows.Next() {
		var snap Snapshot
		var createdAt int64
		if err := rows.Scan(&snap.ID, &snap.TestID, &snap.VariantID,
			&snap.SentCount, &snap.OpenCount, &snap.ClickCount, &snap.ReplyCount, &snap.ConversionCount,
			&snap.OpenRate, &snap.ClickRate, &snap.ReplyRate, &snap.ConversionRate,
			&snap.ConfidenceLevel, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snap.CreatedAt = time.Unix(createdAt, 0)
		snapshots = append(snapshots, &snap)
	}
	return snapshots, rows.Err()
}
