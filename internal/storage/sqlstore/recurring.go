package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	xerrors "hushpay/internal/errors"
	"hushpay/internal/intent"
	"hushpay/internal/recurring"
)

// RecurringStore implements recurring.Store.
type RecurringStore struct {
	*DB
}

// Recurring returns the recurring action store.
func (s *DB) Recurring() *RecurringStore {
	return &RecurringStore{DB: s}
}

const recurringColumns = `id, sender, recipient, amount, token, frequency, next_run_at, active, created_at`

func (s *RecurringStore) Create(ctx context.Context, a recurring.Action) error {
	if a.ID == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "recurring id is empty")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO recurring_actions (`+recurringColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Sender, a.Recipient, a.Amount, a.Token, string(a.Frequency), millis(a.NextRunAt), a.Active, millis(a.CreatedAt))
	if isDuplicate(err) {
		return xerrors.New(xerrors.CodeConflict, "recurring action exists")
	}
	return storageErr(err, "insert recurring action")
}

func (s *RecurringStore) Get(ctx context.Context, id string) (recurring.Action, error) {
	a, err := scanRecurring(s.db.QueryRowContext(ctx, `SELECT `+recurringColumns+` FROM recurring_actions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return recurring.Action{}, recurring.ErrNotFound
	}
	return a, storageErr(err, "get recurring action")
}

func (s *RecurringStore) Due(ctx context.Context, now time.Time, limit int) ([]recurring.Action, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.list(ctx, `SELECT `+recurringColumns+` FROM recurring_actions
WHERE active = ? AND next_run_at <= ? ORDER BY next_run_at LIMIT ?`, true, millis(now), limit)
}

func (s *RecurringStore) Reschedule(ctx context.Context, id string, prev, next time.Time) error {
	if !next.After(prev) {
		return xerrors.New(xerrors.CodeInvalidArgument, "next run must move forward")
	}
	res, err := s.db.ExecContext(ctx, `UPDATE recurring_actions SET next_run_at = ? WHERE id = ? AND next_run_at = ?`,
		millis(next), id, millis(prev))
	if err != nil {
		return storageErr(err, "reschedule recurring action")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr(err, "reschedule recurring action")
	}
	if n == 1 {
		return nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return recurring.ErrStale
}

func (s *RecurringStore) Deactivate(ctx context.Context, sender, recipient string) (int, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE recurring_actions SET active = ? WHERE sender = ? AND recipient = ? AND active = ?`,
		false, sender, recipient, true)
	if err != nil {
		return 0, storageErr(err, "deactivate recurring action")
	}
	n, err := res.RowsAffected()
	return int(n), storageErr(err, "deactivate recurring action")
}

func (s *RecurringStore) ListActive(ctx context.Context, sender string) ([]recurring.Action, error) {
	return s.list(ctx, `SELECT `+recurringColumns+` FROM recurring_actions
WHERE sender = ? AND active = ? ORDER BY created_at`, sender, true)
}

func (s *RecurringStore) list(ctx context.Context, query string, args ...any) ([]recurring.Action, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr(err, "list recurring actions")
	}
	defer rows.Close()
	var out []recurring.Action
	for rows.Next() {
		a, err := scanRecurring(rows)
		if err != nil {
			return nil, storageErr(err, "scan recurring action")
		}
		out = append(out, a)
	}
	return out, storageErr(rows.Err(), "list recurring actions")
}

func scanRecurring(row scanner) (recurring.Action, error) {
	var (
		a               recurring.Action
		freq            string
		nextMs, created int64
	)
	if err := row.Scan(&a.ID, &a.Sender, &a.Recipient, &a.Amount, &a.Token, &freq, &nextMs, &a.Active, &created); err != nil {
		return recurring.Action{}, err
	}
	a.Frequency = intent.Frequency(freq)
	a.NextRunAt = fromMillis(nextMs)
	a.CreatedAt = fromMillis(created)
	return a, nil
}

var _ recurring.Store = (*RecurringStore)(nil)
