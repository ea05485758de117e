package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	xerrors "hushpay/internal/errors"
	"hushpay/internal/ledger"
	"hushpay/internal/money"
)

// TransferStore implements ledger.Store.
type TransferStore struct {
	*DB
}

// Transfers returns the ledger store.
func (s *DB) Transfers() *TransferStore {
	return &TransferStore{DB: s}
}

const transferColumns = `id, sender, recipient, amount, token, kind, status, tx_ref, error, created_at, updated_at`

func (s *TransferStore) Create(ctx context.Context, t ledger.Transfer) error {
	if t.ID == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "transfer id is empty")
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Status == "" {
		t.Status = ledger.StatusPending
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO transfers (`+transferColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Sender, t.Recipient, t.Amount, t.Token, string(t.Kind), string(t.Status), t.TxRef, t.Error,
		millis(t.CreatedAt), millis(t.CreatedAt))
	if isDuplicate(err) {
		return xerrors.New(xerrors.CodeConflict, "transfer exists")
	}
	return storageErr(err, "insert transfer")
}

func (s *TransferStore) Get(ctx context.Context, id string) (ledger.Transfer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+transferColumns+` FROM transfers WHERE id = ?`, id)
	t, err := scanTransfer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Transfer{}, ledger.ErrNotFound
	}
	return t, storageErr(err, "get transfer")
}

// Settle guards the transition in the WHERE clause so a record can only
// leave pending once.
func (s *TransferStore) Settle(ctx context.Context, id string, status ledger.Status, txRef, reason string) error {
	if !status.Terminal() {
		return ledger.ErrInvalidTerminal
	}
	res, err := s.db.ExecContext(ctx, `UPDATE transfers SET status = ?, tx_ref = ?, error = ?, updated_at = ?
WHERE id = ? AND status = ?`, string(status), txRef, reason, time.Now().UnixMilli(), id, string(ledger.StatusPending))
	if err != nil {
		return storageErr(err, "settle transfer")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr(err, "settle transfer")
	}
	if n == 1 {
		return nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return ledger.ErrAlreadySettled
}

func (s *TransferStore) ListForIdentity(ctx context.Context, phone string, limit int) ([]ledger.Transfer, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+transferColumns+` FROM transfers
WHERE sender = ? OR recipient = ? ORDER BY created_at DESC, id DESC LIMIT ?`, phone, phone, limit)
	if err != nil {
		return nil, storageErr(err, "list transfers")
	}
	defer rows.Close()
	var out []ledger.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, storageErr(err, "scan transfer")
		}
		out = append(out, t)
	}
	return out, storageErr(rows.Err(), "list transfers")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row scanner) (ledger.Transfer, error) {
	var (
		t                  ledger.Transfer
		kind, status       string
		reason             sql.NullString
		amount             money.Amount
		createdMs, updated int64
	)
	if err := row.Scan(&t.ID, &t.Sender, &t.Recipient, &amount, &t.Token, &kind, &status, &t.TxRef, &reason, &createdMs, &updated); err != nil {
		return ledger.Transfer{}, err
	}
	t.Amount = amount
	t.Kind = ledger.Kind(kind)
	t.Status = ledger.Status(status)
	t.Error = reason.String
	t.CreatedAt = fromMillis(createdMs)
	t.UpdatedAt = fromMillis(updated)
	return t, nil
}

var _ ledger.Store = (*TransferStore)(nil)
