package sqlstore

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"hushpay/internal/alerts"
	"hushpay/internal/intent"
)

// AlertStore implements alerts.Store.
type AlertStore struct {
	*DB
}

// PriceAlerts returns the price alert store.
func (s *DB) PriceAlerts() *AlertStore {
	return &AlertStore{DB: s}
}

// Replace runs the deactivate and insert in one transaction.
func (s *AlertStore) Replace(ctx context.Context, a alerts.Alert) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(err, "begin alert replace")
	}
	token := strings.ToUpper(a.Token)
	if _, err := tx.ExecContext(ctx, `UPDATE price_alerts SET active = ? WHERE identity = ? AND token = ? AND active = ?`,
		false, a.Identity, token, true); err != nil {
		tx.Rollback()
		return storageErr(err, "deactivate price alerts")
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO price_alerts (id, identity, token, condition_op, target_price, active, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`, a.ID, a.Identity, token, string(a.Condition), a.TargetPrice.String(), a.Active, millis(a.CreatedAt)); err != nil {
		tx.Rollback()
		return storageErr(err, "insert price alert")
	}
	return storageErr(tx.Commit(), "commit alert replace")
}

func (s *AlertStore) ListActive(ctx context.Context) ([]alerts.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, identity, token, condition_op, target_price, active, created_at
FROM price_alerts WHERE active = ? ORDER BY created_at`, true)
	if err != nil {
		return nil, storageErr(err, "list price alerts")
	}
	defer rows.Close()
	var out []alerts.Alert
	for rows.Next() {
		var (
			a         alerts.Alert
			cond, tgt string
			createdMs int64
		)
		if err := rows.Scan(&a.ID, &a.Identity, &a.Token, &cond, &tgt, &a.Active, &createdMs); err != nil {
			return nil, storageErr(err, "scan price alert")
		}
		price, err := decimal.NewFromString(tgt)
		if err != nil {
			return nil, storageErr(err, "parse target price")
		}
		a.Condition = intent.Condition(cond)
		a.TargetPrice = price
		a.CreatedAt = fromMillis(createdMs)
		out = append(out, a)
	}
	return out, storageErr(rows.Err(), "list price alerts")
}

func (s *AlertStore) Deactivate(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE price_alerts SET active = ? WHERE id = ?`, false, id)
	return storageErr(err, "deactivate price alert")
}

var _ alerts.Store = (*AlertStore)(nil)
