package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"hushpay/internal/identity"
)

// IdentityStore implements identity.Store.
type IdentityStore struct {
	*DB
}

// Identities returns the identity store.
func (s *DB) Identities() *IdentityStore {
	return &IdentityStore{DB: s}
}

const identityColumns = `phone, wallet_address, sealed_key, language, pin_hash, locked_until, created_at`

func (s *IdentityStore) Create(ctx context.Context, id identity.Identity) (identity.Identity, bool, error) {
	if id.CreatedAt.IsZero() {
		id.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, s.dialect.insertIgnore+` identities (`+identityColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id.Phone, id.WalletAddress, id.SealedKey, id.Language, id.PINHash, millis(id.LockedUntil), millis(id.CreatedAt))
	if err != nil {
		return identity.Identity{}, false, storageErr(err, "insert identity")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return identity.Identity{}, false, storageErr(err, "insert identity")
	}
	if affected == 1 {
		return id, true, nil
	}
	existing, err := s.Get(ctx, id.Phone)
	return existing, false, err
}

func (s *IdentityStore) Get(ctx context.Context, phone string) (identity.Identity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE phone = ?`, phone)
	return scanIdentity(row)
}

func (s *IdentityStore) FindByWallet(ctx context.Context, address string) (identity.Identity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE wallet_address = ?`, address)
	return scanIdentity(row)
}

func scanIdentity(row *sql.Row) (identity.Identity, error) {
	var (
		id                 identity.Identity
		lockedMs, createMs int64
	)
	err := row.Scan(&id.Phone, &id.WalletAddress, &id.SealedKey, &id.Language, &id.PINHash, &lockedMs, &createMs)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.Identity{}, identity.ErrNotFound
	}
	if err != nil {
		return identity.Identity{}, storageErr(err, "scan identity")
	}
	id.LockedUntil = fromMillis(lockedMs)
	id.CreatedAt = fromMillis(createMs)
	return id, nil
}

func (s *IdentityStore) UpdateLanguage(ctx context.Context, phone, lang string) error {
	return s.updateOne(ctx, `UPDATE identities SET language = ? WHERE phone = ?`, lang, phone)
}

func (s *IdentityStore) UpdatePIN(ctx context.Context, phone, hash string) error {
	return s.updateOne(ctx, `UPDATE identities SET pin_hash = ? WHERE phone = ?`, hash, phone)
}

func (s *IdentityStore) UpdateLockout(ctx context.Context, phone string, until time.Time) error {
	return s.updateOne(ctx, `UPDATE identities SET locked_until = ? WHERE phone = ?`, millis(until), phone)
}

// updateOne checks existence separately because MySQL reports zero affected
// rows when the new value equals the old one.
func (s *IdentityStore) updateOne(ctx context.Context, query string, args ...any) error {
	phone := args[len(args)-1]
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return storageErr(err, "update identity")
	}
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM identities WHERE phone = ?`, phone).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.ErrNotFound
	}
	return storageErr(err, "check identity")
}

func (s *IdentityStore) SaveContact(ctx context.Context, c identity.Contact) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, s.dialect.upsertContact,
		c.Owner, identity.ContactKey(c.Name), c.Name, c.Phone, millis(c.CreatedAt))
	return storageErr(err, "save contact")
}

func (s *IdentityStore) GetContact(ctx context.Context, owner, name string) (identity.Contact, error) {
	var (
		c  identity.Contact
		ms int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT owner, name, phone, created_at FROM contacts WHERE owner = ? AND name_key = ?`,
		owner, identity.ContactKey(name)).Scan(&c.Owner, &c.Name, &c.Phone, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.Contact{}, identity.ErrContactNotFound
	}
	if err != nil {
		return identity.Contact{}, storageErr(err, "get contact")
	}
	c.CreatedAt = fromMillis(ms)
	return c, nil
}

func (s *IdentityStore) DeleteContact(ctx context.Context, owner, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE owner = ? AND name_key = ?`, owner, identity.ContactKey(name))
	if err != nil {
		return false, storageErr(err, "delete contact")
	}
	n, err := res.RowsAffected()
	return n > 0, storageErr(err, "delete contact")
}

func (s *IdentityStore) ListContacts(ctx context.Context, owner string) ([]identity.Contact, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT owner, name, phone, created_at FROM contacts WHERE owner = ? ORDER BY name_key`, owner)
	if err != nil {
		return nil, storageErr(err, "list contacts")
	}
	defer rows.Close()
	var out []identity.Contact
	for rows.Next() {
		var (
			c  identity.Contact
			ms int64
		)
		if err := rows.Scan(&c.Owner, &c.Name, &c.Phone, &ms); err != nil {
			return nil, storageErr(err, "scan contact")
		}
		c.CreatedAt = fromMillis(ms)
		out = append(out, c)
	}
	return out, storageErr(rows.Err(), "list contacts")
}

var _ identity.Store = (*IdentityStore)(nil)
