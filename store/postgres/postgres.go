// Package postgres provides a PostgreSQL-backed CredentialStore over
// database/sql with the pgx driver. Schema management is handled by the
// embedded goose migrations (see Migrate).
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/MrEthical07/goSession/store"
)

// Store implements store.CredentialStore on top of PostgreSQL.
type Store struct {
	db *sql.DB
}

// New constructs a Store bound to the given database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open dials PostgreSQL via the pgx driver and verifies connectivity.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return New(db), nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts a refresh-token record.
func (s *Store) Create(ctx context.Context, rec *store.TokenRecord) error {
	query := `
		INSERT INTO refresh_tokens (
			id, token_hash, user_id, tenant_id, access_token_id, family_id,
			created_at, expires_at, created_by_ip, user_agent
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.TokenHash[:], rec.UserID, rec.TenantID, rec.AccessTokenID,
		rec.FamilyID, rec.CreatedAt, rec.ExpiresAt, rec.CreatedByIP, rec.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

// GetByID returns the record for the given token ID, or store.ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id string) (*store.TokenRecord, error) {
	query := selectRecord + ` WHERE id = $1`

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return rec, nil
}

// ConditionalMarkUsed flips used=true only when the row still has
// used=false. The WHERE clause makes the transition linearizable across
// processes: exactly one concurrent caller sees a row count of one.
func (s *Store) ConditionalMarkUsed(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE refresh_tokens
		SET used = TRUE
		WHERE id = $1 AND used = FALSE
	`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return affected == 1, nil
}

// Revoke stamps a single record as revoked. Already-revoked rows are left
// untouched so a retry cannot overwrite the original audit stamp.
func (s *Store) Revoke(ctx context.Context, id string, rev store.Revocation) error {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = $2, revoked_by_ip = $3, reason_revoked = $4
		WHERE id = $1 AND revoked = FALSE
	`
	if _, err := s.db.ExecContext(ctx, query, id, rev.At, rev.ByIP, rev.Reason); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

// RevokeFamily revokes every non-terminal member of the family except
// excludeID in a single set update.
func (s *Store) RevokeFamily(ctx context.Context, familyID, excludeID string, rev store.Revocation) error {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = $3, revoked_by_ip = $4, reason_revoked = $5
		WHERE family_id = $1 AND id <> $2 AND revoked = FALSE
	`
	if _, err := s.db.ExecContext(ctx, query, familyID, excludeID, rev.At, rev.ByIP, rev.Reason); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

// RevokeAllForUser revokes every non-terminal record owned by the user.
func (s *Store) RevokeAllForUser(ctx context.Context, userID string, rev store.Revocation) error {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = $2, revoked_by_ip = $3, reason_revoked = $4
		WHERE user_id = $1 AND revoked = FALSE
	`
	if _, err := s.db.ExecContext(ctx, query, userID, rev.At, rev.ByIP, rev.Reason); err != nil {
		return fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return nil
}

// ListActiveForUser returns the user's rotatable records, newest first.
func (s *Store) ListActiveForUser(ctx context.Context, userID string) ([]*store.TokenRecord, error) {
	query := selectRecord + `
		WHERE user_id = $1 AND used = FALSE AND revoked = FALSE AND expires_at > $2
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	defer rows.Close()

	var out []*store.TokenRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return out, nil
}

// IsUserBlocked reads the block flag from the users table. Unknown users
// are reported as not blocked; the issuer rejects them later through the
// identity provider.
func (s *Store) IsUserBlocked(ctx context.Context, userID string) (bool, error) {
	query := `SELECT blocked FROM users WHERE id = $1`

	var blocked bool
	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&blocked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return blocked, nil
}

const selectRecord = `
	SELECT id, token_hash, user_id, tenant_id, access_token_id, family_id,
	       created_at, expires_at, created_by_ip, user_agent,
	       used, revoked, revoked_at, revoked_by_ip, reason_revoked
	FROM refresh_tokens
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*store.TokenRecord, error) {
	var (
		rec       store.TokenRecord
		hash      []byte
		revokedAt sql.NullTime
		revokedIP sql.NullString
		reason    sql.NullString
	)

	err := row.Scan(
		&rec.ID, &hash, &rec.UserID, &rec.TenantID, &rec.AccessTokenID,
		&rec.FamilyID, &rec.CreatedAt, &rec.ExpiresAt, &rec.CreatedByIP,
		&rec.UserAgent, &rec.Used, &rec.Revoked, &revokedAt, &revokedIP, &reason,
	)
	if err != nil {
		return nil, err
	}

	if len(hash) != len(rec.TokenHash) {
		return nil, errors.New("malformed token hash column")
	}
	copy(rec.TokenHash[:], hash)
	if revokedAt.Valid {
		rec.RevokedAt = revokedAt.Time
	}
	rec.RevokedByIP = revokedIP.String
	rec.ReasonRevoked = reason.String

	return &rec, nil
}
