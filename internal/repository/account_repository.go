package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/devakowakou/backend-rdv/internal/model"
)

// accountColumns is the full select list for the users table, kept in one
// place so every query scans the same shape.
const accountColumns = "id, firstname, lastname, email, username, password_hash, phone, sexe, adresse, role, reset_token, reset_token_expires, created_at, updated_at"

// AccountRepo is the credential store: it owns every read and write against
// the users table. All mutations are single-row, single-statement, so the
// unique indexes on email, username and reset_token are the only
// concurrency control needed.
type AccountRepo struct{ DB *sql.DB }

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{DB: db} }

// isDuplicate reports whether err is a MySQL unique index violation (1062).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}

func scanAccount(row *sql.Row) (model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Firstname, &a.Lastname, &a.Email, &a.Username,
		&a.PasswordHash, &a.Phone, &a.Sexe, &a.Adresse, &a.Role,
		&a.ResetToken, &a.ResetTokenExpires, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, ErrNotFound
	}
	return a, err
}

// ExistsByEmail reports whether an account already uses the given email.
func (r *AccountRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var id uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM users WHERE email=? LIMIT 1", email).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// ExistsByUsername reports whether a username is already taken.
func (r *AccountRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var id uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT id FROM users WHERE username=? LIMIT 1", username).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Create inserts the account and returns the stored row, including the
// assigned id and timestamps. A unique index collision (email or username
// lost to a concurrent insert) surfaces as ErrDuplicate.
func (r *AccountRepo) Create(ctx context.Context, a model.Account) (model.Account, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (firstname, lastname, email, username, password_hash, phone, sexe, adresse, role) VALUES (?,?,?,?,?,?,?,?,?)",
		a.Firstname, a.Lastname, a.Email, a.Username, a.PasswordHash,
		a.Phone, a.Sexe, a.Adresse, a.Role)
	if err != nil {
		if isDuplicate(err) {
			return model.Account{}, ErrDuplicate
		}
		return model.Account{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Account{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByID fetches an account by primary key.
func (r *AccountRepo) GetByID(ctx context.Context, id uint64) (model.Account, error) {
	return scanAccount(r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetByEmail fetches an account by its exact email.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	return scanAccount(r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// buildProfileUpdate turns the set fields of a ProfileUpdate into a SET
// clause and its arguments. The returned clause is empty when no field is
// set. updated_at is always appended so every mutation bumps it.
func buildProfileUpdate(u model.ProfileUpdate) (string, []interface{}) {
	cols := make([]string, 0, 6)
	args := make([]interface{}, 0, 6)
	if u.Firstname != nil {
		cols = append(cols, "firstname=?")
		args = append(args, *u.Firstname)
	}
	if u.Lastname != nil {
		cols = append(cols, "lastname=?")
		args = append(args, *u.Lastname)
	}
	if u.Phone != nil {
		cols = append(cols, "phone=?")
		args = append(args, *u.Phone)
	}
	if u.Sexe != nil {
		cols = append(cols, "sexe=?")
		args = append(args, *u.Sexe)
	}
	if u.Adresse != nil {
		cols = append(cols, "adresse=?")
		args = append(args, *u.Adresse)
	}
	if len(cols) == 0 {
		return "", nil
	}
	cols = append(cols, "updated_at=UTC_TIMESTAMP()")
	return strings.Join(cols, ", "), args
}

// UpdateProfile applies the set fields of u to the account and returns the
// updated row. ErrNoFields when u is empty, ErrNotFound when no account
// matches id.
func (r *AccountRepo) UpdateProfile(ctx context.Context, id uint64, u model.ProfileUpdate) (model.Account, error) {
	set, args := buildProfileUpdate(u)
	if set == "" {
		return model.Account{}, ErrNoFields
	}
	args = append(args, id)
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE users SET "+set+" WHERE id=?", args...); err != nil {
		return model.Account{}, err
	}
	// RowsAffected is 0 both for a missing row and for a no-op rewrite of
	// identical values, so existence is settled by the read back.
	return r.GetByID(ctx, id)
}

// Delete removes the account row. Hard delete, no tombstone.
func (r *AccountRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveResetToken attaches a pending reset token to the account owning
// email, overwriting any previous one. The unique index on reset_token can
// reject an (astronomically unlikely) colliding token with ErrDuplicate;
// the service retries with a fresh token in that case.
func (r *AccountRepo) SaveResetToken(ctx context.Context, email, token string, expires time.Time) (model.Account, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET reset_token=?, reset_token_expires=?, updated_at=UTC_TIMESTAMP() WHERE email=?",
		token, expires, email)
	if err != nil {
		if isDuplicate(err) {
			return model.Account{}, ErrDuplicate
		}
		return model.Account{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Account{}, err
	}
	if n == 0 {
		return model.Account{}, ErrNotFound
	}
	return r.GetByEmail(ctx, email)
}

// GetByValidResetToken resolves a reset token that is present and not yet
// expired. Unknown and expired tokens are indistinguishable by design.
func (r *AccountRepo) GetByValidResetToken(ctx context.Context, token string) (model.Account, error) {
	a, err := scanAccount(r.DB.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM users WHERE reset_token=? AND reset_token_expires > UTC_TIMESTAMP() LIMIT 1",
		token))
	if errors.Is(err, ErrNotFound) {
		return model.Account{}, ErrResetTokenInvalid
	}
	return a, err
}

// ClearResetTokenAndSetPassword consumes a reset token: in one statement it
// sets the new password hash and clears both reset columns. The WHERE
// clause re-checks the token and its expiry, so a token that was already
// consumed or lapsed since verification affects zero rows and the reset
// fails with ErrResetTokenInvalid. This is what makes the token single-use
// even under a concurrent double submit.
func (r *AccountRepo) ClearResetTokenAndSetPassword(ctx context.Context, id uint64, token, passwordHash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, reset_token=NULL, reset_token_expires=NULL, updated_at=UTC_TIMESTAMP() WHERE id=? AND reset_token=? AND reset_token_expires > UTC_TIMESTAMP()",
		passwordHash, id, token)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrResetTokenInvalid
	}
	return nil
}
