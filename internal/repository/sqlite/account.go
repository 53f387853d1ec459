package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/careportal/internal/apperror"
	"github.com/sakif/careportal/internal/model"
	"github.com/sakif/careportal/internal/repository"
)

// compile-time check that *DB implements repository.AccountRepository
var _ repository.AccountRepository = (*DB)(nil)

const accountColumns = `id, username, password_hash, is_staff, is_superuser, is_active,
	user_type, first_name, last_name, email, profile_picture,
	address_line1, city, state, pincode, created_at, updated_at`

// Create inserts a new account, generating its ID and timestamps.
//
// The UNIQUE constraints on username and email are the authoritative
// uniqueness check: if two requests race past the service layer's
// pre-check with the same value, exactly one insert commits and the other
// returns an apperror conflict naming the colliding field.
func (db *DB) Create(ctx context.Context, account *model.Account) error {
	now := time.Now().UTC()
	account.ID = xid.New().String()
	account.CreatedAt = now
	account.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.Username,
		account.PasswordHash,
		account.IsStaff,
		account.IsSuperuser,
		account.IsActive,
		string(account.UserType),
		account.FirstName,
		account.LastName,
		account.Email,
		account.ProfilePicture,
		account.AddressLine1,
		account.City,
		account.State,
		account.Pincode,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if conflictErr := asConflict(err); conflictErr != nil {
			return conflictErr
		}
		return fmt.Errorf("sqlite: inserting account (username=%s): %w", account.Username, err)
	}

	return nil
}

// asConflict translates a SQLite UNIQUE-constraint failure into the
// application's conflict error, attributed to the colliding column.
// Returns nil if err is not a uniqueness violation.
func asConflict(err error) error {
	var se *sqlitedrv.Error
	if !errors.As(err, &se) {
		return nil
	}
	if se.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE && se.Code() != sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
		return nil
	}

	// The driver message names the column, e.g.
	// "UNIQUE constraint failed: accounts.email".
	msg := se.Error()
	switch {
	case strings.Contains(msg, "accounts.username"):
		return apperror.Conflict("username", "an account with this username already exists")
	case strings.Contains(msg, "accounts.email"):
		return apperror.Conflict("email", "an account with this email already exists")
	default:
		return apperror.Conflict("", "account conflicts with an existing record")
	}
}

// GetByID retrieves an account by its internal ID.
// Returns apperror.ErrNotFound if no account exists with that ID.
func (db *DB) GetByID(ctx context.Context, id string) (*model.Account, error) {
	return db.getBy(ctx, "id", id)
}

// GetByUsername retrieves an account by username (the login credential).
func (db *DB) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	return db.getBy(ctx, "username", username)
}

// GetByEmail retrieves an account by email.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return db.getBy(ctx, "email", email)
}

func (db *DB) getBy(ctx context.Context, column, value string) (*model.Account, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE `+column+` = ?`, value)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("account", value)
		}
		return nil, fmt.Errorf("sqlite: getting account by %s %q: %w", column, value, err)
	}

	return account, nil
}

// List returns accounts matching opts, ordered by username.
//
// Filters are combined with AND; a nil filter field is skipped. The query
// is built from a fixed set of predicates — only placeholder values come
// from the caller.
func (db *DB) List(ctx context.Context, opts repository.ListOptions) ([]model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	var (
		where []string
		args  []any
	)

	if opts.Filter.UserType != nil {
		where = append(where, "user_type = ?")
		args = append(args, string(*opts.Filter.UserType))
	}
	if opts.Filter.IsStaff != nil {
		where = append(where, "is_staff = ?")
		args = append(args, *opts.Filter.IsStaff)
	}
	if opts.Filter.IsSuperuser != nil {
		where = append(where, "is_superuser = ?")
		args = append(args, *opts.Filter.IsSuperuser)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	query += " ORDER BY username"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing accounts: %w", err)
	}
	defer rows.Close()

	accounts := []model.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning account row: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating account rows: %w", err)
	}

	return accounts, nil
}

// Update persists every mutable field of the account and bumps
// updated_at. Returns apperror.ErrNotFound if the account no longer
// exists, and a conflict if the new username or email collides.
func (db *DB) Update(ctx context.Context, account *model.Account) error {
	account.UpdatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE accounts SET
			username = ?, password_hash = ?, is_staff = ?, is_superuser = ?, is_active = ?,
			user_type = ?, first_name = ?, last_name = ?, email = ?, profile_picture = ?,
			address_line1 = ?, city = ?, state = ?, pincode = ?, updated_at = ?
		 WHERE id = ?`,
		account.Username,
		account.PasswordHash,
		account.IsStaff,
		account.IsSuperuser,
		account.IsActive,
		string(account.UserType),
		account.FirstName,
		account.LastName,
		account.Email,
		account.ProfilePicture,
		account.AddressLine1,
		account.City,
		account.State,
		account.Pincode,
		account.UpdatedAt,
		account.ID,
	)
	if err != nil {
		if conflictErr := asConflict(err); conflictErr != nil {
			return conflictErr
		}
		return fmt.Errorf("sqlite: updating account %s: %w", account.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking update of account %s: %w", account.ID, err)
	}
	if affected == 0 {
		return apperror.NotFound("account", account.ID)
	}

	return nil
}

// Delete removes an account. Returns apperror.ErrNotFound if no account
// exists with that ID.
func (db *DB) Delete(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting account %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking delete of account %s: %w", id, err)
	}
	if affected == 0 {
		return apperror.NotFound("account", id)
	}

	return nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (*model.Account, error) {
	var (
		a        model.Account
		userType string
	)
	err := s.Scan(
		&a.ID,
		&a.Username,
		&a.PasswordHash,
		&a.IsStaff,
		&a.IsSuperuser,
		&a.IsActive,
		&userType,
		&a.FirstName,
		&a.LastName,
		&a.Email,
		&a.ProfilePicture,
		&a.AddressLine1,
		&a.City,
		&a.State,
		&a.Pincode,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.UserType = model.UserType(userType)
	return &a, nil
}
