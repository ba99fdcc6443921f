package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/gablilli/selfhosted-classeviva/core/session"
)

type userRow struct {
	ID            int64       `db:"id"`
	Username      string      `db:"username"`
	UpstreamToken null.String `db:"upstream_token"`
	FirstName     null.String `db:"first_name"`
	LastName      null.String `db:"last_name"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

func newUserRow(usr session.User) userRow {
	return userRow{
		ID:            usr.ID,
		Username:      usr.Username,
		UpstreamToken: null.NewString(usr.UpstreamToken, usr.UpstreamToken != ""),
		FirstName:     null.NewString(usr.FirstName, usr.FirstName != ""),
		LastName:      null.NewString(usr.LastName, usr.LastName != ""),
		UpdatedAt:     usr.UpdatedAt,
	}
}

func (row userRow) user() session.User {
	return session.User{
		ID:            row.ID,
		Username:      row.Username,
		UpstreamToken: row.UpstreamToken.String,
		FirstName:     row.FirstName.String,
		LastName:      row.LastName.String,
		UpdatedAt:     row.UpdatedAt,
	}
}

const (
	userColumns = `id, username, upstream_token, first_name, last_name, updated_at`

	upsertUserQuery = `
INSERT INTO users (username, upstream_token, first_name, last_name, updated_at)
VALUES (:username, :upstream_token, :first_name, :last_name, :updated_at)
ON CONFLICT (username) DO UPDATE SET
    upstream_token = EXCLUDED.upstream_token,
    first_name     = EXCLUDED.first_name,
    last_name      = EXCLUDED.last_name,
    updated_at     = EXCLUDED.updated_at
RETURNING ` + userColumns
)

type userRepository struct {
	db *sqlx.DB
}

var _ session.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) UpsertUser(ctx context.Context, usr session.User) (session.User, error) {
	if usr.UpdatedAt.IsZero() {
		usr.UpdatedAt = time.Now().UTC()
	}
	query, args, err := sqlx.Named(upsertUserQuery, newUserRow(usr))
	if err != nil {
		return session.User{}, errors.Wrap(err, "binding user")
	}

	var row userRow
	if err = repo.db.QueryRowxContext(ctx, repo.db.Rebind(query), args...).StructScan(&row); err != nil {
		return session.User{}, errors.Wrap(err, "upserting user")
	}
	return row.user(), nil
}

func (repo *userRepository) GetUserByUsername(ctx context.Context, username string) (session.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return session.User{}, session.ErrUserNotFound
		}
		return session.User{}, errors.Wrap(err, "selecting user")
	}
	return row.user(), nil
}
