package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophid/internal/common"
	"github.com/dmitrijs2005/gophid/internal/dbx"
	"github.com/dmitrijs2005/gophid/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts user and fills in the generated columns. A duplicate email
// yields common.ErrorAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (fname, lname, email, password)
		 VALUES ($1, $2, $3, $4)
		 RETURNING user_id, active, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.GivenName, nullString(user.FamilyName), user.Email, user.PasswordHash).
		Scan(&user.ID, &user.Active, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}

	return user, nil
}

func (r *PostgresRepository) CountByEmail(ctx context.Context, email string) (int64, error) {
	query :=
		`SELECT COUNT(*) FROM users
		 WHERE email = $1
		 `

	var n int64
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&n); err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT user_id, fname, lname, email, password, active, created_at, updated_at FROM users
		 WHERE email = $1
		 `

	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query :=
		`SELECT user_id, fname, lname, email, password, active, created_at, updated_at FROM users
		 WHERE user_id = $1
		 `

	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var familyName sql.NullString

	err := row.Scan(&user.ID, &user.GivenName, &familyName, &user.Email,
		&user.PasswordHash, &user.Active, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}

	user.FamilyName = familyName.String
	return user, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// mapErr translates driver errors into the common sentinels.
func mapErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrorNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", common.ErrorAlreadyExists, pgErr.ConstraintName)
	}

	return fmt.Errorf("db error: %w", err)
}
