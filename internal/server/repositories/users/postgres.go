package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/passgate/internal/common"
	"github.com/dmitrijs2005/passgate/internal/dbx"
	"github.com/dmitrijs2005/passgate/internal/server/models"
)

const userColumns = `id, username, password, social_account_id, social_account, profile, name, created_at, updated_at`

var columnByField = map[Field]string{
	FieldID:              "id",
	FieldUsername:        "username",
	FieldSocialAccountID: "social_account_id",
	FieldSocialAccount:   "social_account",
	FieldName:            "name",
}

type PostgresDirectory struct {
	db dbx.DBTX
}

func NewPostgresDirectory(db dbx.DBTX) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (r *PostgresDirectory) FindOne(ctx context.Context, q Query) (*models.User, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	fields := make([]string, 0, len(q))
	for f := range q {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)

	conds := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields))
	for i, f := range fields {
		conds = append(conds, fmt.Sprintf("%s = $%d", columnByField[Field(f)], i+1))
		args = append(args, q[Field(f)])
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE ` + strings.Join(conds, " AND ") + ` LIMIT 1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresDirectory) Insert(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (username, password, social_account_id, social_account, profile, name)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING ` + userColumns

	created, err := scanUser(r.db.QueryRowContext(ctx, query,
		user.Username, user.Password, user.SocialAccountID, user.SocialAccount, jsonArg(user.Profile), user.Name))
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %v", common.ErrorAlreadyExists, err)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return created, nil
}

func (r *PostgresDirectory) UpdateByID(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	query :=
		`UPDATE users SET
		   username = COALESCE($2, username),
		   password = COALESCE($3, password),
		   social_account_id = COALESCE($4, social_account_id),
		   social_account = COALESCE($5, social_account),
		   profile = COALESCE($6::jsonb, profile),
		   name = COALESCE($7, name),
		   updated_at = now()
		 WHERE id = $1
		 RETURNING ` + userColumns

	updated, err := scanUser(r.db.QueryRowContext(ctx, query, id,
		patch.Username, patch.Password, patch.SocialAccountID, patch.SocialAccount, jsonArg(patch.Profile), patch.Name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		if dbx.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %v", common.ErrorAlreadyExists, err)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return updated, nil
}

// InTx runs fn inside a transaction when the underlying handle can start
// one; a directory already bound to a transaction runs fn directly.
func (r *PostgresDirectory) InTx(ctx context.Context, fn func(ctx context.Context, d Directory) error) error {
	starter, ok := r.db.(dbx.TxStarter)
	if !ok {
		return fn(ctx, r)
	}
	return dbx.WithTx(ctx, starter, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, NewPostgresDirectory(tx))
	})
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var username, password, socialID, social, name sql.NullString
	var profile []byte

	err := row.Scan(&u.ID, &username, &password, &socialID, &social, &profile, &name, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Username = nullable(username)
	u.Password = nullable(password)
	u.SocialAccountID = nullable(socialID)
	u.SocialAccount = nullable(social)
	u.Name = nullable(name)
	if len(profile) > 0 {
		u.Profile = profile
	}
	return &u, nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

// jsonArg sends an empty payload as NULL and anything else as JSON text.
func jsonArg(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
