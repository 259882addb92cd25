package accounts

import (
	"context"
	"database/sql"
	"errors"

	"github.com/joao-fontenele/storefront-commerce/internal/domain"
)

type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	return r.findOne(ctx, `SELECT id, email FROM profiles WHERE id = $1`, id)
}

// FindByEmail matches the address exactly. When several profiles share an
// address the oldest one wins.
func (r *ProfileRepository) FindByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	return r.findOne(ctx, `
		SELECT id, email FROM profiles
		WHERE email = $1
		ORDER BY created_at
		LIMIT 1
	`, email)
}

// EnsureProfile creates the profile row for a signed-in user on first sight.
// An existing row is left as it is.
func (r *ProfileRepository) EnsureProfile(ctx context.Context, profile domain.Profile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (id, email)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`, profile.ID, sql.NullString{String: profile.Email, Valid: profile.Email != ""})
	return err
}

func (r *ProfileRepository) findOne(ctx context.Context, query string, arg string) (*domain.Profile, error) {
	profile := &domain.Profile{}
	var email sql.NullString

	err := r.db.QueryRowContext(ctx, query, arg).Scan(&profile.ID, &email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	profile.Email = email.String
	return profile, nil
}
