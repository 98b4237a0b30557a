package storage

import (
	"context"
	"fmt"

	"github.com/Nuthana-am/careslot/libs/db"
	"github.com/Nuthana-am/careslot/services/booking-service/internal/model"
)

type UserRepository struct {
	pool *db.Pool
}

func NewUserRepository(pool *db.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, u model.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, password_hash, role, specialty, bio, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.Specialty, u.Bio, u.Phone)
	if isPgCode(err, codeUniqueViolation) {
		return fmt.Errorf("%w: email already registered", model.ErrInvalidArgument)
	}
	return mapError(err)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (model.User, error) {
	return r.getWhere(ctx, "id = $1", id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getWhere(ctx, "email = $1", email)
}

func (r *UserRepository) getWhere(ctx context.Context, cond string, arg any) (model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, email, password_hash, role, specialty, bio, phone, created_at
		FROM users
		WHERE `+cond, arg).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Specialty, &u.Bio, &u.Phone, &u.CreatedAt,
	)
	if err != nil {
		return model.User{}, mapError(err)
	}
	return u, nil
}

func (r *UserRepository) ListProviders(ctx context.Context, limit int) ([]model.User, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, name, email, password_hash, role, specialty, bio, phone, created_at
		FROM users
		WHERE role = $1
		ORDER BY name
		LIMIT $2
	`, model.RoleProvider, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Specialty, &u.Bio, &u.Phone, &u.CreatedAt); err != nil {
			return nil, mapError(err)
		}
		out = append(out, u)
	}
	if rows.Err() != nil {
		return nil, mapError(rows.Err())
	}
	return out, nil
}
