package storage

import (
	"context"
	"time"

	"github.com/Nuthana-am/careslot/libs/db"
	"github.com/Nuthana-am/careslot/services/booking-service/internal/model"
)

type RuleRepository struct {
	pool *db.Pool
}

func NewRuleRepository(pool *db.Pool) *RuleRepository {
	return &RuleRepository{pool: pool}
}

func (r *RuleRepository) Create(ctx context.Context, rule model.AvailabilityRule) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO availability_rules (provider_id, weekday, start_minute, end_minute)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, rule.ProviderID, int(rule.Weekday), rule.StartMinute, rule.EndMinute).Scan(&id)
	if err != nil {
		return 0, mapError(err)
	}
	return id, nil
}

func (r *RuleRepository) ListRules(ctx context.Context, providerID string, weekday time.Weekday) ([]model.AvailabilityRule, error) {
	return r.list(ctx, `
		SELECT id, provider_id::text, weekday, start_minute, end_minute
		FROM availability_rules
		WHERE provider_id = $1 AND weekday = $2
		ORDER BY start_minute
	`, providerID, int(weekday))
}

func (r *RuleRepository) ListByProvider(ctx context.Context, providerID string) ([]model.AvailabilityRule, error) {
	return r.list(ctx, `
		SELECT id, provider_id::text, weekday, start_minute, end_minute
		FROM availability_rules
		WHERE provider_id = $1
		ORDER BY weekday, start_minute
	`, providerID)
}

func (r *RuleRepository) Delete(ctx context.Context, id int64, providerID string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM availability_rules
		WHERE id = $1 AND provider_id = $2
	`, id, providerID)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *RuleRepository) list(ctx context.Context, query string, args ...any) ([]model.AvailabilityRule, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []model.AvailabilityRule
	for rows.Next() {
		var rule model.AvailabilityRule
		var weekday int
		if err := rows.Scan(&rule.ID, &rule.ProviderID, &weekday, &rule.StartMinute, &rule.EndMinute); err != nil {
			return nil, mapError(err)
		}
		rule.Weekday = time.Weekday(weekday)
		out = append(out, rule)
	}
	if rows.Err() != nil {
		return nil, mapError(rows.Err())
	}
	return out, nil
}
