package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"billing-user/internal/domain"
	"billing-user/internal/domain/model"
	"billing-user/internal/domain/ports/repository"
)

var _ repository.PlanRepository = (*PostgresPlanRepo)(nil)

type PostgresPlanRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPlanRepo(pool *pgxpool.Pool) *PostgresPlanRepo {
	return &PostgresPlanRepo{pool: pool}
}

func (r *PostgresPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id int) (*model.Plan, error) {
	const q = `
SELECT id_user_type_plan, id_user_type, description, fee, email_qty, subscribers_qty
  FROM user_types_plans
 WHERE id_user_type_plan = $1;`
	p, err := scanPlan(pickRow(ctx, r.pool, tx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find plan by id: %w", err)
	}
	return p, nil
}

func scanPlan(row pgx.Row) (*model.Plan, error) {
	var (
		p        model.Plan
		userType int
	)
	if err := row.Scan(&p.ID, &userType, &p.Description, &p.Fee, &p.EmailQty, &p.SubscribersQty); err != nil {
		return nil, err
	}
	p.Type = model.UserType(userType)
	return &p, nil
}

var _ repository.PromotionRepository = (*PostgresPromotionRepo)(nil)

type PostgresPromotionRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPromotionRepo(pool *pgxpool.Pool) *PostgresPromotionRepo {
	return &PostgresPromotionRepo{pool: pool}
}

// FindByCode matches active promotions only; codes are case-insensitive.
func (r *PostgresPromotionRepo) FindByCode(ctx context.Context, tx repository.Tx, code string, planID int) (*model.Promotion, error) {
	const q = `
SELECT id_promotion, code, id_user_type_plan, discount_percentage, extra_credits, duration, times_used
  FROM promotions
 WHERE UPPER(code) = UPPER($1)
   AND id_user_type_plan = $2
   AND active;`
	var p model.Promotion
	err := pickRow(ctx, r.pool, tx, q, code, planID).Scan(
		&p.ID, &p.Code, &p.PlanID, &p.DiscountPercentage, &p.ExtraCredits, &p.Duration, &p.TimesUsed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find promotion by code: %w", err)
	}
	return &p, nil
}

func (r *PostgresPromotionRepo) IncrementUsage(ctx context.Context, tx repository.Tx, promotionID int) error {
	const q = `UPDATE promotions SET times_used = times_used + 1 WHERE id_promotion = $1;`
	ct, err := execSQL(ctx, r.pool, tx, q, promotionID)
	if err != nil {
		return fmt.Errorf("increment promotion usage: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
