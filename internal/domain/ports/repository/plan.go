package repository

import (
	"context"

	"billing-user/internal/domain/model"
)

// PlanRepository is the port for plan reference data.
type PlanRepository interface {
	FindByID(ctx context.Context, tx Tx, id int) (*model.Plan, error)
}

// PromotionRepository is the port for discount codes.
type PromotionRepository interface {
	// FindByCode returns domain.ErrNotFound when the code does not exist for planID.
	FindByCode(ctx context.Context, tx Tx, code string, planID int) (*model.Promotion, error)
	IncrementUsage(ctx context.Context, tx Tx, promotionID int) error
}
