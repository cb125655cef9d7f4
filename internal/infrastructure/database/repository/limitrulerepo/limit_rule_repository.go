package limitrulerepo

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jarvishq/jarvis-server/internal/domain/limitrule"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database/dbschema"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database/transaction"
	"github.com/jarvishq/jarvis-server/internal/utils/platformerrors"
)

type LimitRuleGormRepository struct {
	db *transaction.Database
}

var _ limitrule.Repository = (*LimitRuleGormRepository)(nil)

func NewLimitRuleGormRepository(db *transaction.Database) limitrule.Repository {
	return &LimitRuleGormRepository{db: db}
}

func (repo *LimitRuleGormRepository) Create(ctx context.Context, r *limitrule.Rule) error {
	entity := dbschema.NewSchemaLimitRule(r)
	if err := repo.db.GetTx(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to create limit rule",
			err,
			"f6a1c3b5-8d4e-4f7a-9b1c-3e5d7f9a2001",
		)
	}
	r.ID = entity.ID
	r.CreatedAt = entity.CreatedAt
	r.UpdatedAt = entity.UpdatedAt
	return nil
}

func (repo *LimitRuleGormRepository) FindByID(ctx context.Context, id uint) (*limitrule.Rule, error) {
	var entity dbschema.LimitRule
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Preload("Category").
		Where("id = ?", id).
		First(&entity).
		Error
	if err == gorm.ErrRecordNotFound {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound,
			"limit rule not found",
			err,
			"f6a1c3b5-8d4e-4f7a-9b1c-3e5d7f9a2002",
		)
	}
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to find limit rule by ID",
			err,
			"f6a1c3b5-8d4e-4f7a-9b1c-3e5d7f9a2003",
		)
	}
	return entity.EtoD(), nil
}

func (repo *LimitRuleGormRepository) FindActiveByUser(ctx context.Context, userID uint) ([]*limitrule.Rule, error) {
	return repo.findActive(ctx, "user_id = ? AND active = true", userID)
}

func (repo *LimitRuleGormRepository) FindActiveByUserAndCategory(ctx context.Context, userID, categoryID uint) ([]*limitrule.Rule, error) {
	return repo.findActive(ctx, "user_id = ? AND category_id = ? AND active = true", userID, categoryID)
}

func (repo *LimitRuleGormRepository) findActive(ctx context.Context, cond string, args ...any) ([]*limitrule.Rule, error) {
	var entities []dbschema.LimitRule
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Preload("Category").
		Where(cond, args...).
		Order("category_id ASC, period_kind ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to list active limit rules",
			err,
			"f6a1c3b5-8d4e-4f7a-9b1c-3e5d7f9a2004",
		)
	}

	result := make([]*limitrule.Rule, 0, len(entities))
	for i := range entities {
		result = append(result, entities[i].EtoD())
	}
	return result, nil
}

func (repo *LimitRuleGormRepository) FindActiveByUserCategoryKind(ctx context.Context, userID, categoryID uint, kind limitrule.PeriodKind) (*limitrule.Rule, error) {
	var entity dbschema.LimitRule
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Preload("Category").
		Where("user_id = ? AND category_id = ? AND period_kind = ? AND active = true", userID, categoryID, string(kind)).
		First(&entity).
		Error
	if err == gorm.ErrRecordNotFound {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound,
			"limit rule not found",
			err,
			"f6a1c3b5-8d4e-4f7a-9b1c-3e5d7f9a2005",
		)
	}
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to find limit rule by scope",
			err,
			"f6a1c3b5-8d4e-4f7a-9b1c-3e5d7f9a2006",
		)
	}
	return entity.EtoD(), nil
}

// ApplyDelta is a single guarded UPDATE. The active guard makes a rule
// deactivated mid-flight report zero affected rows; the delta key guard
// makes re-applying the same key a no-op.
func (repo *LimitRuleGormRepository) ApplyDelta(ctx context.Context, ruleID uint, delta decimal.Decimal, deltaKey string, at time.Time) (int64, error) {
	result := repo.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.LimitRule{}).
		Where("id = ? AND active = true AND (last_delta_key IS NULL OR last_delta_key <> ?)", ruleID, deltaKey).
		Updates(map[string]any{
			"current_total":  gorm.Expr("current_total + ?", delta),
			"last_delta_key": deltaKey,
			"last_updated":   at,
		})
	if result.Error != nil {
		return 0, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to apply limit rule delta",
			result.Error,
			"f6a1c3b5-8d4e-4f7a-9b1c-3e5d7f9a2007",
		)
	}
	return result.RowsAffected, nil
}

// ResetWindow advances the accounting window and zeroes the running total,
// guarded by the active flag like ApplyDelta.
func (repo *LimitRuleGormRepository) ResetWindow(ctx context.Context, ruleID uint, newStart time.Time, newEnd *time.Time, at time.Time) (int64, error) {
	result := repo.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.LimitRule{}).
		Where("id = ? AND active = true", ruleID).
		Updates(map[string]any{
			"period_start":   newStart,
			"period_end":     newEnd,
			"current_total":  decimal.Zero,
			"last_delta_key": nil,
			"last_updated":   at,
		})
	if result.Error != nil {
		return 0, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to reset limit rule window",
			result.Error,
			"f6a1c3b5-8d4e-4f7a-9b1c-3e5d7f9a2008",
		)
	}
	return result.RowsAffected, nil
}

func (repo *LimitRuleGormRepository) Deactivate(ctx context.Context, ruleID uint) error {
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.LimitRule{}).
		Where("id = ?", ruleID).
		Update("active", false).
		Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to deactivate limit rule",
			err,
			"f6a1c3b5-8d4e-4f7a-9b1c-3e5d7f9a2009",
		)
	}
	return nil
}
