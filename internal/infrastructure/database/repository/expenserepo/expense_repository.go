package expenserepo

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jarvishq/jarvis-server/internal/domain/expense"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database/dbschema"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database/transaction"
	"github.com/jarvishq/jarvis-server/internal/utils/platformerrors"
)

type ExpenseGormRepository struct {
	db *transaction.Database
}

var _ expense.Repository = (*ExpenseGormRepository)(nil)

func NewExpenseGormRepository(db *transaction.Database) expense.Repository {
	return &ExpenseGormRepository{db: db}
}

func (repo *ExpenseGormRepository) Create(ctx context.Context, e *expense.Expense) error {
	entity := dbschema.NewSchemaExpense(e)
	if err := repo.db.GetTx(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to create expense",
			err,
			"e5f9b2a4-7c3d-4e6f-8a9b-2d4c6e8f1001",
		)
	}
	e.ID = entity.ID
	return nil
}

func (repo *ExpenseGormRepository) FindByPublicID(ctx context.Context, userID uint, publicID string) (*expense.Expense, error) {
	var entity dbschema.Expense
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Preload("Category").
		Where("user_id = ? AND public_id = ?", userID, publicID).
		First(&entity).
		Error
	if err == gorm.ErrRecordNotFound {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound,
			"expense not found",
			err,
			"e5f9b2a4-7c3d-4e6f-8a9b-2d4c6e8f1002",
		)
	}
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to find expense by public ID",
			err,
			"e5f9b2a4-7c3d-4e6f-8a9b-2d4c6e8f1003",
		)
	}
	return entity.EtoD(), nil
}

func (repo *ExpenseGormRepository) FindLastByUser(ctx context.Context, userID uint) (*expense.Expense, error) {
	var entity dbschema.Expense
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Preload("Category").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		First(&entity).
		Error
	if err == gorm.ErrRecordNotFound {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound,
			"no expenses recorded",
			err,
			"e5f9b2a4-7c3d-4e6f-8a9b-2d4c6e8f1004",
		)
	}
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to find last expense",
			err,
			"e5f9b2a4-7c3d-4e6f-8a9b-2d4c6e8f1005",
		)
	}
	return entity.EtoD(), nil
}

func (repo *ExpenseGormRepository) List(ctx context.Context, filter expense.Filter) ([]*expense.Expense, error) {
	query := repo.scoped(ctx, filter).Preload("Category").Order("created_at DESC, id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var entities []dbschema.Expense
	if err := query.Find(&entities).Error; err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to list expenses",
			err,
			"e5f9b2a4-7c3d-4e6f-8a9b-2d4c6e8f1006",
		)
	}

	result := make([]*expense.Expense, 0, len(entities))
	for i := range entities {
		result = append(result, entities[i].EtoD())
	}
	return result, nil
}

func (repo *ExpenseGormRepository) Sum(ctx context.Context, filter expense.Filter) (decimal.Decimal, int64, error) {
	var row struct {
		Total decimal.Decimal
		Count int64
	}
	err := repo.scoped(ctx, filter).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Scan(&row).
		Error
	if err != nil {
		return decimal.Zero, 0, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to sum expenses",
			err,
			"e5f9b2a4-7c3d-4e6f-8a9b-2d4c6e8f1007",
		)
	}
	return row.Total, row.Count, nil
}

func (repo *ExpenseGormRepository) SumByCategory(ctx context.Context, filter expense.Filter) ([]expense.CategoryTotal, error) {
	var rows []struct {
		CategoryID   uint
		CategoryName string
		Total        decimal.Decimal
		Count        int64
	}
	err := repo.scoped(ctx, filter).
		Select("expenses.category_id AS category_id, categories.name AS category_name, COALESCE(SUM(expenses.amount), 0) AS total, COUNT(*) AS count").
		Joins("JOIN jarvis.categories categories ON categories.id = expenses.category_id").
		Group("expenses.category_id, categories.name").
		Order("total DESC").
		Scan(&rows).
		Error
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to sum expenses by category",
			err,
			"e5f9b2a4-7c3d-4e6f-8a9b-2d4c6e8f1008",
		)
	}

	result := make([]expense.CategoryTotal, 0, len(rows))
	for _, r := range rows {
		result = append(result, expense.CategoryTotal{
			CategoryID:   r.CategoryID,
			CategoryName: r.CategoryName,
			Total:        r.Total,
			Count:        r.Count,
		})
	}
	return result, nil
}

func (repo *ExpenseGormRepository) CountByCategory(ctx context.Context, userID, categoryID uint) (int64, error) {
	var count int64
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.Expense{}).
		Where("user_id = ? AND category_id = ?", userID, categoryID).
		Count(&count).
		Error
	if err != nil {
		return 0, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to count expenses by category",
			err,
			"e5f9b2a4-7c3d-4e6f-8a9b-2d4c6e8f1009",
		)
	}
	return count, nil
}

func (repo *ExpenseGormRepository) Delete(ctx context.Context, id uint) error {
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Where("id = ?", id).
		Delete(&dbschema.Expense{}).
		Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to delete expense",
			err,
			"e5f9b2a4-7c3d-4e6f-8a9b-2d4c6e8f1010",
		)
	}
	return nil
}

// scoped applies the common filter clauses onto an expense query.
func (repo *ExpenseGormRepository) scoped(ctx context.Context, filter expense.Filter) *gorm.DB {
	query := repo.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.Expense{}).
		Where("expenses.user_id = ?", filter.UserID)
	if filter.CategoryID != nil {
		query = query.Where("expenses.category_id = ?", *filter.CategoryID)
	}
	if !filter.From.IsZero() {
		query = query.Where("expenses.created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		query = query.Where("expenses.created_at < ?", filter.To)
	}
	return query
}
