package categoryrepo

import (
	"context"

	"gorm.io/gorm"

	"github.com/jarvishq/jarvis-server/internal/domain/category"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database/dbschema"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database/transaction"
	"github.com/jarvishq/jarvis-server/internal/utils/platformerrors"
)

type CategoryGormRepository struct {
	db *transaction.Database
}

var _ category.Repository = (*CategoryGormRepository)(nil)

func NewCategoryGormRepository(db *transaction.Database) category.Repository {
	return &CategoryGormRepository{db: db}
}

func (repo *CategoryGormRepository) Create(ctx context.Context, c *category.Category) error {
	entity := dbschema.NewSchemaCategory(c)
	if err := repo.db.GetTx(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to create category",
			err,
			"d4e8a1f3-6b2c-4d5e-9f8a-1c3b5d7e9001",
		)
	}
	*c = *entity.EtoD()
	return nil
}

func (repo *CategoryGormRepository) FindByID(ctx context.Context, id uint) (*category.Category, error) {
	var entity dbschema.Category
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err == gorm.ErrRecordNotFound {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound,
			"category not found",
			err,
			"d4e8a1f3-6b2c-4d5e-9f8a-1c3b5d7e9002",
		)
	}
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to find category by ID",
			err,
			"d4e8a1f3-6b2c-4d5e-9f8a-1c3b5d7e9003",
		)
	}
	return entity.EtoD(), nil
}

func (repo *CategoryGormRepository) FindByUserAndName(ctx context.Context, userID uint, name string) (*category.Category, error) {
	var entity dbschema.Category
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Where("user_id = ? AND LOWER(name) = LOWER(?)", userID, name).
		First(&entity).
		Error
	if err == gorm.ErrRecordNotFound {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound,
			"category not found",
			err,
			"d4e8a1f3-6b2c-4d5e-9f8a-1c3b5d7e9004",
		)
	}
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to find category by name",
			err,
			"d4e8a1f3-6b2c-4d5e-9f8a-1c3b5d7e9005",
		)
	}
	return entity.EtoD(), nil
}

func (repo *CategoryGormRepository) ListByUser(ctx context.Context, userID uint) ([]*category.Category, error) {
	var entities []dbschema.Category
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to list categories",
			err,
			"d4e8a1f3-6b2c-4d5e-9f8a-1c3b5d7e9006",
		)
	}

	result := make([]*category.Category, 0, len(entities))
	for i := range entities {
		result = append(result, entities[i].EtoD())
	}
	return result, nil
}

func (repo *CategoryGormRepository) Delete(ctx context.Context, id uint) error {
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Where("id = ?", id).
		Delete(&dbschema.Category{}).
		Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to delete category",
			err,
			"d4e8a1f3-6b2c-4d5e-9f8a-1c3b5d7e9007",
		)
	}
	return nil
}
