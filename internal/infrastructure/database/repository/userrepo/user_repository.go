package userrepo

import (
	"context"

	"gorm.io/gorm"

	"github.com/jarvishq/jarvis-server/internal/domain/user"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database/dbschema"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database/transaction"
	"github.com/jarvishq/jarvis-server/internal/utils/platformerrors"
)

type UserGormRepository struct {
	db *transaction.Database
}

var _ user.Repository = (*UserGormRepository)(nil)

func NewUserGormRepository(db *transaction.Database) user.Repository {
	return &UserGormRepository{db: db}
}

func (repo *UserGormRepository) Create(ctx context.Context, usr *user.User) error {
	entity := dbschema.NewSchemaUser(usr)
	if err := repo.db.GetTx(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to create user",
			err,
			"c1f7b8d2-9e3a-4b6c-8d1e-5f2a7b9c4001",
		)
	}
	*usr = *entity.EtoD()
	return nil
}

func (repo *UserGormRepository) FindByIdentity(ctx context.Context, identity string) (*user.User, error) {
	var entity dbschema.User
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Where("identity = ?", identity).
		First(&entity).
		Error
	if err == gorm.ErrRecordNotFound {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound,
			"user not found",
			err,
			"c1f7b8d2-9e3a-4b6c-8d1e-5f2a7b9c4002",
		)
	}
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to find user by identity",
			err,
			"c1f7b8d2-9e3a-4b6c-8d1e-5f2a7b9c4003",
		)
	}
	return entity.EtoD(), nil
}

func (repo *UserGormRepository) FindByID(ctx context.Context, id uint) (*user.User, error) {
	var entity dbschema.User
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err == gorm.ErrRecordNotFound {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeNotFound,
			"user not found",
			err,
			"c1f7b8d2-9e3a-4b6c-8d1e-5f2a7b9c4004",
		)
	}
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to find user by ID",
			err,
			"c1f7b8d2-9e3a-4b6c-8d1e-5f2a7b9c4005",
		)
	}
	return entity.EtoD(), nil
}

func (repo *UserGormRepository) Update(ctx context.Context, usr *user.User) error {
	entity := dbschema.NewSchemaUser(usr)
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Model(&dbschema.User{}).
		Where("id = ?", entity.ID).
		Updates(map[string]any{
			"display_name":    entity.DisplayName,
			"setup_stage":     entity.SetupStage,
			"last_message_at": entity.LastMessageAt,
		}).Error
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to update user",
			err,
			"c1f7b8d2-9e3a-4b6c-8d1e-5f2a7b9c4006",
		)
	}
	return nil
}
