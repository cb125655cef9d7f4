package convorepo

import (
	"context"

	"github.com/jarvishq/jarvis-server/internal/domain/convo"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database/dbschema"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database/transaction"
	"github.com/jarvishq/jarvis-server/internal/utils/platformerrors"
)

type ConvoGormRepository struct {
	db *transaction.Database
}

var _ convo.Repository = (*ConvoGormRepository)(nil)

func NewConvoGormRepository(db *transaction.Database) convo.Repository {
	return &ConvoGormRepository{db: db}
}

func (repo *ConvoGormRepository) Append(ctx context.Context, turn *convo.Turn) error {
	entity := dbschema.NewSchemaConvoTurn(turn)
	if err := repo.db.GetTx(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to append conversation turn",
			err,
			"a7b2d4c6-9e5f-4a8b-8c2d-4f6e8a1b3001",
		)
	}
	turn.ID = entity.ID
	return nil
}

func (repo *ConvoGormRepository) ListRecent(ctx context.Context, userID uint, limit int) ([]*convo.Turn, error) {
	var entities []dbschema.ConvoTurn
	err := repo.db.GetTx(ctx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entities).
		Error
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerRepository,
			platformerrors.ErrorTypeDatabaseError,
			"failed to list conversation turns",
			err,
			"a7b2d4c6-9e5f-4a8b-8c2d-4f6e8a1b3002",
		)
	}

	result := make([]*convo.Turn, 0, len(entities))
	for i := range entities {
		result = append(result, entities[i].EtoD())
	}
	return result, nil
}
