package repository

import (
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database/repository/categoryrepo"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database/repository/convorepo"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database/repository/expenserepo"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database/repository/limitrulerepo"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database/repository/userrepo"

	"github.com/google/wire"
)

var RepositoryProvider = wire.NewSet(
	userrepo.NewUserGormRepository,
	categoryrepo.NewCategoryGormRepository,
	expenserepo.NewExpenseGormRepository,
	limitrulerepo.NewLimitRuleGormRepository,
	convorepo.NewConvoGormRepository,
)
