package infrastructure

import (
	"fmt"

	"github.com/google/wire"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/jarvishq/jarvis-server/internal/config"
	domainnlu "github.com/jarvishq/jarvis-server/internal/domain/nlu"
	"github.com/jarvishq/jarvis-server/internal/domain/convo"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/contextstore"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/crontab"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database/repository"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/database/transaction"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/logger"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/nlu"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/telegram"
)

// ProvideConfig loads and provides the application configuration
func ProvideConfig() (*config.Config, error) {
	return config.Load()
}

// ProvideDatabase provides a database connection
func ProvideDatabase(cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.NewDB(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		log.Info().Msg("Running database migrations...")
		if err := database.Migration(db, "jarvis."); err != nil {
			log.Error().Err(err).Msg("Failed to run database migrations")
			return nil, err
		}
		log.Info().Msg("Database migrations completed successfully")
	}

	return db, nil
}

// ProvideTransactionDatabase provides a transaction database wrapper
func ProvideTransactionDatabase(db *gorm.DB) *transaction.Database {
	return transaction.NewDatabase(db)
}

// ProvideContextStore selects the conversation context backend.
func ProvideContextStore(cfg *config.Config) (convo.Store, error) {
	switch cfg.ContextStoreBackend {
	case "redis":
		return contextstore.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.ContextTTL)
	case "memory":
		return contextstore.NewMemoryStore(cfg.ContextTTL), nil
	default:
		return nil, fmt.Errorf("unknown context store backend: %s", cfg.ContextStoreBackend)
	}
}

// ProvideClassifier provides the language model backed classifier.
func ProvideClassifier(cfg *config.Config) domainnlu.Classifier {
	return nlu.NewClient(cfg)
}

// InfrastructureProvider provides all infrastructure dependencies
var InfrastructureProvider = wire.NewSet(
	// Config
	ProvideConfig,

	// Database
	ProvideDatabase,
	ProvideTransactionDatabase,

	// Repositories
	repository.RepositoryProvider,

	// Conversation context store
	ProvideContextStore,

	// Classifier
	ProvideClassifier,

	// Telegram transport
	telegram.NewClient,
	telegram.NewPoller,

	// Logger
	logger.GetLogger,

	// Crontab for context expiry
	crontab.NewCrontab,
)
