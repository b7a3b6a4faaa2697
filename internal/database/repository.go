package database

import (
	"github.com/robalyx/levels/internal/database/models"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Repository provides access to all database models.
type Repository struct {
	ledger  *models.LedgerModel
	setting *models.SettingModel
	reward  *models.RewardModel
	ignore  *models.IgnoreModel
}

// NewRepository creates a new repository instance with all models.
func NewRepository(db *bun.DB, logger *zap.Logger) *Repository {
	return &Repository{
		ledger:  models.NewLedger(db, logger),
		setting: models.NewSetting(db, logger),
		reward:  models.NewReward(db, logger),
		ignore:  models.NewIgnore(db, logger),
	}
}

// Ledger returns the ledger model repository.
func (r *Repository) Ledger() *models.LedgerModel {
	return r.ledger
}

// Setting returns the setting model repository.
func (r *Repository) Setting() *models.SettingModel {
	return r.setting
}

// Reward returns the reward model repository.
func (r *Repository) Reward() *models.RewardModel {
	return r.reward
}

// Ignore returns the ignore model repository.
func (r *Repository) Ignore() *models.IgnoreModel {
	return r.ignore
}
