package port

import (
	"context"

	"github.com/berfenger/melcloud2mqtt/internal/core/domain"
)

type EntryStore interface {
	List() ([]domain.ConfigEntry, error)
	Get(id string) (*domain.ConfigEntry, error)
	FindByEmail(email string) (*domain.ConfigEntry, error)
	// Save creates the entry or replaces the one with the same id.
	Save(entry domain.ConfigEntry) error
	Delete(id string) (bool, error)
}

type ConfigFlow interface {
	StepUser(ctx context.Context, input *domain.UserInput) (domain.FlowResult, error)
	StepImport(ctx context.Context, input domain.ImportInput) (domain.FlowResult, error)
}
