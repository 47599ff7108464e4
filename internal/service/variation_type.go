package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/catalog/internal/domain"
	"github.com/utafrali/catalog/internal/repository"
	apperrors "github.com/utafrali/catalog/pkg/errors"
)

// RemovalOutcome tells how a delete request was carried out.
type RemovalOutcome string

const (
	RemovalDeleted     RemovalOutcome = "deleted"
	RemovalDeactivated RemovalOutcome = "deactivated"
)

// VariationTypeService implements the business logic for variation types.
type VariationTypeService struct {
	uow    repository.UnitOfWork
	repos  repository.Repositories
	logger *slog.Logger
	now    func() time.Time
}

// NewVariationTypeService creates a new variation type service.
func NewVariationTypeService(uow repository.UnitOfWork, repos repository.Repositories, logger *slog.Logger) *VariationTypeService {
	return &VariationTypeService{uow: uow, repos: repos, logger: logger, now: utcNow}
}

// VariationTypeInput holds the parameters for creating a variation type.
type VariationTypeInput struct {
	Name        string
	DisplayName string
	Options     []domain.OptionSpec
}

// UpdateVariationTypeInput holds a partial update. Options, when set,
// replaces the whole option list.
type UpdateVariationTypeInput struct {
	Name        *string
	DisplayName *string
	IsActive    *bool
	Options     *[]domain.OptionSpec
}

// CreateVariationType creates a variation type with its options.
func (s *VariationTypeService) CreateVariationType(ctx context.Context, in VariationTypeInput) (*domain.VariationType, error) {
	vt, err := domain.NewVariationType(in.Name, in.DisplayName, in.Options, s.now())
	if err != nil {
		return nil, err
	}

	err = s.uow.Do(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := ensureVariationTypeNameFree(ctx, repos.VariationTypes, vt.Name, uuid.Nil); err != nil {
			return err
		}
		if err := repos.VariationTypes.Create(ctx, vt); err != nil {
			return fmt.Errorf("create variation type: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "variation type created",
		slog.String("variation_type_id", vt.ID.String()),
		slog.String("name", vt.Name),
		slog.Int("options", len(vt.Options)),
	)
	return vt, nil
}

// UpdateVariationType applies a partial update in one transaction. Removing
// an option that a variant still selects aborts the whole update.
func (s *VariationTypeService) UpdateVariationType(ctx context.Context, id uuid.UUID, in UpdateVariationTypeInput) (*domain.VariationType, error) {
	var updated *domain.VariationType
	err := s.uow.Do(ctx, func(ctx context.Context, repos repository.Repositories) error {
		vt, err := repos.VariationTypes.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get variation type: %w", err)
		}

		if in.Name != nil || in.DisplayName != nil {
			name, displayName := vt.Name, vt.DisplayName
			if in.Name != nil {
				name = *in.Name
				if in.DisplayName == nil && displayName == vt.Name {
					displayName = ""
				}
			}
			if in.DisplayName != nil {
				displayName = *in.DisplayName
			}
			if err := vt.Rename(name, displayName); err != nil {
				return err
			}
			if err := ensureVariationTypeNameFree(ctx, repos.VariationTypes, vt.Name, vt.ID); err != nil {
				return err
			}
		}
		if in.IsActive != nil {
			vt.IsActive = *in.IsActive
		}

		changes := domain.OptionChanges{Kept: vt.Options}
		if in.Options != nil {
			changes, err = vt.ApplyOptions(*in.Options)
			if err != nil {
				return err
			}
			if err := ensureOptionsUnused(ctx, repos.VariationTypes, changes.Removed); err != nil {
				return err
			}
		}

		domain.MarkUpdated(&vt.Audit, s.now())
		if err := repos.VariationTypes.Update(ctx, vt, changes); err != nil {
			return fmt.Errorf("update variation type: %w", err)
		}
		updated = vt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "variation type updated",
		slog.String("variation_type_id", updated.ID.String()),
		slog.String("name", updated.Name),
	)
	return updated, nil
}

// DeleteVariationType deletes an unreferenced type and deactivates a
// referenced one.
func (s *VariationTypeService) DeleteVariationType(ctx context.Context, id uuid.UUID) (RemovalOutcome, error) {
	var outcome RemovalOutcome
	err := s.uow.Do(ctx, func(ctx context.Context, repos repository.Repositories) error {
		vt, err := repos.VariationTypes.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get variation type: %w", err)
		}
		referenced, err := repos.VariationTypes.IsReferenced(ctx, id)
		if err != nil {
			return fmt.Errorf("check variation type references: %w", err)
		}
		if !referenced {
			if err := repos.VariationTypes.Delete(ctx, id); err != nil {
				return fmt.Errorf("delete variation type: %w", err)
			}
			outcome = RemovalDeleted
			return nil
		}
		vt.Deactivate(s.now())
		if err := repos.VariationTypes.Update(ctx, vt, domain.OptionChanges{Kept: vt.Options}); err != nil {
			return fmt.Errorf("deactivate variation type: %w", err)
		}
		outcome = RemovalDeactivated
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "variation type removed",
		slog.String("variation_type_id", id.String()),
		slog.String("outcome", string(outcome)),
	)
	return outcome, nil
}

// GetVariationType retrieves a variation type with its options.
func (s *VariationTypeService) GetVariationType(ctx context.Context, id uuid.UUID) (*domain.VariationType, error) {
	vt, err := s.repos.VariationTypes.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get variation type: %w", err)
	}
	return vt, nil
}

// ListVariationTypes returns variation types ordered by name.
func (s *VariationTypeService) ListVariationTypes(ctx context.Context, activeOnly bool) ([]*domain.VariationType, error) {
	types, err := s.repos.VariationTypes.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list variation types: %w", err)
	}
	return types, nil
}

func ensureVariationTypeNameFree(ctx context.Context, repo repository.VariationTypeRepository, name string, excludeID uuid.UUID) error {
	exists, err := repo.NameExists(ctx, name, excludeID)
	if err != nil {
		return fmt.Errorf("check variation type name: %w", err)
	}
	if exists {
		return apperrors.AlreadyExists("variation type", "name", name)
	}
	return nil
}

func ensureOptionsUnused(ctx context.Context, repo repository.VariationTypeRepository, removed []domain.VariantOption) error {
	if len(removed) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(removed))
	for _, opt := range removed {
		ids = append(ids, opt.ID)
	}
	inUse, err := repo.OptionsInUse(ctx, ids)
	if err != nil {
		return fmt.Errorf("check option usage: %w", err)
	}
	if len(inUse) == 0 {
		return nil
	}

	values := make([]string, 0, len(inUse))
	for _, opt := range removed {
		for _, id := range inUse {
			if opt.ID == id {
				values = append(values, opt.Value)
			}
		}
	}
	return apperrors.ConflictCode(domain.ErrCodeVariationOptionInUse,
		fmt.Sprintf("options still selected by product variants: %s", strings.Join(values, ", ")))
}
