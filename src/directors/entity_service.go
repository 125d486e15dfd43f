package directors

import (
	"context"
	"fmt"

	"crudforge/src/apperrors"
	"crudforge/src/repository"
	"crudforge/src/schema"

	"go.uber.org/zap"
)

// EntityService wraps a repository with business-facing error semantics.
// It holds no state of its own.
//
// The create/update asymmetry is deliberate: Create returns the duplicate
// sentinel (the caller can resubmit with different data), while Update
// raises DuplicateError so a dropped change is never silent.
type EntityService struct {
	entity *schema.EntityDefinition
	repo   repository.DocumentRepository
	logger *zap.SugaredLogger
}

func NewEntityService(repo repository.DocumentRepository, logger *zap.SugaredLogger) *EntityService {
	return &EntityService{
		entity: repo.Entity(),
		repo:   repo,
		logger: logger,
	}
}

func (s *EntityService) Entity() *schema.EntityDefinition {
	return s.entity
}

// Create persists a new document. On a duplicate submission it returns a
// nil document plus the violated unique fields: the repository's sentinel
// passes through untouched and is never converted into an error at this
// layer.
func (s *EntityService) Create(ctx context.Context, data repository.Document) (repository.Document, []string, error) {
	doc, violated, err := s.repo.Create(ctx, data)
	if err != nil {
		return nil, nil, err
	}
	if doc == nil {
		s.logger.Infow("Create rejected as duplicate",
			"entity", s.entity.Name,
			"fields", violated)
		return nil, violated, nil
	}
	s.logger.Infow("Created entity", "entity", s.entity.Name, "id", doc.ID())
	return doc, nil, nil
}

// Get reads a document by id. A caller asking for a specific id holds a
// reference, so absence is an anomaly here and raises NotFoundError.
func (s *EntityService) Get(ctx context.Context, id string) (repository.Document, error) {
	doc, err := s.repo.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperrors.NewNotFoundError(id)
	}
	return doc, nil
}

// Update applies a partial mutation. Absence raises NotFoundError and a
// unique-field collision propagates as DuplicateError.
func (s *EntityService) Update(ctx context.Context, id string, data repository.Document) (repository.Document, error) {
	doc, err := s.repo.Update(ctx, id, data)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperrors.NewNotFoundError(id)
	}
	s.logger.Infow("Updated entity", "entity", s.entity.Name, "id", id)
	return doc, nil
}

// Remove deletes a document, raising NotFoundError when it does not exist.
// If the document vanishes between the existence check and the delete, the
// anomaly is surfaced as a DatabaseError rather than swallowed.
func (s *EntityService) Remove(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	removed, err := s.repo.Remove(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return apperrors.NewDatabaseError(fmt.Errorf("document %s/%s disappeared during remove", s.entity.CollectionName(), id))
	}

	s.logger.Infow("Removed entity", "entity", s.entity.Name, "id", id)
	return nil
}

// Find pages through documents matching the filter.
func (s *EntityService) Find(ctx context.Context, filter repository.Document, window repository.PaginationWindow) (*repository.PaginatedResult, error) {
	result, err := s.repo.Find(ctx, filter, window)
	if err != nil {
		return nil, err
	}
	s.logger.Debugw("Found entities",
		"entity", s.entity.Name,
		"returned", len(result.Items),
		"total", result.Total)
	return result, nil
}

// Count returns the number of documents matching the filter.
func (s *EntityService) Count(ctx context.Context, filter repository.Document) (int64, error) {
	return s.repo.Count(ctx, filter)
}
