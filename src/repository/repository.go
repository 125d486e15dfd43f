package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"crudforge/src/apperrors"
	"crudforge/src/helpers"
	"crudforge/src/schema"
	"crudforge/src/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DocumentRepository is the CRUD contract for one entity collection.
//
// Two outcomes are sentinels, not errors: Create returns a nil document and
// the violated unique fields (in declaration order) when the pre-check
// rejects the data, and Read/Update return (nil, nil) when no document has
// the given id. Everything else that goes wrong is a typed error.
type DocumentRepository interface {
	Entity() *schema.EntityDefinition
	Initialize(ctx context.Context) error
	Create(ctx context.Context, data Document) (Document, []string, error)
	Read(ctx context.Context, id string) (Document, error)
	Update(ctx context.Context, id string, data Document) (Document, error)
	Remove(ctx context.Context, id string) (bool, error)
	Find(ctx context.Context, filter Document, window PaginationWindow) (*PaginatedResult, error)
	Count(ctx context.Context, filter Document) (int64, error)
}

// MongoRepository implements DocumentRepository against one MongoDB
// collection. The store connection is shared and injected at construction.
type MongoRepository struct {
	entity *schema.EntityDefinition
	store  *storage.MongoStore
	logger *zap.SugaredLogger
}

func NewMongoRepository(entity *schema.EntityDefinition, store *storage.MongoStore, logger *zap.SugaredLogger) *MongoRepository {
	return &MongoRepository{
		entity: entity,
		store:  store,
		logger: logger,
	}
}

func (r *MongoRepository) Entity() *schema.EntityDefinition {
	return r.entity
}

func (r *MongoRepository) collection() *mongo.Collection {
	return r.store.Collection(r.entity.CollectionName())
}

// Initialize idempotently ensures the backing collection exists and that a
// unique index exists for every declared unique field. Running it twice
// produces no error and no duplicate indexes.
func (r *MongoRepository) Initialize(ctx context.Context) error {
	if err := r.store.EnsureCollection(ctx, r.entity.CollectionName()); err != nil {
		return apperrors.NewDatabaseError(err)
	}

	for _, field := range r.entity.UniqueFields {
		model := mongo.IndexModel{
			Keys: bson.D{{Key: field, Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName(storage.UniqueIndexName(field)),
		}
		if _, err := r.collection().Indexes().CreateOne(ctx, model); err != nil {
			if indexAlreadyExists(err) {
				continue
			}
			return apperrors.NewDatabaseError(fmt.Errorf("error creating unique index for field '%s': %w", field, err))
		}
		r.logger.Infow("Ensured unique index",
			"entity", r.entity.Name,
			"field", field,
			"index", storage.UniqueIndexName(field))
	}

	return nil
}

func indexAlreadyExists(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		switch cmdErr.Name {
		case "IndexOptionsConflict", "IndexKeySpecsConflict":
			return true
		}
	}
	return strings.Contains(err.Error(), "already exists")
}

// Create inserts a new document after the two-phase uniqueness check. The
// pre-check gives duplicate submissions a clean sentinel carrying the
// violated fields; the unique index remains the correctness backstop for
// the race between check and insert.
func (r *MongoRepository) Create(ctx context.Context, data Document) (Document, []string, error) {
	violated, err := r.checkUnique(ctx, data, "")
	if err != nil {
		return nil, nil, err
	}
	if len(violated) > 0 {
		r.logger.Warnw("Rejected duplicate submission",
			"entity", r.entity.Name,
			"fields", violated)
		return nil, violated, nil
	}

	doc := data.Clone()
	doc[FieldID] = helpers.GenerateUUID()
	doc[FieldCreatedAt] = time.Now().UTC()

	if _, err := r.collection().InsertOne(ctx, doc); err != nil {
		// Lost the race between pre-check and insert: the unique index
		// rejected the write, so report the offending field.
		if storage.IsDuplicateKeyError(err) {
			return nil, nil, r.duplicateError(err)
		}
		return nil, nil, apperrors.NewDatabaseError(fmt.Errorf("error inserting into %s: %w", r.entity.CollectionName(), err))
	}

	r.logger.Infow("Created document", "entity", r.entity.Name, "id", doc.ID())
	return doc, nil, nil
}

// Read fetches one document by id. A malformed id is a validation failure,
// never a silent "not found"; the two are distinct conditions.
func (r *MongoRepository) Read(ctx context.Context, id string) (Document, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	var doc Document
	err := r.collection().FindOne(ctx, bson.M{FieldID: id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(fmt.Errorf("error reading %s/%s: %w", r.entity.CollectionName(), id, err))
	}
	return doc, nil
}

// Update applies a partial mutation. The identifier and creation timestamp
// are stripped from the payload so they can never be rewritten. The unique
// pre-check excludes the document being updated from the scan.
func (r *MongoRepository) Update(ctx context.Context, id string, data Document) (Document, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	update := data.Clone()
	delete(update, FieldID)
	delete(update, FieldCreatedAt)
	if len(update) == 0 {
		return r.Read(ctx, id)
	}

	violated, err := r.checkUnique(ctx, update, id)
	if err != nil {
		return nil, err
	}
	if len(violated) > 0 {
		return nil, apperrors.NewDuplicateError(violated[0])
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc Document
	err = r.collection().FindOneAndUpdate(ctx, bson.M{FieldID: id}, bson.M{"$set": update}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		if storage.IsDuplicateKeyError(err) {
			return nil, r.duplicateError(err)
		}
		return nil, apperrors.NewDatabaseError(fmt.Errorf("error updating %s/%s: %w", r.entity.CollectionName(), id, err))
	}

	r.logger.Infow("Updated document", "entity", r.entity.Name, "id", id)
	return doc, nil
}

// Remove deletes one document by id. The boolean reports whether anything
// was actually deleted; "nothing to delete" is not an error.
func (r *MongoRepository) Remove(ctx context.Context, id string) (bool, error) {
	if err := validateID(id); err != nil {
		return false, err
	}

	result, err := r.collection().DeleteOne(ctx, bson.M{FieldID: id})
	if err != nil {
		return false, apperrors.NewDatabaseError(fmt.Errorf("error deleting %s/%s: %w", r.entity.CollectionName(), id, err))
	}

	removed := result.DeletedCount > 0
	if removed {
		r.logger.Infow("Removed document", "entity", r.entity.Name, "id", id)
	}
	return removed, nil
}

// Find applies an equality filter plus the pagination window. The total
// count and the page are issued concurrently; point-in-time skew between
// them is an accepted limitation of the store.
func (r *MongoRepository) Find(ctx context.Context, filter Document, window PaginationWindow) (*PaginatedResult, error) {
	window = window.Normalize()
	match := filterQuery(filter)

	var (
		total int64
		items []Document
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := r.collection().CountDocuments(gctx, match)
		if err != nil {
			return fmt.Errorf("error counting %s: %w", r.entity.CollectionName(), err)
		}
		total = n
		return nil
	})
	g.Go(func() error {
		opts := options.Find().
			SetSkip(window.Skip).
			SetLimit(window.Limit).
			SetSort(bson.D{{Key: window.SortField, Value: int(window.SortDirection)}})
		cursor, err := r.collection().Find(gctx, match, opts)
		if err != nil {
			return fmt.Errorf("error querying %s: %w", r.entity.CollectionName(), err)
		}
		if err := cursor.All(gctx, &items); err != nil {
			return fmt.Errorf("error decoding %s results: %w", r.entity.CollectionName(), err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	return NewPaginatedResult(items, window, total), nil
}

// Count returns the total number of documents matching the filter,
// independent of any pagination.
func (r *MongoRepository) Count(ctx context.Context, filter Document) (int64, error) {
	total, err := r.collection().CountDocuments(ctx, filterQuery(filter))
	if err != nil {
		return 0, apperrors.NewDatabaseError(fmt.Errorf("error counting %s: %w", r.entity.CollectionName(), err))
	}
	return total, nil
}

// checkUnique looks for existing documents holding any of the unique-field
// values present in data. excludeID scopes the scan to other documents when
// updating. Fields are checked in declaration order and all violations are
// reported.
func (r *MongoRepository) checkUnique(ctx context.Context, data Document, excludeID string) ([]string, error) {
	var violated []string

	for _, field := range r.entity.UniqueFields {
		value, present := data[field]
		if !present || value == nil {
			continue
		}

		match := bson.M{field: value}
		if excludeID != "" {
			match[FieldID] = bson.M{"$ne": excludeID}
		}

		n, err := r.collection().CountDocuments(ctx, match, options.Count().SetLimit(1))
		if err != nil {
			return nil, apperrors.NewDatabaseError(fmt.Errorf("error checking uniqueness of '%s': %w", field, err))
		}
		if n > 0 {
			violated = append(violated, field)
		}
	}

	return violated, nil
}

func (r *MongoRepository) duplicateError(err error) *apperrors.AppError {
	field := storage.DuplicateKeyField(err)
	if field == "" && len(r.entity.UniqueFields) > 0 {
		field = r.entity.UniqueFields[0]
	}
	return apperrors.NewDuplicateError(field)
}

func filterQuery(filter Document) bson.M {
	match := bson.M{}
	for k, v := range filter {
		match[k] = v
	}
	return match
}

func validateID(id string) error {
	if !helpers.IsValidUUID(id) {
		return apperrors.NewFieldValidationError("id", "must be a valid UUID")
	}
	return nil
}
