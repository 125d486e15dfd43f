package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"crudforge/src/apperrors"
	"crudforge/src/directors"
	"crudforge/src/helpers"
	"crudforge/src/repository"
	"crudforge/src/schema"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testOrigin = "http://localhost:3000"

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }

// fakeRepository is an in-memory DocumentRepository honoring the same
// contract as the Mongo-backed one: duplicate sentinel on create, nil for
// not-found, id validation before any lookup.
type fakeRepository struct {
	entity *schema.EntityDefinition
	docs   map[string]repository.Document
	order  []string
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		entity: &schema.EntityDefinition{
			Name:         "product",
			Plural:       "products",
			UniqueFields: []string{"name"},
			Schema: schema.SchemaDefinition{
				{Name: "name", Kind: schema.FieldString, Required: true, MinLength: intPtr(1)},
				{Name: "sku", Kind: schema.FieldString, Required: true, Pattern: "^[A-Z0-9-]+$"},
				{Name: "price", Kind: schema.FieldNumber, Required: true, Min: floatPtr(0)},
				{Name: "inStock", Kind: schema.FieldBoolean, Required: false, DefaultValue: true},
			},
		},
		docs: make(map[string]repository.Document),
	}
}

func (f *fakeRepository) Entity() *schema.EntityDefinition { return f.entity }

func (f *fakeRepository) Initialize(ctx context.Context) error { return nil }

func (f *fakeRepository) Create(ctx context.Context, data repository.Document) (repository.Document, []string, error) {
	var violated []string
	for _, unique := range f.entity.UniqueFields {
		if data[unique] == nil {
			continue
		}
		for _, id := range f.order {
			if f.docs[id][unique] == data[unique] {
				violated = append(violated, unique)
				break
			}
		}
	}
	if len(violated) > 0 {
		return nil, violated, nil
	}
	doc := data.Clone()
	doc[repository.FieldID] = helpers.GenerateUUID()
	doc[repository.FieldCreatedAt] = time.Now().UTC()
	f.docs[doc.ID()] = doc
	f.order = append(f.order, doc.ID())
	return doc, nil, nil
}

func (f *fakeRepository) Read(ctx context.Context, id string) (repository.Document, error) {
	if !helpers.IsValidUUID(id) {
		return nil, apperrors.NewFieldValidationError("id", "must be a valid UUID")
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, nil
	}
	return doc, nil
}

func (f *fakeRepository) Update(ctx context.Context, id string, data repository.Document) (repository.Document, error) {
	if !helpers.IsValidUUID(id) {
		return nil, apperrors.NewFieldValidationError("id", "must be a valid UUID")
	}
	doc, ok := f.docs[id]
	if !ok {
		return nil, nil
	}
	for _, unique := range f.entity.UniqueFields {
		value, present := data[unique]
		if !present {
			continue
		}
		for _, otherID := range f.order {
			if otherID != id && f.docs[otherID][unique] == value {
				return nil, apperrors.NewDuplicateError(unique)
			}
		}
	}
	for k, v := range data {
		doc[k] = v
	}
	return doc, nil
}

func (f *fakeRepository) Remove(ctx context.Context, id string) (bool, error) {
	if !helpers.IsValidUUID(id) {
		return false, apperrors.NewFieldValidationError("id", "must be a valid UUID")
	}
	if _, ok := f.docs[id]; !ok {
		return false, nil
	}
	delete(f.docs, id)
	for i, existing := range f.order {
		if existing == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (f *fakeRepository) Find(ctx context.Context, filter repository.Document, window repository.PaginationWindow) (*repository.PaginatedResult, error) {
	window = window.Normalize()

	matched := make([]repository.Document, 0, len(f.order))
	for _, id := range f.order {
		doc := f.docs[id]
		keep := true
		for field, want := range filter {
			if doc[field] != want {
				keep = false
				break
			}
		}
		if keep {
			matched = append(matched, doc)
		}
	}

	total := int64(len(matched))
	start := window.Skip
	if start > total {
		start = total
	}
	end := start + window.Limit
	if end > total {
		end = total
	}
	return repository.NewPaginatedResult(matched[start:end], window, total), nil
}

func (f *fakeRepository) Count(ctx context.Context, filter repository.Document) (int64, error) {
	result, err := f.Find(ctx, filter, repository.PaginationWindow{Limit: int64(len(f.order)) + 1})
	if err != nil {
		return 0, err
	}
	return result.Total, nil
}

func newTestRouter(repo *fakeRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop().Sugar()

	engine := gin.New()
	engine.Use(CORSMiddleware(testOrigin))
	engine.Use(ErrorHandler(logger))
	engine.NoRoute(NoRouteHandler())

	service := directors.NewEntityService(repo, logger)
	controller := newEntityController(service, logger)
	controller.register(engine.Group("/api/" + repo.entity.Plural))
	return engine
}

func doRequest(t *testing.T, engine *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	decoded := make(map[string]interface{})
	if strings.Contains(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func errorBody(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	require.Equal(t, false, body["success"])
	errBody, ok := body["error"].(map[string]interface{})
	require.True(t, ok)
	return errBody
}

func createProduct(t *testing.T, engine *gin.Engine, name string, price float64) string {
	t.Helper()
	payload := fmt.Sprintf(`{"name":%q,"sku":"SKU-1","price":%v}`, name, price)
	rec, body := doRequest(t, engine, http.MethodPost, "/api/products", payload)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	return data["_id"].(string)
}

func TestCreateReturnsEnvelopeWithSystemFieldsAndDefaults(t *testing.T) {
	engine := newTestRouter(newFakeRepository())

	rec, body := doRequest(t, engine, http.MethodPost, "/api/products",
		`{"name":"Laptop","sku":"LPT-100","price":1200}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "product created successfully", body["message"])
	assert.NotEmpty(t, body["timestamp"])

	data := body["data"].(map[string]interface{})
	assert.True(t, helpers.IsValidUUID(data["_id"].(string)))
	assert.NotEmpty(t, data["createdAt"])
	assert.Equal(t, true, data["inStock"], "schema default is applied")
}

func TestCreateDuplicateReportsFailureOnCreatedStatus(t *testing.T) {
	engine := newTestRouter(newFakeRepository())
	createProduct(t, engine, "Laptop", 1200)

	rec, body := doRequest(t, engine, http.MethodPost, "/api/products",
		`{"name":"Laptop","sku":"LPT-200","price":900}`)

	// Duplicate create keeps the create status code but flips the envelope.
	require.Equal(t, http.StatusCreated, rec.Code)
	errBody := errorBody(t, body)
	assert.Equal(t, string(apperrors.KindDuplicate), errBody["type"])
	details := errBody["details"].(map[string]interface{})
	assert.Equal(t, "name", details["field"])
}

func TestCreateDuplicateNamesTheViolatedField(t *testing.T) {
	repo := newFakeRepository()
	repo.entity.UniqueFields = []string{"name", "sku"}
	engine := newTestRouter(repo)

	rec, body := doRequest(t, engine, http.MethodPost, "/api/products",
		`{"name":"Laptop","sku":"SKU-1","price":1200}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, true, body["success"])

	// Collides on sku only; the envelope must name sku, not the first
	// declared unique field.
	rec, body = doRequest(t, engine, http.MethodPost, "/api/products",
		`{"name":"Desktop","sku":"SKU-1","price":900}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	errBody := errorBody(t, body)
	assert.Equal(t, string(apperrors.KindDuplicate), errBody["type"])
	details := errBody["details"].(map[string]interface{})
	assert.Equal(t, "sku", details["field"])
}

func TestCreateRejectsInvalidInputWithEveryViolation(t *testing.T) {
	engine := newTestRouter(newFakeRepository())

	rec, body := doRequest(t, engine, http.MethodPost, "/api/products",
		`{"sku":"lower!","price":-5}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := errorBody(t, body)
	assert.Equal(t, string(apperrors.KindValidation), errBody["type"])

	violations := errBody["details"].(map[string]interface{})["violations"].(map[string]interface{})
	assert.Contains(t, violations, "name")
	assert.Contains(t, violations, "sku")
	assert.Contains(t, violations, "price")
}

func TestCreateRejectsMalformedJSON(t *testing.T) {
	engine := newTestRouter(newFakeRepository())

	rec, body := doRequest(t, engine, http.MethodPost, "/api/products", `{"name":`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(apperrors.KindValidation), errorBody(t, body)["type"])
}

func TestGetReturnsStoredDocument(t *testing.T) {
	engine := newTestRouter(newFakeRepository())
	id := createProduct(t, engine, "Laptop", 1200)

	rec, body := doRequest(t, engine, http.MethodGet, "/api/products/"+id, "")

	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, id, data["_id"])
	assert.Equal(t, "Laptop", data["name"])
}

func TestGetUnknownIDReturnsNotFound(t *testing.T) {
	engine := newTestRouter(newFakeRepository())

	rec, body := doRequest(t, engine, http.MethodGet, "/api/products/"+helpers.GenerateUUID(), "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(apperrors.KindNotFound), errorBody(t, body)["type"])
}

func TestGetMalformedIDIsValidationNotNotFound(t *testing.T) {
	engine := newTestRouter(newFakeRepository())

	rec, body := doRequest(t, engine, http.MethodGet, "/api/products/not-a-uuid", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(apperrors.KindValidation), errorBody(t, body)["type"])
}

func TestUpdateAppliesPartialChanges(t *testing.T) {
	engine := newTestRouter(newFakeRepository())
	id := createProduct(t, engine, "Laptop", 1200)

	rec, body := doRequest(t, engine, http.MethodPut, "/api/products/"+id, `{"price":999}`)

	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(999), data["price"])
	assert.Equal(t, "Laptop", data["name"], "untouched fields survive")
}

func TestUpdateUnknownIDReturnsNotFound(t *testing.T) {
	engine := newTestRouter(newFakeRepository())

	rec, body := doRequest(t, engine, http.MethodPut, "/api/products/"+helpers.GenerateUUID(), `{"price":1}`)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(apperrors.KindNotFound), errorBody(t, body)["type"])
}

func TestUpdateToTakenUniqueValueConflicts(t *testing.T) {
	engine := newTestRouter(newFakeRepository())
	createProduct(t, engine, "Laptop", 1200)
	id := createProduct(t, engine, "Mouse", 25)

	rec, body := doRequest(t, engine, http.MethodPut, "/api/products/"+id, `{"name":"Laptop"}`)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(apperrors.KindDuplicate), errorBody(t, body)["type"])
}

func TestDeleteRemovesTheDocument(t *testing.T) {
	engine := newTestRouter(newFakeRepository())
	id := createProduct(t, engine, "Laptop", 1200)

	rec, body := doRequest(t, engine, http.MethodDelete, "/api/products/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])

	rec, _ = doRequest(t, engine, http.MethodGet, "/api/products/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteUnknownIDReturnsNotFound(t *testing.T) {
	engine := newTestRouter(newFakeRepository())

	rec, body := doRequest(t, engine, http.MethodDelete, "/api/products/"+helpers.GenerateUUID(), "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(apperrors.KindNotFound), errorBody(t, body)["type"])
}

func TestListPaginatesWithEnvelopeMetadata(t *testing.T) {
	engine := newTestRouter(newFakeRepository())
	for i := 0; i < 3; i++ {
		createProduct(t, engine, fmt.Sprintf("Product %d", i), float64(10+i))
	}

	rec, body := doRequest(t, engine, http.MethodGet, "/api/products?limit=2", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["data"].([]interface{}), 2)

	pagination := body["pagination"].(map[string]interface{})
	assert.Equal(t, float64(3), pagination["total"])
	assert.Equal(t, float64(0), pagination["skip"])
	assert.Equal(t, float64(2), pagination["limit"])
	assert.Equal(t, true, pagination["hasNext"])
	assert.Equal(t, false, pagination["hasPrevious"])
}

func TestListCoercesTypedQueryFilters(t *testing.T) {
	engine := newTestRouter(newFakeRepository())
	createProduct(t, engine, "Laptop", 1200)
	createProduct(t, engine, "Mouse", 25)

	// price arrives as the string "25" and must match the stored number.
	rec, body := doRequest(t, engine, http.MethodGet, "/api/products?price=25", "")

	require.Equal(t, http.StatusOK, rec.Code)
	items := body["data"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "Mouse", items[0].(map[string]interface{})["name"])
}

func TestListRejectsBadPaginationParameters(t *testing.T) {
	engine := newTestRouter(newFakeRepository())

	rec, body := doRequest(t, engine, http.MethodGet, "/api/products?skip=-1&sortDir=sideways&sortBy=bogus", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := errorBody(t, body)
	assert.Equal(t, string(apperrors.KindValidation), errBody["type"])

	violations := errBody["details"].(map[string]interface{})["violations"].(map[string]interface{})
	assert.Contains(t, violations, "skip")
	assert.Contains(t, violations, "sortDir")
	assert.Contains(t, violations, "sortBy")
}

func TestListReturnsEmptyArrayNotNull(t *testing.T) {
	engine := newTestRouter(newFakeRepository())

	rec, body := doRequest(t, engine, http.MethodGet, "/api/products", "")

	require.Equal(t, http.StatusOK, rec.Code)
	items, ok := body["data"].([]interface{})
	require.True(t, ok, "data is a JSON array even when empty")
	assert.Empty(t, items)
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	engine := newTestRouter(newFakeRepository())

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(apperrors.KindCORS), errorBody(t, body)["type"])
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	engine := newTestRouter(newFakeRepository())

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set("Origin", testOrigin)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSAnswersPreflight(t *testing.T) {
	engine := newTestRouter(newFakeRepository())

	req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
	req.Header.Set("Origin", testOrigin)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "OPTIONS")
}

func TestUnknownRouteReturnsTypedEnvelope(t *testing.T) {
	engine := newTestRouter(newFakeRepository())

	rec, body := doRequest(t, engine, http.MethodGet, "/api/nonexistent", "")

	require.Equal(t, http.StatusNotFound, rec.Code)
	errBody := errorBody(t, body)
	assert.Equal(t, string(apperrors.KindRouteNotFound), errBody["type"])

	details := errBody["details"].(map[string]interface{})
	assert.Equal(t, "GET", details["method"])
	assert.Equal(t, "/api/nonexistent", details["path"])
}
