package server

import (
	"fmt"
	"net/http"
	"strconv"

	"crudforge/src/apperrors"
	"crudforge/src/directors"
	"crudforge/src/repository"
	"crudforge/src/schema"
	"crudforge/src/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Reserved query parameters consumed by pagination, everything else is
// treated as an entity field filter.
var reservedQueryParams = map[string]bool{
	"skip":    true,
	"limit":   true,
	"sortBy":  true,
	"sortDir": true,
}

// entityController maps one validated request to one service call and
// shapes the response envelope. All raised conditions are forwarded to the
// centralized error handler untouched.
type entityController struct {
	entity          *schema.EntityDefinition
	service         *directors.EntityService
	validateFull    validation.Validator
	validatePartial validation.Validator
	logger          *zap.SugaredLogger
}

func newEntityController(service *directors.EntityService, logger *zap.SugaredLogger) *entityController {
	entity := service.Entity()
	return &entityController{
		entity:          entity,
		service:         service,
		validateFull:    validation.BuildFull(entity.Schema),
		validatePartial: validation.BuildPartial(entity.Schema),
		logger:          logger,
	}
}

func (ct *entityController) register(group *gin.RouterGroup) {
	group.GET("", ct.list)
	group.POST("", ct.create)
	group.GET("/:id", ct.get)
	group.PUT("/:id", ct.update)
	group.DELETE("/:id", ct.remove)
}

func (ct *entityController) create(c *gin.Context) {
	var input map[string]interface{}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(apperrors.NewValidationError("request body must be a JSON object", nil))
		return
	}

	clean, err := ct.validateFull(input)
	if err != nil {
		c.Error(err)
		return
	}

	doc, violated, err := ct.service.Create(c.Request.Context(), clean)
	if err != nil {
		c.Error(err)
		return
	}

	// Duplicate sentinel: the submission was understood but nothing was
	// created. Reported as success:false on the create status so clients
	// can adjust and resubmit, naming the first violated unique field.
	if doc == nil {
		field := ""
		if len(violated) > 0 {
			field = violated[0]
		} else if len(ct.entity.UniqueFields) > 0 {
			field = ct.entity.UniqueFields[0]
		}
		c.JSON(http.StatusCreated, errorEnvelope(apperrors.NewDuplicateError(field)))
		return
	}

	c.JSON(http.StatusCreated, successEnvelope(fmt.Sprintf("%s created successfully", ct.entity.Name), doc))
}

func (ct *entityController) get(c *gin.Context) {
	doc, err := ct.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, successEnvelope(fmt.Sprintf("%s retrieved successfully", ct.entity.Name), doc))
}

func (ct *entityController) update(c *gin.Context) {
	var input map[string]interface{}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.Error(apperrors.NewValidationError("request body must be a JSON object", nil))
		return
	}

	clean, err := ct.validatePartial(input)
	if err != nil {
		c.Error(err)
		return
	}

	doc, err := ct.service.Update(c.Request.Context(), c.Param("id"), clean)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, successEnvelope(fmt.Sprintf("%s updated successfully", ct.entity.Name), doc))
}

func (ct *entityController) remove(c *gin.Context) {
	id := c.Param("id")
	if err := ct.service.Remove(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, successEnvelope(
		fmt.Sprintf("%s deleted successfully", ct.entity.Name),
		map[string]interface{}{"id": id},
	))
}

func (ct *entityController) list(c *gin.Context) {
	window, err := parsePagination(c, ct.entity.Schema)
	if err != nil {
		c.Error(err)
		return
	}

	raw := make(map[string]string)
	for name, values := range c.Request.URL.Query() {
		if reservedQueryParams[name] || len(values) == 0 {
			continue
		}
		raw[name] = values[0]
	}

	coerced := validation.CoerceQueryParameters(ct.entity.Schema, raw)
	filter, err := ct.validatePartial(coerced)
	if err != nil {
		c.Error(err)
		return
	}

	result, err := ct.service.Find(c.Request.Context(), filter, window)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, pageEnvelope(fmt.Sprintf("%s retrieved successfully", ct.entity.Plural), result))
}

// parsePagination derives the pagination window from the reserved query
// parameters, falling back to the defaults field by field.
func parsePagination(c *gin.Context, s schema.SchemaDefinition) (repository.PaginationWindow, error) {
	window := repository.DefaultPagination()
	violations := make(map[string][]string)

	if raw := c.Query("skip"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			violations["skip"] = append(violations["skip"], "must be a non-negative integer")
		} else {
			window.Skip = n
		}
	}

	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			violations["limit"] = append(violations["limit"], "must be a positive integer")
		} else {
			window.Limit = n
		}
	}

	if raw := c.Query("sortBy"); raw != "" {
		_, declared := s.Field(raw)
		if !declared && raw != repository.FieldID && raw != repository.FieldCreatedAt {
			violations["sortBy"] = append(violations["sortBy"], "must be a declared field")
		} else {
			window.SortField = raw
		}
	}

	switch c.Query("sortDir") {
	case "", "desc":
		window.SortDirection = repository.Descending
	case "asc":
		window.SortDirection = repository.Ascending
	default:
		violations["sortDir"] = append(violations["sortDir"], "must be 'asc' or 'desc'")
	}

	if len(violations) > 0 {
		return window, apperrors.NewValidationError("invalid pagination parameters", violations)
	}
	return window, nil
}
