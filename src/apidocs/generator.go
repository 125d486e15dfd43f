package apidocs

import (
	"fmt"
	"strings"

	"crudforge/src/schema"
)

const jsonMedia = "application/json"

// Generate projects the loaded entity definitions into an API
// documentation object. It touches no live data and produces the same
// output for the same input on every call.
func Generate(entities []*schema.EntityDefinition, version string) *Definition {
	def := &Definition{
		OpenAPI: "3.0.3",
		Info: Info{
			Title:       "crudforge API",
			Description: "CRUD API generated from declarative entity schemas",
			Version:     version,
		},
		Paths: make(map[string]*PathItem),
		Components: &Components{
			Schemas:   make(map[string]*Schema),
			Responses: standardErrorResponses(),
		},
	}

	def.Components.Schemas["ErrorEnvelope"] = errorEnvelopeSchema()
	def.Components.Schemas["PaginationMeta"] = paginationMetaSchema()

	for _, entity := range entities {
		addEntity(def, entity)
	}

	return def
}

func addEntity(def *Definition, entity *schema.EntityDefinition) {
	docName := titleCase(entity.Name)
	inputName := docName + "Input"

	def.Components.Schemas[docName] = documentSchema(entity)
	def.Components.Schemas[inputName] = inputSchema(entity)

	base := entity.BasePath()
	idPath := base + "/{id}"

	def.Paths[base] = &PathItem{
		Get:  listOperation(entity, docName),
		Post: createOperation(entity, docName, inputName),
	}
	def.Paths[idPath] = &PathItem{
		Get:    getOperation(entity, docName),
		Put:    updateOperation(entity, docName, inputName),
		Delete: deleteOperation(entity),
	}
}

// documentSchema is the persisted shape: entity fields plus the
// system-assigned identifier and creation timestamp.
func documentSchema(entity *schema.EntityDefinition) *Schema {
	s := inputSchema(entity)
	s.Description = strings.TrimSpace(entity.Description)
	s.Properties["_id"] = &Schema{
		Type:        "string",
		Format:      "uuid",
		Description: "System-assigned identifier, immutable once assigned",
		ReadOnly:    true,
	}
	s.Properties["createdAt"] = &Schema{
		Type:        "string",
		Format:      "date-time",
		Description: "Creation timestamp, never mutated",
		ReadOnly:    true,
	}
	return s
}

func inputSchema(entity *schema.EntityDefinition) *Schema {
	properties := make(map[string]*Schema, len(entity.Schema))
	var required []string

	for i := range entity.Schema {
		field := &entity.Schema[i]
		properties[field.Name] = fieldSchema(field)
		if field.Required && field.DefaultValue == nil {
			required = append(required, field.Name)
		}
	}

	return &Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

// fieldSchema maps one field descriptor to a documentation schema,
// matching exhaustively over the field kinds.
func fieldSchema(f *schema.FieldDefinition) *Schema {
	s := &Schema{
		Default: f.DefaultValue,
		Example: ExampleValue(f),
	}

	switch f.Kind {
	case schema.FieldString:
		s.Type = "string"
		s.MinLength = f.MinLength
		s.MaxLength = f.MaxLength
		s.Pattern = f.Pattern

	case schema.FieldNumber:
		s.Type = "number"
		if f.Integer {
			s.Type = "integer"
		}
		s.Minimum = f.Min
		s.Maximum = f.Max

	case schema.FieldBoolean:
		s.Type = "boolean"

	case schema.FieldDate:
		s.Type = "string"
		s.Format = "date-time"

	case schema.FieldEnum:
		s.Type = "string"
		s.Enum = f.Values

	case schema.FieldArray:
		s.Type = "array"
		if f.Items != nil {
			s.Items = fieldSchema(f.Items)
		}

	case schema.FieldObject:
		s.Type = "object"
		s.Properties = make(map[string]*Schema, len(f.Fields))
		for i := range f.Fields {
			nested := &f.Fields[i]
			s.Properties[nested.Name] = fieldSchema(nested)
			if nested.Required && nested.DefaultValue == nil {
				s.Required = append(s.Required, nested.Name)
			}
		}
	}

	return s
}

// ExampleValue produces one example per field: the declared default when
// present, otherwise a kind-appropriate placeholder.
func ExampleValue(f *schema.FieldDefinition) interface{} {
	if f.DefaultValue != nil {
		return f.DefaultValue
	}

	switch f.Kind {
	case schema.FieldString:
		return "sample text"
	case schema.FieldNumber:
		if f.Integer {
			return 42
		}
		return 9.99
	case schema.FieldBoolean:
		return true
	case schema.FieldDate:
		return "2024-01-15T10:30:00Z"
	case schema.FieldEnum:
		if len(f.Values) > 0 {
			return f.Values[0]
		}
		return nil
	case schema.FieldArray:
		if f.Items != nil {
			return []interface{}{ExampleValue(f.Items)}
		}
		return []interface{}{}
	case schema.FieldObject:
		example := make(map[string]interface{}, len(f.Fields))
		for i := range f.Fields {
			nested := &f.Fields[i]
			example[nested.Name] = ExampleValue(nested)
		}
		return example
	}
	return nil
}

func listOperation(entity *schema.EntityDefinition, docName string) *Operation {
	parameters := []*Parameter{
		{Name: "skip", In: "query", Description: "Number of documents to skip", Schema: &Schema{Type: "integer", Default: 0}},
		{Name: "limit", In: "query", Description: "Maximum number of documents to return", Schema: &Schema{Type: "integer", Default: 20}},
		{Name: "sortBy", In: "query", Description: "Field to sort by", Schema: &Schema{Type: "string", Default: "createdAt"}},
		{Name: "sortDir", In: "query", Description: "Sort direction", Schema: &Schema{Type: "string", Enum: []interface{}{"asc", "desc"}, Default: "desc"}},
	}

	// Every scalar top-level field can be used as an equality filter.
	for i := range entity.Schema {
		field := &entity.Schema[i]
		switch field.Kind {
		case schema.FieldArray, schema.FieldObject:
			continue
		}
		parameters = append(parameters, &Parameter{
			Name:        field.Name,
			In:          "query",
			Description: fmt.Sprintf("Filter by %s", field.Name),
			Schema:      fieldSchema(field),
		})
	}

	return &Operation{
		Summary:     fmt.Sprintf("List %s", entity.Plural),
		OperationID: "list" + titleCase(entity.Plural),
		Tags:        []string{entity.Plural},
		Parameters:  parameters,
		Responses: map[string]*Response{
			"200": listResponse(docName),
			"400": {Ref: responseRef("ValidationError")},
			"500": {Ref: responseRef("ServerError")},
		},
	}
}

func createOperation(entity *schema.EntityDefinition, docName, inputName string) *Operation {
	return &Operation{
		Summary:     fmt.Sprintf("Create a %s", entity.Name),
		OperationID: "create" + titleCase(entity.Name),
		Tags:        []string{entity.Plural},
		RequestBody: &RequestBody{
			Required: true,
			Content:  map[string]*MediaType{jsonMedia: {Schema: &Schema{Ref: schemaRef(inputName)}}},
		},
		Responses: map[string]*Response{
			"201": documentResponse(docName, fmt.Sprintf("The created %s, or a duplicate rejection envelope", entity.Name)),
			"400": {Ref: responseRef("ValidationError")},
			"500": {Ref: responseRef("ServerError")},
		},
	}
}

func getOperation(entity *schema.EntityDefinition, docName string) *Operation {
	return &Operation{
		Summary:     fmt.Sprintf("Get a %s by id", entity.Name),
		OperationID: "get" + titleCase(entity.Name),
		Tags:        []string{entity.Plural},
		Parameters:  []*Parameter{idParameter()},
		Responses: map[string]*Response{
			"200": documentResponse(docName, fmt.Sprintf("The requested %s", entity.Name)),
			"400": {Ref: responseRef("ValidationError")},
			"404": {Ref: responseRef("NotFoundError")},
			"500": {Ref: responseRef("ServerError")},
		},
	}
}

func updateOperation(entity *schema.EntityDefinition, docName, inputName string) *Operation {
	return &Operation{
		Summary:     fmt.Sprintf("Update a %s", entity.Name),
		OperationID: "update" + titleCase(entity.Name),
		Tags:        []string{entity.Plural},
		Parameters:  []*Parameter{idParameter()},
		RequestBody: &RequestBody{
			Description: "Partial update; omitted fields are left untouched",
			Required:    true,
			Content:     map[string]*MediaType{jsonMedia: {Schema: &Schema{Ref: schemaRef(inputName)}}},
		},
		Responses: map[string]*Response{
			"200": documentResponse(docName, fmt.Sprintf("The updated %s", entity.Name)),
			"400": {Ref: responseRef("ValidationError")},
			"404": {Ref: responseRef("NotFoundError")},
			"409": {Ref: responseRef("DuplicateError")},
			"500": {Ref: responseRef("ServerError")},
		},
	}
}

func deleteOperation(entity *schema.EntityDefinition) *Operation {
	return &Operation{
		Summary:     fmt.Sprintf("Delete a %s", entity.Name),
		OperationID: "delete" + titleCase(entity.Name),
		Tags:        []string{entity.Plural},
		Parameters:  []*Parameter{idParameter()},
		Responses: map[string]*Response{
			"200": {Description: fmt.Sprintf("The %s was deleted", entity.Name)},
			"400": {Ref: responseRef("ValidationError")},
			"404": {Ref: responseRef("NotFoundError")},
			"500": {Ref: responseRef("ServerError")},
		},
	}
}

func idParameter() *Parameter {
	return &Parameter{
		Name:        "id",
		In:          "path",
		Required:    true,
		Description: "Document identifier",
		Schema:      &Schema{Type: "string", Format: "uuid"},
	}
}

func listResponse(docName string) *Response {
	return &Response{
		Description: "One page of matching documents",
		Content: map[string]*MediaType{jsonMedia: {Schema: &Schema{
			Type: "object",
			Properties: map[string]*Schema{
				"success":    {Type: "boolean"},
				"message":    {Type: "string"},
				"data":       {Type: "array", Items: &Schema{Ref: schemaRef(docName)}},
				"pagination": {Ref: schemaRef("PaginationMeta")},
				"timestamp":  {Type: "string", Format: "date-time"},
			},
		}}},
	}
}

func documentResponse(docName, description string) *Response {
	return &Response{
		Description: description,
		Content: map[string]*MediaType{jsonMedia: {Schema: &Schema{
			Type: "object",
			Properties: map[string]*Schema{
				"success":   {Type: "boolean"},
				"message":   {Type: "string"},
				"data":      {Ref: schemaRef(docName)},
				"timestamp": {Type: "string", Format: "date-time"},
			},
		}}},
	}
}

func standardErrorResponses() map[string]*Response {
	return map[string]*Response{
		"ValidationError": errorResponse("The request failed validation"),
		"NotFoundError":   errorResponse("The referenced document does not exist"),
		"DuplicateError":  errorResponse("A unique field collided with an existing document"),
		"ServerError":     errorResponse("The server failed to process the request"),
	}
}

func errorResponse(description string) *Response {
	return &Response{
		Description: description,
		Content:     map[string]*MediaType{jsonMedia: {Schema: &Schema{Ref: schemaRef("ErrorEnvelope")}}},
	}
}

func errorEnvelopeSchema() *Schema {
	return &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"success": {Type: "boolean", Example: false},
			"error": {
				Type: "object",
				Properties: map[string]*Schema{
					"type":      {Type: "string", Enum: []interface{}{"VALIDATION_ERROR", "NOT_FOUND_ERROR", "DUPLICATE_ERROR", "DATABASE_ERROR", "SERVER_ERROR", "ROUTE_NOT_FOUND", "CORS_ERROR"}},
					"message":   {Type: "string"},
					"timestamp": {Type: "string", Format: "date-time"},
					"details":   {Type: "object"},
				},
				Required: []string{"type", "message", "timestamp"},
			},
		},
		Required: []string{"success", "error"},
	}
}

func paginationMetaSchema() *Schema {
	return &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"skip":        {Type: "integer"},
			"limit":       {Type: "integer"},
			"total":       {Type: "integer"},
			"hasNext":     {Type: "boolean"},
			"hasPrevious": {Type: "boolean"},
		},
	}
}

func schemaRef(name string) string {
	return "#/components/schemas/" + name
}

func responseRef(name string) string {
	return "#/components/responses/" + name
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
