package repository

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// System-assigned document fields. Both are set exactly once at creation
// and never mutated afterwards.
const (
	FieldID        = "_id"
	FieldCreatedAt = "createdAt"
)

// Document is the persisted form of one entity instance: the entity's own
// fields plus the system-assigned identifier and creation timestamp.
type Document map[string]interface{}

// ID returns the document identifier, or "" when unassigned.
func (d Document) ID() string {
	id, _ := d[FieldID].(string)
	return id
}

// CreatedAt returns the creation timestamp, or the zero time when the
// document has not been persisted yet.
func (d Document) CreatedAt() time.Time {
	switch t := d[FieldCreatedAt].(type) {
	case time.Time:
		return t
	case primitive.DateTime:
		return t.Time()
	}
	return time.Time{}
}

// Clone returns a shallow copy. Repositories copy incoming data before
// assigning system fields so callers never see their input mutated.
func (d Document) Clone() Document {
	out := make(Document, len(d)+2)
	for k, v := range d {
		out[k] = v
	}
	return out
}
