package storage

import (
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// Unique indexes are named "uniq_<field>" so the offending field can be
// recovered from the server's duplicate key error text.
const uniqueIndexPrefix = "uniq_"

// UniqueIndexName returns the name of the unique index for a field.
func UniqueIndexName(field string) string {
	return uniqueIndexPrefix + field
}

// IsDuplicateKeyError reports whether err is a unique index violation.
func IsDuplicateKeyError(err error) bool {
	return err != nil && mongo.IsDuplicateKeyError(err)
}

// E11000 duplicate key error collection: db.products index: uniq_name dup key: ...
var indexNamePattern = regexp.MustCompile(`index: (\S+)`)

// DuplicateKeyField extracts the violated field name from a duplicate key
// error by matching the index name in the server's error text. Returns ""
// when the text does not name one of our unique indexes.
func DuplicateKeyField(err error) string {
	if err == nil {
		return ""
	}
	match := indexNamePattern.FindStringSubmatch(err.Error())
	if match == nil {
		return ""
	}
	if !strings.HasPrefix(match[1], uniqueIndexPrefix) {
		return ""
	}
	return strings.TrimPrefix(match[1], uniqueIndexPrefix)
}
