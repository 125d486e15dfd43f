package main

import (
	"testing"

	"crudforge/src/settings"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLoggerConfigDefaults(t *testing.T) {
	cfg := loggerConfig(&settings.Arguments{PrintToScreen: true})

	assert.False(t, cfg.Development)
	assert.Equal(t, zap.InfoLevel, cfg.Level.Level())
	assert.Equal(t, []string{"stdout"}, cfg.OutputPaths)
}

func TestLoggerConfigDebugUsesDevelopmentEncoding(t *testing.T) {
	cfg := loggerConfig(&settings.Arguments{Debug: true})

	assert.True(t, cfg.Development)
}

func TestLoggerConfigVerboseLowersTheLevel(t *testing.T) {
	cfg := loggerConfig(&settings.Arguments{Verbose: true})

	assert.Equal(t, zap.DebugLevel, cfg.Level.Level())
}

func TestLoggerConfigWithoutPrintKeepsStderr(t *testing.T) {
	cfg := loggerConfig(&settings.Arguments{})

	assert.Equal(t, []string{"stderr"}, cfg.OutputPaths)
}

func TestValidateArguments(t *testing.T) {
	valid := &settings.Arguments{
		SchemaDir:     "./schemas",
		Port:          8080,
		MongoURI:      "mongodb://127.0.0.1:27017",
		MongoDatabase: "crudforge",
	}
	assert.NoError(t, validateArguments(valid))

	bad := *valid
	bad.Port = 0
	assert.Error(t, validateArguments(&bad))

	bad = *valid
	bad.SchemaDir = ""
	assert.Error(t, validateArguments(&bad))
}
