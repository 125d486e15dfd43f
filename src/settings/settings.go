package settings

import "sync"

type Arguments struct {
	// The directory containing the entity schema files
	SchemaDir string

	// the host name or IP address to listen on
	Host string

	// the port number to listen on
	Port int

	// Connection string for the backing MongoDB instance
	MongoURI string

	// Name of the database that holds all entity collections
	MongoDatabase string

	// Origin allowed by the CORS middleware. "*" allows everything.
	AllowedOrigin string

	// When set, write the generated API documentation to this file and exit
	DumpDocsFile string

	// Strongly verbose logging
	Verbose bool

	Debug bool

	PrintToScreen bool

	Version string
}

var (
	instance *Arguments
	once     sync.Once
)

// GetSettings returns the global settings instance
func GetSettings() *Arguments {
	once.Do(func() {
		instance = &Arguments{}
	})
	return instance
}
