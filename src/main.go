package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crudforge/src/apidocs"
	"crudforge/src/schema"
	"crudforge/src/server"
	"crudforge/src/settings"
	"crudforge/src/storage"

	"go.uber.org/zap"
)

// printUsage prints helpful usage information
func printUsage() {
	log.Println("crudforge - a schema-driven CRUD API server")
	log.Println("\nUsage:")
	log.Println("  crudforge [options]")
	log.Println("\nOptions:")
	flag.PrintDefaults()

	log.Println("\nExamples:")
	log.Println("  crudforge --schemadir=./schemas")
	log.Println("  crudforge --port=8080 --mongouri=mongodb://127.0.0.1:27017 --mongodb=shop")
	log.Println("  crudforge --schemadir=./schemas --dumpdocs=openapi.json")
}

func main() {
	// Get the global settings instance
	args := settings.GetSettings()

	// Define command line flags that map to the Arguments struct
	flag.StringVar(&args.SchemaDir, "schemadir", "./schemas", "Directory containing entity schema files")
	flag.StringVar(&args.Host, "host", "127.0.0.1", "Host name or IP address to listen on")
	flag.IntVar(&args.Port, "port", 8080, "Port for the HTTP server")
	flag.StringVar(&args.MongoURI, "mongouri", "mongodb://127.0.0.1:27017", "MongoDB connection string")
	flag.StringVar(&args.MongoDatabase, "mongodb", "crudforge", "MongoDB database name")
	flag.StringVar(&args.AllowedOrigin, "origin", "*", "Origin allowed by the CORS middleware")
	flag.StringVar(&args.DumpDocsFile, "dumpdocs", "", "Write the generated API documentation to this file and exit")
	flag.BoolVar(&args.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&args.Debug, "debug", false, "Enable debug mode")
	flag.BoolVar(&args.PrintToScreen, "print", true, "Print log messages to screen")
	flag.StringVar(&args.Version, "version", "0.1.0", "Shows version")

	// Parse the command line
	flag.Parse()

	// Validate the arguments
	if err := validateArguments(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n\n", err)
		printUsage()
		os.Exit(1)
	}

	// Configure logger
	logger, err := loggerConfig(args).Build()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Create a sugared logger for easier API
	sugar := logger.Sugar()

	// Replace standard log with zap
	zap.ReplaceGlobals(logger)

	// Load the entity schemas
	entities, err := schema.LoadDir(args.SchemaDir, sugar)
	if err != nil {
		sugar.Fatalf("Failed to load entity schemas: %v", err)
	}

	// Offline mode: generate the API documentation and exit
	if args.DumpDocsFile != "" {
		docs := apidocs.Generate(entities, args.Version)
		data, err := docs.JSON()
		if err != nil {
			sugar.Fatalf("Failed to generate API documentation: %v", err)
		}
		if err := os.WriteFile(args.DumpDocsFile, data, 0644); err != nil {
			sugar.Fatalf("Failed to write API documentation: %v", err)
		}
		sugar.Infow("Wrote API documentation", "file", args.DumpDocsFile, "entities", len(entities))
		return
	}

	// Open the store connection. It is shared by every repository and
	// lives for the whole process.
	store := storage.NewMongoStore(args.MongoURI, args.MongoDatabase, sugar)
	if err := store.Connect(context.Background()); err != nil {
		sugar.Fatalf("Failed to connect to the document store: %v", err)
	}

	srv, err := server.InitServer(args, store, entities, sugar)
	if err != nil {
		sugar.Fatalf("Failed to initialize server: %v", err)
	}

	if err := srv.Start(); err != nil {
		sugar.Fatalf("Failed to start server: %v", err)
	}

	// Wait for a shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	sugar.Infow("Shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		sugar.Errorf("Error during server shutdown: %v", err)
	}
	if err := store.Disconnect(ctx); err != nil {
		sugar.Errorf("Error disconnecting from the document store: %v", err)
	}
}

// loggerConfig derives the zap configuration from the parsed arguments:
// development encoding under --debug, debug level under --verbose, stdout
// output under --print.
func loggerConfig(args *settings.Arguments) zap.Config {
	var cfg zap.Config
	if args.Debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if args.Verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	if args.PrintToScreen {
		cfg.OutputPaths = []string{"stdout"}
	}
	return cfg
}

func validateArguments(args *settings.Arguments) error {
	if args.SchemaDir == "" {
		return fmt.Errorf("schemadir must not be empty")
	}
	if args.Port < 1 || args.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if args.MongoURI == "" {
		return fmt.Errorf("mongouri must not be empty")
	}
	if args.MongoDatabase == "" {
		return fmt.Errorf("mongodb must not be empty")
	}
	return nil
}
