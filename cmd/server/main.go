package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recurse.com/niceties/internal/api"
	"recurse.com/niceties/internal/codehost"
	"recurse.com/niceties/internal/config"
	"recurse.com/niceties/internal/core"
	"recurse.com/niceties/internal/directory"
	"recurse.com/niceties/internal/store"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Command line flag for the one-shot profile import
	importFlag := flag.Bool("import", false, "Import profiles from the member directory and exit")
	flag.Parse()

	// Initialize database store
	cacheTTL := time.Duration(config.AppConfig.CacheTTLMinutes) * time.Minute
	dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL, cacheTTL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	// External collaborators
	directoryClient := directory.NewHTTPClient(config.AppConfig.DirectoryAPIURL, config.AppConfig.DirectoryAPIToken)
	codehostClient := codehost.NewHTTPClient(config.AppConfig.CodehostAPIURL)

	// Handle the profile import if the flag is set
	if *importFlag {
		log.Println("Starting profile import...")
		ctx := context.Background()
		numImported, err := dbStore.ImportProfiles(func(limit, offset int) ([]directory.Person, error) {
			return directoryClient.GetProfiles(ctx, limit, offset)
		})
		if err != nil {
			log.Fatalf("Profile import failed: %v", err)
		}
		log.Printf("Profile import complete. Imported %d profiles. Exiting.", numImported)
		os.Exit(0)
	}

	// Initialize services
	peopleService := core.NewPeopleService(dbStore, directoryClient, codehostClient)
	settingsService := core.NewSettingsService(dbStore)
	cohortService := core.NewCohortService(dbStore, peopleService, settingsService, directoryClient)
	nicetyService := core.NewNicetyService(dbStore, peopleService)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(dbStore, peopleService, cohortService, nicetyService, settingsService, directoryClient)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // batch enrichment fans out to the code-hosting API
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}
