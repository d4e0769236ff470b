package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tunedb/tunedb/pkg/logger"
	"github.com/tunedb/tunedb/pkg/tunedb"
)

// Global flags
var (
	dbPath string
)

func init() {
	flag.StringVar(&dbPath, "db", getEnvOrDefault("TUNEDB_DB_PATH", "tunedb.sqlite3"), "Path to the SQLite database file")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func createService() (tunedb.Service, error) {
	return tunedb.NewService(
		tunedb.WithDBPath(dbPath),
	)
}

func main() {
	flag.Parse()
	log := logger.GetLogger()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	log.Infof("Executing command: %s", command)

	switch command {
	case "ingest":
		handleIngest(args[1:])
	case "stats":
		handleStats(args[1:])
	case "list":
		handleList()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleIngest(args []string) {
	log := logger.GetLogger()

	if len(args) == 0 {
		fmt.Println("Usage: tunedb ingest <tune_file> [<tune_file> ...]")
		os.Exit(1)
	}

	svc, err := createService()
	if err != nil {
		fmt.Printf("Failed to create service: %v\n", err)
		log.Errorf("Service initialization failed: %v", err)
		os.Exit(1)
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	for _, path := range args {
		report, err := svc.IngestFile(ctx, path)
		if err != nil {
			fmt.Printf("Failed to ingest %s: %v\n", path, err)
			log.Errorf("IngestFile failed: %v", err)
			os.Exit(1)
		}

		verb := "Found existing"
		if report.NewCollection {
			verb = "Added new"
		}
		fmt.Printf("%s collection '%s' (ID %d)\n", verb, report.Collection, report.CollectionID)
		fmt.Printf("   Tunes:     %d\n", report.TunesTotal)
		fmt.Printf("   New:       %d\n", report.NewInstances)
		fmt.Printf("   Existing:  %d\n", report.ExistingInstances)
		for _, w := range report.Warnings {
			fmt.Printf("   Warning:   %s\n", w)
		}
	}
}

func handleStats(args []string) {
	log := logger.GetLogger()

	statsCmd := flag.NewFlagSet("stats", flag.ExitOnError)
	asJSON := statsCmd.Bool("json", false, "Emit the stats as JSON for the chart renderer")
	statsCmd.Parse(args)

	svc, err := createService()
	if err != nil {
		fmt.Printf("Failed to create service: %v\n", err)
		log.Errorf("Service initialization failed: %v", err)
		os.Exit(1)
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := svc.Stats(ctx)
	if err != nil {
		fmt.Printf("Failed to compute stats: %v\n", err)
		log.Errorf("Stats failed: %v", err)
		os.Exit(1)
	}

	if *asJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Printf("Failed to encode stats: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}

	fmt.Println("\nDatabase Statistics")
	fmt.Println()
	fmt.Printf("   Songs:                %d\n", result.Songs)
	fmt.Printf("   Instances:            %d\n", result.Instances)
	fmt.Printf("   Titles:               %d\n", result.Titles)
	fmt.Printf("   Collections:          %d\n", result.Collections)
	fmt.Printf("   Collection instances: %d\n", result.CollectionInstances)
	fmt.Println()
	fmt.Printf("   Instance-to-song deduplication:       %d%%\n", result.InstToSongDedup)
	fmt.Printf("   Collection-to-instance deduplication: %d%%\n", result.CollToInstDedup)
	fmt.Println()
	fmt.Println("   Instances per song:")
	for _, bin := range result.InstPerSongHisto {
		fmt.Printf("      %3d: %d\n", bin.Count, bin.Frequency)
	}
	fmt.Println("   Collections per instance:")
	for _, bin := range result.CollPerInstHisto {
		fmt.Printf("      %3d: %d\n", bin.Count, bin.Frequency)
	}
}

func handleList() {
	log := logger.GetLogger()

	svc, err := createService()
	if err != nil {
		fmt.Printf("Failed to create service: %v\n", err)
		log.Errorf("Service initialization failed: %v", err)
		os.Exit(1)
	}
	defer svc.Close()

	collections, err := svc.ListCollections()
	if err != nil {
		fmt.Printf("Failed to list collections: %v\n", err)
		log.Errorf("ListCollections failed: %v", err)
		os.Exit(1)
	}

	if len(collections) == 0 {
		fmt.Println("\nNo collections in database")
		return
	}

	fmt.Printf("\nFound %d collection(s):\n\n", len(collections))
	for _, coll := range collections {
		fmt.Printf("%d. %s (%d instances)\n", coll.ID, coll.URL, coll.Instances)
	}
	log.Infof("Listed %d collections", len(collections))
}

func printUsage() {
	fmt.Println("tunedb - deduplicating tune archive")
	fmt.Println("\nGlobal Options:")
	fmt.Println("  --db <path>   Path to SQLite database (env: TUNEDB_DB_PATH, default: tunedb.sqlite3)")
	fmt.Println("\nUsage:")
	fmt.Println("  tunedb [global-options] ingest <tune_file> [<tune_file> ...]")
	fmt.Println("  tunedb [global-options] stats [--json]")
	fmt.Println("  tunedb [global-options] list")
	fmt.Println("\nExamples:")
	fmt.Println("  tunedb --db archive.sqlite3 ingest session-tunes.abc")
	fmt.Println("  tunedb stats --json")
}
