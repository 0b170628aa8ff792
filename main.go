package main

import (
	"fmt"
	"os"

	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg := config.NewConfig()
		entrypoint.Run(cfg, Version)
		return
	}

	command := os.Args[1]

	switch command {
	case "reset-db":
		cfg := config.NewConfig()
		if err := resetDB(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

	case "-h", "--help", "help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// resetDB deletes the database file and rebuilds the schema with the sample
// seed rows.
func resetDB(cfg *config.Config) error {
	if err := os.Remove(cfg.Database.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not remove database file: %w", err)
	}
	fmt.Printf("Removed database file %s\n", cfg.Database.Path)

	db, err := database.NewDatabase(cfg.Database.Path, cfg.Seed.AdminPassword, cfg.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("could not rebuild database: %w", err)
	}
	defer db.Close()

	fmt.Println("Database recreated with sample data.")
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve     Start the HTTP server (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  reset-db  Delete the database file and recreate it with sample data\n")
}
