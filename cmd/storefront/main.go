// Storefront Core - session and authorization backbone for the storefront.
//
// It owns account sign-in/sign-up/recovery, cookie-backed sessions with
// transparent refresh, the routing gate in front of page routes, and the
// read-only catalog API the storefront browses.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/merchkit/storefront-core/migrations"

	"github.com/merchkit/storefront-core/internal/api"
	"github.com/merchkit/storefront-core/internal/authz"
	"github.com/merchkit/storefront-core/internal/catalog"
	"github.com/merchkit/storefront-core/internal/identity"
	"github.com/merchkit/storefront-core/internal/infrastructure/config"
	"github.com/merchkit/storefront-core/internal/infrastructure/database"
	"github.com/merchkit/storefront-core/internal/infrastructure/logging"
	"github.com/merchkit/storefront-core/internal/profile"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// seedOwnerEmail is the address for the first-boot owner account. Override
// with STOREFRONT_OWNER_EMAIL.
const seedOwnerEmail = "owner@localhost"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for consistent exit
// handling.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Storefront Core", "version", version, "commit", commit)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database migrations complete")

	mailer := identity.NewLogMailer(log)
	provider := identity.NewLocalProvider(cfg.Identity, cfg.Site.URL, db.DB, mailer, log)
	profiles := profile.NewRepository(db.DB)

	if err := seedOwner(ctx, provider, profiles, log); err != nil {
		return fmt.Errorf("seeding owner: %w", err)
	}

	server, err := api.New(api.Deps{
		Config:   cfg,
		Logger:   log,
		Provider: provider,
		Profiles: profiles,
		Catalog:  catalog.NewRepository(db.DB),
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing server", "error", closeErr)
		}
	}()

	log.Info("Storefront Core running", "address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))

	<-ctx.Done()
	log.Info("shutdown signal received")
	return nil
}

// seedOwner creates the first-boot owner account with a super_admin profile.
// The generated password is printed to stdout exactly once.
func seedOwner(ctx context.Context, provider *identity.LocalProvider, profiles profile.Repository, log *logging.Logger) error {
	email := seedOwnerEmail
	if v := os.Getenv("STOREFRONT_OWNER_EMAIL"); v != "" {
		email = v
	}

	seeded, err := provider.SeedOwner(ctx, email)
	if err != nil {
		return err
	}
	if seeded == nil {
		return nil
	}

	if _, err := profiles.EnsureFor(ctx, seeded.User.ID, seeded.User.Name, authz.RoleSuperAdmin); err != nil {
		return fmt.Errorf("creating owner profile: %w", err)
	}

	log.Info("owner account created", "email", email)
	fmt.Printf("\n  Owner account: %s\n  Password:      %s\n  Change this password after first sign-in.\n\n", email, seeded.Password)
	return nil
}

// getConfigPath returns the config file path from args or the default.
func getConfigPath() string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	if v := os.Getenv("STOREFRONT_CONFIG"); v != "" {
		return v
	}
	return defaultConfigPath
}
