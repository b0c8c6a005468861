// Egg cooperative client core.
//
// This binary hosts the shared authentication and authorisation layer of
// the cooperative's mobile and desktop shells: persistent sign-in, role
// resolution with local overrides, and the guarded backend client. Run
// standalone it restores the stored session, validates it with the
// backend, and reports the effective access state.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/avicola/eggcoop-core/migrations"

	"github.com/avicola/eggcoop-core/internal/apiclient"
	"github.com/avicola/eggcoop-core/internal/auth"
	"github.com/avicola/eggcoop-core/internal/infrastructure/config"
	"github.com/avicola/eggcoop-core/internal/infrastructure/database"
	"github.com/avicola/eggcoop-core/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting eggcoop core", "version", version, "commit", commit)

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
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	applied, pending, err := db.GetMigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("checking migrations: %w", err)
	}
	log.Info("database migrations complete", "applied", len(applied), "pending", len(pending))

	store := auth.NewSQLiteStore(db.DB, log)
	resolver := auth.NewResolver(store, log)

	client := apiclient.New(apiclient.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.GetRequestTimeout(),
	}, store, func() {
		log.Info("session expired, sign-in required")
	}, log)

	// Restore the persisted session, if any, and check it against the
	// backend. A rejected token is cleared through the normal expiry path.
	if !resolver.IsAuthenticated(ctx) {
		log.Info("no stored session, sign-in required")
		return nil
	}

	if err := client.ValidateToken(ctx); err != nil {
		switch {
		case errors.Is(err, apiclient.ErrSessionExpired):
			log.Info("stored session no longer valid")
			return nil
		case errors.Is(err, apiclient.ErrConnectivity):
			// Offline start: keep the session and continue with cached state.
			log.Warn("backend unreachable, continuing with stored session", "error", err)
		default:
			return fmt.Errorf("validating session: %w", err)
		}
	}

	user, err := resolver.EffectiveUser(ctx)
	if err != nil {
		return fmt.Errorf("resolving user: %w", err)
	}
	if user == nil {
		return nil
	}

	labels, err := resolver.EffectiveRoleLabels(ctx)
	if err != nil {
		return fmt.Errorf("resolving roles: %w", err)
	}
	log.Info("session restored",
		"user_id", user.ID,
		"role", user.Role,
		"effective_roles", labels,
	)

	if expiry, ok := resolver.SessionExpiresAt(ctx); ok {
		log.Info("session expiry", "expires_at", expiry)
	}

	guard := auth.NewGuard(resolver, nil, log)
	adminLabels := []string{auth.RoleSuperAdmin.Label(), auth.RoleAdmin.Label()}
	log.Info("administrative access",
		"state", guard.Check(ctx, adminLabels).String(),
	)

	return nil
}

// getConfigPath returns the configuration file path, preferring the
// EGGCOOP_CONFIG environment variable over the default.
func getConfigPath() string {
	if path := os.Getenv("EGGCOOP_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
