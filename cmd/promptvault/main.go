package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/promptvault/internal/adapter/driven/assets"
	"github.com/ericfisherdev/promptvault/internal/adapter/driven/connector"
	"github.com/ericfisherdev/promptvault/internal/adapter/driven/export"
	githubadapter "github.com/ericfisherdev/promptvault/internal/adapter/driven/github"
	sqliteadapter "github.com/ericfisherdev/promptvault/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/promptvault/internal/adapter/driving/http"
	"github.com/ericfisherdev/promptvault/internal/application"
	"github.com/ericfisherdev/promptvault/internal/config"
	"github.com/ericfisherdev/promptvault/internal/hub"
	"github.com/ericfisherdev/promptvault/internal/worker"
)

// version is the daemon version reported in health checks and backup
// documents. Overridable at build time with -ldflags "-X main.version=...".
var version = "1.0.0"

// coreAssets are pre-cached on worker install so the UI shell works offline.
var coreAssets = []string{
	"/index.html",
	"/app.js",
	"/styles.css",
	"/manifest.json",
}

var noFallback bool

var rootCmd = &cobra.Command{
	Use:           "promptvault",
	Short:         "Local-first prompt manager with GitHub backup",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daemon: HTTP API, websocket hub, cache worker, and backup reminders",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up all prompts to the configured GitHub repository",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *application.BackupService, _ *application.TokenService, _ *config.Config) error {
			result, err := svc.Backup(ctx, true, !noFallback)
			if err != nil {
				return err
			}
			printResult(result)
			return nil
		})
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <file>",
	Short: "Restore prompts from a backup file in the configured repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *application.BackupService, _ *application.TokenService, _ *config.Config) error {
			result, err := svc.Restore(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("restored %d prompts and %d categories (exported %s)\n",
				result.PromptCount, result.CategoryCount, result.ExportDate.Format("2006-01-02"))
			return nil
		})
	},
}

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List backup files in the configured repository, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *application.BackupService, _ *application.TokenService, _ *config.Config) error {
			backups := svc.ListBackups(ctx)
			if len(backups) == 0 {
				fmt.Println("no backups found")
				return nil
			}
			for _, b := range backups {
				fmt.Printf("%s  %8d bytes  %s\n", b.Date, b.Size, b.Name)
			}
			return nil
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a backup snapshot to the local export directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *application.BackupService, _ *application.TokenService, _ *config.Config) error {
			result, err := svc.ExportLocal(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("exported to %s\n", result.Path)
			return nil
		})
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the stored GitHub token",
}

var tokenSetCmd = &cobra.Command{
	Use:   "set <token>",
	Short: "Store the GitHub token used when no platform connector is present",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, _ *application.BackupService, tokens *application.TokenService, _ *config.Config) error {
			if err := tokens.SetToken(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println("token stored")
			return nil
		})
	},
}

var tokenClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored GitHub token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withService(cmd.Context(), func(ctx context.Context, _ *application.BackupService, tokens *application.TokenService, _ *config.Config) error {
			if err := tokens.ClearToken(ctx); err != nil {
				return err
			}
			fmt.Println("token cleared")
			return nil
		})
	},
}

func main() {
	backupCmd.Flags().BoolVar(&noFallback, "no-fallback", false, "fail instead of exporting locally when GitHub is unreachable")
	tokenCmd.AddCommand(tokenSetCmd, tokenClearCmd)
	rootCmd.AddCommand(serveCmd, backupCmd, restoreCmd, backupsCmd, exportCmd, tokenCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

// withService wires configuration, database, and adapters, runs fn with a
// ready BackupService, and tears everything down. Used by the one-shot CLI
// verbs; serve does its own wiring because it also needs the worker and hub.
func withService(ctx context.Context, fn func(context.Context, *application.BackupService, *application.TokenService, *config.Config) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}

	svc, tokens, err := buildBackupService(cfg, db)
	if err != nil {
		return err
	}
	return fn(ctx, svc, tokens, cfg)
}

// buildBackupService wires the credential source, client factory, stores,
// and exporter into a BackupService, plus the TokenService that writes the
// stored credential and invalidates the cached client.
func buildBackupService(cfg *config.Config, db *sqliteadapter.DB) (*application.BackupService, *application.TokenService, error) {
	key, err := cfg.EncryptionKey()
	if err != nil {
		return nil, nil, err
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = ""
	}

	credStore := sqliteadapter.NewCredentialRepo(db, key)
	source := connector.Resolve(cfg, credStore, hostname)
	factory := githubadapter.NewFactory(source, version)
	provider := application.NewClientProvider(factory)
	tokens := application.NewTokenService(credStore, provider)

	svc := application.NewBackupService(
		provider,
		sqliteadapter.NewSettingsRepo(db),
		sqliteadapter.NewPromptRepo(db),
		sqliteadapter.NewCategoryRepo(db),
		sqliteadapter.NewThemeRepo(db),
		export.NewExporter(cfg.ExportDir),
		version,
	)
	return svc, tokens, nil
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"export_dir", cfg.ExportDir,
		"cache_version", cfg.CacheVersion,
	)

	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	backupSvc, tokenSvc, err := buildBackupService(cfg, db)
	if err != nil {
		return err
	}

	// Cache worker and websocket hub. The hub's inbound handler is the
	// worker's message protocol; replies go back to the sending client. The
	// handler closure captures cacheWorker, assigned right below, before any
	// client can connect.
	var cacheWorker *worker.Worker
	wsHub := hub.New(func(ctx context.Context, data []byte) ([]byte, error) {
		var msg worker.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("parse client message: %w", err)
		}
		reply, err := cacheWorker.Dispatch(ctx, msg)
		if err != nil || reply == nil {
			return nil, err
		}
		return json.Marshal(reply)
	})
	cacheWorker = worker.New(
		sqliteadapter.NewCacheRepo(db),
		assets.New(cfg.AssetDir),
		wsHub,
		cfg.CacheVersion,
		cfg.ListenAddr,
		coreAssets,
		[]string{"/api/"},
		[]string{"/assets/", "/icons/"},
	)
	go wsHub.Run(ctx)

	// Install the new cache generation; only a complete install takes over.
	if err := cacheWorker.Install(ctx); err != nil {
		slog.Warn("cache install incomplete, keeping previous generation", "error", err)
	} else if err := cacheWorker.Activate(ctx); err != nil {
		slog.Error("cache activation failed", "error", err)
	}

	go backupSvc.StartReminders(ctx, cfg.ReminderInterval, func(r application.Reminder) {
		payload, _ := json.Marshal(map[string]any{
			"daysSince":  r.DaysSince,
			"lastBackup": r.LastBackup,
		})
		wsHub.Broadcast(worker.Message{Type: "BACKUP_REMINDER", Payload: payload})
	})

	apiHandler := httphandler.NewHandler(backupSvc, tokenSvc, cacheWorker, wsHub, version, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("promptvault started", "listen_addr", cfg.ListenAddr, "version", version)

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

func printResult(result any) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Printf("%+v\n", result)
		return
	}
	fmt.Println(string(data))
}
