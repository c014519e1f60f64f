// Package application contains use-case orchestration services.
package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ericfisherdev/promptvault/internal/domain/backuperr"
	"github.com/ericfisherdev/promptvault/internal/domain/model"
	"github.com/ericfisherdev/promptvault/internal/domain/port/driven"
)

const (
	settingsKey   = "githubSettings"
	lastBackupKey = "lastBackup"

	exportedBy = "promptvault"
)

// BackupService orchestrates snapshot backup, restore, and local export.
// All remote failures are re-classified into backuperr types before they
// reach callers.
type BackupService struct {
	clients    driven.ClientFactory
	settings   driven.SettingsStore
	prompts    driven.PromptStore
	categories driven.CategoryStore
	themes     driven.ThemeStore
	exporter   driven.Exporter
	version    string
	now        func() time.Time
}

// NewBackupService creates a new BackupService with all required dependencies.
func NewBackupService(
	clients driven.ClientFactory,
	settings driven.SettingsStore,
	prompts driven.PromptStore,
	categories driven.CategoryStore,
	themes driven.ThemeStore,
	exporter driven.Exporter,
	version string,
) *BackupService {
	return &BackupService{
		clients:    clients,
		settings:   settings,
		prompts:    prompts,
		categories: categories,
		themes:     themes,
		exporter:   exporter,
		version:    version,
		now:        time.Now,
	}
}

// Settings loads the backup configuration, falling back to defaults when no
// record exists yet.
func (s *BackupService) Settings(ctx context.Context) (model.BackupSettings, error) {
	raw, err := s.settings.Get(ctx, settingsKey)
	if err != nil {
		return model.BackupSettings{}, fmt.Errorf("load backup settings: %w", err)
	}
	if raw == "" {
		return model.DefaultBackupSettings(), nil
	}

	var cfg model.BackupSettings
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return model.BackupSettings{}, fmt.Errorf("parse backup settings: %w", err)
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	return cfg, nil
}

// UpdateSettings validates and re-persists the whole settings record.
// The store is last-write-wins; concurrent updaters replace each other.
func (s *BackupService) UpdateSettings(ctx context.Context, cfg model.BackupSettings) error {
	if cfg.Enabled {
		if _, _, err := cfg.SplitRepo(); err != nil {
			return &backuperr.ConfigError{Message: err.Error()}
		}
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}

	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode backup settings: %w", err)
	}
	if err := s.settings.Set(ctx, settingsKey, string(raw)); err != nil {
		return fmt.Errorf("store backup settings: %w", err)
	}
	return nil
}

// LastBackup returns the time of the last successful backup, or nil when no
// backup has run yet.
func (s *BackupService) LastBackup(ctx context.Context) (*time.Time, error) {
	raw, err := s.settings.Get(ctx, lastBackupKey)
	if err != nil {
		return nil, fmt.Errorf("load last backup time: %w", err)
	}
	if raw == "" {
		return nil, nil
	}

	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("parse last backup time %q: %w", raw, err)
	}
	return &ts, nil
}

// Backup takes a snapshot and uploads it to the configured repository. When
// allowFallback is set, any remote failure degrades to a local export whose
// result carries a Warning; with both paths failing the returned BackupError
// names both causes. Without fallback the remote failure is returned directly.
func (s *BackupService) Backup(ctx context.Context, manual, allowFallback bool) (*model.BackupResult, error) {
	cfg, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}

	if gateErr := s.checkConfigured(ctx, cfg); gateErr != nil {
		if allowFallback {
			return s.exportFallback(ctx, cfg, gateErr)
		}
		return nil, gateErr
	}

	result, err := s.backupRemote(ctx, cfg, manual)
	if err != nil {
		slog.Warn("remote backup failed", "manual", manual, "fallback", allowFallback, "error", err)
		if allowFallback {
			return s.exportFallback(ctx, cfg, err)
		}
		return nil, &backuperr.BackupError{Err: err}
	}

	return result, nil
}

// ExportLocal builds a snapshot and writes it to the export directory.
// It never touches the network.
func (s *BackupService) ExportLocal(ctx context.Context) (*model.BackupResult, error) {
	cfg, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := s.buildDocument(ctx, cfg)
	if err != nil {
		return nil, err
	}

	path, err := s.exporter.WriteSnapshot(ctx, doc)
	if err != nil {
		return nil, &backuperr.BackupError{Err: err}
	}

	return &model.BackupResult{
		Method:    model.MethodLocalDownload,
		Path:      path,
		Timestamp: s.now().UTC(),
	}, nil
}

// Restore fetches the named backup from the configured repository, validates
// it, and replaces local state with its contents. Prompts, categories, and
// theme are restored independently; a document without a theme leaves the
// current theme untouched.
func (s *BackupService) Restore(ctx context.Context, fileName string) (*model.RestoreResult, error) {
	cfg, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled || cfg.RepositoryName == "" {
		return nil, &backuperr.ConfigError{Message: "github backup is not configured: set a repository in backup settings"}
	}

	client, err := s.clients.CreateClient(ctx)
	if err != nil {
		return nil, err
	}

	file, err := client.GetFile(ctx, cfg.RepositoryName, fileName, cfg.Branch)
	if err != nil {
		if errors.Is(err, driven.ErrFileNotFound) {
			return nil, &backuperr.FormatError{Message: fmt.Sprintf("backup file %q not found in %s", fileName, cfg.RepositoryName)}
		}
		return nil, fmt.Errorf("fetch backup file: %w", err)
	}

	var doc model.BackupDocument
	if err := json.Unmarshal(file.Content, &doc); err != nil {
		return nil, &backuperr.FormatError{Message: fmt.Sprintf("backup file is not valid JSON: %v", err)}
	}
	if doc.Data.Prompts == nil || doc.Data.Categories == nil {
		return nil, &backuperr.FormatError{Message: "backup file is missing prompt or category data"}
	}
	if !compatibleFormat(doc.FormatVersion) {
		return nil, &backuperr.FormatError{Message: fmt.Sprintf("unsupported backup format version %q", doc.FormatVersion)}
	}

	if err := s.prompts.ReplaceAll(ctx, doc.Data.Prompts); err != nil {
		return nil, fmt.Errorf("restore prompts: %w", err)
	}
	if err := s.categories.ReplaceAll(ctx, doc.Data.Categories); err != nil {
		return nil, fmt.Errorf("restore categories: %w", err)
	}

	themeRestored := false
	if theme := doc.Data.Settings.Theme; theme != "" {
		if err := s.themes.Apply(ctx, theme); err != nil {
			slog.Error("theme restore failed", "theme", theme, "error", err)
		} else {
			themeRestored = true
		}
	}

	slog.Info("backup restored",
		"file", fileName,
		"prompts", len(doc.Data.Prompts),
		"categories", len(doc.Data.Categories),
		"theme_restored", themeRestored,
	)

	return &model.RestoreResult{
		PromptCount:   len(doc.Data.Prompts),
		CategoryCount: len(doc.Data.Categories),
		ExportDate:    doc.ExportDate,
		ThemeRestored: themeRestored,
	}, nil
}

// ListBackups lists backup files in the configured repository, newest first.
// It returns an empty slice, never an error, when the backup feature is
// unconfigured or the repository is unreachable.
func (s *BackupService) ListBackups(ctx context.Context) []model.BackupFileInfo {
	cfg, err := s.Settings(ctx)
	if err != nil || !cfg.Enabled || cfg.RepositoryName == "" {
		return []model.BackupFileInfo{}
	}

	client, err := s.clients.CreateClient(ctx)
	if err != nil {
		slog.Warn("backup listing skipped", "error", err)
		return []model.BackupFileInfo{}
	}

	files, err := client.ListDir(ctx, cfg.RepositoryName, "", cfg.Branch)
	if err != nil {
		if !errors.Is(err, driven.ErrFileNotFound) {
			slog.Warn("backup listing failed", "repo", cfg.RepositoryName, "error", err)
		}
		return []model.BackupFileInfo{}
	}

	backups := make([]model.BackupFileInfo, 0, len(files))
	for _, f := range files {
		date, ok := model.ParseBackupFilename(f.Name)
		if !ok {
			continue
		}
		backups = append(backups, model.BackupFileInfo{
			Name:    f.Name,
			Date:    date,
			Size:    f.Size,
			HTMLURL: f.HTMLURL,
		})
	}

	sort.Slice(backups, func(i, j int) bool { return backups[i].Date > backups[j].Date })
	return backups
}

// checkConfigured is the gate every remote backup passes before any snapshot
// work happens. Returns a ConfigError naming what to fix, or nil.
func (s *BackupService) checkConfigured(ctx context.Context, cfg model.BackupSettings) error {
	if !cfg.Enabled {
		return &backuperr.ConfigError{Message: "github backup is disabled: enable it in backup settings"}
	}
	if _, _, err := cfg.SplitRepo(); err != nil {
		return &backuperr.ConfigError{Message: err.Error()}
	}
	if !s.clients.IsConfigured(ctx) {
		return &backuperr.ConfigError{Message: "github connection is not working: check your token and network"}
	}
	return nil
}

// backupRemote performs the snapshot upload with SHA optimistic concurrency:
// read the current object first, then update with its SHA or create when
// absent. A stale SHA fails; it is never retried as a blind overwrite.
func (s *BackupService) backupRemote(ctx context.Context, cfg model.BackupSettings, manual bool) (*model.BackupResult, error) {
	client, err := s.clients.CreateClient(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := s.buildDocument(ctx, cfg)
	if err != nil {
		return nil, err
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode backup document: %w", err)
	}

	now := s.now().UTC()
	name := model.BackupFilename(now)

	sha := ""
	existing, err := client.GetFile(ctx, cfg.RepositoryName, name, cfg.Branch)
	switch {
	case err == nil:
		sha = existing.SHA
	case errors.Is(err, driven.ErrFileNotFound):
		// First backup today; create.
	default:
		return nil, fmt.Errorf("check existing backup: %w", err)
	}

	message := fmt.Sprintf("Automated backup %s", now.Format("2006-01-02"))
	if manual {
		message = fmt.Sprintf("Manual backup %s", now.Format("2006-01-02"))
	}

	remote, err := client.PutFile(ctx, cfg.RepositoryName, name, cfg.Branch, message, payload, sha)
	if err != nil {
		return nil, fmt.Errorf("upload backup: %w", err)
	}

	if err := s.settings.Set(ctx, lastBackupKey, now.Format(time.RFC3339)); err != nil {
		// The backup itself succeeded; a stale timestamp only affects reminders.
		slog.Error("failed to record last backup time", "error", err)
	}

	slog.Info("backup uploaded",
		"repo", cfg.RepositoryName,
		"file", name,
		"prompts", doc.Metadata.PromptCount,
		"updated", sha != "",
	)

	return &model.BackupResult{
		Method:    model.MethodGitHub,
		URL:       remote.HTMLURL,
		Timestamp: now,
	}, nil
}

// exportFallback writes a local snapshot after a remote failure. The returned
// result carries the remote cause as a warning; if the export also fails the
// BackupError names both causes.
func (s *BackupService) exportFallback(ctx context.Context, cfg model.BackupSettings, cause error) (*model.BackupResult, error) {
	doc, err := s.buildDocument(ctx, cfg)
	if err != nil {
		return nil, &backuperr.BackupError{Err: cause, FallbackErr: err}
	}

	path, err := s.exporter.WriteSnapshot(ctx, doc)
	if err != nil {
		return nil, &backuperr.BackupError{Err: cause, FallbackErr: err}
	}

	slog.Info("backup fell back to local export", "path", path, "cause", cause)

	return &model.BackupResult{
		Method:    model.MethodLocalDownload,
		Path:      path,
		Warning:   cause.Error(),
		Timestamp: s.now().UTC(),
	}, nil
}

// buildDocument assembles a fresh point-in-time snapshot of all state.
func (s *BackupService) buildDocument(ctx context.Context, cfg model.BackupSettings) (model.BackupDocument, error) {
	prompts, err := s.prompts.List(ctx)
	if err != nil {
		return model.BackupDocument{}, fmt.Errorf("load prompts: %w", err)
	}
	categories, err := s.categories.List(ctx)
	if err != nil {
		return model.BackupDocument{}, fmt.Errorf("load categories: %w", err)
	}
	theme, err := s.themes.Current(ctx)
	if err != nil {
		return model.BackupDocument{}, fmt.Errorf("load theme: %w", err)
	}

	if prompts == nil {
		prompts = []model.Prompt{}
	}
	if categories == nil {
		categories = map[string]model.Category{}
	}

	return model.BackupDocument{
		ExportDate:    s.now().UTC(),
		FormatVersion: model.FormatVersion,
		AppVersion:    s.version,
		Data: model.BackupData{
			Prompts:    prompts,
			Categories: categories,
			Settings:   cfg.Safe(theme),
		},
		Metadata: model.BackupMetadata{
			PromptCount:   len(prompts),
			CategoryCount: len(categories),
			ExportedBy:    exportedBy,
		},
	}, nil
}

// compatibleFormat accepts documents sharing the current major format version.
// Documents written before versioning carry no value and are accepted.
func compatibleFormat(version string) bool {
	if version == "" {
		return true
	}
	currentMajor, _, _ := strings.Cut(model.FormatVersion, ".")
	major, _, _ := strings.Cut(version, ".")
	return major == currentMajor
}
