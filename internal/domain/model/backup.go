package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// FormatVersion is the backup document format written by this build. Readers
// accept any document sharing the same major version.
const FormatVersion = "1.0"

// backupFilePattern matches backup object names and captures the embedded date.
var backupFilePattern = regexp.MustCompile(`^ai-prompt-manager-backup-(\d{4}-\d{2}-\d{2})\.json$`)

// BackupSettings is the durable backup configuration, stored whole under the
// "githubSettings" settings key. Mutations go through the backup service,
// which re-persists the entire object (last write wins, see package docs).
type BackupSettings struct {
	Enabled            bool            `json:"enabled"`
	RepositoryName     string          `json:"repositoryName"` // "owner/repo"
	Branch             string          `json:"branch"`
	AutoBackup         bool            `json:"autoBackup"`
	BackupFrequency    BackupFrequency `json:"backupFrequency"`
	LastBackupReminder *time.Time      `json:"lastBackupReminder"`
}

// DefaultBackupSettings returns the settings used when no record exists yet.
func DefaultBackupSettings() BackupSettings {
	return BackupSettings{
		Enabled:         false,
		RepositoryName:  "",
		Branch:          "main",
		AutoBackup:      false,
		BackupFrequency: FrequencyWeekly,
	}
}

// SplitRepo splits RepositoryName into its owner and repo components.
// A malformed value is a configuration problem, not a crash.
func (s BackupSettings) SplitRepo() (string, string, error) {
	parts := strings.SplitN(s.RepositoryName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository name %q: expected owner/repo", s.RepositoryName)
	}
	return parts[0], parts[1], nil
}

// Safe returns the subset of settings embedded in backup documents.
// Credentials never travel with a backup.
type SafeSettings struct {
	RepositoryName  string          `json:"repositoryName"`
	Branch          string          `json:"branch"`
	AutoBackup      bool            `json:"autoBackup"`
	BackupFrequency BackupFrequency `json:"backupFrequency"`
	Theme           string          `json:"theme,omitempty"`
}

// Safe builds the secrets-free settings snapshot for a backup document.
func (s BackupSettings) Safe(theme string) SafeSettings {
	return SafeSettings{
		RepositoryName:  s.RepositoryName,
		Branch:          s.Branch,
		AutoBackup:      s.AutoBackup,
		BackupFrequency: s.BackupFrequency,
		Theme:           theme,
	}
}

// BackupDocument is a point-in-time snapshot of all application state.
// Built fresh for every backup or export; never mutated after construction.
type BackupDocument struct {
	ExportDate    time.Time      `json:"exportDate"`
	FormatVersion string         `json:"formatVersion"`
	AppVersion    string         `json:"appVersion"`
	Data          BackupData     `json:"data"`
	Metadata      BackupMetadata `json:"metadata"`
}

// BackupData carries the restorable application state.
type BackupData struct {
	Prompts    []Prompt            `json:"prompts"`
	Categories map[string]Category `json:"categories"`
	Settings   SafeSettings        `json:"settings"`
}

// BackupMetadata summarizes a document for listings and restore reports.
type BackupMetadata struct {
	PromptCount   int    `json:"promptCount"`
	CategoryCount int    `json:"categoryCount"`
	ExportedBy    string `json:"exportedBy"`
}

// BackupFilename derives the deterministic object name for a backup taken on
// the given date. Two backups on the same day share a name and upsert.
func BackupFilename(date time.Time) string {
	return fmt.Sprintf("ai-prompt-manager-backup-%s.json", date.UTC().Format("2006-01-02"))
}

// ParseBackupFilename extracts the date string from a backup object name.
// Returns ok=false for names that are not backup files.
func ParseBackupFilename(name string) (string, bool) {
	m := backupFilePattern.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// BackupFileInfo describes one remote backup object.
type BackupFileInfo struct {
	Name    string `json:"name"`
	Date    string `json:"date"` // YYYY-MM-DD, extracted from the name.
	Size    int    `json:"size"`
	HTMLURL string `json:"htmlUrl"`
}

// BackupResult reports the outcome of a backup attempt. Warning is set when
// a remote failure degraded to a successful local export.
type BackupResult struct {
	Method    BackupMethod `json:"method"`
	URL       string       `json:"url,omitempty"`  // Remote web URL (github method).
	Path      string       `json:"path,omitempty"` // Local file path (local_download method).
	Warning   string       `json:"warning,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// RestoreResult reports what a restore actually touched.
type RestoreResult struct {
	PromptCount   int       `json:"promptCount"`
	CategoryCount int       `json:"categoryCount"`
	ExportDate    time.Time `json:"exportDate"`
	ThemeRestored bool      `json:"themeRestored"`
}
