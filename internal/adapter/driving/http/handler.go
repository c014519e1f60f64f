// Package httphandler is the HTTP driving adapter: the REST API, the
// websocket endpoint, and static assets served through the cache worker.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ericfisherdev/promptvault/internal/application"
	"github.com/ericfisherdev/promptvault/internal/domain/backuperr"
	"github.com/ericfisherdev/promptvault/internal/domain/model"
	"github.com/ericfisherdev/promptvault/internal/domain/port/driven"
	"github.com/ericfisherdev/promptvault/internal/hub"
	"github.com/ericfisherdev/promptvault/internal/worker"
)

// Handler is the HTTP driving adapter for the backup API.
type Handler struct {
	backupSvc *application.BackupService
	tokens    *application.TokenService
	worker    *worker.Worker
	hub       *hub.Hub
	version   string
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	backupSvc *application.BackupService,
	tokens *application.TokenService,
	cacheWorker *worker.Worker,
	wsHub *hub.Hub,
	version string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		backupSvc: backupSvc,
		tokens:    tokens,
		worker:    cacheWorker,
		hub:       wsHub,
		version:   version,
		logger:    logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/backup", h.RunBackup)
	mux.HandleFunc("POST /api/backup/export", h.ExportBackup)
	mux.HandleFunc("GET /api/backups", h.ListBackups)
	mux.HandleFunc("POST /api/restore/{name}", h.Restore)
	mux.HandleFunc("GET /api/settings/backup", h.GetBackupSettings)
	mux.HandleFunc("PUT /api/settings/backup", h.UpdateBackupSettings)
	mux.HandleFunc("GET /api/settings/token", h.GetTokenStatus)
	mux.HandleFunc("PUT /api/settings/token", h.UpdateToken)
	mux.HandleFunc("DELETE /api/settings/token", h.DeleteToken)
	mux.HandleFunc("GET /api/health", h.Health)
	mux.HandleFunc("GET /ws", h.hub.ServeWS)
	mux.HandleFunc("/", h.Asset)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// RunBackup triggers a manual backup. ?fallback=false disables the
// local-export fallback.
func (h *Handler) RunBackup(w http.ResponseWriter, r *http.Request) {
	allowFallback := true
	if v := r.URL.Query().Get("fallback"); v == "false" || v == "0" {
		allowFallback = false
	}

	result, err := h.backupSvc.Backup(r.Context(), true, allowFallback)
	if err != nil {
		h.writeBackupError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ExportBackup writes a snapshot to the export directory without touching
// the network.
func (h *Handler) ExportBackup(w http.ResponseWriter, r *http.Request) {
	result, err := h.backupSvc.ExportLocal(r.Context())
	if err != nil {
		h.writeBackupError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListBackups returns the remote backup files, newest first.
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.backupSvc.ListBackups(r.Context()))
}

// Restore replaces local state with the contents of the named backup file.
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if _, ok := model.ParseBackupFilename(name); !ok {
		writeError(w, http.StatusBadRequest, "invalid backup file name")
		return
	}

	result, err := h.backupSvc.Restore(r.Context(), name)
	if err != nil {
		h.writeBackupError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetBackupSettings returns the current backup configuration.
func (h *Handler) GetBackupSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.backupSvc.Settings(r.Context())
	if err != nil {
		h.logger.Error("failed to load backup settings", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, cfg)
}

// UpdateBackupSettings replaces the backup configuration.
func (h *Handler) UpdateBackupSettings(w http.ResponseWriter, r *http.Request) {
	var cfg model.BackupSettings
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.backupSvc.UpdateSettings(r.Context(), cfg); err != nil {
		h.writeBackupError(w, err)
		return
	}

	updated, err := h.backupSvc.Settings(r.Context())
	if err != nil {
		h.logger.Error("failed to reload backup settings", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// GetTokenStatus reports whether a GitHub token is stored. The token itself
// is never returned.
func (h *Handler) GetTokenStatus(w http.ResponseWriter, r *http.Request) {
	stored, err := h.tokens.TokenStored(r.Context())
	if err != nil {
		h.writeBackupError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TokenStatusResponse{Stored: stored})
}

// UpdateToken stores the GitHub token used when no platform connector is
// available, and drops the cached remote client so it takes effect at once.
func (h *Handler) UpdateToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.tokens.SetToken(r.Context(), body.Token); err != nil {
		h.writeBackupError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TokenStatusResponse{Stored: true})
}

// DeleteToken removes the stored GitHub token.
func (h *Handler) DeleteToken(w http.ResponseWriter, r *http.Request) {
	if err := h.tokens.ClearToken(r.Context()); err != nil {
		h.writeBackupError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, TokenStatusResponse{Stored: false})
}

// Health reports daemon liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// Asset serves the UI shell and static files through the cache worker, so
// the daemon keeps serving them when the network (or asset source) is gone.
func (h *Handler) Asset(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	resp, err := h.worker.Fetch(r.Context(), worker.Request{
		Method:     r.Method,
		URL:        r.URL.Path,
		Navigation: strings.Contains(r.Header.Get("Accept"), "text/html"),
	})
	if err != nil {
		h.logger.Warn("asset fetch failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusServiceUnavailable, "offline and not cached")
		return
	}

	for key, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

// writeBackupError maps the backup error taxonomy onto HTTP statuses.
// Messages from the taxonomy are actionable and safe to return.
func (h *Handler) writeBackupError(w http.ResponseWriter, err error) {
	var formatErr *backuperr.FormatError
	var backupErr *backuperr.BackupError

	switch {
	case backuperr.IsConfig(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case backuperr.IsAuth(err):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &formatErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, driven.ErrSHAMismatch):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, driven.ErrEncryptionKeyNotSet):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &backupErr):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		h.logger.Error("backup operation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
