// Package export implements the Exporter port: local snapshot files written
// when the user asks for a download or the remote store is unreachable.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ericfisherdev/promptvault/internal/domain/model"
	"github.com/ericfisherdev/promptvault/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Exporter = (*Exporter)(nil)

// Exporter writes backup documents to a local directory. Alongside the JSON
// snapshot it writes an HTML companion with prompt bodies rendered from
// markdown, so a snapshot is readable without the app.
type Exporter struct {
	dir string
}

// NewExporter creates an Exporter rooted at dir. The directory is created on
// first write.
func NewExporter(dir string) *Exporter {
	return &Exporter{dir: dir}
}

// WriteSnapshot writes doc and returns the JSON snapshot path. The HTML
// companion is best-effort: a failure there is logged, not fatal, since the
// JSON file alone is a complete backup.
func (e *Exporter) WriteSnapshot(_ context.Context, doc model.BackupDocument) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir %s: %w", e.dir, err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize backup document: %w", err)
	}

	name := model.BackupFilename(doc.ExportDate)
	jsonPath := filepath.Join(e.dir, name)
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot %s: %w", jsonPath, err)
	}

	htmlPath := strings.TrimSuffix(jsonPath, ".json") + ".html"
	if err := os.WriteFile(htmlPath, renderDocument(doc), 0o644); err != nil {
		slog.Warn("html companion export failed", "path", htmlPath, "error", err)
	}

	slog.Info("local snapshot written", "path", jsonPath, "prompts", doc.Metadata.PromptCount)
	return jsonPath, nil
}

// renderDocument builds the readable HTML companion.
func renderDocument(doc model.BackupDocument) []byte {
	var b strings.Builder

	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>Prompt backup %s</title>\n", doc.ExportDate.UTC().Format("2006-01-02"))
	b.WriteString("<style>body{font-family:sans-serif;max-width:48rem;margin:2rem auto;padding:0 1rem}article{border-bottom:1px solid #ddd;padding:1rem 0}h2{margin-bottom:.25rem}.meta{color:#666;font-size:.85rem}</style>\n")
	b.WriteString("</head>\n<body>\n")

	fmt.Fprintf(&b, "<h1>Prompt backup &mdash; %s</h1>\n", doc.ExportDate.UTC().Format("2006-01-02"))
	fmt.Fprintf(&b, "<p class=\"meta\">%d prompts, %d categories, exported by %s (format %s)</p>\n",
		doc.Metadata.PromptCount, doc.Metadata.CategoryCount,
		html.EscapeString(doc.Metadata.ExportedBy), html.EscapeString(doc.FormatVersion))

	for _, p := range doc.Data.Prompts {
		b.WriteString("<article>\n")
		fmt.Fprintf(&b, "<h2>%s</h2>\n", html.EscapeString(p.Title))
		if p.CategoryName != "" {
			fmt.Fprintf(&b, "<p class=\"meta\">%s</p>\n", html.EscapeString(p.CategoryName))
		}
		b.WriteString(renderMarkdown(p.Content))
		b.WriteString("\n</article>\n")
	}

	b.WriteString("</body>\n</html>\n")
	return []byte(b.String())
}
