package main

import (
	"bytes"
	"context"
	"html/template"
	"log/slog"

	"github.com/myrjola/velocoach/internal/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// markdown renders the formatting the plan generator uses in summaries and session descriptions. Raw HTML in
// the input is dropped.
//
//nolint:gochecknoglobals // stateless and safe for concurrent use.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

func (app *application) renderMarkdownToHTML(ctx context.Context, source string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelWarn, "failed to render markdown", errors.SlogError(err))
		return template.HTML(template.HTMLEscapeString(source)) //nolint:gosec // escaped above.
	}
	return template.HTML(buf.String()) //nolint:gosec // goldmark omits raw HTML without html.WithUnsafe.
}
