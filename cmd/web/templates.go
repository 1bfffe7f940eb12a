package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/myrjola/velocoach/internal/appstate"
	"github.com/myrjola/velocoach/internal/contexthelpers"
	"github.com/myrjola/velocoach/internal/i18n"
)

type BaseTemplateData struct {
	Authenticated bool
	Language      i18n.Language
	Languages     []i18n.Language
	CurrentPath   string
	// Error is rendered as a dismissible banner above the page.
	Error *appstate.ErrorSlot
}

func newBaseTemplateData(r *http.Request) BaseTemplateData {
	ctx := r.Context()
	return BaseTemplateData{
		Authenticated: contexthelpers.IsAuthenticated(ctx),
		Language:      contexthelpers.Language(ctx),
		Languages:     i18n.SupportedLanguages(),
		CurrentPath:   contexthelpers.CurrentPath(ctx),
		Error:         nil,
	}
}

// withState returns the base data of a page that shows the error slot of state.
func withState(r *http.Request, state appstate.Session) BaseTemplateData {
	data := newBaseTemplateData(r)
	data.Error = state.Error
	return data
}

// uiDir returns the directory of the ui/<name> assets. A configured path wins. Otherwise ui/<name> is looked up
// in the working directory and then in the module root, which is where tests run from.
func uiDir(configured, name string) (string, error) {
	candidates := []string{configured}
	if configured == "" {
		candidates = []string{filepath.Join("ui", name)}
		if root, err := moduleRoot(); err == nil {
			candidates = append(candidates, filepath.Join(root, "ui", name))
		}
	}
	for _, dir := range candidates {
		if stat, err := os.Stat(dir); err == nil && stat.IsDir() {
			return dir, nil
		}
	}
	return "", fmt.Errorf("ui directory %s not found in %v: %w", name, candidates, os.ErrNotExist)
}

// moduleRoot walks up from the working directory to the directory containing go.mod.
func moduleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	for {
		if _, err = os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}
