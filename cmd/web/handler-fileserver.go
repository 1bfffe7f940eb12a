package main

import (
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

// fileServerHandler serves ui/static with long-lived caching. Missing files and directories render the not found
// page instead of a directory listing.
func (app *application) fileServerHandler() (http.Handler, error) {
	dir, err := uiDir("", "static")
	if err != nil {
		return nil, fmt.Errorf("static directory: %w", err)
	}
	static := os.DirFS(dir)
	fileServer := cacheForever(http.FileServerFS(static))
	notFound := app.session(http.HandlerFunc(app.notFound))

	return app.noAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if !fs.ValidPath(name) {
			notFound.ServeHTTP(w, r)
			return
		}
		if stat, statErr := fs.Stat(static, name); statErr != nil || stat.IsDir() {
			notFound.ServeHTTP(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	})), nil
}
