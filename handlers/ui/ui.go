package ui

import (
	"errors"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/sirupsen/logrus"
)

// apiBasePlaceholder in served files is replaced with the API mount point.
const apiBasePlaceholder = "__API_BASE__"

var contentTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".js":   "application/javascript",
	".css":  "text/css; charset=utf-8",
	".png":  "image/png",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
}

// HandleUI serves the frontend from assets. Paths without an extension that
// match no file fall back to index.html; missing assets are a 404.
func HandleUI(assets fs.FS, apiBase string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" {
			name = "index.html"
		}

		content, err := fs.ReadFile(assets, name)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logrus.WithError(err).WithField("path", name).Error("Failed to read asset")
				http.Error(w, "Error reading file", http.StatusInternalServerError)
				return
			}
			if strings.Contains(path.Base(name), ".") {
				http.NotFound(w, r)
				return
			}
			name = "index.html"
			if content, err = fs.ReadFile(assets, name); err != nil {
				http.Error(w, "File not found", http.StatusNotFound)
				return
			}
		}

		body := strings.ReplaceAll(string(content), apiBasePlaceholder, apiBase)

		contentType, ok := contentTypes[path.Ext(name)]
		if !ok {
			contentType = http.DetectContentType([]byte(body))
		}
		w.Header().Set("Content-Type", contentType)

		if r.Method == http.MethodHead {
			return
		}
		if _, err := io.WriteString(w, body); err != nil {
			logrus.WithError(err).Debug("Failed to write asset")
		}
	}
}
