package visualize

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewServer builds the HTTP handler that exposes snapshot files in
// dir to the external browser viewer: a JSON listing under /snapshots
// and the raw files under /snapshots/{name}.
func NewServer(dir string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("fusionmatch snapshot server\nGET /snapshots lists files; GET /snapshots/{name} serves one\n"))
	})
	r.Get("/snapshots", func(w http.ResponseWriter, req *http.Request) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		names := []string{}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			names = append(names, entry.Name())
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(names)
	})
	r.Get("/snapshots/{name}", func(w http.ResponseWriter, req *http.Request) {
		name := chi.URLParam(req, "name")
		if name != filepath.Base(name) || !strings.HasSuffix(name, ".json") {
			http.Error(w, "invalid snapshot name", http.StatusBadRequest)
			return
		}
		w.Header().Set("Access-Control-Allow-Origin", "*")
		http.ServeFile(w, req, filepath.Join(dir, name))
	})
	return r
}
