package api

import (
	"context"
	"net/http"

	"github.com/patrickmn/go-cache"
)

const fileListKey = "files"

type indexData struct {
	Files []string
	Error string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "1" {
		s.files.Delete(fileListKey)
	}

	data := indexData{Files: []string{}}
	files, err := s.listFiles(r.Context())
	if err != nil {
		s.log.Warn("list files failed", "error", err)
		data.Error = "Could not load the document list: " + err.Error()
	} else {
		data.Files = files
	}
	s.render(w, "index.html", data)
}

func (s *Server) handleAPIFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.listFiles(r.Context())
	if err != nil {
		jsonError(w, "failed to list files: "+err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

// listFiles returns the backend file list, cached for FileListTTL.
func (s *Server) listFiles(ctx context.Context) ([]string, error) {
	if v, ok := s.files.Get(fileListKey); ok {
		return v.([]string), nil
	}
	files, err := s.backend.ListFiles(ctx)
	if err != nil {
		return nil, err
	}
	s.files.Set(fileListKey, files, cache.DefaultExpiration)
	return files, nil
}
