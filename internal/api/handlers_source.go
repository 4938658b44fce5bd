package api

import (
	"errors"
	"net/http"

	"github.com/dgallion1/docviewer/internal/source"
)

// handleSourceFile serves the raw source document for the source pane.
func (s *Server) handleSourceFile(w http.ResponseWriter, r *http.Request) {
	file := urlParam(r, "file")
	path, err := s.library.Path(file)
	if err != nil {
		if errors.Is(err, source.ErrUnavailable) {
			http.Error(w, "source file not found", http.StatusNotFound)
			return
		}
		s.log.Error("resolve source file", "file", file, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	http.ServeFile(w, r, path)
}
