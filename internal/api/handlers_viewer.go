package api

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/docviewer/internal/backend"
	"github.com/dgallion1/docviewer/internal/session"
	"github.com/dgallion1/docviewer/internal/source"
	"github.com/dgallion1/docviewer/internal/viewmodel"
)

// Panes a viewer page can widen, left to right.
var paneOrder = []string{"source", "markup", "chunks"}

type sourcePane struct {
	Available bool
	PDF       bool
	Pages     int
	Text      string
	Message   string
}

type viewerData struct {
	File    string
	Expand  string
	View    session.View
	Markup  template.HTML
	Source  sourcePane
	Total   int
	CanPrev bool
	CanNext bool
}

type chunkData struct {
	File   string
	Expand string
	Chunk  viewmodel.Chunk
	Active bool
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	file := urlParam(r, "file")
	sess := s.sessions.For(w, r, file)
	if sess.FileName() != file || r.URL.Query().Get("reload") == "1" {
		s.openDocument(r, sess, file)
	}

	view := sess.Snapshot()
	nav := s.navigator(file, sess)
	_, canPrev := nav.Prev(view.CurrentPage)
	_, canNext := nav.Next(view.CurrentPage)

	s.render(w, "viewer.html", viewerData{
		File:    file,
		Expand:  expandParam(r),
		View:    view,
		Markup:  template.HTML(view.Page.Highlighted(view.ActiveChunkID)),
		Source:  s.sourceFor(file, view.CurrentPage),
		Total:   nav.Total,
		CanPrev: canPrev,
		CanNext: canNext,
	})
}

func (s *Server) handlePageNav(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	file := urlParam(r, "file")
	sess := s.sessions.For(w, r, file)
	if sess.FileName() != file {
		s.openDocument(r, sess, file)
	}

	action := r.PostFormValue("action")
	current := sess.CurrentPage()
	target, ok := s.navigator(file, sess).Apply(action, current, r.PostFormValue("page"))
	if ok {
		sess.ChangePage(target)
	} else {
		s.log.Debug("navigation refused",
			"file", file,
			"action", action,
			"current", current,
			"input", r.PostFormValue("page"),
		)
	}
	http.Redirect(w, r, viewerURL(file, expandParam(r)), http.StatusSeeOther)
}

func (s *Server) handleSelectChunk(w http.ResponseWriter, r *http.Request) {
	file := urlParam(r, "file")
	sess := s.sessions.For(w, r, file)
	if sess.FileName() != file {
		s.openDocument(r, sess, file)
	}

	chunk, ok := sess.FindChunk(urlParam(r, "chunkID"))
	if !ok {
		http.Error(w, "chunk not found", http.StatusNotFound)
		return
	}
	if !sess.SelectChunk(chunk) {
		http.Error(w, "chunk is on a page that cannot be shown", http.StatusConflict)
		return
	}
	http.Redirect(w, r, viewerURL(file, expandParam(r)), http.StatusSeeOther)
}

func (s *Server) handleChunkDetail(w http.ResponseWriter, r *http.Request) {
	file := urlParam(r, "file")
	sess := s.sessions.For(w, r, file)
	if sess.FileName() != file {
		s.openDocument(r, sess, file)
	}

	chunk, ok := sess.FindChunk(urlParam(r, "chunkID"))
	if !ok {
		http.Error(w, "chunk not found", http.StatusNotFound)
		return
	}
	s.render(w, "chunk.html", chunkData{
		File:   file,
		Expand: expandParam(r),
		Chunk:  chunk,
		Active: sess.ActiveChunkID() == chunk.ID,
	})
}

func (s *Server) handleAPIPages(w http.ResponseWriter, r *http.Request) {
	file := urlParam(r, "file")
	records, err := s.backend.FetchChunks(r.Context(), file)
	if err != nil {
		if backend.IsNotFound(err) {
			jsonError(w, "document not found: "+file, http.StatusNotFound)
			return
		}
		jsonError(w, "failed to fetch chunks: "+err.Error(), http.StatusBadGateway)
		return
	}

	pages := viewmodel.Build(records)
	maxPage := 0
	for n := range pages {
		maxPage = max(maxPage, n)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"file_name": file,
		"max_page":  maxPage,
		"pages":     pages,
	})
}

func (s *Server) handleAPISession(w http.ResponseWriter, r *http.Request) {
	file := r.URL.Query().Get("file")
	if file == "" {
		jsonError(w, "file query parameter is required", http.StatusBadRequest)
		return
	}
	sess := s.sessions.Lookup(r, file)
	if sess == nil {
		jsonError(w, "no active session for "+file, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// openDocument loads file into sess. The load ignores request cancellation;
// a newer load for the same session still cancels it.
func (s *Server) openDocument(r *http.Request, sess *session.Session, file string) {
	log := s.log.With("file", file, "session_id", sess.ID, "request_id", middleware.GetReqID(r.Context()))
	start := time.Now()

	err := sess.Open(context.WithoutCancel(r.Context()), s.backend, file)
	switch {
	case errors.Is(err, session.ErrSuperseded):
		log.Info("document load superseded")
	case err != nil:
		log.Warn("document load failed", "error", err)
	default:
		log.Info("document loaded",
			"pages", len(sess.PageNumbers()),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// navigator bounds navigation by the source page count, or by the loaded
// pages when no source file is available.
func (s *Server) navigator(file string, sess *session.Session) source.Navigator {
	if doc, err := s.library.Open(file); err == nil && doc.NumPages() > 0 {
		return source.Navigator{Total: doc.NumPages()}
	}
	return source.Navigator{Total: sess.MaxPage()}
}

func (s *Server) sourceFor(file string, page int) sourcePane {
	doc, err := s.library.Open(file)
	if err != nil {
		if !errors.Is(err, source.ErrUnavailable) {
			s.log.Warn("open source failed", "file", file, "error", err)
		}
		return sourcePane{Message: "Source file unavailable."}
	}

	pane := sourcePane{
		Available: true,
		PDF:       doc.Kind() == source.KindPDF,
		Pages:     doc.NumPages(),
	}
	if pane.PDF {
		return pane
	}
	text, err := doc.PageText(page)
	if err != nil {
		pane.Message = fmt.Sprintf("Page %d is not in the source file (%d pages).", page, pane.Pages)
		return pane
	}
	pane.Text = text
	return pane
}

// urlParam returns a decoded route parameter. chi leaves parameters
// escaped when the request path carried escapes Go could not normalize.
func urlParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}
	if decoded, err := url.PathUnescape(v); err == nil {
		return decoded
	}
	return v
}

func expandParam(r *http.Request) string {
	p := r.FormValue("expand")
	if slices.Contains(paneOrder, p) {
		return p
	}
	return ""
}

func viewerURL(file, expand string) string {
	u := "/viewer/" + url.PathEscape(file)
	if expand != "" {
		u += "?expand=" + url.QueryEscape(expand)
	}
	return u
}
