// Package session holds the per-browser viewer state that keeps the source,
// markup and chunk panes on the same page.
package session

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/dgallion1/docviewer/internal/viewmodel"
)

// State is the coarse state of a session.
type State string

const (
	StateEmpty  State = "empty"
	StateLoaded State = "loaded"
)

// Fetcher retrieves the chunk records for one document.
type Fetcher interface {
	FetchChunks(ctx context.Context, fileName string) ([]viewmodel.Record, error)
}

// Ticket identifies one document load. Only the most recent ticket may
// change session state.
type Ticket struct {
	generation uint64
	FileName   string
}

// Session is the viewer state for one browser. Methods are safe for
// concurrent use.
type Session struct {
	mu sync.Mutex

	ID string

	fileName      string
	currentPage   int
	activeChunkID string
	pages         map[int]*viewmodel.Page

	generation uint64
	cancel     context.CancelFunc
	loading    bool
	errMsg     string

	createdAt time.Time
	updatedAt time.Time
}

// New returns an empty session.
func New(id string) *Session {
	now := time.Now()
	return &Session{
		ID:          id,
		currentPage: 1,
		pages:       map[int]*viewmodel.Page{},
		createdAt:   now,
		updatedAt:   now,
	}
}

// Load replaces the page map with one built from records, clears the
// active chunk and moves to the lowest page present.
func (s *Session) Load(records []viewmodel.Record) {
	pages := viewmodel.Build(records)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(pages)
}

func (s *Session) loadLocked(pages map[int]*viewmodel.Page) {
	s.pages = pages
	s.activeChunkID = ""
	s.currentPage = 1
	if len(pages) > 0 {
		s.currentPage = slices.Min(mapKeys(pages))
		if s.currentPage < 1 {
			// A page 0 entry exists but the current page never drops below 1.
			s.currentPage = 1
		}
	}
	s.updatedAt = time.Now()
}

// ChangePage moves to page n and clears the active chunk. Bounds are the
// caller's concern; n is only clamped to 1.
func (s *Session) ChangePage(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changePageLocked(n)
}

func (s *Session) changePageLocked(n int) {
	if n < 1 {
		n = 1
	}
	s.currentPage = n
	s.activeChunkID = ""
	s.updatedAt = time.Now()
}

// SelectChunk makes c the active chunk, bringing its page into view. A
// chunk on a page below 1 can never be the current page, so it is ignored
// and SelectChunk reports false.
func (s *Session) SelectChunk(c viewmodel.Chunk) bool {
	if c.Page < 1 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c.Page != s.currentPage {
		s.changePageLocked(c.Page)
	}
	s.activeChunkID = c.ID
	s.updatedAt = time.Now()
	return true
}

// CurrentPageView returns the page at the current page number, or the
// empty-page sentinel.
func (s *Session) CurrentPageView() *viewmodel.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentPageViewLocked()
}

func (s *Session) currentPageViewLocked() *viewmodel.Page {
	if p, ok := s.pages[s.currentPage]; ok {
		return p
	}
	return viewmodel.EmptyPage(s.currentPage)
}

// MaxPage is the highest page number loaded, or 1.
func (s *Session) MaxPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxPageLocked()
}

func (s *Session) maxPageLocked() int {
	if len(s.pages) == 0 {
		return 1
	}
	return max(slices.Max(mapKeys(s.pages)), 1)
}

// FindChunk looks up a chunk by id on any loaded page.
func (s *Session) FindChunk(id string) (viewmodel.Chunk, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.pages {
		for _, c := range p.Chunks {
			if c.ID == id {
				return c, true
			}
		}
	}
	return viewmodel.Chunk{}, false
}

// CurrentPage returns the current page number.
func (s *Session) CurrentPage() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentPage
}

// ActiveChunkID returns the selected chunk id, or "" when none is selected.
func (s *Session) ActiveChunkID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeChunkID
}

// FileName returns the document the session was last opened for.
func (s *Session) FileName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fileName
}

// State reports whether any page is loaded.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	if len(s.pages) == 0 {
		return StateEmpty
	}
	return StateLoaded
}

// PageNumbers returns the loaded page numbers in ascending order.
func (s *Session) PageNumbers() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := mapKeys(s.pages)
	slices.Sort(keys)
	return keys
}

// Begin starts loading fileName. All prior state is discarded and any
// earlier in-flight load is cancelled and will be ignored when it resolves.
// The returned context is cancelled when a newer load begins.
func (s *Session) Begin(ctx context.Context, fileName string) (context.Context, Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	loadCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.generation++
	s.fileName = fileName
	s.loading = true
	s.errMsg = ""
	s.loadLocked(map[int]*viewmodel.Page{})

	return loadCtx, Ticket{generation: s.generation, FileName: fileName}
}

// Resolve applies the outcome of the load identified by t. It returns false
// and changes nothing when a newer load has begun since.
func (s *Session) Resolve(t Ticket, records []viewmodel.Record, err error) bool {
	var pages map[int]*viewmodel.Page
	if err == nil {
		pages = viewmodel.Build(records)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t.generation != s.generation {
		return false
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.loading = false

	if err != nil {
		s.errMsg = ErrorMessage(err)
		s.loadLocked(map[int]*viewmodel.Page{})
		return true
	}
	s.errMsg = ""
	s.loadLocked(pages)
	return true
}

// Open loads fileName through f. A load superseded by a newer one returns
// ErrSuperseded and leaves state to the newer load.
func (s *Session) Open(ctx context.Context, f Fetcher, fileName string) error {
	loadCtx, ticket := s.Begin(ctx, fileName)
	records, err := f.FetchChunks(loadCtx, fileName)
	if !s.Resolve(ticket, records, err) {
		return ErrSuperseded
	}
	return err
}

// ErrSuperseded is returned by Open when a newer load replaced it.
var ErrSuperseded = errors.New("load superseded by a newer request")

// ErrorMessage turns a fetch error into the message shown to the user.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The document service did not respond in time."
	}
	return "Failed to load the document: " + err.Error()
}

func mapKeys(pages map[int]*viewmodel.Page) []int {
	keys := make([]int, 0, len(pages))
	for k := range pages {
		keys = append(keys, k)
	}
	return keys
}
