package session

import (
	"slices"
	"time"

	"github.com/dgallion1/docviewer/internal/viewmodel"
)

// View is a read-only, JSON-safe copy of session state taken under one lock.
type View struct {
	SessionID     string          `json:"session_id"`
	FileName      string          `json:"file_name"`
	State         State           `json:"state"`
	CurrentPage   int             `json:"current_page"`
	MaxPage       int             `json:"max_page"`
	PageNumbers   []int           `json:"page_numbers"`
	ActiveChunkID string          `json:"active_chunk_id,omitempty"`
	Page          *viewmodel.Page `json:"page"`
	Loading       bool            `json:"loading"`
	Error         string          `json:"error,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := mapKeys(s.pages)
	slices.Sort(keys)

	return View{
		SessionID:     s.ID,
		FileName:      s.fileName,
		State:         s.stateLocked(),
		CurrentPage:   s.currentPage,
		MaxPage:       s.maxPageLocked(),
		PageNumbers:   keys,
		ActiveChunkID: s.activeChunkID,
		Page:          s.currentPageViewLocked(),
		Loading:       s.loading,
		Error:         s.errMsg,
		UpdatedAt:     s.updatedAt,
	}
}

// ActiveChunk returns the selected chunk when it sits on the page in view.
func (v View) ActiveChunk() (viewmodel.Chunk, bool) {
	if v.ActiveChunkID == "" || v.Page == nil {
		return viewmodel.Chunk{}, false
	}
	for _, c := range v.Page.Chunks {
		if c.ID == v.ActiveChunkID {
			return c, true
		}
	}
	return viewmodel.Chunk{}, false
}
