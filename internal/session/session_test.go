package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dgallion1/docviewer/internal/viewmodel"
)

func rec(content, file string, page int) viewmodel.Record {
	return viewmodel.Record{Content: content, FileName: file, Page: viewmodel.PageOf(page)}
}

func sample() []viewmodel.Record {
	return []viewmodel.Record{
		rec("a", "f", 1),
		rec("b", "f", 1),
		rec("c", "f", 2),
	}
}

func TestNew_IsEmpty(t *testing.T) {
	s := New("s1")
	if s.State() != StateEmpty {
		t.Errorf("expected state %q, got %q", StateEmpty, s.State())
	}
	if s.CurrentPage() != 1 {
		t.Errorf("expected page 1, got %d", s.CurrentPage())
	}
	if s.MaxPage() != 1 {
		t.Errorf("expected max page 1, got %d", s.MaxPage())
	}
}

func TestLoad_MovesToLowestPage(t *testing.T) {
	s := New("s1")
	s.Load([]viewmodel.Record{rec("x", "f", 5), rec("y", "f", 3), rec("z", "f", 9)})

	if s.State() != StateLoaded {
		t.Errorf("expected state %q, got %q", StateLoaded, s.State())
	}
	if s.CurrentPage() != 3 {
		t.Errorf("expected current page 3, got %d", s.CurrentPage())
	}
	if s.MaxPage() != 9 {
		t.Errorf("expected max page 9, got %d", s.MaxPage())
	}
	want := []int{3, 5, 9}
	got := s.PageNumbers()
	if len(got) != len(want) {
		t.Fatalf("expected pages %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected pages %v, got %v", want, got)
			break
		}
	}
}

func TestLoad_EmptyInput(t *testing.T) {
	s := New("s1")
	s.Load(sample())
	s.SelectChunk(viewmodel.Chunk{ID: "f-2-0", Page: 2})

	s.Load(nil)

	if s.State() != StateEmpty {
		t.Errorf("expected state %q, got %q", StateEmpty, s.State())
	}
	if s.CurrentPage() != 1 {
		t.Errorf("expected page 1, got %d", s.CurrentPage())
	}
	if s.ActiveChunkID() != "" {
		t.Errorf("expected no active chunk, got %q", s.ActiveChunkID())
	}
	if len(s.PageNumbers()) != 0 {
		t.Errorf("expected no pages, got %v", s.PageNumbers())
	}
}

func TestLoad_ReplacesWithoutMerging(t *testing.T) {
	s := New("s1")
	s.Load(sample())
	s.Load([]viewmodel.Record{rec("q", "g", 4)})

	pages := s.PageNumbers()
	if len(pages) != 1 || pages[0] != 4 {
		t.Fatalf("expected only page 4, got %v", pages)
	}
	if _, ok := s.FindChunk("f-1-0"); ok {
		t.Error("expected chunks from the previous load to be gone")
	}
}

func TestLoad_Idempotent(t *testing.T) {
	a := New("a")
	a.Load(sample())
	b := New("b")
	b.Load(sample())
	b.Load(sample())

	va, vb := a.Snapshot(), b.Snapshot()
	if va.CurrentPage != vb.CurrentPage || va.MaxPage != vb.MaxPage || va.State != vb.State {
		t.Errorf("expected identical views, got %+v and %+v", va, vb)
	}
}

func TestLoad_ClearsActiveChunk(t *testing.T) {
	s := New("s1")
	s.Load(sample())
	s.SelectChunk(viewmodel.Chunk{ID: "f-1-1", Page: 1})

	s.Load(sample())

	if s.ActiveChunkID() != "" {
		t.Errorf("expected load to clear active chunk, got %q", s.ActiveChunkID())
	}
}

func TestLoad_PageZeroClampsToOne(t *testing.T) {
	s := New("s1")
	s.Load([]viewmodel.Record{rec("cover", "f", 0)})

	if s.CurrentPage() != 1 {
		t.Errorf("expected current page clamped to 1, got %d", s.CurrentPage())
	}
	if got := s.CurrentPageView(); len(got.Chunks) != 0 {
		t.Errorf("expected empty sentinel for page 1, got %d chunks", len(got.Chunks))
	}
}

func TestChangePage(t *testing.T) {
	s := New("s1")
	s.Load(sample())
	s.SelectChunk(viewmodel.Chunk{ID: "f-1-0", Page: 1})

	s.ChangePage(2)

	if s.CurrentPage() != 2 {
		t.Errorf("expected page 2, got %d", s.CurrentPage())
	}
	if s.ActiveChunkID() != "" {
		t.Errorf("expected active chunk cleared, got %q", s.ActiveChunkID())
	}
	if got := s.CurrentPageView(); got.PageNumber != 2 || len(got.Chunks) != 1 {
		t.Errorf("expected page 2 view with 1 chunk, got %+v", got)
	}
}

func TestChangePage_ClampsBelowOne(t *testing.T) {
	s := New("s1")
	s.ChangePage(0)
	if s.CurrentPage() != 1 {
		t.Errorf("expected page 1, got %d", s.CurrentPage())
	}
	s.ChangePage(-4)
	if s.CurrentPage() != 1 {
		t.Errorf("expected page 1, got %d", s.CurrentPage())
	}
}

func TestChangePage_OutOfRangeYieldsEmptySentinel(t *testing.T) {
	s := New("s1")
	s.Load(sample())
	s.ChangePage(40)

	view := s.CurrentPageView()
	if view.PageNumber != 40 {
		t.Errorf("expected sentinel for page 40, got page %d", view.PageNumber)
	}
	if len(view.Chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(view.Chunks))
	}
	if view.MarkupContent == "" {
		t.Error("expected placeholder markup")
	}
}

func TestSelectChunk_FollowsPage(t *testing.T) {
	s := New("s1")
	s.Load(sample())
	if s.CurrentPage() != 1 {
		t.Fatalf("expected page 1 after load, got %d", s.CurrentPage())
	}

	c, ok := s.FindChunk("f-2-0")
	if !ok {
		t.Fatal("expected chunk f-2-0 to exist")
	}
	s.SelectChunk(c)

	if s.CurrentPage() != 2 {
		t.Errorf("expected page 2, got %d", s.CurrentPage())
	}
	if s.ActiveChunkID() != "f-2-0" {
		t.Errorf("expected active chunk %q, got %q", "f-2-0", s.ActiveChunkID())
	}
	if !s.CurrentPageView().HasChunk("f-2-0") {
		t.Error("expected current page view to contain the selected chunk")
	}
}

func TestSelectChunk_SamePageKeepsPage(t *testing.T) {
	s := New("s1")
	s.Load(sample())
	s.SelectChunk(viewmodel.Chunk{ID: "f-1-1", Page: 1})

	if s.CurrentPage() != 1 {
		t.Errorf("expected page 1, got %d", s.CurrentPage())
	}
	if s.ActiveChunkID() != "f-1-1" {
		t.Errorf("expected active chunk %q, got %q", "f-1-1", s.ActiveChunkID())
	}
}

func TestSelectChunk_EveryLoadedChunkIsVisible(t *testing.T) {
	records := []viewmodel.Record{
		rec("a", "f", 1), rec("b", "f", 3), rec("c", "f", 3), rec("d", "f", 8),
	}
	s := New("s1")
	s.Load(records)

	for page, p := range viewmodel.Build(records) {
		for _, c := range p.Chunks {
			if !s.SelectChunk(c) {
				t.Fatalf("chunk %s: expected selection to apply", c.ID)
			}
			if s.CurrentPage() != page {
				t.Errorf("chunk %s: expected page %d, got %d", c.ID, page, s.CurrentPage())
			}
			if !s.CurrentPageView().HasChunk(c.ID) {
				t.Errorf("chunk %s: expected current page view to contain it", c.ID)
			}
		}
	}
}

func TestSelectChunk_IgnoresPageZeroChunk(t *testing.T) {
	records := []viewmodel.Record{rec("cover", "f", 0), rec("body", "f", 1)}
	s := New("s1")
	s.Load(records)
	s.SelectChunk(viewmodel.Chunk{ID: "f-1-0", Page: 1})

	cover := viewmodel.Build(records)[0].Chunks[0]
	if s.SelectChunk(cover) {
		t.Error("expected selection of a page 0 chunk to be refused")
	}
	if s.CurrentPage() != 1 {
		t.Errorf("expected page 1, got %d", s.CurrentPage())
	}
	if got := s.ActiveChunkID(); got != "f-1-0" {
		t.Errorf("expected previous selection kept, got %q", got)
	}
	if id := s.ActiveChunkID(); id != "" && !s.CurrentPageView().HasChunk(id) {
		t.Errorf("expected active chunk %q on the current page", id)
	}
}

func TestSelectChunk_MissingPageYieldsSentinel(t *testing.T) {
	s := New("s1")
	s.Load(sample())
	s.SelectChunk(viewmodel.Chunk{ID: "g-7-0", Page: 7})

	if s.CurrentPage() != 7 {
		t.Errorf("expected page 7, got %d", s.CurrentPage())
	}
	if len(s.CurrentPageView().Chunks) != 0 {
		t.Error("expected empty sentinel for a page absent from the map")
	}
}

func TestEmptyState_OperationsAreHarmless(t *testing.T) {
	s := New("s1")
	s.ChangePage(3)
	s.SelectChunk(viewmodel.Chunk{ID: "x-5-0", Page: 5})

	if s.State() != StateEmpty {
		t.Errorf("expected state %q, got %q", StateEmpty, s.State())
	}
	if len(s.CurrentPageView().Chunks) != 0 {
		t.Error("expected empty sentinel while empty")
	}
}

type fetchFunc func(ctx context.Context, fileName string) ([]viewmodel.Record, error)

func (f fetchFunc) FetchChunks(ctx context.Context, fileName string) ([]viewmodel.Record, error) {
	return f(ctx, fileName)
}

func TestOpen_Success(t *testing.T) {
	s := New("s1")
	err := s.Open(context.Background(), fetchFunc(func(_ context.Context, name string) ([]viewmodel.Record, error) {
		if name != "f.pdf" {
			t.Errorf("expected file %q, got %q", "f.pdf", name)
		}
		return sample(), nil
	}), "f.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	view := s.Snapshot()
	if view.FileName != "f.pdf" {
		t.Errorf("expected file name %q, got %q", "f.pdf", view.FileName)
	}
	if view.State != StateLoaded || view.Loading {
		t.Errorf("expected loaded and not loading, got %+v", view)
	}
	if view.Error != "" {
		t.Errorf("expected no error, got %q", view.Error)
	}
}

func TestOpen_FailureFallsBackToEmpty(t *testing.T) {
	s := New("s1")
	s.Load(sample())
	s.ChangePage(2)

	err := s.Open(context.Background(), fetchFunc(func(context.Context, string) ([]viewmodel.Record, error) {
		return nil, errors.New("status 500")
	}), "g.pdf")
	if err == nil {
		t.Fatal("expected error")
	}

	view := s.Snapshot()
	if view.State != StateEmpty {
		t.Errorf("expected state %q, got %q", StateEmpty, view.State)
	}
	if view.CurrentPage != 1 {
		t.Errorf("expected page 1, got %d", view.CurrentPage)
	}
	if view.Error == "" {
		t.Error("expected a user-visible error message")
	}
	if view.Loading {
		t.Error("expected loading to be false")
	}
}

func TestResolve_IgnoresStaleTicket(t *testing.T) {
	s := New("s1")

	_, slow := s.Begin(context.Background(), "slow.pdf")
	_, fast := s.Begin(context.Background(), "fast.pdf")

	if !s.Resolve(fast, []viewmodel.Record{rec("fast", "fast.pdf", 2)}, nil) {
		t.Fatal("expected latest ticket to apply")
	}
	if s.Resolve(slow, []viewmodel.Record{rec("slow", "slow.pdf", 1)}, nil) {
		t.Fatal("expected stale ticket to be ignored")
	}

	if s.FileName() != "fast.pdf" {
		t.Errorf("expected file %q, got %q", "fast.pdf", s.FileName())
	}
	if s.CurrentPage() != 2 {
		t.Errorf("expected page 2 from the latest load, got %d", s.CurrentPage())
	}
	if _, ok := s.FindChunk("slow.pdf-1-0"); ok {
		t.Error("expected stale records to be discarded")
	}
}

func TestResolve_StaleErrorDoesNotClobber(t *testing.T) {
	s := New("s1")
	_, old := s.Begin(context.Background(), "a.pdf")
	_, cur := s.Begin(context.Background(), "b.pdf")
	s.Resolve(cur, sample(), nil)

	if s.Resolve(old, nil, errors.New("boom")) {
		t.Fatal("expected stale failure to be ignored")
	}
	if s.State() != StateLoaded {
		t.Errorf("expected state %q, got %q", StateLoaded, s.State())
	}
	if s.Snapshot().Error != "" {
		t.Errorf("expected no error, got %q", s.Snapshot().Error)
	}
}

func TestBegin_CancelsPreviousLoad(t *testing.T) {
	s := New("s1")
	first, _ := s.Begin(context.Background(), "a.pdf")
	s.Begin(context.Background(), "b.pdf")

	select {
	case <-first.Done():
	default:
		t.Fatal("expected the superseded load context to be cancelled")
	}
}

func TestOpen_SupersededReturnsErr(t *testing.T) {
	s := New("s1")
	started := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	var slowErr error
	go func() {
		defer wg.Done()
		slowErr = s.Open(context.Background(), fetchFunc(func(ctx context.Context, _ string) ([]viewmodel.Record, error) {
			close(started)
			<-release
			return []viewmodel.Record{rec("slow", "slow.pdf", 1)}, nil
		}), "slow.pdf")
	}()

	<-started
	err := s.Open(context.Background(), fetchFunc(func(context.Context, string) ([]viewmodel.Record, error) {
		return []viewmodel.Record{rec("fast", "fast.pdf", 3)}, nil
	}), "fast.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(release)
	wg.Wait()

	if !errors.Is(slowErr, ErrSuperseded) {
		t.Errorf("expected ErrSuperseded, got %v", slowErr)
	}
	if s.FileName() != "fast.pdf" || s.CurrentPage() != 3 {
		t.Errorf("expected fast.pdf on page 3, got %q on page %d", s.FileName(), s.CurrentPage())
	}
}

func TestErrorMessage(t *testing.T) {
	if ErrorMessage(nil) != "" {
		t.Error("expected empty message for nil error")
	}
	if got := ErrorMessage(context.DeadlineExceeded); got != "The document service did not respond in time." {
		t.Errorf("unexpected timeout message %q", got)
	}
	if got := ErrorMessage(errors.New("status 404")); got != "Failed to load the document: status 404" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestView_ActiveChunk(t *testing.T) {
	s := New("s1")
	s.Load(sample())
	s.SelectChunk(viewmodel.Chunk{ID: "f-1-1", Page: 1})

	c, ok := s.Snapshot().ActiveChunk()
	if !ok || c.Content != "b" {
		t.Errorf("expected active chunk with content %q, got %+v (ok=%v)", "b", c, ok)
	}
}
