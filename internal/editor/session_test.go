package editor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

const testDelay = 30 * time.Millisecond

type saveCall struct {
	path    string
	content string
}

// fakeSaver records saves. When gate is set each save blocks until a value
// is received on it.
type fakeSaver struct {
	mu       sync.Mutex
	calls    []saveCall
	inflight int
	maxSeen  int
	fail     error
	gate     chan struct{}
	started  chan struct{}
}

func (f *fakeSaver) Update(ctx context.Context, path, content string) error {
	f.mu.Lock()
	f.calls = append(f.calls, saveCall{path, content})
	f.inflight++
	if f.inflight > f.maxSeen {
		f.maxSeen = f.inflight
	}
	gate, started, fail := f.gate, f.started, f.fail
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	f.inflight--
	f.mu.Unlock()
	return fail
}

func (f *fakeSaver) snapshot() []saveCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]saveCall(nil), f.calls...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestSession(s Saver) *Session {
	return NewSession(context.Background(), s, SessionOptions{Delay: testDelay})
}

func TestOpen_StartsClean(t *testing.T) {
	fs := &fakeSaver{}
	sess := newTestSession(fs)
	b := sess.Open(Document{Path: "a.go", Content: "package a", Language: "go"})

	if b.Dirty() || b.State() != StateClean {
		t.Errorf("new buffer state = %v, want clean", b.State())
	}
	if b.SavedContent() != "package a" || b.Language() != "go" {
		t.Errorf("buffer = %q / %q", b.SavedContent(), b.Language())
	}
	time.Sleep(3 * testDelay)
	if n := len(fs.snapshot()); n != 0 {
		t.Errorf("opening a file triggered %d saves", n)
	}
}

func TestEdit_TrailingDebounce(t *testing.T) {
	fs := &fakeSaver{}
	sess := newTestSession(fs)
	b := sess.Open(Document{Path: "a.txt", Content: ""})

	for _, c := range []string{"h", "he", "hel", "hell", "hello"} {
		sess.Edit(c)
		time.Sleep(testDelay / 3)
	}
	if n := len(fs.snapshot()); n != 0 {
		t.Fatalf("save fired during the burst (%d calls)", n)
	}

	waitFor(t, "save", func() bool { return len(fs.snapshot()) == 1 })
	calls := fs.snapshot()
	if calls[0] != (saveCall{"a.txt", "hello"}) {
		t.Errorf("save = %+v, want final content only", calls[0])
	}
	waitFor(t, "clean state", func() bool { return b.State() == StateClean })
	if b.SavedContent() != "hello" {
		t.Errorf("SavedContent() = %q", b.SavedContent())
	}

	time.Sleep(3 * testDelay)
	if n := len(fs.snapshot()); n != 1 {
		t.Errorf("saves = %d, want exactly 1", n)
	}
}

func TestEdit_BackToSavedCancels(t *testing.T) {
	fs := &fakeSaver{}
	sess := newTestSession(fs)
	sess.Open(Document{Path: "a.txt", Content: "same"})

	sess.Edit("changed")
	sess.Edit("same")
	time.Sleep(3 * testDelay)
	if n := len(fs.snapshot()); n != 0 {
		t.Errorf("saves = %d, want none when content returns to saved", n)
	}
}

func TestSave_FailureKeepsSavedContent(t *testing.T) {
	fs := &fakeSaver{fail: errors.New("503")}
	var results []SaveResult
	var mu sync.Mutex
	sess := NewSession(context.Background(), fs, SessionOptions{
		Delay: testDelay,
		OnSaved: func(r SaveResult) {
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		},
	})
	b := sess.Open(Document{Path: "a.txt", Content: "v1"})
	sess.Edit("v2")

	waitFor(t, "failed save", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(results) == 1
	})
	if b.SavedContent() != "v1" {
		t.Errorf("SavedContent() = %q after failure, want v1", b.SavedContent())
	}
	if b.State() != StateFailed {
		t.Errorf("State() = %v, want failed", b.State())
	}

	// No automatic retry.
	time.Sleep(3 * testDelay)
	if n := len(fs.snapshot()); n != 1 {
		t.Errorf("saves = %d, want 1 (no retry)", n)
	}
}

func TestSave_Serialized(t *testing.T) {
	fs := &fakeSaver{gate: make(chan struct{}), started: make(chan struct{}, 4)}
	sess := newTestSession(fs)
	b := sess.Open(Document{Path: "a.txt", Content: ""})

	sess.Edit("one")
	<-fs.started // first save in flight

	// Two more quiet periods elapse while the first save is blocked.
	sess.Edit("two")
	time.Sleep(2 * testDelay)
	sess.Edit("three")
	time.Sleep(2 * testDelay)

	if n := len(fs.snapshot()); n != 1 {
		t.Fatalf("saves started = %d while one was in flight, want 1", n)
	}

	fs.gate <- struct{}{} // finish "one"
	<-fs.started          // follow-up starts
	fs.gate <- struct{}{} // finish follow-up

	waitFor(t, "clean state", func() bool { return b.State() == StateClean })
	calls := fs.snapshot()
	if len(calls) != 2 {
		t.Fatalf("saves = %+v, want 2", calls)
	}
	if calls[1].content != "three" {
		t.Errorf("follow-up saved %q, want latest content", calls[1].content)
	}
	if fs.maxSeen != 1 {
		t.Errorf("max concurrent saves = %d", fs.maxSeen)
	}
}

func TestOpen_ReplacesBufferAndCancelsTimer(t *testing.T) {
	fs := &fakeSaver{}
	sess := newTestSession(fs)
	first := sess.Open(Document{Path: "a.txt", Content: "a"})
	sess.Edit("a-edited")

	second := sess.Open(Document{Path: "b.txt", Content: "b"})
	if !first.Closed() {
		t.Error("old buffer not closed")
	}
	if sess.Current() != second {
		t.Error("Current() is not the new buffer")
	}

	time.Sleep(3 * testDelay)
	if n := len(fs.snapshot()); n != 0 {
		t.Errorf("replaced buffer still saved (%d calls)", n)
	}

	// Edits to a closed buffer are ignored.
	first.Edit("late")
	if first.Content() != "a-edited" {
		t.Errorf("closed buffer accepted an edit")
	}
}

func TestOpen_LateSaveCompletionIgnored(t *testing.T) {
	fs := &fakeSaver{gate: make(chan struct{}), started: make(chan struct{}, 2)}
	sess := newTestSession(fs)
	first := sess.Open(Document{Path: "a.txt", Content: ""})
	sess.Edit("x")
	<-fs.started

	sess.Open(Document{Path: "b.txt", Content: "b"})
	fs.gate <- struct{}{}

	waitFor(t, "save to finish", func() bool {
		fs.mu.Lock()
		defer fs.mu.Unlock()
		return fs.inflight == 0
	})
	if first.SavedContent() != "" {
		t.Errorf("closed buffer's saved content updated to %q", first.SavedContent())
	}
}

func TestSaveNow(t *testing.T) {
	fs := &fakeSaver{}
	sess := NewSession(context.Background(), fs, SessionOptions{Delay: time.Hour})
	b := sess.Open(Document{Path: "a.txt", Content: ""})
	sess.Edit("now")

	sess.SaveNow()
	if calls := fs.snapshot(); len(calls) != 1 || calls[0].content != "now" {
		t.Fatalf("calls = %+v", calls)
	}
	if b.Dirty() {
		t.Error("buffer dirty after SaveNow")
	}

	// Nothing to save: no request.
	sess.SaveNow()
	if n := len(fs.snapshot()); n != 1 {
		t.Errorf("SaveNow on clean buffer issued a request")
	}
}

func TestPathMovedAndRemoved(t *testing.T) {
	fs := &fakeSaver{}
	sess := NewSession(context.Background(), fs, SessionOptions{Delay: time.Hour})
	b := sess.Open(Document{Path: "src/lib/a.go", Content: ""})

	sess.PathMoved("src/li", "src/x") // prefix of a segment only
	if b.Path() != "src/lib/a.go" {
		t.Errorf("partial segment match retargeted to %q", b.Path())
	}

	sess.PathMoved("src/lib", "src/pkg")
	if b.Path() != "src/pkg/a.go" {
		t.Errorf("Path() = %q, want src/pkg/a.go", b.Path())
	}

	if sess.PathRemoved("other") {
		t.Error("unrelated delete closed the buffer")
	}
	if !sess.PathRemoved("src") {
		t.Error("deleting an ancestor should close the buffer")
	}
	if sess.Current() != nil || !b.Closed() {
		t.Error("buffer still active after delete")
	}
}

func TestSetDelay_AppliesToNextBuffer(t *testing.T) {
	sess := newTestSession(&fakeSaver{})
	sess.SetDelay(0)
	if sess.Delay() != testDelay {
		t.Errorf("SetDelay(0) changed delay to %v", sess.Delay())
	}
	sess.SetDelay(time.Minute)
	b := sess.Open(Document{Path: "a"})
	if b.delay != time.Minute {
		t.Errorf("buffer delay = %v, want 1m", b.delay)
	}
}
