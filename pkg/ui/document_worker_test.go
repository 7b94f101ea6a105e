package ui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/scamshield/syndicate/pkg/backend"
	"github.com/scamshield/syndicate/pkg/model"
)

// fakeSource returns queued results in order, repeating the last one.
type fakeSource struct {
	mu      sync.Mutex
	results []func() (*model.GraphDocument, error)
	calls   int
}

func (f *fakeSource) Load(context.Context) (*model.GraphDocument, error) {
	f.mu.Lock()
	i := min(f.calls, len(f.results)-1)
	f.calls++
	fn := f.results[i]
	f.mu.Unlock()
	return fn()
}

func (f *fakeSource) Describe() string { return "fake" }

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func docResult(ids ...string) func() (*model.GraphDocument, error) {
	return func() (*model.GraphDocument, error) {
		d := &model.GraphDocument{Links: []model.Link{}}
		for _, id := range ids {
			d.Nodes = append(d.Nodes, model.Node{ID: id, Type: model.KindEntity, Subtype: model.EntityPhone})
		}
		d.Normalize()
		return d, nil
	}
}

func collector() (func(tea.Msg), <-chan tea.Msg) {
	ch := make(chan tea.Msg, 16)
	return func(m tea.Msg) { ch <- m }, ch
}

func waitMsg(t *testing.T, ch <-chan tea.Msg) tea.Msg {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for worker message")
	}
	return nil
}

func TestDocumentWorker_RequiresSource(t *testing.T) {
	if _, err := NewDocumentWorker(WorkerConfig{}); err == nil {
		t.Error("worker without source accepted")
	}
}

func TestDocumentWorker_InitialLoad(t *testing.T) {
	send, msgs := collector()
	src := &fakeSource{results: []func() (*model.GraphDocument, error){docResult("a", "b")}}
	w, err := NewDocumentWorker(WorkerConfig{Source: src, Send: send})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if w.State() != WorkerIdle || w.Snapshot() != nil {
		t.Fatal("worker not idle and empty before Start")
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}

	ready, ok := waitMsg(t, msgs).(DocumentReadyMsg)
	if !ok {
		t.Fatal("expected DocumentReadyMsg")
	}
	if len(ready.Snapshot.Doc.Nodes) != 2 || ready.Snapshot.Network.Len() != 2 {
		t.Errorf("snapshot = %+v", ready.Snapshot)
	}
	if ready.Snapshot.Hash == "" || ready.Snapshot.Hash != w.LastHash() {
		t.Error("hash not recorded")
	}

	// Start is idempotent
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
}

func TestDocumentWorker_RefreshResendsUnchanged(t *testing.T) {
	send, msgs := collector()
	src := &fakeSource{results: []func() (*model.GraphDocument, error){docResult("a")}}
	w, _ := NewDocumentWorker(WorkerConfig{Source: src, Send: send})
	defer w.Stop()
	_ = w.Start()
	waitMsg(t, msgs)

	w.Refresh()
	if _, ok := waitMsg(t, msgs).(DocumentReadyMsg); !ok {
		t.Error("manual refresh of unchanged content was not re-sent")
	}
}

func TestDocumentWorker_LoadErrorAndRecovery(t *testing.T) {
	send, msgs := collector()
	boom := errors.New("disk on fire")
	src := &fakeSource{results: []func() (*model.GraphDocument, error){
		func() (*model.GraphDocument, error) { return nil, boom },
		func() (*model.GraphDocument, error) { return nil, boom },
		docResult("a"),
	}}
	w, _ := NewDocumentWorker(WorkerConfig{Source: src, Send: send})
	defer w.Stop()
	_ = w.Start()

	first, ok := waitMsg(t, msgs).(DocumentErrorMsg)
	if !ok || !errors.Is(first.Err, boom) || first.Err.Phase != "load" || first.Err.Retries != 1 {
		t.Fatalf("first = %+v", first)
	}
	w.Refresh()
	second := waitMsg(t, msgs).(DocumentErrorMsg)
	if second.Err.Retries != 2 {
		t.Errorf("retries = %d, want 2", second.Err.Retries)
	}

	w.Refresh()
	if _, ok := waitMsg(t, msgs).(DocumentReadyMsg); !ok {
		t.Fatal("expected recovery")
	}
	if w.LastError() != nil {
		t.Error("error not cleared after success")
	}
}

func TestDocumentWorker_PanicRecovered(t *testing.T) {
	send, msgs := collector()
	src := &fakeSource{results: []func() (*model.GraphDocument, error){
		func() (*model.GraphDocument, error) { panic("corrupt payload") },
	}}
	w, _ := NewDocumentWorker(WorkerConfig{Source: src, Send: send})
	defer w.Stop()
	_ = w.Start()

	msg, ok := waitMsg(t, msgs).(DocumentErrorMsg)
	if !ok || msg.Err.Phase != "load" {
		t.Fatalf("msg = %+v", msg)
	}
	if w.State() == WorkerProcessing {
		t.Error("worker stuck processing after panic")
	}
}

func TestDocumentWorker_UnauthorizedFlagged(t *testing.T) {
	send, msgs := collector()
	src := &fakeSource{results: []func() (*model.GraphDocument, error){
		func() (*model.GraphDocument, error) {
			return nil, &backend.APIError{StatusCode: 401, Path: backend.PathIntelligenceGraph}
		},
	}}
	w, _ := NewDocumentWorker(WorkerConfig{Source: src, Send: send})
	defer w.Stop()
	_ = w.Start()

	msg := waitMsg(t, msgs).(DocumentErrorMsg)
	if !msg.Unauthorized {
		t.Error("401 not flagged as unauthorized")
	}
}

func TestDocumentWorker_WatchesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.json")
	write := func(body string) {
		t.Helper()
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write(`{"nodes":[{"id":"a","type":"entity","subtype":"phone"}],"links":[]}`)

	send, msgs := collector()
	w, err := NewDocumentWorker(WorkerConfig{
		Source:        FileSource{Path: path},
		WatchPath:     path,
		DebounceDelay: 20 * time.Millisecond,
		Send:          send,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	first := waitMsg(t, msgs).(DocumentReadyMsg)
	if len(first.Snapshot.Doc.Nodes) != 1 {
		t.Fatalf("first load = %+v", first.Snapshot.Doc)
	}

	write(`{"nodes":[{"id":"a","type":"entity","subtype":"phone"},{"id":"c1","type":"conversation"}],"links":[{"source":"c1","target":"a"}]}`)
	var got *DocumentSnapshot
	deadline := time.After(3 * time.Second)
	for got == nil {
		select {
		case m := <-msgs:
			if r, ok := m.(DocumentReadyMsg); ok && len(r.Snapshot.Doc.Nodes) == 2 {
				got = r.Snapshot
			}
		case <-deadline:
			t.Fatal("change was not reloaded")
		}
	}
	if st, ok := got.Network.Stats("a"); !ok || st.Cases != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestDocumentWorker_WatchDedupsUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.json")
	body := []byte(`{"nodes":[{"id":"a","type":"conversation"}],"links":[]}`)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}

	send, msgs := collector()
	w, err := NewDocumentWorker(WorkerConfig{
		Source:        FileSource{Path: path},
		WatchPath:     path,
		DebounceDelay: 20 * time.Millisecond,
		Send:          send,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	_ = w.Start()
	waitMsg(t, msgs)

	// rewrite identical bytes
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case m := <-msgs:
		t.Errorf("unchanged content re-sent: %T", m)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestDocumentWorker_StopIdempotent(t *testing.T) {
	src := &fakeSource{results: []func() (*model.GraphDocument, error){docResult("a")}}
	w, _ := NewDocumentWorker(WorkerConfig{Source: src})
	_ = w.Start()
	w.Stop()
	w.Stop()
	if w.State() != WorkerStopped {
		t.Errorf("state = %v", w.State())
	}
	calls := src.Calls()
	w.Refresh()
	time.Sleep(20 * time.Millisecond)
	if src.Calls() != calls {
		t.Error("refresh after Stop loaded again")
	}
}

func TestWorkerError(t *testing.T) {
	cause := errors.New("boom")
	e := WorkerError{Phase: "load", Cause: cause, Retries: 3}
	if e.Error() != "load failed: boom (retries: 3)" {
		t.Errorf("Error() = %q", e.Error())
	}
	if !errors.Is(e, cause) {
		t.Error("Unwrap does not expose cause")
	}
}

func TestSafeCompute(t *testing.T) {
	if err := safeCompute("x", func() error { return nil }); err != nil {
		t.Errorf("unexpected error %v", err)
	}
	err := safeCompute("analyze", func() error {
		var m map[string]int
		m["boom"] = 1
		return nil
	})
	if err == nil || err.Phase != "analyze" {
		t.Errorf("panic not recovered: %v", err)
	}
}
