// Package ui provides the terminal hosting page for the fraud network view.
// This file implements the DocumentWorker, which loads graph documents off
// the UI thread.
package ui

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/scamshield/syndicate/pkg/analysis"
	"github.com/scamshield/syndicate/pkg/backend"
	"github.com/scamshield/syndicate/pkg/model"
	"github.com/scamshield/syndicate/pkg/watcher"
)

// Source produces graph documents.
type Source interface {
	Load(ctx context.Context) (*model.GraphDocument, error)
	// Describe names the source for logs and the status line.
	Describe() string
}

// FileSource reads a graph document from a JSON file.
type FileSource struct {
	Path string
}

func (f FileSource) Load(context.Context) (*model.GraphDocument, error) {
	return model.LoadDocumentFile(f.Path)
}

func (f FileSource) Describe() string { return f.Path }

// BackendSource fetches the graph from the intelligence API.
type BackendSource struct {
	Client *backend.Client
	// Network selects the analytics network-graph endpoint instead of the
	// intelligence graph.
	Network bool
}

func (b BackendSource) Load(ctx context.Context) (*model.GraphDocument, error) {
	if b.Network {
		return b.Client.FetchNetworkGraph(ctx)
	}
	return b.Client.FetchGraph(ctx)
}

func (b BackendSource) Describe() string {
	if b.Network {
		return b.Client.BaseURL() + backend.PathNetworkGraph
	}
	return b.Client.BaseURL()
}

// WorkerState represents the current state of the document worker.
type WorkerState int

const (
	// WorkerIdle means the worker is waiting for a change or a refresh.
	WorkerIdle WorkerState = iota
	// WorkerProcessing means a document is being loaded.
	WorkerProcessing
	// WorkerStopped means the worker has been stopped.
	WorkerStopped
)

// WorkerError wraps errors with phase and retry context.
type WorkerError struct {
	Phase   string    // "load", "analyze"
	Cause   error     // The underlying error
	Time    time.Time // When the error occurred
	Retries int       // Consecutive failures including this one
}

func (e WorkerError) Error() string {
	return fmt.Sprintf("%s failed: %v (retries: %d)", e.Phase, e.Cause, e.Retries)
}

func (e WorkerError) Unwrap() error {
	return e.Cause
}

// DocumentSnapshot is an immutable loaded document plus its analysis.
type DocumentSnapshot struct {
	Doc      *model.GraphDocument
	Network  *analysis.Network
	Hash     string
	Source   string
	LoadedAt time.Time
}

// DocumentReadyMsg is sent to the UI when a new document is ready.
type DocumentReadyMsg struct {
	Snapshot *DocumentSnapshot
}

// DocumentErrorMsg is sent to the UI when loading fails.
type DocumentErrorMsg struct {
	Err *WorkerError
	// Unauthorized means the backend rejected the stored token.
	Unauthorized bool
}

// DocumentWorker loads documents from a Source. With a watch path it
// reloads whenever the file changes; Refresh forces a reload. Unchanged
// content (same hash) is not re-sent.
type DocumentWorker struct {
	source  Source
	send    func(tea.Msg)
	logger  *zap.SugaredLogger
	timeout time.Duration

	mu         sync.RWMutex
	state      WorkerState
	dirty      bool // a refresh arrived while processing
	force      bool // next load bypasses hash dedup
	snapshot   *DocumentSnapshot
	started    bool
	lastHash   string
	lastError  *WorkerError
	errorCount int

	watcher *watcher.Watcher
	wg      sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// WorkerConfig configures the DocumentWorker.
type WorkerConfig struct {
	Source Source
	// WatchPath enables live reload of a local file; "" disables it.
	WatchPath     string
	DebounceDelay time.Duration
	// Send delivers messages to the UI, typically (*tea.Program).Send.
	Send    func(tea.Msg)
	Timeout time.Duration // per load; 0 = backend.DefaultTimeout
	Logger  *zap.SugaredLogger
}

// NewDocumentWorker creates a document worker.
func NewDocumentWorker(cfg WorkerConfig) (*DocumentWorker, error) {
	if cfg.Source == nil {
		return nil, errors.New("document worker needs a source")
	}
	if cfg.DebounceDelay == 0 {
		cfg.DebounceDelay = watcher.DefaultDebounce
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = backend.DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.Send == nil {
		cfg.Send = func(tea.Msg) {}
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &DocumentWorker{
		source:  cfg.Source,
		send:    cfg.Send,
		logger:  cfg.Logger,
		timeout: cfg.Timeout,
		state:   WorkerIdle,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	if cfg.WatchPath != "" {
		fw, err := watcher.NewWatcher(cfg.WatchPath,
			watcher.WithDebounceDuration(cfg.DebounceDelay),
			watcher.WithLogger(cfg.Logger),
		)
		if err != nil {
			cancel()
			return nil, err
		}
		w.watcher = fw
	}
	return w, nil
}

// Start begins watching (when configured) and kicks off the first load.
// Start is idempotent.
func (w *DocumentWorker) Start() error {
	w.mu.Lock()
	if w.started || w.state == WorkerStopped {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.mu.Unlock()

	if w.watcher != nil {
		if err := w.watcher.Start(); err != nil {
			return err
		}
		go w.processLoop()
	} else {
		close(w.done)
	}

	w.Refresh()
	return nil
}

// Stop halts the worker and waits for in-flight loads. Idempotent.
func (w *DocumentWorker) Stop() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	w.state = WorkerStopped
	wasStarted := w.started
	w.mu.Unlock()

	w.cancel()
	if w.watcher != nil {
		w.watcher.Stop()
	}
	if wasStarted {
		select {
		case <-w.done:
		case <-time.After(2 * time.Second):
		}
	}
	w.wg.Wait()
}

// Refresh reloads the document, even if its content is unchanged.
func (w *DocumentWorker) Refresh() {
	w.mu.Lock()
	w.force = true
	w.mu.Unlock()
	w.trigger()
}

func (w *DocumentWorker) trigger() {
	w.mu.Lock()
	switch w.state {
	case WorkerStopped:
		w.mu.Unlock()
		return
	case WorkerProcessing:
		w.dirty = true
		w.mu.Unlock()
		return
	}
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		w.process()
	}()
}

func (w *DocumentWorker) processLoop() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.watcher.Changed():
			w.trigger()
		}
	}
}

// process loads one document and reruns while refreshes arrived meanwhile.
func (w *DocumentWorker) process() {
	for {
		w.mu.Lock()
		if w.state != WorkerIdle {
			if w.state == WorkerProcessing {
				w.dirty = true
			}
			w.mu.Unlock()
			return
		}
		w.state = WorkerProcessing
		w.dirty = false
		force := w.force
		w.force = false
		w.mu.Unlock()

		snap, werr := w.buildSnapshot(force)

		w.mu.Lock()
		if w.state == WorkerStopped {
			w.mu.Unlock()
			return
		}
		if snap != nil {
			w.snapshot = snap
		}
		again := w.dirty
		w.state = WorkerIdle
		w.mu.Unlock()

		switch {
		case werr != nil:
			w.send(DocumentErrorMsg{Err: werr, Unauthorized: errors.Is(werr, backend.ErrUnauthorized)})
		case snap != nil:
			w.send(DocumentReadyMsg{Snapshot: snap})
		}
		if !again {
			return
		}
	}
}

// safeCompute executes fn and recovers from any panics.
func safeCompute(phase string, fn func() error) *WorkerError {
	var result *WorkerError
	func() {
		defer func() {
			if r := recover(); r != nil {
				result = &WorkerError{
					Phase: phase,
					Cause: errors.Newf("panic: %v\n%s", r, debug.Stack()),
					Time:  time.Now(),
				}
			}
		}()
		if err := fn(); err != nil {
			result = &WorkerError{Phase: phase, Cause: err, Time: time.Now()}
		}
	}()
	return result
}

func (w *DocumentWorker) recordError(err *WorkerError) {
	w.mu.Lock()
	w.lastError = err
	if err != nil {
		w.errorCount++
		err.Retries = w.errorCount
	} else {
		w.errorCount = 0
	}
	w.mu.Unlock()
}

// buildSnapshot loads and analyses the document. It returns (nil, nil)
// when the content is unchanged and force is false.
func (w *DocumentWorker) buildSnapshot(force bool) (*DocumentSnapshot, *WorkerError) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(w.ctx, w.timeout)
	defer cancel()

	var doc *model.GraphDocument
	if werr := safeCompute("load", func() error {
		var err error
		doc, err = w.source.Load(ctx)
		return err
	}); werr != nil {
		w.recordError(werr)
		w.logger.Warnw("Document load failed", "source", w.source.Describe(), "error", werr.Cause, "retries", werr.Retries)
		return nil, werr
	}
	loadDuration := time.Since(start)

	hash := model.ContentHash(doc)
	w.mu.RLock()
	lastHash := w.lastHash
	w.mu.RUnlock()
	if !force && hash != "" && hash == lastHash {
		w.recordError(nil)
		w.logger.Infow("Document unchanged, skipping rebuild", "source", w.source.Describe(), "hash", hashPrefix(hash))
		return nil, nil
	}

	var net *analysis.Network
	analyzeStart := time.Now()
	if werr := safeCompute("analyze", func() error {
		nodes, _ := doc.Counts()
		net = analysis.Compute(doc, analysis.Options{SampleSize: analysis.RecommendSampleSize(nodes), Seed: 1})
		return nil
	}); werr != nil {
		w.recordError(werr)
		w.logger.Warnw("Document analysis failed", "source", w.source.Describe(), "error", werr.Cause)
		return nil, werr
	}

	w.recordError(nil)
	w.mu.Lock()
	w.lastHash = hash
	w.mu.Unlock()

	nodes, links := doc.Counts()
	w.logger.Infow("Loaded graph document",
		"source", w.source.Describe(),
		"nodes", nodes,
		"links", links,
		"complete", doc.Complete(),
		"load", loadDuration,
		"analyze", time.Since(analyzeStart),
		"hash", hashPrefix(hash))

	return &DocumentSnapshot{
		Doc:      doc,
		Network:  net,
		Hash:     hash,
		Source:   w.source.Describe(),
		LoadedAt: time.Now(),
	}, nil
}

// Snapshot returns the latest snapshot (may be nil).
func (w *DocumentWorker) Snapshot() *DocumentSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot
}

// State returns the current worker state.
func (w *DocumentWorker) State() WorkerState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// LastError returns the most recent error (nil if the last load succeeded).
func (w *DocumentWorker) LastError() *WorkerError {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastError
}

// LastHash returns the content hash of the last loaded document.
func (w *DocumentWorker) LastHash() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastHash
}

// hashPrefix returns up to 16 characters of hash for logging.
func hashPrefix(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}
