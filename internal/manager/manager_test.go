package manager

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"localassist/internal/catalog"
	"localassist/internal/download"
	"localassist/internal/registry"
	"localassist/internal/resource"
	"localassist/internal/runtime/runtimetest"
)

type fakeFetcher struct {
	calls atomic.Int32
	err   error
	gate  chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context, store *registry.Store, d catalog.Descriptor, onProgress func(float64)) error {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.err != nil {
		return f.err
	}
	onProgress(0.5)
	onProgress(0.3)
	onProgress(0.9)
	if err := store.Prepare(d); err != nil {
		return err
	}
	for _, name := range d.Files {
		if err := os.WriteFile(store.PartialPath(d, name), []byte("gguf"), 0o644); err != nil {
			return err
		}
	}
	return store.Commit(d)
}

type admitFunc func(uint64, resource.Policy) resource.Decision

func (f admitFunc) Admit(b uint64, p resource.Policy) resource.Decision { return f(b, p) }

type recorder struct {
	mu     sync.Mutex
	states []LoadState
}

func (r *recorder) observe(s LoadState) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []LoadState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LoadState(nil), r.states...)
}

func desc(name string, size int64) catalog.Descriptor {
	return catalog.Descriptor{
		Name:      name,
		SizeBytes: size,
		Category:  catalog.CategoryCore,
		Repo:      "org/" + name,
		Files:     []string{name + ".gguf"},
	}
}

type fixture struct {
	m     *Manager
	rt    *runtimetest.Runtime
	fetch *fakeFetcher
	store *registry.Store
	pub   *MemoryPublisher
	rec   *recorder
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()
	store, err := registry.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	f := &fixture{
		rt:    &runtimetest.Runtime{Files: true, Tokens: []string{"ok"}},
		fetch: &fakeFetcher{},
		store: store,
		pub:   NewMemoryPublisher(),
		rec:   &recorder{},
	}
	cfg := Config{
		Store:         store,
		Fetcher:       f.fetch,
		Runtime:       f.rt,
		Publisher:     f.pub,
		ProgressEvery: -1,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	f.m = New(cfg)
	f.m.OnStateChange(f.rec.observe)
	return f
}

func waitPhase(t *testing.T, m *Manager, p Phase) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.State().Phase == p {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for phase %s; state=%+v", p, m.State())
}

func TestSelect_GuardrailStrictDeniesWithoutDownload(t *testing.T) {
	f := newFixture(t, func(c *Config) {
		c.Admitter = admitFunc(func(required uint64, p resource.Policy) resource.Decision {
			return resource.Admit(required, 16e9, p)
		})
		c.Policy = func() resource.Policy { return resource.Policy{Level: resource.LevelStrict} }
	})
	err := f.m.Select(context.Background(), desc("big", 8e9))
	if !IsGuardrail(err) {
		t.Fatalf("expected guardrail error, got %v", err)
	}
	st := f.m.State()
	if st.Phase != PhaseFailed || st.Model != "big" || !strings.Contains(st.Reason, "guardrail") {
		t.Fatalf("unexpected state %+v", st)
	}
	if n := f.fetch.calls.Load(); n != 0 {
		t.Fatalf("download attempted %d times", n)
	}
	if len(f.rt.Loads()) != 0 {
		t.Fatalf("load attempted")
	}
}

func TestSelect_DownloadsThenLoads(t *testing.T) {
	f := newFixture(t, nil)
	d := desc("tiny", 1024)
	if err := f.m.Select(context.Background(), d); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !f.store.Installed(d) {
		t.Fatalf("model not installed after download")
	}
	if st := f.m.State(); st.Phase != PhaseLoaded || st.Model != "tiny" {
		t.Fatalf("unexpected state %+v", st)
	}
	if _, got, err := f.m.Session(); err != nil || got.Name != "tiny" {
		t.Fatalf("Session: %v %v", got.Name, err)
	}

	var fractions []float64
	var phases []Phase
	for _, s := range f.rec.snapshot() {
		if len(phases) == 0 || phases[len(phases)-1] != s.Phase {
			phases = append(phases, s.Phase)
		}
		if s.Phase == PhaseDownloading {
			fractions = append(fractions, s.Fraction)
		}
	}
	want := []Phase{PhaseDownloading, PhaseLoading, PhaseLoaded}
	if len(phases) != len(want) {
		t.Fatalf("phases=%v want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("phases=%v want %v", phases, want)
		}
	}
	if fractions[0] != 0 || fractions[len(fractions)-1] != 1 {
		t.Fatalf("fractions should start at 0 and end at 1: %v", fractions)
	}
	for i := 1; i < len(fractions); i++ {
		if fractions[i] < fractions[i-1] {
			t.Fatalf("progress regressed: %v", fractions)
		}
	}
	names := strings.Join(f.pub.Names(), ",")
	for _, ev := range []string{EventSelectStart, EventDownloadStart, EventDownloadDone, EventLoadStart, EventLoadReady} {
		if !strings.Contains(names, ev) {
			t.Fatalf("missing event %q in %s", ev, names)
		}
	}
}

func TestSelect_InstalledSkipsDownload(t *testing.T) {
	f := newFixture(t, nil)
	d := desc("tiny", 10)
	if err := f.m.Select(context.Background(), d); err != nil {
		t.Fatalf("Select: %v", err)
	}
	f.m.Unload()
	if err := f.m.Select(context.Background(), d); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if n := f.fetch.calls.Load(); n != 1 {
		t.Fatalf("expected one download, got %d", n)
	}
}

func TestSelect_DownloadFailureLeavesNothingInstalled(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	f := newFixture(t, func(c *Config) {
		c.Fetcher = download.NewFetcher(srv.URL, srv.Client())
	})
	d := desc("missing", 10)
	err := f.m.Select(context.Background(), d)
	if !IsDownload(err) {
		t.Fatalf("expected download error, got %v", err)
	}
	if st := f.m.State(); st.Phase != PhaseFailed || !strings.Contains(st.Reason, "download failed") {
		t.Fatalf("unexpected state %+v", st)
	}
	if f.store.Installed(d) {
		t.Fatalf("failed download marked installed")
	}
	if _, statErr := os.Stat(f.store.PartialPath(d, d.Primary())); !os.IsNotExist(statErr) {
		t.Fatalf("partial file left behind: %v", statErr)
	}
}

func TestSelect_LoadFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.rt.LoadErr = errors.New("bad magic")
	err := f.m.Select(context.Background(), desc("corrupt", 10))
	if !IsLoad(err) {
		t.Fatalf("expected load error, got %v", err)
	}
	if st := f.m.State(); st.Phase != PhaseFailed || !strings.Contains(st.Reason, "bad magic") {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestCancel_DuringDownloadGoesIdle(t *testing.T) {
	f := newFixture(t, nil)
	f.fetch.gate = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- f.m.Select(context.Background(), desc("slow", 10)) }()
	waitPhase(t, f.m, PhaseDownloading)
	if !f.m.Cancel() {
		t.Fatalf("Cancel reported nothing running")
	}
	err := <-done
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if st := f.m.State(); st.Phase != PhaseIdle {
		t.Fatalf("expected idle after cancel, got %+v", st)
	}
	if f.m.Cancel() {
		t.Fatalf("Cancel with nothing running should report false")
	}
}

func TestCancel_DuringLoadGoesIdle(t *testing.T) {
	f := newFixture(t, nil)
	f.rt.Files = false
	f.rt.LoadGate = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- f.m.Select(context.Background(), desc("slow", 10)) }()
	waitPhase(t, f.m, PhaseLoading)
	f.m.Cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if st := f.m.State(); st.Phase != PhaseIdle {
		t.Fatalf("expected idle, got %+v", st)
	}
}

func TestSwitchTo_UnloadsPrevious(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if err := f.m.Select(ctx, desc("a", 10)); err != nil {
		t.Fatalf("Select a: %v", err)
	}
	if err := f.m.SwitchTo(ctx, desc("b", 10)); err != nil {
		t.Fatalf("SwitchTo b: %v", err)
	}
	if f.rt.Closed() != 1 {
		t.Fatalf("expected previous session closed, closed=%d", f.rt.Closed())
	}
	if st := f.m.State(); st.Phase != PhaseLoaded || st.Model != "b" {
		t.Fatalf("unexpected state %+v", st)
	}
	// switching to the loaded model is a no-op
	if err := f.m.SwitchTo(ctx, desc("b", 10)); err != nil {
		t.Fatalf("SwitchTo b again: %v", err)
	}
	if got := f.rt.Loads(); len(got) != 2 {
		t.Fatalf("loads=%v", got)
	}
}

func TestSwitchTo_CloseFailureIsLoggedNotFatal(t *testing.T) {
	var logs bytes.Buffer
	f := newFixture(t, func(c *Config) { c.Logger = zerolog.New(&logs) })
	ctx := context.Background()
	if err := f.m.Select(ctx, desc("a", 10)); err != nil {
		t.Fatalf("Select a: %v", err)
	}
	f.rt.CloseErr = errors.New("close failed")
	if err := f.m.SwitchTo(ctx, desc("b", 10)); err != nil {
		t.Fatalf("SwitchTo b: %v", err)
	}
	if st := f.m.State(); st.Phase != PhaseLoaded || st.Model != "b" {
		t.Fatalf("unexpected state %+v", st)
	}
	names := strings.Join(f.pub.Names(), ",")
	if !strings.Contains(names, EventUnloadStart) || !strings.Contains(names, EventUnloadDone) {
		t.Fatalf("expected unload events, got %s", names)
	}
	if !strings.Contains(logs.String(), `"event":"unload_error"`) || !strings.Contains(logs.String(), "close failed") {
		t.Fatalf("expected close error to be logged, got %s", logs.String())
	}
}

func TestSwitchTo_FromFailed(t *testing.T) {
	f := newFixture(t, nil)
	f.rt.LoadErr = errors.New("boom")
	_ = f.m.Select(context.Background(), desc("a", 10))
	f.rt.LoadErr = nil
	if err := f.m.SwitchTo(context.Background(), desc("b", 10)); err != nil {
		t.Fatalf("SwitchTo: %v", err)
	}
	if st := f.m.State(); st.Phase != PhaseLoaded || st.Model != "b" {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestInvalidate_EnsureLoadedReloads(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if _, err := f.m.EnsureLoaded(ctx); !IsModelNotReady(err) {
		t.Fatalf("expected no selection, got %v", err)
	}
	if err := f.m.Select(ctx, desc("a", 10)); err != nil {
		t.Fatalf("Select: %v", err)
	}
	f.m.Invalidate("eval failed")
	if st := f.m.State(); st.Phase != PhaseFailed || !strings.Contains(st.Reason, "eval failed") {
		t.Fatalf("unexpected state %+v", st)
	}
	if _, _, err := f.m.Session(); !IsModelNotReady(err) {
		t.Fatalf("expected not ready, got %v", err)
	}
	d, err := f.m.EnsureLoaded(ctx)
	if err != nil || d.Name != "a" {
		t.Fatalf("EnsureLoaded: %v %v", d.Name, err)
	}
	if got := f.rt.Loads(); len(got) != 2 {
		t.Fatalf("expected reload, loads=%v", got)
	}
}

func TestUnload_EmitsEvents(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.m.Select(context.Background(), desc("m", 10)); err != nil {
		t.Fatalf("Select: %v", err)
	}
	f.m.Unload()
	evts := f.pub.Events()
	want := map[string]bool{
		EventSelectStart: false,
		EventLoadReady:   false,
		EventUnloadStart: false,
		EventUnloadDone:  false,
	}
	for _, e := range evts {
		if _, ok := want[e.Name]; ok {
			want[e.Name] = true
		}
	}
	for k, v := range want {
		if !v {
			t.Fatalf("expected event %q to be published; got events: %+v", k, evts)
		}
	}
	if f.m.Ready() {
		t.Fatalf("manager still ready after unload")
	}
	if _, ok := f.m.Selected(); ok {
		t.Fatalf("selection should be cleared")
	}
}

func TestPrefetch_DoesNotTouchLoadState(t *testing.T) {
	f := newFixture(t, nil)
	d := desc("later", 10)
	if err := f.m.Prefetch(context.Background(), d); err != nil {
		t.Fatalf("Prefetch: %v", err)
	}
	if st := f.m.State(); st.Phase != PhaseIdle {
		t.Fatalf("prefetch changed load state: %+v", st)
	}
	if p := f.m.Progress(); p.Fraction != 1 || p.Active || p.Model != "later" {
		t.Fatalf("unexpected progress %+v", p)
	}
	if !f.store.Installed(d) {
		t.Fatalf("prefetched model not installed")
	}
}

func TestNewDownloadResetsProgress(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	if err := f.m.Prefetch(ctx, desc("one", 10)); err != nil {
		t.Fatalf("Prefetch one: %v", err)
	}
	first := f.m.Progress().ID
	if err := f.m.Select(ctx, desc("two", 10)); err != nil {
		t.Fatalf("Select two: %v", err)
	}
	var starts []any
	for _, e := range f.pub.Events() {
		if e.Name == EventDownloadStart {
			starts = append(starts, e.Fields["download_id"])
		}
	}
	if len(starts) != 2 || starts[0] != first || starts[1] == first {
		t.Fatalf("expected two distinct download_start events, got %v", starts)
	}
	for _, s := range f.rec.snapshot() {
		if s.Phase == PhaseDownloading {
			if s.Fraction != 0 || s.DownloadID == first {
				t.Fatalf("second download should start at 0 with a new id: %+v", s)
			}
			break
		}
	}
}

func TestSanityCheck(t *testing.T) {
	f := newFixture(t, nil)
	r := f.m.SanityCheck()
	if !r.OK() || !r.ModelsDirOK || r.ModelsDir != f.store.Root() {
		t.Fatalf("unexpected report %+v", r)
	}
}
