package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_Coalesces(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 call, got %d", got)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Cancel()

	time.Sleep(120 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("expected no calls after cancel, got %d", got)
	}
}

func TestDebouncer_DefaultDuration(t *testing.T) {
	if d := NewDebouncer(0); d.Duration() != DefaultDebounceDuration {
		t.Errorf("expected %s, got %s", DefaultDebounceDuration, d.Duration())
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestNewWatcher_NoPaths(t *testing.T) {
	if _, err := NewWatcher(nil); !errors.Is(err, ErrNoPaths) {
		t.Errorf("expected ErrNoPaths, got %v", err)
	}
}

func TestWatcher_DetectsFileChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "2021.csv")
	writeFile(t, path, "Source1,Source2,Weight\n")

	var (
		mu  sync.Mutex
		got []string
	)
	w, err := NewWatcher([]string{path},
		WithDebounceDuration(50*time.Millisecond),
		WithPollInterval(50*time.Millisecond),
		WithOnChange(func(changed []string) {
			mu.Lock()
			got = append(got, changed...)
			mu.Unlock()
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	writeFile(t, path, "Source1,Source2,Weight\nA,B,3\n")

	select {
	case <-w.Changed():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change notification")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != path {
		t.Errorf("expected change for %s, got %v", path, got)
	}
}

func TestWatcher_PollingFallback(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	writeFile(t, a, "initial")
	writeFile(t, b, "initial")

	changes := make(chan []string, 4)
	w, err := NewWatcher([]string{a, b},
		WithDebounceDuration(50*time.Millisecond),
		WithPollInterval(100*time.Millisecond),
		WithForcePoll(true),
		WithOnChange(func(changed []string) { changes <- changed }),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if !w.IsPolling() {
		t.Error("expected watcher to be in polling mode")
	}

	time.Sleep(50 * time.Millisecond)
	writeFile(t, b, "modified via polling")

	select {
	case changed := <-changes:
		if len(changed) != 1 || changed[0] != b {
			t.Errorf("expected only %s, got %v", b, changed)
		}
	case <-time.After(time.Second):
		t.Fatal("expected change to be detected via polling")
	}
}

func TestWatcher_EnvForcePolling(t *testing.T) {
	t.Setenv("COGRAPH_FORCE_POLL", "1")

	path := filepath.Join(t.TempDir(), "edges.csv")
	writeFile(t, path, "initial")

	w, err := NewWatcher([]string{path}, WithPollInterval(25*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if !w.IsPolling() {
		t.Fatal("expected polling mode when COGRAPH_FORCE_POLL is set")
	}
}

func TestWatcher_FileRemoved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edges.csv")
	writeFile(t, path, "initial")

	errs := make(chan error, 4)
	w, err := NewWatcher([]string{path},
		WithDebounceDuration(50*time.Millisecond),
		WithPollInterval(50*time.Millisecond),
		WithForcePoll(true),
		WithOnError(func(err error) { errs <- err }),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	time.Sleep(50 * time.Millisecond)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errs:
		if !errors.Is(err, ErrFileRemoved) {
			t.Errorf("expected ErrFileRemoved, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for removal error")
	}
}

func TestWatcher_StartStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edges.csv")
	writeFile(t, path, "initial")

	w, err := NewWatcher([]string{path})
	if err != nil {
		t.Fatal(err)
	}
	if w.IsStarted() {
		t.Error("watcher should not be started initially")
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	if !w.IsStarted() {
		t.Error("watcher should be started after Start()")
	}
	if err := w.Start(); err != ErrAlreadyStarted {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}

	w.Stop()
	if w.IsStarted() {
		t.Error("watcher should not be started after Stop()")
	}
	w.Stop()
}

func TestWatcher_PathsDeduplicated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "edges.csv")

	w, err := NewWatcher([]string{path, filepath.Join(dir, ".", "edges.csv")})
	if err != nil {
		t.Fatal(err)
	}
	if got := w.Paths(); len(got) != 1 || got[0] != path {
		t.Errorf("expected [%s], got %v", path, got)
	}
	if w.PollInterval() != DefaultPollInterval {
		t.Errorf("expected default poll interval, got %s", w.PollInterval())
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("COGRAPH_TEST_BOOL", "yes")
	if !envBool("COGRAPH_TEST_BOOL") {
		t.Error("expected yes to be true")
	}
	t.Setenv("COGRAPH_TEST_BOOL", "0")
	if envBool("COGRAPH_TEST_BOOL") {
		t.Error("expected 0 to be false")
	}
	if envBool("COGRAPH_TEST_UNSET") {
		t.Error("expected unset to be false")
	}
}
