package scheduler

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"elan_bot/internal/model"
	"elan_bot/internal/profile"
	"elan_bot/internal/storage"
)

type cycleCall struct {
	userID int64
	source model.Source
	chatID int64
}

type mockRunner struct {
	mu    sync.Mutex
	calls []cycleCall
	fired chan cycleCall
}

func newMockRunner() *mockRunner {
	return &mockRunner{fired: make(chan cycleCall, 16)}
}

func (m *mockRunner) RunCycle(_ context.Context, userID int64, source model.Source, chatID int64) model.CycleResult {
	call := cycleCall{userID: userID, source: source, chatID: chatID}
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
	select {
	case m.fired <- call:
	default:
	}
	return model.CycleResult{}
}

type mockNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (m *mockNotifier) SendText(_ int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
	return nil
}

func (m *mockNotifier) sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

func newTestProfiles(t *testing.T) *profile.Store {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := storage.NewSQLite(filepath.Join(t.TempDir(), "bot.db"))
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return profile.New(store, log)
}

func newTestScheduler(t *testing.T, profiles *profile.Store) (*Scheduler, *mockRunner, *mockNotifier) {
	t.Helper()
	runner := newMockRunner()
	notifier := &mockNotifier{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	sched := New(ctx, runner, profiles, notifier, log)
	t.Cleanup(sched.Stop)
	return sched, runner, notifier
}

// shortOffsets makes first runs fire almost immediately so tests do not
// wait out the production stagger.
func shortOffsets(t *testing.T) {
	t.Helper()
	saved := firstRunOffsets
	firstRunOffsets = map[model.Source]time.Duration{
		model.SourceTap:  time.Millisecond,
		model.SourceBina: 2 * time.Millisecond,
	}
	t.Cleanup(func() { firstRunOffsets = saved })
}

func TestEnableClampsInterval(t *testing.T) {
	ctx := context.Background()
	profiles := newTestProfiles(t)
	sched, _, _ := newTestScheduler(t, profiles)

	effective, err := sched.Enable(ctx, 1, 30, 100)
	if err != nil {
		t.Fatalf("enable: %v", err)
	}
	if diff := cmp.Diff(MinIntervalSeconds, effective); diff != "" {
		t.Errorf("effective interval mismatch (-want +got):\n%s", diff)
	}

	prof, err := profiles.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	want := model.AutoCheck{Enabled: true, IntervalSeconds: MinIntervalSeconds, ActiveChatID: 100}
	if diff := cmp.Diff(want, prof.AutoCheck); diff != "" {
		t.Errorf("auto-check state mismatch (-want +got):\n%s", diff)
	}
}

func TestEnableStartsOneJobPerSource(t *testing.T) {
	ctx := context.Background()
	sched, _, _ := newTestScheduler(t, newTestProfiles(t))

	if _, err := sched.Enable(ctx, 1, 120, 100); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if diff := cmp.Diff(len(model.Sources), sched.ActiveJobs()); diff != "" {
		t.Errorf("job count mismatch (-want +got):\n%s", diff)
	}
}

func TestEnableReplacesExistingJobs(t *testing.T) {
	ctx := context.Background()
	sched, _, _ := newTestScheduler(t, newTestProfiles(t))

	if _, err := sched.Enable(ctx, 1, 120, 100); err != nil {
		t.Fatalf("first enable: %v", err)
	}
	if _, err := sched.Enable(ctx, 1, 600, 100); err != nil {
		t.Fatalf("second enable: %v", err)
	}
	if diff := cmp.Diff(len(model.Sources), sched.ActiveJobs()); diff != "" {
		t.Errorf("job count mismatch after re-enable (-want +got):\n%s", diff)
	}
}

func TestDisableStopsJobs(t *testing.T) {
	ctx := context.Background()
	profiles := newTestProfiles(t)
	sched, _, _ := newTestScheduler(t, profiles)

	if _, err := sched.Enable(ctx, 1, 120, 100); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if err := sched.Disable(ctx, 1); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if diff := cmp.Diff(0, sched.ActiveJobs()); diff != "" {
		t.Errorf("job count mismatch (-want +got):\n%s", diff)
	}

	prof, err := profiles.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if prof.AutoCheck.Enabled {
		t.Error("auto-check should be disabled")
	}
}

func TestDisableWithoutJobsIsSafe(t *testing.T) {
	sched, _, _ := newTestScheduler(t, newTestProfiles(t))
	if err := sched.Disable(context.Background(), 42); err != nil {
		t.Fatalf("disable without jobs: %v", err)
	}
}

func TestJobsFireCycles(t *testing.T) {
	shortOffsets(t)
	ctx := context.Background()
	sched, runner, _ := newTestScheduler(t, newTestProfiles(t))

	if _, err := sched.Enable(ctx, 1, 120, 100); err != nil {
		t.Fatalf("enable: %v", err)
	}

	got := map[model.Source]cycleCall{}
	for range model.Sources {
		select {
		case call := <-runner.fired:
			got[call.source] = call
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for first cycles, got %v", got)
		}
	}
	for _, source := range model.Sources {
		call, ok := got[source]
		if !ok {
			t.Errorf("no cycle fired for %s", source)
			continue
		}
		want := cycleCall{userID: 1, source: source, chatID: 100}
		if diff := cmp.Diff(want, call, cmp.AllowUnexported(cycleCall{})); diff != "" {
			t.Errorf("cycle call mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestCyclesFollowCurrentActiveChat(t *testing.T) {
	saved := firstRunOffsets
	firstRunOffsets = map[model.Source]time.Duration{
		model.SourceTap:  200 * time.Millisecond,
		model.SourceBina: 250 * time.Millisecond,
	}
	t.Cleanup(func() { firstRunOffsets = saved })

	ctx := context.Background()
	profiles := newTestProfiles(t)
	sched, runner, _ := newTestScheduler(t, profiles)

	if _, err := sched.Enable(ctx, 1, 120, 100); err != nil {
		t.Fatalf("enable: %v", err)
	}
	// The user talks to the bot in another chat before the first firing.
	if err := profiles.SetActiveChat(ctx, 1, 200); err != nil {
		t.Fatalf("set active chat: %v", err)
	}

	for range model.Sources {
		select {
		case call := <-runner.fired:
			if call.chatID != 200 {
				t.Errorf("cycle for %s delivered to chat %d, want current active chat 200", call.source, call.chatID)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for cycles")
		}
	}
}

func TestCyclesSkipWhenActiveChatCleared(t *testing.T) {
	saved := firstRunOffsets
	firstRunOffsets = map[model.Source]time.Duration{
		model.SourceTap:  100 * time.Millisecond,
		model.SourceBina: 150 * time.Millisecond,
	}
	t.Cleanup(func() { firstRunOffsets = saved })

	ctx := context.Background()
	profiles := newTestProfiles(t)
	sched, runner, _ := newTestScheduler(t, profiles)

	if _, err := sched.Enable(ctx, 1, 120, 100); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if err := profiles.SetActiveChat(ctx, 1, 0); err != nil {
		t.Fatalf("clear active chat: %v", err)
	}

	select {
	case call := <-runner.fired:
		t.Errorf("cycle fired for chat %d with no active chat", call.chatID)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestRecoverRestartsPersistedJobs(t *testing.T) {
	ctx := context.Background()
	profiles := newTestProfiles(t)

	// Enabled with an active chat: recovered.
	err := profiles.SetAutoCheck(ctx, 1, model.AutoCheck{Enabled: true, IntervalSeconds: 120, ActiveChatID: 100})
	if err != nil {
		t.Fatalf("seed user 1: %v", err)
	}
	// Disabled: skipped.
	err = profiles.SetAutoCheck(ctx, 2, model.AutoCheck{Enabled: false, IntervalSeconds: 120, ActiveChatID: 200})
	if err != nil {
		t.Fatalf("seed user 2: %v", err)
	}
	// Enabled but no chat to deliver to: skipped.
	err = profiles.SetAutoCheck(ctx, 3, model.AutoCheck{Enabled: true, IntervalSeconds: 120})
	if err != nil {
		t.Fatalf("seed user 3: %v", err)
	}

	sched, _, notifier := newTestScheduler(t, profiles)
	if err := sched.Recover(ctx); err != nil {
		t.Fatalf("recover: %v", err)
	}

	if diff := cmp.Diff(len(model.Sources), sched.ActiveJobs()); diff != "" {
		t.Errorf("job count mismatch (-want +got):\n%s", diff)
	}
	want := []string{"Bot restarted. Auto-check resumed (interval: 120 seconds)."}
	if diff := cmp.Diff(want, notifier.sent()); diff != "" {
		t.Errorf("restart notices mismatch (-want +got):\n%s", diff)
	}
}

func TestRecoverWithNoProfiles(t *testing.T) {
	sched, _, notifier := newTestScheduler(t, newTestProfiles(t))
	if err := sched.Recover(context.Background()); err != nil {
		t.Fatalf("recover: %v", err)
	}
	if sched.ActiveJobs() != 0 || len(notifier.sent()) != 0 {
		t.Error("nothing should be scheduled or sent")
	}
}

func TestStopWaitsForJobs(t *testing.T) {
	ctx := context.Background()
	sched, _, _ := newTestScheduler(t, newTestProfiles(t))

	if _, err := sched.Enable(ctx, 1, 120, 100); err != nil {
		t.Fatalf("enable: %v", err)
	}
	sched.Stop()
	if diff := cmp.Diff(0, sched.ActiveJobs()); diff != "" {
		t.Errorf("job count mismatch after stop (-want +got):\n%s", diff)
	}
}
