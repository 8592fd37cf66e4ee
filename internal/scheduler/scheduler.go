// Package scheduler maintains the recurring per-user, per-source check jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"elan_bot/internal/model"
	"elan_bot/internal/profile"
)

// Minimum and default check intervals in seconds.
const (
	MinIntervalSeconds     = 60
	DefaultIntervalSeconds = 300
)

// First-run offsets per source, staggered so the two fetches for one user
// never start in the same instant.
var firstRunOffsets = map[model.Source]time.Duration{
	model.SourceTap:  10 * time.Second,
	model.SourceBina: 20 * time.Second,
}

// CycleRunner executes one check cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context, userID int64, source model.Source, chatID int64) model.CycleResult
}

// Notifier sends user-visible scheduler messages (cycle failures, restart
// notices).
type Notifier interface {
	SendText(chatID int64, text string) error
}

type jobKey struct {
	userID int64
	source model.Source
}

type job struct {
	stop chan struct{}
}

// Scheduler owns two recurring jobs per auto-checking user, one per source.
type Scheduler struct {
	runner   CycleRunner
	profiles *profile.Store
	notifier Notifier
	log      *slog.Logger

	// baseCtx outlives individual jobs: an in-flight cycle runs to
	// completion even when its job is stopped.
	baseCtx context.Context

	mu   sync.Mutex
	jobs map[jobKey]*job
	wg   sync.WaitGroup
}

// New creates a Scheduler. Cycles run on ctx, which should span the
// process lifetime.
func New(ctx context.Context, runner CycleRunner, profiles *profile.Store, notifier Notifier, log *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		profiles: profiles,
		notifier: notifier,
		log:      log,
		baseCtx:  ctx,
		jobs:     make(map[jobKey]*job),
	}
}

// Enable turns on auto-check for the user, replacing any existing jobs.
// Intervals below the minimum are clamped, not rejected. Returns the
// effective interval in seconds.
func (s *Scheduler) Enable(ctx context.Context, userID int64, intervalSeconds int, chatID int64) (int, error) {
	if intervalSeconds < MinIntervalSeconds {
		intervalSeconds = MinIntervalSeconds
	}

	err := s.profiles.SetAutoCheck(ctx, userID, model.AutoCheck{
		Enabled:         true,
		IntervalSeconds: intervalSeconds,
		ActiveChatID:    chatID,
	})
	if err != nil {
		return 0, fmt.Errorf("persist auto-check: %w", err)
	}

	s.startJobs(userID, intervalSeconds, chatID)
	s.log.Info("auto-check enabled", "user_id", userID, "interval_s", intervalSeconds)
	return intervalSeconds, nil
}

// Disable stops the user's jobs and persists the disabled flag. Safe to
// call when nothing is running; an in-flight cycle is not interrupted.
func (s *Scheduler) Disable(ctx context.Context, userID int64) error {
	s.stopJobs(userID)

	err := s.profiles.Update(ctx, userID, func(p *model.UserProfile) error {
		p.AutoCheck.Enabled = false
		return nil
	})
	if err != nil {
		return fmt.Errorf("persist auto-check: %w", err)
	}
	s.log.Info("auto-check disabled", "user_id", userID)
	return nil
}

// Recover rebuilds jobs from persisted profiles after a restart and sends
// each affected user a one-time notice. Notification failures are logged
// and do not abort recovery of the remaining users.
func (s *Scheduler) Recover(ctx context.Context) error {
	profiles, err := s.profiles.ListProfiles(ctx)
	if err != nil {
		return fmt.Errorf("list profiles: %w", err)
	}

	for _, p := range profiles {
		ac := p.AutoCheck
		if !ac.Enabled || ac.ActiveChatID == 0 {
			continue
		}

		s.startJobs(p.UserID, ac.IntervalSeconds, ac.ActiveChatID)
		s.log.Info("auto-check recovered", "user_id", p.UserID, "interval_s", ac.IntervalSeconds)

		msg := fmt.Sprintf("Bot restarted. Auto-check resumed (interval: %d seconds).", ac.IntervalSeconds)
		if err := s.notifier.SendText(ac.ActiveChatID, msg); err != nil {
			s.log.Error("send restart notice", "user_id", p.UserID, "chat_id", ac.ActiveChatID, "error", err)
		}
	}
	return nil
}

// Stop cancels all jobs and waits for in-flight cycles to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for key, j := range s.jobs {
		close(j.stop)
		delete(s.jobs, key)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// ActiveJobs returns how many jobs are currently scheduled.
func (s *Scheduler) ActiveJobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *Scheduler) startJobs(userID int64, intervalSeconds int, chatID int64) {
	interval := time.Duration(intervalSeconds) * time.Second
	for _, source := range model.Sources {
		s.startJob(jobKey{userID: userID, source: source}, interval, firstRunOffsets[source], chatID)
	}
}

// startJob schedules one recurring job, fully replacing a job with the
// same key if present.
func (s *Scheduler) startJob(key jobKey, interval, offset time.Duration, chatID int64) {
	j := &job{stop: make(chan struct{})}

	s.mu.Lock()
	if old, ok := s.jobs[key]; ok {
		close(old.stop)
	}
	s.jobs[key] = j
	s.mu.Unlock()

	s.wg.Add(1)
	go s.runJob(key, j, interval, offset, chatID)
}

func (s *Scheduler) stopJobs(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, source := range model.Sources {
		key := jobKey{userID: userID, source: source}
		if j, ok := s.jobs[key]; ok {
			close(j.stop)
			delete(s.jobs, key)
		}
	}
}

// runJob fires the first cycle after offset, then every interval. The stop
// channel is only checked between cycles, so a running cycle always
// completes, including its persistence.
func (s *Scheduler) runJob(key jobKey, j *job, interval, offset time.Duration, chatID int64) {
	defer s.wg.Done()

	timer := time.NewTimer(offset)
	defer timer.Stop()

	for {
		select {
		case <-s.baseCtx.Done():
			return
		case <-j.stop:
			return
		case <-timer.C:
		}

		// Deliveries follow the user's current active chat, which moves
		// when they talk to the bot somewhere else after enabling.
		chat := s.activeChat(key.userID, chatID)
		if chat == 0 {
			s.log.Warn("no active chat, skipping cycle", "user_id", key.userID, "source", key.source)
			timer.Reset(interval)
			continue
		}

		s.log.Debug("cycle start", "user_id", key.userID, "source", key.source)
		result := s.runner.RunCycle(s.baseCtx, key.userID, key.source, chat)

		if result.Failure != nil {
			s.log.Error("cycle failed", "user_id", key.userID, "source", key.source, "error", result.Failure)
			msg := fmt.Sprintf("Auto-check of %s failed: %v", siteName(key.source), result.Failure)
			if err := s.notifier.SendText(chat, msg); err != nil {
				s.log.Error("send failure notice", "chat_id", chat, "error", err)
			}
		}
		for _, err := range result.Errors {
			s.log.Error("cycle error", "user_id", key.userID, "source", key.source, "error", err)
		}
		if result.Delivered > 0 {
			s.log.Info("cycle delivered", "user_id", key.userID, "source", key.source, "count", result.Delivered)
		}

		timer.Reset(interval)
	}
}

// activeChat returns the user's current active chat, falling back to the
// chat captured when the job was started if the profile cannot be loaded.
func (s *Scheduler) activeChat(userID, fallback int64) int64 {
	prof, err := s.profiles.Get(s.baseCtx, userID)
	if err != nil {
		s.log.Error("load profile", "user_id", userID, "error", err)
		return fallback
	}
	return prof.AutoCheck.ActiveChatID
}

func siteName(source model.Source) string {
	if source == model.SourceBina {
		return "bina.az"
	}
	return "tap.az"
}
