// Package profile provides the cached, per-user-locked profile store.
//
// The store owns the canonical in-memory copy of every loaded profile.
// All mutations run inside Update, which holds that user's lock across the
// read-modify-persist sequence, so concurrent cycles for the same user
// cannot lose each other's writes. Operations on different users never
// contend.
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"elan_bot/internal/model"
	"elan_bot/internal/storage"
)

// Store is a write-through cache over storage.Storage keyed by user ID.
type Store struct {
	store storage.Storage
	log   *slog.Logger

	mu    sync.Mutex
	cache map[int64]*entry
}

type entry struct {
	mu      sync.Mutex
	profile *model.UserProfile
}

// New creates a Store over the given backing storage.
func New(store storage.Storage, log *slog.Logger) *Store {
	return &Store{
		store: store,
		log:   log,
		cache: make(map[int64]*entry),
	}
}

// entryFor returns the cache entry for userID, loading the profile from
// storage or creating a default one on first access.
func (s *Store) entryFor(ctx context.Context, userID int64) (*entry, error) {
	s.mu.Lock()
	e, ok := s.cache[userID]
	if !ok {
		e = &entry{}
		s.cache[userID] = e
	}
	s.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.profile != nil {
		return e, nil
	}

	p, err := s.store.GetProfile(ctx, userID)
	switch err {
	case nil:
	case storage.ErrNotFound:
		p = model.NewUserProfile(userID)
		if err := s.store.SaveProfile(ctx, p); err != nil {
			return nil, fmt.Errorf("save new profile: %w", err)
		}
		s.log.Info("created profile", "user_id", userID)
	default:
		return nil, fmt.Errorf("load profile: %w", err)
	}
	e.profile = p
	return e, nil
}

// Get returns a deep copy of the user's profile, creating it on first access.
func (s *Store) Get(ctx context.Context, userID int64) (*model.UserProfile, error) {
	e, err := s.entryFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile.Clone(), nil
}

// Update applies fn to the user's profile and persists the result, all
// under the user's lock. If persistence fails the in-memory mutation
// stands for the rest of the process lifetime and the error is returned.
func (s *Store) Update(ctx context.Context, userID int64, fn func(*model.UserProfile) error) error {
	e, err := s.entryFor(ctx, userID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := fn(e.profile); err != nil {
		return err
	}
	if err := s.store.SaveProfile(ctx, e.profile); err != nil {
		return fmt.Errorf("persist profile: %w", err)
	}
	return nil
}

// ListProfiles returns every persisted profile. Used once at startup for
// schedule recovery and intentionally bypasses the cache.
func (s *Store) ListProfiles(ctx context.Context) ([]model.UserProfile, error) {
	return s.store.ListProfiles(ctx)
}

// SetSourceURL updates the search URL for one source. The URL must contain
// the source's domain.
func (s *Store) SetSourceURL(ctx context.Context, userID int64, source model.Source, url string) error {
	domain := "tap.az"
	if source == model.SourceBina {
		domain = "bina.az"
	}
	if !strings.Contains(url, domain) {
		return fmt.Errorf("URL must be from %s", domain)
	}
	return s.Update(ctx, userID, func(p *model.UserProfile) error {
		p.SourceURLs[source] = url
		return nil
	})
}

// AddFilterRule appends rule to both the title and location rule lists.
// The two lists are kept in lock-step here and nowhere else.
func (s *Store) AddFilterRule(ctx context.Context, userID int64, rule string) error {
	return s.Update(ctx, userID, func(p *model.UserProfile) error {
		if !contains(p.Filters.Title, rule) {
			p.Filters.Title = append(p.Filters.Title, rule)
		}
		if !contains(p.Filters.Location, rule) {
			p.Filters.Location = append(p.Filters.Location, rule)
		}
		return nil
	})
}

// RemoveFilterRule removes rule from both rule lists.
func (s *Store) RemoveFilterRule(ctx context.Context, userID int64, rule string) error {
	return s.Update(ctx, userID, func(p *model.UserProfile) error {
		p.Filters.Title = remove(p.Filters.Title, rule)
		p.Filters.Location = remove(p.Filters.Location, rule)
		return nil
	})
}

// ClearFilterRules drops all filter rules.
func (s *Store) ClearFilterRules(ctx context.Context, userID int64) error {
	return s.Update(ctx, userID, func(p *model.UserProfile) error {
		p.Filters = model.FilterRules{}
		return nil
	})
}

// SetAutoCheck persists the recurring-check configuration.
func (s *Store) SetAutoCheck(ctx context.Context, userID int64, ac model.AutoCheck) error {
	return s.Update(ctx, userID, func(p *model.UserProfile) error {
		p.AutoCheck = ac
		return nil
	})
}

// SetActiveChat records the most recent interactive chat for the user.
func (s *Store) SetActiveChat(ctx context.Context, userID, chatID int64) error {
	return s.Update(ctx, userID, func(p *model.UserProfile) error {
		p.AutoCheck.ActiveChatID = chatID
		return nil
	})
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func remove(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
