// Package model defines the domain types used across the application.
package model

import "time"

// Source identifies one of the supported listing sites.
type Source string

// Supported listing sites.
const (
	SourceTap  Source = "tap"
	SourceBina Source = "bina"
)

// Sources lists all supported sites in scheduling order.
var Sources = []Source{SourceTap, SourceBina}

// Default search URLs used when a profile is created.
const (
	DefaultTapURL  = "https://tap.az/elanlar/dasinmaz-emlak/menziller"
	DefaultBinaURL = "https://bina.az/baki/kiraye/menziller"
)

// History bounds: an append that pushes SentAds past HistoryCap trims the
// list down to the HistoryKeep most recent links.
const (
	HistoryCap  = 100
	HistoryKeep = 80
)

// FilterRules holds the reject rules for one user. The title and location
// lists are kept in lock-step by the profile store; rule management always
// updates both.
type FilterRules struct {
	Title    []string
	Location []string
}

// AutoCheck holds the recurring-check configuration for one user.
type AutoCheck struct {
	Enabled         bool
	IntervalSeconds int
	// ActiveChatID is the delivery destination captured when auto-check
	// was enabled. Zero means never set.
	ActiveChatID int64
}

// UserProfile is the per-user record combining source URLs, filter rules,
// delivery history and schedule configuration.
type UserProfile struct {
	UserID     int64
	SourceURLs map[Source]string
	Filters    FilterRules
	// SentAds holds links of delivered ads in delivery order. It is both
	// a membership set and a recency queue.
	SentAds   []string
	AutoCheck AutoCheck
	CreatedAt time.Time
}

// NewUserProfile returns a profile with default source URLs, empty filters
// and auto-check disabled.
func NewUserProfile(userID int64) *UserProfile {
	return &UserProfile{
		UserID: userID,
		SourceURLs: map[Source]string{
			SourceTap:  DefaultTapURL,
			SourceBina: DefaultBinaURL,
		},
		AutoCheck: AutoCheck{IntervalSeconds: 300},
		CreatedAt: time.Now().UTC(),
	}
}

// Clone returns a deep copy of the profile.
func (p *UserProfile) Clone() *UserProfile {
	cp := *p
	cp.SourceURLs = make(map[Source]string, len(p.SourceURLs))
	for k, v := range p.SourceURLs {
		cp.SourceURLs[k] = v
	}
	cp.Filters.Title = append([]string(nil), p.Filters.Title...)
	cp.Filters.Location = append([]string(nil), p.Filters.Location...)
	cp.SentAds = append([]string(nil), p.SentAds...)
	return &cp
}

// HasSent reports whether link is already recorded in the history.
func (p *UserProfile) HasSent(link string) bool {
	for _, l := range p.SentAds {
		if l == link {
			return true
		}
	}
	return false
}

// RecordSent appends link to the history unless already present, then
// trims the history to the HistoryKeep newest entries if it exceeds
// HistoryCap. It reports whether the profile changed.
func (p *UserProfile) RecordSent(link string) bool {
	if link == "" || p.HasSent(link) {
		return false
	}
	p.SentAds = append(p.SentAds, link)
	if len(p.SentAds) > HistoryCap {
		p.SentAds = append([]string(nil), p.SentAds[len(p.SentAds)-HistoryKeep:]...)
	}
	return true
}

// Ad is a single listing extracted from a fetched page. It is transient
// and never persisted; Link doubles as the deduplication key.
type Ad struct {
	Title    string
	Location string
	Price    string
	PhotoURL string
	Link     string
}

// CycleResult summarizes one fetch-extract-filter-deliver pass. Failure is
// set when the whole cycle aborted (fetch retries exhausted, unparseable
// markup); Errors collects per-candidate and persistence errors that did
// not stop the cycle.
type CycleResult struct {
	Delivered int
	Failure   error
	Errors    []error
}
