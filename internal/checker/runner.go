// Package checker orchestrates one fetch-extract-filter-deliver cycle.
package checker

import (
	"context"
	"fmt"
	"log/slog"

	"elan_bot/internal/filter"
	"elan_bot/internal/model"
	"elan_bot/internal/profile"
	"elan_bot/internal/scrape"
)

// Sender is the delivery collaborator.
type Sender interface {
	SendText(chatID int64, text string) error
	SendPhoto(chatID int64, photo []byte, caption string) error
}

// PageFetcher downloads listing pages and ad photos.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Runner executes check cycles for (user, source) pairs.
type Runner struct {
	profiles *profile.Store
	fetcher  PageFetcher
	sender   Sender
	log      *slog.Logger
}

// New creates a Runner.
func New(profiles *profile.Store, fetcher PageFetcher, sender Sender, log *slog.Logger) *Runner {
	return &Runner{
		profiles: profiles,
		fetcher:  fetcher,
		sender:   sender,
		log:      log,
	}
}

// RunCycle runs one complete cycle for the user's configured URL of the
// given source, delivering new ads to chatID.
func (r *Runner) RunCycle(ctx context.Context, userID int64, source model.Source, chatID int64) model.CycleResult {
	prof, err := r.profiles.Get(ctx, userID)
	if err != nil {
		return model.CycleResult{Failure: fmt.Errorf("load profile: %w", err)}
	}
	return r.runURL(ctx, prof, source, prof.SourceURLs[source], chatID)
}

// RunURL runs one cycle for an arbitrary URL of a supported site,
// bypassing the profile's configured URL. Used by the /parse command.
func (r *Runner) RunURL(ctx context.Context, userID int64, url string, chatID int64) model.CycleResult {
	source, err := scrape.SourceForURL(url)
	if err != nil {
		return model.CycleResult{Failure: err}
	}
	prof, err := r.profiles.Get(ctx, userID)
	if err != nil {
		return model.CycleResult{Failure: fmt.Errorf("load profile: %w", err)}
	}
	return r.runURL(ctx, prof, source, url, chatID)
}

func (r *Runner) runURL(ctx context.Context, prof *model.UserProfile, source model.Source, url string, chatID int64) model.CycleResult {
	var result model.CycleResult

	markup, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		result.Failure = err
		return result
	}

	ads, err := scrape.Parse(source, markup)
	if err != nil {
		result.Failure = err
		return result
	}
	r.log.Debug("extracted ads", "user_id", prof.UserID, "source", source, "count", len(ads))

	var delivered []string
	for _, ad := range ads {
		if !filter.Allowed(ad, prof.Filters) {
			r.log.Debug("filtered out", "user_id", prof.UserID, "title", ad.Title)
			continue
		}
		if prof.HasSent(ad.Link) {
			continue
		}

		if err := r.deliver(ctx, chatID, ad); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("deliver %s: %w", ad.Link, err))
			r.log.Error("deliver ad", "user_id", prof.UserID, "link", ad.Link, "error", err)
			continue
		}
		result.Delivered++
		delivered = append(delivered, ad.Link)
	}

	// One persist per cycle, under the user's lock; concurrent cycles for
	// the other source cannot clobber these appends.
	if len(delivered) > 0 {
		err := r.profiles.Update(ctx, prof.UserID, func(p *model.UserProfile) error {
			for _, link := range delivered {
				p.RecordSent(link)
			}
			return nil
		})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("persist history: %w", err))
			r.log.Error("persist history", "user_id", prof.UserID, "error", err)
		}
	}

	return result
}

// deliver sends one ad, preferring a photo message and falling back to
// plain text when the photo cannot be fetched or sent.
func (r *Runner) deliver(ctx context.Context, chatID int64, ad model.Ad) error {
	text := FormatAd(ad)

	if ad.PhotoURL != "" {
		photo, err := r.fetcher.FetchBytes(ctx, ad.PhotoURL)
		if err != nil {
			r.log.Warn("fetch photo", "chat_id", chatID, "url", ad.PhotoURL, "error", err)
		} else if err := r.sender.SendPhoto(chatID, photo, text); err != nil {
			r.log.Warn("send photo", "chat_id", chatID, "link", ad.Link, "error", err)
		} else {
			return nil
		}
	}

	return r.sender.SendText(chatID, text)
}
