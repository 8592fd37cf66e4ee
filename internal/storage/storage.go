// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"

	"elan_bot/internal/model"
)

// ErrNotFound is returned when a requested profile does not exist.
var ErrNotFound = errors.New("profile not found")

// Storage is the interface for all persistence operations. SaveProfile
// replaces the whole durable record for one user atomically; readers never
// observe a partially written profile.
type Storage interface {
	GetProfile(ctx context.Context, userID int64) (*model.UserProfile, error)
	ListProfiles(ctx context.Context) ([]model.UserProfile, error)
	SaveProfile(ctx context.Context, p *model.UserProfile) error

	Close() error
}
