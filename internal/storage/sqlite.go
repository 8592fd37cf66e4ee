package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"elan_bot/internal/model"
	"elan_bot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

const (
	dimensionTitle    = "title"
	dimensionLocation = "location"
)

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// GetProfile returns the profile for userID, or ErrNotFound.
func (s *SQLite) GetProfile(ctx context.Context, userID int64) (*model.UserProfile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, tap_url, bina_url, auto_enabled, interval_seconds, active_chat_id, created_at
		 FROM profiles WHERE user_id = ?`, userID,
	)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadProfileLists(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListProfiles returns every persisted profile, used for restart recovery.
func (s *SQLite) ListProfiles(ctx context.Context) ([]model.UserProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, tap_url, bina_url, auto_enabled, interval_seconds, active_chat_id, created_at
		 FROM profiles ORDER BY user_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var profiles []model.UserProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range profiles {
		if err := s.loadProfileLists(ctx, &profiles[i]); err != nil {
			return nil, err
		}
	}
	return profiles, nil
}

// SaveProfile upserts the profile row and replaces the user's filter rules
// and sent-ad history in a single transaction.
func (s *SQLite) SaveProfile(ctx context.Context, p *model.UserProfile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	created := p.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO profiles (user_id, tap_url, bina_url, auto_enabled, interval_seconds, active_chat_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		   tap_url = excluded.tap_url,
		   bina_url = excluded.bina_url,
		   auto_enabled = excluded.auto_enabled,
		   interval_seconds = excluded.interval_seconds,
		   active_chat_id = excluded.active_chat_id`,
		p.UserID, p.SourceURLs[model.SourceTap], p.SourceURLs[model.SourceBina],
		boolToInt(p.AutoCheck.Enabled), p.AutoCheck.IntervalSeconds, p.AutoCheck.ActiveChatID,
		created.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM filter_rules WHERE user_id = ?`, p.UserID); err != nil {
		return fmt.Errorf("delete filter_rules: %w", err)
	}
	if err := insertRules(ctx, tx, p.UserID, dimensionTitle, p.Filters.Title); err != nil {
		return err
	}
	if err := insertRules(ctx, tx, p.UserID, dimensionLocation, p.Filters.Location); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM sent_ads WHERE user_id = ?`, p.UserID); err != nil {
		return fmt.Errorf("delete sent_ads: %w", err)
	}
	for i, link := range p.SentAds {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sent_ads (user_id, position, link) VALUES (?, ?, ?)`,
			p.UserID, i, link,
		); err != nil {
			return fmt.Errorf("insert sent_ad: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit profile: %w", err)
	}
	return nil
}

func insertRules(ctx context.Context, tx *sql.Tx, userID int64, dimension string, values []string) error {
	for i, v := range values {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO filter_rules (user_id, dimension, position, value) VALUES (?, ?, ?, ?)`,
			userID, dimension, i, v,
		); err != nil {
			return fmt.Errorf("insert %s rule: %w", dimension, err)
		}
	}
	return nil
}

func (s *SQLite) loadProfileLists(ctx context.Context, p *model.UserProfile) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT dimension, value FROM filter_rules WHERE user_id = ? ORDER BY dimension, position`,
		p.UserID,
	)
	if err != nil {
		return fmt.Errorf("query filter_rules: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var dimension, value string
		if err := rows.Scan(&dimension, &value); err != nil {
			return fmt.Errorf("scan filter rule: %w", err)
		}
		switch dimension {
		case dimensionTitle:
			p.Filters.Title = append(p.Filters.Title, value)
		case dimensionLocation:
			p.Filters.Location = append(p.Filters.Location, value)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	adRows, err := s.db.QueryContext(ctx,
		`SELECT link FROM sent_ads WHERE user_id = ? ORDER BY position`, p.UserID,
	)
	if err != nil {
		return fmt.Errorf("query sent_ads: %w", err)
	}
	defer func() { _ = adRows.Close() }()
	for adRows.Next() {
		var link string
		if err := adRows.Scan(&link); err != nil {
			return fmt.Errorf("scan sent_ad: %w", err)
		}
		p.SentAds = append(p.SentAds, link)
	}
	return adRows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanProfile(row scannable) (*model.UserProfile, error) {
	var p model.UserProfile
	var tapURL, binaURL, created string
	var enabled int
	err := row.Scan(&p.UserID, &tapURL, &binaURL, &enabled,
		&p.AutoCheck.IntervalSeconds, &p.AutoCheck.ActiveChatID, &created)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	p.SourceURLs = map[model.Source]string{
		model.SourceTap:  tapURL,
		model.SourceBina: binaURL,
	}
	p.AutoCheck.Enabled = enabled == 1
	p.CreatedAt, _ = time.Parse(timeLayout, created)
	return &p, nil
}
