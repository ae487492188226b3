// Package journal records published posts.
package journal

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/muzposter/core/logger"
	"github.com/m3rciful/muzposter/internal/music"
)

// Post is one published submission.
type Post struct {
	SourceChatID    int64
	SourceMessageID int
	Destination     string
	MessageID       int
	Permalink       string
	Silent          bool
	Suggested       bool
	Links           music.Links
	PostedAt        time.Time
}

// Nop discards posts. It is used when no database is configured.
type Nop struct{}

func (Nop) Record(context.Context, Post) error { return nil }

// Store persists posts in Postgres.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps an open connection.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type postRow struct {
	SourceChatID    int64      `db:"source_chat_id"`
	SourceMessageID int        `db:"source_message_id"`
	Destination     string     `db:"destination"`
	MessageID       int        `db:"message_id"`
	Permalink       string     `db:"permalink"`
	Silent          bool       `db:"silent"`
	Suggested       bool       `db:"suggested"`
	Links           linksValue `db:"links"`
	PostedAt        time.Time  `db:"posted_at"`
}

const insertPost = `
INSERT INTO posts (source_chat_id, source_message_id, destination, message_id, permalink, silent, suggested, links, posted_at)
VALUES (:source_chat_id, :source_message_id, :destination, :message_id, :permalink, :silent, :suggested, :links, :posted_at)`

// Record appends p to the posts table.
func (s *Store) Record(ctx context.Context, p Post) error {
	start := time.Now()
	if _, err := s.db.NamedExecContext(ctx, insertPost, rowOf(p)); err != nil {
		return fmt.Errorf("journal: insert post: %w", err)
	}
	logger.Debug(ctx, logger.CompJournal, "post.recorded",
		slog.String("status", "ok"),
		slog.String("permalink", p.Permalink),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func rowOf(p Post) postRow {
	return postRow{
		SourceChatID:    p.SourceChatID,
		SourceMessageID: p.SourceMessageID,
		Destination:     p.Destination,
		MessageID:       p.MessageID,
		Permalink:       p.Permalink,
		Silent:          p.Silent,
		Suggested:       p.Suggested,
		Links:           linksValue(p.Links),
		PostedAt:        p.PostedAt,
	}
}

// linksValue writes music.Links as a JSON object keyed by platform.
type linksValue music.Links

func (v linksValue) Value() (driver.Value, error) {
	m := make(map[string]string, len(v))
	for k, u := range v {
		m[string(k)] = u
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("journal: encode links: %w", err)
	}
	return string(b), nil
}
