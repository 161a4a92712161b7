// Package media describes what is playing on the host and where that
// information comes from.
package media

import (
	"context"
	"strings"
	"time"
)

// NowPlaying is one sample of the player's state. Every field is optional;
// Timestamp is when Elapsed was sampled.
type NowPlaying struct {
	Title     *string
	Artist    *string
	Album     *string
	Duration  *time.Duration
	Timestamp *time.Time
	Elapsed   *time.Duration
}

// Key identifies the track for cover art caching.
func (n NowPlaying) Key() string {
	return deref(n.Title) + ";" + deref(n.Artist) + ";" + deref(n.Album)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Event is emitted whenever the player changes. Info may be nil when the
// player has nothing loaded.
type Event struct {
	Source  string
	Playing bool
	Info    *NowPlaying
}

// Source produces events until ctx is done or the player goes away.
type Source interface {
	Run(ctx context.Context, out chan<- Event) error
}

// Gate decides whether events from a source identity reach the presence.
type Gate func(source string) bool

func AllowList(ids ...string) Gate {
	allowed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			allowed[id] = struct{}{}
		}
	}
	return func(source string) bool {
		_, ok := allowed[source]
		return ok
	}
}
