// Package presence turns media events into rich presence updates.
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/ffx64/nowplaying-rpc/client"
	"github.com/ffx64/nowplaying-rpc/internal/media"
	"github.com/rs/zerolog"
)

// Publisher is the part of client.Client the pipeline drives.
type Publisher interface {
	SetActivity(client.Activity) error
	ClearActivity() error
}

type ArtLookup interface {
	Lookup(ctx context.Context, n media.NowPlaying) (string, bool)
}

type EventRecorder interface {
	MediaEvent(source, outcome string)
}

const (
	OutcomeApplied = "applied"
	OutcomeCleared = "cleared"
	OutcomeIgnored = "ignored"
	OutcomeFailed  = "failed"
)

// Snapshot is the last state the pipeline published.
type Snapshot struct {
	Playing   bool      `json:"playing"`
	Source    string    `json:"source,omitempty"`
	Title     string    `json:"title,omitempty"`
	Artist    string    `json:"artist,omitempty"`
	Album     string    `json:"album,omitempty"`
	CoverURL  string    `json:"cover_url,omitempty"`
	Changes   int       `json:"changes"`
	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Pipeline struct {
	pub    Publisher
	gate   media.Gate
	art    ArtLookup
	events EventRecorder
	logger zerolog.Logger

	mu   sync.RWMutex
	snap Snapshot

	// showing is true once an activity was published and not yet cleared.
	// Only handle touches it.
	showing bool
}

type Option func(*Pipeline)

func WithArt(a ArtLookup) Option { return func(p *Pipeline) { p.art = a } }

func WithRecorder(r EventRecorder) Option { return func(p *Pipeline) { p.events = r } }

func WithLogger(l zerolog.Logger) Option { return func(p *Pipeline) { p.logger = l } }

// New builds a pipeline. Events whose source fails gate never reach pub.
func New(pub Publisher, gate media.Gate, opts ...Option) *Pipeline {
	p := &Pipeline{
		pub:    pub,
		gate:   gate,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run handles events until ctx is done or in is closed.
func (p *Pipeline) Run(ctx context.Context, in <-chan media.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-in:
			if !ok {
				return nil
			}
			p.Handle(ctx, ev)
		}
	}
}

// Handle applies one event and returns its outcome. Calls must not overlap.
func (p *Pipeline) Handle(ctx context.Context, ev media.Event) string {
	outcome := p.handle(ctx, ev)
	if p.events != nil {
		p.events.MediaEvent(ev.Source, outcome)
	}
	return outcome
}

func (p *Pipeline) handle(ctx context.Context, ev media.Event) string {
	if p.gate != nil && !p.gate(ev.Source) {
		p.logger.Debug().Str("source", ev.Source).Msg("media event from disallowed source")
		return OutcomeIgnored
	}

	if !ev.Playing || ev.Info == nil {
		if !p.showing {
			p.logger.Debug().Str("source", ev.Source).Msg("player stopped, nothing to clear")
			return OutcomeIgnored
		}
		err := p.pub.ClearActivity()
		p.record(ev, "", err)
		if err != nil {
			p.logger.Warn().Err(err).Msg("clear activity failed")
			return OutcomeFailed
		}
		p.showing = false
		return OutcomeCleared
	}

	var cover string
	if p.art != nil {
		cover, _ = p.art.Lookup(ctx, *ev.Info)
	}
	act := BuildActivity(*ev.Info, cover)
	err := p.pub.SetActivity(act)
	p.record(ev, cover, err)
	if err != nil {
		p.logger.Warn().Err(err).Msg("set activity failed")
		return OutcomeFailed
	}
	p.showing = true
	p.logger.Info().
		Str("title", deref(ev.Info.Title)).
		Str("artist", deref(ev.Info.Artist)).
		Msg("now playing")
	return OutcomeApplied
}

func (p *Pipeline) record(ev media.Event, cover string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := Snapshot{
		Playing:   ev.Playing && ev.Info != nil,
		Source:    ev.Source,
		CoverURL:  cover,
		Changes:   p.snap.Changes + 1,
		UpdatedAt: time.Now(),
	}
	if ev.Info != nil {
		s.Title = deref(ev.Info.Title)
		s.Artist = deref(ev.Info.Artist)
		s.Album = deref(ev.Info.Album)
	}
	if err != nil {
		s.LastError = err.Error()
	}
	p.snap = s
}

func (p *Pipeline) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

// BuildActivity maps a track onto a Listening activity: title as details,
// album as state, artist as the large image caption.
func BuildActivity(n media.NowPlaying, cover string) client.Activity {
	act := client.Activity{
		Type:    client.Listening,
		State:   n.Album,
		Details: n.Title,
	}

	var start, duration, elapsed *int64
	if n.Timestamp != nil {
		start = client.Int64(n.Timestamp.Unix())
	}
	if n.Duration != nil {
		duration = client.Int64(int64(n.Duration.Seconds()))
	}
	if n.Elapsed != nil {
		elapsed = client.Int64(int64(n.Elapsed.Seconds()))
	}
	act.Timestamps = client.DeriveTimestamps(start, duration, elapsed)

	if cover != "" || n.Artist != nil {
		act.Assets = &client.Assets{LargeText: n.Artist}
		if cover != "" {
			act.Assets.LargeImage = client.String(cover)
		}
	}
	return act
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
