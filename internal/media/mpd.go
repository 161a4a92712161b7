package media

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/rs/zerolog"
)

const MPDSourceID = "mpd"

// MPDSource follows the MPD "player" subsystem. Each idle notification is
// answered with a fresh short-lived command connection, since MPD only says
// that something changed.
type MPDSource struct {
	Network  string
	Address  string
	Password string
	Logger   zerolog.Logger

	now func() time.Time
}

func NewMPDSource(network, address, password string, logger zerolog.Logger) *MPDSource {
	return &MPDSource{
		Network:  network,
		Address:  address,
		Password: password,
		Logger:   logger,
		now:      time.Now,
	}
}

func (s *MPDSource) Run(ctx context.Context, out chan<- Event) error {
	w, err := mpd.NewWatcher(s.Network, s.Address, s.Password, "player")
	if err != nil {
		return fmt.Errorf("mpd watcher: %w", err)
	}
	defer w.Close()
	s.Logger.Info().Str("address", s.Address).Msg("mpd connection established, entering idle loop")

	if err := s.poll(ctx, out); err != nil {
		s.Logger.Warn().Err(err).Msg("initial mpd poll failed")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Error:
			if !ok {
				return fmt.Errorf("mpd watcher closed")
			}
			s.Logger.Warn().Err(err).Msg("mpd watcher error")
		case subsystem, ok := <-w.Event:
			if !ok {
				return fmt.Errorf("mpd watcher closed")
			}
			s.Logger.Debug().Str("subsystem", subsystem).Msg("mpd idle event")
			if err := s.poll(ctx, out); err != nil {
				s.Logger.Warn().Err(err).Msg("mpd poll failed")
			}
		}
	}
}

func (s *MPDSource) poll(ctx context.Context, out chan<- Event) error {
	c, err := mpd.DialAuthenticated(s.Network, s.Address, s.Password)
	if err != nil {
		return fmt.Errorf("mpd dial: %w", err)
	}
	defer c.Close()

	status, err := c.Status()
	if err != nil {
		return fmt.Errorf("mpd status: %w", err)
	}
	song, err := c.CurrentSong()
	if err != nil {
		return fmt.Errorf("mpd currentsong: %w", err)
	}

	now := time.Now
	if s.now != nil {
		now = s.now
	}
	ev := eventFromMPD(status, song, now())
	select {
	case out <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// eventFromMPD maps `status` and `currentsong` replies onto an Event sampled at now.
func eventFromMPD(status, song map[string]string, now time.Time) Event {
	ev := Event{
		Source:  MPDSourceID,
		Playing: status["state"] == "play",
	}
	if len(song) == 0 {
		return ev
	}

	info := &NowPlaying{
		Title:  attr(song, "Title"),
		Artist: attr(song, "Artist"),
		Album:  attr(song, "Album"),
	}
	if info.Title == nil {
		if file := attr(song, "file"); file != nil {
			base := *file
			if i := strings.LastIndex(base, "/"); i >= 0 {
				base = base[i+1:]
			}
			info.Title = &base
		}
	}

	info.Duration = seconds(status["duration"])
	if info.Duration == nil {
		info.Duration = seconds(song["duration"])
	}
	if info.Duration == nil {
		info.Duration = seconds(song["Time"])
	}
	if elapsed := seconds(status["elapsed"]); elapsed != nil {
		info.Elapsed = elapsed
		ts := now
		info.Timestamp = &ts
	}
	ev.Info = info
	return ev
}

func attr(m map[string]string, key string) *string {
	v, ok := m[key]
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

func seconds(raw string) *time.Duration {
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 {
		return nil
	}
	d := time.Duration(math.Round(f * float64(time.Second)))
	return &d
}
