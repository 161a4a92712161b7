package media

import (
	"testing"
	"time"
)

func str(s string) *string { return &s }

func TestKey(t *testing.T) {
	n := NowPlaying{Title: str("Song"), Album: str("Album")}
	if got := n.Key(); got != "Song;;Album" {
		t.Fatalf("Key() = %q", got)
	}
}

func TestAllowList(t *testing.T) {
	gate := AllowList("mpd", " com.tencent.QQMusicMac ", "")
	if !gate("mpd") || !gate("com.tencent.QQMusicMac") {
		t.Fatal("expected listed sources to pass")
	}
	if gate("") || gate("com.spotify.client") {
		t.Fatal("unlisted source passed the gate")
	}
	if AllowList()("mpd") {
		t.Fatal("empty allow list should reject everything")
	}
}

func TestEventFromMPDPlaying(t *testing.T) {
	now := time.Unix(1000, 0)
	ev := eventFromMPD(
		map[string]string{"state": "play", "elapsed": "50.5", "duration": "200.000"},
		map[string]string{"Title": "Song", "Artist": "Artist", "Album": "Album", "file": "a/b.flac"},
		now,
	)
	if ev.Source != MPDSourceID || !ev.Playing || ev.Info == nil {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if *ev.Info.Title != "Song" || *ev.Info.Artist != "Artist" || *ev.Info.Album != "Album" {
		t.Fatalf("unexpected tags: %+v", ev.Info)
	}
	if *ev.Info.Duration != 200*time.Second {
		t.Fatalf("duration %v", *ev.Info.Duration)
	}
	if *ev.Info.Elapsed != 50500*time.Millisecond || !ev.Info.Timestamp.Equal(now) {
		t.Fatalf("elapsed %v at %v", *ev.Info.Elapsed, ev.Info.Timestamp)
	}
}

func TestEventFromMPDFallbacks(t *testing.T) {
	ev := eventFromMPD(
		map[string]string{"state": "pause"},
		map[string]string{"file": "music/track01.mp3", "Time": "180"},
		time.Now(),
	)
	if ev.Playing {
		t.Fatal("paused player reported as playing")
	}
	if *ev.Info.Title != "track01.mp3" {
		t.Fatalf("title fallback %q", *ev.Info.Title)
	}
	if ev.Info.Artist != nil || ev.Info.Album != nil {
		t.Fatalf("missing tags should stay nil: %+v", ev.Info)
	}
	if *ev.Info.Duration != 180*time.Second {
		t.Fatalf("duration %v", *ev.Info.Duration)
	}
	if ev.Info.Elapsed != nil || ev.Info.Timestamp != nil {
		t.Fatal("no elapsed sample expected")
	}

	stopped := eventFromMPD(map[string]string{"state": "stop"}, map[string]string{}, time.Now())
	if stopped.Playing || stopped.Info != nil {
		t.Fatalf("stopped player: %+v", stopped)
	}
}
