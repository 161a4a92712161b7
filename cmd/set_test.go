package main

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/ffx64/nowplaying-rpc/client"
)

func parseSet(t *testing.T, args ...string) (setFlags, client.Activity, error) {
	t.Helper()
	var flags globalFlags
	cmd := setCmd(&flags)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	var f setFlags
	f.kind, _ = cmd.Flags().GetString("type")
	f.state, _ = cmd.Flags().GetString("state")
	f.details, _ = cmd.Flags().GetString("details")
	f.largeImage, _ = cmd.Flags().GetString("large-image")
	f.largeText, _ = cmd.Flags().GetString("large-text")
	f.smallImage, _ = cmd.Flags().GetString("small-image")
	f.smallText, _ = cmd.Flags().GetString("small-text")
	f.elapsed, _ = cmd.Flags().GetDuration("elapsed")
	f.duration, _ = cmd.Flags().GetDuration("duration")
	f.buttons, _ = cmd.Flags().GetStringSlice("button")
	act, err := f.activity(cmd, time.Unix(1000, 0))
	return f, act, err
}

func TestSetActivityFromFlags(t *testing.T) {
	_, act, err := parseSet(t,
		"--details", "Song", "--state", "",
		"--duration", "200s", "--elapsed", "50s",
		"--large-text", "Artist",
		"--button", "Listen=https://example.com/track",
	)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	b, _ := json.Marshal(act)
	want := `{"type":2,"state":"","details":"Song","timestamps":{"start":950,"end":1150},"assets":{"large_text":"Artist"},"buttons":[{"label":"Listen","url":"https://example.com/track"}]}`
	if string(b) != want {
		t.Fatalf("got  %s\nwant %s", b, want)
	}
}

func TestSetActivityDefaultsToStartOnly(t *testing.T) {
	_, act, err := parseSet(t, "--type", "Watching")
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if act.Type != client.Watching || act.Assets != nil || act.Details != nil {
		t.Fatalf("unexpected activity: %+v", act)
	}
	if act.Timestamps == nil || *act.Timestamps.Start != 1000 || act.Timestamps.End != nil {
		t.Fatalf("unexpected timestamps: %+v", act.Timestamps)
	}
}

func TestSetActivityRejectsBadInput(t *testing.T) {
	if _, _, err := parseSet(t, "--type", "dancing"); err == nil {
		t.Fatal("expected unknown type error")
	}
	if _, _, err := parseSet(t, "--button", "no-url"); err == nil {
		t.Fatal("expected malformed button error")
	}
}
