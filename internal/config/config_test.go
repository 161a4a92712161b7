package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ClientID != DefaultClientID {
		t.Fatalf("unexpected client id: %q", cfg.ClientID)
	}
	if cfg.Cooldown != 5*time.Second {
		t.Fatalf("unexpected cooldown: %v", cfg.Cooldown)
	}
	if len(cfg.AllowedSources) != 1 || cfg.AllowedSources[0] != "mpd" {
		t.Fatalf("unexpected sources: %v", cfg.AllowedSources)
	}
	if cfg.Status.Addr != "" {
		t.Fatalf("status listener should be off by default: %q", cfg.Status.Addr)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
client_id = "42"
allowed_sources = ["mpd", " mpd ", "com.tencent.QQMusicMac"]
cooldown = "7s"
read_timeout = "0s"
ipc_base = "/run/user/1000"

[mpd]
network = "unix"
address = "/run/mpd/socket"

[coverart]
enabled = false

[status]
addr = "127.0.0.1:7070"

[log]
level = "debug"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ClientID != "42" {
		t.Fatalf("unexpected client id: %q", cfg.ClientID)
	}
	if len(cfg.AllowedSources) != 2 || cfg.AllowedSources[1] != "com.tencent.QQMusicMac" {
		t.Fatalf("unexpected sources: %v", cfg.AllowedSources)
	}
	if cfg.Cooldown != 7*time.Second || cfg.ReadTimeout != 0 {
		t.Fatalf("unexpected durations: %v %v", cfg.Cooldown, cfg.ReadTimeout)
	}
	if cfg.IPCBase != "/run/user/1000" {
		t.Fatalf("unexpected ipc base: %q", cfg.IPCBase)
	}
	if cfg.MPD.Network != "unix" || cfg.MPD.Address != "/run/mpd/socket" {
		t.Fatalf("unexpected mpd: %+v", cfg.MPD)
	}
	if cfg.CoverArt.Enabled {
		t.Fatal("expected coverart disabled")
	}
	if cfg.CoverArt.SearchURL != DefaultSearchURL {
		t.Fatalf("undefined key should keep default, got %q", cfg.CoverArt.SearchURL)
	}
	if cfg.Status.Addr != "127.0.0.1:7070" || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected status/log: %q %q", cfg.Status.Addr, cfg.LogLevel)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad duration": `cooldown = "soon"`,
		"empty id":     `client_id = ""`,
		"bad network":  "[mpd]\nnetwork = \"udp\"",
		"unknown key":  `colour = "blue"`,
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil || !strings.Contains(err.Error(), "load config") {
		t.Fatalf("expected load error for missing file, got %v", err)
	}
}
