package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultClientID  = "1076426618874101871"
	DefaultSearchURL = "https://c.y.qq.com/soso/fcgi-bin/client_search_cp"
)

type Config struct {
	ClientID       string
	AllowedSources []string
	Cooldown       time.Duration
	ReadTimeout    time.Duration
	IPCBase        string
	LogLevel       string
	MPD            MPDConfig
	CoverArt       CoverArtConfig
	Status         StatusConfig
}

type MPDConfig struct {
	Network  string
	Address  string
	Password string
}

type CoverArtConfig struct {
	Enabled   bool
	CacheDir  string
	SearchURL string
	Timeout   time.Duration
}

// StatusConfig controls the local HTTP status listener. Empty Addr disables it.
type StatusConfig struct {
	Addr string
}

func Default() Config {
	return Config{
		ClientID:       DefaultClientID,
		AllowedSources: []string{"mpd"},
		Cooldown:       5 * time.Second,
		ReadTimeout:    10 * time.Second,
		LogLevel:       "info",
		MPD: MPDConfig{
			Network: "tcp",
			Address: "localhost:6600",
		},
		CoverArt: CoverArtConfig{
			Enabled:   true,
			SearchURL: DefaultSearchURL,
			Timeout:   5 * time.Second,
		},
	}
}

type fileConfig struct {
	ClientID       string   `toml:"client_id"`
	AllowedSources []string `toml:"allowed_sources"`
	Cooldown       string   `toml:"cooldown"`
	ReadTimeout    string   `toml:"read_timeout"`
	IPCBase        string   `toml:"ipc_base"`
	MPD            struct {
		Network  string `toml:"network"`
		Address  string `toml:"address"`
		Password string `toml:"password"`
	} `toml:"mpd"`
	CoverArt struct {
		Enabled   bool   `toml:"enabled"`
		CacheDir  string `toml:"cache_dir"`
		SearchURL string `toml:"search_url"`
		Timeout   string `toml:"timeout"`
	} `toml:"coverart"`
	Status struct {
		Addr string `toml:"addr"`
	} `toml:"status"`
	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
}

// Load reads path over Default. Only keys present in the file override
// defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("client_id") {
		cfg.ClientID = strings.TrimSpace(raw.ClientID)
	}
	if meta.IsDefined("allowed_sources") {
		cfg.AllowedSources = normalize(raw.AllowedSources)
	}
	if meta.IsDefined("cooldown") {
		if cfg.Cooldown, err = parseDuration("cooldown", raw.Cooldown); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("read_timeout") {
		if cfg.ReadTimeout, err = parseDuration("read_timeout", raw.ReadTimeout); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("ipc_base") {
		cfg.IPCBase = strings.TrimSpace(raw.IPCBase)
	}
	if meta.IsDefined("mpd", "network") {
		cfg.MPD.Network = strings.TrimSpace(raw.MPD.Network)
	}
	if meta.IsDefined("mpd", "address") {
		cfg.MPD.Address = strings.TrimSpace(raw.MPD.Address)
	}
	if meta.IsDefined("mpd", "password") {
		cfg.MPD.Password = raw.MPD.Password
	}
	if meta.IsDefined("coverart", "enabled") {
		cfg.CoverArt.Enabled = raw.CoverArt.Enabled
	}
	if meta.IsDefined("coverart", "cache_dir") {
		cfg.CoverArt.CacheDir = strings.TrimSpace(raw.CoverArt.CacheDir)
	}
	if meta.IsDefined("coverart", "search_url") {
		cfg.CoverArt.SearchURL = strings.TrimSpace(raw.CoverArt.SearchURL)
	}
	if meta.IsDefined("coverart", "timeout") {
		if cfg.CoverArt.Timeout, err = parseDuration("coverart.timeout", raw.CoverArt.Timeout); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("status", "addr") {
		cfg.Status.Addr = strings.TrimSpace(raw.Status.Addr)
	}
	if meta.IsDefined("log", "level") {
		cfg.LogLevel = strings.TrimSpace(raw.Log.Level)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if cfg.ClientID == "" {
		return fmt.Errorf("config missing client_id")
	}
	if cfg.Cooldown < 0 {
		return fmt.Errorf("cooldown must not be negative")
	}
	if cfg.ReadTimeout < 0 {
		return fmt.Errorf("read_timeout must not be negative")
	}
	switch cfg.MPD.Network {
	case "tcp", "unix":
	default:
		return fmt.Errorf("mpd network must be tcp or unix, got %q", cfg.MPD.Network)
	}
	if cfg.MPD.Address == "" {
		return fmt.Errorf("config missing mpd address")
	}
	if cfg.CoverArt.Enabled && cfg.CoverArt.SearchURL == "" {
		return fmt.Errorf("coverart enabled without search_url")
	}
	return nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func normalize(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
