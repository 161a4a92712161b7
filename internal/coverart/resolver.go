// Package coverart finds a public image URL for the playing track, caching
// results so each track is only searched once.
package coverart

import (
	"context"

	"github.com/ffx64/nowplaying-rpc/internal/media"
	"github.com/rs/zerolog"
)

type Finder interface {
	Search(ctx context.Context, n media.NowPlaying) (string, bool, error)
}

type Resolver struct {
	cache  Cache
	finder Finder
	logger zerolog.Logger
}

func NewResolver(cache Cache, finder Finder, logger zerolog.Logger) *Resolver {
	return &Resolver{cache: cache, finder: finder, logger: logger}
}

// Lookup returns the cover URL for n. Failures are logged and reported as a miss.
func (r *Resolver) Lookup(ctx context.Context, n media.NowPlaying) (string, bool) {
	key := n.Key()
	if key == ";;" {
		return "", false
	}

	link, ok, err := r.cache.Get(key)
	if err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("failed to fetch cache")
	} else if ok {
		r.logger.Debug().Str("key", key).Str("link", link).Msg("cover art cache hit")
		return link, true
	}

	link, ok, err = r.finder.Search(ctx, n)
	if err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("cover art search failed")
		return "", false
	}
	if !ok {
		return "", false
	}
	if err := r.cache.Put(key, link); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("failed to insert cache")
	}
	return link, true
}
