package coverart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ffx64/nowplaying-rpc/internal/media"
)

// Searcher asks the QQ Music search API for the album of a track and turns
// the album id into a 300px cover URL.
type Searcher struct {
	BaseURL string
	HTTP    *http.Client
}

func NewSearcher(baseURL string, timeout time.Duration) *Searcher {
	return &Searcher{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type searchResponse struct {
	Data struct {
		Song struct {
			List []struct {
				AlbumID int64 `json:"albumid"`
			} `json:"list"`
		} `json:"song"`
	} `json:"data"`
}

func AlbumArtURL(albumID int64) string {
	return fmt.Sprintf("https://imgcache.qq.com/music/photo/album_300/%d/300_albumpic_%d_0.jpg", albumID%100, albumID)
}

func (s *Searcher) Search(ctx context.Context, n media.NowPlaying) (string, bool, error) {
	terms := make([]string, 0, 3)
	for _, v := range []*string{n.Title, n.Artist, n.Album} {
		if v != nil && strings.TrimSpace(*v) != "" {
			terms = append(terms, strings.TrimSpace(*v))
		}
	}
	if len(terms) == 0 {
		return "", false, nil
	}

	q := url.Values{}
	q.Set("p", "1")
	q.Set("n", "1")
	q.Set("w", strings.Join(terms, " "))
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", false, err
	}
	client := s.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("cover art search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("cover art search: unexpected status %s", resp.Status)
	}

	var doc searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", false, fmt.Errorf("cover art search: decode: %w", err)
	}
	if len(doc.Data.Song.List) == 0 || doc.Data.Song.List[0].AlbumID <= 0 {
		return "", false, nil
	}
	return AlbumArtURL(doc.Data.Song.List[0].AlbumID), true, nil
}
