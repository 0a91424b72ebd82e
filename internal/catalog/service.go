// Package catalog mirrors the trending feed from the hosted catalog service
// so the home screen reads it locally instead of hitting the catalog on
// every page load.
package catalog

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/catchhq/catch-backend/internal/api/httpjson"
	"github.com/catchhq/catch-backend/internal/restclient"
)

// Track is one catalog entry in the trending feed.
type Track struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album,omitempty"`
	CoverURL string `json:"coverUrl,omitempty"`
	Plays    int64  `json:"plays,omitempty"`
}

// Service periodically pulls the trending list and caches the last good
// copy. Refresh failures are logged and otherwise invisible; the cache just
// goes stale.
type Service struct {
	client   *restclient.Client
	interval time.Duration
	logger   zerolog.Logger

	mu        sync.RWMutex
	trending  []Track
	refreshed time.Time
}

// NewService builds the catalog mirror.
func NewService(client *restclient.Client, interval time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		client:   client,
		interval: interval,
		logger:   logger.With().Str("component", "catalog").Logger(),
	}
}

// Run refreshes immediately and then on every tick until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	s.refresh(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Trending returns the last good trending list and when it was fetched.
func (s *Service) Trending() ([]Track, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Track, len(s.trending))
	copy(out, s.trending)
	return out, s.refreshed
}

// ServeTrending is the GET /api/v1/catalog/trending endpoint.
func (s *Service) ServeTrending(w http.ResponseWriter, r *http.Request) {
	tracks, refreshed := s.Trending()
	httpjson.Write(w, http.StatusOK, map[string]any{
		"tracks":      tracks,
		"refreshedAt": refreshed,
	})
}

func (s *Service) refresh(ctx context.Context) {
	var tracks []Track
	if err := s.client.Get(ctx, "/v1/trending", &tracks); err != nil {
		s.logger.Warn().Err(err).Msg("trending refresh failed")
		return
	}

	s.mu.Lock()
	s.trending = tracks
	s.refreshed = time.Now()
	s.mu.Unlock()
	s.logger.Debug().Int("tracks", len(tracks)).Msg("trending refreshed")
}
