// Package talks loads the accepted talk list the voting engine pairs up.
package talks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/confweb/talkvote/internal/model"
)

// maxBodyBytes caps the upstream response size.
const maxBodyBytes = 8 << 20

var (
	ErrEmptyID     = errors.New("talk with empty id")
	ErrDuplicateID = errors.New("duplicate talk id")
)

// Source returns the current talk list in a stable order.
type Source interface {
	Talks(ctx context.Context) ([]model.Talk, error)
}

type HTTPSource struct {
	url    string
	client *http.Client
}

func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s *HTTPSource) Talks(ctx context.Context) ([]model.Talk, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("url", s.url).Dur("elapsed", elapsed).Msg("talk source request failed")
		return nil, fmt.Errorf("fetch talks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error().Str("url", s.url).Int("status", resp.StatusCode).Dur("elapsed", elapsed).Msg("talk source returned error status")
		return nil, fmt.Errorf("fetch talks: status %d", resp.StatusCode)
	}

	var talks []model.Talk
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&talks); err != nil {
		return nil, fmt.Errorf("decode talks: %w", err)
	}
	if err := Validate(talks); err != nil {
		return nil, err
	}

	log.Debug().Int("count", len(talks)).Dur("elapsed", elapsed).Msg("talks fetched")
	return talks, nil
}

// Validate rejects talk lists that cannot be paired deterministically.
func Validate(talks []model.Talk) error {
	seen := make(map[string]struct{}, len(talks))
	for i, t := range talks {
		if t.ID == "" {
			return fmt.Errorf("talk %d: %w", i, ErrEmptyID)
		}
		if _, ok := seen[t.ID]; ok {
			return fmt.Errorf("talk %q: %w", t.ID, ErrDuplicateID)
		}
		seen[t.ID] = struct{}{}
	}
	return nil
}
