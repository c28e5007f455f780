// Package google fetches images from Google Custom Search.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/aretw0/ankihorse/pkg/core"
	"github.com/aretw0/ankihorse/pkg/media"
	"github.com/aretw0/ankihorse/pkg/providers"
	"github.com/aretw0/ankihorse/pkg/sanitize"
)

const (
	DefaultSearchURL = "https://www.googleapis.com/customsearch/v1"

	// NotFound is written to the target when the image cannot be downloaded.
	NotFound = "Image not found."

	quotaMessage = "403 Forbidden. You're probably out of Google requests. Try again tomorrow."
)

// ImageStrategy writes the first image result for the source text into the
// target field.
type ImageStrategy struct {
	core.Fields
	APIKey    string
	CX        string
	SearchURL string
	deps      providers.Deps
}

// NewImageStrategy creates an image strategy. apiKey and cx identify the
// Custom Search engine.
func NewImageStrategy(sources []string, target, apiKey, cx string, deps providers.Deps) *ImageStrategy {
	return &ImageStrategy{
		Fields:    core.Fields{Sources: sources, Targets: []string{target}},
		APIKey:    apiKey,
		CX:        cx,
		SearchURL: DefaultSearchURL,
		deps:      deps.WithDefaults(),
	}
}

func (s *ImageStrategy) Update(ctx context.Context, n core.Note) (bool, error) {
	_, query, ok := core.FirstQuery(n, s.Sources, sanitize.Query)
	if !ok {
		return false, nil
	}
	target := s.Targets[0]
	logger := s.deps.Logger.With("provider", "google", "note", n.ID())

	link, err := s.firstImage(ctx, query)
	if err != nil {
		if media.StatusCode(err) == http.StatusForbidden {
			s.deps.Notify(quotaMessage)
		}
		logger.Warn("image search failed", "query", query, "error", err)
		return false, nil
	}
	if link == "" {
		logger.Info("no image found", "query", query)
		return false, nil
	}

	staged, err := s.deps.Stager.Get(ctx, link, media.Expect{Type: "image/"})
	if err != nil {
		logger.Warn("image download failed", "url", link, "error", err)
		if n.Get(target) == NotFound {
			return false, nil
		}
		n.Set(target, NotFound)
		return true, nil
	}
	return s.deps.StoreInto(ctx, n, target, staged, providers.ImageTag)
}

type searchResponse struct {
	Items []struct {
		Link string `json:"link"`
		Mime string `json:"mime"`
	} `json:"items"`
}

func (s *ImageStrategy) firstImage(ctx context.Context, query string) (string, error) {
	params := url.Values{
		"q":          {query},
		"key":        {s.APIKey},
		"cx":         {s.CX},
		"searchType": {"image"},
	}
	endpoint := s.SearchURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.deps.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", media.NewHTTPError(resp.StatusCode, s.SearchURL, resp.Status)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}
	if len(result.Items) == 0 {
		return "", nil
	}
	return result.Items[0].Link, nil
}
