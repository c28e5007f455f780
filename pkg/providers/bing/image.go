package bing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aretw0/ankihorse/pkg/core"
	"github.com/aretw0/ankihorse/pkg/locale"
	"github.com/aretw0/ankihorse/pkg/media"
	"github.com/aretw0/ankihorse/pkg/providers"
	"github.com/aretw0/ankihorse/pkg/sanitize"
)

// ImageStrategy writes the first Bing image search result into the target
// field.
type ImageStrategy struct {
	core.Fields
	APIKey    string
	Market    string
	SearchURL string
	deps      providers.Deps
}

// NewImageStrategy creates an image strategy searching the market of
// language.
func NewImageStrategy(sources []string, target, language, apiKey string, deps providers.Deps) (*ImageStrategy, error) {
	market, err := locale.Resolve(language)
	if err != nil {
		return nil, err
	}
	return &ImageStrategy{
		Fields:    core.Fields{Sources: sources, Targets: []string{target}},
		APIKey:    apiKey,
		Market:    market,
		SearchURL: DefaultImageSearchURL,
		deps:      deps.WithDefaults(),
	}, nil
}

func (s *ImageStrategy) Update(ctx context.Context, n core.Note) (bool, error) {
	_, query, ok := core.FirstQuery(n, s.Sources, sanitize.Query)
	if !ok {
		return false, nil
	}
	logger := s.deps.Logger.With("provider", "bing", "note", n.ID())

	image, err := s.search(ctx, query)
	if err != nil {
		logger.Warn("image search failed", "query", query, "error", err)
		return false, nil
	}
	if image == nil {
		logger.Info("no image found", "query", query)
		return false, nil
	}

	want := media.Expect{Type: "image/"}
	if image.EncodingFormat != "" {
		want.Ext = "." + strings.ToLower(image.EncodingFormat)
	}
	staged, err := s.deps.Stager.Get(ctx, image.ContentURL, want)
	if err != nil {
		logger.Warn("image download failed", "url", image.ContentURL, "error", err)
		return false, nil
	}
	return s.deps.StoreInto(ctx, n, s.Targets[0], staged, providers.ImageTag)
}

type imageResult struct {
	ContentURL     string `json:"contentUrl"`
	EncodingFormat string `json:"encodingFormat"`
}

type imageSearchResponse struct {
	Value []imageResult `json:"value"`
}

func (s *ImageStrategy) search(ctx context.Context, query string) (*imageResult, error) {
	params := url.Values{
		"q":   {query},
		"mkt": {s.Market},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.SearchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(subscriptionKeyHeader, s.APIKey)
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.deps.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, media.NewHTTPError(resp.StatusCode, s.SearchURL, resp.Status)
	}

	var result imageSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	for _, v := range result.Value {
		if v.ContentURL != "" {
			return &v, nil
		}
	}
	return nil, nil
}
