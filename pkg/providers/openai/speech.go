// Package openai generates speech with the OpenAI audio API.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/aretw0/ankihorse/pkg/core"
	"github.com/aretw0/ankihorse/pkg/media"
	"github.com/aretw0/ankihorse/pkg/providers"
	"github.com/aretw0/ankihorse/pkg/sanitize"
)

const (
	DefaultModel = "tts-1"
	DefaultVoice = "alloy"

	// EnvAPIKey is read by the SDK when no key is configured.
	EnvAPIKey = "OPENAI_API_KEY"
)

// Config selects the model, voice and endpoint.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Voice   string
	// Instructions steer the delivery on models that support it.
	Instructions string
}

// SpeechStrategy writes an OpenAI text-to-speech rendition of the source text
// into the target field.
type SpeechStrategy struct {
	core.Fields
	cfg    Config
	client openaisdk.Client
	deps   providers.Deps
}

// NewSpeechStrategy creates a speech strategy.
func NewSpeechStrategy(sources []string, target string, cfg Config, deps providers.Deps) *SpeechStrategy {
	deps = deps.WithDefaults()
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if strings.TrimSpace(cfg.Voice) == "" {
		cfg.Voice = DefaultVoice
	}

	requestOpts := make([]option.RequestOption, 0, 4)
	requestOpts = append(requestOpts, option.WithHTTPClient(deps.Client), option.WithMaxRetries(0))
	if cfg.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		requestOpts = append(requestOpts, option.WithAPIKey(cfg.APIKey))
	}

	return &SpeechStrategy{
		Fields: core.Fields{Sources: sources, Targets: []string{target}},
		cfg:    cfg,
		client: openaisdk.NewClient(requestOpts...),
		deps:   deps,
	}
}

func (s *SpeechStrategy) Update(ctx context.Context, n core.Note) (bool, error) {
	_, query, ok := core.FirstQuery(n, s.Sources, sanitize.Query)
	if !ok {
		return false, nil
	}

	staged, err := s.speak(ctx, query)
	if err != nil {
		s.deps.Logger.Warn("speech generation failed",
			"provider", "openai", "note", n.ID(), "model", s.cfg.Model, "error", err)
		return false, nil
	}
	return s.deps.StoreInto(ctx, n, s.Targets[0], staged, providers.SoundTag)
}

func (s *SpeechStrategy) speak(ctx context.Context, text string) (*media.Staged, error) {
	params := openaisdk.AudioSpeechNewParams{
		Input: text,
		Model: openaisdk.SpeechModel(s.cfg.Model),
	}
	// Voice and format are set on the wire so custom voices pass through.
	reqOpts := []option.RequestOption{
		option.WithJSONSet("voice", s.cfg.Voice),
		option.WithJSONSet("response_format", "mp3"),
	}
	if s.cfg.Instructions != "" {
		reqOpts = append(reqOpts, option.WithJSONSet("instructions", s.cfg.Instructions))
	}

	resp, err := s.client.Audio.Speech.New(ctx, params, reqOpts...)
	if err != nil {
		return nil, fmt.Errorf("speech request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, media.NewHTTPError(resp.StatusCode, "audio/speech", resp.Status)
	}
	return s.deps.Stager.Save(resp.Body, resp.Header.Get("Content-Type"), media.Expect{Type: "audio/", Ext: ".mp3"})
}
