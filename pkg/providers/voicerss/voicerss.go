// Package voicerss fetches text-to-speech audio from VoiceRSS.
package voicerss

import (
	"context"
	"net/url"
	"strings"
	"unicode"

	"github.com/aretw0/ankihorse/pkg/core"
	"github.com/aretw0/ankihorse/pkg/locale"
	"github.com/aretw0/ankihorse/pkg/media"
	"github.com/aretw0/ankihorse/pkg/providers"
	"github.com/aretw0/ankihorse/pkg/sanitize"
)

const (
	DefaultURL = "https://api.voicerss.org/"

	// Format is the audio format requested.
	Format = "48khz_16bit_mono"

	// Rate of speech, from -10 to 10.
	Rate = "-3"

	// MinAudioSize rejects error bodies served with an audio content type.
	MinAudioSize = 512
)

// Strategy writes a VoiceRSS reading of the source text into the target field.
type Strategy struct {
	core.Fields
	APIKey   string
	Language string
	URL      string
	deps     providers.Deps
}

// New creates a VoiceRSS strategy. language may be an English language name
// or a locale code.
func New(sources []string, target, language, apiKey string, deps providers.Deps) (*Strategy, error) {
	code, err := locale.Resolve(language)
	if err != nil {
		return nil, err
	}
	return &Strategy{
		Fields:   core.Fields{Sources: sources, Targets: []string{target}},
		APIKey:   apiKey,
		Language: strings.ToLower(code),
		URL:      DefaultURL,
		deps:     deps.WithDefaults(),
	}, nil
}

func (s *Strategy) Update(ctx context.Context, n core.Note) (bool, error) {
	_, query, ok := core.FirstQuery(n, s.Sources, sanitize.Query)
	if !ok {
		return false, nil
	}
	if strings.EqualFold(s.Language, locale.Japanese) {
		query = NormalizeJapanese(query)
	}

	staged, err := s.deps.Stager.Get(ctx, s.BuildURL(query), media.Expect{Type: "audio/", MinSize: MinAudioSize})
	if err != nil {
		s.deps.Logger.Warn("failed to download audio", "provider", "voicerss", "note", n.ID(), "query", query, "error", err)
		s.deps.Notify("Failed to download audio for query " + query + ".")
		return false, nil
	}
	return s.deps.StoreInto(ctx, n, s.Targets[0], staged, providers.SoundTag)
}

// BuildURL returns the request URL for a reading of query.
func (s *Strategy) BuildURL(query string) string {
	params := url.Values{
		"key": {s.APIKey},
		"src": {query},
		"hl":  {s.Language},
		"f":   {Format},
		"r":   {Rate},
	}
	return s.URL + "?" + params.Encode()
}

const (
	prolongedSoundMark = 'ー'
	waveDash           = '～'
	pause              = '、'
)

// NormalizeJapanese replaces a prolonged sound mark that does not follow kana,
// and every wave dash, with a comma so that they are read as a pause.
func NormalizeJapanese(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == waveDash:
			runes[i] = pause
		case r == prolongedSoundMark && (i == 0 || !isKana(runes[i-1])):
			runes[i] = pause
		}
	}
	return string(runes)
}

func isKana(r rune) bool {
	return r == prolongedSoundMark || unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r)
}
