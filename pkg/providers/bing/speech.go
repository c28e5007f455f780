package bing

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"math/rand/v2"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/aretw0/ankihorse/pkg/core"
	"github.com/aretw0/ankihorse/pkg/locale"
	"github.com/aretw0/ankihorse/pkg/media"
	"github.com/aretw0/ankihorse/pkg/providers"
	"github.com/aretw0/ankihorse/pkg/sanitize"
)

// OutputFormat is the audio format requested from the speech service.
const OutputFormat = "audio-16khz-128kbitrate-mono-mp3"

// The service reads Japanese sentence punctuation out loud.
var japanesePunctuation = regexp.MustCompile(`[。？.?]`)

// SpeechStrategy writes a spoken rendition of the source text into the
// target field.
type SpeechStrategy struct {
	core.Fields
	Locale    string
	SpeechURL string

	client *Client
	deps   providers.Deps
	pick   func(n int) int
}

// NewSpeechStrategy creates a speech strategy for language, which may be an
// English language name or a locale code.
func NewSpeechStrategy(sources []string, target, language string, client *Client, deps providers.Deps) (*SpeechStrategy, error) {
	code, err := locale.Resolve(language)
	if err != nil {
		return nil, err
	}
	if len(Genders(code)) == 0 {
		return nil, fmt.Errorf("no voice for %s: %w", code, locale.ErrUnsupported)
	}
	return &SpeechStrategy{
		Fields:    core.Fields{Sources: sources, Targets: []string{target}},
		Locale:    code,
		SpeechURL: DefaultSpeechURL,
		client:    client,
		deps:      deps.WithDefaults(),
		pick:      rand.IntN,
	}, nil
}

func (s *SpeechStrategy) Update(ctx context.Context, n core.Note) (bool, error) {
	_, query, ok := core.FirstQuery(n, s.Sources, sanitize.Query)
	if !ok {
		return false, nil
	}
	if s.Locale == locale.Japanese {
		query = strings.TrimSpace(japanesePunctuation.ReplaceAllString(query, ""))
		if query == "" {
			return false, nil
		}
	}

	genders := Genders(s.Locale)
	gender := genders[s.pick(len(genders))]
	voice, _ := Voice(s.Locale, gender)

	logger := s.deps.Logger.With("provider", "bing", "note", n.ID())
	staged, err := authorized(ctx, s.client, func(token string) (*media.Staged, error) {
		return s.synthesize(ctx, token, voice, query)
	})
	if err != nil {
		logger.Warn("speech synthesis failed", "query", query, "voice", voice, "error", err)
		return false, nil
	}
	return s.deps.StoreInto(ctx, n, s.Targets[0], staged, providers.SoundTag)
}

func (s *SpeechStrategy) synthesize(ctx context.Context, token, voice, text string) (*media.Staged, error) {
	body, err := SSML(s.Locale, voice, text)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.SpeechURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", OutputFormat)
	req.Header.Set("X-Search-AppID", hexID(AppID))
	req.Header.Set("X-Search-ClientID", hexID(s.client.ClientID))
	req.Header.Set("User-Agent", UserAgent)

	return s.deps.Stager.Fetch(ctx, req, media.Expect{Type: "audio/", Ext: ".mp3"})
}

type ssmlVoice struct {
	Name string `xml:"name,attr"`
	Lang string `xml:"xml:lang,attr"`
	Text string `xml:",chardata"`
}

type ssmlSpeak struct {
	XMLName xml.Name  `xml:"speak"`
	Version string    `xml:"version,attr"`
	Lang    string    `xml:"xml:lang,attr"`
	Voice   ssmlVoice `xml:"voice"`
}

// SSML renders text as a speak document for the given voice.
func SSML(lang, voice, text string) ([]byte, error) {
	doc := ssmlSpeak{
		Version: "1.0",
		Lang:    lang,
		Voice:   ssmlVoice{Name: voice, Lang: lang, Text: text},
	}
	out, err := xml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ssml: %w", err)
	}
	return out, nil
}

func hexID(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")
}
