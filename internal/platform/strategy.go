package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/ankihorse/pkg/config"
	"github.com/aretw0/ankihorse/pkg/core"
	"github.com/aretw0/ankihorse/pkg/providers"
	"github.com/aretw0/ankihorse/pkg/providers/bing"
	"github.com/aretw0/ankihorse/pkg/providers/examples"
	"github.com/aretw0/ankihorse/pkg/providers/google"
	"github.com/aretw0/ankihorse/pkg/providers/openai"
	"github.com/aretw0/ankihorse/pkg/providers/voicerss"
	"github.com/aretw0/ankihorse/pkg/sanitize"
)

// ErrMissingOption is returned when a provider option such as an API key is
// neither configured nor set in the environment.
var ErrMissingOption = errors.New("missing provider option")

// strategyBuilder creates the strategies of one vault. Bing clients are
// shared between addons using the same subscription key so tokens are
// reused.
type strategyBuilder struct {
	cfg   *config.Config
	root  string
	deps  providers.Deps
	bing  map[string]*bing.Client
	corpi map[string]*examples.Corpus
}

func newStrategyBuilder(cfg *config.Config, root string, deps providers.Deps) *strategyBuilder {
	return &strategyBuilder{
		cfg:   cfg,
		root:  root,
		deps:  deps.WithDefaults(),
		bing:  make(map[string]*bing.Client),
		corpi: make(map[string]*examples.Corpus),
	}
}

// Build creates the strategy declared by a.
func (b *strategyBuilder) Build(a config.Addon) (core.Strategy, error) {
	switch a.Strategy {
	case config.StrategyGoogleImage:
		target, err := single(a)
		if err != nil {
			return nil, err
		}
		key, err := b.option(config.SectionGoogle, config.OptionAPIKey)
		if err != nil {
			return nil, err
		}
		cx, err := b.option(config.SectionGoogle, config.OptionCX)
		if err != nil {
			return nil, err
		}
		return google.NewImageStrategy(a.SourceFields, target, key, cx, b.deps), nil

	case config.StrategyBingImage:
		target, err := single(a)
		if err != nil {
			return nil, err
		}
		key, err := b.option(config.SectionCognitive, config.OptionSearchKey)
		if err != nil {
			return nil, err
		}
		return bing.NewImageStrategy(a.SourceFields, target, a.Language, key, b.deps)

	case config.StrategyBingSpeech:
		target, err := single(a)
		if err != nil {
			return nil, err
		}
		key, err := b.option(config.SectionCognitive, config.OptionSpeechKey)
		if err != nil {
			return nil, err
		}
		client, ok := b.bing[key]
		if !ok {
			client = bing.NewClient(key, b.deps.Client)
			b.bing[key] = client
		}
		return bing.NewSpeechStrategy(a.SourceFields, target, a.Language, client, b.deps)

	case config.StrategyVoiceRSS:
		target, err := single(a)
		if err != nil {
			return nil, err
		}
		key, err := b.option(config.SectionVoiceRSS, config.OptionAPIKey)
		if err != nil {
			return nil, err
		}
		return voicerss.New(a.SourceFields, target, a.Language, key, b.deps)

	case config.StrategyOpenAI:
		target, err := single(a)
		if err != nil {
			return nil, err
		}
		key, ok := b.cfg.Get(config.SectionOpenAI, config.OptionAPIKey)
		if !ok && os.Getenv(openai.EnvAPIKey) == "" {
			return nil, fmt.Errorf("%w: %s %q (or %s)", ErrMissingOption, config.SectionOpenAI, config.OptionAPIKey, openai.EnvAPIKey)
		}
		baseURL, _ := b.cfg.Get(config.SectionOpenAI, config.OptionBaseURL)
		instructions, _ := b.cfg.Get(config.SectionOpenAI, config.OptionInstructions)
		return openai.NewSpeechStrategy(a.SourceFields, target, openai.Config{
			APIKey:       key,
			BaseURL:      baseURL,
			Model:        a.Model,
			Voice:        a.Voice,
			Instructions: instructions,
		}, b.deps), nil

	case config.StrategyExamples:
		corpus, err := b.corpus(a.Corpus)
		if err != nil {
			return nil, err
		}
		return examples.New(a.SourceFields, a.TargetFields, corpus, a.IsWeighted(), b.deps.Logger)

	case config.StrategyCopy:
		s := core.NewStatic(a.SourceFields, a.TargetFields, a.Value)
		s.Clean = sanitize.Query
		return s, nil

	case config.StrategyNoop:
		return core.NewNull(a.SourceFields, a.TargetFields), nil
	}
	return nil, fmt.Errorf("%w %q", config.ErrUnknownStrategy, a.Strategy)
}

func (b *strategyBuilder) option(section, option string) (string, error) {
	v, ok := b.cfg.Get(section, option)
	if !ok {
		return "", fmt.Errorf("%w: %s %q (or %s)", ErrMissingOption, section, option, config.EnvKey(section, option))
	}
	return v, nil
}

// corpus loads an example corpus once per vault. Relative paths are resolved
// against the vault root.
func (b *strategyBuilder) corpus(path string) (*examples.Corpus, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: corpus", config.ErrInvalidAddon)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(b.root, path)
	}
	if c, ok := b.corpi[path]; ok {
		return c, nil
	}
	c, err := examples.LoadCorpus(path, b.deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	b.corpi[path] = c
	return c, nil
}

// single returns the only target field of a media addon.
func single(a config.Addon) (string, error) {
	if len(a.TargetFields) != 1 {
		return "", fmt.Errorf("%w: %s needs exactly one target field, got %d", config.ErrInvalidAddon, a.Strategy, len(a.TargetFields))
	}
	return a.TargetFields[0], nil
}
