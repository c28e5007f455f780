// Package config loads the ankihorse configuration of a vault.
//
// The configuration lives in <vault>/ankihorse.yaml. It declares the vault
// layout, the addons to register, and provider settings grouped by section
// and option (API keys, endpoints). Secrets are best kept out of the file:
// a .env file next to it is loaded into the environment, and every provider
// option can be overridden by ANKIHORSE_<SECTION>_<OPTION>.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// FileName is the configuration file inside the vault.
	FileName = "ankihorse.yaml"
	// EnvFile holds secrets loaded into the environment.
	EnvFile = ".env"
	// EnvPrefix prefixes environment overrides of provider options.
	EnvPrefix = "ANKIHORSE"
)

// Strategy names accepted in Addon.Strategy.
const (
	StrategyGoogleImage = "google-image"
	StrategyBingImage   = "bing-image"
	StrategyBingSpeech  = "bing-speech"
	StrategyVoiceRSS    = "voicerss"
	StrategyOpenAI      = "openai-speech"
	StrategyExamples    = "japanese-examples"
	StrategyCopy        = "copy"
	StrategyNoop        = "noop"
)

// Strategies lists every known strategy name.
var Strategies = []string{
	StrategyGoogleImage,
	StrategyBingImage,
	StrategyBingSpeech,
	StrategyVoiceRSS,
	StrategyOpenAI,
	StrategyExamples,
	StrategyCopy,
	StrategyNoop,
}

// Provider sections and options.
const (
	SectionGoogle    = "google"
	SectionCognitive = "cognitive services"
	SectionVoiceRSS  = "voicerss"
	SectionOpenAI    = "openai"

	OptionAPIKey       = "api key"
	OptionCX           = "cx"
	OptionSpeechKey    = "bing speech api key"
	OptionSearchKey    = "bing search api key"
	OptionBaseURL      = "base url"
	OptionInstructions = "instructions"
)

var (
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrInvalidAddon    = errors.New("invalid addon")
)

// Config represents the root configuration structure.
type Config struct {
	Vault     VaultConfig                  `yaml:"vault"`
	Addons    []Addon                      `yaml:"addons"`
	Providers map[string]map[string]string `yaml:"providers,omitempty"`

	path string
}

// VaultConfig describes the layout of the vault.
type VaultConfig struct {
	// Pattern selects note files (doublestar syntax). Defaults to every file.
	Pattern  string `yaml:"pattern,omitempty"`
	MediaDir string `yaml:"media_dir,omitempty"`
	// Git records every batch run as a commit.
	Git bool `yaml:"git,omitempty"`
}

// Addon declares one coordinator: a named strategy bound to source and
// target fields, optionally restricted to templates whose name contains
// ModelNameSubstring.
type Addon struct {
	Name               string   `yaml:"name"`
	Strategy           string   `yaml:"strategy"`
	SourceFields       []string `yaml:"source_fields"`
	TargetFields       []string `yaml:"target_fields"`
	ModelNameSubstring string   `yaml:"model_name_substring,omitempty"`
	// OnFocusLost routes field edits to the addon. Defaults to true.
	OnFocusLost *bool `yaml:"on_focus_lost,omitempty"`

	// Language is a language name or code for speech and image search.
	Language string `yaml:"language,omitempty"`
	// Voice and Model select the OpenAI speech voice and model.
	Voice string `yaml:"voice,omitempty"`
	Model string `yaml:"model,omitempty"`
	// Corpus is the example sentence file, relative to the vault.
	Corpus string `yaml:"corpus,omitempty"`
	// Weighted prefers mid-length example sentences. Defaults to true.
	Weighted *bool `yaml:"weighted,omitempty"`
	// Value is written by the copy strategy; "{query}" expands to the source text.
	Value string `yaml:"value,omitempty"`
}

// FieldBlur reports whether the addon reacts to field edits.
func (a Addon) FieldBlur() bool {
	return a.OnFocusLost == nil || *a.OnFocusLost
}

// IsWeighted reports whether weighted example sampling is enabled.
func (a Addon) IsWeighted() bool {
	return a.Weighted == nil || *a.Weighted
}

// Load reads the configuration of the vault at dir and loads dir/.env into
// the environment without overriding variables already set. A missing
// configuration file yields an empty configuration.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	cfg := &Config{path: path}

	if err := loadEnv(filepath.Join(dir, EnvFile)); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func loadEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Path is the file the configuration was loaded from.
func (c *Config) Path() string { return c.path }

// SetPath changes where Save writes.
func (c *Config) SetPath(path string) { c.path = path }

// Validate checks addon names and strategies.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Addons))
	var errs []error
	for i, a := range c.Addons {
		switch {
		case a.Name == "":
			errs = append(errs, fmt.Errorf("%w: addon %d has no name", ErrInvalidAddon, i))
		case seen[a.Name]:
			errs = append(errs, fmt.Errorf("%w: duplicate addon %q", ErrInvalidAddon, a.Name))
		}
		seen[a.Name] = true

		if !known(a.Strategy) {
			errs = append(errs, fmt.Errorf("addon %q: %w %q", a.Name, ErrUnknownStrategy, a.Strategy))
		}
	}
	return errors.Join(errs...)
}

func known(strategy string) bool {
	for _, s := range Strategies {
		if s == strategy {
			return true
		}
	}
	return false
}

// Addon returns the addon called name.
func (c *Config) Addon(name string) (Addon, bool) {
	for _, a := range c.Addons {
		if a.Name == name {
			return a, true
		}
	}
	return Addon{}, false
}

// Get returns a provider option. The environment variable
// ANKIHORSE_<SECTION>_<OPTION> takes precedence over the file.
func (c *Config) Get(section, option string) (string, bool) {
	if v, ok := os.LookupEnv(EnvKey(section, option)); ok && v != "" {
		return v, true
	}
	v, ok := c.Providers[section][option]
	return v, ok && v != ""
}

// Set stores a provider option in the file configuration.
func (c *Config) Set(section, option, value string) {
	if c.Providers == nil {
		c.Providers = make(map[string]map[string]string)
	}
	if c.Providers[section] == nil {
		c.Providers[section] = make(map[string]string)
	}
	c.Providers[section][option] = value
}

// Save writes the configuration back to its file. The file may hold API
// keys and is written readable by the owner only.
func (c *Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("config has no path")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}

// EnvKey is the environment variable overriding a provider option,
// e.g. ANKIHORSE_COGNITIVE_SERVICES_BING_SPEECH_API_KEY.
func EnvKey(section, option string) string {
	r := strings.NewReplacer(" ", "_", "-", "_", ".", "_")
	return strings.ToUpper(EnvPrefix + "_" + r.Replace(section) + "_" + r.Replace(option))
}

// Default returns the starter configuration written by `ankihorse init`:
// picture and voice addons for Japanese templates.
func Default() *Config {
	return &Config{
		Vault: VaultConfig{Pattern: "**/*"},
		Addons: []Addon{
			{
				Name:               "Japanese Autopicture",
				Strategy:           StrategyGoogleImage,
				SourceFields:       []string{"Expression", "Kanji", "Kana"},
				TargetFields:       []string{"Picture"},
				ModelNameSubstring: "japanese",
			},
			{
				Name:               "Japanese Autovoice",
				Strategy:           StrategyBingSpeech,
				Language:           "japanese",
				SourceFields:       []string{"Pronunciation", "Expression", "Kanji", "Kana"},
				TargetFields:       []string{"Voice"},
				ModelNameSubstring: "japanese",
			},
		},
		Providers: map[string]map[string]string{
			SectionGoogle:    {OptionAPIKey: "", OptionCX: ""},
			SectionCognitive: {OptionSpeechKey: ""},
		},
	}
}
