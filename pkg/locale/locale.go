// Package locale maps language names to the locale codes speech and search
// providers expect.
package locale

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnsupported is returned for a language with no known locale.
var ErrUnsupported = errors.New("unsupported language")

// Japanese is the locale with provider-specific text normalization.
const Japanese = "ja-JP"

var languages = map[string]string{
	"catalan":                 "ca-ES",
	"chinese":                 "zh-CN",
	"chinese (china)":         "zh-CN",
	"chinese (hong kong)":     "zh-HK",
	"chinese (taiwan)":        "zh-TW",
	"danish":                  "da-DK",
	"dutch":                   "nl-NL",
	"english":                 "en-GB",
	"english (australia)":     "en-AU",
	"english (canada)":        "en-CA",
	"english (great britain)": "en-GB",
	"english (india)":         "en-IN",
	"english (united states)": "en-US",
	"finnish":                 "fi-FI",
	"french":                  "fr-FR",
	"french (canada)":         "fr-CA",
	"french (france)":         "fr-FR",
	"german":                  "de-DE",
	"italian":                 "it-IT",
	"japanese":                "ja-JP",
	"korean":                  "ko-KR",
	"norwegian":               "nb-NO",
	"polish":                  "pl-PL",
	"portuguese":              "pt-PT",
	"portuguese (brazil)":     "pt-BR",
	"portuguese (portugal)":   "pt-PT",
	"russian":                 "ru-RU",
	"spanish":                 "es-ES",
	"spanish (mexico)":        "es-MX",
	"spanish (spain)":         "es-ES",
	"swedish (sweden)":        "sv-SE",
}

// Resolve accepts either an English language name ("Japanese",
// "French (Canada)") or a locale code in any case ("ja-jp") and returns the
// canonical code ("ja-JP").
func Resolve(language string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(language))
	if code, ok := languages[key]; ok {
		return code, nil
	}
	for _, code := range languages {
		if strings.EqualFold(code, key) {
			return code, nil
		}
	}
	return "", fmt.Errorf("%q: %w", language, ErrUnsupported)
}

// Codes returns every supported locale code, sorted.
func Codes() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, code := range languages {
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
