// Package language holds the supported-language catalog and source-language
// detection for translation requests.
package language

import (
	"fmt"
	"strings"

	"github.com/abadojack/whatlanggo"
	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Auto is the sentinel source code meaning "detect from extracted text".
const Auto = "auto"

// codes lists the supported ISO 639-1 codes in catalog order.
var codes = []string{"en", "ru", "es", "fr", "de", "it", "pt", "ja", "ko", "zh", "ar", "hi"}

var supported = func() map[string]bool {
	m := make(map[string]bool, len(codes))
	for _, c := range codes {
		m[c] = true
	}
	return m
}()

var namer = display.Tags(xlang.English)

// Language is one catalog entry.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Catalog returns the supported languages in stable order.
func Catalog() []Language {
	out := make([]Language, len(codes))
	for i, c := range codes {
		out[i] = Language{Code: c, Name: DisplayName(c)}
	}
	return out
}

// IsSupported reports whether code is in the catalog. Auto is not a catalog
// entry; callers allow it explicitly where detection applies.
func IsSupported(code string) bool {
	return supported[code]
}

// Normalize lowercases and validates a request language code. Auto passes
// through for callers that accept it.
func Normalize(code string) (string, error) {
	c := strings.ToLower(strings.TrimSpace(code))
	if c == "" {
		return "", fmt.Errorf("language code is empty")
	}
	if c == Auto {
		return Auto, nil
	}
	if !IsSupported(c) {
		return "", fmt.Errorf("unsupported language code %q", code)
	}
	return c, nil
}

// DisplayName returns the English name for a catalog code, used in prompts
// and the language listing.
func DisplayName(code string) string {
	if code == Auto {
		return "Auto"
	}
	name := namer.Name(xlang.Make(code))
	if name == "" {
		return code
	}
	return name
}

// DetectCode guesses the catalog code of the given texts by majority vote,
// one vote per non-empty text. Returns false when nothing usable is
// detected. Ties resolve in catalog order so detection stays deterministic.
func DetectCode(texts ...string) (string, bool) {
	counts := make(map[string]int)
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		code := whatlanggo.DetectLang(t).Iso6391()
		if !IsSupported(code) {
			continue
		}
		counts[code]++
	}

	var top string
	var topCount int
	for _, code := range codes {
		if counts[code] > topCount {
			top = code
			topCount = counts[code]
		}
	}
	if topCount == 0 {
		return "", false
	}
	return top, true
}
