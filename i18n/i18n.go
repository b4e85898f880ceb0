package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"sync"
)

//go:embed locales/*.json
var builtin embed.FS

var (
	mu           sync.RWMutex
	translations = make(map[string]map[string]string)
)

var DefaultLang = "en"

var languages = []string{"en", "fr"}

func init() {
	if err := LoadTranslations(builtin, "locales"); err != nil {
		panic(err)
	}
}

// LoadTranslations reads <dir>/<lang>.json for every supported language
// from fsys, replacing the tables loaded so far.
func LoadTranslations(fsys fs.FS, dir string) error {
	loaded := make(map[string]map[string]string, len(languages))
	for _, lang := range languages {
		data, err := fs.ReadFile(fsys, fmt.Sprintf("%s/%s.json", dir, lang))
		if err != nil {
			return err
		}
		var t map[string]string
		if err := json.Unmarshal(data, &t); err != nil {
			return fmt.Errorf("%s translations: %w", lang, err)
		}
		loaded[lang] = t
	}

	mu.Lock()
	translations = loaded
	mu.Unlock()
	return nil
}

func T(lang, key string) string {
	mu.RLock()
	t, ok := translations[lang]
	var val string
	if ok {
		val, ok = t[key]
	}
	mu.RUnlock()
	if ok {
		return val
	}
	// Fallback to English
	if lang != DefaultLang {
		return T(DefaultLang, key)
	}
	return key
}

func DetectLanguage(r *http.Request) string {
	accept := r.Header.Get("Accept-Language")
	if accept == "" {
		return DefaultLang
	}

	mu.RLock()
	defer mu.RUnlock()

	// Example: fr-CH, fr;q=0.9, en;q=0.8, de;q=0.7, *;q=0.5
	for _, part := range strings.Split(accept, ",") {
		lang := strings.TrimSpace(strings.Split(part, ";")[0])
		if len(lang) >= 2 {
			lang = strings.ToLower(lang[:2]) // e.g., "en-US" -> "en"
			if _, ok := translations[lang]; ok {
				return lang
			}
		}
	}
	return DefaultLang
}
