package i18n

import (
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinTranslations(t *testing.T) {
	assert.Equal(t, "Invalid username or password", T("en", "InvalidCredentials"))
	assert.Equal(t, "Échec de la connexion", T("fr", "LoginFailed"))
}

func TestT_Fallbacks(t *testing.T) {
	assert.Equal(t, "Login failed", T("de", "LoginFailed"), "unknown language falls back to English")
	assert.Equal(t, "NoSuchKey", T("fr", "NoSuchKey"), "unknown key falls back to the key")
}

func TestDetectLanguage(t *testing.T) {
	tests := map[string]string{
		"":                          "en",
		"fr-CH, fr;q=0.9, en;q=0.8": "fr",
		"de-DE, de;q=0.9":           "en",
		"de;q=0.9, FR;q=0.5":        "fr",
		"en-US,en;q=0.9,fr;q=0.8":   "en",
	}
	for header, want := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		if header != "" {
			r.Header.Set("Accept-Language", header)
		}
		assert.Equal(t, want, DetectLanguage(r), header)
	}
}

func TestLoadTranslations(t *testing.T) {
	t.Cleanup(func() { require.NoError(t, LoadTranslations(builtin, "locales")) })

	fsys := fstest.MapFS{
		"tr/en.json": {Data: []byte(`{"LoginFailed": "Nope"}`)},
		"tr/fr.json": {Data: []byte(`{"LoginFailed": "Non"}`)},
	}
	require.NoError(t, LoadTranslations(fsys, "tr"))
	assert.Equal(t, "Nope", T("en", "LoginFailed"))
	assert.Equal(t, "Non", T("fr", "LoginFailed"))

	assert.Error(t, LoadTranslations(fstest.MapFS{}, "tr"))
	bad := fstest.MapFS{
		"tr/en.json": {Data: []byte(`{`)},
		"tr/fr.json": {Data: []byte(`{}`)},
	}
	assert.Error(t, LoadTranslations(bad, "tr"))
}
