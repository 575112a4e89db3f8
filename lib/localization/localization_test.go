package localization

import (
	"encoding/json"
	"maps"
	"slices"
	"testing"
)

func TestLocalizationService(t *testing.T) {
	service := NewLocalizationService()

	for _, tt := range []struct {
		lang string
		want string
	}{
		{lang: "en", want: "The realm \"device\" needs you to authenticate."},
		{lang: "de", want: "Der Bereich \"device\" verlangt eine Anmeldung."},
		{lang: "de-AT", want: "Der Bereich \"device\" verlangt eine Anmeldung."},
		{lang: "fr", want: "Le domaine \"device\" demande une authentification."},
		{lang: "tlh", want: "The realm \"device\" needs you to authenticate."},
	} {
		t.Run(tt.lang, func(t *testing.T) {
			got := service.GetLocalizer(tt.lang).TData("prompt_challenge", map[string]any{"Realm": "device"})
			if got != tt.want {
				t.Logf("want: %s", tt.want)
				t.Logf("got:  %s", got)
				t.Error("wrong translation")
			}
		})
	}
}

type manifest struct {
	SupportedLanguages []string `json:"supported_languages"`
}

func loadJSON(t *testing.T, name string, v any) {
	t.Helper()

	fin, err := localeFS.Open("locales/" + name)
	if err != nil {
		t.Fatal(err)
	}
	defer fin.Close()

	if err := json.NewDecoder(fin).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func TestComprehensiveTranslations(t *testing.T) {
	var english map[string]string
	loadJSON(t, "en.json", &english)

	keys := slices.Sorted(maps.Keys(english))

	var m manifest
	loadJSON(t, "manifest.json", &m)

	if len(NewLocalizationService().Languages()) != len(m.SupportedLanguages) {
		t.Errorf("loaded %d languages, manifest lists %d", len(NewLocalizationService().Languages()), len(m.SupportedLanguages))
	}

	for _, lang := range m.SupportedLanguages {
		t.Run(lang, func(t *testing.T) {
			var translations map[string]string
			loadJSON(t, lang+".json", &translations)

			for _, key := range keys {
				if translations[key] == "" {
					t.Errorf("key %q not defined", key)
				}
			}

			for key := range translations {
				if _, ok := english[key]; !ok {
					t.Errorf("key %q is not in en.json", key)
				}
			}
		})
	}
}

func TestLanguageFromEnv(t *testing.T) {
	for _, tt := range []struct {
		name                    string
		lcAll, lcMessages, lang string
		want                    string
	}{
		{name: "nothing set"},
		{name: "posix locale", lang: "C"},
		{name: "LANG with encoding", lang: "de_DE.UTF-8", want: "de-DE"},
		{name: "LC_ALL wins", lcAll: "fr_FR", lang: "de_DE.UTF-8", want: "fr-FR"},
		{name: "LC_MESSAGES before LANG", lcMessages: "fr", lang: "de", want: "fr"},
		{name: "modifier", lang: "de_DE@euro", want: "de-DE"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LC_ALL", tt.lcAll)
			t.Setenv("LC_MESSAGES", tt.lcMessages)
			t.Setenv("LANG", tt.lang)

			if got := LanguageFromEnv(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
