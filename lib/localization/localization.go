package localization

import (
	"embed"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

type LocalizationService struct {
	bundle *i18n.Bundle
}

var (
	globalService *LocalizationService
	once          sync.Once
)

// NewLocalizationService returns the process wide service holding every
// embedded locale. English is the fallback language.
func NewLocalizationService() *LocalizationService {
	once.Do(func() {
		bundle := i18n.NewBundle(language.English)
		bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

		entries, err := localeFS.ReadDir("locales")
		if err != nil {
			slog.Error("can't list embedded locales", "err", err)
		}

		for _, entry := range entries {
			if entry.IsDir() || entry.Name() == "manifest.json" || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}

			if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+entry.Name()); err != nil {
				slog.Error("can't load locale", "file", entry.Name(), "err", err)
			}
		}

		globalService = &LocalizationService{bundle: bundle}
	})

	return globalService
}

// Languages returns the tags of every loaded locale.
func (ls *LocalizationService) Languages() []language.Tag {
	return ls.bundle.LanguageTags()
}

// GetLocalizer returns a localizer for the given languages, most preferred
// first, falling back to English.
func (ls *LocalizationService) GetLocalizer(langs ...string) *SimpleLocalizer {
	return &SimpleLocalizer{Localizer: i18n.NewLocalizer(ls.bundle, append(langs, "en")...)}
}

// LanguageFromEnv picks the user's language from the usual POSIX locale
// variables. It returns "" when none of them names a language.
func LanguageFromEnv() string {
	for _, name := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(name)
		if val == "" || val == "C" || val == "POSIX" {
			continue
		}

		// de_DE.UTF-8@euro -> de-DE
		val, _, _ = strings.Cut(val, ".")
		val, _, _ = strings.Cut(val, "@")
		val = strings.ReplaceAll(val, "_", "-")

		tag, err := language.Parse(val)
		if err != nil {
			continue
		}

		return tag.String()
	}

	return ""
}

// SimpleLocalizer wraps i18n.Localizer with a more convenient API
type SimpleLocalizer struct {
	Localizer *i18n.Localizer
}

// T provides a concise way to localize messages
func (sl *SimpleLocalizer) T(messageID string) string {
	return sl.Localizer.MustLocalize(&i18n.LocalizeConfig{MessageID: messageID})
}

// TData localizes a message that has template fields.
func (sl *SimpleLocalizer) TData(messageID string, data map[string]any) string {
	return sl.Localizer.MustLocalize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
}
