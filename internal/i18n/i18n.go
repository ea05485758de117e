// Package i18n holds the reply catalog in the supported languages.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

// Key names one reply template.
type Key string

// Default is used when a language or a key is missing.
const Default = "en"

var supported = []language.Tag{language.English, language.Spanish, language.French, language.Portuguese}

var matcher = language.NewMatcher(supported)

var names = map[string]string{
	"english": "en", "inglés": "en", "ingles": "en", "anglais": "en", "inglês": "en",
	"spanish": "es", "español": "es", "espanol": "es", "espagnol": "es", "espanhol": "es",
	"french": "fr", "français": "fr", "francais": "fr", "francés": "fr", "francês": "fr",
	"portuguese": "pt", "português": "pt", "portugues": "pt", "portugais": "pt", "portugués": "pt",
}

// Supported lists the language codes with a catalog.
func Supported() []string {
	out := make([]string, 0, len(supported))
	for _, tag := range supported {
		base, _ := tag.Base()
		out = append(out, base.String())
	}
	return out
}

// Match resolves a language name or BCP 47 tag ("es", "pt-BR", "French")
// to a supported code.
func Match(input string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(input))
	if s == "" {
		return "", false
	}
	if code, ok := names[s]; ok {
		return code, true
	}
	tag, err := language.Parse(s)
	if err != nil {
		return "", false
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return "", false
	}
	base, _ := supported[idx].Base()
	return base.String(), true
}

// T renders key in lang. args are name/value pairs substituted for {name}.
func T(lang string, key Key, args ...string) string {
	tmpl, ok := catalogs[lang][key]
	if !ok {
		tmpl = catalogs[Default][key]
	}
	if len(args) < 2 {
		return tmpl
	}
	pairs := make([]string, 0, len(args))
	for i := 0; i+1 < len(args); i += 2 {
		pairs = append(pairs, "{"+args[i]+"}", args[i+1])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
