// Package i18n translates the messages of the xmlkit command itself.
//
// Catalogues are embedded from locales/{lang}/LC_MESSAGES/xmlkit.po and
// read with gotext. Call Init once at startup; T and N pass the message
// through until then.
package i18n

import (
	"embed"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

// locales holds locales/{lang}/LC_MESSAGES/xmlkit.po.
//
//go:embed all:locales
var locales embed.FS

const domain = "xmlkit"

// loc is nil until Init.
var loc *gotext.Locale

// Init loads the catalogue of lang, or of the language named by
// LANGUAGE, LC_ALL, LC_MESSAGES or LANG when lang is empty.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}

	loc = gotext.NewLocaleFSWithPath(lang, locales, "locales")
	loc.AddDomain(domain)
	loc.SetDomain(domain)
}

// T translates msgid, returning it unchanged when there is no translation.
func T(msgid string) string {
	if loc == nil {
		return msgid
	}
	return loc.Get(msgid)
}

// N translates a message with plural forms.
func N(singular, plural string, n int) string {
	if loc == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return loc.GetN(singular, plural, n)
}

// detectLanguage follows the GNU gettext order of precedence.
func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		if val := os.Getenv(env); val != "" {
			if env == "LANGUAGE" {
				parts := strings.SplitN(val, ":", 2)
				val = parts[0]
			}
			// ru_RU.UTF-8 -> ru_RU
			if idx := strings.IndexByte(val, '.'); idx >= 0 {
				val = val[:idx]
			}
			if val == "C" || val == "POSIX" || val == "" {
				continue
			}
			return val
		}
	}
	return "en"
}
