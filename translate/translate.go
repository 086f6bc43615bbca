// Package translate formats user visible messages (mostly error strings)
// through a printer matched against the locales of the running user.
// Keys are en-US Sprintf formats.
package translate

import (
	"log"

	"github.com/jeandeaual/go-locale"
	"golang.org/x/text/message"
)

var printer *message.Printer

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("chip8: locale: %v", err)
	}

	if len(locales) == 0 {
		locales = []string{"en-US"}
	}

	printer = message.NewPrinter(message.MatchLanguage(locales...))
}

// From formats the en-US Sprintf() style key with args and returns the
// translated string.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}
