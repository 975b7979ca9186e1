package i18n

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/message"

	"todoblock/internal/apperr"
	"todoblock/internal/model"
)

// Localizer resolves message keys for one locale.
type Localizer struct {
	bundle  *Bundle
	locale  string
	printer *message.Printer
}

// Locale is the negotiated locale name.
func (l *Localizer) Locale() string { return l.locale }

// String returns the message for key. Unknown keys render as [[key]].
func (l *Localizer) String(key string) string {
	if v, ok := l.bundle.Message(l.locale, key); ok {
		return v
	}
	return "[[" + key + "]]"
}

// Sprintf formats the message for key with args using the locale's printer.
func (l *Localizer) Sprintf(key string, args ...any) string {
	if _, ok := l.bundle.Message(l.locale, key); !ok {
		return l.String(key)
	}
	return l.printer.Sprintf(key, args...)
}

// Strings resolves several keys at once, keyed by the requested key.
func (l *Localizer) Strings(keys ...string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		out[k] = l.String(k)
	}
	return out
}

func (l *Localizer) GeneralLabel() string { return l.String("general") }

// DateLabel renders t with the locale's "layout.duedate" pattern. The pattern
// names its parts as {weekday}, {day}, {month} and {monthnum}; weekday and
// month names come from the weekday.N (0 = Sunday) and month.N keys.
func (l *Localizer) DateLabel(t time.Time) string {
	layout, ok := l.bundle.Message(l.locale, "layout.duedate")
	if !ok || strings.TrimSpace(layout) == "" {
		layout = "{weekday}, {day} {month}"
	}
	return strings.NewReplacer(
		"{weekday}", l.String(fmt.Sprintf("weekday.%d", int(t.Weekday()))),
		"{day}", strconv.Itoa(t.Day()),
		"{month}", l.String(fmt.Sprintf("month.%d", int(t.Month()))),
		"{monthnum}", strconv.Itoa(int(t.Month())),
	).Replace(layout)
}

func (l *Localizer) GroupLabel(g model.GroupID) string {
	return l.String(fmt.Sprintf("showgroup%d", int(g)))
}

// ErrorMessage maps err to a user-facing message in this locale.
func (l *Localizer) ErrorMessage(err error) string {
	code := apperr.CodeOf(err)
	if code == "" {
		return ""
	}
	return l.String(code.MessageKey())
}
