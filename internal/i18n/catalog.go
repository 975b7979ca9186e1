// Package i18n is the string lookup used by the renderers: locale catalogs are
// embedded TOML files registered into an x/text message catalog.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// BaseLocale is the canonical source locale; every key must exist in it.
const BaseLocale = "en-US"

type catalogFile struct {
	Locale   string            `toml:"locale"`
	Messages map[string]string `toml:"messages"`
}

// Bundle holds every loaded locale.
type Bundle struct {
	locales map[string]map[string]string
	tags    []language.Tag
	names   []string
	matcher language.Matcher
	builder *catalog.Builder
}

//go:embed locales/*.toml
var embeddedFS embed.FS

var (
	defaultOnce   sync.Once
	defaultBundle *Bundle
	defaultErr    error
)

// Default returns the bundle built from the embedded catalogs.
func Default() (*Bundle, error) {
	defaultOnce.Do(func() {
		defaultBundle, defaultErr = LoadFromFS(embeddedFS)
	})
	return defaultBundle, defaultErr
}

// LoadFromFS loads locales/*.toml from fsys.
func LoadFromFS(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "locales/*.toml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	b := &Bundle{locales: map[string]map[string]string{}}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var f catalogFile
		if _, err := toml.Decode(string(data), &f); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if err := b.add(p, f); err != nil {
			return nil, err
		}
	}
	if _, ok := b.locales[BaseLocale]; !ok {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	if err := b.register(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bundle) add(p string, f catalogFile) error {
	locale := strings.TrimSpace(f.Locale)
	fromPath := strings.TrimSuffix(path.Base(p), path.Ext(p))
	if locale == "" {
		return fmt.Errorf("catalog %s: locale is required", p)
	}
	if locale != fromPath {
		return fmt.Errorf("catalog %s: locale %q must match file name %q", p, locale, fromPath)
	}
	if len(f.Messages) == 0 {
		return fmt.Errorf("catalog %s: messages table is required", p)
	}
	if _, exists := b.locales[locale]; exists {
		return fmt.Errorf("catalog %s: locale %q already defined", p, locale)
	}
	msgs := make(map[string]string, len(f.Messages))
	for k, v := range f.Messages {
		k = strings.TrimSpace(k)
		if k == "" {
			return fmt.Errorf("catalog %s: message key cannot be blank", p)
		}
		msgs[k] = v
	}
	b.locales[locale] = msgs
	return nil
}

func (b *Bundle) register() error {
	base := language.MustParse(BaseLocale)
	b.builder = catalog.NewBuilder(catalog.Fallback(base))

	// The base locale goes first so the matcher falls back to it.
	b.names = []string{BaseLocale}
	for name := range b.locales {
		if name != BaseLocale {
			b.names = append(b.names, name)
		}
	}
	sort.Strings(b.names[1:])

	for _, name := range b.names {
		tag, err := language.Parse(name)
		if err != nil {
			return fmt.Errorf("parse locale tag %q: %w", name, err)
		}
		b.tags = append(b.tags, tag)

		msgs := b.locales[name]
		keys := make([]string, 0, len(msgs))
		for k := range msgs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := b.builder.SetString(tag, k, msgs[k]); err != nil {
				return fmt.Errorf("register %s/%s: %w", name, k, err)
			}
		}
	}
	b.matcher = language.NewMatcher(b.tags)
	return nil
}

// Locales returns the loaded locale names, base locale first.
func (b *Bundle) Locales() []string {
	return append([]string(nil), b.names...)
}

// Message returns one message with base-locale fallback.
func (b *Bundle) Message(locale, key string) (string, bool) {
	key = strings.TrimSpace(key)
	if msgs, ok := b.locales[strings.TrimSpace(locale)]; ok {
		if v, ok := msgs[key]; ok {
			return v, true
		}
	}
	v, ok := b.locales[BaseLocale][key]
	return v, ok
}

// Match negotiates the best loaded locale for an Accept-Language style list.
func (b *Bundle) Match(preferred ...string) string {
	var want []language.Tag
	for _, p := range preferred {
		tags, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		want = append(want, tags...)
	}
	if len(want) == 0 {
		return BaseLocale
	}
	_, idx, conf := b.matcher.Match(want...)
	if conf == language.No {
		return BaseLocale
	}
	return b.names[idx]
}

// Localizer returns string lookup for the best match of locale.
func (b *Bundle) Localizer(locale string) *Localizer {
	name := b.Match(locale)
	tag := language.MustParse(name)
	return &Localizer{
		bundle:  b,
		locale:  name,
		printer: message.NewPrinter(tag, message.Catalog(b.builder)),
	}
}
