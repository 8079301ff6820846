// internal/i18n/i18n.go
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
)

//go:embed locales/*.json
var localeFS embed.FS

// Bundle holds the message catalogs, one per locale file. It is read-only
// once loaded.
type Bundle struct {
	catalogs    map[string]map[string]string
	defaultLang string
}

var (
	bundle *Bundle
	once   sync.Once
)

// Initialize loads the embedded locales. Only the first call has any effect.
func Initialize(defaultLang string) error {
	var err error
	once.Do(func() {
		bundle, err = Load(localeFS, "locales", defaultLang)
	})
	return err
}

// Load reads every <lang>.json under dir into a new Bundle.
func Load(fsys fs.FS, dir, defaultLang string) (*Bundle, error) {
	if defaultLang == "" {
		defaultLang = "en"
	}
	files, err := fs.Glob(fsys, path.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list locales: %w", err)
	}

	b := &Bundle{catalogs: make(map[string]map[string]string, len(files)), defaultLang: defaultLang}
	for _, file := range files {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", file, err)
		}
		var catalog map[string]string
		if err := json.Unmarshal(data, &catalog); err != nil {
			return nil, fmt.Errorf("decode locale %s: %w", file, err)
		}
		b.catalogs[strings.TrimSuffix(path.Base(file), ".json")] = catalog
	}
	if _, ok := b.catalogs[defaultLang]; !ok {
		return nil, fmt.Errorf("no catalog for default language %q", defaultLang)
	}
	return b, nil
}

// T looks key up in lang, then in the default language. Unknown keys are
// returned as is.
func (b *Bundle) T(lang, key string, args ...interface{}) string {
	text, ok := b.catalogs[lang][key]
	if !ok {
		text, ok = b.catalogs[b.defaultLang][key]
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return text
	}
	return fmt.Sprintf(text, args...)
}

func (b *Bundle) Languages() []string {
	langs := make([]string, 0, len(b.catalogs))
	for lang := range b.catalogs {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

func T(lang, key string, args ...interface{}) string {
	if bundle == nil {
		return key
	}
	return bundle.T(lang, key, args...)
}

// DefaultLanguage is the fallback locale, "en" before Initialize.
func DefaultLanguage() string {
	if bundle == nil {
		return "en"
	}
	return bundle.defaultLang
}

func IsSupported(lang string) bool {
	if bundle == nil {
		return lang == "en"
	}
	_, ok := bundle.catalogs[lang]
	return ok
}

// Languages lists the loaded locales.
func Languages() []string {
	if bundle == nil {
		return nil
	}
	return bundle.Languages()
}
