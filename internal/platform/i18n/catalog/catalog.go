// Package catalog loads the game's message catalogs and registers them with
// golang.org/x/text/message.
//
// Catalogs live at locales/<locale>/<namespace>.yaml. Every key is prefixed
// with its file's namespace, and the en-US files define the full key set:
// other locales may omit keys (they fall back to en-US) but may not add any.
package catalog

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the canonical source locale for catalogs.
const BaseLocale = "en-US"

const pattern = "locales/*/*.yaml"

type catalogFile struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

// Bundle holds the messages of every loaded locale.
type Bundle struct {
	messages map[string]map[string]string
	matcher  language.Matcher
	tags     []language.Tag
}

//go:embed locales/*/*.yaml
var embedded embed.FS

var (
	defaultOnce   sync.Once
	defaultBundle *Bundle
	defaultErr    error
)

// Default returns the embedded bundle, loading and registering it on first
// use.
func Default() (*Bundle, error) {
	defaultOnce.Do(func() {
		defaultBundle, defaultErr = LoadEmbedded()
		if defaultErr == nil {
			defaultErr = defaultBundle.Register()
		}
	})
	return defaultBundle, defaultErr
}

// LoadEmbedded loads the catalogs compiled into the binary.
func LoadEmbedded() (*Bundle, error) {
	return LoadFromFS(embedded)
}

// LoadFromFS loads every catalog file under locales/ in fsys.
func LoadFromFS(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, errors.New("no catalog files found")
	}
	sort.Strings(paths)

	b := &Bundle{messages: map[string]map[string]string{}}
	seen := map[string]bool{}
	for _, p := range paths {
		file, err := readFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", p, err)
		}
		if seen[file.Locale+"/"+file.Namespace] {
			return nil, fmt.Errorf("catalog %s: namespace %q defined twice for %s", p, file.Namespace, file.Locale)
		}
		seen[file.Locale+"/"+file.Namespace] = true
		if err := b.add(file); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", p, err)
		}
	}
	if err := b.checkAgainstBase(); err != nil {
		return nil, err
	}
	if err := b.buildMatcher(); err != nil {
		return nil, err
	}
	return b, nil
}

func readFile(fsys fs.FS, p string) (catalogFile, error) {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return catalogFile{}, err
	}
	var file catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return catalogFile{}, errors.New("file is empty")
		}
		return catalogFile{}, fmt.Errorf("decode: %w", err)
	}

	dirLocale := path.Base(path.Dir(p))
	fileNamespace := strings.TrimSuffix(path.Base(p), path.Ext(p))
	switch {
	case file.Locale != dirLocale:
		return catalogFile{}, fmt.Errorf("locale %q must match directory %q", file.Locale, dirLocale)
	case file.Namespace != fileNamespace:
		return catalogFile{}, fmt.Errorf("namespace %q must match file name %q", file.Namespace, fileNamespace)
	case len(file.Messages) == 0:
		return catalogFile{}, errors.New("no messages")
	}
	return file, nil
}

func (b *Bundle) add(file catalogFile) error {
	msgs := b.messages[file.Locale]
	if msgs == nil {
		msgs = map[string]string{}
		b.messages[file.Locale] = msgs
	}
	prefix := file.Namespace + "."
	for key, value := range file.Messages {
		if !strings.HasPrefix(key, prefix) || len(key) == len(prefix) {
			return fmt.Errorf("key %q must start with %q", key, prefix)
		}
		msgs[key] = value
	}
	return nil
}

func (b *Bundle) checkAgainstBase() error {
	base, ok := b.messages[BaseLocale]
	if !ok {
		return fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	for _, locale := range b.Locales() {
		for key := range b.messages[locale] {
			if _, ok := base[key]; !ok {
				return fmt.Errorf("locale %s: key %q is missing from %s", locale, key, BaseLocale)
			}
		}
	}
	return nil
}

// buildMatcher puts the base locale first so unmatched requests fall back to
// it.
func (b *Bundle) buildMatcher() error {
	b.tags = []language.Tag{language.MustParse(BaseLocale)}
	for _, locale := range b.Locales() {
		if locale == BaseLocale {
			continue
		}
		tag, err := language.Parse(locale)
		if err != nil {
			return fmt.Errorf("parse locale tag %q: %w", locale, err)
		}
		b.tags = append(b.tags, tag)
	}
	b.matcher = language.NewMatcher(b.tags)
	return nil
}

// Register adds every message to the x/text default catalog. Keys a locale
// omits are registered with the base text.
func (b *Bundle) Register() error {
	base := b.messages[BaseLocale]
	keys := make([]string, 0, len(base))
	for key := range base {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, tag := range b.tags {
		msgs := b.messages[tag.String()]
		for _, key := range keys {
			value, ok := msgs[key]
			if !ok {
				value = base[key]
			}
			if err := message.SetString(tag, key, value); err != nil {
				return fmt.Errorf("register %s %q: %w", tag, key, err)
			}
		}
	}
	return nil
}

// Tag returns the supported tag closest to locale, or the base locale.
func (b *Bundle) Tag(locale string) language.Tag {
	base := language.MustParse(BaseLocale)
	if b == nil || b.matcher == nil || strings.TrimSpace(locale) == "" {
		return base
	}
	_, index, confidence := b.matcher.Match(language.Make(locale))
	if confidence == language.No {
		return base
	}
	return b.tags[index]
}

// Printer returns a message printer for the supported tag closest to locale.
func (b *Bundle) Printer(locale string) *message.Printer {
	return message.NewPrinter(b.Tag(locale))
}

// Locales returns the loaded locale identifiers, sorted.
func (b *Bundle) Locales() []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.messages))
	for locale := range b.messages {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Missing lists the base keys locale does not translate, sorted.
func (b *Bundle) Missing(locale string) []string {
	if b == nil {
		return nil
	}
	msgs := b.messages[locale]
	var out []string
	for key := range b.messages[BaseLocale] {
		if _, ok := msgs[key]; !ok {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}
