// Package i18n provides message catalogs for the member screens.
//
// Catalogs are embedded YAML files, one per language. Nested keys are
// addressed with dots (e.g. "setting.member.title") and values may contain
// {{name}} placeholders. A missing key translates to the key itself.
package i18n

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// DefaultLang is used when no requested language matches a catalog.
const DefaultLang = "en"

// Params are the interpolation values passed to T.
type Params map[string]any

// Catalog is a flattened set of messages for one language.
type Catalog struct {
	lang     string
	messages map[string]string
}

// Available returns the languages that have an embedded catalog,
// DefaultLang first.
func Available() []string {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return []string{DefaultLang}
	}
	langs := []string{DefaultLang}
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), path.Ext(e.Name()))
		if name != DefaultLang {
			langs = append(langs, name)
		}
	}
	sort.Strings(langs[1:])
	return langs
}

// Match picks the closest available catalog for a user supplied locale such
// as "ja", "ja-JP" or a POSIX value like "ja_JP.UTF-8".
func Match(requested string) string {
	avail := Available()
	requested = normalizeLocale(requested)
	if requested == "" {
		return DefaultLang
	}
	tag, err := language.Parse(requested)
	if err != nil {
		return DefaultLang
	}
	supported := make([]language.Tag, len(avail))
	for i, l := range avail {
		supported[i] = language.Make(l)
	}
	_, idx, conf := language.NewMatcher(supported).Match(tag)
	if conf == language.No {
		return DefaultLang
	}
	return avail[idx]
}

func normalizeLocale(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	if s == "C" || s == "POSIX" {
		return ""
	}
	return strings.ReplaceAll(s, "_", "-")
}

// Load returns the catalog that best matches lang.
func Load(lang string) (*Catalog, error) {
	lang = Match(lang)
	data, err := localeFS.ReadFile("locales/" + lang + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("reading %s catalog: %w", lang, err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("parsing %s catalog: %w", lang, err)
	}
	c := &Catalog{lang: lang, messages: make(map[string]string)}
	flatten("", tree, c.messages)
	return c, nil
}

// MustLoad is Load for callers that only pass languages from Available.
func MustLoad(lang string) *Catalog {
	c, err := Load(lang)
	if err != nil {
		panic(err)
	}
	return c
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = val
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// Lang reports the catalog's language.
func (c *Catalog) Lang() string { return c.lang }

// Has reports whether key exists in the catalog.
func (c *Catalog) Has(key string) bool {
	_, ok := c.messages[key]
	return ok
}

// T translates key, substituting {{name}} placeholders from params.
func (c *Catalog) T(key string, params ...Params) string {
	msg, ok := c.messages[key]
	if !ok {
		msg = key
	}
	for _, p := range params {
		for name, v := range p {
			msg = strings.ReplaceAll(msg, "{{"+name+"}}", fmt.Sprint(v))
		}
	}
	return msg
}
