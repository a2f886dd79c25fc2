package typegraph

import (
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultFormatCacheSize = 4096

// FormattedName carries the display variants of a type name.
type FormattedName struct {
	pkg         string
	full        string
	abbreviated string
}

// FullName returns the fully-qualified name with nested-type markers rendered
// as dots.
func (f FormattedName) FullName() string {
	return f.full
}

// Abbreviated returns the name with every package segment reduced to its first
// character: example.com/app/orders.Order becomes e/a/o.Order.
func (f FormattedName) Abbreviated() string {
	return f.abbreviated
}

// AbbreviatedRelativeTo abbreviates only the module's base package and keeps
// the sub-package path readable. Types outside basePackage keep their full
// name.
func (f FormattedName) AbbreviatedRelativeTo(basePackage string) string {
	if strings.TrimSpace(basePackage) == "" || f.pkg == basePackage {
		return f.abbreviated
	}
	if !IsSubPackage(f.pkg, basePackage) {
		return f.full
	}
	_, simple := SplitFQN(f.full)
	return abbreviatePackage(basePackage) + f.pkg[len(basePackage):] + "." + simple
}

// FormatCache memoizes FormattedName values for one analysis run. Create one
// per run and drop it with the model; it is safe for concurrent use.
type FormatCache struct {
	cache *lru.Cache[string, FormattedName]
}

func NewFormatCache(capacity int) *FormatCache {
	if capacity <= 0 {
		capacity = defaultFormatCacheSize
	}
	// lru.New only fails for a non-positive size.
	cache, _ := lru.New[string, FormattedName](capacity)
	return &FormatCache{cache: cache}
}

func (c *FormatCache) Of(t *Type) FormattedName {
	if t == nil {
		return FormattedName{}
	}
	return c.OfName(t.Name)
}

func (c *FormatCache) OfName(fqn string) FormattedName {
	if name, ok := c.cache.Get(fqn); ok {
		return name
	}
	name := format(fqn)
	c.cache.Add(fqn, name)
	return name
}

func (c *FormatCache) Len() int {
	return c.cache.Len()
}

func format(fqn string) FormattedName {
	pkg, simple := SplitFQN(fqn)
	simple = strings.ReplaceAll(simple, "$", ".")
	full := simple
	if pkg != "" {
		full = pkg + "." + simple
	}
	abbreviated := simple
	if pkg != "" {
		abbreviated = abbreviatePackage(pkg) + "." + simple
	}
	return FormattedName{pkg: pkg, full: full, abbreviated: abbreviated}
}

func abbreviatePackage(pkg string) string {
	sep := PackageSeparator(pkg)
	segments := strings.Split(pkg, sep)
	for i, segment := range segments {
		if segment == "" {
			continue
		}
		_, size := utf8.DecodeRuneInString(segment)
		segments[i] = segment[:size]
	}
	return strings.Join(segments, sep)
}
