// Package normalize maps free-text answers onto the closed vocabularies the
// profile store accepts. Values that cannot be confidently mapped are dropped
// rather than stored raw.
package normalize

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.BritishEnglish)

// Canon holds the canonical industry enum plus its synonym table. The synonym
// table is configuration, not contract.
type Canon struct {
	canonical []string
	members   mapset.Set[string]
	byLower   map[string]string
	synonyms  map[string]string
}

func NewCanon(industries []string, synonyms map[string]string) *Canon {
	c := &Canon{
		canonical: industries,
		members:   mapset.NewSet[string](),
		byLower:   make(map[string]string, len(industries)),
		synonyms:  make(map[string]string, len(synonyms)),
	}
	for _, name := range industries {
		c.members.Add(name)
		c.byLower[strings.ToLower(name)] = name
	}
	for syn, canonical := range synonyms {
		// Synonyms pointing outside the enum are configuration mistakes; drop
		// them instead of letting them smuggle values in.
		if c.members.Contains(canonical) {
			c.synonyms[strings.ToLower(syn)] = canonical
		}
	}
	return c
}

// Industry resolves free text to a canonical industry: exact match first, then
// the synonym table, then substring heuristics. ok=false means the value could
// not be confidently mapped and must be dropped.
func (c *Canon) Industry(text string) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return "", false
	}
	if name, ok := c.byLower[t]; ok {
		return name, true
	}
	if name, ok := c.synonyms[t]; ok {
		return name, true
	}
	for lower, name := range c.byLower {
		if strings.Contains(t, lower) {
			return name, true
		}
	}
	for syn, name := range c.synonyms {
		if strings.Contains(t, syn) {
			return name, true
		}
	}
	return "", false
}

// Industries maps a batch of raw values, dropping anything unmatched and
// deduplicating the result. Order follows first appearance.
func (c *Canon) Industries(values []string) []string {
	var out []string
	seen := mapset.NewSet[string]()
	for _, v := range values {
		name, ok := c.Industry(v)
		if !ok || seen.Contains(name) {
			continue
		}
		seen.Add(name)
		out = append(out, name)
	}
	return out
}

// RoleTitle normalizes an executive role title ("chief financial officer",
// "cfo" -> "CFO"); unknown titles are title-cased as-is.
func RoleTitle(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return ""
	}
	for _, abbr := range []string{"cfo", "ceo", "cto", "coo", "cmo", "ciso"} {
		if strings.Contains(t, abbr) {
			return strings.ToUpper(abbr)
		}
	}
	switch {
	case strings.Contains(t, "chief financial"):
		return "CFO"
	case strings.Contains(t, "chief executive"):
		return "CEO"
	case strings.Contains(t, "chief technology"), strings.Contains(t, "chief technical"):
		return "CTO"
	case strings.Contains(t, "chief operating"):
		return "COO"
	}
	return titleCaser.String(strings.TrimSpace(text))
}

// Availability normalizes engagement type to the store's enum values.
func Availability(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return ""
	}
	switch {
	case strings.Contains(t, "fraction"), strings.Contains(t, "part"), strings.Contains(t, "days"):
		return "fractional"
	case strings.Contains(t, "full"):
		return "full_time"
	case strings.Contains(t, "contract"), strings.Contains(t, "interim"):
		return "contract"
	}
	return t
}
