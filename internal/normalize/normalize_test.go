package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go-voiceagent/internal/config"
)

func testCanon() *Canon {
	return NewCanon(config.DefaultIndustries(), config.DefaultIndustrySynonyms())
}

func TestIndustryExactAndSynonym(t *testing.T) {
	c := testCanon()

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Fintech", "Fintech", true},
		{"fintech", "Fintech", true},
		{"  SaaS  ", "SaaS", true},
		{"banking", "Fintech", true},
		{"healthcare", "Healthtech", true},
		{"we're mostly in e-commerce", "Retail", true},
		{"agriculture", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := c.Industry(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

// Mapping an already-canonical value must return it unchanged, so running the
// normalizer twice is the same as running it once.
func TestIndustryIdempotent(t *testing.T) {
	c := testCanon()
	for _, name := range config.DefaultIndustries() {
		got, ok := c.Industry(name)
		assert.True(t, ok)
		assert.Equal(t, name, got)
	}
}

func TestIndustriesDropsAndDedupes(t *testing.T) {
	c := testCanon()

	got := c.Industries([]string{"banking", "Fintech", "underwater basket weaving", "healthcare"})
	assert.Equal(t, []string{"Fintech", "Healthtech"}, got)

	assert.Nil(t, c.Industries([]string{"nope", "also nope"}))
}

func TestSynonymOutsideEnumIgnored(t *testing.T) {
	c := NewCanon([]string{"Fintech"}, map[string]string{"crypto": "Web3"})
	_, ok := c.Industry("crypto")
	assert.False(t, ok)
}

func TestRoleTitle(t *testing.T) {
	tests := []struct{ in, want string }{
		{"cfo", "CFO"},
		{"Chief Financial Officer", "CFO"},
		{"I'm a CTO", "CTO"},
		{"chief operating officer", "COO"},
		{"head of growth", "Head Of Growth"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoleTitle(tt.in), "input %q", tt.in)
	}
}

func TestAvailability(t *testing.T) {
	tests := []struct{ in, want string }{
		{"fractional", "fractional"},
		{"two days a week", "fractional"},
		{"full time", "full_time"},
		{"interim cover", "contract"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Availability(tt.in), "input %q", tt.in)
	}
}
