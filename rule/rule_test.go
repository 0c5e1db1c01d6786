package rule

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/errata-ai/vale-ls/protocol"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want Document
	}{
		{"substitution with link", "extends: substitution\nlink: https://vale.sh\nswap:\n  a: b\n", Document{Extends: Substitution, Link: "https://vale.sh"}},
		{"unknown family", "extends: grammar\n", Document{}},
		{"empty", "", Document{}},
		{"malformed", "extends: [existence\n", Document{}},
		{"non-string extends", "extends:\n  - existence\n", Document{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Parse(tt.src); got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.src, got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Foo.yml")
	require.NoError(t, os.WriteFile(path, []byte("extends: metric\n"), 0o644))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Metric, doc.Extends)
	assert.False(t, doc.CanCompile())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestCanCompile(t *testing.T) {
	compilable := map[Family]bool{
		Existence: true, Substitution: true, Occurrence: true, Repetition: true,
		Consistency: true, Conditional: true, Capitalization: true,
	}
	for _, f := range append(Families, Invalid) {
		if got := f.CanCompile(); got != compilable[f] {
			t.Errorf("%q.CanCompile() = %v, want %v", f, got, compilable[f])
		}
	}
}

func TestComplete(t *testing.T) {
	items := Complete("extends: ")
	require.Len(t, items, 11)
	assert.Equal(t, "existence", items[0].Label)
	assert.Equal(t, "script", items[10].Label)
	assert.Equal(t, protocol.CompletionKindValue, items[0].Kind)

	levels := Complete("level: war")
	require.Len(t, levels, 3)
	assert.Equal(t, []string{"suggestion", "warning", "error"},
		[]string{levels[0].Label, levels[1].Label, levels[2].Label})

	assert.Empty(t, Complete("message: hi"))
}

func TestTokenInfo(t *testing.T) {
	existence := Document{Extends: Existence}

	doc, ok := existence.TokenInfo("tokens:")
	require.True(t, ok)
	assert.Contains(t, doc, "`tokens`")

	doc, ok = existence.TokenInfo("extends:")
	require.True(t, ok)
	assert.True(t, strings.Contains(doc, "## Example") && strings.Contains(doc, "extends: existence"))

	_, ok = existence.TokenInfo("swap")
	assert.False(t, ok, "swap belongs to substitution")

	_, ok = Document{Extends: Substitution}.TokenInfo("swap:")
	assert.True(t, ok)

	_, ok = Document{}.TokenInfo("message")
	assert.False(t, ok)

	for _, key := range []string{"message", "level", "scope", "link", "limit", "action"} {
		_, ok := Document{Extends: Script}.TokenInfo(key)
		assert.True(t, ok, key)
	}
}

func TestEveryFamilyHasDocs(t *testing.T) {
	for _, f := range Families {
		assert.NotEmpty(t, familyKeys[f], f)
		assert.NotEmpty(t, examples[f], f)
	}
}

func TestKeyRangeFallback(t *testing.T) {
	rng, ok := KeyRange(nil, "message: hi\nextends: existence\n", "extends")
	require.True(t, ok)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 1},
		End:   protocol.Position{Line: 1, Character: 7},
	}, rng)

	_, ok = KeyRange(nil, "  extends: nested\n", "extends")
	assert.False(t, ok)
}

func TestLinkRange(t *testing.T) {
	text := "extends: existence\nlink: 'https://vale.sh/é'\n"
	rng, ok := LinkRange(text, "https://vale.sh/é")
	require.True(t, ok)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 1, Character: 7},
		End:   protocol.Position{Line: 1, Character: 24},
	}, rng)

	_, ok = LinkRange(text, "")
	assert.False(t, ok)
	_, ok = LinkRange(text, "https://example.com")
	assert.False(t, ok)
}
