package rule

import (
	"strings"
	"unicode/utf8"

	"github.com/errata-ai/vale-ls/protocol"
	"github.com/errata-ai/vale-ls/treesitter"
)

// KeyRange returns the range of a top-level key such as `extends` or `link`.
// The parse tree is used when there is one; otherwise the first line that
// starts with "key:" is taken.
func KeyRange(tree *treesitter.Tree, text, key string) (protocol.Range, bool) {
	if tree != nil {
		pairs, err := tree.TopLevelPairs(treesitter.YAML())
		if err == nil {
			for _, p := range pairs {
				if p.Key == key {
					return p.KeyRange, true
				}
			}
			return protocol.Range{}, false
		}
	}
	return scanKey(text, key)
}

func scanKey(text, key string) (protocol.Range, bool) {
	prefix := key + ":"
	for i, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, prefix) {
			return protocol.Range{
				Start: protocol.Position{Line: uint32(i)},
				End:   protocol.Position{Line: uint32(i), Character: uint32(utf8.RuneCountInString(key))},
			}, true
		}
	}
	return protocol.Range{}, false
}

// LinkRange locates link on the first line that contains it, covering the
// link text itself.
func LinkRange(text, link string) (protocol.Range, bool) {
	if link == "" {
		return protocol.Range{}, false
	}
	for i, line := range strings.Split(text, "\n") {
		idx := strings.Index(line, link)
		if idx < 0 {
			continue
		}
		start := utf8.RuneCountInString(line[:idx])
		return protocol.Range{
			Start: protocol.Position{Line: uint32(i), Character: uint32(start)},
			End:   protocol.Position{Line: uint32(i), Character: uint32(start + utf8.RuneCountInString(link))},
		}, true
	}
	return protocol.Range{}, false
}
