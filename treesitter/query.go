package treesitter

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/errata-ai/vale-ls/protocol"
)

// Capture is a single query capture.
type Capture struct {
	Name  string
	Node  *tree_sitter.Node
	Text  string
	Range protocol.Range
}

// NodeText returns the text of a node.
func (t *Tree) NodeText(node *tree_sitter.Node) string {
	if t == nil || node == nil || t.src == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if start > end || end > uint(len(t.src)) {
		return ""
	}
	return string(t.src[start:end])
}

// QueryCaptures runs a query against the whole tree.
func (t *Tree) QueryCaptures(lang *tree_sitter.Language, pattern string) ([]Capture, error) {
	if t == nil || t.raw == nil {
		return nil, nil
	}

	query, qerr := tree_sitter.NewQuery(lang, pattern)
	if qerr != nil {
		return nil, qerr
	}
	defer query.Close()

	cursor := tree_sitter.NewQueryCursor()
	defer cursor.Close()
	return t.collect(query, cursor), nil
}

// QueryCapturesInRanges runs a query restricted to each of ranges in turn
// and concatenates the results. Passing tree.Diff.ChangedRanges rescans only
// the regions that changed.
func (t *Tree) QueryCapturesInRanges(lang *tree_sitter.Language, pattern string, ranges []protocol.Range) ([]Capture, error) {
	if t == nil || t.raw == nil || len(ranges) == 0 {
		return nil, nil
	}

	query, qerr := tree_sitter.NewQuery(lang, pattern)
	if qerr != nil {
		return nil, qerr
	}
	defer query.Close()

	var captures []Capture
	for _, r := range ranges {
		cursor := tree_sitter.NewQueryCursor()
		cursor.SetPointRange(t.Point(r.Start), t.Point(r.End))
		captures = append(captures, t.collect(query, cursor)...)
		cursor.Close()
	}
	return captures, nil
}

func (t *Tree) collect(query *tree_sitter.Query, cursor *tree_sitter.QueryCursor) []Capture {
	names := query.CaptureNames()
	matches := cursor.Matches(query, t.raw.RootNode(), t.src)
	var captures []Capture
	for match := matches.Next(); match != nil; match = matches.Next() {
		for _, c := range match.Captures {
			node := c.Node
			name := ""
			if int(c.Index) < len(names) {
				name = names[c.Index]
			}
			captures = append(captures, Capture{
				Name:  name,
				Node:  &node,
				Text:  t.NodeText(&node),
				Range: t.NodeRange(&node),
			})
		}
	}
	return captures
}

// ErrorsInRanges returns the ERROR nodes within ranges.
func (t *Tree) ErrorsInRanges(lang *tree_sitter.Language, ranges []protocol.Range) ([]Capture, error) {
	return t.QueryCapturesInRanges(lang, "(ERROR) @error", ranges)
}

// topLevelPairs matches the key/value pairs of a document's root mapping.
const topLevelPairs = `(stream (document (block_node (block_mapping (block_mapping_pair) @pair))))`

// Pair is one top-level mapping entry.
type Pair struct {
	Key        string
	Value      string
	KeyRange   protocol.Range
	ValueRange protocol.Range
}

// TopLevelPairs returns the entries of the root block mapping in document
// order. Values are returned as written, quotes included.
func (t *Tree) TopLevelPairs(lang *tree_sitter.Language) ([]Pair, error) {
	captures, err := t.QueryCaptures(lang, topLevelPairs)
	if err != nil {
		return nil, err
	}
	pairs := make([]Pair, 0, len(captures))
	for _, c := range captures {
		key := c.Node.ChildByFieldName("key")
		if key == nil {
			continue
		}
		p := Pair{Key: t.NodeText(key), KeyRange: t.NodeRange(key)}
		if value := c.Node.ChildByFieldName("value"); value != nil {
			p.Value = t.NodeText(value)
			p.ValueRange = t.NodeRange(value)
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}
