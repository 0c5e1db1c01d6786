package session

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/errata-ai/vale-ls/protocol"
)

// Columns throughout vale-ls count Unicode code points, matching the spans
// Vale reports in its alerts.

// LineAt returns the text of the given zero-based line without its newline.
// It returns "" past the last line.
func LineAt(text string, line uint32) string {
	offset := 0
	for i := uint32(0); i < line; i++ {
		nl := strings.IndexByte(text[offset:], '\n')
		if nl < 0 {
			return ""
		}
		offset += nl + 1
	}
	end := strings.IndexByte(text[offset:], '\n')
	if end < 0 {
		return strings.TrimSuffix(text[offset:], "\r")
	}
	return strings.TrimSuffix(text[offset:offset+end], "\r")
}

// PositionToRange expands col in both directions over non-whitespace and
// returns the token range. The end is made exclusive only when the right
// edge moved, so a one-character token yields no range. Columns past the end
// of the line yield no range.
func PositionToRange(pos protocol.Position, line string) (protocol.Range, bool) {
	runes := []rune(line)
	col := int(pos.Character)
	if col > len(runes) {
		return protocol.Range{}, false
	}

	extent := len(runes) - 1
	start, end := col, col
	for start > 0 && !unicode.IsSpace(runes[start-1]) {
		start--
	}
	for end < extent && !unicode.IsSpace(runes[end+1]) {
		end++
	}

	if start == end {
		return protocol.Range{}, false
	}
	if end > col {
		end++
	}
	return protocol.Range{
		Start: protocol.Position{Line: pos.Line, Character: uint32(start)},
		End:   protocol.Position{Line: pos.Line, Character: uint32(end)},
	}, true
}

// RangeToToken returns the text of line covered by rng, or "" when the range
// does not fit inside the line.
func RangeToToken(rng protocol.Range, line string) string {
	runes := []rune(line)
	start, end := int(rng.Start.Character), int(rng.End.Character)
	if start > end || end > len(runes) {
		return ""
	}
	return string(runes[start:end])
}

// RuneColumn converts a byte column within line to a code point column.
func RuneColumn(line string, byteCol int) int {
	if byteCol > len(line) {
		byteCol = len(line)
	}
	return utf8.RuneCountInString(line[:byteCol])
}

// PositionAt converts a byte offset into text to a position.
func PositionAt(text string, offset int) protocol.Position {
	offset = max(0, min(offset, len(text)))
	head := text[:offset]
	line := strings.Count(head, "\n")
	lineStart := strings.LastIndexByte(head, '\n') + 1
	return protocol.Position{
		Line:      uint32(line),
		Character: uint32(utf8.RuneCountInString(head[lineStart:])),
	}
}
