package session

import (
	"testing"

	"github.com/errata-ai/vale-ls/protocol"
)

func TestLineAt(t *testing.T) {
	text := "StylesPath = styles\r\nMinAlertLevel = suggestion\n\n[*]"
	tests := []struct {
		line uint32
		want string
	}{
		{0, "StylesPath = styles"},
		{1, "MinAlertLevel = suggestion"},
		{2, ""},
		{3, "[*]"},
		{4, ""},
	}
	for _, tt := range tests {
		if got := LineAt(text, tt.line); got != tt.want {
			t.Errorf("LineAt(%d) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestPositionToRange(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		col    uint32
		want   protocol.Range
		wantOK bool
	}{
		{"start of last word", "BasedOnStyles = Vale", 16, lineRange(16, 20), true},
		{"middle of first word", "BasedOnStyles = Vale", 4, lineRange(0, 13), true},
		{"last char of a word", "BasedOnStyles = Vale", 12, lineRange(0, 12), true},
		{"between spaces", "a   b", 2, protocol.Range{}, false},
		{"single character word", "a = b", 4, protocol.Range{}, false},
		{"empty line", "", 0, protocol.Range{}, false},
		{"past end", "Vale", 9, protocol.Range{}, false},
		{"non-ascii", "extends: ñandú", 10, lineRange(9, 14), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PositionToRange(protocol.Position{Line: 3, Character: tt.col}, tt.line)
			if ok != tt.wantOK {
				t.Fatalf("PositionToRange ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("PositionToRange = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPositionToRangeIsIdempotent(t *testing.T) {
	pos := protocol.Position{Line: 0, Character: 16}
	first, _ := PositionToRange(pos, "BasedOnStyles = Vale")
	second, _ := PositionToRange(pos, "BasedOnStyles = Vale")
	if first != second {
		t.Errorf("PositionToRange not stable: %v then %v", first, second)
	}
}

func TestRangeToToken(t *testing.T) {
	line := "BasedOnStyles = Vale"
	tests := []struct {
		rng  protocol.Range
		want string
	}{
		{lineRange(16, 20), "Vale"},
		{lineRange(0, 13), "BasedOnStyles"},
		{lineRange(16, 21), ""},
		{lineRange(5, 2), ""},
	}
	for _, tt := range tests {
		if got := RangeToToken(tt.rng, line); got != tt.want {
			t.Errorf("RangeToToken(%v) = %q, want %q", tt.rng, got, tt.want)
		}
	}
}

func TestPositionAt(t *testing.T) {
	text := "hello\nwörld\nfoo"
	tests := []struct {
		offset int
		want   protocol.Position
	}{
		{0, protocol.Position{Line: 0, Character: 0}},
		{5, protocol.Position{Line: 0, Character: 5}},
		{6, protocol.Position{Line: 1, Character: 0}},
		{12, protocol.Position{Line: 1, Character: 5}},
		{13, protocol.Position{Line: 2, Character: 0}},
		{99, protocol.Position{Line: 2, Character: 3}},
	}
	for _, tt := range tests {
		if got := PositionAt(text, tt.offset); got != tt.want {
			t.Errorf("PositionAt(%d) = %v, want %v", tt.offset, got, tt.want)
		}
	}
}

func TestRuneColumn(t *testing.T) {
	if got := RuneColumn("ñandú x", 7); got != 5 {
		t.Errorf("RuneColumn = %d, want 5", got)
	}
}

func lineRange(start, end uint32) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: 3, Character: start},
		End:   protocol.Position{Line: 3, Character: end},
	}
}
