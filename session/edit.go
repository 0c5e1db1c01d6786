package session

import "strings"

// Point is a zero-based row and byte column, the coordinate system used by
// incremental parsers.
type Point struct {
	Row    uint
	Column uint
}

// EditRange describes one text replacement in bytes and points.
type EditRange struct {
	StartByte  uint
	OldEndByte uint
	NewEndByte uint
	StartPoint Point
	OldEnd     Point
	NewEnd     Point
}

// replaceAll describes swapping oldText for newText as a single edit that
// spans only the bytes between their common prefix and common suffix.
// Clients send full text, so this is how parsers get a narrow edit.
func replaceAll(oldText, newText string) EditRange {
	limit := min(len(oldText), len(newText))
	prefix := 0
	for prefix < limit && oldText[prefix] == newText[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < limit-prefix && oldText[len(oldText)-1-suffix] == newText[len(newText)-1-suffix] {
		suffix++
	}

	oldEnd := len(oldText) - suffix
	newEnd := len(newText) - suffix
	return EditRange{
		StartByte:  uint(prefix),
		OldEndByte: uint(oldEnd),
		NewEndByte: uint(newEnd),
		StartPoint: endPoint(oldText[:prefix]),
		OldEnd:     endPoint(oldText[:oldEnd]),
		NewEnd:     endPoint(newText[:newEnd]),
	}
}

func endPoint(text string) Point {
	last := strings.LastIndexByte(text, '\n')
	return Point{
		Row:    uint(strings.Count(text, "\n")),
		Column: uint(len(text) - (last + 1)),
	}
}
