// Package rule understands Vale rule definitions: the YAML files under a
// style directory whose `extends` key names one of Vale's check families.
package rule

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/errata-ai/vale-ls/protocol"
)

// Family is the check a rule extends.
type Family string

const (
	Existence      Family = "existence"
	Substitution   Family = "substitution"
	Occurrence     Family = "occurrence"
	Repetition     Family = "repetition"
	Consistency    Family = "consistency"
	Conditional    Family = "conditional"
	Capitalization Family = "capitalization"
	Metric         Family = "metric"
	Spelling       Family = "spelling"
	Sequence       Family = "sequence"
	Script         Family = "script"
	Invalid        Family = ""
)

// Families lists every valid family in the order completions offer them.
var Families = []Family{
	Existence, Substitution, Occurrence, Repetition, Consistency, Conditional,
	Capitalization, Metric, Spelling, Sequence, Script,
}

// ParseFamily maps an `extends` value to a Family, or Invalid.
func ParseFamily(s string) Family {
	for _, f := range Families {
		if string(f) == s {
			return f
		}
	}
	return Invalid
}

// CanCompile reports whether `vale compile` can produce a single pattern
// for rules of this family.
func (f Family) CanCompile() bool {
	switch f {
	case Existence, Substitution, Occurrence, Repetition, Consistency, Conditional, Capitalization:
		return true
	default:
		return false
	}
}

// Document is the part of a rule definition the server reads.
type Document struct {
	Extends Family
	Link    string
}

// CanCompile reports whether the rule's family can be compiled.
func (d Document) CanCompile() bool { return d.Extends.CanCompile() }

type document struct {
	Extends string `yaml:"extends"`
	Link    string `yaml:"link"`
}

// Parse decodes a rule definition. Malformed YAML, an empty document or
// non-string values yield an Invalid document rather than an error, since
// rules are parsed while the user is still typing them.
func Parse(src string) Document {
	var raw document
	if err := yaml.Unmarshal([]byte(src), &raw); err != nil {
		return Document{}
	}
	return Document{Extends: ParseFamily(raw.Extends), Link: raw.Link}
}

// Load reads and parses the rule at path.
func Load(path string) (Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read rule: %w", err)
	}
	return Parse(string(src)), nil
}

// Complete returns value completions for the line the cursor is on.
func Complete(line string) []protocol.CompletionItem {
	switch {
	case strings.Contains(line, "extends:"):
		labels := make([]string, len(Families))
		for i, f := range Families {
			labels[i] = string(f)
		}
		return valueItems(labels)
	case strings.Contains(line, "level:"):
		return valueItems([]string{"suggestion", "warning", "error"})
	default:
		return nil
	}
}

func valueItems(labels []string) []protocol.CompletionItem {
	items := make([]protocol.CompletionItem, len(labels))
	for i, l := range labels {
		items[i] = protocol.CompletionItem{Label: l, Kind: protocol.CompletionKindValue}
	}
	return items
}
