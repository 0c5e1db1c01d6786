package rule

import "strings"

// TokenInfo returns the markdown documentation for a key of this rule's
// family. A trailing ':' on token is ignored. Invalid rules document nothing.
func (d Document) TokenInfo(token string) (string, bool) {
	if d.Extends == Invalid {
		return "", false
	}
	key := strings.TrimRight(token, ":")
	if doc, ok := familyKeys[d.Extends][key]; ok {
		return doc, true
	}
	if key == "extends" {
		return commonKeys["extends"] + "\n\n## Example\n\n" + examples[d.Extends], true
	}
	doc, ok := commonKeys[key]
	return doc, ok
}

var commonKeys = map[string]string{
	"extends": "`extends` (`string`): the check this rule builds on. " +
		"It decides which other keys are available and how matches are reported.",
	"message": "`message` (`string`): the text shown for each alert. " +
		"`%s` placeholders are filled with the matched text in order.",
	"level": "`level` (`string`): the severity of the rule's alerts: " +
		"`suggestion`, `warning` or `error`. Defaults to `suggestion`.",
	"scope": "`scope` (`string` or `array`): the sections of a document the rule applies to, " +
		"such as `heading`, `paragraph`, `list` or `sentence`. Prefix a scope with `~` to exclude it.",
	"link": "`link` (`string`): a URL with more information about the rule, " +
		"shown alongside every alert it raises.",
	"limit": "`limit` (`int`): the maximum number of times the rule may report an alert " +
		"in a single file.",
	"action": "`action` (`map`): the fix offered for an alert. " +
		"`name` is one of `suggest`, `replace`, `remove`, `edit` or `convert`; " +
		"`params` are passed to it.",
}

var familyKeys = map[Family]map[string]string{
	Existence: {
		"append": "`append` (`bool`): adds `raw` to the end of `tokens`, " +
			"so the pattern is anchored by word boundaries only at its start.",
		"ignorecase": "`ignorecase` (`bool`): makes all matches case-insensitive.",
		"nonword":    "`nonword` (`bool`): removes the default word boundaries (`\\b`) around each token.",
		"raw": "`raw` (`array`): regular expression fragments concatenated as-is, " +
			"without word boundaries or escaping.",
		"tokens": "`tokens` (`array`): the words or patterns to look for. " +
			"Each entry is a regular expression wrapped in word boundaries.",
		"exceptions": "`exceptions` (`array`): matches that should not be reported, " +
			"even though a token matches them.",
	},
	Substitution: {
		"append":     "`append` (`bool`): adds the message's `%s` arguments in the order they appear in `swap`.",
		"ignorecase": "`ignorecase` (`bool`): makes all matches case-insensitive.",
		"nonword":    "`nonword` (`bool`): removes the default word boundaries (`\\b`) around each key.",
		"exceptions": "`exceptions` (`array`): matches that should not be reported.",
		"swap": "`swap` (`map`): pairs of `observed: expected` strings. " +
			"Keys are regular expressions; values may list alternatives separated by `|`.",
	},
	Occurrence: {
		"min":   "`min` (`int`): the minimum number of times `token` must appear in scope.",
		"max":   "`max` (`int`): the maximum number of times `token` may appear in scope.",
		"token": "`token` (`string`): the regular expression whose occurrences are counted.",
	},
	Repetition: {
		"alpha":  "`alpha` (`bool`): only report repeated tokens made of alphanumeric characters.",
		"tokens": "`tokens` (`array`): the patterns checked for consecutive repetition.",
	},
	Consistency: {
		"either":     "`either` (`map`): pairs of spellings; using both in one file is reported.",
		"nonword":    "`nonword` (`bool`): removes the default word boundaries (`\\b`).",
		"ignorecase": "`ignorecase` (`bool`): makes all matches case-insensitive.",
	},
	Conditional: {
		"first": "`first` (`string`): the pattern that must be preceded by a match of `second`, " +
			"such as an acronym.",
		"second":     "`second` (`string`): the pattern that must appear before `first`, such as its definition.",
		"ignorecase": "`ignorecase` (`bool`): makes all matches case-insensitive.",
	},
	Capitalization: {
		"exceptions": "`exceptions` (`array`): words whose capitalization is left alone.",
		"match": "`match` (`string`): `$title`, `$sentence`, `$lower`, `$upper` " +
			"or a regular expression the scope must match.",
		"style": "`style` (`string`): the title-case convention, `AP` or `Chicago`; " +
			"only used with `match: $title`.",
	},
	Metric: {
		"formula": "`formula` (`string`): an arithmetic expression over document statistics " +
			"such as `words`, `sentences` and `syllables`.",
		"condition": "`condition` (`string`): the comparison applied to the formula's result, " +
			"e.g. `> 8`. An alert is raised when it holds.",
	},
	Spelling: {
		"append":       "`append` (`bool`): adds the listed dictionaries to the default one instead of replacing it.",
		"custom":       "`custom` (`bool`): disables the built-in en_US dictionary.",
		"dicpath":      "`dicpath` (`string`): the directory that holds the `.dic` and `.aff` files.",
		"dictionaries": "`dictionaries` (`array`): the Hunspell dictionaries to load from `dicpath`.",
		"filters":      "`filters` (`array`): regular expressions for words that should never be checked.",
		"ignore":       "`ignore` (`array`): files of words, one per line, that are always accepted.",
	},
	Sequence: {
		"ignorecase": "`ignorecase` (`bool`): makes all matches case-insensitive.",
		"tokens": "`tokens` (`array`): NLP-aware tokens matched in order. " +
			"Each has a `pattern`, an optional `tag` and optional `negate` and `skip` fields.",
	},
	Script: {
		"script": "`script` (`string`): a Tengo program, inline or a file name under " +
			"`<StylesPath>/config/scripts`, that returns the alert locations as `matches`.",
	},
}

var examples = map[Family]string{
	Existence: "```yaml\nextends: existence\nmessage: \"Consider removing '%s'.\"\n" +
		"level: warning\nignorecase: true\ntokens:\n  - appear to be\n  - arguably\n```",
	Substitution: "```yaml\nextends: substitution\nmessage: \"Use '%s' instead of '%s'.\"\n" +
		"level: error\nswap:\n  utilize: use\n  in order to: to\n```",
	Occurrence: "```yaml\nextends: occurrence\nmessage: \"More than 3 commas!\"\n" +
		"scope: sentence\nlevel: error\nmax: 3\ntoken: ','\n```",
	Repetition: "```yaml\nextends: repetition\nmessage: \"'%s' is repeated!\"\n" +
		"level: error\nalpha: true\ntokens:\n  - '[^\\s]+'\n```",
	Consistency: "```yaml\nextends: consistency\nmessage: \"Inconsistent spelling of '%s'.\"\n" +
		"level: error\nignorecase: true\neither:\n  advisor: adviser\n  centre: center\n```",
	Conditional: "```yaml\nextends: conditional\nmessage: \"'%s' has no definition.\"\n" +
		"level: error\nscope: text\nignorecase: false\nfirst: '\\b([A-Z]{3,5})\\b'\n" +
		"second: '(?:\\b[A-Z][a-z]+ )+\\(([A-Z]{3,5})\\)'\n```",
	Capitalization: "```yaml\nextends: capitalization\nmessage: \"'%s' should be in title case.\"\n" +
		"level: warning\nscope: heading\nmatch: $title\nstyle: Chicago\n```",
	Metric: "```yaml\nextends: metric\nmessage: \"Try to keep the Flesch-Kincaid grade level below 8.\"\n" +
		"formula: |\n  (0.39 * (words / sentences)) + (11.8 * (syllables / words)) - 15.59\n" +
		"condition: \"> 8\"\n```",
	Spelling: "```yaml\nextends: spelling\nmessage: \"Did you really mean '%s'?\"\n" +
		"level: error\nignore:\n  - vocab.txt\n```",
	Sequence: "```yaml\nextends: sequence\nmessage: \"Use 'which' only after a comma.\"\n" +
		"level: warning\ntokens:\n  - tag: NN\n  - pattern: which\n```",
	Script: "```yaml\nextends: script\nmessage: \"Consider inserting a new section heading.\"\n" +
		"level: suggestion\nscope: raw\nscript: paragraphs.tengo\n```",
}
