package ini

// KeyInfo returns the markdown documentation for a .vale.ini key.
func KeyInfo(key string) (string, bool) {
	doc, ok := keyDocs[key]
	return doc, ok
}

var keyDocs = map[string]string{
	"StylesPath": "`StylesPath` (core): the path to the directory that holds your styles, " +
		"vocabularies and synced packages. Relative paths are resolved from the " +
		"location of the `.vale.ini` file.\n\n```ini\nStylesPath = styles\n```",
	"MinAlertLevel": "`MinAlertLevel` (core): the minimum severity to report, one of " +
		"`suggestion`, `warning` or `error`.\n\n```ini\nMinAlertLevel = warning\n```",
	"IgnoredScopes": "`IgnoredScopes` (core): inline HTML tags whose content is never checked. " +
		"Defaults to `code` and `tt`.\n\n```ini\nIgnoredScopes = code, tt, kbd\n```",
	"IgnoredClasses": "`IgnoredClasses` (core): HTML `class` values whose elements are skipped." +
		"\n\n```ini\nIgnoredClasses = my-class, another-class\n```",
	"SkippedScopes": "`SkippedScopes` (core): block-level HTML tags that are skipped entirely. " +
		"Defaults to `script`, `style`, `pre` and `figure`.\n\n```ini\nSkippedScopes = script, style, pre, figure\n```",
	"WordTemplate": "`WordTemplate` (core): the template used to wrap tokens in word boundaries, " +
		"with `%s` standing for the token.\n\n```ini\nWordTemplate = \\b(?:%s)\\b\n```",
	"BasedOnStyles": "`BasedOnStyles` (format): the styles applied to files matching the section's glob. " +
		"`Vale` is the built-in style.\n\n```ini\n[*.md]\nBasedOnStyles = Vale, MyStyle\n```",
	"BlockIgnores": "`BlockIgnores` (format): regular expressions for multi-line blocks " +
		"that should be ignored, such as shortcodes.\n\n```ini\n[*.md]\nBlockIgnores = (?s) *({< file [^>]* >}.*?{</ ?file >})\n```",
	"TokenIgnores": "`TokenIgnores` (format): regular expressions for inline tokens " +
		"that should be ignored.\n\n```ini\n[*.md]\nTokenIgnores = (\\$+[^\\n$]+\\$+)\n```",
	"Transform": "`Transform` (format): an XSLT stylesheet applied to XML files before linting." +
		"\n\n```ini\n[*.xml]\nTransform = docbook-xsl-snapshot/html/docbook.xsl\n```",
	"Vocab": "`Vocab` (core): the vocabularies to load from `<StylesPath>/Vocab`. " +
		"Each has an `accept.txt` and a `reject.txt`.\n\n```ini\nVocab = Base, Docs\n```",
	"Packages": "`Packages` (core): the packages `vale sync` installs into `StylesPath`, " +
		"by name or URL.\n\n```ini\nPackages = Google, Hugo\n```",
}
