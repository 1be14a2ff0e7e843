package flow

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// blockLevelElements forces a line break so words across block boundaries
// don't run together once tags are stripped — bluemonday's StripTagsPolicy
// alone simply deletes tags without inserting whitespace.
var blockLevelElements = []string{"p", "div", "br", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6"}

var stripPolicy = bluemonday.StripTagsPolicy()

// HTMLToText normalizes rich-text-editor markup to plain text before
// variable substitution runs, per §4.2. A string containing no '<' is
// returned unchanged; any other string is normalized, which can corrupt
// non-prose inputs such as regex patterns or URLs containing '<'. The
// resolver skips this call when ResolveContext.DisableHTMLNormalization is
// set; engine.Params has no field that sets it.
func HTMLToText(s string) string {
	if !looksLikeHTML(s) {
		return s
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err == nil {
		for _, tag := range blockLevelElements {
			doc.Find(tag).AppendHtml("\n")
		}
		if withBreaks, err2 := doc.Find("body").Html(); err2 == nil && withBreaks != "" {
			s = withBreaks
		}
	}

	text := stripPolicy.Sanitize(s)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func looksLikeHTML(s string) bool {
	return strings.ContainsAny(s, "<>") && strings.Contains(s, "<")
}
