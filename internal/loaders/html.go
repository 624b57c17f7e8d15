package loaders

import (
	"html"
	"regexp"
	"strings"
)

// Pre-compiled regular expressions for HTML-to-text conversion.
var (
	titleTag      = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	scriptTag     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag   = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag       = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	svgTag        = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	htmlComments  = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockElements = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	brTags        = regexp.MustCompile(`(?i)<(br|hr)\s*/?>`)
	allTags       = regexp.MustCompile(`<[^>]+>`)
	multiSpaces   = regexp.MustCompile(`[ \t]+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// extractTitle pulls the <title> text, or "" when absent.
func extractTitle(htmlSrc string) string {
	m := titleTag.FindStringSubmatch(htmlSrc)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(allTags.ReplaceAllString(m[1], "")))
}

// stripHTML converts an HTML document to readable plain text: drops
// non-content subtrees, turns block boundaries into newlines, strips
// the remaining tags, and collapses whitespace.
func stripHTML(src string) string {
	s := htmlComments.ReplaceAllString(src, "")
	s = headTag.ReplaceAllString(s, "")
	s = scriptTag.ReplaceAllString(s, "")
	s = styleTag.ReplaceAllString(s, "")
	s = noscriptTag.ReplaceAllString(s, "")
	s = svgTag.ReplaceAllString(s, "")
	s = blockElements.ReplaceAllString(s, "\n")
	s = brTags.ReplaceAllString(s, "\n")
	s = allTags.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = multiSpaces.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	s = strings.Join(lines, "\n")
	s = multiNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
