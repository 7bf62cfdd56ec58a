// clean.go -- post-processing for raw completions.
package llm

import (
	"regexp"
	"strings"
)

var (
	headingRe = regexp.MustCompile(`(?m)^#+\s*`)
	boldRe    = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicRe  = regexp.MustCompile(`\*([^*]+)\*`)
	thinkRe   = regexp.MustCompile(`(?s)<think>(.*?)</think>`)
)

// Clean strips markdown artifacts the models sprinkle into completions:
// headings, bold/italic markers, and double quotes. Social posts are
// plain text, not markdown.
func Clean(text string) string {
	text = headingRe.ReplaceAllString(text, "")
	text = boldRe.ReplaceAllString(text, "$1")
	text = italicRe.ReplaceAllString(text, "$1")
	return strings.ReplaceAll(text, `"`, "")
}

// ExtractThinking splits a completion into the deliverable content and
// the model's <think>...</think> reasoning, if present. Returns nil
// thinking when the completion carries none.
func ExtractThinking(text string) (main string, thinking *string) {
	m := thinkRe.FindStringSubmatchIndex(text)
	if m == nil {
		return strings.TrimSpace(text), nil
	}
	t := strings.TrimSpace(text[m[2]:m[3]])
	main = strings.TrimSpace(text[:m[0]] + text[m[1]:])
	return main, &t
}
