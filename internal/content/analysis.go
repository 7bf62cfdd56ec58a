// Package content analyzes generated posts against per-platform
// publishing guidelines: length limits, hashtag and emoji counts, an
// optimization score, and suitability warnings surfaced to the client.
package content

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Guidelines describes what a platform rewards. MaxLength is the
// optimal character budget, not a hard API limit.
type Guidelines struct {
	MaxLength        int
	EmojiRecommended bool
	HashtagsWanted   bool
	ProfessionalTone bool
}

var platformGuidelines = map[string]Guidelines{
	"twitter":   {MaxLength: 280, EmojiRecommended: true, HashtagsWanted: true},
	"linkedin":  {MaxLength: 1300, HashtagsWanted: true, ProfessionalTone: true},
	"instagram": {MaxLength: 2200, EmojiRecommended: true},
	"facebook":  {MaxLength: 63206, EmojiRecommended: true},
	"tiktok":    {MaxLength: 150, EmojiRecommended: true},
	"youtube":   {MaxLength: 4500, HashtagsWanted: true},
	"general":   {MaxLength: 1000},
}

// GuidelinesFor returns the guidelines for platform, falling back to
// the general profile for anything unrecognized.
func GuidelinesFor(platform string) Guidelines {
	if g, ok := platformGuidelines[platform]; ok {
		return g
	}
	return platformGuidelines["general"]
}

var hashtagRe = regexp.MustCompile(`#\w+`)

// CountHashtags returns the number of #hashtags in text.
func CountHashtags(text string) int {
	return len(hashtagRe.FindAllString(text, -1))
}

// emoji code point ranges: pictographs, symbols, transport, dingbats.
var emojiRanges = [][2]rune{
	{0x1F600, 0x1F64F},
	{0x1F300, 0x1F5FF},
	{0x1F680, 0x1F6FF},
	{0x1F700, 0x1F77F},
	{0x1F780, 0x1F7FF},
	{0x1F800, 0x1F8FF},
	{0x1F900, 0x1F9FF},
	{0x1FA00, 0x1FA6F},
	{0x1FA70, 0x1FAFF},
	{0x2600, 0x26FF},
	{0x2700, 0x27BF},
}

// CountEmojis returns the number of emoji code points in text.
func CountEmojis(text string) int {
	n := 0
	for _, r := range text {
		for _, rng := range emojiRanges {
			if r >= rng[0] && r <= rng[1] {
				n++
				break
			}
		}
	}
	return n
}

// Analytics summarizes one generated post.
type Analytics struct {
	CharacterCount    int         `json:"characterCount"`
	Hashtags          int         `json:"hashtags"`
	Emojis            int         `json:"emojis"`
	OptimizationScore int         `json:"optimizationScore"`
	Suitability       Suitability `json:"platformSuitability"`
}

// Suitability flags content that strays from platform conventions.
type Suitability struct {
	Suitable bool     `json:"suitable"`
	Issues   []string `json:"issues"`
}

// Analyze scores text against platform's guidelines. Lengths are in
// runes, not bytes, so emoji-heavy posts are not over-counted.
func Analyze(text, platform string) Analytics {
	chars := utf8.RuneCountInString(text)
	return Analytics{
		CharacterCount:    chars,
		Hashtags:          CountHashtags(text),
		Emojis:            CountEmojis(text),
		OptimizationScore: scoreText(text, chars, platform),
		Suitability:       checkText(text, chars, platform),
	}
}

// OptimizationScore rates text from 0 to 100: start at 100, penalize
// overflow past the platform's length budget (capped at 50), reward
// 3-5 hashtags and light emoji use where the platform likes them.
func OptimizationScore(text, platform string) int {
	return scoreText(text, utf8.RuneCountInString(text), platform)
}

func scoreText(text string, chars int, platform string) int {
	g := GuidelinesFor(platform)
	score := 100.0

	if over := chars - g.MaxLength; over > 0 {
		penalty := float64(over) / float64(g.MaxLength) * 100
		if penalty > 50 {
			penalty = 50
		}
		score -= penalty
	}

	if n := CountHashtags(text); n >= 3 && n <= 5 {
		score += 10
	}
	if g.EmojiRecommended {
		if n := CountEmojis(text); n > 0 && n <= 3 {
			score += 5
		}
	}

	rounded := int(score + 0.5)
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

// CheckSuitability lists guideline violations for text on platform.
// An empty issue list means the content is suitable as-is.
func CheckSuitability(text, platform string) Suitability {
	return checkText(text, utf8.RuneCountInString(text), platform)
}

func checkText(text string, chars int, platform string) Suitability {
	g := GuidelinesFor(platform)
	issues := []string{}

	if chars > g.MaxLength {
		issues = append(issues, fmt.Sprintf("Content exceeds %s's optimal length (%d/%d characters)", platform, chars, g.MaxLength))
	}
	if CountHashtags(text) < 2 {
		issues = append(issues, "Consider adding more hashtags for discoverability")
	}
	if platform == "linkedin" && strings.Contains(text, "!!!") {
		issues = append(issues, "Avoid excessive exclamation marks for professional platforms")
	}

	return Suitability{Suitable: len(issues) == 0, Issues: issues}
}
