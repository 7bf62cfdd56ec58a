package content

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestGuidelinesFor(t *testing.T) {
	if g := GuidelinesFor("twitter"); g.MaxLength != 280 {
		t.Errorf("twitter MaxLength = %d, want 280", g.MaxLength)
	}
	if g := GuidelinesFor("tiktok"); g.MaxLength != 150 {
		t.Errorf("tiktok MaxLength = %d, want 150", g.MaxLength)
	}
	if g := GuidelinesFor("myspace"); g.MaxLength != 1000 {
		t.Errorf("unknown platform MaxLength = %d, want general fallback 1000", g.MaxLength)
	}
}

func TestCountHashtags(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"no tags here", 0},
		{"#launch day! #SaaS #buildinpublic", 3},
		{"trailing hash # alone", 0},
		{"#repeat #repeat", 2},
	}
	for _, tt := range tests {
		if got := CountHashtags(tt.text); got != tt.want {
			t.Errorf("CountHashtags(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestCountEmojis(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"plain text", 0},
		{"ship it \U0001F680", 1},
		{"\U0001F389\U0001F389 party ❤", 3},
		{"sun ☀ and scissors ✂", 2},
		{"arrow ← is not an emoji", 0},
	}
	for _, tt := range tests {
		if got := CountEmojis(tt.text); got != tt.want {
			t.Errorf("CountEmojis(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestOptimizationScore(t *testing.T) {
	t.Run("clean short post scores 100", func(t *testing.T) {
		if got := OptimizationScore("We just launched!", "twitter"); got != 100 {
			t.Errorf("score = %d, want 100", got)
		}
	})

	t.Run("hashtag bonus caps at 100", func(t *testing.T) {
		post := "Launch day \U0001F680 #launch #SaaS #startup"
		if got := OptimizationScore(post, "twitter"); got != 100 {
			t.Errorf("score = %d, want 100 (clamped)", got)
		}
	})

	t.Run("overflow penalty", func(t *testing.T) {
		// 420 chars on a 280-char budget: 140/280 = 50% penalty.
		post := strings.Repeat("a", 420)
		if got := OptimizationScore(post, "twitter"); got != 50 {
			t.Errorf("score = %d, want 50", got)
		}
	})

	t.Run("overflow penalty caps at 50", func(t *testing.T) {
		post := strings.Repeat("a", 5000)
		if got := OptimizationScore(post, "twitter"); got != 50 {
			t.Errorf("score = %d, want 50 (capped penalty)", got)
		}
	})

	t.Run("bonuses soften the penalty", func(t *testing.T) {
		post := strings.Repeat("a", 5000) + " \U0001F680 #launch #SaaS #startup"
		if got := OptimizationScore(post, "twitter"); got != 65 {
			t.Errorf("score = %d, want 65", got)
		}
	})
}

func TestCheckSuitability(t *testing.T) {
	t.Run("launch tweet within budget", func(t *testing.T) {
		post := "Launch Post: our editor is live today \U0001F680 try it free #launch #buildinpublic"
		s := CheckSuitability(post, "twitter")
		if !s.Suitable {
			t.Errorf("suitable = false, issues: %v", s.Issues)
		}
		if len(s.Issues) != 0 {
			t.Errorf("issues = %v, want none", s.Issues)
		}
	})

	t.Run("over-length flagged with counts", func(t *testing.T) {
		post := strings.Repeat("x", 300) + " #one #two"
		s := CheckSuitability(post, "twitter")
		if s.Suitable {
			t.Error("suitable = true for over-length content")
		}
		found := false
		for _, issue := range s.Issues {
			if strings.Contains(issue, "310/280") {
				found = true
			}
		}
		if !found {
			t.Errorf("no length issue naming 310/280 in %v", s.Issues)
		}
	})

	t.Run("few hashtags flagged", func(t *testing.T) {
		s := CheckSuitability("short post #only", "twitter")
		if s.Suitable {
			t.Error("suitable = true with one hashtag")
		}
	})

	t.Run("multi-byte characters counted as runes", func(t *testing.T) {
		// 100 emoji = 400 bytes but only 100 characters; well under the
		// twitter budget, so no length issue.
		post := strings.Repeat("\U0001F680", 100) + " #launch #SaaS"
		s := CheckSuitability(post, "twitter")
		for _, issue := range s.Issues {
			if strings.Contains(issue, "optimal length") {
				t.Errorf("length issue on a %d-character post: %q", utf8.RuneCountInString(post), issue)
			}
		}
		if !s.Suitable {
			t.Errorf("suitable = false, issues: %v", s.Issues)
		}
	})

	t.Run("exclamation marks flagged on linkedin only", func(t *testing.T) {
		post := "Big news!!! We closed the round. #funding #startup"
		if s := CheckSuitability(post, "linkedin"); s.Suitable {
			t.Error("linkedin should flag '!!!'")
		}
		if s := CheckSuitability(post, "twitter"); !s.Suitable {
			t.Errorf("twitter should not flag '!!!': %v", s.Issues)
		}
	})
}

func TestAnalyze(t *testing.T) {
	post := "Ship day \U0001F680 details inside #launch #SaaS #startup"
	a := Analyze(post, "twitter")

	if want := utf8.RuneCountInString(post); a.CharacterCount != want {
		t.Errorf("CharacterCount = %d, want %d", a.CharacterCount, want)
	}
	if a.Hashtags != 3 {
		t.Errorf("Hashtags = %d, want 3", a.Hashtags)
	}
	if a.Emojis != 1 {
		t.Errorf("Emojis = %d, want 1", a.Emojis)
	}
	if a.OptimizationScore != 100 {
		t.Errorf("OptimizationScore = %d, want 100", a.OptimizationScore)
	}
	if !a.Suitability.Suitable {
		t.Errorf("Suitability.Suitable = false, issues: %v", a.Suitability.Issues)
	}
}

func TestAnalyzeCountsRunesNotBytes(t *testing.T) {
	post := strings.Repeat("\U0001F680", 100)
	a := Analyze(post, "twitter")

	if a.CharacterCount != 100 {
		t.Errorf("CharacterCount = %d, want 100", a.CharacterCount)
	}
	if a.Emojis != 100 {
		t.Errorf("Emojis = %d, want 100", a.Emojis)
	}
	for _, issue := range a.Suitability.Issues {
		if strings.Contains(issue, "optimal length") {
			t.Errorf("length issue on a 100-character post: %q", issue)
		}
	}
	// No overflow penalty, no bonuses (zero hashtags, >3 emoji).
	if a.OptimizationScore != 100 {
		t.Errorf("OptimizationScore = %d, want 100", a.OptimizationScore)
	}
}
