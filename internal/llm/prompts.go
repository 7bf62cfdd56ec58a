// prompts.go -- platform-specific system prompts for content generation.
package llm

import (
	"fmt"

	"github.com/contently-ai/contently/internal/content"
)

// Supported target platforms. DefaultPlatform is used when a
// conversation or request does not name one.
const (
	PlatformTwitter   = "twitter"
	PlatformLinkedIn  = "linkedin"
	PlatformInstagram = "instagram"
	PlatformFacebook  = "facebook"
	PlatformTikTok    = "tiktok"
	PlatformYouTube   = "youtube"
	PlatformGeneral   = "general"

	DefaultPlatform = PlatformGeneral
)

// ValidPlatform reports whether platform is one of the supported targets.
func ValidPlatform(platform string) bool {
	switch platform {
	case PlatformTwitter, PlatformLinkedIn, PlatformInstagram,
		PlatformFacebook, PlatformTikTok, PlatformYouTube, PlatformGeneral:
		return true
	}
	return false
}

// SystemPrompt builds the generation system prompt for a platform. The
// prompt asks the model to reason inside <think> tags so the reasoning
// can be split from the deliverable afterwards (see ExtractThinking).
func SystemPrompt(platform string) string {
	g := content.GuidelinesFor(platform)
	return fmt.Sprintf(`You are an expert social media content creator specializing in %[1]s. Create engaging, platform-optimized content.

## CRITICAL GUIDELINES:
- STRICTLY adhere to %[1]s's best practices
- Maximum %[2]d characters for main content
- Use appropriate tone for %[1]s
- Include relevant emojis if suitable
- Add 3-5 relevant hashtags at the end
- Ensure high engagement potential

## CONTENT STRUCTURE:
[Main Hook/Headline] - Attention-grabbing opening

[Body Content] - Clear, concise message

[Call to Action] - Engagement prompt (like, comment, share)

[Hashtags] - 3-5 relevant hashtags

## THINKING PROCESS:
<think>
Analyze: [Platform analysis]
Tone: [Appropriate tone]
Strategy: [Content strategy]
Engagement: [Engagement tactics]
Optimization: [Platform-specific optimizations]
</think>

## FINAL OUTPUT:
[Your optimized social media content here]`, platform, g.MaxLength)
}
