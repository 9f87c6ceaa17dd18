package post

import (
	"regexp"
	"strings"
)

// MaxPostLength is the X character limit.
const MaxPostLength = 280

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeMessage collapses whitespace runs (including newlines) into single
// spaces and trims the ends.
func NormalizeMessage(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// Truncate shortens text to at most limit characters (runes, not bytes),
// replacing the tail with "..." when it had to cut.
func Truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// AppendHashtag adds hashtag on its own paragraph at the end of text, trimming
// the body if needed so the result stays within limit. A text that already
// contains the hashtag is returned unchanged.
func AppendHashtag(text, hashtag string, limit int) string {
	if hashtag == "" || strings.Contains(text, hashtag) {
		return text
	}
	suffix := "\n\n" + hashtag
	if len([]rune(text))+len([]rune(suffix)) <= limit {
		return text + suffix
	}
	available := limit - len([]rune(suffix))
	if available <= 0 {
		return Truncate(hashtag, limit)
	}
	return Truncate(text, available) + suffix
}

// PrependMentions puts "@user" handles in front of text so the named accounts
// can reply when the post restricts replies to mentioned users.
func PrependMentions(text string, mentions []string) string {
	if len(mentions) == 0 {
		return text
	}
	handles := make([]string, len(mentions))
	for i, m := range mentions {
		handles[i] = "@" + m
	}
	return Truncate(strings.Join(handles, " ")+" "+text, MaxPostLength)
}

// Decorator applies the final, platform-facing text transforms: reply-mention
// prefixing (only for the mentionedUsers reply setting) followed by the
// trailing hashtag. The queue worker runs it after the interval wait, right
// before publishing.
type Decorator struct {
	ReplySetting string
	Mentions     []string
	Hashtag      string
}

func (d Decorator) Apply(text string) string {
	if d.ReplySetting == "mentionedUsers" {
		text = PrependMentions(text, d.Mentions)
	}
	return AppendHashtag(text, d.Hashtag, MaxPostLength)
}
