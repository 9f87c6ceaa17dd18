package post

import (
	"strings"
	"testing"
)

func TestNormalizeMessage(t *testing.T) {
	cases := []struct{ in, want string }{
		{"hello world", "hello world"},
		{"  hello   world  ", "hello world"},
		{"line1\nline2\t\ttabbed", "line1 line2 tabbed"},
		{"\n \t ", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := NormalizeMessage(c.in); got != c.want {
			t.Errorf("NormalizeMessage(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate(short) = %q", got)
	}
	if got := Truncate("abcdefghij", 6); got != "abc..." {
		t.Errorf("Truncate = %q, want abc...", got)
	}
	if got := Truncate("abcdef", 3); got != "abc" {
		t.Errorf("Truncate with tiny limit = %q, want abc", got)
	}
	// Rune-aware: Japanese characters count as one each.
	if got := Truncate("あいうえおかきくけこ", 7); got != "あいうえ..." {
		t.Errorf("Truncate(multibyte) = %q", got)
	}
}

func TestAppendHashtag(t *testing.T) {
	got := AppendHashtag("body", "#tag", 280)
	if got != "body\n\n#tag" {
		t.Errorf("AppendHashtag = %q", got)
	}
	// Already present: unchanged.
	if got := AppendHashtag("body with #tag inside", "#tag", 280); got != "body with #tag inside" {
		t.Errorf("AppendHashtag(dup) = %q", got)
	}
	// Body trimmed so the tag still fits.
	long := strings.Repeat("x", 280)
	got = AppendHashtag(long, "#tag", 280)
	if !strings.HasSuffix(got, "\n\n#tag") {
		t.Errorf("AppendHashtag(long) missing suffix: %q", got[len(got)-12:])
	}
	if n := len([]rune(got)); n > 280 {
		t.Errorf("AppendHashtag(long) length = %d, want <= 280", n)
	}
}

func TestPrependMentions(t *testing.T) {
	if got := PrependMentions("hi", nil); got != "hi" {
		t.Errorf("PrependMentions(none) = %q", got)
	}
	if got := PrependMentions("hi", []string{"alice", "bob"}); got != "@alice @bob hi" {
		t.Errorf("PrependMentions = %q", got)
	}
}

func TestDecoratorOrdering(t *testing.T) {
	d := Decorator{ReplySetting: "mentionedUsers", Mentions: []string{"alice"}, Hashtag: "#tag"}
	got := d.Apply("body")
	if got != "@alice body\n\n#tag" {
		t.Errorf("Decorator.Apply = %q", got)
	}
	// everyone: no mention prefix.
	d.ReplySetting = "everyone"
	if got := d.Apply("body"); got != "body\n\n#tag" {
		t.Errorf("Decorator.Apply(everyone) = %q", got)
	}
}
