package chat

import (
	"regexp"
	"strings"
)

// privmsgRE matches the minimal PRIVMSG shape emitted by the Twitch IRC
// gateway after tags have been stripped:
//
//	:<author>!<author>@<host> PRIVMSG #<channel> :<body>
var privmsgRE = regexp.MustCompile(`^:([^!]+)![^ ]+ PRIVMSG #([^ ]+) :(.*)$`)

// stripTags removes the leading IRCv3 tag block ("@key=val;... ") if present.
// Everything after the first space is the untagged message.
func stripTags(line string) string {
	if !strings.HasPrefix(line, "@") {
		return line
	}
	if i := strings.Index(line, " "); i >= 0 {
		return line[i+1:]
	}
	return line
}

// parsePrivmsg extracts author, channel, and body from a tag-stripped line.
// Lines of any other shape report ok=false.
func parsePrivmsg(line string) (author, channel, body string, ok bool) {
	m := privmsgRE.FindStringSubmatch(line)
	if m == nil {
		return "", "", "", false
	}
	return m[1], m[2], m[3], true
}
