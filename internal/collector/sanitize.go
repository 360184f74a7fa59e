package collector

import (
	"strings"

	"golang.org/x/net/html"
)

var allowedTags = map[string]bool{
	"a": true, "b": true, "div": true, "em": true, "i": true, "li": true,
	"ol": true, "p": true, "span": true, "strong": true, "ul": true,
}

// SanitizeHTML keeps a small set of formatting tags and drops everything
// else. Event handler attributes are removed and javascript: links are
// replaced with "#". Script and style content is dropped entirely.
func SanitizeHTML(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	raw := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			if raw == 0 {
				b.WriteString(html.EscapeString(string(z.Text())))
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if isRawTag(tok.Data) {
				if tt == html.StartTagToken {
					raw++
				}
				continue
			}
			if raw > 0 || !allowedTags[tok.Data] {
				continue
			}
			b.WriteByte('<')
			b.WriteString(tok.Data)
			for _, a := range tok.Attr {
				if strings.HasPrefix(a.Key, "on") {
					continue
				}
				val := a.Val
				if a.Key == "href" && isJavascriptURL(val) {
					val = "#"
				}
				b.WriteByte(' ')
				b.WriteString(a.Key)
				b.WriteString(`="`)
				b.WriteString(html.EscapeString(val))
				b.WriteByte('"')
			}
			b.WriteByte('>')
		case html.EndTagToken:
			tok := z.Token()
			if isRawTag(tok.Data) {
				if raw > 0 {
					raw--
				}
				continue
			}
			if raw > 0 || !allowedTags[tok.Data] {
				continue
			}
			b.WriteString("</")
			b.WriteString(tok.Data)
			b.WriteByte('>')
		}
	}
}

func isRawTag(name string) bool {
	return name == "script" || name == "style"
}

// isJavascriptURL ignores case and the whitespace and control characters
// browsers strip from a URL scheme.
func isJavascriptURL(v string) bool {
	cleaned := strings.Map(func(r rune) rune {
		if r <= ' ' {
			return -1
		}
		return r
	}, v)
	return strings.HasPrefix(strings.ToLower(cleaned), "javascript:")
}
