// Package markup converts post markup into plain text.
package markup

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Text strips tags from a post body and unescapes entities.
// Anchor elements are dropped together with their content, which removes
// quote links such as ">>12345".
func Text(raw string) string {
	if raw == "" {
		return ""
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(raw))
	anchors := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			if tagAtom(z) == atom.A {
				anchors++
			}
		case html.EndTagToken:
			if tagAtom(z) == atom.A && anchors > 0 {
				anchors--
			}
		case html.TextToken:
			if anchors == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func tagAtom(z *html.Tokenizer) atom.Atom {
	name, _ := z.TagName()
	return atom.Lookup(name)
}
