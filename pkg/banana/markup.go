package banana

import "strings"

// span builds <span class='class'>body</span>. When closed is false the
// final '>' of the closing tag is left off.
func span(class, body string, closed bool) string {
	var b strings.Builder
	b.Grow(len(class) + len(body) + 23)
	b.WriteString("<span class='")
	b.WriteString(class)
	b.WriteString("'>")
	b.WriteString(body)
	b.WriteString("</span")
	if closed {
		b.WriteByte('>')
	}
	return b.String()
}
