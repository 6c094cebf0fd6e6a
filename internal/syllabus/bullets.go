package syllabus

import "strings"

// bulletGlyphs are the bullet characters the template renders: the Symbol-font
// private-use bullet and the visible bullet.
const bulletGlyphs = "\uf0b7\u2022"

// ParseBullets splits text on bullet glyphs, trims every item and drops empty ones.
// Text without bullets yields a single item when it has content.
func ParseBullets(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return strings.ContainsRune(bulletGlyphs, r)
	})
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items
}

// parseCommaList splits text on commas, trims every item and drops empty ones.
func parseCommaList(text string) []string {
	var items []string
	for _, p := range strings.Split(text, ",") {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items
}
