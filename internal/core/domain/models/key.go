package models

import "strings"

// WorkKey builds the normalized dedup key for a work: folded title plus
// folded primary author name, reordered to "last, first" so that catalog
// entries and API results compare equal regardless of name order.
func WorkKey(title, author string) string {
	return fold(title) + "|" + fold(NormalizeAuthorName(author))
}

// NormalizeAuthorName converts "First Last" to "Last, First". Names that
// already contain a comma are assumed formatted. Single-word names pass
// through unchanged.
func NormalizeAuthorName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.Contains(name, ",") {
		return name
	}
	parts := strings.Fields(name)
	if len(parts) < 2 {
		return name
	}
	last := parts[len(parts)-1]
	first := strings.Join(parts[:len(parts)-1], " ")
	return last + ", " + first
}

// fold lowercases and collapses internal whitespace so cosmetic
// differences between sources do not defeat dedup.
func fold(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
