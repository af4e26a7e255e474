package reviews

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CanonicalText applies Unicode NFC and collapses runs of whitespace
func CanonicalText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// dedupeKey is the comparison identity of (author, comment, rating)
func dedupeKey(author, comment string, rating float64) string {
	return CanonicalText(author) + "\x00" + CanonicalText(comment) + "\x00" + strconv.FormatFloat(rating, 'f', 1, 64)
}
