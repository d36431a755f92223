package transformer

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText trims surrounding whitespace, maps non-breaking spaces to
// plain spaces, and returns the NFC form of s. Keys and labels coming from
// spreadsheets and CSV exports compare equal after normalisation even when
// one side was typed with composed and the other with decomposed accents.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return norm.NFC.String(s)
}
