package report

import (
	"strings"
	"unicode"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffWords renders a word-level diff between two one-line payload
// renderings using wdiff-style markers: deletions as [-text-] and
// insertions as {+text+}. Equal inputs come back unmarked.
func DiffWords(previous, current string) string {
	if previous == current {
		return current
	}

	// Intern every distinct token as one rune so edits can only land on
	// token boundaries, never inside a value.
	interned := make(map[string]rune)
	var tokens []string
	encode := func(line string) []rune {
		split := tokenize(line)
		runes := make([]rune, len(split))
		for i, token := range split {
			r, ok := interned[token]
			if !ok {
				r = rune(len(tokens))
				interned[token] = r
				tokens = append(tokens, token)
			}
			runes[i] = r
		}
		return runes
	}
	prev := encode(previous)
	cur := encode(current)

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(string(prev), string(cur), false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var b strings.Builder
	for _, d := range diffs {
		var text strings.Builder
		for _, r := range d.Text {
			text.WriteString(tokens[r])
		}
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			b.WriteString(text.String())
		case diffmatchpatch.DiffDelete:
			b.WriteString("[-")
			b.WriteString(text.String())
			b.WriteString("-]")
		case diffmatchpatch.DiffInsert:
			b.WriteString("{+")
			b.WriteString(text.String())
			b.WriteString("+}")
		}
	}
	return b.String()
}

// tokenize splits a line into words, punctuation, and whitespace
// tokens. JSON renderings are punctuation-dense, so keeping each
// punctuation rune its own token aligns diffs with keys and values.
func tokenize(line string) []string {
	if line == "" {
		return nil
	}

	var tokens []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, r := range line {
		switch {
		case unicode.IsSpace(r), unicode.IsPunct(r), unicode.IsSymbol(r):
			flush()
			tokens = append(tokens, string(r))
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return tokens
}
