package game

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maskRune = '_'

// fold strips diacritics and upper-cases s, so "ção" and "CAO" compare equal.
// Transformers and casers keep state, so each call builds its own.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, s)
	if err != nil {
		plain = s
	}
	return cases.Upper(language.BrazilianPortuguese).String(plain)
}

func foldRune(r rune) rune {
	f := []rune(fold(string(r)))
	if len(f) != 1 {
		return unicode.ToUpper(r)
	}
	return f[0]
}

// normalizeLetter validates a guess and returns its folded letter.
func normalizeLetter(raw string) (rune, error) {
	f := []rune(fold(strings.TrimSpace(raw)))
	if len(f) != 1 || !unicode.IsLetter(f[0]) {
		return 0, ErrInvalidLetter
	}
	return f[0], nil
}

// maskWord hides every letter of word not present in guessed. Non-letters are shown as is.
func maskWord(word string, guessed map[rune]bool) string {
	var b strings.Builder
	for _, r := range word {
		if !unicode.IsLetter(r) {
			b.WriteRune(r)
			continue
		}
		if guessed[foldRune(r)] {
			b.WriteRune(unicode.ToUpper(r))
		} else {
			b.WriteRune(maskRune)
		}
	}
	return b.String()
}

// hiddenLetters returns the distinct folded letters of word not yet guessed, sorted.
func hiddenLetters(word string, guessed map[rune]bool) []rune {
	seen := make(map[rune]bool)
	var out []rune
	for _, r := range fold(word) {
		if !unicode.IsLetter(r) || guessed[r] || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func containsLetter(word string, letter rune) bool {
	return strings.ContainsRune(fold(word), letter)
}

func letterCount(word string) int {
	n := 0
	for _, r := range word {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
