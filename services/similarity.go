package services

import (
	"strings"
	"unicode/utf8"
)

// Weights for the word-level similarity tiers
const (
	exactMatchScore       = 1.0
	containmentScore      = 0.9
	exactWordWeight       = 1.0
	partialWordWeight     = 0.7
	phoneticVariantWeight = 0.6
)

var punctuationStripper = strings.NewReplacer(
	"।", "", "|", "", "॥", "", "?", "", "!", "", ".", "", ",", "", ";", "", ":", "",
)

// phoneticVariants maps a canonical spelling to its common romanized variants
var phoneticVariants = map[string][]string{
	// Hindi/Urdu
	"kya":   {"kia", "kiya"},
	"hai":   {"he", "hain"},
	"aap":   {"ap", "aapko"},
	"main":  {"mai", "mein"},
	"kaise": {"kese", "kaese"},
	"haan":  {"han", "ha"},
	"nahi":  {"nahin", "nai"},
	// English
	"you":   {"u", "your"},
	"are":   {"r", "ur"},
	"what":  {"wat", "wot"},
	"how":   {"hw", "haw"},
	"hello": {"helo", "hllo"},
	"help":  {"halp", "hlp"},
}

// NormalizeText lowercases and trims s, strips sentence punctuation
// (including Devanagari danda) and collapses runs of whitespace.
func NormalizeText(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = punctuationStripper.Replace(s)
	return collapseSpaces(s)
}

func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v' {
			if !inSpace {
				b.WriteByte(' ')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

// Similarity scores how closely a matches b in [0, 1].
func Similarity(a, b string) float64 {
	na := NormalizeText(a)
	nb := NormalizeText(b)
	if na == "" || nb == "" {
		return 0
	}

	if na == nb {
		return exactMatchScore
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return containmentScore
	}

	wordsA := significantWords(na)
	wordsB := significantWords(nb)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	total := len(wordsA)
	if len(wordsB) > total {
		total = len(wordsB)
	}

	var matches float64
	for _, wa := range wordsA {
		for _, wb := range wordsB {
			if wa == wb {
				matches += exactWordWeight
				break
			}
			if strings.Contains(wa, wb) || strings.Contains(wb, wa) {
				matches += partialWordWeight
				break
			}
			if phoneticallySimilar(wa, wb) {
				matches += phoneticVariantWeight
				break
			}
		}
	}

	return matches / float64(total)
}

// significantWords splits on single spaces and drops one-character words
func significantWords(s string) []string {
	parts := strings.Split(s, " ")
	words := parts[:0]
	for _, p := range parts {
		if utf8.RuneCountInString(p) > 1 {
			words = append(words, p)
		}
	}
	return words
}

func phoneticallySimilar(a, b string) bool {
	for canonical, variants := range phoneticVariants {
		hasA := containsString(variants, a)
		hasB := containsString(variants, b)
		if (a == canonical && hasB) || (b == canonical && hasA) || (hasA && hasB) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
