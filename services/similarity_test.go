package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "kya haal hai", NormalizeText("  Kya   haal, hai?  "))
	assert.Equal(t, "namaste ji", NormalizeText("Namaste।  ji!"))
	assert.Equal(t, "", NormalizeText("?!."))
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "hello", "hello", 1.0},
		{"identical after normalization", "Hello!", "  hello ", 1.0},
		{"containment", "hello", "hello there", 0.9},
		{"reverse containment", "good morning to you", "morning", 0.9},
		{"empty left", "", "hello", 0},
		{"empty right", "hello", "", 0},
		{"only punctuation", "?!", "hello", 0},
		{"no overlap", "weather today", "pizza recipe", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSimilarity_WordTiers(t *testing.T) {
	// kya~kia phonetic (0.6), haal exact (1.0), hai~he phonetic (0.6) over 3 words
	assert.InDelta(t, 2.2/3, Similarity("kya haal hai", "kia haal he"), 1e-9)

	// "helping" contains "help" (0.7), "me" exact over 2 words
	assert.InDelta(t, 1.7/2, Similarity("help me", "me helping"), 1e-9)
}

func TestSimilarity_IgnoresSingleCharacterWords(t *testing.T) {
	// "a" is dropped, leaving one exact word out of two on the longer side
	assert.InDelta(t, 0.5, Similarity("a cat", "cat dog"), 1e-9)
}

func TestPhoneticallySimilar(t *testing.T) {
	assert.True(t, phoneticallySimilar("kya", "kiya"))
	assert.True(t, phoneticallySimilar("kiya", "kia"))
	assert.True(t, phoneticallySimilar("helo", "hello"))
	assert.False(t, phoneticallySimilar("kya", "hello"))
}
