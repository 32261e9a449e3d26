// Package layering derives the multi-layer content representation of a memory.
package layering

import "strings"

const (
	// Layer1Words is the summary layer token budget.
	Layer1Words = 10
	// Layer2Words is the context layer token budget.
	Layer2Words = 50
	// Layer3Chars is the detail layer character cap.
	Layer3Chars = 2000
)

// Layers holds the three progressively detailed views of one content string.
type Layers struct {
	Layer1 string
	Layer2 string
	Layer3 string
}

// Derive builds the layered representation. Deterministic and idempotent:
// the same content always yields the same layers, no external calls.
//
// Layer1 and Layer2 are the first 10 / 50 whitespace-delimited tokens joined
// with single spaces, with a trailing ellipsis iff the content had more
// tokens. Layer3 is the raw content truncated to 2000 characters, no ellipsis.
// The cap counts runes, not bytes, so multibyte content is never cut
// mid-character.
func Derive(content string) Layers {
	words := strings.Fields(content)

	layer3 := content
	if len(layer3) > Layer3Chars {
		if runes := []rune(layer3); len(runes) > Layer3Chars {
			layer3 = string(runes[:Layer3Chars])
		}
	}

	return Layers{
		Layer1: headWords(words, Layer1Words),
		Layer2: headWords(words, Layer2Words),
		Layer3: layer3,
	}
}

func headWords(words []string, n int) string {
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "..."
}
