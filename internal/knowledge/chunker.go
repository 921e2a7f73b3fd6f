// Package knowledge turns raw support documents into searchable knowledge:
// it slices text into overlapping chunks, synthesizes question/answer pairs
// with an LLM, and embeds both for similarity retrieval.
package knowledge

import (
	"regexp"
	"strings"
)

// paragraphSep matches blank-line paragraph boundaries, tolerating whitespace
// on the separating line.
var paragraphSep = regexp.MustCompile(`\n\s*\n`)

// SplitText slices text into chunks of roughly size characters, carrying
// overlap trailing characters from each chunk into the next so that sentences
// straddling a boundary remain retrievable. Paragraphs are packed greedily;
// a single paragraph longer than size is sliced by force. Sizes are measured
// in runes so multi-byte text never splits mid-character.
//
// A text that fits in one chunk is returned verbatim (modulo surrounding
// whitespace), with its internal paragraph breaks normalized to blank lines.
func SplitText(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if overlap >= size {
		overlap = size - 1
	}
	if overlap < 0 {
		overlap = 0
	}

	var chunks []string
	var current []rune

	for _, para := range paragraphSep.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		runes := []rune(para)

		// Oversized paragraphs cannot be packed; emit them standalone and let
		// the final slicing pass cut them down.
		if len(runes) > size {
			if len(current) > 0 {
				chunks = append(chunks, string(current))
				current = nil
			}
			chunks = append(chunks, para)
			continue
		}

		// Greedy packing: the joined form is current + "\n\n" + para. When it
		// would overflow, emit current and seed the next chunk with its tail.
		if len(current) > 0 && len(current)+2+len(runes) > size {
			chunks = append(chunks, string(current))
			current = nil
			if overlap > 0 {
				prev := []rune(chunks[len(chunks)-1])
				tail := prev
				if len(tail) > overlap {
					tail = tail[len(tail)-overlap:]
				}
				current = append(append([]rune{}, tail...), '\n')
				current = append(current, runes...)
				continue
			}
		}
		if len(current) > 0 {
			current = append(current, '\n', '\n')
		}
		current = append(current, runes...)
	}

	if len(current) > 0 {
		chunks = append(chunks, string(current))
	}

	// Final pass: anything still over size is sliced by force. This catches
	// oversized paragraphs and overlap-seeded buffers alike, so no emitted
	// chunk ever exceeds size.
	step := size - overlap
	if step < 1 {
		step = 1
	}
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		runes := []rune(c)
		if len(runes) <= size {
			out = append(out, c)
			continue
		}
		for start := 0; start < len(runes); start += step {
			end := start + size
			if end > len(runes) {
				end = len(runes)
			}
			piece := strings.TrimSpace(string(runes[start:end]))
			if piece != "" {
				out = append(out, piece)
			}
		}
	}
	return out
}
