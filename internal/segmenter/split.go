package segmenter

import "strings"

const terminators = ".!?"

func isTerminal(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

// Split finds complete sentences in an unfinished transcript buffer.
//
// Everything up to the last terminal punctuation mark is cut into statements,
// each keeping its terminator; a run such as "?!" or "..." ends a single
// statement. The trailing text without terminal punctuation is returned as
// the remainder. A piece that holds nothing but punctuation joins the
// statement before it, or stands alone when it opens the buffer.
func Split(buffer string) (completed []string, remainder string) {
	text := strings.TrimSpace(buffer)

	end := strings.LastIndexAny(text, terminators)
	if end < 0 {
		return nil, text
	}

	remainder = strings.TrimSpace(text[end+1:])
	head := text[:end+1]

	start := 0
	for i := 0; i < len(head); i++ {
		if !isTerminal(head[i]) {
			continue
		}
		for i+1 < len(head) && isTerminal(head[i+1]) {
			i++
		}
		piece := strings.TrimSpace(head[start : i+1])
		start = i + 1
		if piece == "" {
			continue
		}
		if n := len(completed); n > 0 && strings.Trim(piece, terminators+" \t\n") == "" {
			completed[n-1] += " " + piece
			continue
		}
		completed = append(completed, piece)
	}

	return completed, remainder
}
