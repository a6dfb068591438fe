package speech

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Chunk splits text into pieces of at most limit runes, cutting at
// sentence boundaries where possible, then at whitespace, then anywhere.
// Whitespace between pieces is normalized to a single space.
func Chunk(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultChunkChars
	}

	var (
		chunks []string
		cur    strings.Builder
		curLen int
	)

	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, sentence := range splitSentences(text) {
		for _, piece := range splitLong(sentence, limit) {
			n := utf8.RuneCountInString(piece)
			if curLen > 0 && curLen+1+n > limit {
				flush()
			}
			if curLen > 0 {
				cur.WriteByte(' ')
				curLen++
			}
			cur.WriteString(piece)
			curLen += n
		}
	}
	flush()

	return chunks
}

// splitSentences cuts after ., ! or ? followed by whitespace and at line
// breaks. Returned sentences are trimmed and non-empty.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	emit := func(end int) {
		if s := strings.Join(strings.Fields(string(runes[start:end])), " "); s != "" {
			sentences = append(sentences, s)
		}
		start = end
	}

	for i, r := range runes {
		switch {
		case r == '\n':
			emit(i + 1)
		case r == '.' || r == '!' || r == '?':
			if i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				emit(i + 1)
			}
		}
	}
	emit(len(runes))

	return sentences
}

func splitLong(sentence string, limit int) []string {
	if utf8.RuneCountInString(sentence) <= limit {
		return []string{sentence}
	}

	var (
		pieces []string
		cur    []string
		curLen int
	)

	for _, word := range strings.Fields(sentence) {
		n := utf8.RuneCountInString(word)
		if n > limit {
			if len(cur) > 0 {
				pieces = append(pieces, strings.Join(cur, " "))
				cur, curLen = nil, 0
			}
			runes := []rune(word)
			for len(runes) > limit {
				pieces = append(pieces, string(runes[:limit]))
				runes = runes[limit:]
			}
			word, n = string(runes), len(runes)
		}

		if len(cur) > 0 && curLen+1+n > limit {
			pieces = append(pieces, strings.Join(cur, " "))
			cur, curLen = nil, 0
		}
		if len(cur) > 0 {
			curLen++
		}
		cur = append(cur, word)
		curLen += n
	}
	if len(cur) > 0 {
		pieces = append(pieces, strings.Join(cur, " "))
	}

	return pieces
}
