package catalog

import "strings"

// Corpus is a search dictionary. Sets[i] holds the distinct runes of
// Lines[i] for similarity scoring.
type Corpus struct {
	Lines []string
	Sets  []map[rune]struct{}
}

// ParseCorpus reads one entry per line, last line first.
func ParseCorpus(data []byte) Corpus {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return Corpus{}
	}
	lines := strings.Split(text, "\n")
	c := Corpus{
		Lines: make([]string, 0, len(lines)),
		Sets:  make([]map[rune]struct{}, 0, len(lines)),
	}
	for i := len(lines) - 1; i >= 0; i-- {
		c.Lines = append(c.Lines, lines[i])
		c.Sets = append(c.Sets, runeSet(lines[i]))
	}
	return c
}

// Concat returns c followed by o. Neither input is modified.
func (c Corpus) Concat(o Corpus) Corpus {
	out := Corpus{
		Lines: make([]string, 0, len(c.Lines)+len(o.Lines)),
		Sets:  make([]map[rune]struct{}, 0, len(c.Sets)+len(o.Sets)),
	}
	out.Lines = append(append(out.Lines, c.Lines...), o.Lines...)
	out.Sets = append(append(out.Sets, c.Sets...), o.Sets...)
	return out
}

func (c Corpus) Len() int { return len(c.Lines) }

func runeSet(s string) map[rune]struct{} {
	m := make(map[rune]struct{}, len(s))
	for _, r := range s {
		m[r] = struct{}{}
	}
	return m
}
