package service

import "strings"

// wordSet is an order-preserving string set. Insertion order is kept so the
// adjacent-token pass and tie-breaking stay deterministic.
type wordSet struct {
	words []string
	index map[string]struct{}
}

func newWordSet() *wordSet {
	return &wordSet{index: make(map[string]struct{})}
}

func (s *wordSet) add(word string) {
	if _, ok := s.index[word]; ok {
		return
	}
	s.index[word] = struct{}{}
	s.words = append(s.words, word)
}

func (s *wordSet) contains(word string) bool {
	_, ok := s.index[word]
	return ok
}

// intersectionCount returns the number of words present in both sets.
func (s *wordSet) intersectionCount(other *wordSet) int {
	count := 0
	for word := range s.index {
		if other.contains(word) {
			count++
		}
	}
	return count
}

var titleDelimiters = []string{" ", "_", "-", "/", "|"}

// titleWordSet lowercases the title and splits it successively on space,
// underscore, hyphen, slash and pipe, collapsing duplicates while keeping
// first-seen order.
func titleWordSet(title string) *wordSet {
	parts := []string{strings.ToLower(title)}
	for _, delimiter := range titleDelimiters {
		var next []string
		for _, part := range parts {
			next = append(next, strings.Split(part, delimiter)...)
		}
		parts = next
	}
	set := newWordSet()
	for _, part := range parts {
		set.add(part)
	}
	return set
}

// matchableTitleWords tokenizes an assignment title for fuzzy matching.
// Beyond titleWordSet it trims trailing periods and synthesizes a
// concatenation of every pair of adjacent tokens, tolerating the common
// trainee rewrite that merges two words ("alarm clock" -> "alarmclock").
func matchableTitleWords(title string) *wordSet {
	set := titleWordSet(strings.TrimRight(title, "."))
	words := make([]string, len(set.words))
	copy(words, set.words)
	for i := 0; i+1 < len(words); i++ {
		set.add(words[i] + words[i+1])
	}
	return set
}
