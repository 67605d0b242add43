package keyword

import (
	"sort"
	"strings"
	"sync"
	"unicode/utf8"
)

// Suggestion is a dictionary term close to a query term.
type Suggestion struct {
	Term      string  `json:"term"`
	Distance  int     `json:"distance"`
	Frequency int     `json:"frequency"`
	Score     float64 `json:"score"`
}

// SpellCheckResult contains the result of spell checking a query.
type SpellCheckResult struct {
	OriginalQuery   string       `json:"original_query"`
	CorrectedQuery  string       `json:"corrected_query"`
	Suggestions     []Suggestion `json:"suggestions"`
	HasCorrections  bool         `json:"has_corrections"`
	MisspelledTerms []string     `json:"misspelled_terms"`
}

// SpellChecker suggests index terms for query terms that are not in the index.
type SpellChecker struct {
	dictionary     TermDictionary
	maxDistance    int
	minFreq        int
	maxSuggestions int

	mu      sync.RWMutex
	terms   []string
	termSet map[string]struct{}
	loaded  bool
}

// SpellCheckerOption is a functional option for configuring SpellChecker.
type SpellCheckerOption func(*SpellChecker)

// WithMaxDistance sets the maximum edit distance for suggestions.
func WithMaxDistance(d int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithMinFrequency sets the minimum document frequency for suggestions.
func WithMinFrequency(f int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if f >= 0 {
			s.minFreq = f
		}
	}
}

// WithMaxSuggestions sets the maximum number of suggestions per term.
func WithMaxSuggestions(n int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// NewSpellChecker creates a SpellChecker over dict.
func NewSpellChecker(dict TermDictionary, opts ...SpellCheckerOption) *SpellChecker {
	s := &SpellChecker{
		dictionary:     dict,
		maxDistance:    2,
		minFreq:        1,
		maxSuggestions: 5,
		termSet:        make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RefreshCache reloads the term list. Call it after the index changes.
func (s *SpellChecker) RefreshCache() error {
	terms, err := s.dictionary.GetAllTerms()
	if err != nil {
		return err
	}
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[strings.ToLower(t)] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.terms, s.termSet, s.loaded = terms, set, true
	return nil
}

func (s *SpellChecker) ensureLoaded() error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.RefreshCache()
}

// Check replaces every unknown query term with its best suggestion.
func (s *SpellChecker) Check(query string) (*SpellCheckResult, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}

	result := &SpellCheckResult{
		OriginalQuery:   query,
		Suggestions:     make([]Suggestion, 0),
		MisspelledTerms: make([]string, 0),
	}
	terms := tokenizeQuery(query)
	corrected := make([]string, 0, len(terms))
	for _, term := range terms {
		s.mu.RLock()
		_, known := s.termSet[term]
		s.mu.RUnlock()
		if known {
			corrected = append(corrected, term)
			continue
		}
		suggestions := s.Suggest(term)
		if len(suggestions) == 0 {
			corrected = append(corrected, term)
			continue
		}
		result.HasCorrections = true
		result.MisspelledTerms = append(result.MisspelledTerms, term)
		result.Suggestions = append(result.Suggestions, suggestions...)
		corrected = append(corrected, suggestions[0].Term)
	}
	result.CorrectedQuery = strings.Join(corrected, " ")
	return result, nil
}

// Suggest returns dictionary terms within the maximum edit distance of term,
// best first. Closer and more frequent terms score higher.
func (s *SpellChecker) Suggest(term string) []Suggestion {
	if err := s.ensureLoaded(); err != nil {
		return nil
	}
	term = strings.ToLower(term)
	termLen := utf8.RuneCountInString(term)

	s.mu.RLock()
	terms := s.terms
	s.mu.RUnlock()

	suggestions := make([]Suggestion, 0)
	for _, dictTerm := range terms {
		candidate := strings.ToLower(dictTerm)
		if candidate == term {
			continue
		}
		// length difference is a lower bound of the distance
		if diff := utf8.RuneCountInString(candidate) - termLen; diff > s.maxDistance || -diff > s.maxDistance {
			continue
		}
		distance := LevenshteinDistance(term, candidate)
		if distance > s.maxDistance {
			continue
		}
		freq, err := s.dictionary.GetTermFrequency(dictTerm)
		if err != nil || freq < s.minFreq {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Term:      dictTerm,
			Distance:  distance,
			Frequency: freq,
			Score:     float64(freq) / float64(distance+1),
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].Term < suggestions[j].Term
	})
	if len(suggestions) > s.maxSuggestions {
		suggestions = suggestions[:s.maxSuggestions]
	}
	return suggestions
}
