// Package semantic implements the enrichment stage that attaches key
// phrases, topics, and a readability score to a chunk before it is
// persisted (spec.md §4.6). It runs inline after chunk embedding and
// before storage, never as a separate pass.
package semantic

import (
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

// maxKeyPhrases bounds how many n-gram candidates the fallback
// extractor returns per chunk.
const maxKeyPhrases = 5

var (
	wordTokenizer = unicode.NewUnicodeTokenizer()
	lowerFilter   = lowercase.NewLowerCaseFilter()
)

// stopWords is deliberately small and English-only: the fallback is a
// best-effort extractor for models that declare no native semantic
// extraction capability, not a full NLP stack.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "of": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "with": {}, "by": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {}, "being": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "it": {}, "its": {},
	"as": {}, "from": {}, "into": {}, "about": {}, "than": {}, "then": {},
	"so": {}, "not": {}, "no": {}, "can": {}, "will": {}, "would": {}, "could": {},
}

// tokenizeWords runs bleve's unicode tokenizer and lowercase filter
// over text, returning every alphanumeric token.
func tokenizeWords(text string) []string {
	stream := lowerFilter.Filter(wordTokenizer.Tokenize([]byte(text)))
	words := make([]string, 0, len(stream))
	for _, tok := range stream {
		if tok.Type != analysis.AlphaNumeric {
			continue
		}
		words = append(words, string(tok.Term))
	}
	return words
}

// contentWords filters tokenizeWords down to words likely to carry
// topical meaning: non-stopwords of at least three characters.
func contentWords(text string) []string {
	tokens := tokenizeWords(text)
	out := make([]string, 0, len(tokens))
	for _, w := range tokens {
		if _, stop := stopWords[w]; stop {
			continue
		}
		if len(w) < 3 {
			continue
		}
		out = append(out, w)
	}
	return out
}

// ExtractKeyPhrasesFallback extracts multi-word key phrases by
// bigram/trigram frequency over content words. Used when a model's
// capabilities declare it cannot run the worker's higher-quality
// extractor (spec.md §9 OQ1) -- every candidate here is at least two
// words by construction, satisfying the ">=80% multi-word" bar the
// capable-model path is held to.
func ExtractKeyPhrasesFallback(text string) []string {
	words := contentWords(text)
	if len(words) < 2 {
		return nil
	}

	freq := make(map[string]int)
	for i := 0; i+2 <= len(words); i++ {
		freq[strings.Join(words[i:i+2], " ")]++
	}
	if len(words) >= 3 {
		for i := 0; i+3 <= len(words); i++ {
			freq[strings.Join(words[i:i+3], " ")]++
		}
	}

	type candidate struct {
		phrase string
		count  int
	}
	candidates := make([]candidate, 0, len(freq))
	for p, c := range freq {
		candidates = append(candidates, candidate{p, c})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].count != candidates[j].count {
			return candidates[i].count > candidates[j].count
		}
		return candidates[i].phrase < candidates[j].phrase
	})

	out := make([]string, 0, maxKeyPhrases)
	for _, c := range candidates {
		if len(out) >= maxKeyPhrases {
			break
		}
		out = append(out, c.phrase)
	}
	return out
}
