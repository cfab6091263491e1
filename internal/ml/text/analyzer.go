// Package text turns raw document text into the term sequence the
// vectorizer counts.
package text

import (
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/analysis"
	"github.com/blevesearch/bleve/analysis/token/lowercase"
	"github.com/blevesearch/bleve/analysis/tokenizer/unicode"
	"golang.org/x/text/unicode/norm"
)

// MinTokenRunes is the shortest token kept; single characters carry no signal.
const MinTokenRunes = 2

// Analyzer normalizes (NFKC), segments on Unicode word boundaries and
// lowercases text. It holds no per-call state and is safe for concurrent use.
type Analyzer struct {
	tokenizer analysis.Tokenizer
	filters   []analysis.TokenFilter
}

// NewAnalyzer creates the default analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		tokenizer: unicode.NewUnicodeTokenizer(),
		filters:   []analysis.TokenFilter{lowercase.NewLowerCaseFilter()},
	}
}

// Tokens returns the word tokens of s in document order.
func (a *Analyzer) Tokens(s string) []string {
	normalized := norm.NFKC.String(s)
	stream := a.tokenizer.Tokenize([]byte(normalized))
	for _, f := range a.filters {
		stream = f.Filter(stream)
	}

	out := make([]string, 0, len(stream))
	for _, tok := range stream {
		if utf8.RuneCount(tok.Term) < MinTokenRunes {
			continue
		}
		out = append(out, string(tok.Term))
	}
	return out
}

// Terms returns all contiguous n-grams of tokens for n in [minN, maxN],
// unigrams first. N-gram parts are joined by a single space.
func Terms(tokens []string, minN, maxN int) []string {
	if minN < 1 {
		minN = 1
	}
	var out []string
	for n := minN; n <= maxN; n++ {
		if n == 1 {
			out = append(out, tokens...)
			continue
		}
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}
