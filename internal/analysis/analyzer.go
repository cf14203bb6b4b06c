// Package analysis turns raw chunk text into the normalized term sequence
// the rest of the engine indexes and queries against.
package analysis

import (
	"strings"
	"sync"
	"unicode"

	"github.com/blevesearch/snowballstem"
	"github.com/blevesearch/snowballstem/portuguese"
	"golang.org/x/text/unicode/norm"
)

const (
	// MinTermLen and MaxTermLen bound a surviving token's length in bytes,
	// measured after ASCII-lowercasing but before stemming.
	MinTermLen = 2
	MaxTermLen = 25
)

// stemmerOnce guards lazy construction of the process-wide stemmer
// state, the only piece of global state in the engine; it is stateless
// once built.
var (
	stemmerOnce sync.Once
	stemmerFn   func(*snowballstem.Env) bool
)

func initStemmer() {
	stemmerFn = portuguese.Stem
}

// Analyzer runs the fixed five-stage pipeline: transliterate, lowercase,
// split, length-filter, stem.
type Analyzer struct {
	minTermLen int
	maxTermLen int
}

// Option configures an Analyzer built by New.
type Option func(*Analyzer)

// WithTermLenBounds overrides the default surviving-token length bounds
// (internal/config's AnalysisConfig.MinTermLen/MaxTermLen).
func WithTermLenBounds(min, max int) Option {
	return func(a *Analyzer) {
		a.minTermLen = min
		a.maxTermLen = max
	}
}

// New returns an Analyzer configured with the engine's single
// process-wide stemmer (Portuguese, matching the corpus this spec was
// distilled from).
func New(opts ...Option) *Analyzer {
	stemmerOnce.Do(initStemmer)
	a := &Analyzer{minTermLen: MinTermLen, maxTermLen: MaxTermLen}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze is a pure function: the same input always yields the same
// output, and re-analyzing an already-analyzed term is a no-op beyond
// the stemmer.
func (a *Analyzer) Analyze(text string) []string {
	ascii := deromanize(text)
	lower := strings.ToLower(ascii)

	var terms []string
	start := -1
	for i, r := range lower {
		if isASCIILetter(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			terms = a.appendTerm(terms, lower[start:i])
			start = -1
		}
	}
	if start >= 0 {
		terms = a.appendTerm(terms, lower[start:])
	}
	return terms
}

func (a *Analyzer) appendTerm(terms []string, tok string) []string {
	if len(tok) < a.minTermLen || len(tok) > a.maxTermLen {
		return terms
	}
	return append(terms, stem(tok))
}

// AnalyzeArena is the batch-indexing variant: it writes every surviving
// token into the caller-provided arena instead of letting each token
// escape to the heap individually. Reusing one Arena across many chunks
// during segment building avoids per-chunk allocation churn.
func (a *Analyzer) AnalyzeArena(text string, arena *Arena) []string {
	ascii := deromanize(text)
	lower := arena.AllocString(strings.ToLower(ascii))

	var terms []string
	start := -1
	for i, r := range lower {
		if isASCIILetter(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			if tok, ok := a.stemInArena(lower[start:i], arena); ok {
				terms = append(terms, tok)
			}
			start = -1
		}
	}
	if start >= 0 {
		if tok, ok := a.stemInArena(lower[start:], arena); ok {
			terms = append(terms, tok)
		}
	}
	return terms
}

func (a *Analyzer) stemInArena(tok string, arena *Arena) (string, bool) {
	if len(tok) < a.minTermLen || len(tok) > a.maxTermLen {
		return "", false
	}
	return arena.AllocString(stem(tok)), true
}

func stem(tok string) string {
	env := snowballstem.NewEnv(tok)
	stemmerFn(env)
	return env.Current()
}

func isASCIILetter(r rune) bool {
	return r >= 'a' && r <= 'z'
}

// deromanize is a deterministic, lossy unicode-to-ASCII transliteration:
// it strips combining diacritics (NFD decomposition followed by mark
// removal), replaces the letters listed in asciiFold with their ASCII
// spellings, and otherwise passes runes through unchanged. It is not a full
// transliteration table, just the accented-Latin case the corpus
// actually contains.
func deromanize(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if repl, ok := asciiFold[r]; ok {
			b.WriteString(repl)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// asciiFold covers the precomposed Latin letters common in the corpus
// that decompose to something other than a bare ASCII letter plus mark,
// or that unicode.Is(unicode.Mn, ...) alone would miss.
var asciiFold = map[rune]string{
	'ß': "ss",
	'æ': "ae",
	'Æ': "AE",
	'œ': "oe",
	'Œ': "OE",
	'ð': "d",
	'þ': "th",
	'ø': "o",
	'Ø': "O",
	'ł': "l",
	'Ł': "L",
}
