// Package resolver maps free-text entity mentions back to canonical entity
// identifiers by approximate label matching.
package resolver

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/brunobiangulo/gosquit/bank"
)

// ErrNoMatch is returned when no label scores at or above the cutoff.
var ErrNoMatch = errors.New("resolver: no match above cutoff")

// DefaultCutoff is the minimum similarity score, out of 100, for a match.
const DefaultCutoff = 80.0

// Options configures a Resolver.
type Options struct {
	// Cutoff is the minimum score in [0, 100]. Zero means DefaultCutoff.
	Cutoff float64
	Logger *zap.Logger
}

// Match is a resolved mention.
type Match struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Unresolved is a mention ResolveText could not resolve.
type Unresolved struct {
	Mention string `json:"mention"`
	Reason  string `json:"reason"`
}

// Resolver holds a label to identifier index. It is read-only after New and
// safe for concurrent use.
type Resolver struct {
	ids       map[string]string
	labels    []string
	processed []string
	cutoff    float64
	log       *zap.Logger
}

// New indexes every label of every entity. When two records share a label
// the later record's identifier wins; label order is first-seen order.
func New(entities []bank.Entity, opts Options) *Resolver {
	if opts.Cutoff <= 0 {
		opts.Cutoff = DefaultCutoff
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	r := &Resolver{
		ids:    make(map[string]string),
		cutoff: opts.Cutoff,
		log:    opts.Logger.Named("resolver"),
	}
	for _, e := range entities {
		id := e.ID()
		for _, label := range e.Labels {
			if _, ok := r.ids[label]; !ok {
				r.labels = append(r.labels, label)
				r.processed = append(r.processed, process(label))
			}
			r.ids[label] = id
		}
	}
	return r
}

// Len returns the number of distinct labels.
func (r *Resolver) Len() int {
	return len(r.labels)
}

// Cutoff returns the minimum match score.
func (r *Resolver) Cutoff() float64 {
	return r.cutoff
}

// ResolveOne returns the best-scoring label for mention. Ties keep the
// earliest label.
func (r *Resolver) ResolveOne(mention string) (Match, error) {
	q := process(mention)
	best, bestScore := -1, -1.0
	if q != "" {
		for i, label := range r.processed {
			s := Ratio(q, label)
			if s > bestScore {
				best, bestScore = i, s
				if s == 100 {
					break
				}
			}
		}
	}
	if best < 0 || bestScore < r.cutoff {
		return Match{}, fmt.Errorf("resolver.ResolveOne: [%s]: %w", mention, ErrNoMatch)
	}
	label := r.labels[best]
	return Match{ID: r.ids[label], Label: label, Score: bestScore}, nil
}

var mentionPattern = regexp.MustCompile(`\[(.*?)\]`)

// ResolveText replaces every bracketed mention in text with wd:<ID>.
// Mentions that cannot be resolved are left in place, logged and returned;
// the rest of the text is still resolved.
func (r *Resolver) ResolveText(text string) (string, []Unresolved) {
	var failed []Unresolved
	out := mentionPattern.ReplaceAllStringFunc(text, func(m string) string {
		mention := m[1 : len(m)-1]
		match, err := r.ResolveOne(mention)
		if err != nil {
			r.log.Warn("unresolved mention", zap.String("mention", mention), zap.Error(err))
			failed = append(failed, Unresolved{Mention: mention, Reason: err.Error()})
			return m
		}
		return "wd:" + match.ID
	})
	return out, failed
}

// process lower-cases s, turns every non-alphanumeric rune into a space and
// trims the ends.
func process(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s))
}

// Ratio is the normalised indel similarity of a and b in [0, 100]:
// 200 * LCS(a, b) / (len(a) + len(b)), measured in runes. Two empty strings
// score 100.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	return 200 * float64(lcs(ra, rb)) / float64(total)
}

// lcs is the longest common subsequence length, two rows at a time.
func lcs(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else {
				cur[j] = max(prev[j], cur[j-1])
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
