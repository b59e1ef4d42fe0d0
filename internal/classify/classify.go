// Package classify scores complaint text against a fixed keyword vocabulary
// to suggest a category, department, priority, sentiment, and urgency.
//
// Classification is deterministic: the same Config and input always produce
// the same Result. A Classifier holds no mutable state and is safe for
// concurrent use.
package classify

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/civicdesk/grievance-desk/internal/model"
)

const (
	// confidenceSaturation is the category score at which confidence reaches 1.
	confidenceSaturation = 5

	simpleMaxWords  = 30
	complexMinWords = 150
	complexMinCats  = 3

	minUrgency = 1
	maxUrgency = 10
)

// Result is the outcome of classifying one complaint.
type Result struct {
	Category   string           `json:"category"`
	Department string           `json:"suggestedDepartment"`
	Priority   model.Priority   `json:"priority"`
	Sentiment  model.Sentiment  `json:"sentiment"`
	Urgency    int              `json:"urgency"`
	Complexity model.Complexity `json:"complexity"`
	Keywords   []string         `json:"keywords"`
	Tags       []string         `json:"tags"`
	Confidence float64          `json:"confidence"`
}

type term struct {
	word string
	re   *regexp.Regexp
}

type category struct {
	name       string
	department string
	terms      []term
}

// Classifier scores text against a compiled copy of a Config.
type Classifier struct {
	categories []category
	urgent     []term
	high       []term
	low        []term
	positive   []term
	negative   []term

	// vocabulary in declaration order, deduplicated, for keyword extraction
	vocabulary []term
}

// New compiles cfg into a Classifier. Later changes to cfg have no effect.
func New(cfg Config) (*Classifier, error) {
	c := &Classifier{}
	seenCat := make(map[string]bool)
	seenWord := make(map[string]bool)

	compile := func(words []string) ([]term, error) {
		out := make([]term, 0, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w == "" {
				return nil, fmt.Errorf("empty keyword")
			}
			re, err := regexp.Compile(`\b` + regexp.QuoteMeta(w) + `\b`)
			if err != nil {
				return nil, fmt.Errorf("compiling keyword %q: %w", w, err)
			}
			t := term{word: w, re: re}
			out = append(out, t)
			if !seenWord[w] {
				seenWord[w] = true
				c.vocabulary = append(c.vocabulary, t)
			}
		}
		return out, nil
	}

	for _, cat := range cfg.Categories {
		if cat.Name == "" {
			return nil, fmt.Errorf("category with empty name")
		}
		if seenCat[cat.Name] {
			return nil, fmt.Errorf("duplicate category %q", cat.Name)
		}
		seenCat[cat.Name] = true
		terms, err := compile(cat.Keywords)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", cat.Name, err)
		}
		c.categories = append(c.categories, category{name: cat.Name, department: cat.Department, terms: terms})
	}

	var err error
	if c.urgent, err = compile(cfg.Urgent); err != nil {
		return nil, fmt.Errorf("urgent keywords: %w", err)
	}
	if c.high, err = compile(cfg.High); err != nil {
		return nil, fmt.Errorf("high keywords: %w", err)
	}
	if c.low, err = compile(cfg.Low); err != nil {
		return nil, fmt.Errorf("low keywords: %w", err)
	}
	if c.positive, err = compile(cfg.Positive); err != nil {
		return nil, fmt.Errorf("positive keywords: %w", err)
	}
	if c.negative, err = compile(cfg.Negative); err != nil {
		return nil, fmt.Errorf("negative keywords: %w", err)
	}
	return c, nil
}

// Default returns a Classifier over DefaultConfig.
func Default() *Classifier {
	c, err := New(DefaultConfig())
	if err != nil {
		panic("classify: built-in vocabulary: " + err.Error())
	}
	return c
}

// Classify scores title and description. It never fails; empty input yields
// a Medium, neutral classification with zero confidence.
func (c *Classifier) Classify(title, description string) Result {
	text := strings.ToLower(strings.TrimSpace(strings.TrimSpace(title) + " " + strings.TrimSpace(description)))

	res := Result{
		Priority:   model.PriorityMedium,
		Sentiment:  model.SentimentNeutral,
		Urgency:    minUrgency,
		Complexity: model.ComplexitySimple,
		Keywords:   []string{},
		Tags:       []string{},
	}
	if text == "" {
		return res
	}

	best, bestScore, scoring := -1, 0, 0
	for i, cat := range c.categories {
		score := countAll(text, cat.terms)
		if score == 0 {
			continue
		}
		scoring++
		res.Tags = append(res.Tags, cat.name)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best >= 0 {
		res.Category = c.categories[best].name
		res.Department = c.categories[best].department
	}
	res.Confidence = round2(math.Min(float64(bestScore)/confidenceSaturation, 1))

	urgent, high := countAll(text, c.urgent), countAll(text, c.high)
	switch {
	case urgent > 0:
		res.Priority = model.PriorityCritical
		res.Tags = append(res.Tags, "urgent")
	case high > 0:
		res.Priority = model.PriorityHigh
	case countAll(text, c.low) > 0:
		res.Priority = model.PriorityLow
	}
	res.Urgency = urgency(urgent, high)

	pos, neg := countAll(text, c.positive), countAll(text, c.negative)
	switch {
	case pos > neg:
		res.Sentiment = model.SentimentPositive
	case neg > pos:
		res.Sentiment = model.SentimentNegative
	}

	words := len(strings.Fields(text))
	switch {
	case words > complexMinWords || scoring >= complexMinCats:
		res.Complexity = model.ComplexityComplex
	case words < simpleMaxWords && scoring <= 1:
		res.Complexity = model.ComplexitySimple
	default:
		res.Complexity = model.ComplexityModerate
	}

	res.Keywords = c.keywords(text)
	return res
}

// keywords returns matched vocabulary terms ordered by first occurrence.
func (c *Classifier) keywords(text string) []string {
	type hit struct {
		word string
		pos  int
	}
	var hits []hit
	for _, t := range c.vocabulary {
		if loc := t.re.FindStringIndex(text); loc != nil {
			hits = append(hits, hit{word: t.word, pos: loc[0]})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.word
	}
	return out
}

func countAll(text string, terms []term) int {
	n := 0
	for _, t := range terms {
		n += len(t.re.FindAllStringIndex(text, -1))
	}
	return n
}

// urgency maps urgent and high keyword hits onto 1..10.
func urgency(urgent, high int) int {
	u := minUrgency + 3*urgent + 2*high
	if urgent > 0 && u < 7 {
		u = 7
	}
	if u > maxUrgency {
		u = maxUrgency
	}
	return u
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
