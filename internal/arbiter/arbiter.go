// Package arbiter picks one transcription per region out of the candidates
// produced by the recognition engines.
package arbiter

import (
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/MeKo-Tech/bubbletrans/internal/engine"
	"github.com/MeKo-Tech/bubbletrans/internal/lang"
)

// Tier names the rule that decided an arbitration.
type Tier string

const (
	TierNoText     Tier = "no-text-detected"
	TierSole       Tier = "sole-candidate"
	TierNonEmpty   Tier = "non-empty"
	TierPriority   Tier = "engine-priority"
	TierLength     Tier = "text-length"
	TierConfidence Tier = "confidence"
)

// Config holds arbitration settings. Priority lists engines from most to
// least trusted; LanguagePriority overrides it per source language.
type Config struct {
	Priority         []string            `json:"priority"`
	LanguagePriority map[string][]string `json:"language_priority,omitempty"`
	AcceptanceFloor  float64             `json:"acceptance_floor"`
	LengthMargin     float64             `json:"length_margin"`
}

// DefaultConfig trusts the general engine first, except for CJK sources
// where the CJK-tuned engine leads. The fallback engine is always last.
func DefaultConfig() Config {
	cjk := []string{engine.NamePaddle, engine.NameVision, engine.NameTesseract}
	return Config{
		Priority: []string{engine.NameVision, engine.NamePaddle, engine.NameTesseract},
		LanguagePriority: map[string][]string{
			lang.Japanese: cjk,
			lang.Korean:   cjk,
			lang.Chinese:  cjk,
		},
		AcceptanceFloor: 0.5,
		LengthMargin:    0.3,
	}
}

// Validate checks thresholds.
func (c Config) Validate() error {
	if c.AcceptanceFloor < 0 || c.AcceptanceFloor > 1 {
		return fmt.Errorf("acceptance floor must be in [0,1], got %f", c.AcceptanceFloor)
	}
	if c.LengthMargin < 0 || c.LengthMargin > 1 {
		return fmt.Errorf("length margin must be in [0,1], got %f", c.LengthMargin)
	}
	return nil
}

// Result is the chosen transcription of a region.
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language,omitempty"`
	Engine     string  `json:"engine,omitempty"`
	Tier       Tier    `json:"tier"`
	NoText     bool    `json:"no_text"`
	Candidates int     `json:"candidates"`
}

// Arbiter applies the tie-break chain. It holds no mutable state.
type Arbiter struct {
	config Config
}

// New returns an Arbiter for config.
func New(config Config) *Arbiter {
	return &Arbiter{config: config}
}

// entry is a candidate with its input position and engine rank.
type entry struct {
	engine.Candidate
	pos  int
	rank int
}

// Arbitrate selects the best candidate for a region whose source language is
// language. An empty language is inferred from the script of the candidate
// texts. Tiers are applied in order and each one only sees the candidates
// still tied after the previous tier:
//
//  1. non-empty text beats empty text, whatever the engine;
//  2. engine priority, where candidates at or above the acceptance floor
//     outrank higher-priority candidates below it;
//  3. longer text, unless another candidate is more confident by more than
//     the length margin;
//  4. highest confidence, then engine rank, then input order.
func (a *Arbiter) Arbitrate(cands []engine.Candidate, language string) Result {
	if language == "" {
		language = InferLanguage(cands)
	}
	if !slices.ContainsFunc(cands, hasText) {
		return Result{Tier: TierNoText, NoText: true, Language: language, Candidates: len(cands)}
	}

	order := a.priorityFor(language)
	pool := make([]entry, len(cands))
	for i, c := range cands {
		pool[i] = entry{Candidate: c, pos: i, rank: rankOf(order, c.Engine)}
	}
	if len(pool) == 1 {
		return a.result(pool[0], TierSole, language, len(cands))
	}

	tiers := []struct {
		tier Tier
		fn   func([]entry) []entry
	}{
		{TierNonEmpty, nonEmpty},
		{TierPriority, a.byPriority},
		{TierLength, a.byLength},
	}
	for _, t := range tiers {
		pool = t.fn(pool)
		if len(pool) == 1 {
			return a.result(pool[0], t.tier, language, len(cands))
		}
	}
	return a.result(byConfidence(pool), TierConfidence, language, len(cands))
}

func (a *Arbiter) result(e entry, tier Tier, language string, n int) Result {
	if e.Language != "" {
		language = e.Language
	}
	return Result{
		Text:       e.Text,
		Confidence: e.Confidence,
		Language:   language,
		Engine:     e.Engine,
		Tier:       tier,
		Candidates: n,
	}
}

// InferLanguage guesses the source language from the candidate texts. A CJK
// guess wins over any other so the CJK-tuned engine order applies to mixed
// reads. Returns "" when no candidate has letters.
func InferLanguage(cands []engine.Candidate) string {
	var guesses []string
	for _, c := range cands {
		if g := lang.DetectScript(c.Text); g != "" {
			guesses = append(guesses, g)
		}
	}
	if lang.AnyCJK(guesses) {
		i := slices.IndexFunc(guesses, lang.IsCJK)
		return guesses[i]
	}
	if len(guesses) > 0 {
		return guesses[0]
	}
	return ""
}

func hasText(c engine.Candidate) bool { return c.Text != "" }

func (a *Arbiter) priorityFor(language string) []string {
	if order, ok := a.config.LanguagePriority[lang.Normalize(language)]; ok && len(order) > 0 {
		return order
	}
	return a.config.Priority
}

// rankOf returns the engine's position in order; unlisted engines rank last.
func rankOf(order []string, name string) int {
	for i, n := range order {
		if n == name {
			return i
		}
	}
	return len(order)
}

// nonEmpty drops empty texts. Callers guarantee at least one non-empty entry.
func nonEmpty(pool []entry) []entry {
	var out []entry
	for _, e := range pool {
		if e.Text != "" {
			out = append(out, e)
		}
	}
	return out
}

// byPriority keeps the best-ranked engine's candidates. When any candidate
// reaches the acceptance floor, only those candidates compete.
func (a *Arbiter) byPriority(pool []entry) []entry {
	consider := pool
	var accepted []entry
	for _, e := range pool {
		if e.Confidence >= a.config.AcceptanceFloor {
			accepted = append(accepted, e)
		}
	}
	if len(accepted) > 0 {
		consider = accepted
	}

	best := consider[0].rank
	for _, e := range consider[1:] {
		best = min(best, e.rank)
	}
	var out []entry
	for _, e := range consider {
		if e.rank == best {
			out = append(out, e)
		}
	}
	return out
}

// byLength keeps the longest texts unless some candidate beats all of them
// on confidence by more than the margin, in which case the pool is returned
// unchanged for the confidence tier.
func (a *Arbiter) byLength(pool []entry) []entry {
	longest := 0
	maxConf := 0.0
	for _, e := range pool {
		longest = max(longest, utf8.RuneCountInString(e.Text))
		maxConf = max(maxConf, e.Confidence)
	}

	var long []entry
	longConf := 0.0
	for _, e := range pool {
		if utf8.RuneCountInString(e.Text) == longest {
			long = append(long, e)
			longConf = max(longConf, e.Confidence)
		}
	}
	if maxConf-longConf > a.config.LengthMargin {
		return pool
	}
	return long
}

func byConfidence(pool []entry) entry {
	best := pool[0]
	for _, e := range pool[1:] {
		switch {
		case e.Confidence > best.Confidence:
			best = e
		case e.Confidence == best.Confidence && e.rank < best.rank:
			best = e
		case e.Confidence == best.Confidence && e.rank == best.rank && e.pos < best.pos:
			best = e
		}
	}
	return best
}
