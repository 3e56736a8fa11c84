// Package intent analyzes raw utterances into a structured record of
// intents, applications, entities, and complexity/risk scores. The analyzer
// is a pure function: no I/O, deterministic output for identical input.
package intent

import (
	"regexp"
	"sort"
	"strings"

	"github.com/hollis-dev/deskmate/pkg/models"
)

// Entities holds the surface entities extracted from an utterance.
type Entities struct {
	// Dates are date-like mentions (numeric, relative, weekday, month-day).
	Dates []string `json:"dates,omitempty"`
	// URLs are web addresses.
	URLs []string `json:"urls,omitempty"`
	// Emails are email addresses.
	Emails []string `json:"emails,omitempty"`
	// Filenames match name.ext with a 2-4 character extension.
	Filenames []string `json:"filenames,omitempty"`
	// Paths are Windows, Unix, or UNC filesystem paths.
	Paths []string `json:"paths,omitempty"`
}

// Analysis is the analyzer's output record for one utterance.
type Analysis struct {
	// Intents are the matched canonical intent keywords.
	Intents []string `json:"intents"`
	// Applications are the matched application symbols.
	Applications []string `json:"applications"`
	// Entities are extracted surface entities.
	Entities Entities `json:"entities"`
	// ActionVerbs is the intersection of tokens with the verb vocabulary.
	ActionVerbs []string `json:"action_verbs"`
	// TimeReferences are relative and absolute time mentions.
	TimeReferences []string `json:"time_references"`
	// Complexity is the scored complexity level.
	Complexity models.Complexity `json:"complexity"`
	// Risk is the scored risk level.
	Risk models.RiskLevel `json:"risk"`
	// ContextNeeds are capability tags implied by surface tokens.
	ContextNeeds []string `json:"context_needs"`
}

var (
	urlRe      = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s]+`)
	emailRe    = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	filenameRe = regexp.MustCompile(`\b[\w-]+\.[A-Za-z][A-Za-z0-9]{1,3}\b`)

	winPathRe  = regexp.MustCompile(`\b[A-Za-z]:\\[^\s]+`)
	uncPathRe  = regexp.MustCompile(`\\\\[^\s\\]+(?:\\[^\s\\]+)+`)
	unixPathRe = regexp.MustCompile(`(?:^|\s)(/[\w.-]+(?:/[\w.-]+)+/?)`)

	numericDateRe  = regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}(?:[/-]\d{2,4})?\b`)
	monthDayRe     = regexp.MustCompile(`(?i)\b(?:january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2}\b`)
	clockTimeRe    = regexp.MustCompile(`(?i)\b\d{1,2}(?::\d{2})?\s*(?:am|pm)\b|\b\d{1,2}:\d{2}\b`)
	spanRefRe      = regexp.MustCompile(`(?i)\b(?:this|next|last)\s+(?:week|month|year)\b`)
	weekdayRe      = regexp.MustCompile(`(?i)\b(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	relativeDateRe = regexp.MustCompile(`(?i)\b(?:today|tomorrow|yesterday|tonight|now)\b`)
	tokenRe        = regexp.MustCompile(`[a-z0-9']+`)
)

// Analyze extracts the full analysis record for an utterance. Matching is
// case-insensitive and substring-based over the embedded vocabulary tables.
func Analyze(utterance string) Analysis {
	lower := strings.ToLower(utterance)
	tokens := tokenSet(lower)

	a := Analysis{
		Intents:        matchTable(lower, vocab.Intents, vocab.intentKeys),
		Applications:   matchTable(lower, vocab.Applications, vocab.applicationKeys),
		ActionVerbs:    matchVerbs(tokens),
		TimeReferences: extractTimeReferences(lower),
		Complexity:     scoreComplexity(lower),
		Risk:           scoreRisk(lower),
		ContextNeeds:   matchTable(lower, vocab.ContextNeeds, vocab.contextKeys),
	}
	a.Entities = extractEntities(utterance, lower)
	return a
}

// HasIntent reports whether the analysis matched the named canonical intent.
func (a Analysis) HasIntent(name string) bool {
	for _, in := range a.Intents {
		if in == name {
			return true
		}
	}
	return false
}

// HasApplication reports whether the analysis matched the named application.
func (a Analysis) HasApplication(name string) bool {
	for _, app := range a.Applications {
		if app == name {
			return true
		}
	}
	return false
}

func tokenSet(lower string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range tokenRe.FindAllString(lower, -1) {
		set[tok] = true
	}
	return set
}

// matchTable returns the canonical keys whose synonym lists have at least one
// substring match in the utterance. Keys are visited in sorted order so the
// result is deterministic.
func matchTable(lower string, table map[string][]string, keys []string) []string {
	var matched []string
	for _, key := range keys {
		for _, syn := range table[key] {
			if strings.Contains(lower, syn) {
				matched = append(matched, key)
				break
			}
		}
	}
	return matched
}

func matchVerbs(tokens map[string]bool) []string {
	var verbs []string
	for _, v := range vocab.Verbs {
		if tokens[v] {
			verbs = append(verbs, v)
		}
	}
	sort.Strings(verbs)
	return verbs
}

func extractEntities(original, lower string) Entities {
	e := Entities{
		URLs:   urlRe.FindAllString(original, -1),
		Emails: emailRe.FindAllString(original, -1),
	}

	e.Paths = append(e.Paths, winPathRe.FindAllString(original, -1)...)
	e.Paths = append(e.Paths, uncPathRe.FindAllString(original, -1)...)
	for _, m := range unixPathRe.FindAllStringSubmatch(original, -1) {
		e.Paths = append(e.Paths, m[1])
	}

	// Filenames inside URLs, emails, or paths are not standalone filenames.
	for _, name := range filenameRe.FindAllString(original, -1) {
		if containedInAny(name, e.URLs) || containedInAny(name, e.Emails) || containedInAny(name, e.Paths) {
			continue
		}
		e.Filenames = append(e.Filenames, name)
	}

	e.Dates = append(e.Dates, numericDateRe.FindAllString(lower, -1)...)
	e.Dates = append(e.Dates, monthDayRe.FindAllString(lower, -1)...)
	e.Dates = append(e.Dates, weekdayRe.FindAllString(lower, -1)...)
	e.Dates = append(e.Dates, relativeDateRe.FindAllString(lower, -1)...)
	return e
}

func containedInAny(needle string, haystacks []string) bool {
	for _, h := range haystacks {
		if strings.Contains(h, needle) {
			return true
		}
	}
	return false
}

func extractTimeReferences(lower string) []string {
	var refs []string
	refs = append(refs, relativeDateRe.FindAllString(lower, -1)...)
	refs = append(refs, clockTimeRe.FindAllString(lower, -1)...)
	refs = append(refs, weekdayRe.FindAllString(lower, -1)...)
	refs = append(refs, spanRefRe.FindAllString(lower, -1)...)
	return refs
}

// scoreComplexity returns workflow when a connective is present; otherwise
// the level with the most indicator matches, ties resolved toward simple.
func scoreComplexity(lower string) models.Complexity {
	for _, conn := range vocab.Complexity.WorkflowConnectives {
		if strings.Contains(lower, conn) {
			return models.ComplexityWorkflow
		}
	}

	simple := countMatches(lower, vocab.Complexity.Simple)
	moderate := countMatches(lower, vocab.Complexity.Moderate)
	complexN := countMatches(lower, vocab.Complexity.Complex)

	best := models.ComplexitySimple
	bestCount := simple
	if moderate > bestCount {
		best, bestCount = models.ComplexityModerate, moderate
	}
	if complexN > bestCount {
		best = models.ComplexityComplex
	}
	return best
}

func scoreRisk(lower string) models.RiskLevel {
	if countMatches(lower, vocab.Risk.High) > 0 {
		return models.RiskHigh
	}
	if countMatches(lower, vocab.Risk.Medium) > 0 {
		return models.RiskMedium
	}
	return models.RiskLow
}

func countMatches(lower string, indicators []string) int {
	n := 0
	for _, ind := range indicators {
		if strings.Contains(lower, ind) {
			n++
		}
	}
	return n
}
