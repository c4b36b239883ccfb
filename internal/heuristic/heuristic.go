// Package heuristic holds the local fallback paths used when the backend
// extraction/retrieval service is unreachable: a deterministic first-person
// pattern matcher and a keyword search over stored facts. Both are pure
// functions so they can be tested without network or storage.
package heuristic

import (
	"regexp"
	"strings"

	"github.com/crosstalk-ai/crosstalk/internal/platform"
)

// FallbackConfidence is assigned to every heuristically extracted fact.
// The patterns are shallow, so the score stays deliberately low.
const FallbackConfidence = 0.5

// maxSearchResults caps the keyword-search fallback. The backend path
// returns up to 5 ranked results; the last-resort local path returns fewer.
const maxSearchResults = 3

// minTokenLen: query tokens this short ("a", "the", "is") are ignored
// entirely by the keyword search.
const minTokenLen = 3

// First-person preference and identity statements. Matching runs over the
// lowercased text, end of match bounded by sentence punctuation.
var preferencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`i (?:like|love|prefer|enjoy) ([^.,!?]+)`),
	regexp.MustCompile(`i am (a |an )?([^.,!?]+)`),
	regexp.MustCompile(`my (?:favorite|favourite) ([^.,!?]+) is ([^.,!?]+)`),
}

// ExtractFacts scans one turn for first-person preference/identity
// statements and returns one low-confidence fact per match. Deterministic
// and side-effect free.
func ExtractFacts(turn platform.Turn) []platform.Fact {
	text := strings.ToLower(turn.Text)

	var facts []platform.Fact
	for _, pattern := range preferencePatterns {
		for _, match := range pattern.FindAllString(text, -1) {
			facts = append(facts, platform.Fact{
				Text:       match,
				Category:   "preference",
				Confidence: FallbackConfidence,
				Platform:   turn.Platform,
				Timestamp:  turn.Timestamp,
			})
		}
	}
	return facts
}

// SearchFacts is the retrieval fallback: a case-insensitive keyword match
// over all stored facts. Facts from the origin platform are excluded: a
// platform is never shown its own data back. Query tokens of length <=
// minTokenLen are ignored. Results keep the store's natural order (first
// match wins, no ranking) and are capped at maxSearchResults.
func SearchFacts(query string, origin platform.Platform, facts []platform.Fact) []string {
	var tokens []string
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		if len(tok) > minTokenLen {
			tokens = append(tokens, tok)
		}
	}
	if len(tokens) == 0 {
		return nil
	}

	var matched []string
	for _, fact := range facts {
		if fact.Platform == origin {
			continue
		}
		factText := strings.ToLower(fact.Text)
		for _, tok := range tokens {
			if strings.Contains(factText, tok) {
				matched = append(matched, fact.Text)
				break
			}
		}
		if len(matched) == maxSearchResults {
			break
		}
	}
	return matched
}
