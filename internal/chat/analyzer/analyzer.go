// Package analyzer implements the deterministic, rule-based pass over a raw
// user message: intent classification plus extraction of price, category,
// brand, and rating constraints. It performs no I/O.
package analyzer

import (
	"regexp"
	"strconv"
	"strings"

	"storefront-workers/internal/models"
)

const (
	baseConfidence     = 0.5
	greetingConfidence = 0.9
	helpConfidence     = 0.8
)

var (
	maxPriceRe = regexp.MustCompile(`\b(?:under|below|less(?:\s+than)?|maximum(?:\s+of)?|up\s+to)\s+(?:ksh|kes|sh)?\.?\s*(\d[\d,]*(?:\.\d+)?)`)
	minPriceRe = regexp.MustCompile(`\b(?:over|above|minimum(?:\s+of)?|from)\s+(?:ksh|kes|sh)?\.?\s*(\d[\d,]*(?:\.\d+)?)`)
	rangeRe    = regexp.MustCompile(`\bbetween\s+(?:ksh|kes|sh)?\.?\s*(\d[\d,]*(?:\.\d+)?)\s+and\s+(?:ksh|kes|sh)?\.?\s*(\d[\d,]*(?:\.\d+)?)`)
	ratingRe   = regexp.MustCompile(`(?:rating|stars?)\s*(?:of|above|over)?\s*(\d+(?:\.\d+)?)`)
)

// Analyze classifies one message and extracts structured filters from it.
// It is a pure function: identical input yields identical output.
func Analyze(text string) *models.QueryAnalysis {
	lowered := strings.ToLower(text)
	tokens := tokenize(lowered)

	analysis := &models.QueryAnalysis{
		SearchTerms:   []string{},
		Confidence:    baseConfidence,
		UserIntent:    models.IntentGeneral,
		OriginalQuery: text,
	}

	// Greeting and help are terminal: no filter extraction happens for them.
	if matchesVocab(lowered, tokens, greetingWords, greetingPhrases) {
		analysis.UserIntent = models.IntentGreeting
		analysis.Confidence = greetingConfidence
		return analysis
	}
	if matchesVocab(lowered, tokens, helpWords, helpPhrases) {
		analysis.UserIntent = models.IntentHelp
		analysis.Confidence = helpConfidence
		return analysis
	}

	// Rating phrases like "rating above 4" would otherwise satisfy the
	// min-price pattern, so the rating span is blanked before price scans.
	minRating, priceText := extractRating(lowered)

	extractPrices(priceText, analysis)
	extractCategory(lowered, tokens, analysis)
	extractBrand(lowered, tokens, analysis)
	extractProductNouns(lowered, tokens, analysis)
	if minRating != nil {
		analysis.Filters.MinRating = minRating
		analysis.Confidence += 0.1
	}

	if analysis.IsProductQuery {
		analysis.UserIntent = models.IntentShopping
		if len(analysis.SearchTerms) == 0 {
			// Nothing specific was recognized; search with the whole message.
			analysis.SearchTerms = []string{strings.TrimSpace(text)}
		}
	}

	if analysis.Confidence > 1.0 {
		analysis.Confidence = 1.0
	}

	return analysis
}

// HasShoppingSignal is the coarse, recall-oriented gate used by the dialogue
// orchestrator to decide whether a catalog search is worth running. It is
// deliberately looser than Analyze: any shopping keyword, any category/brand
// synonym, any product noun, or any price pattern triggers it. Whenever
// Analyze reports IsProductQuery, this gate also triggers.
func HasShoppingSignal(text string) bool {
	lowered := strings.ToLower(text)
	tokens := tokenize(lowered)

	for _, kw := range shoppingKeywords {
		if containsTerm(lowered, tokens, kw) {
			return true
		}
	}
	for _, entry := range categoryTable {
		for _, syn := range entry.synonyms {
			if containsTerm(lowered, tokens, syn) {
				return true
			}
		}
	}
	for _, entry := range brandTable {
		for _, kw := range entry.keywords {
			if containsTerm(lowered, tokens, kw) {
				return true
			}
		}
	}
	for _, noun := range productNouns {
		if containsTerm(lowered, tokens, noun) {
			return true
		}
	}
	return maxPriceRe.MatchString(lowered) ||
		minPriceRe.MatchString(lowered) ||
		rangeRe.MatchString(lowered)
}

func extractPrices(lowered string, analysis *models.QueryAnalysis) {
	if m := maxPriceRe.FindStringSubmatch(lowered); m != nil {
		if v, ok := parseAmount(m[1]); ok {
			analysis.Filters.MaxPrice = &v
			analysis.Confidence += 0.2
			analysis.IsProductQuery = true
		}
	}
	if m := minPriceRe.FindStringSubmatch(lowered); m != nil {
		if v, ok := parseAmount(m[1]); ok {
			analysis.Filters.MinPrice = &v
			analysis.Confidence += 0.2
			analysis.IsProductQuery = true
		}
	}
	// An explicit range overrides any single-sided bound found above.
	if m := rangeRe.FindStringSubmatch(lowered); m != nil {
		lo, okLo := parseAmount(m[1])
		hi, okHi := parseAmount(m[2])
		if okLo && okHi {
			analysis.Filters.MinPrice = &lo
			analysis.Filters.MaxPrice = &hi
			analysis.Confidence += 0.2
			analysis.IsProductQuery = true
		}
	}
}

// extractCategory resolves the first category, in table order, whose any
// synonym matches. First hit wins; there is no ranking beyond that.
func extractCategory(lowered string, tokens []string, analysis *models.QueryAnalysis) {
	for _, entry := range categoryTable {
		for _, syn := range entry.synonyms {
			if containsTerm(lowered, tokens, syn) {
				analysis.Filters.Category = entry.name
				analysis.Confidence += 0.2
				analysis.IsProductQuery = true
				return
			}
		}
	}
}

func extractBrand(lowered string, tokens []string, analysis *models.QueryAnalysis) {
	for _, entry := range brandTable {
		for _, kw := range entry.keywords {
			if containsTerm(lowered, tokens, kw) {
				analysis.Filters.Brand = entry.name
				analysis.SearchTerms = appendUnique(analysis.SearchTerms, entry.name)
				analysis.Confidence += 0.1
				analysis.IsProductQuery = true
				return
			}
		}
	}
}

func extractProductNouns(lowered string, tokens []string, analysis *models.QueryAnalysis) {
	for _, noun := range productNouns {
		if containsTerm(lowered, tokens, noun) {
			analysis.SearchTerms = appendUnique(analysis.SearchTerms, noun)
			analysis.IsProductQuery = true
		}
	}
}

// extractRating pulls a minimum rating out of the message and returns the
// text with the matched span replaced by spaces, ready for price scanning.
func extractRating(lowered string) (*float64, string) {
	idx := ratingRe.FindStringSubmatchIndex(lowered)
	if idx == nil {
		return nil, lowered
	}
	v, err := strconv.ParseFloat(lowered[idx[2]:idx[3]], 64)
	if err != nil {
		return nil, lowered
	}
	blanked := lowered[:idx[0]] + strings.Repeat(" ", idx[1]-idx[0]) + lowered[idx[1]:]
	return &v, blanked
}

func matchesVocab(lowered string, tokens []string, words, phrases []string) bool {
	for _, w := range words {
		if containsTerm(lowered, tokens, w) {
			return true
		}
	}
	for _, p := range phrases {
		if strings.Contains(lowered, p) {
			return true
		}
	}
	return false
}

// containsTerm matches phrases and longer terms by substring; terms shorter
// than four characters only match whole tokens, so "hp" never fires inside
// an unrelated word.
func containsTerm(lowered string, tokens []string, term string) bool {
	if strings.Contains(term, " ") || len(term) >= 4 {
		return strings.Contains(lowered, term)
	}
	for _, tok := range tokens {
		if tok == term {
			return true
		}
	}
	return false
}

func tokenize(lowered string) []string {
	fields := strings.Fields(lowered)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tok := strings.Trim(f, ".,!?;:()[]\"'")
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func parseAmount(raw string) (float64, bool) {
	cleaned := strings.ReplaceAll(raw, ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func appendUnique(terms []string, term string) []string {
	for _, t := range terms {
		if t == term {
			return terms
		}
	}
	return append(terms, term)
}
