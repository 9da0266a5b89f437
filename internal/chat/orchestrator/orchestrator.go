// Package orchestrator ties one conversational turn together: rule-based
// analysis, prompt building, LLM dispatch, catalog search, marketplace
// fallback, and personalization. Its outer boundary never returns an error;
// every failure degrades to a well-formed assistant message.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"storefront-workers/internal/chat/analyzer"
	"storefront-workers/internal/chat/contextbuilder"
	"storefront-workers/internal/common/logger"
	"storefront-workers/internal/common/metrics"
	"storefront-workers/internal/models"
)

// ApologyMessage is the reply of last resort when the pipeline fails in a
// way we did not anticipate.
const ApologyMessage = "I'm sorry, something went wrong on my side. Please try that again in a moment."

const defaultLowStockThreshold = 2

type CatalogSearcher interface {
	Search(ctx context.Context, query string, filters models.QueryFilters) ([]models.Product, error)
}

type MarketplaceLookup interface {
	Lookup(ctx context.Context, query string, page int) []models.ExternalListing
}

type Dispatcher interface {
	Dispatch(ctx context.Context, prompt, modelOverride string) (string, error)
	IsConfigured() bool
}

type StructuredExtractor interface {
	Extract(ctx context.Context, text string) models.StructuredCategoryInfo
}

type Learner interface {
	UpdateUserLearning(ctx context.Context, user *models.UserContext, message string, analysis *models.QueryAnalysis) models.UserPreferences
}

// Orchestrator drives one conversational turn end to end.
type Orchestrator struct {
	catalog           CatalogSearcher
	marketplace       MarketplaceLookup
	dispatcher        Dispatcher
	extractor         StructuredExtractor
	learner           Learner
	builder           *contextbuilder.Builder
	extractionModel   string
	lowStockThreshold int
	logger            logger.Logger
}

type Options struct {
	Catalog           CatalogSearcher
	Marketplace       MarketplaceLookup
	Dispatcher        Dispatcher
	Extractor         StructuredExtractor
	Learner           Learner
	Builder           *contextbuilder.Builder
	LowStockThreshold int
	Logger            logger.Logger
}

func New(opts Options) *Orchestrator {
	threshold := opts.LowStockThreshold
	if threshold <= 0 {
		threshold = defaultLowStockThreshold
	}
	builder := opts.Builder
	if builder == nil {
		builder = contextbuilder.New(0, 0)
	}
	return &Orchestrator{
		catalog:           opts.Catalog,
		marketplace:       opts.Marketplace,
		dispatcher:        opts.Dispatcher,
		extractor:         opts.Extractor,
		learner:           opts.Learner,
		builder:           builder,
		lowStockThreshold: threshold,
		logger:            opts.Logger,
	}
}

// ProcessUserMessage handles one turn. A nil user means an anonymous caller:
// that path never touches the LLM and answers from catalog results alone.
// The returned message is always well formed, whatever failed underneath.
func (o *Orchestrator) ProcessUserMessage(ctx context.Context, message string, user *models.UserContext, history []models.ChatMessage) (reply models.ChatMessage) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("conversation turn panicked", map[string]interface{}{
				"panic": fmt.Sprint(r),
			})
			reply = o.assistantMessage(ApologyMessage, nil, nil, nil)
		}
	}()

	analysis := analyzer.Analyze(message)
	metrics.ConversationTurns.WithLabelValues(string(analysis.UserIntent)).Inc()

	if user == nil || o.dispatcher == nil || !o.dispatcher.IsConfigured() {
		return o.processWithoutLLM(ctx, analysis)
	}
	return o.processWithLLM(ctx, message, user, history, analysis)
}

// processWithoutLLM synthesizes a templated reply purely from the analysis
// and catalog results. It must never invoke the dispatcher.
func (o *Orchestrator) processWithoutLLM(ctx context.Context, analysis *models.QueryAnalysis) models.ChatMessage {
	switch analysis.UserIntent {
	case models.IntentGreeting:
		return o.assistantMessage("Hello! I'm your shopping assistant. Tell me what you're looking for and I'll check our catalog.", analysis, nil, nil)
	case models.IntentHelp:
		return o.assistantMessage("You can ask me for products by name, category, brand, or budget. Try something like \"HP laptops under 50,000\".", analysis, nil, nil)
	}

	if !analysis.IsProductQuery {
		return o.assistantMessage("I can help you find products in our catalog. What are you shopping for?", analysis, nil, nil)
	}

	products, external := o.searchWithFallback(ctx, analysis, analysis.Filters)
	return o.assistantMessage(templatedSearchReply(analysis, products, external), analysis, products, external)
}

func (o *Orchestrator) processWithLLM(ctx context.Context, message string, user *models.UserContext, history []models.ChatMessage, analysis *models.QueryAnalysis) models.ChatMessage {
	prompt := o.builder.BuildPrompt(user, history, message, time.Now().UTC())

	text, err := o.dispatcher.Dispatch(ctx, prompt, "")
	if err != nil {
		o.logger.Warn("LLM dispatch failed, substituting apology", map[string]interface{}{
			"error": err.Error(),
		})
		text = ApologyMessage
	}

	var products []models.Product
	var external []models.ExternalListing
	if o.shouldSearchProducts(message, text) && len(analysis.SearchTerms) > 0 {
		filters := o.enrichFilters(ctx, message, analysis.Filters)
		products, external = o.searchWithFallback(ctx, analysis, filters)
	}

	if o.learner != nil {
		o.learner.UpdateUserLearning(ctx, user, message, analysis)
	}

	return o.assistantMessage(text, analysis, products, external)
}

// shouldSearchProducts is a coarse keyword rescan over both the raw message
// and the assistant's reply. It is looser than the analyzer on purpose: it
// trades precision for recall, and it always triggers when the analyzer
// flagged a product query.
func (o *Orchestrator) shouldSearchProducts(message, reply string) bool {
	return analyzer.HasShoppingSignal(message) || analyzer.HasShoppingSignal(reply)
}

// enrichFilters fills gaps in the analyzer's filters with hints from the
// structured extraction pass. Analyzer values always win; hints only land
// where the analyzer found nothing.
func (o *Orchestrator) enrichFilters(ctx context.Context, message string, filters models.QueryFilters) models.QueryFilters {
	if o.extractor == nil {
		return filters
	}
	hints := o.extractor.Extract(ctx, message)
	if hints.IsEmpty() {
		return filters
	}

	if filters.Category == "" {
		if hints.Subcategory != nil {
			filters.Category = *hints.Subcategory
		} else if hints.MainCategory != nil {
			filters.Category = *hints.MainCategory
		}
	}
	if filters.MinPrice == nil && hints.MinPrice != nil {
		filters.MinPrice = hints.MinPrice
	}
	if filters.MaxPrice == nil && hints.MaxPrice != nil {
		filters.MaxPrice = hints.MaxPrice
	}
	return filters
}

// searchWithFallback queries the catalog and, when inventory is absent or
// nearly exhausted, sources listings from the external marketplace. The two
// result lists stay separate; they are never merged.
func (o *Orchestrator) searchWithFallback(ctx context.Context, analysis *models.QueryAnalysis, filters models.QueryFilters) ([]models.Product, []models.ExternalListing) {
	query := strings.Join(analysis.SearchTerms, " ")

	products, err := o.catalog.Search(ctx, query, filters)
	if err != nil {
		o.logger.Warn("catalog search failed", map[string]interface{}{
			"query": query,
			"error": err.Error(),
		})
		products = nil
	}

	var external []models.ExternalListing
	if o.needsFallback(products) && o.marketplace != nil {
		metrics.FallbackLookups.Inc()
		external = o.marketplace.Lookup(ctx, query, 1)
	}
	return products, external
}

// needsFallback triggers when the catalog came back empty or every hit is
// at or below the low-stock threshold.
func (o *Orchestrator) needsFallback(products []models.Product) bool {
	if len(products) == 0 {
		return true
	}
	for _, p := range products {
		if p.StockQuantity > o.lowStockThreshold {
			return false
		}
	}
	return true
}

func templatedSearchReply(analysis *models.QueryAnalysis, products []models.Product, external []models.ExternalListing) string {
	subject := analysis.Filters.Category
	if subject == "" {
		subject = strings.Join(analysis.SearchTerms, " ")
	}
	if subject == "" {
		subject = "that"
	}

	switch {
	case len(products) > 0:
		return fmt.Sprintf("I found %d %s products in our catalog. Here are the top matches.", len(products), subject)
	case len(external) > 0:
		return fmt.Sprintf("We don't currently stock %s, but I found %d options from our partner marketplace.", subject, len(external))
	default:
		return fmt.Sprintf("I couldn't find any %s products right now. Try different words or a wider price range.", subject)
	}
}

func (o *Orchestrator) assistantMessage(content string, analysis *models.QueryAnalysis, products []models.Product, external []models.ExternalListing) models.ChatMessage {
	msg := models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      models.RoleAssistant,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Analysis:  analysis,
		Products:  products,
	}
	if len(external) > 0 {
		msg.ExternalResults = external
	}
	return msg
}
