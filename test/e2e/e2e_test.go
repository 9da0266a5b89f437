// test/e2e/e2e_test.go
//
// End-to-end suite against real local services: PostgreSQL, Redis,
// Elasticsearch, and a Zeebe gateway. Gated behind STOREFRONT_E2E=1 so the
// regular unit-test run stays hermetic.
package e2e

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-workers/internal/catalog"
	"storefront-workers/internal/chat/contextbuilder"
	"storefront-workers/internal/chat/extraction"
	"storefront-workers/internal/chat/llm"
	"storefront-workers/internal/chat/orchestrator"
	"storefront-workers/internal/chat/personalization"
	"storefront-workers/internal/chathistory"
	"storefront-workers/internal/common/config"
	"storefront-workers/internal/common/database"
	"storefront-workers/internal/common/logger"
	"storefront-workers/internal/marketplace"
	"storefront-workers/internal/models"
	"storefront-workers/internal/profile"

	analyzequery "storefront-workers/internal/workers/chat/analyze-query"
	processusermessage "storefront-workers/internal/workers/chat/process-user-message"
	updateuserlearning "storefront-workers/internal/workers/personalization/update-user-learning"
)

const (
	enableVar = "STOREFRONT_E2E"
	testUser  = "e2e-user-1"
)

func requireE2E(t *testing.T) {
	t.Helper()
	if os.Getenv(enableVar) == "" {
		t.Skipf("set %s=1 to run against live services", enableVar)
	}
}

func localConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Load()
	require.NoError(t, err)

	// Always target localhost, whatever the config file says.
	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Redis.Address = "localhost:6379"
	cfg.Database.Elasticsearch.Addresses = []string{"http://localhost:9200"}
	cfg.Camunda.BrokerAddress = "localhost:26500"

	// Keep the suite off external HTTP services: no LLM credential means the
	// orchestrator stays on the templated dialogue path.
	cfg.LLM.APIKey = ""

	return cfg
}

func TestFullE2E(t *testing.T) {
	requireE2E(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg := localConfig(t)
	log := logger.NewTestLogger(t)

	pg := connectPostgres(t, cfg)
	defer pg.Close()
	rdb := connectRedis(t, cfg)
	defer rdb.Close()
	es := connectElasticsearch(t, cfg)
	checkZeebe(t, cfg)

	prepareDatabase(ctx, t, pg)
	seedProductIndex(ctx, t, es, cfg.Database.Elasticsearch.ProductIndex)

	profiles := profile.NewStore(pg, log)
	history := chathistory.NewStore(rdb, 10*time.Minute, log)
	searcher := catalog.NewSearcher(es, cfg.Database.Elasticsearch.ProductIndex, cfg.Chat.MaxCatalogResults, log)
	scraper := marketplace.NewScraper(cfg.Marketplace, log)
	dispatcher := llm.NewDispatcher(cfg.LLM, log)
	extractor := extraction.New(dispatcher, cfg.LLM.ExtractionModel, log)
	learner := personalization.NewUpdater(profiles, cfg.Chat.MaxPreferenceCategories, log)

	conversation := orchestrator.New(orchestrator.Options{
		Catalog:           searcher,
		Marketplace:       scraper,
		Dispatcher:        dispatcher,
		Extractor:         extractor,
		Learner:           learner,
		Builder:           contextbuilder.New(cfg.Chat.HistoryWindow, cfg.Chat.PreferenceSummaryCount),
		LowStockThreshold: cfg.Chat.LowStockThreshold,
		Logger:            log,
	})

	analysis := runAnalyzeQuery(t, log)
	sessionID := runConversationTurns(ctx, t, conversation, profiles, history, log)
	runLearningUpdate(ctx, t, profiles, learner, analysis, log)

	t.Logf("e2e complete, session %s", sessionID)
}

func connectPostgres(t *testing.T, cfg *config.Config) *database.PostgresClient {
	t.Helper()
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err, "postgres connection failed")
	require.NoError(t, pg.Ping(context.Background()), "postgres ping failed")
	return pg
}

func connectRedis(t *testing.T, cfg *config.Config) *database.RedisClient {
	t.Helper()
	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err, "redis client creation failed")
	require.NoError(t, rdb.Ping(context.Background()), "redis ping failed")
	return rdb
}

func connectElasticsearch(t *testing.T, cfg *config.Config) *database.ElasticsearchClient {
	t.Helper()
	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	require.NoError(t, err, "elasticsearch client creation failed")
	require.NoError(t, es.Ping(), "elasticsearch ping failed")
	return es
}

func checkZeebe(t *testing.T, cfg *config.Config) {
	t.Helper()
	client, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
	})
	require.NoError(t, err, "zeebe client creation failed")
	defer client.Close()

	_, err = client.NewTopologyCommand().Send(context.Background())
	require.NoError(t, err, "zeebe topology request failed")
}

func prepareDatabase(ctx context.Context, t *testing.T, pg *database.PostgresClient) {
	t.Helper()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(64) PRIMARY KEY,
			display_name VARCHAR(255),
			birthdate DATE,
			gender VARCHAR(32),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS user_preferences (
			user_id VARCHAR(64) PRIMARY KEY REFERENCES users(id),
			interactions INTEGER NOT NULL DEFAULT 0,
			categories JSONB NOT NULL DEFAULT '{}',
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS search_history (
			id SERIAL PRIMARY KEY,
			user_id VARCHAR(64) REFERENCES users(id),
			query TEXT NOT NULL,
			category VARCHAR(64),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS liked_items (
			id SERIAL PRIMARY KEY,
			user_id VARCHAR(64) REFERENCES users(id),
			product_name VARCHAR(255) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS cart_items (
			id SERIAL PRIMARY KEY,
			user_id VARCHAR(64) REFERENCES users(id),
			product_name VARCHAR(255) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id SERIAL PRIMARY KEY,
			user_id VARCHAR(64) REFERENCES users(id),
			product_name VARCHAR(255) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range statements {
		_, err := pg.Exec(ctx, stmt)
		require.NoError(t, err, "schema setup failed")
	}

	_, err := pg.Exec(ctx,
		`INSERT INTO users (id, display_name, birthdate, gender)
		 VALUES ($1, 'E2E Shopper', '1994-03-12', 'female')
		 ON CONFLICT (id) DO NOTHING`, testUser)
	require.NoError(t, err, "seeding test user failed")
}

func seedProductIndex(ctx context.Context, t *testing.T, es *database.ElasticsearchClient, index string) {
	t.Helper()

	doc := `{
		"name": "HP Pavilion 15 Laptop",
		"description": "15.6 inch laptop with Ryzen 5 and 16GB RAM",
		"category": "laptop",
		"brand": "hp",
		"price": 52000,
		"rating": 4.3,
		"stock": 7
	}`
	res, err := es.Client.Index(
		index,
		strings.NewReader(doc),
		es.Client.Index.WithDocumentID("e2e-product-1"),
		es.Client.Index.WithRefresh("true"),
		es.Client.Index.WithContext(ctx),
	)
	require.NoError(t, err, "indexing seed product failed")
	defer res.Body.Close()
	require.False(t, res.IsError(), "indexing seed product returned %s", res.Status())
}

func runAnalyzeQuery(t *testing.T, log logger.Logger) models.QueryAnalysis {
	t.Helper()

	handler := analyzequery.NewHandler(analyzequery.LoadConfig(), log)
	out, err := handler.Execute(&analyzequery.Input{Message: "show me hp laptops under 60000"})
	require.NoError(t, err)

	assert.Equal(t, models.IntentShopping, out.Analysis.UserIntent)
	assert.True(t, out.Analysis.IsProductQuery)
	assert.Equal(t, "laptop", out.Analysis.Filters.Category)
	require.NotNil(t, out.Analysis.Filters.MaxPrice)
	assert.InDelta(t, 60000, *out.Analysis.Filters.MaxPrice, 0.01)
	assert.True(t, out.ShoppingSignal)

	return out.Analysis
}

func runConversationTurns(ctx context.Context, t *testing.T, conversation processusermessage.Conversation, profiles *profile.Store, history *chathistory.Store, log logger.Logger) string {
	t.Helper()

	handler := processusermessage.NewHandler(processusermessage.LoadConfig(), conversation, profiles, history, log)

	first, err := handler.Execute(ctx, &processusermessage.Input{
		Message: "show me hp laptops under 60000",
		UserID:  testUser,
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.SessionID)
	assert.Equal(t, models.RoleAssistant, first.Reply.Role)
	assert.NotEmpty(t, first.Reply.Content)
	if assert.NotEmpty(t, first.Reply.Products, "seeded catalog product should match") {
		assert.Equal(t, "HP Pavilion 15 Laptop", first.Reply.Products[0].Name)
	}

	count, err := history.TurnCount(ctx, first.SessionID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count, "user and assistant turns persisted")

	second, err := handler.Execute(ctx, &processusermessage.Input{
		Message:   "hello there",
		UserID:    testUser,
		SessionID: first.SessionID,
	})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)

	count, err = history.TurnCount(ctx, first.SessionID)
	require.NoError(t, err)
	assert.EqualValues(t, 4, count)

	turns, err := history.RecentTurns(ctx, first.SessionID, 4)
	require.NoError(t, err)
	require.Len(t, turns, 4)
	assert.Equal(t, models.RoleUser, turns[0].Role)
	assert.Equal(t, "show me hp laptops under 60000", turns[0].Content)

	return first.SessionID
}

func runLearningUpdate(ctx context.Context, t *testing.T, profiles *profile.Store, learner *personalization.Updater, analysis models.QueryAnalysis, log logger.Logger) {
	t.Helper()

	before, err := profiles.GetPreferences(ctx, testUser)
	require.NoError(t, err)

	handler := updateuserlearning.NewHandler(updateuserlearning.LoadConfig(), learner, profiles, log)
	out, err := handler.Execute(ctx, &updateuserlearning.Input{
		UserID:   testUser,
		Message:  "show me hp laptops under 60000",
		Analysis: analysis,
	})
	require.NoError(t, err)

	assert.Equal(t, before.Interactions+1, out.Preferences.Interactions)
	assert.GreaterOrEqual(t, out.Preferences.Categories["laptop"], 1)

	after, err := profiles.GetPreferences(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, out.Preferences.Interactions, after.Interactions)
	assert.Equal(t, out.Preferences.Categories["laptop"], after.Categories["laptop"])
}

func TestServiceConnectivityOnly(t *testing.T) {
	requireE2E(t)

	cfg := localConfig(t)

	pg := connectPostgres(t, cfg)
	pg.Close()
	t.Log("postgres ok")

	rdb := connectRedis(t, cfg)
	rdb.Close()
	t.Log("redis ok")

	connectElasticsearch(t, cfg)
	t.Log("elasticsearch ok")

	checkZeebe(t, cfg)
	t.Log(fmt.Sprintf("zeebe ok at %s", cfg.Camunda.BrokerAddress))
}
