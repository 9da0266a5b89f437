package catalog

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-workers/internal/common/database"
	stderrors "storefront-workers/internal/common/errors"
	"storefront-workers/internal/common/logger"
	"storefront-workers/internal/models"
)

func newTestSearcher(t *testing.T, handler http.HandlerFunc) (*Searcher, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	return NewSearcher(&database.ElasticsearchClient{Client: es}, "products", 20, logger.NewTestLogger(t)), srv
}

func TestSearchParsesHits(t *testing.T) {
	searcher, _ := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/products/_search")
		w.Write([]byte(`{
			"hits": {"hits": [
				{"_id": "p1", "_source": {"name": "HP EliteBook", "category": "laptop", "brand": "hp", "price": 45000, "stock_quantity": 7, "rating": 4.6}},
				{"_id": "p2", "_source": {"id": "p2", "name": "Dell XPS", "category": "laptop", "brand": "dell", "price": 48000, "stock_quantity": 3, "rating": 4.4}}
			]}
		}`))
	})

	products, err := searcher.Search(context.Background(), "laptop", models.QueryFilters{})

	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "p1", products[0].ID)
	assert.Equal(t, "HP EliteBook", products[0].Name)
	assert.Equal(t, 7, products[0].StockQuantity)
	assert.Equal(t, "p2", products[1].ID)
}

func TestSearchSendsFiltersAndSort(t *testing.T) {
	var body map[string]interface{}
	searcher, _ := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.Write([]byte(`{"hits":{"hits":[]}}`))
	})

	minPrice, maxPrice, minRating := 30000.0, 80000.0, 4.0
	_, err := searcher.Search(context.Background(), "hp laptop", models.QueryFilters{
		Category:  "laptop",
		Brand:     "hp",
		MinPrice:  &minPrice,
		MaxPrice:  &maxPrice,
		MinRating: &minRating,
	})
	require.NoError(t, err)

	boolQuery := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	multiMatch := boolQuery["must"].(map[string]interface{})["multi_match"].(map[string]interface{})
	assert.Equal(t, "hp laptop", multiMatch["query"])

	filters := boolQuery["filter"].([]interface{})
	assert.Len(t, filters, 4)

	sorts := body["sort"].([]interface{})
	rating := sorts[0].(map[string]interface{})["rating"].(map[string]interface{})
	assert.Equal(t, "desc", rating["order"])
}

func TestSearchEmptyQueryUsesMatchAll(t *testing.T) {
	var body map[string]interface{}
	searcher, _ := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &body)
		w.Write([]byte(`{"hits":{"hits":[]}}`))
	})

	products, err := searcher.Search(context.Background(), "", models.QueryFilters{})

	require.NoError(t, err)
	assert.Empty(t, products)
	boolQuery := body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	assert.Contains(t, boolQuery["must"], "match_all")
}

func TestSearchErrorStatus(t *testing.T) {
	searcher, _ := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"reason":"shard failure"}}`))
	})

	_, err := searcher.Search(context.Background(), "laptop", models.QueryFilters{})

	require.Error(t, err)
	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeCatalogQueryFailed, stdErr.Code)
}
