// Package catalog queries the product index for the storefront's own
// inventory.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"storefront-workers/internal/common/database"
	stderrors "storefront-workers/internal/common/errors"
	"storefront-workers/internal/common/logger"
	"storefront-workers/internal/common/metrics"
	"storefront-workers/internal/models"
)

const defaultMaxResults = 20

// Searcher runs filtered full-text searches over the product index.
type Searcher struct {
	es         *database.ElasticsearchClient
	index      string
	maxResults int
	logger     logger.Logger
}

func NewSearcher(es *database.ElasticsearchClient, index string, maxResults int, log logger.Logger) *Searcher {
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return &Searcher{es: es, index: index, maxResults: maxResults, logger: log}
}

// Search returns catalog products matching the query text and filters,
// ordered by descending rating.
func (s *Searcher) Search(ctx context.Context, query string, filters models.QueryFilters) ([]models.Product, error) {
	body, err := json.Marshal(buildSearchBody(query, filters, s.maxResults))
	if err != nil {
		return nil, stderrors.NewCatalogQueryFailedError(err)
	}

	res, err := s.es.Client.Search(
		s.es.Client.Search.WithContext(ctx),
		s.es.Client.Search.WithIndex(s.index),
		s.es.Client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		metrics.CatalogSearches.WithLabelValues("error").Inc()
		return nil, stderrors.NewCatalogConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		metrics.CatalogSearches.WithLabelValues("error").Inc()
		return nil, stderrors.NewCatalogQueryFailedError(fmt.Errorf("search responded %s", res.Status()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		metrics.CatalogSearches.WithLabelValues("error").Inc()
		return nil, stderrors.NewCatalogQueryFailedError(fmt.Errorf("decode search response: %w", err))
	}

	products := make([]models.Product, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		p := hit.Source
		if p.ID == "" {
			p.ID = hit.ID
		}
		products = append(products, p)
	}

	if len(products) == 0 {
		metrics.CatalogSearches.WithLabelValues("empty").Inc()
	} else {
		metrics.CatalogSearches.WithLabelValues("hit").Inc()
	}

	s.logger.Debug("catalog search completed", map[string]interface{}{
		"query":   query,
		"results": len(products),
	})
	return products, nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string         `json:"_id"`
			Source models.Product `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// buildSearchBody translates the analyzer's filters into a bool query.
// Text relevance lives in must; hard constraints live in filter so they
// do not affect scoring.
func buildSearchBody(query string, filters models.QueryFilters, size int) map[string]interface{} {
	var must interface{}
	if query == "" {
		must = map[string]interface{}{"match_all": map[string]interface{}{}}
	} else {
		must = map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"name^3", "description^2", "category"},
			},
		}
	}

	filter := []map[string]interface{}{}
	if filters.Category != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"category": filters.Category},
		})
	}
	if filters.Brand != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"brand": filters.Brand},
		})
	}
	if filters.MinPrice != nil || filters.MaxPrice != nil {
		priceRange := map[string]interface{}{}
		if filters.MinPrice != nil {
			priceRange["gte"] = *filters.MinPrice
		}
		if filters.MaxPrice != nil {
			priceRange["lte"] = *filters.MaxPrice
		}
		filter = append(filter, map[string]interface{}{
			"range": map[string]interface{}{"price": priceRange},
		})
	}
	if filters.MinRating != nil {
		filter = append(filter, map[string]interface{}{
			"range": map[string]interface{}{"rating": map[string]interface{}{"gte": *filters.MinRating}},
		})
	}

	return map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filter,
			},
		},
		"sort": []map[string]interface{}{
			{"rating": map[string]interface{}{"order": "desc"}},
		},
	}
}
