// Package marketplace looks up products on a third-party marketplace by
// scraping its public search pages. The source is uncontrolled, so every
// failure here is soft: callers always get a usable, possibly empty, list.
package marketplace

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/anaskhan96/soup"

	"storefront-workers/internal/common/config"
	stderrors "storefront-workers/internal/common/errors"
	httpclient "storefront-workers/internal/common/http"
	"storefront-workers/internal/common/logger"
	"storefront-workers/internal/models"
)

const defaultMaxResults = 10

var ratingRe = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

// Scraper fetches and parses marketplace search result pages.
type Scraper struct {
	baseURL    string
	maxResults int
	client     *httpclient.Client
	logger     logger.Logger
}

func NewScraper(cfg config.MarketplaceConfig, log logger.Logger) *Scraper {
	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 6 * time.Second
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return &Scraper{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		maxResults: maxResults,
		client:     httpclient.NewClient(timeout).WithUserAgent("Mozilla/5.0 (compatible; storefront-workers/1.0)"),
		logger:     log,
	}
}

// Lookup searches the marketplace for the query. It never returns an error:
// network failures, bad statuses, and unparseable HTML all yield an empty
// list after a warning log.
func (s *Scraper) Lookup(ctx context.Context, query string, page int) []models.ExternalListing {
	if page < 1 {
		page = 1
	}
	target := fmt.Sprintf("%s/catalog/?q=%s&page=%d", s.baseURL, url.QueryEscape(query), page)

	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		s.warn(query, err)
		return nil
	}

	resp, err := s.client.DoWithContext(ctx, req)
	if err != nil {
		s.warn(query, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.warn(query, fmt.Errorf("marketplace responded %d", resp.StatusCode))
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.warn(query, err)
		return nil
	}

	return s.parseListings(string(body))
}

// parseListings extracts product cards from a search results page. Cards
// missing a name are skipped; every other field is optional.
func (s *Scraper) parseListings(html string) []models.ExternalListing {
	doc := soup.HTMLParse(html)
	if doc.Error != nil {
		s.logger.Warn("marketplace page not parseable", map[string]interface{}{
			"error": doc.Error.Error(),
		})
		return nil
	}

	cards := doc.FindAll("article", "class", "prd")
	listings := make([]models.ExternalListing, 0, len(cards))
	for _, card := range cards {
		if len(listings) >= s.maxResults {
			break
		}

		nameEl := card.Find("h3", "class", "name")
		if nameEl.Error != nil {
			continue
		}

		listing := models.ExternalListing{Name: strings.TrimSpace(nameEl.Text())}
		if listing.Name == "" {
			continue
		}

		if priceEl := card.Find("div", "class", "prc"); priceEl.Error == nil {
			listing.Price = strings.TrimSpace(priceEl.Text())
		}
		if ratingEl := card.Find("div", "class", "stars"); ratingEl.Error == nil {
			if m := ratingRe.FindString(ratingEl.Text()); m != "" {
				if v, err := strconv.ParseFloat(m, 64); err == nil {
					listing.Rating = v
				}
			}
		}
		if linkEl := card.Find("a", "class", "core"); linkEl.Error == nil {
			listing.Link = s.absoluteURL(linkEl.Attrs()["href"])
		}
		if imgEl := card.Find("img"); imgEl.Error == nil {
			attrs := imgEl.Attrs()
			if src := attrs["data-src"]; src != "" {
				listing.Image = src
			} else {
				listing.Image = attrs["src"]
			}
		}

		listings = append(listings, listing)
	}
	return listings
}

func (s *Scraper) absoluteURL(href string) string {
	if href == "" || strings.HasPrefix(href, "http") {
		return href
	}
	return s.baseURL + "/" + strings.TrimLeft(href, "/")
}

func (s *Scraper) warn(query string, err error) {
	stdErr := stderrors.NewMarketplaceLookupFailedError(err)
	s.logger.Warn("marketplace lookup failed, returning no results", map[string]interface{}{
		"query": query,
		"error": stdErr.Error(),
	})
}
