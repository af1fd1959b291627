package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kurskompass/scraper/internal/config"
	"kurskompass/scraper/internal/domain"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

// QISClient fetches and parses QIS catalog pages. Fetches are strictly
// sequential: the limiter hands out one token per configured delay, so there
// is never more than one in-flight request.
type QISClient interface {
	// TreeURL builds the browse URL for a position identifier. The same rule
	// is used when reconstructing a persisted tree.
	TreeURL(rootPath string) string
	// GetCategoryPage fetches and parses the browse page of one catalog
	// node: immediate children, event-table flag and listing rows.
	GetCategoryPage(ctx context.Context, rootPath string) (*domain.CategoryPage, error)
	// GetEventDetail fetches and parses one event detail page. Callers must
	// treat an error as "no detail available", not as fatal.
	GetEventDetail(ctx context.Context, detailURL string) (*domain.EventDetail, error)
}

type qisClient struct {
	rl         ratelimit.Limiter
	config     config.QISConfig
	httpClient *resty.Client
	parser     *qisParser
}

func NewQISClient(cfg config.QISConfig) QISClient {
	httpClient := resty.New().
		SetTimeout(time.Duration(cfg.Timeout) * time.Second).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", cfg.Accept).
		SetHeader("Accept-Language", cfg.AcceptLanguage)

	delay := time.Duration(cfg.RequestDelayMS) * time.Millisecond

	return &qisClient{
		rl:         ratelimit.New(1, ratelimit.Per(delay)),
		config:     cfg,
		httpClient: httpClient,
		parser:     newQISParser(cfg.BaseURL),
	}
}

func (c *qisClient) TreeURL(rootPath string) string {
	return c.parser.treeURL(rootPath)
}

func (c *qisClient) GetCategoryPage(ctx context.Context, rootPath string) (*domain.CategoryPage, error) {
	url := c.TreeURL(rootPath)

	doc, err := c.fetchDocument(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch category page: %w", err)
	}

	page := c.parser.ParseCategoryPage(doc, rootPath)
	log.Debugf("Parsed category page %s: %d children, %d listing rows", rootPath, len(page.Children), len(page.Rows))
	return page, nil
}

func (c *qisClient) GetEventDetail(ctx context.Context, detailURL string) (*domain.EventDetail, error) {
	doc, err := c.fetchDocument(ctx, detailURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch detail page: %w", err)
	}

	detail := c.parser.ParseEventDetail(doc)
	log.Debugf("Parsed detail page %s: %d occurrences", detailURL, len(detail.Occurrences))
	return detail, nil
}

// fetchDocument performs one rate-limited GET and parses the body into a
// queryable document. Transport errors, timeouts and non-2xx statuses are
// all reported the same way: logged, then returned for the caller to skip.
func (c *qisClient) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	c.rl.Take()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		log.Errorf("Failed to fetch %s: %v", url, err)
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}

	if resp.IsError() {
		log.Errorf("Failed to fetch %s: HTTP %d", url, resp.StatusCode())
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode(), resp.Status())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return doc, nil
}
