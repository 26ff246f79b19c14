package services

import (
	"context"
	"fmt"
	"net/http"
	nurl "net/url"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

// Article is the readable part of a web page.
type Article struct {
	Title   string
	Content string // sanitized HTML
}

// CrawlerService 网页内容抓取服务
type CrawlerService struct {
	client    *http.Client
	sanitizer *bluemonday.Policy
}

// NewCrawlerService 创建抓取服务实例
func NewCrawlerService() *CrawlerService {
	return &CrawlerService{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		sanitizer: bluemonday.UGCPolicy(),
	}
}

// FetchArticle 从 URL 抓取正文内容
// 使用 go-readability 提取正文，然后用 bluemonday 清洗
func (s *CrawlerService) FetchArticle(ctx context.Context, pageURL string) (*Article, error) {
	parsed, err := nurl.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; PortfolioBot/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to extract article: %w", err)
	}

	return &Article{
		Title:   article.Title,
		Content: s.sanitizer.Sanitize(article.Content),
	}, nil
}
