package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"portfolio/internal/logging"
	"portfolio/internal/models"
	"portfolio/internal/utils"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
	"gorm.io/gorm"
)

// BlogCacheKey prefixes every cached blog page.
const BlogCacheKey = "/blog"

// ArticleFetcher loads the full text of an item whose feed entry has none.
type ArticleFetcher interface {
	FetchArticle(ctx context.Context, pageURL string) (*Article, error)
}

// FeedImporter turns RSS/Atom items into blog posts.
type FeedImporter struct {
	db      *gorm.DB
	parser  *gofeed.Parser
	fetcher ArticleFetcher
	cache   *utils.PageCache
}

type ImportOptions struct {
	Publish bool
	Tags    []string
	Limit   int // 0 imports every item
}

type ImportResult struct {
	FeedTitle string `json:"feed_title"`
	Created   int    `json:"created"`
	Skipped   int    `json:"skipped"`
}

// NewFeedImporter fetcher and cache may be nil.
func NewFeedImporter(db *gorm.DB, fetcher ArticleFetcher, cache *utils.PageCache) *FeedImporter {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     30 * time.Second,
			MaxIdleConnsPerHost: 2,
		},
	}
	return &FeedImporter{db: db, parser: parser, fetcher: fetcher, cache: cache}
}

// Import creates one post per feed item not imported before. Items are
// matched on their link (or GUID) through Post.SourceURL.
func (f *FeedImporter) Import(ctx context.Context, feedURL string, opts ImportOptions) (*ImportResult, error) {
	logger := logging.Ctx(ctx)

	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	tags, err := FindOrCreateTags(f.db.WithContext(ctx), opts.Tags)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{FeedTitle: feed.Title}
	for i, item := range feed.Items {
		if opts.Limit > 0 && i >= opts.Limit {
			break
		}

		source := item.Link
		if source == "" {
			source = item.GUID
		}
		if source == "" {
			result.Skipped++
			continue
		}

		var exists int64
		f.db.WithContext(ctx).Model(&models.Post{}).Where("source_url = ?", source).Count(&exists)
		if exists > 0 {
			result.Skipped++
			continue
		}

		post, err := f.buildPost(ctx, item, source)
		if err != nil {
			logger.Warn().Err(err).Str("source", source).Msg("skipping feed item")
			result.Skipped++
			continue
		}
		post.Published = opts.Publish
		post.Tags = tags

		if err := f.db.WithContext(ctx).Create(post).Error; err != nil {
			logger.Error().Err(err).Str("source", source).Msg("failed to store imported post")
			result.Skipped++
			continue
		}
		result.Created++
	}

	if result.Created > 0 && f.cache != nil {
		f.cache.Revalidate(BlogCacheKey)
	}
	logger.Info().
		Str("feed", feedURL).
		Int("created", result.Created).
		Int("skipped", result.Skipped).
		Msg("feed import finished")
	return result, nil
}

func (f *FeedImporter) buildPost(ctx context.Context, item *gofeed.Item, source string) (*models.Post, error) {
	// 优先使用 content:encoded，其次是 description
	content := strings.TrimSpace(item.Content)
	if content == "" {
		content = strings.TrimSpace(item.Description)
	}
	if content == "" && f.fetcher != nil {
		article, err := f.fetcher.FetchArticle(ctx, source)
		if err != nil {
			return nil, err
		}
		content = article.Content
	}
	if content == "" {
		return nil, errors.New("item has no content")
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = utils.Excerpt(content, 60)
	}

	createdAt := time.Now()
	if item.PublishedParsed != nil {
		createdAt = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		createdAt = *item.UpdatedParsed
	}

	cover := ""
	if item.Image != nil {
		cover = item.Image.URL
	}

	slug, err := UniqueSlug(f.db.WithContext(ctx), title)
	if err != nil {
		return nil, err
	}

	src := source
	return &models.Post{
		Slug:       slug,
		Title:      title,
		Summary:    utils.Excerpt(content, 200),
		Content:    content,
		CoverImage: cover,
		SourceURL:  &src,
		CreatedAt:  createdAt,
	}, nil
}

// UniqueSlug derives a slug from title, suffixing it when already taken.
func UniqueSlug(db *gorm.DB, title string) (string, error) {
	slug := utils.Slugify(title)
	if slug == "" {
		slug = "post"
	}

	var count int64
	if err := db.Model(&models.Post{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return "", fmt.Errorf("failed to check slug: %w", err)
	}
	if count == 0 {
		return slug, nil
	}
	return slug + "-" + uuid.NewString()[:8], nil
}

// FindOrCreateTags maps tag names to rows, creating missing ones.
func FindOrCreateTags(db *gorm.DB, names []string) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(names))
	seen := make(map[string]bool)
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		var tag models.Tag
		if err := db.Where(models.Tag{Name: name}).FirstOrCreate(&tag).Error; err != nil {
			return nil, fmt.Errorf("failed to resolve tag %s: %w", name, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}
