package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"portfolio/internal/db"
	"portfolio/internal/models"
	"portfolio/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel>
  <title>Notes</title>
  <item>
    <title>First Post</title>
    <link>%[1]s/first</link>
    <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
    <content:encoded><![CDATA[<p>Hello <strong>feed</strong></p>]]></content:encoded>
  </item>
  <item>
    <title>Link Only</title>
    <link>%[1]s/second</link>
  </item>
  <item>
    <title>Broken</title>
    <link>%[1]s/broken</link>
  </item>
</channel>
</rss>`

type fakeFetcher struct{}

func (fakeFetcher) FetchArticle(_ context.Context, pageURL string) (*Article, error) {
	if strings.HasSuffix(pageURL, "/broken") {
		return nil, errors.New("boom")
	}
	return &Article{Title: "Link Only", Content: "<p>fetched body</p>"}, nil
}

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, testFeed, srv.URL)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestImportFeed(t *testing.T) {
	conn := db.OpenTest(t)
	cache, err := utils.NewPageCache(8)
	require.NoError(t, err)
	cache.Set(BlogCacheKey+"?page=1", "stale", time.Hour)

	srv := newFeedServer(t)
	importer := NewFeedImporter(conn, fakeFetcher{}, cache)

	res, err := importer.Import(context.Background(), srv.URL, ImportOptions{Publish: true, Tags: []string{"Go", "imported", "go"}})
	require.NoError(t, err)
	assert.Equal(t, "Notes", res.FeedTitle)
	assert.Equal(t, 2, res.Created)
	assert.Equal(t, 1, res.Skipped)

	var first models.Post
	require.NoError(t, conn.Preload("Tags").Where("slug = ?", "first-post").Take(&first).Error)
	assert.True(t, first.Published)
	assert.Equal(t, "Hello feed", first.Summary)
	assert.Equal(t, 2006, first.CreatedAt.Year())
	assert.Len(t, first.Tags, 2)

	var second models.Post
	require.NoError(t, conn.Where("slug = ?", "link-only").Take(&second).Error)
	assert.Contains(t, second.Content, "fetched body")

	assert.Nil(t, cache.Get(BlogCacheKey+"?page=1"))

	res, err = importer.Import(context.Background(), srv.URL, ImportOptions{})
	require.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.Equal(t, 3, res.Skipped)
}

func TestUniqueSlug(t *testing.T) {
	conn := db.OpenTest(t)
	require.NoError(t, conn.Create(&models.Post{Slug: "hello", Title: "Hello"}).Error)

	slug, err := UniqueSlug(conn, "Hello")
	require.NoError(t, err)
	assert.NotEqual(t, "hello", slug)
	assert.Regexp(t, `^hello-[0-9a-f]{8}$`, slug)

	slug, err = UniqueSlug(conn, "???")
	require.NoError(t, err)
	assert.Equal(t, "post", slug)
}
