package utils

import (
	"html/template"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// EnhanceHTMLContent adds lazy loading to images and turns bare YouTube links
// into embedded players.
func EnhanceHTMLContent(htmlStr string) template.HTML {
	if htmlStr == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return template.HTML(htmlStr)
	}

	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		s.SetAttr("referrerpolicy", "no-referrer")
		s.SetAttr("loading", "lazy")
		s.SetAttr("decoding", "async")
	})

	doc.Find("p").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if !strings.HasPrefix(text, "http") || strings.Contains(text, " ") {
			return
		}
		if videoID := youTubeID(text); videoID != "" {
			s.ReplaceWithHtml(`<div class="video-container"><iframe src="https://www.youtube-nocookie.com/embed/` +
				template.HTMLEscapeString(videoID) +
				`" frameborder="0" allowfullscreen allow="accelerometer; clipboard-write; encrypted-media; gyroscope; picture-in-picture"></iframe></div>`)
		}
	})

	// goquery wraps fragments in a full document
	html, _ := doc.Find("body").Html()
	if html == "" {
		html, _ = doc.Html()
	}
	return template.HTML(html)
}

func youTubeID(link string) string {
	switch {
	case strings.Contains(link, "youtube.com/watch?v="):
		parts := strings.SplitN(link, "v=", 2)
		return strings.Split(parts[1], "&")[0]
	case strings.Contains(link, "youtu.be/"):
		parts := strings.SplitN(link, "youtu.be/", 2)
		return strings.Split(parts[1], "?")[0]
	}
	return ""
}
