package feed

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"tidings/internal/model"
)

// Meta is the feed-level information extracted alongside the articles.
type Meta struct {
	Title       string
	SiteURL     string
	Description string
}

// Parse auto-detects the format from the document content (RSS 1.0,
// RSS 2.0, Atom, JSON Feed) and reduces every entry to a canonical
// Article. The declared content type and the URL extension play no
// part in detection.
func Parse(feedURL string, raw []byte) (Meta, []model.Article, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(raw))
	if err != nil {
		return Meta{}, nil, &ParseError{URL: feedURL, Err: err}
	}

	meta := Meta{
		Title:       strings.TrimSpace(parsed.Title),
		SiteURL:     strings.TrimSpace(parsed.Link),
		Description: strings.TrimSpace(parsed.Description),
	}

	now := time.Now().UTC()
	articles := make([]model.Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		articles = append(articles, toArticle(item, now))
	}
	return meta, articles, nil
}

func toArticle(item *gofeed.Item, now time.Time) model.Article {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = "Untitled"
	}

	article := model.Article{
		Key:      identityKey(item),
		Title:    title,
		CachedAt: now,
	}

	if link := firstLink(item); link != "" {
		article.Link = &link
	}
	if item.Author != nil {
		if name := strings.TrimSpace(item.Author.Name); name != "" {
			article.Author = &name
		}
	}
	if item.PublishedParsed != nil {
		t := item.PublishedParsed.UTC()
		article.PublishedAt = &t
	} else if item.UpdatedParsed != nil {
		t := item.UpdatedParsed.UTC()
		article.PublishedAt = &t
	}

	body := item.Content
	if strings.TrimSpace(body) == "" {
		body = item.Description
	}
	if summary := StripMarkup(body); summary != "" {
		article.Summary = &summary
	}

	return article
}

// firstLink returns the first usable link reference of an entry.
func firstLink(item *gofeed.Item) string {
	if link := strings.TrimSpace(item.Link); link != "" {
		return link
	}
	for _, link := range item.Links {
		if trimmed := strings.TrimSpace(link); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// identityKey derives the stable article identity: the entry GUID when
// present, the first link otherwise, and a title+timestamp hash as a
// last resort. The title is lowercased first so a capitalization change
// upstream does not fork the identity.
func identityKey(item *gofeed.Item) string {
	if guid := strings.TrimSpace(item.GUID); guid != "" {
		return guid
	}
	if link := firstLink(item); link != "" {
		return link
	}

	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(item.Title))))
	if item.PublishedParsed != nil {
		h.Write([]byte(item.PublishedParsed.UTC().Format(time.RFC3339)))
	} else if item.UpdatedParsed != nil {
		h.Write([]byte(item.UpdatedParsed.UTC().Format(time.RFC3339)))
	}
	return fmt.Sprintf("t-%016x", h.Sum64())
}
