package feed_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tidings/internal/feed"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example Feed</title>
  <link>https://example.com</link>
  <description>An example feed</description>
  <item>
    <title>First Post</title>
    <link>https://example.com/posts/1</link>
    <guid>https://example.com/posts/1</guid>
    <pubDate>Mon, 02 Mar 2026 10:00:00 +0000</pubDate>
    <description>&lt;p&gt;Hello &amp;amp; welcome&lt;/p&gt;</description>
  </item>
  <item>
    <link>https://example.com/posts/2</link>
  </item>
</channel>
</rss>`

const sampleAtom = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Example</title>
  <link href="https://atom.example.org/"/>
  <id>urn:uuid:60a76c80-d399-11d9-b93C-0003939e0af6</id>
  <updated>2026-02-10T18:30:02Z</updated>
  <entry>
    <title>Atom Entry</title>
    <link href="https://atom.example.org/entries/1"/>
    <id>urn:uuid:1225c695-cfb8-4ebb-aaaa-80da344efa6a</id>
    <updated>2026-02-10T18:30:02Z</updated>
    <summary>Entry body</summary>
  </entry>
</feed>`

const sampleJSONFeed = `{
  "version": "https://jsonfeed.org/version/1.1",
  "title": "JSON Example",
  "home_page_url": "https://json.example.org/",
  "items": [
    {
      "id": "item-1",
      "url": "https://json.example.org/one",
      "title": "JSON Entry",
      "content_html": "<p>json body</p>",
      "date_published": "2026-01-15T09:00:00Z"
    }
  ]
}`

func TestParse_RSS(t *testing.T) {
	meta, articles, err := feed.Parse("https://example.com/rss", []byte(sampleRSS))
	require.NoError(t, err)
	require.Equal(t, "Example Feed", meta.Title)
	require.Equal(t, "https://example.com", meta.SiteURL)
	require.Len(t, articles, 2)

	first := articles[0]
	require.Equal(t, "First Post", first.Title)
	require.Equal(t, "https://example.com/posts/1", first.Key)
	require.NotNil(t, first.Link)
	require.Equal(t, "https://example.com/posts/1", *first.Link)
	require.NotNil(t, first.PublishedAt)
	require.Equal(t, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), first.PublishedAt.UTC())
	require.NotNil(t, first.Summary)
	require.Equal(t, "Hello & welcome", *first.Summary)
	require.False(t, first.Read)
}

func TestParse_MissingTitleGetsPlaceholder(t *testing.T) {
	_, articles, err := feed.Parse("https://example.com/rss", []byte(sampleRSS))
	require.NoError(t, err)

	second := articles[1]
	require.Equal(t, "Untitled", second.Title)
	require.Nil(t, second.PublishedAt, "missing timestamps stay null, never a fabricated now")
}

func TestParse_AtomUpdatedFallback(t *testing.T) {
	meta, articles, err := feed.Parse("https://atom.example.org/feed", []byte(sampleAtom))
	require.NoError(t, err)
	require.Equal(t, "Atom Example", meta.Title)
	require.Len(t, articles, 1)

	entry := articles[0]
	// No published element: the updated timestamp fills in.
	require.NotNil(t, entry.PublishedAt)
	require.Equal(t, time.Date(2026, 2, 10, 18, 30, 2, 0, time.UTC), entry.PublishedAt.UTC())
	require.Equal(t, "urn:uuid:1225c695-cfb8-4ebb-aaaa-80da344efa6a", entry.Key)
}

func TestParse_JSONFeed(t *testing.T) {
	meta, articles, err := feed.Parse("https://json.example.org/feed.json", []byte(sampleJSONFeed))
	require.NoError(t, err)
	require.Equal(t, "JSON Example", meta.Title)
	require.Len(t, articles, 1)
	require.Equal(t, "JSON Entry", articles[0].Title)
	require.Equal(t, "item-1", articles[0].Key)
	require.NotNil(t, articles[0].Summary)
	require.Equal(t, "json body", *articles[0].Summary)
}

func TestParse_NotAFeed(t *testing.T) {
	_, _, err := feed.Parse("https://example.com/page", []byte("<html><body>not a feed</body></html>"))
	require.Error(t, err)

	var parseErr *feed.ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "https://example.com/page", parseErr.URL)
}

func TestParse_IdentityPrefersGUIDOverLink(t *testing.T) {
	const rss = `<?xml version="1.0"?><rss version="2.0"><channel><title>T</title>
<item><title>A</title><link>https://example.com/a</link><guid isPermaLink="false">stable-guid-a</guid></item>
</channel></rss>`

	_, articles, err := feed.Parse("u", []byte(rss))
	require.NoError(t, err)
	require.Equal(t, "stable-guid-a", articles[0].Key)
}

func TestParse_IdentityTitleHashIgnoresCase(t *testing.T) {
	const tmpl = `<?xml version="1.0"?><rss version="2.0"><channel><title>T</title>
<item><title>%s</title><pubDate>Mon, 02 Mar 2026 10:00:00 +0000</pubDate></item>
</channel></rss>`

	_, lower, err := feed.Parse("u", []byte(fmt.Sprintf(tmpl, "breaking news")))
	require.NoError(t, err)
	_, upper, err := feed.Parse("u", []byte(fmt.Sprintf(tmpl, "Breaking News")))
	require.NoError(t, err)

	// No guid and no link: identity falls back to a title+timestamp
	// hash that must not change with title capitalization.
	require.Equal(t, lower[0].Key, upper[0].Key)
}
