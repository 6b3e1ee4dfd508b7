package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	AppName    = "tidings"
	AppVersion = "0.4.2"
	AppRepo    = "tidings-feed/tidings"
)

// UserAgent identifies feed fetches made by tidings.
var UserAgent = AppName + "/" + AppVersion

// Chrome headers for TLS fingerprinting (must match azuretls Chrome profile version)
const (
	ChromeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36"
	ChromeSecChUa   = `"Google Chrome";v="135", "Chromium";v="135", "Not-A.Brand";v="8"`
)

// Feed is one subscription in the config tree. Folder is derived at
// iteration time and never serialized.
type Feed struct {
	Name   string `toml:"name"`
	URL    string `toml:"url"`
	SyncID string `toml:"sync_id,omitempty"`
	Folder string `toml:"-"`
}

// Folder groups feeds for display. Expanded is display state only.
type Folder struct {
	Name     string `toml:"name"`
	Icon     string `toml:"icon,omitempty"`
	Expanded bool   `toml:"expanded"`
	Feeds    []Feed `toml:"feeds"`
}

// Fetch holds the refresh pipeline knobs.
type Fetch struct {
	TimeoutSeconds       int    `toml:"timeout_seconds"`
	Concurrency          int    `toml:"concurrency"`
	CycleDeadlineSeconds int    `toml:"cycle_deadline_seconds"`
	ProxyURL             string `toml:"proxy_url,omitempty"`
}

// Sync identifies the remote Reader-style account. The password is
// kept in the encrypted credentials file, never here.
type Sync struct {
	Provider string `toml:"provider"`
	Server   string `toml:"server"`
	Username string `toml:"username"`
}

type Config struct {
	Folders         []Folder `toml:"folders"`
	Feeds           []Feed   `toml:"feeds"`
	RefreshInterval int      `toml:"refresh_interval"`
	DataDir         string   `toml:"data_dir,omitempty"`
	Fetch           Fetch    `toml:"fetch"`
	Sync            *Sync    `toml:"sync,omitempty"`

	path string
}

// Default returns the starter configuration written on first run.
func Default() *Config {
	return &Config{
		Folders: []Folder{
			{
				Name:     "Tech",
				Icon:     "💻",
				Expanded: true,
				Feeds: []Feed{
					{Name: "Hacker News", URL: "https://hnrss.org/frontpage"},
					{Name: "Lobsters", URL: "https://lobste.rs/rss"},
				},
			},
			{
				Name: "News",
				Icon: "📰",
				Feeds: []Feed{
					{Name: "BBC World", URL: "https://feeds.bbci.co.uk/news/world/rss.xml"},
				},
			},
		},
		RefreshInterval: 30,
		Fetch: Fetch{
			TimeoutSeconds:       30,
			Concurrency:          10,
			CycleDeadlineSeconds: 120,
		},
	}
}

// Path returns the file the configuration was loaded from or will be
// saved to.
func (c *Config) Path() string {
	return c.path
}

// Dir returns the directory holding the config file. The credentials
// file lives beside it.
func (c *Config) Dir() string {
	return filepath.Dir(c.path)
}

// ResolveDataDir returns the directory for the article database.
// Precedence: TIDINGS_DATA_DIR, then data_dir from the file, then
// a "data" directory beside the config file.
func (c *Config) ResolveDataDir() string {
	if dir := os.Getenv("TIDINGS_DATA_DIR"); dir != "" {
		return filepath.Clean(dir)
	}
	if c.DataDir != "" {
		return filepath.Clean(c.DataDir)
	}
	return filepath.Join(c.Dir(), "data")
}

// DBPath returns the SQLite database path under the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.ResolveDataDir(), "tidings.db")
}

// DefaultPath resolves the config file location. TIDINGS_CONFIG wins;
// otherwise the platform user config dir is used.
func DefaultPath() (string, error) {
	if path := os.Getenv("TIDINGS_CONFIG"); path != "" {
		return filepath.Clean(path), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(base, AppName, "config.toml"), nil
}

// Load reads the config file, creating it with defaults on first run.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config from an explicit path, creating it with
// defaults when the file does not exist.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	cfg.path = path

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
		return cfg, nil
	}

	// Decode over a zero config so the file alone defines the tree.
	loaded := &Config{path: path}
	if _, err := toml.DecodeFile(path, loaded); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyFallbacks(loaded)
	return loaded, nil
}

func applyFallbacks(cfg *Config) {
	if cfg.RefreshInterval < 0 {
		cfg.RefreshInterval = 0
	}
	if cfg.Fetch.TimeoutSeconds <= 0 {
		cfg.Fetch.TimeoutSeconds = 30
	}
	if cfg.Fetch.Concurrency <= 0 {
		cfg.Fetch.Concurrency = 10
	}
	if cfg.Fetch.CycleDeadlineSeconds <= 0 {
		cfg.Fetch.CycleDeadlineSeconds = 120
	}
}

// Save writes the config back to its path, creating directories as
// needed.
func (c *Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("save config: no path resolved")
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.Create(c.path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// AllFeeds returns every subscribed feed in fetch order: folder feeds
// first (folder by folder), then root-level feeds. Folder is set on
// the returned copies.
func (c *Config) AllFeeds() []Feed {
	var out []Feed
	for _, folder := range c.Folders {
		for _, feed := range folder.Feeds {
			feed.Folder = folder.Name
			out = append(out, feed)
		}
	}
	out = append(out, c.Feeds...)
	return out
}

// FindFeed looks a subscription up by URL.
func (c *Config) FindFeed(url string) (Feed, bool) {
	for _, feed := range c.AllFeeds() {
		if feed.URL == url {
			return feed, true
		}
	}
	return Feed{}, false
}

// AddFeed appends a subscription, creating the folder when it does not
// exist yet. An empty folder name targets the root level.
func (c *Config) AddFeed(feed Feed, folderName string) error {
	if _, exists := c.FindFeed(feed.URL); exists {
		return fmt.Errorf("feed %s already subscribed", feed.URL)
	}
	if folderName == "" {
		feed.Folder = ""
		c.Feeds = append(c.Feeds, feed)
		return nil
	}
	for i := range c.Folders {
		if c.Folders[i].Name == folderName {
			feed.Folder = folderName
			c.Folders[i].Feeds = append(c.Folders[i].Feeds, feed)
			return nil
		}
	}
	c.Folders = append(c.Folders, Folder{
		Name:     folderName,
		Expanded: true,
		Feeds:    []Feed{feed},
	})
	return nil
}

// ReplaceTree swaps the whole subscription tree for the one assembled
// from a sync pull and reports which previously subscribed feeds are
// no longer present, by URL.
func (c *Config) ReplaceTree(folders []Folder, rootFeeds []Feed) []Feed {
	before := c.AllFeeds()

	c.Folders = folders
	c.Feeds = rootFeeds

	after := make(map[string]bool, len(before))
	for _, feed := range c.AllFeeds() {
		after[feed.URL] = true
	}

	var removed []Feed
	for _, feed := range before {
		if !after[feed.URL] {
			removed = append(removed, feed)
		}
	}
	return removed
}
