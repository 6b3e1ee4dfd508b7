// Package cli assembles the tidings command tree.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"

	"tidings/internal/cache"
	"tidings/internal/config"
	"tidings/internal/credentials"
	"tidings/internal/db"
	"tidings/internal/feed"
	"tidings/internal/logger"
	"tidings/internal/network"
	"tidings/internal/repository"
	"tidings/internal/service"
	"tidings/internal/snowflake"
)

func App() *cli.App {
	return &cli.App{
		Name:  config.AppName,
		Usage: "An offline-first feed reader that syncs with Reader-style servers",
		Description: `Tidings keeps your RSS, Atom and JSON Feed subscriptions in a local
article cache so reading works offline, and synchronizes read state
with any Google Reader compatible server (FreshRSS, Miniflux, ...).

Flags can generally be set via environment variables, e.g.:

--config => TIDINGS_CONFIG=~/.config/tidings/config.toml
--log-level => TIDINGS_LOG_LEVEL=debug
`,
		Version: config.AppVersion,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the config file",
				EnvVars: []string{"TIDINGS_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "Log level: debug, info, warn or error",
				EnvVars: []string{"TIDINGS_LOG_LEVEL"},
			},
		},
		Before: func(ctx *cli.Context) error {
			logger.Init(logger.ParseLevel(ctx.String("log-level")))
			return nil
		},
		Commands: []*cli.Command{
			refreshCmd(),
			addCmd(),
			feedsCmd(),
			itemsCmd(),
			markCmd(),
			readCmd(),
			syncCmd(),
			loginCmd(),
			logoutCmd(),
			watchCmd(),
			versionCmd(),
		},
		Action: func(ctx *cli.Context) error {
			return cli.ShowAppHelp(ctx)
		},
	}
}

// runtime is the wired application core behind every command.
type runtime struct {
	cfg      *config.Config
	database *sql.DB
	store    *cache.Store
	clients  *network.ClientFactory
	queue    *service.PendingQueue
	refresh  service.RefreshService
	articles service.ArticleService
	feeds    service.FeedService
	content  service.ContentService
	sync     service.SyncService
}

func openRuntime(ctx *cli.Context) (*runtime, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	if err := snowflake.Init(1); err != nil {
		return nil, fmt.Errorf("init id generator: %w", err)
	}

	database, err := db.Open(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := cache.New(repository.NewCacheRepository(database))
	if err := store.Load(ctx.Context); err != nil {
		database.Close()
		return nil, fmt.Errorf("load article cache: %w", err)
	}

	clients := network.NewClientFactory(network.StaticProxy(cfg.Fetch.ProxyURL))
	limiter := network.NewHostLimiter(rate.Every(500*time.Millisecond), 1)
	fetchTimeout := time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second
	fetcher := feed.NewFetcher(clients, limiter, fetchTimeout)
	resolver := feed.NewResolver(clients, 0)

	syncRepo := repository.NewSyncRepository(database)
	queue := service.NewPendingQueue(syncRepo)
	// Without a sync account there is nothing to push changes to.
	var trackQueue *service.PendingQueue
	if cfg.Sync != nil {
		trackQueue = queue
	}

	refresh := service.NewRefreshService(cfg, store, fetcher)

	return &runtime{
		cfg:      cfg,
		database: database,
		store:    store,
		clients:  clients,
		queue:    queue,
		refresh:  refresh,
		articles: service.NewArticleService(cfg, store, trackQueue),
		feeds:    service.NewFeedService(cfg, store, resolver, refresh),
		content:  service.NewContentService(store, clients),
		sync:     service.NewSyncService(cfg, store, queue, syncRepo, credentials.NewStore(cfg.Dir()), clients),
	}, nil
}

func loadConfig(ctx *cli.Context) (*config.Config, error) {
	if path := ctx.String("config"); path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// withRuntime opens the runtime, runs fn and flushes on the way out.
func withRuntime(ctx *cli.Context, fn func(rt *runtime) error) error {
	rt, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	runErr := fn(rt)
	if closeErr := rt.close(ctx.Context); closeErr != nil && runErr == nil {
		runErr = closeErr
	}
	return runErr
}

// close flushes dirty cache entries and releases the database. Called
// on every command exit path so local mutations are never lost.
func (r *runtime) close(ctx context.Context) error {
	flushErr := r.store.Flush(ctx)
	if err := r.database.Close(); err != nil && flushErr == nil {
		flushErr = err
	}
	return flushErr
}

// resolveFeedURL accepts a feed URL or a configured display name and
// returns the subscription URL.
func (r *runtime) resolveFeedURL(arg string) (string, error) {
	if _, ok := r.cfg.FindFeed(arg); ok {
		return arg, nil
	}
	for _, sub := range r.cfg.AllFeeds() {
		if sub.Name == arg {
			return sub.URL, nil
		}
	}
	return "", fmt.Errorf("no subscription matches %q", arg)
}

// resolveArticleKey accepts an article key or a 1-based number into
// the feed's newest-first listing, the numbering items prints.
func (r *runtime) resolveArticleKey(feedURL, arg string) (string, error) {
	if _, ok := r.store.FindArticle(feedURL, arg); ok {
		return arg, nil
	}
	if n, err := strconv.Atoi(arg); err == nil {
		if articles, ok := r.store.Articles(feedURL); ok && n >= 1 && n <= len(articles) {
			return articles[n-1].Key, nil
		}
	}
	return "", fmt.Errorf("no article matches %q", arg)
}
