package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tidings/internal/cache"
	"tidings/internal/config"
	"tidings/internal/credentials"
	"tidings/internal/greader"
	"tidings/internal/logger"
	"tidings/internal/model"
	"tidings/internal/network"
	"tidings/internal/repository"
)

const (
	// pushBatchSize bounds one edit-tag request.
	pushBatchSize = 50
	// contentPageSize bounds one stream/contents page used to learn
	// remote item ids.
	contentPageSize = 100
	// idPageSize bounds one stream/items/ids page.
	idPageSize = 1000
)

// SyncResult reports one finished sync cycle.
type SyncResult struct {
	AttemptID string
	Started   time.Time
	Duration  time.Duration

	// AddedFeeds and RemovedFeeds reflect the subscription pull.
	AddedFeeds   int
	RemovedFeeds []config.Feed
	// Applied counts read flags the pull flipped locally.
	Applied int
	// Pushed counts queued changes the server confirmed; Unresolved
	// counts queued changes dropped because their article never got a
	// remote id.
	Pushed     int
	Unresolved int
	// FeedErrors collects non-fatal per-feed pull failures.
	FeedErrors []error
}

// SyncStatus describes the configured account and queue depth.
type SyncStatus struct {
	Configured bool
	Server     string
	Username   string
	LastSyncAt *time.Time
	QueueLen   int
}

// SyncService synchronizes the local cache with a Reader-style
// server: subscriptions and read state are pulled first, then queued
// local changes are pushed.
type SyncService interface {
	Login(ctx context.Context, server, username, password string) error
	Logout(ctx context.Context) error
	FullSync(ctx context.Context) (SyncResult, error)
	Status(ctx context.Context) (SyncStatus, error)
}

type syncService struct {
	cfg     *config.Config
	store   *cache.Store
	queue   *PendingQueue
	repo    repository.SyncRepository
	creds   *credentials.Store
	clients *network.ClientFactory

	mu        sync.Mutex
	isSyncing bool
}

func NewSyncService(cfg *config.Config, store *cache.Store, queue *PendingQueue, repo repository.SyncRepository, creds *credentials.Store, clients *network.ClientFactory) SyncService {
	return &syncService{
		cfg:     cfg,
		store:   store,
		queue:   queue,
		repo:    repo,
		creds:   creds,
		clients: clients,
	}
}

// Login verifies the credentials against the server, then persists
// them and makes the account the configured sync target. Any previous
// session state is discarded.
func (s *syncService) Login(ctx context.Context, server, username, password string) error {
	server = strings.TrimRight(strings.TrimSpace(server), "/")
	if server == "" || username == "" || password == "" {
		return ErrInvalid
	}

	client := greader.New(s.clients, server)
	token, err := client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if _, err := client.UserInfo(ctx); err != nil {
		return fmt.Errorf("verify session: %w", err)
	}

	if err := s.creds.Set(credentialName(server, username), password); err != nil {
		return err
	}
	s.cfg.Sync = &config.Sync{Provider: "greader", Server: server, Username: username}
	if err := s.cfg.Save(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	if err := s.repo.SaveState(ctx, model.SyncState{AuthToken: token}); err != nil {
		return fmt.Errorf("save sync state: %w", err)
	}

	logger.Info("sync account configured",
		"module", "service", "action", "login", "resource", "sync", "result", "ok",
		"server", server, "username", username)
	return nil
}

// Logout removes the stored credentials, the session state and the
// pending queue. Cached articles stay.
func (s *syncService) Logout(ctx context.Context) error {
	if s.cfg.Sync == nil {
		return ErrSyncNotConfigured
	}
	name := credentialName(s.cfg.Sync.Server, s.cfg.Sync.Username)

	if err := s.creds.Delete(name); err != nil {
		return err
	}
	if err := s.repo.ResetState(ctx); err != nil {
		return fmt.Errorf("reset sync state: %w", err)
	}
	if err := s.queue.Clear(ctx); err != nil {
		return fmt.Errorf("clear pending queue: %w", err)
	}
	s.cfg.Sync = nil
	if err := s.cfg.Save(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

func (s *syncService) Status(ctx context.Context) (SyncStatus, error) {
	status := SyncStatus{}
	if s.cfg.Sync != nil {
		status.Configured = true
		status.Server = s.cfg.Sync.Server
		status.Username = s.cfg.Sync.Username
	}
	state, err := s.repo.GetState(ctx)
	if err != nil {
		return status, err
	}
	status.LastSyncAt = state.LastSyncAt

	pending, err := s.queue.Pending(ctx)
	if err != nil {
		return status, err
	}
	status.QueueLen = len(pending)
	return status, nil
}

// FullSync runs one pull-then-push cycle. Pull order matters: the
// subscription tree first, then remote read state, then the push of
// queued local changes. Any step failing aborts the cycle; the change
// token and last-sync time advance only when every step succeeded, so
// an interrupted cycle is re-run in full next time.
func (s *syncService) FullSync(ctx context.Context) (SyncResult, error) {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		return SyncResult{}, ErrSyncInProgress
	}
	s.isSyncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSyncing = false
		s.mu.Unlock()
	}()

	if s.cfg.Sync == nil {
		return SyncResult{}, ErrSyncNotConfigured
	}

	result := SyncResult{
		AttemptID: uuid.New().String(),
		Started:   time.Now(),
	}

	state, err := s.repo.GetState(ctx)
	if err != nil {
		return result, fmt.Errorf("load sync state: %w", err)
	}
	password, err := s.creds.Get(credentialName(s.cfg.Sync.Server, s.cfg.Sync.Username))
	if err != nil {
		return result, fmt.Errorf("load credentials: %w", err)
	}

	client := greader.New(s.clients, s.cfg.Sync.Server)

	// Step 1: authenticate. Rejected credentials abort before any
	// local write.
	token, err := client.Login(ctx, s.cfg.Sync.Username, password)
	if err != nil {
		return result, fmt.Errorf("authenticate: %w", err)
	}

	// Step 2: the remote subscription tree replaces the local one.
	subs, err := client.Subscriptions(ctx)
	if err != nil {
		return result, fmt.Errorf("pull subscriptions: %w", err)
	}
	result.AddedFeeds, result.RemovedFeeds = s.applySubscriptions(subs)
	if err := s.cfg.Save(); err != nil {
		return result, fmt.Errorf("save config: %w", err)
	}

	// Step 3: pull remote read state.
	applied, maxUsec, feedErrors, err := s.pullReadState(ctx, client, subs, state.ChangeToken)
	if err != nil {
		return result, fmt.Errorf("pull read state: %w", err)
	}
	result.Applied = applied
	result.FeedErrors = feedErrors

	// Step 4: push queued local changes.
	result.Pushed, result.Unresolved, err = s.pushPending(ctx, client)
	if err != nil {
		return result, fmt.Errorf("push pending changes: %w", err)
	}

	// Step 5: completion. Only now may the change token advance.
	now := time.Now().UTC()
	state.AuthToken = token
	if maxUsec > state.ChangeToken {
		state.ChangeToken = maxUsec
	}
	state.LastSyncAt = &now
	if err := s.repo.SaveState(ctx, state); err != nil {
		return result, fmt.Errorf("save sync state: %w", err)
	}
	if err := s.store.Flush(ctx); err != nil {
		return result, fmt.Errorf("flush cache: %w", err)
	}

	result.Duration = time.Since(result.Started)
	logger.Info("sync cycle finished",
		"module", "service", "action", "sync", "resource", "feed", "result", "ok",
		"attempt_id", result.AttemptID, "added", result.AddedFeeds,
		"removed", len(result.RemovedFeeds), "applied", result.Applied,
		"pushed", result.Pushed, "unresolved", result.Unresolved,
		"feed_errors", len(result.FeedErrors), "duration_ms", result.Duration.Milliseconds())
	return result, nil
}

// applySubscriptions rebuilds the config tree from the remote list.
// Local display names win for feeds that survive; folder display
// metadata survives by folder name. Cached articles of removed feeds
// stay in the database.
func (s *syncService) applySubscriptions(subs []greader.Subscription) (added int, removed []config.Feed) {
	local := make(map[string]config.Feed)
	for _, sub := range s.cfg.AllFeeds() {
		local[sub.URL] = sub
	}
	folderMeta := make(map[string]config.Folder, len(s.cfg.Folders))
	for _, folder := range s.cfg.Folders {
		folderMeta[folder.Name] = folder
	}

	var folders []config.Folder
	folderIdx := make(map[string]int)
	var rootFeeds []config.Feed

	for _, sub := range subs {
		feedURL := strings.TrimSpace(sub.URL)
		if feedURL == "" {
			continue
		}

		name := sub.Title
		if prev, ok := local[feedURL]; ok && prev.Name != "" {
			name = prev.Name
		}
		if name == "" {
			name = feedURL
		}
		if _, ok := local[feedURL]; !ok {
			added++
		}

		entry := config.Feed{Name: name, URL: feedURL, SyncID: sub.ID}
		folderName := sub.Folder()
		if folderName == "" {
			rootFeeds = append(rootFeeds, entry)
			continue
		}
		idx, ok := folderIdx[folderName]
		if !ok {
			folder := config.Folder{Name: folderName, Expanded: true}
			if meta, found := folderMeta[folderName]; found {
				folder.Icon = meta.Icon
				folder.Expanded = meta.Expanded
			}
			folders = append(folders, folder)
			idx = len(folders) - 1
			folderIdx[folderName] = idx
		}
		folders[idx].Feeds = append(folders[idx].Feeds, entry)
	}

	removed = s.cfg.ReplaceTree(folders, rootFeeds)

	for _, sub := range s.cfg.AllFeeds() {
		s.store.EnsureFeed(sub.URL, sub.Name, sub.Folder)
		if sub.SyncID != "" {
			s.store.SetFeedSyncID(sub.URL, sub.SyncID)
		}
	}
	return added, removed
}

// pullReadState fetches the complete remote unread set, learns remote
// item ids per feed, and overwrites local read flags with the remote
// opinion. Per-feed stream failures are collected, not fatal; a
// failure to fetch the unread set itself is fatal because applying a
// partial set would mark everything else read.
func (s *syncService) pullReadState(ctx context.Context, client greader.Client, subs []greader.Subscription, changeToken int64) (applied int, maxUsec int64, feedErrors []error, err error) {
	refs, err := client.AllItemIDs(ctx, greader.StreamReadingList, greader.StreamOptions{
		Count:         idPageSize,
		ExcludeTarget: greader.StreamRead,
	})
	if err != nil {
		return 0, 0, nil, fmt.Errorf("unread ids: %w", err)
	}

	unread := make(map[string]bool, len(refs))
	for _, ref := range refs {
		id, parseErr := greader.ParseItemID(ref.ID)
		if parseErr != nil {
			continue
		}
		unread[greader.FormatItemIDDecimal(id)] = true
		if usec := parseUsec(ref.TimestampUsec); usec > maxUsec {
			maxUsec = usec
		}
	}

	// Learn remote ids from recent stream contents. The change token
	// bounds the window; older articles keep ids learned by earlier
	// cycles.
	opts := greader.StreamOptions{Count: contentPageSize}
	if changeToken > 0 {
		opts.NewerThan = changeToken / 1_000_000
	}
	for _, sub := range subs {
		feedURL := strings.TrimSpace(sub.URL)
		if feedURL == "" {
			continue
		}
		contents, streamErr := client.StreamContents(ctx, sub.ID, opts)
		if streamErr != nil {
			feedErrors = append(feedErrors, fmt.Errorf("stream %s: %w", feedURL, streamErr))
			logger.Warn("sync feed stream failed",
				"module", "service", "action", "sync", "resource", "feed", "result", "failed",
				"feed_url", feedURL, "error", streamErr)
			continue
		}
		for _, item := range contents.Items {
			id, parseErr := greader.ParseItemID(item.ID)
			if parseErr != nil {
				continue
			}
			s.store.MatchRemote(feedURL, greader.FormatItemIDDecimal(id), item.Link(), item.Title)
			if usec := parseUsec(item.TimestampUsec); usec > maxUsec {
				maxUsec = usec
			}
		}
	}

	// Apply the remote opinion under the queue lock so concurrent
	// local toggles order strictly before or after it.
	for _, sub := range subs {
		feedURL := strings.TrimSpace(sub.URL)
		if feedURL == "" {
			continue
		}
		s.queue.withLock(func() {
			applied += s.store.ReconcileRemoteRead(feedURL, unread)
		})
	}
	return applied, maxUsec, feedErrors, nil
}

// pushPending pushes the queued read-state changes in batches. Rows
// leave the queue only when the server confirmed their batch, so a
// failed push is retried in full by the next cycle. Queue rows are
// coalesced to one desired state per article before pushing; all rows
// of a pushed article are confirmed together.
func (s *syncService) pushPending(ctx context.Context, client greader.Client) (pushed, unresolved int, err error) {
	changes, err := s.queue.Pending(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list queue: %w", err)
	}
	if len(changes) == 0 {
		return 0, 0, nil
	}

	type pushTarget struct {
		remoteID string
		read     bool
		rows     []int64
	}
	targets := make(map[string]*pushTarget)
	var order []string
	var unresolvedRows []int64

	for _, change := range changes {
		key := change.FeedURL + "\x00" + change.ArticleKey
		target, ok := targets[key]
		if !ok {
			article, found := s.store.FindArticle(change.FeedURL, change.ArticleKey)
			if !found || article.RemoteID == nil || *article.RemoteID == "" {
				unresolvedRows = append(unresolvedRows, change.ID)
				continue
			}
			target = &pushTarget{remoteID: *article.RemoteID}
			targets[key] = target
			order = append(order, key)
		}
		// Later rows win: a toggle toggled back pushes its final state.
		target.read = change.Read
		target.rows = append(target.rows, change.ID)
	}

	var readTargets, unreadTargets []*pushTarget
	for _, key := range order {
		if targets[key].read {
			readTargets = append(readTargets, targets[key])
		} else {
			unreadTargets = append(unreadTargets, targets[key])
		}
	}

	push := func(group []*pushTarget, read bool) error {
		for start := 0; start < len(group); start += pushBatchSize {
			end := start + pushBatchSize
			if end > len(group) {
				end = len(group)
			}
			batch := group[start:end]

			ids := make([]string, 0, len(batch))
			var rows []int64
			for _, target := range batch {
				ids = append(ids, target.remoteID)
				rows = append(rows, target.rows...)
			}

			var editErr error
			if read {
				editErr = client.MarkRead(ctx, ids)
			} else {
				editErr = client.MarkUnread(ctx, ids)
			}
			if editErr != nil {
				return editErr
			}
			if confirmErr := s.queue.Confirm(ctx, rows); confirmErr != nil {
				return fmt.Errorf("confirm pushed changes: %w", confirmErr)
			}
			pushed += len(batch)
		}
		return nil
	}

	if err := push(readTargets, true); err != nil {
		return pushed, 0, err
	}
	if err := push(unreadTargets, false); err != nil {
		return pushed, 0, err
	}

	// Rows that never resolved to a remote id can never push; drop
	// them now that everything else went through.
	if err := s.queue.Confirm(ctx, unresolvedRows); err != nil {
		return pushed, 0, fmt.Errorf("drop unresolved changes: %w", err)
	}
	return pushed, len(unresolvedRows), nil
}

func credentialName(server, username string) string {
	return username + "@" + server
}

func parseUsec(s string) int64 {
	usec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return usec
}
