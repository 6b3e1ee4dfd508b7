package greader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tidings/internal/config"
	"tidings/internal/network"
)

const (
	requestTimeout = 30 * time.Second

	// maxIDPages bounds AllItemIDs pagination. Exceeding it aborts the
	// pull rather than silently truncating the unread set.
	maxIDPages = 100
)

// AuthError means the server rejected the credentials or session
// token. It aborts a sync cycle without writing any state.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication rejected (HTTP %d)", e.Status)
}

// Client is the subset of the Reader dialect the sync engine uses:
// credential exchange, the subscription list, unread-id streams and
// read-state edits.
type Client interface {
	Login(ctx context.Context, username, password string) (string, error)
	SetAuthToken(token string)
	AuthToken() string
	UserInfo(ctx context.Context) (UserInfo, error)
	Subscriptions(ctx context.Context) ([]Subscription, error)
	StreamItemIDs(ctx context.Context, streamID string, opts StreamOptions) (ItemRefsPage, error)
	AllItemIDs(ctx context.Context, streamID string, opts StreamOptions) ([]ItemRef, error)
	StreamContents(ctx context.Context, streamID string, opts StreamOptions) (StreamContents, error)
	MarkRead(ctx context.Context, itemIDs []string) error
	MarkUnread(ctx context.Context, itemIDs []string) error
}

type client struct {
	base    string
	clients *network.ClientFactory
	auth    string
}

// New creates a client for one server. base is the API root, e.g.
// "https://freshrss.example.com/api/greader.php".
func New(clients *network.ClientFactory, base string) Client {
	return &client{
		base:    strings.TrimRight(base, "/"),
		clients: clients,
	}
}

// Login exchanges credentials for a session token via ClientLogin and
// keeps it on the client for subsequent calls.
func (c *client) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("Email", username)
	form.Set("Passwd", password)

	body, err := c.request(ctx, http.MethodPost, c.base+"/accounts/ClientLogin", form)
	if err != nil {
		return "", err
	}

	for _, line := range strings.Split(string(body), "\n") {
		if token, ok := strings.CutPrefix(strings.TrimSpace(line), "Auth="); ok && token != "" {
			c.auth = token
			return token, nil
		}
	}
	return "", fmt.Errorf("login response carries no Auth token")
}

func (c *client) SetAuthToken(token string) {
	c.auth = token
}

func (c *client) AuthToken() string {
	return c.auth
}

func (c *client) UserInfo(ctx context.Context) (UserInfo, error) {
	var info UserInfo
	err := c.getJSON(ctx, "/reader/api/0/user-info", url.Values{"output": {"json"}}, &info)
	return info, err
}

func (c *client) Subscriptions(ctx context.Context) ([]Subscription, error) {
	var list subscriptionList
	err := c.getJSON(ctx, "/reader/api/0/subscription/list", url.Values{"output": {"json"}}, &list)
	if err != nil {
		return nil, err
	}
	return list.Subscriptions, nil
}

func (c *client) StreamItemIDs(ctx context.Context, streamID string, opts StreamOptions) (ItemRefsPage, error) {
	query := opts.values()
	query.Set("s", streamID)

	var page ItemRefsPage
	err := c.getJSON(ctx, "/reader/api/0/stream/items/ids", query, &page)
	return page, err
}

// AllItemIDs follows the continuation chain of an item-id stream until
// it is exhausted. Streams longer than maxIDPages pages fail rather
// than return a partial set, because callers treat the result as the
// complete remote opinion.
func (c *client) AllItemIDs(ctx context.Context, streamID string, opts StreamOptions) ([]ItemRef, error) {
	if opts.Count <= 0 {
		opts.Count = 1000
	}

	var refs []ItemRef
	for page := 0; page < maxIDPages; page++ {
		result, err := c.StreamItemIDs(ctx, streamID, opts)
		if err != nil {
			return nil, err
		}
		refs = append(refs, result.ItemRefs...)
		if result.Continuation == "" {
			return refs, nil
		}
		opts.Continuation = result.Continuation
	}
	return nil, fmt.Errorf("stream %s exceeds %d id pages", streamID, maxIDPages)
}

func (c *client) StreamContents(ctx context.Context, streamID string, opts StreamOptions) (StreamContents, error) {
	var contents StreamContents
	err := c.getJSON(ctx, "/reader/api/0/stream/contents/"+url.PathEscape(streamID), opts.values(), &contents)
	return contents, err
}

// MarkRead adds the read state to the given items.
func (c *client) MarkRead(ctx context.Context, itemIDs []string) error {
	return c.editTag(ctx, itemIDs, StreamRead, "")
}

// MarkUnread removes the read state from the given items.
func (c *client) MarkUnread(ctx context.Context, itemIDs []string) error {
	return c.editTag(ctx, itemIDs, "", StreamRead)
}

// editTag posts a state change for a set of items. Write calls need a
// short-lived CSRF token, fetched fresh per call since servers expire
// them aggressively.
func (c *client) editTag(ctx context.Context, itemIDs []string, addTag, removeTag string) error {
	if len(itemIDs) == 0 {
		return nil
	}

	token, err := c.writeToken(ctx)
	if err != nil {
		return err
	}

	form := url.Values{}
	form.Set("T", token)
	for _, id := range itemIDs {
		form.Add("i", id)
	}
	if addTag != "" {
		form.Set("a", addTag)
	}
	if removeTag != "" {
		form.Set("r", removeTag)
	}

	_, err = c.request(ctx, http.MethodPost, c.base+"/reader/api/0/edit-tag", form)
	return err
}

func (c *client) writeToken(ctx context.Context) (string, error) {
	body, err := c.request(ctx, http.MethodGet, c.base+"/reader/api/0/token", nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

func (c *client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := c.base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	body, err := c.request(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *client) request(ctx context.Context, method, endpoint string, form url.Values) ([]byte, error) {
	var payload io.Reader
	if form != nil {
		payload = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", config.UserAgent)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.auth != "" {
		req.Header.Set("Authorization", "GoogleLogin auth="+c.auth)
	}

	resp, err := c.clients.NewHTTPClient(ctx, requestTimeout).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthError{Status: resp.StatusCode}
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, fmt.Errorf("%s %s: HTTP %d", method, endpoint, resp.StatusCode)
	}
	return body, nil
}

func (o StreamOptions) values() url.Values {
	v := url.Values{}
	v.Set("output", "json")
	if o.Count > 0 {
		v.Set("n", strconv.Itoa(o.Count))
	}
	if o.Continuation != "" {
		v.Set("c", o.Continuation)
	}
	if o.OlderThan > 0 {
		v.Set("ot", strconv.FormatInt(o.OlderThan, 10))
	}
	if o.NewerThan > 0 {
		v.Set("nt", strconv.FormatInt(o.NewerThan, 10))
	}
	if o.ExcludeTarget != "" {
		v.Set("xt", o.ExcludeTarget)
	}
	if o.UnreadOnly {
		v.Set("xt", StreamRead)
	}
	return v
}
