// Package greadertest runs an in-process Reader-dialect server so
// tests can drive the sync stack through realistic wire exchanges
// instead of canned transport stubs.
package greadertest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"tidings/internal/greader"
)

// EditCall records one edit-tag request as the server received it.
type EditCall struct {
	Token  string
	IDs    []string
	Add    string
	Remove string
}

// Server fakes the endpoints the sync client speaks: ClientLogin,
// user-info, subscription/list, item-id streams, stream contents and
// edit-tag. State can be mutated between requests to script
// multi-step sync cycles.
type Server struct {
	mu sync.Mutex

	username string
	password string
	session  string

	subs      []greader.Subscription
	order     []string
	items     map[string][]greader.Item
	read      map[string]bool
	broken    map[string]bool
	failEdits bool

	loginCalls int
	tokenCalls int
	lastToken  string
	editCalls  []EditCall

	httpServer *httptest.Server
}

// New starts a fake server accepting the given account. It shuts
// down when the test finishes.
func New(t *testing.T, username, password string) *Server {
	t.Helper()

	s := &Server{
		username: username,
		password: password,
		session:  username + "/session-0123456789abcdef",
		items:    map[string][]greader.Item{},
		read:     map[string]bool{},
		broken:   map[string]bool{},
	}

	e := echo.New()
	e.POST("/accounts/ClientLogin", s.handleLogin)

	api := e.Group("/reader/api/0", s.requireAuth)
	api.GET("/user-info", s.handleUserInfo)
	api.GET("/subscription/list", s.handleSubscriptions)
	api.GET("/stream/items/ids", s.handleItemIDs)
	api.GET("/stream/contents/*", s.handleStreamContents)
	api.GET("/token", s.handleToken)
	api.POST("/edit-tag", s.handleEditTag)

	s.httpServer = httptest.NewServer(e)
	t.Cleanup(s.httpServer.Close)
	return s
}

// NewItem builds a stream item in the long id form servers emit.
// published is in epoch seconds and also drives the crawl timestamp.
func NewItem(id int64, streamID, title, link string, published int64) greader.Item {
	return greader.Item{
		ID:            greader.FormatItemIDLong(id),
		Origin:        &greader.Origin{StreamID: streamID},
		Title:         title,
		Published:     published,
		TimestampUsec: strconv.FormatInt(published*1_000_000, 10),
		Canonical:     []greader.LinkRef{{Href: link}},
		Summary:       &greader.ItemBody{Content: "<p>" + title + "</p>"},
	}
}

// URL is the server's base endpoint, suitable for greader.New.
func (s *Server) URL() string {
	return s.httpServer.URL
}

// Session is the token ClientLogin hands out.
func (s *Server) Session() string {
	return s.session
}

// AddFeed registers a subscription and its items.
func (s *Server) AddFeed(sub greader.Subscription, items ...greader.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, sub)
	if _, known := s.items[sub.ID]; !known {
		s.order = append(s.order, sub.ID)
	}
	s.items[sub.ID] = append(s.items[sub.ID], items...)
}

// RemoveFeed drops a subscription from the list. Its items stay so a
// later re-add sees them again.
func (s *Server) RemoveFeed(streamID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := s.subs[:0]
	for _, sub := range s.subs {
		if sub.ID != streamID {
			subs = append(subs, sub)
		}
	}
	s.subs = subs
}

// SetRead flips an item's remote read state. Any id form works.
func (s *Server) SetRead(itemID string, read bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if read {
		s.read[decimalID(itemID)] = true
		return
	}
	delete(s.read, decimalID(itemID))
}

// IsRead reports an item's remote read state. Any id form works.
func (s *Server) IsRead(itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read[decimalID(itemID)]
}

// BreakStream makes one stream answer HTTP 500, for both its item-id
// and contents endpoints.
func (s *Server) BreakStream(streamID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broken[streamID] = true
}

// FailEdits makes every edit-tag request answer HTTP 500.
func (s *Server) FailEdits(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failEdits = fail
}

// SetPassword rotates the account password. Existing sessions stay
// valid; only new ClientLogin calls check the new value.
func (s *Server) SetPassword(password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.password = password
}

// LoginCalls counts ClientLogin requests, including rejected ones.
func (s *Server) LoginCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginCalls
}

// TokenCalls counts write-token requests.
func (s *Server) TokenCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenCalls
}

// EditCalls returns the edit-tag requests received so far.
func (s *Server) EditCalls() []EditCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]EditCall(nil), s.editCalls...)
}

func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Request().Header.Get("Authorization") != "GoogleLogin auth="+s.session {
			return c.String(http.StatusUnauthorized, "Unauthorized")
		}
		return next(c)
	}
}

func (s *Server) handleLogin(c echo.Context) error {
	s.mu.Lock()
	s.loginCalls++
	ok := c.FormValue("Email") == s.username && c.FormValue("Passwd") == s.password
	s.mu.Unlock()

	if !ok {
		return c.String(http.StatusUnauthorized, "Error=BadAuthentication\n")
	}
	return c.String(http.StatusOK, fmt.Sprintf("SID=%s\nLSID=%s\nAuth=%s\n", s.session, s.session, s.session))
}

func (s *Server) handleUserInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, greader.UserInfo{UserID: "1", UserName: s.username})
}

func (s *Server) handleSubscriptions(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, map[string][]greader.Subscription{"subscriptions": s.subs})
}

func (s *Server) handleItemIDs(c echo.Context) error {
	streamID := c.QueryParam("s")
	exclude := c.QueryParam("xt")
	n, _ := strconv.Atoi(c.QueryParam("n"))
	if n <= 0 {
		n = 1000
	}
	offset := 0
	if cont := c.QueryParam("c"); cont != "" {
		offset, _ = strconv.Atoi(cont)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.broken[streamID] {
		return c.String(http.StatusInternalServerError, "stream unavailable")
	}

	refs := []greader.ItemRef{}
	for _, item := range s.streamItems(streamID) {
		dec := decimalID(item.ID)
		if exclude == greader.StreamRead && s.read[dec] {
			continue
		}
		refs = append(refs, greader.ItemRef{ID: dec, TimestampUsec: item.TimestampUsec})
	}

	if offset > len(refs) {
		offset = len(refs)
	}
	end := offset + n
	if end > len(refs) {
		end = len(refs)
	}

	page := greader.ItemRefsPage{ItemRefs: refs[offset:end]}
	if end < len(refs) {
		page.Continuation = strconv.Itoa(end)
	}
	return c.JSON(http.StatusOK, page)
}

func (s *Server) handleStreamContents(c echo.Context) error {
	streamID, err := url.PathUnescape(c.Param("*"))
	if err != nil {
		streamID = c.Param("*")
	}
	newerThan, _ := strconv.ParseInt(c.QueryParam("nt"), 10, 64)
	n, _ := strconv.Atoi(c.QueryParam("n"))
	if n <= 0 {
		n = 1000
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.broken[streamID] {
		return c.String(http.StatusInternalServerError, "stream unavailable")
	}

	items := []greader.Item{}
	for _, item := range s.streamItems(streamID) {
		if newerThan > 0 && item.Published < newerThan {
			continue
		}
		if s.read[decimalID(item.ID)] {
			item.Categories = append(append([]string{}, item.Categories...), greader.StreamRead)
		}
		items = append(items, item)
		if len(items) == n {
			break
		}
	}
	return c.JSON(http.StatusOK, greader.StreamContents{ID: streamID, Items: items})
}

func (s *Server) handleToken(c echo.Context) error {
	s.mu.Lock()
	s.tokenCalls++
	s.lastToken = fmt.Sprintf("write-token-%d", s.tokenCalls)
	token := s.lastToken
	s.mu.Unlock()
	return c.String(http.StatusOK, token)
}

func (s *Server) handleEditTag(c echo.Context) error {
	params, err := c.FormParams()
	if err != nil {
		return c.String(http.StatusBadRequest, "bad form")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failEdits {
		return c.String(http.StatusInternalServerError, "edits unavailable")
	}
	if s.lastToken == "" || params.Get("T") != s.lastToken {
		return c.String(http.StatusBadRequest, "Invalid token")
	}

	call := EditCall{
		Token:  params.Get("T"),
		Add:    params.Get("a"),
		Remove: params.Get("r"),
	}
	for _, id := range params["i"] {
		dec := decimalID(id)
		call.IDs = append(call.IDs, dec)
		switch {
		case call.Add == greader.StreamRead:
			s.read[dec] = true
		case call.Remove == greader.StreamRead:
			delete(s.read, dec)
		}
	}
	s.editCalls = append(s.editCalls, call)
	return c.String(http.StatusOK, "OK")
}

// streamItems resolves a stream id to its items. The reading list
// aggregates every registered feed in registration order. Callers
// hold s.mu.
func (s *Server) streamItems(streamID string) []greader.Item {
	if streamID != greader.StreamReadingList {
		return s.items[streamID]
	}
	var all []greader.Item
	for _, id := range s.order {
		all = append(all, s.items[id]...)
	}
	return all
}

func decimalID(id string) string {
	parsed, err := greader.ParseItemID(id)
	if err != nil {
		return id
	}
	return greader.FormatItemIDDecimal(parsed)
}
