package subscription

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/feedbridge/errors"
	"github.com/c360/feedbridge/pkg/retry"
	"github.com/c360/feedbridge/store"
)

const (
	testPageURL = "http://example.com/blog"
	testFeedURL = "http://example.com/feed"
	testHubURL  = "http://hub.example.com/"
)

var pageWithFeed = []byte(`<html><head>
  <link rel="alternate" type="application/atom+xml" href="/feed"/>
</head><body></body></html>`)

var pageWithoutFeed = []byte(`<html><head><title>No feeds here</title></head></html>`)

var feedWithHub = []byte(`<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Blog</title>
  <link rel="hub" href="http://hub.example.com/"/>
  <entry><title>Post</title></entry>
</feed>`)

var feedWithoutHub = []byte(`<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Blog</title>
  <entry><title>Post</title></entry>
</feed>`)

type fakeLinks struct {
	mu    sync.Mutex
	links map[string]*store.Link
}

func newFakeLinks() *fakeLinks {
	return &fakeLinks{links: make(map[string]*store.Link)}
}

func (f *fakeLinks) Create(_ context.Context, link *store.Link) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.links[link.ID]; ok {
		return errors.WrapInvalid(errors.ErrAlreadyExists, "store", "Create", "link "+link.ID)
	}
	cp := *link
	f.links[link.ID] = &cp
	return nil
}

func (f *fakeLinks) Get(_ context.Context, id string) (*store.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	link, ok := f.links[id]
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrKeyNotFound, "store", "Get", "link "+id)
	}
	cp := *link
	return &cp, nil
}

func (f *fakeLinks) Update(_ context.Context, link *store.Link) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *link
	f.links[link.ID] = &cp
	return nil
}

func (f *fakeLinks) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.links[id]; !ok {
		return errors.WrapInvalid(errors.ErrKeyNotFound, "store", "Delete", "link "+id)
	}
	delete(f.links, id)
	return nil
}

func (f *fakeLinks) ListBySubscription(_ context.Context, subID string) ([]*store.Link, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*store.Link
	for _, link := range f.links {
		if link.SubscriptionID == subID {
			cp := *link
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeSubs struct {
	mu   sync.Mutex
	subs map[string]*store.Subscription
}

func newFakeSubs() *fakeSubs {
	return &fakeSubs{subs: make(map[string]*store.Subscription)}
}

func (f *fakeSubs) Create(_ context.Context, sub *store.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sub.State == "" {
		sub.State = store.StatePending
	}
	cp := *sub
	f.subs[sub.ID] = &cp
	return nil
}

func (f *fakeSubs) Get(_ context.Context, id string) (*store.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[id]
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrKeyNotFound, "store", "Get", "subscription "+id)
	}
	cp := *sub
	return &cp, nil
}

func (f *fakeSubs) Update(_ context.Context, sub *store.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *sub
	f.subs[sub.ID] = &cp
	return nil
}

func (f *fakeSubs) FindByTopic(_ context.Context, topic string) (*store.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		if sub.Topic == topic && sub.Reusable() {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, errors.WrapInvalid(errors.ErrKeyNotFound, "store", "FindByTopic", "topic "+topic)
}

type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string][]byte
	failures  map[string]int // failures injected before success, -1 = always
	calls     map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: make(map[string][]byte),
		failures:  make(map[string]int),
		calls:     make(map[string]int),
	}
}

func (f *fakeFetcher) Get(_ context.Context, url, _ string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	if n := f.failures[url]; n != 0 {
		if n > 0 {
			f.failures[url]--
		}
		return nil, errors.WrapTransient(fmt.Errorf("connection refused"), "fetch", "Get", "request "+url)
	}
	body, ok := f.responses[url]
	if !ok {
		return nil, errors.WrapTransient(errors.ErrFetchFailed, "fetch", "Get", "request "+url)
	}
	return body, nil
}

func (f *fakeFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

type fakeHub struct {
	mu          sync.Mutex
	failures    int // failures injected before success, -1 = always
	subscribes  []*store.Subscription
	unsubsCh    chan *store.Subscription
	defaultHub  string
	unsubscribe []*store.Subscription
}

func newFakeHub() *fakeHub {
	return &fakeHub{unsubsCh: make(chan *store.Subscription, 4)}
}

func (f *fakeHub) Subscribe(_ context.Context, sub *store.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribes = append(f.subscribes, sub)
	if f.failures != 0 {
		if f.failures > 0 {
			f.failures--
		}
		return errors.WrapTransient(errors.ErrHubRejected, "hubclient", "send", "subscribe request")
	}
	return nil
}

func (f *fakeHub) Unsubscribe(_ context.Context, sub *store.Subscription) error {
	f.mu.Lock()
	f.unsubscribe = append(f.unsubscribe, sub)
	f.mu.Unlock()
	f.unsubsCh <- sub
	return nil
}

func (f *fakeHub) DefaultHub() string {
	return f.defaultHub
}

func (f *fakeHub) subscribeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribes)
}

type fakeEvents struct{}

func (fakeEvents) Subscribe(context.Context, string, func(context.Context, []byte)) error {
	return nil
}

func newTestManager(t *testing.T, links *fakeLinks, subs *fakeSubs,
	fetcher *fakeFetcher, hub *fakeHub) *Manager {
	t.Helper()

	m, err := NewManager(DefaultConfig(), fakeEvents{}, links, subs, fetcher, hub, nil, nil)
	require.NoError(t, err)

	// Short delays keep the retry budgets fast in tests
	m.retryCfg = retry.Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		Multiplier:   1.0,
	}
	return m
}

func TestHandleCreated_FullFlow(t *testing.T) {
	links, subs := newFakeLinks(), newFakeSubs()
	fetcher, hub := newFakeFetcher(), newFakeHub()
	fetcher.responses[testPageURL] = pageWithFeed
	fetcher.responses[testFeedURL] = feedWithHub

	m := newTestManager(t, links, subs, fetcher, hub)
	ctx := context.Background()

	err := m.handleCreated(ctx, &LinkEvent{LinkID: "l-1", ActorID: "alice", URL: testPageURL, Broadcast: true})
	require.NoError(t, err)

	link, err := links.Get(ctx, "l-1")
	require.NoError(t, err)
	assert.Equal(t, testFeedURL, link.FeedURL)
	require.NotEmpty(t, link.SubscriptionID)

	sub, err := subs.Get(ctx, link.SubscriptionID)
	require.NoError(t, err)
	assert.Equal(t, testFeedURL, sub.Topic)
	assert.Equal(t, testHubURL, sub.Hub)
	assert.NotEmpty(t, sub.Secret)
	assert.NotEmpty(t, sub.VerifyToken)
	assert.Equal(t, store.StatePending, sub.State)

	assert.Equal(t, 1, hub.subscribeCount())
}

func TestHandleCreated_RecoversWithinRetryBudget(t *testing.T) {
	links, subs := newFakeLinks(), newFakeSubs()
	fetcher, hub := newFakeFetcher(), newFakeHub()
	fetcher.responses[testPageURL] = pageWithFeed
	fetcher.responses[testFeedURL] = feedWithHub
	fetcher.failures[testPageURL] = 2 // fail twice, succeed on the third

	m := newTestManager(t, links, subs, fetcher, hub)
	ctx := context.Background()

	err := m.handleCreated(ctx, &LinkEvent{LinkID: "l-1", ActorID: "alice", URL: testPageURL, Broadcast: true})
	require.NoError(t, err)

	assert.Equal(t, 3, fetcher.callCount(testPageURL))

	link, err := links.Get(ctx, "l-1")
	require.NoError(t, err)
	assert.NotEmpty(t, link.SubscriptionID)
}

func TestHandleCreated_AbandonsAfterBudgetExhausted(t *testing.T) {
	links, subs := newFakeLinks(), newFakeSubs()
	fetcher, hub := newFakeFetcher(), newFakeHub()
	fetcher.failures[testPageURL] = -1 // every attempt fails

	m := newTestManager(t, links, subs, fetcher, hub)
	ctx := context.Background()

	// Abandonment is silent: no error escapes to the caller
	err := m.handleCreated(ctx, &LinkEvent{LinkID: "l-1", ActorID: "alice", URL: testPageURL, Broadcast: true})
	require.NoError(t, err)

	assert.Equal(t, 3, fetcher.callCount(testPageURL))

	link, err := links.Get(ctx, "l-1")
	require.NoError(t, err)
	assert.Empty(t, link.SubscriptionID)
	assert.Equal(t, 0, hub.subscribeCount())
}

func TestHandleCreated_NoFeedOnPage(t *testing.T) {
	links, subs := newFakeLinks(), newFakeSubs()
	fetcher, hub := newFakeFetcher(), newFakeHub()
	fetcher.responses[testPageURL] = pageWithoutFeed

	m := newTestManager(t, links, subs, fetcher, hub)
	ctx := context.Background()

	err := m.handleCreated(ctx, &LinkEvent{LinkID: "l-1", ActorID: "alice", URL: testPageURL, Broadcast: true})
	require.NoError(t, err)

	// A page with no feed is not a network failure, so no retries
	assert.Equal(t, 1, fetcher.callCount(testPageURL))
	assert.Equal(t, 0, fetcher.callCount(testFeedURL))
	assert.Equal(t, 0, hub.subscribeCount())
}

func TestHandleCreated_DefaultHubFallback(t *testing.T) {
	links, subs := newFakeLinks(), newFakeSubs()
	fetcher, hub := newFakeFetcher(), newFakeHub()
	fetcher.responses[testPageURL] = pageWithFeed
	fetcher.responses[testFeedURL] = feedWithoutHub
	hub.defaultHub = "http://default-hub.example.com/"

	m := newTestManager(t, links, subs, fetcher, hub)
	ctx := context.Background()

	err := m.handleCreated(ctx, &LinkEvent{LinkID: "l-1", ActorID: "alice", URL: testPageURL, Broadcast: true})
	require.NoError(t, err)

	link, err := links.Get(ctx, "l-1")
	require.NoError(t, err)
	sub, err := subs.Get(ctx, link.SubscriptionID)
	require.NoError(t, err)
	assert.Equal(t, "http://default-hub.example.com/", sub.Hub)
}

func TestHandleCreated_NoHubAnywhere(t *testing.T) {
	links, subs := newFakeLinks(), newFakeSubs()
	fetcher, hub := newFakeFetcher(), newFakeHub()
	fetcher.responses[testPageURL] = pageWithFeed
	fetcher.responses[testFeedURL] = feedWithoutHub

	m := newTestManager(t, links, subs, fetcher, hub)
	ctx := context.Background()

	err := m.handleCreated(ctx, &LinkEvent{LinkID: "l-1", ActorID: "alice", URL: testPageURL, Broadcast: true})
	require.NoError(t, err)

	link, err := links.Get(ctx, "l-1")
	require.NoError(t, err)
	assert.Empty(t, link.SubscriptionID)
	assert.Equal(t, 0, hub.subscribeCount())
}

func TestHandleCreated_ReusesExistingSubscription(t *testing.T) {
	links, subs := newFakeLinks(), newFakeSubs()
	fetcher, hub := newFakeFetcher(), newFakeHub()
	fetcher.responses[testPageURL] = pageWithFeed

	existing := &store.Subscription{
		ID: "sub-existing", Topic: testFeedURL, Hub: testHubURL, State: store.StateVerified,
	}
	require.NoError(t, subs.Create(context.Background(), existing))

	m := newTestManager(t, links, subs, fetcher, hub)
	ctx := context.Background()

	err := m.handleCreated(ctx, &LinkEvent{LinkID: "l-1", ActorID: "alice", URL: testPageURL, Broadcast: true})
	require.NoError(t, err)

	link, err := links.Get(ctx, "l-1")
	require.NoError(t, err)
	assert.Equal(t, "sub-existing", link.SubscriptionID)

	// No new lease was negotiated, and the feed was never fetched
	assert.Equal(t, 0, hub.subscribeCount())
	assert.Equal(t, 0, fetcher.callCount(testFeedURL))
}

func TestHandleCreated_AbandonedSubscriptionIsNotReused(t *testing.T) {
	links, subs := newFakeLinks(), newFakeSubs()
	fetcher, hub := newFakeFetcher(), newFakeHub()
	fetcher.responses[testPageURL] = pageWithFeed
	fetcher.responses[testFeedURL] = feedWithHub

	// A previous link's handshake exhausted its budget and left this behind
	dead := &store.Subscription{
		ID: "sub-dead", Topic: testFeedURL, Hub: testHubURL, State: store.StateAbandoned,
	}
	require.NoError(t, subs.Create(context.Background(), dead))

	m := newTestManager(t, links, subs, fetcher, hub)
	ctx := context.Background()

	err := m.handleCreated(ctx, &LinkEvent{LinkID: "l-1", ActorID: "alice", URL: testPageURL, Broadcast: true})
	require.NoError(t, err)

	// The dead lease is not attached to; a fresh one is negotiated
	link, err := links.Get(ctx, "l-1")
	require.NoError(t, err)
	require.NotEmpty(t, link.SubscriptionID)
	assert.NotEqual(t, "sub-dead", link.SubscriptionID)
	assert.Equal(t, 1, hub.subscribeCount())

	sub, err := subs.Get(ctx, link.SubscriptionID)
	require.NoError(t, err)
	assert.Equal(t, store.StatePending, sub.State)
}

func TestHandleCreated_HubKeepsRejecting(t *testing.T) {
	links, subs := newFakeLinks(), newFakeSubs()
	fetcher, hub := newFakeFetcher(), newFakeHub()
	fetcher.responses[testPageURL] = pageWithFeed
	fetcher.responses[testFeedURL] = feedWithHub
	hub.failures = -1

	m := newTestManager(t, links, subs, fetcher, hub)
	ctx := context.Background()

	err := m.handleCreated(ctx, &LinkEvent{LinkID: "l-1", ActorID: "alice", URL: testPageURL, Broadcast: true})
	require.NoError(t, err)

	assert.Equal(t, 3, hub.subscribeCount())

	link, err := links.Get(ctx, "l-1")
	require.NoError(t, err)
	assert.Empty(t, link.SubscriptionID)

	// The failed lease is kept for the record, marked abandoned
	all := subs.subs
	require.Len(t, all, 1)
	for _, sub := range all {
		assert.Equal(t, store.StateAbandoned, sub.State)
	}
}

func TestHandleCreated_HubRecoversWithinBudget(t *testing.T) {
	links, subs := newFakeLinks(), newFakeSubs()
	fetcher, hub := newFakeFetcher(), newFakeHub()
	fetcher.responses[testPageURL] = pageWithFeed
	fetcher.responses[testFeedURL] = feedWithHub
	hub.failures = 2

	m := newTestManager(t, links, subs, fetcher, hub)
	ctx := context.Background()

	err := m.handleCreated(ctx, &LinkEvent{LinkID: "l-1", ActorID: "alice", URL: testPageURL, Broadcast: true})
	require.NoError(t, err)

	assert.Equal(t, 3, hub.subscribeCount())

	link, err := links.Get(ctx, "l-1")
	require.NoError(t, err)
	assert.NotEmpty(t, link.SubscriptionID)
}

func TestHandleCreated_RedeliveredEventIsIdempotent(t *testing.T) {
	links, subs := newFakeLinks(), newFakeSubs()
	fetcher, hub := newFakeFetcher(), newFakeHub()
	fetcher.responses[testPageURL] = pageWithFeed
	fetcher.responses[testFeedURL] = feedWithHub

	m := newTestManager(t, links, subs, fetcher, hub)
	ctx := context.Background()

	ev := &LinkEvent{LinkID: "l-1", ActorID: "alice", URL: testPageURL, Broadcast: true}
	require.NoError(t, m.handleCreated(ctx, ev))
	require.NoError(t, m.handleCreated(ctx, ev))

	assert.Equal(t, 1, hub.subscribeCount())
}

func TestHandleCreated_NonBroadcastLinkIsStoredButNeverSubscribed(t *testing.T) {
	links, subs := newFakeLinks(), newFakeSubs()
	fetcher, hub := newFakeFetcher(), newFakeHub()
	fetcher.responses[testPageURL] = pageWithFeed
	fetcher.responses[testFeedURL] = feedWithHub

	m := newTestManager(t, links, subs, fetcher, hub)
	ctx := context.Background()

	err := m.handleCreated(ctx, &LinkEvent{
		LinkID: "l-1", ActorID: "alice", ProjectID: "p-9", URL: testPageURL,
	})
	require.NoError(t, err)

	link, err := links.Get(ctx, "l-1")
	require.NoError(t, err)
	assert.False(t, link.Broadcast)
	assert.Equal(t, "p-9", link.ProjectID)
	assert.Empty(t, link.SubscriptionID)

	assert.Zero(t, fetcher.callCount(testPageURL))
	assert.Zero(t, hub.subscribeCount())
}

func TestHandleDeleted_LastLinkReleasesSubscription(t *testing.T) {
	links, subs := newFakeLinks(), newFakeSubs()
	fetcher, hub := newFakeFetcher(), newFakeHub()

	ctx := context.Background()
	sub := &store.Subscription{ID: "sub-1", Topic: testFeedURL, Hub: testHubURL, State: store.StateVerified}
	require.NoError(t, subs.Create(ctx, sub))
	require.NoError(t, links.Create(ctx, &store.Link{
		ID: "l-1", ActorID: "alice", URL: testPageURL,
		FeedURL: testFeedURL, SubscriptionID: "sub-1",
	}))

	m := newTestManager(t, links, subs, fetcher, hub)

	require.NoError(t, m.handleDeleted(ctx, &LinkEvent{LinkID: "l-1"}))

	_, err := links.Get(ctx, "l-1")
	assert.ErrorIs(t, err, errors.ErrKeyNotFound)

	got, err := subs.Get(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, store.StateUnsubbed, got.State)

	// The hub request is fired asynchronously
	select {
	case released := <-hub.unsubsCh:
		assert.Equal(t, "sub-1", released.ID)
	case <-time.After(time.Second):
		t.Fatal("expected an unsubscribe request")
	}
}

func TestHandleDeleted_SharedSubscriptionIsKept(t *testing.T) {
	links, subs := newFakeLinks(), newFakeSubs()
	fetcher, hub := newFakeFetcher(), newFakeHub()

	ctx := context.Background()
	sub := &store.Subscription{ID: "sub-1", Topic: testFeedURL, Hub: testHubURL, State: store.StateVerified}
	require.NoError(t, subs.Create(ctx, sub))
	for _, l := range []*store.Link{
		{ID: "l-1", ActorID: "alice", URL: testPageURL, FeedURL: testFeedURL, SubscriptionID: "sub-1"},
		{ID: "l-2", ActorID: "bob", URL: testPageURL, FeedURL: testFeedURL, SubscriptionID: "sub-1"},
	} {
		require.NoError(t, links.Create(ctx, l))
	}

	m := newTestManager(t, links, subs, fetcher, hub)

	require.NoError(t, m.handleDeleted(ctx, &LinkEvent{LinkID: "l-1"}))

	got, err := subs.Get(ctx, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, store.StateVerified, got.State)

	select {
	case <-hub.unsubsCh:
		t.Fatal("unexpected unsubscribe while another link uses the feed")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHandleDeleted_UnknownLinkIsIgnored(t *testing.T) {
	m := newTestManager(t, newFakeLinks(), newFakeSubs(), newFakeFetcher(), newFakeHub())
	assert.NoError(t, m.handleDeleted(context.Background(), &LinkEvent{LinkID: "missing"}))
}

func TestParseLinkEvent(t *testing.T) {
	ev, err := ParseLinkEvent([]byte(`{"link_id":"l-1","actor_id":"alice","url":"http://example.com/"}`))
	require.NoError(t, err)
	assert.Equal(t, "l-1", ev.LinkID)
	assert.Equal(t, "alice", ev.ActorID)

	_, err = ParseLinkEvent([]byte(`{"actor_id":"alice"}`))
	assert.Error(t, err)

	_, err = ParseLinkEvent([]byte(`not json`))
	assert.Error(t, err)
}
