package enrichment

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pixcelsafe/pixcelsafe/internal/models"
	"github.com/pixcelsafe/pixcelsafe/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport blocks every call until release is closed, then answers with md/err
type fakeTransport struct {
	calls   atomic.Int32
	release chan struct{}
	md      *models.Metadata
	err     error

	mu   sync.Mutex
	keys []string
}

func newFakeTransport(md *models.Metadata, err error) *fakeTransport {
	return &fakeTransport{release: make(chan struct{}), md: md, err: err}
}

func (f *fakeTransport) Generate(ctx context.Context, imageID, apiKey string) (*models.Metadata, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.keys = append(f.keys, apiKey)
	f.mu.Unlock()

	select {
	case <-f.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	md := *f.md
	return &md, nil
}

func beachMetadata() *models.Metadata {
	return &models.Metadata{
		Title:               "Sunny beach",
		Keywords:            []string{"beach"},
		Suggestions:         []string{"straighten horizon"},
		CommercialViability: models.CommercialViability{Score: 8.5},
	}
}

var geminiCreds = models.Credentials{models.ProviderGemini: "AIza-test-key-123"}

func waitTask(t *testing.T, task *Task) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	select {
	case <-task.Done():
	case <-ctx.Done():
		t.Fatal("task did not resolve")
	}
	return task.Wait(ctx)
}

func newCatalog(ids ...string) *storage.Catalog {
	c := storage.New()
	items := make([]models.Item, len(ids))
	for i, id := range ids {
		items[i] = models.Item{ID: id, Name: id + ".jpg"}
	}
	c.Insert(items)
	return c
}

func TestRequestSuccessMergesMetadata(t *testing.T) {
	catalog := newCatalog("a")
	transport := newFakeTransport(beachMetadata(), nil)

	var notices []models.Notice
	var mu sync.Mutex
	client := NewClient(catalog, transport, WithNotifier(func(n models.Notice) {
		mu.Lock()
		notices = append(notices, n)
		mu.Unlock()
	}))

	task, err := client.Request(context.Background(), "a", geminiCreds)
	require.NoError(t, err)

	item, _ := catalog.Get("a")
	assert.Equal(t, models.StatusProcessing, item.Status)
	assert.Nil(t, task.Metadata())
	assert.NoError(t, task.Err())

	close(transport.release)
	require.NoError(t, waitTask(t, task))

	item, _ = catalog.Get("a")
	assert.Equal(t, models.StatusEnriched, item.Status)
	require.NotNil(t, item.Metadata)
	assert.Equal(t, "Sunny beach", item.Metadata.Title)
	assert.Equal(t, "Sunny beach", task.Metadata().Title)
	assert.False(t, task.Discarded())
	assert.Equal(t, []string{"AIza-test-key-123"}, transport.keys)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, notices, 1)
	assert.Equal(t, models.NoticeSuccess, notices[0].Level)
	assert.Equal(t, "a", notices[0].ItemID)
}

func TestRequestMissingCredential(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		creds    models.Credentials
	}{
		{name: "no credentials", provider: models.ProviderGemini, creds: nil},
		{name: "blank key", provider: models.ProviderGemini, creds: models.Credentials{models.ProviderGemini: "   "}},
		{name: "other provider configured", provider: models.ProviderOpenAI, creds: geminiCreds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := newCatalog("a")
			transport := newFakeTransport(beachMetadata(), nil)
			client := NewClient(catalog, transport, WithProvider(tt.provider))

			task, err := client.Request(context.Background(), "a", tt.creds)
			assert.Nil(t, task)
			assert.ErrorIs(t, err, ErrMissingCredential)

			item, _ := catalog.Get("a")
			assert.Equal(t, models.StatusUploaded, item.Status)
			assert.Zero(t, item.Attempts)
			assert.Zero(t, transport.calls.Load())
		})
	}
}

func TestRequestWhileProcessingIsRejected(t *testing.T) {
	catalog := newCatalog("a")
	transport := newFakeTransport(beachMetadata(), nil)
	client := NewClient(catalog, transport)

	first, err := client.Request(context.Background(), "a", geminiCreds)
	require.NoError(t, err)

	second, err := client.Request(context.Background(), "a", geminiCreds)
	assert.Nil(t, second)
	assert.ErrorIs(t, err, storage.ErrInFlight)

	close(transport.release)
	require.NoError(t, waitTask(t, first))
	assert.Equal(t, int32(1), transport.calls.Load())

	_, err = client.Request(context.Background(), "a", geminiCreds)
	assert.ErrorIs(t, err, storage.ErrAlreadyEnriched)
	assert.Equal(t, int32(1), transport.calls.Load())
}

func TestRequestUnknownItem(t *testing.T) {
	client := NewClient(storage.New(), newFakeTransport(beachMetadata(), nil))
	_, err := client.Request(context.Background(), "ghost", geminiCreds)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRequestFailureRollsBack(t *testing.T) {
	catalog := newCatalog("a")
	transport := newFakeTransport(nil, ErrUnavailable)

	var notices atomic.Int32
	client := NewClient(catalog, transport, WithNotifier(func(n models.Notice) {
		if n.Level == models.NoticeError {
			notices.Add(1)
		}
	}))

	task, err := client.Request(context.Background(), "a", geminiCreds)
	require.NoError(t, err)
	close(transport.release)

	err = waitTask(t, task)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Nil(t, task.Metadata())

	item, _ := catalog.Get("a")
	assert.Equal(t, models.StatusUploaded, item.Status)
	assert.Nil(t, item.Metadata)
	assert.NotEmpty(t, item.LastError)
	assert.Equal(t, 1, item.Attempts)
	assert.Equal(t, int32(1), notices.Load())

	// a retry is an ordinary new request
	transport.err = nil
	transport.md = beachMetadata()
	retry, err := client.Request(context.Background(), "a", geminiCreds)
	require.NoError(t, err)
	require.NoError(t, waitTask(t, retry))

	item, _ = catalog.Get("a")
	assert.Equal(t, models.StatusEnriched, item.Status)
	assert.Empty(t, item.LastError)
	assert.Equal(t, 2, item.Attempts)
}

func TestRequestIncompleteResultIsFailure(t *testing.T) {
	tests := []struct {
		name string
		md   *models.Metadata
	}{
		{name: "missing title", md: &models.Metadata{CommercialViability: models.CommercialViability{Score: 5}}},
		{name: "score out of range", md: &models.Metadata{Title: "x", CommercialViability: models.CommercialViability{Score: 11}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := newCatalog("a")
			transport := newFakeTransport(tt.md, nil)
			close(transport.release)
			client := NewClient(catalog, transport)

			task, err := client.Request(context.Background(), "a", geminiCreds)
			require.NoError(t, err)
			assert.ErrorIs(t, waitTask(t, task), ErrMalformed)

			item, _ := catalog.Get("a")
			assert.Equal(t, models.StatusUploaded, item.Status)
			assert.Nil(t, item.Metadata)
		})
	}
}

func TestDeleteWhileOutstandingDiscardsResult(t *testing.T) {
	for _, tt := range []struct {
		name string
		err  error
	}{
		{name: "late success"},
		{name: "late failure", err: ErrUnavailable},
	} {
		t.Run(tt.name, func(t *testing.T) {
			catalog := newCatalog("a", "b")
			transport := newFakeTransport(beachMetadata(), tt.err)
			var notices atomic.Int32
			client := NewClient(catalog, transport, WithNotifier(func(models.Notice) { notices.Add(1) }))

			task, err := client.Request(context.Background(), "a", geminiCreds)
			require.NoError(t, err)

			require.True(t, catalog.Delete("a"))
			close(transport.release)

			assert.NoError(t, waitTask(t, task))
			assert.True(t, task.Discarded())

			_, ok := catalog.Get("a")
			assert.False(t, ok)
			assert.Equal(t, 1, catalog.Len())
			assert.Zero(t, notices.Load())
		})
	}
}

func TestRequestTimeoutIsUnavailable(t *testing.T) {
	catalog := newCatalog("a")
	transport := newFakeTransport(beachMetadata(), nil) // never released
	client := NewClient(catalog, transport, WithTimeout(20*time.Millisecond))

	task, err := client.Request(context.Background(), "a", geminiCreds)
	require.NoError(t, err)

	err = waitTask(t, task)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	item, _ := catalog.Get("a")
	assert.Equal(t, models.StatusUploaded, item.Status)
}

func TestRequestOutlivesCallerContext(t *testing.T) {
	catalog := newCatalog("a")
	transport := newFakeTransport(beachMetadata(), nil)
	client := NewClient(catalog, transport)

	ctx, cancel := context.WithCancel(context.Background())
	task, err := client.Request(ctx, "a", geminiCreds)
	require.NoError(t, err)
	cancel()

	close(transport.release)
	require.NoError(t, waitTask(t, task))

	item, _ := catalog.Get("a")
	assert.Equal(t, models.StatusEnriched, item.Status)
}

func TestResultsResolveOutOfOrder(t *testing.T) {
	catalog := newCatalog("a", "b")
	slow := newFakeTransport(beachMetadata(), nil)
	client := NewClient(catalog, slow)

	ta, err := client.Request(context.Background(), "a", geminiCreds)
	require.NoError(t, err)
	tb, err := client.Request(context.Background(), "b", geminiCreds)
	require.NoError(t, err)

	close(slow.release)
	require.NoError(t, waitTask(t, tb))
	require.NoError(t, waitTask(t, ta))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, client.Wait(ctx))

	for _, item := range catalog.Snapshot() {
		assert.Equal(t, models.StatusEnriched, item.Status, item.ID)
	}
}

func TestClientWaitHonorsContext(t *testing.T) {
	catalog := newCatalog("a")
	transport := newFakeTransport(beachMetadata(), nil)
	client := NewClient(catalog, transport)

	_, err := client.Request(context.Background(), "a", geminiCreds)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.True(t, errors.Is(client.Wait(ctx), context.DeadlineExceeded))

	close(transport.release)
	require.NoError(t, client.Wait(context.Background()))
}

func TestTaskMetadataIsDetachedFromCatalog(t *testing.T) {
	catalog := newCatalog("a")
	transport := newFakeTransport(beachMetadata(), nil)
	close(transport.release)
	client := NewClient(catalog, transport)

	task, err := client.Request(context.Background(), "a", geminiCreds)
	require.NoError(t, err)
	require.NoError(t, waitTask(t, task))

	task.Metadata().Title = "edited by caller"
	task.Metadata().Keywords[0] = "edited"

	item, _ := catalog.Get("a")
	assert.Equal(t, "Sunny beach", item.Metadata.Title)
	assert.Equal(t, []string{"beach"}, item.Metadata.Keywords)
}
