package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pixcelsafe/pixcelsafe/internal/models"
	"github.com/pixcelsafe/pixcelsafe/internal/storage"
)

// Client drives the per-item state machine around an enrichment call
type Client struct {
	catalog   *storage.Catalog
	transport Transport
	provider  string
	timeout   time.Duration
	notify    func(models.Notice)
	wg        sync.WaitGroup
}

type Option func(*Client)

// WithProvider selects which credential authorizes calls (default gemini)
func WithProvider(provider string) Option {
	return func(c *Client) { c.provider = provider }
}

// WithTimeout bounds each service call; zero disables the bound
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithNotifier receives the success/failure notice of every resolved call
func WithNotifier(fn func(models.Notice)) Option {
	return func(c *Client) { c.notify = fn }
}

func NewClient(catalog *storage.Catalog, transport Transport, opts ...Option) *Client {
	c := &Client{
		catalog:   catalog,
		transport: transport,
		provider:  models.ProviderGemini,
		notify:    func(models.Notice) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Provider() string {
	return c.provider
}

// Request admits an enrichment call for id and returns its task. It fails
// without side effects when the credential is missing or the item is absent,
// already processing, or already enriched.
func (c *Client) Request(ctx context.Context, id string, creds models.Credentials) (*Task, error) {
	apiKey := strings.TrimSpace(creds[c.provider])
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingCredential, c.provider)
	}

	if err := c.catalog.BeginEnrichment(id); err != nil {
		return nil, err
	}

	task := newTask(id)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(context.WithoutCancel(ctx), task, apiKey)
	}()
	return task, nil
}

func (c *Client) run(ctx context.Context, task *Task, apiKey string) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	md, err := c.transport.Generate(ctx, task.ItemID, apiKey)
	if err == nil {
		err = validateMetadata(md)
	}
	if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrUnavailable) {
		err = fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if err != nil {
		c.fail(task, err)
		return
	}
	c.merge(task, md)
}

func (c *Client) merge(task *Task, md *models.Metadata) {
	var name string
	applied := c.catalog.Update(task.ItemID, func(item *models.Item) {
		name = item.Name
		item.Status = models.StatusEnriched
		item.Metadata = md
		item.LastError = ""
	})
	if !applied {
		slog.Debug("Discarding enrichment result for deleted item", "item_id", task.ItemID)
		task.resolve(nil, true, nil)
		return
	}

	slog.Info("Metadata generated", "item_id", task.ItemID, "score", md.CommercialViability.Score)
	c.notify(models.Notice{
		Level:   models.NoticeSuccess,
		Message: fmt.Sprintf("Metadata generated for %s", name),
		ItemID:  task.ItemID,
		At:      time.Now(),
	})
	task.resolve(md, false, nil)
}

func (c *Client) fail(task *Task, cause error) {
	var name string
	applied := c.catalog.Update(task.ItemID, func(item *models.Item) {
		name = item.Name
		item.Status = models.StatusUploaded
		item.LastError = cause.Error()
	})
	if !applied {
		slog.Debug("Dropping enrichment failure for deleted item", "item_id", task.ItemID, "err", cause)
		task.resolve(nil, true, nil)
		return
	}

	slog.Error("Failed to generate metadata", "item_id", task.ItemID, "err", cause)
	c.notify(models.Notice{
		Level:   models.NoticeError,
		Message: fmt.Sprintf("Failed to generate metadata for %s: %v", name, cause),
		ItemID:  task.ItemID,
		At:      time.Now(),
	})
	task.resolve(nil, false, cause)
}

// Wait blocks until every outstanding call has resolved or ctx ends
func (c *Client) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
