package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pixcelsafe/pixcelsafe/internal/enrichment"
	"github.com/pixcelsafe/pixcelsafe/internal/models"
	"github.com/pixcelsafe/pixcelsafe/internal/stats"
	"github.com/pixcelsafe/pixcelsafe/internal/storage"
	"github.com/pixcelsafe/pixcelsafe/internal/validation"
)

// Notifier receives transient user-visible notices
type Notifier interface {
	Notify(models.Notice)
}

// LogNotifier writes notices to the default slog logger
type LogNotifier struct{}

func (LogNotifier) Notify(n models.Notice) {
	switch n.Level {
	case models.NoticeError:
		slog.Warn(n.Message, "item_id", n.ItemID)
	default:
		slog.Info(n.Message, "item_id", n.ItemID)
	}
}

// UploadReport summarizes one Upload call
type UploadReport struct {
	Inserted   []models.Item
	Rejections []validation.Rejection
}

// Orchestrator wires user actions to the validator, catalog and enrichment
// client, and keeps derived view state current.
type Orchestrator struct {
	catalog   *storage.Catalog
	validator *validation.Validator
	client    *enrichment.Client
	notifier  Notifier

	settingsMu  sync.RWMutex
	credentials models.Credentials

	viewMu   sync.RWMutex
	current  stats.Statistics
	onRender []func(stats.Statistics)
}

// New builds an orchestrator. The enrichment client must share catalog.
func New(catalog *storage.Catalog, validator *validation.Validator, client *enrichment.Client, notifier Notifier, creds models.Credentials) *Orchestrator {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	o := &Orchestrator{
		catalog:     catalog,
		validator:   validator,
		client:      client,
		notifier:    notifier,
		credentials: creds.Clone(),
	}
	catalog.OnChange(o.render)
	o.render()
	return o
}

// OnRender registers fn to receive fresh statistics after every catalog mutation
func (o *Orchestrator) OnRender(fn func(stats.Statistics)) {
	o.viewMu.Lock()
	defer o.viewMu.Unlock()
	o.onRender = append(o.onRender, fn)
}

// render snapshots under viewMu so the last mutation always wins
func (o *Orchestrator) render() {
	o.viewMu.Lock()
	s := stats.Compute(o.catalog.Snapshot())
	o.current = s
	hooks := append([]func(stats.Statistics){}, o.onRender...)
	o.viewMu.Unlock()

	for _, fn := range hooks {
		fn(s)
	}
}

// Upload validates candidates and inserts the accepted ones in input order
func (o *Orchestrator) Upload(candidates []validation.Candidate) UploadReport {
	result := o.validator.Validate(candidates)

	for _, r := range result.Rejections {
		o.notifier.Notify(models.Notice{Level: models.NoticeError, Message: r.Message(), At: time.Now()})
	}

	if len(result.Accepted) == 0 {
		return UploadReport{Rejections: result.Rejections}
	}

	items := make([]models.Item, 0, len(result.Accepted))
	for _, a := range result.Accepted {
		items = append(items, models.Item{
			Name:    a.Name,
			Payload: a.Payload,
			Status:  models.StatusUploaded,
		})
	}
	inserted := o.catalog.Insert(items)

	o.notifier.Notify(models.Notice{
		Level:   models.NoticeSuccess,
		Message: fmt.Sprintf("%d image(s) uploaded successfully", len(inserted)),
		At:      time.Now(),
	})
	return UploadReport{Inserted: inserted, Rejections: result.Rejections}
}

// Delete removes an item; unknown ids report storage.ErrNotFound
func (o *Orchestrator) Delete(id string) error {
	if !o.catalog.Delete(id) {
		return fmt.Errorf("delete %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// RequestEnrichment starts enrichment for id with the current credentials
func (o *Orchestrator) RequestEnrichment(ctx context.Context, id string) (*enrichment.Task, error) {
	task, err := o.client.Request(ctx, id, o.Credentials())
	if err != nil {
		o.notifier.Notify(models.Notice{Level: models.NoticeError, Message: err.Error(), ItemID: id, At: time.Now()})
		return nil, err
	}
	return task, nil
}

// SetCredentials replaces the credential set. It is the only writer.
func (o *Orchestrator) SetCredentials(creds models.Credentials) {
	o.settingsMu.Lock()
	defer o.settingsMu.Unlock()
	o.credentials = creds.Clone()
}

func (o *Orchestrator) Credentials() models.Credentials {
	o.settingsMu.RLock()
	defer o.settingsMu.RUnlock()
	return o.credentials.Clone()
}

// CredentialStatus reports "configured" or "not configured" per known provider
func (o *Orchestrator) CredentialStatus() map[string]string {
	creds := o.Credentials()
	status := make(map[string]string)
	for _, p := range []string{models.ProviderGemini, models.ProviderOpenAI, models.ProviderClaude} {
		if strings.TrimSpace(creds[p]) != "" {
			status[p] = "configured"
		} else {
			status[p] = "not configured"
		}
	}
	return status
}

// Stats returns the statistics computed after the latest mutation
func (o *Orchestrator) Stats() stats.Statistics {
	o.viewMu.RLock()
	defer o.viewMu.RUnlock()
	return o.current
}

func (o *Orchestrator) Items() []models.Item {
	return o.catalog.Snapshot()
}

// Search returns items whose name, title, keywords or tags contain query,
// case-insensitively. An empty query matches everything.
func (o *Orchestrator) Search(query string) []models.Item {
	q := strings.ToLower(strings.TrimSpace(query))
	items := o.catalog.Snapshot()
	if q == "" {
		return items
	}

	var matches []models.Item
	for _, item := range items {
		if matchesQuery(item, q) {
			matches = append(matches, item)
		}
	}
	return matches
}

func matchesQuery(item models.Item, q string) bool {
	if strings.Contains(strings.ToLower(item.Name), q) {
		return true
	}
	if item.Metadata == nil {
		return false
	}
	if strings.Contains(strings.ToLower(item.Metadata.Title), q) {
		return true
	}
	for _, list := range [][]string{item.Metadata.Keywords, item.Metadata.Tags} {
		for _, v := range list {
			if strings.Contains(strings.ToLower(v), q) {
				return true
			}
		}
	}
	return false
}

// Wait blocks until all outstanding enrichment calls have resolved
func (o *Orchestrator) Wait(ctx context.Context) error {
	return o.client.Wait(ctx)
}
