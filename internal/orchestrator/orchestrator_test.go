package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pixcelsafe/pixcelsafe/internal/enrichment"
	"github.com/pixcelsafe/pixcelsafe/internal/models"
	"github.com/pixcelsafe/pixcelsafe/internal/providers"
	"github.com/pixcelsafe/pixcelsafe/internal/stats"
	"github.com/pixcelsafe/pixcelsafe/internal/storage"
	"github.com/pixcelsafe/pixcelsafe/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu      sync.Mutex
	notices []models.Notice
}

func (c *collector) Notify(n models.Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, n)
}

func (c *collector) messages(level models.NoticeLevel) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, n := range c.notices {
		if n.Level == level {
			out = append(out, n.Message)
		}
	}
	return out
}

func newOrchestrator(t *testing.T, creds models.Credentials) (*Orchestrator, *collector) {
	t.Helper()
	catalog := storage.New()
	notices := &collector{}
	service := enrichment.NewService(providers.NewPlaceholder(0), enrichment.WithImageLookup(catalog))
	client := enrichment.NewClient(catalog, service, enrichment.WithNotifier(notices.Notify))
	return New(catalog, validation.New(), client, notices, creds), notices
}

func wait(t *testing.T, o *Orchestrator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, o.Wait(ctx))
}

func TestUploadAndEnrichScenario(t *testing.T) {
	o, notices := newOrchestrator(t, models.Credentials{models.ProviderGemini: "AIza-key"})

	beach := make([]byte, 2*1024*1024)
	copy(beach, []byte{0xff, 0xd8, 0xff, 0xe0})
	report := o.Upload([]validation.Candidate{
		validation.FromBytes("beach.jpg", "image/jpeg", beach),
		validation.FromBytes("notes.txt", "text/plain", []byte("todo")),
	})
	require.Len(t, report.Inserted, 1)
	assert.Equal(t, int64(len(beach)), report.Inserted[0].Payload.Size)
	assert.Equal(t, models.StatusUploaded, report.Inserted[0].Status)
	require.Len(t, report.Rejections, 1)
	assert.Equal(t, "notes.txt", report.Rejections[0].Name)
	assert.Equal(t, []string{"1 image(s) uploaded successfully"}, notices.messages(models.NoticeSuccess))
	assert.Equal(t, stats.Statistics{TotalImages: 1}, o.Stats())

	id := report.Inserted[0].ID
	task, err := o.RequestEnrichment(context.Background(), id)
	require.NoError(t, err)
	require.NoError(t, task.Wait(context.Background()))
	wait(t, o)

	items := o.Items()
	require.Len(t, items, 1)
	assert.Equal(t, models.StatusEnriched, items[0].Status)
	assert.Equal(t, "beach.jpg", items[0].Name)
	assert.Equal(t, int64(len(beach)), items[0].Payload.Size)
	assert.Equal(t, "AI Generated Title for Image "+id, items[0].Metadata.Title)
	score := items[0].Metadata.CommercialViability.Score
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 10.0)
	assert.Equal(t, stats.Statistics{TotalImages: 1, WithMetadata: 1, AISuggestions: 1}, o.Stats())

	_, err = o.RequestEnrichment(context.Background(), id)
	assert.ErrorIs(t, err, storage.ErrAlreadyEnriched)
}

func TestUploadBatchTooLarge(t *testing.T) {
	o, notices := newOrchestrator(t, nil)

	candidates := make([]validation.Candidate, validation.MaxBatchSize+1)
	for i := range candidates {
		candidates[i] = validation.FromBytes(fmt.Sprintf("%d.png", i), "image/png", []byte{1})
	}
	report := o.Upload(candidates)

	assert.Empty(t, report.Inserted)
	assert.Empty(t, o.Items())
	assert.Equal(t, []string{"maximum 50 images allowed"}, notices.messages(models.NoticeError))
	assert.Empty(t, notices.messages(models.NoticeSuccess))
}

func TestRequestWithoutCredentials(t *testing.T) {
	o, notices := newOrchestrator(t, nil)
	report := o.Upload([]validation.Candidate{validation.FromBytes("a.png", "image/png", []byte{1})})
	id := report.Inserted[0].ID

	_, err := o.RequestEnrichment(context.Background(), id)
	assert.ErrorIs(t, err, enrichment.ErrMissingCredential)
	assert.Len(t, notices.messages(models.NoticeError), 1)
	assert.Equal(t, models.StatusUploaded, o.Items()[0].Status)

	o.SetCredentials(models.Credentials{models.ProviderGemini: "AIza-key"})
	task, err := o.RequestEnrichment(context.Background(), id)
	require.NoError(t, err)
	require.NoError(t, task.Wait(context.Background()))
}

func TestDelete(t *testing.T) {
	o, _ := newOrchestrator(t, nil)
	report := o.Upload([]validation.Candidate{
		validation.FromBytes("a.png", "image/png", []byte{1}),
		validation.FromBytes("b.png", "image/png", []byte{2}),
	})

	require.NoError(t, o.Delete(report.Inserted[0].ID))
	assert.ErrorIs(t, o.Delete(report.Inserted[0].ID), storage.ErrNotFound)
	assert.ErrorIs(t, o.Delete("missing"), storage.ErrNotFound)
	assert.Equal(t, 1, o.Stats().TotalImages)
}

func TestCredentials(t *testing.T) {
	creds := models.Credentials{models.ProviderGemini: "g"}
	o, _ := newOrchestrator(t, creds)

	creds[models.ProviderOpenAI] = "leak"
	got := o.Credentials()
	assert.NotContains(t, got, models.ProviderOpenAI)

	got[models.ProviderClaude] = "leak"
	assert.NotContains(t, o.Credentials(), models.ProviderClaude)

	assert.Equal(t, map[string]string{
		models.ProviderGemini: "configured",
		models.ProviderOpenAI: "not configured",
		models.ProviderClaude: "not configured",
	}, o.CredentialStatus())
}

func TestOnRender(t *testing.T) {
	o, _ := newOrchestrator(t, nil)

	var mu sync.Mutex
	var seen []int
	o.OnRender(func(s stats.Statistics) {
		mu.Lock()
		seen = append(seen, s.TotalImages)
		mu.Unlock()
	})

	report := o.Upload([]validation.Candidate{
		validation.FromBytes("a.png", "image/png", []byte{1}),
		validation.FromBytes("b.png", "image/png", []byte{2}),
	})
	require.NoError(t, o.Delete(report.Inserted[1].ID))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{2, 1}, seen)
}

func TestSearch(t *testing.T) {
	o, _ := newOrchestrator(t, models.Credentials{models.ProviderGemini: "k"})
	report := o.Upload([]validation.Candidate{
		validation.FromBytes("Beach.jpg", "image/jpeg", []byte{1}),
		validation.FromBytes("city.jpg", "image/jpeg", []byte{2}),
	})
	task, err := o.RequestEnrichment(context.Background(), report.Inserted[1].ID)
	require.NoError(t, err)
	require.NoError(t, task.Wait(context.Background()))

	tests := []struct {
		query string
		want  []string
	}{
		{query: "", want: []string{"Beach.jpg", "city.jpg"}},
		{query: "beach", want: []string{"Beach.jpg"}},
		{query: "LANDSCAPE", want: []string{"city.jpg"}},
		{query: "stock-photo", want: []string{"city.jpg"}},
		{query: "nothing-matches", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var names []string
			for _, item := range o.Search(tt.query) {
				names = append(names, item.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}
