package models

import (
	"time"
)

// Status is the enrichment state of an Item
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusEnriched   Status = "enriched"
	// StatusFailed is never persisted; a failed attempt rolls back to StatusUploaded.
	StatusFailed Status = "failed"
)

// Payload is the encoded image as produced by the validator
type Payload struct {
	DataURI   string `json:"url"`
	MediaType string `json:"type"`
	Size      int64  `json:"size"`
}

// Item represents one ingested image and its workflow state
type Item struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Payload   Payload   `json:"payload"`
	Status    Status    `json:"status"`
	Metadata  *Metadata `json:"metadata,omitempty"`
	LastError string    `json:"lastError,omitempty"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"createdAt"`
}

// HasMetadata reports whether enrichment finished for the item
func (i Item) HasMetadata() bool {
	return i.Status == StatusEnriched && i.Metadata != nil
}

// Metadata is the result of enrichment
type Metadata struct {
	Title               string              `json:"title" yaml:"title"`
	Description         string              `json:"description" yaml:"description"`
	Keywords            []string            `json:"keywords" yaml:"keywords"`
	Tags                []string            `json:"tags" yaml:"tags"`
	Suggestions         []string            `json:"suggestions" yaml:"suggestions"`
	TechnicalAnalysis   TechnicalAnalysis   `json:"technicalAnalysis" yaml:"technicalanalysis"`
	CommercialViability CommercialViability `json:"commercialViability" yaml:"commercialviability"`
	GeneratedAt         time.Time           `json:"generatedAt" yaml:"generatedat"`
}

type TechnicalAnalysis struct {
	Composition  string `json:"composition" yaml:"composition"`
	Lighting     string `json:"lighting" yaml:"lighting"`
	Quality      string `json:"quality" yaml:"quality"`
	ColorProfile string `json:"colorProfile" yaml:"colorprofile"`
}

type CommercialViability struct {
	Score          float64 `json:"score" yaml:"score"`
	MarketDemand   string  `json:"marketDemand" yaml:"marketdemand"`
	SuggestedPrice string  `json:"suggestedPrice" yaml:"suggestedprice"`
	TargetAudience string  `json:"targetAudience" yaml:"targetaudience"`
}

// Credentials maps a provider name to its API key
type Credentials map[string]string

// Known provider names
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
)

// Clone returns a copy of the credential map
func (c Credentials) Clone() Credentials {
	out := make(Credentials, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy of the item so snapshots never alias store state
func (i Item) Clone() Item {
	if i.Metadata != nil {
		md := i.Metadata.Clone()
		i.Metadata = &md
	}
	return i
}

func (m Metadata) Clone() Metadata {
	m.Keywords = append([]string(nil), m.Keywords...)
	m.Tags = append([]string(nil), m.Tags...)
	m.Suggestions = append([]string(nil), m.Suggestions...)
	return m
}
