package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/pixcelsafe/pixcelsafe/internal/models"
	"github.com/pixcelsafe/pixcelsafe/internal/stats"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatParquet Format = "parquet"
)

// Row is the flat, payload-free view of an item written by every format
type Row struct {
	ID             string   `json:"id" yaml:"id" parquet:"id"`
	Name           string   `json:"name" yaml:"name" parquet:"name"`
	MediaType      string   `json:"type" yaml:"type" parquet:"type"`
	Size           int64    `json:"size" yaml:"size" parquet:"size"`
	Status         string   `json:"status" yaml:"status" parquet:"status"`
	CreatedAt      string   `json:"createdAt" yaml:"createdat" parquet:"created_at"`
	Title          string   `json:"title,omitempty" yaml:"title,omitempty" parquet:"title,optional"`
	Description    string   `json:"description,omitempty" yaml:"description,omitempty" parquet:"description,optional"`
	Keywords       []string `json:"keywords,omitempty" yaml:"keywords,omitempty" parquet:"keywords,list"`
	Tags           []string `json:"tags,omitempty" yaml:"tags,omitempty" parquet:"tags,list"`
	Suggestions    []string `json:"suggestions,omitempty" yaml:"suggestions,omitempty" parquet:"suggestions,list"`
	Score          float64  `json:"score,omitempty" yaml:"score,omitempty" parquet:"score,optional"`
	MarketDemand   string   `json:"marketDemand,omitempty" yaml:"marketdemand,omitempty" parquet:"market_demand,optional"`
	SuggestedPrice string   `json:"suggestedPrice,omitempty" yaml:"suggestedprice,omitempty" parquet:"suggested_price,optional"`
	TargetAudience string   `json:"targetAudience,omitempty" yaml:"targetaudience,omitempty" parquet:"target_audience,optional"`
	LastError      string   `json:"lastError,omitempty" yaml:"lasterror,omitempty" parquet:"last_error,optional"`
}

// Document is the YAML/JSON export layout
type Document struct {
	ExportedAt string           `json:"exportedAt" yaml:"exportedat"`
	Summary    stats.Statistics `json:"summary" yaml:"summary"`
	Items      []Row            `json:"items" yaml:"items"`
}

func toRows(items []models.Item) []Row {
	rows := make([]Row, 0, len(items))
	for _, item := range items {
		row := Row{
			ID:        item.ID,
			Name:      item.Name,
			MediaType: item.Payload.MediaType,
			Size:      item.Payload.Size,
			Status:    string(item.Status),
			CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339),
			LastError: item.LastError,
		}
		if md := item.Metadata; md != nil {
			row.Title = md.Title
			row.Description = md.Description
			row.Keywords = md.Keywords
			row.Tags = md.Tags
			row.Suggestions = md.Suggestions
			row.Score = md.CommercialViability.Score
			row.MarketDemand = md.CommercialViability.MarketDemand
			row.SuggestedPrice = md.CommercialViability.SuggestedPrice
			row.TargetAudience = md.CommercialViability.TargetAudience
		}
		rows = append(rows, row)
	}
	return rows
}

// FormatFromPath picks the format from a file extension
func FormatFromPath(p string) (Format, error) {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".parquet":
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s (supported: .json, .yaml, .parquet)", filepath.Ext(p))
	}
}

// Write encodes items in format to w
func Write(w io.Writer, format Format, items []models.Item) error {
	rows := toRows(items)

	switch format {
	case FormatParquet:
		pw := parquet.NewGenericWriter[Row](w)
		if _, err := pw.Write(rows); err != nil {
			return fmt.Errorf("failed to write parquet rows: %w", err)
		}
		if err := pw.Close(); err != nil {
			return fmt.Errorf("failed to close parquet writer: %w", err)
		}
		return nil
	case FormatJSON, FormatYAML:
		doc := Document{
			ExportedAt: time.Now().UTC().Format(time.RFC3339),
			Summary:    stats.Compute(items),
			Items:      rows,
		}
		if format == FormatJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}

// SaveToFile writes items to path, choosing the format by extension
func SaveToFile(path string, items []models.Item) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := Write(file, format, items); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
