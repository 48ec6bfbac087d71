package validation

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/pixcelsafe/pixcelsafe/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	MaxFileSize  int64 = 50 * 1024 * 1024
	MaxBatchSize       = 50
)

var (
	ErrUnsupportedType = errors.New("not a valid image file")
	ErrTooLarge        = fmt.Errorf("file too large (max %dMB)", MaxFileSize/1024/1024)
	ErrBatchTooLarge   = fmt.Errorf("maximum %d images allowed", MaxBatchSize)
	ErrEncoding        = errors.New("failed to encode image")
)

// Candidate is one file offered for upload
type Candidate struct {
	Name      string
	MediaType string
	Size      int64
	Open      func() (io.ReadCloser, error)
}

// FromBytes builds a candidate backed by an in-memory buffer
func FromBytes(name, mediaType string, data []byte) Candidate {
	return Candidate{
		Name:      name,
		MediaType: mediaType,
		Size:      int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// Accepted is a candidate that passed every check, with its encoded payload
type Accepted struct {
	Name    string
	Payload models.Payload
}

// Rejection explains why a file, or the whole batch when Name is empty, was refused
type Rejection struct {
	Name string
	Err  error
}

func (r Rejection) Batch() bool {
	return r.Name == ""
}

func (r Rejection) Message() string {
	if r.Batch() {
		return r.Err.Error()
	}
	return fmt.Sprintf("%s: %s", r.Name, r.Err)
}

type Result struct {
	Accepted   []Accepted
	Rejections []Rejection
}

type Validator struct {
	maxFileSize  int64
	maxBatchSize int
	workers      int
}

func New() *Validator {
	return &Validator{
		maxFileSize:  MaxFileSize,
		maxBatchSize: MaxBatchSize,
		workers:      runtime.NumCPU(),
	}
}

// Validate filters the batch and encodes the survivors. Accepted files keep
// their input order. An encoding failure only rejects the file it belongs to.
func (v *Validator) Validate(candidates []Candidate) Result {
	var result Result

	valid := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !strings.HasPrefix(strings.ToLower(c.MediaType), "image/") {
			result.Rejections = append(result.Rejections, Rejection{Name: c.Name, Err: ErrUnsupportedType})
			continue
		}
		if c.Size > v.maxFileSize {
			result.Rejections = append(result.Rejections, Rejection{Name: c.Name, Err: ErrTooLarge})
			continue
		}
		valid = append(valid, c)
	}

	if len(valid) > v.maxBatchSize {
		result.Rejections = append(result.Rejections, Rejection{Err: ErrBatchTooLarge})
		return result
	}

	payloads := make([]models.Payload, len(valid))
	errs := make([]error, len(valid))

	var g errgroup.Group
	g.SetLimit(v.workers)
	for i, c := range valid {
		g.Go(func() error {
			payloads[i], errs[i] = v.encode(c)
			return nil
		})
	}
	_ = g.Wait()

	for i, c := range valid {
		if errs[i] != nil {
			result.Rejections = append(result.Rejections, Rejection{Name: c.Name, Err: errs[i]})
			continue
		}
		result.Accepted = append(result.Accepted, Accepted{Name: c.Name, Payload: payloads[i]})
	}

	return result
}

func (v *Validator) encode(c Candidate) (models.Payload, error) {
	if c.Open == nil {
		return models.Payload{}, fmt.Errorf("%w: no data source", ErrEncoding)
	}
	rc, err := c.Open()
	if err != nil {
		return models.Payload{}, fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, v.maxFileSize+1))
	if err != nil {
		return models.Payload{}, fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	if int64(len(data)) > v.maxFileSize {
		return models.Payload{}, ErrTooLarge
	}

	mediaType := strings.ToLower(c.MediaType)
	return models.Payload{
		DataURI:   "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data),
		MediaType: mediaType,
		Size:      int64(len(data)),
	}, nil
}
