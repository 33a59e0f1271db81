package enrich

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Kind identifies the wish source the pipeline enriches from.
type Kind string

const (
	KindURL   Kind = "url"
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Job is one enrichment unit of work. It is small enough to travel through
// the message broker; image bytes stay on disk under the uploads staging
// directory and are referenced by path, which requires the api and worker to
// share the uploads volume (see EnsureStagingDir).
type Job struct {
	ItemID    uuid.UUID `json:"item_id"`
	UserID    uuid.UUID `json:"user_id"`
	Kind      Kind      `json:"kind"`
	URL       string    `json:"url,omitempty"`
	Text      string    `json:"text,omitempty"`
	ImagePath string    `json:"image_path,omitempty"`
	ImageMime string    `json:"image_mime,omitempty"`
	Language  string    `json:"language,omitempty"`
}

// Validate checks the job is dispatchable.
func (j Job) Validate() error {
	if j.ItemID == uuid.Nil {
		return fmt.Errorf("job missing item id")
	}
	if j.UserID == uuid.Nil {
		return fmt.Errorf("job missing user id")
	}
	switch j.Kind {
	case KindURL:
		if j.URL == "" {
			return fmt.Errorf("url job missing url")
		}
	case KindText:
		if j.Text == "" {
			return fmt.Errorf("text job missing text")
		}
	case KindImage:
		if j.ImagePath == "" {
			return fmt.Errorf("image job missing image path")
		}
	default:
		return fmt.Errorf("unknown job kind %q", j.Kind)
	}
	return nil
}

// Input returns the raw user input for audit entries.
func (j Job) Input() string {
	switch j.Kind {
	case KindURL:
		return j.URL
	case KindText:
		return j.Text
	default:
		return j.ImagePath
	}
}

// Encode serializes the job for the broker.
func (j Job) Encode() ([]byte, error) {
	return json.Marshal(j)
}

// DecodeJob parses a job from broker payload bytes.
func DecodeJob(data []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return Job{}, fmt.Errorf("decoding enrich job: %w", err)
	}
	if err := job.Validate(); err != nil {
		return Job{}, err
	}
	return job, nil
}
