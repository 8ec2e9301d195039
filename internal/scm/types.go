package scm

import (
	"encoding/json"
	"time"

	"github.com/drewdunne/scmpoll/internal/vcs"
)

// TimestampLayout is the orchestrator's revision timestamp format.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Configuration is the orchestrator's per-material configuration, shaped
// {"key": {"value": "..."}}.
type Configuration map[string]ConfigurationValue

// ConfigurationValue holds a single configuration value.
type ConfigurationValue struct {
	Value string `json:"value"`
}

// Values flattens the configuration to key/value pairs.
func (c Configuration) Values() map[string]string {
	values := make(map[string]string, len(c))
	for k, v := range c {
		values[k] = v.Value
	}
	return values
}

// ConfigurationFrom builds a Configuration from key/value pairs.
func ConfigurationFrom(values map[string]string) Configuration {
	c := make(Configuration, len(values))
	for k, v := range values {
		c[k] = ConfigurationValue{Value: v}
	}
	return c
}

// ConfigurationRequest is the body of the validation and connection check
// requests.
type ConfigurationRequest struct {
	Configuration Configuration `json:"scm-configuration"`
}

// LatestRevisionRequest is the body of latest-revision.
type LatestRevisionRequest struct {
	Configuration   Configuration `json:"scm-configuration"`
	FlyweightFolder string        `json:"flyweight-folder"`
}

// LatestRevisionsSinceRequest is the body of latest-revisions-since.
type LatestRevisionsSinceRequest struct {
	Configuration    Configuration     `json:"scm-configuration"`
	FlyweightFolder  string            `json:"flyweight-folder"`
	PreviousRevision *Revision         `json:"previous-revision,omitempty"`
	SCMData          map[string]string `json:"scm-data"`
}

// CheckoutRequest is the body of checkout.
type CheckoutRequest struct {
	Configuration     Configuration `json:"scm-configuration"`
	DestinationFolder string        `json:"destination-folder"`
	Revision          Revision      `json:"revision"`
}

// Timestamp renders in TimestampLayout, always in UTC.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(TimestampLayout))
}

// UnmarshalJSON accepts TimestampLayout and RFC 3339. Anything else leaves
// the zero time; the orchestrator echoes timestamps back and only the
// revision id matters on the way in.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	for _, layout := range []string{TimestampLayout, time.RFC3339Nano} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	t.Time = time.Time{}
	return nil
}

// ModifiedFile is a path changed by a revision.
type ModifiedFile struct {
	FileName string `json:"fileName"`
	Action   string `json:"action"`
}

// Revision is a reported commit and its data bag.
type Revision struct {
	Revision        string            `json:"revision"`
	User            string            `json:"user"`
	Timestamp       Timestamp         `json:"timestamp"`
	RevisionComment string            `json:"revisionComment"`
	ModifiedFiles   []ModifiedFile    `json:"modifiedFiles"`
	Data            map[string]string `json:"data"`
}

func newRevision(r *vcs.Revision, data map[string]string) Revision {
	files := make([]ModifiedFile, 0, len(r.ModifiedFiles))
	for _, f := range r.ModifiedFiles {
		files = append(files, ModifiedFile{FileName: f.FileName, Action: f.Action})
	}
	return Revision{
		Revision:        r.Revision,
		User:            r.User,
		Timestamp:       Timestamp{Time: r.Timestamp},
		RevisionComment: r.Comment,
		ModifiedFiles:   files,
		Data:            data,
	}
}

// LatestRevisionResponse answers latest-revision. Revision is omitted when
// nothing changed.
type LatestRevisionResponse struct {
	Revision *Revision         `json:"revision,omitempty"`
	SCMData  map[string]string `json:"scm-data"`
}

// LatestRevisionsResponse answers latest-revisions-since.
type LatestRevisionsResponse struct {
	Revisions []Revision        `json:"revisions,omitempty"`
	SCMData   map[string]string `json:"scm-data"`
}

// Status values of StatusResponse.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// StatusResponse answers check-scm-connection and checkout.
type StatusResponse struct {
	Status   string   `json:"status"`
	Messages []string `json:"messages"`
}

// FieldError is a validation failure for one configuration key.
type FieldError struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}
