package models

import (
	"encoding/json"
	"strings"
	"time"
)

// ReceivedAtField is the document key of the server receipt time.
const ReceivedAtField = "_receivedAt"

// DatabaseConfig is connection wiring supplied by the caller. URI names an
// environment variable holding the connection string, never the string itself.
type DatabaseConfig struct {
	URI    string `json:"uri" bson:"uri"`
	DBName string `json:"dbName,omitempty" bson:"dbName,omitempty"`
}

// EnvVarName returns the trimmed variable name
func (d *DatabaseConfig) EnvVarName() string {
	if d == nil {
		return ""
	}
	return strings.TrimSpace(d.URI)
}

// IngestPayload is one form submission forwarded by the dashboard
type IngestPayload struct {
	FormID         string                 `json:"formId" bson:"formId"`
	FormName       string                 `json:"formName,omitempty" bson:"formName,omitempty"`
	TargetDatabase string                 `json:"targetDatabase,omitempty" bson:"targetDatabase,omitempty"`
	SubmissionID   string                 `json:"submissionId" bson:"submissionId"`
	Timestamp      string                 `json:"timestamp" bson:"timestamp"`
	Data           map[string]interface{} `json:"data" bson:"data"`
	Signature      string                 `json:"signature,omitempty" bson:"signature,omitempty"`
	DatabaseConfig *DatabaseConfig        `json:"databaseConfig,omitempty" bson:"databaseConfig,omitempty"`

	// Raw is the document the payload was decoded from. Routing rules read
	// fields from it, including keys the struct does not declare.
	Raw json.RawMessage `json:"-" bson:"-"`
}

// UnmarshalJSON accepts the legacy "targetDb" key as an alias of "targetDatabase".
func (p *IngestPayload) UnmarshalJSON(b []byte) error {
	type plain IngestPayload
	var aux struct {
		plain
		TargetDb string `json:"targetDb,omitempty"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*p = IngestPayload(aux.plain)
	p.Raw = append(json.RawMessage(nil), b...)
	if p.TargetDatabase == "" {
		p.TargetDatabase = aux.TargetDb
	}
	return nil
}

// SubmittedAt parses the submission timestamp. The zero time is returned for
// empty or malformed values.
func (p *IngestPayload) SubmittedAt() time.Time {
	ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// StoredSubmission is a payload as written to storage, stamped with its receipt time.
type StoredSubmission struct {
	IngestPayload `bson:",inline"`
	ReceivedAt    time.Time `json:"_receivedAt" bson:"_receivedAt"`
}

// MarshalJSON flattens the embedded payload next to _receivedAt.
func (s StoredSubmission) MarshalJSON() ([]byte, error) {
	type plain IngestPayload
	return json.Marshal(struct {
		plain
		ReceivedAt time.Time `json:"_receivedAt"`
	}{plain(s.IngestPayload), s.ReceivedAt})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (s *StoredSubmission) UnmarshalJSON(b []byte) error {
	var payload IngestPayload
	if err := json.Unmarshal(b, &payload); err != nil {
		return err
	}
	var stamp struct {
		ReceivedAt time.Time `json:"_receivedAt"`
	}
	if err := json.Unmarshal(b, &stamp); err != nil {
		return err
	}
	payload.Raw = nil
	s.IngestPayload = payload
	s.ReceivedAt = stamp.ReceivedAt
	return nil
}

// NewStoredSubmission copies payload and stamps it with receivedAt in UTC.
func NewStoredSubmission(payload *IngestPayload, receivedAt time.Time) *StoredSubmission {
	stored := &StoredSubmission{IngestPayload: *payload, ReceivedAt: receivedAt.UTC()}
	stored.Raw = nil
	return stored
}

// QueryOptions narrows a read of stored submissions.
type QueryOptions struct {
	Limit int `json:"limit,omitempty"`
	// FormName selects the collection when submissions were stored under
	// their form name rather than their form id.
	FormName       string          `json:"formName,omitempty"`
	TargetDatabase string          `json:"targetDatabase,omitempty"`
	DatabaseConfig *DatabaseConfig `json:"databaseConfig,omitempty"`
}

// DefaultQueryLimit applies when QueryOptions.Limit is not positive.
const DefaultQueryLimit = 50

// EffectiveLimit returns Limit or DefaultQueryLimit.
func (o QueryOptions) EffectiveLimit() int {
	if o.Limit <= 0 {
		return DefaultQueryLimit
	}
	return o.Limit
}

// Response statuses
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ConnectorResponse is the ingest acknowledgement returned to the dashboard.
type ConnectorResponse struct {
	Status  string `json:"status"`
	Stored  bool   `json:"stored"`
	Message string `json:"message,omitempty"`
}

// QueryResponse wraps query results for the HTTP surface.
type QueryResponse struct {
	Status      string             `json:"status"`
	Count       int                `json:"count"`
	Submissions []StoredSubmission `json:"submissions"`
	Message     string             `json:"message,omitempty"`
}
