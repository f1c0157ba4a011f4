package testutil

import (
	"time"

	"postpipe-connector/internal/models"
)

// PayloadBuilder helps build test ingest payloads
type PayloadBuilder struct {
	payload *models.IngestPayload
}

// NewPayloadBuilder starts from a valid contact-form submission.
func NewPayloadBuilder() *PayloadBuilder {
	return &PayloadBuilder{
		payload: &models.IngestPayload{
			FormID:       "contact-us",
			SubmissionID: "sub_test",
			Timestamp:    time.Now().UTC().Format(time.RFC3339),
			Data:         map[string]interface{}{"email": "test@example.com"},
		},
	}
}

func (b *PayloadBuilder) WithFormID(id string) *PayloadBuilder {
	b.payload.FormID = id
	return b
}

func (b *PayloadBuilder) WithFormName(name string) *PayloadBuilder {
	b.payload.FormName = name
	return b
}

func (b *PayloadBuilder) WithSubmissionID(id string) *PayloadBuilder {
	b.payload.SubmissionID = id
	return b
}

func (b *PayloadBuilder) WithTarget(alias string) *PayloadBuilder {
	b.payload.TargetDatabase = alias
	return b
}

func (b *PayloadBuilder) WithDatabaseConfig(envVar, dbName string) *PayloadBuilder {
	b.payload.DatabaseConfig = &models.DatabaseConfig{URI: envVar, DBName: dbName}
	return b
}

func (b *PayloadBuilder) WithData(key string, value interface{}) *PayloadBuilder {
	b.payload.Data[key] = value
	return b
}

func (b *PayloadBuilder) WithTimestamp(t time.Time) *PayloadBuilder {
	b.payload.Timestamp = t.UTC().Format(time.RFC3339Nano)
	return b
}

func (b *PayloadBuilder) Build() *models.IngestPayload {
	p := *b.payload
	p.Data = make(map[string]interface{}, len(b.payload.Data))
	for k, v := range b.payload.Data {
		p.Data[k] = v
	}
	return &p
}
