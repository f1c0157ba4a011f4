package signature

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"postpipe-connector/internal/common/logging"
	"postpipe-connector/internal/models"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Compute returns the hex HMAC-SHA256 of data under secret.
func Compute(data []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignature reports whether signature is the hex HMAC-SHA256 of body
// under secret. The comparison is constant time; an optional "sha256=" prefix
// and letter case are ignored.
func VerifySignature(body []byte, signature, secret string) bool {
	if secret == "" || signature == "" {
		return false
	}
	signature = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(signature), "sha256="))
	return hmac.Equal([]byte(signature), []byte(Compute(body, secret)))
}

// ValidateTimestamp checks that ts is an ISO-8601 time within tolerance of now.
func ValidateTimestamp(ts string, now time.Time, tolerance time.Duration) error {
	if strings.TrimSpace(ts) == "" {
		return NewVerificationError("", "missing timestamp")
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(ts))
	if err != nil {
		return NewVerificationError("", "invalid ISO8601 timestamp: %v", err)
	}

	age := now.Sub(t)
	if age < 0 {
		age = -age
	}
	if age > tolerance {
		return NewVerificationError("", "timestamp outside allowed window: %v", age.Round(time.Second))
	}
	return nil
}

// ValidatePayloadIDs requires formId and submissionId, each at most
// MaxIDLength characters of letters, digits, '_' and '-'.
func ValidatePayloadIDs(payload *models.IngestPayload) error {
	if payload == nil {
		return NewValidationError("payload is required")
	}
	for _, id := range []struct{ name, value string }{
		{"formId", payload.FormID},
		{"submissionId", payload.SubmissionID},
	} {
		switch {
		case id.value == "":
			return NewValidationError("%s is required", id.name)
		case len(id.value) > MaxIDLength:
			return NewValidationError("%s exceeds %d characters", id.name, MaxIDLength)
		case !idPattern.MatchString(id.value):
			return NewValidationError("%s contains invalid characters", id.name)
		}
	}
	return nil
}

// Verifier checks ingest requests against the connector secret
type Verifier struct {
	config Config
	logger logging.Logger
}

// NewVerifier creates a new signature verifier
func NewVerifier(config Config, logger logging.Logger) *Verifier {
	config.SetDefaults()
	if logger == nil {
		logger = logging.Named("signature")
	}
	return &Verifier{config: config, logger: logger}
}

// Enabled reports whether a secret is configured.
func (v *Verifier) Enabled() bool {
	return v.config.Enabled()
}

// Verify checks the signature and timestamp of an ingest request whose raw
// body is body. It is a no-op without a secret.
func (v *Verifier) Verify(r *http.Request, body []byte) error {
	if !v.config.Enabled() {
		return nil
	}

	if header := r.Header.Get(v.config.Header); header != "" {
		if !VerifySignature(body, header, v.config.Secret) {
			return v.fail(NewVerificationError(v.config.Header, "signature mismatch"))
		}
	} else {
		embedded := gjson.GetBytes(body, "signature")
		if embedded.Type != gjson.String || embedded.Str == "" {
			return v.fail(NewVerificationError("", "missing signature"))
		}
		data := gjson.GetBytes(body, "data")
		if !data.Exists() {
			return v.fail(NewVerificationError("", "missing data for payload signature"))
		}
		if !VerifySignature([]byte(data.Raw), embedded.Str, v.config.Secret) {
			return v.fail(NewVerificationError("", "payload signature mismatch"))
		}
	}

	ts := gjson.GetBytes(body, "timestamp").String()
	if err := ValidateTimestamp(ts, v.config.Now(), v.config.Tolerance); err != nil {
		return v.fail(err)
	}

	v.logger.Debug("Signature verified successfully")
	return nil
}

func (v *Verifier) fail(err error) error {
	v.logger.Warn("Signature verification failed", logging.Err(err))
	return err
}

// PreserveRequestBody reads and preserves the request body for signature verification
func PreserveRequestBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
