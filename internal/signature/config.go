package signature

import "time"

const (
	// DefaultHeader carries the request signature.
	DefaultHeader = "X-PostPipe-Signature"
	// DefaultTolerance is how far a payload timestamp may drift from now.
	DefaultTolerance = 5 * time.Minute
	// MaxIDLength bounds formId and submissionId.
	MaxIDLength = 128
)

// Config configures request verification. An empty Secret disables it.
type Config struct {
	Secret string

	// Header containing the signature (default X-PostPipe-Signature)
	Header string

	// Tolerance is the accepted clock skew in either direction (default 5m)
	Tolerance time.Duration

	// Now is the clock; time.Now when nil
	Now func() time.Time
}

// Enabled reports whether requests are verified at all.
func (c *Config) Enabled() bool {
	return c.Secret != ""
}

// SetDefaults applies default values to the configuration
func (c *Config) SetDefaults() {
	if c.Header == "" {
		c.Header = DefaultHeader
	}
	if c.Tolerance <= 0 {
		c.Tolerance = DefaultTolerance
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}
