package mock

import (
	"fmt"
	"time"
)

// Config drives the simulated approver. DenyRate is implied: 100 - ApprovalRate - ErrorRate.
type Config struct {
	Delay        time.Duration
	ApprovalRate int
	ErrorRate    int
	AutoApprove  bool
}

// DefaultConfig resolves after two seconds and approves four out of five attempts.
func DefaultConfig() Config {
	return Config{
		Delay:        2 * time.Second,
		ApprovalRate: 80,
		ErrorRate:    10,
		AutoApprove:  true,
	}
}

// DenyRate is the share of outcomes left for DENIED.
func (c Config) DenyRate() int {
	return 100 - c.ApprovalRate - c.ErrorRate
}

// Normalize clamps the configuration into its valid range and describes every
// correction it made. Rates are clamped to [0,100] first; if they still sum to
// more than 100 the error rate gives way.
func (c Config) Normalize() (Config, []string) {
	var corrections []string
	if c.Delay < 0 {
		corrections = append(corrections, fmt.Sprintf("delay %v is negative, using 0", c.Delay))
		c.Delay = 0
	}
	c.ApprovalRate, corrections = clampRate("approval rate", c.ApprovalRate, corrections)
	c.ErrorRate, corrections = clampRate("error rate", c.ErrorRate, corrections)
	if c.ApprovalRate+c.ErrorRate > 100 {
		reduced := 100 - c.ApprovalRate
		corrections = append(corrections, fmt.Sprintf(
			"approval rate %d and error rate %d exceed 100, using error rate %d",
			c.ApprovalRate, c.ErrorRate, reduced))
		c.ErrorRate = reduced
	}
	return c, corrections
}

func clampRate(name string, v int, corrections []string) (int, []string) {
	switch {
	case v < 0:
		return 0, append(corrections, fmt.Sprintf("%s %d is below 0, using 0", name, v))
	case v > 100:
		return 100, append(corrections, fmt.Sprintf("%s %d is above 100, using 100", name, v))
	}
	return v, corrections
}
