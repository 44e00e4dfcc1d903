package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// MaxCadenceMinutes is the largest cadence representable as a time.Duration
const MaxCadenceMinutes = int(math.MaxInt64 / int64(time.Minute))

// Settings is the digest configuration collected by the setup conversation.
// It is the only persisted record; JSON field names are part of the file format.
type Settings struct {
	Keywords       string `json:"keywords"`
	CadenceMinutes int    `json:"cadence_minutes"`
	SenderEmail    string `json:"sender_email"`
	SenderPassword string `json:"sender_password"`
	RecipientEmail string `json:"recipient_email"`
	SMTPServer     string `json:"smtp_server"`
	SMTPPort       int    `json:"smtp_port"`
}

// Validate checks that all fields are set and numeric fields are in range
func (s Settings) Validate() error {
	switch {
	case strings.TrimSpace(s.Keywords) == "":
		return fmt.Errorf("keywords are required")
	case s.CadenceMinutes <= 0:
		return fmt.Errorf("cadence_minutes must be positive, got %d", s.CadenceMinutes)
	case s.CadenceMinutes > MaxCadenceMinutes:
		return fmt.Errorf("cadence_minutes must not exceed %d, got %d", MaxCadenceMinutes, s.CadenceMinutes)
	case s.SenderEmail == "":
		return fmt.Errorf("sender_email is required")
	case s.RecipientEmail == "":
		return fmt.Errorf("recipient_email is required")
	case s.SMTPServer == "":
		return fmt.Errorf("smtp_server is required")
	case s.SMTPPort <= 0 || s.SMTPPort > 65535:
		return fmt.Errorf("smtp_port must be between 1 and 65535, got %d", s.SMTPPort)
	}
	return nil
}

// Cadence returns the interval between digest runs
func (s Settings) Cadence() time.Duration {
	return time.Duration(s.CadenceMinutes) * time.Minute
}
