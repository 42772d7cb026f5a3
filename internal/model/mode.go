package model

import "fmt"

// Mode identifies which verification pipeline a record belongs to. Each mode
// has its own batch tables and its own provider credential; the two pipelines
// share the emails table but never share batches.
type Mode string

const (
	// ModeDeliverability is the standard email deliverability check.
	ModeDeliverability Mode = "deliverability"
	// ModeCatchall is the toxicity check for emails on catch-all domains.
	ModeCatchall Mode = "catchall"
)

// Modes returns all verification modes in scheduling order.
func Modes() []Mode {
	return []Mode{ModeDeliverability, ModeCatchall}
}

// ParseMode parses a mode name. The empty string selects deliverability.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", string(ModeDeliverability):
		return ModeDeliverability, nil
	case string(ModeCatchall):
		return ModeCatchall, nil
	}
	return "", fmt.Errorf("unknown verification mode %q", s)
}

// Tables names the database tables backing one verification mode.
type Tables struct {
	VerificationBatches     string
	VerificationBatchEmails string
	BouncerBatches          string
	BouncerBatchEmails      string
	RateLimitEvents         string
}

// Tables returns the table set for the mode. Deliverability owns the
// unprefixed tables, catchall a prefixed copy of each.
func (m Mode) Tables() Tables {
	if m == ModeCatchall {
		return Tables{
			VerificationBatches:     "catchall_verification_batches",
			VerificationBatchEmails: "catchall_verification_batch_emails",
			BouncerBatches:          "catchall_bouncer_batches",
			BouncerBatchEmails:      "catchall_bouncer_batch_emails",
			RateLimitEvents:         "catchall_rate_limit_events",
		}
	}
	return Tables{
		VerificationBatches:     "verification_batches",
		VerificationBatchEmails: "verification_batch_emails",
		BouncerBatches:          "bouncer_batches",
		BouncerBatchEmails:      "bouncer_batch_emails",
		RateLimitEvents:         "rate_limit_events",
	}
}
