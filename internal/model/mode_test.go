package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMode(t *testing.T) {
	// Empty string defaults to deliverability
	mode, err := ParseMode("")
	assert.NoError(t, err)
	assert.Equal(t, ModeDeliverability, mode)

	mode, err = ParseMode("deliverability")
	assert.NoError(t, err)
	assert.Equal(t, ModeDeliverability, mode)

	mode, err = ParseMode("catchall")
	assert.NoError(t, err)
	assert.Equal(t, ModeCatchall, mode)

	_, err = ParseMode("bounce")
	assert.Error(t, err)
}

func TestModeTables(t *testing.T) {
	del := ModeDeliverability.Tables()
	assert.Equal(t, "verification_batches", del.VerificationBatches)
	assert.Equal(t, "bouncer_batch_emails", del.BouncerBatchEmails)

	ca := ModeCatchall.Tables()
	assert.Equal(t, "catchall_verification_batches", ca.VerificationBatches)
	assert.Equal(t, "catchall_rate_limit_events", ca.RateLimitEvents)

	// The two modes must never share a batch table
	assert.NotEqual(t, del.VerificationBatches, ca.VerificationBatches)
	assert.NotEqual(t, del.BouncerBatches, ca.BouncerBatches)
}

func TestModesOrder(t *testing.T) {
	modes := Modes()
	assert.Equal(t, []Mode{ModeDeliverability, ModeCatchall}, modes)
}
