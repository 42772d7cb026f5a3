package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bulk-mail-verify-go/internal/bouncer"
	"bulk-mail-verify-go/internal/model"
)

func (f *fixture) assign(s *Store, mode model.Mode, providerID string) []BacklogEmail {
	rows, err := s.CollectBacklog(context.Background(), mode, 100)
	require.NoError(f.t, err)
	require.NotEmpty(f.t, rows)
	_, err = s.AssignBouncerBatch(context.Background(), mode, providerID, rows)
	require.NoError(f.t, err)
	return rows
}

func TestIngestResultsDeliverability(t *testing.T) {
	f := newFixture(t)
	s := New(f.db, 10)
	ctx := context.Background()
	mode := model.ModeDeliverability

	a := f.email("a@example.com")
	b := f.email("b@example.com")
	c := f.email("c@example.com")

	// b appears in both submissions and is multiplexed into one provider batch
	vb1 := f.submission(mode, time.Now().Add(-time.Hour), a, b)
	vb2 := f.submission(mode, time.Now(), b, c)

	f.assign(s, mode, "prov-1")

	results := []bouncer.Result{
		{Email: "a@example.com", Status: "deliverable", Score: 98, Provider: "gmail"},
		{Email: "b@example.com", Status: "undeliverable", Reason: "mailbox_not_found"},
		{Email: "c@example.com", Status: "risky", AcceptAll: true, Score: 55},
	}

	stored, err := s.IngestResults(ctx, mode, "prov-1", results)
	require.NoError(t, err)
	assert.Equal(t, 3, stored)

	// One outcome row per email
	var outcomes []model.DeliverabilityResult
	require.NoError(t, f.db.Order("email_id ASC").Find(&outcomes).Error)
	require.Len(t, outcomes, 3)
	assert.Equal(t, a.ID, outcomes[0].EmailID)
	assert.Equal(t, "deliverable", outcomes[0].Status)
	assert.Equal(t, 98, outcomes[0].Score)
	assert.Equal(t, "mailbox_not_found", outcomes[1].Reason)
	assert.True(t, outcomes[2].IsCatchall)

	// Both submissions are done and the provider batch is terminal
	assert.Equal(t, model.BatchStatusCompleted, f.submissionStatus(mode, vb1.ID))
	assert.Equal(t, model.BatchStatusCompleted, f.submissionStatus(mode, vb2.ID))
	batch := f.bouncerBatch(mode, "prov-1")
	require.NotNil(t, batch)
	assert.Equal(t, model.BouncerStatusCompleted, batch.Status)

	var vb model.VerificationBatch
	require.NoError(t, f.db.Table(mode.Tables().VerificationBatches).Where("id = ?", vb1.ID).First(&vb).Error)
	require.NotNil(t, vb.CompletedAt)
}

func TestIngestResultsIdempotent(t *testing.T) {
	f := newFixture(t)
	s := New(f.db, 10)
	ctx := context.Background()
	mode := model.ModeDeliverability

	a := f.email("a@example.com")
	f.submission(mode, time.Now(), a)
	f.assign(s, mode, "prov-1")

	results := []bouncer.Result{{Email: "a@example.com", Status: "deliverable"}}

	stored, err := s.IngestResults(ctx, mode, "prov-1", results)
	require.NoError(t, err)
	assert.Equal(t, 1, stored)

	// A redelivered download is swallowed without touching anything
	stored, err = s.IngestResults(ctx, mode, "prov-1", results)
	require.NoError(t, err)
	assert.Equal(t, 0, stored)

	var count int64
	require.NoError(t, f.db.Model(&model.DeliverabilityResult{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestIngestResultsPartial(t *testing.T) {
	f := newFixture(t)
	s := New(f.db, 10)
	ctx := context.Background()
	mode := model.ModeDeliverability

	a := f.email("a@example.com")
	b := f.email("b@example.com")
	vb := f.submission(mode, time.Now(), a, b)
	f.assign(s, mode, "prov-1")

	// b never comes back, and the provider hallucinates an unknown address
	results := []bouncer.Result{
		{Email: "a@example.com", Status: "deliverable"},
		{Email: "stranger@example.com", Status: "deliverable"},
	}

	stored, err := s.IngestResults(ctx, mode, "prov-1", results)
	require.NoError(t, err)
	assert.Equal(t, 1, stored)

	// The submission still has b outstanding
	assert.Equal(t, model.BatchStatusProcessing, f.submissionStatus(mode, vb.ID))

	var links []model.VerificationBatchEmail
	require.NoError(t, f.db.Table(mode.Tables().VerificationBatchEmails).
		Where("batch_id = ?", vb.ID).Order("email_id ASC").Find(&links).Error)
	require.Len(t, links, 2)
	assert.True(t, links[0].DidComplete)
	assert.False(t, links[1].DidComplete)
}

func TestIngestResultsMatchesCanonicalForm(t *testing.T) {
	f := newFixture(t)
	s := New(f.db, 10)
	ctx := context.Background()
	mode := model.ModeDeliverability

	a := f.email("Mixed.Case@Example.com")
	vb := f.submission(mode, time.Now(), a)
	f.assign(s, mode, "prov-1")

	// Provider echoes the address with different casing and whitespace
	results := []bouncer.Result{{Email: "  MIXED.CASE@example.COM ", Status: "deliverable"}}

	stored, err := s.IngestResults(ctx, mode, "prov-1", results)
	require.NoError(t, err)
	assert.Equal(t, 1, stored)
	assert.Equal(t, model.BatchStatusCompleted, f.submissionStatus(mode, vb.ID))
}

func TestIngestResultsCatchall(t *testing.T) {
	f := newFixture(t)
	s := New(f.db, 10)
	ctx := context.Background()
	mode := model.ModeCatchall

	a := f.email("a@example.com")
	vb := f.submission(mode, time.Now(), a)
	f.assign(s, mode, "prov-tox")

	results := []bouncer.Result{{Email: "a@example.com", Toxicity: 4}}

	stored, err := s.IngestResults(ctx, mode, "prov-tox", results)
	require.NoError(t, err)
	assert.Equal(t, 1, stored)

	var tox []model.ToxicityResult
	require.NoError(t, f.db.Find(&tox).Error)
	require.Len(t, tox, 1)
	assert.Equal(t, a.ID, tox[0].EmailID)
	assert.Equal(t, 4, tox[0].Toxicity)

	// Catchall ingestion never writes deliverability rows
	var count int64
	require.NoError(t, f.db.Model(&model.DeliverabilityResult{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	assert.Equal(t, model.BatchStatusCompleted, f.submissionStatus(mode, vb.ID))
}

func TestIngestResultsOverwritesPrevious(t *testing.T) {
	f := newFixture(t)
	s := New(f.db, 10)
	ctx := context.Background()
	mode := model.ModeDeliverability

	a := f.email("a@example.com")
	previous := model.DeliverabilityResult{
		EmailID:   a.ID,
		Status:    "unknown",
		CreatedAt: time.Now().Add(-24 * time.Hour),
		UpdatedAt: time.Now().Add(-24 * time.Hour),
	}
	require.NoError(t, f.db.Create(&previous).Error)

	f.submission(mode, time.Now(), a)
	f.assign(s, mode, "prov-1")

	stored, err := s.IngestResults(ctx, mode, "prov-1", []bouncer.Result{
		{Email: "a@example.com", Status: "deliverable", Score: 90},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stored)

	// Re-verification overwrites in place rather than inserting a second row
	var outcomes []model.DeliverabilityResult
	require.NoError(t, f.db.Find(&outcomes).Error)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "deliverable", outcomes[0].Status)
	assert.Equal(t, 90, outcomes[0].Score)
}

func TestFinalizeStuckBatches(t *testing.T) {
	f := newFixture(t)
	s := New(f.db, 10)
	ctx := context.Background()
	mode := model.ModeDeliverability
	tables := mode.Tables()

	a := f.email("a@example.com")
	b := f.email("b@example.com")

	// Every link resolved but the status update never landed
	stuck := f.submission(mode, time.Now(), a)
	require.NoError(t, f.db.Table(tables.VerificationBatches).
		Where("id = ?", stuck.ID).
		Updates(map[string]interface{}{"status": model.BatchStatusProcessing}).Error)
	require.NoError(t, f.db.Table(tables.VerificationBatchEmails).
		Where("batch_id = ?", stuck.ID).
		Updates(map[string]interface{}{"did_complete": true}).Error)

	// Still has outstanding work, must not be touched
	working := f.submission(mode, time.Now(), b)
	require.NoError(t, f.db.Table(tables.VerificationBatches).
		Where("id = ?", working.ID).
		Updates(map[string]interface{}{"status": model.BatchStatusProcessing}).Error)

	fixed, err := s.FinalizeStuckBatches(ctx, mode)
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)

	assert.Equal(t, model.BatchStatusCompleted, f.submissionStatus(mode, stuck.ID))
	assert.Equal(t, model.BatchStatusProcessing, f.submissionStatus(mode, working.ID))

	var vb model.VerificationBatch
	require.NoError(t, f.db.Table(tables.VerificationBatches).Where("id = ?", stuck.ID).First(&vb).Error)
	require.NotNil(t, vb.CompletedAt)

	// Nothing left to fix on the second pass
	fixed, err = s.FinalizeStuckBatches(ctx, mode)
	require.NoError(t, err)
	assert.Equal(t, 0, fixed)
}
