package store

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/smevalue/internal/config"
	"github.com/seenimoa/smevalue/pkg/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(config.StoreConfig{Enabled: true, Path: t.TempDir()}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRecord(sector string, createdAt time.Time) *Record {
	in := models.BusinessInputs{
		SectorCode:    sector,
		AnnualRevenue: 500_000,
		Profit:        models.Float(0),
		GrowthRate:    models.Float(12.5),
		KeyAssets:     []string{"brand"},
		AsOfYear:      2024,
	}
	report := &models.ValuationReport{
		SectorCode: sector,
		Range:      models.ValuationRange{Minimum: 400_000, Typical: 500_000, Maximum: 600_000, Confidence: 64.2, Spread: 0.2},
		MethodBreakdown: []models.ValuationMethodResult{
			{Method: "revenue_multiple", Estimate: 500_000, AppliedMultiplier: 1, ReliabilityWeight: 0.5},
		},
		SkippedMethods:  []models.SkippedMethod{{Method: "earnings_multiple", Reason: "profit is zero"}},
		Recommendations: []string{"Prepare accounts."},
	}
	rec := NewRecord(in, report)
	rec.CreatedAt = createdAt
	return rec
}

func TestSaveAssignsIDAndTimestamp(t *testing.T) {
	s := openTestStore(t)
	fixed := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	rec := sampleRecord("retail", time.Time{})
	require.NoError(t, s.Save(rec))

	assert.Len(t, rec.ID, 36)
	assert.Equal(t, fixed, rec.CreatedAt)
	assert.Equal(t, "retail", rec.Sector)
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	rec := sampleRecord("technology", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, s.Save(rec))

	got, err := s.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, rec.Report, got.Report)

	// A reported zero profit must not come back as absent.
	require.NotNil(t, got.Inputs.Profit)
	assert.Equal(t, 0.0, *got.Inputs.Profit)
	assert.Nil(t, got.Inputs.ProfitMargin)
	assert.Equal(t, 12.5, *got.Inputs.GrowthRate)
}

func TestGetNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirstWithFilterAndLimit(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	sectors := []string{"retail", "technology", "retail", "retail", "technology"}
	ids := make([]string, len(sectors))
	for i, sector := range sectors {
		rec := sampleRecord(sector, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, s.Save(rec))
		ids[i] = rec.ID
	}

	all, err := s.List("", 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, ids[4], all[0].ID)
	assert.Equal(t, ids[0], all[4].ID)

	retail, err := s.List("retail", 0)
	require.NoError(t, err)
	require.Len(t, retail, 3)
	for _, r := range retail {
		assert.Equal(t, "retail", r.Sector)
	}
	assert.Equal(t, ids[3], retail[0].ID)

	limited, err := s.List("", 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, ids[4], limited[0].ID)
	assert.Equal(t, ids[3], limited[1].ID)

	none, err := s.List("hospitality", 0)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	rec := sampleRecord("retail", time.Now())
	require.NoError(t, s.Save(rec))

	require.NoError(t, s.Delete(rec.ID))
	_, err := s.Get(rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Delete(rec.ID), ErrNotFound)
}

func TestOpenInMemory(t *testing.T) {
	s, err := Open(config.StoreConfig{Enabled: true, InMemory: true}, zerolog.Nop())
	require.NoError(t, err)
	defer s.Close()

	rec := sampleRecord("healthcare", time.Now())
	require.NoError(t, s.Save(rec))
	got, err := s.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "healthcare", got.Sector)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(config.StoreConfig{Enabled: true}, zerolog.Nop())
	assert.Error(t, err)
}
