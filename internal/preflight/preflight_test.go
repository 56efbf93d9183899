package preflight_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gomigrate/internal/domain"
	apperrors "github.com/jonesrussell/gomigrate/internal/errors"
	"github.com/jonesrussell/gomigrate/internal/preflight"
)

// eligibleDomain returns a domain that passes every preflight rule.
func eligibleDomain(now time.Time) *domain.Domain {
	return &domain.Domain{
		Name:      "example.com",
		Status:    domain.StatusActive,
		CreatedAt: now.AddDate(0, 0, -365),
	}
}

func TestEvaluateEligible(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	result := preflight.Evaluate(eligibleDomain(now), now)

	assert.True(t, result.Eligible)
	assert.Empty(t, result.Reasons)
}

func TestEvaluateInactiveStatus(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	d := eligibleDomain(now)
	d.Status = "EXPIRED"

	result := preflight.Evaluate(d, now)

	assert.False(t, result.Eligible)
	require.Len(t, result.Reasons, 1)
	assert.Contains(t, result.Reasons[0], "EXPIRED")
}

func TestEvaluateYoungDomainRemainingDays(t *testing.T) {
	tests := []struct {
		name    string
		ageDays int
		want    string
	}{
		{name: "45 days old", ageDays: 45, want: "15 day(s)"},
		{name: "1 day old", ageDays: 1, want: "59 day(s)"},
		{name: "59 days old", ageDays: 59, want: "1 day(s)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
			d := eligibleDomain(now)
			d.CreatedAt = now.AddDate(0, 0, -tt.ageDays)

			result := preflight.Evaluate(d, now)

			assert.False(t, result.Eligible)
			require.Len(t, result.Reasons, 1)
			assert.Contains(t, result.Reasons[0], tt.want)
		})
	}
}

func TestEvaluateOldEnoughDomain(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	d := eligibleDomain(now)
	d.CreatedAt = now.AddDate(0, 0, -60)

	result := preflight.Evaluate(d, now)

	assert.True(t, result.Eligible)
}

func TestEvaluateUnsupportedSuffix(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	for _, name := range []string{"example.co.uk", "example.de", "EXAMPLE.CA"} {
		d := eligibleDomain(now)
		d.Name = name

		result := preflight.Evaluate(d, now)

		assert.False(t, result.Eligible, name)
		require.Len(t, result.Reasons, 1, name)
		assert.Contains(t, result.Reasons[0], "not supported", name)
	}
}

func TestEvaluateSupportedSuffixNotFlagged(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	d := eligibleDomain(now)
	// ".ukulele.com" must not match the ".uk" suffix rule.
	d.Name = "my.ukulele.com"

	result := preflight.Evaluate(d, now)

	assert.True(t, result.Eligible)
}

func TestEvaluateTransferProtected(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	d := eligibleDomain(now)
	d.TransferProtected = true

	result := preflight.Evaluate(d, now)

	assert.False(t, result.Eligible)
	require.Len(t, result.Reasons, 1)
	assert.Contains(t, result.Reasons[0], "transfer protection")
}

func TestEvaluateAccumulatesReasons(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	d := &domain.Domain{
		Name:              "new.co.uk",
		Status:            "PENDING",
		CreatedAt:         now.AddDate(0, 0, -10),
		TransferProtected: true,
	}

	result := preflight.Evaluate(d, now)

	assert.False(t, result.Eligible)
	assert.Len(t, result.Reasons, 4)
}

func TestResultErr(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	eligible := preflight.Evaluate(eligibleDomain(now), now)
	assert.NoError(t, eligible.Err("example.com"))

	d := eligibleDomain(now)
	d.TransferProtected = true
	err := preflight.Evaluate(d, now).Err(d.Name)

	var inelErr *apperrors.IneligibleError
	require.ErrorAs(t, err, &inelErr)
	assert.Equal(t, "example.com", inelErr.Domain)
	require.Len(t, inelErr.Reasons, 1)
	assert.Contains(t, err.Error(), "not eligible for transfer")
}

func TestEvaluateDeterministic(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	d := &domain.Domain{
		Name:      "new.co.uk",
		Status:    "PENDING",
		CreatedAt: now.AddDate(0, 0, -10),
	}

	first := preflight.Evaluate(d, now)
	second := preflight.Evaluate(d, now)

	assert.Equal(t, first, second)
}
