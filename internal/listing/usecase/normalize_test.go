package usecase

import (
	"math"
	"testing"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalPrice(t *testing.T) {
	tests := []struct {
		raw     string
		want    *float64
		wantErr bool
	}{
		{raw: "", want: nil},
		{raw: "  ", want: nil},
		{raw: "500", want: floatPtr(500)},
		{raw: " 12.5 ", want: floatPtr(12.5)},
		{raw: "abc", wantErr: true},
		{raw: "-1", wantErr: true},
		{raw: "NaN", wantErr: true},
		{raw: "Inf", wantErr: true},
		{raw: "-Infinity", wantErr: true},
		{raw: "1e400", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := optionalPrice(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePage_BoundsSkip(t *testing.T) {
	assert.Equal(t, 1, normalizePage(-3))
	assert.Equal(t, 1, normalizePage(0))
	assert.Equal(t, 7, normalizePage(7))
	assert.Equal(t, maxPage, normalizePage(math.MaxInt))

	skip := pageSkip(normalizePage(math.MaxInt), PublicPageSize)
	assert.Greater(t, skip, int64(0))
	assert.Equal(t, int64(16), pageSkip(2, PublicPageSize))
	assert.Equal(t, int64(0), pageSkip(1, OwnerPageSize))
}

func floatPtr(f float64) *float64 { return &f }
