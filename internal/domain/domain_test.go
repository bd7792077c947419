package domain

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/fieldscout/internal/model"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Domain
	}{
		{"real_estate", RealEstate},
		{"MEDICAL", Medical},
		{" insurance ", Insurance},
		{"finance", Finance},
		{"legal", Legal},
		{"generic", Generic},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_UnknownFailsFast(t *testing.T) {
	_, err := Parse("aerospace")
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrUnknownDomain))
	assert.Contains(t, err.Error(), "real_estate")
}

func TestAll_StableOrder(t *testing.T) {
	assert.Equal(t, []Domain{Finance, Insurance, Legal, Medical, RealEstate}, All())
}

func TestProfileFor(t *testing.T) {
	p := ProfileFor(RealEstate)
	require.Len(t, p.Categories, 5)
	assert.Equal(t, "property", p.Categories[0].Name)

	kws, ok := p.Category("party")
	require.True(t, ok)
	assert.Contains(t, kws, "seller")

	_, ok = p.Category("general")
	assert.False(t, ok)

	assert.Empty(t, ProfileFor(Finance).Rules)
	assert.Empty(t, ProfileFor(Generic).Categories)
}
