package xtiered

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		p    QueryParams
		want Tier
	}{
		{"empty", QueryParams{}, TierPublic},
		{"sources only", QueryParams{Sources: []string{"qiita"}}, TierPublic},
		{"blank search", QueryParams{Search: "  "}, TierPublic},
		{"search", QueryParams{Search: "go"}, TierSearch},
		{"user beats search", QueryParams{UserID: "42", Search: "go"}, TierUser},
		{"user data beats user", QueryParams{UserID: "42", IncludeUserData: true}, TierBypass},
		{"user data alone", QueryParams{IncludeUserData: true}, TierBypass},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.p))
		})
	}
}

func TestTier_String(t *testing.T) {
	assert.Equal(t, "bypass", TierBypass.String())
	assert.Equal(t, "L1", TierPublic.String())
	assert.Equal(t, "L2", TierUser.String())
	assert.Equal(t, "L3", TierSearch.String())
	assert.Equal(t, "Tier(9)", Tier(9).String())
	assert.False(t, TierBypass.Cached())
	assert.True(t, TierSearch.Cached())
}
