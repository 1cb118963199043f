package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrStateFromLabels(t *testing.T) {
	cases := []struct {
		name   string
		labels []string
		want   PrState
	}{
		{"no labels", nil, PrStateUnknown},
		{"unrelated labels", []string{"bug", "question"}, PrStateUnknown},
		{"complete", []string{"Complete"}, PrStateComplete},
		{"reviewed", []string{"Reviewed"}, PrStateReviewed},
		{"needs review", []string{"Needs Review"}, PrStateNeedsReview},
		{"needs review beats complete", []string{"Complete", "Needs Review"}, PrStateNeedsReview},
		{"complete beats reviewed", []string{"Reviewed", "Complete"}, PrStateComplete},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, PrStateFromLabels(tc.labels), tc.name)
	}
}

func TestNormalizeLogin(t *testing.T) {
	assert.Equal(t, "janedoe", NormalizeLogin("JaneDoe"))
	assert.Equal(t, "janedoe", NormalizeLogin("janedoe"))
}
