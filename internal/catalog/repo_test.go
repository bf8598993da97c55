package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterNormalized(t *testing.T) {
	tests := []struct {
		in   Filter
		want Filter
	}{
		{Filter{}, Filter{Limit: 24}},
		{Filter{Limit: 10, Offset: 20}, Filter{Limit: 10, Offset: 20}},
		{Filter{Limit: 1000}, Filter{Limit: 100}},
		{Filter{Limit: -1, Offset: -5, CategorySlug: "tops"}, Filter{Limit: 24, CategorySlug: "tops"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.Normalized())
	}
}
