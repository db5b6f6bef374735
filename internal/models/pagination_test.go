package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageOffset(t *testing.T) {
	tests := []struct {
		name   string
		page   int
		size   int
		offset int
		ok     bool
	}{
		{"first page", 0, 10, 0, true},
		{"third page", 2, 25, 50, true},
		{"largest page that fits", math.MaxInt / 10, 10, (math.MaxInt / 10) * 10, true},
		{"overflowing page", math.MaxInt/10 + 1, 10, 0, false},
		{"huge page", math.MaxInt / 5, 10, 0, false},
		{"negative page", -1, 10, 0, false},
		{"negative size", 1, -1, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset, ok := PageOffset(tt.page, tt.size)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.offset, offset)
		})
	}
}

func TestNewPageEnvelope(t *testing.T) {
	page := NewPage([]int{1, 2}, 1, 2, 5)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasNextPage)
	assert.True(t, page.HasPreviousPage)

	empty := NewPage[int](nil, 0, 10, 0)
	assert.NotNil(t, empty.Content)
	assert.Zero(t, empty.TotalPages)
	assert.False(t, empty.HasNextPage)
}
