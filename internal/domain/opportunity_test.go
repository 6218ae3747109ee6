package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextOpportunityStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		current OpportunityStatus
		want    OpportunityStatus
	}{
		{OpportunityNew, OpportunityNew},
		{OpportunitySelected, OpportunitySelected},
		{OpportunityExpired, OpportunityExpired},
		{OpportunityDiscarded, OpportunityDiscarded},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, NextOpportunityStatus(tc.current, OpportunityNew), "current=%s", tc.current)
	}

	assert.Equal(t, OpportunitySelected, NextOpportunityStatus(OpportunityNew, OpportunitySelected))
}

func TestParseOpportunityStatus(t *testing.T) {
	t.Parallel()

	got, err := ParseOpportunityStatus(" selected ")
	require.NoError(t, err)
	assert.Equal(t, OpportunitySelected, got)

	_, err = ParseOpportunityStatus("ARCHIVED")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestParseRiskPolicy(t *testing.T) {
	t.Parallel()

	p, err := ParseRiskPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyBalanced, p)

	p, err = ParseRiskPolicy("Growth")
	require.NoError(t, err)
	assert.Equal(t, PolicyGrowth, p)

	_, err = ParseRiskPolicy("yolo")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewPagination(t *testing.T) {
	t.Parallel()

	p := NewPagination(2, 10, 25)
	assert.Equal(t, Pagination{Page: 2, PageSize: 10, Total: 25, TotalPages: 3, HasPrev: true, HasNext: true}, p)

	empty := NewPagination(0, 0, 0)
	assert.Equal(t, 1, empty.Page)
	assert.Equal(t, DefaultPageSize, empty.PageSize)
	assert.Equal(t, 0, empty.TotalPages)
	assert.False(t, empty.HasNext)

	assert.Equal(t, MaxPageSize, NewPagination(1, 500, 0).PageSize)
	assert.Equal(t, 20, Offset(3, 10))
}
