package handler

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryInt(t *testing.T) {
	r := httptest.NewRequest("GET", "/?limit=15&bad=xyz", nil)
	assert.Equal(t, 15, queryInt(r, "limit", 30))
	assert.Equal(t, 30, queryInt(r, "missing", 30))
	assert.Equal(t, 30, queryInt(r, "bad", 30))
}

func TestQueryTime(t *testing.T) {
	r := httptest.NewRequest("GET", "/?a=2026-03-01T12:00:00Z&b=2026-03-01T12:00:00.123456789Z", nil)

	got := queryTime(r, "a")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), got.UTC())

	got = queryTime(r, "b")
	require.NotNil(t, got)
	assert.Equal(t, 123456789, got.Nanosecond())
}

func TestQueryTimeTolerant(t *testing.T) {
	// Malformed dates are ignored, not rejected.
	r := httptest.NewRequest("GET", "/?bad=notadate&num=12345", nil)
	assert.Nil(t, queryTime(r, "bad"))
	assert.Nil(t, queryTime(r, "num"))
	assert.Nil(t, queryTime(r, "absent"))
}
