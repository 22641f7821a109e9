package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_ExtractTerms(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"def util", []string{"def", "util"}},
		{`"exact phrase"`, []string{"exact", "phrase"}},
		{"foo AND bar OR NOT baz", []string{"foo", "bar", "baz"}},
		{"path:src content:handler", []string{"src", "handler"}},
		{"averyverylongprefix:value", []string{"averyverylongprefix:value"}},
		{"'quoted'", []string{"quoted"}},
		{"   ", nil},
		{"and", []string{"and"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractTerms(tt.query), "ExtractTerms(%q)", tt.query)
	}
}

func Test_RecencyMultiplier(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		age  time.Duration
		want float64
	}{
		{time.Hour, 1.5},
		{3 * 24 * time.Hour, 1.3},
		{10 * 24 * time.Hour, 1.1},
		{90 * 24 * time.Hour, 1.0},
		{-time.Hour, 1.5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RecencyMultiplier(now, now.Add(-tt.age).Unix()), "age %s", tt.age)
	}
}

func Test_Options_Normalized(t *testing.T) {
	o := Options{Limit: 1000, Offset: -2, SnippetLines: 99, TotalMode: "bogus"}.Normalized()
	assert.Equal(t, MaxLimit, o.Limit)
	assert.Zero(t, o.Offset)
	assert.Equal(t, MaxSnippetLines, o.SnippetLines)
	assert.Equal(t, TotalApprox, o.TotalMode)

	d := Options{}.Normalized()
	assert.Equal(t, DefaultLimit, d.Limit)
	assert.Equal(t, DefaultSnippetLines, d.SnippetLines)
}
