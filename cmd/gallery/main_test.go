package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/andresuchdata/gallery-feed/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintItems(t *testing.T) {
	taken := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	items := []domain.GalleryItem{
		{ID: "b", Title: "beach", TakenDate: &taken},
		{ID: "a", Title: "attic"},
	}

	var table bytes.Buffer
	require.NoError(t, printItems(&table, items, false))
	out := table.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "beach")
	assert.Contains(t, out, "2024-06-01T09:30:00Z")
	assert.Contains(t, out, "2 items")

	var raw bytes.Buffer
	require.NoError(t, printItems(&raw, items, true))
	var decoded []domain.GalleryItem
	require.NoError(t, json.Unmarshal(raw.Bytes(), &decoded))
	assert.Equal(t, "b", decoded[0].ID)
	assert.Nil(t, decoded[1].TakenDate)
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "-", formatDate(nil))
	local := time.Date(2024, 1, 1, 7, 0, 0, 0, time.FixedZone("WIB", 7*3600))
	assert.Equal(t, "2024-01-01T00:00:00Z", formatDate(&local))
}
