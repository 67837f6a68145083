package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/livetv/internal/catalog"
	"github.com/stwalsh4118/livetv/internal/models"
)

func TestPrintSchedule(t *testing.T) {
	cat := catalog.New(&models.Channel{
		ID:    1,
		Title: "Movies",
		Events: []models.Event{
			{ID: "a", Title: "First", Status: models.StatusEnded, TSStart: 1704067200000, TSEnd: 1704070800000, Duration: 3600000},
			{ID: "b", Title: "Second", Status: models.StatusLive, TSStart: 1704074400000, TSEnd: 1704077100000, Duration: 2700000},
			{ID: "c", Title: "Third", Status: models.StatusUpcoming, TSStart: 1704081600000, TSEnd: 1704085500000, Duration: 3900000},
		},
	})

	tests := []struct {
		filter   catalog.Filter
		header   string
		contains []string
		excludes []string
	}{
		{catalog.FilterAll, "Movies (3 of 3 events, filter all)", []string{"First", "Second", "Third", "1h 5m"}, nil},
		{catalog.FilterLive, "Movies (1 of 3 events, filter live)", []string{"Second", "45m"}, []string{"First", "Third"}},
		{catalog.FilterEnded, "Movies (1 of 3 events, filter ended)", []string{"Jan 1 • 12:00 AM - 01:00 AM"}, []string{"Second"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.filter), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, printSchedule(&buf, cat, tt.filter))

			out := buf.String()
			assert.True(t, strings.HasPrefix(out, tt.header), out)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestScheduleRejectsInvalidFilter(t *testing.T) {
	scheduleFilter = "soon"
	defer func() { scheduleFilter = string(catalog.FilterAll) }()

	err := scheduleCmd.RunE(scheduleCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter")
}
