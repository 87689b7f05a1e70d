package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeekdays(t *testing.T) {
	days, err := parseWeekdays("mon, Wednesday,FRI")
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday, time.Friday}, days)

	days, err = parseWeekdays("")
	require.NoError(t, err)
	assert.Empty(t, days)

	_, err = parseWeekdays("mon,someday")
	assert.Error(t, err)
}

func TestScheduleCreateFlags(t *testing.T) {
	create, _, err := scheduleCmd().Find([]string{"create"})
	require.NoError(t, err)
	for _, flag := range []string{"actor", "name", "shift", "start", "end", "weekdays", "staff"} {
		assert.NotNil(t, create.Flags().Lookup(flag), flag)
	}

	up, _, err := migrateCmd().Find([]string{"up"})
	require.NoError(t, err)
	assert.Equal(t, "up", up.Name())
}
