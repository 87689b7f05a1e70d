package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate(t *testing.T) {
	d, err := ParseDate("2024-02-28")
	require.NoError(t, err)

	assert.Equal(t, "2024-02-29", d.AddDays(1).String())
	assert.Equal(t, "2024-03-01", d.AddDays(2).String())
	assert.Equal(t, time.Wednesday, d.Weekday())
	assert.Equal(t, 366, d.DaysUntil(d.AddYears(1)))
	assert.Equal(t, -1, d.DaysUntil(d.AddDays(-1)))
	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.Equal(NewDate(2024, time.February, 28)))

	_, err = ParseDate("28/02/2024")
	assert.Error(t, err)
}

func TestDateOfKeepsLocalDay(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	instant := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-02", DateOf(instant.In(loc)).String())
	assert.Equal(t, "2024-01-01", DateOf(instant).String())
}

func TestDateJSON(t *testing.T) {
	var payload struct {
		Day  Date `json:"day"`
		None Date `json:"none"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"day":"2024-05-06","none":null}`), &payload))
	assert.Equal(t, NewDate(2024, time.May, 6), payload.Day)
	assert.True(t, payload.None.IsZero())

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"day":"2024-05-06","none":null}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"day":"yesterday"}`), &payload))
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-03-04", d.String())
	require.NoError(t, d.Scan([]byte("2024-03-05")))
	assert.Equal(t, "2024-03-05", d.String())
	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())
	assert.Error(t, d.Scan(42))

	v, err := NewDate(2024, 3, 4).Value()
	require.NoError(t, err)
	assert.Equal(t, "2024-03-04", v)
}

func TestBookingStatusGraph(t *testing.T) {
	happy := []BookingStatus{
		BookingStatusPending,
		BookingStatusPaid,
		BookingStatusCheckedIn,
		BookingStatusAssigned,
		BookingStatusDiagnosed,
		BookingStatusVaccineInjected,
		BookingStatusCompleted,
	}
	for i := 0; i+1 < len(happy); i++ {
		assert.True(t, happy[i].CanTransitionTo(happy[i+1]), "%s -> %s", happy[i], happy[i+1])
		assert.True(t, happy[i].CanTransitionTo(BookingStatusCancelled), "%s -> CANCELLED", happy[i])
		assert.False(t, happy[i+1].CanTransitionTo(happy[i]), "%s -> %s", happy[i+1], happy[i])
	}

	assert.False(t, BookingStatusPending.CanTransitionTo(BookingStatusCheckedIn))
	assert.True(t, BookingStatusCompleted.IsTerminal())
	assert.True(t, BookingStatusCancelled.IsTerminal())
	assert.False(t, BookingStatusCompleted.CanTransitionTo(BookingStatusCancelled))

	st, ok := ParseBookingStatus("DIAGNOSED")
	assert.True(t, ok)
	assert.Equal(t, BookingStatusDiagnosed, st)
	_, ok = ParseBookingStatus("diagnosed")
	assert.False(t, ok)
}

func TestActorHasRole(t *testing.T) {
	a := Actor{Role: RoleNurse}
	assert.True(t, a.HasRole(RoleDoctor, RoleNurse))
	assert.False(t, a.HasRole(RoleAdmin))
	assert.True(t, RolePayment.IsValid())
	assert.False(t, Role("janitor").IsValid())
}
