//go:build e2e

package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/vaccine-clinic-api/internal/model"
)

func TestScheduleFlow(t *testing.T) {
	start := time.Now().AddDate(0, 1, 0)
	def := map[string]interface{}{
		"name":           uniqueName("Mornings"),
		"shift_type":     "MORNING",
		"start_date":     start.Format("2006-01-02"),
		"end_date":       start.AddDate(0, 0, 13).Format("2006-01-02"),
		"repeat_pattern": true,
		"weekdays":       []int{1, 3},
		"staff_ids":      []string{staffID[model.RoleNurse], staffID[model.RoleDoctor]},
	}

	createResp := makeRequest("POST", "/schedules", def, tokens[model.RoleAdmin])
	require.True(t, createResp.IsSuccess(), "Failed to create schedule: %s", createResp.Message)

	var result model.ScheduleResult
	require.NoError(t, json.Unmarshal(createResp.RawData, &result))
	require.Len(t, result.WorkDates, 4)
	require.Len(t, result.Assignments, 8)
	for _, a := range result.Assignments {
		assert.Equal(t, model.OutcomeCreated, a.Outcome)
	}

	// resubmitting is idempotent
	again := makeRequest("POST", "/schedules", def, tokens[model.RoleAdmin])
	require.True(t, again.IsSuccess(), again.Message)
	var second model.ScheduleResult
	require.NoError(t, json.Unmarshal(again.RawData, &second))
	assert.Equal(t, result.Schedule.ID, second.Schedule.ID)
	for _, a := range second.Assignments {
		assert.Equal(t, model.OutcomeAlreadyExists, a.Outcome)
	}

	listResp := makeRequest("GET", fmt.Sprintf("/work-dates/%s/assignments", result.WorkDates[0].ID), nil, tokens[model.RoleNurse])
	assert.True(t, listResp.IsSuccess())

	addResp := makeRequest("POST", "/work-dates/staff", map[string]interface{}{
		"work_date_ids": []string{result.WorkDates[0].ID.String()},
		"staff_ids":     []string{staffID[model.RoleFrontDesk]},
	}, tokens[model.RoleAdmin])
	require.True(t, addResp.IsSuccess(), addResp.Message)
}

func TestScheduleRequiresAdmin(t *testing.T) {
	start := time.Now().AddDate(0, 1, 0)
	resp := makeRequest("POST", "/schedules", map[string]interface{}{
		"name":       uniqueName("Evenings"),
		"shift_type": "EVENING",
		"start_date": start.Format("2006-01-02"),
		"end_date":   start.Format("2006-01-02"),
	}, tokens[model.RoleNurse])
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "role", resp.Guard)
}

func TestScheduleRangeTooLong(t *testing.T) {
	start := time.Now().AddDate(0, 1, 0)
	resp := makeRequest("POST", "/schedules", map[string]interface{}{
		"name":       uniqueName("Forever"),
		"shift_type": "FULL_DAY",
		"start_date": start.Format("2006-01-02"),
		"end_date":   start.AddDate(2, 0, 0).Format("2006-01-02"),
	}, tokens[model.RoleAdmin])
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation", resp.ErrorCode)
}

func TestStaffEndpointsAreAdminOnly(t *testing.T) {
	resp := makeRequest("GET", "/staff", nil, tokens[model.RoleNurse])
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = makeRequest("GET", "/audit/logs", nil, tokens[model.RoleAdmin])
	assert.True(t, resp.IsSuccess(), resp.Message)
}
