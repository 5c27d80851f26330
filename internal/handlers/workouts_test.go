package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/fitconnect/backend/internal/models"
)

func TestWorkoutCRUD(t *testing.T) {
	env := setupTestEnv(t)
	_, aliceToken := createTestUser(t, env.db, "alice", "password-one", models.UserRoleUser)
	_, bobToken := createTestUser(t, env.db, "bob", "password-two", models.UserRoleUser)

	var workoutID string

	t.Run("creates workout", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/workouts/", map[string]any{
			"activity":    "running",
			"durationMin": 45,
			"distanceKm":  8.2,
			"notes":       "negative splits",
		}, authHeaders(aliceToken))
		body := decodeJSONMap(t, resp)

		assertStatus(t, resp, http.StatusCreated)
		data := dataMap(t, body)
		workoutID, _ = data["id"].(string)
		if data["activity"] != "running" {
			t.Fatalf("expected activity running, got %v", data["activity"])
		}
		if data["performedAt"] == nil {
			t.Fatal("expected performedAt to default to now")
		}
	})

	t.Run("rejects missing activity", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/workouts/", map[string]any{
			"durationMin": 30,
		}, authHeaders(aliceToken))
		body := decodeJSONMap(t, resp)

		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "activity is required")
	})

	t.Run("rejects non-positive duration", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/workouts/", map[string]any{
			"activity":    "cycling",
			"durationMin": 0,
		}, authHeaders(aliceToken))
		body := decodeJSONMap(t, resp)

		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "durationMin must be positive")
	})

	t.Run("owner can update", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPut, "/api/workouts/"+workoutID, map[string]any{
			"activity":    "running",
			"durationMin": 50,
			"performedAt": time.Now().Add(-2 * time.Hour).Format(time.RFC3339),
		}, authHeaders(aliceToken))
		body := decodeJSONMap(t, resp)

		assertStatus(t, resp, http.StatusOK)
		data := dataMap(t, body)
		if data["durationMin"] != float64(50) {
			t.Fatalf("expected updated duration, got %v", data["durationMin"])
		}
	})

	t.Run("other user cannot read or modify", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/workouts/"+workoutID, nil, authHeaders(bobToken))
		assertStatus(t, resp, http.StatusForbidden)
		resp.Body.Close()

		resp = performJSONRequest(t, env.app, http.MethodPut, "/api/workouts/"+workoutID, map[string]any{
			"activity":    "stolen",
			"durationMin": 1,
		}, authHeaders(bobToken))
		assertStatus(t, resp, http.StatusForbidden)
		resp.Body.Close()

		resp = performRequest(t, env.app, http.MethodDelete, "/api/workouts/"+workoutID, nil, authHeaders(bobToken))
		assertStatus(t, resp, http.StatusForbidden)
		resp.Body.Close()
	})

	t.Run("owner deletes workout", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodDelete, "/api/workouts/"+workoutID, nil, authHeaders(aliceToken))
		assertStatus(t, resp, http.StatusOK)
		resp.Body.Close()

		var count int64
		env.db.Model(&models.Workout{}).Where("id = ?", workoutID).Count(&count)
		if count != 0 {
			t.Fatalf("expected workout removed, found %d", count)
		}
	})
}

func TestWorkoutList(t *testing.T) {
	env := setupTestEnv(t)
	_, aliceToken := createTestUser(t, env.db, "alice", "password-one", models.UserRoleUser)
	_, bobToken := createTestUser(t, env.db, "bob", "password-two", models.UserRoleUser)

	for i, activity := range []string{"running", "running", "swimming"} {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/workouts/", map[string]any{
			"activity":    activity,
			"durationMin": 30 + i,
		}, authHeaders(aliceToken))
		assertStatus(t, resp, http.StatusCreated)
		resp.Body.Close()
	}

	t.Run("lists only the caller's workouts", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/workouts/", nil, authHeaders(bobToken))
		body := decodeJSONMap(t, resp)

		assertStatus(t, resp, http.StatusOK)
		workouts, _ := body["data"].([]any)
		if len(workouts) != 0 {
			t.Fatalf("expected no workouts for bob, got %d", len(workouts))
		}
	})

	t.Run("filters by activity", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/workouts/?activity=running", nil, authHeaders(aliceToken))
		body := decodeJSONMap(t, resp)

		assertStatus(t, resp, http.StatusOK)
		workouts, _ := body["data"].([]any)
		if len(workouts) != 2 {
			t.Fatalf("expected 2 running workouts, got %d", len(workouts))
		}
	})

	t.Run("paginates", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/workouts/?page=1&limit=2", nil, authHeaders(aliceToken))
		body := decodeJSONMap(t, resp)

		assertStatus(t, resp, http.StatusOK)
		workouts, _ := body["data"].([]any)
		if len(workouts) != 2 {
			t.Fatalf("expected 2 workouts on the first page, got %d", len(workouts))
		}

		pagination, ok := body["pagination"].(map[string]any)
		if !ok {
			t.Fatalf("expected pagination object, got %+v", body)
		}
		if pagination["total"] != float64(3) {
			t.Fatalf("expected total 3, got %v", pagination["total"])
		}
		if pagination["totalPages"] != float64(2) {
			t.Fatalf("expected 2 pages, got %v", pagination["totalPages"])
		}
	})
}
