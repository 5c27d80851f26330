package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/fitconnect/backend/internal/models"
)

func TestCreatePost(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "alice", "password-one", models.UserRoleUser)

	t.Run("creates post", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/posts/", map[string]any{
			"body": "Morning 10k done",
		}, authHeaders(token))
		body := decodeJSONMap(t, resp)

		assertStatus(t, resp, http.StatusCreated)
		data := dataMap(t, body)
		if data["body"] != "Morning 10k done" {
			t.Fatalf("expected post body, got %v", data["body"])
		}
	})

	t.Run("rejects empty body", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/posts/", map[string]any{
			"body": "   ",
		}, authHeaders(token))
		body := decodeJSONMap(t, resp)

		assertStatus(t, resp, http.StatusBadRequest)
		assertEnvelopeError(t, body, "body is required")
	})
}

func TestFeed(t *testing.T) {
	env := setupTestEnv(t)
	alice, aliceToken := createTestUser(t, env.db, "alice", "password-one", models.UserRoleUser)
	bob, bobToken := createTestUser(t, env.db, "bob", "password-two", models.UserRoleUser)

	post := createTestPost(t, env.db, alice, "Leg day")
	createTestPost(t, env.db, bob, "Rest day")

	likePath := fmt.Sprintf("/api/posts/%s/like", post.ID)
	resp := performRequest(t, env.app, http.MethodPost, likePath, nil, authHeaders(bobToken))
	assertStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	t.Run("page carries counts and viewer like state", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/feed", nil, authHeaders(bobToken))
		body := decodeJSONMap(t, resp)

		assertStatus(t, resp, http.StatusOK)
		posts, ok := body["data"].([]any)
		if !ok || len(posts) != 2 {
			t.Fatalf("expected 2 posts, got %+v", body["data"])
		}

		var liked map[string]any
		for _, raw := range posts {
			p, _ := raw.(map[string]any)
			if p["id"] == post.ID.String() {
				liked = p
			}
		}
		if liked == nil {
			t.Fatalf("expected post %s in feed", post.ID)
		}
		if liked["likeCount"] != float64(1) {
			t.Fatalf("expected likeCount 1, got %v", liked["likeCount"])
		}
		if liked["likedByViewer"] != true {
			t.Fatalf("expected likedByViewer true, got %v", liked["likedByViewer"])
		}
	})

	t.Run("like state is per viewer", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, fmt.Sprintf("/api/posts/%s", post.ID), nil, authHeaders(aliceToken))
		body := decodeJSONMap(t, resp)

		assertStatus(t, resp, http.StatusOK)
		data := dataMap(t, body)
		if data["likedByViewer"] != false {
			t.Fatalf("expected likedByViewer false for author, got %v", data["likedByViewer"])
		}
	})
}

func TestToggleLikeEndpoint(t *testing.T) {
	env := setupTestEnv(t)
	alice, _ := createTestUser(t, env.db, "alice", "password-one", models.UserRoleUser)
	_, bobToken := createTestUser(t, env.db, "bob", "password-two", models.UserRoleUser)

	post := createTestPost(t, env.db, alice, "Tempo run")
	likePath := fmt.Sprintf("/api/posts/%s/like", post.ID)

	expected := []string{"liked", "disliked", "liked"}
	for i, want := range expected {
		resp := performRequest(t, env.app, http.MethodPost, likePath, nil, authHeaders(bobToken))
		body := decodeJSONMap(t, resp)

		assertStatus(t, resp, http.StatusOK)
		data := dataMap(t, body)
		if data["action"] != want {
			t.Fatalf("toggle %d: expected action %q, got %v", i+1, want, data["action"])
		}
	}

	t.Run("unknown post returns 404", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodPost, "/api/posts/00000000-0000-0000-0000-000000000000/like", nil, authHeaders(bobToken))
		body := decodeJSONMap(t, resp)

		assertStatus(t, resp, http.StatusNotFound)
		assertEnvelopeError(t, body, "not found")
	})
}

func TestComments(t *testing.T) {
	env := setupTestEnv(t)
	alice, aliceToken := createTestUser(t, env.db, "alice", "password-one", models.UserRoleUser)
	_, bobToken := createTestUser(t, env.db, "bob", "password-two", models.UserRoleUser)

	post := createTestPost(t, env.db, alice, "Intervals")
	commentsPath := fmt.Sprintf("/api/posts/%s/comments", post.ID)

	var commentID string

	t.Run("creates comment", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, commentsPath, map[string]any{
			"body": "Nice pace!",
		}, authHeaders(bobToken))
		body := decodeJSONMap(t, resp)

		assertStatus(t, resp, http.StatusCreated)
		data := dataMap(t, body)
		commentID, _ = data["id"].(string)
		if commentID == "" {
			t.Fatalf("expected comment id, got %+v", data)
		}
	})

	t.Run("comment count appears on post", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, fmt.Sprintf("/api/posts/%s", post.ID), nil, authHeaders(aliceToken))
		body := decodeJSONMap(t, resp)

		assertStatus(t, resp, http.StatusOK)
		data := dataMap(t, body)
		if data["commentCount"] != float64(1) {
			t.Fatalf("expected commentCount 1, got %v", data["commentCount"])
		}
	})

	t.Run("stranger cannot delete comment", func(t *testing.T) {
		stranger, strangerToken := createTestUser(t, env.db, "carol", "password-three", models.UserRoleUser)
		_ = stranger

		resp := performRequest(t, env.app, http.MethodDelete, fmt.Sprintf("%s/%s", commentsPath, commentID), nil, authHeaders(strangerToken))
		assertStatus(t, resp, http.StatusForbidden)
		resp.Body.Close()
	})

	t.Run("author deletes comment", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodDelete, fmt.Sprintf("%s/%s", commentsPath, commentID), nil, authHeaders(bobToken))
		assertStatus(t, resp, http.StatusOK)
		resp.Body.Close()

		var count int64
		env.db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&count)
		if count != 0 {
			t.Fatalf("expected comment removed, found %d", count)
		}
	})
}

func TestDeletePost(t *testing.T) {
	env := setupTestEnv(t)
	alice, aliceToken := createTestUser(t, env.db, "alice", "password-one", models.UserRoleUser)
	_, bobToken := createTestUser(t, env.db, "bob", "password-two", models.UserRoleUser)
	_, adminToken := createTestUser(t, env.db, "moderator", "password-admin", models.UserRoleAdmin)

	t.Run("stranger cannot delete", func(t *testing.T) {
		post := createTestPost(t, env.db, alice, "To keep")

		resp := performRequest(t, env.app, http.MethodDelete, fmt.Sprintf("/api/posts/%s", post.ID), nil, authHeaders(bobToken))
		body := decodeJSONMap(t, resp)

		assertStatus(t, resp, http.StatusForbidden)
		assertEnvelopeError(t, body, "only the author or an admin can delete a post")
	})

	t.Run("author deletes with likes and comments", func(t *testing.T) {
		post := createTestPost(t, env.db, alice, "To remove")
		resp := performRequest(t, env.app, http.MethodPost, fmt.Sprintf("/api/posts/%s/like", post.ID), nil, authHeaders(bobToken))
		assertStatus(t, resp, http.StatusOK)
		resp.Body.Close()

		resp = performRequest(t, env.app, http.MethodDelete, fmt.Sprintf("/api/posts/%s", post.ID), nil, authHeaders(aliceToken))
		assertStatus(t, resp, http.StatusOK)
		resp.Body.Close()

		var likes int64
		env.db.Model(&models.PostLike{}).Where("post_id = ?", post.ID).Count(&likes)
		if likes != 0 {
			t.Fatalf("expected likes removed with post, found %d", likes)
		}
	})

	t.Run("admin deletes another user's post", func(t *testing.T) {
		post := createTestPost(t, env.db, alice, "Moderated away")

		resp := performRequest(t, env.app, http.MethodDelete, fmt.Sprintf("/api/posts/%s", post.ID), nil, authHeaders(adminToken))
		assertStatus(t, resp, http.StatusOK)
		resp.Body.Close()
	})
}
