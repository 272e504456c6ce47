package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/starslap/starslap/internal/models"
)

func TestListActionsShowsDefaults(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.request(t, http.MethodGet, "/api/actions", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var listing struct {
		Actions []models.Action `json:"actions"`
	}
	decode(t, w, &listing)
	if len(listing.Actions) != len(models.DefaultActions) {
		t.Fatalf("Expected %d default actions, got %d", len(models.DefaultActions), len(listing.Actions))
	}
	for _, a := range listing.Actions {
		if !a.Approved || !a.IsDefault {
			t.Errorf("Default action %q should be approved and flagged default", a.Name)
		}
	}
}

func TestSuggestActionLifecycle(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.request(t, http.MethodPost, "/api/actions",
		map[string]string{"name": "  Applaud "})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var action models.Action
	decode(t, w, &action)
	if action.Name != "applaud" {
		t.Errorf("Expected name normalized to applaud, got %q", action.Name)
	}
	if action.Approved || action.IsDefault {
		t.Error("Suggestions must start unapproved and non-default")
	}

	// Invisible publicly, visible in the moderation queue.
	public := s.request(t, http.MethodGet, "/api/actions", nil)
	var listing struct {
		Actions []models.Action `json:"actions"`
	}
	decode(t, public, &listing)
	for _, a := range listing.Actions {
		if a.Name == "applaud" {
			t.Error("Unapproved suggestion must not appear publicly")
		}
	}

	admin := s.request(t, http.MethodGet, "/api/admin/actions", nil, asAdmin())
	decode(t, admin, &listing)
	found := false
	for _, a := range listing.Actions {
		if a.Name == "applaud" {
			found = true
		}
	}
	if !found {
		t.Error("Suggestion should appear in the moderation listing")
	}

	approve := s.request(t, http.MethodPut, fmt.Sprintf("/api/admin/actions/%d/approval", action.ID),
		map[string]bool{"approved": true}, asAdmin())
	if approve.Code != http.StatusOK {
		t.Fatalf("Expected 200 on approval, got %d", approve.Code)
	}

	public = s.request(t, http.MethodGet, "/api/actions", nil)
	decode(t, public, &listing)
	found = false
	for _, a := range listing.Actions {
		if a.Name == "applaud" {
			found = true
		}
	}
	if !found {
		t.Error("Approved suggestion should appear publicly")
	}

	// And it is votable once approved.
	post := s.seedPost(t, "Ada", models.CategoryFilm, models.StatusApproved)
	vote := s.request(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/vote", post.ID),
		map[string]int64{"action_id": action.ID}, asIP("198.51.100.1"))
	if vote.Code != http.StatusCreated {
		t.Errorf("Vote with approved custom action should land, got %d", vote.Code)
	}
}

func TestSuggestActionValidation(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"single char", "x"},
		{"spaces inside", "high five"},
		{"punctuation", "slap!"},
		{"leading digit", "1slap"},
		{"too long", "abcdefghijklmnopqrstuvwxyzabcdefg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.request(t, http.MethodPost, "/api/actions",
				map[string]string{"name": tt.input})
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected 400 for %q, got %d", tt.input, w.Code)
			}
		})
	}

	// Duplicate of an existing action.
	dup := s.request(t, http.MethodPost, "/api/actions",
		map[string]string{"name": "slap"})
	if dup.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for duplicate name, got %d", dup.Code)
	}
	if code := errorCode(t, dup); code != "validation_error" {
		t.Errorf("Expected validation_error, got %q", code)
	}
}

func TestSuggestActionRateLimited(t *testing.T) {
	s := newTestServer(t, nil)

	for i := 0; i < 3; i++ {
		w := s.request(t, http.MethodPost, "/api/actions",
			map[string]string{"name": fmt.Sprintf("verb%d", i)}, asIP("203.0.113.9"))
		if w.Code != http.StatusCreated {
			t.Fatalf("Suggestion %d should pass, got %d", i+1, w.Code)
		}
	}

	w := s.request(t, http.MethodPost, "/api/actions",
		map[string]string{"name": "verb3"}, asIP("203.0.113.9"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429 on fourth suggestion, got %d", w.Code)
	}
}
