package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/starslap/starslap/internal/models"
)

func TestSubmitPostEntersPending(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.request(t, http.MethodPost, "/api/posts",
		map[string]string{"name": "Ada", "category": "film"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var post models.Post
	decode(t, w, &post)
	if post.Status != models.StatusPending {
		t.Errorf("Expected pending status, got %q", post.Status)
	}

	// Pending posts stay invisible publicly.
	list := s.request(t, http.MethodGet, "/api/posts", nil)
	var listing struct {
		Posts []models.Post `json:"posts"`
	}
	decode(t, list, &listing)
	if len(listing.Posts) != 0 {
		t.Errorf("Pending post must not appear in public listing, got %d posts", len(listing.Posts))
	}

	get := s.request(t, http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), nil)
	if get.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for pending post, got %d", get.Code)
	}
}

func TestModerationLifecycle(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.request(t, http.MethodPost, "/api/posts",
		map[string]string{"name": "Ada", "category": "film"})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", w.Code)
	}
	var post models.Post
	decode(t, w, &post)

	approve := s.request(t, http.MethodPut, fmt.Sprintf("/api/admin/posts/%d/status", post.ID),
		map[string]string{"status": "approved"}, asAdmin())
	if approve.Code != http.StatusOK {
		t.Fatalf("Expected 200 on approval, got %d: %s", approve.Code, approve.Body.String())
	}

	list := s.request(t, http.MethodGet, "/api/posts", nil)
	var listing struct {
		Posts []models.Post `json:"posts"`
	}
	decode(t, list, &listing)
	if len(listing.Posts) != 1 || listing.Posts[0].Name != "Ada" {
		t.Errorf("Expected Ada in public listing after approval, got %+v", listing.Posts)
	}

	get := s.request(t, http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), nil)
	if get.Code != http.StatusOK {
		t.Errorf("Expected 200 for approved post, got %d", get.Code)
	}

	// Moderators can reverse themselves.
	reject := s.request(t, http.MethodPut, fmt.Sprintf("/api/admin/posts/%d/status", post.ID),
		map[string]string{"status": "rejected"}, asAdmin())
	if reject.Code != http.StatusOK {
		t.Fatalf("Expected 200 on rejection, got %d", reject.Code)
	}
	get = s.request(t, http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), nil)
	if get.Code != http.StatusNotFound {
		t.Errorf("Rejected post must 404 publicly, got %d", get.Code)
	}
}

func TestSubmitPostValidation(t *testing.T) {
	s := newTestServer(t, nil)

	longName := make([]byte, 256)
	for i := range longName {
		longName[i] = 'a'
	}

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing name", map[string]string{"category": "film"}},
		{"missing category", map[string]string{"name": "Ada"}},
		{"unknown category", map[string]string{"name": "Ada", "category": "athlete"}},
		{"blank name", map[string]string{"name": "   ", "category": "film"}},
		{"name too long", map[string]string{"name": string(longName), "category": "film"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.request(t, http.MethodPost, "/api/posts", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", w.Code)
			}
			if code := errorCode(t, w); code != "validation_error" {
				t.Errorf("Expected validation_error, got %q", code)
			}
		})
	}
}

func TestSubmitPostRateLimited(t *testing.T) {
	s := newTestServer(t, nil)

	for i := 0; i < 5; i++ {
		w := s.request(t, http.MethodPost, "/api/posts",
			map[string]string{"name": fmt.Sprintf("Post %d", i), "category": "film"},
			asIP("203.0.113.7"))
		if w.Code != http.StatusCreated {
			t.Fatalf("Submission %d should pass, got %d", i+1, w.Code)
		}
	}

	w := s.request(t, http.MethodPost, "/api/posts",
		map[string]string{"name": "One Too Many", "category": "film"},
		asIP("203.0.113.7"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429 on sixth submission, got %d", w.Code)
	}
	if code := errorCode(t, w); code != "rate_limited" {
		t.Errorf("Expected rate_limited, got %q", code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header on 429")
	}

	// A different address has its own budget.
	other := s.request(t, http.MethodPost, "/api/posts",
		map[string]string{"name": "Fresh Caller", "category": "film"},
		asIP("203.0.113.8"))
	if other.Code != http.StatusCreated {
		t.Errorf("Expected 201 for a different identity, got %d", other.Code)
	}
}

func TestListPostsSorting(t *testing.T) {
	s := newTestServer(t, nil)
	love := s.actionByName(t, "love")

	ada := s.seedPost(t, "Ada", models.CategoryFilm, models.StatusApproved)
	bob := s.seedPost(t, "Bob", models.CategoryFictional, models.StatusApproved)

	vote := s.request(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/vote", bob.ID),
		map[string]int64{"action_id": love.ID}, asIP("203.0.113.1"))
	if vote.Code != http.StatusCreated {
		t.Fatalf("Vote should land, got %d: %s", vote.Code, vote.Body.String())
	}

	w := s.request(t, http.MethodGet, "/api/posts?sort=votes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var listing struct {
		Posts []struct {
			models.Post
			Votes      map[string]int64 `json:"votes"`
			TotalVotes int64            `json:"total_votes"`
		} `json:"posts"`
	}
	decode(t, w, &listing)
	if len(listing.Posts) != 2 {
		t.Fatalf("Expected 2 posts, got %d", len(listing.Posts))
	}
	if listing.Posts[0].ID != bob.ID || listing.Posts[0].TotalVotes != 1 {
		t.Errorf("Expected Bob first with 1 vote, got %q with %d",
			listing.Posts[0].Name, listing.Posts[0].TotalVotes)
	}
	if listing.Posts[1].ID != ada.ID || listing.Posts[1].TotalVotes != 0 {
		t.Errorf("Expected Ada second with 0 votes, got %q with %d",
			listing.Posts[1].Name, listing.Posts[1].TotalVotes)
	}
}

func TestListPostsInvalidSort(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.request(t, http.MethodGet, "/api/posts?sort=bogus", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown sort, got %d", w.Code)
	}

	// Sorting by an action nobody approved matches nothing rather than
	// erroring.
	s.seedPost(t, "Ada", models.CategoryFilm, models.StatusApproved)
	w = s.request(t, http.MethodGet, "/api/posts?sort=action&action=applaud", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for unknown action sort, got %d", w.Code)
	}
	var listing struct {
		Posts []models.Post `json:"posts"`
	}
	decode(t, w, &listing)
	if len(listing.Posts) != 0 {
		t.Errorf("Expected empty result for unknown action sort, got %d posts", len(listing.Posts))
	}
}

func TestListPostsCategoryFilter(t *testing.T) {
	s := newTestServer(t, nil)
	s.seedPost(t, "Ada", models.CategoryFilm, models.StatusApproved)
	s.seedPost(t, "Bob", models.CategoryPolitician, models.StatusApproved)

	w := s.request(t, http.MethodGet, "/api/posts?category=politician", nil)
	var listing struct {
		Posts []models.Post `json:"posts"`
	}
	decode(t, w, &listing)
	if len(listing.Posts) != 1 || listing.Posts[0].Name != "Bob" {
		t.Errorf("Expected only Bob, got %+v", listing.Posts)
	}

	bad := s.request(t, http.MethodGet, "/api/posts?category=athlete", nil)
	if bad.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown category, got %d", bad.Code)
	}
}

func TestGetPostIncludesVoteCounts(t *testing.T) {
	s := newTestServer(t, nil)
	post := s.seedPost(t, "Ada", models.CategoryFilm, models.StatusApproved)
	love := s.actionByName(t, "love")

	for i := 1; i <= 3; i++ {
		w := s.request(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/vote", post.ID),
			map[string]int64{"action_id": love.ID}, asIP(fmt.Sprintf("203.0.113.%d", i)))
		if w.Code != http.StatusCreated {
			t.Fatalf("Vote %d should land, got %d: %s", i, w.Code, w.Body.String())
		}
	}

	w := s.request(t, http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var annotated struct {
		models.Post
		Votes      map[string]int64 `json:"votes"`
		TotalVotes int64            `json:"total_votes"`
	}
	decode(t, w, &annotated)
	if annotated.Votes["love"] != 3 || annotated.TotalVotes != 3 {
		t.Errorf("Expected love=3 total=3, got %v total=%d", annotated.Votes, annotated.TotalVotes)
	}
}
