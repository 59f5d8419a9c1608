package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestQuotaService_CheckAndIncrement(t *testing.T) {
	testDB := setupTestDB(t)
	quotaSvc := NewQuotaService(testDB, 3)

	// First three requests succeed with decreasing remaining
	for i, wantRemaining := range []int{2, 1, 0} {
		allowed, remaining, err := quotaSvc.CheckAndIncrement("anon-1")
		if err != nil {
			t.Fatalf("Request %d failed: %v", i+1, err)
		}
		if !allowed {
			t.Fatalf("Request %d unexpectedly denied", i+1)
		}
		if remaining != wantRemaining {
			t.Errorf("Request %d: remaining = %d, want %d", i+1, remaining, wantRemaining)
		}
	}

	// The fourth is denied and does not increment
	allowed, remaining, err := quotaSvc.CheckAndIncrement("anon-1")
	if err != nil {
		t.Fatalf("Fourth request failed: %v", err)
	}
	if allowed || remaining != 0 {
		t.Errorf("Fourth request: allowed=%v remaining=%d, want denied with 0", allowed, remaining)
	}

	var counter AnonCounter
	if err := testDB.First(&counter, "id = ?", "anon-1").Error; err != nil {
		t.Fatalf("Counter row missing: %v", err)
	}
	if counter.Count != 3 {
		t.Errorf("Counter = %d after denial, want 3", counter.Count)
	}

	// A different id starts fresh
	if allowed, remaining, _ := quotaSvc.CheckAndIncrement("anon-2"); !allowed || remaining != 2 {
		t.Errorf("Fresh id: allowed=%v remaining=%d", allowed, remaining)
	}
}

func TestQuotaService_Identify(t *testing.T) {
	testDB := setupTestDB(t)
	quotaSvc := NewQuotaService(testDB, 3)

	req := httptest.NewRequest("POST", "/api/search", nil)
	w := httptest.NewRecorder()

	anonID := quotaSvc.Identify(w, req)
	if anonID == "" {
		t.Fatal("Expected a minted anon id")
	}

	cookie := cookieFromRecorder(t, w, anonCookieName)
	if cookie == nil {
		t.Fatal("Expected anon_id cookie to be set")
	}
	if cookie.Value != anonID {
		t.Errorf("Cookie value %s != returned id %s", cookie.Value, anonID)
	}
	if cookie.HttpOnly {
		t.Error("anon_id cookie must be readable by client scripts")
	}

	// An existing cookie is reused, not re-minted
	req2 := httptest.NewRequest("POST", "/api/search", nil)
	req2.AddCookie(cookie)
	w2 := httptest.NewRecorder()
	if got := quotaSvc.Identify(w2, req2); got != anonID {
		t.Errorf("Identify minted a new id %s for a known browser", got)
	}
	if extra := cookieFromRecorder(t, w2, anonCookieName); extra != nil {
		t.Error("Identify must not reset the cookie for a known browser")
	}
}

func TestQuotaService_ResetForDeletesCounter(t *testing.T) {
	testDB := setupTestDB(t)
	quotaSvc := NewQuotaService(testDB, 3)

	quotaSvc.CheckAndIncrement("anon-1")
	quotaSvc.CheckAndIncrement("anon-1")

	req := httptest.NewRequest("POST", "/api/login", nil)
	req.AddCookie(&http.Cookie{Name: anonCookieName, Value: "anon-1"})
	w := httptest.NewRecorder()

	quotaSvc.ResetFor(w, req)

	var count int64
	testDB.Model(&AnonCounter{}).Where("id = ?", "anon-1").Count(&count)
	if count != 0 {
		t.Error("Counter row survived login")
	}

	cookie := cookieFromRecorder(t, w, anonCookieName)
	if cookie == nil || cookie.MaxAge != -1 {
		t.Error("Expected anon_id cookie to be expired on login")
	}
}

func TestSearchHandler_AnonymousQuota(t *testing.T) {
	setupServices(t)
	router := newRouter()

	var anonCookie *http.Cookie
	doSearch := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/search", jsonBody(t, map[string]string{"query": "hello"}))
		req.Header.Set("Content-Type", "application/json")
		if anonCookie != nil {
			req.AddCookie(anonCookie)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if c := cookieFromRecorder(t, w, anonCookieName); c != nil && c.MaxAge > 0 {
			anonCookie = c
		}
		return w
	}

	for i := 0; i < 3; i++ {
		if w := doSearch(); w.Code != http.StatusOK {
			t.Fatalf("Search %d returned %d", i+1, w.Code)
		}
	}

	if w := doSearch(); w.Code != http.StatusUnauthorized {
		t.Errorf("Fourth anonymous search returned %d, want 401", w.Code)
	}
}

func TestSearchHandler_AuthenticatedBypassesQuota(t *testing.T) {
	setupServices(t)
	router := newRouter()

	user, err := authService.Signup("Alice", "alice@example.com", "Aa1!aaaa")
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	w := httptest.NewRecorder()
	sessionService.Issue(w, user.ID)
	sessionCookie := cookieFromRecorder(t, w, sessionCookieName)

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest("POST", "/api/search", jsonBody(t, map[string]string{"query": "hello"}))
		req.Header.Set("Content-Type", "application/json")
		req.AddCookie(sessionCookie)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		if resp.Code != http.StatusOK {
			t.Fatalf("Authenticated search %d returned %d", i+1, resp.Code)
		}
	}
}
