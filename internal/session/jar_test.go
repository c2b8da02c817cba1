package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func newRequest(t *testing.T, cookies ...*http.Cookie) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func TestRead_ReturnsInboundCookiesInOrder(t *testing.T) {
	req := newRequest(t,
		&http.Cookie{Name: "first", Value: "1"},
		&http.Cookie{Name: "second", Value: "2"},
	)
	jar := NewJar(req)

	got := jar.Read()
	if len(got) != 2 {
		t.Fatalf("Read() returned %d cookies, want 2", len(got))
	}
	if got[0].Name != "first" || got[1].Name != "second" {
		t.Errorf("Read() order = %v, want first then second", got)
	}
}

func TestRead_Idempotent(t *testing.T) {
	req := newRequest(t, &http.Cookie{Name: "a", Value: "1"})
	jar := NewJar(req)

	first := jar.Read()
	second := jar.Read()

	if len(first) != len(second) {
		t.Fatalf("Read() results differ: %d vs %d", len(first), len(second))
	}
}

func TestGet_MissingCookie(t *testing.T) {
	jar := NewJar(newRequest(t))
	if _, ok := jar.Get("absent"); ok {
		t.Error("Get() for absent cookie returned ok=true")
	}
}

func TestStage_LastWriteWins(t *testing.T) {
	jar := NewJar(newRequest(t))

	jar.Stage(SetCookie{Name: "token", Value: "old"})
	jar.Stage(SetCookie{Name: "other", Value: "x"})
	jar.Stage(SetCookie{Name: "token", Value: "new"})

	pending := jar.Pending()
	if len(pending) != 2 {
		t.Fatalf("Pending() returned %d mutations, want 2", len(pending))
	}

	var tokenValue string
	for _, c := range pending {
		if c.Name == "token" {
			tokenValue = c.Value
		}
	}
	if tokenValue != "new" {
		t.Errorf("token value = %q, want last write %q", tokenValue, "new")
	}
}

func TestApply_WritesSetCookieHeaders(t *testing.T) {
	jar := NewJar(newRequest(t))
	jar.Stage(SetCookie{Name: "token", Value: "abc", Path: "/", HTTPOnly: true})

	rec := httptest.NewRecorder()
	jar.Apply(rec)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("response has %d cookies, want 1", len(cookies))
	}
	if cookies[0].Name != "token" || cookies[0].Value != "abc" {
		t.Errorf("cookie = %s=%s, want token=abc", cookies[0].Name, cookies[0].Value)
	}
	if !cookies[0].HttpOnly {
		t.Error("cookie should be HttpOnly")
	}
}

func TestApply_Idempotent(t *testing.T) {
	jar := NewJar(newRequest(t))
	jar.Stage(SetCookie{Name: "token", Value: "abc"})

	rec := httptest.NewRecorder()
	jar.Apply(rec)
	jar.Apply(rec)

	if got := len(rec.Result().Cookies()); got != 1 {
		t.Errorf("double Apply() wrote %d cookies, want 1", got)
	}
	if jar.HasPending() {
		t.Error("HasPending() = true after Apply")
	}
}

func TestApply_PicksUpLaterStages(t *testing.T) {
	jar := NewJar(newRequest(t))
	jar.Stage(SetCookie{Name: "a", Value: "1"})

	rec := httptest.NewRecorder()
	jar.Apply(rec)

	jar.Stage(SetCookie{Name: "b", Value: "2"})
	jar.Apply(rec)

	if got := len(rec.Result().Cookies()); got != 2 {
		t.Errorf("wrote %d cookies across two Apply calls, want 2", got)
	}
}

// A response finalized while mutations are still staged loses session state.
// HasPending is the hook tests and handlers use to catch that bug.
func TestHasPending_TracksUnappliedMutations(t *testing.T) {
	jar := NewJar(newRequest(t))

	if jar.HasPending() {
		t.Error("new jar should have nothing pending")
	}

	jar.Stage(SetCookie{Name: "token", Value: "abc"})
	if !jar.HasPending() {
		t.Error("HasPending() = false with a staged mutation")
	}

	rec := httptest.NewRecorder()
	jar.Apply(rec)
	if jar.HasPending() {
		t.Error("HasPending() = true after Apply")
	}
}

func TestCookieDeletion_StagedAsNegativeMaxAge(t *testing.T) {
	jar := NewJar(newRequest(t))
	jar.Stage(SetCookie{Name: "token", Value: "", MaxAge: -1, Path: "/"})

	rec := httptest.NewRecorder()
	jar.Apply(rec)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("response has %d cookies, want 1", len(cookies))
	}
	if cookies[0].MaxAge >= 0 {
		t.Errorf("MaxAge = %d, want negative (deletion)", cookies[0].MaxAge)
	}
}
