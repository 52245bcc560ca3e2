package app

import (
	"net/http"
	"testing"
)

func TestSignUpReturnsSession(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodPost, "/api/auth/signup", `{"name":"  Ada  ","email":" Ada@Example.com ","password":"correct-horse"}`, "")

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := decodeJSON(t, rr)
	if payload["accessToken"] == "" || payload["refreshToken"] == "" {
		t.Fatalf("expected tokens, got %v", payload)
	}
	if payload["name"] != "Ada" || payload["email"] != "ada@example.com" {
		t.Fatalf("unexpected identity: %v", payload)
	}

	session := env.do(t, http.MethodGet, "/api/session", "", payload["accessToken"].(string))
	body := decodeJSON(t, session)
	if body["authenticated"] != true {
		t.Fatalf("expected authenticated session, got %v", body)
	}
	user := body["user"].(map[string]any)
	if user["name"] != "Ada" || user["email"] != "ada@example.com" || user["id"] != payload["userId"] {
		t.Fatalf("unexpected session user: %v", user)
	}
}

func TestSignUpDefaultsNameToAnonymous(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodPost, "/api/auth/signup", `{"email":"anon@example.com","password":"correct-horse"}`, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	if name := decodeJSON(t, rr)["name"]; name != "Anonymous" {
		t.Fatalf("expected Anonymous, got %v", name)
	}
}

func TestSignUpErrors(t *testing.T) {
	env := newTestEnv(t)
	first := env.do(t, http.MethodPost, "/api/auth/signup", `{"email":"ada@example.com","password":"correct-horse"}`, "")
	if first.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", first.Code)
	}

	expectError(t,
		env.do(t, http.MethodPost, "/api/auth/signup", `{"email":"ADA@example.com","password":"another-pass"}`, ""),
		http.StatusConflict, "EMAIL_EXISTS")

	payload := expectError(t,
		env.do(t, http.MethodPost, "/api/auth/signup", `{"email":"not-an-email","password":"short"}`, ""),
		http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	details, ok := payload["details"].([]any)
	if !ok || len(details) != 2 {
		t.Fatalf("expected two field errors, got %v", payload["details"])
	}
	fields := map[string]bool{}
	for _, d := range details {
		fields[d.(map[string]any)["field"].(string)] = true
	}
	if !fields["email"] || !fields["password"] {
		t.Fatalf("expected email and password errors, got %v", details)
	}

	expectError(t, env.do(t, http.MethodPost, "/api/auth/signup", `{"email":`, ""), http.StatusBadRequest, "INVALID_BODY")
}

func TestSignIn(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/auth/signup", `{"name":"Ada","email":"ada@example.com","password":"correct-horse"}`, "")

	rr := env.do(t, http.MethodPost, "/api/auth/signin", `{"email":"ADA@example.com","password":"correct-horse"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if name := decodeJSON(t, rr)["name"]; name != "Ada" {
		t.Fatalf("expected Ada, got %v", name)
	}

	expectError(t,
		env.do(t, http.MethodPost, "/api/auth/signin", `{"email":"ada@example.com","password":"wrong-password"}`, ""),
		http.StatusUnauthorized, "INVALID_CREDENTIALS")
	expectError(t,
		env.do(t, http.MethodPost, "/api/auth/signin", `{"email":"nobody@example.com","password":"correct-horse"}`, ""),
		http.StatusUnauthorized, "INVALID_CREDENTIALS")
}

func TestSessionEndpointWithoutToken(t *testing.T) {
	env := newTestEnv(t)
	for _, token := range []string{"", "garbage"} {
		rr := env.do(t, http.MethodGet, "/api/session", "", token)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		body := decodeJSON(t, rr)
		if body["authenticated"] != false || body["user"] != nil {
			t.Fatalf("expected anonymous session for %q, got %v", token, body)
		}
	}
}

func TestSessionFromCookie(t *testing.T) {
	env := newTestEnv(t)
	session := env.signIn(t, "Ada", "ada@example.com")

	req := newRequest(http.MethodGet, "/api/session", "")
	req.AddCookie(&http.Cookie{Name: "token", Value: session.Token})
	rr := serve(env, req)

	if body := decodeJSON(t, rr); body["authenticated"] != true {
		t.Fatalf("expected cookie session to authenticate, got %v", body)
	}
}

func TestRefreshEndpoint(t *testing.T) {
	env := newTestEnv(t)
	session := env.signIn(t, "Ada", "ada@example.com")

	rr := env.do(t, http.MethodPost, "/api/session/refresh", `{"refreshToken":"`+session.RefreshToken+`"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := decodeJSON(t, rr)
	if payload["refreshToken"] == session.RefreshToken {
		t.Fatal("refresh token should rotate")
	}

	replay := expectError(t,
		env.do(t, http.MethodPost, "/api/session/refresh", `{"refreshToken":"`+session.RefreshToken+`"}`, ""),
		http.StatusUnauthorized, "UNAUTHORIZED")
	if replay["error"] != "Refresh token invalid" {
		t.Fatalf("unexpected message %v", replay["error"])
	}
}

func TestLogoutRevokesTokens(t *testing.T) {
	env := newTestEnv(t)
	session := env.signIn(t, "Ada", "ada@example.com")

	rr := env.do(t, http.MethodPost, "/api/session/logout", `{"refreshToken":"`+session.RefreshToken+`"}`, session.Token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	if body := decodeJSON(t, env.do(t, http.MethodGet, "/api/session", "", session.Token)); body["authenticated"] != false {
		t.Fatalf("revoked access token still authenticates: %v", body)
	}
	expectError(t,
		env.do(t, http.MethodPost, "/api/session/refresh", `{"refreshToken":"`+session.RefreshToken+`"}`, ""),
		http.StatusUnauthorized, "UNAUTHORIZED")

	// A revoked token is treated as signed out for comment mutations.
	expectError(t,
		env.do(t, http.MethodPost, "/api/posts/hello-world/comments", `{"content":"hi"}`, session.Token),
		http.StatusUnauthorized, "UNAUTHORIZED")
}
