package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"honeypot-lab/internal/api/handlers"
	"honeypot-lab/internal/config"
	"honeypot-lab/internal/domain/models"
	"honeypot-lab/internal/domain/services"
	"honeypot-lab/internal/domain/services/ai"
	"honeypot-lab/pkg/logger"
)

func newTestServer(t *testing.T, apiKey string) (*httptest.Server, *services.SessionStore) {
	t.Helper()
	log := logger.Nop()

	store := services.NewSessionStore(log)
	hp := services.NewHoneypot(
		store,
		ai.NewScamDetector(log, nil, nil, nil),
		nil,
		nil,
		services.HoneypotConfig{MinTurns: 6, MaxTurns: 10},
		log,
	)

	cfg := config.Config{
		Auth: config.AuthConfig{APIKey: apiKey, Header: "x-api-key"},
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}, AllowedMethods: []string{"GET", "POST"}},
	}
	h := handlers.NewHandlers(handlers.Dependencies{Honeypot: hp, Sessions: store, Logger: log})

	srv := httptest.NewServer(NewRouter(cfg, h, nil, log).Setup())
	t.Cleanup(srv.Close)
	return srv, store
}

func post(t *testing.T, url, key, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("x-api-key", key)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestRouterChatAliases(t *testing.T) {
	srv, store := newTestServer(t, "")

	for i, path := range []string{"/analyze", "/api/chat", "/api/hackathon/chat"} {
		body := `{"sessionId":"s` + string(rune('a'+i)) + `","message":{"sender":"scammer","text":"hello there","timestamp":1}}`
		resp := post(t, srv.URL+path, "k", body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("POST %s = %d", path, resp.StatusCode)
		}
		var out models.ChatResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatal(err)
		}
		if out.Status != "success" || out.Reply != services.ProbingReply {
			t.Errorf("POST %s = %+v", path, out)
		}
	}
	if store.Len() != 3 {
		t.Fatalf("sessions = %d, want 3", store.Len())
	}
}

func TestRouterAuth(t *testing.T) {
	srv, _ := newTestServer(t, "team-key")
	body := `{"sessionId":"s","message":{"text":"hi"}}`

	if resp := post(t, srv.URL+"/analyze", "", body); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("missing key = %d, want 401", resp.StatusCode)
	}
	if resp := post(t, srv.URL+"/analyze", "wrong", body); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong key = %d, want 401", resp.StatusCode)
	}
	if resp := post(t, srv.URL+"/analyze", "team-key", body); resp.StatusCode != http.StatusOK {
		t.Errorf("right key = %d, want 200", resp.StatusCode)
	}
}

func TestRouterScamWithoutLLM(t *testing.T) {
	srv, store := newTestServer(t, "")

	body := `{"sessionId":"scam","message":{"sender":"scammer","text":"Your account is blocked. Install anydesk and pay urgently to fraud@ybl"}}`
	resp := post(t, srv.URL+"/analyze", "k", body)
	var out models.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Reply != "[System Error: LLM API key not configured]" {
		t.Fatalf("Reply = %q", out.Reply)
	}
	snap, _ := store.Snapshot("scam")
	if !snap.ScamDetected || len(snap.Extracted.UPIIDs) != 1 {
		t.Fatalf("unexpected session: %+v", snap)
	}
}

func TestRouterPublicRoutes(t *testing.T) {
	srv, _ := newTestServer(t, "secret")

	for _, path := range []string{"/", "/health", "/ready"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}
}
