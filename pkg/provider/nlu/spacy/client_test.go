package spacy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/voxnav/voxnav/pkg/provider/nlu"
)

func TestParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/parse" {
			t.Errorf("path = %q, want /parse", r.URL.Path)
		}
		var body struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Text != "click the login button" {
			t.Errorf("text = %q", body.Text)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"action":     "click",
			"target":     "login",
			"confidence": 0.7,
			"success":    true,
		})
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	intent, err := c.Parse(context.Background(), "click the login button")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if intent.Action != nlu.ActionClick {
		t.Errorf("action = %q, want click", intent.Action)
	}
	if intent.Target != "login" {
		t.Errorf("target = %q, want login", intent.Target)
	}
	if intent.Confidence != 0.7 {
		t.Errorf("confidence = %v, want 0.7", intent.Confidence)
	}
}

func TestParse_NormalizesPercentConfidence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"action":     "cancel",
			"confidence": 95,
			"success":    true,
		})
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	intent, err := c.Parse(context.Background(), "cancel")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if intent.Confidence != 0.95 {
		t.Errorf("confidence = %v, want 0.95", intent.Confidence)
	}
}

func TestParse_ConnectionRefused(t *testing.T) {
	// Reserve a port and close it so nothing listens there.
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, _ := New(url, WithTimeout(time.Second))
	_, err := c.Parse(context.Background(), "click login")
	if !errors.Is(err, nlu.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestParse_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	_, err := c.Parse(context.Background(), "click login")
	if !errors.Is(err, nlu.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestParse_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	_, err := c.Parse(context.Background(), "click login")
	if !errors.Is(err, nlu.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestParse_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c, _ := New(srv.URL, WithTimeout(50*time.Millisecond))
	_, err := c.Parse(context.Background(), "click login")
	if !errors.Is(err, nlu.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestParseBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/batch-parse" {
			t.Errorf("path = %q, want /batch-parse", r.URL.Path)
		}
		var body struct {
			Commands []string `json:"commands"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(body.Commands) != 2 {
			t.Errorf("commands = %v", body.Commands)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"results": []map[string]any{
				{"action": "click", "target": "login", "confidence": 0.7, "success": true},
				{"action": "scroll", "direction": "down", "confidence": 0.6, "success": true},
			},
		})
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	intents, err := c.ParseBatch(context.Background(), []string{"click login", "scroll down"})
	if err != nil {
		t.Fatalf("ParseBatch: %v", err)
	}
	if len(intents) != 2 {
		t.Fatalf("got %d intents, want 2", len(intents))
	}
	if intents[1].Action != nlu.ActionScroll || intents[1].Direction != "down" {
		t.Errorf("intents[1] = %+v", intents[1])
	}
}

func TestResolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/navigate" {
			t.Errorf("path = %q, want /navigate", r.URL.Path)
		}
		var body struct {
			Command      string          `json:"command"`
			PageElements []nlu.Candidate `json:"page_elements"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(body.PageElements) != 2 {
			t.Errorf("page_elements = %v", body.PageElements)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success":        true,
			"action":         "click",
			"target":         "sign in",
			"confidence":     0.7,
			"human_response": "Clicking the Login button.",
			"matched_element": map[string]any{
				"id":         4,
				"text":       "Login",
				"confidence": 0.9,
			},
		})
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	res, err := c.Resolve(context.Background(), "press sign in", []nlu.Candidate{
		{ID: 3, Text: "Home", Type: "link"},
		{ID: 4, Text: "Login", Type: "button"},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.MatchedID != 4 {
		t.Errorf("MatchedID = %d, want 4", res.MatchedID)
	}
	if res.MatchConfidence != 0.9 {
		t.Errorf("MatchConfidence = %v, want 0.9", res.MatchConfidence)
	}
	if res.Response == "" {
		t.Error("Response is empty")
	}
}

func TestResolve_NoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success":    false,
			"action":     "click",
			"target":     "subscribe",
			"confidence": 0.4,
		})
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	res, err := c.Resolve(context.Background(), "click subscribe", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.MatchedID != -1 {
		t.Errorf("MatchedID = %d, want -1", res.MatchedID)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %q, want /health", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "healthy"})
	}))
	defer srv.Close()

	c, _ := New(srv.URL)
	if err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
}

func TestNew_EmptyURL(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty baseURL")
	}
}
