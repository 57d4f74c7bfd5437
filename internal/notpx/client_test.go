package notpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wbrown/pixelbot"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, NewClient(srv.URL, WithTimeout(5*time.Second))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestRepaint(t *testing.T) {
	var got repaintRequest
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/repaint/start" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "initData cred" {
			t.Errorf("Unexpected Authorization header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Bad request body: %v", err)
		}
		writeJSON(w, map[string]any{"balance": 123.5})
	})

	item := pixelbot.WorkItem{CellID: 10246, Color: pixelbot.MustParseHex("#E46E6E")}
	balance, err := client.Repaint(context.Background(), "cred", item)
	if err != nil {
		t.Fatalf("Repaint failed: %v", err)
	}
	if balance != 123.5 {
		t.Errorf("Expected balance 123.5, got %f", balance)
	}
	if got.PixelID != 10246 || got.NewColor != "#E46E6E" {
		t.Errorf("Unexpected body %+v", got)
	}
}

func TestUnauthorizedMapsToSentinel(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := client.Repaint(context.Background(), "bad", pixelbot.WorkItem{CellID: 1})
	if !errors.Is(err, pixelbot.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
	if _, err := client.Charges(context.Background(), "bad"); !errors.Is(err, pixelbot.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized from Charges, got %v", err)
	}
}

func TestStatusError(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"slow down"}`))
	})
	_, err := client.Repaint(context.Background(), "cred", pixelbot.WorkItem{CellID: 1})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusTooManyRequests || statusErr.Body != `{"error":"slow down"}` {
		t.Errorf("Unexpected status error %+v", statusErr)
	}
	if errors.Is(err, pixelbot.ErrUnauthorized) {
		t.Error("429 must not look like an auth failure")
	}
}

func TestMiningStatusAndCharges(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mining/status" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		writeJSON(w, map[string]any{
			"userBalance": 42.0,
			"charges":     7,
			"maxCharges":  10,
			"tasks":       map[string]bool{"x:notpixel": true},
		})
	})
	status, err := client.MiningStatus(context.Background(), "cred")
	if err != nil {
		t.Fatalf("MiningStatus failed: %v", err)
	}
	if status.UserBalance != 42 || status.Charges != 7 || status.MaxCharges != 10 || !status.Tasks["x:notpixel"] {
		t.Errorf("Unexpected status %+v", status)
	}
	charges, err := client.Charges(context.Background(), "cred")
	if err != nil || charges != 7 {
		t.Errorf("Expected 7 charges, got %d (%v)", charges, err)
	}
}

func TestClaimAndCheckTask(t *testing.T) {
	var paths []string
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/mining/claim":
			writeJSON(w, map[string]any{"claimed": 1.25})
		default:
			writeJSON(w, map[string]any{"ok": true})
		}
	})
	claimed, err := client.Claim(context.Background(), "cred")
	if err != nil || claimed != 1.25 {
		t.Errorf("Expected claimed 1.25, got %f (%v)", claimed, err)
	}
	if err := client.CheckTask(context.Background(), "cred", "paint20pixels"); err != nil {
		t.Errorf("CheckTask failed: %v", err)
	}
	if len(paths) != 2 || paths[1] != "/mining/task/check/paint20pixels" {
		t.Errorf("Unexpected paths %v", paths)
	}
}

func TestTemplateAndDownload(t *testing.T) {
	var srv *httptest.Server
	srv, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tournament/template/subscribe/my":
			writeJSON(w, map[string]any{"id": 7, "x": 5, "y": 10, "size": 3, "url": srv.URL + "/img.png"})
		case "/img.png":
			if r.Header.Get("Authorization") != "" {
				t.Error("Credential leaked to image host")
			}
			_, _ = w.Write([]byte("PNGDATA"))
		default:
			http.NotFound(w, r)
		}
	})

	tmpl, err := client.Template(context.Background(), "cred")
	if err != nil {
		t.Fatalf("Template failed: %v", err)
	}
	if tmpl.ID != "7" || tmpl.X != 5 || tmpl.Y != 10 || tmpl.Size != 3 {
		t.Errorf("Unexpected template %+v", tmpl)
	}

	path := filepath.Join(t.TempDir(), "images", "image_alice.png")
	data, err := client.DownloadTemplate(context.Background(), tmpl.URL, path)
	if err != nil {
		t.Fatalf("DownloadTemplate failed: %v", err)
	}
	saved, err := os.ReadFile(path)
	if err != nil || string(saved) != "PNGDATA" || string(data) != "PNGDATA" {
		t.Errorf("Image not saved: %q (%v)", saved, err)
	}
}

func TestTemplateWithoutURL(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"id": "a", "x": 0, "y": 0, "size": 2})
	})
	if _, err := client.Template(context.Background(), "cred"); !errors.Is(err, pixelbot.ErrInvalidTemplate) {
		t.Errorf("Expected ErrInvalidTemplate, got %v", err)
	}
}

func TestDownloadEmptyImage(t *testing.T) {
	srv, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	if _, err := client.DownloadTemplate(context.Background(), srv.URL+"/img.png", filepath.Join(t.TempDir(), "x.png")); err == nil {
		t.Error("Expected error for empty image")
	}
}

func TestCanceledContext(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{})
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Me(ctx, "cred"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
