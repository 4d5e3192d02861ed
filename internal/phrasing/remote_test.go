package phrasing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trip-guardian/internal/journey"
)

func testSummary() Summary {
	return Summary{
		SpeedKmh:         22,
		DistanceKm:       6.4,
		MinutesRemaining: 18,
		MissChancePct:    72,
		Destination:      "Central Station",
		Provider:         "Metro Rail",
		Mode:             journey.ModeTrain,
		Deadline:         "18:45",
		PickupLabel:      "next signal junction",
		RescueMode:       journey.RescueAuto,
		SavingMin:        9,
	}
}

func TestRemotePhraseSuccess(t *testing.T) {
	var gotPath string
	var gotSummary Summary
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotSummary); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "You are cutting it close."})
	}))
	defer srv.Close()

	remote := NewRemote(RemoteOptions{BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	text, err := remote.PhraseAlert(context.Background(), testSummary())
	if err != nil {
		t.Fatalf("phrase alert should succeed: %v", err)
	}
	if text != "You are cutting it close." {
		t.Fatalf("unexpected text %q", text)
	}
	if !strings.HasSuffix(gotPath, "/v1/alert-message") {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotSummary.MissChancePct != 72 || gotSummary.Destination != "Central Station" {
		t.Fatalf("summary not forwarded: %+v", gotSummary)
	}
}

func TestRemotePhraseHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	remote := NewRemote(RemoteOptions{BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	if _, err := remote.PhraseNotification(context.Background(), testSummary()); err == nil {
		t.Fatal("HTTP 500 should surface an error")
	}
}

func TestRemotePhraseEmptyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "   "})
	}))
	defer srv.Close()

	remote := NewRemote(RemoteOptions{BaseURL: srv.URL, Timeout: time.Second}, zerolog.Nop())
	if _, err := remote.PhraseAlert(context.Background(), testSummary()); err == nil {
		t.Fatal("空响应应报错")
	}
}

func TestRemotePhraseUnconfigured(t *testing.T) {
	remote := NewRemote(RemoteOptions{}, zerolog.Nop())
	if _, err := remote.PhraseAlert(context.Background(), testSummary()); err == nil {
		t.Fatal("missing base url should error")
	}
}
