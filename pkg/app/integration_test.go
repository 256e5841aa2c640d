package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/datapeak/curator/pkg/config"
	"github.com/datapeak/curator/pkg/domain"

	_ "github.com/datapeak/curator/pkg/auth/static"
)

const (
	submitterToken = "submit-tok"
	reviewerToken  = "review-tok"
)

func newLedgerServer(t *testing.T, txPrefix string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Curator-Signature") == "" {
			http.Error(w, `{"error":"missing signature"}`, http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"txRef": txPrefix + strings.ReplaceAll(r.URL.Path, "/", "-"),
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestApplication(t *testing.T) (*Application, *httptest.Server) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	t.Cleanup(mr.Close)

	primarySrv := newLedgerServer(t, "0xp")
	secondarySrv := newLedgerServer(t, "0xs")

	cfg := &config.Config{
		RedisAddr:                 mr.Addr(),
		Timezone:                  "UTC",
		LogLevel:                  "error",
		LogFormat:                 "json",
		Env:                       "test",
		PrimaryLedgerURL:          primarySrv.URL,
		SecondaryLedgerURL:        secondarySrv.URL,
		LedgerHmacSecret:          "test-secret",
		LedgerTimeoutSeconds:      5,
		RewardPolicy:              "fixed",
		RewardBaseAmount:          "10",
		ReputationDelta:           10,
		AutoApproveThreshold:      85,
		RelaySweepIntervalSeconds: 1,
		RelaySweepBatchLimit:      50,
		RelayWorkers:              2,
		RelayMaxAttempts:          3,
		BackoffPolicy:             "fixed",
		BackoffBaseSeconds:        1,
		BackoffMaxSeconds:         2,
		SubmitterAuthProvider:     "static",
		SubmitterAuthConfig:       `{"token":"` + submitterToken + `","subject":"user-1"}`,
		ReviewerAuthProvider:      "static",
		ReviewerAuthConfig:        `{"token":"` + reviewerToken + `","subject":"reviewer-1","scopes":["curator:review","curator:admin"]}`,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config validate: %v", err)
	}

	application, err := NewApplication(cfg)
	if err != nil {
		t.Fatalf("init application: %v", err)
	}
	SetupMappings(application)
	server := httptest.NewServer(application.Engine)
	t.Cleanup(server.Close)
	t.Cleanup(func() { _ = application.Redis.Close() })
	return application, server
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func richSubmissionBody() map[string]any {
	return map[string]any{
		"metadata": map[string]any{
			"title":       "City noise level dataset",
			"description": strings.Repeat("Calibrated decibel readings collected from street-level sensors across the city core. ", 3) + "The dataset includes research notes and analysis-ready aggregates for each survey window.",
			"dataType":    "tabular",
			"tags":        []string{"noise", "sensors", "urban"},
			"license":     "CC-BY",
		},
	}
}

func TestHTTPIntegrationFlow(t *testing.T) {
	application, server := newTestApplication(t)
	base := server.URL + "/v1/curator"

	// Contributor registers ledger addresses.
	resp, body := doJSON(t, http.MethodPut, base+"/users/user-1", submitterToken, map[string]any{
		"primaryAddress":   "0xprimary",
		"secondaryAddress": "0xsecondary",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upsert user: %d %s", resp.StatusCode, body)
	}

	// Intake.
	resp, body = doJSON(t, http.MethodPost, base+"/submissions", submitterToken, richSubmissionBody())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create submission: %d %s", resp.StatusCode, body)
	}
	var sub domain.Submission
	if err := json.Unmarshal(body, &sub); err != nil {
		t.Fatalf("decode submission: %v", err)
	}
	if sub.Status != domain.StatusPending || sub.QualityScore == nil {
		t.Fatalf("unexpected submission: %+v", sub)
	}

	// Review.
	resp, body = doJSON(t, http.MethodPost, base+"/submissions/"+sub.ID+"/approve", reviewerToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve: %d %s", resp.StatusCode, body)
	}
	var approved domain.Submission
	if err := json.Unmarshal(body, &approved); err != nil {
		t.Fatalf("decode approved: %v", err)
	}
	if approved.Status != domain.StatusApproved || approved.ApprovalTxRef == "" {
		t.Fatalf("approve result: %+v", approved)
	}
	if approved.RewardTxRef == "" || approved.RewardError != "" {
		t.Fatalf("reward not minted: %+v", approved)
	}

	// Double approve conflicts.
	resp, _ = doJSON(t, http.MethodPost, base+"/submissions/"+sub.ID+"/approve", reviewerToken, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("double approve: %d, want 409", resp.StatusCode)
	}

	// Relay pipeline delivers in the background.
	application.Relay.Start(context.Background())
	defer application.Relay.Stop()

	deadline := time.Now().Add(5 * time.Second)
	var relayed domain.Submission
	for {
		resp, body = doJSON(t, http.MethodGet, base+"/submissions/"+sub.ID, submitterToken, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("get submission: %d %s", resp.StatusCode, body)
		}
		if err := json.Unmarshal(body, &relayed); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if relayed.RelayTxRef != "" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("relay did not deliver: %+v", relayed)
		}
		time.Sleep(50 * time.Millisecond)
	}
	if !strings.HasPrefix(relayed.RelayTxRef, "0xs") {
		t.Errorf("relayTxRef = %q, want secondary-ledger ref", relayed.RelayTxRef)
	}

	// Admin surfaces.
	resp, body = doJSON(t, http.MethodGet, base+"/admin/relay/stats", reviewerToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("relay stats: %d %s", resp.StatusCode, body)
	}
	var stats domain.RelayStats
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Backlog != 0 {
		t.Errorf("backlog = %d after delivery, want 0", stats.Backlog)
	}

	resp, body = doJSON(t, http.MethodGet, base+"/stats", reviewerToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("curation stats: %d %s", resp.StatusCode, body)
	}
	var cs domain.CurationStats
	if err := json.Unmarshal(body, &cs); err != nil {
		t.Fatalf("decode curation stats: %v", err)
	}
	if cs.Count != 1 {
		t.Errorf("stats count = %d, want 1", cs.Count)
	}
}

func TestHTTPAuthBoundaries(t *testing.T) {
	_, server := newTestApplication(t)
	base := server.URL + "/v1/curator"

	resp, _ := doJSON(t, http.MethodPost, base+"/submissions", "", richSubmissionBody())
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated create: %d, want 401", resp.StatusCode)
	}

	// The reviewer surface runs its own validator, which does not know the
	// submitter token at all: rejected as unauthenticated, not unauthorized.
	resp, _ = doJSON(t, http.MethodPost, base+"/submissions/sub-x/approve", submitterToken, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("submitter on review route: %d, want 401", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health: %d", resp.StatusCode)
	}
}

func TestHTTPRejectFlow(t *testing.T) {
	_, server := newTestApplication(t)
	base := server.URL + "/v1/curator"

	resp, body := doJSON(t, http.MethodPost, base+"/submissions", submitterToken, richSubmissionBody())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create submission: %d %s", resp.StatusCode, body)
	}
	var sub domain.Submission
	if err := json.Unmarshal(body, &sub); err != nil {
		t.Fatalf("decode: %v", err)
	}

	resp, body = doJSON(t, http.MethodPost, base+"/submissions/"+sub.ID+"/reject", reviewerToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reject: %d %s", resp.StatusCode, body)
	}
	var rejected domain.Submission
	if err := json.Unmarshal(body, &rejected); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rejected.Status != domain.StatusRejected {
		t.Fatalf("status = %s, want REJECTED", rejected.Status)
	}
	if rejected.ApprovalTxRef != "" || rejected.RewardTxRef != "" {
		t.Errorf("rejection touched reward fields: %+v", rejected)
	}

	resp, _ = doJSON(t, http.MethodGet, base+"/submissions/missing", submitterToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing submission: %d, want 404", resp.StatusCode)
	}
}
