package bench

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"

	"github.com/datapeak/curator/internal/services"
	"github.com/datapeak/curator/pkg/app"
	_ "github.com/datapeak/curator/pkg/auth/static" // Register static auth provider.
	"github.com/datapeak/curator/pkg/config"
	"github.com/datapeak/curator/pkg/domain"
)

const (
	benchSubmitToken = "bench-submit-token"
	benchReviewToken = "bench-review-token"
	benchSubmitter   = "bench-user"
	benchReviewer    = "bench-reviewer"
)

func newBenchLedger(b *testing.B) *httptest.Server {
	b.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"txRef":"0xbench"}`))
	}))
	b.Cleanup(srv.Close)
	return srv
}

func newBenchApp(b *testing.B) *app.Application {
	b.Helper()
	gin.SetMode(gin.ReleaseMode)

	mr, err := miniredis.Run()
	if err != nil {
		b.Fatalf("miniredis start: %v", err)
	}
	b.Cleanup(mr.Close)

	ledger := newBenchLedger(b)

	cfg := &config.Config{
		Env:       "dev",
		Timezone:  "UTC",
		LogLevel:  "error",
		LogFormat: "json",
		RedisAddr: mr.Addr(),

		PrimaryLedgerURL:     ledger.URL,
		SecondaryLedgerURL:   ledger.URL,
		LedgerHmacSecret:     "bench-secret",
		LedgerTimeoutSeconds: 5,

		RewardPolicy:         "fixed",
		RewardBaseAmount:     "10",
		ReputationDelta:      10,
		AutoApproveThreshold: 85,

		RelaySweepIntervalSeconds: 60,
		RelaySweepBatchLimit:      50,
		RelayWorkers:              1,
		RelayMaxAttempts:          3,
		BackoffPolicy:             "fixed",
		BackoffBaseSeconds:        1,
		BackoffMaxSeconds:         3,

		SubmitterAuthProvider: "static",
		SubmitterAuthConfig:   `{"token":"` + benchSubmitToken + `","subject":"` + benchSubmitter + `"}`,
		ReviewerAuthProvider:  "static",
		ReviewerAuthConfig:    `{"token":"` + benchReviewToken + `","subject":"` + benchReviewer + `","scopes":["curator:review","curator:admin"]}`,

		// Benchmarks keep rate limiting disabled.
		RateLimit: config.RateLimits{},
	}

	a, err := app.NewApplication(cfg)
	if err != nil {
		b.Fatalf("app init: %v", err)
	}
	app.SetupMappings(a)
	return a
}

func doJSONRequest(b *testing.B, h http.Handler, method, path, bearerToken string, body []byte) (int, []byte) {
	b.Helper()

	var rbody *bytes.Reader
	if body == nil {
		rbody = bytes.NewReader([]byte{})
	} else {
		rbody = bytes.NewReader(body)
	}

	req := httptest.NewRequest(method, path, rbody)
	if bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+bearerToken)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Code, w.Body.Bytes()
}

func benchMetadata() domain.SubmissionMetadata {
	return domain.SubmissionMetadata{
		Title:       "Sensor calibration dataset",
		Description: strings.Repeat("Calibrated decibel readings collected from street-level sensors across the city core. ", 3) + "The dataset includes research notes and analysis-ready aggregates for each survey window.",
		DataType:    "tabular",
		Tags:        []string{"sensors", "calibration", "urban"},
		License:     "CC-BY",
	}
}

func BenchmarkHTTP_SubmitAndApprove(b *testing.B) {
	a := newBenchApp(b)

	createBody, _ := json.Marshal(map[string]any{"metadata": benchMetadata()})

	status, resp := doJSONRequest(b, a.Engine, http.MethodPut, "/v1/curator/users/"+benchSubmitter, benchSubmitToken,
		[]byte(`{"primaryAddress":"0xprimary","secondaryAddress":"0xsecondary"}`))
	if status != http.StatusOK {
		b.Fatalf("upsert user status %d body=%s", status, string(resp))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		status, resp := doJSONRequest(b, a.Engine, http.MethodPost, "/v1/curator/submissions", benchSubmitToken, createBody)
		if status != http.StatusCreated {
			b.Fatalf("create status %d body=%s", status, string(resp))
		}
		var sub struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(resp, &sub); err != nil || sub.ID == "" {
			b.Fatalf("create parse failed: err=%v body=%s", err, string(resp))
		}

		status, resp = doJSONRequest(b, a.Engine, http.MethodPost, "/v1/curator/submissions/"+sub.ID+"/approve", benchReviewToken, nil)
		if status != http.StatusOK {
			b.Fatalf("approve status %d body=%s", status, string(resp))
		}
	}
}

func BenchmarkHTTP_ScorePreview(b *testing.B) {
	a := newBenchApp(b)

	body, _ := json.Marshal(map[string]any{"metadata": benchMetadata()})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		status, resp := doJSONRequest(b, a.Engine, http.MethodPost, "/v1/curator/submissions/score", benchSubmitToken, body)
		if status != http.StatusOK {
			b.Fatalf("score status %d body=%s", status, string(resp))
		}
	}
}

func BenchmarkCuration_CreateSubmission(b *testing.B) {
	a := newBenchApp(b)
	ctx := context.Background()

	input := services.SubmissionInput{Metadata: benchMetadata()}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := a.Curation.CreateSubmission(ctx, benchSubmitter, input, ""); err != nil {
			b.Fatalf("CreateSubmission: %v", err)
		}
	}
}
