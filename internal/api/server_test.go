package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/adaptbtc/adaptbtc-server/config"
	"github.com/adaptbtc/adaptbtc-server/internal/coingecko"
	"github.com/adaptbtc/adaptbtc-server/internal/consulting"
	"github.com/adaptbtc/adaptbtc-server/internal/exchange"
	"github.com/adaptbtc/adaptbtc-server/internal/models"
	"github.com/adaptbtc/adaptbtc-server/internal/portal"
	"github.com/adaptbtc/adaptbtc-server/internal/upstream"
)

type fakePrices struct {
	history    []coingecko.PricePoint
	historyErr error
	gotRange   string
	snapshot   json.RawMessage
	quote      *exchange.AggregatedQuote
	quoteErr   error
}

func (f *fakePrices) History(_ context.Context, rangeID string) ([]coingecko.PricePoint, error) {
	f.gotRange = rangeID
	return f.history, f.historyErr
}

func (f *fakePrices) Snapshot(context.Context) (json.RawMessage, error) {
	if f.snapshot == nil {
		return nil, upstream.NetworkError(coingecko.SourceName, errors.New("dial tcp: i/o timeout"))
	}
	return f.snapshot, nil
}

func (f *fakePrices) ExchangePrices(context.Context) (*exchange.AggregatedQuote, error) {
	return f.quote, f.quoteErr
}

type fakeConsulting struct {
	err error
	got consulting.Request
}

func (f *fakeConsulting) Submit(_ context.Context, req consulting.Request) (*models.ConsultingRequest, error) {
	f.got = req
	return &models.ConsultingRequest{ID: 1}, f.err
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.RateLimit.Enabled = false
	cfg.Exchange.StreamInterval = time.Minute
	return cfg
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestBTCHistory(t *testing.T) {
	prices := &fakePrices{history: []coingecko.PricePoint{{1700000000000, 37000.5}, {1700086400000, 37500}}}
	h := NewServer(testConfig(), Deps{Prices: prices}).Handler()

	w := do(t, h, http.MethodGet, "/api/btc/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "max", prices.gotRange)
	assert.JSONEq(t, `{"prices":[[1700000000000,37000.5],[1700086400000,37500]]}`, w.Body.String())

	w = do(t, h, http.MethodGet, "/api/btc/history?days=30", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "30", prices.gotRange)
}

func TestBTCHistory_UpstreamError(t *testing.T) {
	prices := &fakePrices{historyErr: upstream.StatusError(coingecko.SourceName, 429, "")}
	h := NewServer(testConfig(), Deps{Prices: prices}).Handler()

	w := do(t, h, http.MethodGet, "/api/btc/history", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "Unable to load BTC history: CoinGecko: unexpected status 429", gjson.Get(w.Body.String(), "error").String())
}

func TestBTCHistory_UnexpectedError(t *testing.T) {
	prices := &fakePrices{historyErr: errors.New("boom")}
	h := NewServer(testConfig(), Deps{Prices: prices}).Handler()

	w := do(t, h, http.MethodGet, "/api/btc/history", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestBTCSnapshot(t *testing.T) {
	prices := &fakePrices{snapshot: json.RawMessage(`{"id":"bitcoin","market_data":{"current_price":{"usd":64000}}}`)}
	h := NewServer(testConfig(), Deps{Prices: prices}).Handler()

	w := do(t, h, http.MethodGet, "/api/btc/snapshot", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 64000.0, gjson.Get(w.Body.String(), "market_data.current_price.usd").Float())

	prices.snapshot = nil
	w = do(t, h, http.MethodGet, "/api/btc/snapshot", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.True(t, strings.HasPrefix(gjson.Get(w.Body.String(), "error").String(), "Unable to load BTC snapshot: CoinGecko: "))
}

func TestExchangePrices(t *testing.T) {
	prices := &fakePrices{quote: &exchange.AggregatedQuote{
		Exchanges: []exchange.Quote{
			{Exchange: "Coinbase", Price: 100, Source: "Coinbase spot price"},
			{Exchange: "Binance", Price: 110, Source: "Binance BTC/USDT ticker"},
		},
		Errors:    []string{"Kraken: unexpected status 503"},
		Spread:    exchange.Spread{Low: 100, High: 110, BasisPoints: 952.38, Percent: 10},
		Timestamp: 1700000000.5,
	}}
	h := NewServer(testConfig(), Deps{Prices: prices}).Handler()

	w := do(t, h, http.MethodGet, "/api/exchange-prices", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(t, int64(2), gjson.Get(body, "exchanges.#").Int())
	assert.Equal(t, "Kraken: unexpected status 503", gjson.Get(body, "errors.0").String())
	assert.Equal(t, 952.38, gjson.Get(body, "spread.basis_points").Float())
	assert.Equal(t, 1700000000.5, gjson.Get(body, "timestamp").Float())

	prices.quote, prices.quoteErr = nil, &exchange.AggregationError{Errors: []string{"Coinbase: x"}}
	w = do(t, h, http.MethodGet, "/api/exchange-prices", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"error":"Unable to load exchange prices: No exchange prices available"}`, w.Body.String())
}

func TestConsultingRequest(t *testing.T) {
	svc := &fakeConsulting{}
	h := NewServer(testConfig(), Deps{Consulting: svc}).Handler()

	w := do(t, h, http.MethodPost, "/api/consulting/request", `{"name":"Ada","email":"ada@example.com","engagement":"x","team_size":"1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
	assert.Equal(t, "Ada", svc.got.Name)

	svc.err = consulting.ErrMissingFields
	w = do(t, h, http.MethodPost, "/api/consulting/request", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Please complete all required fields."}`, w.Body.String())

	svc.err = &consulting.DeliveryError{Err: errors.New("failed to send email: 401")}
	w = do(t, h, http.MethodPost, "/api/consulting/request", `{}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Unable to send request: failed to send email: 401"}`, w.Body.String())
}

func TestRoutesNotRegisteredWithoutDeps(t *testing.T) {
	h := NewServer(testConfig(), Deps{}).Handler()

	w := do(t, h, http.MethodGet, "/api/exchange-prices", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimit{Enabled: true, RequestsPerSec: 0.001, Burst: 2}
	h := NewServer(cfg, Deps{Prices: &fakePrices{}}).Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/btc/history", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/btc/history", "").Code)
	w := do(t, h, http.MethodGet, "/api/btc/history", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(config.RateLimit{RequestsPerSec: 1, Burst: 1, IdleTimeout: time.Minute}, zerolog.Nop())
	now := time.Now()
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"))

	now = now.Add(2 * time.Minute)
	rl.get("2.2.2.2")
	assert.Equal(t, 1, rl.cleanup())
	assert.EqualValues(t, 1, rl.limiters.Len())
}

func setupPortal(t *testing.T) *portal.Portal {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "api.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Course{}, &models.Lesson{}, &models.CourseProgress{},
		&models.QuizAttempt{}, &models.Certificate{},
	))

	lib, err := portal.LoadLibrary()
	require.NoError(t, err)
	p := portal.New(db, lib, portal.WithVerificationURL("https://adaptbtc.com/portal/certificates"))
	require.NoError(t, p.Seed())
	return p
}

func correctAnswers(t *testing.T, p *portal.Portal, courseID string) string {
	t.Helper()
	c, ok := p.Library().Course(courseID)
	require.True(t, ok)
	answers := make([]int, len(c.Quiz))
	for i, q := range c.Quiz {
		answers[i] = q.Answer
	}
	data, err := json.Marshal(map[string][]int{"answers": answers})
	require.NoError(t, err)
	return string(data)
}

func TestPortal_LearnerIdentity(t *testing.T) {
	h := NewServer(testConfig(), Deps{Portal: setupPortal(t)}).Handler()

	w := do(t, h, http.MethodGet, "/portal/courses", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("X-Learner-ID"), "Open Learner "))
	assert.Equal(t, int64(3), gjson.Get(w.Body.String(), "courses.#").Int())

	w = do(t, h, http.MethodGet, "/portal/dashboard?learner=ada", "")
	assert.Equal(t, "ada", w.Header().Get("X-Learner-ID"))
	assert.Equal(t, int64(18), gjson.Get(w.Body.String(), "lesson_totals.bitcoin-101").Int())
}

func TestPortal_LessonFlow(t *testing.T) {
	h := NewServer(testConfig(), Deps{Portal: setupPortal(t)}).Handler()
	who := []string{"X-Learner-ID", "ada"}

	w := do(t, h, http.MethodGet, "/portal/courses/operations-lab", "", who...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), gjson.Get(w.Body.String(), "current_lesson.lesson_order").Int())
	assert.Equal(t, int64(2), gjson.Get(w.Body.String(), "prev_next.next").Int())

	w = do(t, h, http.MethodGet, "/portal/courses/operations-lab/lessons/3", "", who...)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodPost, "/portal/courses/operations-lab/lessons/2/complete", "", who...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[2]`, gjson.Get(w.Body.String(), "completed_lessons").Raw)

	w = do(t, h, http.MethodGet, "/portal/courses/operations-lab/lessons/99", "", who...)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Lesson not available."}`, w.Body.String())

	w = do(t, h, http.MethodPost, "/portal/courses/operations-lab/lessons/x/complete", "", who...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/portal/courses/nope", "", who...)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodGet, "/portal/progress", "", who...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), gjson.Get(w.Body.String(), "course_data.operations-lab.lessons_completed").Int())
	assert.Equal(t, int64(2), gjson.Get(w.Body.String(), "course_data.operations-lab.last_lesson").Int())
}

func TestPortal_QuizAndCertificate(t *testing.T) {
	p := setupPortal(t)
	h := NewServer(testConfig(), Deps{Portal: p}).Handler()
	who := []string{"X-Learner-ID", "ada"}

	w := do(t, h, http.MethodGet, "/portal/courses/operations-lab/quiz", "", who...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(8), gjson.Get(w.Body.String(), "questions.#").Int())
	assert.False(t, gjson.Get(w.Body.String(), "questions.0.answer").Exists())

	w = do(t, h, http.MethodPost, "/portal/courses/operations-lab/certificate", "", who...)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, h, http.MethodPost, "/portal/courses/operations-lab/quiz", `{"answers":"nope"}`, who...)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/portal/courses/operations-lab/quiz", correctAnswers(t, p, "operations-lab"), who...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, gjson.Get(w.Body.String(), "result.passed").Bool())
	assert.Equal(t, 1.0, gjson.Get(w.Body.String(), "result.score").Float())

	w = do(t, h, http.MethodPost, "/portal/courses/operations-lab/certificate", "", who...)
	require.Equal(t, http.StatusOK, w.Code)
	id := gjson.Get(w.Body.String(), "id").String()
	require.NotEmpty(t, id)
	assert.Equal(t, "ada", gjson.Get(w.Body.String(), "learner").String())
	assert.Equal(t, "https://adaptbtc.com/portal/certificates/"+id, gjson.Get(w.Body.String(), "verification_url").String())

	w = do(t, h, http.MethodGet, "/portal/certificates/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, gjson.Get(w.Body.String(), "valid").Bool())

	w = do(t, h, http.MethodGet, "/portal/certificates/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
