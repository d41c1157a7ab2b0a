package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ledger/internal/alerts"
	"ledger/internal/budget"
	"ledger/internal/core"
	"ledger/internal/ledger"
	"ledger/internal/log"
	"ledger/internal/store/memory"
)

var fixedNow = func() time.Time { return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC) }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st := memory.New()
	logger := log.New(log.Config{Level: slog.LevelError, Output: io.Discard})
	manager := budget.NewManager(st, st, budget.WithClock(fixedNow), budget.WithLogger(logger.Slog()))
	incomes := ledger.NewService(st.Incomes(), ledger.WithKind(core.KindIncome),
		ledger.WithClock(fixedNow), ledger.WithLogger(logger.Slog()))
	return NewServer(":0", Services{
		Ledger:  ledger.NewService(st, ledger.WithClock(fixedNow), ledger.WithLogger(logger.Slog())),
		Incomes: incomes,
		Budget:  manager,
		Alerts:  alerts.NewService(st, manager, fixedNow, logger.Slog()),
	}, logger)
}

func do(t *testing.T, srv *Server, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

type recordJSON struct {
	Position    int    `json:"position"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}

func TestRecordLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/expenses", `{"description":"Lunch","category":"Food","amount":"12,50","date":"2024-03-14"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[recordJSON](t, rr)
	assert.Equal(t, 0, created.Position)
	assert.Equal(t, "12.5", created.Amount)

	rr = do(t, srv, http.MethodPost, "/api/expenses", `{"description":"Bus","category":"Transport","amount":2}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	bus := decode[recordJSON](t, rr)
	assert.Equal(t, 1, bus.Position)
	assert.Equal(t, "2024-03-15", bus.Date)

	rr = do(t, srv, http.MethodPut, "/api/expenses/0", `{"amount":"15"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	edited := decode[recordJSON](t, rr)
	assert.Equal(t, "Lunch", edited.Description)
	assert.Equal(t, "15", edited.Amount)

	rr = do(t, srv, http.MethodDelete, "/api/expenses/0", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/expenses", "")
	list := decode[[]recordJSON](t, rr)
	require.Len(t, list, 1)
	assert.Equal(t, "Bus", list[0].Description)
	assert.Equal(t, 0, list[0].Position)

	rr = do(t, srv, http.MethodGet, "/api/expenses/1", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateRecordValidation(t *testing.T) {
	srv := newTestServer(t)
	cases := []struct {
		name string
		body string
	}{
		{"negative amount", `{"description":"x","category":"y","amount":-1}`},
		{"malformed amount", `{"description":"x","category":"y","amount":"abc"}`},
		{"missing amount", `{"description":"x","category":"y"}`},
		{"bad date", `{"description":"x","category":"y","amount":1,"date":"2023-02-29"}`},
		{"empty description", `{"description":" ","category":"y","amount":1}`},
		{"unknown field", `{"description":"x","category":"y","amount":1,"note":"z"}`},
		{"not json", `description=x`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/expenses", tc.body)
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			body := decode[ErrorBody](t, rr)
			assert.Equal(t, "validation", body.Error)
		})
	}

	rr := do(t, srv, http.MethodGet, "/api/expenses", "")
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestPositionErrors(t *testing.T) {
	srv := newTestServer(t)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodDelete, "/api/expenses/0", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodPut, "/api/expenses/-1", `{"category":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/expenses/abc", "").Code)
}

func TestFilters(t *testing.T) {
	srv := newTestServer(t)
	for _, body := range []string{
		`{"description":"a","category":"c","amount":1,"date":"2024-01-31"}`,
		`{"description":"b","category":"c","amount":1,"date":"2024-02-01"}`,
		`{"description":"c","category":"c","amount":1,"date":"2024-02-10"}`,
	} {
		require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/expenses", body).Code)
	}

	month := decode[[]recordJSON](t, do(t, srv, http.MethodGet, "/api/expenses?month=2024-02", ""))
	require.Len(t, month, 2)
	assert.Equal(t, "b", month[0].Description)
	assert.Equal(t, "c", month[1].Description)

	day := decode[[]recordJSON](t, do(t, srv, http.MethodGet, "/api/expenses?date=2024-01-31", ""))
	require.Len(t, day, 1)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/expenses?date=2024-01-31&month=2024-01", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/expenses?date=2024-01-31&category=c", "").Code)
}

func TestCategoryFilter(t *testing.T) {
	srv := newTestServer(t)
	for _, body := range []string{
		`{"description":"a","category":"Food","amount":1,"date":"2024-01-31"}`,
		`{"description":"b","category":"Trip","amount":1,"date":"2024-02-01"}`,
		`{"description":"c","category":"food","amount":1,"date":"2024-02-10"}`,
	} {
		require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/expenses", body).Code)
	}

	food := decode[[]recordJSON](t, do(t, srv, http.MethodGet, "/api/expenses?category=FOOD", ""))
	require.Len(t, food, 2)
	assert.Equal(t, "a", food[0].Description)
	assert.Equal(t, "c", food[1].Description)

	febFood := decode[[]recordJSON](t, do(t, srv, http.MethodGet, "/api/expenses?category=food&month=2024-02", ""))
	require.Len(t, febFood, 1)
	assert.Equal(t, "c", febFood[0].Description)
}

func TestCreateReturnsStoredPosition(t *testing.T) {
	srv := newTestServer(t)
	for i := 0; i < 3; i++ {
		rr := do(t, srv, http.MethodPost, "/api/expenses", `{"description":"a","category":"c","amount":1}`)
		require.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, i, decode[recordJSON](t, rr).Position)
	}
}

func TestIncomeLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/incomes", `{"description":"Salary","category":"Work","amount":3000,"date":"2024-03-01"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, 0, decode[recordJSON](t, rr).Position)

	rr = do(t, srv, http.MethodPost, "/api/incomes", `{"description":"Gift","category":"Other","amount":"50"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	gift := decode[recordJSON](t, rr)
	assert.Equal(t, 1, gift.Position)
	assert.Equal(t, "2024-03-15", gift.Date)

	rr = do(t, srv, http.MethodPut, "/api/incomes/0", `{"amount":"3100"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "3100", decode[recordJSON](t, rr).Amount)

	rr = do(t, srv, http.MethodGet, "/api/incomes?category=work", "")
	require.Len(t, decode[[]recordJSON](t, rr), 1)

	// Incomes never show up as expenses or in expense statistics.
	assert.JSONEq(t, `[]`, do(t, srv, http.MethodGet, "/api/expenses", "").Body.String())
	stats := do(t, srv, http.MethodGet, "/api/stats", "")
	assert.Contains(t, stats.Body.String(), `"count":0`)

	rr = do(t, srv, http.MethodGet, "/api/incomes/export", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "incomes.csv")
	assert.Contains(t, rr.Body.String(), "Salary,Work,3100.00,2024-03-01")

	rr = do(t, srv, http.MethodDelete, "/api/incomes/0", "")
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]recordJSON](t, do(t, srv, http.MethodGet, "/api/incomes", ""))
	require.Len(t, list, 1)
	assert.Equal(t, "Gift", list[0].Description)
	assert.Equal(t, 0, list[0].Position)

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/api/incomes/1", "").Code)
}

func TestTenantsAreIsolated(t *testing.T) {
	srv := newTestServer(t)
	rr := do(t, srv, http.MethodPost, "/api/expenses", `{"description":"a","category":"c","amount":1}`, TenantHeader, "alice")
	require.Equal(t, http.StatusCreated, rr.Code)

	assert.JSONEq(t, `[]`, do(t, srv, http.MethodGet, "/api/expenses", "").Body.String())
	assert.JSONEq(t, `[]`, do(t, srv, http.MethodGet, "/api/expenses", "", TenantHeader, "bob").Body.String())
	assert.Len(t, decode[[]recordJSON](t, do(t, srv, http.MethodGet, "/api/expenses", "", TenantHeader, "alice")), 1)

	rr = do(t, srv, http.MethodGet, "/api/expenses", "", TenantHeader, "../etc")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_tenant", decode[ErrorBody](t, rr).Error)
}

func TestStats(t *testing.T) {
	srv := newTestServer(t)
	for _, body := range []string{
		`{"description":"a","category":"Food","amount":10,"date":"2024-01-01"}`,
		`{"description":"b","category":"Food","amount":20,"date":"2024-01-02"}`,
		`{"description":"c","category":"Transport","amount":5,"date":"2024-02-01"}`,
	} {
		require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/expenses", body).Code)
	}

	rr := do(t, srv, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rr.Code)
	stats := decode[struct {
		Count          int    `json:"count"`
		DailyAverage   string `json:"daily_average"`
		MonthlyAverage string `json:"monthly_average"`
		GapDays        int    `json:"gap_days"`
		TopCategory    struct {
			Name   string `json:"name"`
			Amount string `json:"amount"`
		} `json:"top_category"`
	}](t, rr)
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, "11.67", stats.DailyAverage)
	assert.Equal(t, "17.5", stats.MonthlyAverage)
	assert.Equal(t, 29, stats.GapDays)
	assert.Equal(t, "Food", stats.TopCategory.Name)
	assert.Equal(t, "30", stats.TopCategory.Amount)

	empty := do(t, srv, http.MethodGet, "/api/stats", "", TenantHeader, "nobody")
	require.Equal(t, http.StatusOK, empty.Code)
	assert.Contains(t, empty.Body.String(), `"top_category":null`)
}

func TestBudgetAndAlerts(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/budget", "")
	assert.JSONEq(t, `{"monthly_limit":null,"updated_at":null}`, rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/api/budget/status", "")
	assert.Contains(t, rr.Body.String(), `"kind":"unset"`)

	rr = do(t, srv, http.MethodPut, "/api/budget", `{"monthly_limit":-5}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_amount", decode[ErrorBody](t, rr).Error)

	rr = do(t, srv, http.MethodPut, "/api/budget", `{"monthly_limit":"100"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/expenses",
		`{"description":"TV","category":"Home","amount":150,"date":"2024-03-10"}`).Code)

	rr = do(t, srv, http.MethodGet, "/api/budget/status", "")
	status := decode[struct {
		Kind      string `json:"kind"`
		Overspend string `json:"overspend"`
	}](t, rr)
	assert.Equal(t, "exceeded", status.Kind)
	assert.Equal(t, "50", status.Overspend)

	rr = do(t, srv, http.MethodGet, "/api/alerts", "")
	got := decode[[]struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	}](t, rr)
	require.Len(t, got, 2)
	assert.Equal(t, "budget_exceeded", got[0].Kind)
	assert.Equal(t, "inactivity", got[1].Kind)
	assert.Contains(t, got[1].Message, "5 days")
}

func TestConvert(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/convert?amount=1000&code=usd", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"converted":"0.25"`)

	rr = do(t, srv, http.MethodGet, "/api/convert?amount=10&code=zzz", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "unsupported_currency", decode[ErrorBody](t, rr).Error)

	rr = do(t, srv, http.MethodGet, "/api/convert?amount=ten&code=usd", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExport(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/export", "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "empty_ledger", decode[ErrorBody](t, rr).Error)

	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/expenses",
		`{"description":"Rent","category":"Home","amount":"500","date":"2024-03-01"}`).Code)

	rr = do(t, srv, http.MethodGet, "/api/export?format=csv", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "description,category,amount,date\nRent,Home,500.00,2024-03-01\n", rr.Body.String())
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "ledger.csv")

	rr = do(t, srv, http.MethodGet, "/api/export?format=xlsx", "")
	require.Equal(t, http.StatusOK, rr.Code)
	f, err := excelize.OpenReader(rr.Body)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("Ledger", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Rent", v)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/export?format=pdf", "").Code)
}

func TestShutdownIsIdempotent(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, srv.Shutdown(ctx))
	require.NoError(t, srv.Shutdown(ctx))
}
