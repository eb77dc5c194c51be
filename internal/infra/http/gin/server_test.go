package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
	_ "time/tzdata"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app"
	"staybook/internal/app/dto"
	"staybook/internal/app/policies"
	authsvc "staybook/internal/app/services/auth"
	domainpricing "staybook/internal/domain/pricing"
	"staybook/internal/domain/shared/money"
	"staybook/internal/infra/obs"
	"staybook/internal/infra/security"
	"staybook/internal/infra/storage/memory"
	"staybook/internal/infra/validation"
)

type discardSubmitter struct{}

func (discardSubmitter) Submit([]policies.Notification) {}

type refContracts struct{}

func (refContracts) Generate(_ context.Context, in policies.ContractInput) (string, error) {
	return fmt.Sprintf("contracts/%s.pdf", in.Booking.ID), nil
}

func (refContracts) Discard(context.Context, string) error { return nil }

func (refContracts) Link(_ context.Context, ref string) (string, error) {
	return "https://files.example/" + ref, nil
}

type csvAccounting struct{}

func (csvAccounting) WriteAccounting(w io.Writer, report dto.AccountingReport) error {
	_, err := fmt.Fprintf(w, "rows=%d", len(report.Rows))
	return err
}

type testServer struct {
	router *gin.Engine
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	store := memory.NewStore()
	var seq atomic.Int32
	clock := func() time.Time { return time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC) }
	application := app.Build(app.Deps{
		UoW:           store,
		Outbox:        store.Outbox(),
		Idempotency:   memory.NewIdempotencyStore(time.Hour),
		Validator:     validation.New(),
		Notifications: discardSubmitter{},
		Contracts:     refContracts{},
		Linker:        refContracts{},
		Lease:         memory.NewLease(),
		Pricing:       domainpricing.Engine{DefaultParkingWeekly: money.Cents(8000)},
		Location:      paris,
		Currency:      "EUR",
		OwnerEmail:    "owner@example.com",
		Clock:         clock,
		NewID:         func() string { return fmt.Sprintf("bk-%02d", seq.Add(1)) },
	})
	auth := &authsvc.Service{
		Operators:  memory.NewOperatorRepository(),
		Sessions:   memory.NewSessionStore(),
		Passwords:  security.BcryptHasher{Cost: 4},
		Tokens:     security.SessionTokens{Bytes: 16},
		SessionTTL: time.Hour,
	}
	_, err = auth.EnsureOperator(context.Background(), "desk@example.com", "Desk", "correct horse")
	require.NoError(t, err)

	router := NewRouter(nil, obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Public:         PublicHandler{Commands: application.Commands, Queries: application.Queries},
		Admin:          AdminHandler{Commands: application.Commands, Queries: application.Queries, Accounting: csvAccounting{}, Clock: clock},
		Auth:           AuthHandler{Service: auth},
		AuthMiddleware: AuthMiddleware{Service: auth}.Handle,
	})
	s := &testServer{router: router}

	rec := s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "desk@example.com", "password": "correct horse"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	s.token = login.Token

	rec = s.admin(t, http.MethodPut, "/api/v1/admin/apartments/apt-sea", map[string]any{
		"slug": "sea-view", "name": "Sea View", "changeover_day": "saturday", "default_weekly_price": 100000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return s
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) admin(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return s.do(t, method, path, body, map[string]string{"Authorization": "Bearer " + s.token})
}

func (s *testServer) book(t *testing.T, email, start, end string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/bookings", map[string]any{
		"apartment_id": "apt-sea", "name": "Guest", "email": email, "start_date": start, "end_date": end,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res struct {
		Booking dto.BookingDTO `json:"booking"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res.Booking.ID
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "desk@example.com", "password": "nope-nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.admin(t, http.MethodGet, "/api/v1/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "desk@example.com")
}

func TestAdminRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/v1/admin/bookings", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/admin/bookings", nil, map[string]string{"Authorization": "Bearer forged"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.admin(t, http.MethodPost, "/api/v1/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.admin(t, http.MethodGet, "/api/v1/admin/bookings", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBookingFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	a := s.book(t, "a@example.com", "2026-01-03", "2026-01-17")
	b := s.book(t, "b@example.com", "2026-01-10", "2026-01-24")

	rec := s.admin(t, http.MethodPut, "/api/v1/admin/bookings/"+b+"/status", map[string]string{"status": "confirmed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), a)

	rec = s.admin(t, http.MethodPost, "/api/v1/admin/bookings/"+b+"/confirm", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/bookings", map[string]any{
		"apartment_id": "apt-sea", "name": "Late", "email": "late@example.com", "start_date": "2026-01-17", "end_date": "2026-01-31",
	}, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	var conflict errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conflict))
	assert.Equal(t, []string{b}, conflict.Conflicts)

	rec = s.do(t, http.MethodGet, "/api/v1/apartments/apt-sea/availability?start=2026-01-24&end=2026-01-31", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available":true`)

	rec = s.do(t, http.MethodGet, "/api/v1/apartments/apt-sea/booked-dates", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "2026-01-10")
}

func TestBookingRejectsNonChangeoverDates(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/bookings", map[string]any{
		"apartment_id": "apt-sea", "name": "Guest", "email": "g@example.com", "start_date": "2026-01-05", "end_date": "2026-01-12",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/bookings", map[string]any{"apartment_id": "missing"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIdempotencyKeyReplaysCreate(t *testing.T) {
	s := newTestServer(t)
	body := map[string]any{
		"apartment_id": "apt-sea", "name": "Guest", "email": "g@example.com", "start_date": "2026-02-07", "end_date": "2026-02-14",
	}
	first := s.do(t, http.MethodPost, "/api/v1/bookings", body, map[string]string{idempotencyHeader: "k-1"})
	second := s.do(t, http.MethodPost, "/api/v1/bookings", body, map[string]string{idempotencyHeader: "k-1"})
	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	rec := s.admin(t, http.MethodGet, "/api/v1/admin/bookings?status=pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list dto.BookingCollection
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)
}

func TestQuoteWithSeasonalRate(t *testing.T) {
	s := newTestServer(t)
	rec := s.admin(t, http.MethodPut, "/api/v1/admin/apartments/apt-sea/seasonal-rates/2026-12-19", map[string]any{"price": 150000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/v1/apartments/apt-sea/quote?start=2026-12-19&end=2027-01-02", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var quote dto.QuoteDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	assert.Equal(t, int64(250000), quote.Total.Amount)

	rec = s.do(t, http.MethodGet, "/api/v1/apartments/apt-sea/quote?start=2026-01-03&end=2026-01-24&parking=yes-please", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.admin(t, http.MethodDelete, "/api/v1/admin/apartments/apt-sea/seasonal-rates/2026-12-19", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPatchAndAccountingExport(t *testing.T) {
	s := newTestServer(t)
	id := s.book(t, "a@example.com", "2026-03-07", "2026-03-14")

	rec := s.admin(t, http.MethodPatch, "/api/v1/admin/bookings/"+id, map[string]any{"amount_paid": 100000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.admin(t, http.MethodPatch, "/api/v1/admin/bookings/"+id, map[string]any{"favourite_colour": "blue"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.admin(t, http.MethodGet, "/api/v1/admin/accounting/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "accounting-2025-12-01.xlsx")
	assert.Equal(t, "rows=1", rec.Body.String())
}

func TestStatusForMapsKinds(t *testing.T) {
	code, kind := statusFor(policies.ErrForbidden)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "forbidden", kind)

	code, _ = statusFor(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, code)
}
