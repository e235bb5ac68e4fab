package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	bookingapp "staybook/internal/app/handlers/booking"
	listingapp "staybook/internal/app/handlers/listings"
	"staybook/internal/app/middleware"
	"staybook/internal/app/policies"
	"staybook/internal/app/queries"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	domainprofiles "staybook/internal/domain/profiles"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/infra/config"
	"staybook/internal/infra/obs"
	"staybook/internal/infra/security"
	"staybook/internal/infra/validation"
)

type harness struct {
	router   *gin.Engine
	verifier *security.JWTVerifier
	commands []commands.Command
	queries  []queries.Query
	cmdFn    func(commands.Command) (any, error)
	queryFn  func(queries.Query) (any, error)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	verifier, err := security.NewJWTVerifier("test-secret", "staybook")
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	h := &harness{verifier: verifier}
	cmdBus := commands.BusFunc(func(_ context.Context, cmd commands.Command) (any, error) {
		h.commands = append(h.commands, cmd)
		if h.cmdFn == nil {
			return nil, errors.New("unexpected command")
		}
		return h.cmdFn(cmd)
	})
	queryBus := queries.BusFunc(func(_ context.Context, q queries.Query) (any, error) {
		h.queries = append(h.queries, q)
		if h.queryFn == nil {
			return nil, errors.New("unexpected query")
		}
		return h.queryFn(q)
	})
	cfg := config.Config{Env: "test", ReceiptMaxBytes: 1 << 20}
	configureGinMode(cfg.Env)
	h.router = NewRouter(cfg, obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Booking:        BookingHandler{Commands: cmdBus, Queries: queryBus, ReceiptMaxBytes: 1 << 20},
		HostBooking:    HostBookingHandler{Commands: cmdBus, Queries: queryBus},
		Listing:        ListingHandler{Queries: queryBus},
		HostListing:    HostListingHandler{Commands: cmdBus, Queries: queryBus},
		Me:             MeHandler{Commands: cmdBus, Queries: queryBus},
		DevToken:       DevTokenHandler{Issuer: verifier}.Issue,
		AuthMiddleware: AuthMiddleware{Verifier: verifier}.Handle,
	})
	return h
}

func (h *harness) do(t *testing.T, method, path, user string, body []byte, contentType string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if user != "" {
		token, err := h.verifier.Issue(security.Identity{UserID: user})
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) doJSON(t *testing.T, method, path, user, body string) *httptest.ResponseRecorder {
	return h.do(t, method, path, user, []byte(body), "application/json", nil)
}

func TestCreateBooking_UsesCallerAsGuest(t *testing.T) {
	h := newHarness(t)
	h.cmdFn = func(cmd commands.Command) (any, error) {
		c := cmd.(bookingapp.RequestBookingCommand)
		return dto.BookingCreated{BookingID: "bk-1", Status: "pending", CheckIn: c.CheckIn.Format(daterange.DateLayout)}, nil
	}
	w := h.do(t, http.MethodPost, "/api/v1/bookings", "guest-1",
		[]byte(`{"listing_id":"lst-1","check_in":"2025-01-01","check_out":"2025-01-04"}`),
		"application/json", map[string]string{"Idempotency-Key": "abc"})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get("Location") != "/api/v1/bookings/bk-1" {
		t.Fatalf("unexpected location %q", w.Header().Get("Location"))
	}
	cmd := h.commands[0].(bookingapp.RequestBookingCommand)
	if cmd.GuestID != "guest-1" || cmd.ListingID != "lst-1" || cmd.IdempotencyKeyV != "abc" {
		t.Fatalf("unexpected command %+v", cmd)
	}
	if !cmd.CheckOut.Equal(time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected check-out %v", cmd.CheckOut)
	}
}

func TestCreateBooking_RejectsAnonymousAndMalformed(t *testing.T) {
	h := newHarness(t)
	if w := h.doJSON(t, http.MethodPost, "/api/v1/bookings", "", `{}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer forged")
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %d", w.Code)
	}
	if w := h.doJSON(t, http.MethodPost, "/api/v1/bookings", "guest-1", `{"listing_id":"l","check_in":"01/02/2025","check_out":"2025-01-04"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", w.Code)
	}
	if w := h.doJSON(t, http.MethodPost, "/api/v1/bookings", "guest-1", `{"listing_id":`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad json, got %d", w.Code)
	}
	if len(h.commands) != 0 {
		t.Fatalf("no command should be dispatched, got %d", len(h.commands))
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &validation.Error{Fields: []validation.FieldError{{Field: "ListingID", Message: "is required"}}}, http.StatusBadRequest},
		{"invalid range", domainbooking.ErrInvalidDateRange, http.StatusBadRequest},
		{"price out of range", domainbooking.ErrPriceOutOfRange, http.StatusBadRequest},
		{"listing in use", domainlistings.ErrListingInUse, http.StatusConflict},
		{"unsupported receipt", bookingapp.ErrUnsupportedReceipt, http.StatusBadRequest},
		{"bad status filter", fmt.Errorf("%w: x", bookingapp.ErrInvalidStatusFilter), http.StatusBadRequest},
		{"bank details invalid", domainprofiles.ErrBankDetailsInvalid, http.StatusBadRequest},
		{"unauthorized", domainbooking.ErrUnauthorized, http.StatusForbidden},
		{"booking missing", domainbooking.ErrBookingNotFound, http.StatusNotFound},
		{"listing missing", domainlistings.ErrListingNotFound, http.StatusNotFound},
		{"bank details missing", domainprofiles.ErrBankDetailsMissing, http.StatusNotFound},
		{"unavailable", domainbooking.ErrDateRangeUnavailable, http.StatusConflict},
		{"transition", domainbooking.ErrInvalidTransition, http.StatusConflict},
		{"concurrent", domainbooking.ErrConcurrentModification, http.StatusConflict},
		{"persistence", domainbooking.Persistence("save", errors.New("mongo down")), http.StatusServiceUnavailable},
		{"lock timeout", policies.ErrLockTimeout, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.cmdFn = func(commands.Command) (any, error) { return nil, tc.err }
			w := h.doJSON(t, http.MethodPost, "/api/v1/bookings/bk-1/receipt", "guest-1", `{"receipt_ref":"r"}`)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, w.Code, w.Body.String())
			}
			if tc.want >= http.StatusInternalServerError && strings.Contains(w.Body.String(), "mongo down") {
				t.Fatalf("server error leaked cause: %s", w.Body.String())
			}
		})
	}
}

func TestValidationErrorIncludesFields(t *testing.T) {
	h := newHarness(t)
	h.cmdFn = func(cmd commands.Command) (any, error) {
		return nil, &middleware.RejectedError{
			Key: cmd.Key(),
			Err: &validation.Error{Fields: []validation.FieldError{{Field: "ReceiptRef", Message: "is required"}}},
		}
	}
	w := h.doJSON(t, http.MethodPost, "/api/v1/bookings/bk-1/receipt", "guest-1", `{"receipt_ref":" "}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var body struct {
		Operation string                  `json:"operation"`
		Fields    []validation.FieldError `json:"fields"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || len(body.Fields) != 1 {
		t.Fatalf("expected one field error, got %s", w.Body.String())
	}
	if body.Operation != bookingapp.SubmitPaymentReceiptKey {
		t.Fatalf("expected operation %s, got %q", bookingapp.SubmitPaymentReceiptKey, body.Operation)
	}
}

func TestHostDecisions(t *testing.T) {
	h := newHarness(t)
	h.cmdFn = func(cmd commands.Command) (any, error) {
		c := cmd.(bookingapp.DecideBookingCommand)
		return dto.BookingTransition{BookingID: c.BookingID, Status: "confirmed"}, nil
	}
	if w := h.doJSON(t, http.MethodPost, "/api/v1/host/bookings/bk-1/confirm", "host-1", ``); w.Code != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w := h.doJSON(t, http.MethodPost, "/api/v1/host/bookings/bk-1/reject", "host-1", `{"reason":" dates blocked "}`); w.Code != http.StatusOK {
		t.Fatalf("reject: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	confirm := h.commands[0].(bookingapp.DecideBookingCommand)
	reject := h.commands[1].(bookingapp.DecideBookingCommand)
	if confirm.Decision != domainbooking.DecisionConfirm || confirm.HostID != "host-1" || confirm.BookingID != "bk-1" {
		t.Fatalf("unexpected confirm command %+v", confirm)
	}
	if reject.Decision != domainbooking.DecisionReject || reject.Reason != "dates blocked" {
		t.Fatalf("unexpected reject command %+v", reject)
	}
}

func TestUploadReceipt_SniffsContentType(t *testing.T) {
	h := newHarness(t)
	h.cmdFn = func(cmd commands.Command) (any, error) {
		return dto.BookingTransition{BookingID: "bk-1", Status: "payment_submitted"}, nil
	}
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "receipt.txt")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	part.Write(png)
	mw.Close()

	w := h.do(t, http.MethodPost, "/api/v1/bookings/bk-1/receipt/upload", "guest-1", body.Bytes(), mw.FormDataContentType(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	cmd := h.commands[0].(bookingapp.UploadPaymentReceiptCommand)
	if cmd.ContentType != "image/png" || cmd.GuestID != "guest-1" || cmd.FileName != "receipt.txt" || len(cmd.Content) != len(png) {
		t.Fatalf("unexpected upload command type=%s guest=%s file=%s size=%d", cmd.ContentType, cmd.GuestID, cmd.FileName, len(cmd.Content))
	}
}

func TestUploadReceipt_RequiresFile(t *testing.T) {
	h := newHarness(t)
	w := h.doJSON(t, http.MethodPost, "/api/v1/bookings/bk-1/receipt/upload", "guest-1", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAvailability_ParsesWindow(t *testing.T) {
	h := newHarness(t)
	h.queryFn = func(q queries.Query) (any, error) {
		return dto.ListingAvailability{ListingID: "lst-1"}, nil
	}
	w := h.doJSON(t, http.MethodGet, "/api/v1/listings/lst-1/availability?from=2025-01-01&to=2025-02-01", "", ``)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	q := h.queries[0].(bookingapp.GetListingAvailabilityQuery)
	if q.ListingID != "lst-1" || q.From.Format(daterange.DateLayout) != "2025-01-01" || q.To.Format(daterange.DateLayout) != "2025-02-01" {
		t.Fatalf("unexpected query %+v", q)
	}
	if w := h.doJSON(t, http.MethodGet, "/api/v1/listings/lst-1/availability?from=tomorrow", "", ``); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad window, got %d", w.Code)
	}
}

func TestMeAndHostQueriesUseCaller(t *testing.T) {
	h := newHarness(t)
	h.queryFn = func(q queries.Query) (any, error) {
		switch q.(type) {
		case bookingapp.ListGuestBookingsQuery, bookingapp.ListHostBookingsQuery:
			return dto.BookingCollection{Items: []dto.BookingView{}}, nil
		}
		return nil, errors.New("unexpected")
	}
	if w := h.doJSON(t, http.MethodGet, "/api/v1/me/bookings", "guest-1", ``); w.Code != http.StatusOK {
		t.Fatalf("me bookings: %d", w.Code)
	}
	if w := h.doJSON(t, http.MethodGet, "/api/v1/host/bookings?status=pending", "host-1", ``); w.Code != http.StatusOK {
		t.Fatalf("host bookings: %d", w.Code)
	}
	if got := h.queries[0].(bookingapp.ListGuestBookingsQuery).GuestID; got != "guest-1" {
		t.Fatalf("unexpected guest %s", got)
	}
	hq := h.queries[1].(bookingapp.ListHostBookingsQuery)
	if hq.HostID != "host-1" || hq.Status != "pending" {
		t.Fatalf("unexpected host query %+v", hq)
	}
}

func TestListingCatalog_BindsFilters(t *testing.T) {
	h := newHarness(t)
	h.queryFn = func(q queries.Query) (any, error) {
		return dto.ListingCatalog{Items: []dto.ListingView{{ID: "lst-1"}}, Total: 1, Limit: 24}, nil
	}
	w := h.doJSON(t, http.MethodGet, "/api/v1/listings?q=Galle&min_beds=2&offset=5", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	q := h.queries[0].(listingapp.SearchCatalogQuery)
	if q.Query != "Galle" || q.MinBeds != 2 || q.Offset != 5 || q.Limit != 0 {
		t.Fatalf("unexpected query %+v", q)
	}
	var body dto.ListingCatalog
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Total != 1 || body.Items[0].ID != "lst-1" {
		t.Fatalf("unexpected body %s (%v)", w.Body.String(), err)
	}

	if w := h.doJSON(t, http.MethodGet, "/api/v1/listings?min_beds=many", "", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric min_beds, got %d", w.Code)
	}
	if len(h.queries) != 1 {
		t.Fatalf("malformed filters must not reach the bus, got %d queries", len(h.queries))
	}
}

func TestHostListingUpdateAndDelete(t *testing.T) {
	h := newHarness(t)
	h.cmdFn = func(cmd commands.Command) (any, error) {
		switch c := cmd.(type) {
		case listingapp.UpdateListingCommand:
			return dto.ListingView{ID: c.ListingID, Title: c.Title}, nil
		case listingapp.DeleteListingCommand:
			if c.ListingID == "lst-busy" {
				return nil, domainlistings.ErrListingInUse
			}
			return listingapp.DeleteListingResult{ListingID: c.ListingID, Deleted: true}, nil
		}
		return nil, errors.New("unexpected command")
	}

	if w := h.doJSON(t, http.MethodPut, "/api/v1/host/listings/lst-1", "", `{"title":"x"}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous update, got %d", w.Code)
	}
	w := h.doJSON(t, http.MethodPut, "/api/v1/host/listings/lst-1", "host-1", `{"title":"Cliff villa","location":"Galle","nightly_rate":12000,"beds":3}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	update := h.commands[0].(listingapp.UpdateListingCommand)
	if update.HostID != "host-1" || update.ListingID != "lst-1" || update.NightlyRate != 12000 || update.Beds != 3 {
		t.Fatalf("unexpected update command %+v", update)
	}

	if w := h.doJSON(t, http.MethodDelete, "/api/v1/host/listings/lst-1", "host-1", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	del := h.commands[1].(listingapp.DeleteListingCommand)
	if del.HostID != "host-1" || del.ListingID != "lst-1" {
		t.Fatalf("unexpected delete command %+v", del)
	}
	if w := h.doJSON(t, http.MethodDelete, "/api/v1/host/listings/lst-busy", "host-1", ""); w.Code != http.StatusConflict {
		t.Fatalf("expected 409 while bookings are open, got %d", w.Code)
	}
}

func TestDevToken(t *testing.T) {
	h := newHarness(t)
	w := h.doJSON(t, http.MethodPost, "/api/v1/dev/token", "", `{"user_id":"guest-9"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	id, err := h.verifier.Verify(body.AccessToken)
	if err != nil || id.UserID != "guest-9" {
		t.Fatalf("issued token not accepted: %v %+v", err, id)
	}
}

func TestExtractBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"Bearer":       "",
		"":             "",
	}
	for in, want := range cases {
		if got := extractBearerToken(in); got != want {
			t.Fatalf("extractBearerToken(%q) = %q, want %q", in, got, want)
		}
	}
}
