package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	bookingapp "staybook/internal/app/handlers/booking"
	"staybook/internal/app/middleware"
	"staybook/internal/app/policies"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
	domainprofiles "staybook/internal/domain/profiles"
	"staybook/internal/domain/shared/daterange"
	"staybook/internal/domain/shared/money"
	"staybook/internal/infra/validation"
)

// badRequest marks malformed transport input such as unparsable JSON or dates.
type badRequest struct{ err error }

func (b badRequest) Error() string { return b.err.Error() }
func (b badRequest) Unwrap() error { return b.err }

var (
	badRequestErrors = []error{
		daterange.ErrInvalidRange,
		daterange.ErrInvalidDate,
		domainbooking.ErrInvalidAdvance,
		domainbooking.ErrPriceOutOfRange,
		money.ErrOverflow,
		domainbooking.ErrGuestRequired,
		domainbooking.ErrReceiptRequired,
		domainbooking.ErrUnknownDecision,
		bookingapp.ErrUnsupportedReceipt,
		bookingapp.ErrInvalidStatusFilter,
		domainprofiles.ErrBankDetailsInvalid,
		domainlistings.ErrTitleRequired,
		domainlistings.ErrHostRequired,
		domainlistings.ErrNightlyRate,
		domainlistings.ErrRoomsCount,
	}
	notFoundErrors = []error{
		domainbooking.ErrBookingNotFound,
		domainlistings.ErrListingNotFound,
		domainprofiles.ErrProfileNotFound,
		domainprofiles.ErrBankDetailsMissing,
	}
	conflictErrors = []error{
		domainbooking.ErrDateRangeUnavailable,
		domainbooking.ErrInvalidTransition,
		domainbooking.ErrConcurrentModification,
		domainlistings.ErrListingInUse,
	}
	unavailableErrors = []error{
		policies.ErrLockTimeout,
		bookingapp.ErrReceiptStorage,
	}
)

func statusFor(err error) int {
	var (
		verr *validation.Error
		bad  badRequest
		pe   *domainbooking.PersistenceError
	)
	switch {
	case errors.As(err, &verr), errors.As(err, &bad), isAny(err, badRequestErrors):
		return http.StatusBadRequest
	case errors.Is(err, domainbooking.ErrUnauthorized):
		return http.StatusForbidden
	case isAny(err, notFoundErrors):
		return http.StatusNotFound
	case isAny(err, conflictErrors):
		return http.StatusConflict
	case errors.As(err, &pe), isAny(err, unavailableErrors):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// respondWithError writes the mapped status; server errors hide their cause from clients.
func respondWithError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}
	var verr *validation.Error
	if errors.As(err, &verr) {
		body["fields"] = verr.Fields
	}
	var rejected *middleware.RejectedError
	if errors.As(err, &rejected) {
		body["operation"] = rejected.Key
	}
	if status >= http.StatusInternalServerError {
		if logger != nil {
			fields := []any{"status", status, "error", err, "path", c.FullPath(), "request_id", c.GetString("request_id")}
			if p, ok := currentPrincipal(c); ok {
				fields = append(fields, "user_id", p.ID)
			}
			logger.Error("request failed", fields...)
		}
		body = gin.H{"error": http.StatusText(status)}
		if status == http.StatusServiceUnavailable {
			c.Header("Retry-After", "1")
		}
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}
