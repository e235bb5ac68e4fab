package ginserver

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	bookingapp "staybook/internal/app/handlers/booking"
	"staybook/internal/app/queries"
	"staybook/internal/domain/shared/daterange"
)

const defaultReceiptMaxBytes int64 = 10 << 20

type BookingHandler struct {
	Commands        commands.Bus
	Queries         queries.Bus
	Logger          *slog.Logger
	ReceiptMaxBytes int64
}

type createBookingRequest struct {
	ListingID     string `json:"listing_id" binding:"required"`
	CheckIn       string `json:"check_in" binding:"required"`
	CheckOut      string `json:"check_out" binding:"required"`
	AdvanceAmount *int64 `json:"advance_amount"`
}

type submitReceiptRequest struct {
	ReceiptRef string `json:"receipt_ref" binding:"required"`
}

func (h BookingHandler) Create(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, h.Logger, badRequest{err})
		return
	}
	checkIn, err := parseDate(req.CheckIn)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	checkOut, err := parseDate(req.CheckOut)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	cmd := bookingapp.RequestBookingCommand{
		ListingID:       strings.TrimSpace(req.ListingID),
		GuestID:         user.ID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		AdvanceAmount:   req.AdvanceAmount,
		IdempotencyKeyV: strings.TrimSpace(c.GetHeader("Idempotency-Key")),
	}
	result, err := commands.Dispatch[bookingapp.RequestBookingCommand, dto.BookingCreated](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.Header("Location", "/api/v1/bookings/"+result.BookingID)
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	query := bookingapp.GetBookingQuery{BookingID: c.Param("id"), ViewerID: user.ID}
	result, err := queries.Ask[bookingapp.GetBookingQuery, dto.BookingView](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) SubmitReceipt(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	var req submitReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, h.Logger, badRequest{err})
		return
	}
	cmd := bookingapp.SubmitPaymentReceiptCommand{
		BookingID:  c.Param("id"),
		GuestID:    user.ID,
		ReceiptRef: strings.TrimSpace(req.ReceiptRef),
	}
	result, err := commands.Dispatch[bookingapp.SubmitPaymentReceiptCommand, dto.BookingTransition](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UploadReceipt accepts a multipart "file" field. The content type is sniffed from
// the bytes rather than trusted from the client.
func (h BookingHandler) UploadReceipt(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	limit := h.ReceiptMaxBytes
	if limit <= 0 {
		limit = defaultReceiptMaxBytes
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondWithError(c, h.Logger, badRequest{fmt.Errorf("file is required: %w", err)})
		return
	}
	if fileHeader.Size > limit {
		respondWithError(c, h.Logger, badRequest{fmt.Errorf("file exceeds %d bytes", limit)})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respondWithError(c, h.Logger, badRequest{err})
		return
	}
	defer file.Close()
	content, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		respondWithError(c, h.Logger, badRequest{err})
		return
	}
	if int64(len(content)) > limit {
		respondWithError(c, h.Logger, badRequest{fmt.Errorf("file exceeds %d bytes", limit)})
		return
	}

	cmd := bookingapp.UploadPaymentReceiptCommand{
		BookingID:   c.Param("id"),
		GuestID:     user.ID,
		FileName:    fileHeader.Filename,
		ContentType: mimetype.Detect(content).String(),
		Content:     content,
	}
	result, err := commands.Dispatch[bookingapp.UploadPaymentReceiptCommand, dto.BookingTransition](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) PaymentInstructions(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	query := bookingapp.GetPaymentInstructionsQuery{BookingID: c.Param("id"), ViewerID: user.ID}
	result, err := queries.Ask[bookingapp.GetPaymentInstructionsQuery, dto.PaymentInstructions](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// parseDate accepts YYYY-MM-DD and, for older clients, full RFC 3339 timestamps.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := daterange.ParseDate(raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, badRequest{fmt.Errorf("%w: %q", daterange.ErrInvalidDate, raw)}
}

var _ BookingHTTP = BookingHandler{}
