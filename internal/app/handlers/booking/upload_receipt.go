package booking

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	"staybook/internal/app/policies"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
)

const UploadPaymentReceiptKey = "booking.upload_receipt"

var (
	ErrUnsupportedReceipt = errors.New("booking: receipt must be a JPEG, PNG, WEBP or PDF file")
	ErrReceiptStorage     = errors.New("booking: receipt storage is not configured")
)

var receiptExtensions = map[string]string{
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"image/webp":      "webp",
	"application/pdf": "pdf",
}

type UploadPaymentReceiptCommand struct {
	BookingID   string `validate:"required"`
	GuestID     string `validate:"required"`
	FileName    string
	ContentType string `validate:"required"`
	Content     []byte `validate:"min=1"`
}

func (c UploadPaymentReceiptCommand) Key() string { return UploadPaymentReceiptKey }

func (c UploadPaymentReceiptCommand) ActorID() string { return c.GuestID }

// UploadPaymentReceiptHandler stores the receipt file and then submits its reference.
type UploadPaymentReceiptHandler struct {
	Storage policies.ReceiptStorage
	Submit  *SubmitPaymentReceiptHandler
	Logger  *slog.Logger
	Clock   Clock
}

func (h *UploadPaymentReceiptHandler) Handle(ctx context.Context, cmd UploadPaymentReceiptCommand) (dto.BookingTransition, error) {
	if h.Storage == nil || h.Submit == nil {
		return dto.BookingTransition{}, ErrReceiptStorage
	}
	unit, err := uow.Require(ctx)
	if err != nil {
		return dto.BookingTransition{}, err
	}
	b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return dto.BookingTransition{}, domainbooking.Persistence("load booking", err)
	}
	// nothing is uploaded for a booking that would reject the receipt
	if err := b.CanSubmitReceipt(cmd.GuestID); err != nil {
		return dto.BookingTransition{}, err
	}
	ext, err := ReceiptExtension(cmd.ContentType)
	if err != nil {
		return dto.BookingTransition{}, err
	}

	key := ReceiptObjectKey(b.GuestID, string(b.ID), h.Clock.now().UnixMilli(), ext)
	ref, err := h.Storage.Upload(ctx, key, bytes.NewReader(cmd.Content), cmd.ContentType)
	if err != nil {
		return dto.BookingTransition{}, domainbooking.Persistence("upload receipt", err)
	}
	logger := loggerOrDefault(h.Logger)
	logger.InfoContext(ctx, "payment receipt uploaded", "booking_id", b.ID, "key", key, "file_name", cmd.FileName, "size", len(cmd.Content))

	discard := func(cleanupCtx context.Context) { h.discard(cleanupCtx, logger, b.ID, key, ref) }
	hooked := uow.OnRollback(ctx, discard)
	res, err := h.Submit.Handle(ctx, SubmitPaymentReceiptCommand{
		BookingID:  cmd.BookingID,
		GuestID:    cmd.GuestID,
		ReceiptRef: ref,
	})
	if err != nil && !hooked {
		discard(context.WithoutCancel(ctx))
	}
	return res, err
}

// discard drops a stored receipt whose booking update was not committed.
func (h *UploadPaymentReceiptHandler) discard(ctx context.Context, logger *slog.Logger, id domainbooking.BookingID, key, ref string) {
	remover, ok := h.Storage.(policies.ReceiptRemover)
	if !ok {
		logger.WarnContext(ctx, "payment receipt orphaned", "booking_id", id, "key", key, "ref", ref)
		return
	}
	if err := remover.Remove(ctx, ref); err != nil {
		logger.WarnContext(ctx, "payment receipt orphaned", "booking_id", id, "key", key, "ref", ref, "error", err)
		return
	}
	logger.InfoContext(ctx, "payment receipt discarded", "booking_id", id, "key", key)
}

// ReceiptObjectKey names the stored receipt object: receipts/<guest>/<booking>_<millis>.<ext>.
func ReceiptObjectKey(guestID, bookingID string, millis int64, ext string) string {
	return fmt.Sprintf("receipts/%s/%s_%d.%s", guestID, bookingID, millis, ext)
}

// ReceiptExtension picks the stored file extension from the detected content type.
func ReceiptExtension(contentType string) (string, error) {
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	ext, ok := receiptExtensions[mediaType]
	if !ok {
		return "", ErrUnsupportedReceipt
	}
	return ext, nil
}

var _ commands.Handler[UploadPaymentReceiptCommand, dto.BookingTransition] = (*UploadPaymentReceiptHandler)(nil)
