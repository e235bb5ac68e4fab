// Package bootstrap registers the application handlers on the buses and
// wraps them in the middleware pipeline.
package bootstrap

import (
	"log/slog"
	"time"

	"staybook/internal/app/commands"
	bookingapp "staybook/internal/app/handlers/booking"
	listingapp "staybook/internal/app/handlers/listings"
	profileapp "staybook/internal/app/handlers/profiles"
	"staybook/internal/app/middleware"
	"staybook/internal/app/outbox"
	"staybook/internal/app/policies"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
)

type Deps struct {
	UoW         uow.UoWFactory
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	Idempotency middleware.IdempotencyStore
	Locker      policies.ListingLocker
	Receipts    policies.ReceiptStorage
	Validator   middleware.Validator
	Logger      *slog.Logger

	AdvancePercent int
	Currency       string
	Clock          func() time.Time
	NewID          func() string
}

type Application struct {
	Commands commands.Bus
	Queries  queries.Bus
}

// Build wires the command pipeline as
// Logging → Authorization → Validation → Idempotency → Serialize → Transaction → OutboxFlush.
// Serialize sits outside Transaction so a listing stays locked until the booking is committed.
func Build(d Deps) Application {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	encoder := d.Encoder
	if encoder == nil {
		encoder = outbox.JSONEventEncoder{}
	}
	clock := bookingapp.Clock(d.Clock)

	commandBus := commands.NewInMemoryBus()
	submit := &bookingapp.SubmitPaymentReceiptHandler{Outbox: d.Outbox, Encoder: encoder, Logger: logger, Clock: clock}
	commands.RegisterHandler(commandBus, bookingapp.RequestBookingKey, &bookingapp.RequestBookingHandler{
		Outbox:         d.Outbox,
		Encoder:        encoder,
		Logger:         logger,
		AdvancePercent: d.AdvancePercent,
		Clock:          clock,
		NewID:          d.NewID,
	})
	commands.RegisterHandler(commandBus, bookingapp.SubmitPaymentReceiptKey, submit)
	commands.RegisterHandler(commandBus, bookingapp.UploadPaymentReceiptKey, &bookingapp.UploadPaymentReceiptHandler{
		Storage: d.Receipts,
		Submit:  submit,
		Logger:  logger,
		Clock:   clock,
	})
	commands.RegisterHandler(commandBus, bookingapp.DecideBookingKey, &bookingapp.DecideBookingHandler{Outbox: d.Outbox, Encoder: encoder, Logger: logger, Clock: clock})
	commands.RegisterHandler(commandBus, listingapp.CreateListingKey, &listingapp.CreateListingHandler{
		Outbox:   d.Outbox,
		Encoder:  encoder,
		Logger:   logger,
		Currency: d.Currency,
		Now:      d.Clock,
	})
	commands.RegisterHandler(commandBus, listingapp.UpdateListingKey, &listingapp.UpdateListingHandler{Outbox: d.Outbox, Encoder: encoder, Logger: logger, Now: d.Clock})
	commands.RegisterHandler(commandBus, listingapp.DeleteListingKey, &listingapp.DeleteListingHandler{Outbox: d.Outbox, Encoder: encoder, Logger: logger, Now: d.Clock})
	commands.RegisterHandler(commandBus, profileapp.UpdateBankDetailsKey, &profileapp.UpdateBankDetailsHandler{Outbox: d.Outbox, Encoder: encoder, Logger: logger, Now: d.Clock})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, bookingapp.GetBookingKey, &bookingapp.GetBookingHandler{UoWFactory: d.UoW})
	queries.RegisterHandler(queryBus, bookingapp.ListGuestBookingsKey, &bookingapp.ListGuestBookingsHandler{UoWFactory: d.UoW, Logger: logger})
	queries.RegisterHandler(queryBus, bookingapp.ListHostBookingsKey, &bookingapp.ListHostBookingsHandler{UoWFactory: d.UoW})
	queries.RegisterHandler(queryBus, bookingapp.GetListingAvailabilityKey, &bookingapp.GetListingAvailabilityHandler{UoWFactory: d.UoW})
	queries.RegisterHandler(queryBus, bookingapp.GetPaymentInstructionsKey, &bookingapp.GetPaymentInstructionsHandler{UoWFactory: d.UoW})
	queries.RegisterHandler(queryBus, listingapp.GetListingKey, &listingapp.GetListingHandler{UoWFactory: d.UoW})
	queries.RegisterHandler(queryBus, listingapp.SearchCatalogKey, &listingapp.SearchCatalogHandler{UoWFactory: d.UoW})
	queries.RegisterHandler(queryBus, listingapp.ListHostListingsKey, &listingapp.ListHostListingsHandler{UoWFactory: d.UoW})
	queries.RegisterHandler(queryBus, profileapp.GetBankDetailsKey, &profileapp.GetBankDetailsHandler{UoWFactory: d.UoW})

	var (
		validate    middleware.CommandMiddleware
		validateQry middleware.QueryMiddleware
		idempotency middleware.CommandMiddleware
		serialize   middleware.CommandMiddleware
	)
	if d.Validator != nil {
		validate = middleware.Validation(d.Validator)
		validateQry = middleware.QueryValidation(d.Validator)
	}
	if d.Idempotency != nil {
		idempotency = middleware.Idempotency(d.Idempotency, nil)
	}
	if d.Locker != nil {
		serialize = middleware.Serialize(d.Locker, logger)
	}

	return Application{
		Commands: middleware.ChainCommands(
			commandBus,
			middleware.Logging(logger),
			middleware.Authorization(middleware.RequireActor{}),
			validate,
			idempotency,
			serialize,
			middleware.Transaction(d.UoW, nil),
			middleware.OutboxFlush(d.Outbox),
		),
		Queries: middleware.ChainQueries(
			queryBus,
			middleware.QueryAuthorization(middleware.RequireActor{}),
			validateQry,
		),
	}
}
