package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	bookingapp "staybook/internal/app/handlers/booking"
	profileapp "staybook/internal/app/handlers/profiles"
	"staybook/internal/app/queries"
)

type MeHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type bankDetailsRequest struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountHolder string `json:"account_holder"`
	Branch        string `json:"branch"`
}

func (h MeHandler) ListBookings(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	query := bookingapp.ListGuestBookingsQuery{GuestID: user.ID}
	result, err := queries.Ask[bookingapp.ListGuestBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h MeHandler) GetBankDetails(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	result, err := queries.Ask[profileapp.GetBankDetailsQuery, dto.BankDetailsView](c.Request.Context(), h.Queries, profileapp.GetBankDetailsQuery{UserID: user.ID})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h MeHandler) UpdateBankDetails(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	var req bankDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, h.Logger, badRequest{err})
		return
	}
	cmd := profileapp.UpdateBankDetailsCommand{
		UserID:        user.ID,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		AccountHolder: req.AccountHolder,
		Branch:        req.Branch,
	}
	result, err := commands.Dispatch[profileapp.UpdateBankDetailsCommand, dto.BankDetailsView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ MeHTTP = MeHandler{}
