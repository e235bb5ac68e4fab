package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	bookingapp "staybook/internal/app/handlers/booking"
	"staybook/internal/app/queries"
	domainbooking "staybook/internal/domain/booking"
)

type HostBookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type rejectBookingRequest struct {
	Reason string `json:"reason"`
}

func (h HostBookingHandler) List(c *gin.Context) {
	host, ok := requireUser(c)
	if !ok {
		return
	}
	query := bookingapp.ListHostBookingsQuery{
		HostID: host.ID,
		Status: c.Query("status"),
	}
	result, err := queries.Ask[bookingapp.ListHostBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostBookingHandler) Confirm(c *gin.Context) {
	h.decide(c, domainbooking.DecisionConfirm, "")
}

func (h HostBookingHandler) Reject(c *gin.Context) {
	var req rejectBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, h.Logger, badRequest{err})
			return
		}
	}
	h.decide(c, domainbooking.DecisionReject, strings.TrimSpace(req.Reason))
}

func (h HostBookingHandler) decide(c *gin.Context, decision domainbooking.Decision, reason string) {
	host, ok := requireUser(c)
	if !ok {
		return
	}
	cmd := bookingapp.DecideBookingCommand{
		BookingID: strings.TrimSpace(c.Param("id")),
		HostID:    host.ID,
		Decision:  decision,
		Reason:    reason,
	}
	result, err := commands.Dispatch[bookingapp.DecideBookingCommand, dto.BookingTransition](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ HostBookingHTTP = HostBookingHandler{}
