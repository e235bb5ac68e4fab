package ginserver

import (
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	bookingapp "staybook/internal/app/handlers/booking"
	listingapp "staybook/internal/app/handlers/listings"
	"staybook/internal/app/queries"
)

type ListingHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

type catalogRequest struct {
	Query   string `form:"q"`
	MinBeds int    `form:"min_beds"`
	Limit   int    `form:"limit"`
	Offset  int    `form:"offset"`
}

// Catalog is the public browse: q matches a location or title substring.
func (h ListingHandler) Catalog(c *gin.Context) {
	var req catalogRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondWithError(c, h.Logger, badRequest{err})
		return
	}
	query := listingapp.SearchCatalogQuery{
		Query:   req.Query,
		MinBeds: req.MinBeds,
		Limit:   req.Limit,
		Offset:  req.Offset,
	}
	result, err := queries.Ask[listingapp.SearchCatalogQuery, dto.ListingCatalog](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Get(c *gin.Context) {
	result, err := queries.Ask[listingapp.GetListingQuery, dto.ListingView](c.Request.Context(), h.Queries, listingapp.GetListingQuery{ListingID: c.Param("id")})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Availability lists booked ranges; from and to are optional but must be given together.
func (h ListingHandler) Availability(c *gin.Context) {
	var from, to time.Time
	if raw := c.Query("from"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			respondWithError(c, h.Logger, err)
			return
		}
		from = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			respondWithError(c, h.Logger, err)
			return
		}
		to = t
	}
	query := bookingapp.GetListingAvailabilityQuery{ListingID: c.Param("id"), From: from, To: to}
	result, err := queries.Ask[bookingapp.GetListingAvailabilityQuery, dto.ListingAvailability](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type HostListingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type hostListingRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	NightlyRate int64    `json:"nightly_rate"`
	Currency    string   `json:"currency"`
	Beds        int      `json:"beds"`
	Baths       int      `json:"baths"`
	ImageURL    string   `json:"image_url"`
	Facilities  []string `json:"facilities"`
	Latitude    float64  `json:"lat"`
	Longitude   float64  `json:"lng"`
}

func (h HostListingHandler) List(c *gin.Context) {
	host, ok := requireUser(c)
	if !ok {
		return
	}
	result, err := queries.Ask[listingapp.ListHostListingsQuery, []dto.ListingView](c.Request.Context(), h.Queries, listingapp.ListHostListingsQuery{HostID: host.ID})
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": result})
}

func (h HostListingHandler) Create(c *gin.Context) {
	host, ok := requireUser(c)
	if !ok {
		return
	}
	var req hostListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, h.Logger, badRequest{err})
		return
	}
	cmd := listingapp.CreateListingCommand{
		HostID:      host.ID,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		NightlyRate: req.NightlyRate,
		Currency:    req.Currency,
		Beds:        req.Beds,
		Baths:       req.Baths,
		ImageURL:    req.ImageURL,
		Facilities:  req.Facilities,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	}
	result, err := commands.Dispatch[listingapp.CreateListingCommand, dto.ListingView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h HostListingHandler) Update(c *gin.Context) {
	host, ok := requireUser(c)
	if !ok {
		return
	}
	var req hostListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, h.Logger, badRequest{err})
		return
	}
	cmd := listingapp.UpdateListingCommand{
		HostID:      host.ID,
		ListingID:   c.Param("id"),
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		NightlyRate: req.NightlyRate,
		Currency:    req.Currency,
		Beds:        req.Beds,
		Baths:       req.Baths,
		ImageURL:    req.ImageURL,
		Facilities:  req.Facilities,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	}
	result, err := commands.Dispatch[listingapp.UpdateListingCommand, dto.ListingView](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostListingHandler) Delete(c *gin.Context) {
	host, ok := requireUser(c)
	if !ok {
		return
	}
	cmd := listingapp.DeleteListingCommand{HostID: host.ID, ListingID: c.Param("id")}
	result, err := commands.Dispatch[listingapp.DeleteListingCommand, listingapp.DeleteListingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondWithError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var (
	_ ListingHTTP     = ListingHandler{}
	_ HostListingHTTP = HostListingHandler{}
)
