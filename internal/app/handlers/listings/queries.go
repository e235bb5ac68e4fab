package listings

import (
	"context"

	"staybook/internal/app/dto"
	handlersupport "staybook/internal/app/handlers/support"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainbooking "staybook/internal/domain/booking"
	domainlistings "staybook/internal/domain/listings"
)

const (
	GetListingKey       = "listings.get"
	ListHostListingsKey = "host.listings.list"
	SearchCatalogKey    = "listings.catalog"
)

type GetListingQuery struct {
	ListingID string `validate:"required"`
}

func (q GetListingQuery) Key() string { return GetListingKey }

type GetListingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetListingHandler) Handle(ctx context.Context, q GetListingQuery) (dto.ListingView, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ListingView{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	listing, err := unit.Listings().ByID(execCtx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.ListingView{}, domainbooking.Persistence("load listing", err)
	}
	return dto.MapListing(listing), nil
}

type ListHostListingsQuery struct {
	HostID string `validate:"required"`
}

func (q ListHostListingsQuery) Key() string { return ListHostListingsKey }

func (q ListHostListingsQuery) ActorID() string { return q.HostID }

type ListHostListingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListHostListingsHandler) Handle(ctx context.Context, q ListHostListingsQuery) ([]dto.ListingView, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	hosted, err := unit.Listings().ListByHost(execCtx, domainlistings.HostID(q.HostID))
	if err != nil {
		return nil, domainbooking.Persistence("list host listings", err)
	}
	out := make([]dto.ListingView, 0, len(hosted))
	for _, l := range hosted {
		out = append(out, dto.MapListing(l))
	}
	return out, nil
}

// SearchCatalogQuery is the public guest browse. Query matches a location or
// title substring.
type SearchCatalogQuery struct {
	Query   string `validate:"max=200"`
	MinBeds int    `validate:"gte=0"`
	Limit   int    `validate:"gte=0"`
	Offset  int    `validate:"gte=0"`
}

func (q SearchCatalogQuery) Key() string { return SearchCatalogKey }

type SearchCatalogHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *SearchCatalogHandler) Handle(ctx context.Context, q SearchCatalogQuery) (dto.ListingCatalog, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ListingCatalog{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	params := domainlistings.SearchParams{
		Query:   q.Query,
		MinBeds: q.MinBeds,
		Limit:   q.Limit,
		Offset:  q.Offset,
	}.Normalized()
	result, err := unit.Listings().Search(execCtx, params)
	if err != nil {
		return dto.ListingCatalog{}, domainbooking.Persistence("search listings", err)
	}
	return dto.MapCatalog(result, params), nil
}

var (
	_ queries.Handler[SearchCatalogQuery, dto.ListingCatalog]   = (*SearchCatalogHandler)(nil)
	_ queries.Handler[GetListingQuery, dto.ListingView]         = (*GetListingHandler)(nil)
	_ queries.Handler[ListHostListingsQuery, []dto.ListingView] = (*ListHostListingsHandler)(nil)
)
