package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	domainlistings "staybook/internal/domain/listings"
	"staybook/internal/domain/shared/money"
)

type listingFixture struct {
	ID          string   `json:"id"`
	Host        string   `json:"host"`
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

// loadListingFixtures seeds listings from a JSON array; invalid entries are logged and skipped.
func loadListingFixtures(ctx context.Context, repo domainlistings.Repository, path, currency string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("listing fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("listing fixtures file empty", "path", path)
		return nil
	}

	var fixtures []listingFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now().UTC()
	imported := 0
	for _, fx := range fixtures {
		cur := fx.Currency
		if cur == "" {
			cur = currency
		}
		rate, err := money.New(fx.NightlyRate, cur)
		if err != nil {
			logger.Error("fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
			ID:          domainlistings.ListingID(fx.ID),
			Host:        domainlistings.HostID(fx.Host),
			Title:       fx.Title,
			Description: fx.Description,
			Location:    fx.Location,
			NightlyRate: rate,
			Beds:        fx.Beds,
			Baths:       fx.Baths,
			ImageURL:    fx.ImageURL,
			Facilities:  fx.Facilities,
			Latitude:    fx.Latitude,
			Longitude:   fx.Longitude,
			Now:         now,
		})
		if err != nil {
			logger.Error("fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		// fixtures are seed data, not host actions
		listing.ClearEvents()
		if err := repo.Save(ctx, listing); err != nil {
			logger.Error("cannot store fixture listing", "listing_id", fx.ID, "error", err)
			continue
		}
		imported++
	}
	logger.Info("listing fixtures imported", "count", imported, "path", path)
	return nil
}

func defaultListingFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "listings.json"),
		filepath.Join("..", "..", "data", "listings.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}
