package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"chakastays/internal/app/dataservice"
	authsvc "chakastays/internal/app/services/auth"
	domainproperties "chakastays/internal/domain/properties"
	"chakastays/internal/domain/shared/money"
	domainuser "chakastays/internal/domain/user"
)

type fixtureFile struct {
	Hosts      []hostFixture     `json:"hosts"`
	Properties []propertyFixture `json:"properties"`
}

type hostFixture struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type propertyFixture struct {
	ID            string    `json:"id"`
	HostEmail     string    `json:"host_email"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Address       string    `json:"address"`
	City          string    `json:"city"`
	Country       string    `json:"country"`
	PricePerNight string    `json:"price_per_night"`
	MaxGuests     int       `json:"max_guests"`
	Bedrooms      int       `json:"bedrooms"`
	Beds          int       `json:"beds"`
	Baths         float64   `json:"baths"`
	Amenities     []string  `json:"amenities"`
	Images        []string  `json:"images"`
	Reviews       []float64 `json:"reviews"`
}

// loadFixtures seeds hosts and properties. Existing properties are left alone.
func loadFixtures(ctx context.Context, path string, data dataservice.Service, auth *authsvc.Service, currency string, logger *slog.Logger) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	var file fixtureFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	hosts := make(map[string]domainuser.ID, len(file.Hosts))
	for _, h := range file.Hosts {
		u, err := ensureHost(ctx, data, auth, h)
		if err != nil {
			logger.Error("fixture host invalid", "email", h.Email, "error", err)
			continue
		}
		hosts[u.Email] = u.ID
	}

	now := time.Now().UTC()
	for _, fx := range file.Properties {
		hostID, ok := hosts[domainuser.NormalizeEmail(fx.HostEmail)]
		if !ok {
			logger.Error("fixture property has unknown host", "property_id", fx.ID, "host_email", fx.HostEmail)
			continue
		}
		if _, err := data.Properties().ByID(ctx, domainproperties.PropertyID(fx.ID)); err == nil {
			continue
		}
		p, err := fx.build(domainproperties.HostID(hostID), currency, now)
		if err != nil {
			logger.Error("fixture property invalid", "property_id", fx.ID, "error", err)
			continue
		}
		if err := data.Properties().Save(ctx, p); err != nil {
			logger.Error("cannot store fixture property", "property_id", fx.ID, "error", err)
			continue
		}
		logger.Info("property fixture imported", "property_id", p.ID)
	}
	return nil
}

func ensureHost(ctx context.Context, data dataservice.Service, auth *authsvc.Service, h hostFixture) (*domainuser.User, error) {
	res, err := auth.Register(ctx, authsvc.RegisterParams{
		Email:      h.Email,
		Name:       h.Name,
		Password:   h.Password,
		WantToHost: true,
	})
	if err == nil {
		if err := auth.Logout(ctx, res.Token); err != nil {
			return nil, err
		}
		return res.User, nil
	}
	if !errors.Is(err, domainuser.ErrEmailAlreadyUsed) {
		return nil, err
	}
	u, err := data.Users().ByEmail(ctx, domainuser.NormalizeEmail(h.Email))
	if err != nil {
		return nil, err
	}
	if u.HasRole(domainuser.RoleHost) {
		return u, nil
	}
	if err := u.EnsureRole(domainuser.RoleHost, time.Now()); err != nil {
		return nil, err
	}
	return u, data.Users().Save(ctx, u)
}

func (fx propertyFixture) build(host domainproperties.HostID, currency string, now time.Time) (*domainproperties.Property, error) {
	price, err := money.Parse(strings.TrimSpace(fx.PricePerNight), currency)
	if err != nil {
		return nil, err
	}
	p, err := domainproperties.NewProperty(domainproperties.CreateParams{
		ID:          domainproperties.PropertyID(fx.ID),
		Host:        host,
		Title:       fx.Title,
		Description: fx.Description,
		Location: domainproperties.Location{
			Address: fx.Address,
			City:    fx.City,
			Country: fx.Country,
		},
		PricePerNight: price,
		Capacity: domainproperties.Capacity{
			MaxGuests: fx.MaxGuests,
			Bedrooms:  fx.Bedrooms,
			Beds:      fx.Beds,
			Baths:     fx.Baths,
		},
		Amenities: fx.Amenities,
		Images:    fx.Images,
		Now:       now,
	})
	if err != nil {
		return nil, err
	}
	for _, rating := range fx.Reviews {
		if err := p.RecordReview(rating, now); err != nil {
			return nil, err
		}
	}
	// Seeded listings do not announce themselves.
	p.ClearEvents()
	return p, nil
}
