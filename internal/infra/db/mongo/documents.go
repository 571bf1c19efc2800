package mongo

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	domainauth "chakastays/internal/domain/auth"
	domainbooking "chakastays/internal/domain/booking"
	domainfavorites "chakastays/internal/domain/favorites"
	domainnotifications "chakastays/internal/domain/notifications"
	domainproperties "chakastays/internal/domain/properties"
	"chakastays/internal/domain/shared/daterange"
	"chakastays/internal/domain/shared/money"
	domainuser "chakastays/internal/domain/user"
)

type moneyDocument struct {
	Amount   primitive.Decimal128 `bson:"amount"`
	Currency string               `bson:"currency"`
}

func newMoneyDocument(m money.Money) (moneyDocument, error) {
	amount, err := primitive.ParseDecimal128(m.Amount.String())
	if err != nil {
		return moneyDocument{}, fmt.Errorf("mongo: encode amount %s: %w", m.Amount, err)
	}
	return moneyDocument{Amount: amount, Currency: m.Currency}, nil
}

func (d moneyDocument) toMoney() (money.Money, error) {
	amount, err := decimal.NewFromString(d.Amount.String())
	if err != nil {
		return money.Money{}, fmt.Errorf("mongo: decode amount %s: %w", d.Amount, err)
	}
	return money.Money{Amount: amount, Currency: d.Currency}, nil
}

func decimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

type rangeDocument struct {
	Start time.Time `bson:"start"`
	End   time.Time `bson:"end"`
}

func newRangeDocument(dr daterange.DateRange) rangeDocument {
	return rangeDocument{Start: dr.Start.UTC(), End: dr.End.UTC()}
}

func (d rangeDocument) toRange() daterange.DateRange {
	return daterange.DateRange{Start: d.Start.UTC(), End: d.End.UTC()}
}

type propertyDocument struct {
	ID            string        `bson:"_id"`
	HostID        string        `bson:"host_id"`
	Title         string        `bson:"title"`
	Description   string        `bson:"description"`
	Address       string        `bson:"address"`
	City          string        `bson:"city"`
	Country       string        `bson:"country"`
	CityKey       string        `bson:"city_key"`
	CountryKey    string        `bson:"country_key"`
	SearchText    string        `bson:"search_text"`
	PricePerNight moneyDocument `bson:"price_per_night"`
	MaxGuests     int           `bson:"max_guests"`
	Bedrooms      int           `bson:"bedrooms"`
	Beds          int           `bson:"beds"`
	Baths         float64       `bson:"baths"`
	Amenities     []string      `bson:"amenities"`
	Images        []string      `bson:"images"`
	Banned        bool          `bson:"banned"`
	BanReason     string        `bson:"ban_reason,omitempty"`
	Rating        float64       `bson:"rating"`
	ReviewCount   int           `bson:"review_count"`
	CreatedAt     time.Time     `bson:"created_at"`
	UpdatedAt     time.Time     `bson:"updated_at"`
	Version       int64         `bson:"version"`
}

func newPropertyDocument(p *domainproperties.Property) (propertyDocument, error) {
	price, err := newMoneyDocument(p.PricePerNight)
	if err != nil {
		return propertyDocument{}, err
	}
	loc := p.Location
	return propertyDocument{
		ID:            string(p.ID),
		HostID:        string(p.Host),
		Title:         p.Title,
		Description:   p.Description,
		Address:       loc.Address,
		City:          loc.City,
		Country:       loc.Country,
		CityKey:       strings.ToLower(loc.City),
		CountryKey:    strings.ToLower(loc.Country),
		SearchText:    strings.ToLower(strings.Join([]string{p.Title, loc.City, loc.Country, loc.Address}, " ")),
		PricePerNight: price,
		MaxGuests:     p.Capacity.MaxGuests,
		Bedrooms:      p.Capacity.Bedrooms,
		Beds:          p.Capacity.Beds,
		Baths:         p.Capacity.Baths,
		Amenities:     append([]string{}, p.Amenities...),
		Images:        append([]string{}, p.Images...),
		Banned:        p.Banned,
		BanReason:     p.BanReason,
		Rating:        p.Rating,
		ReviewCount:   p.ReviewCount,
		CreatedAt:     p.CreatedAt.UTC(),
		UpdatedAt:     p.UpdatedAt.UTC(),
		Version:       p.Version,
	}, nil
}

func (d propertyDocument) toAggregate() (*domainproperties.Property, error) {
	price, err := d.PricePerNight.toMoney()
	if err != nil {
		return nil, err
	}
	return &domainproperties.Property{
		ID:            domainproperties.PropertyID(d.ID),
		Host:          domainproperties.HostID(d.HostID),
		Title:         d.Title,
		Description:   d.Description,
		Location:      domainproperties.Location{Address: d.Address, City: d.City, Country: d.Country},
		PricePerNight: price,
		Capacity: domainproperties.Capacity{
			MaxGuests: d.MaxGuests,
			Bedrooms:  d.Bedrooms,
			Beds:      d.Beds,
			Baths:     d.Baths,
		},
		Amenities:   append([]string(nil), d.Amenities...),
		Images:      append([]string(nil), d.Images...),
		Banned:      d.Banned,
		BanReason:   d.BanReason,
		Rating:      d.Rating,
		ReviewCount: d.ReviewCount,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
		Version:     d.Version,
	}, nil
}

type bookingDocument struct {
	ID           string        `bson:"_id"`
	PropertyID   string        `bson:"property_id"`
	GuestID      string        `bson:"guest_id"`
	Range        rangeDocument `bson:"range"`
	Guests       int           `bson:"guests"`
	Total        moneyDocument `bson:"total"`
	Status       string        `bson:"status"`
	CreatedAt    time.Time     `bson:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at"`
	CancelledAt  time.Time     `bson:"cancelled_at,omitempty"`
	CancelReason string        `bson:"cancel_reason,omitempty"`
	Version      int64         `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) (bookingDocument, error) {
	total, err := newMoneyDocument(b.Total)
	if err != nil {
		return bookingDocument{}, err
	}
	return bookingDocument{
		ID:           string(b.ID),
		PropertyID:   string(b.PropertyID),
		GuestID:      b.GuestID,
		Range:        newRangeDocument(b.Range),
		Guests:       b.Guests,
		Total:        total,
		Status:       string(b.Status),
		CreatedAt:    b.CreatedAt.UTC(),
		UpdatedAt:    b.UpdatedAt.UTC(),
		CancelledAt:  b.CancelledAt.UTC(),
		CancelReason: b.CancelReason,
		Version:      b.Version,
	}, nil
}

func (d bookingDocument) toAggregate() (*domainbooking.Booking, error) {
	total, err := d.Total.toMoney()
	if err != nil {
		return nil, err
	}
	return &domainbooking.Booking{
		ID:           domainbooking.BookingID(d.ID),
		PropertyID:   domainproperties.PropertyID(d.PropertyID),
		GuestID:      d.GuestID,
		Range:        d.Range.toRange(),
		Guests:       d.Guests,
		Total:        total,
		Status:       domainbooking.Status(d.Status),
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
		CancelledAt:  d.CancelledAt.UTC(),
		CancelReason: d.CancelReason,
		Version:      d.Version,
	}, nil
}

type blockDocument struct {
	ID         string        `bson:"_id"`
	PropertyID string        `bson:"property_id"`
	Range      rangeDocument `bson:"range"`
	Reason     string        `bson:"reason,omitempty"`
	CreatedAt  time.Time     `bson:"created_at"`
}

func newBlockDocument(b *domainbooking.BlockedDate) blockDocument {
	return blockDocument{
		ID:         string(b.ID),
		PropertyID: string(b.PropertyID),
		Range:      newRangeDocument(b.Range),
		Reason:     b.Reason,
		CreatedAt:  b.CreatedAt.UTC(),
	}
}

func (d blockDocument) toBlock() *domainbooking.BlockedDate {
	return &domainbooking.BlockedDate{
		ID:         domainbooking.BlockID(d.ID),
		PropertyID: domainproperties.PropertyID(d.PropertyID),
		Range:      d.Range.toRange(),
		Reason:     d.Reason,
		CreatedAt:  d.CreatedAt.UTC(),
	}
}

type notificationDocument struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Type      string    `bson:"type"`
	Title     string    `bson:"title"`
	Message   string    `bson:"message,omitempty"`
	Link      string    `bson:"link,omitempty"`
	Read      bool      `bson:"read"`
	CreatedAt time.Time `bson:"created_at"`
}

func newNotificationDocument(n domainnotifications.Notification) notificationDocument {
	return notificationDocument{
		ID:        string(n.ID),
		UserID:    n.UserID,
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		Read:      n.Read,
		CreatedAt: n.CreatedAt.UTC(),
	}
}

func (d notificationDocument) toNotification() domainnotifications.Notification {
	return domainnotifications.Notification{
		ID:        domainnotifications.NotificationID(d.ID),
		UserID:    d.UserID,
		Type:      domainnotifications.Type(d.Type),
		Title:     d.Title,
		Message:   d.Message,
		Link:      d.Link,
		Read:      d.Read,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

type favoriteDocument struct {
	UserID     string    `bson:"user_id"`
	PropertyID string    `bson:"property_id"`
	CreatedAt  time.Time `bson:"created_at"`
}

func (d favoriteDocument) toFavorite() domainfavorites.Favorite {
	return domainfavorites.Favorite{
		UserID:     d.UserID,
		PropertyID: domainproperties.PropertyID(d.PropertyID),
		CreatedAt:  d.CreatedAt.UTC(),
	}
}

type userDocument struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	Name         string    `bson:"name"`
	AvatarURL    string    `bson:"avatar_url,omitempty"`
	PasswordHash string    `bson:"password_hash"`
	Roles        []string  `bson:"roles"`
	Blocked      bool      `bson:"blocked"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func newUserDocument(u *domainuser.User) userDocument {
	roles := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, string(r))
	}
	return userDocument{
		ID:           string(u.ID),
		Email:        domainuser.NormalizeEmail(u.Email),
		Name:         u.Name,
		AvatarURL:    u.AvatarURL,
		PasswordHash: u.PasswordHash,
		Roles:        roles,
		Blocked:      u.Blocked,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	}
}

func (d userDocument) toUser() *domainuser.User {
	roles := make([]domainuser.Role, 0, len(d.Roles))
	for _, r := range d.Roles {
		roles = append(roles, domainuser.Role(r))
	}
	return &domainuser.User{
		ID:           domainuser.ID(d.ID),
		Email:        d.Email,
		Name:         d.Name,
		AvatarURL:    d.AvatarURL,
		PasswordHash: d.PasswordHash,
		Roles:        roles,
		Blocked:      d.Blocked,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

type sessionDocument struct {
	Token     string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Roles     []string  `bson:"roles"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

func newSessionDocument(s *domainauth.Session) sessionDocument {
	roles := make([]string, 0, len(s.Roles))
	for _, r := range s.Roles {
		roles = append(roles, string(r))
	}
	return sessionDocument{
		Token:     string(s.Token),
		UserID:    string(s.UserID),
		Roles:     roles,
		CreatedAt: s.CreatedAt.UTC(),
		ExpiresAt: s.ExpiresAt.UTC(),
	}
}

func (d sessionDocument) toSession() *domainauth.Session {
	roles := make([]domainuser.Role, 0, len(d.Roles))
	for _, r := range d.Roles {
		roles = append(roles, domainuser.Role(r))
	}
	return &domainauth.Session{
		Token:     domainauth.Token(d.Token),
		UserID:    domainuser.ID(d.UserID),
		Roles:     roles,
		CreatedAt: d.CreatedAt.UTC(),
		ExpiresAt: d.ExpiresAt.UTC(),
	}
}
