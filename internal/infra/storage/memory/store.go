package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"chakastays/internal/app/dataservice"
	domainauth "chakastays/internal/domain/auth"
	domainbooking "chakastays/internal/domain/booking"
	domainfavorites "chakastays/internal/domain/favorites"
	domainnotifications "chakastays/internal/domain/notifications"
	domainproperties "chakastays/internal/domain/properties"
	domainuser "chakastays/internal/domain/user"
)

type favoriteKey struct {
	user     string
	property domainproperties.PropertyID
}

// Store is an in-memory data service for development and tests. A single lock
// serializes the guarded procedures the way a transaction would.
type Store struct {
	mu            sync.RWMutex
	properties    map[domainproperties.PropertyID]*domainproperties.Property
	bookings      map[domainbooking.BookingID]*domainbooking.Booking
	blocks        map[domainbooking.BlockID]*domainbooking.BlockedDate
	notifications map[domainnotifications.NotificationID]domainnotifications.Notification
	favorites     map[favoriteKey]domainfavorites.Favorite

	users    *UserRepository
	sessions *SessionStore
}

func NewStore() *Store {
	return &Store{
		properties:    make(map[domainproperties.PropertyID]*domainproperties.Property),
		bookings:      make(map[domainbooking.BookingID]*domainbooking.Booking),
		blocks:        make(map[domainbooking.BlockID]*domainbooking.BlockedDate),
		notifications: make(map[domainnotifications.NotificationID]domainnotifications.Notification),
		favorites:     make(map[favoriteKey]domainfavorites.Favorite),
		users:         NewUserRepository(),
		sessions:      NewSessionStore(),
	}
}

func (s *Store) Properties() dataservice.Properties { return propertyView{s} }
func (s *Store) Bookings() dataservice.Bookings { return bookingView{s} }
func (s *Store) Blocks() dataservice.Blocks { return blockView{s} }
func (s *Store) Notifications() domainnotifications.Repository { return notificationView{s} }
func (s *Store) Favorites() domainfavorites.Repository { return favoriteView{s} }
func (s *Store) Users() domainuser.Repository { return s.users }
func (s *Store) Sessions() domainauth.SessionStore { return s.sessions }
func (s *Store) Procedures() dataservice.Procedures { return procedures{s} }

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

type propertyView struct{ s *Store }

func (v propertyView) ByID(ctx context.Context, id domainproperties.PropertyID) (*domainproperties.Property, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	p, ok := v.s.properties[id]
	if !ok {
		return nil, dataservice.NotFound(domainproperties.ErrNotFound)
	}
	return p.Clone(), nil
}

func (v propertyView) ByHost(ctx context.Context, host domainproperties.HostID) ([]*domainproperties.Property, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	out := make([]*domainproperties.Property, 0)
	for _, p := range v.s.properties {
		if p.Host == host {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (v propertyView) Search(ctx context.Context, params domainproperties.SearchParams) (domainproperties.SearchResult, error) {
	opts := params.Normalized()
	v.s.mu.RLock()
	matches := make([]*domainproperties.Property, 0, len(v.s.properties))
	for _, p := range v.s.properties {
		if err := ctx.Err(); err != nil {
			v.s.mu.RUnlock()
			return domainproperties.SearchResult{}, err
		}
		if opts.Matches(p) {
			matches = append(matches, p.Clone())
		}
	}
	v.s.mu.RUnlock()

	// Map order is random; fix ties before the stable sort.
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	opts.SortProperties(matches)
	total := len(matches)
	if opts.Offset >= total {
		return domainproperties.SearchResult{Items: []*domainproperties.Property{}, Total: total}, nil
	}
	end := opts.Offset + opts.Limit
	if end > total {
		end = total
	}
	return domainproperties.SearchResult{Items: matches[opts.Offset:end], Total: total}, nil
}

// Save rejects stale writes: the stored version must match the caller's copy.
func (v propertyView) Save(ctx context.Context, p *domainproperties.Property) error {
	if p == nil || p.ID == "" {
		return domainproperties.ErrIDRequired
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if existing, ok := v.s.properties[p.ID]; ok && existing.Version != p.Version {
		return dataservice.ErrConflict
	}
	p.Version++
	v.s.properties[p.ID] = p.Clone()
	return nil
}

type bookingView struct{ s *Store }

func (v bookingView) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	b, ok := v.s.bookings[id]
	if !ok {
		return nil, dataservice.NotFound(domainbooking.ErrBookingNotFound)
	}
	return b.Clone(), nil
}

func (v bookingView) ActiveByProperty(ctx context.Context, propertyID domainproperties.PropertyID, today time.Time) ([]*domainbooking.Booking, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.activeBookings(propertyID, today), nil
}

func (v bookingView) ByProperties(ctx context.Context, ids []domainproperties.PropertyID) ([]*domainbooking.Booking, error) {
	wanted := make(map[domainproperties.PropertyID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.collectBookings(func(b *domainbooking.Booking) bool {
		_, ok := wanted[b.PropertyID]
		return ok
	}), nil
}

func (v bookingView) ByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.collectBookings(func(b *domainbooking.Booking) bool { return b.GuestID == guestID }), nil
}

func (v bookingView) ByHost(ctx context.Context, hostID domainproperties.HostID) ([]*domainbooking.Booking, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.collectBookings(func(b *domainbooking.Booking) bool {
		p, ok := v.s.properties[b.PropertyID]
		return ok && p.Host == hostID
	}), nil
}

// collectBookings expects s.mu to be held.
func (s *Store) collectBookings(keep func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	out := make([]*domainbooking.Booking, 0)
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) activeBookings(propertyID domainproperties.PropertyID, today time.Time) []*domainbooking.Booking {
	return s.collectBookings(func(b *domainbooking.Booking) bool {
		return b.PropertyID == propertyID && b.Active() && !b.Range.End.Before(today)
	})
}

func (s *Store) activeBlocks(propertyID domainproperties.PropertyID, today time.Time) []*domainbooking.BlockedDate {
	out := make([]*domainbooking.BlockedDate, 0)
	for _, b := range s.blocks {
		if b.PropertyID == propertyID && !b.Range.End.Before(today) {
			c := *b
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Range.Start.Before(out[j].Range.Start) })
	return out
}

type blockView struct{ s *Store }

func (v blockView) ByID(ctx context.Context, id domainbooking.BlockID) (*domainbooking.BlockedDate, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	b, ok := v.s.blocks[id]
	if !ok {
		return nil, dataservice.NotFound(domainbooking.ErrBlockNotFound)
	}
	c := *b
	return &c, nil
}

func (v blockView) ActiveByProperty(ctx context.Context, propertyID domainproperties.PropertyID, today time.Time) ([]*domainbooking.BlockedDate, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.activeBlocks(propertyID, today), nil
}

func (v blockView) Insert(ctx context.Context, actor dataservice.Actor, block *domainbooking.BlockedDate, policy dataservice.BlockOverlapPolicy) error {
	if block == nil {
		return domainbooking.ErrBlockIDMissing
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, err := v.s.ownedProperty(actor, block.PropertyID); err != nil {
		return err
	}
	if policy != dataservice.BlockAllow {
		for _, b := range v.s.bookings {
			if b.PropertyID == block.PropertyID && b.Active() && b.Range.Overlaps(block.Range) {
				return dataservice.ErrDatesTaken
			}
		}
	}
	if _, exists := v.s.blocks[block.ID]; exists {
		return dataservice.ErrConflict
	}
	c := *block
	v.s.blocks[block.ID] = &c
	return nil
}

func (v blockView) Delete(ctx context.Context, actor dataservice.Actor, propertyID domainproperties.PropertyID, id domainbooking.BlockID) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, err := v.s.ownedProperty(actor, propertyID); err != nil {
		return err
	}
	b, ok := v.s.blocks[id]
	if !ok || b.PropertyID != propertyID {
		return dataservice.NotFound(domainbooking.ErrBlockNotFound)
	}
	delete(v.s.blocks, id)
	return nil
}

// ownedProperty expects s.mu to be held.
func (s *Store) ownedProperty(actor dataservice.Actor, id domainproperties.PropertyID) (*domainproperties.Property, error) {
	p, ok := s.properties[id]
	if !ok {
		return nil, dataservice.NotFound(domainproperties.ErrNotFound)
	}
	if !p.OwnedBy(domainproperties.HostID(actor.UserID)) {
		return nil, dataservice.ErrForbidden
	}
	return p, nil
}

type notificationView struct{ s *Store }

func (v notificationView) ByUser(ctx context.Context, userID string) ([]domainnotifications.Notification, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	out := make([]domainnotifications.Notification, 0)
	for _, n := range v.s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (v notificationView) MarkRead(ctx context.Context, userID string, id domainnotifications.NotificationID) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	n, ok := v.s.notifications[id]
	if !ok || n.UserID != userID {
		return dataservice.NotFound(domainnotifications.ErrNotificationNotFound)
	}
	n.Read = true
	v.s.notifications[id] = n
	return nil
}

// MarkAllRead applies to every id or to none.
func (v notificationView) MarkAllRead(ctx context.Context, userID string, ids []domainnotifications.NotificationID) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, id := range ids {
		n, ok := v.s.notifications[id]
		if !ok || n.UserID != userID {
			return dataservice.NotFound(domainnotifications.ErrNotificationNotFound)
		}
	}
	for _, id := range ids {
		n := v.s.notifications[id]
		n.Read = true
		v.s.notifications[id] = n
	}
	return nil
}

func (v notificationView) Insert(ctx context.Context, n domainnotifications.Notification) error {
	if n.ID == "" {
		return domainnotifications.ErrIDRequired
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, exists := v.s.notifications[n.ID]; exists {
		return dataservice.ErrConflict
	}
	v.s.notifications[n.ID] = n
	return nil
}

type favoriteView struct{ s *Store }

func (v favoriteView) ByUser(ctx context.Context, userID string) ([]domainfavorites.Favorite, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	out := make([]domainfavorites.Favorite, 0)
	for k, f := range v.s.favorites {
		if k.user == userID {
			out = append(out, f)
		}
	}
	domainfavorites.SortNewestFirst(out)
	return out, nil
}

func (v favoriteView) Add(ctx context.Context, fav domainfavorites.Favorite) error {
	key := favoriteKey{user: fav.UserID, property: fav.PropertyID}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.properties[fav.PropertyID]; !ok {
		return dataservice.NotFound(domainproperties.ErrNotFound)
	}
	if _, exists := v.s.favorites[key]; exists {
		return nil
	}
	v.s.favorites[key] = fav
	return nil
}

func (v favoriteView) Remove(ctx context.Context, userID string, propertyID domainproperties.PropertyID) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	delete(v.s.favorites, favoriteKey{user: userID, property: propertyID})
	return nil
}

var _ dataservice.Service = (*Store)(nil)
