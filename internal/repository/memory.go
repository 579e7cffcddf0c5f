package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/Shivanand-hulikatti/resource-booking/internal/model"
	"github.com/Shivanand-hulikatti/resource-booking/internal/slot"
)

type dayKey struct {
	resourceID string
	date       string
}

type linkKey struct {
	resourceID  string
	eventTypeID string
}

// MemoryStore keeps everything in process memory. Writers are serialized
// behind one lock and a transaction stages its writes until the body
// returns, so an aborted body leaves no trace and readers never see a
// partial commit.
type MemoryStore struct {
	mu sync.RWMutex

	resources  map[string]model.Resource
	eventTypes map[string]model.EventType
	schedules  map[string]model.Schedule
	links      map[linkKey]struct{}

	daily    map[dayKey][]int
	quantity map[dayKey][slot.SlotsPerDay]int

	bookings map[string]model.Booking
	uids     map[string]string
	items    map[string][]model.BookingItem
	history  map[string][]model.BookingHistory
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		resources:  make(map[string]model.Resource),
		eventTypes: make(map[string]model.EventType),
		schedules:  make(map[string]model.Schedule),
		links:      make(map[linkKey]struct{}),
		daily:      make(map[dayKey][]int),
		quantity:   make(map[dayKey][slot.SlotsPerDay]int),
		bookings:   make(map[string]model.Booking),
		uids:       make(map[string]string),
		items:      make(map[string][]model.BookingItem),
		history:    make(map[string][]model.BookingHistory),
	}
}

// Close is a no-op.
func (s *MemoryStore) Close() {}

// WithTx runs fn with the writer lock held and applies its staged writes
// only if fn returns nil. fn must use tx exclusively; calling back into s
// from fn deadlocks.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:    s,
		daily:    make(map[dayKey][]int),
		quantity: make(map[dayKey][slot.SlotsPerDay]int),
		bookings: make(map[string]model.Booking),
		items:    make(map[string][]model.BookingItem),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// ─── Availability ────────────────────────────────────────────────────────────

func (s *MemoryStore) GetResource(_ context.Context, id string) (*model.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resourceLocked(id)
}

func (s *MemoryStore) resourceLocked(id string) (*model.Resource, error) {
	r, ok := s.resources[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *MemoryStore) GetSchedule(_ context.Context, id string) (*model.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scheduleLocked(id)
}

func (s *MemoryStore) scheduleLocked(id string) (*model.Schedule, error) {
	sc, ok := s.schedules[id]
	if !ok {
		return nil, ErrNotFound
	}
	sc.Weekly = slices.Clone(sc.Weekly)
	sc.Overrides = slices.Clone(sc.Overrides)
	return &sc, nil
}

func (s *MemoryStore) GetDailyAvailability(_ context.Context, resourceID, date string) (*model.DailyAvailability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &model.DailyAvailability{
		ResourceID: resourceID,
		Date:       date,
		BusySlots:  cloneSlots(s.daily[dayKey{resourceID, date}]),
	}, nil
}

func (s *MemoryStore) GetQuantityAvailability(_ context.Context, resourceID, date string) (*model.QuantityAvailability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &model.QuantityAvailability{
		ResourceID: resourceID,
		Date:       date,
		Slots:      s.quantity[dayKey{resourceID, date}],
	}, nil
}

// ─── Bookings ────────────────────────────────────────────────────────────────

func (s *MemoryStore) GetEventType(_ context.Context, id string) (*model.EventType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventTypeLocked(id)
}

func (s *MemoryStore) eventTypeLocked(id string) (*model.EventType, error) {
	e, ok := s.eventTypes[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.LengthInMinutesOptions = slices.Clone(e.LengthInMinutesOptions)
	e.Locations = slices.Clone(e.Locations)
	return &e, nil
}

func (s *MemoryStore) IsLinked(_ context.Context, resourceID, eventTypeID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.links[linkKey{resourceID, eventTypeID}]
	return ok, nil
}

func (s *MemoryStore) GetBooking(_ context.Context, id string) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bookingLocked(id)
}

func (s *MemoryStore) bookingLocked(id string) (*model.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	b.Items = slices.Clone(s.items[id])
	return &b, nil
}

func (s *MemoryStore) GetBookingByUID(_ context.Context, uid string) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.uids[uid]
	if !ok {
		return nil, ErrNotFound
	}
	return s.bookingLocked(id)
}

func (s *MemoryStore) ListBookings(_ context.Context, f model.BookingFilter) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Booking
	for id, b := range s.bookings {
		if !s.matchesLocked(id, &b, f) {
			continue
		}
		b.Items = slices.Clone(s.items[id])
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *MemoryStore) matchesLocked(id string, b *model.Booking, f model.BookingFilter) bool {
	if f.OrganizationID != "" && b.OrganizationID != f.OrganizationID {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.From != 0 && b.End <= f.From {
		return false
	}
	if f.To != 0 && b.Start >= f.To {
		return false
	}
	if f.ResourceID != "" && b.ResourceID != f.ResourceID {
		found := false
		for _, it := range s.items[id] {
			if it.ResourceID == f.ResourceID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s *MemoryStore) ListHistory(_ context.Context, bookingID string) ([]model.BookingHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.bookings[bookingID]; !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(s.history[bookingID]), nil
}

// ─── Registry ────────────────────────────────────────────────────────────────

func (s *MemoryStore) CreateResource(_ context.Context, r *model.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resources[r.ID]; ok {
		return fmt.Errorf("resource %s: %w", r.ID, ErrDuplicate)
	}
	s.resources[r.ID] = *r
	return nil
}

func (s *MemoryStore) UpdateResource(_ context.Context, r *model.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resources[r.ID]; !ok {
		return ErrNotFound
	}
	s.resources[r.ID] = *r
	return nil
}

func (s *MemoryStore) DeleteResource(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resources[id]; !ok {
		return ErrNotFound
	}
	for k := range s.links {
		if k.resourceID == id {
			return ErrInUse
		}
	}
	for bid, b := range s.bookings {
		if b.ResourceID == id {
			return ErrInUse
		}
		for _, it := range s.items[bid] {
			if it.ResourceID == id {
				return ErrInUse
			}
		}
	}
	delete(s.resources, id)
	return nil
}

func (s *MemoryStore) ListResources(_ context.Context, organizationID string) ([]model.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Resource
	for _, r := range s.resources {
		if organizationID == "" || r.OrganizationID == organizationID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CreateEventType(_ context.Context, e *model.EventType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.slugFreeLocked(e); err != nil {
		return err
	}
	s.eventTypes[e.ID] = *e
	return nil
}

func (s *MemoryStore) UpdateEventType(_ context.Context, e *model.EventType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.eventTypes[e.ID]; !ok {
		return ErrNotFound
	}
	if err := s.slugFreeLocked(e); err != nil {
		return err
	}
	s.eventTypes[e.ID] = *e
	return nil
}

func (s *MemoryStore) slugFreeLocked(e *model.EventType) error {
	for id, other := range s.eventTypes {
		if id != e.ID && other.OrganizationID == e.OrganizationID && other.Slug == e.Slug {
			return fmt.Errorf("event type slug %q: %w", e.Slug, ErrDuplicate)
		}
	}
	return nil
}

func (s *MemoryStore) DeleteEventType(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.eventTypes[id]; !ok {
		return ErrNotFound
	}
	for _, b := range s.bookings {
		if b.EventTypeID == id {
			return ErrInUse
		}
	}
	for k := range s.links {
		if k.eventTypeID == id {
			delete(s.links, k)
		}
	}
	delete(s.eventTypes, id)
	return nil
}

func (s *MemoryStore) ListEventTypes(_ context.Context, organizationID string) ([]model.EventType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.EventType
	for _, e := range s.eventTypes {
		if organizationID == "" || e.OrganizationID == organizationID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (s *MemoryStore) CreateSchedule(_ context.Context, sc *model.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules[sc.ID] = *sc
	return nil
}

func (s *MemoryStore) UpdateSchedule(_ context.Context, sc *model.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.schedules[sc.ID]; !ok {
		return ErrNotFound
	}
	s.schedules[sc.ID] = *sc
	return nil
}

func (s *MemoryStore) DeleteSchedule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.schedules[id]; !ok {
		return ErrNotFound
	}
	for _, r := range s.resources {
		if r.ScheduleID == id {
			return ErrInUse
		}
	}
	delete(s.schedules, id)
	return nil
}

func (s *MemoryStore) ListSchedules(_ context.Context, organizationID string) ([]model.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Schedule
	for _, sc := range s.schedules {
		if organizationID == "" || sc.OrganizationID == organizationID {
			out = append(out, sc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) LinkEventType(_ context.Context, resourceID, eventTypeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resources[resourceID]; !ok {
		return fmt.Errorf("resource %s: %w", resourceID, ErrNotFound)
	}
	if _, ok := s.eventTypes[eventTypeID]; !ok {
		return fmt.Errorf("event type %s: %w", eventTypeID, ErrNotFound)
	}
	s.links[linkKey{resourceID, eventTypeID}] = struct{}{}
	return nil
}

func (s *MemoryStore) UnlinkEventType(_ context.Context, resourceID, eventTypeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := linkKey{resourceID, eventTypeID}
	if _, ok := s.links[k]; !ok {
		return ErrNotFound
	}
	delete(s.links, k)
	return nil
}

func (s *MemoryStore) LinkedResources(_ context.Context, eventTypeID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for k := range s.links {
		if k.eventTypeID == eventTypeID {
			out = append(out, k.resourceID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ─── Transaction ─────────────────────────────────────────────────────────────

// memTx overlays staged writes on the committed maps. The store's writer
// lock is held for the lifetime of the transaction.
type memTx struct {
	store *MemoryStore

	daily    map[dayKey][]int
	quantity map[dayKey][slot.SlotsPerDay]int
	bookings map[string]model.Booking
	items    map[string][]model.BookingItem
	history  []model.BookingHistory
}

func (t *memTx) GetResource(_ context.Context, id string) (*model.Resource, error) {
	return t.store.resourceLocked(id)
}

func (t *memTx) GetSchedule(_ context.Context, id string) (*model.Schedule, error) {
	return t.store.scheduleLocked(id)
}

func (t *memTx) GetEventType(_ context.Context, id string) (*model.EventType, error) {
	return t.store.eventTypeLocked(id)
}

func (t *memTx) IsLinked(_ context.Context, resourceID, eventTypeID string) (bool, error) {
	_, ok := t.store.links[linkKey{resourceID, eventTypeID}]
	return ok, nil
}

func (t *memTx) GetDailyAvailability(_ context.Context, resourceID, date string) (*model.DailyAvailability, error) {
	k := dayKey{resourceID, date}
	busy, ok := t.daily[k]
	if !ok {
		busy = t.store.daily[k]
	}
	return &model.DailyAvailability{ResourceID: resourceID, Date: date, BusySlots: cloneSlots(busy)}, nil
}

func (t *memTx) GetQuantityAvailability(_ context.Context, resourceID, date string) (*model.QuantityAvailability, error) {
	k := dayKey{resourceID, date}
	counts, ok := t.quantity[k]
	if !ok {
		counts = t.store.quantity[k]
	}
	return &model.QuantityAvailability{ResourceID: resourceID, Date: date, Slots: counts}, nil
}

func (t *memTx) GetBooking(_ context.Context, id string) (*model.Booking, error) {
	if b, ok := t.bookings[id]; ok {
		b.Items = slices.Clone(t.items[id])
		return &b, nil
	}
	return t.store.bookingLocked(id)
}

func (t *memTx) PutDailyAvailability(_ context.Context, rec *model.DailyAvailability) error {
	t.daily[dayKey{rec.ResourceID, rec.Date}] = cloneSlots(rec.BusySlots)
	return nil
}

func (t *memTx) PutQuantityAvailability(_ context.Context, rec *model.QuantityAvailability) error {
	t.quantity[dayKey{rec.ResourceID, rec.Date}] = rec.Slots
	return nil
}

func (t *memTx) InsertBooking(_ context.Context, b *model.Booking) error {
	if _, ok := t.store.uids[b.UID]; ok {
		return fmt.Errorf("booking uid: %w", ErrDuplicate)
	}
	stored := *b
	stored.Items = nil
	stored.ManagementToken = ""
	t.bookings[b.ID] = stored
	t.items[b.ID] = slices.Clone(b.Items)
	return nil
}

func (t *memTx) UpdateBooking(_ context.Context, b *model.Booking) error {
	current, ok := t.bookings[b.ID]
	if !ok {
		if current, ok = t.store.bookings[b.ID]; !ok {
			return ErrNotFound
		}
	}
	current.Status = b.Status
	current.CancellationReason = b.CancellationReason
	current.CancelledAt = b.CancelledAt
	current.UpdatedAt = b.UpdatedAt
	t.bookings[b.ID] = current
	return nil
}

func (t *memTx) AppendHistory(_ context.Context, h *model.BookingHistory) error {
	t.history = append(t.history, *h)
	return nil
}

func (t *memTx) commit() {
	s := t.store
	for k, busy := range t.daily {
		s.daily[k] = busy
	}
	for k, counts := range t.quantity {
		s.quantity[k] = counts
	}
	for id, b := range t.bookings {
		s.bookings[id] = b
		s.uids[b.UID] = id
	}
	for id, items := range t.items {
		s.items[id] = items
	}
	for _, h := range t.history {
		s.history[h.BookingID] = append(s.history[h.BookingID], h)
	}
}

func cloneSlots(in []int) []int {
	if in == nil {
		return []int{}
	}
	return slices.Clone(in)
}

var _ Store = (*MemoryStore)(nil)
