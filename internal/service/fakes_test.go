package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-sla/internal/clock"
	"github.com/spec-kit/helpdesk-sla/internal/domain"
	"github.com/spec-kit/helpdesk-sla/internal/events"
	"github.com/spec-kit/helpdesk-sla/internal/notify"
	"github.com/spec-kit/helpdesk-sla/internal/repository"
	"github.com/spec-kit/helpdesk-sla/internal/sla"
)

var brt = time.FixedZone("BRT", -3*60*60)

// 2025-03-07 is a Friday.
func at(day, hour, minute, second int) time.Time {
	return time.Date(2025, time.March, day, hour, minute, second, 0, brt)
}

func strPtr(v string) *string { return &v }

type fakeTickets struct {
	mu         sync.Mutex
	rows       map[string]domain.Ticket
	reassigned []string
	listErr    error
}

func newFakeTickets(tickets ...domain.Ticket) *fakeTickets {
	f := &fakeTickets{rows: make(map[string]domain.Ticket)}
	for _, t := range tickets {
		f.rows[t.ID] = t
	}
	return f
}

func (f *fakeTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (f *fakeTickets) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Ticket
	for _, t := range f.rows {
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			continue
		}
		if filter.UpdatedBefore != nil && !t.UpdatedAt.Before(*filter.UpdatedBefore) {
			continue
		}
		if filter.AfterID != nil && t.ID <= *filter.AfterID {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func (f *fakeTickets) UpdateSLADueDate(_ context.Context, id string, due *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok {
		return pgx.ErrNoRows
	}
	t.SLADueDate = due
	f.rows[id] = t
	return nil
}

func (f *fakeTickets) Reassign(_ context.Context, id, assigneeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok || t.Status.IsClosed() {
		return pgx.ErrNoRows
	}
	t.AssignedTo = &assigneeID
	f.rows[id] = t
	f.reassigned = append(f.reassigned, id)
	return nil
}

func (f *fakeTickets) get(id string) domain.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id]
}

type fakeSectors map[string]domain.Sector

func (f fakeSectors) GetByID(_ context.Context, id string) (*domain.Sector, error) {
	s, ok := f[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &s, nil
}

type fakeCalendars struct {
	hours    []domain.BusinessHours
	holidays []domain.Holiday
	calls    int
	mu       sync.Mutex
}

func officeHours() *fakeCalendars {
	f := &fakeCalendars{}
	for day := 1; day <= 5; day++ {
		f.hours = append(f.hours, domain.BusinessHours{DayOfWeek: day, StartTime: "09:00", EndTime: "18:00", IsActive: true})
	}
	return f
}

func (f *fakeCalendars) ListBusinessHours(context.Context, *string) ([]domain.BusinessHours, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.hours, nil
}

func (f *fakeCalendars) ListHolidays(context.Context, *string) ([]domain.Holiday, error) {
	return f.holidays, nil
}

type fakePauses struct {
	mu   sync.Mutex
	rows []domain.SLAPause
	seq  int
}

func (f *fakePauses) Create(_ context.Context, pause *domain.SLAPause) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.rows {
		if p.TicketID == pause.TicketID && p.ResumedAt == nil {
			return repository.ErrDuplicate
		}
	}
	f.seq++
	pause.ID = fmt.Sprintf("pause-%d", f.seq)
	f.rows = append(f.rows, *pause)
	return nil
}

func (f *fakePauses) Resume(_ context.Context, ticketID string, at time.Time) (*domain.SLAPause, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.rows {
		if p.TicketID == ticketID && p.ResumedAt == nil {
			resumed := at
			if resumed.Before(p.PausedAt) {
				resumed = p.PausedAt
			}
			f.rows[i].ResumedAt = &resumed
			out := f.rows[i]
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakePauses) ListByTicket(_ context.Context, ticketID string) ([]domain.SLAPause, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.SLAPause
	for _, p := range f.rows {
		if p.TicketID == ticketID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePauses) ListByTickets(ctx context.Context, ticketIDs []string) (map[string][]domain.SLAPause, error) {
	out := make(map[string][]domain.SLAPause)
	for _, id := range ticketIDs {
		rows, _ := f.ListByTicket(ctx, id)
		if len(rows) > 0 {
			out[id] = rows
		}
	}
	return out, nil
}

type fakeEscalations struct {
	mu        sync.Mutex
	rows      []domain.TicketEscalation
	failOn    map[string]error
	createErr error
}

func (f *fakeEscalations) Create(_ context.Context, e *domain.TicketEscalation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, row := range f.rows {
		if row.TicketID == e.TicketID && row.EscalationLevel == e.EscalationLevel {
			return repository.ErrDuplicate
		}
	}
	e.ID = fmt.Sprintf("esc-%d", len(f.rows)+1)
	f.rows = append(f.rows, *e)
	return nil
}

func (f *fakeEscalations) HighestLevel(_ context.Context, ticketID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOn[ticketID]; err != nil {
		return 0, err
	}
	highest := 0
	for _, row := range f.rows {
		if row.TicketID == ticketID && row.EscalationLevel > highest {
			highest = row.EscalationLevel
		}
	}
	return highest, nil
}

func (f *fakeEscalations) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketEscalation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TicketEscalation
	for _, row := range f.rows {
		if row.TicketID == ticketID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeEscalations) levels(ticketID string) []int {
	rows, _ := f.ListByTicket(context.Background(), ticketID)
	out := make([]int, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.EscalationLevel)
	}
	sort.Ints(out)
	return out
}

type fakeNotifications struct {
	mu   sync.Mutex
	rows []domain.Notification
	err  error
}

func (f *fakeNotifications) Create(_ context.Context, n *domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	n.ID = fmt.Sprintf("notification-%d", len(f.rows)+1)
	f.rows = append(f.rows, *n)
	return nil
}

func (f *fakeNotifications) recipients() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.rows))
	for _, n := range f.rows {
		out = append(out, n.UserID)
	}
	return out
}

type fakePusher struct {
	mu     sync.Mutex
	pushed map[string][]notify.Message
	err    error
}

func (f *fakePusher) Push(_ context.Context, userID string, msg notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.pushed == nil {
		f.pushed = make(map[string][]notify.Message)
	}
	f.pushed[userID] = append(f.pushed[userID], msg)
	return nil
}

type memoryDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (d *memoryDeduper) FirstSeen(_ context.Context, key string, _ time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	if d.seen == nil {
		d.seen = make(map[string]bool)
	}
	if d.seen[key] {
		return false, nil
	}
	d.seen[key] = true
	return true, nil
}

type configLookup map[string]*domain.SectorSLAConfig

func (c configLookup) FindSectorSLAConfig(_ context.Context, sectorID string, priority domain.TicketPriority) (*domain.SectorSLAConfig, error) {
	return c[sectorID+"/"+string(priority)], nil
}

type fakeHistory struct {
	mu   sync.Mutex
	rows []domain.TicketHistory
	err  error
}

func (f *fakeHistory) Create(_ context.Context, h *domain.TicketHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	h.ID = fmt.Sprintf("history-%d", len(f.rows)+1)
	f.rows = append(f.rows, *h)
	return nil
}

func (f *fakeHistory) changes(ticketID string) []domain.TicketChangeType {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.TicketChangeType
	for _, row := range f.rows {
		if row.TicketID == ticketID {
			out = append(out, row.ChangeType)
		}
	}
	return out
}

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordedEvents) handler(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordedEvents) ofType(t events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// harness wires the services over in-memory fakes.
type harness struct {
	clock         *clock.Manual
	tickets       *fakeTickets
	calendars     *fakeCalendars
	pauses        *fakePauses
	escalations   *fakeEscalations
	history       *fakeHistory
	notifications *fakeNotifications
	pusher        *fakePusher
	deduper       *memoryDeduper
	recorded      *recordedEvents
	lookup        configLookup
	sla           *SLAService
	escalation    *EscalationService
	automation    *AutomationService
}

func newHarness(now time.Time, tickets ...domain.Ticket) *harness {
	h := &harness{
		clock:         clock.NewManual(now),
		tickets:       newFakeTickets(tickets...),
		calendars:     officeHours(),
		pauses:        &fakePauses{},
		escalations:   &fakeEscalations{},
		history:       &fakeHistory{},
		notifications: &fakeNotifications{},
		pusher:        &fakePusher{},
		deduper:       &memoryDeduper{},
		recorded:      &recordedEvents{},
		lookup:        configLookup{},
	}

	dispatcher := events.NewInMemoryDispatcher(nil)
	NewNotificationService(dispatcher, h.notifications, h.pusher, h.clock, nil).RegisterHandlers()
	for _, t := range []events.EventType{events.EventSLAWarning, events.EventSLAEscalated, events.EventTicketNoResponse} {
		dispatcher.Subscribe(t, h.recorded.handler)
	}

	h.sla = NewSLAService(SLADependencies{
		TicketRepo:     h.tickets,
		SectorRepo:     fakeSectors{},
		CalendarRepo:   h.calendars,
		PauseRepo:      h.pauses,
		EscalationRepo: h.escalations,
		HistoryRepo:    h.history,
		Resolver: sla.NewPolicyResolver(h.lookup, sla.DefaultPolicies{
			domain.TicketPriorityLow:      72,
			domain.TicketPriorityMedium:   24,
			domain.TicketPriorityHigh:     8,
			domain.TicketPriorityCritical: 4,
		}),
		Evaluator: sla.NewEvaluator(sla.DefaultWarningPercent),
		Clock:     h.clock,
		Location:  brt,
	})
	h.escalation = NewEscalationService(EscalationDependencies{
		TicketRepo:     h.tickets,
		PauseRepo:      h.pauses,
		EscalationRepo: h.escalations,
		HistoryRepo:    h.history,
		SLA:            h.sla,
		Dispatcher:     dispatcher,
		Deduper:        h.deduper,
		Clock:          h.clock,
		BatchSize:      2,
		MaxLevel:       3,
	})
	h.automation = NewAutomationService(AutomationDependencies{
		TicketRepo: h.tickets,
		Dispatcher: dispatcher,
		Deduper:    h.deduper,
		Clock:      h.clock,
		BatchSize:  2,
	})
	return h
}

func openTicket(id string, created time.Time) domain.Ticket {
	return domain.Ticket{
		ID:         id,
		Title:      "printer on fire",
		SectorID:   strPtr("ti"),
		Priority:   domain.TicketPriorityHigh,
		Status:     domain.TicketStatusOpen,
		AssignedTo: strPtr("agent-1"),
		CreatedBy:  strPtr("requester-1"),
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

var errBoom = errors.New("boom")
