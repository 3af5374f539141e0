// Package automation evaluates ticket rules built from a closed set of conditions.
package automation

import (
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// Field names a ticket attribute a condition can test.
type Field string

const (
	FieldStatus           Field = "status"
	FieldPriority         Field = "priority"
	FieldSectorID         Field = "sector_id"
	FieldTitle            Field = "title"
	FieldAssignedTo       Field = "assigned_to"
	FieldHoursSinceUpdate Field = "hours_since_update"
	FieldHoursSinceCreate Field = "hours_since_create"
)

type fieldKind int

const (
	kindUnknown fieldKind = iota
	kindText
	kindNumber
)

func (f Field) kind() fieldKind {
	switch f {
	case FieldStatus, FieldPriority, FieldSectorID, FieldTitle, FieldAssignedTo:
		return kindText
	case FieldHoursSinceUpdate, FieldHoursSinceCreate:
		return kindNumber
	}
	return kindUnknown
}

// Facts is the view of a ticket that conditions read.
type Facts struct {
	ticket domain.Ticket
	now    time.Time
}

// NewFacts captures ticket as seen at now.
func NewFacts(ticket domain.Ticket, now time.Time) Facts {
	return Facts{ticket: ticket, now: now}
}

// Text returns a text field; missing optional values are "".
func (f Facts) Text(field Field) string {
	switch field {
	case FieldStatus:
		return string(f.ticket.Status)
	case FieldPriority:
		return string(f.ticket.Priority)
	case FieldTitle:
		return f.ticket.Title
	case FieldSectorID:
		if f.ticket.SectorID != nil {
			return *f.ticket.SectorID
		}
	case FieldAssignedTo:
		if f.ticket.AssignedTo != nil {
			return *f.ticket.AssignedTo
		}
	}
	return ""
}

// Number returns a numeric field.
func (f Facts) Number(field Field) float64 {
	switch field {
	case FieldHoursSinceUpdate:
		return f.now.Sub(f.ticket.UpdatedAt).Hours()
	case FieldHoursSinceCreate:
		return f.now.Sub(f.ticket.CreatedAt).Hours()
	}
	return 0
}

// Condition is implemented only by the types in this package.
type Condition interface {
	Match(f Facts) bool
	condition()
}

// Equals matches a text field exactly.
type Equals struct {
	Field Field
	Value string
}

// NotEquals matches when a text field differs.
type NotEquals struct {
	Field Field
	Value string
}

// Contains matches a case-insensitive substring of a text field.
type Contains struct {
	Field Field
	Value string
}

// In matches when a text field equals any of the values.
type In struct {
	Field  Field
	Values []string
}

// GreaterThan matches a numeric field strictly above Value.
type GreaterThan struct {
	Field Field
	Value float64
}

// LessThan matches a numeric field strictly below Value.
type LessThan struct {
	Field Field
	Value float64
}

// All matches when every condition matches. An empty All matches everything.
type All []Condition

// Any matches when at least one condition matches.
type Any []Condition

func (c Equals) Match(f Facts) bool    { return f.Text(c.Field) == c.Value }
func (c NotEquals) Match(f Facts) bool { return f.Text(c.Field) != c.Value }

func (c Contains) Match(f Facts) bool {
	return strings.Contains(strings.ToLower(f.Text(c.Field)), strings.ToLower(c.Value))
}

func (c In) Match(f Facts) bool {
	value := f.Text(c.Field)
	for _, candidate := range c.Values {
		if value == candidate {
			return true
		}
	}
	return false
}

func (c GreaterThan) Match(f Facts) bool { return f.Number(c.Field) > c.Value }
func (c LessThan) Match(f Facts) bool    { return f.Number(c.Field) < c.Value }

func (c All) Match(f Facts) bool {
	for _, cond := range c {
		if !cond.Match(f) {
			return false
		}
	}
	return true
}

func (c Any) Match(f Facts) bool {
	for _, cond := range c {
		if cond.Match(f) {
			return true
		}
	}
	return false
}

func (Equals) condition()      {}
func (NotEquals) condition()   {}
func (Contains) condition()    {}
func (In) condition()          {}
func (GreaterThan) condition() {}
func (LessThan) condition()    {}
func (All) condition()         {}
func (Any) condition()         {}

// Rule names a condition tree.
type Rule struct {
	Name string
	When Condition
}

// Matches reports whether the ticket satisfies the rule at now.
func (r Rule) Matches(ticket domain.Ticket, now time.Time) bool {
	if r.When == nil {
		return false
	}
	return r.When.Match(NewFacts(ticket, now))
}

// NoResponseRule matches open tickets without activity for days, plus any extra conditions.
func NoResponseRule(days int, extra ...Condition) Rule {
	statuses := make([]string, 0, len(domain.OpenTicketStatuses))
	for _, s := range domain.OpenTicketStatuses {
		statuses = append(statuses, string(s))
	}
	when := All{
		In{Field: FieldStatus, Values: statuses},
		GreaterThan{Field: FieldHoursSinceUpdate, Value: float64(days) * 24},
	}
	when = append(when, extra...)
	return Rule{Name: "no_response", When: when}
}
