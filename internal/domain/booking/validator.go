package booking

import (
	"time"

	"chakastays/internal/domain/properties"
	"chakastays/internal/domain/shared/daterange"
)

// State is the position of a single request in the pre-flight check.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateAccepted   State = "accepted"
	StateRejected   State = "rejected"
)

// Reason explains a rejection. Reasons are evaluated in the order declared here.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonPropertyNotFound Reason = "property_not_found"
	ReasonPropertyBanned   Reason = "property_banned"
	ReasonInvalidRange     Reason = "invalid_range"
	ReasonInvalidGuests    Reason = "invalid_guests"
	ReasonCapacityExceeded Reason = "capacity_exceeded"
	ReasonDatesUnavailable Reason = "dates_unavailable"
)

// Availability answers whether a range is free for a property.
type Availability interface {
	IsFree(daterange.DateRange) bool
}

// Request carries a raw booking attempt. Start and End are not required to form a valid range.
type Request struct {
	Property *properties.Property
	Start    time.Time
	End      time.Time
	Guests   int
	Today    time.Time
}

type Decision struct {
	State  State
	Reason Reason
	Range  daterange.DateRange
}

func (d Decision) Accepted() bool {
	return d.State == StateAccepted
}

// Validator performs the advisory local check. The persisted booking is still subject
// to the data service's guarded procedure.
type Validator struct {
	state State
	last  Decision
}

func NewValidator() *Validator {
	return &Validator{state: StateIdle}
}

func (v *Validator) State() State {
	return v.state
}

func (v *Validator) Last() Decision {
	return v.last
}

// Evaluate runs the check and leaves the validator in Accepted or Rejected.
func (v *Validator) Evaluate(req Request, availability Availability) Decision {
	v.state = StateValidating
	d := Validate(req, availability)
	v.state = d.State
	v.last = d
	return d
}

// Reset returns the validator to Idle so it can take the next request.
func (v *Validator) Reset() {
	v.state = StateIdle
	v.last = Decision{}
}

// Validate is the stateless form of Evaluate.
func Validate(req Request, availability Availability) Decision {
	if req.Property == nil {
		return reject(ReasonPropertyNotFound, daterange.DateRange{})
	}
	if req.Property.Banned {
		return reject(ReasonPropertyBanned, daterange.DateRange{})
	}
	today := daterange.Day(req.Today)
	dr, err := daterange.New(req.Start, req.End)
	if err != nil || dr.Start.Before(today) {
		return reject(ReasonInvalidRange, daterange.DateRange{})
	}
	if req.Guests < 1 {
		return reject(ReasonInvalidGuests, dr)
	}
	if req.Guests > req.Property.Capacity.MaxGuests {
		return reject(ReasonCapacityExceeded, dr)
	}
	if availability != nil && !availability.IsFree(dr) {
		return reject(ReasonDatesUnavailable, dr)
	}
	return Decision{State: StateAccepted, Range: dr}
}

func reject(reason Reason, dr daterange.DateRange) Decision {
	return Decision{State: StateRejected, Reason: reason, Range: dr}
}
