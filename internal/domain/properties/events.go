package properties

import "time"

type PropertyListed struct {
	PropertyID PropertyID `json:"property_id"`
	HostID     HostID     `json:"host_id"`
	At         time.Time  `json:"at"`
}

func (e PropertyListed) EventName() string     { return "property.listed" }
func (e PropertyListed) AggregateID() string   { return string(e.PropertyID) }
func (e PropertyListed) OccurredAt() time.Time { return e.At }

type PropertyBanned struct {
	PropertyID PropertyID `json:"property_id"`
	HostID     HostID     `json:"host_id"`
	Reason     string     `json:"reason"`
	At         time.Time  `json:"at"`
}

func (e PropertyBanned) EventName() string     { return "property.banned" }
func (e PropertyBanned) AggregateID() string   { return string(e.PropertyID) }
func (e PropertyBanned) OccurredAt() time.Time { return e.At }

type PropertyUnbanned struct {
	PropertyID PropertyID `json:"property_id"`
	HostID     HostID     `json:"host_id"`
	At         time.Time  `json:"at"`
}

func (e PropertyUnbanned) EventName() string     { return "property.unbanned" }
func (e PropertyUnbanned) AggregateID() string   { return string(e.PropertyID) }
func (e PropertyUnbanned) OccurredAt() time.Time { return e.At }

type PropertyRemoved struct {
	PropertyID PropertyID `json:"property_id"`
	HostID     HostID     `json:"host_id"`
	At         time.Time  `json:"at"`
}

func (e PropertyRemoved) EventName() string     { return "property.removed" }
func (e PropertyRemoved) AggregateID() string   { return string(e.PropertyID) }
func (e PropertyRemoved) OccurredAt() time.Time { return e.At }
