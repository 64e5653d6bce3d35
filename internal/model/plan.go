package model

// PlanContent holds the editable body of a seating plan: the tables with
// their seat assignments, the guest list and the free-form settings bag.
// It is the unit captured by snapshots and serialized into the plans.document
// column.  Settings are opaque to the engine (color palettes, export
// preferences, ...) and are stored verbatim.
//
// Fields:
//  Tables   – ordered tables; table IDs are unique within the plan.
//  Guests   – ordered guest list; guest IDs are unique within the plan.
//  Settings – opaque key/value pairs, never validated by the engine.
type PlanContent struct {
	Tables   []Table           `json:"tables"`
	Guests   []Guest           `json:"guests"`
	Settings map[string]string `json:"settings,omitempty"`
}

// PlanDocument is a point-in-time copy of one seating plan together with
// its version counter.  The stored row is the only authoritative copy;
// everything handed to callers is a detached copy, so mutating a
// PlanDocument never affects the persisted plan until it is committed
// through the compare-and-swap path.
type PlanDocument struct {
	PlanContent
	Version uint64 `json:"version"` // incremented exactly once per committed batch
}

// Clone returns a deep copy of the content.  Seat slices, guest slices and
// the settings map are all duplicated so the copy shares no mutable state
// with the receiver.
func (p PlanContent) Clone() PlanContent {
	out := PlanContent{
		Tables: make([]Table, len(p.Tables)),
		Guests: make([]Guest, len(p.Guests)),
	}
	for i, t := range p.Tables {
		out.Tables[i] = t.Clone()
	}
	copy(out.Guests, p.Guests)
	if p.Settings != nil {
		out.Settings = make(map[string]string, len(p.Settings))
		for k, v := range p.Settings {
			out.Settings[k] = v
		}
	}
	return out
}

// Clone returns a deep copy of the document including its version.
func (d *PlanDocument) Clone() *PlanDocument {
	return &PlanDocument{PlanContent: d.PlanContent.Clone(), Version: d.Version}
}

// TableByID returns a pointer to the table with the given ID, or nil when
// no such table exists.  The pointer aliases the receiver's slice, so it
// must only be used on documents the caller owns.
func (p *PlanContent) TableByID(id uint64) *Table {
	for i := range p.Tables {
		if p.Tables[i].ID == id {
			return &p.Tables[i]
		}
	}
	return nil
}

// GuestByID returns a pointer to the guest with the given ID, or nil.
func (p *PlanContent) GuestByID(id uint64) *Guest {
	for i := range p.Guests {
		if p.Guests[i].ID == id {
			return &p.Guests[i]
		}
	}
	return nil
}
