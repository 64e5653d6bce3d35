package model

// Guest is one invitee on the plan's guest list.  A guest may be unseated,
// i.e. absent from every table's seat list, and still remain on the plan.
//
// Fields:
//  ID   – unique within the plan; caller- or server-assigned.
//  Name – required, never empty.
//  Note – free text (dietary requirements, plus-one info, ...).
//  Tag  – free-form grouping label (e.g. "family", "work").
//  RSVP – free-form response state (e.g. "yes", "no", "pending").
type Guest struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
	Note string `json:"note,omitempty"`
	Tag  string `json:"tag,omitempty"`
	RSVP string `json:"rsvp,omitempty"`
}
