package order

import "errors"

// Region is the part of a rendered item a gesture started on
type Region int

const (
	RegionHandle Region = iota
	RegionContent
	RegionCheckbox
	RegionEditButton
	RegionDeleteButton
)

func (r Region) String() string {
	switch r {
	case RegionHandle:
		return "handle"
	case RegionContent:
		return "content"
	case RegionCheckbox:
		return "checkbox"
	case RegionEditButton:
		return "edit"
	case RegionDeleteButton:
		return "delete"
	default:
		return "unknown"
	}
}

var (
	// ErrNotHandle is returned when a drag starts anywhere but the drag handle
	ErrNotHandle = errors.New("drag must start on the handle")
	// ErrNoDrag is returned when dropping with no drag in progress
	ErrNoDrag = errors.New("no drag in progress")
)

// Drag tracks a single grab-and-drop gesture within one list.
// The zero value is idle.
type Drag struct {
	active bool
	fromID string
	overID string
}

// Start begins dragging id. Only RegionHandle may start a drag so that
// checkboxes and buttons keep their own behaviour.
func (d *Drag) Start(id string, region Region) error {
	if region != RegionHandle {
		return ErrNotHandle
	}
	d.active = true
	d.fromID = id
	d.overID = id
	return nil
}

// Over records the item currently under the dragged one
func (d *Drag) Over(id string) {
	if d.active {
		d.overID = id
	}
}

// Active reports whether a drag is in progress
func (d *Drag) Active() bool { return d.active }

// From returns the dragged id, or "" when idle
func (d *Drag) From() string { return d.fromID }

// Target returns the id last passed to Over
func (d *Drag) Target() string { return d.overID }

// Drop ends the gesture on toID and returns the pair to feed into Move
func (d *Drag) Drop(toID string) (fromID, target string, err error) {
	if !d.active {
		return "", "", ErrNoDrag
	}
	fromID = d.fromID
	d.Cancel()
	return fromID, toID, nil
}

// Cancel abandons the gesture
func (d *Drag) Cancel() {
	d.active = false
	d.fromID = ""
	d.overID = ""
}
