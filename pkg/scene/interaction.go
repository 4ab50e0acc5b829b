package scene

import (
	"errors"
	"fmt"
	"strings"
)

// PointerEvent is the kind of pointer event a renderer reports for an item.
type PointerEvent int

// Pointer events.
const (
	PointerEnter PointerEvent = iota
	PointerLeave
	PointerClick
)

// String returns the event name.
func (e PointerEvent) String() string {
	switch e {
	case PointerEnter:
		return "enter"
	case PointerLeave:
		return "leave"
	case PointerClick:
		return "click"
	default:
		return "unknown"
	}
}

// ErrUnknownPointerEvent is returned by ParsePointerEvent for unsupported names.
var ErrUnknownPointerEvent = errors.New("unknown pointer event")

// ParsePointerEvent converts "enter", "leave" or "click" into a PointerEvent.
// "hover" is accepted as an alias of "enter".
func ParsePointerEvent(s string) (PointerEvent, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "enter", "hover":
		return PointerEnter, nil
	case "leave":
		return PointerLeave, nil
	case "click":
		return PointerClick, nil
	default:
		return 0, fmt.Errorf("%w: %q (want enter, leave or click)", ErrUnknownPointerEvent, s)
	}
}

// idle marks the Idle hover state.
const idle = -1

// Selection is emitted when a file is clicked.
type Selection struct {
	Path     string `json:"path"      yaml:"path"`
	CommitID string `json:"commit_id" yaml:"commit_id"`
}

// Tooltip is the hover content for one item.
type Tooltip struct {
	Index        int     `json:"index"         yaml:"index"`
	Path         string  `json:"path"          yaml:"path"`
	Churn        int     `json:"churn"         yaml:"churn"`
	HotspotScore float64 `json:"hotspot_score" yaml:"hotspot_score"`
}

// SelectFunc receives selections.
type SelectFunc func(Selection)

// Dispatcher tracks hover state over the current drawables and turns clicks
// into selections. The states are Idle and Hovering(i). Renderers only report
// (index, event) pairs; how they pick items is their business.
type Dispatcher struct {
	items    []PositionedFile
	commitID string
	hovered  int
	onSelect SelectFunc
}

// NewDispatcher returns an idle dispatcher. onSelect may be nil.
func NewDispatcher(onSelect SelectFunc) *Dispatcher {
	return &Dispatcher{hovered: idle, onSelect: onSelect}
}

// SetItems replaces the drawables and the active commit. Indices from the
// previous item list are meaningless afterwards, so hover returns to Idle.
func (d *Dispatcher) SetItems(items []PositionedFile, commitID string) {
	d.items = items
	d.commitID = commitID
	d.hovered = idle
}

// Dispatch applies one pointer event. It returns the selection for a click on
// a valid item while a commit is active; every other event returns ok=false.
func (d *Dispatcher) Dispatch(index int, event PointerEvent) (sel Selection, ok bool) {
	if index < 0 || index >= len(d.items) {
		return Selection{}, false
	}

	switch event {
	case PointerEnter:
		d.hovered = index
	case PointerLeave:
		// A leave for anything but the hovered item is stale.
		if d.hovered == index {
			d.hovered = idle
		}
	case PointerClick:
		if d.commitID == "" {
			return Selection{}, false
		}

		sel = Selection{Path: d.items[index].Record.Path, CommitID: d.commitID}

		if d.onSelect != nil {
			d.onSelect(sel)
		}

		return sel, true
	}

	return Selection{}, false
}

// Hovered returns the tooltip of the hovered item, or ok=false when Idle.
func (d *Dispatcher) Hovered() (Tooltip, bool) {
	if d.hovered == idle {
		return Tooltip{}, false
	}

	rec := d.items[d.hovered].Record

	return Tooltip{
		Index:        d.hovered,
		Path:         rec.Path,
		Churn:        rec.Churn,
		HotspotScore: rec.HotspotScore,
	}, true
}

// HoveredIndex returns the hovered index, or -1 when Idle.
func (d *Dispatcher) HoveredIndex() int { return d.hovered }
