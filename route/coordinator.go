// Package route parses navigation URLs and tracks which views are on screen.
//
// A note opened from the list renders as a modal over the list and pushes the
// note path onto history. Loading a note URL directly renders it as a full
// page. Closing a modal goes back one step, restoring the list exactly as it
// was.
package route

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNoModal   = errors.New("route: no modal open")
	ErrNoHistory = errors.New("route: no previous location")
)

// State is the coordinator state.
type State int

const (
	StateListOnly State = iota
	StateListWithModal
	StateDetailPageOnly
)

func (s State) String() string {
	switch s {
	case StateListOnly:
		return "list"
	case StateListWithModal:
		return "list+modal"
	case StateDetailPageOnly:
		return "detail"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// View is what is on screen: the current location and, while a modal is
// open, the list location rendered behind it.
type View struct {
	State      State
	Location   Location
	Background *Location
}

// ListLocation is the list on screen, if any.
func (v View) ListLocation() (Location, bool) {
	switch v.State {
	case StateListOnly:
		return v.Location, true
	case StateListWithModal:
		return *v.Background, true
	}
	return Location{}, false
}

// NoteID is the note on screen, if any.
func (v View) NoteID() (string, bool) {
	if v.State == StateListOnly {
		return "", false
	}
	return v.Location.NoteID, true
}

// Modal reports whether the note is shown over the list.
func (v View) Modal() bool { return v.State == StateListWithModal }

// Coordinator is the navigation state machine. History is a stack of views;
// the top is what is on screen.
type Coordinator struct {
	mu      sync.Mutex
	history []View
}

// NewCoordinator returns a coordinator with empty history. Call Enter with the
// first location before anything else.
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Enter handles a direct load or reload. History restarts at loc. A note
// location renders as a full page.
func (c *Coordinator) Enter(loc Location) View {
	v := View{State: StateListOnly, Location: loc}
	if loc.Kind == KindNote {
		v.State = StateDetailPageOnly
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = []View{v}
	return v
}

// Navigate handles in-app navigation and pushes the result. Opening a note
// from a list, or from a modal, renders it as a modal over that list.
func (c *Coordinator) Navigate(loc Location) View {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.history) == 0 {
		v := View{State: StateListOnly, Location: loc}
		if loc.Kind == KindNote {
			v.State = StateDetailPageOnly
		}
		c.history = []View{v}
		return v
	}

	cur := c.history[len(c.history)-1]
	next := View{State: StateListOnly, Location: loc}
	if loc.Kind == KindNote {
		switch cur.State {
		case StateListOnly:
			bg := cur.Location
			next = View{State: StateListWithModal, Location: loc, Background: &bg}
		case StateListWithModal:
			next = View{State: StateListWithModal, Location: loc, Background: cur.Background}
		default:
			next = View{State: StateDetailPageOnly, Location: loc}
		}
	}
	c.history = append(c.history, next)
	return next
}

// Activate opens note id from whatever is on screen.
func (c *Coordinator) Activate(id string) View {
	return c.Navigate(Note(id))
}

// Close dismisses the open modal by going back one step.
func (c *Coordinator) Close() (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.history) == 0 || c.history[len(c.history)-1].State != StateListWithModal {
		return c.currentLocked(), ErrNoModal
	}
	return c.popLocked()
}

// Back goes back one step in history.
func (c *Coordinator) Back() (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.popLocked()
}

// Current is the view on screen.
func (c *Coordinator) Current() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentLocked()
}

// Depth is the number of history entries.
func (c *Coordinator) Depth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.history)
}

func (c *Coordinator) currentLocked() View {
	if len(c.history) == 0 {
		return View{}
	}
	return c.history[len(c.history)-1]
}

func (c *Coordinator) popLocked() (View, error) {
	if len(c.history) < 2 {
		return c.currentLocked(), ErrNoHistory
	}
	c.history = c.history[:len(c.history)-1]
	return c.history[len(c.history)-1], nil
}
