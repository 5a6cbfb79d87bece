package dom

import (
	"golang.org/x/net/html"
)

// Event is dispatched to listeners registered on a node and its ancestors.
type Event struct {
	Type          string
	Target        *html.Node
	CurrentTarget *html.Node
	Detail        any

	stopped bool
}

// StopPropagation prevents the event from reaching further ancestors.
func (e *Event) StopPropagation() { e.stopped = true }

// Listener is an event callback with pointer identity, so registrations can
// be compared and removed the way DOM listeners are.
type Listener struct {
	fn func(*Event)
}

// ListenerFunc wraps fn in a new Listener. Each call returns a distinct
// listener.
func ListenerFunc(fn func(*Event)) *Listener {
	return &Listener{fn: fn}
}

// Handle invokes the listener.
func (l *Listener) Handle(e *Event) {
	if l != nil && l.fn != nil {
		l.fn(e)
	}
}

// AddEventListener registers l for events of type typ on n. Registering the
// same listener twice has no effect.
func (d *Document) AddEventListener(n *html.Node, typ string, l *Listener) {
	if n == nil || l == nil {
		return
	}
	table, _ := d.listeners.Get(n)
	if table == nil {
		table = make(map[string][]*Listener)
	}
	for _, existing := range table[typ] {
		if existing == l {
			return
		}
	}
	table[typ] = append(table[typ], l)
	d.listeners.Set(n, table)
}

// RemoveEventListener unregisters l.
func (d *Document) RemoveEventListener(n *html.Node, typ string, l *Listener) {
	table, ok := d.listeners.Get(n)
	if !ok {
		return
	}
	list := table[typ]
	for i, existing := range list {
		if existing == l {
			table[typ] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(table[typ]) == 0 {
		delete(table, typ)
	}
	if len(table) == 0 {
		d.listeners.Delete(n)
	}
}

// ListenerCount returns how many listeners of type typ are registered on n.
func (d *Document) ListenerCount(n *html.Node, typ string) int {
	table, _ := d.listeners.Get(n)
	return len(table[typ])
}

// Dispatch delivers e to target and then to each ancestor until propagation
// is stopped. It returns the number of listeners invoked.
func (d *Document) Dispatch(target *html.Node, e *Event) int {
	e.Target = target
	invoked := 0
	for n := target; n != nil && !e.stopped; n = n.Parent {
		table, _ := d.listeners.Get(n)
		if len(table[e.Type]) == 0 {
			continue
		}
		list := make([]*Listener, len(table[e.Type]))
		copy(list, table[e.Type])

		e.CurrentTarget = n
		for _, l := range list {
			l.Handle(e)
			invoked++
		}
	}
	return invoked
}

// Click dispatches a click event at el.
func (d *Document) Click(el *html.Node) int {
	return d.Dispatch(el, &Event{Type: "click"})
}
