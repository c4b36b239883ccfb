package dom

// Event is a synthetic page event. The zero Key/Shift fields only matter
// for keydown events.
type Event struct {
	Type   string
	Key    string
	Shift  bool
	target *Node

	defaultPrevented bool
	stopped          bool
}

// Target returns the node the event was dispatched on.
func (e *Event) Target() *Node { return e.target }

// PreventDefault suppresses the host page's default action for this event.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// DefaultPrevented reports whether any listener suppressed the default
// action.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// StopPropagation halts delivery to any further listeners.
func (e *Event) StopPropagation() { e.stopped = true }

// ListenerOptions mirror the addEventListener flags the adapters rely on.
type ListenerOptions struct {
	// Capture delivers the event on the way down, before target-phase and
	// bubbling listeners.
	Capture bool
	// Once removes the listener after its first delivery.
	Once bool
}

type listener struct {
	typ  string
	fn   func(*Event)
	opts ListenerOptions
}

// AddEventListener registers fn for events of the given type on this node.
func (n *Node) AddEventListener(typ string, fn func(*Event), opts ListenerOptions) {
	n.listeners = append(n.listeners, &listener{typ: typ, fn: fn, opts: opts})
}

// Dispatch delivers the event through the capture phase (root towards the
// target) and then the bubble phase (target back to the root), honoring
// StopPropagation and Once. It returns false when a listener called
// PreventDefault, in which case the host page must skip its default
// action.
func (n *Node) Dispatch(ev *Event) bool {
	ev.target = n

	// Ancestor chain, root first.
	var chain []*Node
	for p := n; p != nil; p = p.parent {
		chain = append([]*Node{p}, chain...)
	}

	// Capture phase.
	for _, node := range chain {
		node.deliver(ev, true)
		if ev.stopped {
			return !ev.defaultPrevented
		}
	}

	// Bubble phase, target included.
	for i := len(chain) - 1; i >= 0; i-- {
		chain[i].deliver(ev, false)
		if ev.stopped {
			return !ev.defaultPrevented
		}
	}

	return !ev.defaultPrevented
}

func (n *Node) deliver(ev *Event, capture bool) {
	// Snapshot: listeners may remove themselves (Once) during delivery.
	active := make([]*listener, len(n.listeners))
	copy(active, n.listeners)

	for _, l := range active {
		if l.typ != ev.Type || l.opts.Capture != capture {
			continue
		}
		// Target-phase listeners fire in both passes in a real DOM; keep
		// the simpler rule that they fire in their registered phase only.
		if l.opts.Once {
			n.removeListener(l)
		}
		l.fn(ev)
		if ev.stopped {
			return
		}
	}
}

func (n *Node) removeListener(target *listener) {
	for i, l := range n.listeners {
		if l == target {
			n.listeners = append(n.listeners[:i], n.listeners[i+1:]...)
			return
		}
	}
}
