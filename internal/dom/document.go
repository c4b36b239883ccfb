package dom

// Document is the root of a page's element tree plus its structural-change
// subscription. Mutation callbacks fire after every top-level mutation, or
// once per Batch, the bounded-rate coalescing the capture loop depends
// on: a burst of appends inside one Batch produces exactly one callback.
type Document struct {
	root       *Node
	observers  map[int]func()
	nextObsID  int
	batchDepth int
	dirty      bool
}

func NewDocument() *Document {
	d := &Document{observers: make(map[int]func())}
	d.root = NewNode("body")
	d.root.setDoc(d)
	return d
}

// Root returns the body element.
func (d *Document) Root() *Node { return d.root }

// Observe subscribes to structural changes. The returned function
// unsubscribes.
func (d *Document) Observe(fn func()) func() {
	d.nextObsID++
	id := d.nextObsID
	d.observers[id] = fn
	return func() { delete(d.observers, id) }
}

// Batch coalesces all mutations performed inside fn into a single
// observer notification, mirroring how a framework commit lands many node
// insertions in one mutation burst.
func (d *Document) Batch(fn func()) {
	d.batchDepth++
	fn()
	d.batchDepth--
	if d.batchDepth == 0 && d.dirty {
		d.dirty = false
		d.fire()
	}
}

func (d *Document) notify() {
	if d.batchDepth > 0 {
		d.dirty = true
		return
	}
	d.fire()
}

func (d *Document) fire() {
	// Snapshot: observers may unsubscribe while being notified.
	fns := make([]func(), 0, len(d.observers))
	for _, fn := range d.observers {
		fns = append(fns, fn)
	}
	for _, fn := range fns {
		fn()
	}
}

// QuerySelector returns the first node matching the selector in document
// order, or nil.
func (d *Document) QuerySelector(selector string) *Node {
	matches := d.query(selector, true)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

// QuerySelectorAll returns every matching node in document order. An
// invalid selector matches nothing.
func (d *Document) QuerySelectorAll(selector string) []*Node {
	return d.query(selector, false)
}

func (d *Document) query(selector string, firstOnly bool) []*Node {
	sel, err := parseSelector(selector)
	if err != nil {
		return nil
	}

	var matches []*Node
	d.root.walk(func(n *Node) {
		if firstOnly && len(matches) > 0 {
			return
		}
		if sel.matches(n) {
			matches = append(matches, n)
		}
	})
	return matches
}
