package dom

import (
	"testing"
)

func TestQuerySelector_Attributes(t *testing.T) {
	doc := NewDocument()
	user := NewNode("div").SetAttr("data-message-author-role", "user")
	assistant := NewNode("div").SetAttr("data-message-author-role", "assistant")
	doc.Root().AppendChild(user)
	doc.Root().AppendChild(assistant)

	tests := []struct {
		selector string
		want     int
	}{
		{`div[data-message-author-role]`, 2},
		{`div[data-message-author-role="user"]`, 1},
		{`div[data-message-author-role="system"]`, 0},
		{`[data-message-author-role*="assist"]`, 1},
		{`span[data-message-author-role]`, 0},
	}

	for _, tt := range tests {
		got := len(doc.QuerySelectorAll(tt.selector))
		if got != tt.want {
			t.Errorf("QuerySelectorAll(%q) returned %d nodes, want %d", tt.selector, got, tt.want)
		}
	}
}

func TestQuerySelector_IDAndClass(t *testing.T) {
	doc := NewDocument()
	composer := NewNode("textarea").SetAttr("id", "prompt-textarea")
	msg := NewNode("div").SetAttr("class", "prose user-message")
	doc.Root().AppendChild(composer)
	doc.Root().AppendChild(msg)

	if doc.QuerySelector("#prompt-textarea") != composer {
		t.Error("expected id selector to find the composer")
	}
	if doc.QuerySelector(".user-message") != msg {
		t.Error("expected class selector to find the message")
	}
	if doc.QuerySelector(`div[class*="prose"]`) != msg {
		t.Error("expected class-substring selector to find the message")
	}
	if doc.QuerySelector(".missing") != nil {
		t.Error("expected nil for unmatched class")
	}
}

func TestQuerySelectorAll_DocumentOrder(t *testing.T) {
	doc := NewDocument()
	first := NewNode("p").SetAttr("class", "msg")
	second := NewNode("p").SetAttr("class", "msg")
	third := NewNode("p").SetAttr("class", "msg")
	wrapper := NewNode("div")
	doc.Root().AppendChild(first)
	doc.Root().AppendChild(wrapper)
	wrapper.AppendChild(second)
	doc.Root().AppendChild(third)

	got := doc.QuerySelectorAll(".msg")
	if len(got) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(got))
	}
	if got[0] != first || got[1] != second || got[2] != third {
		t.Error("nodes not in document order")
	}
}

func TestQuerySelector_InvalidSelectorMatchesNothing(t *testing.T) {
	doc := NewDocument()
	doc.Root().AppendChild(NewNode("div"))

	if got := doc.QuerySelectorAll("div[unterminated"); len(got) != 0 {
		t.Errorf("expected no matches for invalid selector, got %d", len(got))
	}
}

func TestText_Subtree(t *testing.T) {
	doc := NewDocument()
	msg := NewNode("div")
	para := NewNode("p")
	para.SetText("first line")
	code := NewNode("code")
	code.SetText("second line")
	doc.Root().AppendChild(msg)
	msg.AppendChild(para)
	msg.AppendChild(code)

	if got := msg.Text(); got != "first line\nsecond line" {
		t.Errorf("unexpected subtree text: %q", got)
	}
}

func TestObserve_NotifiesOnMutation(t *testing.T) {
	doc := NewDocument()

	calls := 0
	unsub := doc.Observe(func() { calls++ })

	doc.Root().AppendChild(NewNode("div"))
	if calls != 1 {
		t.Errorf("expected 1 notification after append, got %d", calls)
	}

	unsub()
	doc.Root().AppendChild(NewNode("div"))
	if calls != 1 {
		t.Errorf("expected no notification after unsubscribe, got %d", calls)
	}
}

func TestBatch_CoalescesBurst(t *testing.T) {
	doc := NewDocument()

	calls := 0
	doc.Observe(func() { calls++ })

	doc.Batch(func() {
		for i := 0; i < 10; i++ {
			doc.Root().AppendChild(NewNode("div"))
		}
	})

	if calls != 1 {
		t.Errorf("expected one coalesced notification for the burst, got %d", calls)
	}
}

func TestBatch_NoMutationNoNotification(t *testing.T) {
	doc := NewDocument()

	calls := 0
	doc.Observe(func() { calls++ })

	doc.Batch(func() {})
	if calls != 0 {
		t.Errorf("expected no notification for empty batch, got %d", calls)
	}
}

func TestRemoveChild_DetachesFromQueries(t *testing.T) {
	doc := NewDocument()
	msg := NewNode("div").SetAttr("class", "msg")
	doc.Root().AppendChild(msg)

	doc.Root().RemoveChild(msg)
	if got := doc.QuerySelectorAll(".msg"); len(got) != 0 {
		t.Errorf("removed node still matched, got %d", len(got))
	}
}

func TestDispatch_CaptureThenBubble(t *testing.T) {
	doc := NewDocument()
	button := NewNode("button")
	doc.Root().AppendChild(button)

	var order []string
	doc.Root().AddEventListener("click", func(*Event) { order = append(order, "root-capture") }, ListenerOptions{Capture: true})
	doc.Root().AddEventListener("click", func(*Event) { order = append(order, "root-bubble") }, ListenerOptions{})
	button.AddEventListener("click", func(*Event) { order = append(order, "target") }, ListenerOptions{Capture: true})

	button.Dispatch(&Event{Type: "click"})

	want := []string{"root-capture", "target", "root-bubble"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("expected %v, got %v", want, order)
			break
		}
	}
}

func TestDispatch_PreventDefault(t *testing.T) {
	doc := NewDocument()
	field := NewNode("textarea")
	doc.Root().AppendChild(field)

	field.AddEventListener("keydown", func(ev *Event) {
		if ev.Key == "Enter" && !ev.Shift {
			ev.PreventDefault()
		}
	}, ListenerOptions{Capture: true})

	if field.Dispatch(&Event{Type: "keydown", Key: "Enter"}) {
		t.Error("expected Dispatch to report prevented default")
	}
	if !field.Dispatch(&Event{Type: "keydown", Key: "Enter", Shift: true}) {
		t.Error("shift+enter should not be prevented")
	}
}

func TestDispatch_OnceListener(t *testing.T) {
	doc := NewDocument()
	button := NewNode("button")
	doc.Root().AppendChild(button)

	calls := 0
	button.AddEventListener("click", func(*Event) { calls++ }, ListenerOptions{Capture: true, Once: true})

	button.Dispatch(&Event{Type: "click"})
	button.Dispatch(&Event{Type: "click"})

	if calls != 1 {
		t.Errorf("once listener fired %d times", calls)
	}
}

func TestDispatch_StopPropagation(t *testing.T) {
	doc := NewDocument()
	button := NewNode("button")
	doc.Root().AppendChild(button)

	bubbled := false
	button.AddEventListener("click", func(ev *Event) { ev.StopPropagation() }, ListenerOptions{Capture: true})
	doc.Root().AddEventListener("click", func(*Event) { bubbled = true }, ListenerOptions{})

	button.Dispatch(&Event{Type: "click"})
	if bubbled {
		t.Error("event propagated past StopPropagation")
	}
}

func TestSetValue_DoesNotNotifyObservers(t *testing.T) {
	// Value writes are property writes, not structural mutations; only the
	// synthesized input/change events make them visible to the host.
	doc := NewDocument()
	field := NewNode("textarea")
	doc.Root().AppendChild(field)

	calls := 0
	doc.Observe(func() { calls++ })
	field.SetValue("hello")

	if calls != 0 {
		t.Errorf("value write should not fire structural observers, got %d", calls)
	}
	if field.Value() != "hello" {
		t.Errorf("value not stored: %q", field.Value())
	}
}
