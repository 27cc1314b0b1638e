package event_test

import (
	"testing"

	"github.com/vmcmoto/motoportal/pkg/event"
)

func TestFireCallsListenersInOrder(t *testing.T) {
	bus := event.New()
	var got []string
	bus.Listen("model.saved", func(p interface{}) { got = append(got, "a:"+p.(string)) })
	bus.Listen("model.saved", func(p interface{}) { got = append(got, "b:"+p.(string)) })
	bus.Listen("other", func(interface{}) { t.Error("wrong event dispatched") })

	bus.Fire("model.saved", "x")

	if len(got) != 2 || got[0] != "a:x" || got[1] != "b:x" {
		t.Errorf("unexpected dispatch %v", got)
	}
}

func TestZeroValueBus(t *testing.T) {
	var bus event.Bus
	n := 0
	bus.Listen("photos.changed", func(interface{}) { n++ })
	bus.Fire("photos.changed", nil)
	if n != 1 {
		t.Errorf("expected 1 call, got %d", n)
	}
}

func TestNilBusDropsEvents(t *testing.T) {
	var bus *event.Bus
	bus.Fire("specs.changed", nil)
}

func TestListenerAddedDuringFireWaitsForNextEvent(t *testing.T) {
	bus := event.New()
	calls := 0
	bus.Listen("x", func(interface{}) {
		calls++
		bus.Listen("x", func(interface{}) { calls += 10 })
	})
	bus.Fire("x", nil)
	if calls != 1 {
		t.Errorf("calls = %d", calls)
	}
}
