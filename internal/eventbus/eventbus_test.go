package eventbus

import "testing"

func TestPublishSubscribe(t *testing.T) {
	bus := New[string]()
	ch := bus.Subscribe()
	bus.Publish("risk-produced")
	if v := <-ch; v != "risk-produced" {
		t.Fatalf("expected risk-produced, got %v", v)
	}
	bus.Unsubscribe(ch)
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := New[int]()
	ch := bus.Subscribe()
	for i := 0; i < 100; i++ {
		bus.Publish(i) // must never block
	}
	if len(ch) != cap(ch) {
		t.Fatalf("buffer should be full, got %d/%d", len(ch), cap(ch))
	}
}

func TestClose(t *testing.T) {
	bus := New[int]()
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Close()
	if _, ok := <-ch1; ok {
		t.Fatal("ch1 should be closed")
	}
	if _, ok := <-ch2; ok {
		t.Fatal("ch2 should be closed")
	}
	bus.Publish(1) // no-op, must not panic

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("unsubscribe after close panicked: %v", r)
		}
	}()
	bus.Unsubscribe(ch1)
}
