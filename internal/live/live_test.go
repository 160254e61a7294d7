package live

import "testing"

func TestSubscribeAndUnsubscribe(t *testing.T) {
	r := New()
	id := r.Subscribe(nil, "key1")
	if _, ok := r.byID[id]; !ok {
		t.Fatalf("expected subscription to be registered")
	}
	r.Unsubscribe(id)
	if _, ok := r.byID[id]; ok {
		t.Fatalf("expected subscription to be removed")
	}
}

func TestSubscribeMultipleUnderSameKey(t *testing.T) {
	r := New()
	id1 := r.Subscribe(nil, "key1")
	id2 := r.Subscribe(nil, "key1")
	if len(r.byKey["key1"]) != 2 {
		t.Fatalf("expected 2 subscribers under key1, got %d", len(r.byKey["key1"]))
	}
	r.Unsubscribe(id1)
	if len(r.byKey["key1"]) != 1 {
		t.Fatalf("expected 1 subscriber remaining, got %d", len(r.byKey["key1"]))
	}
	r.Unsubscribe(id2)
	if len(r.byKey["key1"]) != 0 {
		t.Fatalf("expected 0 subscribers remaining, got %d", len(r.byKey["key1"]))
	}
}

func TestUnsubscribeUnknownIDIsNoop(t *testing.T) {
	r := New()
	r.Unsubscribe("does-not-exist")
}
