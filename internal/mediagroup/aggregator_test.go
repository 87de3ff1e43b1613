package mediagroup

import (
	"testing"
	"time"
)

func TestAggregatorOrdersByMessageID(t *testing.T) {
	flushed := make(chan Group, 1)
	a := New(Options{Debounce: 20 * time.Millisecond, OnFlush: func(g Group) { flushed <- g }})

	a.Add(Item{ChatID: 1, UserID: 2, MediaGroupID: "g", MessageID: 12, FileID: "b"})
	a.Add(Item{ChatID: 1, UserID: 2, MediaGroupID: "g", MessageID: 11, FileID: "a", Caption: "outfit"})
	a.Add(Item{ChatID: 1, UserID: 2, MediaGroupID: "g", MessageID: 13, FileID: "c"})

	select {
	case g := <-flushed:
		if len(g.FileIDs) != 3 || g.FileIDs[0] != "a" || g.FileIDs[2] != "c" {
			t.Fatalf("file ids = %v", g.FileIDs)
		}
		if g.Caption != "outfit" || g.UserID != 2 {
			t.Fatalf("group = %+v", g)
		}
	case <-time.After(time.Second):
		t.Fatal("group was not flushed")
	}
	if a.Pending() != 0 {
		t.Fatal("flushed group must be removed")
	}
}

func TestAggregatorRejects(t *testing.T) {
	a := New(Options{Debounce: time.Hour})
	if a.Add(Item{ChatID: 1, FileID: "x"}) {
		t.Fatal("item without a group id must be dropped")
	}
	for i := 0; i < maxItems; i++ {
		if !a.Add(Item{ChatID: 1, MediaGroupID: "g", MessageID: i, FileID: "f"}) {
			t.Fatalf("item %d rejected", i)
		}
	}
	if a.Add(Item{ChatID: 1, MediaGroupID: "g", MessageID: 99, FileID: "f"}) {
		t.Fatal("album over the limit must be dropped")
	}

	a.Close()
	if a.Pending() != 0 {
		t.Fatal("close must drop pending albums")
	}
	if a.Add(Item{ChatID: 1, MediaGroupID: "h", FileID: "f"}) {
		t.Fatal("closed aggregator accepted an item")
	}
}
