package eventdb

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/tos-network/starkcounter"
	"github.com/tos-network/starkcounter/counter"
)

func change(block, tx uint64, oldValue, newValue uint32, reason counter.ChangeReason) *counter.CounterChanged {
	return &counter.CounterChanged{
		Caller:          starkcounter.NewFelt(0xacc),
		OldValue:        oldValue,
		NewValue:        newValue,
		Reason:          reason,
		BlockNumber:     block,
		TransactionHash: starkcounter.NewFelt(tx),
	}
}

func TestAppendLoad(t *testing.T) {
	db := NewMemory()
	defer db.Close()

	a, b := starkcounter.NewFelt(0xa), starkcounter.NewFelt(0xb)
	events, next, err := db.Load(a)
	if err != nil || len(events) != 0 || next != 0 {
		t.Fatalf("empty load = %v, %d, %v", events, next, err)
	}

	first := []*counter.CounterChanged{
		change(3, 0x10, 0, 1, counter.Increase),
		change(4, 0x11, 1, 2, counter.Increase),
	}
	second := []*counter.CounterChanged{
		change(9, 0x12, 2, 0, counter.Reset),
	}
	if err := db.Append(a, first, 5); err != nil {
		t.Fatal(err)
	}
	if err := db.Append(b, []*counter.CounterChanged{change(1, 0x20, 0, 7, counter.Set)}, 2); err != nil {
		t.Fatal(err)
	}
	if err := db.Append(a, second, 9); err != nil {
		t.Fatal(err)
	}
	// A sync that found nothing still moves the start block.
	if err := db.Append(a, nil, 12); err != nil {
		t.Fatal(err)
	}

	events, next, err = db.Load(a)
	if err != nil {
		t.Fatal(err)
	}
	want := append(first, second...)
	if !reflect.DeepEqual(events, want) {
		t.Fatalf("wrong events of a\nhave %s\nwant %s", spew.Sdump(events), spew.Sdump(want))
	}
	if next != 12 {
		t.Fatalf("next of a = %d, want 12", next)
	}

	events, next, err = db.Load(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Reason != counter.Set || next != 2 {
		t.Fatalf("wrong history of b: %s next %d", spew.Sdump(events), next)
	}
}

func TestReopen(t *testing.T) {
	file := filepath.Join(t.TempDir(), "eventdb")
	contract := starkcounter.NewFelt(0xc0)

	db, err := New(file, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Append(contract, []*counter.CounterChanged{change(7, 0x1, 4, 5, counter.Increase)}, 8); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db, err = New(file, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	events, next, err := db.Load(contract)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].NewValue != 5 || next != 8 {
		t.Fatalf("reopened history = %s next %d", spew.Sdump(events), next)
	}
}

func TestFeedRestore(t *testing.T) {
	db := NewMemory()
	defer db.Close()

	contract := starkcounter.NewFelt(0xc0)
	stored := []*counter.CounterChanged{
		change(2, 0x1, 0, 1, counter.Increase),
		change(6, 0x2, 1, 2, counter.Increase),
	}
	if err := db.Append(contract, stored, 6); err != nil {
		t.Fatal(err)
	}

	feed := counter.NewFeed(nil, contract, counter.FeedConfig{FromBlock: 5, Store: db})
	n, err := feed.Restore()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || feed.Len() != 1 {
		t.Fatalf("restored %d events, feed has %d, want 1", n, feed.Len())
	}
	if got := feed.Recent(1)[0]; got.BlockNumber != 6 {
		t.Fatalf("restored wrong event: %s", spew.Sdump(got))
	}
}
