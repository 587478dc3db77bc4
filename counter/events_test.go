package counter

import (
	"testing"

	"github.com/tos-network/starkcounter"
)

func feltsOf(vs ...uint64) []*starkcounter.Felt {
	out := make([]*starkcounter.Felt, len(vs))
	for i, v := range vs {
		out[i] = starkcounter.NewFelt(v)
	}
	return out
}

func rawEvent(block, tx, oldValue, newValue, reason uint64) starkcounter.EmittedEvent {
	return starkcounter.EmittedEvent{
		FromAddress:     counterAddr,
		Keys:            []*starkcounter.Felt{CounterChangedSelector, starkcounter.NewFelt(0xacc)},
		Data:            feltsOf(oldValue, newValue, reason),
		BlockNumber:     block,
		TransactionHash: starkcounter.NewFelt(tx),
	}
}

func TestCounterChangedSelector(t *testing.T) {
	if have := CounterChangedSelector.Hex(); have != "0x26a616967ea091d5ab29cfdcc31763ff128ca32da54f4e6f0d81bea5cd753d0" {
		t.Fatalf("have %s", have)
	}
}

func TestDecodeCounterChanged(t *testing.T) {
	ev, err := DecodeCounterChanged(rawEvent(9, 0xaa, 3, 4, 0))
	if err != nil {
		t.Fatal(err)
	}
	if ev.Caller.Hex() != "0xacc" || ev.OldValue != 3 || ev.NewValue != 4 || ev.Reason != Increase || ev.BlockNumber != 9 {
		t.Fatalf("unexpected event: %+v", ev)
	}

	// Caller in data when it is not indexed.
	flat := starkcounter.EmittedEvent{
		Keys: []*starkcounter.Felt{CounterChangedSelector},
		Data: feltsOf(0xbee, 10, 0, 2),
	}
	ev, err = DecodeCounterChanged(flat)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Caller.Hex() != "0xbee" || ev.OldValue != 10 || ev.NewValue != 0 || ev.Reason != Reset {
		t.Fatalf("unexpected event: %+v", ev)
	}

	bad := []starkcounter.EmittedEvent{
		{},
		{Keys: feltsOf(1, 2), Data: feltsOf(1, 2, 0)},
		{Keys: []*starkcounter.Felt{CounterChangedSelector}, Data: feltsOf(1, 2, 0)},
		{Keys: []*starkcounter.Felt{CounterChangedSelector, starkcounter.NewFelt(1)}, Data: feltsOf(1, 2)},
		{Keys: []*starkcounter.Felt{CounterChangedSelector, starkcounter.NewFelt(1)}, Data: feltsOf(1, 2, 4)},
		{Keys: []*starkcounter.Felt{CounterChangedSelector, starkcounter.NewFelt(1)}, Data: feltsOf(1<<32, 2, 0)},
	}
	for i, ev := range bad {
		if _, err := DecodeCounterChanged(ev); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestChangeReason(t *testing.T) {
	tests := []struct {
		r    ChangeReason
		name string
		icon string
	}{
		{Increase, "Increase", "📈"},
		{Decrease, "Decrease", "📉"},
		{Reset, "Reset", "🔄"},
		{Set, "Set", "⚙️"},
		{ChangeReason(9), "Unknown", "📝"},
	}
	for _, tt := range tests {
		if tt.r.String() != tt.name || tt.r.Icon() != tt.icon {
			t.Fatalf("reason %d: have %s %s", tt.r, tt.r, tt.r.Icon())
		}
	}
}
