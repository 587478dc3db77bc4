package counter

import (
	"errors"
	"fmt"

	"github.com/tos-network/starkcounter"
)

// ChangeReason is the CounterChanged reason enum, encoded on chain as its
// variant index.
type ChangeReason uint8

const (
	Increase ChangeReason = iota
	Decrease
	Reset
	Set
)

func (r ChangeReason) String() string {
	switch r {
	case Increase:
		return "Increase"
	case Decrease:
		return "Decrease"
	case Reset:
		return "Reset"
	case Set:
		return "Set"
	}
	return "Unknown"
}

func (r ChangeReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *ChangeReason) UnmarshalText(input []byte) error {
	for v := Increase; v <= Set; v++ {
		if v.String() == string(input) {
			*r = v
			return nil
		}
	}
	return fmt.Errorf("invalid change reason %q", input)
}

// Icon returns the glyph shown next to the reason in the change feed.
func (r ChangeReason) Icon() string {
	switch r {
	case Increase:
		return "📈"
	case Decrease:
		return "📉"
	case Reset:
		return "🔄"
	case Set:
		return "⚙️"
	}
	return "📝"
}

// CounterChangedSelector is the key identifying CounterChanged events.
var CounterChangedSelector = starkcounter.Selector("CounterChanged")

var errMalformedEvent = errors.New("malformed CounterChanged event")

// CounterChanged is a decoded CounterChanged event.
type CounterChanged struct {
	Caller          *starkcounter.Felt `json:"caller"`
	OldValue        uint32             `json:"old_value"`
	NewValue        uint32             `json:"new_value"`
	Reason          ChangeReason       `json:"reason"`
	BlockNumber     uint64             `json:"block_number"`
	BlockHash       *starkcounter.Felt `json:"block_hash,omitempty"`
	TransactionHash *starkcounter.Felt `json:"transaction_hash"`
}

// DecodeCounterChanged decodes a raw event. The caller is read from the
// second key when it is indexed and from the first data word otherwise.
func DecodeCounterChanged(ev starkcounter.EmittedEvent) (*CounterChanged, error) {
	if len(ev.Keys) == 0 || ev.Keys[0].Cmp(CounterChangedSelector) != 0 {
		return nil, fmt.Errorf("%w: unexpected selector", errMalformedEvent)
	}
	data := ev.Data
	var caller *starkcounter.Felt
	switch {
	case len(ev.Keys) >= 2:
		caller = ev.Keys[1]
	case len(data) >= 4:
		caller, data = data[0], data[1:]
	default:
		return nil, fmt.Errorf("%w: missing caller", errMalformedEvent)
	}
	if len(data) < 3 {
		return nil, fmt.Errorf("%w: have %d data words, want 3", errMalformedEvent, len(data))
	}
	oldValue, ok := feltToU32(data[0])
	if !ok {
		return nil, fmt.Errorf("%w: old value %v out of range", errMalformedEvent, data[0])
	}
	newValue, ok := feltToU32(data[1])
	if !ok {
		return nil, fmt.Errorf("%w: new value %v out of range", errMalformedEvent, data[1])
	}
	if !data[2].IsUint64() || data[2].Uint64() > uint64(Set) {
		return nil, fmt.Errorf("%w: unknown reason %v", errMalformedEvent, data[2])
	}
	return &CounterChanged{
		Caller:          caller,
		OldValue:        oldValue,
		NewValue:        newValue,
		Reason:          ChangeReason(data[2].Uint64()),
		BlockNumber:     ev.BlockNumber,
		BlockHash:       ev.BlockHash,
		TransactionHash: ev.TransactionHash,
	}, nil
}

// key identifies an event for de-duplication across overlapping polls.
func (e *CounterChanged) key() string {
	return fmt.Sprintf("%d/%s/%s/%d/%d/%d", e.BlockNumber, e.TransactionHash.Hex(), e.Caller.Hex(), e.OldValue, e.NewValue, e.Reason)
}
