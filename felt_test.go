package starkcounter

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"
)

func TestSelector(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"transfer", "0x83afd3f4caedc6eebf44246fe54e38c95e3179a5ec9ea81740eca5b482d12e"},
		{"approve", "0x219209e083275171774dab1df80982e9df2096516f06319c5c6d71ae0a8480c"},
		{"get_counter", "0x3370263ab53343580e77063a719a5865004caff7f367ec136a6cdd34b6786ca"},
		{"CounterChanged", "0x26a616967ea091d5ab29cfdcc31763ff128ca32da54f4e6f0d81bea5cd753d0"},
	}
	for _, tt := range tests {
		if have := Selector(tt.name).Hex(); have != tt.want {
			t.Fatalf("Selector(%q): have %s want %s", tt.name, have, tt.want)
		}
	}
}

func TestFieldPrime(t *testing.T) {
	want := "0x800000000000011000000000000000000000000000000000000000000000001"
	if have := FieldPrime.Hex(); have != want {
		t.Fatalf("field prime mismatch: have %s want %s", have, want)
	}
}

func TestParseFelt(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{in: "0x0", want: "0x0"},
		{in: "0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d", want: "0x4718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d"},
		{in: "255", want: "0xff"},
		{in: " 0XFF ", want: "0xff"},
		{in: "0x", wantErr: ErrFeltSyntax},
		{in: "", wantErr: ErrFeltSyntax},
		{in: "-1", wantErr: ErrFeltSyntax},
		{in: "0xzz", wantErr: ErrFeltSyntax},
		{in: "0x800000000000011000000000000000000000000000000000000000000000001", wantErr: ErrFeltOverflow},
	}
	for _, tt := range tests {
		f, err := ParseFelt(tt.in)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseFelt(%q): have err %v want %v", tt.in, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseFelt(%q): %v", tt.in, err)
		}
		if f.Hex() != tt.want {
			t.Fatalf("ParseFelt(%q): have %s want %s", tt.in, f.Hex(), tt.want)
		}
	}
}

func TestFeltJSON(t *testing.T) {
	call := Call{
		To:         MustParseFelt("0x1234"),
		Entrypoint: "set_counter",
		Calldata:   []*Felt{NewFelt(7)},
	}
	enc, err := json.Marshal(call)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"contract_address":"0x1234","entry_point":"set_counter","calldata":["0x7"]}`
	if string(enc) != want {
		t.Fatalf("have %s want %s", enc, want)
	}
	var dec Call
	if err := json.Unmarshal(enc, &dec); err != nil {
		t.Fatal(err)
	}
	if dec.To.Cmp(call.To) != 0 || len(dec.Calldata) != 1 || dec.Calldata[0].Uint64() != 7 {
		t.Fatalf("round trip mismatch: %+v", dec)
	}
}

func TestFeltBig(t *testing.T) {
	v, _ := new(big.Int).SetString("1000000000000000000000000", 10)
	f, err := FeltFromBig(v)
	if err != nil {
		t.Fatal(err)
	}
	if f.Big().Cmp(v) != 0 {
		t.Fatalf("have %v want %v", f.Big(), v)
	}
	var nilFelt *Felt
	if !nilFelt.IsZero() || nilFelt.Cmp(NewFelt(0)) != 0 {
		t.Fatal("nil felt should behave as zero")
	}
}

func TestBlockIDMarshal(t *testing.T) {
	tests := []struct {
		id   BlockID
		want string
	}{
		{BlockID{}, `"latest"`},
		{PendingBlock, `"pending"`},
		{BlockNumber(42), `{"block_number":42}`},
		{BlockID{Hash: NewFelt(1)}, `{"block_hash":"0x1"}`},
	}
	for _, tt := range tests {
		enc, err := json.Marshal(tt.id)
		if err != nil {
			t.Fatal(err)
		}
		if string(enc) != tt.want {
			t.Fatalf("have %s want %s", enc, tt.want)
		}
	}
}
