package accounts

import (
	"encoding/json"
	"testing"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		in      string
		want    URL
		wantErr bool
	}{
		{in: "http://127.0.0.1:5050/wallet", want: URL{Scheme: "http", Path: "127.0.0.1:5050/wallet"}},
		{in: "ws://localhost:8546", want: URL{Scheme: "ws", Path: "localhost:8546"}},
		{in: "ipc:///tmp/wallet.ipc", want: URL{Scheme: "ipc", Path: "/tmp/wallet.ipc"}},
		{in: "starknet.io", wantErr: true},
		{in: "://starknet.io", wantErr: true},
		{in: "http://", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		url, err := ParseURL(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseURL(%q): expected error, got %v", tt.in, url)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseURL(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if url != tt.want {
			t.Errorf("ParseURL(%q) = %#v, want %#v", tt.in, url, tt.want)
		}
		if url.String() != tt.in {
			t.Errorf("String() = %q, want %q", url.String(), tt.in)
		}
	}
	if have := (URL{Path: "wallet"}).String(); have != "wallet" {
		t.Errorf("scheme-less String() = %q", have)
	}
}

func TestURLJSONField(t *testing.T) {
	type signerInfo struct {
		URL URL `json:"url"`
	}
	in := signerInfo{URL: URL{Scheme: "ws", Path: "127.0.0.1:8546"}}
	enc, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if string(enc) != `{"url":"ws://127.0.0.1:8546"}` {
		t.Fatalf("unexpected encoding: %s", enc)
	}
	var out signerInfo
	if err := json.Unmarshal(enc, &out); err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Fatalf("round trip: have %#v, want %#v", out, in)
	}
	if err := json.Unmarshal([]byte(`{"url":"no-scheme"}`), &out); err == nil {
		t.Fatal("expected error for a URL without scheme")
	}
}

func TestURLCmp(t *testing.T) {
	tests := []struct {
		x, y URL
		want int
	}{
		{URL{"http", "127.0.0.1:5050"}, URL{"http", "127.0.0.1:5050"}, 0},
		{URL{"http", "127.0.0.1:5050"}, URL{"ws", "127.0.0.1:5050"}, -1},
		{URL{"ipc", "/tmp/b.ipc"}, URL{"ipc", "/tmp/a.ipc"}, 1},
	}
	for i, tt := range tests {
		if have := tt.x.Cmp(tt.y); have != tt.want {
			t.Errorf("test %d: Cmp(%v, %v) = %d, want %d", i, tt.x, tt.y, have, tt.want)
		}
	}
}

func TestURLTerminalString(t *testing.T) {
	short := URL{Scheme: "http", Path: "127.0.0.1:5050"}
	if have := short.TerminalString(); have != "http://127.0.0.1:5050" {
		t.Errorf("unexpected terminal string: %v", have)
	}
	long := URL{Scheme: "https", Path: "starknet-sepolia.public.blastapi.io/rpc/v0_7"}
	if have := long.TerminalString(); len(have) != 33 || have[31:] != ".." {
		t.Errorf("unexpected terminal string: %v", have)
	}
}
