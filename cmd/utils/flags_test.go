// Copyright 2019 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

// Package utils contains internal helper functions for counterctl commands.
package utils

import (
	"flag"
	"reflect"
	"testing"

	"github.com/tos-network/starkcounter/internal/api"
	"github.com/tos-network/starkcounter/metrics"
	"github.com/urfave/cli/v2"
)

func Test_SplitAndTrim(t *testing.T) {
	tests := []struct {
		name string
		args string
		want []string
	}{
		{"single", "http://localhost:3000", []string{"http://localhost:3000"}},
		{"spaces", " a.example , b.example ", []string{"a.example", "b.example"}},
		{"empty items", ",a,,b,", []string{"a", "b"}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitAndTrim(tt.args); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitAndTrim() = %v, want %v", got, tt.want)
			}
		})
	}
}

func newTestContext(t *testing.T, fs []cli.Flag, args []string) *cli.Context {
	t.Helper()
	app := cli.NewApp()
	app.Flags = fs

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range app.Flags {
		if err := f.Apply(set); err != nil {
			t.Fatalf("apply flag: %v", err)
		}
	}
	if err := set.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cli.NewContext(app, set, nil)
}

func TestSetGatewayConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  api.Config
		args []string
		want api.Config
	}{
		{
			name: "defaults",
			want: api.Config{Addr: "127.0.0.1:8550"},
		},
		{
			name: "file value kept",
			cfg:  api.Config{Addr: "0.0.0.0:9000"},
			want: api.Config{Addr: "0.0.0.0:9000"},
		},
		{
			name: "flags override",
			cfg:  api.Config{Addr: "0.0.0.0:9000", CORSOrigins: []string{"*"}},
			args: []string{"--http.port=8600", "--http.corsdomain=https://a.example, https://b.example", "--http.jwtsecret=/tmp/jwt.hex"},
			want: api.Config{Addr: "127.0.0.1:8600", CORSOrigins: []string{"https://a.example", "https://b.example"}, JWTSecret: "/tmp/jwt.hex"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newTestContext(t, GatewayFlags, tt.args)
			cfg := tt.cfg
			SetGatewayConfig(ctx, &cfg)
			if !reflect.DeepEqual(cfg, tt.want) {
				t.Fatalf("have %+v, want %+v", cfg, tt.want)
			}
		})
	}
}

func TestSetMetricsConfig(t *testing.T) {
	ctx := newTestContext(t, MetricsFlags, []string{"--metrics", "--metrics.addr=0.0.0.0"})
	cfg := metrics.DefaultConfig
	SetMetricsConfig(ctx, &cfg)
	if !cfg.Enabled || cfg.HTTP != "0.0.0.0" || cfg.Port != metrics.DefaultConfig.Port {
		t.Fatalf("unexpected metrics config: %+v", cfg)
	}
}

func TestFlagGroupsHaveCategories(t *testing.T) {
	for _, group := range [][]cli.Flag{NetworkFlags, TransactionFlags, GatewayFlags, LoggingFlags, MetricsFlags} {
		for _, f := range group {
			cf, ok := f.(cli.CategorizableFlag)
			if !ok || cf.GetCategory() == "" {
				t.Fatalf("flag %v has no category", f.Names())
			}
		}
	}
}
