package database

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/playperu/dicebot/internal/config"
)

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	port, _ := strconv.Atoi(mr.Port())

	rdb, err := Open(context.Background(), config.RedisConfig{Host: mr.Host(), Port: port})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rdb.Close()

	if err := rdb.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := mr.Get("k"); got != "v" {
		t.Errorf("k = %q, want v", got)
	}
}

func TestOpenURL(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb, err := Open(context.Background(), config.RedisConfig{URL: "redis://" + mr.Addr() + "/0"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rdb.Close()
}

func TestOpenUnreachable(t *testing.T) {
	_, err := Open(context.Background(), config.RedisConfig{Host: "localhost", Port: 1})
	if err == nil {
		t.Fatal("expected error for unreachable redis")
	}
}

func TestOptions(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.RedisConfig
		wantAddr string
		wantDB   int
		wantUser string
		wantErr  bool
	}{
		{
			name:     "fields",
			cfg:      config.RedisConfig{Host: "cache", Port: 6380, User: "default", Password: "pw", DB: 3},
			wantAddr: "cache:6380",
			wantDB:   3,
			wantUser: "default",
		},
		{
			name:     "url wins",
			cfg:      config.RedisConfig{URL: "redis://bot:pw@other:7000/5", Host: "cache", Port: 6380},
			wantAddr: "other:7000",
			wantDB:   5,
			wantUser: "bot",
		},
		{
			name:    "bad url",
			cfg:     config.RedisConfig{URL: "http://nope"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt, err := options(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("options: %v", err)
			}
			if opt.Addr != tt.wantAddr || opt.DB != tt.wantDB || opt.Username != tt.wantUser {
				t.Errorf("got addr=%q db=%d user=%q, want %q %d %q",
					opt.Addr, opt.DB, opt.Username, tt.wantAddr, tt.wantDB, tt.wantUser)
			}
		})
	}
}
