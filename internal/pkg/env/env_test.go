package env

import (
	"log/slog"
	"testing"
)

func TestGet(t *testing.T) {
	t.Setenv("STL_TRADE_TEST_KEY", "  value ")
	if got := Get("STL_TRADE_TEST_KEY", "default"); got != "value" {
		t.Errorf("Get() = %q, want %q", got, "value")
	}

	t.Setenv("STL_TRADE_TEST_KEY", "")
	if got := Get("STL_TRADE_TEST_KEY", "default"); got != "default" {
		t.Errorf("Get() = %q, want %q", got, "default")
	}
}

func TestRequire(t *testing.T) {
	t.Setenv("STL_TRADE_REQUIRED", "")
	if _, err := Require("STL_TRADE_REQUIRED"); err == nil {
		t.Error("expected error for missing variable")
	}

	t.Setenv("STL_TRADE_REQUIRED", "abc")
	got, err := Require("STL_TRADE_REQUIRED")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "abc" {
		t.Errorf("Require() = %q, want abc", got)
	}
}

func TestGetInt64(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    int64
		wantErr bool
	}{
		{name: "unset uses default", value: "", want: 8453},
		{name: "parses value", value: "1", want: 1},
		{name: "rejects garbage", value: "base", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CHAIN_ID", tt.value)
			got, err := GetInt64("CHAIN_ID", 8453)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetInt64() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("GetInt64() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want slog.Level
	}{
		{raw: "debug", want: slog.LevelDebug},
		{raw: "WARN", want: slog.LevelWarn},
		{raw: "error", want: slog.LevelError},
		{raw: "warning", want: slog.LevelWarn},
		{raw: "warn+2", want: slog.LevelWarn + 2},
		{raw: "", want: slog.LevelInfo},
		{raw: "verbose", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.raw)
			if got := ParseLogLevel(slog.LevelInfo); got != tt.want {
				t.Errorf("ParseLogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}
