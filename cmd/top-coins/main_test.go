package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/stl-trade/internal/domain/entity"
	"github.com/archon-research/stl-trade/internal/testutil"
)

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "2500000", expected: "$2.50M"},
		{input: "123.45", expected: "$0.00M"},
		{input: "n/a", expected: "n/a"},
	}
	for _, tt := range tests {
		if got := formatUSD(tt.input); got != tt.expected {
			t.Errorf("formatUSD(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestListCoins_PrintsTableAndTokensFlag(t *testing.T) {
	a := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	b := common.HexToAddress("0x00000000000000000000000000000000000000b2")
	lister := &testutil.MockCoinLister{Coins: []entity.Coin{
		{Address: a, Name: "Alpha", Symbol: "ALP", MarketCap: "5000000", UniqueHolders: 12},
		{Address: b, Name: "Beta", Symbol: "BET", MarketCap: "1000000", UniqueHolders: 3},
	}}

	var buf bytes.Buffer
	if err := listCoins(context.Background(), lister, 2, &buf); err != nil {
		t.Fatalf("listCoins() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Alpha", "ALP", "$5.00M", "-tokens " + a.Hex() + "," + b.Hex()} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestListCoins_Error(t *testing.T) {
	lister := &testutil.MockCoinLister{Err: errors.New("explore down")}
	if err := listCoins(context.Background(), lister, 5, &bytes.Buffer{}); err == nil {
		t.Error("expected error")
	}
}

func TestRun_RequiresAPIKey(t *testing.T) {
	t.Setenv("ZORA_API_KEY", "")
	err := run(context.Background(), nil, 10, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "ZORA_API_KEY") {
		t.Errorf("expected ZORA_API_KEY error, got %v", err)
	}
}
