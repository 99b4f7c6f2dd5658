package sim

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Op kinds accepted in a scenario file.
const (
	OpToken    = "token"
	OpFund     = "fund"
	OpCreate   = "create"
	OpDeposit  = "deposit"
	OpWithdraw = "withdraw"
	OpSwapIn   = "swap_in"
	OpSwapOut  = "swap_out"
	OpSync     = "sync"
	OpAdvance  = "advance"
)

// Op is one line of a scenario file. Unused fields stay empty; amounts are
// decimal strings so scenarios survive JSON number precision.
type Op struct {
	Kind string `json:"kind"`

	Symbol string `json:"symbol,omitempty"`
	Asset  string `json:"asset,omitempty"`
	AssetA string `json:"asset_a,omitempty"`
	AssetB string `json:"asset_b,omitempty"`

	Actor  string   `json:"actor,omitempty"`
	To     string   `json:"to,omitempty"`
	Holder string   `json:"holder,omitempty"`
	Path   []string `json:"path,omitempty"`

	Amount    string `json:"amount,omitempty"`
	AmountA   string `json:"amount_a,omitempty"`
	AmountB   string `json:"amount_b,omitempty"`
	AmountMin string `json:"amount_min,omitempty"`
	AmountMax string `json:"amount_max,omitempty"`
	MinA      string `json:"min_a,omitempty"`
	MinB      string `json:"min_b,omitempty"`
	Claims    string `json:"claims,omitempty"`

	Seconds uint64 `json:"seconds,omitempty"`
}

// parseAmount decodes a decimal amount; empty means zero.
func parseAmount(s string) (*uint256.Int, error) {
	if strings.TrimSpace(s) == "" {
		return uint256.NewInt(0), nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return v, nil
}

// parseAddr decodes a hex address; empty is an error.
func parseAddr(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("parse address %q: not a hex address", s)
	}
	return common.HexToAddress(s), nil
}

func parsePath(path []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(path))
	for _, s := range path {
		addr, err := parseAddr(s)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}
