package main

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"poolEngine/internal/curve"
)

// newQuoteCmd builds the one-shot pricing subcommand. It runs the pure math
// against explicit reserves, no pool state involved.
func newQuoteCmd() *cobra.Command {
	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "One-shot pricing math against explicit reserves",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("amount", "", "amount (decimal)")
	quoteCmd.Flags().String("reserve-in", "", "input-side reserve (decimal)")
	quoteCmd.Flags().String("reserve-out", "", "output-side reserve (decimal)")
	quoteCmd.Flags().String("mode", "out", "quote mode: out (amount is input), in (amount is desired output), proportional")

	return quoteCmd
}

func runQuote(cmd *cobra.Command, _ []string) error {
	amount, err := flagAmount(cmd, "amount")
	if err != nil {
		return err
	}
	reserveIn, err := flagAmount(cmd, "reserve-in")
	if err != nil {
		return err
	}
	reserveOut, err := flagAmount(cmd, "reserve-out")
	if err != nil {
		return err
	}
	mode, _ := cmd.Flags().GetString("mode")

	var result *uint256.Int
	switch mode {
	case "out":
		result, err = curve.AmountOut(amount, reserveIn, reserveOut)
	case "in":
		result, err = curve.AmountIn(amount, reserveIn, reserveOut)
	case "proportional":
		result, err = curve.Quote(amount, reserveIn, reserveOut)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Dec())
	return nil
}

func flagAmount(cmd *cobra.Command, name string) (*uint256.Int, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return nil, fmt.Errorf("--%s is required", name)
	}
	v, err := uint256.FromDecimal(raw)
	if err != nil {
		return nil, fmt.Errorf("parse --%s: %w", name, err)
	}
	return v, nil
}
