package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
)

var (
	// ErrFeeBelowPriority signals an inconsistent estimate where the computed
	// max fee is lower than the priority fee.
	ErrFeeBelowPriority = errors.New("max fee is below priority fee")
	// ErrFeeAboveCeiling signals that the computed max fee exceeds the
	// configured safety ceiling. Transfers fail closed rather than overspend.
	ErrFeeAboveCeiling = errors.New("max fee exceeds safety ceiling")
)

var gweiWei = big.NewInt(1_000_000_000)

// FeeEstimate holds EIP-1559 fee components in wei.
type FeeEstimate struct {
	BaseFee     *big.Int
	PriorityFee *big.Int
	MaxFee      *big.Int
}

// SuggestFees fetches the current base fee and priority fee from the chain.
// MaxFee is base + priority unless maxFeeOverride is given. The estimate is
// validated against the priority fee and the configured ceiling.
func (c *Client) SuggestFees(ctx context.Context, maxFeeOverride *big.Int) (*FeeEstimate, error) {
	header, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch latest header: %w", err)
	}
	if header.BaseFee == nil {
		return nil, errors.New("chain does not report a base fee")
	}
	priority, err := c.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch priority fee: %w", err)
	}
	maxFee, err := computeMaxFee(header.BaseFee, priority, maxFeeOverride, c.maxFeeCap)
	if err != nil {
		return nil, err
	}
	return &FeeEstimate{BaseFee: header.BaseFee, PriorityFee: priority, MaxFee: maxFee}, nil
}

// computeMaxFee derives the max fee from base and priority, honoring an
// explicit override and the safety ceiling.
func computeMaxFee(baseFee, priorityFee, override, ceiling *big.Int) (*big.Int, error) {
	maxFee := new(big.Int).Add(baseFee, priorityFee)
	if override != nil {
		maxFee = new(big.Int).Set(override)
	}
	if maxFee.Cmp(priorityFee) < 0 {
		return nil, fmt.Errorf("%w: max %s wei, priority %s wei", ErrFeeBelowPriority, maxFee, priorityFee)
	}
	if ceiling != nil && maxFee.Cmp(ceiling) > 0 {
		return nil, fmt.Errorf("%w: max %s gwei, ceiling %s gwei", ErrFeeAboveCeiling, weiToGwei(maxFee), weiToGwei(ceiling))
	}
	return maxFee, nil
}

// GweiToWei converts a whole-gwei amount to wei.
func GweiToWei(gwei int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(gwei), gweiWei)
}

func weiToGwei(wei *big.Int) *big.Int {
	return new(big.Int).Div(wei, gweiWei)
}
