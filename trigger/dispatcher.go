// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package trigger

import (
	"errors"

	"github.com/luxfi/trigger/fhe"
	"golang.org/x/sync/errgroup"
)

// Operands are the encrypted bounds of a strategy. A bound is only
// required when the strategy reads it.
type Operands struct {
	Upper *fhe.Integer
	Lower *fhe.Integer
}

// Validate fails with MissingOperand when a bound the strategy needs is
// absent, and with UnknownStrategy for an unrecognized strategy.
func (o Operands) Validate(strategy StrategyType) error {
	const op = "dispatch"

	switch strategy {
	case BracketLong, BracketShort, LimitBuyDip, LimitSellRally:
	default:
		return newError(UnknownStrategy, op, errors.New(strategy.String()))
	}
	if strategy.NeedsUpper() && o.Upper == nil {
		return newError(MissingOperand, op, errors.New("upper bound required by "+strategy.String()))
	}
	if strategy.NeedsLower() && o.Lower == nil {
		return newError(MissingOperand, op, errors.New("lower bound required by "+strategy.String()))
	}
	return nil
}

// Dispatch evaluates the strategy to a single encrypted 0/1 result:
//
//	BRACKET_*         or(check(upper, GTE), check(lower, LTE))
//	LIMIT_BUY_DIP     check(lower, LTE)
//	LIMIT_SELL_RALLY  check(upper, GTE)
func Dispatch(eval *fhe.Evaluator, strategy StrategyType, ops Operands, price uint32) (*fhe.Integer, error) {
	if err := ops.Validate(strategy); err != nil {
		return nil, err
	}

	switch strategy {
	case LimitBuyDip:
		return Check(eval, ops.Lower, LTE, price)
	case LimitSellRally:
		return Check(eval, ops.Upper, GTE, price)
	}

	var (
		upper, lower *fhe.Integer
		g            errgroup.Group
	)
	g.Go(func() (err error) {
		upper, err = Check(eval, ops.Upper, GTE, price)
		return err
	})
	g.Go(func() (err error) {
		lower, err = Check(eval, ops.Lower, LTE, price)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Or(eval, upper, lower)
}
