// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package trigger

import (
	"fmt"
	"strings"
)

// StrategyType selects which bounds are checked and how.
type StrategyType uint8

const (
	StrategyUnknown StrategyType = iota
	// BracketLong triggers when either bound is breached.
	BracketLong
	// BracketShort evaluates like BracketLong; the distinction is
	// order-side policy outside the engine.
	BracketShort
	// LimitBuyDip triggers when the price falls to the lower bound.
	LimitBuyDip
	// LimitSellRally triggers when the price rises to the upper bound.
	LimitSellRally
)

var strategyNames = map[string]StrategyType{
	"BRACKET_ORDER_LONG":  BracketLong,
	"BRACKET_LONG":        BracketLong,
	"BRACKET_ORDER_SHORT": BracketShort,
	"BRACKET_SHORT":       BracketShort,
	"LIMIT_BUY_DIP":       LimitBuyDip,
	"LIMIT_SELL_RALLY":    LimitSellRally,
}

// ParseStrategyType resolves a wire strategy name. Both the BRACKET_ORDER_*
// names sent by the orchestrator and the short BRACKET_* forms are accepted.
func ParseStrategyType(s string) (StrategyType, error) {
	t, ok := strategyNames[strings.TrimSpace(s)]
	if !ok {
		return StrategyUnknown, newError(UnknownStrategy, "parse strategy", fmt.Errorf("%q", s))
	}
	return t, nil
}

func (t StrategyType) String() string {
	switch t {
	case BracketLong:
		return "BRACKET_LONG"
	case BracketShort:
		return "BRACKET_SHORT"
	case LimitBuyDip:
		return "LIMIT_BUY_DIP"
	case LimitSellRally:
		return "LIMIT_SELL_RALLY"
	default:
		return "UNKNOWN"
	}
}

// NeedsUpper reports whether the strategy reads the upper bound.
func (t StrategyType) NeedsUpper() bool {
	return t == BracketLong || t == BracketShort || t == LimitSellRally
}

// NeedsLower reports whether the strategy reads the lower bound.
func (t StrategyType) NeedsLower() bool {
	return t == BracketLong || t == BracketShort || t == LimitBuyDip
}

// Direction is the comparison applied between the current price and a
// trigger bound.
type Direction uint8

const (
	// GTE is current_price >= trigger.
	GTE Direction = iota + 1
	// LTE is current_price <= trigger.
	LTE
)

// ParseDirection resolves "GTE" or "LTE".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GTE":
		return GTE, nil
	case "LTE":
		return LTE, nil
	}
	return 0, newError(InvalidCondition, "parse direction", fmt.Errorf("%q", s))
}

func (d Direction) String() string {
	switch d {
	case GTE:
		return "GTE"
	case LTE:
		return "LTE"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}
