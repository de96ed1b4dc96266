package domain

import "github.com/shopspring/decimal"

// OperationKind identifies the type of a position operation.
// The set is closed: raw events that do not map into it are dropped
// at the normalization boundary, never carried through.
type OperationKind string

const (
	OpAddLiquidity    OperationKind = "AddLiquidity"
	OpRemoveLiquidity OperationKind = "RemoveLiquidity"
	OpClaimFee        OperationKind = "ClaimFee"
	OpPositionCreate  OperationKind = "PositionCreate"
	OpPositionClose   OperationKind = "PositionClose"
)

// Valid reports whether k is a member of the closed operation set.
func (k OperationKind) Valid() bool {
	switch k {
	case OpAddLiquidity, OpRemoveLiquidity, OpClaimFee, OpPositionCreate, OpPositionClose:
		return true
	}
	return false
}

// PositionEvent is one canonical operation against a liquidity position.
// Token changes are signed decimal amounts in display units: positive for
// inflows to the position's benefit (deposits, fee claims), negative for
// outflows (withdrawals).
type PositionEvent struct {
	Kind      OperationKind
	Signature string // transaction signature, for audit/link-out
	BlockTime int64  // unix seconds
	LbPair    string // pool address
	Position  string // position address
	Owner     string // wallet address

	TokenXChange decimal.Decimal
	TokenYChange decimal.Decimal

	// ActiveBinID is the pool's active bin at event time, used to derive
	// the spot exchange rate for the event. Sources that omit it (some
	// fee-claim records) get the pool's last known active bin instead.
	ActiveBinID int32
}

// Monetary reports whether the event carries a token balance change.
// PositionCreate and PositionClose only bound the position's timeline.
func (e *PositionEvent) Monetary() bool {
	switch e.Kind {
	case OpAddLiquidity, OpRemoveLiquidity, OpClaimFee:
		return true
	}
	return false
}
