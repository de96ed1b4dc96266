// Package dlmm decodes DLMM (Meteora lb_clmm) program accounts and events
// and implements the pool's bin-pricing convention.
package dlmm

import (
	"crypto/sha256"
	"math/big"
)

// ProgramID is the mainnet DLMM program.
const ProgramID = "LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo"

// BasisPointMax scales binStep: one bin step of n means a per-bin price
// factor of 1 + n/10000.
const BasisPointMax = 10000

// MaxBinPerArray is the number of bins held by one BinArray account.
const MaxBinPerArray = 70

// Scale is 2^64; fee accumulators are Q64.64 fixed point.
var Scale = new(big.Int).Lsh(big.NewInt(1), 64)

// ScaleSquared is 2^128, the divisor for (Q64.64 delta) * (Q64.64 share).
var ScaleSquared = new(big.Int).Lsh(big.NewInt(1), 128)

// anchorDiscriminator derives the 8-byte anchor discriminator for a
// namespaced name, e.g. "account:LbPair" or "event:AddLiquidity".
func anchorDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte(name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

var (
	accountLbPair     = anchorDiscriminator("account:LbPair")
	accountPositionV2 = anchorDiscriminator("account:PositionV2")

	// eventCPIDiscriminator prefixes self-CPI event instructions
	// (anchor's "emit_cpi" convention).
	eventCPIDiscriminator = anchorDiscriminator("anchor:event")

	eventAddLiquidity    = anchorDiscriminator("event:AddLiquidity")
	eventRemoveLiquidity = anchorDiscriminator("event:RemoveLiquidity")
	eventClaimFee        = anchorDiscriminator("event:ClaimFee")
	eventPositionCreate  = anchorDiscriminator("event:PositionCreate")
	eventPositionClose   = anchorDiscriminator("event:PositionClose")
)
