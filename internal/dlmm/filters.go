package dlmm

import "github.com/mr-tron/base58"

// PositionV2 memcmp offsets for getProgramAccounts filtering.
const (
	PositionDiscriminatorOffset = 0
	PositionLbPairOffset        = posLbPairOffset
	PositionOwnerOffset         = posOwnerOffset
)

// PositionV2DiscriminatorB58 returns the PositionV2 account discriminator
// base58-encoded, for use as a memcmp filter at offset 0.
func PositionV2DiscriminatorB58() string {
	return base58.Encode(accountPositionV2[:])
}
