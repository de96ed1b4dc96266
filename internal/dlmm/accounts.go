package dlmm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/mr-tron/base58"
)

// Errors returned by account decoding.
var (
	ErrNotLbPair     = errors.New("account is not an LbPair")
	ErrNotPositionV2 = errors.New("account is not a PositionV2")
	ErrNotBinArray   = errors.New("account is not a BinArray")
	ErrTruncated     = errors.New("account data truncated")
)

// LbPair is the decoded subset of a DLMM pool account needed for position
// reconstruction.
type LbPair struct {
	Address    string
	ActiveID   int32
	BinStep    uint16
	TokenXMint string
	TokenYMint string
}

// lb_clmm LbPair layout: 8 discriminator, 32 static parameters, 32 variable
// parameters, 1 bump seed, 2 bin step seed, 1 pair type, then the fields we
// read. Mints follow at fixed offsets after a handful of one-byte flags.
const (
	lbPairActiveIDOffset   = 8 + 32 + 32 + 1 + 2 + 1
	lbPairBinStepOffset    = lbPairActiveIDOffset + 4
	lbPairTokenXMintOffset = 88
	lbPairTokenYMintOffset = 120
	lbPairMinLen           = lbPairTokenYMintOffset + 32
)

// DecodeLbPair parses a raw LbPair account.
func DecodeLbPair(address string, data []byte) (*LbPair, error) {
	if len(data) < lbPairMinLen {
		return nil, ErrTruncated
	}
	var disc [8]byte
	copy(disc[:], data[:8])
	if disc != accountLbPair {
		return nil, ErrNotLbPair
	}
	return &LbPair{
		Address:    address,
		ActiveID:   int32(binary.LittleEndian.Uint32(data[lbPairActiveIDOffset:])),
		BinStep:    binary.LittleEndian.Uint16(data[lbPairBinStepOffset:]),
		TokenXMint: base58.Encode(data[lbPairTokenXMintOffset : lbPairTokenXMintOffset+32]),
		TokenYMint: base58.Encode(data[lbPairTokenYMintOffset : lbPairTokenYMintOffset+32]),
	}, nil
}

// FeeInfo tracks a position's per-bin fee accounting against the pool's
// Q64.64 per-liquidity accumulators.
type FeeInfo struct {
	FeeXPerTokenComplete *big.Int // Q64.64
	FeeYPerTokenComplete *big.Int // Q64.64
	FeeXPending          uint64
	FeeYPending          uint64
}

// PositionV2 is the decoded subset of a DLMM position account.
type PositionV2 struct {
	Address string
	LbPair  string
	Owner   string

	LiquidityShares [MaxBinPerArray]*big.Int // u128 per bin slot
	FeeInfos        [MaxBinPerArray]FeeInfo

	LowerBinID    int32
	UpperBinID    int32
	LastUpdatedAt int64

	TotalClaimedFeeX uint64
	TotalClaimedFeeY uint64
}

// PositionV2 layout: 8 discriminator, lb_pair 32, owner 32, 70 u128
// liquidity shares, 70 reward infos (48 bytes each), 70 fee infos (48 bytes
// each), then the scalar tail.
const (
	posLbPairOffset     = 8
	posOwnerOffset      = 40
	posSharesOffset     = 72
	posRewardsOffset    = posSharesOffset + MaxBinPerArray*16
	posFeeInfosOffset   = posRewardsOffset + MaxBinPerArray*48
	posLowerBinOffset   = posFeeInfosOffset + MaxBinPerArray*48
	posUpperBinOffset   = posLowerBinOffset + 4
	posLastUpdateOffset = posUpperBinOffset + 4
	posClaimedXOffset   = posLastUpdateOffset + 8
	posClaimedYOffset   = posClaimedXOffset + 8
	positionV2MinLen    = posClaimedYOffset + 8
)

// DecodePositionV2 parses a raw PositionV2 account.
func DecodePositionV2(address string, data []byte) (*PositionV2, error) {
	if len(data) < positionV2MinLen {
		return nil, ErrTruncated
	}
	var disc [8]byte
	copy(disc[:], data[:8])
	if disc != accountPositionV2 {
		return nil, ErrNotPositionV2
	}

	p := &PositionV2{
		Address:          address,
		LbPair:           base58.Encode(data[posLbPairOffset : posLbPairOffset+32]),
		Owner:            base58.Encode(data[posOwnerOffset : posOwnerOffset+32]),
		LowerBinID:       int32(binary.LittleEndian.Uint32(data[posLowerBinOffset:])),
		UpperBinID:       int32(binary.LittleEndian.Uint32(data[posUpperBinOffset:])),
		LastUpdatedAt:    int64(binary.LittleEndian.Uint64(data[posLastUpdateOffset:])),
		TotalClaimedFeeX: binary.LittleEndian.Uint64(data[posClaimedXOffset:]),
		TotalClaimedFeeY: binary.LittleEndian.Uint64(data[posClaimedYOffset:]),
	}

	for i := 0; i < MaxBinPerArray; i++ {
		p.LiquidityShares[i] = readU128(data, posSharesOffset+i*16)

		off := posFeeInfosOffset + i*48
		p.FeeInfos[i] = FeeInfo{
			FeeXPerTokenComplete: readU128(data, off),
			FeeYPerTokenComplete: readU128(data, off+16),
			FeeXPending:          binary.LittleEndian.Uint64(data[off+32:]),
			FeeYPending:          binary.LittleEndian.Uint64(data[off+40:]),
		}
	}

	return p, nil
}

// Width returns the number of bin slots the position covers.
func (p *PositionV2) Width() int {
	return int(p.UpperBinID-p.LowerBinID) + 1
}

// Bin is one price bucket within a BinArray.
type Bin struct {
	AmountX         uint64
	AmountY         uint64
	LiquiditySupply *big.Int // u128
	FeeXPerToken    *big.Int // Q64.64
	FeeYPerToken    *big.Int // Q64.64
}

// BinArray holds a contiguous run of MaxBinPerArray bins for one pool.
type BinArray struct {
	Index  int64
	LbPair string
	Bins   [MaxBinPerArray]Bin
}

// BinArray layout: 8 discriminator, index i64, version u8 + 7 padding,
// lb_pair 32, then 70 bins. Each bin: amount_x u64, amount_y u64, price
// u128, liquidity_supply u128, reward accumulators 2*u128, fee_x/fee_y
// per-token u128s, amount_x_in u128, amount_y_in u128 (144 bytes).
const (
	binArrayIndexOffset  = 8
	binArrayLbPairOffset = 8 + 8 + 8
	binArrayBinsOffset   = binArrayLbPairOffset + 32
	binSize              = 8 + 8 + 16 + 16 + 32 + 16 + 16 + 16 + 16
	binArrayMinLen       = binArrayBinsOffset + MaxBinPerArray*binSize
)

// DecodeBinArray parses a raw BinArray account.
func DecodeBinArray(data []byte) (*BinArray, error) {
	if len(data) < binArrayMinLen {
		return nil, ErrTruncated
	}

	a := &BinArray{
		Index:  int64(binary.LittleEndian.Uint64(data[binArrayIndexOffset:])),
		LbPair: base58.Encode(data[binArrayLbPairOffset : binArrayLbPairOffset+32]),
	}
	for i := 0; i < MaxBinPerArray; i++ {
		off := binArrayBinsOffset + i*binSize
		a.Bins[i] = Bin{
			AmountX:         binary.LittleEndian.Uint64(data[off:]),
			AmountY:         binary.LittleEndian.Uint64(data[off+8:]),
			LiquiditySupply: readU128(data, off+32),
			FeeXPerToken:    readU128(data, off+80),
			FeeYPerToken:    readU128(data, off+96),
		}
	}
	return a, nil
}

// LowerBinID returns the id of the array's first bin.
func (a *BinArray) LowerBinID() int32 {
	return int32(a.Index) * MaxBinPerArray
}

// BinArrayIndex returns the index of the array containing binID.
// Floor division keeps negative ids in the correct array.
func BinArrayIndex(binID int32) int64 {
	idx := int64(binID) / MaxBinPerArray
	if int64(binID)%MaxBinPerArray < 0 {
		idx--
	}
	return idx
}

// readU128 reads a little-endian u128 at off as a big.Int.
func readU128(data []byte, off int) *big.Int {
	// big.Int wants big-endian; reverse the 16-byte window.
	buf := make([]byte, 16)
	for i := 0; i < 16; i++ {
		buf[i] = data[off+15-i]
	}
	return new(big.Int).SetBytes(buf)
}

// DecodeBase58Pubkey validates and normalizes a base58 public key string.
func DecodeBase58Pubkey(s string) (string, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return "", fmt.Errorf("decode pubkey %q: %w", s, err)
	}
	if len(raw) != 32 {
		return "", fmt.Errorf("pubkey %q: expected 32 bytes, got %d", s, len(raw))
	}
	return base58.Encode(raw), nil
}
