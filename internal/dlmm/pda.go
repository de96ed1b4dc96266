package dlmm

import (
	"encoding/binary"

	"github.com/mr-tron/base58"

	"dlmm-viewer/internal/solana"
)

// DeriveBinArrayAddress derives the PDA of the bin array holding the given
// array index for a pool. Seeds: "bin_array", lbPair, index (i64 LE).
func DeriveBinArrayAddress(lbPair string, index int64) (string, error) {
	pair, err := base58.Decode(lbPair)
	if err != nil {
		return "", err
	}
	idx := make([]byte, 8)
	binary.LittleEndian.PutUint64(idx, uint64(index))

	program, err := base58.Decode(ProgramID)
	if err != nil {
		return "", err
	}
	return solana.DeriveProgramAddress([][]byte{[]byte("bin_array"), pair, idx}, program), nil
}
