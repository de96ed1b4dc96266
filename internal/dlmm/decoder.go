package dlmm

import (
	"encoding/binary"

	"github.com/mr-tron/base58"
)

// Event is a decoded DLMM program event. Name matches the program's event
// naming (AddLiquidity, RemoveLiquidity, ClaimFee, PositionCreate,
// PositionClose); raw amounts are unscaled token units.
type Event struct {
	Name     string
	LbPair   string
	Position string
	Owner    string

	AmountX uint64
	AmountY uint64

	// ActiveBinID is set for events that carry it (liquidity changes);
	// HasActiveBin distinguishes a real bin 0 from an absent field.
	ActiveBinID  int32
	HasActiveBin bool
}

// DecodeEventData parses the raw data of a self-CPI event instruction.
// Unrecognized or malformed data yields nil, never an error: the event log
// contains instructions from many programs and versions and anything outside
// the known set is simply not an event for us.
func DecodeEventData(data []byte) *Event {
	if len(data) < 16 {
		return nil
	}
	var cpi [8]byte
	copy(cpi[:], data[:8])
	if cpi != eventCPIDiscriminator {
		return nil
	}

	var disc [8]byte
	copy(disc[:], data[8:16])
	payload := data[16:]

	switch disc {
	case eventAddLiquidity:
		return decodeLiquidityChange("AddLiquidity", payload)
	case eventRemoveLiquidity:
		return decodeLiquidityChange("RemoveLiquidity", payload)
	case eventClaimFee:
		return decodeClaimFee(payload)
	case eventPositionCreate:
		return decodePositionCreate(payload)
	case eventPositionClose:
		return decodePositionClose(payload)
	}
	return nil
}

// AddLiquidity / RemoveLiquidity payload:
// lb_pair 32, from 32, position 32, amounts [2]u64, active_bin_id i32.
func decodeLiquidityChange(name string, p []byte) *Event {
	if len(p) < 32+32+32+16+4 {
		return nil
	}
	return &Event{
		Name:         name,
		LbPair:       pubkeyAt(p, 0),
		Owner:        pubkeyAt(p, 32),
		Position:     pubkeyAt(p, 64),
		AmountX:      binary.LittleEndian.Uint64(p[96:]),
		AmountY:      binary.LittleEndian.Uint64(p[104:]),
		ActiveBinID:  int32(binary.LittleEndian.Uint32(p[112:])),
		HasActiveBin: true,
	}
}

// ClaimFee payload: lb_pair 32, position 32, owner 32, fee_x u64, fee_y u64.
// Claim events carry no active bin id.
func decodeClaimFee(p []byte) *Event {
	if len(p) < 32+32+32+16 {
		return nil
	}
	return &Event{
		Name:     "ClaimFee",
		LbPair:   pubkeyAt(p, 0),
		Position: pubkeyAt(p, 32),
		Owner:    pubkeyAt(p, 64),
		AmountX:  binary.LittleEndian.Uint64(p[96:]),
		AmountY:  binary.LittleEndian.Uint64(p[104:]),
	}
}

// PositionCreate payload: lb_pair 32, position 32, owner 32.
func decodePositionCreate(p []byte) *Event {
	if len(p) < 96 {
		return nil
	}
	return &Event{
		Name:     "PositionCreate",
		LbPair:   pubkeyAt(p, 0),
		Position: pubkeyAt(p, 32),
		Owner:    pubkeyAt(p, 64),
	}
}

// PositionClose payload: position 32, owner 32.
func decodePositionClose(p []byte) *Event {
	if len(p) < 64 {
		return nil
	}
	return &Event{
		Name:     "PositionClose",
		Position: pubkeyAt(p, 0),
		Owner:    pubkeyAt(p, 32),
	}
}

func pubkeyAt(data []byte, off int) string {
	return base58.Encode(data[off : off+32])
}
