package normalizer

import (
	"github.com/mr-tron/base58"

	"dlmm-viewer/internal/dlmm"
	"dlmm-viewer/internal/domain"
	"dlmm-viewer/internal/solana"
)

// FromTransactions extracts position events for one position from fetched
// transactions. Failed transactions, instructions of other programs, and
// undecodable event data are skipped. Token amounts are scaled to display
// units using the pair's decimals. Events whose wire format carries no bin
// id (claims) get fallbackBin, the pool's last known active bin.
func FromTransactions(txs []*solana.Transaction, position string, fallbackBin int32, decimalsX, decimalsY uint8) []domain.PositionEvent {
	var events []domain.PositionEvent

	for _, tx := range txs {
		if tx == nil || tx.Meta == nil || tx.Meta.Err != nil {
			continue
		}

		for _, raw := range programEventData(tx) {
			event := dlmm.DecodeEventData(raw)
			if event == nil || event.Position != position {
				continue
			}
			normalized, ok := fromChainEvent(event, tx, fallbackBin, decimalsX, decimalsY)
			if !ok {
				continue
			}
			events = append(events, normalized)
		}
	}

	return events
}

// programEventData collects the raw data of every DLMM program instruction
// in a transaction's inner instruction sets. Anchor emits events as
// self-CPI instructions, so they only ever appear there.
func programEventData(tx *solana.Transaction) [][]byte {
	var out [][]byte

	for _, inner := range tx.Meta.InnerInstructions {
		for i := range inner.Instructions {
			ix := &inner.Instructions[i]
			if tx.Message.ProgramID(ix) != dlmm.ProgramID {
				continue
			}
			data, err := base58.Decode(ix.Data)
			if err != nil {
				continue
			}
			out = append(out, data)
		}
	}

	return out
}

// fromChainEvent maps one decoded program event into the canonical shape.
// Events outside the closed operation set are dropped.
func fromChainEvent(event *dlmm.Event, tx *solana.Transaction, fallbackBin int32, decimalsX, decimalsY uint8) (domain.PositionEvent, bool) {
	kind := domain.OperationKind(event.Name)
	if !kind.Valid() {
		return domain.PositionEvent{}, false
	}

	normalized := domain.PositionEvent{
		Kind:      kind,
		Signature: tx.Signature,
		BlockTime: tx.BlockTime,
		LbPair:    event.LbPair,
		Position:  event.Position,
		Owner:     event.Owner,
	}

	if normalized.Monetary() {
		x := scaleRaw(event.AmountX, decimalsX)
		y := scaleRaw(event.AmountY, decimalsY)
		if kind == domain.OpRemoveLiquidity {
			x = x.Neg()
			y = y.Neg()
		}
		normalized.TokenXChange = x
		normalized.TokenYChange = y
	}
	if event.HasActiveBin {
		normalized.ActiveBinID = event.ActiveBinID
	} else {
		normalized.ActiveBinID = fallbackBin
	}

	return normalized, true
}
