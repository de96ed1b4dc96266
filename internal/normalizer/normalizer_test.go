package normalizer

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dlmm-viewer/internal/dlmm"
	"dlmm-viewer/internal/domain"
	"dlmm-viewer/internal/meteora"
	"dlmm-viewer/internal/solana"
)

var (
	pairKey     = base58.Encode(fill(1))
	ownerKey    = base58.Encode(fill(2))
	positionKey = base58.Encode(fill(3))
	otherPosKey = base58.Encode(fill(4))
)

func fill(b byte) []byte {
	out := make([]byte, 32)
	for i := range out {
		out[i] = b
	}
	return out
}

func discriminator(name string) []byte {
	sum := sha256.Sum256([]byte(name))
	return sum[:8]
}

// liquidityEventData builds the wire bytes of a self-CPI liquidity event.
func liquidityEventData(event, position string, amountX, amountY uint64, activeBin int32) []byte {
	data := append([]byte{}, discriminator("anchor:event")...)
	data = append(data, discriminator("event:"+event)...)
	data = append(data, mustDecode(pairKey)...)
	data = append(data, mustDecode(ownerKey)...)
	data = append(data, mustDecode(position)...)
	data = binary.LittleEndian.AppendUint64(data, amountX)
	data = binary.LittleEndian.AppendUint64(data, amountY)
	data = binary.LittleEndian.AppendUint32(data, uint32(activeBin))
	return data
}

func mustDecode(key string) []byte {
	out, err := base58.Decode(key)
	if err != nil {
		panic(err)
	}
	return out
}

func eventTx(signature string, blockTime int64, eventData ...[]byte) *solana.Transaction {
	ixs := make([]solana.CompiledInstruction, len(eventData))
	for i, data := range eventData {
		ixs[i] = solana.CompiledInstruction{ProgramIDIndex: 0, Data: base58.Encode(data)}
	}
	return &solana.Transaction{
		Signature: signature,
		BlockTime: blockTime,
		Meta: &solana.TransactionMeta{
			InnerInstructions: []solana.InnerInstructionSet{{Index: 0, Instructions: ixs}},
		},
		Message: &solana.TransactionMessage{AccountKeys: []string{dlmm.ProgramID}},
	}
}

func TestFromTransactionsScalesAndSigns(t *testing.T) {
	txs := []*solana.Transaction{
		eventTx("sigAdd", 100, liquidityEventData("AddLiquidity", positionKey, 5_000_000_000, 2_000_000, 10)),
		eventTx("sigRemove", 200, liquidityEventData("RemoveLiquidity", positionKey, 5_000_000_000, 2_000_000, 12)),
	}

	events := FromTransactions(txs, positionKey, 0, 9, 6)
	require.Len(t, events, 2)

	add := events[0]
	assert.Equal(t, domain.OpAddLiquidity, add.Kind)
	assert.Equal(t, "sigAdd", add.Signature)
	assert.True(t, add.TokenXChange.Equal(decimal.NewFromInt(5)), "got %s", add.TokenXChange)
	assert.True(t, add.TokenYChange.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, int32(10), add.ActiveBinID)

	remove := events[1]
	assert.Equal(t, domain.OpRemoveLiquidity, remove.Kind)
	assert.True(t, remove.TokenXChange.Equal(decimal.NewFromInt(-5)), "got %s", remove.TokenXChange)
	assert.True(t, remove.TokenYChange.Equal(decimal.NewFromInt(-2)))
}

func TestFromTransactionsFiltersOtherPositions(t *testing.T) {
	txs := []*solana.Transaction{
		eventTx("sig1", 100, liquidityEventData("AddLiquidity", otherPosKey, 1, 1, 0)),
	}
	events := FromTransactions(txs, positionKey, 0, 9, 6)
	assert.Empty(t, events)
}

func TestFromTransactionsSkipsFailedAndNil(t *testing.T) {
	failed := eventTx("sigFail", 100, liquidityEventData("AddLiquidity", positionKey, 1, 1, 0))
	failed.Meta.Err = map[string]interface{}{"InstructionError": []interface{}{}}

	events := FromTransactions([]*solana.Transaction{failed, nil}, positionKey, 0, 9, 6)
	assert.Empty(t, events)
}

func TestFromTransactionsIgnoresForeignPrograms(t *testing.T) {
	tx := eventTx("sig1", 100, liquidityEventData("AddLiquidity", positionKey, 1, 1, 0))
	tx.Message.AccountKeys = []string{"SomeOtherProgram1111111111111111111111111111"}

	events := FromTransactions([]*solana.Transaction{tx}, positionKey, 0, 9, 6)
	assert.Empty(t, events)
}

// claimEventData builds the wire bytes of a self-CPI claim event; the claim
// payload orders its keys pair, position, owner and carries no bin id.
func claimEventData(position string, feeX, feeY uint64) []byte {
	data := append([]byte{}, discriminator("anchor:event")...)
	data = append(data, discriminator("event:ClaimFee")...)
	data = append(data, mustDecode(pairKey)...)
	data = append(data, mustDecode(position)...)
	data = append(data, mustDecode(ownerKey)...)
	data = binary.LittleEndian.AppendUint64(data, feeX)
	data = binary.LittleEndian.AppendUint64(data, feeY)
	return data
}

func TestFromTransactionsClaimsTakeFallbackBin(t *testing.T) {
	txs := []*solana.Transaction{
		eventTx("sigClaim", 100, claimEventData(positionKey, 30_000_000, 40_000)),
		eventTx("sigAdd", 200, liquidityEventData("AddLiquidity", positionKey, 1, 1, 12)),
	}

	events := FromTransactions(txs, positionKey, 42, 9, 6)
	require.Len(t, events, 2)

	claim := events[0]
	assert.Equal(t, domain.OpClaimFee, claim.Kind)
	assert.Equal(t, int32(42), claim.ActiveBinID, "claims take the fallback bin")
	assert.True(t, claim.TokenXChange.Equal(decimal.RequireFromString("0.03")))

	assert.Equal(t, int32(12), events[1].ActiveBinID, "carried bins are kept")
}

func TestFromIndexerRecords(t *testing.T) {
	raw := func(s string) meteora.RawAmount {
		return meteora.RawAmount{Decimal: decimal.RequireFromString(s)}
	}

	events := FromIndexerRecords(
		[]meteora.Deposit{{
			TxID: "d1", PositionAddress: positionKey, PairAddress: pairKey,
			ActiveBinID: 5, TokenXAmount: raw("5000000000"), TokenYAmount: raw("2000000"),
			OnchainTimestamp: 100,
		}},
		[]meteora.Withdrawal{{
			TxID: "w1", PositionAddress: positionKey, PairAddress: pairKey,
			ActiveBinID: 6, TokenXAmount: raw("1000000000"), TokenYAmount: raw("500000"),
			OnchainTimestamp: 200,
		}},
		[]meteora.ClaimFee{{
			TxID: "c1", PositionAddress: positionKey, PairAddress: pairKey,
			TokenXAmount: raw("30000000"), TokenYAmount: raw("40000"),
			OnchainTimestamp: 300,
		}},
		42, 9, 6,
	)
	require.Len(t, events, 3)

	assert.True(t, events[0].TokenXChange.Equal(decimal.NewFromInt(5)))
	assert.True(t, events[1].TokenXChange.Equal(decimal.NewFromInt(-1)), "withdrawal must be negated")
	assert.True(t, events[1].TokenYChange.Equal(decimal.RequireFromString("-0.5")))
	assert.Equal(t, int32(42), events[2].ActiveBinID, "claims take the fallback bin")
	assert.True(t, events[2].TokenXChange.Equal(decimal.RequireFromString("0.03")))
}

func TestMergePrefersChainOnOverlap(t *testing.T) {
	chain := []domain.PositionEvent{
		{Kind: domain.OpAddLiquidity, Signature: "sig1", BlockTime: 100, TokenXChange: decimal.NewFromInt(5)},
	}
	indexer := []domain.PositionEvent{
		{Kind: domain.OpAddLiquidity, Signature: "sig1", BlockTime: 100, TokenXChange: decimal.NewFromInt(999)},
		{Kind: domain.OpClaimFee, Signature: "sig2", BlockTime: 50},
	}

	merged := Merge(chain, indexer)
	require.Len(t, merged, 2)
	assert.Equal(t, "sig2", merged[0].Signature, "sorted by block time")
	assert.True(t, merged[1].TokenXChange.Equal(decimal.NewFromInt(5)), "chain copy wins")
}

func TestSortEventsDeterministic(t *testing.T) {
	events := []domain.PositionEvent{
		{Kind: domain.OpRemoveLiquidity, Signature: "b", BlockTime: 100},
		{Kind: domain.OpAddLiquidity, Signature: "b", BlockTime: 100},
		{Kind: domain.OpAddLiquidity, Signature: "a", BlockTime: 100},
		{Kind: domain.OpAddLiquidity, Signature: "z", BlockTime: 50},
	}
	SortEvents(events)

	assert.Equal(t, "z", events[0].Signature)
	assert.Equal(t, "a", events[1].Signature)
	assert.Equal(t, domain.OpAddLiquidity, events[2].Kind)
	assert.Equal(t, domain.OpRemoveLiquidity, events[3].Kind)
}
