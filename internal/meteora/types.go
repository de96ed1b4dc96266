// Package meteora is a client for the Meteora DLMM indexer REST API, the
// off-chain alternative to decoding position history from transactions.
package meteora

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// RawAmount is a token amount that the indexer serialises inconsistently:
// older records carry JSON numbers, newer ones strings.
type RawAmount struct {
	decimal.Decimal
}

func (a *RawAmount) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		a.Decimal = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return fmt.Errorf("parse raw amount %q: %w", data, err)
	}
	a.Decimal = d
	return nil
}

// Deposit is one add-liquidity record for a position.
type Deposit struct {
	TxID             string    `json:"tx_id"`
	PositionAddress  string    `json:"position_address"`
	PairAddress      string    `json:"pair_address"`
	ActiveBinID      int32     `json:"active_bin_id"`
	Price            RawAmount `json:"price"`
	TokenXAmount     RawAmount `json:"token_x_amount"`
	TokenYAmount     RawAmount `json:"token_y_amount"`
	TokenXUsdAmount  RawAmount `json:"token_x_usd_amount"`
	TokenYUsdAmount  RawAmount `json:"token_y_usd_amount"`
	OnchainTimestamp int64     `json:"onchain_timestamp"`
}

// Withdrawal is one remove-liquidity record. Amounts are reported as
// positive magnitudes; the sign convention is applied downstream.
type Withdrawal struct {
	TxID             string    `json:"tx_id"`
	PositionAddress  string    `json:"position_address"`
	PairAddress      string    `json:"pair_address"`
	ActiveBinID      int32     `json:"active_bin_id"`
	Price            RawAmount `json:"price"`
	TokenXAmount     RawAmount `json:"token_x_amount"`
	TokenYAmount     RawAmount `json:"token_y_amount"`
	TokenXUsdAmount  RawAmount `json:"token_x_usd_amount"`
	TokenYUsdAmount  RawAmount `json:"token_y_usd_amount"`
	OnchainTimestamp int64     `json:"onchain_timestamp"`
}

// ClaimFee is one fee-claim record. The indexer does not report the active
// bin at claim time, so claim events carry no price of their own.
type ClaimFee struct {
	TxID             string    `json:"tx_id"`
	PositionAddress  string    `json:"position_address"`
	PairAddress      string    `json:"pair_address"`
	TokenXAmount     RawAmount `json:"token_x_amount"`
	TokenYAmount     RawAmount `json:"token_y_amount"`
	TokenXUsdAmount  RawAmount `json:"token_x_usd_amount"`
	TokenYUsdAmount  RawAmount `json:"token_y_usd_amount"`
	OnchainTimestamp int64     `json:"onchain_timestamp"`
}

// Pair is the indexer's view of a DLMM pool.
type Pair struct {
	Address      string    `json:"address"`
	Name         string    `json:"name"`
	MintX        string    `json:"mint_x"`
	MintY        string    `json:"mint_y"`
	BinStep      uint16    `json:"bin_step"`
	CurrentPrice RawAmount `json:"current_price"`
}

// Position is the indexer's view of a position header.
type Position struct {
	Address          string    `json:"address"`
	PairAddress      string    `json:"pair_address"`
	Owner            string    `json:"owner"`
	TotalFeeXClaimed RawAmount `json:"total_fee_x_claimed"`
	TotalFeeYClaimed RawAmount `json:"total_fee_y_claimed"`
	CreatedAt        int64     `json:"created_at"`
}
