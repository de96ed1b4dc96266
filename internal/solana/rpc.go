package solana

import "context"

// RPCClient defines the Solana JSON-RPC surface the position pipeline needs.
type RPCClient interface {
	// GetAccountData retrieves and decodes an account's raw data.
	// Returns ErrAccountNotFound when the account does not exist.
	GetAccountData(ctx context.Context, pubkey string) ([]byte, error)

	// GetSignaturesForAddress retrieves signatures for an address,
	// ordered newest to oldest, with pagination options.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)

	// GetTransactions retrieves a batch of transactions by signature.
	// Missing transactions come back as nil entries, index-aligned with
	// the input signatures.
	GetTransactions(ctx context.Context, signatures []string) ([]*Transaction, error)

	// GetProgramAccounts retrieves all accounts owned by a program that
	// match the given memcmp filters.
	GetProgramAccounts(ctx context.Context, programID string, filters []MemcmpFilter) ([]ProgramAccount, error)
}

// SignatureInfo from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      int64
	BlockTime *int64
	Err       interface{}
}

// SignaturesOpts defines optional pagination parameters for
// getSignaturesForAddress.
type SignaturesOpts struct {
	Before string // start searching backwards from this signature
	Until  string // search until this signature
	Limit  int    // maximum number of signatures to return
}

// MemcmpFilter matches accounts whose data at Offset equals Bytes
// (base58-encoded, per the RPC convention).
type MemcmpFilter struct {
	Offset int
	Bytes  string
}

// ProgramAccount is one result of getProgramAccounts.
type ProgramAccount struct {
	Pubkey string
	Data   []byte
}

// Transaction represents a Solana transaction with the pieces event
// extraction needs: account keys for program id resolution and inner
// instructions carrying self-CPI event data.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // unix seconds
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err               interface{}
	LogMessages       []string
	InnerInstructions []InnerInstructionSet
}

// InnerInstructionSet groups the inner instructions triggered by one
// top-level instruction.
type InnerInstructionSet struct {
	Index        int
	Instructions []CompiledInstruction
}

// CompiledInstruction is an instruction with its program resolved through
// the message account keys. Data is base58 as delivered by the RPC.
type CompiledInstruction struct {
	ProgramIDIndex int
	Accounts       []int
	Data           string
}

// TransactionMessage contains the parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string
}

// ProgramID resolves an instruction's program through the message keys.
// Returns "" when the index is out of range (lookup-table keys the RPC did
// not expand).
func (m *TransactionMessage) ProgramID(ix *CompiledInstruction) string {
	if m == nil || ix.ProgramIDIndex < 0 || ix.ProgramIDIndex >= len(m.AccountKeys) {
		return ""
	}
	return m.AccountKeys[ix.ProgramIDIndex]
}
