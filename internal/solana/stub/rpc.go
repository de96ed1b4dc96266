// Package stub provides an in-memory RPCClient for tests.
package stub

import (
	"context"

	"dlmm-viewer/internal/solana"
)

// RPCClient implements solana.RPCClient over canned data. Populate the maps
// directly; the Fail* fields force errors for fault-isolation tests.
type RPCClient struct {
	Accounts        map[string][]byte
	Transactions    map[string]*solana.Transaction
	Signatures      map[string][]solana.SignatureInfo
	ProgramAccounts map[string][]solana.ProgramAccount // keyed by program id

	FailAccounts        map[string]error
	FailProgramAccounts error
}

// NewRPCClient creates an empty stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Accounts:        make(map[string][]byte),
		Transactions:    make(map[string]*solana.Transaction),
		Signatures:      make(map[string][]solana.SignatureInfo),
		ProgramAccounts: make(map[string][]solana.ProgramAccount),
		FailAccounts:    make(map[string]error),
	}
}

// GetAccountData returns canned account data.
func (c *RPCClient) GetAccountData(_ context.Context, pubkey string) ([]byte, error) {
	if err, ok := c.FailAccounts[pubkey]; ok {
		return nil, err
	}
	data, ok := c.Accounts[pubkey]
	if !ok {
		return nil, solana.ErrAccountNotFound
	}
	return data, nil
}

// GetSignaturesForAddress returns canned signatures, honoring Limit.
func (c *RPCClient) GetSignaturesForAddress(_ context.Context, address string, opts *solana.SignaturesOpts) ([]solana.SignatureInfo, error) {
	sigs := c.Signatures[address]
	if opts != nil && opts.Before != "" {
		for i, s := range sigs {
			if s.Signature == opts.Before {
				sigs = sigs[i+1:]
				break
			}
		}
	}
	if opts != nil && opts.Limit > 0 && opts.Limit < len(sigs) {
		sigs = sigs[:opts.Limit]
	}
	return sigs, nil
}

// GetTransactions returns canned transactions, nil for unknown signatures.
func (c *RPCClient) GetTransactions(_ context.Context, signatures []string) ([]*solana.Transaction, error) {
	txs := make([]*solana.Transaction, len(signatures))
	for i, sig := range signatures {
		txs[i] = c.Transactions[sig]
	}
	return txs, nil
}

// GetProgramAccounts returns canned program accounts, ignoring filters.
func (c *RPCClient) GetProgramAccounts(_ context.Context, programID string, _ []solana.MemcmpFilter) ([]solana.ProgramAccount, error) {
	if c.FailProgramAccounts != nil {
		return nil, c.FailProgramAccounts
	}
	return c.ProgramAccounts[programID], nil
}
