// Package chainbtc implements the Bitcoin ledger connector consumed by
// btsieve: btsieve.BlockSource backed by a btcd RPC client, grounded on
// lnd's own btcd RPC wiring (lnd.go's rpcclient.ConnConfig setup) and on
// chainntfs.ChainNotifier's event-delivery shape.
package chainbtc

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"

	"github.com/comitswap/swapd/btsieve"
)

// Connector implements btsieve.BlockSource over a btcd RPC client.
type Connector struct {
	client  *rpcclient.Client
	network *chaincfg.Params
}

// New builds a Connector from an already-dialled btcd RPC client.
func New(client *rpcclient.Client, network *chaincfg.Params) *Connector {
	return &Connector{client: client, network: network}
}

func toBlockHash(h chainhash.Hash) btsieve.BlockHash {
	var bh btsieve.BlockHash
	copy(bh[:], h[:])
	return bh
}

func toChainHash(h btsieve.BlockHash) chainhash.Hash {
	var ch chainhash.Hash
	copy(ch[:], h[:])
	return ch
}

// LatestBlock implements btsieve.BlockSource.
func (c *Connector) LatestBlock(ctx context.Context) (btsieve.Block, error) {
	hash, err := c.client.GetBestBlockHash()
	if err != nil {
		return btsieve.Block{}, fmt.Errorf("get best block hash: %w", err)
	}
	return c.blockByHash(*hash)
}

// BlockByHash implements btsieve.BlockSource.
func (c *Connector) BlockByHash(ctx context.Context, hash btsieve.BlockHash) (btsieve.Block, error) {
	return c.blockByHash(toChainHash(hash))
}

// LedgerTime implements btsieve.BlockSource: the latest block's timestamp,
// used for refund-eligibility checks per spec §4.4. Bitcoin's actual
// consensus rule is median-time-past; an implementer wiring this against a
// live node should source median-time-past from the node RPC rather than a
// single block's timestamp, which this minimal connector uses for
// simplicity.
func (c *Connector) LedgerTime(ctx context.Context) (time.Time, error) {
	tip, err := c.LatestBlock(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return tip.Timestamp, nil
}

// Matcher implements btsieve.BlockSource.
func (c *Connector) Matcher() btsieve.Matcher { return Matcher{} }

func (c *Connector) blockByHash(hash chainhash.Hash) (btsieve.Block, error) {
	header, err := c.client.GetBlockHeaderVerbose(&hash)
	if err != nil {
		return btsieve.Block{}, fmt.Errorf("get block header %s: %w", hash, err)
	}
	msgBlock, err := c.client.GetBlock(&hash)
	if err != nil {
		return btsieve.Block{}, fmt.Errorf("get block %s: %w", hash, err)
	}

	return btsieve.Block{
		Hash:      toBlockHash(hash),
		PrevHash:  toBlockHash(msgBlock.Header.PrevBlock),
		Height:    uint64(header.Height),
		Timestamp: msgBlock.Header.Timestamp,
		Opaque:    msgBlock,
	}, nil
}

// p2wshLocator locates a P2WSH output by scriptPubKey within a transaction.
func p2wshLocator(tx *wire.MsgTx, scriptPubKey []byte) (vout uint32, value int64, found bool) {
	for i, out := range tx.TxOut {
		if bytes.Equal(out.PkScript, scriptPubKey) {
			return uint32(i), out.Value, true
		}
	}
	return 0, 0, false
}

// witnessShape classifies a witness stack as the HTLC redeem path (5
// elements: sig, pubkey, 32-byte secret, 0x01, script) or the refund path
// (4 elements: sig, pubkey, empty 3rd element, script).
func witnessShape(witness wire.TxWitness) (isRedeem, isRefund bool) {
	switch len(witness) {
	case 5:
		return len(witness[2]) == 32, false
	case 4:
		return false, len(witness[2]) == 0
	}
	return false, false
}

// spendsOutpoint reports whether in spends the given outpoint.
func spendsOutpoint(in *wire.TxIn, hash [32]byte, index uint32) bool {
	return in.PreviousOutPoint.Hash == chainhash.Hash(hash) &&
		in.PreviousOutPoint.Index == index
}
