// Package chaineth implements the Ethereum ledger connector consumed by
// btsieve: btsieve.BlockSource backed by go-ethereum's ethclient, enriched
// from the rest of the example pack per htlc/eth's grounding note (lnd has
// no Ethereum code).
package chaineth

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/comitswap/swapd/btsieve"
)

// Connector implements btsieve.BlockSource over go-ethereum's ethclient.
type Connector struct {
	client *ethclient.Client
}

// New builds a Connector from an already-dialled ethclient.
func New(client *ethclient.Client) *Connector {
	return &Connector{client: client}
}

func toBlockHash(h [32]byte) btsieve.BlockHash { return btsieve.BlockHash(h) }

func (c *Connector) toBtsieveBlock(ctx context.Context, header *types.Header) (btsieve.Block, error) {
	receipts, err := c.receiptsForBlock(ctx, header)
	if err != nil {
		return btsieve.Block{}, err
	}
	block := btsieve.Block{
		Hash:      toBlockHash(header.Hash()),
		PrevHash:  toBlockHash(header.ParentHash),
		Height:    header.Number.Uint64(),
		Timestamp: time.Unix(int64(header.Time), 0).UTC(),
		LogsBloom: header.Bloom.Bytes(),
		Opaque:    receipts,
	}
	return block, nil
}

// receiptsForBlock fetches the full block and every transaction's receipt.
// Receipts with a failure status are dropped up front, per spec §4.2/§7:
// "transactions whose receipt status is failure must not produce events".
func (c *Connector) receiptsForBlock(ctx context.Context, header *types.Header) ([]blockTx, error) {
	block, err := c.client.BlockByHash(ctx, header.Hash())
	if err != nil {
		return nil, fmt.Errorf("fetch block body %s: %w", header.Hash(), err)
	}

	var out []blockTx
	for _, tx := range block.Transactions() {
		receipt, err := c.client.TransactionReceipt(ctx, tx.Hash())
		if err != nil {
			return nil, fmt.Errorf("fetch receipt %s: %w", tx.Hash(), err)
		}
		if receipt.Status != types.ReceiptStatusSuccessful {
			continue
		}
		out = append(out, blockTx{tx: tx, receipt: receipt})
	}
	return out, nil
}

// blockTx pairs a transaction with its successful receipt, the unit the
// Matcher works over.
type blockTx struct {
	tx      *types.Transaction
	receipt *types.Receipt
}

// LatestBlock implements btsieve.BlockSource.
func (c *Connector) LatestBlock(ctx context.Context) (btsieve.Block, error) {
	header, err := c.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return btsieve.Block{}, fmt.Errorf("get latest header: %w", err)
	}
	return c.toBtsieveBlock(ctx, header)
}

// BlockByHash implements btsieve.BlockSource.
func (c *Connector) BlockByHash(ctx context.Context, hash btsieve.BlockHash) (btsieve.Block, error) {
	header, err := c.client.HeaderByHash(ctx, common.Hash(hash))
	if err != nil {
		return btsieve.Block{}, fmt.Errorf("get header %x: %w", hash, err)
	}
	return c.toBtsieveBlock(ctx, header)
}

// LedgerTime implements btsieve.BlockSource: block.timestamp of the chain
// tip, exactly the comparison the HTLC contract itself uses for refund
// eligibility.
func (c *Connector) LedgerTime(ctx context.Context) (time.Time, error) {
	header, err := c.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("get latest header: %w", err)
	}
	return time.Unix(int64(header.Time), 0).UTC(), nil
}

// Matcher implements btsieve.BlockSource.
func (c *Connector) Matcher() btsieve.Matcher { return Matcher{} }

var _ = big.NewInt // kept for callers building Asset quantities from receipts
