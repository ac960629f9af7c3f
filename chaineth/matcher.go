package chaineth

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/comitswap/swapd/btsieve"
	"github.com/comitswap/swapd/htlc/eth"
	"github.com/comitswap/swapd/model"
)

// Redeem/Refund event topics: the first 32 bytes of Keccak256 of the event
// signatures the HTLC contract emits, matching spec §4.2's "receipt log
// matches the redeem/refund event topic".
var (
	RedeemTopic = crypto.Keccak256Hash([]byte("HtlcRedeemed(bytes32)"))
	RefundTopic = crypto.Keccak256Hash([]byte("HtlcRefunded()"))
)

var erc20TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// Matcher implements btsieve.Matcher for Ethereum, per spec §4.2:
//
//   - Deployed: a contract-creation transaction (to == nil) whose input
//     equals the parameterized bytecode; receipt gives contract_address.
//   - Funded (Ether): the deploying transaction itself, when the value it
//     carries is at least the asset quantity.
//   - Funded (ERC20): a subsequent transfer(htlc_address, quantity) log on
//     token_contract with matching value.
//   - Redeemed: a call to the HTLC contract whose receipt log matches the
//     redeem event topic; secret = transaction input (32 bytes).
//   - Refunded: a call to the HTLC contract after expiry whose receipt log
//     matches the refund event topic.
//
// The Connector fetches the receipts of every transaction in a block before
// Match sees it; the bloom test does not skip that fetch. Match applies the
// topic bloom test only to skip scanning a block's transactions when no log
// in it can possibly match — a false positive is still possible and must
// not advance the watcher (spec §8 boundary behavior).
type Matcher struct{}

func (m Matcher) Match(block btsieve.Block, query btsieve.HtlcQuery, seen map[model.LedgerStatusKind]bool, htlcLocation model.TxLocation) []btsieve.Event {
	txs, ok := block.Opaque.([]blockTx)
	if !ok {
		return nil
	}

	params := query.Params
	isErc20 := params.Asset.Kind == model.AssetErc20
	contract := common.Address(htlcLocation.ContractAddress)

	var events []btsieve.Event

	if !seen[model.Deployed] {
		events = append(events, m.matchDeploy(txs, params, isErc20)...)
	}
	if seen[model.Deployed] && isErc20 && !seen[model.Funded] {
		if bloomMayContain(block.LogsBloom, erc20TransferTopic) {
			events = append(events, m.matchErc20Fund(txs, params, contract)...)
		}
	}
	if seen[model.Funded] && !seen[model.Redeemed] && !seen[model.Refunded] {
		if bloomMayContain(block.LogsBloom, RedeemTopic) {
			events = append(events, m.matchRedeem(txs, contract)...)
		}
		if bloomMayContain(block.LogsBloom, RefundTopic) {
			events = append(events, m.matchRefund(txs, contract)...)
		}
	}

	return events
}

func bloomMayContain(bloomBytes []byte, topic [32]byte) bool {
	if len(bloomBytes) == 0 {
		return true // no bloom available, fall back to scanning
	}
	bloom := ethtypes.BytesToBloom(bloomBytes)
	return bloom.Test(topic[:])
}

func (m Matcher) matchDeploy(txs []blockTx, params model.HtlcParams, isErc20 bool) []btsieve.Event {
	var wantCode []byte
	if isErc20 {
		p := eth.Erc20Params{
			EtherParams: etherParamsFrom(params),
			Quantity:    weiQuantity(params.Asset),
		}
		if params.Asset.Kind == model.AssetErc20 {
			p.TokenContract = params.Asset.TokenContract
		}
		wantCode = p.Bytecode()
	} else {
		wantCode = etherParamsFrom(params).Bytecode()
	}

	for _, bt := range txs {
		if bt.tx.To() != nil {
			continue
		}
		if !bytes.Equal(bt.tx.Data(), wantCode) {
			continue
		}
		var loc model.TxLocation
		loc.TxHash = bt.tx.Hash()
		loc.ContractAddress = bt.receipt.ContractAddress
		events := []btsieve.Event{{Kind: model.Deployed, Location: loc, TxHash: loc.TxHash}}
		if !isErc20 && bt.tx.Value().Cmp(weiQuantity(params.Asset)) >= 0 {
			events = append(events, btsieve.Event{Kind: model.Funded, Location: loc, TxHash: loc.TxHash})
		}
		return events
	}
	return nil
}

// matchErc20Fund requires the Transfer log to be emitted by this swap's own
// token_contract, destined for htlcContract (the address discovered by the
// earlier Deployed match), and carrying at least the expected quantity —
// otherwise a concurrently-running swap's own ERC20 funding transfer in the
// same block would be misattributed to this HTLC.
func (m Matcher) matchErc20Fund(txs []blockTx, params model.HtlcParams, htlcContract common.Address) []btsieve.Event {
	if htlcContract == (common.Address{}) {
		return nil
	}
	wantToken := common.Address(params.Asset.TokenContract)
	wantQuantity := weiQuantity(params.Asset)
	for _, bt := range txs {
		for _, l := range bt.receipt.Logs {
			if len(l.Topics) != 3 || l.Topics[0] != erc20TransferTopic {
				continue
			}
			if l.Address != wantToken {
				continue
			}
			to := common.BytesToAddress(l.Topics[2].Bytes())
			if to != htlcContract {
				continue
			}
			amount := new(big.Int).SetBytes(l.Data)
			if amount.Cmp(wantQuantity) < 0 {
				continue
			}
			return []btsieve.Event{{
				Kind:   model.Funded,
				TxHash: bt.tx.Hash(),
			}}
		}
	}
	return nil
}

// matchRedeem requires the redeem-event log to originate from htlcContract
// itself, the address this swap's own Deployed match discovered — otherwise
// any other concurrently-running HTLC's redeem in the same block matches
// the topic too.
func (m Matcher) matchRedeem(txs []blockTx, htlcContract common.Address) []btsieve.Event {
	if htlcContract == (common.Address{}) {
		return nil
	}
	for _, bt := range txs {
		for _, l := range bt.receipt.Logs {
			if len(l.Topics) == 0 || l.Topics[0] != RedeemTopic {
				continue
			}
			if l.Address != htlcContract {
				continue
			}
			if len(bt.tx.Data()) != 32 {
				continue
			}
			ev := btsieve.Event{Kind: model.Redeemed, TxHash: bt.tx.Hash()}
			copy(ev.Secret[:], bt.tx.Data())
			return []btsieve.Event{ev}
		}
	}
	return nil
}

// matchRefund requires the refund-event log to originate from htlcContract,
// the same disambiguation matchRedeem applies.
func (m Matcher) matchRefund(txs []blockTx, htlcContract common.Address) []btsieve.Event {
	if htlcContract == (common.Address{}) {
		return nil
	}
	for _, bt := range txs {
		for _, l := range bt.receipt.Logs {
			if len(l.Topics) == 0 || l.Topics[0] != RefundTopic {
				continue
			}
			if l.Address != htlcContract {
				continue
			}
			return []btsieve.Event{{Kind: model.Refunded, TxHash: bt.tx.Hash()}}
		}
	}
	return nil
}

func etherParamsFrom(p model.HtlcParams) eth.EtherParams {
	return eth.EtherParams{
		SecretHash:    p.SecretHash,
		RedeemAddress: p.RedeemIdentity.EthereumAddress(),
		RefundAddress: p.RefundIdentity.EthereumAddress(),
		Expiry:        uint32(p.Expiry),
	}
}

func weiQuantity(a model.Asset) *big.Int {
	if a.WeiQuantity == nil {
		return big.NewInt(0)
	}
	return a.WeiQuantity
}
