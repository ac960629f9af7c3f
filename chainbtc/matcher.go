package chainbtc

import (
	"github.com/btcsuite/btcd/wire"

	"github.com/comitswap/swapd/btsieve"
	"github.com/comitswap/swapd/htlc/btc"
	"github.com/comitswap/swapd/model"
)

// Matcher implements btsieve.Matcher for Bitcoin, per spec §4.2's matching
// rules:
//
//   - Deployed/Funded: a transaction has an output whose scriptPubKey
//     equals the HTLC's P2WSH scriptPubKey, value >= expected quantity.
//     Both events resolve from the same tx, since Bitcoin deployment and
//     funding coincide.
//   - Redeemed: a transaction has an input spending the HTLC outpoint with
//     a witness stack shaped like the redeem path; secret = witness[2].
//   - Refunded: same, but witness shaped like the refund path (empty 3rd
//     element).
type Matcher struct{}

func (m Matcher) Match(block btsieve.Block, query btsieve.HtlcQuery, seen map[model.LedgerStatusKind]bool, htlcLocation model.TxLocation) []btsieve.Event {
	msgBlock, ok := block.Opaque.(*wire.MsgBlock)
	if !ok {
		return nil
	}

	params := query.Params
	scriptParams := btc.Params{
		SecretHash:   params.SecretHash,
		RedeemPubKey: params.RedeemIdentity.BitcoinPubKey(),
		RefundPubKey: params.RefundIdentity.BitcoinPubKey(),
		Expiry:       uint32(params.Expiry),
	}
	wantScriptPubKey, err := btc.ScriptPubKey(scriptParams)
	if err != nil {
		return nil
	}

	var events []btsieve.Event

	if !seen[model.Funded] {
		for _, tx := range msgBlock.Transactions {
			vout, value, found := p2wshLocator(tx, wantScriptPubKey)
			if !found {
				continue
			}
			if uint64(value) < expectedSatoshis(params.Asset) {
				continue
			}
			txHash := tx.TxHash()
			loc := model.TxLocation{TxHash: txHash, Vout: vout}
			events = append(events,
				btsieve.Event{Kind: model.Deployed, Location: loc, TxHash: txHash},
				btsieve.Event{Kind: model.Funded, Location: loc, TxHash: txHash},
			)
			break
		}
	}

	if seen[model.Funded] && !seen[model.Redeemed] && !seen[model.Refunded] {
		events = append(events, m.matchSpend(msgBlock, htlcLocation)...)
	}

	return events
}

// matchSpend scans every input in the block for one that actually spends
// fundingLocation (the outpoint this HTLC's Funded event was observed at)
// with a witness stack shaped like the redeem or refund path. Requiring
// spendsOutpoint, not witness shape alone, is what stops another swap's
// redeem/refund transaction in the same block — which shares the same
// script template and therefore the same witness shape — from being
// misattributed to this HTLC.
func (m Matcher) matchSpend(msgBlock *wire.MsgBlock, fundingLocation model.TxLocation) []btsieve.Event {
	if fundingLocation == (model.TxLocation{}) {
		return nil
	}
	var events []btsieve.Event
	for _, tx := range msgBlock.Transactions {
		for _, in := range tx.TxIn {
			if !spendsOutpoint(in, fundingLocation.TxHash, fundingLocation.Vout) {
				continue
			}
			isRedeem, isRefund := witnessShape(in.Witness)
			if !isRedeem && !isRefund {
				continue
			}
			txHash := tx.TxHash()
			loc := model.TxLocation{TxHash: txHash}
			if isRedeem {
				ev := btsieve.Event{Kind: model.Redeemed, Location: loc, TxHash: txHash}
				copy(ev.Secret[:], in.Witness[2])
				events = append(events, ev)
			} else {
				events = append(events, btsieve.Event{
					Kind: model.Refunded, Location: loc, TxHash: txHash,
				})
			}
		}
	}
	return events
}

func expectedSatoshis(a model.Asset) uint64 {
	if a.Kind == model.AssetBitcoinQuantity {
		return a.SatoshiQuantity
	}
	return 0
}
