// Package resolver implements the action resolver (component C6): a pure
// function from a swap's current snapshot to the list of actions available
// to whichever party is asking, plus per-ledger payload builders that turn
// a chosen action into a ready-to-sign transaction descriptor.
//
// Framework-free by design, grounded on the shape of lnrpc's response
// builders (map internal state to a wire-friendly struct, no side effects)
// but without lnrpc/grpc itself in this package — package cmd/swapd is
// where resolver's output gets put on a gRPC wire.
package resolver

import (
	"fmt"

	"github.com/comitswap/swapd/htlc/btc"
	"github.com/comitswap/swapd/htlc/eth"
	"github.com/comitswap/swapd/model"
)

// ActionKind enumerates the actions the resolver can offer for a swap in
// any given snapshot.
type ActionKind string

const (
	ActionAccept  ActionKind = "accept"
	ActionDecline ActionKind = "decline"
	ActionDeploy  ActionKind = "deploy"
	ActionFund    ActionKind = "fund"
	ActionRedeem  ActionKind = "redeem"
	ActionRefund  ActionKind = "refund"
)

// Action is one resolver-offered action: which ledger, which operation,
// and an opaque per-ledger Payload the caller signs and broadcasts.
type Action struct {
	Kind    ActionKind
	Ledger  model.LedgerKind
	Payload interface{}
}

// ErrNoActionAvailable is the "conflict" error for an action the snapshot
// does not offer (the action was already taken, the swap moved on, or the
// caller asked about the wrong role). Resolve does not return it: it
// reports "nothing to do" as an empty slice, and no function in this
// package returns this error.
var ErrNoActionAvailable = fmt.Errorf("resolver: no matching action available")

// BitcoinRedeemPayload is the Bitcoin ActionRedeem/ActionRefund payload:
// the witness script parameters plus the outpoint being spent, everything
// a caller needs to build and sign the spending transaction via package
// htlc/btc.
type BitcoinRedeemPayload struct {
	ScriptParams btc.Params
	Outpoint     btc.Outpoint
	GasHint      uint64 // zero for Bitcoin; present for interface symmetry
}

// EthereumDeployPayload is the Ethereum ActionDeploy payload.
type EthereumDeployPayload struct {
	EtherParams eth.EtherParams
	Erc20       *eth.Erc20Params
	GasLimit    uint64
}

// EthereumCallPayload is the Ethereum ActionFund/ActionRedeem/ActionRefund
// payload: a call against an already-deployed HTLC contract.
type EthereumCallPayload struct {
	ContractAddress [20]byte
	GasLimit        uint64
}

// Resolve computes every action available on state for the given role.
// Multiple actions can be legally available at once (e.g. in BothFunded
// Alice is offered both redeeming beta and refunding alpha); it is not
// resolver's job to pick one, only to enumerate.
func Resolve(state model.SwapState, role model.Role) []Action {
	if state.Phase.Terminal() {
		return nil
	}

	var actions []Action
	switch state.Phase {
	case model.PhaseStart:
		// Alice's own request already moved her into PhaseStart as the
		// requester; only Bob, the responder, has anything to decide
		// here (spec §4.6's "Bob in Start: accept, decline").
		if role == model.RoleBob {
			actions = append(actions,
				Action{Kind: ActionAccept},
				Action{Kind: ActionDecline},
			)
		}
	case model.PhaseAccepted:
		if role == roleThatFunds(state, alphaSide) {
			actions = append(actions, deployOrFundAction(state, alphaSide))
		}
	case model.PhaseAlphaFunded:
		if role == roleThatFunds(state, betaSide) {
			actions = append(actions, deployOrFundAction(state, betaSide))
		}
		actions = append(actions, maybeRefund(state, alphaSide, role)...)
	case model.PhaseBothFunded:
		actions = append(actions, redeemAction(state, betaSide, role))
		actions = append(actions, maybeRefund(state, alphaSide, role)...)
		actions = append(actions, maybeRefund(state, betaSide, role)...)
	case model.PhaseAlphaFundedBetaRedeemed:
		actions = append(actions, redeemAction(state, alphaSide, role))
		actions = append(actions, maybeRefund(state, alphaSide, role)...)
	case model.PhaseAlphaRedeemedBetaFunded:
		actions = append(actions, redeemAction(state, betaSide, role))
		actions = append(actions, maybeRefund(state, betaSide, role)...)
	case model.PhaseAlphaRefundedBetaFunded:
		actions = append(actions, maybeRefund(state, betaSide, role)...)
	case model.PhaseAlphaFundedBetaRefunded:
		actions = append(actions, maybeRefund(state, alphaSide, role)...)
	}

	var filtered []Action
	for _, a := range actions {
		if a.Kind != "" {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

type ledgerSide uint8

const (
	alphaSide ledgerSide = iota
	betaSide
)

func params(state model.SwapState, s ledgerSide) model.HtlcParams {
	accept := model.Accept{}
	if state.Accept != nil {
		accept = *state.Accept
	}
	if s == alphaSide {
		return model.AlphaParams(state.Request, accept)
	}
	return model.BetaParams(state.Request, accept)
}

func ledgerState(state model.SwapState, s ledgerSide) model.LedgerState {
	if s == alphaSide {
		return state.AlphaState
	}
	return state.BetaState
}

// roleThatFunds reports which role's obligation it is to deploy/fund the
// given side: Alice funds alpha, Bob funds beta, per spec §3.
func roleThatFunds(state model.SwapState, s ledgerSide) model.Role {
	if s == alphaSide {
		return model.RoleAlice
	}
	return model.RoleBob
}

// roleThatRedeems reports which role is entitled to redeem the given side:
// Bob redeems alpha (after learning the secret), Alice redeems beta.
func roleThatRedeems(s ledgerSide) model.Role {
	if s == alphaSide {
		return model.RoleBob
	}
	return model.RoleAlice
}

func deployOrFundAction(state model.SwapState, s ledgerSide) Action {
	p := params(state, s)
	switch p.Ledger.Kind {
	case model.LedgerBitcoin:
		return Action{
			Kind:   ActionDeploy,
			Ledger: model.LedgerBitcoin,
			Payload: BitcoinRedeemPayload{
				ScriptParams: btcParams(p),
			},
		}
	case model.LedgerEthereum:
		return ethDeployAction(p)
	default:
		return Action{}
	}
}

func redeemAction(state model.SwapState, s ledgerSide, role model.Role) Action {
	if role != roleThatRedeems(s) {
		return Action{}
	}
	ls := ledgerState(state, s)
	if ls.Status != model.Funded {
		return Action{}
	}
	if !state.HasSecret && s == alphaSide {
		// Alice always knows her own secret; this guard matters for Bob
		// redeeming alpha, who needs the secret revealed by BetaRedeemed.
		return Action{}
	}
	p := params(state, s)
	switch p.Ledger.Kind {
	case model.LedgerBitcoin:
		return Action{
			Kind:   ActionRedeem,
			Ledger: model.LedgerBitcoin,
			Payload: BitcoinRedeemPayload{
				ScriptParams: btcParams(p),
				Outpoint:     btc.Outpoint{Hash: ls.Location.TxHash, Index: ls.Location.Vout},
			},
		}
	case model.LedgerEthereum:
		return Action{
			Kind:   ActionRedeem,
			Ledger: model.LedgerEthereum,
			Payload: EthereumCallPayload{
				ContractAddress: ls.Location.ContractAddress,
				GasLimit:        eth.RedeemTxGasLimit,
			},
		}
	default:
		return Action{}
	}
}

// maybeRefund offers a refund action for side s to the role entitled to it
// (the side's own refund identity holder), once that side is Funded. The
// resolver does not itself check ledger time against expiry: that
// precondition belongs to whichever component actually broadcasts the
// transaction, since Resolve must stay a pure function of state.
func maybeRefund(state model.SwapState, s ledgerSide, role model.Role) []Action {
	if role != roleThatFunds(state, s) {
		return nil
	}
	ls := ledgerState(state, s)
	if ls.Status != model.Funded {
		return nil
	}
	p := params(state, s)
	switch p.Ledger.Kind {
	case model.LedgerBitcoin:
		return []Action{{
			Kind:   ActionRefund,
			Ledger: model.LedgerBitcoin,
			Payload: BitcoinRedeemPayload{
				ScriptParams: btcParams(p),
				Outpoint:     btc.Outpoint{Hash: ls.Location.TxHash, Index: ls.Location.Vout},
			},
		}}
	case model.LedgerEthereum:
		return []Action{{
			Kind:   ActionRefund,
			Ledger: model.LedgerEthereum,
			Payload: EthereumCallPayload{
				ContractAddress: ls.Location.ContractAddress,
				GasLimit:        eth.RefundTxGasLimit,
			},
		}}
	default:
		return nil
	}
}

func btcParams(p model.HtlcParams) btc.Params {
	return btc.Params{
		SecretHash:   p.SecretHash,
		RedeemPubKey: p.RedeemIdentity.BitcoinPubKey(),
		RefundPubKey: p.RefundIdentity.BitcoinPubKey(),
		Expiry:       uint32(p.Expiry),
	}
}

func ethDeployAction(p model.HtlcParams) Action {
	etherParams := eth.EtherParams{
		SecretHash:    p.SecretHash,
		RedeemAddress: p.RedeemIdentity.EthereumAddress(),
		RefundAddress: p.RefundIdentity.EthereumAddress(),
		Expiry:        uint32(p.Expiry),
	}
	if p.Asset.Kind == model.AssetErc20 {
		erc20 := eth.Erc20Params{
			EtherParams:   etherParams,
			TokenContract: p.Asset.TokenContract,
			Quantity:      p.Asset.WeiQuantity,
		}
		return Action{
			Kind:   ActionDeploy,
			Ledger: model.LedgerEthereum,
			Payload: EthereumDeployPayload{
				EtherParams: etherParams,
				Erc20:       &erc20,
				GasLimit:    eth.DeployTxGasLimit,
			},
		}
	}
	return Action{
		Kind:   ActionDeploy,
		Ledger: model.LedgerEthereum,
		Payload: EthereumDeployPayload{
			EtherParams: etherParams,
			GasLimit:    eth.DeployTxGasLimit,
		},
	}
}
