// Package eth implements the Ethereum side of the HTLC codec (component
// C1): Ether and ERC20 HTLC contract bytecode with placeholder
// substitution, and the deploy/fund/redeem/refund transaction builders.
//
// lnd (the teacher) has no Ethereum code at all; this package is enriched
// from the rest of the example pack (the ETH/XMR atomic-swap tooling under
// _examples/bingcicle-atomic-swap and other_examples) per the "enrich from
// the rest of the pack" rule, using go-ethereum for transaction/ABI
// encoding.
package eth

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Fixed bytecode fragments surrounding the placeholders. Treated as opaque
// templates, the same way the Bitcoin codec treats its script constant: two
// independent implementations must reproduce these bytes exactly for the
// resulting contract addresses/bytecode to match.
var (
	contractPreamble      = mustHex("6060604052348015600f57600080fd5b50")
	contractEpilogueEther = mustHex("600055600155600255600355")
	contractEpilogueErc20 = mustHex("600055600155600255600355600455600555")
)

func mustHex(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic("eth: bad contract template literal: " + err.Error())
	}
	return b
}

// EtherParams is the 4-tuple determining one Ether HTLC instance.
type EtherParams struct {
	SecretHash    [32]byte
	RedeemAddress common.Address
	RefundAddress common.Address
	Expiry        uint32
}

// Erc20Params extends EtherParams with the ERC20-specific placeholders.
type Erc20Params struct {
	EtherParams
	TokenContract common.Address
	Quantity      *big.Int
}

// etherPlaceholders lays out the four Ether-HTLC placeholders in the fixed
// order the template expects: secret_hash (32B), refund_address (20B),
// redeem_address (20B), expiry (4B big-endian).
func (p EtherParams) etherPlaceholders() []byte {
	buf := make([]byte, 0, 32+20+20+4)
	buf = append(buf, p.SecretHash[:]...)
	buf = append(buf, p.RefundAddress.Bytes()...)
	buf = append(buf, p.RedeemAddress.Bytes()...)
	expiry := make([]byte, 4)
	binary.BigEndian.PutUint32(expiry, p.Expiry)
	return append(buf, expiry...)
}

// Bytecode renders the Ether HTLC's creation bytecode with every
// placeholder substituted: preamble || secret_hash || refund_address ||
// redeem_address || expiry || epilogue.
func (p EtherParams) Bytecode() []byte {
	code := append([]byte{}, contractPreamble...)
	code = append(code, p.etherPlaceholders()...)
	return append(code, contractEpilogueEther...)
}

// Bytecode renders the ERC20 HTLC's creation bytecode with every
// placeholder substituted, extending the Ether layout with token_contract
// (20B) and quantity (32B, big-endian unsigned).
func (p Erc20Params) Bytecode() []byte {
	code := append([]byte{}, contractPreamble...)
	code = append(code, p.etherPlaceholders()...)
	code = append(code, p.TokenContract.Bytes()...)

	quantity := make([]byte, 32)
	p.Quantity.FillBytes(quantity)
	code = append(code, quantity...)

	return append(code, contractEpilogueErc20...)
}

// Gas limit constants derived from contract analysis, per spec §4.1.
const (
	DeployTxGasLimit = 120_000
	FundTxGasLimit   = 60_000
	RedeemTxGasLimit = 40_000
	RefundTxGasLimit = 40_000
)

// DeployTx builds the contract-creation transaction for an Ether HTLC:
// `to == nil`, `input` equals the parameterized bytecode.
func DeployTx(p EtherParams, nonce uint64, value *big.Int, gasPrice *big.Int) *types.Transaction {
	return types.NewContractCreation(nonce, value, DeployTxGasLimit, gasPrice, p.Bytecode())
}

// DeployErc20Tx builds the contract-creation transaction for an ERC20 HTLC.
// The HTLC itself holds no Ether balance; funding happens via a subsequent
// ERC20 transfer, not the value of this transaction.
func DeployErc20Tx(p Erc20Params, nonce uint64, gasPrice *big.Int) *types.Transaction {
	return types.NewContractCreation(nonce, big.NewInt(0), DeployTxGasLimit, gasPrice, p.Bytecode())
}

var transferSelector = crypto.Keccak256([]byte("transfer(address,uint256)"))[:4]

// erc20TransferArgs ABI-encodes only the two arguments of
// transfer(address,uint256); it is not a full contract ABI.
var erc20TransferArgs = mustABIArgs("address", "uint256")

func mustABIArgs(argTypes ...string) abi.Arguments {
	args := make(abi.Arguments, len(argTypes))
	for i, t := range argTypes {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			panic("eth: bad abi type " + t + ": " + err.Error())
		}
		args[i] = abi.Argument{Type: typ}
	}
	return args
}

// FundErc20Tx builds the `transfer(htlc_address, quantity)` call on
// token_contract that funds an already-deployed ERC20 HTLC.
func FundErc20Tx(p Erc20Params, htlcAddress common.Address, nonce uint64, gasPrice *big.Int) (*types.Transaction, error) {
	packedArgs, err := erc20TransferArgs.Pack(htlcAddress, p.Quantity)
	if err != nil {
		return nil, fmt.Errorf("pack transfer args: %w", err)
	}
	data := append(append([]byte{}, transferSelector...), packedArgs...)

	return types.NewTransaction(
		nonce, p.TokenContract, big.NewInt(0), FundTxGasLimit, gasPrice, data,
	), nil
}

// RedeemTx builds the call revealing secret to the HTLC contract. On a
// 32-byte argument whose SHA-256 equals secret_hash, the contract
// transfers its balance (or invokes the token transfer, for ERC20) to
// redeem_address and self-destructs.
func RedeemTx(htlcAddress common.Address, secret [32]byte, nonce uint64, gasPrice *big.Int) *types.Transaction {
	return types.NewTransaction(
		nonce, htlcAddress, big.NewInt(0), RedeemTxGasLimit, gasPrice, secret[:],
	)
}

// RefundTx builds the empty-data call reclaiming the HTLC after expiry.
// Valid only once block.timestamp >= expiry; the contract itself enforces
// this, btsieve only needs to watch for the resulting event, not pre-check
// it.
func RefundTx(htlcAddress common.Address, nonce uint64, gasPrice *big.Int) *types.Transaction {
	return types.NewTransaction(
		nonce, htlcAddress, big.NewInt(0), RefundTxGasLimit, gasPrice, nil,
	)
}
