package btc

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// ErrFeeHigherThanInputValue is returned by the spend builders when the
// estimated fee would consume the entire input value or more, per spec
// §4.1/§8.
var ErrFeeHigherThanInputValue = fmt.Errorf("fee higher than input value")

// Outpoint identifies the HTLC output being spent.
type Outpoint struct {
	Hash  chainhash.Hash
	Index uint32
	Value int64 // satoshis locked in the HTLC output
}

// Signer produces a deterministic (RFC6979) ECDSA signature over sigHash
// with the key controlling one side of the HTLC. Implemented by
// package keyoracle; kept as a narrow function type here so htlc/btc has no
// dependency on the oracle's concrete type.
type Signer func(sigHash []byte) (*ecdsa.Signature, error)

// feeFromWeight computes fee = estimated_weight * fee_per_wu, the formula
// of spec §4.1.
func feeFromWeight(weight int64, feePerWU int64) int64 {
	return weight * feePerWU
}

// buildSpendTx assembles the common shape of a redeem/refund spend: single
// input from the HTLC outpoint, single output to destination, the
// nSequence/nLockTime pair the caller supplies.
func buildSpendTx(op Outpoint, destination btcutil.Address, fee int64, lockTime uint32, sequence uint32) (*wire.MsgTx, error) {
	if fee >= op.Value {
		return nil, ErrFeeHigherThanInputValue
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.LockTime = lockTime

	outPoint := wire.NewOutPoint(&op.Hash, op.Index)
	txIn := wire.NewTxIn(outPoint, nil, nil)
	txIn.Sequence = sequence
	tx.AddTxIn(txIn)

	pkScript, err := txscript.PayToAddrScript(destination)
	if err != nil {
		return nil, fmt.Errorf("destination script: %w", err)
	}
	tx.AddTxOut(wire.NewTxOut(op.Value-fee, pkScript))

	return tx, nil
}

// witnessSigHash computes the BIP143 segwit sighash for the single input of
// tx spending an HTLC output of the given witness script and value, with
// SIGHASH_ALL.
func witnessSigHash(tx *wire.MsgTx, witnessScript []byte, value int64) ([]byte, error) {
	prevOutFetcher := txscript.NewCannedPrevOutputFetcher(nil, value)
	sigHashes := txscript.NewTxSigHashes(tx, prevOutFetcher)
	return txscript.CalcWitnessSigHash(
		witnessScript, sigHashes, txscript.SigHashAll, tx, 0, value,
	)
}

// BuildRedeem builds the transaction claiming an HTLC output via the secret
// path: witness stack <sig> <pubkey> <32-byte secret> 0x01 <script>,
// nSequence = SequenceAllowNTimelockNoRBF, nLockTime = 0.
func BuildRedeem(p Params, op Outpoint, destination btcutil.Address, feePerWU int64, redeemKey *btcec.PrivateKey, secret [32]byte, sign Signer) (*wire.MsgTx, error) {
	fee := feeFromWeight(RedeemTxWitnessWeight, feePerWU)
	tx, err := buildSpendTx(op, destination, fee, 0, SequenceAllowNTimelockNoRBF)
	if err != nil {
		return nil, err
	}

	script, err := Script(p)
	if err != nil {
		return nil, fmt.Errorf("build htlc script: %w", err)
	}

	sigHash, err := witnessSigHash(tx, script, op.Value)
	if err != nil {
		return nil, fmt.Errorf("compute sighash: %w", err)
	}

	sig, err := sign(sigHash)
	if err != nil {
		return nil, fmt.Errorf("sign redeem: %w", err)
	}

	pubKeyBytes := redeemKey.PubKey().SerializeCompressed()
	sigBytes := append(sig.Serialize(), byte(txscript.SigHashAll))

	tx.TxIn[0].Witness = wire.TxWitness{
		sigBytes,
		pubKeyBytes,
		secret[:],
		{0x01},
		script,
	}
	return tx, nil
}

// BuildRefund builds the transaction reclaiming an HTLC output after expiry:
// witness stack <sig> <pubkey> <> <script> (empty third element so OP_IF
// takes the else-branch), nSequence = SequenceAllowNTimelockNoRBF,
// nLockTime = expiry.
//
// Per spec §8's boundary behavior, a refund transaction with
// nLockTime == expiry is rejected by consensus (CLTV requires
// locktime >= the compared value *and* nLockTime on the spending tx must
// itself be >= that value for the CHECKLOCKTIMEVERIFY comparison to pass,
// but mined block time must also have advanced past expiry) — callers must
// not attempt a refund before ledger time exceeds p.Expiry.
func BuildRefund(p Params, op Outpoint, destination btcutil.Address, feePerWU int64, refundKey *btcec.PrivateKey, sign Signer) (*wire.MsgTx, error) {
	fee := feeFromWeight(RefundTxWitnessWeight, feePerWU)
	tx, err := buildSpendTx(op, destination, fee, p.Expiry, SequenceAllowNTimelockNoRBF)
	if err != nil {
		return nil, err
	}

	script, err := Script(p)
	if err != nil {
		return nil, fmt.Errorf("build htlc script: %w", err)
	}

	sigHash, err := witnessSigHash(tx, script, op.Value)
	if err != nil {
		return nil, fmt.Errorf("compute sighash: %w", err)
	}

	sig, err := sign(sigHash)
	if err != nil {
		return nil, fmt.Errorf("sign refund: %w", err)
	}

	pubKeyBytes := refundKey.PubKey().SerializeCompressed()
	sigBytes := append(sig.Serialize(), byte(txscript.SigHashAll))

	tx.TxIn[0].Witness = wire.TxWitness{
		sigBytes,
		pubKeyBytes,
		{},
		script,
	}
	return tx, nil
}
