package btc

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
)

func testParams(t *testing.T) (Params, *btcec.PrivateKey, *btcec.PrivateKey) {
	t.Helper()

	redeemKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	refundKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	var redeemPK, refundPK [33]byte
	copy(redeemPK[:], redeemKey.PubKey().SerializeCompressed())
	copy(refundPK[:], refundKey.PubKey().SerializeCompressed())

	p := Params{
		SecretHash:   chainhash.HashH([]byte("hello world, you are beautiful!!")),
		RedeemPubKey: redeemPK,
		RefundPubKey: refundPK,
		Expiry:       2_000_000_000,
		Network:      &chaincfg.RegressionNetParams,
	}
	return p, redeemKey, refundKey
}

func TestScriptIsDeterministic(t *testing.T) {
	p, _, _ := testParams(t)

	script1, err := Script(p)
	require.NoError(t, err)
	script2, err := Script(p)
	require.NoError(t, err)
	require.Equal(t, script1, script2)
}

func TestAddressDerivation(t *testing.T) {
	p, _, _ := testParams(t)

	addr, err := Address(p)
	require.NoError(t, err)
	require.NotEmpty(t, addr.EncodeAddress())

	pkScript, err := ScriptPubKey(p)
	require.NoError(t, err)
	// OP_0 <32-byte-hash> is exactly 34 bytes for a P2WSH scriptPubKey.
	require.Len(t, pkScript, 34)
}

func TestBuildRedeemIsDeterministic(t *testing.T) {
	p, redeemKey, _ := testParams(t)

	op := Outpoint{Index: 0, Value: 100_000}
	dest, err := Address(p)
	require.NoError(t, err)

	secret := chainhash.HashH([]byte("the secret"))

	tx1, err := BuildRedeem(p, op, dest, 10, redeemKey, secret, deterministicSign(redeemKey))
	require.NoError(t, err)
	tx2, err := BuildRedeem(p, op, dest, 10, redeemKey, secret, deterministicSign(redeemKey))
	require.NoError(t, err)

	require.Equal(t, tx1.TxIn[0].Witness, tx2.TxIn[0].Witness)
	require.Equal(t, int64(100_000-RedeemTxWitnessWeight*10), tx1.TxOut[0].Value)
}

func deterministicSign(key *btcec.PrivateKey) Signer {
	return func(sigHash []byte) (*ecdsa.Signature, error) {
		return ecdsa.Sign(key, sigHash), nil
	}
}

func TestBuildRedeemFeeHigherThanInputValue(t *testing.T) {
	p, redeemKey, _ := testParams(t)
	dest, err := Address(p)
	require.NoError(t, err)

	op := Outpoint{Index: 0, Value: 100}
	secret := chainhash.HashH([]byte("s"))

	_, err = BuildRedeem(p, op, dest, 1000, redeemKey, secret, deterministicSign(redeemKey))
	require.ErrorIs(t, err, ErrFeeHigherThanInputValue)
}

func TestBuildRefundUsesExpiryAsLockTime(t *testing.T) {
	p, _, refundKey := testParams(t)
	dest, err := Address(p)
	require.NoError(t, err)

	op := Outpoint{Index: 0, Value: 100_000}
	tx, err := BuildRefund(p, op, dest, 10, refundKey, deterministicSign(refundKey))
	require.NoError(t, err)
	require.Equal(t, p.Expiry, tx.LockTime)
	require.Equal(t, SequenceAllowNTimelockNoRBF, tx.TxIn[0].Sequence)
	require.Len(t, tx.TxIn[0].Witness[2], 0)
}
