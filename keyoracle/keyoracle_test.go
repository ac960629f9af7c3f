package keyoracle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/comitswap/swapd/model"
)

func testOracle(t *testing.T) *Oracle {
	t.Helper()
	var seed [32]byte
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	return New(seed)
}

func TestDerivationIsDeterministic(t *testing.T) {
	o := testOracle(t)
	id, err := model.NewSwapId()
	require.NoError(t, err)

	k1 := o.DeriveBitcoinKey(id, model.RoleAlice)
	k2 := o.DeriveBitcoinKey(id, model.RoleAlice)
	require.Equal(t, k1.Serialize(), k2.Serialize())
}

func TestDerivationVariesByRoleAndSwap(t *testing.T) {
	o := testOracle(t)
	id1, err := model.NewSwapId()
	require.NoError(t, err)
	id2, err := model.NewSwapId()
	require.NoError(t, err)

	alice := o.DeriveBitcoinKey(id1, model.RoleAlice)
	bob := o.DeriveBitcoinKey(id1, model.RoleBob)
	require.NotEqual(t, alice.Serialize(), bob.Serialize())

	otherSwap := o.DeriveBitcoinKey(id2, model.RoleAlice)
	require.NotEqual(t, alice.Serialize(), otherSwap.Serialize())
}

func TestBitcoinAndEthereumKeysDifferForSamePair(t *testing.T) {
	o := testOracle(t)
	id, err := model.NewSwapId()
	require.NoError(t, err)

	btcKey := o.DeriveBitcoinKey(id, model.RoleAlice)
	ethKey := o.DeriveEthereumKey(id, model.RoleAlice)
	require.NotEqual(t, btcKey.Serialize(), ethKey.D.Bytes())
}

func TestBitcoinIdentityMatchesDerivedPublicKey(t *testing.T) {
	o := testOracle(t)
	id, err := model.NewSwapId()
	require.NoError(t, err)

	identity := o.BitcoinIdentity(id, model.RoleBob)
	want := o.DeriveBitcoinKey(id, model.RoleBob).PubKey().SerializeCompressed()
	got := identity.BitcoinPubKey()
	require.Equal(t, want, got[:])
}

func TestBitcoinSignerProducesVerifiableSignature(t *testing.T) {
	o := testOracle(t)
	id, err := model.NewSwapId()
	require.NoError(t, err)

	sign := o.BitcoinSigner(id, model.RoleAlice)
	sigHash := make([]byte, 32)
	for i := range sigHash {
		sigHash[i] = byte(i)
	}

	sig, err := sign(sigHash)
	require.NoError(t, err)

	pub := o.DeriveBitcoinKey(id, model.RoleAlice).PubKey()
	require.True(t, sig.Verify(sigHash, pub))
}

func TestEthereumIdentityDerivesFromEthereumKey(t *testing.T) {
	o := testOracle(t)
	id, err := model.NewSwapId()
	require.NoError(t, err)

	identity := o.EthereumIdentity(id, model.RoleAlice)
	require.NotEqual(t, [20]byte{}, identity.EthereumAddress())
}
