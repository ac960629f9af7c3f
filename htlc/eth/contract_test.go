package eth

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func testEtherParams() EtherParams {
	return EtherParams{
		SecretHash:    [32]byte{0xAA, 0xBB},
		RedeemAddress: common.HexToAddress("0x1111111111111111111111111111111111111111"),
		RefundAddress: common.HexToAddress("0x2222222222222222222222222222222222222222"),
		Expiry:        2_000_000_000,
	}
}

func TestEtherBytecodeDeterministic(t *testing.T) {
	p := testEtherParams()
	b1 := p.Bytecode()
	b2 := p.Bytecode()
	require.Equal(t, b1, b2)
	require.Greater(t, len(b1), len(contractPreamble)+len(contractEpilogueEther))
}

func TestEtherBytecodePlaceholdersRoundTrip(t *testing.T) {
	p := testEtherParams()
	code := p.Bytecode()

	offset := len(contractPreamble)
	require.Equal(t, p.SecretHash[:], code[offset:offset+32])
	offset += 32
	require.Equal(t, p.RefundAddress.Bytes(), code[offset:offset+20])
	offset += 20
	require.Equal(t, p.RedeemAddress.Bytes(), code[offset:offset+20])
	offset += 20
	require.Equal(t, []byte{0x77, 0x35, 0x94, 0x00}, code[offset:offset+4])
}

func TestErc20BytecodeIncludesTokenAndQuantity(t *testing.T) {
	p := Erc20Params{
		EtherParams:   testEtherParams(),
		TokenContract: common.HexToAddress("0x3333333333333333333333333333333333333333"),
		Quantity:      big.NewInt(42_000_000),
	}
	code := p.Bytecode()
	require.Contains(t, string(code), string(p.TokenContract.Bytes()))
}

func TestDeployTxIsContractCreation(t *testing.T) {
	p := testEtherParams()
	tx := DeployTx(p, 0, big.NewInt(1e18), big.NewInt(1))
	require.Nil(t, tx.To())
	require.Equal(t, p.Bytecode(), tx.Data())
}

func TestFundErc20TxCallsTransfer(t *testing.T) {
	p := Erc20Params{
		EtherParams:   testEtherParams(),
		TokenContract: common.HexToAddress("0x3333333333333333333333333333333333333333"),
		Quantity:      big.NewInt(42_000_000),
	}
	htlcAddr := common.HexToAddress("0x4444444444444444444444444444444444444444")

	tx, err := FundErc20Tx(p, htlcAddr, 0, big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, p.TokenContract, *tx.To())
	require.Equal(t, transferSelector, tx.Data()[:4])
}

func TestRedeemTxCarriesSecret(t *testing.T) {
	htlcAddr := common.HexToAddress("0x4444444444444444444444444444444444444444")
	var secret [32]byte
	secret[0] = 0x42

	tx := RedeemTx(htlcAddr, secret, 0, big.NewInt(1))
	require.Equal(t, secret[:], tx.Data())
	require.Equal(t, htlcAddr, *tx.To())
}

func TestRefundTxHasEmptyData(t *testing.T) {
	htlcAddr := common.HexToAddress("0x4444444444444444444444444444444444444444")
	tx := RefundTx(htlcAddr, 0, big.NewInt(1))
	require.Empty(t, tx.Data())
}
