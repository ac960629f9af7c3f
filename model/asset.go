package model

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// AssetKind tags the variant carried by Asset. See LedgerKind for the
// rationale behind using a runtime enum here instead of a type switch over
// an interface.
type AssetKind uint8

const (
	AssetBitcoinQuantity AssetKind = iota
	AssetEther
	AssetErc20
)

func (k AssetKind) String() string {
	switch k {
	case AssetBitcoinQuantity:
		return "bitcoin-quantity"
	case AssetEther:
		return "ether"
	case AssetErc20:
		return "erc20"
	default:
		return fmt.Sprintf("unknown-asset-kind(%d)", uint8(k))
	}
}

// Asset is the tagged variant {BitcoinQuantity(sat), Ether(wei),
// Erc20(token_contract, quantity)} of spec §3.
type Asset struct {
	Kind AssetKind

	// SatoshiQuantity is meaningful only when Kind == AssetBitcoinQuantity.
	SatoshiQuantity uint64

	// WeiQuantity is meaningful when Kind == AssetEther or AssetErc20.
	WeiQuantity *big.Int

	// TokenContract is meaningful only when Kind == AssetErc20: the
	// 20-byte ERC20 contract address.
	TokenContract [20]byte
}

// BitcoinQuantity builds a Bitcoin asset of the given satoshi value.
func BitcoinQuantity(sat uint64) Asset {
	return Asset{Kind: AssetBitcoinQuantity, SatoshiQuantity: sat}
}

// Ether builds an Ether asset of the given wei value.
func Ether(wei *big.Int) Asset {
	return Asset{Kind: AssetEther, WeiQuantity: new(big.Int).Set(wei)}
}

// Erc20 builds an ERC20 asset for the given token contract and quantity.
func Erc20(contract [20]byte, quantity *big.Int) Asset {
	return Asset{
		Kind:          AssetErc20,
		TokenContract: contract,
		WeiQuantity:   new(big.Int).Set(quantity),
	}
}

// HeaderValue renders a as the alpha_asset/beta_asset header's structured
// form per spec §4.3: a tag value plus a parameters map, the same
// compact-vs-structured split wireproto.HeaderValue encodes for any header.
func (a Asset) HeaderValue() (value string, parameters map[string]string) {
	switch a.Kind {
	case AssetBitcoinQuantity:
		return a.Kind.String(), map[string]string{
			"quantity": strconv.FormatUint(a.SatoshiQuantity, 10),
		}
	case AssetEther:
		return a.Kind.String(), map[string]string{
			"quantity": a.WeiQuantity.String(),
		}
	case AssetErc20:
		return a.Kind.String(), map[string]string{
			"quantity":       a.WeiQuantity.String(),
			"token_contract": "0x" + hex.EncodeToString(a.TokenContract[:]),
		}
	default:
		return a.Kind.String(), nil
	}
}

// ParseAssetHeader inverts HeaderValue.
func ParseAssetHeader(value string, parameters map[string]string) (Asset, error) {
	switch value {
	case AssetBitcoinQuantity.String():
		sat, err := strconv.ParseUint(parameters["quantity"], 10, 64)
		if err != nil {
			return Asset{}, fmt.Errorf("parse bitcoin-quantity asset: %w", err)
		}
		return BitcoinQuantity(sat), nil
	case AssetEther.String():
		wei, ok := new(big.Int).SetString(parameters["quantity"], 10)
		if !ok {
			return Asset{}, fmt.Errorf("parse ether asset: bad quantity %q", parameters["quantity"])
		}
		return Ether(wei), nil
	case AssetErc20.String():
		wei, ok := new(big.Int).SetString(parameters["quantity"], 10)
		if !ok {
			return Asset{}, fmt.Errorf("parse erc20 asset: bad quantity %q", parameters["quantity"])
		}
		contractHex := strings.TrimPrefix(parameters["token_contract"], "0x")
		b, err := hex.DecodeString(contractHex)
		if err != nil {
			return Asset{}, fmt.Errorf("parse erc20 asset: bad token_contract: %w", err)
		}
		if len(b) != 20 {
			return Asset{}, fmt.Errorf("parse erc20 asset: want 20-byte token_contract, got %d", len(b))
		}
		var contract [20]byte
		copy(contract[:], b)
		return Erc20(contract, wei), nil
	default:
		return Asset{}, fmt.Errorf("parse asset: unknown asset tag %q", value)
	}
}

func (a Asset) String() string {
	switch a.Kind {
	case AssetBitcoinQuantity:
		return fmt.Sprintf("%d sat", a.SatoshiQuantity)
	case AssetEther:
		return fmt.Sprintf("%s wei", a.WeiQuantity)
	case AssetErc20:
		return fmt.Sprintf("%s of token %x", a.WeiQuantity, a.TokenContract)
	default:
		return a.Kind.String()
	}
}
