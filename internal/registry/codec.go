package registry

import (
	"time"

	"custodia/internal/ledger"
)

// Wire encodings for registry records. Field order mirrors struct
// declaration order and is frozen; see internal/ledger/wire.go.

func (a Asset) Encode() []byte {
	enc := ledger.NewEncoder(ledger.TagAsset)
	enc.Addr(a.Authority)
	enc.Addr(a.Mint)
	enc.Str(a.Name)
	enc.U8(uint8(a.Type))
	enc.U64(a.TotalValue)
	enc.U64(a.TotalSupply)
	enc.Str(a.MetadataURI)
	enc.U8(uint8(a.Status))
	enc.I64(a.CreatedAt.Unix())
	enc.I64(a.UpdatedAt.Unix())
	return enc.Bytes()
}

func DecodeAsset(data []byte) (Asset, error) {
	d, err := ledger.NewDecoder(ledger.TagAsset, data)
	if err != nil {
		return Asset{}, err
	}
	a := Asset{
		Authority:   d.Addr(),
		Mint:        d.Addr(),
		Name:        d.Str(),
		Type:        AssetType(d.U8()),
		TotalValue:  d.U64(),
		TotalSupply: d.U64(),
		MetadataURI: d.Str(),
		Status:      AssetStatus(d.U8()),
		CreatedAt:   time.Unix(d.I64(), 0).UTC(),
		UpdatedAt:   time.Unix(d.I64(), 0).UTC(),
	}
	return a, d.Err()
}

func (c MintConfig) Encode() []byte {
	enc := ledger.NewEncoder(ledger.TagMintConfig)
	enc.Addr(c.Mint)
	enc.Addr(c.Authority)
	enc.Addr(c.PermanentDelegate)
	enc.Bool(c.TransferHook)
	enc.Str(c.Name)
	enc.Str(c.Symbol)
	enc.Str(c.URI)
	enc.U8(c.Decimals)
	enc.Bool(c.Frozen)
	enc.I64(c.CreatedAt.Unix())
	return enc.Bytes()
}

func DecodeMintConfig(data []byte) (MintConfig, error) {
	d, err := ledger.NewDecoder(ledger.TagMintConfig, data)
	if err != nil {
		return MintConfig{}, err
	}
	c := MintConfig{
		Mint:              d.Addr(),
		Authority:         d.Addr(),
		PermanentDelegate: d.Addr(),
		TransferHook:      d.Bool(),
		Name:              d.Str(),
		Symbol:            d.Str(),
		URI:               d.Str(),
		Decimals:          d.U8(),
		Frozen:            d.Bool(),
		CreatedAt:         time.Unix(d.I64(), 0).UTC(),
	}
	return c, d.Err()
}

func (c Config) Encode() []byte {
	enc := ledger.NewEncoder(ledger.TagRegistryConfig)
	enc.Addr(c.Authority)
	enc.U64(uint64(c.PlatformFeeBps))
	enc.U64(c.TotalAssets)
	return enc.Bytes()
}

func DecodeConfig(data []byte) (Config, error) {
	d, err := ledger.NewDecoder(ledger.TagRegistryConfig, data)
	if err != nil {
		return Config{}, err
	}
	c := Config{
		Authority:      d.Addr(),
		PlatformFeeBps: uint16(d.U64()),
		TotalAssets:    d.U64(),
	}
	return c, d.Err()
}
