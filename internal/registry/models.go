package registry

import (
	"time"

	"custodia/internal/ledger"
)

// AssetType classifies the underlying real-world asset.
type AssetType uint8

const (
	AssetRealEstate AssetType = iota
	AssetEquipment
	AssetReceivables
	AssetSecurities
	AssetCommodities
	AssetIntellectualProperty
	AssetOther
)

var assetTypeNames = map[AssetType]string{
	AssetRealEstate:           "real_estate",
	AssetEquipment:            "equipment",
	AssetReceivables:          "receivables",
	AssetSecurities:           "securities",
	AssetCommodities:          "commodities",
	AssetIntellectualProperty: "intellectual_property",
	AssetOther:                "other",
}

func (t AssetType) String() string {
	if name, ok := assetTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseAssetType maps the API string form back to the enum.
func ParseAssetType(s string) (AssetType, bool) {
	for t, name := range assetTypeNames {
		if name == s {
			return t, true
		}
	}
	return 0, false
}

// AssetStatus is the asset lifecycle state. Pending activates once, Active
// and Frozen interconvert, Burned is terminal.
type AssetStatus uint8

const (
	StatusPending AssetStatus = iota
	StatusActive
	StatusFrozen
	StatusBurned
)

var assetStatusNames = map[AssetStatus]string{
	StatusPending: "pending",
	StatusActive:  "active",
	StatusFrozen:  "frozen",
	StatusBurned:  "burned",
}

func (s AssetStatus) String() string {
	if name, ok := assetStatusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Asset is one tokenized real-world asset. Burned assets stay in the store
// as tombstones; records are never deleted.
type Asset struct {
	Authority   ledger.Address
	Mint        ledger.Address
	Name        string
	Type        AssetType
	TotalValue  uint64 // smallest currency unit
	TotalSupply uint64
	MetadataURI string
	Status      AssetStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MintConfig binds a token mint to its compliance gate. TransferHook is
// immutable once set.
type MintConfig struct {
	Mint              ledger.Address
	Authority         ledger.Address
	PermanentDelegate ledger.Address
	TransferHook      bool // whether the compliance hook is bound
	Name              string
	Symbol            string
	URI               string
	Decimals          uint8
	Frozen            bool
	CreatedAt         time.Time
}

// Config is the singleton registry configuration.
type Config struct {
	Authority      ledger.Address
	PlatformFeeBps uint16
	TotalAssets    uint64
}

// Field length bounds from the record layout.
const (
	MaxAssetName  = 64
	MaxAssetURI   = 256
	MaxMintName   = 32
	MaxMintSymbol = 10
	MaxMintURI    = 200
)

// ConfigAddress locates the singleton registry config record.
func ConfigAddress() ledger.Address {
	return ledger.DeriveStr(ledger.KindRegistryConfig)
}

// AssetAddress locates an asset record by its mint.
func AssetAddress(mint ledger.Address) ledger.Address {
	return ledger.Derive(ledger.KindAsset, mint.Bytes())
}

// MintConfigAddress locates a mint's configuration record.
func MintConfigAddress(mint ledger.Address) ledger.Address {
	return ledger.Derive(ledger.KindMintConfig, mint.Bytes())
}

// NewMintAddress derives a fresh mint address for an authority and token name.
func NewMintAddress(authority ledger.Address, name string) ledger.Address {
	return ledger.Derive(ledger.KindMintAuthority, authority.Bytes(), []byte(name))
}
