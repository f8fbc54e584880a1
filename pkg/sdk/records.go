package sdk

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"custodia/internal/auction"
	"custodia/internal/compliance"
	"custodia/internal/escrow"
	"custodia/internal/ledger"
	"custodia/internal/registry"
)

type recordDTO struct {
	Address string `json:"address"`
	Record  string `json:"record"`
}

// FetchRecord returns the raw wire-format record stored at a ledger address.
func (c *Client) FetchRecord(ctx context.Context, addr string) ([]byte, error) {
	dto, err := do[recordDTO](ctx, c, http.MethodGet, "/v1/records/"+addr, nil)
	if err != nil {
		return nil, err
	}
	raw, err := base64.StdEncoding.DecodeString(dto.Record)
	if err != nil {
		return nil, fmt.Errorf("decode record payload: %w", err)
	}
	return raw, nil
}

// DecodeRecord dispatches on the leading tag byte and returns the typed
// record: compliance.WhitelistEntry, compliance.BlacklistEntry,
// compliance.JurisdictionRule, compliance.Config, registry.Asset,
// registry.MintConfig, registry.Config, escrow.Escrow, auction.Auction or
// auction.Bid.
func DecodeRecord(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty record")
	}
	switch ledger.RecordTag(data[0]) {
	case ledger.TagAsset:
		v, err := registry.DecodeAsset(data)
		return v, err
	case ledger.TagMintConfig:
		v, err := registry.DecodeMintConfig(data)
		return v, err
	case ledger.TagWhitelistEntry:
		v, err := compliance.DecodeWhitelistEntry(data)
		return v, err
	case ledger.TagBlacklistEntry:
		v, err := compliance.DecodeBlacklistEntry(data)
		return v, err
	case ledger.TagJurisdictionRule:
		v, err := compliance.DecodeJurisdictionRule(data)
		return v, err
	case ledger.TagComplianceConfig:
		v, err := compliance.DecodeConfig(data)
		return v, err
	case ledger.TagEscrow:
		v, err := escrow.Decode(data)
		return v, err
	case ledger.TagAuction:
		v, err := auction.DecodeAuction(data)
		return v, err
	case ledger.TagBid:
		v, err := auction.DecodeBid(data)
		return v, err
	case ledger.TagRegistryConfig:
		v, err := registry.DecodeConfig(data)
		return v, err
	default:
		return nil, fmt.Errorf("unknown record tag %d", data[0])
	}
}
