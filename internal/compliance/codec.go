package compliance

import (
	"time"

	"custodia/internal/ledger"
)

// Wire encodings for compliance records. Field order mirrors struct
// declaration order and is frozen; see internal/ledger/wire.go.

func (e WhitelistEntry) Encode() []byte {
	enc := ledger.NewEncoder(ledger.TagWhitelistEntry)
	enc.Addr(e.Investor)
	enc.U8(uint8(e.Type))
	enc.FixedBytes([]byte(e.Jurisdiction))
	enc.Bool(e.KYCVerified)
	enc.I64(e.KYCExpiry.Unix())
	enc.I64(e.AddedAt.Unix())
	enc.I64(e.LastTransfer.Unix())
	enc.Bool(e.Active)
	return enc.Bytes()
}

func DecodeWhitelistEntry(data []byte) (WhitelistEntry, error) {
	d, err := ledger.NewDecoder(ledger.TagWhitelistEntry, data)
	if err != nil {
		return WhitelistEntry{}, err
	}
	e := WhitelistEntry{
		Investor:     d.Addr(),
		Type:         InvestorType(d.U8()),
		Jurisdiction: string(d.FixedBytes(2)),
		KYCVerified:  d.Bool(),
		KYCExpiry:    time.Unix(d.I64(), 0).UTC(),
		AddedAt:      time.Unix(d.I64(), 0).UTC(),
		LastTransfer: time.Unix(d.I64(), 0).UTC(),
		Active:       d.Bool(),
	}
	return e, d.Err()
}

func (e BlacklistEntry) Encode() []byte {
	enc := ledger.NewEncoder(ledger.TagBlacklistEntry)
	enc.Addr(e.Address)
	enc.Str(e.Reason)
	enc.Addr(e.AddedBy)
	enc.I64(e.AddedAt.Unix())
	enc.Bool(e.Active)
	return enc.Bytes()
}

func DecodeBlacklistEntry(data []byte) (BlacklistEntry, error) {
	d, err := ledger.NewDecoder(ledger.TagBlacklistEntry, data)
	if err != nil {
		return BlacklistEntry{}, err
	}
	e := BlacklistEntry{
		Address: d.Addr(),
		Reason:  d.Str(),
		AddedBy: d.Addr(),
		AddedAt: time.Unix(d.I64(), 0).UTC(),
		Active:  d.Bool(),
	}
	return e, d.Err()
}

func (r JurisdictionRule) Encode() []byte {
	enc := ledger.NewEncoder(ledger.TagJurisdictionRule)
	enc.FixedBytes([]byte(r.From))
	enc.FixedBytes([]byte(r.To))
	enc.Bool(r.Allowed)
	enc.OptU64(r.MaxAmount)
	enc.I64(r.CreatedAt.Unix())
	return enc.Bytes()
}

func DecodeJurisdictionRule(data []byte) (JurisdictionRule, error) {
	d, err := ledger.NewDecoder(ledger.TagJurisdictionRule, data)
	if err != nil {
		return JurisdictionRule{}, err
	}
	r := JurisdictionRule{
		From:      string(d.FixedBytes(2)),
		To:        string(d.FixedBytes(2)),
		Allowed:   d.Bool(),
		MaxAmount: d.OptU64(),
		CreatedAt: time.Unix(d.I64(), 0).UTC(),
	}
	return r, d.Err()
}

func (c Config) Encode() []byte {
	enc := ledger.NewEncoder(ledger.TagComplianceConfig)
	enc.Addr(c.Authority)
	enc.Addr(c.Gatekeeper)
	enc.U64(c.MaxTransferAmount)
	enc.I64(int64(c.Cooldown / time.Second))
	enc.Bool(c.Paused)
	enc.U64(c.TotalWhitelisted)
	enc.U64(c.TotalBlacklisted)
	return enc.Bytes()
}

func DecodeConfig(data []byte) (Config, error) {
	d, err := ledger.NewDecoder(ledger.TagComplianceConfig, data)
	if err != nil {
		return Config{}, err
	}
	c := Config{
		Authority:         d.Addr(),
		Gatekeeper:        d.Addr(),
		MaxTransferAmount: d.U64(),
		Cooldown:          time.Duration(d.I64()) * time.Second,
		Paused:            d.Bool(),
		TotalWhitelisted:  d.U64(),
		TotalBlacklisted:  d.U64(),
	}
	return c, d.Err()
}
