package compliance

import (
	"time"

	"custodia/internal/ledger"
)

// InvestorType classifies a whitelisted investor for suitability rules.
type InvestorType uint8

const (
	InvestorRetail InvestorType = iota
	InvestorAccredited
	InvestorInstitutional
	InvestorQualifiedPurchaser
)

var investorTypeNames = map[InvestorType]string{
	InvestorRetail:             "retail",
	InvestorAccredited:         "accredited",
	InvestorInstitutional:      "institutional",
	InvestorQualifiedPurchaser: "qualified_purchaser",
}

func (t InvestorType) String() string {
	if name, ok := investorTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseInvestorType maps the API string form back to the enum.
func ParseInvestorType(s string) (InvestorType, bool) {
	for t, name := range investorTypeNames {
		if name == s {
			return t, true
		}
	}
	return 0, false
}

// WhitelistEntry records one approved investor. Entries are soft-deleted:
// Active=false keeps the row for cooldown history and audit, and only active
// entries count toward compliance.
type WhitelistEntry struct {
	Investor     ledger.Address
	Type         InvestorType
	Jurisdiction string // ISO 3166-1 alpha-2
	KYCVerified  bool
	KYCExpiry    time.Time
	AddedAt      time.Time
	LastTransfer time.Time
	Active       bool
}

// BlacklistEntry bars an address from all transfers regardless of whitelist
// status. Also soft-deleted.
type BlacklistEntry struct {
	Address ledger.Address
	Reason  string
	AddedBy ledger.Address
	AddedAt time.Time
	Active  bool
}

// JurisdictionRule constrains transfers between an ordered pair of
// jurisdictions. Absence of a rule means allowed, unlimited.
type JurisdictionRule struct {
	From      string
	To        string
	Allowed   bool
	MaxAmount *uint64
	CreatedAt time.Time
}

// Config is the singleton engine configuration.
type Config struct {
	Authority         ledger.Address
	Gatekeeper        ledger.Address // external KYC gatekeeper reference
	MaxTransferAmount uint64
	Cooldown          time.Duration
	Paused            bool
	TotalWhitelisted  uint64
	TotalBlacklisted  uint64
}

// MaxBlacklistReason bounds the free-text blacklist reason.
const MaxBlacklistReason = 128

// KYCRenewalValidity is granted on a gatekeeper-verified renewal.
const KYCRenewalValidity = 365 * 24 * time.Hour

// ConfigAddress locates the singleton config record.
func ConfigAddress() ledger.Address {
	return ledger.DeriveStr(ledger.KindComplianceConfig)
}

// EntryAddress locates an investor's whitelist record.
func EntryAddress(investor ledger.Address) ledger.Address {
	return ledger.Derive(ledger.KindWhitelist, investor.Bytes())
}

// BlacklistAddress locates an address's blacklist record.
func BlacklistAddress(addr ledger.Address) ledger.Address {
	return ledger.Derive(ledger.KindBlacklist, addr.Bytes())
}

// RuleAddress locates the rule record for an ordered jurisdiction pair.
func RuleAddress(from, to string) ledger.Address {
	return ledger.DeriveStr(ledger.KindJurisdiction, from, to)
}
