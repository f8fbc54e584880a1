package handler

import (
	"time"

	"custodia/internal/compliance"
)

type configDTO struct {
	Authority         string `json:"authority"`
	Gatekeeper        string `json:"gatekeeper,omitempty"`
	MaxTransferAmount uint64 `json:"max_transfer_amount"`
	CooldownSeconds   int64  `json:"cooldown_seconds"`
	Paused            bool   `json:"paused"`
	TotalWhitelisted  uint64 `json:"total_whitelisted"`
	TotalBlacklisted  uint64 `json:"total_blacklisted"`
}

func configResponse(cfg compliance.Config) configDTO {
	return configDTO{
		Authority:         cfg.Authority.String(),
		Gatekeeper:        cfg.Gatekeeper.String(),
		MaxTransferAmount: cfg.MaxTransferAmount,
		CooldownSeconds:   int64(cfg.Cooldown / time.Second),
		Paused:            cfg.Paused,
		TotalWhitelisted:  cfg.TotalWhitelisted,
		TotalBlacklisted:  cfg.TotalBlacklisted,
	}
}

type whitelistDTO struct {
	Investor     string `json:"investor"`
	InvestorType string `json:"investor_type"`
	Jurisdiction string `json:"jurisdiction"`
	KYCVerified  bool   `json:"kyc_verified"`
	KYCExpiry    string `json:"kyc_expiry"`
	AddedAt      string `json:"added_at"`
	LastTransfer string `json:"last_transfer,omitempty"`
	Active       bool   `json:"active"`
}

func whitelistResponse(entry compliance.WhitelistEntry) whitelistDTO {
	dto := whitelistDTO{
		Investor:     entry.Investor.String(),
		InvestorType: entry.Type.String(),
		Jurisdiction: entry.Jurisdiction,
		KYCVerified:  entry.KYCVerified,
		KYCExpiry:    entry.KYCExpiry.Format(time.RFC3339),
		AddedAt:      entry.AddedAt.Format(time.RFC3339),
		Active:       entry.Active,
	}
	if !entry.LastTransfer.IsZero() {
		dto.LastTransfer = entry.LastTransfer.Format(time.RFC3339)
	}
	return dto
}

type blacklistDTO struct {
	Address string `json:"address"`
	Reason  string `json:"reason,omitempty"`
	AddedBy string `json:"added_by"`
	AddedAt string `json:"added_at"`
	Active  bool   `json:"active"`
}

func blacklistResponse(entry compliance.BlacklistEntry) blacklistDTO {
	return blacklistDTO{
		Address: entry.Address.String(),
		Reason:  entry.Reason,
		AddedBy: entry.AddedBy.String(),
		AddedAt: entry.AddedAt.Format(time.RFC3339),
		Active:  entry.Active,
	}
}

type ruleDTO struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	Allowed   bool    `json:"allowed"`
	MaxAmount *uint64 `json:"max_amount,omitempty"`
	CreatedAt string  `json:"created_at"`
}

func ruleResponse(rule compliance.JurisdictionRule) ruleDTO {
	return ruleDTO{
		From:      rule.From,
		To:        rule.To,
		Allowed:   rule.Allowed,
		MaxAmount: rule.MaxAmount,
		CreatedAt: rule.CreatedAt.Format(time.RFC3339),
	}
}
