package sdk

import (
	"context"
	"fmt"
	"time"

	"custodia/internal/compliance"
	"custodia/internal/ledger"
)

// CheckTransferRestrictions evaluates a prospective transfer entirely
// client-side: it fetches the compliance config, both parties' whitelist and
// blacklist records and the jurisdiction rule table, then runs the same pure
// rule chain the engine applies at settlement. A nil return means the
// transfer would currently be allowed; a non-nil error carries the same
// domain error code the server would return. The verdict is advisory - state
// can change between the check and the transfer.
func (c *Client) CheckTransferRestrictions(ctx context.Context, p CheckTransferParams) error {
	cfg, err := c.ComplianceConfig(ctx)
	if err != nil {
		return fmt.Errorf("fetch compliance config: %w", err)
	}

	in := compliance.CheckInput{
		Now:    time.Now(),
		Amount: p.Amount,
		Config: compliance.Config{
			Authority:         ledger.Address(cfg.Authority),
			Gatekeeper:        ledger.Address(cfg.Gatekeeper),
			MaxTransferAmount: cfg.MaxTransferAmount,
			Cooldown:          time.Duration(cfg.CooldownSeconds) * time.Second,
			Paused:            cfg.Paused,
		},
		Sender:   compliance.PartyState{Custodial: p.SenderCustodial},
		Receiver: compliance.PartyState{Custodial: p.ReceiverCustodial},
	}

	if !p.SenderCustodial {
		if in.Sender, err = c.fetchPartyState(ctx, p.Sender); err != nil {
			return err
		}
	}
	if !p.ReceiverCustodial {
		if in.Receiver, err = c.fetchPartyState(ctx, p.Receiver); err != nil {
			return err
		}
	}

	// The jurisdiction rule only binds when both parties are beneficial
	// owners with whitelist entries naming their jurisdictions.
	if in.Sender.Whitelist != nil && in.Receiver.Whitelist != nil {
		rules, err := c.JurisdictionRules(ctx)
		if err != nil {
			return fmt.Errorf("fetch jurisdiction rules: %w", err)
		}
		from, to := in.Sender.Whitelist.Jurisdiction, in.Receiver.Whitelist.Jurisdiction
		for _, r := range rules {
			if r.From == from && r.To == to {
				rule, err := toJurisdictionRule(r)
				if err != nil {
					return err
				}
				in.Rule = &rule
				break
			}
		}
	}

	return compliance.Check(in)
}

func (c *Client) fetchPartyState(ctx context.Context, addr string) (compliance.PartyState, error) {
	var state compliance.PartyState

	wl, err := c.WhitelistEntry(ctx, addr)
	switch {
	case err == nil:
		entry, convErr := toWhitelistEntry(wl)
		if convErr != nil {
			return state, convErr
		}
		state.Whitelist = &entry
	case !IsNotFound(err):
		return state, fmt.Errorf("fetch whitelist entry for %s: %w", addr, err)
	}

	bl, err := c.BlacklistEntry(ctx, addr)
	switch {
	case err == nil:
		entry, convErr := toBlacklistEntry(bl)
		if convErr != nil {
			return state, convErr
		}
		state.Blacklist = &entry
	case !IsNotFound(err):
		return state, fmt.Errorf("fetch blacklist entry for %s: %w", addr, err)
	}

	return state, nil
}

func toWhitelistEntry(wl WhitelistEntry) (compliance.WhitelistEntry, error) {
	entry := compliance.WhitelistEntry{
		Investor:     ledger.Address(wl.Investor),
		Jurisdiction: wl.Jurisdiction,
		KYCVerified:  wl.KYCVerified,
		Active:       wl.Active,
	}
	if t, ok := compliance.ParseInvestorType(wl.InvestorType); ok {
		entry.Type = t
	}
	var err error
	if entry.KYCExpiry, err = parseTime(wl.KYCExpiry); err != nil {
		return entry, fmt.Errorf("whitelist kyc_expiry: %w", err)
	}
	if entry.AddedAt, err = parseTime(wl.AddedAt); err != nil {
		return entry, fmt.Errorf("whitelist added_at: %w", err)
	}
	if wl.LastTransfer != "" {
		if entry.LastTransfer, err = parseTime(wl.LastTransfer); err != nil {
			return entry, fmt.Errorf("whitelist last_transfer: %w", err)
		}
	}
	return entry, nil
}

func toBlacklistEntry(bl BlacklistEntry) (compliance.BlacklistEntry, error) {
	entry := compliance.BlacklistEntry{
		Address: ledger.Address(bl.Address),
		Reason:  bl.Reason,
		AddedBy: ledger.Address(bl.AddedBy),
		Active:  bl.Active,
	}
	var err error
	if entry.AddedAt, err = parseTime(bl.AddedAt); err != nil {
		return entry, fmt.Errorf("blacklist added_at: %w", err)
	}
	return entry, nil
}

func toJurisdictionRule(r JurisdictionRule) (compliance.JurisdictionRule, error) {
	rule := compliance.JurisdictionRule{
		From:      r.From,
		To:        r.To,
		Allowed:   r.Allowed,
		MaxAmount: r.MaxAmount,
	}
	var err error
	if rule.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return rule, fmt.Errorf("jurisdiction rule created_at: %w", err)
	}
	return rule, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
