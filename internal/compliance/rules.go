package compliance

import (
	"time"

	domainerrors "custodia/pkg/domain-errors"
)

// PartyState is everything the rule chain needs to know about one side of a
// transfer. Custodial parties are protocol-owned vaults: funds held in trust,
// not a beneficial owner, so party-level checks do not apply to them.
type PartyState struct {
	Custodial bool
	Whitelist *WhitelistEntry
	Blacklist *BlacklistEntry
}

// CheckInput carries one transfer through the rule chain.
type CheckInput struct {
	Now      time.Time
	Config   Config
	Amount   uint64
	Sender   PartyState
	Receiver PartyState
	// Rule for (sender jurisdiction, receiver jurisdiction), nil when none
	// exists (default-allow).
	Rule *JurisdictionRule
}

// Check applies the transfer authorization rules in order, short-circuiting
// on the first failure. This is pure domain logic - no I/O, no side effects -
// which is what lets the off-chain pre-check share it verbatim.
//
// Rule order (fail-fast):
//  1. Global pause
//  2. Global amount limit
//  3. Sender compliance (blacklist dominates, then whitelist, then KYC)
//  4. Receiver compliance (same chain)
//  5. Sender transfer cooldown
//  6. Jurisdiction pair rule
func Check(in CheckInput) error {
	if in.Config.Paused {
		return domainerrors.New(domainerrors.CodeTransfersPaused, "transfers are paused")
	}

	if in.Amount > in.Config.MaxTransferAmount {
		return domainerrors.New(domainerrors.CodeTransferAmountExceeded, "amount exceeds global transfer limit")
	}

	if !in.Sender.Custodial {
		if err := checkParty(in.Sender, in.Now,
			domainerrors.CodeSenderBlacklisted, domainerrors.CodeSenderNotWhitelisted); err != nil {
			return err
		}
	}

	if !in.Receiver.Custodial {
		if err := checkParty(in.Receiver, in.Now,
			domainerrors.CodeReceiverBlacklisted, domainerrors.CodeReceiverNotWhitelisted); err != nil {
			return err
		}
	}

	if !in.Sender.Custodial && in.Config.Cooldown > 0 {
		wl := in.Sender.Whitelist
		if !wl.LastTransfer.IsZero() && in.Now.Before(wl.LastTransfer.Add(in.Config.Cooldown)) {
			return domainerrors.New(domainerrors.CodeCooldownActive, "sender transfer cooldown has not elapsed")
		}
	}

	// Jurisdiction rules bind two beneficial owners; custody legs carry the
	// counterparty's jurisdiction forward to the settlement leg instead.
	if !in.Sender.Custodial && !in.Receiver.Custodial && in.Rule != nil {
		if !in.Rule.Allowed {
			return domainerrors.New(domainerrors.CodeJurisdictionBlocked, "transfers between these jurisdictions are blocked")
		}
		if in.Rule.MaxAmount != nil && in.Amount > *in.Rule.MaxAmount {
			return domainerrors.New(domainerrors.CodeJurisdictionAmountExceeded, "amount exceeds jurisdiction pair limit")
		}
	}

	return nil
}

// checkParty enforces the per-party chain: an active blacklist entry rejects
// outright regardless of whitelist status, then the party needs an active
// whitelist entry with unexpired KYC.
func checkParty(p PartyState, now time.Time, blacklisted, notWhitelisted domainerrors.Code) error {
	if p.Blacklist != nil && p.Blacklist.Active {
		return domainerrors.New(blacklisted, "address is blacklisted")
	}
	if p.Whitelist == nil || !p.Whitelist.Active {
		return domainerrors.New(notWhitelisted, "address has no active whitelist entry")
	}
	if !p.Whitelist.KYCExpiry.After(now) {
		return domainerrors.New(domainerrors.CodeKYCExpired, "KYC verification has expired")
	}
	return nil
}
