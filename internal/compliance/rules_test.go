package compliance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/internal/ledger"
	domainerrors "custodia/pkg/domain-errors"
)

var (
	testNow      = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	senderAddr   = ledger.Derive(ledger.KindWhitelist, []byte("sender"))
	receiverAddr = ledger.Derive(ledger.KindWhitelist, []byte("receiver"))
)

func activeParty(addr ledger.Address, jurisdiction string) PartyState {
	return PartyState{
		Whitelist: &WhitelistEntry{
			Investor:     addr,
			Jurisdiction: jurisdiction,
			KYCVerified:  true,
			KYCExpiry:    testNow.Add(30 * 24 * time.Hour),
			AddedAt:      testNow.Add(-90 * 24 * time.Hour),
			Active:       true,
		},
	}
}

func baseInput() CheckInput {
	return CheckInput{
		Now:      testNow,
		Config:   Config{MaxTransferAmount: 10_000, Cooldown: time.Hour},
		Amount:   500,
		Sender:   activeParty(senderAddr, "US"),
		Receiver: activeParty(receiverAddr, "GB"),
	}
}

func TestCheckAllowsCompliantTransfer(t *testing.T) {
	require.NoError(t, Check(baseInput()))
}

func TestCheckDenialReasons(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CheckInput)
		code   domainerrors.Code
	}{
		{
			name:   "paused",
			mutate: func(in *CheckInput) { in.Config.Paused = true },
			code:   domainerrors.CodeTransfersPaused,
		},
		{
			name:   "amount over global limit",
			mutate: func(in *CheckInput) { in.Amount = 10_001 },
			code:   domainerrors.CodeTransferAmountExceeded,
		},
		{
			name:   "sender not whitelisted",
			mutate: func(in *CheckInput) { in.Sender.Whitelist = nil },
			code:   domainerrors.CodeSenderNotWhitelisted,
		},
		{
			name:   "sender whitelist inactive",
			mutate: func(in *CheckInput) { in.Sender.Whitelist.Active = false },
			code:   domainerrors.CodeSenderNotWhitelisted,
		},
		{
			name:   "receiver not whitelisted",
			mutate: func(in *CheckInput) { in.Receiver.Whitelist = nil },
			code:   domainerrors.CodeReceiverNotWhitelisted,
		},
		{
			name: "sender blacklisted",
			mutate: func(in *CheckInput) {
				in.Sender.Blacklist = &BlacklistEntry{Address: senderAddr, Active: true}
			},
			code: domainerrors.CodeSenderBlacklisted,
		},
		{
			name: "receiver blacklisted",
			mutate: func(in *CheckInput) {
				in.Receiver.Blacklist = &BlacklistEntry{Address: receiverAddr, Active: true}
			},
			code: domainerrors.CodeReceiverBlacklisted,
		},
		{
			name:   "sender kyc expired",
			mutate: func(in *CheckInput) { in.Sender.Whitelist.KYCExpiry = testNow.Add(-time.Minute) },
			code:   domainerrors.CodeKYCExpired,
		},
		{
			name:   "sender kyc expires exactly now",
			mutate: func(in *CheckInput) { in.Sender.Whitelist.KYCExpiry = testNow },
			code:   domainerrors.CodeKYCExpired,
		},
		{
			name: "cooldown active",
			mutate: func(in *CheckInput) {
				in.Sender.Whitelist.LastTransfer = testNow.Add(-30 * time.Minute)
			},
			code: domainerrors.CodeCooldownActive,
		},
		{
			name: "jurisdiction pair blocked",
			mutate: func(in *CheckInput) {
				in.Receiver = activeParty(receiverAddr, "CN")
				in.Rule = &JurisdictionRule{From: "US", To: "CN", Allowed: false}
			},
			code: domainerrors.CodeJurisdictionBlocked,
		},
		{
			name: "jurisdiction pair amount exceeded",
			mutate: func(in *CheckInput) {
				limit := uint64(100)
				in.Rule = &JurisdictionRule{From: "US", To: "GB", Allowed: true, MaxAmount: &limit}
			},
			code: domainerrors.CodeJurisdictionAmountExceeded,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := baseInput()
			tc.mutate(&in)
			err := Check(in)
			require.Error(t, err)
			assert.Equal(t, tc.code, domainerrors.CodeOf(err))
		})
	}
}

func TestCheckBlacklistDominatesWhitelist(t *testing.T) {
	in := baseInput()
	in.Sender.Blacklist = &BlacklistEntry{Address: senderAddr, Active: true}
	// Sender is still actively whitelisted with valid KYC.
	require.True(t, in.Sender.Whitelist.Active)

	err := Check(in)
	assert.Equal(t, domainerrors.CodeSenderBlacklisted, domainerrors.CodeOf(err))
}

func TestCheckInactiveBlacklistEntryIgnored(t *testing.T) {
	in := baseInput()
	in.Sender.Blacklist = &BlacklistEntry{Address: senderAddr, Active: false}
	assert.NoError(t, Check(in))
}

func TestCheckPauseShortCircuitsEverything(t *testing.T) {
	in := baseInput()
	in.Config.Paused = true
	in.Sender.Whitelist = nil
	in.Receiver.Blacklist = &BlacklistEntry{Address: receiverAddr, Active: true}

	err := Check(in)
	assert.Equal(t, domainerrors.CodeTransfersPaused, domainerrors.CodeOf(err))
}

func TestCheckZeroLimitRejectsAllTransfers(t *testing.T) {
	in := baseInput()
	in.Config.MaxTransferAmount = 0
	in.Amount = 100

	err := Check(in)
	assert.Equal(t, domainerrors.CodeTransferAmountExceeded, domainerrors.CodeOf(err))
}

func TestCheckCooldownBoundary(t *testing.T) {
	in := baseInput()
	in.Sender.Whitelist.LastTransfer = testNow.Add(-time.Hour)
	assert.NoError(t, Check(in), "cooldown exactly elapsed should pass")

	in.Sender.Whitelist.LastTransfer = testNow.Add(-time.Hour + time.Second)
	err := Check(in)
	assert.Equal(t, domainerrors.CodeCooldownActive, domainerrors.CodeOf(err))
}

func TestCheckNoRuleDefaultsToAllow(t *testing.T) {
	in := baseInput()
	in.Rule = nil
	in.Amount = 9_999
	assert.NoError(t, Check(in))
}

func TestCheckJurisdictionRuleAtLimit(t *testing.T) {
	limit := uint64(500)
	in := baseInput()
	in.Rule = &JurisdictionRule{From: "US", To: "GB", Allowed: true, MaxAmount: &limit}
	assert.NoError(t, Check(in), "amount equal to the pair limit is allowed")
}

func TestCheckCustodialPartiesSkipPartyRules(t *testing.T) {
	// Vault legs: the custodial side has no whitelist entry at all.
	in := baseInput()
	in.Receiver = PartyState{Custodial: true}
	require.NoError(t, Check(in))

	in = baseInput()
	in.Sender = PartyState{Custodial: true}
	require.NoError(t, Check(in))
}

func TestCheckCustodialSenderSkipsCooldown(t *testing.T) {
	in := baseInput()
	in.Sender = PartyState{Custodial: true}
	in.Config.Cooldown = time.Hour
	assert.NoError(t, Check(in))
}

func TestCheckCustodialLegSkipsJurisdictionRule(t *testing.T) {
	in := baseInput()
	in.Receiver = PartyState{Custodial: true}
	in.Rule = &JurisdictionRule{From: "US", To: "GB", Allowed: false}
	assert.NoError(t, Check(in))
}

func TestCheckOrderAmountBeforeParties(t *testing.T) {
	in := baseInput()
	in.Amount = 20_000
	in.Sender.Whitelist = nil
	err := Check(in)
	assert.Equal(t, domainerrors.CodeTransferAmountExceeded, domainerrors.CodeOf(err))
}

func TestCheckOrderSenderBeforeReceiver(t *testing.T) {
	in := baseInput()
	in.Sender.Whitelist = nil
	in.Receiver.Whitelist = nil
	err := Check(in)
	assert.Equal(t, domainerrors.CodeSenderNotWhitelisted, domainerrors.CodeOf(err))
}
