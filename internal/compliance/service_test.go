package compliance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/internal/ledger"
	domainerrors "custodia/pkg/domain-errors"
)

var (
	authority  = ledger.Derive(ledger.KindWhitelist, []byte("authority"))
	gatekeeper = ledger.Derive(ledger.KindWhitelist, []byte("gatekeeper"))
	intruder   = ledger.Derive(ledger.KindWhitelist, []byte("intruder"))
)

func newTestService(t *testing.T) (*Service, *InMemoryStore) {
	t.Helper()
	store := NewInMemoryStore()
	svc := NewService(store, WithClock(func() time.Time { return testNow }))

	_, err := svc.Initialize(context.Background(), InitializeParams{
		Authority:         authority,
		Gatekeeper:        gatekeeper,
		MaxTransferAmount: 10_000,
		Cooldown:          time.Hour,
	})
	require.NoError(t, err)
	return svc, store
}

func whitelistInvestor(t *testing.T, svc *Service, investor ledger.Address, jurisdiction string) WhitelistEntry {
	t.Helper()
	entry, err := svc.AddToWhitelist(context.Background(), AddToWhitelistParams{
		Authority:    authority,
		Investor:     investor,
		Type:         InvestorAccredited,
		Jurisdiction: jurisdiction,
		KYCVerified:  true,
		KYCExpiry:    testNow.Add(180 * 24 * time.Hour),
	})
	require.NoError(t, err)
	return entry
}

func TestInitializeOnce(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Initialize(context.Background(), InitializeParams{Authority: authority})
	assert.Equal(t, domainerrors.CodeConflict, domainerrors.CodeOf(err))
}

func TestAddToWhitelistRequiresAuthority(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AddToWhitelist(context.Background(), AddToWhitelistParams{
		Authority:    intruder,
		Investor:     senderAddr,
		Jurisdiction: "US",
	})
	assert.Equal(t, domainerrors.CodeUnauthorized, domainerrors.CodeOf(err))
}

func TestAddToWhitelistValidatesJurisdiction(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AddToWhitelist(context.Background(), AddToWhitelistParams{
		Authority:    authority,
		Investor:     senderAddr,
		Jurisdiction: "USA",
	})
	assert.Equal(t, domainerrors.CodeInvalidParameter, domainerrors.CodeOf(err))
}

func TestWhitelistSoftDeleteAndReactivation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first := whitelistInvestor(t, svc, senderAddr, "US")

	cfg, err := svc.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), cfg.TotalWhitelisted)

	require.NoError(t, svc.RemoveFromWhitelist(ctx, authority, senderAddr))

	// Record survives removal, inactive.
	entry, err := svc.GetWhitelistEntry(ctx, senderAddr)
	require.NoError(t, err)
	assert.False(t, entry.Active)

	cfg, err = svc.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), cfg.TotalWhitelisted)

	// Removing again is an invalid state, and does not underflow the counter.
	err = svc.RemoveFromWhitelist(ctx, authority, senderAddr)
	assert.Equal(t, domainerrors.CodeInvalidState, domainerrors.CodeOf(err))

	// Reactivation keeps the original AddedAt.
	re := whitelistInvestor(t, svc, senderAddr, "US")
	assert.Equal(t, first.AddedAt, re.AddedAt)
	assert.True(t, re.Active)
}

func TestDoubleWhitelistConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	whitelistInvestor(t, svc, senderAddr, "US")

	_, err := svc.AddToWhitelist(context.Background(), AddToWhitelistParams{
		Authority:    authority,
		Investor:     senderAddr,
		Jurisdiction: "US",
	})
	assert.Equal(t, domainerrors.CodeConflict, domainerrors.CodeOf(err))
}

func TestBlacklistReasonBounded(t *testing.T) {
	svc, _ := newTestService(t)

	long := make([]byte, MaxBlacklistReason+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err := svc.AddToBlacklist(context.Background(), authority, senderAddr, string(long))
	assert.Equal(t, domainerrors.CodeInvalidParameter, domainerrors.CodeOf(err))
}

func TestBlacklistLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	entry, err := svc.AddToBlacklist(ctx, authority, senderAddr, "sanctions hit")
	require.NoError(t, err)
	assert.Equal(t, authority, entry.AddedBy)

	cfg, err := svc.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), cfg.TotalBlacklisted)

	require.NoError(t, svc.RemoveFromBlacklist(ctx, authority, senderAddr))

	got, err := svc.GetBlacklistEntry(ctx, senderAddr)
	require.NoError(t, err)
	assert.False(t, got.Active)

	cfg, err = svc.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), cfg.TotalBlacklisted)
}

func TestUpdateConfigPartial(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	paused := true
	cfg, err := svc.UpdateConfig(ctx, authority, UpdateConfigParams{Paused: &paused})
	require.NoError(t, err)
	assert.True(t, cfg.Paused)
	assert.Equal(t, uint64(10_000), cfg.MaxTransferAmount, "unset fields keep their value")
	assert.Equal(t, time.Hour, cfg.Cooldown)

	_, err = svc.UpdateConfig(ctx, intruder, UpdateConfigParams{Paused: &paused})
	assert.Equal(t, domainerrors.CodeUnauthorized, domainerrors.CodeOf(err))
}

func TestRenewKYC(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	whitelistInvestor(t, svc, senderAddr, "US")

	_, err := svc.RenewKYC(ctx, intruder, senderAddr)
	assert.Equal(t, domainerrors.CodeUnauthorized, domainerrors.CodeOf(err))

	entry, err := svc.RenewKYC(ctx, gatekeeper, senderAddr)
	require.NoError(t, err)
	assert.True(t, entry.KYCVerified)
	assert.Equal(t, testNow.Add(KYCRenewalValidity), entry.KYCExpiry)
}

func TestRenewKYCRequiresActiveEntry(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	whitelistInvestor(t, svc, senderAddr, "US")
	require.NoError(t, svc.RemoveFromWhitelist(ctx, authority, senderAddr))

	_, err := svc.RenewKYC(ctx, gatekeeper, senderAddr)
	assert.Equal(t, domainerrors.CodeInvalidState, domainerrors.CodeOf(err))
}

func transferParties(amount uint64) ledger.TransferParties {
	return ledger.TransferParties{
		Sender:   senderAddr,
		Receiver: receiverAddr,
		Amount:   amount,
	}
}

func TestAuthorizeTransferStampsCooldown(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	whitelistInvestor(t, svc, senderAddr, "US")
	whitelistInvestor(t, svc, receiverAddr, "GB")

	require.NoError(t, svc.AuthorizeTransfer(ctx, transferParties(100)))

	entry, err := svc.GetWhitelistEntry(ctx, senderAddr)
	require.NoError(t, err)
	assert.Equal(t, testNow, entry.LastTransfer)

	// A second transfer within the cooldown window is denied.
	err = svc.AuthorizeTransfer(ctx, transferParties(100))
	assert.Equal(t, domainerrors.CodeCooldownActive, domainerrors.CodeOf(err))
}

func TestAuthorizeTransferJurisdictionRule(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	whitelistInvestor(t, svc, senderAddr, "US")
	whitelistInvestor(t, svc, receiverAddr, "CN")

	_, err := svc.AddJurisdictionRule(ctx, authority, JurisdictionRule{From: "US", To: "CN", Allowed: false})
	require.NoError(t, err)

	err = svc.AuthorizeTransfer(ctx, transferParties(100))
	assert.Equal(t, domainerrors.CodeJurisdictionBlocked, domainerrors.CodeOf(err))

	// The rule is directional: the reverse pair stays open.
	reverse := ledger.TransferParties{Sender: receiverAddr, Receiver: senderAddr, Amount: 100}
	assert.NoError(t, svc.AuthorizeTransfer(ctx, reverse))
}

func TestCheckTransferHasNoSideEffects(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	whitelistInvestor(t, svc, senderAddr, "US")
	whitelistInvestor(t, svc, receiverAddr, "GB")

	require.NoError(t, svc.CheckTransfer(ctx, transferParties(100)))

	entry, err := svc.GetWhitelistEntry(ctx, senderAddr)
	require.NoError(t, err)
	assert.True(t, entry.LastTransfer.IsZero(), "pre-check must not stamp the cooldown clock")

	// Repeated pre-checks never trip the cooldown.
	require.NoError(t, svc.CheckTransfer(ctx, transferParties(100)))
}

func TestAuthorizeTransferDeniesUnlistedSender(t *testing.T) {
	svc, _ := newTestService(t)
	whitelistInvestor(t, svc, receiverAddr, "GB")

	err := svc.AuthorizeTransfer(context.Background(), transferParties(100))
	assert.Equal(t, domainerrors.CodeSenderNotWhitelisted, domainerrors.CodeOf(err))
}
