package auction

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
	testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	seller      = ledger.Derive(ledger.KindWhitelist, []byte("seller"))
	bidderA     = ledger.Derive(ledger.KindWhitelist, []byte("bidder-a"))
	bidderB     = ledger.Derive(ledger.KindWhitelist, []byte("bidder-b"))
	assetMint   = ledger.Derive(ledger.KindMintAuthority, []byte("asset"))
	paymentMint = ledger.Derive(ledger.KindMintAuthority, []byte("payment"))
)

type recordingHook struct {
	calls []ledger.TransferParties
	deny  error
}

func (h *recordingHook) AuthorizeTransfer(_ context.Context, t ledger.TransferParties) error {
	h.calls = append(h.calls, t)
	return h.deny
}

type fixture struct {
	svc    *Service
	store  *InMemoryStore
	tokens *ledger.TokenLedger
	hook   *recordingHook
	clock  *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := testNow
	f := &fixture{
		store:  NewInMemoryStore(),
		tokens: ledger.NewTokenLedger(),
		hook:   &recordingHook{},
		clock:  &now,
	}
	f.svc = NewService(f.store, f.tokens,
		WithClock(func() time.Time { return *f.clock }))

	ctx := context.Background()
	require.NoError(t, f.tokens.CreateMint(assetMint, 0))
	require.NoError(t, f.tokens.CreateMint(paymentMint, 0))
	require.NoError(t, f.tokens.BindTransferHook(assetMint, f.hook))
	require.NoError(t, f.tokens.Atomic(ctx, func(tx *ledger.Txn) error {
		if err := tx.Mint(assetMint, seller, 100); err != nil {
			return err
		}
		if err := tx.Mint(paymentMint, bidderA, 10_000); err != nil {
			return err
		}
		return tx.Mint(paymentMint, bidderB, 10_000)
	}))
	return f
}

func (f *fixture) create(t *testing.T, startingPrice, reservePrice uint64) Auction {
	t.Helper()
	a, err := f.svc.Create(context.Background(), CreateParams{
		Seller:          seller,
		AssetMint:       assetMint,
		PaymentMint:     paymentMint,
		AssetAmount:     100,
		StartingPrice:   startingPrice,
		ReservePrice:    reservePrice,
		MinBidIncrement: 10,
		StartTime:       testNow,
		EndTime:         testNow.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) advancePastEnd(a Auction) {
	*f.clock = a.EndTime.Add(time.Minute)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	base := CreateParams{
		Seller:          seller,
		AssetMint:       assetMint,
		PaymentMint:     paymentMint,
		AssetAmount:     100,
		StartingPrice:   400,
		ReservePrice:    450,
		MinBidIncrement: 10,
		StartTime:       testNow,
		EndTime:         testNow.Add(2 * time.Hour),
	}

	cases := []struct {
		name   string
		mutate func(*CreateParams)
	}{
		{"zero asset amount", func(p *CreateParams) { p.AssetAmount = 0 }},
		{"zero starting price", func(p *CreateParams) { p.StartingPrice = 0 }},
		{"reserve below starting", func(p *CreateParams) { p.ReservePrice = 399 }},
		{"zero increment", func(p *CreateParams) { p.MinBidIncrement = 0 }},
		{"start in the past", func(p *CreateParams) { p.StartTime = testNow.Add(-time.Minute) }},
		{"end before start", func(p *CreateParams) { p.EndTime = testNow.Add(-time.Hour) }},
		{"too short", func(p *CreateParams) { p.EndTime = testNow.Add(30 * time.Minute) }},
		{"missing seller", func(p *CreateParams) { p.Seller = ledger.Zero }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := base
			tc.mutate(&p)
			_, err := f.svc.Create(context.Background(), p)
			assert.Equal(t, domainerrors.CodeInvalidParameter, domainerrors.CodeOf(err))
		})
	}
}

func TestCreateVaultsAssets(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, 400, 450)

	assert.Equal(t, StatusActive, a.Status)
	assert.Equal(t, uint64(100), f.tokens.Balance(assetMint, a.Vault()))
	assert.Equal(t, uint64(0), f.tokens.Balance(assetMint, seller))
}

func TestBidReplacement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, 400, 450)

	// First bid meets the starting price.
	_, err := f.svc.PlaceBid(ctx, bidderA, a.Address, 450)
	require.NoError(t, err)
	assert.Equal(t, uint64(450), f.tokens.Balance(paymentMint, a.Vault()))
	assert.Equal(t, uint64(10_000-450), f.tokens.Balance(paymentMint, bidderA))

	// B outbids; A's funds come back in the same transaction.
	_, err = f.svc.PlaceBid(ctx, bidderB, a.Address, 460)
	require.NoError(t, err)
	assert.Equal(t, uint64(460), f.tokens.Balance(paymentMint, a.Vault()))
	assert.Equal(t, uint64(10_000), f.tokens.Balance(paymentMint, bidderA))

	got, err := f.svc.Get(ctx, a.Address)
	require.NoError(t, err)
	assert.Equal(t, bidderB, got.CurrentBidder)
	assert.Equal(t, uint64(460), got.CurrentBid)
	assert.Equal(t, uint64(2), got.TotalBids)

	bidA, err := f.svc.GetBid(ctx, a.Address, bidderA)
	require.NoError(t, err)
	assert.Equal(t, BidOutbid, bidA.Status)
	bidB, err := f.svc.GetBid(ctx, a.Address, bidderB)
	require.NoError(t, err)
	assert.Equal(t, BidActive, bidB.Status)
}

func TestLateBidExtendsEndTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, 400, 450)

	// A bid well before the closing window leaves the end time alone.
	_, err := f.svc.PlaceBid(ctx, bidderA, a.Address, 450)
	require.NoError(t, err)
	got, err := f.svc.Get(ctx, a.Address)
	require.NoError(t, err)
	assert.True(t, got.EndTime.Equal(a.EndTime))

	// A bid inside the closing window pushes the end out to a full
	// window from the bid.
	*f.clock = a.EndTime.Add(-5 * time.Minute)
	_, err = f.svc.PlaceBid(ctx, bidderB, a.Address, 460)
	require.NoError(t, err)
	got, err = f.svc.Get(ctx, a.Address)
	require.NoError(t, err)
	assert.True(t, got.EndTime.Equal(f.clock.Add(ExtensionWindow)))
	assert.True(t, got.EndTime.After(a.EndTime))
}

func TestVaultAlwaysHoldsCurrentBid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, 400, 450)

	amounts := []struct {
		bidder ledger.Address
		amount uint64
	}{
		{bidderA, 400},
		{bidderB, 410},
		{bidderA, 500},
		{bidderA, 510}, // raises own bid
		{bidderB, 600},
	}
	for _, step := range amounts {
		_, err := f.svc.PlaceBid(ctx, step.bidder, a.Address, step.amount)
		require.NoError(t, err)
		assert.Equal(t, step.amount, f.tokens.Balance(paymentMint, a.Vault()))

		// Exactly one bid record is active at any time.
		bids, err := f.svc.ListBids(ctx, a.Address)
		require.NoError(t, err)
		active := 0
		for _, b := range bids {
			if b.Status == BidActive {
				active++
			}
		}
		assert.Equal(t, 1, active)
	}

	// Re-bid replaced the record rather than duplicating it.
	bids, err := f.svc.ListBids(ctx, a.Address)
	require.NoError(t, err)
	assert.Len(t, bids, 2)
}

func TestBidRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, 400, 450)

	_, err := f.svc.PlaceBid(ctx, seller, a.Address, 400)
	assert.Equal(t, domainerrors.CodeSellerCannotBid, domainerrors.CodeOf(err))

	_, err = f.svc.PlaceBid(ctx, bidderA, a.Address, 399)
	assert.Equal(t, domainerrors.CodeBidTooLow, domainerrors.CodeOf(err))

	_, err = f.svc.PlaceBid(ctx, bidderA, a.Address, 400)
	require.NoError(t, err)

	// Below current + increment.
	_, err = f.svc.PlaceBid(ctx, bidderB, a.Address, 409)
	assert.Equal(t, domainerrors.CodeBidTooLow, domainerrors.CodeOf(err))

	f.advancePastEnd(a)
	_, err = f.svc.PlaceBid(ctx, bidderB, a.Address, 500)
	assert.Equal(t, domainerrors.CodeAuctionEnded, domainerrors.CodeOf(err))
}

func TestBidBeforeStartRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, CreateParams{
		Seller:          seller,
		AssetMint:       assetMint,
		PaymentMint:     paymentMint,
		AssetAmount:     100,
		StartingPrice:   400,
		ReservePrice:    450,
		MinBidIncrement: 10,
		StartTime:       testNow.Add(time.Hour),
		EndTime:         testNow.Add(3 * time.Hour),
	})
	require.NoError(t, err)

	_, err = f.svc.PlaceBid(ctx, bidderA, a.Address, 400)
	assert.Equal(t, domainerrors.CodeAuctionNotStarted, domainerrors.CodeOf(err))
}

func TestSettleReserveMet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, 400, 450)

	_, err := f.svc.PlaceBid(ctx, bidderA, a.Address, 450)
	require.NoError(t, err)

	f.advancePastEnd(a)
	settled, err := f.svc.Settle(ctx, a.Address)
	require.NoError(t, err)
	assert.Equal(t, StatusSettled, settled.Status)

	assert.Equal(t, uint64(100), f.tokens.Balance(assetMint, bidderA))
	assert.Equal(t, uint64(450), f.tokens.Balance(paymentMint, seller))
	assert.Equal(t, uint64(0), f.tokens.Balance(assetMint, settled.Vault()))
	assert.Equal(t, uint64(0), f.tokens.Balance(paymentMint, settled.Vault()))

	b, err := f.svc.GetBid(ctx, a.Address, bidderA)
	require.NoError(t, err)
	assert.Equal(t, BidWon, b.Status)

	// The winner leg passed through the compliance hook.
	last := f.hook.calls[len(f.hook.calls)-1]
	assert.Equal(t, bidderA, last.Receiver)
	assert.True(t, last.SenderCustodial)
}

func TestSettleReserveNotMet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, 400, 450)

	// Single bid above starting price but below reserve.
	_, err := f.svc.PlaceBid(ctx, bidderA, a.Address, 420)
	require.NoError(t, err)

	f.advancePastEnd(a)
	failed, err := f.svc.Settle(ctx, a.Address)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, failed.Status)

	// Assets return to the seller and the bid is refunded.
	assert.Equal(t, uint64(100), f.tokens.Balance(assetMint, seller))
	assert.Equal(t, uint64(0), f.tokens.Balance(assetMint, bidderA))
	assert.Equal(t, uint64(10_000), f.tokens.Balance(paymentMint, bidderA))
	assert.Equal(t, uint64(0), f.tokens.Balance(paymentMint, seller))

	b, err := f.svc.GetBid(ctx, a.Address, bidderA)
	require.NoError(t, err)
	assert.Equal(t, BidRefunded, b.Status)
}

func TestSettleNoBids(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, 400, 450)

	f.advancePastEnd(a)
	failed, err := f.svc.Settle(ctx, a.Address)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, uint64(100), f.tokens.Balance(assetMint, seller))
}

func TestSettleBeforeEndRejected(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, 400, 450)

	_, err := f.svc.Settle(context.Background(), a.Address)
	assert.Equal(t, domainerrors.CodeAuctionNotEnded, domainerrors.CodeOf(err))
}

func TestDoubleSettlementRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, 400, 450)

	_, err := f.svc.PlaceBid(ctx, bidderA, a.Address, 500)
	require.NoError(t, err)

	f.advancePastEnd(a)
	_, err = f.svc.Settle(ctx, a.Address)
	require.NoError(t, err)

	_, err = f.svc.Settle(ctx, a.Address)
	assert.Equal(t, domainerrors.CodeAuctionNotActive, domainerrors.CodeOf(err))

	// Funds moved exactly once.
	assert.Equal(t, uint64(100), f.tokens.Balance(assetMint, bidderA))
	assert.Equal(t, uint64(500), f.tokens.Balance(paymentMint, seller))
}

func TestSettleComplianceDenialAborts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, 400, 450)

	_, err := f.svc.PlaceBid(ctx, bidderA, a.Address, 500)
	require.NoError(t, err)

	f.advancePastEnd(a)
	f.hook.deny = domainerrors.New(domainerrors.CodeReceiverNotWhitelisted, "receiver is not whitelisted")
	_, err = f.svc.Settle(ctx, a.Address)
	assert.Equal(t, domainerrors.CodeReceiverNotWhitelisted, domainerrors.CodeOf(err))

	// Both legs rolled back and the auction stayed settleable.
	got, err := f.svc.Get(ctx, a.Address)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)
	assert.Equal(t, uint64(100), f.tokens.Balance(assetMint, got.Vault()))
	assert.Equal(t, uint64(500), f.tokens.Balance(paymentMint, got.Vault()))
}

func TestCancelBid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, 400, 450)

	_, err := f.svc.PlaceBid(ctx, bidderA, a.Address, 450)
	require.NoError(t, err)
	_, err = f.svc.PlaceBid(ctx, bidderB, a.Address, 460)
	require.NoError(t, err)

	// The high bidder cannot cancel.
	_, err = f.svc.CancelBid(ctx, bidderB, a.Address)
	assert.Equal(t, domainerrors.CodeCannotCancelWinningBid, domainerrors.CodeOf(err))

	vaultBefore := f.tokens.Balance(paymentMint, a.Vault())
	b, err := f.svc.CancelBid(ctx, bidderA, a.Address)
	require.NoError(t, err)
	assert.Equal(t, BidCancelled, b.Status)

	// Bookkeeping only, no funds move.
	assert.Equal(t, vaultBefore, f.tokens.Balance(paymentMint, a.Vault()))

	// A cancelled bid cannot be cancelled again.
	_, err = f.svc.CancelBid(ctx, bidderA, a.Address)
	assert.Equal(t, domainerrors.CodeInvalidState, domainerrors.CodeOf(err))
}

func TestCancelAuction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, 400, 450)

	_, err := f.svc.Cancel(ctx, bidderA, a.Address)
	assert.Equal(t, domainerrors.CodeUnauthorized, domainerrors.CodeOf(err))

	cancelled, err := f.svc.Cancel(ctx, seller, a.Address)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, uint64(100), f.tokens.Balance(assetMint, seller))
}

func TestCancelAuctionWithBidsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, 400, 450)

	_, err := f.svc.PlaceBid(ctx, bidderA, a.Address, 400)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, seller, a.Address)
	assert.Equal(t, domainerrors.CodeAuctionHasBids, domainerrors.CodeOf(err))
}

func TestExtend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, 400, 450)

	_, err := f.svc.Extend(ctx, bidderA, a.Address, a.EndTime.Add(time.Hour))
	assert.Equal(t, domainerrors.CodeUnauthorized, domainerrors.CodeOf(err))

	_, err = f.svc.Extend(ctx, seller, a.Address, a.EndTime.Add(-time.Minute))
	assert.Equal(t, domainerrors.CodeInvalidParameter, domainerrors.CodeOf(err))

	extended, err := f.svc.Extend(ctx, seller, a.Address, a.EndTime.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, a.EndTime.Add(time.Hour), extended.EndTime)

	// Bidding stays open through the extension.
	*f.clock = a.EndTime.Add(30 * time.Minute)
	_, err = f.svc.PlaceBid(ctx, bidderA, a.Address, 400)
	require.NoError(t, err)

	f.advancePastEnd(extended)
	_, err = f.svc.Extend(ctx, seller, a.Address, extended.EndTime.Add(time.Hour))
	assert.Equal(t, domainerrors.CodeAuctionEnded, domainerrors.CodeOf(err))
}

func TestListAuctionsFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, 400, 450)

	f.advancePastEnd(a)
	_, err := f.svc.Settle(ctx, a.Address)
	require.NoError(t, err)

	failed := StatusFailed
	got, err := f.svc.List(ctx, Filter{Seller: seller, Status: &failed})
	require.NoError(t, err)
	require.Len(t, got, 1)

	active := StatusActive
	got, err = f.svc.List(ctx, Filter{Status: &active})
	require.NoError(t, err)
	assert.Empty(t, got)
}
