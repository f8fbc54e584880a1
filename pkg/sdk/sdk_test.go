package sdk_test

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/internal/auction"
	"custodia/internal/compliance"
	"custodia/internal/escrow"
	"custodia/internal/ledger"
	"custodia/internal/registry"
	httptransport "custodia/internal/transport/http"
	domainerrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/sdk"
)

var (
	testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	authority   = ledger.Derive(ledger.KindWhitelist, []byte("authority"))
	gatekeeper  = ledger.Derive(ledger.KindWhitelist, []byte("gatekeeper"))
	alice       = ledger.Derive(ledger.KindWhitelist, []byte("alice"))
	bob         = ledger.Derive(ledger.KindWhitelist, []byte("bob"))
	mallory     = ledger.Derive(ledger.KindWhitelist, []byte("mallory"))
	assetMint   = ledger.Derive(ledger.KindMintAuthority, []byte("asset"))
	paymentMint = ledger.Derive(ledger.KindMintAuthority, []byte("payment"))
)

// fixture runs the full router against in-memory stores behind a real HTTP
// listener, which is what the client sees in production minus TLS and auth.
type fixture struct {
	client *sdk.Client
	tokens *ledger.TokenLedger
	clock  *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := testNow
	f := &fixture{
		tokens: ledger.NewTokenLedger(),
		clock:  &now,
	}
	clock := func() time.Time { return *f.clock }

	ctx := context.Background()
	require.NoError(t, f.tokens.CreateMint(assetMint, 0))
	require.NoError(t, f.tokens.CreateMint(paymentMint, 0))
	require.NoError(t, f.tokens.Atomic(ctx, func(tx *ledger.Txn) error {
		if err := tx.Mint(assetMint, bob, 1_000); err != nil {
			return err
		}
		if err := tx.Mint(paymentMint, alice, 10_000); err != nil {
			return err
		}
		return tx.Mint(paymentMint, mallory, 10_000)
	}))

	log := slog.New(slog.DiscardHandler)
	complianceStore := compliance.NewInMemoryStore()
	complianceSvc := compliance.NewService(complianceStore, compliance.WithClock(clock))
	registryStore := registry.NewInMemoryStore()
	registrySvc := registry.NewService(registryStore, f.tokens, complianceSvc,
		registry.WithClock(clock))
	escrowSvc := escrow.NewService(escrow.NewInMemoryStore(), f.tokens,
		escrow.WithClock(clock))
	auctionSvc := auction.NewService(auction.NewInMemoryStore(), f.tokens,
		auction.WithClock(clock))

	resolvers := []httptransport.RecordResolver{
		func(ctx context.Context, addr ledger.Address) ([]byte, error) {
			e, err := escrowSvc.Get(ctx, addr)
			if err != nil {
				return nil, err
			}
			return e.Encode(), nil
		},
		func(ctx context.Context, addr ledger.Address) ([]byte, error) {
			a, err := auctionSvc.Get(ctx, addr)
			if err != nil {
				return nil, err
			}
			return a.Encode(), nil
		},
		func(ctx context.Context, addr ledger.Address) ([]byte, error) {
			a, err := registryStore.GetAsset(ctx, addr)
			if err != nil {
				return nil, err
			}
			return a.Encode(), nil
		},
		func(ctx context.Context, addr ledger.Address) ([]byte, error) {
			if addr != compliance.ConfigAddress() {
				return nil, sentinel.ErrNotFound
			}
			cfg, err := complianceStore.GetConfig(ctx)
			if err != nil {
				return nil, err
			}
			return cfg.Encode(), nil
		},
		func(ctx context.Context, addr ledger.Address) ([]byte, error) {
			wl, err := complianceStore.GetWhitelist(ctx, addr)
			if err != nil {
				return nil, err
			}
			return wl.Encode(), nil
		},
	}

	srv := httptest.NewServer(httptransport.NewRouter(httptransport.Deps{
		Logger:     log,
		Compliance: complianceSvc,
		Registry:   registrySvc,
		Escrow:     escrowSvc,
		Auction:    auctionSvc,
		Records:    resolvers,
	}))
	t.Cleanup(srv.Close)

	f.client = sdk.New(srv.URL)
	return f
}

// initCompliance seeds a permissive baseline: alice (US) and bob (GB)
// whitelisted, mallory blacklisted.
func (f *fixture) initCompliance(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := f.client.InitializeCompliance(ctx, sdk.InitializeComplianceParams{
		Authority:         authority.String(),
		Gatekeeper:        gatekeeper.String(),
		MaxTransferAmount: 100_000,
	})
	require.NoError(t, err)

	for addr, jurisdiction := range map[ledger.Address]string{alice: "US", bob: "GB"} {
		_, err := f.client.AddToWhitelist(ctx, sdk.AddToWhitelistParams{
			Authority:    authority.String(),
			Investor:     addr.String(),
			InvestorType: "accredited",
			Jurisdiction: jurisdiction,
			KYCVerified:  true,
			KYCExpiry:    testNow.Add(2 * 365 * 24 * time.Hour),
		})
		require.NoError(t, err)
	}
	_, err = f.client.AddToBlacklist(ctx, sdk.AddToBlacklistParams{
		Authority: authority.String(),
		Address:   mallory.String(),
		Reason:    "sanctions match",
	})
	require.NoError(t, err)
}

func TestComplianceEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initCompliance(t)

	cfg, err := f.client.ComplianceConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, authority.String(), cfg.Authority)
	assert.Equal(t, uint64(2), cfg.TotalWhitelisted)
	assert.Equal(t, uint64(1), cfg.TotalBlacklisted)

	entry, err := f.client.WhitelistEntry(ctx, alice.String())
	require.NoError(t, err)
	assert.Equal(t, "US", entry.Jurisdiction)
	assert.True(t, entry.Active)

	maxAmount := uint64(500)
	_, err = f.client.AddJurisdictionRule(ctx, sdk.AddJurisdictionRuleParams{
		Authority: authority.String(),
		From:      "US",
		To:        "GB",
		Allowed:   true,
		MaxAmount: &maxAmount,
	})
	require.NoError(t, err)

	for _, tc := range []struct {
		name     string
		receiver ledger.Address
		amount   uint64
		reason   string
	}{
		{"allowed", bob, 100, ""},
		{"blacklisted receiver", mallory, 100, string(domainerrors.CodeReceiverBlacklisted)},
		{"jurisdiction cap", bob, 600, string(domainerrors.CodeJurisdictionAmountExceeded)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res, err := f.client.CheckTransfer(ctx, sdk.CheckTransferParams{
				Mint:     paymentMint.String(),
				Sender:   alice.String(),
				Receiver: tc.receiver.String(),
				Amount:   tc.amount,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.reason == "", res.Allowed)
			assert.Equal(t, tc.reason, res.Reason)
		})
	}

	renewed, err := f.client.RenewKYC(ctx, gatekeeper.String(), alice.String())
	require.NoError(t, err)
	assert.NotEqual(t, entry.KYCExpiry, renewed.KYCExpiry)

	require.NoError(t, f.client.RemoveFromBlacklist(ctx, authority.String(), mallory.String()))
	bl, err := f.client.BlacklistEntry(ctx, mallory.String())
	require.NoError(t, err)
	assert.False(t, bl.Active)
}

func TestCheckTransferRestrictionsParity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initCompliance(t)

	maxAmount := uint64(500)
	_, err := f.client.AddJurisdictionRule(ctx, sdk.AddJurisdictionRuleParams{
		Authority: authority.String(),
		From:      "US",
		To:        "GB",
		Allowed:   true,
		MaxAmount: &maxAmount,
	})
	require.NoError(t, err)

	stranger := ledger.Derive(ledger.KindWhitelist, []byte("stranger"))
	for _, tc := range []struct {
		name   string
		params sdk.CheckTransferParams
	}{
		{"allowed", sdk.CheckTransferParams{
			Mint: paymentMint.String(), Sender: alice.String(), Receiver: bob.String(), Amount: 100,
		}},
		{"blacklisted receiver", sdk.CheckTransferParams{
			Mint: paymentMint.String(), Sender: alice.String(), Receiver: mallory.String(), Amount: 100,
		}},
		{"unknown sender", sdk.CheckTransferParams{
			Mint: paymentMint.String(), Sender: stranger.String(), Receiver: bob.String(), Amount: 100,
		}},
		{"over global limit", sdk.CheckTransferParams{
			Mint: paymentMint.String(), Sender: alice.String(), Receiver: bob.String(), Amount: 200_000,
		}},
		{"jurisdiction cap", sdk.CheckTransferParams{
			Mint: paymentMint.String(), Sender: alice.String(), Receiver: bob.String(), Amount: 600,
		}},
		{"custodial receiver skips party checks", sdk.CheckTransferParams{
			Mint: paymentMint.String(), Sender: alice.String(), Receiver: stranger.String(),
			ReceiverCustodial: true, Amount: 100,
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			server, err := f.client.CheckTransfer(ctx, tc.params)
			require.NoError(t, err)

			local := f.client.CheckTransferRestrictions(ctx, tc.params)
			if server.Allowed {
				assert.NoError(t, local)
			} else {
				require.Error(t, local)
				assert.Equal(t, server.Reason, string(domainerrors.CodeOf(local)))
			}
		})
	}
}

func TestRegistryEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initCompliance(t)

	_, err := f.client.InitializeRegistry(ctx, sdk.InitializeRegistryParams{
		Authority:      authority.String(),
		PlatformFeeBps: 50,
	})
	require.NoError(t, err)

	mint, err := f.client.CreateMint(ctx, sdk.CreateMintParams{
		Authority: authority.String(),
		Name:      "Harborview Tower",
		Symbol:    "HVT",
		Decimals:  0,
	})
	require.NoError(t, err)
	require.NotEmpty(t, mint.Mint)

	asset, err := f.client.RegisterAsset(ctx, sdk.RegisterAssetParams{
		Authority:   authority.String(),
		Mint:        mint.Mint,
		Name:        "Harborview Tower",
		AssetType:   "real_estate",
		TotalValue:  5_000_000,
		TotalSupply: 10_000,
	})
	require.NoError(t, err)
	assert.Equal(t, "pending", asset.Status)

	asset, err = f.client.ActivateAsset(ctx, authority.String(), mint.Mint)
	require.NoError(t, err)
	assert.Equal(t, "active", asset.Status)

	require.NoError(t, f.client.MintTokens(ctx, authority.String(), mint.Mint, alice.String(), 2_500))
	assert.Equal(t, uint64(2_500), f.tokens.Balance(ledger.Address(mint.Mint), alice))

	listed, err := f.client.Assets(ctx, sdk.AssetFilter{Status: "active", Type: "real_estate"})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, mint.Mint, listed[0].Mint)

	cfg, err := f.client.RegistryConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), cfg.TotalAssets)
}

func TestEscrowEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	esc, err := f.client.CreateEscrow(ctx, sdk.CreateEscrowParams{
		Buyer:         alice.String(),
		Seller:        bob.String(),
		AssetMint:     assetMint.String(),
		PaymentMint:   paymentMint.String(),
		AssetAmount:   400,
		PaymentAmount: 2_000,
		ExpiresAt:     testNow.Add(24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "created", esc.Status)

	esc, err = f.client.DepositPayment(ctx, alice.String(), esc.Address)
	require.NoError(t, err)
	assert.Equal(t, "payment_deposited", esc.Status)

	esc, err = f.client.DepositAsset(ctx, bob.String(), esc.Address)
	require.NoError(t, err)
	assert.Equal(t, "fully_funded", esc.Status)

	esc, err = f.client.ReleaseEscrow(ctx, esc.Address)
	require.NoError(t, err)
	assert.Equal(t, "released", esc.Status)

	assert.Equal(t, uint64(400), f.tokens.Balance(assetMint, alice))
	assert.Equal(t, uint64(2_000), f.tokens.Balance(paymentMint, bob))

	byParty, err := f.client.EscrowsByParty(ctx, alice.String())
	require.NoError(t, err)
	require.Len(t, byParty, 1)
	assert.Equal(t, esc.Address, byParty[0].Address)
}

func TestAuctionEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.client.CreateAuction(ctx, sdk.CreateAuctionParams{
		Seller:          bob.String(),
		AssetMint:       assetMint.String(),
		PaymentMint:     paymentMint.String(),
		AssetAmount:     100,
		StartingPrice:   400,
		ReservePrice:    450,
		MinBidIncrement: 10,
		StartTime:       testNow,
		EndTime:         testNow.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "active", a.Status)

	_, err = f.client.PlaceBid(ctx, alice.String(), a.Address, 450)
	require.NoError(t, err)
	_, err = f.client.PlaceBid(ctx, mallory.String(), a.Address, 460)
	require.NoError(t, err)

	// alice was outbid and refunded; she can withdraw her bid record.
	bid, err := f.client.CancelBid(ctx, alice.String(), a.Address)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", bid.Status)

	_, err = f.client.PlaceBid(ctx, alice.String(), a.Address, 455)
	require.Error(t, err)
	var apiErr *sdk.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, string(domainerrors.CodeBidTooLow), apiErr.Code)

	*f.clock = testNow.Add(3 * time.Hour)
	a, err = f.client.SettleAuction(ctx, a.Address)
	require.NoError(t, err)
	assert.Equal(t, "settled", a.Status)
	assert.Equal(t, mallory.String(), a.CurrentBidder)

	assert.Equal(t, uint64(100), f.tokens.Balance(assetMint, mallory))
	assert.Equal(t, uint64(460), f.tokens.Balance(paymentMint, bob))

	bids, err := f.client.AuctionBids(ctx, a.Address)
	require.NoError(t, err)
	assert.Len(t, bids, 2)

	settled, err := f.client.Auctions(ctx, sdk.AuctionFilter{Seller: bob.String(), Status: "settled"})
	require.NoError(t, err)
	require.Len(t, settled, 1)
}

func TestRecordFetchAndDecode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.initCompliance(t)

	esc, err := f.client.CreateEscrow(ctx, sdk.CreateEscrowParams{
		Buyer:         alice.String(),
		Seller:        bob.String(),
		AssetMint:     assetMint.String(),
		PaymentMint:   paymentMint.String(),
		AssetAmount:   400,
		PaymentAmount: 2_000,
		ExpiresAt:     testNow.Add(24 * time.Hour),
	})
	require.NoError(t, err)

	raw, err := f.client.FetchRecord(ctx, esc.Address)
	require.NoError(t, err)
	decoded, err := sdk.DecodeRecord(raw)
	require.NoError(t, err)
	rec, ok := decoded.(escrow.Escrow)
	require.True(t, ok)
	assert.Equal(t, ledger.Address(esc.Address), rec.Address)
	assert.Equal(t, alice, rec.Buyer)
	assert.Equal(t, uint64(2_000), rec.PaymentAmount)

	raw, err = f.client.FetchRecord(ctx, alice.String())
	require.NoError(t, err)
	decoded, err = sdk.DecodeRecord(raw)
	require.NoError(t, err)
	wl, ok := decoded.(compliance.WhitelistEntry)
	require.True(t, ok)
	assert.Equal(t, "US", wl.Jurisdiction)

	unknown := ledger.Derive(ledger.KindWhitelist, []byte("nobody"))
	_, err = f.client.FetchRecord(ctx, unknown.String())
	assert.True(t, sdk.IsNotFound(err))

	_, err = sdk.DecodeRecord([]byte{0xFF})
	assert.Error(t, err)
}
