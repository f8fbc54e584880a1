package auction

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"custodia/internal/auction/metrics"
	"custodia/internal/ledger"
	domainerrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/audit"
	"custodia/pkg/platform/audit/publisher"
	"custodia/pkg/requestcontext"
)

// Service orchestrates the auction lifecycle. The custody vault is a ledger
// account registered custodial; it holds the seller's vaulted assets and
// exactly the current highest bid's payment, never more.
type Service struct {
	store   Store
	tokens  *ledger.TokenLedger
	metrics *metrics.Metrics
	auditor *publisher.Publisher
	tracer  trace.Tracer
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics attaches auction metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAuditor attaches an audit publisher.
func WithAuditor(p *publisher.Publisher) Option {
	return func(s *Service) { s.auditor = p }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, tokens *ledger.TokenLedger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tokens: tokens,
		tracer: otel.Tracer("custodia/auction"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams describes a new auction. The seller initiates.
type CreateParams struct {
	Seller          ledger.Address
	AssetMint       ledger.Address
	PaymentMint     ledger.Address
	AssetAmount     uint64
	StartingPrice   uint64
	ReservePrice    uint64
	MinBidIncrement uint64
	StartTime       time.Time
	EndTime         time.Time
}

// Create vaults the seller's asset tokens and opens the auction as Active.
// Bids are accepted only inside the [start, end) window.
func (s *Service) Create(ctx context.Context, p CreateParams) (Auction, error) {
	if p.Seller.IsZero() {
		return Auction{}, domainerrors.NewField("seller", "seller is required")
	}
	if p.AssetMint.IsZero() || p.PaymentMint.IsZero() {
		return Auction{}, domainerrors.NewField("mints", "asset and payment mints are required")
	}
	if p.AssetAmount == 0 {
		return Auction{}, domainerrors.NewField("asset_amount", "amount must be positive")
	}
	if p.StartingPrice == 0 {
		return Auction{}, domainerrors.NewField("starting_price", "starting price must be positive")
	}
	if p.ReservePrice < p.StartingPrice {
		return Auction{}, domainerrors.NewField("reserve_price", "reserve must be at least the starting price")
	}
	if p.MinBidIncrement == 0 {
		return Auction{}, domainerrors.NewField("min_bid_increment", "increment must be positive")
	}
	now := s.now()
	if p.StartTime.Before(now) {
		return Auction{}, domainerrors.NewField("start_time", "start must not be in the past")
	}
	if !p.EndTime.After(p.StartTime) {
		return Auction{}, domainerrors.NewField("end_time", "end must be after start")
	}
	if p.EndTime.Sub(p.StartTime) < MinAuctionDuration {
		return Auction{}, domainerrors.NewField("end_time", "auction must run at least one hour")
	}

	a := Auction{
		Address:         AuctionAddress(p.Seller, p.AssetMint, now),
		Seller:          p.Seller,
		AssetMint:       p.AssetMint,
		PaymentMint:     p.PaymentMint,
		AssetAmount:     p.AssetAmount,
		StartingPrice:   p.StartingPrice,
		ReservePrice:    p.ReservePrice,
		MinBidIncrement: p.MinBidIncrement,
		StartTime:       p.StartTime,
		EndTime:         p.EndTime,
		Status:          StatusActive,
		CreatedAt:       now,
	}
	s.tokens.RegisterCustodial(a.Vault())

	err := s.tokens.Atomic(ctx, func(tx *ledger.Txn) error {
		return tx.Transfer(a.AssetMint, a.Seller, a.Vault(), a.AssetAmount)
	})
	if err != nil {
		return Auction{}, err
	}

	if err := s.store.PutAuction(ctx, a); err != nil {
		return Auction{}, err
	}
	s.metrics.IncrementTransition(StatusActive.String())
	s.emit(ctx, audit.ActionAuctionCreated, a.Address, a.Seller, p.AssetAmount)
	return a, nil
}

// PlaceBid vaults the bidder's payment and, when a rival bid stands, refunds
// it in the same transaction. A bidder raising their own bid has the old
// amount returned the same way, so the vault always holds exactly the
// current high bid. A bid landing inside the final ExtensionWindow pushes
// the end time out to a full window from now.
func (s *Service) PlaceBid(ctx context.Context, bidder, auctionAddr ledger.Address, amount uint64) (Bid, error) {
	a, err := s.store.GetAuction(ctx, auctionAddr)
	if err != nil {
		return Bid{}, err
	}
	if a.Status != StatusActive {
		return Bid{}, notActive(a.Status)
	}
	now := s.now()
	if now.Before(a.StartTime) {
		return Bid{}, domainerrors.New(domainerrors.CodeAuctionNotStarted, "bidding has not opened yet")
	}
	if !now.Before(a.EndTime) {
		return Bid{}, domainerrors.New(domainerrors.CodeAuctionEnded, "bidding has closed")
	}
	if bidder == a.Seller {
		return Bid{}, domainerrors.New(domainerrors.CodeSellerCannotBid, "the seller cannot bid on their own auction")
	}
	if a.CurrentBidder.IsZero() {
		if amount < a.StartingPrice {
			return Bid{}, domainerrors.New(domainerrors.CodeBidTooLow, "first bid must meet the starting price")
		}
	} else if amount < a.CurrentBid+a.MinBidIncrement {
		return Bid{}, domainerrors.New(domainerrors.CodeBidTooLow, "bid must exceed the current bid by the minimum increment")
	}

	prevBidder, prevBid := a.CurrentBidder, a.CurrentBid
	err = s.tokens.Atomic(ctx, func(tx *ledger.Txn) error {
		if err := tx.Transfer(a.PaymentMint, bidder, a.Vault(), amount); err != nil {
			return err
		}
		if !prevBidder.IsZero() {
			return tx.Transfer(a.PaymentMint, a.Vault(), prevBidder, prevBid)
		}
		return nil
	})
	if err != nil {
		return Bid{}, err
	}

	kind := "first"
	if !prevBidder.IsZero() {
		kind = "outbid"
		if prevBidder == bidder {
			kind = "replaced"
		} else {
			prev, err := s.store.GetBid(ctx, BidAddress(a.Address, prevBidder))
			if err == nil {
				prev.Status = BidOutbid
				prev.UpdatedAt = now
				if err := s.store.PutBid(ctx, prev); err != nil {
					return Bid{}, err
				}
			}
			s.emit(ctx, audit.ActionBidRefunded, a.Address, prevBidder, prevBid)
		}
	}

	b := Bid{
		Address:   BidAddress(a.Address, bidder),
		Auction:   a.Address,
		Bidder:    bidder,
		Amount:    amount,
		Status:    BidActive,
		PlacedAt:  now,
		UpdatedAt: now,
	}
	if prevBidder == bidder {
		if prev, err := s.store.GetBid(ctx, b.Address); err == nil {
			b.PlacedAt = prev.PlacedAt
		}
	}
	if err := s.store.PutBid(ctx, b); err != nil {
		return Bid{}, err
	}

	a.CurrentBid = amount
	a.CurrentBidder = bidder
	a.TotalBids++
	if a.EndTime.Sub(now) < ExtensionWindow {
		a.EndTime = now.Add(ExtensionWindow)
	}
	if err := s.store.PutAuction(ctx, a); err != nil {
		return Bid{}, err
	}
	s.metrics.IncrementBid(kind)
	s.emit(ctx, audit.ActionBidPlaced, a.Address, bidder, amount)
	return b, nil
}

// CancelBid withdraws a non-highest bid. The funds already went back when
// the bid was outbid, so this is bookkeeping only. Cancelling the current
// high bid is disallowed.
func (s *Service) CancelBid(ctx context.Context, bidder, auctionAddr ledger.Address) (Bid, error) {
	a, err := s.store.GetAuction(ctx, auctionAddr)
	if err != nil {
		return Bid{}, err
	}
	if a.Status != StatusActive {
		return Bid{}, notActive(a.Status)
	}
	if bidder == a.CurrentBidder {
		return Bid{}, domainerrors.New(domainerrors.CodeCannotCancelWinningBid,
			"the current high bid cannot be cancelled")
	}
	b, err := s.store.GetBid(ctx, BidAddress(auctionAddr, bidder))
	if err != nil {
		return Bid{}, err
	}
	if b.Status != BidOutbid {
		return Bid{}, domainerrors.New(domainerrors.CodeInvalidState,
			"bid is "+b.Status.String()+", only outbid bids can be cancelled")
	}
	b.Status = BidCancelled
	b.UpdatedAt = s.now()
	if err := s.store.PutBid(ctx, b); err != nil {
		return Bid{}, err
	}
	s.emit(ctx, audit.ActionBidCancelled, a.Address, bidder, b.Amount)
	return b, nil
}

// Settle closes the auction after its end time. Reserve met: assets to the
// winner and payment to the seller, the asset leg passing through the
// compliance hook. Reserve not met or no bids: assets back to the seller and
// any standing bid refunded.
func (s *Service) Settle(ctx context.Context, auctionAddr ledger.Address) (Auction, error) {
	ctx, span := s.tracer.Start(ctx, "auction.Settle",
		trace.WithAttributes(attribute.String("auction", auctionAddr.String())))
	defer span.End()

	a, err := s.store.GetAuction(ctx, auctionAddr)
	if err != nil {
		return Auction{}, err
	}
	if a.Status != StatusActive {
		return Auction{}, notActive(a.Status)
	}
	if s.now().Before(a.EndTime) {
		return Auction{}, domainerrors.New(domainerrors.CodeAuctionNotEnded, "auction has not ended yet")
	}

	won := !a.CurrentBidder.IsZero() && a.CurrentBid >= a.ReservePrice
	if won {
		err = s.tokens.Atomic(ctx, func(tx *ledger.Txn) error {
			if err := tx.Transfer(a.AssetMint, a.Vault(), a.CurrentBidder, a.AssetAmount); err != nil {
				return err
			}
			return tx.Transfer(a.PaymentMint, a.Vault(), a.Seller, a.CurrentBid)
		})
	} else {
		err = s.tokens.Atomic(ctx, func(tx *ledger.Txn) error {
			if err := tx.Transfer(a.AssetMint, a.Vault(), a.Seller, a.AssetAmount); err != nil {
				return err
			}
			if !a.CurrentBidder.IsZero() {
				return tx.Transfer(a.PaymentMint, a.Vault(), a.CurrentBidder, a.CurrentBid)
			}
			return nil
		})
	}
	if err != nil {
		return Auction{}, err
	}

	if !a.CurrentBidder.IsZero() {
		if b, err := s.store.GetBid(ctx, BidAddress(a.Address, a.CurrentBidder)); err == nil {
			if won {
				b.Status = BidWon
			} else {
				b.Status = BidRefunded
			}
			b.UpdatedAt = s.now()
			if err := s.store.PutBid(ctx, b); err != nil {
				return Auction{}, err
			}
		}
	}

	if won {
		a.Status = StatusSettled
		s.metrics.ObserveWinningBid(a.CurrentBid)
		s.emit(ctx, audit.ActionAuctionSettled, a.Address, a.CurrentBidder, a.CurrentBid)
	} else {
		a.Status = StatusFailed
		s.emit(ctx, audit.ActionAuctionFailed, a.Address, a.Seller, a.CurrentBid)
	}
	if err := s.store.PutAuction(ctx, a); err != nil {
		return Auction{}, err
	}
	s.metrics.IncrementTransition(a.Status.String())
	return a, nil
}

// Cancel withdraws an auction before any bid lands, returning the vaulted
// assets to the seller.
func (s *Service) Cancel(ctx context.Context, caller, auctionAddr ledger.Address) (Auction, error) {
	a, err := s.store.GetAuction(ctx, auctionAddr)
	if err != nil {
		return Auction{}, err
	}
	if caller != a.Seller {
		return Auction{}, domainerrors.New(domainerrors.CodeUnauthorized, "only the seller cancels an auction")
	}
	if a.Status != StatusActive {
		return Auction{}, notActive(a.Status)
	}
	if a.TotalBids > 0 {
		return Auction{}, domainerrors.New(domainerrors.CodeAuctionHasBids,
			"an auction with bids cannot be cancelled, settle it after the end time")
	}

	err = s.tokens.Atomic(ctx, func(tx *ledger.Txn) error {
		return tx.Transfer(a.AssetMint, a.Vault(), a.Seller, a.AssetAmount)
	})
	if err != nil {
		return Auction{}, err
	}

	a.Status = StatusCancelled
	if err := s.store.PutAuction(ctx, a); err != nil {
		return Auction{}, err
	}
	s.metrics.IncrementTransition(a.Status.String())
	s.emit(ctx, audit.ActionAuctionCancelled, a.Address, a.Seller, 0)
	return a, nil
}

// Extend pushes the end time later while the auction is still running.
func (s *Service) Extend(ctx context.Context, caller, auctionAddr ledger.Address, newEnd time.Time) (Auction, error) {
	a, err := s.store.GetAuction(ctx, auctionAddr)
	if err != nil {
		return Auction{}, err
	}
	if caller != a.Seller {
		return Auction{}, domainerrors.New(domainerrors.CodeUnauthorized, "only the seller extends an auction")
	}
	if a.Status != StatusActive {
		return Auction{}, notActive(a.Status)
	}
	if !s.now().Before(a.EndTime) {
		return Auction{}, domainerrors.New(domainerrors.CodeAuctionEnded, "auction has already ended")
	}
	if !newEnd.After(a.EndTime) {
		return Auction{}, domainerrors.NewField("end_time", "new end must be after the current end")
	}

	a.EndTime = newEnd
	if err := s.store.PutAuction(ctx, a); err != nil {
		return Auction{}, err
	}
	s.emit(ctx, audit.ActionAuctionExtended, a.Address, a.Seller, 0)
	return a, nil
}

// Read accessors.

func (s *Service) Get(ctx context.Context, addr ledger.Address) (Auction, error) {
	return s.store.GetAuction(ctx, addr)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Auction, error) {
	return s.store.ListAuctions(ctx, filter)
}

func (s *Service) GetBid(ctx context.Context, auctionAddr, bidder ledger.Address) (Bid, error) {
	return s.store.GetBid(ctx, BidAddress(auctionAddr, bidder))
}

func (s *Service) ListBids(ctx context.Context, auctionAddr ledger.Address) ([]Bid, error) {
	return s.store.ListBids(ctx, auctionAddr)
}

func notActive(got Status) error {
	return domainerrors.New(domainerrors.CodeAuctionNotActive, "auction is "+got.String())
}

func (s *Service) emit(ctx context.Context, action audit.Action, subject, counterparty ledger.Address, amount uint64) {
	if s.auditor == nil {
		return
	}
	actor := requestcontext.Actor(ctx)
	if actor == "" {
		actor = counterparty.String()
	}
	_ = s.auditor.Emit(ctx, audit.Event{
		Action:    action,
		Actor:     actor,
		Subject:   subject.String(),
		Amount:    amount,
		RequestID: requestcontext.RequestID(ctx),
	})
}
