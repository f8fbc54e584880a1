package escrow

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"custodia/internal/escrow/metrics"
	"custodia/internal/ledger"
	domainerrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/audit"
	"custodia/pkg/platform/audit/publisher"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

// Service orchestrates the four-phase escrow swap. Both custody vaults are
// ledger accounts registered custodial, so the compliance hook evaluates the
// beneficial party on each leg.
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

// WithMetrics attaches escrow metrics.
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
		tracer: otel.Tracer("custodia/escrow"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams describes a new escrow. The buyer initiates.
type CreateParams struct {
	Buyer         ledger.Address
	Seller        ledger.Address
	AssetMint     ledger.Address
	PaymentMint   ledger.Address
	AssetAmount   uint64
	PaymentAmount uint64
	ExpiresAt     time.Time
}

// Create opens a new escrow in Created. A live escrow for the same
// (buyer, asset mint) pair blocks a new one.
func (s *Service) Create(ctx context.Context, p CreateParams) (Escrow, error) {
	if p.Buyer.IsZero() || p.Seller.IsZero() {
		return Escrow{}, domainerrors.NewField("parties", "buyer and seller are required")
	}
	if p.Buyer == p.Seller {
		return Escrow{}, domainerrors.NewField("seller", "buyer and seller must differ")
	}
	if p.AssetMint.IsZero() || p.PaymentMint.IsZero() {
		return Escrow{}, domainerrors.NewField("mints", "asset and payment mints are required")
	}
	if p.AssetAmount == 0 {
		return Escrow{}, domainerrors.NewField("asset_amount", "amount must be positive")
	}
	if p.PaymentAmount == 0 {
		return Escrow{}, domainerrors.NewField("payment_amount", "amount must be positive")
	}
	now := s.now()
	if !p.ExpiresAt.After(now) {
		return Escrow{}, domainerrors.NewField("expires_at", "expiry must be in the future")
	}

	if _, err := s.store.GetLive(ctx, p.Buyer, p.AssetMint); err == nil {
		return Escrow{}, domainerrors.New(domainerrors.CodeEscrowAlreadyOpen,
			"an unresolved escrow already exists for this buyer and mint")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return Escrow{}, err
	}

	e := Escrow{
		Address:       EscrowAddress(p.Buyer, p.AssetMint),
		Buyer:         p.Buyer,
		Seller:        p.Seller,
		AssetMint:     p.AssetMint,
		PaymentMint:   p.PaymentMint,
		AssetAmount:   p.AssetAmount,
		PaymentAmount: p.PaymentAmount,
		Status:        StatusCreated,
		CreatedAt:     now,
		ExpiresAt:     p.ExpiresAt,
	}
	s.tokens.RegisterCustodial(e.PaymentVault())
	s.tokens.RegisterCustodial(e.AssetVault())

	if err := s.store.Put(ctx, e); err != nil {
		return Escrow{}, err
	}
	s.metrics.IncrementTransition(StatusCreated.String())
	s.emit(ctx, audit.ActionEscrowCreated, e, p.PaymentAmount, "")
	return e, nil
}

// DepositPayment moves the buyer's payment into custody, Created to
// PaymentDeposited. Rejected once expired; refund is the only path then.
func (s *Service) DepositPayment(ctx context.Context, caller, escrowAddr ledger.Address) (Escrow, error) {
	e, err := s.store.Get(ctx, escrowAddr)
	if err != nil {
		return Escrow{}, err
	}
	if caller != e.Buyer {
		return Escrow{}, domainerrors.New(domainerrors.CodeUnauthorized, "only the buyer deposits payment")
	}
	if e.Status != StatusCreated {
		return Escrow{}, stateMismatch(e.Status, StatusCreated)
	}
	if !s.now().Before(e.ExpiresAt) {
		return Escrow{}, domainerrors.New(domainerrors.CodeEscrowExpired, "escrow has expired")
	}

	err = s.tokens.Atomic(ctx, func(tx *ledger.Txn) error {
		return tx.Transfer(e.PaymentMint, e.Buyer, e.PaymentVault(), e.PaymentAmount)
	})
	if err != nil {
		return Escrow{}, err
	}

	e.Status = StatusPaymentDeposited
	if err := s.store.Put(ctx, e); err != nil {
		return Escrow{}, err
	}
	s.metrics.IncrementTransition(e.Status.String())
	s.emit(ctx, audit.ActionPaymentDeposited, e, e.PaymentAmount, "")
	return e, nil
}

// DepositAsset moves the seller's asset tokens into custody,
// PaymentDeposited to FullyFunded.
func (s *Service) DepositAsset(ctx context.Context, caller, escrowAddr ledger.Address) (Escrow, error) {
	e, err := s.store.Get(ctx, escrowAddr)
	if err != nil {
		return Escrow{}, err
	}
	if caller != e.Seller {
		return Escrow{}, domainerrors.New(domainerrors.CodeUnauthorized, "only the seller deposits the asset")
	}
	if e.Status != StatusPaymentDeposited {
		return Escrow{}, stateMismatch(e.Status, StatusPaymentDeposited)
	}
	if !s.now().Before(e.ExpiresAt) {
		return Escrow{}, domainerrors.New(domainerrors.CodeEscrowExpired, "escrow has expired")
	}

	err = s.tokens.Atomic(ctx, func(tx *ledger.Txn) error {
		return tx.Transfer(e.AssetMint, e.Seller, e.AssetVault(), e.AssetAmount)
	})
	if err != nil {
		return Escrow{}, err
	}

	e.Status = StatusFullyFunded
	if err := s.store.Put(ctx, e); err != nil {
		return Escrow{}, err
	}
	s.metrics.IncrementTransition(e.Status.String())
	s.emit(ctx, audit.ActionAssetDeposited, e, e.AssetAmount, "")
	return e, nil
}

// Release performs the atomic double transfer: asset vault to buyer and
// payment vault to seller in one transaction. The asset leg passes through
// the compliance hook for the buyer; a denial aborts both legs. Callable by
// either party or a relayer once FullyFunded.
func (s *Service) Release(ctx context.Context, escrowAddr ledger.Address) (Escrow, error) {
	ctx, span := s.tracer.Start(ctx, "escrow.Release",
		trace.WithAttributes(attribute.String("escrow", escrowAddr.String())))
	defer span.End()

	e, err := s.store.Get(ctx, escrowAddr)
	if err != nil {
		return Escrow{}, err
	}
	if e.Status != StatusFullyFunded {
		return Escrow{}, stateMismatch(e.Status, StatusFullyFunded)
	}

	err = s.tokens.Atomic(ctx, func(tx *ledger.Txn) error {
		if err := tx.Transfer(e.AssetMint, e.AssetVault(), e.Buyer, e.AssetAmount); err != nil {
			return err
		}
		return tx.Transfer(e.PaymentMint, e.PaymentVault(), e.Seller, e.PaymentAmount)
	})
	if err != nil {
		return Escrow{}, err
	}

	e.Status = StatusReleased
	if err := s.store.Put(ctx, e); err != nil {
		return Escrow{}, err
	}
	s.metrics.IncrementTransition(e.Status.String())
	s.metrics.ObserveSettlementAge(s.now().Sub(e.CreatedAt))
	s.emit(ctx, audit.ActionEscrowReleased, e, e.PaymentAmount, "")
	return e, nil
}

// Refund returns vault contents to their depositors. Valid only after
// expiry, in any non-terminal state; which legs move depends on how far the
// escrow got.
func (s *Service) Refund(ctx context.Context, escrowAddr ledger.Address) (Escrow, error) {
	e, err := s.store.Get(ctx, escrowAddr)
	if err != nil {
		return Escrow{}, err
	}
	if e.Status.Terminal() {
		return Escrow{}, stateMismatch(e.Status, StatusFullyFunded)
	}
	if s.now().Before(e.ExpiresAt) {
		return Escrow{}, domainerrors.New(domainerrors.CodeEscrowNotExpired, "escrow has not expired yet")
	}

	err = s.tokens.Atomic(ctx, func(tx *ledger.Txn) error {
		if payment := tx.Balance(e.PaymentMint, e.PaymentVault()); payment > 0 {
			if err := tx.Transfer(e.PaymentMint, e.PaymentVault(), e.Buyer, payment); err != nil {
				return err
			}
		}
		if asset := tx.Balance(e.AssetMint, e.AssetVault()); asset > 0 {
			if err := tx.Transfer(e.AssetMint, e.AssetVault(), e.Seller, asset); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Escrow{}, err
	}

	e.Status = StatusRefunded
	if err := s.store.Put(ctx, e); err != nil {
		return Escrow{}, err
	}
	s.metrics.IncrementTransition(e.Status.String())
	s.emit(ctx, audit.ActionEscrowRefunded, e, 0, "")
	return e, nil
}

// Read accessors.

func (s *Service) Get(ctx context.Context, addr ledger.Address) (Escrow, error) {
	return s.store.Get(ctx, addr)
}

func (s *Service) ListByParty(ctx context.Context, party ledger.Address) ([]Escrow, error) {
	return s.store.ListByParty(ctx, party)
}

func stateMismatch(got, want Status) error {
	return domainerrors.New(domainerrors.CodeEscrowNotInExpectedState,
		"escrow is "+got.String()+", expected "+want.String())
}

func (s *Service) emit(ctx context.Context, action audit.Action, e Escrow, amount uint64, reason string) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Emit(ctx, audit.Event{
		Action:    action,
		Actor:     requestcontext.Actor(ctx),
		Subject:   e.Address.String(),
		Amount:    amount,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	})
}
