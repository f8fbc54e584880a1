package compliance

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"custodia/internal/compliance/metrics"
	"custodia/internal/ledger"
	domainerrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/audit"
	"custodia/pkg/platform/audit/publisher"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

// Invalidator is implemented by caching PartyReaders so list mutations can
// evict stale entries.
type Invalidator interface {
	InvalidateParty(ctx context.Context, addr ledger.Address)
}

// Service orchestrates compliance state and implements ledger.Authorizer as
// the transfer hook. Rule evaluation itself lives in Check; the service loads
// state, runs the chain, and records the outcome.
type Service struct {
	store   Store
	parties PartyReader
	metrics *metrics.Metrics
	auditor *publisher.Publisher
	tracer  trace.Tracer
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPartyReader routes authorization-path reads through a cache.
func WithPartyReader(r PartyReader) Option {
	return func(s *Service) { s.parties = r }
}

// WithMetrics attaches compliance metrics.
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

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tracer: otel.Tracer("custodia/compliance"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.parties == nil {
		s.parties = store
	}
	return s
}

// InitializeParams seeds the engine configuration.
type InitializeParams struct {
	Authority         ledger.Address
	Gatekeeper        ledger.Address
	MaxTransferAmount uint64
	Cooldown          time.Duration
	Paused            bool
}

// Initialize creates the singleton configuration. It fails with a conflict
// once a configuration exists.
func (s *Service) Initialize(ctx context.Context, p InitializeParams) (Config, error) {
	if p.Authority.IsZero() {
		return Config{}, domainerrors.NewField("authority", "authority is required")
	}
	if _, err := s.store.GetConfig(ctx); err == nil {
		return Config{}, domainerrors.New(domainerrors.CodeConflict, "compliance engine already initialized")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return Config{}, err
	}

	cfg := Config{
		Authority:         p.Authority,
		Gatekeeper:        p.Gatekeeper,
		MaxTransferAmount: p.MaxTransferAmount,
		Cooldown:          p.Cooldown,
		Paused:            p.Paused,
	}
	if err := s.store.SaveConfig(ctx, cfg); err != nil {
		return Config{}, err
	}
	s.emit(ctx, audit.ActionComplianceInitialized, p.Authority.String(), 0, "")
	return cfg, nil
}

// AddToWhitelistParams approves one investor.
type AddToWhitelistParams struct {
	Authority    ledger.Address
	Investor     ledger.Address
	Type         InvestorType
	Jurisdiction string
	KYCVerified  bool
	KYCExpiry    time.Time
}

// AddToWhitelist creates or reactivates an investor's whitelist entry. A
// reactivated entry keeps its original AddedAt and transfer history.
func (s *Service) AddToWhitelist(ctx context.Context, p AddToWhitelistParams) (WhitelistEntry, error) {
	cfg, err := s.requireAuthority(ctx, p.Authority)
	if err != nil {
		return WhitelistEntry{}, err
	}
	if p.Investor.IsZero() {
		return WhitelistEntry{}, domainerrors.NewField("investor", "investor address is required")
	}
	if len(p.Jurisdiction) != 2 {
		return WhitelistEntry{}, domainerrors.NewField("jurisdiction", "jurisdiction must be an ISO 3166-1 alpha-2 code")
	}

	now := s.now()
	entry := WhitelistEntry{
		Investor:     p.Investor,
		Type:         p.Type,
		Jurisdiction: p.Jurisdiction,
		KYCVerified:  p.KYCVerified,
		KYCExpiry:    p.KYCExpiry,
		AddedAt:      now,
		Active:       true,
	}
	if prev, err := s.store.GetWhitelist(ctx, p.Investor); err == nil {
		if prev.Active {
			return WhitelistEntry{}, domainerrors.New(domainerrors.CodeConflict, "investor is already whitelisted")
		}
		entry.AddedAt = prev.AddedAt
		entry.LastTransfer = prev.LastTransfer
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return WhitelistEntry{}, err
	}

	if err := s.store.PutWhitelist(ctx, entry); err != nil {
		return WhitelistEntry{}, err
	}
	cfg.TotalWhitelisted++
	if err := s.store.SaveConfig(ctx, cfg); err != nil {
		return WhitelistEntry{}, err
	}

	s.invalidate(ctx, p.Investor)
	s.metrics.IncrementListMutation("whitelist", "add")
	s.metrics.SetWhitelistSize(cfg.TotalWhitelisted)
	s.emit(ctx, audit.ActionWhitelistAdded, p.Investor.String(), 0, p.Jurisdiction)
	return entry, nil
}

// RemoveFromWhitelist soft-deletes an investor's entry. The record stays for
// audit and cooldown history; the active counter saturates at zero.
func (s *Service) RemoveFromWhitelist(ctx context.Context, authority, investor ledger.Address) error {
	cfg, err := s.requireAuthority(ctx, authority)
	if err != nil {
		return err
	}
	entry, err := s.store.GetWhitelist(ctx, investor)
	if err != nil {
		return err
	}
	if !entry.Active {
		return domainerrors.New(domainerrors.CodeInvalidState, "investor is not actively whitelisted")
	}

	entry.Active = false
	if err := s.store.PutWhitelist(ctx, entry); err != nil {
		return err
	}
	if cfg.TotalWhitelisted > 0 {
		cfg.TotalWhitelisted--
	}
	if err := s.store.SaveConfig(ctx, cfg); err != nil {
		return err
	}

	s.invalidate(ctx, investor)
	s.metrics.IncrementListMutation("whitelist", "remove")
	s.metrics.SetWhitelistSize(cfg.TotalWhitelisted)
	s.emit(ctx, audit.ActionWhitelistRemoved, investor.String(), 0, "")
	return nil
}

// AddToBlacklist bars an address outright. Blacklisting does not touch any
// whitelist entry; the rule chain lets the blacklist dominate.
func (s *Service) AddToBlacklist(ctx context.Context, authority, addr ledger.Address, reason string) (BlacklistEntry, error) {
	cfg, err := s.requireAuthority(ctx, authority)
	if err != nil {
		return BlacklistEntry{}, err
	}
	if addr.IsZero() {
		return BlacklistEntry{}, domainerrors.NewField("address", "address is required")
	}
	if len(reason) > MaxBlacklistReason {
		return BlacklistEntry{}, domainerrors.NewField("reason", "reason exceeds maximum length")
	}

	entry := BlacklistEntry{
		Address: addr,
		Reason:  reason,
		AddedBy: authority,
		AddedAt: s.now(),
		Active:  true,
	}
	if prev, err := s.store.GetBlacklist(ctx, addr); err == nil {
		if prev.Active {
			return BlacklistEntry{}, domainerrors.New(domainerrors.CodeConflict, "address is already blacklisted")
		}
		entry.AddedAt = prev.AddedAt
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return BlacklistEntry{}, err
	}

	if err := s.store.PutBlacklist(ctx, entry); err != nil {
		return BlacklistEntry{}, err
	}
	cfg.TotalBlacklisted++
	if err := s.store.SaveConfig(ctx, cfg); err != nil {
		return BlacklistEntry{}, err
	}

	s.invalidate(ctx, addr)
	s.metrics.IncrementListMutation("blacklist", "add")
	s.emit(ctx, audit.ActionBlacklistAdded, addr.String(), 0, reason)
	return entry, nil
}

// RemoveFromBlacklist soft-deletes a blacklist entry.
func (s *Service) RemoveFromBlacklist(ctx context.Context, authority, addr ledger.Address) error {
	cfg, err := s.requireAuthority(ctx, authority)
	if err != nil {
		return err
	}
	entry, err := s.store.GetBlacklist(ctx, addr)
	if err != nil {
		return err
	}
	if !entry.Active {
		return domainerrors.New(domainerrors.CodeInvalidState, "address is not actively blacklisted")
	}

	entry.Active = false
	if err := s.store.PutBlacklist(ctx, entry); err != nil {
		return err
	}
	if cfg.TotalBlacklisted > 0 {
		cfg.TotalBlacklisted--
	}
	if err := s.store.SaveConfig(ctx, cfg); err != nil {
		return err
	}

	s.invalidate(ctx, addr)
	s.metrics.IncrementListMutation("blacklist", "remove")
	s.emit(ctx, audit.ActionBlacklistRemoved, addr.String(), 0, "")
	return nil
}

// AddJurisdictionRule creates or replaces the rule for an ordered pair.
// Rules are directional: (US, CN) does not constrain (CN, US).
func (s *Service) AddJurisdictionRule(ctx context.Context, authority ledger.Address, rule JurisdictionRule) (JurisdictionRule, error) {
	if _, err := s.requireAuthority(ctx, authority); err != nil {
		return JurisdictionRule{}, err
	}
	if len(rule.From) != 2 || len(rule.To) != 2 {
		return JurisdictionRule{}, domainerrors.NewField("jurisdiction", "jurisdictions must be ISO 3166-1 alpha-2 codes")
	}

	rule.CreatedAt = s.now()
	if err := s.store.PutRule(ctx, rule); err != nil {
		return JurisdictionRule{}, err
	}
	s.emit(ctx, audit.ActionJurisdictionRuleAdded, rule.From+"->"+rule.To, 0, "")
	return rule, nil
}

// UpdateConfigParams carries a partial configuration update. Nil fields keep
// their current value.
type UpdateConfigParams struct {
	MaxTransferAmount *uint64
	Cooldown          *time.Duration
	Paused            *bool
	Gatekeeper        *ledger.Address
}

// UpdateConfig applies a partial update to the engine configuration.
func (s *Service) UpdateConfig(ctx context.Context, authority ledger.Address, p UpdateConfigParams) (Config, error) {
	cfg, err := s.requireAuthority(ctx, authority)
	if err != nil {
		return Config{}, err
	}
	if p.MaxTransferAmount != nil {
		cfg.MaxTransferAmount = *p.MaxTransferAmount
	}
	if p.Cooldown != nil {
		cfg.Cooldown = *p.Cooldown
	}
	if p.Paused != nil {
		cfg.Paused = *p.Paused
	}
	if p.Gatekeeper != nil {
		cfg.Gatekeeper = *p.Gatekeeper
	}
	if err := s.store.SaveConfig(ctx, cfg); err != nil {
		return Config{}, err
	}
	s.emit(ctx, audit.ActionConfigUpdated, authority.String(), 0, "")
	return cfg, nil
}

// RenewKYC extends an investor's KYC by one validity period from now. Only
// the configured gatekeeper may call it, after its own external verification.
func (s *Service) RenewKYC(ctx context.Context, gatekeeper, investor ledger.Address) (WhitelistEntry, error) {
	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return WhitelistEntry{}, err
	}
	if cfg.Gatekeeper.IsZero() || gatekeeper != cfg.Gatekeeper {
		return WhitelistEntry{}, domainerrors.New(domainerrors.CodeUnauthorized, "caller is not the KYC gatekeeper")
	}
	entry, err := s.store.GetWhitelist(ctx, investor)
	if err != nil {
		return WhitelistEntry{}, err
	}
	if !entry.Active {
		return WhitelistEntry{}, domainerrors.New(domainerrors.CodeInvalidState, "investor is not actively whitelisted")
	}

	entry.KYCVerified = true
	entry.KYCExpiry = s.now().Add(KYCRenewalValidity)
	if err := s.store.PutWhitelist(ctx, entry); err != nil {
		return WhitelistEntry{}, err
	}

	s.invalidate(ctx, investor)
	s.emit(ctx, audit.ActionKYCRenewed, investor.String(), 0, "")
	return entry, nil
}

// AuthorizeTransfer is the ledger transfer hook. It loads party state, runs
// the rule chain, and on success stamps the sender's cooldown timestamp.
func (s *Service) AuthorizeTransfer(ctx context.Context, t ledger.TransferParties) error {
	ctx, span := s.tracer.Start(ctx, "compliance.AuthorizeTransfer",
		trace.WithAttributes(
			attribute.String("mint", t.Mint.String()),
			attribute.Int64("amount", int64(t.Amount)),
		))
	defer span.End()

	start := s.now()
	err := s.authorize(ctx, t)
	s.metrics.ObserveAuthorizeLatency(time.Since(start))

	if err != nil {
		reason := string(domainerrors.CodeOf(err))
		span.SetStatus(codes.Error, reason)
		s.metrics.IncrementOutcome("denied", reason)
		s.emitTransfer(ctx, audit.ActionTransferDenied, t, reason)
		return err
	}
	s.metrics.IncrementOutcome("allowed", "")
	s.emitTransfer(ctx, audit.ActionTransferValidated, t, "")
	return nil
}

func (s *Service) authorize(ctx context.Context, t ledger.TransferParties) error {
	in, err := s.loadCheckInput(ctx, t)
	if err != nil {
		return err
	}
	if err := Check(in); err != nil {
		return err
	}

	// Stamp the cooldown clock for the beneficial sender. Custodial vaults
	// have no whitelist entry and no cooldown.
	if !t.SenderCustodial && in.Sender.Whitelist != nil {
		entry := *in.Sender.Whitelist
		entry.LastTransfer = in.Now
		if err := s.store.PutWhitelist(ctx, entry); err != nil {
			return err
		}
		s.invalidate(ctx, entry.Investor)
	}
	return nil
}

// CheckTransfer is the off-chain pre-check. It runs the same rule chain as
// AuthorizeTransfer against current state but commits nothing: no cooldown
// stamp, no metrics outcome, no audit event.
func (s *Service) CheckTransfer(ctx context.Context, t ledger.TransferParties) error {
	in, err := s.loadCheckInput(ctx, t)
	if err != nil {
		return err
	}
	return Check(in)
}

func (s *Service) loadCheckInput(ctx context.Context, t ledger.TransferParties) (CheckInput, error) {
	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return CheckInput{}, err
	}
	in := CheckInput{
		Now:      s.now(),
		Config:   cfg,
		Amount:   t.Amount,
		Sender:   PartyState{Custodial: t.SenderCustodial},
		Receiver: PartyState{Custodial: t.ReceiverCustodial},
	}

	if !t.SenderCustodial {
		if err := s.loadParty(ctx, t.Sender, &in.Sender); err != nil {
			return CheckInput{}, err
		}
	}
	if !t.ReceiverCustodial {
		if err := s.loadParty(ctx, t.Receiver, &in.Receiver); err != nil {
			return CheckInput{}, err
		}
	}

	if in.Sender.Whitelist != nil && in.Receiver.Whitelist != nil {
		rule, err := s.store.GetRule(ctx, in.Sender.Whitelist.Jurisdiction, in.Receiver.Whitelist.Jurisdiction)
		switch {
		case err == nil:
			in.Rule = &rule
		case errors.Is(err, sentinel.ErrNotFound):
			// no rule means default-allow
		default:
			return CheckInput{}, err
		}
	}
	return in, nil
}

func (s *Service) loadParty(ctx context.Context, addr ledger.Address, p *PartyState) error {
	wl, err := s.parties.GetWhitelist(ctx, addr)
	switch {
	case err == nil:
		p.Whitelist = &wl
	case errors.Is(err, sentinel.ErrNotFound):
	default:
		return err
	}
	bl, err := s.parties.GetBlacklist(ctx, addr)
	switch {
	case err == nil:
		p.Blacklist = &bl
	case errors.Is(err, sentinel.ErrNotFound):
	default:
		return err
	}
	return nil
}

// Read accessors.

func (s *Service) GetConfig(ctx context.Context) (Config, error) {
	return s.store.GetConfig(ctx)
}

func (s *Service) GetWhitelistEntry(ctx context.Context, investor ledger.Address) (WhitelistEntry, error) {
	return s.store.GetWhitelist(ctx, investor)
}

func (s *Service) ListWhitelist(ctx context.Context) ([]WhitelistEntry, error) {
	return s.store.ListWhitelist(ctx)
}

func (s *Service) GetBlacklistEntry(ctx context.Context, addr ledger.Address) (BlacklistEntry, error) {
	return s.store.GetBlacklist(ctx, addr)
}

func (s *Service) ListBlacklist(ctx context.Context) ([]BlacklistEntry, error) {
	return s.store.ListBlacklist(ctx)
}

func (s *Service) GetRule(ctx context.Context, from, to string) (JurisdictionRule, error) {
	return s.store.GetRule(ctx, from, to)
}

func (s *Service) ListRules(ctx context.Context) ([]JurisdictionRule, error) {
	return s.store.ListRules(ctx)
}

func (s *Service) requireAuthority(ctx context.Context, caller ledger.Address) (Config, error) {
	cfg, err := s.store.GetConfig(ctx)
	if err != nil {
		return Config{}, err
	}
	if caller != cfg.Authority {
		return Config{}, domainerrors.New(domainerrors.CodeUnauthorized, "caller is not the compliance authority")
	}
	return cfg, nil
}

func (s *Service) invalidate(ctx context.Context, addr ledger.Address) {
	if inv, ok := s.parties.(Invalidator); ok {
		inv.InvalidateParty(ctx, addr)
	}
}

func (s *Service) emit(ctx context.Context, action audit.Action, subject string, amount uint64, reason string) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Emit(ctx, audit.Event{
		Action:    action,
		Actor:     requestcontext.Actor(ctx),
		Subject:   subject,
		Amount:    amount,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	})
}

func (s *Service) emitTransfer(ctx context.Context, action audit.Action, t ledger.TransferParties, reason string) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Emit(ctx, audit.Event{
		Action:    action,
		Actor:     t.Sender.String(),
		Subject:   t.Receiver.String(),
		Amount:    t.Amount,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	})
}
