package registry

import (
	"context"
	"errors"
	"time"

	"custodia/internal/ledger"
	"custodia/internal/registry/metrics"
	domainerrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/audit"
	"custodia/pkg/platform/audit/publisher"
	"custodia/pkg/platform/sentinel"
	"custodia/pkg/requestcontext"
)

// Service owns asset lifecycle and mint provisioning. Token movement and the
// hook binding live on the ledger; the service keeps the records that describe
// them.
type Service struct {
	store   Store
	tokens  *ledger.TokenLedger
	hook    ledger.Authorizer
	metrics *metrics.Metrics
	auditor *publisher.Publisher
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics attaches registry metrics.
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

// NewService wires the registry over its store and the token ledger. hook is
// the compliance gate bound to newly created mints.
func NewService(store Store, tokens *ledger.TokenLedger, hook ledger.Authorizer, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tokens: tokens,
		hook:   hook,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize creates the singleton registry configuration.
func (s *Service) Initialize(ctx context.Context, authority ledger.Address, platformFeeBps uint16) (Config, error) {
	if authority.IsZero() {
		return Config{}, domainerrors.NewField("authority", "authority is required")
	}
	if platformFeeBps > 10_000 {
		return Config{}, domainerrors.NewField("platform_fee_bps", "fee cannot exceed 10000 basis points")
	}
	if _, err := s.store.GetConfig(ctx); err == nil {
		return Config{}, domainerrors.New(domainerrors.CodeConflict, "registry already initialized")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return Config{}, err
	}

	cfg := Config{Authority: authority, PlatformFeeBps: platformFeeBps}
	if err := s.store.SaveConfig(ctx, cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// RegisterAssetParams describes a new asset registration.
type RegisterAssetParams struct {
	Authority   ledger.Address
	Mint        ledger.Address
	Name        string
	Type        AssetType
	TotalValue  uint64
	TotalSupply uint64
	MetadataURI string
}

// RegisterAsset creates an asset record in Pending. The mint reference is
// conventionally one provisioned via CreateTokenMint but registration does
// not require the mint to exist yet.
func (s *Service) RegisterAsset(ctx context.Context, p RegisterAssetParams) (Asset, error) {
	if p.Authority.IsZero() {
		return Asset{}, domainerrors.NewField("authority", "authority is required")
	}
	if p.Mint.IsZero() {
		return Asset{}, domainerrors.NewField("mint", "mint address is required")
	}
	if p.Name == "" || len(p.Name) > MaxAssetName {
		return Asset{}, domainerrors.NewField("name", "name must be 1-64 bytes")
	}
	if len(p.MetadataURI) > MaxAssetURI {
		return Asset{}, domainerrors.NewField("metadata_uri", "uri exceeds 256 bytes")
	}
	if p.TotalValue == 0 {
		return Asset{}, domainerrors.NewField("total_value", "value must be positive")
	}
	if p.TotalSupply == 0 {
		return Asset{}, domainerrors.NewField("total_supply", "supply must be positive")
	}
	if _, err := s.store.GetAsset(ctx, p.Mint); err == nil {
		return Asset{}, domainerrors.New(domainerrors.CodeConflict, "asset already registered for this mint")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return Asset{}, err
	}

	now := s.now()
	asset := Asset{
		Authority:   p.Authority,
		Mint:        p.Mint,
		Name:        p.Name,
		Type:        p.Type,
		TotalValue:  p.TotalValue,
		TotalSupply: p.TotalSupply,
		MetadataURI: p.MetadataURI,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.PutAsset(ctx, asset); err != nil {
		return Asset{}, err
	}

	if cfg, err := s.store.GetConfig(ctx); err == nil {
		cfg.TotalAssets++
		if err := s.store.SaveConfig(ctx, cfg); err != nil {
			return Asset{}, err
		}
	}

	s.metrics.IncrementTransition(StatusPending.String())
	s.emit(ctx, audit.ActionAssetRegistered, p.Mint.String(), p.TotalValue, p.Name)
	return asset, nil
}

// UpdateAssetParams carries a partial asset update. Nil fields keep their
// current value.
type UpdateAssetParams struct {
	MetadataURI *string
	TotalValue  *uint64
}

// UpdateAsset applies a partial metadata/valuation update. Burned assets are
// immutable tombstones.
func (s *Service) UpdateAsset(ctx context.Context, authority, mint ledger.Address, p UpdateAssetParams) (Asset, error) {
	asset, err := s.ownedAsset(ctx, authority, mint)
	if err != nil {
		return Asset{}, err
	}
	if asset.Status == StatusBurned {
		return Asset{}, domainerrors.New(domainerrors.CodeInvalidState, "burned assets are immutable")
	}
	if p.MetadataURI != nil {
		if len(*p.MetadataURI) > MaxAssetURI {
			return Asset{}, domainerrors.NewField("metadata_uri", "uri exceeds 256 bytes")
		}
		asset.MetadataURI = *p.MetadataURI
	}
	if p.TotalValue != nil {
		if *p.TotalValue == 0 {
			return Asset{}, domainerrors.NewField("total_value", "value must be positive")
		}
		asset.TotalValue = *p.TotalValue
	}
	asset.UpdatedAt = s.now()
	if err := s.store.PutAsset(ctx, asset); err != nil {
		return Asset{}, err
	}
	s.emit(ctx, audit.ActionAssetUpdated, mint.String(), asset.TotalValue, "")
	return asset, nil
}

// ActivateAsset transitions Pending to Active.
func (s *Service) ActivateAsset(ctx context.Context, authority, mint ledger.Address) (Asset, error) {
	return s.transition(ctx, authority, mint, StatusActive, audit.ActionAssetActivated, StatusPending)
}

// FreezeAsset pauses trading of one asset, Active to Frozen.
func (s *Service) FreezeAsset(ctx context.Context, authority, mint ledger.Address) (Asset, error) {
	return s.transition(ctx, authority, mint, StatusFrozen, audit.ActionAssetFrozen, StatusActive)
}

// UnfreezeAsset resumes trading, Frozen to Active.
func (s *Service) UnfreezeAsset(ctx context.Context, authority, mint ledger.Address) (Asset, error) {
	return s.transition(ctx, authority, mint, StatusActive, audit.ActionAssetUnfrozen, StatusFrozen)
}

// BurnAsset retires an asset permanently. Valid from Active or Frozen; the
// record stays as a tombstone.
func (s *Service) BurnAsset(ctx context.Context, authority, mint ledger.Address) (Asset, error) {
	return s.transition(ctx, authority, mint, StatusBurned, audit.ActionAssetBurned, StatusActive, StatusFrozen)
}

func (s *Service) transition(ctx context.Context, authority, mint ledger.Address,
	to AssetStatus, action audit.Action, from ...AssetStatus) (Asset, error) {

	asset, err := s.ownedAsset(ctx, authority, mint)
	if err != nil {
		return Asset{}, err
	}
	valid := false
	for _, st := range from {
		if asset.Status == st {
			valid = true
			break
		}
	}
	if !valid {
		return Asset{}, domainerrors.New(domainerrors.CodeInvalidState,
			"asset is "+asset.Status.String()+", cannot become "+to.String())
	}

	asset.Status = to
	asset.UpdatedAt = s.now()
	if err := s.store.PutAsset(ctx, asset); err != nil {
		return Asset{}, err
	}
	s.metrics.IncrementTransition(to.String())
	s.emit(ctx, action, mint.String(), 0, "")
	return asset, nil
}

// CreateTokenMintParams describes a new compliance-gated token mint.
type CreateTokenMintParams struct {
	Authority         ledger.Address
	PermanentDelegate ledger.Address
	Name              string
	Symbol            string
	URI               string
	Decimals          uint8
	BindTransferHook  bool
}

// CreateTokenMint provisions a mint on the ledger and records its
// configuration. When BindTransferHook is set the compliance gate is bound
// at creation; the binding can never be removed afterwards.
func (s *Service) CreateTokenMint(ctx context.Context, p CreateTokenMintParams) (MintConfig, error) {
	if p.Authority.IsZero() {
		return MintConfig{}, domainerrors.NewField("authority", "authority is required")
	}
	if p.Name == "" || len(p.Name) > MaxMintName {
		return MintConfig{}, domainerrors.NewField("name", "name must be 1-32 bytes")
	}
	if p.Symbol == "" || len(p.Symbol) > MaxMintSymbol {
		return MintConfig{}, domainerrors.NewField("symbol", "symbol must be 1-10 bytes")
	}
	if len(p.URI) > MaxMintURI {
		return MintConfig{}, domainerrors.NewField("uri", "uri exceeds 200 bytes")
	}

	mint := NewMintAddress(p.Authority, p.Name)
	if _, err := s.store.GetMintConfig(ctx, mint); err == nil {
		return MintConfig{}, domainerrors.New(domainerrors.CodeConflict, "mint already exists for this authority and name")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return MintConfig{}, err
	}

	if err := s.tokens.CreateMint(mint, p.Decimals); err != nil {
		return MintConfig{}, err
	}
	if p.BindTransferHook {
		if err := s.tokens.BindTransferHook(mint, s.hook); err != nil {
			return MintConfig{}, err
		}
	}

	cfg := MintConfig{
		Mint:              mint,
		Authority:         p.Authority,
		PermanentDelegate: p.PermanentDelegate,
		TransferHook:      p.BindTransferHook,
		Name:              p.Name,
		Symbol:            p.Symbol,
		URI:               p.URI,
		Decimals:          p.Decimals,
		CreatedAt:         s.now(),
	}
	if err := s.store.PutMintConfig(ctx, cfg); err != nil {
		return MintConfig{}, err
	}

	s.metrics.IncrementMintsCreated()
	s.emit(ctx, audit.ActionMintCreated, mint.String(), 0, p.Symbol)
	return cfg, nil
}

// SetTransferHook binds the compliance gate to a mint that was created
// without one. Once bound the hook is permanent; a second call fails.
func (s *Service) SetTransferHook(ctx context.Context, authority, mint ledger.Address) (MintConfig, error) {
	cfg, err := s.ownedMint(ctx, authority, mint)
	if err != nil {
		return MintConfig{}, err
	}
	if cfg.TransferHook {
		return MintConfig{}, domainerrors.New(domainerrors.CodeHookBound, "transfer hook binding is immutable")
	}
	if err := s.tokens.BindTransferHook(mint, s.hook); err != nil {
		return MintConfig{}, err
	}
	cfg.TransferHook = true
	if err := s.store.PutMintConfig(ctx, cfg); err != nil {
		return MintConfig{}, err
	}
	return cfg, nil
}

// FreezeMint halts all movement of a mint's tokens at the ledger level.
func (s *Service) FreezeMint(ctx context.Context, authority, mint ledger.Address) (MintConfig, error) {
	return s.setMintFrozen(ctx, authority, mint, true, audit.ActionMintFrozen)
}

// UnfreezeMint resumes movement.
func (s *Service) UnfreezeMint(ctx context.Context, authority, mint ledger.Address) (MintConfig, error) {
	return s.setMintFrozen(ctx, authority, mint, false, audit.ActionMintUnfrozen)
}

func (s *Service) setMintFrozen(ctx context.Context, authority, mint ledger.Address, frozen bool, action audit.Action) (MintConfig, error) {
	cfg, err := s.ownedMint(ctx, authority, mint)
	if err != nil {
		return MintConfig{}, err
	}
	if cfg.Frozen == frozen {
		return MintConfig{}, domainerrors.New(domainerrors.CodeInvalidState, "mint is already in the requested state")
	}
	if err := s.tokens.SetMintFrozen(mint, frozen); err != nil {
		return MintConfig{}, err
	}
	cfg.Frozen = frozen
	if err := s.store.PutMintConfig(ctx, cfg); err != nil {
		return MintConfig{}, err
	}
	s.emit(ctx, action, mint.String(), 0, "")
	return cfg, nil
}

// MintTokens issues tokens to a destination account. Authority-only;
// rejected while the mint is frozen.
func (s *Service) MintTokens(ctx context.Context, authority, mint, destination ledger.Address, amount uint64) error {
	if amount == 0 {
		return domainerrors.NewField("amount", "amount must be positive")
	}
	if destination.IsZero() {
		return domainerrors.NewField("destination", "destination is required")
	}
	cfg, err := s.ownedMint(ctx, authority, mint)
	if err != nil {
		return err
	}
	if cfg.Frozen {
		return domainerrors.New(domainerrors.CodeMintFrozen, "mint is frozen")
	}

	err = s.tokens.Atomic(ctx, func(tx *ledger.Txn) error {
		return tx.Mint(mint, destination, amount)
	})
	if err != nil {
		return err
	}
	s.metrics.AddTokensMinted(mint.String(), amount)
	s.emit(ctx, audit.ActionTokensMinted, mint.String(), amount, destination.String())
	return nil
}

// Read accessors.

func (s *Service) GetConfig(ctx context.Context) (Config, error) {
	return s.store.GetConfig(ctx)
}

func (s *Service) GetAsset(ctx context.Context, mint ledger.Address) (Asset, error) {
	return s.store.GetAsset(ctx, mint)
}

func (s *Service) ListAssets(ctx context.Context, filter AssetFilter) ([]Asset, error) {
	return s.store.ListAssets(ctx, filter)
}

func (s *Service) GetMintConfig(ctx context.Context, mint ledger.Address) (MintConfig, error) {
	return s.store.GetMintConfig(ctx, mint)
}

func (s *Service) ListMintConfigs(ctx context.Context) ([]MintConfig, error) {
	return s.store.ListMintConfigs(ctx)
}

func (s *Service) ownedAsset(ctx context.Context, authority, mint ledger.Address) (Asset, error) {
	asset, err := s.store.GetAsset(ctx, mint)
	if err != nil {
		return Asset{}, err
	}
	if authority != asset.Authority {
		return Asset{}, domainerrors.New(domainerrors.CodeUnauthorized, "caller is not the asset authority")
	}
	return asset, nil
}

func (s *Service) ownedMint(ctx context.Context, authority, mint ledger.Address) (MintConfig, error) {
	cfg, err := s.store.GetMintConfig(ctx, mint)
	if err != nil {
		return MintConfig{}, err
	}
	if authority != cfg.Authority {
		return MintConfig{}, domainerrors.New(domainerrors.CodeUnauthorized, "caller is not the mint authority")
	}
	return cfg, nil
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
