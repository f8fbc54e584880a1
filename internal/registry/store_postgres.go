package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"custodia/internal/ledger"
	"custodia/pkg/platform/sentinel"
)

// PostgresStore persists registry records in PostgreSQL via pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed registry store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the registry tables when they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS registry_config (
			singleton        BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
			authority        TEXT NOT NULL,
			platform_fee_bps SMALLINT NOT NULL,
			total_assets     BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS registry_assets (
			mint         TEXT PRIMARY KEY,
			authority    TEXT NOT NULL,
			name         TEXT NOT NULL,
			asset_type   SMALLINT NOT NULL,
			total_value  BIGINT NOT NULL,
			total_supply BIGINT NOT NULL,
			metadata_uri TEXT NOT NULL,
			status       SMALLINT NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS registry_assets_authority_idx ON registry_assets (authority)`,
		`CREATE TABLE IF NOT EXISTS registry_mint_configs (
			mint               TEXT PRIMARY KEY,
			authority          TEXT NOT NULL,
			permanent_delegate TEXT NOT NULL DEFAULT '',
			transfer_hook      BOOLEAN NOT NULL,
			name               TEXT NOT NULL,
			symbol             TEXT NOT NULL,
			uri                TEXT NOT NULL,
			decimals           SMALLINT NOT NULL,
			frozen             BOOLEAN NOT NULL,
			created_at         TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate registry schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveConfig(ctx context.Context, cfg Config) error {
	query := `
		INSERT INTO registry_config (singleton, authority, platform_fee_bps, total_assets)
		VALUES (TRUE, $1, $2, $3)
		ON CONFLICT (singleton) DO UPDATE SET
			authority = EXCLUDED.authority,
			platform_fee_bps = EXCLUDED.platform_fee_bps,
			total_assets = EXCLUDED.total_assets
	`
	if _, err := s.pool.Exec(ctx, query,
		cfg.Authority.String(), int16(cfg.PlatformFeeBps), int64(cfg.TotalAssets)); err != nil {
		return fmt.Errorf("save registry config: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetConfig(ctx context.Context) (Config, error) {
	var (
		cfg       Config
		authority string
		feeBps    int16
		total     int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT authority, platform_fee_bps, total_assets FROM registry_config`).
		Scan(&authority, &feeBps, &total)
	if errors.Is(err, pgx.ErrNoRows) {
		return Config{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Config{}, fmt.Errorf("get registry config: %w", err)
	}
	cfg.Authority = ledger.Address(authority)
	cfg.PlatformFeeBps = uint16(feeBps)
	cfg.TotalAssets = uint64(total)
	return cfg, nil
}

func (s *PostgresStore) PutAsset(ctx context.Context, asset Asset) error {
	query := `
		INSERT INTO registry_assets
			(mint, authority, name, asset_type, total_value, total_supply, metadata_uri, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (mint) DO UPDATE SET
			name = EXCLUDED.name,
			asset_type = EXCLUDED.asset_type,
			total_value = EXCLUDED.total_value,
			total_supply = EXCLUDED.total_supply,
			metadata_uri = EXCLUDED.metadata_uri,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.pool.Exec(ctx, query,
		asset.Mint.String(), asset.Authority.String(), asset.Name, int16(asset.Type),
		int64(asset.TotalValue), int64(asset.TotalSupply), asset.MetadataURI,
		int16(asset.Status), asset.CreatedAt, asset.UpdatedAt); err != nil {
		return fmt.Errorf("put asset: %w", err)
	}
	return nil
}

const assetColumns = `mint, authority, name, asset_type, total_value, total_supply, metadata_uri, status, created_at, updated_at`

func (s *PostgresStore) GetAsset(ctx context.Context, mint ledger.Address) (Asset, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+assetColumns+` FROM registry_assets WHERE mint = $1`, mint.String())
	asset, err := scanAsset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Asset{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Asset{}, fmt.Errorf("get asset: %w", err)
	}
	return asset, nil
}

func (s *PostgresStore) ListAssets(ctx context.Context, filter AssetFilter) ([]Asset, error) {
	var (
		clauses []string
		args    []any
	)
	if !filter.Authority.IsZero() {
		args = append(args, filter.Authority.String())
		clauses = append(clauses, fmt.Sprintf("authority = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, int16(*filter.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Type != nil {
		args = append(args, int16(*filter.Type))
		clauses = append(clauses, fmt.Sprintf("asset_type = $%d", len(args)))
	}
	query := `SELECT ` + assetColumns + ` FROM registry_assets`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("list assets: %w", err)
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

func (s *PostgresStore) PutMintConfig(ctx context.Context, cfg MintConfig) error {
	query := `
		INSERT INTO registry_mint_configs
			(mint, authority, permanent_delegate, transfer_hook, name, symbol, uri, decimals, frozen, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (mint) DO UPDATE SET
			transfer_hook = EXCLUDED.transfer_hook,
			frozen = EXCLUDED.frozen
	`
	if _, err := s.pool.Exec(ctx, query,
		cfg.Mint.String(), cfg.Authority.String(), cfg.PermanentDelegate.String(),
		cfg.TransferHook, cfg.Name, cfg.Symbol, cfg.URI,
		int16(cfg.Decimals), cfg.Frozen, cfg.CreatedAt); err != nil {
		return fmt.Errorf("put mint config: %w", err)
	}
	return nil
}

const mintColumns = `mint, authority, permanent_delegate, transfer_hook, name, symbol, uri, decimals, frozen, created_at`

func (s *PostgresStore) GetMintConfig(ctx context.Context, mint ledger.Address) (MintConfig, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+mintColumns+` FROM registry_mint_configs WHERE mint = $1`, mint.String())
	cfg, err := scanMintConfig(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return MintConfig{}, sentinel.ErrNotFound
	}
	if err != nil {
		return MintConfig{}, fmt.Errorf("get mint config: %w", err)
	}
	return cfg, nil
}

func (s *PostgresStore) ListMintConfigs(ctx context.Context) ([]MintConfig, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+mintColumns+` FROM registry_mint_configs ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list mint configs: %w", err)
	}
	defer rows.Close()

	var configs []MintConfig
	for rows.Next() {
		cfg, err := scanMintConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("list mint configs: %w", err)
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

func scanAsset(row pgx.Row) (Asset, error) {
	var (
		asset            Asset
		mint, auth       string
		assetType, state int16
		value, supply    int64
		created, updated time.Time
	)
	err := row.Scan(&mint, &auth, &asset.Name, &assetType, &value, &supply,
		&asset.MetadataURI, &state, &created, &updated)
	if err != nil {
		return Asset{}, err
	}
	asset.Mint = ledger.Address(mint)
	asset.Authority = ledger.Address(auth)
	asset.Type = AssetType(assetType)
	asset.TotalValue = uint64(value)
	asset.TotalSupply = uint64(supply)
	asset.Status = AssetStatus(state)
	asset.CreatedAt = created
	asset.UpdatedAt = updated
	return asset, nil
}

func scanMintConfig(row pgx.Row) (MintConfig, error) {
	var (
		cfg                   MintConfig
		mint, auth, delegate  string
		decimals              int16
	)
	err := row.Scan(&mint, &auth, &delegate, &cfg.TransferHook, &cfg.Name,
		&cfg.Symbol, &cfg.URI, &decimals, &cfg.Frozen, &cfg.CreatedAt)
	if err != nil {
		return MintConfig{}, err
	}
	cfg.Mint = ledger.Address(mint)
	cfg.Authority = ledger.Address(auth)
	cfg.PermanentDelegate = ledger.Address(delegate)
	cfg.Decimals = uint8(decimals)
	return cfg, nil
}
