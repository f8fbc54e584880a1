package compliance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"custodia/internal/ledger"
	"custodia/pkg/platform/sentinel"
)

// PostgresStore persists compliance records in PostgreSQL. It is the
// production Store; the authorization path usually reads through the Redis
// party cache in front of it.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed compliance store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the compliance tables when they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS compliance_config (
			singleton         BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
			authority         TEXT NOT NULL,
			gatekeeper        TEXT NOT NULL DEFAULT '',
			max_transfer      BIGINT NOT NULL,
			cooldown_seconds  BIGINT NOT NULL,
			paused            BOOLEAN NOT NULL,
			total_whitelisted BIGINT NOT NULL,
			total_blacklisted BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS compliance_whitelist (
			investor      TEXT PRIMARY KEY,
			investor_type SMALLINT NOT NULL,
			jurisdiction  CHAR(2) NOT NULL,
			kyc_verified  BOOLEAN NOT NULL,
			kyc_expiry    TIMESTAMPTZ NOT NULL,
			added_at      TIMESTAMPTZ NOT NULL,
			last_transfer TIMESTAMPTZ,
			active        BOOLEAN NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS compliance_blacklist (
			address  TEXT PRIMARY KEY,
			reason   TEXT NOT NULL,
			added_by TEXT NOT NULL,
			added_at TIMESTAMPTZ NOT NULL,
			active   BOOLEAN NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS compliance_jurisdiction_rules (
			from_code  CHAR(2) NOT NULL,
			to_code    CHAR(2) NOT NULL,
			allowed    BOOLEAN NOT NULL,
			max_amount BIGINT,
			created_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (from_code, to_code)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate compliance schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveConfig(ctx context.Context, cfg Config) error {
	query := `
		INSERT INTO compliance_config
			(singleton, authority, gatekeeper, max_transfer, cooldown_seconds, paused, total_whitelisted, total_blacklisted)
		VALUES (TRUE, $1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (singleton) DO UPDATE SET
			authority = EXCLUDED.authority,
			gatekeeper = EXCLUDED.gatekeeper,
			max_transfer = EXCLUDED.max_transfer,
			cooldown_seconds = EXCLUDED.cooldown_seconds,
			paused = EXCLUDED.paused,
			total_whitelisted = EXCLUDED.total_whitelisted,
			total_blacklisted = EXCLUDED.total_blacklisted
	`
	_, err := s.db.ExecContext(ctx, query,
		cfg.Authority.String(), cfg.Gatekeeper.String(),
		int64(cfg.MaxTransferAmount), int64(cfg.Cooldown/time.Second), cfg.Paused,
		int64(cfg.TotalWhitelisted), int64(cfg.TotalBlacklisted))
	if err != nil {
		return fmt.Errorf("save compliance config: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetConfig(ctx context.Context) (Config, error) {
	query := `
		SELECT authority, gatekeeper, max_transfer, cooldown_seconds, paused, total_whitelisted, total_blacklisted
		FROM compliance_config
	`
	var (
		cfg              Config
		authority, gk    string
		maxTransfer      int64
		cooldownSecs     int64
		totalWL, totalBL int64
	)
	err := s.db.QueryRowContext(ctx, query).Scan(
		&authority, &gk, &maxTransfer, &cooldownSecs, &cfg.Paused, &totalWL, &totalBL)
	if errors.Is(err, sql.ErrNoRows) {
		return Config{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Config{}, fmt.Errorf("get compliance config: %w", err)
	}
	cfg.Authority = ledger.Address(authority)
	cfg.Gatekeeper = ledger.Address(gk)
	cfg.MaxTransferAmount = uint64(maxTransfer)
	cfg.Cooldown = time.Duration(cooldownSecs) * time.Second
	cfg.TotalWhitelisted = uint64(totalWL)
	cfg.TotalBlacklisted = uint64(totalBL)
	return cfg, nil
}

func (s *PostgresStore) PutWhitelist(ctx context.Context, entry WhitelistEntry) error {
	query := `
		INSERT INTO compliance_whitelist
			(investor, investor_type, jurisdiction, kyc_verified, kyc_expiry, added_at, last_transfer, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (investor) DO UPDATE SET
			investor_type = EXCLUDED.investor_type,
			jurisdiction = EXCLUDED.jurisdiction,
			kyc_verified = EXCLUDED.kyc_verified,
			kyc_expiry = EXCLUDED.kyc_expiry,
			added_at = EXCLUDED.added_at,
			last_transfer = EXCLUDED.last_transfer,
			active = EXCLUDED.active
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.Investor.String(), int16(entry.Type), entry.Jurisdiction,
		entry.KYCVerified, entry.KYCExpiry, entry.AddedAt,
		nullTime(entry.LastTransfer), entry.Active)
	if err != nil {
		return fmt.Errorf("put whitelist entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetWhitelist(ctx context.Context, investor ledger.Address) (WhitelistEntry, error) {
	query := `
		SELECT investor, investor_type, jurisdiction, kyc_verified, kyc_expiry, added_at, last_transfer, active
		FROM compliance_whitelist
		WHERE investor = $1
	`
	entry, err := scanWhitelist(s.db.QueryRowContext(ctx, query, investor.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return WhitelistEntry{}, sentinel.ErrNotFound
	}
	if err != nil {
		return WhitelistEntry{}, fmt.Errorf("get whitelist entry: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) ListWhitelist(ctx context.Context) ([]WhitelistEntry, error) {
	query := `
		SELECT investor, investor_type, jurisdiction, kyc_verified, kyc_expiry, added_at, last_transfer, active
		FROM compliance_whitelist
		ORDER BY added_at
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list whitelist: %w", err)
	}
	defer rows.Close()

	var entries []WhitelistEntry
	for rows.Next() {
		entry, err := scanWhitelist(rows)
		if err != nil {
			return nil, fmt.Errorf("list whitelist: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) PutBlacklist(ctx context.Context, entry BlacklistEntry) error {
	query := `
		INSERT INTO compliance_blacklist (address, reason, added_by, added_at, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (address) DO UPDATE SET
			reason = EXCLUDED.reason,
			added_by = EXCLUDED.added_by,
			added_at = EXCLUDED.added_at,
			active = EXCLUDED.active
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.Address.String(), entry.Reason, entry.AddedBy.String(), entry.AddedAt, entry.Active)
	if err != nil {
		return fmt.Errorf("put blacklist entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetBlacklist(ctx context.Context, addr ledger.Address) (BlacklistEntry, error) {
	query := `
		SELECT address, reason, added_by, added_at, active
		FROM compliance_blacklist
		WHERE address = $1
	`
	var (
		entry            BlacklistEntry
		address, addedBy string
	)
	err := s.db.QueryRowContext(ctx, query, addr.String()).Scan(
		&address, &entry.Reason, &addedBy, &entry.AddedAt, &entry.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return BlacklistEntry{}, sentinel.ErrNotFound
	}
	if err != nil {
		return BlacklistEntry{}, fmt.Errorf("get blacklist entry: %w", err)
	}
	entry.Address = ledger.Address(address)
	entry.AddedBy = ledger.Address(addedBy)
	return entry, nil
}

func (s *PostgresStore) ListBlacklist(ctx context.Context) ([]BlacklistEntry, error) {
	query := `
		SELECT address, reason, added_by, added_at, active
		FROM compliance_blacklist
		ORDER BY added_at
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list blacklist: %w", err)
	}
	defer rows.Close()

	var entries []BlacklistEntry
	for rows.Next() {
		var (
			entry            BlacklistEntry
			address, addedBy string
		)
		if err := rows.Scan(&address, &entry.Reason, &addedBy, &entry.AddedAt, &entry.Active); err != nil {
			return nil, fmt.Errorf("list blacklist: %w", err)
		}
		entry.Address = ledger.Address(address)
		entry.AddedBy = ledger.Address(addedBy)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) PutRule(ctx context.Context, rule JurisdictionRule) error {
	query := `
		INSERT INTO compliance_jurisdiction_rules (from_code, to_code, allowed, max_amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (from_code, to_code) DO UPDATE SET
			allowed = EXCLUDED.allowed,
			max_amount = EXCLUDED.max_amount,
			created_at = EXCLUDED.created_at
	`
	var maxAmount sql.NullInt64
	if rule.MaxAmount != nil {
		maxAmount = sql.NullInt64{Int64: int64(*rule.MaxAmount), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, query, rule.From, rule.To, rule.Allowed, maxAmount, rule.CreatedAt)
	if err != nil {
		return fmt.Errorf("put jurisdiction rule: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRule(ctx context.Context, from, to string) (JurisdictionRule, error) {
	query := `
		SELECT from_code, to_code, allowed, max_amount, created_at
		FROM compliance_jurisdiction_rules
		WHERE from_code = $1 AND to_code = $2
	`
	rule, err := scanRule(s.db.QueryRowContext(ctx, query, from, to))
	if errors.Is(err, sql.ErrNoRows) {
		return JurisdictionRule{}, sentinel.ErrNotFound
	}
	if err != nil {
		return JurisdictionRule{}, fmt.Errorf("get jurisdiction rule: %w", err)
	}
	return rule, nil
}

func (s *PostgresStore) ListRules(ctx context.Context) ([]JurisdictionRule, error) {
	query := `
		SELECT from_code, to_code, allowed, max_amount, created_at
		FROM compliance_jurisdiction_rules
		ORDER BY from_code, to_code
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list jurisdiction rules: %w", err)
	}
	defer rows.Close()

	var rules []JurisdictionRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("list jurisdiction rules: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWhitelist(row rowScanner) (WhitelistEntry, error) {
	var (
		entry        WhitelistEntry
		investor     string
		investorType int16
		lastTransfer sql.NullTime
	)
	err := row.Scan(&investor, &investorType, &entry.Jurisdiction,
		&entry.KYCVerified, &entry.KYCExpiry, &entry.AddedAt, &lastTransfer, &entry.Active)
	if err != nil {
		return WhitelistEntry{}, err
	}
	entry.Investor = ledger.Address(investor)
	entry.Type = InvestorType(investorType)
	if lastTransfer.Valid {
		entry.LastTransfer = lastTransfer.Time
	}
	return entry, nil
}

func scanRule(row rowScanner) (JurisdictionRule, error) {
	var (
		rule      JurisdictionRule
		maxAmount sql.NullInt64
	)
	err := row.Scan(&rule.From, &rule.To, &rule.Allowed, &maxAmount, &rule.CreatedAt)
	if err != nil {
		return JurisdictionRule{}, err
	}
	if maxAmount.Valid {
		amount := uint64(maxAmount.Int64)
		rule.MaxAmount = &amount
	}
	return rule, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
