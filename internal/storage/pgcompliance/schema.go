package pgcompliance

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS trading_partners (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  edi_id TEXT NOT NULL,
  comm_method TEXT NOT NULL,
  active BOOLEAN NOT NULL DEFAULT TRUE,
  supported_transactions TEXT[] NOT NULL DEFAULT '{}',
  routing_rules JSONB NULL,
  last_connection TIMESTAMPTZ NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  UNIQUE (edi_id)
)`,
		`
CREATE TABLE IF NOT EXISTS outbound_messages (
  id BIGSERIAL PRIMARY KEY,
  transaction_kind TEXT NOT NULL,
  partner_id BIGINT NOT NULL REFERENCES trading_partners(id),
  status TEXT NOT NULL,
  retry_count INT NOT NULL DEFAULT 0,
  priority TEXT NOT NULL DEFAULT 'normal',
  next_attempt_at TIMESTAMPTZ NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_outbound_messages_next_attempt_at ON outbound_messages(next_attempt_at) WHERE status <> 'sent'`,
		`
CREATE TABLE IF NOT EXISTS customs_entries (
  id BIGSERIAL PRIMARY KEY,
  shipment_id BIGINT NOT NULL,
  entry_type TEXT NOT NULL,
  port TEXT NOT NULL DEFAULT '',
  country TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  tariff_code TEXT NOT NULL DEFAULT '',
  declared_value DOUBLE PRECISION NOT NULL DEFAULT 0,
  duty_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
  importer TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  compliance_checks TEXT[] NOT NULL DEFAULT '{}',
  next_action TEXT NOT NULL DEFAULT '',
  filed_at TIMESTAMPTZ NULL,
  cleared_at TIMESTAMPTZ NULL,
  last_checked_at TIMESTAMPTZ NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_customs_entries_status ON customs_entries(status)`,
		`
CREATE TABLE IF NOT EXISTS ftz_zones (
  id BIGSERIAL PRIMARY KEY,
  zone_number TEXT NOT NULL,
  name TEXT NOT NULL,
  location TEXT NOT NULL DEFAULT '',
  operator TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'active',
  total_area DOUBLE PRECISION NOT NULL DEFAULT 0,
  available_area DOUBLE PRECISION NOT NULL DEFAULT 0,
  UNIQUE (zone_number)
)`,
		`
CREATE TABLE IF NOT EXISTS ftz_inventory_items (
  id BIGSERIAL PRIMARY KEY,
  zone_id BIGINT NOT NULL REFERENCES ftz_zones(id),
  shipment_id BIGINT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  quantity BIGINT NOT NULL,
  declared_value DOUBLE PRECISION NOT NULL DEFAULT 0,
  currency TEXT NOT NULL DEFAULT 'USD',
  duty_deferral DOUBLE PRECISION NOT NULL DEFAULT 0,
  entry_date TIMESTAMPTZ NOT NULL,
  last_movement TIMESTAMPTZ NULL,
  status TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_ftz_inventory_items_status ON ftz_inventory_items(status)`,
		`
CREATE TABLE IF NOT EXISTS agency_filings (
  id BIGSERIAL PRIMARY KEY,
  shipment_id BIGINT NOT NULL,
  agency TEXT NOT NULL,
  filing_type TEXT NOT NULL,
  status TEXT NOT NULL,
  priority TEXT NOT NULL DEFAULT 'normal',
  due_date TIMESTAMPTZ NULL,
  submitted_at TIMESTAMPTZ NULL,
  last_checked_at TIMESTAMPTZ NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_agency_filings_status ON agency_filings(status)`,
		`
CREATE TABLE IF NOT EXISTS compliance_alerts (
  id BIGSERIAL PRIMARY KEY,
  event_id TEXT NOT NULL,
  engine TEXT NOT NULL,
  severity TEXT NOT NULL,
  entity_kind TEXT NOT NULL DEFAULT '',
  entity_id BIGINT NOT NULL DEFAULT 0,
  code TEXT NOT NULL,
  message TEXT NOT NULL,
  emitted_at TIMESTAMPTZ NOT NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_compliance_alerts_emitted_at ON compliance_alerts(emitted_at DESC)`,
		// Terminal states are kept forever for audit; dedup alert events by event id.
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_compliance_alerts_event_id ON compliance_alerts(event_id)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
