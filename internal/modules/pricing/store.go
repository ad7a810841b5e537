// README: Pricing store backed by PostgreSQL: settings, rates, snapshot loading and the calculation audit log.
package pricing

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"chauffeur/internal/modules/contract"
	"chauffeur/internal/modules/vehicle"
	"chauffeur/internal/modules/zone"
	"chauffeur/internal/types"
)

type Store struct {
	db       *pgxpool.Pool
	zones    *zone.Store
	contacts *contract.Store
	fleet    *vehicle.Store
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{
		db:       db,
		zones:    zone.NewStore(db),
		contacts: contract.NewStore(db),
		fleet:    vehicle.NewStore(db),
	}
}

// LoadSettings reads the organization settings and merges defaults.
func (s *Store) LoadSettings(ctx context.Context, orgID types.ID) (Settings, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `
        SELECT settings
        FROM organization_pricing_settings
        WHERE organization_id = $1`, string(orgID),
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Settings{}, fmt.Errorf("pricing settings of %s: %w", orgID, ErrNotFound)
	}
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	var st Settings
	if err := json.Unmarshal(raw, &st); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	st.OrganizationID = orgID
	return st.WithDefaults(), nil
}

// LoadSnapshot reads everything one pricing call needs. The independent
// queries run concurrently on the pool. An empty contactID prices as a
// private customer.
func (s *Store) LoadSnapshot(ctx context.Context, orgID, contactID types.ID) (Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Settings, err = s.LoadSettings(gctx, orgID)
		return err
	})
	g.Go(func() (err error) {
		snap.Zones, err = s.zones.ListByOrganization(gctx, orgID)
		return err
	})
	g.Go(func() (err error) {
		snap.Categories, err = s.fleet.ListCategories(gctx, orgID)
		return err
	})
	g.Go(func() (err error) {
		snap.Vehicles, err = s.fleet.ListVehicles(gctx, orgID)
		return err
	})
	g.Go(func() (err error) {
		snap.AdvancedRates, err = s.ListAdvancedRates(gctx, orgID)
		return err
	})
	g.Go(func() (err error) {
		snap.Seasonal, err = s.ListSeasonalMultipliers(gctx, orgID)
		return err
	})
	if contactID != "" {
		g.Go(func() error {
			c, err := s.contacts.GetContact(gctx, orgID, contactID)
			if errors.Is(err, contract.ErrNotFound) {
				return fmt.Errorf("contact %s: %w", contactID, ErrNotFound)
			}
			snap.Contact = c
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (s *Store) ListAdvancedRates(ctx context.Context, orgID types.ID) ([]AdvancedRate, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, name, rate_type, adjustment_type, value,
               COALESCE(start_time, ''), COALESCE(end_time, ''), days_of_week,
               min_distance_km, max_distance_km, zone_ids, priority, is_active
        FROM advanced_rates
        WHERE organization_id = $1
        ORDER BY priority DESC, id`, string(orgID),
	)
	if err != nil {
		return nil, fmt.Errorf("list advanced rates: %w", err)
	}
	defer rows.Close()

	var out []AdvancedRate
	for rows.Next() {
		var (
			ar            AdvancedRate
			days, zoneIDs []byte
			minKm, maxKm  sql.NullFloat64
		)
		if err := rows.Scan(
			&ar.ID, &ar.Name, &ar.Type, &ar.Adjustment, &ar.Value,
			&ar.StartTime, &ar.EndTime, &days,
			&minKm, &maxKm, &zoneIDs, &ar.Priority, &ar.Active,
		); err != nil {
			return nil, fmt.Errorf("scan advanced rate: %w", err)
		}
		if err := unmarshalOptional(days, &ar.DaysOfWeek); err != nil {
			return nil, fmt.Errorf("decode days of rate %s: %w", ar.ID, err)
		}
		if err := unmarshalOptional(zoneIDs, &ar.ZoneIDs); err != nil {
			return nil, fmt.Errorf("decode zones of rate %s: %w", ar.ID, err)
		}
		ar.MinDistanceKm = nullFloat(minKm)
		ar.MaxDistanceKm = nullFloat(maxKm)
		out = append(out, ar)
	}
	return out, rows.Err()
}

func (s *Store) ListSeasonalMultipliers(ctx context.Context, orgID types.ID) ([]SeasonalMultiplier, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, name, to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD'),
               multiplier, priority, is_active
        FROM seasonal_multipliers
        WHERE organization_id = $1
        ORDER BY priority DESC, id`, string(orgID),
	)
	if err != nil {
		return nil, fmt.Errorf("list seasonal multipliers: %w", err)
	}
	defer rows.Close()

	var out []SeasonalMultiplier
	for rows.Next() {
		var sm SeasonalMultiplier
		if err := rows.Scan(&sm.ID, &sm.Name, &sm.StartDate, &sm.EndDate, &sm.Multiplier, &sm.Priority, &sm.Active); err != nil {
			return nil, fmt.Errorf("scan seasonal multiplier: %w", err)
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

func (s *Store) CreateCalculation(ctx context.Context, c *Calculation) error {
	req, res, err := encodeCalculation(c)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
        INSERT INTO pricing_calculations (
            id, organization_id, contact_id, revision, pricing_mode, price, request, result, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		string(c.ID), string(c.OrganizationID), nullString(string(c.ContactID)), c.Revision,
		string(c.Result.Mode), c.Result.Price, req, res, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert calculation: %w", err)
	}
	return nil
}

func (s *Store) GetCalculation(ctx context.Context, orgID, id types.ID) (*Calculation, error) {
	var (
		c         Calculation
		contactID sql.NullString
		req, res  []byte
	)
	err := s.db.QueryRow(ctx, `
        SELECT id, organization_id, contact_id, revision, request, result, created_at, updated_at
        FROM pricing_calculations
        WHERE organization_id = $1 AND id = $2`, string(orgID), string(id),
	).Scan(&c.ID, &c.OrganizationID, &contactID, &c.Revision, &req, &res, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get calculation: %w", err)
	}
	c.ContactID = types.ID(contactID.String)
	if err := json.Unmarshal(req, &c.Request); err != nil {
		return nil, fmt.Errorf("decode request of %s: %w", id, err)
	}
	if err := json.Unmarshal(res, &c.Result); err != nil {
		return nil, fmt.Errorf("decode result of %s: %w", id, err)
	}
	return &c, nil
}

// UpdateCalculation writes a new revision only if the stored one is still
// fromRevision; false means another writer got there first.
func (s *Store) UpdateCalculation(ctx context.Context, c *Calculation, fromRevision int) (bool, error) {
	req, res, err := encodeCalculation(c)
	if err != nil {
		return false, err
	}
	tag, err := s.db.Exec(ctx, `
        UPDATE pricing_calculations
        SET revision = $1, pricing_mode = $2, price = $3, request = $4, result = $5, updated_at = $6
        WHERE organization_id = $7 AND id = $8 AND revision = $9`,
		c.Revision, string(c.Result.Mode), c.Result.Price, req, res, c.UpdatedAt,
		string(c.OrganizationID), string(c.ID), fromRevision,
	)
	if err != nil {
		return false, fmt.Errorf("update calculation: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func encodeCalculation(c *Calculation) (req, res []byte, err error) {
	if req, err = json.Marshal(c.Request); err != nil {
		return nil, nil, fmt.Errorf("encode request: %w", err)
	}
	if res, err = json.Marshal(c.Result); err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return req, res, nil
}

func unmarshalOptional(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
