// README: Contact and partner contract store backed by PostgreSQL.
package contract

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chauffeur/internal/types"
)

var ErrNotFound = errors.New("contact not found")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// GetContact loads a contact and, for partners, the contract with its grid
// assignments in match order.
func (s *Store) GetContact(ctx context.Context, orgID, contactID types.ID) (*Contact, error) {
	var c Contact
	var contractID sql.NullString
	err := s.db.QueryRow(ctx, `
        SELECT c.id, c.name, c.type, pc.id
        FROM contacts c
        LEFT JOIN partner_contracts pc ON pc.contact_id = c.id
        WHERE c.organization_id = $1 AND c.id = $2`, string(orgID), string(contactID),
	).Scan(&c.ID, &c.Name, &c.Type, &contractID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get contact: %w", err)
	}
	if c.Type != ContactPartner || !contractID.Valid {
		return &c, nil
	}

	pc := &PartnerContract{ID: types.ID(contractID.String)}
	if pc.ZoneRoutes, err = s.zoneRoutes(ctx, pc.ID); err != nil {
		return nil, err
	}
	if pc.Excursions, err = s.excursions(ctx, pc.ID); err != nil {
		return nil, err
	}
	if pc.Dispos, err = s.dispos(ctx, pc.ID); err != nil {
		return nil, err
	}
	c.Contract = pc
	return &c, nil
}

func (s *Store) zoneRoutes(ctx context.Context, contractID types.ID) ([]ZoneRouteAssignment, error) {
	rows, err := s.db.Query(ctx, `
        SELECT r.id, r.name, r.vehicle_category_id, r.direction, r.origin, r.destination,
               r.fixed_price, r.is_active, a.override_price
        FROM contract_zone_routes a
        JOIN zone_routes r ON r.id = a.zone_route_id
        WHERE a.contract_id = $1
        ORDER BY a.position, r.id`, string(contractID),
	)
	if err != nil {
		return nil, fmt.Errorf("list zone routes: %w", err)
	}
	defer rows.Close()

	var out []ZoneRouteAssignment
	for rows.Next() {
		var (
			a                   ZoneRouteAssignment
			origin, destination []byte
			override            sql.NullFloat64
		)
		if err := rows.Scan(
			&a.Route.ID, &a.Route.Name, &a.Route.VehicleCategoryID, &a.Route.Direction,
			&origin, &destination, &a.Route.FixedPrice, &a.Route.Active, &override,
		); err != nil {
			return nil, fmt.Errorf("scan zone route: %w", err)
		}
		if err := json.Unmarshal(origin, &a.Route.Origin); err != nil {
			return nil, fmt.Errorf("decode origin of route %s: %w", a.Route.ID, err)
		}
		if err := json.Unmarshal(destination, &a.Route.Destination); err != nil {
			return nil, fmt.Errorf("decode destination of route %s: %w", a.Route.ID, err)
		}
		a.OverridePrice = floatPtr(override)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) excursions(ctx context.Context, contractID types.ID) ([]ExcursionAssignment, error) {
	rows, err := s.db.Query(ctx, `
        SELECT p.id, p.name, COALESCE(p.vehicle_category_id, ''), COALESCE(p.origin_zone_id, ''),
               COALESCE(p.destination_zone_id, ''), p.minimum_duration_hours, p.allowed_origin_zone_ids,
               p.fixed_price, p.is_active, a.override_price
        FROM contract_excursions a
        JOIN excursion_packages p ON p.id = a.excursion_package_id
        WHERE a.contract_id = $1
        ORDER BY a.position, p.id`, string(contractID),
	)
	if err != nil {
		return nil, fmt.Errorf("list excursions: %w", err)
	}
	defer rows.Close()

	var out []ExcursionAssignment
	for rows.Next() {
		var (
			a        ExcursionAssignment
			minHours sql.NullFloat64
			allowed  []byte
			override sql.NullFloat64
		)
		p := &a.Package
		if err := rows.Scan(
			&p.ID, &p.Name, &p.VehicleCategoryID, &p.OriginZoneID, &p.DestinationZoneID,
			&minHours, &allowed, &p.FixedPrice, &p.Active, &override,
		); err != nil {
			return nil, fmt.Errorf("scan excursion: %w", err)
		}
		if len(allowed) > 0 {
			if err := json.Unmarshal(allowed, &p.AllowedOriginZoneIDs); err != nil {
				return nil, fmt.Errorf("decode allowed origins of %s: %w", p.ID, err)
			}
		}
		p.MinimumDurationHours = floatPtr(minHours)
		a.OverridePrice = floatPtr(override)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) dispos(ctx context.Context, contractID types.ID) ([]DispoAssignment, error) {
	rows, err := s.db.Query(ctx, `
        SELECT p.id, p.name, p.vehicle_category_id, p.included_hours, p.included_km,
               p.base_price, p.overage_rate_per_hour, p.overage_rate_per_km, p.is_active,
               a.override_price
        FROM contract_dispos a
        JOIN dispo_packages p ON p.id = a.dispo_package_id
        WHERE a.contract_id = $1
        ORDER BY a.position, p.id`, string(contractID),
	)
	if err != nil {
		return nil, fmt.Errorf("list dispos: %w", err)
	}
	defer rows.Close()

	var out []DispoAssignment
	for rows.Next() {
		var a DispoAssignment
		var override sql.NullFloat64
		p := &a.Package
		if err := rows.Scan(
			&p.ID, &p.Name, &p.VehicleCategoryID, &p.IncludedHours, &p.IncludedKm,
			&p.BasePrice, &p.OverageRatePerHour, &p.OverageRatePerKm, &p.Active, &override,
		); err != nil {
			return nil, fmt.Errorf("scan dispo: %w", err)
		}
		a.OverridePrice = floatPtr(override)
		out = append(out, a)
	}
	return out, rows.Err()
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
