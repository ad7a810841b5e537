// README: Zone store backed by PostgreSQL.
package zone

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"chauffeur/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// ListByOrganization loads the organization's zone snapshot. Inactive zones
// are returned too; the resolver drops them.
func (s *Store) ListByOrganization(ctx context.Context, orgID types.ID) ([]Zone, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, code, name, kind, ring, center_lat, center_lng, radius_km,
               price_multiplier, surcharge, is_active
        FROM pricing_zones
        WHERE organization_id = $1
        ORDER BY code`, string(orgID),
	)
	if err != nil {
		return nil, fmt.Errorf("list zones: %w", err)
	}
	defer rows.Close()

	var out []Zone
	for rows.Next() {
		var (
			z          Zone
			ring       []byte
			centerLat  sql.NullFloat64
			centerLng  sql.NullFloat64
			radiusKm   sql.NullFloat64
			multiplier sql.NullFloat64
			surcharge  sql.NullFloat64
		)
		if err := rows.Scan(
			&z.ID, &z.Code, &z.Name, &z.Kind, &ring, &centerLat, &centerLng, &radiusKm,
			&multiplier, &surcharge, &z.Active,
		); err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}
		if len(ring) > 0 {
			if err := json.Unmarshal(ring, &z.Ring); err != nil {
				return nil, fmt.Errorf("decode ring of zone %s: %w", z.Code, err)
			}
		}
		if centerLat.Valid && centerLng.Valid {
			z.Center = &types.Point{Lat: centerLat.Float64, Lng: centerLng.Float64}
		}
		z.RadiusKm = radiusKm.Float64
		z.PriceMultiplier = 1.0
		if multiplier.Valid && multiplier.Float64 > 0 {
			z.PriceMultiplier = multiplier.Float64
		}
		z.Surcharge = surcharge.Float64
		out = append(out, z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate zones: %w", err)
	}
	return out, nil
}
