// README: Vehicle category and fleet store backed by PostgreSQL.
package vehicle

import (
	"context"
	"database/sql"
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

func (s *Store) ListCategories(ctx context.Context, orgID types.ID) ([]Category, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, code, name, max_passengers, max_luggage, price_multiplier,
               rate_per_km, rate_per_hour, avg_consumption_l100km, fuel_type, regulatory_class
        FROM vehicle_categories
        WHERE organization_id = $1
        ORDER BY code`, string(orgID),
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		var perKm, perHour, consumption sql.NullFloat64
		if err := rows.Scan(
			&c.ID, &c.Code, &c.Name, &c.MaxPassengers, &c.MaxLuggage, &c.PriceMultiplier,
			&perKm, &perHour, &consumption, &c.FuelType, &c.RegulatoryClass,
		); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.RatePerKm = floatPtr(perKm)
		c.RatePerHour = floatPtr(perHour)
		c.AvgConsumptionL100km = floatPtr(consumption)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListVehicles returns the fleet with each vehicle's operating base. The
// selector filters by activity, category and capacity itself.
func (s *Store) ListVehicles(ctx context.Context, orgID types.ID) ([]Vehicle, error) {
	rows, err := s.db.Query(ctx, `
        SELECT v.id, v.registration, v.vehicle_category_id,
               b.id, b.name, b.lat, b.lng,
               v.passenger_capacity, v.luggage_capacity, v.consumption_l100km, v.is_active
        FROM vehicles v
        JOIN operating_bases b ON b.id = v.operating_base_id
        WHERE v.organization_id = $1
        ORDER BY v.id`, string(orgID),
	)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()

	var out []Vehicle
	for rows.Next() {
		var v Vehicle
		var consumption sql.NullFloat64
		if err := rows.Scan(
			&v.ID, &v.Registration, &v.CategoryID,
			&v.Base.ID, &v.Base.Name, &v.Base.Location.Lat, &v.Base.Location.Lng,
			&v.PassengerCapacity, &v.LuggageCapacity, &consumption, &v.Active,
		); err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		v.ConsumptionL100km = floatPtr(consumption)
		out = append(out, v)
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
