// README: Trip type shared by the grid matcher and the pricing engine.
package types

type TripType string

const (
	TripTransfer  TripType = "transfer"
	TripExcursion TripType = "excursion"
	TripDispo     TripType = "dispo"
	TripOffGrid   TripType = "off_grid"
)

func (t TripType) Valid() bool {
	switch t {
	case TripTransfer, TripExcursion, TripDispo, TripOffGrid:
		return true
	}
	return false
}
