// README: Pricing service: loads the snapshot, runs the engine and keeps the calculation audit log.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chauffeur/internal/obs"
	"chauffeur/internal/types"
)

var ErrConflict = errors.New("calculation revision conflict")

// Repository is what the service needs from storage. *Store implements it.
type Repository interface {
	LoadSettings(ctx context.Context, orgID types.ID) (Settings, error)
	LoadSnapshot(ctx context.Context, orgID, contactID types.ID) (Snapshot, error)
	CreateCalculation(ctx context.Context, c *Calculation) error
	GetCalculation(ctx context.Context, orgID, id types.ID) (*Calculation, error)
	UpdateCalculation(ctx context.Context, c *Calculation, fromRevision int) (bool, error)
}

// Calculation is one persisted quote. Revision 1 is the engine output; every
// accepted override adds a revision.
type Calculation struct {
	ID             types.ID  `json:"id"`
	OrganizationID types.ID  `json:"organizationId"`
	ContactID      types.ID  `json:"contactId,omitempty"`
	Revision       int       `json:"revision"`
	Request        Request   `json:"request"`
	Result         Result    `json:"result"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type Service struct {
	repo   Repository
	engine *Engine
	now    func() time.Time
}

func NewService(repo Repository, engine *Engine) *Service {
	return &Service{repo: repo, engine: engine, now: time.Now}
}

type QuoteCommand struct {
	OrganizationID types.ID
	ContactID      types.ID
	Request        Request
}

type OverrideCommand struct {
	OrganizationID types.ID
	CalculationID  types.ID
	Override       OverrideRequest
}

func (s *Service) Quote(ctx context.Context, cmd QuoteCommand) (calc *Calculation, err error) {
	defer obs.Time(ctx, "pricing.quote")(&err)

	if cmd.OrganizationID == "" {
		return nil, invalid("organizationId", "required")
	}
	if err := cmd.Request.Validate(); err != nil {
		return nil, err
	}
	snap, err := s.repo.LoadSnapshot(ctx, cmd.OrganizationID, cmd.ContactID)
	if err != nil {
		return nil, err
	}
	if _, ok := snap.Category(cmd.Request.VehicleCategoryID); !ok {
		return nil, fmt.Errorf("vehicle category %s: %w", cmd.Request.VehicleCategoryID, ErrNotFound)
	}

	res, err := s.engine.Price(ctx, snap, cmd.Request)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	calc = &Calculation{
		ID:             types.ID(uuid.NewString()),
		OrganizationID: cmd.OrganizationID,
		ContactID:      cmd.ContactID,
		Revision:       1,
		Request:        cmd.Request,
		Result:         res,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateCalculation(ctx, calc); err != nil {
		return nil, err
	}
	return calc, nil
}

func (s *Service) GetCalculation(ctx context.Context, orgID, id types.ID) (*Calculation, error) {
	return s.repo.GetCalculation(ctx, orgID, id)
}

// Override applies an operator price to a stored calculation. A rejected
// override returns the stored calculation unchanged with an *OverrideError.
func (s *Service) Override(ctx context.Context, cmd OverrideCommand) (calc *Calculation, err error) {
	defer obs.Time(ctx, "pricing.override")(&err)

	stored, err := s.repo.GetCalculation(ctx, cmd.OrganizationID, cmd.CalculationID)
	if err != nil {
		return nil, err
	}
	settings, err := s.repo.LoadSettings(ctx, cmd.OrganizationID)
	if err != nil {
		return nil, err
	}

	res, oerr := Override(stored.Result, cmd.Override, settings.Thresholds)
	if oerr != nil {
		return stored, oerr
	}

	next := *stored
	next.Result = res
	next.Revision = stored.Revision + 1
	next.UpdatedAt = s.now().UTC()
	ok, err := s.repo.UpdateCalculation(ctx, &next, stored.Revision)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	return &next, nil
}
