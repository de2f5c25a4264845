// Package verification implements the verification registry: project
// records and the verifier allow-list that gates credit minting.
package verification

import (
	"context"
	"strconv"

	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/ledger"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/store"
)

// Service is the verification registry's synchronous call surface.
type Service interface {
	RegisterProject(ctx context.Context, owner ledger.Principal, description string) (uint64, error)
	VerifyProject(ctx context.Context, projectID uint64, verifier ledger.Principal) error
	AddVerifier(ctx context.Context, principal ledger.Principal) error
	RemoveVerifier(ctx context.Context, principal ledger.Principal) error
	IsVerifier(ctx context.Context, principal ledger.Principal) (bool, error)
	GetProjectInfo(ctx context.Context, projectID uint64) (*ledger.Project, error)
	ListProjects(ctx context.Context) ([]ledger.Project, error)
}

type service struct {
	store store.Store
	sink  ledger.EventSink
	clock ledger.Clock
}

// NewService creates the verification registry over the shared store.
// A nil sink disables event publication; a nil clock uses the system
// clock.
func NewService(st store.Store, sink ledger.EventSink, clock ledger.Clock) Service {
	if clock == nil {
		clock = ledger.SystemClock
	}
	return &service{store: st, sink: sink, clock: clock}
}

func (s *service) RegisterProject(ctx context.Context, owner ledger.Principal, description string) (uint64, error) {
	now := s.clock()

	var project ledger.Project
	var event ledger.Event
	err := s.store.Atomically(ctx, func(tx store.Tx) error {
		id, err := tx.NextID(ctx, store.CounterProjects)
		if err != nil {
			return err
		}
		project = ledger.Project{
			ID:          id,
			Owner:       owner,
			Description: description,
			Verified:    false,
			CreatedAt:   now,
		}
		if err := tx.Projects().Create(ctx, &project); err != nil {
			return err
		}
		event = ledger.NewEvent(ledger.EventProjectRegistered, owner, id, map[string]any{
			"description": description,
		}, now)
		return tx.Events().Append(ctx, event)
	})
	if err != nil {
		return 0, err
	}
	s.publish(event)
	return project.ID, nil
}

func (s *service) VerifyProject(ctx context.Context, projectID uint64, verifier ledger.Principal) error {
	now := s.clock()

	var event ledger.Event
	err := s.store.Atomically(ctx, func(tx store.Tx) error {
		project, err := tx.Projects().Get(ctx, projectID)
		if err != nil {
			return err
		}
		if project == nil {
			return ledger.NewError(ledger.KindNotFound, "project", formatID(projectID), "project not found")
		}
		allowed, err := tx.Verifiers().Contains(ctx, verifier)
		if err != nil {
			return err
		}
		if !allowed {
			return ledger.NewError(ledger.KindUnauthorized, "project", formatID(projectID), "caller is not an authorized verifier")
		}
		if project.Verified {
			return ledger.NewError(ledger.KindAlreadyVerified, "project", formatID(projectID), "project is already verified")
		}

		project.Verified = true
		project.Verifier = verifier
		verifiedAt := now
		project.VerifiedAt = &verifiedAt
		if err := tx.Projects().Update(ctx, project); err != nil {
			return err
		}
		event = ledger.NewEvent(ledger.EventProjectVerified, verifier, projectID, nil, now)
		return tx.Events().Append(ctx, event)
	})
	if err != nil {
		return err
	}
	s.publish(event)
	return nil
}

// AddVerifier is idempotent: adding an existing verifier is a no-op.
func (s *service) AddVerifier(ctx context.Context, principal ledger.Principal) error {
	return s.store.Atomically(ctx, func(tx store.Tx) error {
		return tx.Verifiers().Add(ctx, principal)
	})
}

// RemoveVerifier is idempotent: removing a non-member is a no-op.
func (s *service) RemoveVerifier(ctx context.Context, principal ledger.Principal) error {
	return s.store.Atomically(ctx, func(tx store.Tx) error {
		return tx.Verifiers().Remove(ctx, principal)
	})
}

func (s *service) IsVerifier(ctx context.Context, principal ledger.Principal) (bool, error) {
	var ok bool
	err := s.store.Atomically(ctx, func(tx store.Tx) error {
		var err error
		ok, err = tx.Verifiers().Contains(ctx, principal)
		return err
	})
	return ok, err
}

// GetProjectInfo returns nil for an unknown project id.
func (s *service) GetProjectInfo(ctx context.Context, projectID uint64) (*ledger.Project, error) {
	var project *ledger.Project
	err := s.store.Atomically(ctx, func(tx store.Tx) error {
		var err error
		project, err = tx.Projects().Get(ctx, projectID)
		return err
	})
	return project, err
}

func (s *service) ListProjects(ctx context.Context) ([]ledger.Project, error) {
	var projects []ledger.Project
	err := s.store.Atomically(ctx, func(tx store.Tx) error {
		var err error
		projects, err = tx.Projects().List(ctx)
		return err
	})
	return projects, err
}

func (s *service) publish(event ledger.Event) {
	if s.sink != nil && event.Type != "" {
		s.sink.Publish(event)
	}
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
