package reports

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/ledger"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/reports/export"
	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/store"
)

// Service builds report datasets from ledger state.
type Service interface {
	// Holdings returns every live credit lot on the ledger.
	Holdings(ctx context.Context) (export.Table, error)

	// ProjectRegistry returns all registered projects and their
	// verification status.
	ProjectRegistry(ctx context.Context) (export.Table, error)

	// OrderBook returns all open sell orders.
	OrderBook(ctx context.Context) (export.Table, error)

	// Certificate returns the ownership certificate data for a lot the
	// caller owns.
	Certificate(ctx context.Context, caller ledger.Principal, lotID uint64) (export.Certificate, error)
}

type service struct {
	store store.Store
	clock ledger.Clock
	log   *zap.Logger
}

// NewService creates a reports service.
func NewService(st store.Store, clock ledger.Clock, log *zap.Logger) Service {
	if clock == nil {
		clock = ledger.SystemClock
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &service{store: st, clock: clock, log: log}
}

func (s *service) Holdings(ctx context.Context) (export.Table, error) {
	table := export.Table{
		Title:   "Credit Holdings",
		Columns: []string{"Lot ID", "Owner", "Amount", "Project ID", "Expiration", "Minted At", "Status"},
	}
	now := s.clock()

	err := s.store.Atomically(ctx, func(tx store.Tx) error {
		projects, err := tx.Projects().List(ctx)
		if err != nil {
			return err
		}
		for _, project := range projects {
			lots, err := tx.Credits().ListByProject(ctx, project.ID)
			if err != nil {
				return err
			}
			for _, lot := range lots {
				status := "active"
				if lot.Expired(now) {
					status = "expired"
				}
				table.Rows = append(table.Rows, []any{
					lot.ID, string(lot.Owner), lot.Amount, lot.ProjectID,
					lot.Expiration, lot.MintedAt, status,
				})
			}
		}
		return nil
	})
	if err != nil {
		return export.Table{}, err
	}
	return table, nil
}

func (s *service) ProjectRegistry(ctx context.Context) (export.Table, error) {
	table := export.Table{
		Title:   "Project Registry",
		Columns: []string{"Project ID", "Owner", "Description", "Verified", "Verifier", "Registered At"},
	}

	err := s.store.Atomically(ctx, func(tx store.Tx) error {
		projects, err := tx.Projects().List(ctx)
		if err != nil {
			return err
		}
		for _, project := range projects {
			table.Rows = append(table.Rows, []any{
				project.ID, string(project.Owner), project.Description,
				project.Verified, string(project.Verifier), project.CreatedAt,
			})
		}
		return nil
	})
	if err != nil {
		return export.Table{}, err
	}
	return table, nil
}

func (s *service) OrderBook(ctx context.Context) (export.Table, error) {
	table := export.Table{
		Title:   "Order Book",
		Columns: []string{"Order ID", "Seller", "Amount", "Price", "Expiration", "Created At", "Status"},
	}
	now := s.clock()

	err := s.store.Atomically(ctx, func(tx store.Tx) error {
		orders, err := tx.Orders().List(ctx)
		if err != nil {
			return err
		}
		for _, order := range orders {
			status := "open"
			if order.Expired(now) {
				status = "expired"
			}
			table.Rows = append(table.Rows, []any{
				order.ID, string(order.Seller), order.Amount, order.Price,
				order.Expiration, order.CreatedAt, status,
			})
		}
		return nil
	})
	if err != nil {
		return export.Table{}, err
	}
	return table, nil
}

func (s *service) Certificate(ctx context.Context, caller ledger.Principal, lotID uint64) (export.Certificate, error) {
	var cert export.Certificate

	err := s.store.Atomically(ctx, func(tx store.Tx) error {
		lot, err := tx.Credits().Get(ctx, lotID)
		if err != nil {
			return err
		}
		if lot == nil {
			return ledger.NewError(ledger.KindNotFound, "credit lot", strconv.FormatUint(lotID, 10), "credit lot does not exist")
		}
		if lot.Owner != caller {
			return ledger.NewError(ledger.KindUnauthorized, "credit lot", strconv.FormatUint(lotID, 10), "only the lot owner may request a certificate")
		}
		project, err := tx.Projects().Get(ctx, lot.ProjectID)
		if err != nil {
			return err
		}
		cert = export.Certificate{
			LotID:      lot.ID,
			Owner:      string(lot.Owner),
			Amount:     lot.Amount,
			ProjectID:  lot.ProjectID,
			Expiration: lot.Expiration,
			MintedAt:   lot.MintedAt,
			IssuedAt:   s.clock(),
		}
		if project != nil {
			cert.ProjectInfo = project.Description
		}
		return nil
	})
	if err != nil {
		return export.Certificate{}, err
	}
	return cert, nil
}
