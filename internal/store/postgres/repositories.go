package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/ledger"
)

type projectRepo struct {
	db *gorm.DB
}

func (r *projectRepo) Create(ctx context.Context, project *ledger.Project) error {
	row := projectToRow(project)
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *projectRepo) Get(ctx context.Context, id uint64) (*ledger.Project, error) {
	var row projectRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (r *projectRepo) Update(ctx context.Context, project *ledger.Project) error {
	row := projectToRow(project)
	return r.db.WithContext(ctx).Save(&row).Error
}

func (r *projectRepo) List(ctx context.Context) ([]ledger.Project, error) {
	var rows []projectRow
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	projects := make([]ledger.Project, 0, len(rows))
	for _, row := range rows {
		projects = append(projects, *row.toModel())
	}
	return projects, nil
}

type verifierRepo struct {
	db *gorm.DB
}

func (r *verifierRepo) Add(ctx context.Context, principal ledger.Principal) error {
	row := verifierRow{Principal: string(principal)}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func (r *verifierRepo) Remove(ctx context.Context, principal ledger.Principal) error {
	return r.db.WithContext(ctx).Delete(&verifierRow{}, "principal = ?", string(principal)).Error
}

func (r *verifierRepo) Contains(ctx context.Context, principal ledger.Principal) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&verifierRow{}).
		Where("principal = ?", string(principal)).Count(&count).Error
	return count > 0, err
}

type creditRepo struct {
	db *gorm.DB
}

func (r *creditRepo) Create(ctx context.Context, lot *ledger.CreditLot) error {
	row := creditToRow(lot)
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *creditRepo) Get(ctx context.Context, id uint64) (*ledger.CreditLot, error) {
	var row creditRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (r *creditRepo) Update(ctx context.Context, lot *ledger.CreditLot) error {
	row := creditToRow(lot)
	return r.db.WithContext(ctx).Save(&row).Error
}

func (r *creditRepo) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&creditRow{}, "id = ?", id).Error
}

func (r *creditRepo) FindMergeable(ctx context.Context, owner ledger.Principal, projectID uint64, expiration time.Time) (*ledger.CreditLot, error) {
	var row creditRow
	err := r.db.WithContext(ctx).
		Where("owner = ? AND project_id = ? AND expiration = ?", string(owner), projectID, expiration).
		Order("id").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (r *creditRepo) ListByOwner(ctx context.Context, owner ledger.Principal) ([]ledger.CreditLot, error) {
	var rows []creditRow
	err := r.db.WithContext(ctx).Where("owner = ?", string(owner)).Order("id").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return creditModels(rows), nil
}

func (r *creditRepo) ListByProject(ctx context.Context, projectID uint64) ([]ledger.CreditLot, error) {
	var rows []creditRow
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("id").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return creditModels(rows), nil
}

func creditModels(rows []creditRow) []ledger.CreditLot {
	lots := make([]ledger.CreditLot, 0, len(rows))
	for _, row := range rows {
		lots = append(lots, *row.toModel())
	}
	return lots
}

type balanceRepo struct {
	db *gorm.DB
}

func (r *balanceRepo) Get(ctx context.Context, principal ledger.Principal) (uint64, error) {
	var row balanceRow
	err := r.db.WithContext(ctx).First(&row, "principal = ?", string(principal)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Amount, nil
}

func (r *balanceRepo) Set(ctx context.Context, principal ledger.Principal, amount uint64) error {
	// Zero balances are deleted, matching the read path where a
	// missing row reads as zero.
	if amount == 0 {
		return r.db.WithContext(ctx).Delete(&balanceRow{}, "principal = ?", string(principal)).Error
	}
	row := balanceRow{Principal: string(principal), Amount: amount}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "principal"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount"}),
	}).Create(&row).Error
}

type orderRepo struct {
	db *gorm.DB
}

func (r *orderRepo) Create(ctx context.Context, order *ledger.Order) error {
	row := orderToRow(order)
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *orderRepo) Get(ctx context.Context, id uint64) (*ledger.Order, error) {
	var row orderRow
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (r *orderRepo) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&orderRow{}, "id = ?", id).Error
}

func (r *orderRepo) List(ctx context.Context) ([]ledger.Order, error) {
	var rows []orderRow
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return orderModels(rows), nil
}

func (r *orderRepo) ListExpired(ctx context.Context, now time.Time) ([]ledger.Order, error) {
	var rows []orderRow
	err := r.db.WithContext(ctx).Where("expiration <= ?", now).Order("id").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return orderModels(rows), nil
}

func orderModels(rows []orderRow) []ledger.Order {
	orders := make([]ledger.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, *row.toModel())
	}
	return orders
}

type eventRepo struct {
	db *gorm.DB
}

func (r *eventRepo) Append(ctx context.Context, event ledger.Event) error {
	row := eventRow{
		ID:         event.ID.String(),
		Type:       string(event.Type),
		Actor:      string(event.Actor),
		EntityID:   event.EntityID,
		OccurredAt: event.OccurredAt,
	}
	if event.Payload != nil {
		payload, err := json.Marshal(event.Payload)
		if err != nil {
			return fmt.Errorf("encode event payload: %w", err)
		}
		row.Payload = datatypes.JSON(payload)
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

func (r *eventRepo) ListRecent(ctx context.Context, limit int) ([]ledger.Event, error) {
	var rows []eventRow
	err := r.db.WithContext(ctx).Order("occurred_at DESC, id DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	events := make([]ledger.Event, 0, len(rows))
	for _, row := range rows {
		event, err := row.toModel()
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func (r eventRow) toModel() (ledger.Event, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return ledger.Event{}, fmt.Errorf("decode event id: %w", err)
	}
	event := ledger.Event{
		ID:         id,
		Type:       ledger.EventType(r.Type),
		Actor:      ledger.Principal(r.Actor),
		EntityID:   r.EntityID,
		OccurredAt: r.OccurredAt,
	}
	if len(r.Payload) > 0 {
		if err := json.Unmarshal(r.Payload, &event.Payload); err != nil {
			return ledger.Event{}, fmt.Errorf("decode event payload: %w", err)
		}
	}
	return event, nil
}
