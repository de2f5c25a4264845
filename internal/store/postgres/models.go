package postgres

import (
	"time"

	"gorm.io/datatypes"

	"carbon-scribe/credit-ledger/credit-ledger-backend/internal/ledger"
)

type projectRow struct {
	ID          uint64 `gorm:"primaryKey"`
	Owner       string `gorm:"index;not null"`
	Description string
	Verified    bool `gorm:"not null;default:false"`
	Verifier    string
	CreatedAt   time.Time `gorm:"not null"`
	VerifiedAt  *time.Time
}

func (projectRow) TableName() string { return "projects" }

func (r projectRow) toModel() *ledger.Project {
	return &ledger.Project{
		ID:          r.ID,
		Owner:       ledger.Principal(r.Owner),
		Description: r.Description,
		Verified:    r.Verified,
		Verifier:    ledger.Principal(r.Verifier),
		CreatedAt:   r.CreatedAt,
		VerifiedAt:  r.VerifiedAt,
	}
}

func projectToRow(p *ledger.Project) projectRow {
	return projectRow{
		ID:          p.ID,
		Owner:       string(p.Owner),
		Description: p.Description,
		Verified:    p.Verified,
		Verifier:    string(p.Verifier),
		CreatedAt:   p.CreatedAt,
		VerifiedAt:  p.VerifiedAt,
	}
}

type verifierRow struct {
	Principal string `gorm:"primaryKey"`
}

func (verifierRow) TableName() string { return "verifiers" }

type creditRow struct {
	ID         uint64    `gorm:"primaryKey"`
	Owner      string    `gorm:"index;not null"`
	Amount     uint64    `gorm:"not null"`
	ProjectID  uint64    `gorm:"index;not null"`
	Expiration time.Time `gorm:"not null"`
	MintedAt   time.Time `gorm:"not null"`
}

func (creditRow) TableName() string { return "credit_lots" }

func (r creditRow) toModel() *ledger.CreditLot {
	return &ledger.CreditLot{
		ID:         r.ID,
		Owner:      ledger.Principal(r.Owner),
		Amount:     r.Amount,
		ProjectID:  r.ProjectID,
		Expiration: r.Expiration,
		MintedAt:   r.MintedAt,
	}
}

func creditToRow(l *ledger.CreditLot) creditRow {
	return creditRow{
		ID:         l.ID,
		Owner:      string(l.Owner),
		Amount:     l.Amount,
		ProjectID:  l.ProjectID,
		Expiration: l.Expiration,
		MintedAt:   l.MintedAt,
	}
}

type balanceRow struct {
	Principal string `gorm:"primaryKey"`
	Amount    uint64 `gorm:"not null"`
}

func (balanceRow) TableName() string { return "balances" }

type orderRow struct {
	ID         uint64    `gorm:"primaryKey"`
	Seller     string    `gorm:"index;not null"`
	Amount     uint64    `gorm:"not null"`
	Price      uint64    `gorm:"not null"`
	Expiration time.Time `gorm:"index;not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (orderRow) TableName() string { return "orders" }

func (r orderRow) toModel() *ledger.Order {
	return &ledger.Order{
		ID:         r.ID,
		Seller:     ledger.Principal(r.Seller),
		Amount:     r.Amount,
		Price:      r.Price,
		Expiration: r.Expiration,
		CreatedAt:  r.CreatedAt,
	}
}

func orderToRow(o *ledger.Order) orderRow {
	return orderRow{
		ID:         o.ID,
		Seller:     string(o.Seller),
		Amount:     o.Amount,
		Price:      o.Price,
		Expiration: o.Expiration,
		CreatedAt:  o.CreatedAt,
	}
}

type eventRow struct {
	ID         string `gorm:"primaryKey;size:36"`
	Type       string `gorm:"index;not null"`
	Actor      string `gorm:"not null"`
	EntityID   uint64 `gorm:"not null"`
	Payload    datatypes.JSON
	OccurredAt time.Time `gorm:"index;not null"`
}

func (eventRow) TableName() string { return "events" }

type counterRow struct {
	Name  string `gorm:"primaryKey"`
	Value uint64 `gorm:"not null"`
}

func (counterRow) TableName() string { return "id_counters" }
