package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Organizer represents the organizers table.
type Organizer struct {
	OrganizerID         string `gorm:"primaryKey"`
	LinkedAccountID     string
	LinkedAccountStatus string
	CreatedAt           time.Time `gorm:"not null"`
	UpdatedAt           time.Time `gorm:"not null"`
}

func (Organizer) TableName() string { return "organizers" }

// Tournament represents the tournaments table. The aggregate counters are
// only ever touched through atomic increment expressions.
type Tournament struct {
	TournamentID        string  `gorm:"primaryKey"`
	OrganizerID         string  `gorm:"not null;index:idx_tournaments_organizer"`
	Name                string  `gorm:"not null"`
	EntryFeeRupees      float64 `gorm:"not null"`
	TotalCollections    int64   `gorm:"not null;default:0"`
	PaidPlayerCount     int64   `gorm:"not null;default:0"`
	TotalHeldAmount     int64   `gorm:"not null;default:0"`
	TotalReleasedAmount int64   `gorm:"not null;default:0"`
	RefundedCount       int64   `gorm:"not null;default:0"`
	TotalRefunded       int64   `gorm:"not null;default:0"`
	SettlementStatus    string  `gorm:"not null;default:none"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (Tournament) TableName() string { return "tournaments" }

// Player represents the players table: one registration per tournament.
type Player struct {
	TournamentID  string `gorm:"primaryKey"`
	PlayerID      string `gorm:"primaryKey"`
	PaymentState  string `gorm:"not null;default:unpaid"`
	PaymentID     string `gorm:"index:idx_players_payment"`
	OrderID       string
	PaidAmount    int64
	SeatsPaid     int64
	PaymentMethod string
	PaidAt        *time.Time
	Refund        datatypes.JSON
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (Player) TableName() string { return "players" }

// Transaction represents the transactions table.
type Transaction struct {
	TransactionID      string `gorm:"primaryKey"`
	Type               string `gorm:"not null"`
	Status             string `gorm:"not null"`
	TournamentID       string `gorm:"not null;index:idx_transactions_tournament_held,priority:1"`
	PlayerID           string
	OrderID            string `gorm:"index:idx_transactions_order"`
	PaymentID          string `gorm:"index:idx_transactions_payment"`
	Amount             int64  `gorm:"not null"`
	OrganizerShare     int64
	PlatformCommission int64
	Seats              int64
	TransferID         string
	TransferStatus     string
	SettlementHeld     bool `gorm:"not null;default:false;index:idx_transactions_tournament_held,priority:2"`
	HoldUntil          *time.Time
	FailureReason      string
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`
}

func (Transaction) TableName() string { return "transactions" }

// VerificationLog represents the append-only payment_verifications table.
type VerificationLog struct {
	VerificationID string `gorm:"type:uuid;primaryKey"`
	PaymentID      string `gorm:"not null;index:idx_verifications_payment"`
	OrderID        string
	Outcome        string    `gorm:"not null"`
	Detail         string    `gorm:""`
	CreatedAt      time.Time `gorm:"not null"`
}

func (VerificationLog) TableName() string { return "payment_verifications" }

func (log *VerificationLog) BeforeCreate(tx *gorm.DB) error {
	if log.VerificationID == "" {
		log.VerificationID = uuid.NewString()
	}
	return nil
}

// RefundFailure represents the append-only refund_failures table.
type RefundFailure struct {
	FailureID    string `gorm:"type:uuid;primaryKey"`
	PaymentID    string `gorm:"index:idx_refund_failures_payment"`
	TournamentID string
	PlayerID     string
	Reason       string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (RefundFailure) TableName() string { return "refund_failures" }

func (failure *RefundFailure) BeforeCreate(tx *gorm.DB) error {
	if failure.FailureID == "" {
		failure.FailureID = uuid.NewString()
	}
	return nil
}
