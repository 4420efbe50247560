package db

import (
	"time"

	"gorm.io/datatypes"

	"github.com/nusenusewhen-bot/lights-mm/constants"
)

type UserConfig struct {
	ID        uint
	Key       string `gorm:"unique;not null"`
	Value     string
	Encrypted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Ticket is one escrowed trade. Role ids, the deposit address and the
// incoming tx hash are write-once: they are only ever set through
// conditional updates that require the column to still be empty.
type Ticket struct {
	ID            uint
	ChannelID     string `gorm:"unique;not null"`
	GuildID       string
	CreatorID     string `validate:"required"`
	OtherUserID   string `validate:"required"`
	CreatorGiving string
	OtherGiving   string
	SenderID      *string
	ReceiverID    *string
	AmountUSD     float64
	// satoshi-precision trade amount, set once role + fiat amount are known
	AmountSats     uint64
	DepositAddress string
	TxHash         *string
	Status         string `gorm:"not null"`
	Metadata       datatypes.JSON
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Confirmation records a participant's explicit acknowledgment of the
// proposed trade amount. Unrelated to on-chain confirmation.
type Confirmation struct {
	ID        uint
	TicketId  uint   `validate:"required" gorm:"uniqueIndex:idx_ticket_user_kind"`
	Ticket    Ticket `gorm:"constraint:OnDelete:CASCADE;foreignKey:TicketId"`
	UserID    string `validate:"required" gorm:"uniqueIndex:idx_ticket_user_kind"`
	Kind      string `validate:"required" gorm:"uniqueIndex:idx_ticket_user_kind"`
	CreatedAt time.Time
}

func (t *Ticket) HasBothRoles() bool {
	return t.SenderID != nil && t.ReceiverID != nil
}

func (t *Ticket) IsParticipant(userID string) bool {
	if t.SenderID != nil && *t.SenderID == userID {
		return true
	}
	if t.ReceiverID != nil && *t.ReceiverID == userID {
		return true
	}
	return false
}

func (t *Ticket) IsPartyToTicket(userID string) bool {
	return t.CreatorID == userID || t.OtherUserID == userID
}

func (t *Ticket) IsTerminal() bool {
	return t.Status == constants.TICKET_STATUS_COMPLETED ||
		t.Status == constants.TICKET_STATUS_CANCELLED
}
