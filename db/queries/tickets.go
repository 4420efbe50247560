package queries

import (
	"errors"

	"gorm.io/gorm"

	"github.com/nusenusewhen-bot/lights-mm/db"
)

// GetTicket re-reads the ticket row. Handlers call this before every
// transition decision so stale in-memory state never drives one.
func GetTicket(tx *gorm.DB, ticketID uint) (*db.Ticket, error) {
	var ticket db.Ticket
	result := tx.Limit(1).Find(&ticket, &db.Ticket{ID: ticketID})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &ticket, nil
}

// GetTicketByChannelAndStatus dispatches inbound chat events to the right
// ticket: free-text messages carry no ticket id, only a channel.
func GetTicketByChannelAndStatus(tx *gorm.DB, channelID string, status string) (*db.Ticket, error) {
	var ticket db.Ticket
	result := tx.Limit(1).Find(&ticket, &db.Ticket{ChannelID: channelID, Status: status})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &ticket, nil
}

func ListTicketsByStatus(tx *gorm.DB, status string) ([]db.Ticket, error) {
	tickets := []db.Ticket{}
	err := tx.Where(&db.Ticket{Status: status}).Order("created_at asc").Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// DeleteTicket removes the ticket and cascades its confirmations.
func DeleteTicket(tx *gorm.DB, ticketID uint) error {
	return tx.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("ticket_id = ?", ticketID).Delete(&db.Confirmation{}).Error
		if err != nil {
			return err
		}
		return tx.Delete(&db.Ticket{}, ticketID).Error
	})
}

// CountAmountConfirmations counts distinct "amount" acknowledgments.
func CountAmountConfirmations(tx *gorm.DB, ticketID uint, kind string) (int64, error) {
	var count int64
	err := tx.Model(&db.Confirmation{}).
		Where("ticket_id = ? AND kind = ?", ticketID, kind).
		Count(&count).Error
	return count, err
}

// MarkTxHash records the incoming transaction id, first-detected wins: the
// update only succeeds while the column is still unset.
func MarkTxHash(tx *gorm.DB, ticketID uint, txHash string) (bool, error) {
	result := tx.Model(&db.Ticket{}).
		Where("id = ? AND tx_hash IS NULL", ticketID).
		Update("tx_hash", txHash)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ClaimRole fills a role slot only if it is still empty, so duplicate
// claims lose the race at the database rather than in process memory.
func ClaimRole(tx *gorm.DB, ticketID uint, column string, userID string) (bool, error) {
	if column != "sender_id" && column != "receiver_id" {
		return false, errors.New("invalid role column")
	}
	result := tx.Model(&db.Ticket{}).
		Where("id = ? AND "+column+" IS NULL", ticketID).
		Update(column, userID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
