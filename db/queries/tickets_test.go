package queries_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nusenusewhen-bot/lights-mm/constants"
	"github.com/nusenusewhen-bot/lights-mm/db"
	"github.com/nusenusewhen-bot/lights-mm/db/queries"
	"github.com/nusenusewhen-bot/lights-mm/tests"
)

func createTicket(t *testing.T, svc *tests.TestService) *db.Ticket {
	ticket := &db.Ticket{
		ChannelID:     "channel-1",
		GuildID:       "guild-1",
		CreatorID:     "user-1",
		OtherUserID:   "user-2",
		CreatorGiving: "an item",
		OtherGiving:   "50 USD in LTC",
		Status:        constants.TICKET_STATUS_ROLE_SELECTION,
	}
	require.NoError(t, svc.DB.Create(ticket).Error)
	return ticket
}

func TestGetTicket_MissingRowIsNil(t *testing.T) {
	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	ticket, err := queries.GetTicket(svc.DB, 9999)
	require.NoError(t, err)
	assert.Nil(t, ticket)
}

func TestGetTicketByChannelAndStatus(t *testing.T) {
	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()
	ticket := createTicket(t, svc)

	found, err := queries.GetTicketByChannelAndStatus(svc.DB, ticket.ChannelID, constants.TICKET_STATUS_ROLE_SELECTION)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, ticket.ID, found.ID)

	// status must match, not just the channel
	found, err = queries.GetTicketByChannelAndStatus(svc.DB, ticket.ChannelID, constants.TICKET_STATUS_AWAITING_PAYMENT)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestClaimRole_FirstClaimWins(t *testing.T) {
	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()
	ticket := createTicket(t, svc)

	claimed, err := queries.ClaimRole(svc.DB, ticket.ID, "sender_id", "user-1")
	require.NoError(t, err)
	assert.True(t, claimed)

	// the slot is write-once
	claimed, err = queries.ClaimRole(svc.DB, ticket.ID, "sender_id", "user-2")
	require.NoError(t, err)
	assert.False(t, claimed)

	stored, err := queries.GetTicket(svc.DB, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.SenderID)
	assert.Equal(t, "user-1", *stored.SenderID)

	// the other slot is independent
	claimed, err = queries.ClaimRole(svc.DB, ticket.ID, "receiver_id", "user-2")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestClaimRole_RejectsUnknownColumn(t *testing.T) {
	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()
	ticket := createTicket(t, svc)

	_, err = queries.ClaimRole(svc.DB, ticket.ID, "status", "user-1")
	assert.Error(t, err)
}

func TestMarkTxHash_FirstDetectionWins(t *testing.T) {
	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()
	ticket := createTicket(t, svc)

	marked, err := queries.MarkTxHash(svc.DB, ticket.ID, "aa11")
	require.NoError(t, err)
	assert.True(t, marked)

	marked, err = queries.MarkTxHash(svc.DB, ticket.ID, "bb22")
	require.NoError(t, err)
	assert.False(t, marked)

	stored, err := queries.GetTicket(svc.DB, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.TxHash)
	assert.Equal(t, "aa11", *stored.TxHash)
}

func TestDeleteTicket_CascadesConfirmations(t *testing.T) {
	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()
	ticket := createTicket(t, svc)

	confirmation := db.Confirmation{
		TicketId: ticket.ID,
		UserID:   "user-1",
		Kind:     constants.CONFIRMATION_KIND_AMOUNT,
	}
	require.NoError(t, svc.DB.Create(&confirmation).Error)

	require.NoError(t, queries.DeleteTicket(svc.DB, ticket.ID))

	stored, err := queries.GetTicket(svc.DB, ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)

	count, err := queries.CountAmountConfirmations(svc.DB, ticket.ID, constants.CONFIRMATION_KIND_AMOUNT)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestListTicketsByStatus(t *testing.T) {
	svc, err := tests.CreateTestService(t)
	require.NoError(t, err)
	defer svc.Remove()

	first := createTicket(t, svc)
	second := &db.Ticket{
		ChannelID:     "channel-2",
		GuildID:       "guild-1",
		CreatorID:     "user-3",
		OtherUserID:   "user-4",
		CreatorGiving: "another item",
		OtherGiving:   "20 USD in LTC",
		Status:        constants.TICKET_STATUS_AWAITING_PAYMENT,
	}
	require.NoError(t, svc.DB.Create(second).Error)

	awaiting, err := queries.ListTicketsByStatus(svc.DB, constants.TICKET_STATUS_AWAITING_PAYMENT)
	require.NoError(t, err)
	require.Len(t, awaiting, 1)
	assert.Equal(t, second.ID, awaiting[0].ID)

	selecting, err := queries.ListTicketsByStatus(svc.DB, constants.TICKET_STATUS_ROLE_SELECTION)
	require.NoError(t, err)
	require.Len(t, selecting, 1)
	assert.Equal(t, first.ID, selecting[0].ID)
}
