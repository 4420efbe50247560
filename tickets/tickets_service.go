package tickets

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nusenusewhen-bot/lights-mm/chain"
	"github.com/nusenusewhen-bot/lights-mm/config"
	"github.com/nusenusewhen-bot/lights-mm/constants"
	"github.com/nusenusewhen-bot/lights-mm/db"
	"github.com/nusenusewhen-bot/lights-mm/db/queries"
	"github.com/nusenusewhen-bot/lights-mm/events"
	"github.com/nusenusewhen-bot/lights-mm/logger"
	"github.com/nusenusewhen-bot/lights-mm/monitor"
	"github.com/nusenusewhen-bot/lights-mm/wallet"
)

// guard keys for one-shot actions
const (
	guardRoleSender   = "role_sender"
	guardRoleReceiver = "role_receiver"
)

type ticketsService struct {
	// service lifetime context; deposit watches are tied to it, not to
	// the request that armed them
	ctx            context.Context
	db             *gorm.DB
	cfg            config.Config
	eventPublisher events.EventPublisher
	walletService  wallet.WalletService
	chainClient    chain.Client
	paymentMonitor monitor.PaymentMonitor
	guards         *guardRegistry
}

type TicketsService interface {
	CreateTicket(ctx context.Context, channelID, guildID, creatorID, otherUserID, creatorGiving, otherGiving string) (*db.Ticket, error)
	HandleAction(ctx context.Context, action Action) error
	GetTicket(ticketID uint) (*db.Ticket, error)
	ListTickets() ([]db.Ticket, error)
	ResumeMonitors(ctx context.Context) error
	Stop()
}

func NewTicketsService(ctx context.Context, gormDB *gorm.DB, cfg config.Config, eventPublisher events.EventPublisher, walletService wallet.WalletService, chainClient chain.Client) *ticketsService {
	svc := &ticketsService{
		ctx:            ctx,
		db:             gormDB,
		cfg:            cfg,
		eventPublisher: eventPublisher,
		walletService:  walletService,
		chainClient:    chainClient,
		guards:         newGuardRegistry(),
	}
	svc.paymentMonitor = monitor.NewPaymentMonitor(gormDB, chainClient, eventPublisher, svc.handleDepositConfirmed)
	return svc
}

func (svc *ticketsService) Stop() {
	svc.paymentMonitor.StopAll()
}

func (svc *ticketsService) CreateTicket(ctx context.Context, channelID, guildID, creatorID, otherUserID, creatorGiving, otherGiving string) (*db.Ticket, error) {
	if creatorID == otherUserID {
		return nil, NewValidationError("cannot open a trade with yourself")
	}

	ticket := db.Ticket{
		ChannelID:     channelID,
		GuildID:       guildID,
		CreatorID:     creatorID,
		OtherUserID:   otherUserID,
		CreatorGiving: creatorGiving,
		OtherGiving:   otherGiving,
		Status:        constants.TICKET_STATUS_ROLE_SELECTION,
	}
	err := svc.db.Create(&ticket).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	logger.Logger.Info().
		Uint("ticket_id", ticket.ID).
		Str("channel_id", channelID).
		Msg("Created ticket")

	return &ticket, nil
}

func (svc *ticketsService) GetTicket(ticketID uint) (*db.Ticket, error) {
	ticket, err := queries.GetTicket(svc.db, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, NewTicketNotFoundError()
	}
	return ticket, nil
}

func (svc *ticketsService) ListTickets() ([]db.Ticket, error) {
	tickets := []db.Ticket{}
	err := svc.db.Order("created_at desc").Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// HandleAction dispatches an inbound front-end action on its variant.
func (svc *ticketsService) HandleAction(ctx context.Context, action Action) error {
	var err error
	switch a := action.(type) {
	case RoleSelected:
		err = svc.handleRoleSelected(ctx, a)
	case RoleReset:
		err = svc.handleRoleReset(ctx, a)
	case AmountEntered:
		err = svc.handleAmountEntered(ctx, a)
	case AmountConfirmed:
		err = svc.handleAmountConfirmed(ctx, a)
	case AmountReset:
		err = svc.handleAmountReset(ctx, a)
	case ReceiverAddressProvided:
		err = svc.handleReceiverAddressProvided(ctx, a)
	case TicketDeleteRequested:
		err = svc.handleTicketDeleteRequested(ctx, a)
	default:
		err = fmt.Errorf("unknown action type %T", action)
	}
	return err
}

func (svc *ticketsService) handleRoleSelected(ctx context.Context, action RoleSelected) error {
	var column, guardKey string
	switch action.Role {
	case constants.TRADE_ROLE_SENDER:
		column, guardKey = "sender_id", guardRoleSender
	case constants.TRADE_ROLE_RECEIVER:
		column, guardKey = "receiver_id", guardRoleReceiver
	default:
		return NewValidationError("unknown role: " + action.Role)
	}

	ticket, err := svc.requireTicket(action.TicketID)
	if err != nil {
		return err
	}
	if ticket.Status != constants.TICKET_STATUS_ROLE_SELECTION {
		return NewStateError("roles were already chosen for this ticket")
	}
	if !ticket.IsPartyToTicket(action.UserID) && !svc.cfg.IsAdmin(action.UserID) {
		return NewPermissionError("you are not part of this trade")
	}

	// sender and receiver must be distinct people
	if column == "sender_id" && ticket.ReceiverID != nil && *ticket.ReceiverID == action.UserID {
		return NewStateError("you already claimed the receiver role")
	}
	if column == "receiver_id" && ticket.SenderID != nil && *ticket.SenderID == action.UserID {
		return NewStateError("you already claimed the sender role")
	}

	// one-shot within this process; the conditional update below is what
	// protects the slot across restarts
	if !svc.guards.checkAndSet(action.TicketID, guardKey) {
		return NewStateError("role already selected")
	}

	claimed, err := queries.ClaimRole(svc.db, action.TicketID, column, action.UserID)
	if err != nil {
		return err
	}
	if !claimed {
		return NewStateError("role already selected")
	}

	ticket, err = svc.requireTicket(action.TicketID)
	if err != nil {
		return err
	}

	if ticket.HasBothRoles() {
		err = svc.db.Model(&db.Ticket{}).
			Where("id = ? AND status = ?", ticket.ID, constants.TICKET_STATUS_ROLE_SELECTION).
			Update("status", constants.TICKET_STATUS_AWAITING_AMOUNT).Error
		if err != nil {
			return err
		}
		ticket.Status = constants.TICKET_STATUS_AWAITING_AMOUNT
	}

	properties := &RoleAssignedProperties{
		TicketID:     ticket.ID,
		Role:         action.Role,
		UserID:       action.UserID,
		TicketStatus: ticket.Status,
	}
	if ticket.SenderID != nil {
		properties.SenderID = *ticket.SenderID
	}
	if ticket.ReceiverID != nil {
		properties.ReceiverID = *ticket.ReceiverID
	}
	svc.eventPublisher.Publish(&events.Event{
		Event:      constants.EVENT_ROLE_ASSIGNED,
		Properties: properties,
	})

	return nil
}

func (svc *ticketsService) handleRoleReset(ctx context.Context, action RoleReset) error {
	if !svc.cfg.IsAdmin(action.UserID) {
		return NewPermissionError("only an administrator can reset roles")
	}

	ticket, err := svc.requireTicket(action.TicketID)
	if err != nil {
		return err
	}
	if ticket.IsTerminal() {
		return NewStateError("ticket is closed")
	}

	err = svc.db.Model(&db.Ticket{}).
		Where("id = ?", ticket.ID).
		Updates(map[string]interface{}{
			"sender_id":   nil,
			"receiver_id": nil,
			"status":      constants.TICKET_STATUS_ROLE_SELECTION,
		}).Error
	if err != nil {
		return err
	}

	svc.guards.clear(ticket.ID, guardRoleSender, guardRoleReceiver)

	svc.eventPublisher.Publish(&events.Event{
		Event:      constants.EVENT_ROLES_RESET,
		Properties: &RolesResetProperties{TicketID: ticket.ID},
	})

	return nil
}

func (svc *ticketsService) handleAmountEntered(ctx context.Context, action AmountEntered) error {
	ticket, err := svc.requireTicket(action.TicketID)
	if err != nil {
		return err
	}
	if ticket.Status != constants.TICKET_STATUS_AWAITING_AMOUNT {
		return NewStateError("ticket is not awaiting an amount")
	}
	if ticket.SenderID == nil || *ticket.SenderID != action.UserID {
		return NewPermissionError("only the sender can enter the amount")
	}

	fiatAmount, err := decimal.NewFromString(action.Amount)
	if err != nil || !fiatAmount.IsPositive() {
		return NewValidationError("please enter a valid positive amount, e.g. 50.00")
	}

	priceUSD := svc.chainClient.PriceUSD(ctx)
	amountSats := wallet.FiatToSats(fiatAmount, priceUSD)
	if amountSats == 0 {
		return NewValidationError("amount is too small to settle on-chain")
	}

	amountUSD, _ := fiatAmount.Float64()
	err = svc.db.Model(&db.Ticket{}).
		Where("id = ? AND status = ?", ticket.ID, constants.TICKET_STATUS_AWAITING_AMOUNT).
		Updates(map[string]interface{}{
			"amount_usd":  amountUSD,
			"amount_sats": amountSats,
			"status":      constants.TICKET_STATUS_AMOUNT_ENTERED,
		}).Error
	if err != nil {
		return err
	}

	svc.eventPublisher.Publish(&events.Event{
		Event: constants.EVENT_AMOUNT_PROPOSED,
		Properties: &AmountProposedProperties{
			TicketID:   ticket.ID,
			AmountUSD:  amountUSD,
			AmountSats: amountSats,
			AmountLtc:  wallet.LtcString(amountSats),
			PriceUSD:   priceUSD.StringFixed(2),
		},
	})

	return nil
}

func (svc *ticketsService) handleAmountConfirmed(ctx context.Context, action AmountConfirmed) error {
	ticket, err := svc.requireTicket(action.TicketID)
	if err != nil {
		return err
	}
	if ticket.Status != constants.TICKET_STATUS_AMOUNT_ENTERED {
		return NewStateError("ticket is not awaiting amount confirmations")
	}
	if !ticket.IsParticipant(action.UserID) {
		return NewPermissionError("you are not part of this trade")
	}

	confirmation := db.Confirmation{
		TicketId: ticket.ID,
		UserID:   action.UserID,
		Kind:     constants.CONFIRMATION_KIND_AMOUNT,
	}
	err = svc.db.Create(&confirmation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return NewStateError("you already confirmed the amount")
		}
		return err
	}

	count, err := queries.CountAmountConfirmations(svc.db, ticket.ID, constants.CONFIRMATION_KIND_AMOUNT)
	if err != nil {
		return err
	}

	svc.eventPublisher.Publish(&events.Event{
		Event: constants.EVENT_AMOUNT_CONFIRMED,
		Properties: &AmountConfirmedProperties{
			TicketID:      ticket.ID,
			UserID:        action.UserID,
			Confirmations: count,
		},
	})

	if count >= constants.REQUIRED_AMOUNT_CONFIRMATIONS {
		return svc.proceedToPayment(ctx, ticket.ID)
	}
	return nil
}

func (svc *ticketsService) handleAmountReset(ctx context.Context, action AmountReset) error {
	ticket, err := svc.requireTicket(action.TicketID)
	if err != nil {
		return err
	}
	if !ticket.IsParticipant(action.UserID) && !svc.cfg.IsAdmin(action.UserID) {
		return NewPermissionError("you are not part of this trade")
	}
	if ticket.Status != constants.TICKET_STATUS_AMOUNT_ENTERED {
		return NewStateError("there is no proposed amount to reset")
	}

	err = svc.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("ticket_id = ? AND kind = ?", ticket.ID, constants.CONFIRMATION_KIND_AMOUNT).
			Delete(&db.Confirmation{}).Error
		if err != nil {
			return err
		}
		return tx.Model(&db.Ticket{}).
			Where("id = ?", ticket.ID).
			Update("status", constants.TICKET_STATUS_AWAITING_AMOUNT).Error
	})
	if err != nil {
		return err
	}

	properties := &AmountResetProperties{TicketID: ticket.ID}
	if ticket.SenderID != nil {
		properties.SenderID = *ticket.SenderID
	}
	svc.eventPublisher.Publish(&events.Event{
		Event:      constants.EVENT_AMOUNT_RESET,
		Properties: properties,
	})

	return nil
}

// proceedToPayment arms the deposit watch once both participants have
// confirmed the amount.
func (svc *ticketsService) proceedToPayment(ctx context.Context, ticketID uint) error {
	ticket, err := svc.requireTicket(ticketID)
	if err != nil {
		return err
	}
	if ticket.Status != constants.TICKET_STATUS_AMOUNT_ENTERED {
		return NewStateError("ticket is not ready for payment")
	}

	depositAddress, err := svc.walletService.DeriveAddress(0)
	if err != nil {
		return fmt.Errorf("failed to derive deposit address: %w", err)
	}

	// deposit address is set at most once per ticket
	result := svc.db.Model(&db.Ticket{}).
		Where("id = ? AND status = ?", ticket.ID, constants.TICKET_STATUS_AMOUNT_ENTERED).
		Updates(map[string]interface{}{
			"deposit_address": depositAddress,
			"status":          constants.TICKET_STATUS_AWAITING_PAYMENT,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return NewStateError("ticket already advanced to payment")
	}

	properties := &PaymentRequestedProperties{
		TicketID:       ticket.ID,
		DepositAddress: depositAddress,
		AmountSats:     ticket.AmountSats,
		AmountLtc:      wallet.LtcString(ticket.AmountSats),
	}
	if ticket.SenderID != nil {
		properties.SenderID = *ticket.SenderID
	}
	svc.eventPublisher.Publish(&events.Event{
		Event:      constants.EVENT_PAYMENT_REQUESTED,
		Properties: properties,
	})

	svc.paymentMonitor.Watch(svc.ctx, ticket.ID)

	return nil
}

// handleDepositConfirmed is the monitor's report of block inclusion. It
// transfers the fee share and hands the ticket to the receiver-address
// step.
func (svc *ticketsService) handleDepositConfirmed(ctx context.Context, ticketID uint, txHash string) {
	// the send-in-progress status both gates re-entry and survives as a
	// breadcrumb if the process dies mid-send
	result := svc.db.Model(&db.Ticket{}).
		Where("id = ? AND status = ?", ticketID, constants.TICKET_STATUS_AWAITING_PAYMENT).
		Update("status", constants.TICKET_STATUS_SENDING)
	if result.Error != nil {
		logger.Logger.Error().Err(result.Error).Uint("ticket_id", ticketID).Msg("Failed to mark ticket sending")
		return
	}
	if result.RowsAffected == 0 {
		// cancelled out-of-band or already handled
		return
	}

	ticket, err := queries.GetTicket(svc.db, ticketID)
	if err != nil || ticket == nil {
		logger.Logger.Error().Err(err).Uint("ticket_id", ticketID).Msg("Failed to load ticket after confirmation")
		return
	}

	split := svc.walletService.SplitPolicy().Split(ticket.AmountSats)

	properties := &PaymentConfirmedProperties{
		TicketID:     ticket.ID,
		TxHash:       txHash,
		TotalSats:    ticket.AmountSats,
		FeeSats:      split.FeeSats,
		ReceiverSats: split.ReceiverSats,
		RetainedSats: split.RetainedSats,
	}
	if ticket.ReceiverID != nil {
		properties.ReceiverID = *ticket.ReceiverID
	}
	svc.eventPublisher.Publish(&events.Event{
		Event:      constants.EVENT_PAYMENT_CONFIRMED,
		Properties: properties,
	})

	feeWallet := svc.cfg.GetFeeWallet()
	if feeWallet != "" && split.FeeSats > 0 {
		feeTxHash, err := svc.walletService.BuildAndBroadcastSend(ctx, feeWallet, split.FeeSats, 0)
		if err != nil {
			// fatal per attempt, no automatic retry; the share stays in
			// the hot wallet for a manual admin send
			logger.Logger.Error().Err(err).Uint("ticket_id", ticket.ID).Msg("Fee share transfer failed")
			svc.publishTicketError(ticket.ID, err)
		} else {
			svc.eventPublisher.Publish(&events.Event{
				Event: constants.EVENT_SETTLEMENT_SENT,
				Properties: &SettlementSentProperties{
					TicketID:   ticket.ID,
					Share:      "fee",
					ToAddress:  feeWallet,
					AmountSats: split.FeeSats,
					TxHash:     feeTxHash,
				},
			})
		}
	}

	err = svc.db.Model(&db.Ticket{}).
		Where("id = ?", ticket.ID).
		Update("status", constants.TICKET_STATUS_AWAITING_RECEIVER_ADDRESS).Error
	if err != nil {
		logger.Logger.Error().Err(err).Uint("ticket_id", ticket.ID).Msg("Failed to advance ticket to receiver address step")
	}
}

func (svc *ticketsService) handleReceiverAddressProvided(ctx context.Context, action ReceiverAddressProvided) error {
	ticket, err := svc.requireTicket(action.TicketID)
	if err != nil {
		return err
	}
	if ticket.Status != constants.TICKET_STATUS_AWAITING_RECEIVER_ADDRESS {
		return NewStateError("ticket is not awaiting a withdrawal address")
	}
	if ticket.ReceiverID == nil || *ticket.ReceiverID != action.UserID {
		return NewPermissionError("only the receiver can provide the address")
	}
	if !wallet.IsValidAddress(action.Address) {
		return NewValidationError("invalid LTC address format")
	}

	// gate the send: only one handler can move the ticket into sending
	result := svc.db.Model(&db.Ticket{}).
		Where("id = ? AND status = ?", ticket.ID, constants.TICKET_STATUS_AWAITING_RECEIVER_ADDRESS).
		Update("status", constants.TICKET_STATUS_SENDING)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return NewStateError("a settlement send is already in progress")
	}

	split := svc.walletService.SplitPolicy().Split(ticket.AmountSats)

	txHash, err := svc.walletService.BuildAndBroadcastSend(ctx, action.Address, split.ReceiverSats, 0)
	if err != nil {
		// put the ticket back so the receiver can retry with the same or
		// another address
		revertErr := svc.db.Model(&db.Ticket{}).
			Where("id = ?", ticket.ID).
			Update("status", constants.TICKET_STATUS_AWAITING_RECEIVER_ADDRESS).Error
		if revertErr != nil {
			logger.Logger.Error().Err(revertErr).Uint("ticket_id", ticket.ID).Msg("Failed to revert ticket after failed send")
		}
		svc.publishTicketError(ticket.ID, err)
		return err
	}

	svc.eventPublisher.Publish(&events.Event{
		Event: constants.EVENT_SETTLEMENT_SENT,
		Properties: &SettlementSentProperties{
			TicketID:   ticket.ID,
			Share:      "receiver",
			ToAddress:  action.Address,
			AmountSats: split.ReceiverSats,
			TxHash:     txHash,
		},
	})

	err = svc.db.Model(&db.Ticket{}).
		Where("id = ?", ticket.ID).
		Update("status", constants.TICKET_STATUS_COMPLETED).Error
	if err != nil {
		return err
	}

	svc.guards.remove(ticket.ID)
	svc.eventPublisher.Publish(&events.Event{
		Event:      constants.EVENT_TICKET_COMPLETED,
		Properties: &TicketCompletedProperties{TicketID: ticket.ID},
	})

	logger.Logger.Info().
		Uint("ticket_id", ticket.ID).
		Str("tx_hash", txHash).
		Msg("Ticket completed")

	return nil
}

func (svc *ticketsService) handleTicketDeleteRequested(ctx context.Context, action TicketDeleteRequested) error {
	ticket, err := svc.requireTicket(action.TicketID)
	if err != nil {
		return err
	}
	if !ticket.IsPartyToTicket(action.UserID) && !svc.cfg.IsAdmin(action.UserID) {
		return NewPermissionError("not your ticket")
	}
	if ticket.Status == constants.TICKET_STATUS_COMPLETED {
		return NewStateError("ticket is already completed")
	}

	svc.paymentMonitor.Stop(ticket.ID)
	svc.guards.remove(ticket.ID)

	err = queries.DeleteTicket(svc.db, ticket.ID)
	if err != nil {
		return err
	}

	svc.eventPublisher.Publish(&events.Event{
		Event: constants.EVENT_TICKET_CANCELLED,
		Properties: &TicketCancelledProperties{
			TicketID: ticket.ID,
			UserID:   action.UserID,
		},
	})

	logger.Logger.Info().Uint("ticket_id", ticket.ID).Str("user_id", action.UserID).Msg("Ticket cancelled")

	return nil
}

// ResumeMonitors re-arms deposit watches after a restart. Watches are
// stateless aside from the ticket id, so re-deriving them from ticket
// state is safe.
func (svc *ticketsService) ResumeMonitors(ctx context.Context) error {
	tickets, err := queries.ListTicketsByStatus(svc.db, constants.TICKET_STATUS_AWAITING_PAYMENT)
	if err != nil {
		return err
	}
	for _, ticket := range tickets {
		logger.Logger.Info().Uint("ticket_id", ticket.ID).Msg("Resuming payment watch")
		svc.paymentMonitor.Watch(svc.ctx, ticket.ID)
	}

	// tickets that died mid-send need an operator decision, not a retry
	stuck, err := queries.ListTicketsByStatus(svc.db, constants.TICKET_STATUS_SENDING)
	if err != nil {
		return err
	}
	for _, ticket := range stuck {
		logger.Logger.Warn().Uint("ticket_id", ticket.ID).Msg("Ticket was mid-send at shutdown, manual review required")
	}

	return nil
}

func (svc *ticketsService) requireTicket(ticketID uint) (*db.Ticket, error) {
	ticket, err := queries.GetTicket(svc.db, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket == nil {
		return nil, NewTicketNotFoundError()
	}
	return ticket, nil
}

func (svc *ticketsService) publishTicketError(ticketID uint, err error) {
	svc.eventPublisher.Publish(&events.Event{
		Event: constants.EVENT_TICKET_ERROR,
		Properties: &TicketErrorProperties{
			TicketID: ticketID,
			Message:  err.Error(),
		},
	})
}
