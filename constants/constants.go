package constants

import "time"

// shared constants used by multiple packages

const (
	TICKET_STATUS_ROLE_SELECTION            = "role_selection"
	TICKET_STATUS_AWAITING_AMOUNT           = "awaiting_amount"
	TICKET_STATUS_AMOUNT_ENTERED            = "amount_entered"
	TICKET_STATUS_AWAITING_PAYMENT          = "awaiting_payment"
	TICKET_STATUS_SENDING                   = "sending"
	TICKET_STATUS_AWAITING_RECEIVER_ADDRESS = "awaiting_receiver_address"
	TICKET_STATUS_COMPLETED                 = "completed"
	TICKET_STATUS_CANCELLED                 = "cancelled"
)

func TerminalTicketStatuses() []string {
	return []string{
		TICKET_STATUS_COMPLETED,
		TICKET_STATUS_CANCELLED,
	}
}

const (
	CONFIRMATION_KIND_AMOUNT = "amount"

	// confirmations of kind "amount" required to advance a ticket
	REQUIRED_AMOUNT_CONFIRMATIONS = 2
)

const (
	TRADE_ROLE_SENDER   = "sender"
	TRADE_ROLE_RECEIVER = "receiver"
)

const (
	SatsPerCoin = 100_000_000

	// flat network fee applied to every settlement transaction
	FixedTxFeeSats = 10_000

	// outputs at or below this are folded into the fee
	DustLimitSats = 546

	// deposit matching tolerance: absolute window, or a fraction of the
	// expected amount to absorb sender-side fee rounding
	DepositToleranceSats    = 10_000
	DepositUnderpayFraction = 0.95
)

const (
	// three-way settlement split, must sum to 100
	FeeSharePercent      = 20
	ReceiverSharePercent = 40
	RetainedSharePercent = 40
)

const (
	DepositPollInterval = 20 * time.Second
	ConfirmPollInterval = 30 * time.Second
)

// fallback when the price feed is unreachable
const DefaultPriceUSD = 85

const (
	EVENT_ROLE_ASSIGNED     = "mm_role_assigned"
	EVENT_ROLES_RESET       = "mm_roles_reset"
	EVENT_AMOUNT_PROPOSED   = "mm_amount_proposed"
	EVENT_AMOUNT_CONFIRMED  = "mm_amount_confirmed"
	EVENT_AMOUNT_RESET      = "mm_amount_reset"
	EVENT_PAYMENT_REQUESTED = "mm_payment_requested"
	EVENT_PAYMENT_DETECTED  = "mm_payment_detected"
	EVENT_PAYMENT_CONFIRMED = "mm_payment_confirmed"
	EVENT_SETTLEMENT_SENT   = "mm_settlement_sent"
	EVENT_TICKET_COMPLETED  = "mm_ticket_completed"
	EVENT_TICKET_CANCELLED  = "mm_ticket_cancelled"
	EVENT_TICKET_ERROR      = "mm_ticket_error"
)
