package tickets

// Properties carried on outbound notification events. The engine never
// renders text; front-ends turn these into messages.

type RoleAssignedProperties struct {
	TicketID     uint   `json:"ticket_id"`
	Role         string `json:"role"`
	UserID       string `json:"user_id"`
	TicketStatus string `json:"ticket_status"`
	SenderID     string `json:"sender_id,omitempty"`
	ReceiverID   string `json:"receiver_id,omitempty"`
}

type RolesResetProperties struct {
	TicketID uint `json:"ticket_id"`
}

type AmountProposedProperties struct {
	TicketID   uint    `json:"ticket_id"`
	AmountUSD  float64 `json:"amount_usd"`
	AmountSats uint64  `json:"amount_sats"`
	AmountLtc  string  `json:"amount_ltc"`
	PriceUSD   string  `json:"price_usd"`
}

type AmountConfirmedProperties struct {
	TicketID      uint   `json:"ticket_id"`
	UserID        string `json:"user_id"`
	Confirmations int64  `json:"confirmations"`
}

type AmountResetProperties struct {
	TicketID uint   `json:"ticket_id"`
	SenderID string `json:"sender_id"`
}

type PaymentRequestedProperties struct {
	TicketID       uint   `json:"ticket_id"`
	DepositAddress string `json:"deposit_address"`
	AmountSats     uint64 `json:"amount_sats"`
	AmountLtc      string `json:"amount_ltc"`
	SenderID       string `json:"sender_id"`
}

type PaymentConfirmedProperties struct {
	TicketID     uint   `json:"ticket_id"`
	TxHash       string `json:"tx_hash"`
	TotalSats    uint64 `json:"total_sats"`
	FeeSats      uint64 `json:"fee_sats"`
	ReceiverSats uint64 `json:"receiver_sats"`
	RetainedSats uint64 `json:"retained_sats"`
	ReceiverID   string `json:"receiver_id"`
}

type SettlementSentProperties struct {
	TicketID   uint   `json:"ticket_id"`
	Share      string `json:"share"` // "fee" or "receiver"
	ToAddress  string `json:"to_address"`
	AmountSats uint64 `json:"amount_sats"`
	TxHash     string `json:"tx_hash"`
}

type TicketCompletedProperties struct {
	TicketID uint `json:"ticket_id"`
}

type TicketCancelledProperties struct {
	TicketID uint   `json:"ticket_id"`
	UserID   string `json:"user_id"`
}

type TicketErrorProperties struct {
	TicketID uint   `json:"ticket_id"`
	Message  string `json:"message"`
}
