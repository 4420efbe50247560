package tickets

// Inbound actions from the front-end as a closed tagged union. Dispatch
// happens on the concrete variant, never on string prefixes, so two
// actions can never collide by name.

type Action interface {
	isAction()
}

type RoleSelected struct {
	TicketID uint
	Role     string // constants.TRADE_ROLE_SENDER or _RECEIVER
	UserID   string
}

type RoleReset struct {
	TicketID uint
	UserID   string
}

type AmountEntered struct {
	TicketID uint
	UserID   string
	// raw fiat input as typed; parsing failures are validation errors
	Amount string
}

type AmountConfirmed struct {
	TicketID uint
	UserID   string
}

type AmountReset struct {
	TicketID uint
	UserID   string
}

type ReceiverAddressProvided struct {
	TicketID uint
	UserID   string
	Address  string
}

type TicketDeleteRequested struct {
	TicketID uint
	UserID   string
}

func (RoleSelected) isAction()            {}
func (RoleReset) isAction()               {}
func (AmountEntered) isAction()           {}
func (AmountConfirmed) isAction()         {}
func (AmountReset) isAction()             {}
func (ReceiverAddressProvided) isAction() {}
func (TicketDeleteRequested) isAction()   {}
