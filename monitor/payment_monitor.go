package monitor

import (
	"context"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/nusenusewhen-bot/lights-mm/chain"
	"github.com/nusenusewhen-bot/lights-mm/constants"
	"github.com/nusenusewhen-bot/lights-mm/db/queries"
	"github.com/nusenusewhen-bot/lights-mm/events"
	"github.com/nusenusewhen-bot/lights-mm/logger"
)

// ConfirmedFunc is invoked exactly once per watched ticket, after the
// recorded deposit transaction is included in a block.
type ConfirmedFunc func(ctx context.Context, ticketID uint, txHash string)

type PaymentMonitor interface {
	Watch(ctx context.Context, ticketID uint)
	Stop(ticketID uint)
	StopAll()
}

// paymentMonitor runs one task per ticket in awaiting_payment. The task is
// a small internal loop (detect -> confirm -> report) under a single
// cancellation context, so an orphaned detect phase can never leave a
// dangling confirm phase behind. It keeps no state of its own beyond the
// ticket id: everything else is re-derived from the ticket row, which
// makes restarting a watch after a process restart safe.
type paymentMonitor struct {
	db              *gorm.DB
	chainClient     chain.Client
	eventPublisher  events.EventPublisher
	onConfirmed     ConfirmedFunc
	detectInterval  time.Duration
	confirmInterval time.Duration

	watchesLock sync.Mutex
	watches     map[uint]context.CancelFunc
}

func NewPaymentMonitor(gormDB *gorm.DB, chainClient chain.Client, eventPublisher events.EventPublisher, onConfirmed ConfirmedFunc) *paymentMonitor {
	return &paymentMonitor{
		db:              gormDB,
		chainClient:     chainClient,
		eventPublisher:  eventPublisher,
		onConfirmed:     onConfirmed,
		detectInterval:  constants.DepositPollInterval,
		confirmInterval: constants.ConfirmPollInterval,
		watches:         map[uint]context.CancelFunc{},
	}
}

// QualifiesDeposit reports whether an output of valueSats against an
// expected amount counts as the deposit. The absolute window absorbs
// sender-side fee rounding; the 95% floor deliberately tolerates slight
// underpayment.
func QualifiesDeposit(valueSats uint64, expectedSats uint64) bool {
	var diff uint64
	if valueSats > expectedSats {
		diff = valueSats - expectedSats
	} else {
		diff = expectedSats - valueSats
	}
	if diff < constants.DepositToleranceSats {
		return true
	}
	return valueSats*100 >= expectedSats*95
}

func (pm *paymentMonitor) Watch(ctx context.Context, ticketID uint) {
	pm.watchesLock.Lock()
	if _, exists := pm.watches[ticketID]; exists {
		pm.watchesLock.Unlock()
		return
	}
	watchCtx, cancel := context.WithCancel(ctx)
	pm.watches[ticketID] = cancel
	pm.watchesLock.Unlock()

	go func() {
		defer pm.Stop(ticketID)
		pm.run(watchCtx, ticketID)
	}()
}

func (pm *paymentMonitor) Stop(ticketID uint) {
	pm.watchesLock.Lock()
	defer pm.watchesLock.Unlock()
	if cancel, exists := pm.watches[ticketID]; exists {
		cancel()
		delete(pm.watches, ticketID)
	}
}

func (pm *paymentMonitor) StopAll() {
	pm.watchesLock.Lock()
	defer pm.watchesLock.Unlock()
	for ticketID, cancel := range pm.watches {
		cancel()
		delete(pm.watches, ticketID)
	}
}

func (pm *paymentMonitor) run(ctx context.Context, ticketID uint) {
	txHash, ok := pm.detect(ctx, ticketID)
	if !ok {
		return
	}
	pm.confirm(ctx, ticketID, txHash)
}

// detect polls the deposit address until a qualifying incoming transaction
// appears. Returns the recorded tx hash, or ok=false if the watch should
// end (cancellation, terminal ticket).
func (pm *paymentMonitor) detect(ctx context.Context, ticketID uint) (string, bool) {
	ticker := time.NewTicker(pm.detectInterval)
	defer ticker.Stop()

	for {
		ticket, err := queries.GetTicket(pm.db, ticketID)
		if err != nil {
			logger.Logger.Error().Err(err).Uint("ticket_id", ticketID).Msg("Failed to re-read ticket, stopping watch")
			return "", false
		}
		if ticket == nil || ticket.IsTerminal() {
			return "", false
		}

		// a hash already on the row means detection happened before a
		// restart; go straight to confirmation polling
		if ticket.TxHash != nil {
			return *ticket.TxHash, true
		}

		if ticket.Status != constants.TICKET_STATUS_AWAITING_PAYMENT {
			return "", false
		}

		txHash, found := pm.checkIncoming(ctx, ticket.DepositAddress, ticket.AmountSats)
		if found {
			// first-detected wins: the conditional update fails if another
			// poll already recorded a hash
			marked, err := queries.MarkTxHash(pm.db, ticketID, txHash)
			if err != nil {
				logger.Logger.Error().Err(err).Uint("ticket_id", ticketID).Msg("Failed to record incoming tx hash")
			} else if marked {
				logger.Logger.Info().
					Uint("ticket_id", ticketID).
					Str("tx_hash", txHash).
					Msg("Deposit transaction detected")
				pm.eventPublisher.Publish(&events.Event{
					Event: constants.EVENT_PAYMENT_DETECTED,
					Properties: &PaymentDetectedProperties{
						TicketID: ticketID,
						TxHash:   txHash,
					},
				})
				return txHash, true
			}
		}

		select {
		case <-ctx.Done():
			return "", false
		case <-ticker.C:
		}
	}
}

// confirm polls for block inclusion of the recorded transaction.
func (pm *paymentMonitor) confirm(ctx context.Context, ticketID uint, txHash string) {
	ticker := time.NewTicker(pm.confirmInterval)
	defer ticker.Stop()

	for {
		ticket, err := queries.GetTicket(pm.db, ticketID)
		if err != nil {
			logger.Logger.Error().Err(err).Uint("ticket_id", ticketID).Msg("Failed to re-read ticket, stopping watch")
			return
		}
		if ticket == nil || ticket.IsTerminal() {
			return
		}

		confirmed, err := pm.chainClient.TransactionConfirmed(ctx, txHash)
		if err != nil {
			// transient read failures are not ticket-level errors; the
			// poll just continues at the next interval
			logger.Logger.Warn().Err(err).Str("tx_hash", txHash).Msg("Confirmation check failed")
		} else if confirmed {
			logger.Logger.Info().
				Uint("ticket_id", ticketID).
				Str("tx_hash", txHash).
				Msg("Deposit transaction confirmed")
			pm.onConfirmed(ctx, ticketID, txHash)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (pm *paymentMonitor) checkIncoming(ctx context.Context, address string, expectedSats uint64) (string, bool) {
	txs, err := pm.chainClient.AddressTransactions(ctx, address)
	if err != nil {
		logger.Logger.Warn().Err(err).Str("address", address).Msg("Deposit poll failed")
		return "", false
	}

	for _, tx := range txs {
		for _, output := range tx.Outputs {
			if output.Recipient != address || output.ValueSats == 0 {
				continue
			}
			if QualifiesDeposit(output.ValueSats, expectedSats) {
				return tx.Hash, true
			}
		}
	}
	return "", false
}

type PaymentDetectedProperties struct {
	TicketID uint   `json:"ticket_id"`
	TxHash   string `json:"tx_hash"`
}
