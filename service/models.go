package service

import (
	"gorm.io/gorm"

	"github.com/nusenusewhen-bot/lights-mm/chain"
	"github.com/nusenusewhen-bot/lights-mm/config"
	"github.com/nusenusewhen-bot/lights-mm/events"
	"github.com/nusenusewhen-bot/lights-mm/tickets"
	"github.com/nusenusewhen-bot/lights-mm/wallet"
)

type Service interface {
	GetDB() *gorm.DB
	GetConfig() config.Config
	GetEventPublisher() events.EventPublisher
	GetTicketsService() tickets.TicketsService
	GetWalletService() wallet.WalletService
	GetChainClient() chain.Client
	Shutdown()
}
