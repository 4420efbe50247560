package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gorm.io/gorm"

	"github.com/nusenusewhen-bot/lights-mm/chain"
	"github.com/nusenusewhen-bot/lights-mm/config"
	"github.com/nusenusewhen-bot/lights-mm/constants"
	"github.com/nusenusewhen-bot/lights-mm/db"
	"github.com/nusenusewhen-bot/lights-mm/db/migrations"
	"github.com/nusenusewhen-bot/lights-mm/events"
	"github.com/nusenusewhen-bot/lights-mm/logger"
	"github.com/nusenusewhen-bot/lights-mm/pkg/version"
	"github.com/nusenusewhen-bot/lights-mm/tickets"
	"github.com/nusenusewhen-bot/lights-mm/wallet"
)

type service struct {
	cfg            config.Config
	db             *gorm.DB
	eventPublisher events.EventPublisher
	walletService  wallet.WalletService
	ticketsService tickets.TicketsService
	chainClient    chain.Client
	ctx            context.Context
}

func NewService(ctx context.Context) (*service, error) {
	// Load config from environment variables / .env file
	godotenv.Load(".env")
	appConfig := &config.AppConfig{}
	err := envconfig.Process("", appConfig)
	if err != nil {
		return nil, err
	}

	logger.Init(appConfig.LogLevel)
	logger.Logger.Info().Msg("lights-mm " + version.Tag)

	if appConfig.Workdir == "" {
		appConfig.Workdir = filepath.Join(xdg.DataHome, "/lights-mm")
		logger.Logger.Info().Str("workdir", appConfig.Workdir).Msg("No workdir specified, using default")
	}
	// make sure workdir exists
	os.MkdirAll(appConfig.Workdir, os.ModePerm)

	if appConfig.LogToFile {
		err = logger.AddFileLogger(appConfig.Workdir)
		if err != nil {
			return nil, err
		}
	}

	// If DATABASE_URI is a URI or a path, leave it unchanged.
	// If it only contains a filename, prepend the workdir.
	if !strings.HasPrefix(appConfig.DatabaseUri, "file:") {
		databasePath, _ := filepath.Split(appConfig.DatabaseUri)
		if databasePath == "" {
			appConfig.DatabaseUri = filepath.Join(appConfig.Workdir, appConfig.DatabaseUri)
		}
	}

	gormDB, err := db.NewDB(appConfig.DatabaseUri, appConfig.LogDBQueries)
	if err != nil {
		return nil, err
	}

	err = migrations.Migrate(gormDB)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to migrate")
		return nil, err
	}

	cfg, err := config.NewConfig(appConfig, gormDB)
	if err != nil {
		return nil, err
	}

	mnemonic, err := cfg.Get(config.MnemonicKey)
	if err != nil {
		return nil, err
	}
	if mnemonic == "" {
		return nil, errors.New("no mnemonic configured, set MNEMONIC")
	}

	netParams, err := wallet.NetParamsFor(cfg.GetNetwork())
	if err != nil {
		return nil, err
	}

	keys, err := wallet.NewKeys(mnemonic, netParams)
	if err != nil {
		return nil, err
	}

	splitPolicy, err := wallet.NewSplitPolicy(
		constants.FeeSharePercent,
		constants.ReceiverSharePercent,
		constants.RetainedSharePercent,
	)
	if err != nil {
		return nil, err
	}

	eventPublisher := events.NewEventPublisher()

	chainClient := chain.NewBlockchairClient(
		appConfig.ChainApiUrl,
		appConfig.ChainApiToken,
		appConfig.PriceApiUrl,
	)

	walletService := wallet.NewWalletService(keys, chainClient, netParams, splitPolicy)
	ticketsService := tickets.NewTicketsService(ctx, gormDB, cfg, eventPublisher, walletService, chainClient)

	err = ticketsService.ResumeMonitors(ctx)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to resume payment watches")
		return nil, err
	}

	svc := &service{
		cfg:            cfg,
		db:             gormDB,
		eventPublisher: eventPublisher,
		walletService:  walletService,
		ticketsService: ticketsService,
		chainClient:    chainClient,
		ctx:            ctx,
	}

	return svc, nil
}

func (svc *service) GetDB() *gorm.DB {
	return svc.db
}

func (svc *service) GetConfig() config.Config {
	return svc.cfg
}

func (svc *service) GetEventPublisher() events.EventPublisher {
	return svc.eventPublisher
}

func (svc *service) GetTicketsService() tickets.TicketsService {
	return svc.ticketsService
}

func (svc *service) GetWalletService() wallet.WalletService {
	return svc.walletService
}

func (svc *service) GetChainClient() chain.Client {
	return svc.chainClient
}

func (svc *service) Shutdown() {
	svc.ticketsService.Stop()
	logger.Logger.Info().Msg("Service exited")
}
