package tests

import (
	"os"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/nusenusewhen-bot/lights-mm/config"
	"github.com/nusenusewhen-bot/lights-mm/constants"
	"github.com/nusenusewhen-bot/lights-mm/db"
	"github.com/nusenusewhen-bot/lights-mm/db/migrations"
	"github.com/nusenusewhen-bot/lights-mm/events"
	"github.com/nusenusewhen-bot/lights-mm/logger"
	"github.com/nusenusewhen-bot/lights-mm/tests/mocks"
	"github.com/nusenusewhen-bot/lights-mm/wallet"
)

// standard BIP39 test vector mnemonic, never holds real funds
const TestMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

const TestAdminID = "admin-1"

// a syntactically valid legacy fee wallet address
const TestFeeWallet = "LVg2kJoFNg45Nbpy53h7Fe1wKyeXVRhMH9"

type TestService struct {
	Cfg            config.Config
	DB             *gorm.DB
	EventPublisher events.EventPublisher
	ChainClient    *mocks.MockChainClient
	WalletService  wallet.WalletService

	dbFilePath string
}

func CreateTestService(t *testing.T) (*TestService, error) {
	logger.Init("")

	dbFilePath := filepath.Join(t.TempDir(), "test.db")

	gormDB, err := db.NewDB(dbFilePath, false)
	if err != nil {
		return nil, err
	}
	err = migrations.Migrate(gormDB)
	if err != nil {
		return nil, err
	}

	appConfig := &config.AppConfig{
		Workdir:          t.TempDir(),
		Mnemonic:         TestMnemonic,
		FeeWalletAddress: TestFeeWallet,
		AdminIDs:         TestAdminID,
		Network:          "mainnet",
	}
	cfg, err := config.NewConfig(appConfig, gormDB)
	if err != nil {
		return nil, err
	}

	netParams, err := wallet.NetParamsFor(cfg.GetNetwork())
	if err != nil {
		return nil, err
	}
	keys, err := wallet.NewKeys(TestMnemonic, netParams)
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

	chainClient := &mocks.MockChainClient{}
	walletService := wallet.NewWalletService(keys, chainClient, netParams, splitPolicy)

	return &TestService{
		Cfg:            cfg,
		DB:             gormDB,
		EventPublisher: events.NewEventPublisher(),
		ChainClient:    chainClient,
		WalletService:  walletService,
		dbFilePath:     dbFilePath,
	}, nil
}

func (svc *TestService) Remove() {
	sqlDB, err := svc.DB.DB()
	if err == nil {
		sqlDB.Close()
	}
	os.Remove(svc.dbFilePath)
}
