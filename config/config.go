package config

import (
	"strings"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nusenusewhen-bot/lights-mm/db"
)

type config struct {
	Env        *AppConfig
	db         *gorm.DB
	cache      map[string]string
	cacheMutex sync.Mutex
	adminIDs   []string
}

func NewConfig(env *AppConfig, gormDB *gorm.DB) (*config, error) {
	cfg := &config{
		db:    gormDB,
		cache: map[string]string{},
	}
	err := cfg.init(env)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *config) init(env *AppConfig) error {
	cfg.Env = env

	for _, id := range strings.Split(env.AdminIDs, ",") {
		id = strings.TrimSpace(id)
		if id != "" {
			cfg.adminIDs = append(cfg.adminIDs, id)
		}
	}

	// env values seed the persisted config; the seed never overwrites a
	// value already stored, the others follow the latest env
	if cfg.Env.Mnemonic != "" {
		if err := cfg.SetIgnore(MnemonicKey, cfg.Env.Mnemonic); err != nil {
			return err
		}
	}
	if cfg.Env.FeeWalletAddress != "" {
		if err := cfg.SetUpdate(FeeWalletKey, cfg.Env.FeeWalletAddress); err != nil {
			return err
		}
	}
	if cfg.Env.Network != "" {
		if err := cfg.SetUpdate(NetworkKey, cfg.Env.Network); err != nil {
			return err
		}
	}
	if cfg.Env.ChainApiUrl != "" {
		if err := cfg.SetUpdate(ChainApiUrlKey, cfg.Env.ChainApiUrl); err != nil {
			return err
		}
	}
	if cfg.Env.ChainApiToken != "" {
		if err := cfg.SetUpdate(ChainApiTokenKey, cfg.Env.ChainApiToken); err != nil {
			return err
		}
	}

	return nil
}

func (cfg *config) GetEnv() *AppConfig {
	return cfg.Env
}

func (cfg *config) Get(key string) (string, error) {
	cfg.cacheMutex.Lock()
	cached, found := cfg.cache[key]
	cfg.cacheMutex.Unlock()
	if found {
		return cached, nil
	}

	var userConfig db.UserConfig
	err := cfg.db.Where(&db.UserConfig{Key: key}).Limit(1).Find(&userConfig).Error
	if err != nil {
		return "", err
	}

	cfg.cacheMutex.Lock()
	cfg.cache[key] = userConfig.Value
	cfg.cacheMutex.Unlock()

	return userConfig.Value, nil
}

func (cfg *config) set(key string, value string, clauses clause.OnConflict) error {
	userConfig := db.UserConfig{Key: key, Value: value}
	err := cfg.db.Clauses(clauses).Create(&userConfig).Error
	if err != nil {
		return err
	}

	cfg.cacheMutex.Lock()
	cfg.cache[key] = value
	cfg.cacheMutex.Unlock()

	return nil
}

// SetIgnore leaves any existing stored value untouched
func (cfg *config) SetIgnore(key string, value string) error {
	clauses := clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}
	err := cfg.set(key, value, clauses)
	if err != nil {
		return err
	}
	// the stored value wins over the one we just tried to write
	stored, err := cfg.readStored(key)
	if err != nil {
		return err
	}
	cfg.cacheMutex.Lock()
	cfg.cache[key] = stored
	cfg.cacheMutex.Unlock()
	return nil
}

// SetUpdate overwrites any existing stored value
func (cfg *config) SetUpdate(key string, value string) error {
	clauses := clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}
	return cfg.set(key, value, clauses)
}

func (cfg *config) readStored(key string) (string, error) {
	var userConfig db.UserConfig
	err := cfg.db.Where(&db.UserConfig{Key: key}).Limit(1).Find(&userConfig).Error
	if err != nil {
		return "", err
	}
	return userConfig.Value, nil
}

func (cfg *config) GetNetwork() string {
	network, _ := cfg.Get(NetworkKey)
	if network == "" {
		network = "mainnet"
	}
	return network
}

func (cfg *config) GetFeeWallet() string {
	feeWallet, _ := cfg.Get(FeeWalletKey)
	return feeWallet
}

func (cfg *config) IsAdmin(userID string) bool {
	for _, id := range cfg.adminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
