package config

const (
	MnemonicKey      = "Mnemonic"
	FeeWalletKey     = "FeeWalletAddress"
	NetworkKey       = "Network"
	ChainApiUrlKey   = "ChainApiUrl"
	ChainApiTokenKey = "ChainApiToken"
)

type AppConfig struct {
	Mnemonic         string `envconfig:"MNEMONIC"`
	FeeWalletAddress string `envconfig:"FEE_WALLET_LTC"`
	AdminIDs         string `envconfig:"ADMIN_IDS"`
	Workdir          string `envconfig:"WORK_DIR"`
	Port             string `envconfig:"PORT" default:"1620"`
	DatabaseUri      string `envconfig:"DATABASE_URI" default:"tickets.db"`
	LogLevel         string `envconfig:"LOG_LEVEL" default:"4"`
	LogToFile        bool   `envconfig:"LOG_TO_FILE" default:"true"`
	Network          string `envconfig:"NETWORK" default:"mainnet"`
	ChainApiUrl      string `envconfig:"CHAIN_API_URL" default:"https://api.blockchair.com/litecoin"`
	ChainApiToken    string `envconfig:"CHAIN_API_TOKEN"`
	PriceApiUrl      string `envconfig:"PRICE_API_URL" default:"https://api.coingecko.com/api/v3/simple/price?ids=litecoin&vs_currencies=usd"`
	LogDBQueries     bool   `envconfig:"LOG_DB_QUERIES" default:"false"`
}

type Config interface {
	Get(key string) (string, error)
	SetIgnore(key string, value string) error
	SetUpdate(key string, value string) error
	GetNetwork() string
	GetFeeWallet() string
	IsAdmin(userID string) bool
	GetEnv() *AppConfig
}
