package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nusenusewhen-bot/lights-mm/constants"
	"github.com/nusenusewhen-bot/lights-mm/logger"
)

type blockchairClient struct {
	baseUrl     string
	apiToken    string
	priceApiUrl string
	httpClient  *http.Client
}

func NewBlockchairClient(baseUrl string, apiToken string, priceApiUrl string) *blockchairClient {
	return &blockchairClient{
		baseUrl:     strings.TrimSuffix(baseUrl, "/"),
		apiToken:    apiToken,
		priceApiUrl: priceApiUrl,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type addressDashboardEntry struct {
	Address struct {
		Balance uint64 `json:"balance"`
	} `json:"address"`
	Utxo         []Utxo               `json:"utxo"`
	Transactions []AddressTransaction `json:"transactions"`
}

type transactionDashboardEntry struct {
	Transaction struct {
		BlockID *int64 `json:"block_id"`
	} `json:"transaction"`
}

func (c *blockchairClient) AddressInfo(ctx context.Context, address string) (*AddressInfo, error) {
	var entries map[string]addressDashboardEntry
	err := c.getDashboard(ctx, "/dashboards/address/"+address, "", &entries)
	if err != nil {
		return nil, err
	}

	entry, ok := entries[address]
	if !ok {
		// the API omits the key for addresses it has never seen
		return &AddressInfo{}, nil
	}

	return &AddressInfo{
		BalanceSats: entry.Address.Balance,
		Utxos:       entry.Utxo,
	}, nil
}

func (c *blockchairClient) AddressTransactions(ctx context.Context, address string) ([]AddressTransaction, error) {
	var entries map[string]addressDashboardEntry
	err := c.getDashboard(ctx, "/dashboards/address/"+address, "transaction_details=true", &entries)
	if err != nil {
		return nil, err
	}

	entry, ok := entries[address]
	if !ok {
		return []AddressTransaction{}, nil
	}
	return entry.Transactions, nil
}

func (c *blockchairClient) TransactionConfirmed(ctx context.Context, txHash string) (bool, error) {
	var entries map[string]transactionDashboardEntry
	err := c.getDashboard(ctx, "/dashboards/transaction/"+txHash, "", &entries)
	if err != nil {
		return false, err
	}

	entry, ok := entries[txHash]
	if !ok {
		return false, nil
	}
	return entry.Transaction.BlockID != nil && *entry.Transaction.BlockID > 0, nil
}

func (c *blockchairClient) Broadcast(ctx context.Context, rawTxHex string) (string, error) {
	endpoint := c.baseUrl + "/push/transaction"
	if c.apiToken != "" {
		endpoint += "?key=" + url.QueryEscape(c.apiToken)
	}

	form := url.Values{}
	form.Set("data", rawTxHex)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to broadcast transaction: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("broadcast rejected (status %d): %s", resp.StatusCode, string(body))
	}

	var pushResponse struct {
		Data struct {
			TransactionHash string `json:"transaction_hash"`
		} `json:"data"`
	}
	err = json.Unmarshal(body, &pushResponse)
	if err != nil {
		return "", fmt.Errorf("failed to decode broadcast response: %w", err)
	}
	if pushResponse.Data.TransactionHash == "" {
		return "", fmt.Errorf("broadcast response did not contain a transaction hash: %s", string(body))
	}

	return pushResponse.Data.TransactionHash, nil
}

// PriceUSD never fails: a broken price feed falls back to a fixed default
// rate so amount entry keeps working.
func (c *blockchairClient) PriceUSD(ctx context.Context) decimal.Decimal {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.priceApiUrl, nil)
	if err != nil {
		return decimal.NewFromInt(constants.DefaultPriceUSD)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("Price fetch failed, using default rate")
		return decimal.NewFromInt(constants.DefaultPriceUSD)
	}
	defer resp.Body.Close()

	var priceResponse struct {
		Litecoin struct {
			Usd decimal.Decimal `json:"usd"`
		} `json:"litecoin"`
	}
	err = json.NewDecoder(resp.Body).Decode(&priceResponse)
	if err != nil || priceResponse.Litecoin.Usd.IsZero() {
		logger.Logger.Warn().Err(err).Msg("Price response unusable, using default rate")
		return decimal.NewFromInt(constants.DefaultPriceUSD)
	}

	return priceResponse.Litecoin.Usd
}

func (c *blockchairClient) getDashboard(ctx context.Context, path string, query string, target interface{}) error {
	endpoint := c.baseUrl + path
	params := url.Values{}
	if query != "" {
		parsed, err := url.ParseQuery(query)
		if err != nil {
			return err
		}
		params = parsed
	}
	if c.apiToken != "" {
		params.Set("key", c.apiToken)
	}
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chain API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("chain API returned status %d: %s", resp.StatusCode, string(body))
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	err = json.NewDecoder(resp.Body).Decode(&envelope)
	if err != nil {
		return fmt.Errorf("failed to decode chain API response: %w", err)
	}

	return json.Unmarshal(envelope.Data, target)
}
