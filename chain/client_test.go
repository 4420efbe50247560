package chain

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nusenusewhen-bot/lights-mm/constants"
	"github.com/nusenusewhen-bot/lights-mm/logger"
)

const testAddress = "ltc1qg42tkwuuxefutjjkzsga9gzsf7756vdr8tjsrw"

func TestAddressInfo(t *testing.T) {
	logger.Init("")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dashboards/address/"+testAddress, r.URL.Path)
		w.Write([]byte(`{"data":{"` + testAddress + `":{
			"address":{"balance":58823529},
			"utxo":[
				{"transaction_hash":"aa11","index":0,"value":40000000},
				{"transaction_hash":"bb22","index":1,"value":18823529}
			]
		}}}`))
	}))
	defer server.Close()

	client := NewBlockchairClient(server.URL, "", "")
	info, err := client.AddressInfo(context.Background(), testAddress)
	require.NoError(t, err)
	assert.Equal(t, uint64(58_823_529), info.BalanceSats)
	require.Len(t, info.Utxos, 2)
	assert.Equal(t, "aa11", info.Utxos[0].TxHash)
	assert.Equal(t, uint32(0), info.Utxos[0].Index)
	assert.Equal(t, uint64(40_000_000), info.Utxos[0].ValueSats)
}

func TestAddressInfo_UnknownAddress(t *testing.T) {
	logger.Init("")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the API omits the key for addresses it has never seen
		w.Write([]byte(`{"data":{}}`))
	}))
	defer server.Close()

	client := NewBlockchairClient(server.URL, "", "")
	info, err := client.AddressInfo(context.Background(), testAddress)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), info.BalanceSats)
	assert.Empty(t, info.Utxos)
}

func TestAddressTransactions(t *testing.T) {
	logger.Init("")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("transaction_details"))
		w.Write([]byte(`{"data":{"` + testAddress + `":{
			"address":{"balance":0},
			"transactions":[
				{"hash":"cc33","block_id":null,"outputs":[
					{"recipient":"` + testAddress + `","value":58820000}
				]}
			]
		}}}`))
	}))
	defer server.Close()

	client := NewBlockchairClient(server.URL, "", "")
	txs, err := client.AddressTransactions(context.Background(), testAddress)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "cc33", txs[0].Hash)
	assert.Nil(t, txs[0].BlockID)
	require.Len(t, txs[0].Outputs, 1)
	assert.Equal(t, testAddress, txs[0].Outputs[0].Recipient)
	assert.Equal(t, uint64(58_820_000), txs[0].Outputs[0].ValueSats)
}

func TestTransactionConfirmed(t *testing.T) {
	logger.Init("")
	blockID := `null`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"cc33":{"transaction":{"block_id":` + blockID + `}}}}`))
	}))
	defer server.Close()

	client := NewBlockchairClient(server.URL, "", "")

	// still in the mempool
	confirmed, err := client.TransactionConfirmed(context.Background(), "cc33")
	require.NoError(t, err)
	assert.False(t, confirmed)

	// blockchair reports unconfirmed transactions as block_id -1
	blockID = `-1`
	confirmed, err = client.TransactionConfirmed(context.Background(), "cc33")
	require.NoError(t, err)
	assert.False(t, confirmed)

	blockID = `2800000`
	confirmed, err = client.TransactionConfirmed(context.Background(), "cc33")
	require.NoError(t, err)
	assert.True(t, confirmed)
}

func TestBroadcast(t *testing.T) {
	logger.Init("")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/push/transaction", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "deadbeef", r.PostForm.Get("data"))
		w.Write([]byte(`{"data":{"transaction_hash":"cc33"}}`))
	}))
	defer server.Close()

	client := NewBlockchairClient(server.URL, "", "")
	txHash, err := client.Broadcast(context.Background(), "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, "cc33", txHash)
}

func TestBroadcast_Rejected(t *testing.T) {
	logger.Init("")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"context":{"error":"Invalid transaction"}}`))
	}))
	defer server.Close()

	client := NewBlockchairClient(server.URL, "", "")
	_, err := client.Broadcast(context.Background(), "deadbeef")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
}

func TestPriceUSD(t *testing.T) {
	logger.Init("")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"litecoin":{"usd":92.35}}`))
	}))
	defer server.Close()

	client := NewBlockchairClient("http://unused", "", server.URL)
	price := client.PriceUSD(context.Background())
	assert.Equal(t, "92.35", price.String())
}

func TestPriceUSD_FallsBackOnFailure(t *testing.T) {
	logger.Init("")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := NewBlockchairClient("http://unused", "", server.URL)
	price := client.PriceUSD(context.Background())
	assert.Equal(t, int64(constants.DefaultPriceUSD), price.IntPart())

	// unreachable feed falls back the same way
	server.Close()
	price = client.PriceUSD(context.Background())
	assert.Equal(t, int64(constants.DefaultPriceUSD), price.IntPart())
}
