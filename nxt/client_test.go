package nxt

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"nxt-tipbot/domain"
	"nxt-tipbot/errors"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(log, server.URL)
}

func Test_BalanceQNT_Native(t *testing.T) {
	req := require.New(t)
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		req.Equal("/nxt", r.URL.Path)
		req.Equal("getBalance", r.PostFormValue("requestType"))
		req.Equal("NXT-TEST", r.PostFormValue("account"))
		w.Write([]byte(`{"balanceNQT": "500000000", "unconfirmedBalanceNQT": "600000000"}`))
	})

	balance, err := client.BalanceQNT(context.Background(), "NXT-TEST", domain.Native())
	req.NoError(err)
	req.Equal(int64(500_000_000), balance)
}

func Test_BalanceQNT_Asset_And_Currency(t *testing.T) {
	req := require.New(t)
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.PostFormValue("requestType") {
		case "getAccountAssets":
			req.Equal("7", r.PostFormValue("asset"))
			w.Write([]byte(`{"quantityQNT": "42"}`))
		case "getAccountCurrencies":
			req.Equal("9", r.PostFormValue("currency"))
			w.Write([]byte(`{"units": "7"}`))
		default:
			t.Errorf("unexpected requestType %q", r.PostFormValue("requestType"))
		}
	})
	ctx := context.Background()

	balance, err := client.BalanceQNT(ctx, "NXT-TEST", domain.Transferable{Kind: domain.KindAsset, ID: 7, Name: "DKT"})
	req.NoError(err)
	req.Equal(int64(42), balance)

	balance, err = client.BalanceQNT(ctx, "NXT-TEST", domain.Transferable{Kind: domain.KindCurrency, ID: 9, Name: "EUR"})
	req.NoError(err)
	req.Equal(int64(7), balance)
}

func Test_BalanceQNT_Unseen_Account_Reads_Zero(t *testing.T) {
	req := require.New(t)
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	})

	balance, err := client.BalanceQNT(context.Background(), "NXT-TEST", domain.Native())
	req.NoError(err)
	req.Zero(balance)
}

func Test_Transfer_Native(t *testing.T) {
	req := require.New(t)
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		req.Equal("sendMoney", r.PostFormValue("requestType"))
		req.Equal("NXT-DEST", r.PostFormValue("recipient"))
		req.Equal("hunter2", r.PostFormValue("secretPhrase"))
		req.Equal("4200000000", r.PostFormValue("amountNQT"))
		req.Equal("100000000", r.PostFormValue("feeNQT"))
		req.Equal("1440", r.PostFormValue("deadline"))
		req.Equal("Tip from alice", r.PostFormValue("message"))
		req.Equal("true", r.PostFormValue("messageIsText"))
		w.Write([]byte(`{"transaction": "tx123"}`))
	})

	txID, err := client.Transfer(context.Background(), "hunter2", domain.Native(), "NXT-DEST", 4_200_000_000, "Tip from alice")
	req.NoError(err)
	req.Equal("tx123", txID)
}

func Test_Transfer_Asset(t *testing.T) {
	req := require.New(t)
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		req.Equal("transferAsset", r.PostFormValue("requestType"))
		req.Equal("7", r.PostFormValue("asset"))
		req.Equal("5", r.PostFormValue("quantityQNT"))
		req.Empty(r.PostFormValue("message"))
		w.Write([]byte(`{"transaction": "tx9"}`))
	})

	dkt := domain.Transferable{Kind: domain.KindAsset, ID: 7, Name: "DKT"}
	txID, err := client.Transfer(context.Background(), "hunter2", dkt, "NXT-DEST", 5, "")
	req.NoError(err)
	req.Equal("tx9", txID)
}

func Test_Node_Error_Envelope(t *testing.T) {
	req := require.New(t)
	client := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"errorCode": 5, "errorDescription": "Unknown account"}`))
	})

	_, err := client.BalanceQNT(context.Background(), "NXT-TEST", domain.Native())
	req.ErrorIs(err, errors.ErrLedgerFault)
	req.ErrorContains(err, "Unknown account")
}

func Test_AssetByID(t *testing.T) {
	req := require.New(t)
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		req.Equal("getAsset", r.PostFormValue("requestType"))
		req.Equal("999", r.PostFormValue("asset"))
		w.Write([]byte(`{"name": "GEM", "decimals": 2}`))
	})

	asset, err := client.AssetByID(context.Background(), 999)
	req.NoError(err)
	req.Equal(domain.Transferable{Kind: domain.KindAsset, ID: 999, Name: "GEM", Decimals: 2}, asset)
}

func Test_CurrencyByID_Prefers_Code(t *testing.T) {
	req := require.New(t)
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		req.Equal("getCurrency", r.PostFormValue("requestType"))
		w.Write([]byte(`{"code": "EUR", "name": "euro", "decimals": 2}`))
	})

	currency, err := client.CurrencyByID(context.Background(), 321)
	req.NoError(err)
	req.Equal(domain.Transferable{Kind: domain.KindCurrency, ID: 321, Name: "EUR", Decimals: 2}, currency)
}
