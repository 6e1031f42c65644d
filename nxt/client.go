//go:generate go run go.uber.org/mock/mockgen -source=client.go -destination=../mocks/mock_ledger.go -package=mocks
package nxt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"nxt-tipbot/domain"
	"nxt-tipbot/errors"
)

// Ledger transaction parameters. The flat fee is one whole native unit per
// transaction, which is what the per-recipient fee margin reserves.
const (
	FeeNQT          = 100_000_000
	deadlineMinutes = "1440"
	defaultTimeout  = 30 * time.Second
)

// ILedger is the ledger surface the orchestrator needs: balance lookup,
// transfer submission and on-demand unit resolution.
type ILedger interface {
	BalanceQNT(ctx context.Context, address string, t domain.Transferable) (int64, error)
	Transfer(ctx context.Context, secretPhrase string, t domain.Transferable, recipient string, amountQNT int64, memo string) (string, error)
	AssetByID(ctx context.Context, id uint64) (domain.Transferable, error)
	CurrencyByID(ctx context.Context, id uint64) (domain.Transferable, error)
}

// Client talks to a ledger node over its JSON-over-form-POST HTTP API.
type Client struct {
	log        *slog.Logger
	baseURL    string
	httpClient *http.Client
}

func NewClient(log *slog.Logger, baseURL string) *Client {
	return &Client{
		log:        log,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// quantity tolerates the node's habit of sending large numbers as JSON
// strings; absent fields read as zero.
type quantity string

func (q quantity) int64() (int64, error) {
	if q == "" {
		return 0, nil
	}
	return strconv.ParseInt(string(q), 10, 64)
}

type apiError struct {
	ErrorCode        int    `json:"errorCode"`
	ErrorDescription string `json:"errorDescription"`
}

func (c *Client) call(ctx context.Context, requestType string, params url.Values, out any) error {
	params.Set("requestType", requestType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/nxt", strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrLedgerFault, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", errors.ErrLedgerFault, requestType, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", errors.ErrLedgerFault, requestType, err)
	}
	var nodeErr apiError
	if err := json.Unmarshal(body, &nodeErr); err != nil {
		return fmt.Errorf("%w: %s: malformed response: %v", errors.ErrLedgerFault, requestType, err)
	}
	if nodeErr.ErrorCode != 0 {
		return fmt.Errorf("%w: %s: %s (code %d)", errors.ErrLedgerFault, requestType, nodeErr.ErrorDescription, nodeErr.ErrorCode)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%w: %s: malformed response: %v", errors.ErrLedgerFault, requestType, err)
		}
	}
	return nil
}

// BalanceQNT returns the confirmed balance of an account in the unit's base
// units. An account the node has never seen reads as zero.
func (c *Client) BalanceQNT(ctx context.Context, address string, t domain.Transferable) (int64, error) {
	switch t.Kind {
	case domain.KindAsset:
		var out struct {
			QuantityQNT quantity `json:"quantityQNT"`
		}
		params := url.Values{"account": {address}, "asset": {strconv.FormatUint(t.ID, 10)}}
		if err := c.call(ctx, "getAccountAssets", params, &out); err != nil {
			return 0, err
		}
		return out.QuantityQNT.int64()
	case domain.KindCurrency:
		var out struct {
			Units quantity `json:"units"`
		}
		params := url.Values{"account": {address}, "currency": {strconv.FormatUint(t.ID, 10)}}
		if err := c.call(ctx, "getAccountCurrencies", params, &out); err != nil {
			return 0, err
		}
		return out.Units.int64()
	default:
		var out struct {
			BalanceNQT quantity `json:"balanceNQT"`
		}
		params := url.Values{"account": {address}}
		if err := c.call(ctx, "getBalance", params, &out); err != nil {
			return 0, err
		}
		return out.BalanceNQT.int64()
	}
}

// Transfer submits one transaction moving amountQNT base units of t to the
// recipient, with the memo attached as a plain-text message. It returns the
// ledger transaction id.
func (c *Client) Transfer(ctx context.Context, secretPhrase string, t domain.Transferable, recipient string, amountQNT int64, memo string) (string, error) {
	params := url.Values{
		"recipient":     {recipient},
		"secretPhrase":  {secretPhrase},
		"feeNQT":        {strconv.Itoa(FeeNQT)},
		"deadline":      {deadlineMinutes},
		"messageIsText": {"true"},
	}
	if memo != "" {
		params.Set("message", memo)
	}

	requestType := "sendMoney"
	switch t.Kind {
	case domain.KindAsset:
		requestType = "transferAsset"
		params.Set("asset", strconv.FormatUint(t.ID, 10))
		params.Set("quantityQNT", strconv.FormatInt(amountQNT, 10))
	case domain.KindCurrency:
		requestType = "transferCurrency"
		params.Set("currency", strconv.FormatUint(t.ID, 10))
		params.Set("units", strconv.FormatInt(amountQNT, 10))
	default:
		params.Set("amountNQT", strconv.FormatInt(amountQNT, 10))
	}

	var out struct {
		Transaction string `json:"transaction"`
	}
	if err := c.call(ctx, requestType, params, &out); err != nil {
		return "", err
	}
	c.log.Info("Transfer submitted", "type", requestType, "unit", t.Name, "recipient", recipient, "tx", out.Transaction)
	return out.Transaction, nil
}

// AssetByID resolves an asset the configuration never mentioned, so a
// numeric withdraw token can be honored on demand.
func (c *Client) AssetByID(ctx context.Context, id uint64) (domain.Transferable, error) {
	var out struct {
		Name     string `json:"name"`
		Decimals uint32 `json:"decimals"`
	}
	params := url.Values{"asset": {strconv.FormatUint(id, 10)}}
	if err := c.call(ctx, "getAsset", params, &out); err != nil {
		return domain.Transferable{}, err
	}
	return domain.Transferable{Kind: domain.KindAsset, ID: id, Name: out.Name, Decimals: out.Decimals}, nil
}

// CurrencyByID resolves a currency by numeric id, like AssetByID.
func (c *Client) CurrencyByID(ctx context.Context, id uint64) (domain.Transferable, error) {
	var out struct {
		Code     string `json:"code"`
		Name     string `json:"name"`
		Decimals uint32 `json:"decimals"`
	}
	params := url.Values{"currency": {strconv.FormatUint(id, 10)}}
	if err := c.call(ctx, "getCurrency", params, &out); err != nil {
		return domain.Transferable{}, err
	}
	name := out.Code
	if name == "" {
		name = out.Name
	}
	return domain.Transferable{Kind: domain.KindCurrency, ID: id, Name: name, Decimals: out.Decimals}, nil
}
