// Package walletrpc calls a remote wallet agent over JSON-RPC to obtain
// credential signatures.
package walletrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"skillchain/internal/signer"
	dErrors "skillchain/pkg/domain-errors"
)

// codeUserRejected is the JSON-RPC error code wallets return when the
// operator declines a request.
const codeUserRejected = 4001

// Client implements signer.Gateway against a wallet agent's JSON-RPC
// endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

var _ signer.Gateway = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// New creates a wallet agent client.
func New(endpoint string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
	ID      int             `json:"id"`
}

type connectResult struct {
	Accounts  []string `json:"accounts"`
	NetworkID string   `json:"networkId"`
}

// Connect requests the wallet agent's active account.
func (c *Client) Connect(ctx context.Context) (signer.WalletInfo, error) {
	var result connectResult
	if err := c.call(ctx, "wallet_requestAccounts", nil, &result); err != nil {
		return signer.WalletInfo{}, err
	}
	if len(result.Accounts) == 0 {
		return signer.WalletInfo{}, dErrors.New(dErrors.CodeSignerUnavailable, "wallet agent has no unlocked accounts")
	}
	return signer.WalletInfo{
		Identity:  result.Accounts[0],
		NetworkID: result.NetworkID,
	}, nil
}

// Sign asks the wallet agent to sign the payload with the given identity.
func (c *Client) Sign(ctx context.Context, payload []byte, identity string) (string, error) {
	var signature string
	params := []any{string(payload), identity}
	if err := c.call(ctx, "personal_sign", params, &signature); err != nil {
		return "", err
	}
	if signature == "" {
		return "", dErrors.New(dErrors.CodeSignerUnavailable, "wallet agent returned an empty signature")
	}
	return signature, nil
}

// call executes a single JSON-RPC request and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return dErrors.Wrap(err, dErrors.CodeTimeout, "wallet agent request timed out")
		}
		return dErrors.Wrap(err, dErrors.CodeSignerUnavailable, "wallet agent unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeSignerUnavailable, "read wallet agent response")
	}
	if resp.StatusCode != http.StatusOK {
		return dErrors.New(dErrors.CodeSignerUnavailable,
			fmt.Sprintf("wallet agent returned status %d", resp.StatusCode))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return dErrors.Wrap(err, dErrors.CodeSignerUnavailable, "parse wallet agent response")
	}
	if rpcResp.Error != nil {
		if rpcResp.Error.Code == codeUserRejected {
			return dErrors.New(dErrors.CodeSignerRejected, "signature request rejected by wallet operator")
		}
		return dErrors.New(dErrors.CodeSignerUnavailable,
			fmt.Sprintf("wallet agent error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message))
	}

	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeSignerUnavailable, "decode wallet agent result")
	}
	return nil
}
