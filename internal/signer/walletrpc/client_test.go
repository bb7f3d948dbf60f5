package walletrpc_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillchain/internal/signer/walletrpc"
	dErrors "skillchain/pkg/domain-errors"
)

func rpcServer(t *testing.T, handler func(method string, params []any) (any, map[string]any)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string `json:"method"`
			Params []any  `json:"params"`
			ID     int    `json:"id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, rpcErr := handler(req.Method, req.Params)
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestConnectReturnsActiveAccount(t *testing.T) {
	srv := rpcServer(t, func(method string, _ []any) (any, map[string]any) {
		assert.Equal(t, "wallet_requestAccounts", method)
		return map[string]any{
			"accounts":  []string{"0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"},
			"networkId": "31337",
		}, nil
	})
	defer srv.Close()

	client := walletrpc.New(srv.URL, time.Second)
	info, err := client.Connect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266", info.Identity)
	assert.Equal(t, "31337", info.NetworkID)
}

func TestConnectWithNoAccounts(t *testing.T) {
	srv := rpcServer(t, func(string, []any) (any, map[string]any) {
		return map[string]any{"accounts": []string{}, "networkId": "31337"}, nil
	})
	defer srv.Close()

	client := walletrpc.New(srv.URL, time.Second)
	_, err := client.Connect(context.Background())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeSignerUnavailable))
}

func TestSignForwardsPayloadAndIdentity(t *testing.T) {
	srv := rpcServer(t, func(method string, params []any) (any, map[string]any) {
		assert.Equal(t, "personal_sign", method)
		require.Len(t, params, 2)
		assert.Equal(t, `{"id":"SC-1768464000000-1234"}`, params[0])
		assert.Equal(t, "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266", params[1])
		return "0xdeadbeef", nil
	})
	defer srv.Close()

	client := walletrpc.New(srv.URL, time.Second)
	sig, err := client.Sign(context.Background(),
		[]byte(`{"id":"SC-1768464000000-1234"}`),
		"0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", sig)
}

func TestSignOperatorRejection(t *testing.T) {
	srv := rpcServer(t, func(string, []any) (any, map[string]any) {
		return nil, map[string]any{"code": 4001, "message": "User rejected the request"}
	})
	defer srv.Close()

	client := walletrpc.New(srv.URL, time.Second)
	_, err := client.Sign(context.Background(), []byte("payload"), "0xabc")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeSignerRejected))
}

func TestSignOtherRPCError(t *testing.T) {
	srv := rpcServer(t, func(string, []any) (any, map[string]any) {
		return nil, map[string]any{"code": -32603, "message": "internal error"}
	})
	defer srv.Close()

	client := walletrpc.New(srv.URL, time.Second)
	_, err := client.Sign(context.Background(), []byte("payload"), "0xabc")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeSignerUnavailable))
}

func TestAgentUnreachable(t *testing.T) {
	srv := rpcServer(t, func(string, []any) (any, map[string]any) { return "0x0", nil })
	srv.Close()

	client := walletrpc.New(srv.URL, time.Second)
	_, err := client.Sign(context.Background(), []byte("payload"), "0xabc")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeSignerUnavailable))
}

func TestAgentHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := walletrpc.New(srv.URL, time.Second)
	_, err := client.Connect(context.Background())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeSignerUnavailable))
}
