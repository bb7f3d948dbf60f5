package resilient_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillchain/internal/signer"
	"skillchain/internal/signer/resilient"
	dErrors "skillchain/pkg/domain-errors"
	"skillchain/pkg/platform/circuit"
)

type flakyGateway struct {
	signErr error
	calls   int
}

func (g *flakyGateway) Connect(context.Context) (signer.WalletInfo, error) {
	return signer.WalletInfo{Identity: "0xabc", NetworkID: "test"}, nil
}

func (g *flakyGateway) Sign(context.Context, []byte, string) (string, error) {
	g.calls++
	if g.signErr != nil {
		return "", g.signErr
	}
	return "0xsigned", nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPassesThroughWhileClosed(t *testing.T) {
	inner := &flakyGateway{}
	g := resilient.New(inner, discardLogger())

	sig, err := g.Sign(context.Background(), []byte("payload"), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "0xsigned", sig)

	info, err := g.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0xabc", info.Identity)
}

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyGateway{signErr: dErrors.New(dErrors.CodeSignerUnavailable, "agent unreachable")}
	g := resilient.New(inner, discardLogger(),
		resilient.WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2))),
		resilient.WithProbeInterval(time.Hour),
	)

	for i := 0; i < 2; i++ {
		_, err := g.Sign(context.Background(), []byte("p"), "0xabc")
		require.Error(t, err)
	}
	require.Equal(t, 2, inner.calls)

	// Circuit is open: the agent is no longer contacted.
	_, err := g.Sign(context.Background(), []byte("p"), "0xabc")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeSignerUnavailable))
	assert.Equal(t, 2, inner.calls)
}

func TestRejectionsDoNotTrip(t *testing.T) {
	inner := &flakyGateway{signErr: dErrors.New(dErrors.CodeSignerRejected, "operator declined")}
	g := resilient.New(inner, discardLogger(),
		resilient.WithBreaker(circuit.New("test", circuit.WithFailureThreshold(1))),
	)

	for i := 0; i < 3; i++ {
		_, err := g.Sign(context.Background(), []byte("p"), "0xabc")
		require.Error(t, err)
	}
	// Every call reached the agent.
	assert.Equal(t, 3, inner.calls)
}

func TestProbesAndRecovers(t *testing.T) {
	inner := &flakyGateway{signErr: dErrors.New(dErrors.CodeSignerUnavailable, "agent unreachable")}
	g := resilient.New(inner, discardLogger(),
		resilient.WithBreaker(circuit.New("test",
			circuit.WithFailureThreshold(1),
			circuit.WithSuccessThreshold(1),
		)),
		resilient.WithProbeInterval(time.Nanosecond),
	)

	_, err := g.Sign(context.Background(), []byte("p"), "0xabc")
	require.Error(t, err)

	// Agent comes back; the next probe closes the circuit.
	inner.signErr = nil
	time.Sleep(time.Millisecond)

	sig, err := g.Sign(context.Background(), []byte("p"), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "0xsigned", sig)

	sig, err = g.Sign(context.Background(), []byte("p"), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "0xsigned", sig)
}
