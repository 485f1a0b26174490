package metrics

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// registered once, collectors can't be registered twice with the default registry
var testRequests = NewCounter("test_requests", "metrics", "test counter", []string{"kind"})

func freeAddress(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := l.Addr().String()
	require.NoError(t, l.Close())
	return address
}

func collect(t *testing.T) {
	address := freeAddress(t)
	testRequests.Reset()
	testRequests.WithLabelValues("a").Inc()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- StartCollectingMetrics(ctx, zaptest.NewLogger(t), address)
	}()

	var body []byte
	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://%s/metrics", address))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, err = io.ReadAll(resp.Body)
		return err == nil && resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)
	require.Contains(t, string(body), `plotsync_metrics_test_requests{kind="a"} 1`)

	cancel()
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "metrics server didn't stop")
	}
}

func TestStartCollectingMetrics(t *testing.T) {
	t.Run("first", collect)
	t.Run("restart", collect)
}
