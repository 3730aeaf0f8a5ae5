package agent_test

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/mensah-dev/brokerd/internal/agent"
	"github.com/mensah-dev/brokerd/internal/config"
	"github.com/stretchr/testify/require"
	"github.com/travisjeffery/go-dynaport"
)

func TestAgent(t *testing.T) {
	ports := dynaport.Get(2)
	dataDir, err := os.MkdirTemp("", "agent-test-log")
	require.NoError(t, err)
	defer os.RemoveAll(dataDir)

	cfg := config.Defaults()
	cfg.ListenAddr = fmt.Sprintf("127.0.0.1:%d", ports[0])
	cfg.AdminAddr = fmt.Sprintf("127.0.0.1:%d", ports[1])
	cfg.DataDir = dataDir
	cfg.SegmentSize = 4096

	a, err := agent.New(cfg)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, a.Shutdown())
	}()

	conn, err := net.Dial("tcp", cfg.ListenAddr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("PUBLISH topic1 hello\n"))
	require.NoError(t, err)
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "OK", string(buf[:n]))

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + cfg.AdminAddr + "/topics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, time.Second, 10*time.Millisecond)
}
