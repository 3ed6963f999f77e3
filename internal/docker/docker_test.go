package docker

import (
	"bytes"
	"testing"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusenback/idlemon/internal/model"
)

func TestParseLogLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantMsg string
		wantOK  bool
	}{
		{"timestamped", "2024-01-15T10:30:45.123456789Z [Server thread/INFO]: Steve joined the game", "[Server thread/INFO]: Steve joined the game", true},
		{"plain", "Done (3.2s)! For help, type \"help\"", "Done (3.2s)! For help, type \"help\"", true},
		{"blank", "   ", "", false},
		{"timestamp only", "2024-01-15T10:30:45Z", "", false},
		{"timestamp and spaces", "2024-01-15T10:30:45Z    ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, ok := parseLogLine(tt.line, "stdout")
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantMsg, entry.Message)
				assert.Equal(t, "stdout", entry.Stream)
			}
		})
	}
}

func TestReadLogStream_Multiplexed(t *testing.T) {
	var raw bytes.Buffer
	out := stdcopy.NewStdWriter(&raw, stdcopy.Stdout)
	errw := stdcopy.NewStdWriter(&raw, stdcopy.Stderr)

	_, _ = out.Write([]byte("2024-01-15T10:30:45Z Alex joined the game\n2024-01-15T10:30:46Z Alex: hi"))
	_, _ = out.Write([]byte("\n"))
	_, _ = errw.Write([]byte("2024-01-15T10:30:47Z Can't keep up!\n"))
	_, _ = out.Write([]byte("2024-01-15T10:30:48Z Alex left the game\n"))

	entries, err := readLogStream(&raw, false)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, []string{
		"Alex joined the game",
		"Alex: hi",
		"Can't keep up!",
		"Alex left the game",
	}, model.Messages(entries))
	assert.Equal(t, "stderr", entries[2].Stream)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC), entries[0].Timestamp)
}

func TestReadLogStream_TTY(t *testing.T) {
	raw := bytes.NewBufferString("2024-01-15T10:30:45Z one\r\n\n2024-01-15T10:30:46Z two")

	entries, err := readLogStream(raw, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, model.Messages(entries))
}

func TestMapState(t *testing.T) {
	cases := map[string]model.ContainerStatus{
		"running":    model.StatusRunning,
		"exited":     model.StatusStopped,
		"created":    model.StatusStopped,
		"dead":       model.StatusStopped,
		"restarting": model.StatusTransitioning,
		"paused":     model.StatusTransitioning,
		"removing":   model.StatusTransitioning,
		"":           model.StatusUnknown,
	}
	for state, want := range cases {
		assert.Equal(t, want, mapState(state), state)
	}
}

func TestContainerInfo(t *testing.T) {
	inspect := types.ContainerJSON{
		ContainerJSONBase: &types.ContainerJSONBase{
			Name: "/minecraft-server",
			State: &types.ContainerState{
				Status:    "running",
				StartedAt: "2026-10-14T08:00:00.5Z",
			},
		},
		NetworkSettings: &types.NetworkSettings{
			Networks: map[string]*network.EndpointSettings{
				"zeta":  {IPAddress: "10.0.1.5"},
				"alpha": {IPAddress: ""},
				"beta":  {IPAddress: "172.18.0.2"},
			},
		},
	}

	info := containerInfo(inspect)
	assert.Equal(t, "minecraft-server", info.Name)
	assert.Equal(t, model.StatusRunning, info.Status)
	assert.Equal(t, "running", info.State)
	assert.Equal(t, "172.18.0.2", info.IPAddress)
	assert.Equal(t, time.Date(2026, 10, 14, 8, 0, 0, 5e8, time.UTC), info.StartedAt)
}

func TestContainerInfo_NoNetwork(t *testing.T) {
	info := containerInfo(types.ContainerJSON{
		ContainerJSONBase: &types.ContainerJSONBase{
			Name:  "/mc",
			State: &types.ContainerState{Status: "running"},
		},
	})
	assert.Equal(t, model.StatusRunning, info.Status)
	assert.False(t, info.HasAddress())
}

func TestIPAddress_PrefersDefaultBridge(t *testing.T) {
	settings := &types.NetworkSettings{
		DefaultNetworkSettings: types.DefaultNetworkSettings{IPAddress: "172.17.0.3"},
		Networks: map[string]*network.EndpointSettings{
			"bridge": {IPAddress: "172.17.0.3"},
			"other":  {IPAddress: "10.0.0.9"},
		},
	}
	assert.Equal(t, "172.17.0.3", ipAddress(settings))
}
