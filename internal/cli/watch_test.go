package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Octrafic/api-factory/internal/client"
	"github.com/Octrafic/api-factory/internal/core/analyzer"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedFetcher(status *client.TaskStatus, err error) StatusFetcher {
	return func(ctx context.Context) (*client.TaskStatus, error) {
		return status, err
	}
}

func TestWatchModelPollsUntilDone(t *testing.T) {
	processing := &client.TaskStatus{TaskID: "t1", Status: "processing", Logs: []string{"Parsing XLSX file..."}}
	m := NewWatchModel(context.Background(), "t1", fixedFetcher(processing, nil), time.Millisecond)

	msg := m.poll()()
	next, cmd := m.Update(msg)
	m = next.(WatchModel)
	require.NotNil(t, cmd)
	assert.False(t, m.finished())
	assert.Contains(t, m.View(), "Parsing XLSX file...")
	assert.Contains(t, m.View(), "processing")

	completed := &client.TaskStatus{
		TaskID:         "t1",
		Status:         "completed",
		Logs:           []string{"WARNING: Row 3 skipped", "Processing finished successfully."},
		ArtifactsReady: []string{"postman", "pytest"},
		Preview: []analyzer.EndpointSummary{
			{Name: "Login", Method: "POST", URL: "/login", IsTokenGenerator: true, TokenVariable: "token"},
		},
	}
	next, cmd = m.Update(statusMsg{status: completed})
	m = next.(WatchModel)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.finished())

	view := m.View()
	assert.Contains(t, view, "Completed")
	assert.Contains(t, view, "postman, pytest")
	assert.Contains(t, view, "Endpoints (1)")
	assert.Contains(t, view, "[token: token]")
	assert.Equal(t, completed, m.Status())
}

func TestWatchModelStopsOnError(t *testing.T) {
	m := NewWatchModel(context.Background(), "t2", fixedFetcher(nil, errors.New("boom")), 0)
	assert.Equal(t, time.Second, m.interval)

	next, cmd := m.Update(m.poll()())
	m = next.(WatchModel)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Contains(t, m.View(), "boom")

	next, cmd = m.Update(animationTickMsg(time.Now()))
	assert.Nil(t, cmd)
	assert.Equal(t, 0, next.(WatchModel).frame)
}

func TestWatchModelQuitKey(t *testing.T) {
	m := NewWatchModel(context.Background(), "t3", fixedFetcher(nil, nil), time.Second)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.True(t, next.(WatchModel).quit)
}

func TestWatchModelWrapsLogs(t *testing.T) {
	m := NewWatchModel(context.Background(), "t4", nil, time.Second)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 24, Height: 10})
	m = next.(WatchModel)

	line := m.renderLog("ERROR: the sheet has no header row at all")
	assert.Contains(t, line, "\n")
}
