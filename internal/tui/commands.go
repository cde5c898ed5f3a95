package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/keewee/gamepadctl/internal/reconnect"
	"github.com/keewee/gamepadctl/internal/session"
)

// Service performs the device operations behind the dashboard. Each call
// is made from its own tea.Cmd goroutine.
type Service interface {
	LoadDevices(ctx context.Context) (session.Snapshot, error)
	Disconnect(ctx context.Context, addr string) error
	Remove(ctx context.Context, addr string) error
	Rename(ctx context.Context, addr string, name string) error
	Reconnect(ctx context.Context, req reconnect.Request, opts reconnect.Options) (*reconnect.Result, error)
}

// Messages for timers
type refreshMsg struct{}
type tickMsg struct{}

// Messages for async operations
type dataLoadedMsg struct {
	snapshot session.Snapshot
	err      error
}

type disconnectResultMsg struct {
	addr string
	err  error
}

type renameResultMsg struct {
	addr string
	name string
	err  error
}

type removeResultMsg struct {
	addr string
	err  error
}

type reconnectResultMsg struct {
	attempt session.Attempt
	result  *reconnect.Result
	err     error
}

// scheduler delivers msg after d. Tests replace it to keep timers from firing.
type scheduler func(d time.Duration, msg tea.Msg) tea.Cmd

func tick(d time.Duration, msg tea.Msg) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return msg })
}

func loadDevicesCmd(ctx context.Context, svc Service) tea.Cmd {
	return func() tea.Msg {
		snap, err := svc.LoadDevices(ctx)
		return dataLoadedMsg{snapshot: snap, err: err}
	}
}

func disconnectCmd(ctx context.Context, svc Service, addr string) tea.Cmd {
	return func() tea.Msg {
		return disconnectResultMsg{addr: addr, err: svc.Disconnect(ctx, addr)}
	}
}

func renameCmd(ctx context.Context, svc Service, addr, name string) tea.Cmd {
	return func() tea.Msg {
		return renameResultMsg{addr: addr, name: name, err: svc.Rename(ctx, addr, name)}
	}
}

func removeCmd(ctx context.Context, svc Service, addr string) tea.Cmd {
	return func() tea.Msg {
		return removeResultMsg{addr: addr, err: svc.Remove(ctx, addr)}
	}
}

func reconnectCmd(ctx context.Context, svc Service, attempt session.Attempt, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		req := reconnect.Request{
			Address:   attempt.Address,
			Name:      attempt.Name,
			AttemptID: attempt.ID,
		}
		res, err := svc.Reconnect(ctx, req, reconnect.Options{DiscoveryTimeout: timeout})
		return reconnectResultMsg{attempt: attempt, result: res, err: err}
	}
}
