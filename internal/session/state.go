package session

import (
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/keewee/gamepadctl/internal/bluez"
)

// DefaultReconnectWindow is the countdown, in ticks, given to a new attempt.
const DefaultReconnectWindow = 60

// ErrEmptyName is returned when a rename is submitted with a blank value.
var ErrEmptyName = errors.New("rename-empty: name cannot be empty")

// ConnectedDevice is a connected device joined with its battery reading.
type ConnectedDevice struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Battery *uint8 `json:"battery,omitempty"`
	// Charging is only meaningful when Battery is set.
	Charging bool `json:"charging,omitempty"`
}

// PairedDevice is a paired device address with its display name.
type PairedDevice struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// Snapshot is one directory refresh.
type Snapshot struct {
	Connected []ConnectedDevice `json:"connected"`
	Paired    []PairedDevice    `json:"paired"`
}

// Attempt is an in-flight reconnection.
type Attempt struct {
	ID        string
	Address   string
	Name      string
	Remaining int
}

// RenameEdit is a rename being typed by the user.
type RenameEdit struct {
	Address string
	Value   string
}

// State is the session state. The zero value is not usable; call New.
type State struct {
	Connected []ConnectedDevice
	Paired    []PairedDevice

	// LastError is the most recent failure, shown until the next successful
	// load replaces it.
	LastError string

	window       int
	pairedNames  map[string]string
	reconnecting map[string]*Attempt
	renaming     *RenameEdit
}

// New creates an empty state whose attempts count down from window ticks.
// A non-positive window uses DefaultReconnectWindow.
func New(window int) *State {
	if window <= 0 {
		window = DefaultReconnectWindow
	}
	return &State{
		window:       window,
		pairedNames:  make(map[string]string),
		reconnecting: make(map[string]*Attempt),
	}
}

func key(addr string) string {
	return bluez.NormalizeAddress(addr)
}

// BestKnownName returns the name to restore after reconnecting addr: the
// cached paired name, else the name in the current paired list, else the
// address itself.
func (s *State) BestKnownName(addr string) string {
	if name, ok := s.pairedNames[key(addr)]; ok && name != "" {
		return name
	}
	for _, p := range s.Paired {
		if bluez.SameAddress(p.Address, addr) && p.Name != "" {
			return p.Name
		}
	}
	return addr
}

// BeginReconnect starts, or restarts, the attempt for addr. A second request
// for the same address replaces the first: fresh countdown, fresh name and a
// new ID.
func (s *State) BeginReconnect(addr string) Attempt {
	a := &Attempt{
		ID:        uuid.NewString(),
		Address:   addr,
		Name:      s.BestKnownName(addr),
		Remaining: s.window,
	}
	s.reconnecting[key(addr)] = a
	return *a
}

// Tick advances every countdown by one and drops the attempts that reach
// zero. It returns the addresses whose attempts expired.
func (s *State) Tick() []string {
	var expired []string
	for k, a := range s.reconnecting {
		a.Remaining--
		if a.Remaining <= 0 {
			expired = append(expired, a.Address)
			delete(s.reconnecting, k)
		}
	}
	sort.Strings(expired)
	return expired
}

// CompleteReconnect removes the attempt for addr after a successful run of
// attempt id. A newer attempt for the same address is left alone. It
// reports whether the attempt was removed.
func (s *State) CompleteReconnect(addr, id string) bool {
	k := key(addr)
	a, ok := s.reconnecting[k]
	if !ok || a.ID != id {
		return false
	}
	delete(s.reconnecting, k)
	return true
}

// FailReconnect records err. The attempt, if still tracked, is left to run
// out its countdown.
func (s *State) FailReconnect(addr string, err error) {
	s.SetError(err)
}

// Attempt returns the attempt for addr.
func (s *State) Attempt(addr string) (Attempt, bool) {
	a, ok := s.reconnecting[key(addr)]
	if !ok {
		return Attempt{}, false
	}
	return *a, true
}

// Attempts returns all attempts ordered by address.
func (s *State) Attempts() []Attempt {
	out := make([]Attempt, 0, len(s.reconnecting))
	for _, a := range s.reconnecting {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return key(out[i].Address) < key(out[j].Address) })
	return out
}

// IsReconnecting reports whether addr has an active attempt.
func (s *State) IsReconnecting(addr string) bool {
	_, ok := s.reconnecting[key(addr)]
	return ok
}

// ShouldRefresh reports whether a periodic refresh may run. It may not
// while any reconnection is tracked or a rename is being edited.
func (s *State) ShouldRefresh() bool {
	return len(s.reconnecting) == 0 && s.renaming == nil
}

// ApplySnapshot replaces the device lists with a fresh load. Devices under
// an active attempt that the daemon no longer lists as paired keep a row,
// named from the attempt. A successful load clears LastError.
func (s *State) ApplySnapshot(snap Snapshot) {
	s.Connected = snap.Connected

	names := make(map[string]string, len(snap.Paired))
	paired := make([]PairedDevice, 0, len(snap.Paired)+len(s.reconnecting))
	for _, p := range snap.Paired {
		names[key(p.Address)] = p.Name
		paired = append(paired, p)
	}

	for _, a := range s.Attempts() {
		k := key(a.Address)
		if _, listed := names[k]; listed {
			continue
		}
		name := a.Name
		if name == "" {
			name = s.pairedNames[k]
		}
		if name == "" {
			name = a.Address
		}
		names[k] = name
		paired = append(paired, PairedDevice{Address: a.Address, Name: name})
	}

	s.pairedNames = names
	s.Paired = paired
	s.LastError = ""
}

// SetError records err as the last error. A nil error is ignored.
func (s *State) SetError(err error) {
	if err != nil {
		s.LastError = err.Error()
	}
}

// StartRename opens the rename editor for addr with current as its value.
func (s *State) StartRename(addr, current string) {
	s.renaming = &RenameEdit{Address: addr, Value: current}
}

// UpdateRename replaces the value being edited. It is a no-op when no rename
// is open.
func (s *State) UpdateRename(value string) {
	if s.renaming != nil {
		s.renaming.Value = value
	}
}

// CancelRename closes the editor.
func (s *State) CancelRename() {
	s.renaming = nil
}

// Renaming returns the open rename edit, if any.
func (s *State) Renaming() (RenameEdit, bool) {
	if s.renaming == nil {
		return RenameEdit{}, false
	}
	return *s.renaming, true
}

// SubmitRename validates the edit and closes it, returning the address and
// trimmed name to apply. A blank name is rejected with ErrEmptyName, which
// is also recorded as the last error; the editor stays open so the value
// can be corrected.
func (s *State) SubmitRename() (addr string, name string, err error) {
	if s.renaming == nil {
		return "", "", errors.New("no rename in progress")
	}
	name, err = ValidateName(s.renaming.Value)
	if err != nil {
		s.SetError(err)
		return "", "", err
	}
	addr = s.renaming.Address
	s.renaming = nil
	return addr, name, nil
}

// ValidateName trims a proposed device name and rejects blank values.
func ValidateName(value string) (string, error) {
	name := strings.TrimSpace(value)
	if name == "" {
		return "", ErrEmptyName
	}
	return name, nil
}
