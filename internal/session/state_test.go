package session

import (
	"errors"
	"reflect"
	"testing"
)

const padAddr = "AA:BB:CC:DD:EE:FF"

func loaded() *State {
	s := New(0)
	s.ApplySnapshot(Snapshot{
		Connected: []ConnectedDevice{{Address: padAddr, Name: "Pad1"}},
		Paired: []PairedDevice{
			{Address: padAddr, Name: "Pad1"},
			{Address: "11:22:33:44:55:66", Name: "Pro Controller"},
		},
	})
	return s
}

func TestBeginReconnectCapturesName(t *testing.T) {
	tests := []struct {
		name string
		addr string
		want string
	}{
		{"cached name", padAddr, "Pad1"},
		{"case insensitive lookup", "aa:bb:cc:dd:ee:ff", "Pad1"},
		{"unknown falls back to address", "00:00:00:00:00:01", "00:00:00:00:00:01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := loaded()
			a := s.BeginReconnect(tt.addr)
			if a.Name != tt.want {
				t.Errorf("Name = %q, want %q", a.Name, tt.want)
			}
			if a.Remaining != DefaultReconnectWindow {
				t.Errorf("Remaining = %d, want %d", a.Remaining, DefaultReconnectWindow)
			}
			if a.ID == "" {
				t.Error("ID is empty")
			}
		})
	}
}

func TestBeginReconnectFallsBackToPairedList(t *testing.T) {
	s := New(0)
	s.Paired = []PairedDevice{{Address: padAddr, Name: "From List"}}
	if got := s.BeginReconnect(padAddr).Name; got != "From List" {
		t.Errorf("Name = %q, want %q", got, "From List")
	}
}

func TestBeginReconnectReplaces(t *testing.T) {
	s := loaded()
	first := s.BeginReconnect(padAddr)
	for i := 0; i < 10; i++ {
		s.Tick()
	}
	second := s.BeginReconnect("aa:bb:cc:dd:ee:ff")

	attempts := s.Attempts()
	if len(attempts) != 1 {
		t.Fatalf("len(Attempts()) = %d, want 1", len(attempts))
	}
	if attempts[0].Remaining != DefaultReconnectWindow {
		t.Errorf("Remaining = %d, want reset to %d", attempts[0].Remaining, DefaultReconnectWindow)
	}
	if second.ID == first.ID || attempts[0].ID != second.ID {
		t.Error("second request did not replace the first attempt")
	}
}

func TestTickExpiresAttempts(t *testing.T) {
	s := New(3)
	s.BeginReconnect(padAddr)

	for i := 1; i <= 2; i++ {
		if expired := s.Tick(); len(expired) != 0 {
			t.Fatalf("tick %d expired %v early", i, expired)
		}
	}
	if a, _ := s.Attempt(padAddr); a.Remaining != 1 {
		t.Errorf("Remaining = %d, want 1", a.Remaining)
	}
	if expired := s.Tick(); !reflect.DeepEqual(expired, []string{padAddr}) {
		t.Errorf("Tick() = %v, want [%s]", expired, padAddr)
	}
	if s.IsReconnecting(padAddr) {
		t.Error("attempt still tracked after countdown reached zero")
	}
	if !s.ShouldRefresh() {
		t.Error("ShouldRefresh() = false after expiry")
	}
}

func TestCompleteAndFailReconnect(t *testing.T) {
	s := loaded()
	a := s.BeginReconnect(padAddr)

	s.FailReconnect(padAddr, errors.New("reconnect-not-found"))
	if !s.IsReconnecting(padAddr) {
		t.Error("failure removed the attempt early")
	}
	if s.LastError != "reconnect-not-found" {
		t.Errorf("LastError = %q", s.LastError)
	}

	if !s.CompleteReconnect("aa:bb:cc:dd:ee:ff", a.ID) {
		t.Error("CompleteReconnect() = false for tracked attempt")
	}
	if s.IsReconnecting(padAddr) {
		t.Error("attempt still tracked after success")
	}
	if s.CompleteReconnect(padAddr, a.ID) {
		t.Error("CompleteReconnect() = true for already removed attempt")
	}
}

func TestCompleteReconnectKeepsNewerAttempt(t *testing.T) {
	s := loaded()
	first := s.BeginReconnect(padAddr)
	second := s.BeginReconnect(padAddr)

	if s.CompleteReconnect(padAddr, first.ID) {
		t.Error("CompleteReconnect() = true for a replaced attempt")
	}
	got, ok := s.Attempt(padAddr)
	if !ok || got.ID != second.ID {
		t.Fatalf("Attempt() = %+v, %v; want the newer attempt %s", got, ok, second.ID)
	}
	if got.Remaining != second.Remaining {
		t.Errorf("Remaining = %d, want %d", got.Remaining, second.Remaining)
	}

	if !s.CompleteReconnect(padAddr, second.ID) {
		t.Error("CompleteReconnect() = false for the current attempt")
	}
}

func TestShouldRefresh(t *testing.T) {
	s := loaded()
	if !s.ShouldRefresh() {
		t.Fatal("ShouldRefresh() = false on idle state")
	}

	s.StartRename(padAddr, "Pad1")
	if s.ShouldRefresh() {
		t.Error("ShouldRefresh() = true while renaming")
	}
	s.CancelRename()

	s.BeginReconnect(padAddr)
	if s.ShouldRefresh() {
		t.Error("ShouldRefresh() = true while reconnecting")
	}
}

func TestApplySnapshotKeepsReconnectingRows(t *testing.T) {
	s := loaded()
	s.BeginReconnect(padAddr)
	s.LastError = "stale"

	// The stale record has been removed; the daemon no longer lists it.
	s.ApplySnapshot(Snapshot{
		Paired: []PairedDevice{{Address: "11:22:33:44:55:66", Name: "Pro Controller"}},
	})

	want := []PairedDevice{
		{Address: "11:22:33:44:55:66", Name: "Pro Controller"},
		{Address: padAddr, Name: "Pad1"},
	}
	if !reflect.DeepEqual(s.Paired, want) {
		t.Errorf("Paired = %+v, want %+v", s.Paired, want)
	}
	if s.LastError != "" {
		t.Errorf("LastError = %q, want cleared", s.LastError)
	}
	if len(s.Connected) != 0 {
		t.Errorf("Connected = %v, want empty", s.Connected)
	}

	// The synthesized name survives a second load.
	s.ApplySnapshot(Snapshot{})
	if got := s.BestKnownName(padAddr); got != "Pad1" {
		t.Errorf("BestKnownName() = %q, want Pad1", got)
	}
}

func TestApplySnapshotDoesNotDuplicate(t *testing.T) {
	s := loaded()
	s.BeginReconnect("aa:bb:cc:dd:ee:ff")
	s.ApplySnapshot(Snapshot{Paired: []PairedDevice{{Address: padAddr, Name: "Pad1"}}})
	if len(s.Paired) != 1 {
		t.Errorf("Paired = %+v, want a single row", s.Paired)
	}
}

func TestRenameFlow(t *testing.T) {
	s := loaded()
	s.StartRename(padAddr, "Pad1")
	s.UpdateRename("  Player 2  ")

	addr, name, err := s.SubmitRename()
	if err != nil {
		t.Fatalf("SubmitRename() error = %v", err)
	}
	if addr != padAddr || name != "Player 2" {
		t.Errorf("SubmitRename() = (%q, %q)", addr, name)
	}
	if _, open := s.Renaming(); open {
		t.Error("editor still open after submit")
	}
}

func TestRenameEmptyRejected(t *testing.T) {
	s := loaded()
	s.StartRename(padAddr, "Pad1")
	s.UpdateRename("   ")

	_, _, err := s.SubmitRename()
	if !errors.Is(err, ErrEmptyName) {
		t.Fatalf("SubmitRename() error = %v, want ErrEmptyName", err)
	}
	if s.LastError != ErrEmptyName.Error() {
		t.Errorf("LastError = %q", s.LastError)
	}
	if edit, open := s.Renaming(); !open || edit.Address != padAddr {
		t.Error("editor closed after rejected submit")
	}
}

func TestSubmitRenameWithoutEdit(t *testing.T) {
	if _, _, err := New(0).SubmitRename(); err == nil {
		t.Error("SubmitRename() error = nil with no edit open")
	}
}

func TestUpdateRenameWithoutEdit(t *testing.T) {
	s := New(0)
	s.UpdateRename("x")
	if _, open := s.Renaming(); open {
		t.Error("UpdateRename() opened an editor")
	}
}
