package discovery

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func entry(instance, host string, port int, v4, v6 []net.IP, txt ...string) *zeroconf.ServiceEntry {
	e := zeroconf.NewServiceEntry(instance, ServiceType, ServiceDomain)
	e.HostName = host
	e.Port = port
	e.AddrIPv4 = v4
	e.AddrIPv6 = v6
	e.Text = txt
	return e
}

func TestScanner_parseServiceEntry(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	scanner := NewScanner()
	scanner.now = func() time.Time { return fixed }

	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantName string
		wantIP   string
		wantPort int
	}{
		{
			name:     "IPv4 server",
			entry:    entry("gamepadctl on desk", "desk.local.", 7321, []net.IP{net.ParseIP("192.168.1.20")}, nil),
			wantName: "gamepadctl on desk",
			wantIP:   "192.168.1.20",
			wantPort: 7321,
		},
		{
			name:     "escaped instance name",
			entry:    entry(`gamepadctl\ on\ desk`, "desk.local.", 7321, []net.IP{net.ParseIP("10.0.0.5")}, nil),
			wantName: "gamepadctl on desk",
			wantIP:   "10.0.0.5",
			wantPort: 7321,
		},
		{
			name:     "IPv6 only",
			entry:    entry("couch", "couch.local.", 8080, nil, []net.IP{net.ParseIP("fe80::1")}),
			wantName: "couch",
			wantIP:   "fe80::1",
			wantPort: 8080,
		},
		{
			name: "prefers IPv4",
			entry: entry("both", "both.local.", 7321,
				[]net.IP{net.ParseIP("192.168.1.50")}, []net.IP{net.ParseIP("fe80::2")}),
			wantName: "both",
			wantIP:   "192.168.1.50",
			wantPort: 7321,
		},
		{
			name:    "no address",
			entry:   entry("ghost", "ghost.local.", 7321, nil, nil),
			wantNil: true,
		},
		{
			name:    "no instance name",
			entry:   entry("", "anon.local.", 7321, []net.IP{net.ParseIP("192.168.1.1")}, nil),
			wantNil: true,
		},
		{
			name:    "no port",
			entry:   entry("portless", "p.local.", 0, []net.IP{net.ParseIP("192.168.1.1")}, nil),
			wantNil: true,
		},
		{
			name:    "nil entry",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := scanner.parseServiceEntry(tt.entry)

			if tt.wantNil {
				if inst != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", inst)
				}
				return
			}
			if inst == nil {
				t.Fatal("parseServiceEntry() = nil, want instance")
			}
			if inst.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", inst.Name, tt.wantName)
			}
			if inst.IP != tt.wantIP {
				t.Errorf("IP = %q, want %q", inst.IP, tt.wantIP)
			}
			if inst.Port != tt.wantPort {
				t.Errorf("Port = %d, want %d", inst.Port, tt.wantPort)
			}
			if inst.Hostname != tt.entry.HostName {
				t.Errorf("Hostname = %q, want %q", inst.Hostname, tt.entry.HostName)
			}
			if !inst.DiscoveredAt.Equal(fixed) {
				t.Errorf("DiscoveredAt = %v, want %v", inst.DiscoveredAt, fixed)
			}
		})
	}
}

func TestScanner_parseServiceEntry_Metadata(t *testing.T) {
	scanner := NewScanner()
	e := entry("desk", "desk.local.", 7321, []net.IP{net.ParseIP("192.168.4.16")}, nil,
		append(AdvertisementText("v1.2.0"), "flag")...)

	inst := scanner.parseServiceEntry(e)
	if inst == nil {
		t.Fatal("parseServiceEntry() = nil, want instance")
	}

	want := map[string]string{
		TXTVersion:       "v1.2.0",
		TXTDevicesPath:   DefaultDevicesPath,
		TXTWebSocketPath: DefaultWebSocketPath,
		"flag":           "",
	}
	if len(inst.Metadata) != len(want) {
		t.Errorf("Metadata has %d entries, want %d", len(inst.Metadata), len(want))
	}
	for key, value := range want {
		if got, ok := inst.Metadata[key]; !ok || got != value {
			t.Errorf("Metadata[%q] = %q (present %v), want %q", key, got, ok, value)
		}
	}
	if inst.Version() != "v1.2.0" {
		t.Errorf("Version() = %q", inst.Version())
	}
}

func TestScanner_collect(t *testing.T) {
	scanner := NewScanner()
	entries := make(chan *zeroconf.ServiceEntry, 4)
	entries <- entry("zeta", "z.local.", 7321, []net.IP{net.ParseIP("10.0.0.1")}, nil)
	entries <- entry("alpha", "a.local.", 7321, []net.IP{net.ParseIP("10.0.0.2")}, nil)
	entries <- entry("alpha", "a.local.", 7322, []net.IP{net.ParseIP("10.0.0.3")}, nil)
	entries <- entry("", "junk.local.", 7321, []net.IP{net.ParseIP("10.0.0.4")}, nil)
	close(entries)

	got := scanner.collect(entries)
	if len(got) != 2 {
		t.Fatalf("collect() returned %d instances, want 2", len(got))
	}
	if got[0].Name != "alpha" || got[1].Name != "zeta" {
		t.Errorf("order = %s, %s; want alpha, zeta", got[0].Name, got[1].Name)
	}
	if got[0].Port != 7322 {
		t.Errorf("alpha port = %d, want the latest announcement (7322)", got[0].Port)
	}
}

// fakeBrowse announces the given entries, then closes the channel when the
// browse context ends, as the resolver does.
func fakeBrowse(announced ...*zeroconf.ServiceEntry) browseFunc {
	return func(ctx context.Context, entries chan<- *zeroconf.ServiceEntry) error {
		go func() {
			defer close(entries)
			for _, e := range announced {
				select {
				case entries <- e:
				case <-ctx.Done():
					return
				}
			}
			<-ctx.Done()
		}()
		return nil
	}
}

func TestScannerScan(t *testing.T) {
	scanner := NewScanner()
	scanner.Timeout = 50 * time.Millisecond
	scanner.browse = fakeBrowse(
		entry("zeta", "z.local.", 7321, []net.IP{net.ParseIP("10.0.0.1")}, nil),
		entry("alpha", "a.local.", 7321, []net.IP{net.ParseIP("10.0.0.2")}, nil),
	)

	got, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(got) != 2 || got[0].Name != "alpha" || got[1].Name != "zeta" {
		t.Errorf("Scan() = %v, want alpha and zeta", got)
	}
}

func TestScannerBrowseFailure(t *testing.T) {
	browseErr := errors.New("failed to browse for mDNS services: no multicast interface")

	tests := []struct {
		name string
		run  func(s *Scanner) error
	}{
		{"scan", func(s *Scanner) error { _, err := s.Scan(context.Background()); return err }},
		{"wait", func(s *Scanner) error { _, err := s.WaitFor(context.Background(), "desk"); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := NewScanner()
			scanner.Timeout = time.Minute
			scanner.browse = func(ctx context.Context, entries chan<- *zeroconf.ServiceEntry) error {
				return browseErr
			}

			done := make(chan error, 1)
			go func() { done <- tt.run(scanner) }()

			select {
			case err := <-done:
				if !errors.Is(err, browseErr) {
					t.Errorf("error = %v, want %v", err, browseErr)
				}
			case <-time.After(time.Second):
				t.Fatal("browse failure did not return promptly")
			}
		})
	}
}

func TestScannerWaitFor(t *testing.T) {
	scanner := NewScanner()
	scanner.Timeout = time.Minute
	scanner.browse = fakeBrowse(
		entry("couch", "couch.local.", 7321, []net.IP{net.ParseIP("10.0.0.3")}, nil),
		entry(`gamepadctl\ on\ desk`, "desk.local.", 7321, []net.IP{net.ParseIP("10.0.0.4")}, nil,
			AdvertisementText("v1.2.0")...),
	)

	start := time.Now()
	inst, err := scanner.WaitFor(context.Background(), "gamepadctl on desk")
	if err != nil {
		t.Fatalf("WaitFor() error = %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("WaitFor() kept browsing after a match")
	}
	if inst.IP != "10.0.0.4" || inst.DevicesURL() != "http://10.0.0.4:7321/devices" {
		t.Errorf("WaitFor() = %v", inst)
	}
}

func TestScannerWaitForTimeout(t *testing.T) {
	scanner := NewScanner()
	scanner.Timeout = 50 * time.Millisecond
	scanner.browse = fakeBrowse(
		entry("couch", "couch.local.", 7321, []net.IP{net.ParseIP("10.0.0.3")}, nil),
	)

	if _, err := scanner.WaitFor(context.Background(), "desk"); !errors.Is(err, ErrNotFound) {
		t.Errorf("WaitFor() error = %v, want ErrNotFound", err)
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()
	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}

func TestAdvertiseRejectsBadPort(t *testing.T) {
	if _, err := Advertise("x", 0, "dev"); err == nil {
		t.Error("Advertise() with port 0 should fail")
	}
}

func TestDefaultInstanceName(t *testing.T) {
	name := DefaultInstanceName()
	if !strings.HasPrefix(name, "gamepadctl") {
		t.Errorf("DefaultInstanceName() = %q", name)
	}
	if strings.Contains(strings.TrimPrefix(name, "gamepadctl on "), ".") {
		t.Errorf("DefaultInstanceName() = %q, should not include a domain", name)
	}
}
