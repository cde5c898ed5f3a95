package discovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/keewee/gamepadctl/internal/logging"
)

const (
	// ServiceType is the mDNS service type of gamepadctl status servers
	ServiceType = "_gamepadctl._tcp"

	// ServiceDomain is the mDNS domain
	ServiceDomain = "local."

	// DefaultScanTimeout is the default browse duration
	DefaultScanTimeout = 5 * time.Second

	DefaultDevicesPath   = "/devices"
	DefaultWebSocketPath = "/ws"
)

// TXT record keys
const (
	TXTVersion       = "version"
	TXTDevicesPath   = "devices"
	TXTWebSocketPath = "ws"
)

// ErrNotFound is returned by WaitFor when the browse times out.
var ErrNotFound = errors.New("status server not found within timeout")

// Advertisement is a registered mDNS service. Shutdown withdraws it.
type Advertisement struct {
	server *zeroconf.Server
	Name   string
}

// Shutdown sends goodbye packets and stops answering queries.
func (a *Advertisement) Shutdown() {
	if a != nil && a.server != nil {
		a.server.Shutdown()
	}
}

// DefaultInstanceName returns "gamepadctl on <hostname>".
func DefaultInstanceName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "gamepadctl"
	}
	// Drop the domain part, mDNS appends its own
	if i := strings.IndexByte(host, '.'); i > 0 {
		host = host[:i]
	}
	return "gamepadctl on " + host
}

// AdvertisementText builds the TXT records for a status server.
func AdvertisementText(version string) []string {
	return []string{
		TXTVersion + "=" + version,
		TXTDevicesPath + "=" + DefaultDevicesPath,
		TXTWebSocketPath + "=" + DefaultWebSocketPath,
	}
}

// Advertise registers a status server listening on port. An empty name
// uses DefaultInstanceName.
func Advertise(name string, port int, version string) (*Advertisement, error) {
	if port <= 0 {
		return nil, fmt.Errorf("cannot advertise port %d", port)
	}
	if name == "" {
		name = DefaultInstanceName()
	}

	server, err := zeroconf.Register(name, ServiceType, ServiceDomain, port, AdvertisementText(version), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Advertising status server",
		zap.String("instance", name),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)
	return &Advertisement{server: server, Name: name}, nil
}

// browseFunc starts a browse for status servers. Entries are delivered
// until ctx ends, then the channel is closed. On error nothing is sent and
// the channel is left open.
type browseFunc func(ctx context.Context, entries chan<- *zeroconf.ServiceEntry) error

func zeroconfBrowse(ctx context.Context, entries chan<- *zeroconf.ServiceEntry) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}
	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}
	return nil
}

// Scanner browses for status servers.
type Scanner struct {
	// Timeout is the maximum time to browse
	Timeout time.Duration

	now    func() time.Time
	browse browseFunc
}

// NewScanner creates a scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
		now:     time.Now,
		browse:  zeroconfBrowse,
	}
}

// Scan browses for Timeout and returns every instance seen, sorted by name.
func (s *Scanner) Scan(ctx context.Context) ([]*Instance, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := s.browse(ctx, entries); err != nil {
		return nil, err
	}

	// collect returns once the browse closes entries at the end of ctx
	instances := s.collect(entries)
	logging.Debug("mDNS scan finished", zap.Int("instances", len(instances)))
	return instances, nil
}

// WaitFor browses until an instance with the given name appears.
func (s *Scanner) WaitFor(ctx context.Context, name string) (*Instance, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := s.browse(ctx, entries); err != nil {
		return nil, err
	}

	found := make(chan *Instance, 1)
	go func() {
		for entry := range entries {
			inst := s.parseServiceEntry(entry)
			if inst != nil && inst.Name == name {
				select {
				case found <- inst:
				default:
				}
				cancel()
			}
		}
	}()

	select {
	case inst := <-found:
		return inst, nil
	case <-ctx.Done():
		select {
		case inst := <-found:
			return inst, nil
		default:
		}
		return nil, ErrNotFound
	}
}

// collect drains entries, keeping the latest entry per instance name.
func (s *Scanner) collect(entries <-chan *zeroconf.ServiceEntry) []*Instance {
	byName := make(map[string]*Instance)
	for entry := range entries {
		if inst := s.parseServiceEntry(entry); inst != nil {
			byName[inst.Name] = inst
		}
	}

	instances := make([]*Instance, 0, len(byName))
	for _, inst := range byName {
		instances = append(instances, inst)
	}
	sort.Slice(instances, func(i, j int) bool { return instances[i].Name < instances[j].Name })
	return instances
}

// parseServiceEntry converts a zeroconf entry to an Instance.
// Returns nil for entries without a name or address.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Instance {
	if entry == nil || entry.Instance == "" || entry.Port <= 0 {
		return nil
	}

	// Prefer IPv4
	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}

	now := time.Now
	if s.now != nil {
		now = s.now
	}
	return &Instance{
		Name:         unescapeInstance(entry.Instance),
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         entry.Port,
		Metadata:     metadata,
		DiscoveredAt: now(),
	}
}

// unescapeInstance undoes the DNS label escaping zeroconf leaves in
// instance names ("gamepadctl\ on\ desk").
func unescapeInstance(name string) string {
	return instanceUnescaper.Replace(name)
}

var instanceUnescaper = strings.NewReplacer(`\ `, " ", `\.`, ".", `\\`, `\`)
