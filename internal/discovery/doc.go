// Package discovery advertises and finds gamepadctl status servers on the
// local network over mDNS.
//
// `gamepadctl serve --advertise` registers a "_gamepadctl._tcp" service so
// stream overlays and other machines can find the status endpoints without
// configuration. `gamepadctl servers` browses for them.
//
// Each advertisement carries TXT records:
//   - version: the gamepadctl build version
//   - devices: the HTTP path of the snapshot endpoint
//   - ws: the WebSocket path
//
// Discovery needs multicast on the interface and UDP port 5353 open.
package discovery
