// Package discovery advertises this bridge on the local network two
// ways: a UDP request/response probe for clients that know only the
// fixed port, and an mDNS service record for clients that browse.
package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"syscall"

	"github.com/grandcat/zeroconf"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/srg/de1bridge/internal/groutine"
)

// Port is the fixed UDP port clients probe on.
const Port = 19741

// probeMessage is the exact ASCII payload a discovery request carries.
var probeMessage = []byte("DECENTBRIDGE_DISCOVER")

// serviceType is the mDNS service this bridge registers under.
const serviceType = "_decentbridge._tcp"

// announcement is the JSON body returned to a valid UDP probe.
type announcement struct {
	Name     string `json:"name"`
	HTTPPort int    `json:"httpPort"`
	WSPort   int    `json:"wsPort"`
	Version  string `json:"version"`
}

// UDPResponder answers DECENTBRIDGE_DISCOVER probes on Port.
type UDPResponder struct {
	name       string
	httpPort   int
	wsPort     int
	version    string
	logger     *logrus.Logger
}

// NewUDPResponder constructs a responder; it does not bind until Run.
func NewUDPResponder(name string, httpPort, wsPort int, version string, logger *logrus.Logger) *UDPResponder {
	if logger == nil {
		logger = logrus.New()
	}
	return &UDPResponder{name: name, httpPort: httpPort, wsPort: wsPort, version: version, logger: logger}
}

// reusableListenConfig sets SO_REUSEADDR and SO_REUSEPORT on the probe
// socket before bind, so a fast daemon restart (or a second instance
// sharing the port) re-binds instead of failing with EADDRINUSE.
var reusableListenConfig = net.ListenConfig{
	Control: func(_, _ string, c syscall.RawConn) error {
		var sockErr error
		if err := c.Control(func(fd uintptr) {
			if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
				sockErr = err
				return
			}
			sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
		}); err != nil {
			return err
		}
		return sockErr
	},
}

// Run binds the UDP socket and answers probes until ctx is cancelled.
// Returns an error immediately if the bind fails; per the bridge's
// error taxonomy this is a BindFailed condition fatal to startup.
func (u *UDPResponder) Run(ctx context.Context) error {
	conn, err := reusableListenConfig.ListenPacket(ctx, "udp", fmt.Sprintf("0.0.0.0:%d", Port))
	if err != nil {
		return fmt.Errorf("discovery: bind udp %d: %w", Port, err)
	}

	payload, err := json.Marshal(announcement{
		Name:     u.name,
		HTTPPort: u.httpPort,
		WSPort:   u.wsPort,
		Version:  u.version,
	})
	if err != nil {
		conn.Close()
		return fmt.Errorf("discovery: marshal announcement: %w", err)
	}

	groutine.Go(ctx, "discovery-udp", func(ctx context.Context) {
		go func() {
			<-ctx.Done()
			conn.Close()
		}()

		buf := make([]byte, 256)
		for {
			n, addr, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}
			if !bytes.Equal(bytes.TrimSpace(buf[:n]), probeMessage) {
				continue
			}
			if _, err := conn.WriteTo(payload, addr); err != nil {
				u.logger.WithError(err).Debug("discovery reply failed")
			}
		}
	})
	return nil
}

// MDNSAdvertiser publishes the bridge's HTTP/WS endpoints via mDNS.
type MDNSAdvertiser struct {
	server *zeroconf.Server
}

// Advertise registers the service and keeps it alive until Shutdown
// is called. ip and version populate TXT records for clients that
// resolve by mDNS rather than by UDP probe.
func Advertise(name string, httpPort, wsPort int, ip, version string) (*MDNSAdvertiser, error) {
	txt := []string{
		"version=" + version,
		"ip=" + ip,
		fmt.Sprintf("port=%d", httpPort),
		fmt.Sprintf("ws=%d", wsPort),
	}
	server, err := zeroconf.Register(name, serviceType, "local.", httpPort, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("discovery: mdns register: %w", err)
	}
	return &MDNSAdvertiser{server: server}, nil
}

// Shutdown withdraws the mDNS registration.
func (m *MDNSAdvertiser) Shutdown() {
	if m.server != nil {
		m.server.Shutdown()
	}
}
