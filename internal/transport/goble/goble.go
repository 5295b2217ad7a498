// Package goble implements transport.Transport on top of
// github.com/go-ble/ble, the cross-platform BLE central library the
// rest of this bridge's BLE stack is already built on.
package goble

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/srg/de1bridge/internal/groutine"
	"github.com/srg/de1bridge/internal/knownuuids"
	"github.com/srg/de1bridge/internal/transport"
)

// writeChunkSize keeps writes under the default BLE 4.x ATT_MTU
// (23 bytes, 20 of payload) so this works against any peripheral
// without first negotiating a larger MTU.
const writeChunkSize = 20
const writeChunkDelay = 10 * time.Millisecond

// DeviceFactory creates the platform ble.Device. The default is
// newDefaultDevice, resolved per-platform by device_darwin.go /
// device_linux.go; overridable in tests.
var DeviceFactory = newDefaultDevice

// Central adapts a go-ble device into transport.Transport.
type Central struct {
	logger *logrus.Logger
}

// New constructs a Central. logger may be nil, in which case a
// default logrus.Logger is used.
func New(logger *logrus.Logger) *Central {
	if logger == nil {
		logger = logrus.New()
	}
	return &Central{logger: logger}
}

func (c *Central) Scan(ctx context.Context, timeout time.Duration) (<-chan transport.Advertisement, error) {
	dev, err := DeviceFactory()
	if err != nil {
		return nil, transport.NormalizeError(err)
	}
	ble.SetDefaultDevice(dev)

	out := make(chan transport.Advertisement, 32)
	scanCtx, cancel := context.WithTimeout(ctx, timeout)

	groutine.Go(context.Background(), "ble-scan", func(_ context.Context) {
		defer close(out)
		defer cancel()
		err := dev.Scan(scanCtx, true, func(a ble.Advertisement) {
			uuids := make([]string, 0, len(a.Services()))
			for _, u := range a.Services() {
				uuids = append(uuids, u.String())
			}
			adv := transport.Advertisement{
				Name:         a.LocalName(),
				Addr:         a.Addr().String(),
				RSSI:         a.RSSI(),
				ServiceUUIDs: uuids,
			}
			select {
			case out <- adv:
			case <-scanCtx.Done():
			}
		})
		if err != nil && c.logger != nil {
			c.logger.WithError(transport.NormalizeError(err)).Debug("ble scan ended")
		}
	})

	return out, nil
}

func (c *Central) Connect(ctx context.Context, addr string) (transport.Peripheral, error) {
	dev, err := DeviceFactory()
	if err != nil {
		return nil, transport.NormalizeError(err)
	}
	ble.SetDefaultDevice(dev)

	client, err := ble.Dial(ctx, ble.NewAddr(addr))
	if err != nil {
		return nil, transport.NormalizeError(fmt.Errorf("dial %s: %w", addr, err))
	}

	connCtx, cancel := context.WithCancel(context.Background())
	p := &peripheral{
		addr:    addr,
		client:  client,
		logger:  c.logger,
		events:  make(chan transport.Event, 64),
		chars:   make(map[string]*ble.Characteristic),
		ctx:     connCtx,
		cancel:  cancel,
	}

	if disc, ok := client.(interface{ Disconnected() <-chan struct{} }); ok {
		groutine.Go(context.Background(), "ble-disconnect-watch", func(_ context.Context) {
			select {
			case <-disc.Disconnected():
				p.emit(transport.Event{Kind: transport.EventDisconnected})
				p.closeEvents()
			case <-connCtx.Done():
			}
		})
	}

	p.emit(transport.Event{Kind: transport.EventConnected})
	return p, nil
}

// peripheral is a live connection to one BLE device.
type peripheral struct {
	addr   string
	client ble.Client
	logger *logrus.Logger

	mu    sync.Mutex
	chars map[string]*ble.Characteristic

	events    chan transport.Event
	closeOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc
}

func (p *peripheral) Addr() string { return p.addr }

func (p *peripheral) Events() <-chan transport.Event { return p.events }

func (p *peripheral) emit(ev transport.Event) {
	select {
	case p.events <- ev:
	default:
		if p.logger != nil {
			p.logger.WithField("addr", p.addr).Warn("transport event dropped, subscriber too slow")
		}
	}
}

func (p *peripheral) closeEvents() {
	p.closeOnce.Do(func() { close(p.events) })
}

func (p *peripheral) DiscoverServices(ctx context.Context) error {
	profile, err := p.client.DiscoverProfile(true)
	if err != nil {
		return transport.NormalizeError(fmt.Errorf("discover profile: %w", err))
	}

	p.mu.Lock()
	for _, svc := range profile.Services {
		for _, ch := range svc.Characteristics {
			uuid := normalize(ch.UUID.String())
			p.chars[uuid] = ch
			if p.logger != nil {
				p.logger.WithFields(logrus.Fields{
					"addr": p.addr,
					"uuid": uuid,
					"name": knownuuids.Lookup(uuid),
				}).Debug("characteristic discovered")
			}
		}
	}
	p.mu.Unlock()

	p.emit(transport.Event{Kind: transport.EventServicesReady})
	return nil
}

func (p *peripheral) characteristic(uuid string) (*ble.Characteristic, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.chars[normalize(uuid)]
	if !ok {
		return nil, fmt.Errorf("transport: characteristic %s not found", uuid)
	}
	return ch, nil
}

func (p *peripheral) Subscribe(ctx context.Context, uuid string) error {
	ch, err := p.characteristic(uuid)
	if err != nil {
		return err
	}
	if p.logger != nil {
		p.logger.WithFields(logrus.Fields{
			"addr": p.addr,
			"uuid": uuid,
			"name": knownuuids.Lookup(uuid),
		}).Debug("subscribing to characteristic")
	}
	return transport.NormalizeError(p.client.Subscribe(ch, false, func(data []byte) {
		cp := append([]byte(nil), data...)
		p.emit(transport.Event{Kind: transport.EventNotification, UUID: uuid, Data: cp})
	}))
}

func (p *peripheral) Read(ctx context.Context, uuid string) ([]byte, error) {
	ch, err := p.characteristic(uuid)
	if err != nil {
		return nil, err
	}
	data, err := p.client.ReadCharacteristic(ch)
	if err != nil {
		return nil, transport.NormalizeError(err)
	}
	return data, nil
}

func (p *peripheral) Write(ctx context.Context, uuid string, data []byte) error {
	ch, err := p.characteristic(uuid)
	if err != nil {
		return err
	}
	for len(data) > 0 {
		n := len(data)
		if n > writeChunkSize {
			n = writeChunkSize
		}
		if err := p.client.WriteCharacteristic(ch, data[:n], false); err != nil {
			return transport.NormalizeError(fmt.Errorf("write %s: %w", uuid, err))
		}
		data = data[n:]
		if len(data) > 0 {
			time.Sleep(writeChunkDelay)
		}
	}
	return nil
}

func (p *peripheral) Disconnect() error {
	p.cancel()
	err := p.client.CancelConnection()
	p.closeEvents()
	return transport.NormalizeError(err)
}

// normalize lowercases and strips dashes, matching how go-ble itself
// renders UUID.String() for 128-bit UUIDs.
func normalize(uuid string) string {
	out := make([]byte, 0, len(uuid))
	for _, r := range uuid {
		if r == '-' {
			continue
		}
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		out = append(out, byte(r))
	}
	return string(out)
}
