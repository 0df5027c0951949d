package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

const (
	// DefaultChunkSize keeps writes below the common 185 byte MTU.
	DefaultChunkSize = 180
	// DefaultChunkDelay is the pause after each chunk.
	DefaultChunkDelay = 10 * time.Millisecond
)

// Writable characteristics of the supported printers, in order of
// preference.
var DefaultCharacteristics = []string{
	"49535343-8841-43f4-a8d4-ecbe34729bb3", // Microchip transparent UART
	"00002af1-0000-1000-8000-00805f9b34fb", // 18f0 printer service
	"0000ffe1-0000-1000-8000-00805f9b34fb", // HM-10 style serial
}

// SearchParameters identify the printer by advertised name or MAC address.
type SearchParameters struct {
	Name       string
	MACAddress string
}

func (sp SearchParameters) matches(sr bluetooth.ScanResult) bool {
	if sp.Name != "" && sr.LocalName() == sp.Name {
		return true
	}
	return sp.MACAddress != "" && strings.EqualFold(sr.Address.String(), sp.MACAddress)
}

// chunkWriter is the write side of a GATT characteristic.
type chunkWriter interface {
	WriteWithoutResponse(p []byte) (int, error)
}

type bleOptions struct {
	chunkSize       int
	chunkDelay      time.Duration
	characteristics []string
}

// BLEOption configures the BLE connection.
type BLEOption func(*bleOptions)

// WithChunkSize sets the maximum write size.  Values outside
// 1..[DefaultChunkSize] are ignored.
func WithChunkSize(n int) BLEOption {
	return func(o *bleOptions) {
		if 0 < n && n <= DefaultChunkSize {
			o.chunkSize = n
		}
	}
}

// WithChunkDelay sets the delay after each chunk.
func WithChunkDelay(d time.Duration) BLEOption {
	return func(o *bleOptions) {
		if d >= 0 && d <= time.Second {
			o.chunkDelay = d
		}
	}
}

// WithCharacteristic overrides the list of characteristic UUIDs to look for.
func WithCharacteristic(uuids ...string) BLEOption {
	return func(o *bleOptions) {
		if len(uuids) > 0 {
			o.characteristics = uuids
		}
	}
}

func defaultBLEOptions() bleOptions {
	return bleOptions{
		chunkSize:       DefaultChunkSize,
		chunkDelay:      DefaultChunkDelay,
		characteristics: DefaultCharacteristics,
	}
}

// BLEConn is a connection to a BLE printer.  Once disconnected it stays
// disconnected, and every Send returns [ErrDisconnected].
type BLEConn struct {
	addr       string
	w          chunkWriter
	disconnect func() error
	opts       bleOptions

	mu       sync.Mutex // serialises Send
	done     chan struct{}
	doneOnce sync.Once
}

func newBLEConn(w chunkWriter, disconnect func() error, opts bleOptions) *BLEConn {
	return &BLEConn{
		w:          w,
		disconnect: disconnect,
		opts:       opts,
		done:       make(chan struct{}),
	}
}

// ConnectBLE scans for the printer, connects to it and locates a writable
// characteristic.  The adapter must be enabled.
func ConnectBLE(ctx context.Context, adapter *bluetooth.Adapter, sp SearchParameters, opt ...BLEOption) (*BLEConn, error) {
	if sp.Name == "" && sp.MACAddress == "" {
		return nil, errors.New("either device name or MAC address must be specified")
	}
	opts := defaultBLEOptions()
	for _, o := range opt {
		o(&opts)
	}

	found, err := locateDevice(ctx, adapter, sp)
	if err != nil {
		return nil, fmt.Errorf("failed to locate device: %w", err)
	}

	conn := newBLEConn(nil, nil, opts)
	conn.addr = found.Address.String()
	adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if !connected && device.Address.String() == conn.addr {
			slog.Warn("printer disconnected", "address", conn.addr)
			conn.markDone()
		}
	})

	device, err := adapter.Connect(found.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to device: %w", err)
	}
	char, err := locateCharacteristic(device, opts.characteristics)
	if err != nil {
		if derr := device.Disconnect(); derr != nil {
			slog.Warn("failed to disconnect", "error", derr)
		}
		return nil, fmt.Errorf("failed to locate characteristic: %w", err)
	}
	conn.w = char
	conn.disconnect = device.Disconnect
	slog.Info("connected to printer", "name", found.LocalName(), "address", conn.addr, "characteristic", char.UUID().String())
	return conn, nil
}

// Send writes data in chunks of at most chunk size bytes, pausing after each
// chunk.  It returns on the first failed write.
func (c *BLEConn) Send(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return ErrEmptyFrame
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	lg := slog.With("address", c.addr, "bytes", len(data))
	lg.DebugContext(ctx, "sending frame", "chunk_size", c.opts.chunkSize)
	for off := 0; off < len(data); off += c.opts.chunkSize {
		select {
		case <-c.done:
			return fmt.Errorf("at offset %d: %w", off, ErrDisconnected)
		case <-ctx.Done():
			return fmt.Errorf("at offset %d: %w", off, ctx.Err())
		default:
		}
		end := min(off+c.opts.chunkSize, len(data))
		chunk := data[off:end]
		n, err := c.w.WriteWithoutResponse(chunk)
		if err != nil {
			return fmt.Errorf("write at offset %d failed: %w", off, err)
		}
		if n != len(chunk) {
			return fmt.Errorf("write at offset %d: %w", off, shortWrite(n, len(chunk)))
		}
		if err := c.pause(ctx); err != nil {
			return fmt.Errorf("at offset %d: %w", end, err)
		}
	}
	lg.DebugContext(ctx, "frame sent")
	return nil
}

// pause waits for the chunk delay.
func (c *BLEConn) pause(ctx context.Context) error {
	if c.opts.chunkDelay <= 0 {
		return nil
	}
	t := time.NewTimer(c.opts.chunkDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-c.done:
		return ErrDisconnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel that is closed when the printer disconnects or the
// connection is closed.
func (c *BLEConn) Done() <-chan struct{} {
	return c.done
}

// Address returns the printer address.
func (c *BLEConn) Address() string {
	return c.addr
}

func (c *BLEConn) markDone() {
	c.doneOnce.Do(func() { close(c.done) })
}

// Close disconnects from the printer.
func (c *BLEConn) Close() error {
	select {
	case <-c.done:
		return nil
	default:
	}
	c.markDone()
	if c.disconnect == nil {
		return nil
	}
	if err := c.disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}
	slog.Info("disconnected from printer", "address", c.addr)
	return nil
}

func locateDevice(ctx context.Context, adapter *bluetooth.Adapter, sp SearchParameters) (bluetooth.ScanResult, error) {
	var (
		d     bluetooth.ScanResult
		found bool
	)
	stop := context.AfterFunc(ctx, func() {
		if err := adapter.StopScan(); err != nil {
			slog.ErrorContext(ctx, "failed to stop scanning", "error", err)
		}
	})
	defer stop()
	err := adapter.Scan(func(a *bluetooth.Adapter, sr bluetooth.ScanResult) {
		if found || !sp.matches(sr) {
			return
		}
		slog.Info("found printer", "name", sr.LocalName(), "address", sr.Address.String(), "rssi", sr.RSSI)
		d, found = sr, true
		if err := a.StopScan(); err != nil {
			slog.ErrorContext(ctx, "failed to stop scanning", "error", err)
		}
	})
	if err != nil {
		return d, fmt.Errorf("failed to start scanning: %w", err)
	}
	if !found {
		if ctx.Err() != nil {
			return d, fmt.Errorf("scanning was cancelled: %w", ctx.Err())
		}
		return d, ErrNotFound
	}
	return d, nil
}

// locateCharacteristic returns the first characteristic from uuids, in
// order of preference, that the device exposes.
func locateCharacteristic(device bluetooth.Device, uuids []string) (bluetooth.DeviceCharacteristic, error) {
	var zero bluetooth.DeviceCharacteristic
	services, err := device.DiscoverServices(nil) // all
	if err != nil {
		return zero, fmt.Errorf("failed to discover services: %w", err)
	}
	if len(services) == 0 {
		return zero, fmt.Errorf("no services found on device %s", device.Address.String())
	}
	available := make(map[string]bluetooth.DeviceCharacteristic)
	for _, service := range services {
		chars, err := service.DiscoverCharacteristics(nil) // all
		if err != nil {
			return zero, fmt.Errorf("failed to discover characteristics for service %s: %w", service.UUID().String(), err)
		}
		for _, char := range chars {
			slog.Debug("discovered characteristic", "service", service.UUID().String(), "uuid", char.UUID().String())
			available[strings.ToLower(char.UUID().String())] = char
		}
	}
	for _, u := range uuids {
		if char, ok := available[strings.ToLower(u)]; ok {
			return char, nil
		}
	}
	return zero, fmt.Errorf("none of the characteristics %v found", uuids)
}

// Device is a BLE device seen during a scan.
type Device struct {
	Name    string
	Address string
	RSSI    int16
}

// Scan lists advertising devices until the timeout expires or ctx is
// cancelled.
func Scan(ctx context.Context, adapter *bluetooth.Adapter, timeout time.Duration) ([]Device, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, func() {
		if err := adapter.StopScan(); err != nil {
			slog.Error("failed to stop scanning", "error", err)
		}
	})
	defer stop()

	var (
		mu      sync.Mutex
		seen    = make(map[string]int)
		devices []Device
	)
	err := adapter.Scan(func(_ *bluetooth.Adapter, sr bluetooth.ScanResult) {
		mu.Lock()
		defer mu.Unlock()
		addr := sr.Address.String()
		if i, ok := seen[addr]; ok {
			if devices[i].Name == "" {
				devices[i].Name = sr.LocalName()
			}
			devices[i].RSSI = sr.RSSI
			return
		}
		seen[addr] = len(devices)
		devices = append(devices, Device{Name: sr.LocalName(), Address: addr, RSSI: sr.RSSI})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start scanning: %w", err)
	}
	mu.Lock()
	defer mu.Unlock()
	return devices, nil
}
