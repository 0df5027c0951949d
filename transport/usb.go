package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/gousb"
)

// USB sends frames to the bulk OUT endpoint of a USB printer.
type USB struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	done func()
	ep   *gousb.OutEndpoint
}

// ParseVIDPID parses the "vid:pid" pair in hex, i.e. "0416:5011".
func ParseVIDPID(s string) (vid, pid uint16, err error) {
	v, p, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid USB id %q, want vid:pid", s)
	}
	v16, err := strconv.ParseUint(strings.TrimPrefix(v, "0x"), 16, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid vendor id %q: %w", v, err)
	}
	p16, err := strconv.ParseUint(strings.TrimPrefix(p, "0x"), 16, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid product id %q: %w", p, err)
	}
	return uint16(v16), uint16(p16), nil
}

// OpenUSB opens the device with vid:pid and claims its default interface.
// If endpoint is 0, the first OUT endpoint of the interface is used.
func OpenUSB(vid, pid uint16, endpoint int) (*USB, error) {
	uctx := gousb.NewContext()
	dev, err := uctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		uctx.Close()
		return nil, fmt.Errorf("failed to open USB device %04x:%04x: %w", vid, pid, err)
	}
	if dev == nil {
		uctx.Close()
		return nil, fmt.Errorf("USB device %04x:%04x: %w", vid, pid, ErrNotFound)
	}
	if err := dev.SetAutoDetach(true); err != nil {
		slog.Warn("failed to set auto detach", "error", err)
	}
	intf, done, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		uctx.Close()
		return nil, fmt.Errorf("failed to claim interface: %w", err)
	}
	u := &USB{ctx: uctx, dev: dev, done: done}
	if endpoint == 0 {
		endpoint, err = outEndpoint(intf.Setting)
		if err != nil {
			u.Close()
			return nil, err
		}
	}
	ep, err := intf.OutEndpoint(endpoint)
	if err != nil {
		u.Close()
		return nil, fmt.Errorf("failed to open OUT endpoint %d: %w", endpoint, err)
	}
	u.ep = ep
	slog.Info("opened USB printer", "vid", fmt.Sprintf("%04x", vid), "pid", fmt.Sprintf("%04x", pid), "endpoint", endpoint)
	return u, nil
}

func outEndpoint(setting gousb.InterfaceSetting) (int, error) {
	for _, desc := range setting.Endpoints {
		if desc.Direction == gousb.EndpointDirectionOut && desc.TransferType == gousb.TransferTypeBulk {
			return desc.Number, nil
		}
	}
	return 0, errors.New("no bulk OUT endpoint on the interface")
}

func (u *USB) Send(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return ErrEmptyFrame
	}
	n, err := u.ep.WriteContext(ctx, data)
	if err != nil {
		return fmt.Errorf("USB write failed: %w", err)
	}
	if n != len(data) {
		return shortWrite(n, len(data))
	}
	slog.DebugContext(ctx, "frame written to USB", "bytes", n)
	return nil
}

func (u *USB) Close() error {
	if u.done != nil {
		u.done()
	}
	var errs []error
	if u.dev != nil {
		errs = append(errs, u.dev.Close())
	}
	if u.ctx != nil {
		errs = append(errs, u.ctx.Close())
	}
	return errors.Join(errs...)
}
