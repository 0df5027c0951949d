// Package cmdscan provides the printer discovery subcommand.
package cmdscan

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/pterm/pterm"

	"github.com/rusq/posprint/cmd/tp/internal/cfg"
	"github.com/rusq/posprint/cmd/tp/internal/golang/base"
	"github.com/rusq/posprint/transport"
)

var CmdScan = &base.Command{
	Run:        runScan,
	UsageLine:  "tp scan [flags] [ble|serial]",
	Short:      "lists Bluetooth LE devices or serial ports",
	FlagMask:   cfg.OmitAll,
	PrintFlags: true,
	Long: `
Scans for advertising Bluetooth LE devices (default), or lists the serial
ports of the system.  Use the name with -p or the address with -mac, or the
port with -port.
`,
}

var timeout time.Duration

func init() {
	CmdScan.Flag.DurationVar(&timeout, "timeout", 5*time.Second, "BLE scan `duration`")
}

func runScan(ctx context.Context, cmd *base.Command, args []string) error {
	what := cfg.TransportBLE
	if len(args) > 0 {
		what = args[0]
	}
	switch what {
	case cfg.TransportBLE:
		return scanBLE(ctx, os.Stdout)
	case cfg.TransportSerial:
		return listSerial(os.Stdout)
	default:
		base.SetExitStatus(base.SInvalidParameters)
		return fmt.Errorf("unknown scan target: %q", what)
	}
}

func scanBLE(ctx context.Context, w io.Writer) error {
	if err := cfg.Adapter().Enable(); err != nil {
		base.SetExitStatus(base.STransportError)
		return fmt.Errorf("failed to enable Bluetooth adapter: %w", err)
	}
	spinner, _ := pterm.DefaultSpinner.Start("Scanning for ", timeout, "...")
	devices, err := transport.Scan(ctx, cfg.Adapter(), timeout)
	if err != nil {
		spinner.Fail(err)
		base.SetExitStatus(base.STransportError)
		return err
	}
	spinner.Success("Found ", len(devices), " devices")
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(deviceTable(devices)).Render()
}

// deviceTable returns the table data, named devices first, strongest signal
// first.
func deviceTable(devices []transport.Device) pterm.TableData {
	slices.SortFunc(devices, func(a, b transport.Device) int {
		if (a.Name == "") != (b.Name == "") {
			if a.Name == "" {
				return 1
			}
			return -1
		}
		return cmp.Compare(b.RSSI, a.RSSI)
	})
	data := pterm.TableData{{"Name", "Address", "RSSI"}}
	for _, d := range devices {
		data = append(data, []string{d.Name, d.Address, strconv.Itoa(int(d.RSSI))})
	}
	return data
}

func listSerial(w io.Writer) error {
	ports, err := transport.SerialPorts()
	if err != nil {
		base.SetExitStatus(base.STransportError)
		return err
	}
	data := pterm.TableData{{"Port"}}
	for _, p := range ports {
		data = append(data, []string{p})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(data).Render()
}
