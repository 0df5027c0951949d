// Package cfg contains common configuration variables.
package cfg

import (
	"flag"
	"fmt"
	"log/slog"
	"time"

	"github.com/rusq/osenv/v2"
	"tinygo.org/x/bluetooth"

	"github.com/rusq/posprint"
	"github.com/rusq/posprint/bitmap"
	"github.com/rusq/posprint/escpos"
	"github.com/rusq/posprint/transport"
)

var adapter = bluetooth.DefaultAdapter

// DefaultPrinterName is the advertised name of POS-5809 style printers.
const DefaultPrinterName = "BlueTooth Printer"

// Transports.
const (
	TransportBLE    = "ble"
	TransportHTTP   = "http"
	TransportSerial = "serial"
	TransportUSB    = "usb"
	TransportFile   = "file"
)

var (
	TraceFile   string = osenv.Value("TRACE_FILE", "")
	LogFile     string = osenv.Value("LOG_FILE", "")
	JSONHandler bool   = osenv.Value("JSON_LOG", false)
	Verbose     bool   = osenv.Value("DEBUG", false)

	Transport  string        = osenv.Value("TP_TRANSPORT", TransportBLE)
	PrinterURL string        = osenv.Value("TP_URL", "")
	SerialPort string        = osenv.Value("TP_PORT", "")
	BaudRate   int           = osenv.Value("TP_BAUD", transport.DefaultBaudRate)
	USBDevice  string        = osenv.Value("TP_USB", "")
	ChunkSize  int           = transport.DefaultChunkSize
	ChunkDelay time.Duration = transport.DefaultChunkDelay
	Output     string        = "-"
	DryRun     bool          = osenv.Value("DRY_RUN", false)

	SearchParams = transport.SearchParameters{
		Name:       osenv.Value("TP_PRINTER", DefaultPrinterName),
		MACAddress: osenv.Value("TP_MAC", ""),
	}

	Dither      bitmap.DitherMode = bitmap.DefaultDitherMode
	Equalize    bool
	AutoDither  bool
	Gamma       float64 = bitmap.DefaultGamma
	PrefixText  string
	Timestamp   bool
	Width       int    = posprint.DefaultRasterWidth
	Encoding    string = string(escpos.UTF8)
	CropRect    string
	PreviewFile string

	Log *slog.Logger = slog.Default()
)

type FlagMask uint16

const (
	DefaultFlags     FlagMask = 0
	OmitConnectFlags FlagMask = 1 << (iota - 1)
	OmitCommonImageFlags

	OmitAll = OmitConnectFlags | OmitCommonImageFlags
)

// SetBaseFlags sets base flags.
func SetBaseFlags(fs *flag.FlagSet, mask FlagMask) {
	fs.StringVar(&TraceFile, "trace", TraceFile, "trace `filename`")
	fs.StringVar(&LogFile, "log", LogFile, "log `file`, if not specified, messages are printed to STDERR")
	fs.BoolVar(&JSONHandler, "log-json", JSONHandler, "log in JSON format")
	fs.BoolVar(&Verbose, "v", Verbose, "verbose messages")

	if mask&OmitConnectFlags == 0 {
		fs.StringVar(&Transport, "t", Transport, "printer `transport`, one of: ble, http, serial, usb, file")
		fs.StringVar(&SearchParams.Name, "p", SearchParams.Name, "BLE printer `name`")
		fs.StringVar(&SearchParams.MACAddress, "mac", SearchParams.MACAddress, "MAC `address` of the BLE printer")
		fs.IntVar(&ChunkSize, "chunk", ChunkSize, "BLE write chunk `size` in bytes, at most 180")
		fs.DurationVar(&ChunkDelay, "d", ChunkDelay, "delay between BLE chunks")
		fs.StringVar(&PrinterURL, "url", PrinterURL, "print server `URL` for the http transport")
		fs.StringVar(&SerialPort, "port", SerialPort, "serial `port` for the serial transport")
		fs.IntVar(&BaudRate, "baud", BaudRate, "serial baud `rate`")
		fs.StringVar(&USBDevice, "usb", USBDevice, "USB printer `vid:pid`, i.e. 0416:5011")
		fs.StringVar(&Output, "o", Output, "output `file` for the file transport, - for STDOUT")
		fs.BoolVar(&DryRun, "dry", DryRun, "dry run, do not print, but create preview files")
	}

	if mask&OmitCommonImageFlags == 0 {
		fs.Var(&Dither, "dither", fmt.Sprintf("dithering `algorithm`, one of: %v", bitmap.AllDitherModes()))
		fs.BoolVar(&Equalize, "eq", Equalize, "equalize the histogram before dithering")
		fs.BoolVar(&AutoDither, "auto-dither", AutoDither, "automatically disables dithering if a document is detected")
		fs.Float64Var(&Gamma, "gamma", Gamma, "gamma correction, 0 disables")
		fs.StringVar(&PrefixText, "prefix", PrefixText, "`text` to print above the image")
		fs.BoolVar(&Timestamp, "ts", Timestamp, "print the timestamp below the image")
		fs.IntVar(&Width, "w", Width, "printer width in dots")
		fs.StringVar(&Encoding, "enc", Encoding, fmt.Sprintf("text `encoding`, one of: %v", escpos.AllEncodings()))
		fs.StringVar(&CropRect, "crop", CropRect, "crop `rectangle` x0,y0,x1,y1 in image pixels")
		fs.StringVar(&PreviewFile, "preview", PreviewFile, "save the dithered image as PNG `file`")
	}
}

// SetDebugLevel sets the default logger level to debug.
func SetDebugLevel() {
	slog.SetLogLoggerLevel(slog.LevelDebug)
}

func Adapter() *bluetooth.Adapter {
	return adapter
}
