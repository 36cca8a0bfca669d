// Command ubx2sbp reads a u-blox UBX byte stream from stdin, translates its
// raw measurements, broadcast ephemerides and inertial/odometry samples
// into SBP, and writes the resulting SBP byte stream to stdout. Frames it
// has no SBP equivalent for are silently dropped; translation errors are
// logged to stderr and do not stop the stream.
package main

import (
	"errors"
	"io"
	"log"
	"os"

	"github.com/bitflux-nav/gnsswire/cmd/pipeutil"
	"github.com/bitflux-nav/gnsswire/timetruth"
	"github.com/bitflux-nav/gnsswire/translate/ubxsbp"
	"github.com/bitflux-nav/gnsswire/wireerr"
	"github.com/urfave/cli/v2"
	"go.bug.st/serial"
)

func main() {
	app := &cli.App{
		Name:  "ubx2sbp",
		Usage: "translate a UBX stream on stdin (or a serial device) into an SBP stream on stdout",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  "sender_id",
				Usage: "SBP sender ID to stamp on every emitted frame",
			},
			&cli.BoolFlag{
				Name:  "time_truth",
				Usage: "resolve GPS week-number rollover with the TimeTruth engine",
			},
			&cli.StringFlag{
				Name:  "serial",
				Usage: "read UBX from this serial device instead of stdin, e.g. /dev/ttyACM0",
			},
			&cli.IntFlag{
				Name:  "baud",
				Usage: "serial line speed in bits per second",
				Value: 38400,
			},
			&cli.StringFlag{
				Name:  "log_dir",
				Usage: "write the event log to a daily-rolling file in this directory instead of stderr",
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	pipeutil.OpenEventLog(c.String("log_dir"), "ubx2sbp")

	var in io.Reader = os.Stdin
	if device := c.String("serial"); device != "" {
		port, err := serial.Open(device, &serial.Mode{BaudRate: c.Int("baud")})
		if err != nil {
			return err
		}
		defer port.Close()
		in = port
	}

	state := ubxsbp.New()
	state.Sender = uint16(c.Uint("sender_id"))
	if c.Bool("time_truth") {
		state.Time = timetruth.New()
	}

	needMoreBytes := wireerr.Sentinel(wireerr.NeedMoreBytes)

	return pipeutil.Pump(in, os.Stdout, func(buf []byte) int {
		frame, consumed, err := ubxsbp.NextFrame(buf)
		if err != nil {
			if errors.Is(err, needMoreBytes) {
				return 0
			}
			log.Printf("ubx2sbp: %v", err)
			return consumed
		}
		if err := state.HandleFrame(frame); err != nil {
			log.Printf("ubx2sbp: %v", err)
		}
		return consumed
	}, state.Drain)
}
