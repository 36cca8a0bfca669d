// Command rtcm3tosbp reads an RTCM3 byte stream from stdin, translates it
// into SBP observations and ephemerides, and writes the resulting SBP byte
// stream to stdout. Frames it has no SBP equivalent for are silently
// dropped; translation errors are logged to stderr and do not stop the
// stream.
package main

import (
	"errors"
	"log"
	"os"

	"github.com/bitflux-nav/gnsswire/cmd/pipeutil"
	"github.com/bitflux-nav/gnsswire/rtcm3"
	"github.com/bitflux-nav/gnsswire/timetruth"
	"github.com/bitflux-nav/gnsswire/translate/rtcmsbp"
	"github.com/bitflux-nav/gnsswire/wireerr"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "rtcm3tosbp",
		Usage: "translate an RTCM3 stream on stdin into an SBP stream on stdout",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  "sender_id",
				Usage: "SBP sender ID to stamp on every emitted frame",
			},
			&cli.BoolFlag{
				Name:  "time_truth",
				Usage: "resolve GPS/GLONASS week-number rollover with the TimeTruth engine",
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
	pipeutil.OpenEventLog(c.String("log_dir"), "rtcm3tosbp")

	var t *timetruth.Engine
	if c.Bool("time_truth") {
		t = timetruth.New()
	}

	state := rtcmsbp.New(t)
	state.Sender = uint16(c.Uint("sender_id"))

	needMoreBytes := wireerr.Sentinel(wireerr.NeedMoreBytes)

	return pipeutil.Pump(os.Stdin, os.Stdout, func(buf []byte) int {
		frame, consumed, err := rtcm3.NextFrame(buf)
		if err != nil {
			if errors.Is(err, needMoreBytes) {
				return 0 // wait for more input; don't discard what might be a partial frame
			}
			log.Printf("rtcm3tosbp: %v", err)
			return consumed // NextFrame has already resynchronised past the bad frame
		}
		if err := state.HandleFrame(frame); err != nil {
			log.Printf("rtcm3tosbp: %v", err)
		}
		return consumed
	}, state.Drain)
}
