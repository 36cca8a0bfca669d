// Command sbp2rtcm reads an SBP byte stream from stdin, translates its
// observations and ephemerides into RTCM3, and writes the resulting RTCM3
// byte stream to stdout. Frames it has no RTCM3 equivalent for are wrapped
// in a Swift proprietary envelope rather than dropped, so a downstream
// sbp2rtcm/rtcm3tosbp round trip never silently loses data.
package main

import (
	"log"
	"os"

	"github.com/bitflux-nav/gnsswire/cmd/pipeutil"
	"github.com/bitflux-nav/gnsswire/sbp"
	"github.com/bitflux-nav/gnsswire/translate/rtcmsbp"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "sbp2rtcm",
		Usage: "translate an SBP stream on stdin into an RTCM3 stream on stdout",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  "station_id",
				Usage: "RTCM3 reference station ID to stamp on every emitted frame",
			},
			&cli.BoolFlag{
				Name:  "legacy",
				Usage: "emit legacy 1004/1012 observations instead of MSM4",
			},
			&cli.IntFlag{
				Name:  "leap_seconds",
				Usage: "fixed GPS-UTC leap second count to use for GLONASS ephemerides; required for GLONASS output",
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
	pipeutil.OpenEventLog(c.String("log_dir"), "sbp2rtcm")

	out := rtcmsbp.NewOutbound()
	out.StationID = c.Uint("station_id")
	if c.Bool("legacy") {
		out.Mode = rtcmsbp.ObsModeLegacy
	}
	if c.IsSet("leap_seconds") {
		v := c.Int("leap_seconds")
		out.LeapSeconds = &v
	}

	return pipeutil.Pump(os.Stdin, os.Stdout, func(buf []byte) int {
		const minFrame = 1 + 5 + 2 // preamble + header + CRC, zero-length payload
		if len(buf) < minFrame {
			return 0
		}
		if buf[0] != sbp.Preamble {
			return 1 // not a frame boundary; resync one byte at a time
		}
		payloadLen := int(buf[5])
		total := minFrame + payloadLen
		if len(buf) < total {
			return 0
		}

		f, consumed, err := sbp.Decode(buf)
		if err != nil {
			log.Printf("sbp2rtcm: %v", err)
			return 1
		}
		if err := out.HandleSBP(f); err != nil {
			log.Printf("sbp2rtcm: %v", err)
		}
		return consumed
	}, out.Drain)
}
