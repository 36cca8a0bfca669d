// Command vrsadjuster combines a base station's raw observations with the
// difference between a virtual reference station's correction stream and
// the base station's own correction stream, producing a single corrected
// SBP observation stream on stdout. Unlike the other translator commands it
// needs three independently-timed inputs, so it takes them as files rather
// than a single stdin pipe.
package main

import (
	"log"
	"os"

	"github.com/bitflux-nav/gnsswire/adjuster"
	"github.com/bitflux-nav/gnsswire/cmd/pipeutil"
	"github.com/bitflux-nav/gnsswire/sbp"
	"github.com/bitflux-nav/gnsswire/sbp/pack"
	"github.com/bitflux-nav/gnsswire/sbp/unpack"
	"github.com/urfave/cli/v2"
)

// matchBuckets is generous enough to hold every epoch in a typical
// multi-hour VRS session without the matcher's FIFO evicting one side of a
// pair before its partners arrive; these runs are batch jobs over whole
// files, not a bounded live pipe.
const matchBuckets = 1 << 20

func main() {
	app := &cli.App{
		Name:      "vrsadjuster",
		Usage:     "apply a VRS correction stream to a base station's raw observations",
		ArgsUsage: "<base-obs.sbp> <base-corr.sbp> <vrs-corr.sbp>",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  "sender_id",
				Usage: "SBP sender ID to stamp on the corrected epochs",
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
	pipeutil.OpenEventLog(c.String("log_dir"), "vrsadjuster")

	if c.NArg() != 3 {
		return cli.Exit("usage: vrsadjuster <base-obs.sbp> <base-corr.sbp> <vrs-corr.sbp>", 1)
	}

	m := adjuster.New(matchBuckets)
	m.DuplicateLog = func(stream adjuster.StreamType, timeMS int64) {
		log.Printf("vrsadjuster: duplicate epoch for stream %d at t=%dms", stream, timeMS)
	}

	streams := []struct {
		path   string
		stream adjuster.StreamType
	}{
		{c.Args().Get(0), adjuster.StreamBaseObs},
		{c.Args().Get(1), adjuster.StreamBaseCorr},
		{c.Args().Get(2), adjuster.StreamVRSCorr},
	}
	for _, s := range streams {
		if err := loadStream(s.path, s.stream, m); err != nil {
			return err
		}
	}

	sender := uint16(c.Uint("sender_id"))
	packer := pack.New(0)
	for {
		matched, ok := m.FindMatch()
		if !ok {
			break
		}
		epoch := adjuster.Adjust(matched)
		if err := packer.PackEpoch(sender, epoch.WN, epoch.TOWms, epoch.Observations); err != nil {
			log.Printf("vrsadjuster: pack epoch: %v", err)
			continue
		}
		// Drain after every epoch rather than once at the end: the
		// packer's FIFO is bounded and a whole session's worth of
		// corrected epochs would otherwise overflow it before this
		// batch job gets a chance to write any of it out.
		if _, err := os.Stdout.Write(packer.Drain()); err != nil {
			return err
		}
	}

	return nil
}

// loadStream reads every MSG_OBS fragment out of the SBP file at path,
// reassembles them into whole epochs, and adds each to m under stream.
// Frames of any other type are ignored; a file doesn't need to be
// exclusively observations.
func loadStream(path string, stream adjuster.StreamType, m *adjuster.Matcher) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	u := unpack.New(func(e unpack.Epoch) { m.Add(stream, e) })

	const minFrame = 1 + 5 + 2
	for len(data) > 0 {
		if len(data) < minFrame || data[0] != sbp.Preamble {
			data = data[1:]
			continue
		}
		f, consumed, err := sbp.Decode(data)
		if err != nil {
			log.Printf("vrsadjuster: %s: %v", path, err)
			data = data[1:]
			continue
		}
		if f.MsgType == sbp.MsgObs {
			h, obs := sbp.DecodeObsFrame(f.Payload)
			u.Push(h, obs)
		}
		data = data[consumed:]
	}
	return nil
}
