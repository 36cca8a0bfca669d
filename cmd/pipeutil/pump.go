// Package pipeutil holds the byte-pump loop shared by the translator
// command-line tools: read stdin in chunks, hand the growing buffer to a
// framer/decoder until it can make no further progress, and flush whatever
// output the decoder produced after each read.
package pipeutil

import (
	"bufio"
	"io"
	"log"

	"github.com/goblimey/go-tools/dailylogger"
)

// OpenEventLog points the standard logger at a daily-rolling file in dir
// (one file per day, named prefix.yyyy-mm-dd.log), the same rotation the
// teacher's logging apps use for their event logs. Call it once at
// startup when the caller passed a log directory; an empty dir leaves the
// default stderr logger in place.
func OpenEventLog(dir, prefix string) {
	if dir == "" {
		return
	}
	log.SetOutput(dailylogger.New(dir, prefix+".", ".log"))
}

// Pump reads r in chunks, feeding the growing buffer to decodeOne until it
// returns a non-positive consumed count (meaning it needs more bytes than
// buf currently holds), writing whatever drain produces to w after each
// read. It returns when r is exhausted or a write to w fails.
func Pump(r io.Reader, w io.Writer, decodeOne func([]byte) int, drain func() []byte) error {
	br := bufio.NewReader(r)
	var buf []byte
	chunk := make([]byte, 4096)

	for {
		n, rerr := br.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			for len(buf) > 0 {
				consumed := decodeOne(buf)
				if consumed <= 0 {
					break
				}
				buf = buf[consumed:]
			}
			if out := drain(); len(out) > 0 {
				if _, werr := w.Write(out); werr != nil {
					return werr
				}
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				return nil
			}
			return rerr
		}
	}
}
