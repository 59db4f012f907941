package log

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

var (
	sampleInt      = 3
	sampleBytes    = []byte("123")
	sampleList     = []int64{10, 0, -10}
	sampleDuration = time.Second
	sampleTime     = time.Unix(12345678, 0)

	errSample = errors.New("some error")
)

func doLogs() {
	Infof("added %d bids to tree %x", sampleInt, sampleBytes)
	Debugw("generating score", "round", 20, "window", "[10,50)")
	Errorf("cannot commit bid index: %v", errSample)
	Warnw("various types",
		"list", sampleList,
		"duration", sampleDuration,
		"time", sampleTime,
	)
	Error(errSample)
}

func TestCheckInvalidChars(t *testing.T) {
	t.Cleanup(func() { panicOnInvalidChars = false })

	v := []byte{'h', 'e', 'l', 'l', 'o', 0xff, 'w', 'o', 'r', 'l', 'd'}
	panicOnInvalidChars = false
	Init("debug", "stderr", nil)
	Debugf("%s", v)
	// should not panic since env var is false. if it panics, test will fail

	// now enable panic and try again: should recover() and never reach t.Errorf()
	panicOnInvalidChars = true
	Init("debug", "stderr", nil)
	defer func() { recover() }()
	Debugf("%s", v)
	t.Errorf("Debugf(%s) should have panicked because of invalid char", v)
}

func TestLevelAndErrorOutput(t *testing.T) {
	c := qt.New(t)
	t.Cleanup(func() { Init(LogLevelError, "stderr", nil) })

	out := new(bytes.Buffer)
	errOut := new(bytes.Buffer)
	logTestWriter = out
	Init(LogLevelInfo, logTestWriterName, errOut)
	c.Assert(Level(), qt.Equals, LogLevelInfo)

	Debugw("hidden", "k", 1)
	Infow("visible", "bids", 2)
	Warnw("suspicious root", "root", "abc")
	c.Assert(strings.Contains(out.String(), "hidden"), qt.IsFalse)
	c.Assert(strings.Contains(out.String(), "visible"), qt.IsTrue)
	c.Assert(strings.Contains(out.String(), `"bids":2`), qt.IsTrue)
	c.Assert(strings.Contains(errOut.String(), "visible"), qt.IsFalse)
	c.Assert(strings.Contains(errOut.String(), "suspicious root"), qt.IsTrue)
}

func TestInvalidLevel(t *testing.T) {
	c := qt.New(t)
	t.Cleanup(func() { Init(LogLevelError, "stderr", nil) })
	c.Assert(func() { Init("verbose", "stderr", nil) }, qt.PanicMatches, `invalid log level.*`)
}

func BenchmarkLogger(b *testing.B) {
	logTestWriter = io.Discard // to not grow a buffer
	Init("debug", logTestWriterName, nil)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		doLogs()
	}
}
