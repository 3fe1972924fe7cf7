package output

import (
	"io"
	"time"

	"github.com/cheggaaa/pb/v3"
)

// Transfer returns a function wrapping a download body in a byte progress
// bar drawn on w. When w is not a terminal the body is returned unwrapped.
func Transfer(w io.Writer) func(r io.Reader, size int64) (io.Reader, func()) {
	return func(r io.Reader, size int64) (io.Reader, func()) {
		if !writerIsTTY(w) {
			return r, func() {}
		}

		tmpl := `   └ {{counters . }} {{bar . "[" "=" ">" " " "]" }} {{percent . }} {{speed . }}`
		if size <= 0 {
			tmpl = `   └ {{counters . }} {{speed . }}`
		}

		bar := pb.New64(size).
			SetTemplate(pb.ProgressBarTemplate(gray.Sprint(tmpl))).
			SetWriter(w).
			Set(pb.Bytes, true).
			SetRefreshRate(time.Second / 60).
			SetMaxWidth(100).
			Start()

		return bar.NewProxyReader(r), func() { bar.Finish() }
	}
}
