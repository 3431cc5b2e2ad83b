package workload

import (
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
)

var reportHeader = table.Row{
	"run", "policy", "requests", "reads", "writes",
	"dev reads", "dev writes", "total cost", "pool", "elapsed", "verified",
}

// Render writes one table row per result.
func Render(w io.Writer, results []Result) {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	// Don't uppercase the header values.
	t.Style().Format.Header = text.FormatDefault

	t.AppendHeader(reportHeader)
	for _, r := range results {
		t.AppendRow(table.Row{
			r.ID,
			r.Policy,
			humanize.Comma(int64(r.Requests)),
			humanize.Comma(r.Reads),
			humanize.Comma(r.Writes),
			humanize.Comma(r.DeviceReads),
			humanize.Comma(r.DeviceWrites),
			strconv.FormatFloat(r.TotalCost, 'f', -1, 64),
			poolSize(r.PoolBytes),
			r.Elapsed.Round(time.Microsecond).String(),
			verified(r),
		})
	}
	t.Render()
}

func poolSize(n int64) string {
	if n == 0 {
		return "-"
	}
	return humanize.IBytes(uint64(n))
}

func verified(r Result) string {
	if r.Verified {
		return "yes"
	}
	return "-"
}
