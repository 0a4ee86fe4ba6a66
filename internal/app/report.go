package app

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/five82/sporthub/internal/state"
)

// writeReport prints one line per endpoint followed by a summary.
func writeReport(w io.Writer, baseURL string, snap state.Snapshot) {
	fmt.Fprintf(w, "sporthub check against %s\n\n", baseURL)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	passed := 0
	for _, row := range snap.Rows {
		st := row.State
		switch {
		case st.Err != nil:
			fmt.Fprintf(tw, "FAIL\tGET %s\t%s\t%s\n", row.Endpoint.Path, row.Endpoint.Title, st.Err.Error())
		case st.Data != nil:
			passed++
			status := fmt.Sprintf("%d", st.Data.StatusCode)
			if sum, ok := row.Summary(); ok && sum.Status != "" {
				status += " " + sum.Status
			}
			fmt.Fprintf(tw, "PASS\tGET %s\t%s\t%s\n", row.Endpoint.Path, row.Endpoint.Title, status)
		default:
			fmt.Fprintf(tw, "SKIP\tGET %s\t%s\t%s\n", row.Endpoint.Path, row.Endpoint.Title, st.Status)
		}
	}
	_ = tw.Flush()

	fmt.Fprintf(w, "\n%d/%d endpoints passed\n", passed, len(snap.Rows))
}
