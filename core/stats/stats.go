package stats

import (
	"sync/atomic"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Counters accumulates run statistics. All methods are safe for
// concurrent use; scheduled work items increment counters as they
// reach a terminal outcome.
type Counters struct {
	success atomic.Int64
	skipped atomic.Int64
	errors  atomic.Int64
}

// AddSuccess records one successfully applied operation.
func (c *Counters) AddSuccess() { c.success.Add(1) }

// AddSkipped records one operation that was not needed (already exists,
// already linked, or invalid input row).
func (c *Counters) AddSkipped() { c.skipped.Add(1) }

// AddError records one failed operation.
func (c *Counters) AddError() { c.errors.Add(1) }

// Snapshot returns the current totals.
func (c *Counters) Snapshot() Summary {
	return Summary{
		Success: c.success.Load(),
		Skipped: c.skipped.Load(),
		Errors:  c.errors.Load(),
	}
}

// Summary is an immutable view of the counters, reported at shutdown.
type Summary struct {
	Success int64
	Skipped int64
	Errors  int64
}

// Total is the number of terminally classified items.
func (s Summary) Total() int64 {
	return s.Success + s.Skipped + s.Errors
}

// Render formats the summary as a table for the end-of-run report.
func (s Summary) Render() string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Outcome", "Count"})
	t.AppendRows([]table.Row{
		{"success", s.Success},
		{"skipped", s.Skipped},
		{"errors", s.Errors},
	})
	t.AppendFooter(table.Row{"total", s.Total()})
	return t.Render()
}
