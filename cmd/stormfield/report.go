package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/talgya/stormfield/internal/engine"
	"github.com/talgya/stormfield/internal/world"
)

// writeReport prints the final metrics table: one row per agent in
// registration order, then the team total.
func writeReport(out io.Writer, snap engine.Snapshot, elapsed time.Duration) {
	fmt.Fprintf(out, "\nRun %s: %s ticks in %s, %s storms\n",
		snap.RunID, humanize.Comma(int64(snap.Tick)), elapsed.Round(time.Millisecond), humanize.Comma(int64(snap.Storm.Storms)))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "agent\tvariant\tdelivered\tcrystal\tmetal\tstructure\t")

	var crystal, metal, structure int
	for _, a := range snap.Agents {
		t := snap.Ledger[a.ID]
		c, m, s := t.Count[world.KindCrystal], t.Count[world.KindMetal], t.Count[world.KindStructure]
		crystal += c
		metal += m
		structure += s
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t\n", a.Name, a.Variant, humanize.Comma(int64(t.Value)), c, m, s)
	}
	fmt.Fprintf(tw, "team\t\t%s\t%d\t%d\t%d\t\n", humanize.Comma(int64(snap.Delivered)), crystal, metal, structure)
	tw.Flush()

	left := 0
	for _, n := range snap.Remaining {
		left += n
	}
	fmt.Fprintf(out, "%s left on the field\n", english.Plural(left, "resource", ""))
}

func humanBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
