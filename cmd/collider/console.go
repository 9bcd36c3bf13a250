package main

import (
	"fmt"
	"io"

	"github.com/dattu/truncated_collider/pkg/search"
)

// console prints the classic progress stream: one line per progress marker,
// '*' per duplicate, '?' per inconclusive hit, and the final collision.
type console struct {
	w io.Writer
}

func newConsole(w io.Writer) *console { return &console{w: w} }

func (c *console) Progress(count uint64) {
	fmt.Fprintf(c.w, "-> %08d\n", count)
}

func (c *console) Event(e search.Event) {
	switch e.Kind {
	case search.Duplicate:
		fmt.Fprint(c.w, "*")
	case search.Inconclusive:
		fmt.Fprint(c.w, "?")
	case search.Verified:
		fmt.Fprintf(c.w, "-> %08d\n", e.Count)
		fmt.Fprintf(c.w, "EVO: %s .. %s -> %s\n", e.Prev.Sample, e.Curr.Sample, e.Hex)
	}
}
