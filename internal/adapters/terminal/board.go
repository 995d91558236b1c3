// Package terminal renders the live board as plain text.
package terminal

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"

	"github.com/samirrijal/trainboard/internal/core/domain"
)

const (
	clearScreen   = "\x1b[H\x1b[2J"
	nameWidth     = 32
	maxPerHeading = 5
)

// Board writes a rendering of each snapshot to w. On a terminal the screen
// is redrawn on every update; otherwise a board is printed only when its
// content changes, so piped output is not flooded by countdown ticks.
type Board struct {
	w    io.Writer
	live bool

	mu   sync.Mutex
	last string
}

// New creates a board writing to w. live enables full-screen redraws.
func New(w io.Writer, live bool) *Board {
	return &Board{w: w, live: live}
}

// NewStdout creates a board on stdout, live when stdout is a terminal.
func NewStdout() *Board {
	fd := os.Stdout.Fd()
	return New(os.Stdout, isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))
}

// Update renders snap if needed. It is safe for concurrent use.
func (b *Board) Update(snap domain.Snapshot) {
	body := Render(snap)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.live {
		fmt.Fprint(b.w, clearScreen+body+countdownLine(snap.Countdown))
		return
	}
	if body == b.last {
		return
	}
	b.last = body
	fmt.Fprint(b.w, body+"\n")
}

// Render formats the board without the per-second countdown line.
func Render(snap domain.Snapshot) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Nearby trains  ·  radius %s  ·  refresh #%d\n", radiusLabel(snap.Radius), snap.Countdown.RefreshEpoch)
	if snap.Location != nil {
		fmt.Fprintf(&buf, "Location %s (%s)\n", snap.Location, snap.LocationSource)
	}
	if snap.UsedFallbackDenied {
		buf.WriteString("Device location unavailable or denied.\n")
	}
	if snap.UsedIPFallback {
		buf.WriteString("Using approximate location from your IP address.\n")
	}
	buf.WriteString("\n")

	switch {
	case snap.Location == nil && !snap.Radius.Demo:
		buf.WriteString("Location unavailable. Set a location or switch to the demo radius.\n")
		return buf.String()
	case len(snap.Stations) == 0 && snap.Arrivals == nil:
		buf.WriteString("Finding nearby stations...\n")
		return buf.String()
	case len(snap.Stations) == 0:
		buf.WriteString("No stations found within the radius.\n")
		return buf.String()
	}

	byStop := make(map[string]domain.StationArrivals, len(snap.Arrivals))
	for _, a := range snap.Arrivals {
		byStop[a.StopID] = a
	}

	for _, st := range snap.Stations {
		name := runewidth.Truncate(st.StopName, nameWidth, "…")
		fmt.Fprintf(&buf, "%s %s mi\n", runewidth.FillRight(name, nameWidth), humanize.FtoaWithDigits(st.Distance, 2))

		if snap.Arrivals == nil {
			buf.WriteString("  loading arrivals...\n")
			continue
		}
		a := byStop[st.StopID]
		writeDirection(&buf, "Southbound", a.Southbound)
		writeDirection(&buf, "Northbound", a.Northbound)
	}

	if snap.NoTrainsFound {
		buf.WriteString("\nNo trains found.\n")
	}
	return buf.String()
}

func writeDirection(buf *bytes.Buffer, heading string, trains []domain.Train) {
	fmt.Fprintf(buf, "  %-11s", heading)
	if len(trains) == 0 {
		buf.WriteString(" -\n")
		return
	}
	shown := trains
	if len(shown) > maxPerHeading {
		shown = shown[:maxPerHeading]
	}
	parts := make([]string, len(shown))
	for i, t := range shown {
		parts[i] = t.ArrivalTime
		if t.RouteID != "" {
			parts[i] += " (" + t.RouteID + ")"
		}
	}
	buf.WriteString(" " + strings.Join(parts, "  "))
	if extra := len(trains) - len(shown); extra > 0 {
		fmt.Fprintf(buf, "  +%d more", extra)
	}
	buf.WriteString("\n")
}

func radiusLabel(r domain.Radius) string {
	if r.Demo {
		return "demo"
	}
	return humanize.FtoaWithDigits(r.Miles, 2) + " mi"
}

func countdownLine(c domain.CountdownState) string {
	return fmt.Sprintf("\nRefreshing in %ds\n", c.SecondsRemaining)
}
