package scanner

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

const bannerWidth = 60

// Reporter renders scan cycles as plain text. Every block is written with a
// single Write so a report is never interleaved or left half-written.
type Reporter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewReporter creates a reporter writing to out
func NewReporter(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

// Banner writes the startup header
func (r *Reporter) Banner() error {
	line := strings.Repeat("=", bannerWidth)
	return r.write(fmt.Sprintf("\n%s\nARBITRAGE SCANNER\n%s\n", line, line))
}

// Report writes one cycle's result
func (r *Reporter) Report(cycle Cycle) error {
	var b strings.Builder

	fmt.Fprintf(&b, "\n[Scan #%d] %s", cycle.Number, cycle.StartedAt.Format("15:04:05"))
	if cycle.ScanID != "" {
		fmt.Fprintf(&b, " scan_id=%s", cycle.ScanID)
	}
	b.WriteString("\n")

	if len(cycle.Opportunities) == 0 {
		b.WriteString("  No opportunities found\n")
		return r.write(b.String())
	}

	fmt.Fprintf(&b, "\n FOUND %d opportunities:\n\n", len(cycle.Opportunities))
	for _, opp := range cycle.Opportunities {
		fmt.Fprintf(&b, "  %s\n", opp.Key)
		fmt.Fprintf(&b, "    BUY  %-12s @ %.4f\n", opp.BuyPlatform, opp.BuyPrice)
		fmt.Fprintf(&b, "    SELL %-12s @ %.4f\n", opp.SellPlatform, opp.SellPrice)
		fmt.Fprintf(&b, "    SPREAD: %.2f%%\n\n", opp.NetSpreadPct)
	}

	return r.write(b.String())
}

// Stopped writes the shutdown line
func (r *Reporter) Stopped() error {
	return r.write("\n\nScanner stopped\n")
}

func (r *Reporter) write(s string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := io.WriteString(r.out, s)
	return err
}
