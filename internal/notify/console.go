// Package notify renders game lifecycle events on the server console. It
// subscribes to the same bus the realtime hub does, so operators watching
// stdout see exactly what the gameEnd event carried.
package notify

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"

	"acquire-backend/internal/events"
)

// ConsoleReporter implements events.Bus and prints a final ranking table
// whenever a game ends. Everything else on the bus is ignored.
type ConsoleReporter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleReporter writes to stdout.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{out: os.Stdout}
}

// NewConsoleReporterWriter targets w, for tests.
func NewConsoleReporterWriter(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: w}
}

// Publish implements events.Bus.
func (c *ConsoleReporter) Publish(ev events.Event) {
	end, ok := ev.(events.GameEnded)
	if !ok {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "\n[%s] game %s finished\n", time.Now().Format("15:04:05"), end.LobbyID)

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Player", "Balance")
	for i, standing := range end.Result.Players {
		table.Append(
			fmt.Sprintf("%d", i+1),
			standing.Username,
			fmt.Sprintf("$%d", standing.Balance),
		)
	}
	table.Render()

	for _, b := range end.Result.Bonuses {
		fmt.Fprintf(c.out, "  bonus %s → %s $%d\n", b.Corporation, b.Username, b.Amount)
	}
}
