package storage

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// consoleTopN bounds how many opportunities are printed per run.
const consoleTopN = 10

// ConsoleStorage implements Storage by pretty-printing to console.
type ConsoleStorage struct {
	out    io.Writer
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage writing to stdout.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		out:    os.Stdout,
		logger: logger,
	}
}

// StoreSnapshot pretty-prints the top opportunities of a run.
func (c *ConsoleStorage) StoreSnapshot(ctx context.Context, snap *Snapshot) error {
	rule := "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

	fmt.Fprintln(c.out, "\n"+rule)
	fmt.Fprintf(c.out, "📈 OPPORTUNITY SNAPSHOT\n")
	fmt.Fprintln(c.out, rule)
	fmt.Fprintf(c.out, "Run:      %s\n", snap.RunID.String()[:8])
	fmt.Fprintf(c.out, "Time:     %s\n", snap.CapturedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(c.out, "Markets:  %d\n", len(snap.Opportunities))
	fmt.Fprintf(c.out, "Sports:   %d with odds, %d failed\n", len(snap.Lines), len(snap.Failures))
	fmt.Fprintln(c.out, rule)

	n := len(snap.Opportunities)
	if n > consoleTopN {
		n = consoleTopN
	}
	for i := 0; i < n; i++ {
		opp := &snap.Opportunities[i]
		fmt.Fprintf(c.out, "%2d. %-60.60s  price=%.4f  ev%%=%7.2f  [%s]\n",
			i+1, opp.Title, opp.Price, opp.EVPercentOr(0), opp.ComparisonBasis)
	}
	if len(snap.Opportunities) == 0 {
		fmt.Fprintln(c.out, "  no opportunities")
	}
	fmt.Fprintln(c.out, rule)

	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
