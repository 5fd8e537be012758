package notify

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"rentalcars-watcher/utils"
)

const execTimeout = 5 * time.Second

// Notifier announces cheap rates on stderr and, when enabled, via a desktop
// notification. Desktop delivery is best-effort: a missing notifier binary
// is not an error.
type Notifier struct {
	logger  *utils.Logger
	desktop bool
}

func New(logger *utils.Logger, desktop bool) *Notifier {
	return &Notifier{logger: logger, desktop: desktop}
}

// CheapRate reports that the current run came in at or below the cheap
// threshold. threshold is nil when history was too thin to compute one.
func (n *Notifier) CheapRate(perDay, total float64, rentalDays int, threshold *float64, url string) {
	msg := fmt.Sprintf("Rentalcars: cheap rate €%.2f/day (total €%.2f for %d days).",
		perDay, total, rentalDays)
	if threshold != nil {
		msg += fmt.Sprintf(" Below the cheap threshold (€%.2f/day).", *threshold)
	}

	fmt.Fprintln(os.Stderr, msg)
	fmt.Fprintf(os.Stderr, "Search: %s\n", url)

	if n.desktop && !n.desktopNotify("Rentalcars – cheap rate", msg) {
		n.logger.Debug("[notify] No desktop notifier available")
	}
}

// desktopNotify tries macOS osascript first, then Linux notify-send.
func (n *Notifier) desktopNotify(title, body string) bool {
	attempts := [][]string{
		{"osascript", "-e", fmt.Sprintf("display notification %q with title %q", body, title)},
		{"notify-send", title, body},
	}

	for _, argv := range attempts {
		ctx, cancel := context.WithTimeout(context.Background(), execTimeout)
		err := exec.CommandContext(ctx, argv[0], argv[1:]...).Run()
		cancel()
		if err == nil {
			return true
		}
	}
	return false
}
