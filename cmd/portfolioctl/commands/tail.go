package commands

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"portfolio/cmd/portfolioctl/output"
	"portfolio/internal/events"
	"portfolio/internal/livefeed"

	"github.com/spf13/cobra"
)

var (
	// tail flags
	tailURL     string
	tailFull    bool
	tailRetries int
)

// tailCmd follows the live guestbook
var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Follow the live guestbook",
	Long: `Print the current guestbook and every change as it happens.

The stream is opened before the snapshot is fetched, so nothing posted in
between is missed. After a disconnect the command reconnects and starts from
a fresh snapshot.

Examples:
  portfolioctl tail --url https://example.com
  portfolioctl tail --full   # redraw the whole list on every event`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		// no client timeout: the stream stays open
		client := livefeed.NewClient(tailURL, &http.Client{})
		out := cmd.OutOrStdout()

		onChange := func(state *livefeed.State, ev *events.Event) {
			if ev == nil || tailFull {
				fmt.Fprint(out, "\033[H\033[2J")
				output.Guestbook(out, state.Entries())
				if ev == nil {
					return
				}
			}
			fmt.Fprintln(out, output.Event(ev))
		}

		failures := 0
		for {
			err := client.Run(ctx, onChange)
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, livefeed.ErrStreamClosed) {
				failures = 0
			} else {
				failures++
				if failures > tailRetries {
					return err
				}
			}
			output.Warning("stream interrupted (%v), reconnecting", err)

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff(failures)):
			}
		}
	},
}

func backoff(failures int) time.Duration {
	d := time.Second << uint(failures)
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}

func init() {
	tailCmd.Flags().StringVar(&tailURL, "url", "http://localhost:8080", "Base URL of the site")
	tailCmd.Flags().BoolVar(&tailFull, "full", false, "Redraw the full list on every event")
	tailCmd.Flags().IntVar(&tailRetries, "retries", 5, "Consecutive failed connects before giving up")
	rootCmd.AddCommand(tailCmd)
}

