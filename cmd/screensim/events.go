package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/screenlab/screensim/internal/bus"
)

func eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print, replay or follow session events",
		Long: `Print events journaled by the event bus (bus.event_log).

With --replay the selected events are published again onto the configured
bus (bus.type), so Kafka consumers can rebuild their state from a journal.
With --follow the command subscribes to every screening topic on the
configured bus and prints events as they arrive until interrupted.

Examples:
  screensim events --log report/events.jsonl
  screensim events --topic screening.ranking.failed --since 1h
  screensim events --session 6f1c... --limit 20
  screensim events --log report/events.jsonl --replay
  screensim events --follow`,
		RunE: runEvents,
	}

	cmd.Flags().String("log", "", "event log path (default: bus.event_log from config)")
	cmd.Flags().String("topic", "", "only events on this topic")
	cmd.Flags().String("session", "", "only events of this session")
	cmd.Flags().Duration("since", 0, "only events logged within this duration")
	cmd.Flags().Int("limit", 0, "maximum number of events (0 = all)")
	cmd.Flags().Bool("replay", false, "publish the selected events onto the configured bus")
	cmd.Flags().Bool("follow", false, "print events from the configured bus until interrupted")

	return cmd
}

func eventFilter(cmd *cobra.Command) bus.EventFilter {
	filter := bus.EventFilter{}
	filter.Topic, _ = cmd.Flags().GetString("topic")
	filter.CorrelationID, _ = cmd.Flags().GetString("session")
	filter.Limit, _ = cmd.Flags().GetInt("limit")
	if since, _ := cmd.Flags().GetDuration("since"); since > 0 {
		filter.Since = time.Now().Add(-since)
	}
	return filter
}

func runEvents(cmd *cobra.Command, _ []string) error {
	replay, _ := cmd.Flags().GetBool("replay")
	follow, _ := cmd.Flags().GetBool("follow")
	if replay || follow {
		return runEventStream(cmd, replay, follow)
	}

	path, _ := cmd.Flags().GetString("log")
	if path == "" {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		path = cfg.Bus.EventLog
	}
	if path == "" {
		return fmt.Errorf("no event log configured; pass --log or set bus.event_log")
	}

	events, err := bus.ReadEvents(path, eventFilter(cmd))
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if outputJSON(cmd) {
		return printJSON(w, events)
	}
	for _, e := range events {
		printEvent(w, e.LoggedAt, e.Topic, e.Event)
	}
	return nil
}

// runEventStream connects to the configured bus. The bus is opened without
// its journal so replayed events are not written back to the log.
func runEventStream(cmd *cobra.Command, replay, follow bool) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("log")
	if path == "" {
		path = cfg.Bus.EventLog
	}
	if replay && path == "" {
		return fmt.Errorf("no event log to replay; pass --log or set bus.event_log")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	busCfg := cfg.Bus
	busCfg.EventLog = ""
	b, err := bus.NewBus(busCfg, log)
	if err != nil {
		return fmt.Errorf("failed to open event bus: %w", err)
	}
	defer b.Close()

	w := cmd.OutOrStdout()
	if follow {
		if err := subscribeAll(ctx, b, w); err != nil {
			return err
		}
	}

	if replay {
		journal, err := bus.NewEventLogger(path, true)
		if err != nil {
			return fmt.Errorf("failed to open event log: %w", err)
		}
		n, err := journal.Replay(ctx, b, eventFilter(cmd))
		journal.Close()
		if err != nil {
			return fmt.Errorf("replayed %d events before failing: %w", n, err)
		}
		log.Info("Events replayed", "log", path, "bus", busCfg.Type, "events", n)
		if !follow {
			fmt.Fprintf(w, "Replayed %d events from %s\n", n, path)
		}
	}

	if follow {
		<-ctx.Done()
	}
	return nil
}

func subscribeAll(ctx context.Context, b bus.Bus, w io.Writer) error {
	var mu sync.Mutex
	for _, topic := range bus.Topics() {
		err := b.Subscribe(ctx, topic, func(_ context.Context, e bus.Event) error {
			mu.Lock()
			defer mu.Unlock()
			printEvent(w, time.UnixMilli(e.Timestamp), topic, e)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
	}
	return nil
}

func printEvent(w io.Writer, at time.Time, topic string, e bus.Event) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		payload = []byte("?")
	}
	fmt.Fprintf(w, "%s  %-32s %-10s %s\n", at.Format(time.RFC3339), topic, e.Source, payload)
}
