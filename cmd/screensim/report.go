package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/screenlab/screensim/internal/evaluation"
	"github.com/screenlab/screensim/internal/report"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Read back or delete a session stored in Redis",
		Long: `Read the records of a session written by the redis report format
(report.redis_url, report.redis_prefix).

Examples:
  screensim report --session 6f1c...
  screensim report --session 6f1c... --document d42
  screensim report --session 6f1c... --delete`,
		RunE: runReport,
	}

	cmd.Flags().String("session", "", "session ID (required)")
	cmd.Flags().String("document", "", "print the rank and probability series of this document")
	cmd.Flags().String("redis-url", "", "override report.redis_url")
	cmd.Flags().Bool("delete", false, "delete every key of the session")
	cmd.MarkFlagRequired("session")

	return cmd
}

// documentSeries is the per-iteration history of one document.
type documentSeries struct {
	Document      string             `json:"document"`
	Ranks         map[string]float64 `json:"ranks"`
	Probabilities map[string]float64 `json:"probabilities"`
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	session, _ := cmd.Flags().GetString("session")
	url := cfg.Report.RedisURL
	if v, _ := cmd.Flags().GetString("redis-url"); v != "" {
		url = v
	}
	if url == "" {
		return fmt.Errorf("no redis configured; pass --redis-url or set report.redis_url")
	}

	sink, err := report.NewRedisSink(report.RedisConfig{
		URL:     url,
		Prefix:  cfg.Report.RedisPrefix,
		Session: session,
	})
	if err != nil {
		return err
	}
	defer sink.Close()

	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	if del, _ := cmd.Flags().GetBool("delete"); del {
		if err := sink.Delete(ctx); err != nil {
			return fmt.Errorf("failed to delete session %s: %w", session, err)
		}
		log.Info("Session deleted from redis", "session", session)
		fmt.Fprintf(w, "Deleted session %s\n", session)
		return nil
	}

	if doc, _ := cmd.Flags().GetString("document"); doc != "" {
		series := documentSeries{Document: doc}
		if series.Ranks, err = sink.LoadSeries(ctx, "ranks", doc); err != nil {
			return err
		}
		if series.Probabilities, err = sink.LoadSeries(ctx, "probabilities", doc); err != nil {
			return err
		}
		if outputJSON(cmd) {
			return printJSON(w, series)
		}
		return printSeries(cmd, series)
	}

	records, err := sink.LoadRecords(ctx)
	if err != nil {
		return err
	}
	if outputJSON(cmd) {
		return printJSON(w, records)
	}
	if len(records) == 0 {
		fmt.Fprintf(w, "No records for session %s\n", session)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(evaluation.RecordHeader, "\t")))
	for _, r := range records {
		fmt.Fprintln(tw, strings.Join(r.Row(), "\t"))
	}
	return tw.Flush()
}

func printSeries(cmd *cobra.Command, s documentSeries) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITERATION\tRANK\tPROBABILITY")
	for _, it := range seriesIterations(s.Ranks, s.Probabilities) {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", it,
			seriesValue(s.Ranks, it), seriesValue(s.Probabilities, it))
	}
	return tw.Flush()
}

func seriesValue(series map[string]float64, key string) string {
	v, ok := series[key]
	if !ok {
		return "-"
	}
	return evaluation.FormatFloat(v)
}

// seriesIterations returns the iteration keys of both series in numeric order.
func seriesIterations(series ...map[string]float64) []string {
	seen := map[int]struct{}{}
	for _, m := range series {
		for k := range m {
			if it, err := strconv.Atoi(k); err == nil {
				seen[it] = struct{}{}
			}
		}
	}
	its := make([]int, 0, len(seen))
	for it := range seen {
		its = append(its, it)
	}
	slices.Sort(its)

	keys := make([]string, len(its))
	for i, it := range its {
		keys[i] = strconv.Itoa(it)
	}
	return keys
}
