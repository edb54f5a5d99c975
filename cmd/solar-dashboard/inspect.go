package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/i474232898/solar-fits-dashboard/internal/aggregate"
	"github.com/i474232898/solar-fits-dashboard/internal/cache"
	"github.com/i474232898/solar-fits-dashboard/internal/observation"
	"github.com/i474232898/solar-fits-dashboard/internal/render"
	"github.com/i474232898/solar-fits-dashboard/internal/session"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Load every file of a year and print its aggregate",
	Long: "inspect expands every file of a year (the service's first year by default), " +
		"waits for all fetches to settle and prints the per-file statistics and the year summary.",
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().String("year", "", "year to inspect (default: first year reported by the service)")
	inspectCmd.Flags().Int("limit", 0, "inspect at most this many files (0 = all)")
	inspectCmd.Flags().String("chart", "", "also write the trend chart PNG to this path")
}

func runInspect(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	year, _ := cmd.Flags().GetString("year")
	limit, _ := cmd.Flags().GetInt("limit")
	chartPath, _ := cmd.Flags().GetString("chart")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s := session.New(ctx, uuid.NewString(), newUpstreamClient(cfg), session.Options{FetchTimeout: cfg.FetchTimeout})
	defer s.Close()

	view, err := inspectYear(ctx, s, year, limit, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	if chartPath != "" {
		png, err := render.TrendChart(view)
		if err != nil {
			return err
		}
		if err := os.WriteFile(chartPath, png, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", chartPath, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "chart written to %s (%s)\n", chartPath, humanize.Bytes(uint64(len(png))))
	}
	return nil
}

// inspectYear expands up to limit files of year in s, waits for them and
// writes a report to w.
func inspectYear(ctx context.Context, s *session.Session, year string, limit int, w io.Writer) (aggregate.View, error) {
	if _, err := s.LoadYears(ctx); err != nil {
		return aggregate.View{}, err
	}
	if year == "" {
		year = s.DefaultYear()
	}
	if year == "" {
		return aggregate.View{}, fmt.Errorf("the data service reported no years")
	}

	files, err := s.SelectYear(ctx, year)
	if err != nil {
		return aggregate.View{}, err
	}
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}

	keys := make([]observation.Key, 0, len(files))
	for _, f := range files {
		k := observation.NewKey(year, f)
		keys = append(keys, k)
		s.Expand(k)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tTIME\tSTATUS\tMIN\tMAX\tMEAN\tSTDEV\tIMAGE")
	for _, k := range keys {
		st, err := s.Wait(ctx, k)
		if err != nil {
			return aggregate.View{}, err
		}
		label, lerr := observation.FormatLabel(k.Filename)
		if lerr != nil {
			label = "?"
		}

		switch st.Status {
		case cache.StatusLoaded:
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%s\n",
				k.Filename, label, st.Status,
				st.Record.Stats.Min, st.Record.Stats.Max, st.Record.Stats.Mean, st.Record.Stats.Stdev,
				imageSize(st.Record.Image))
		default:
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", k.Filename, label, st.Status, observation.KindOf(st.Err))
		}
	}
	if err := tw.Flush(); err != nil {
		return aggregate.View{}, err
	}

	view := s.Aggregate(year)
	fmt.Fprintln(w)
	if view.Summary == nil {
		fmt.Fprintf(w, "%s: no observations loaded\n", year)
	} else {
		fmt.Fprintf(w, "%s: %s observations, avg mean %.2f, max %.2f, min %.2f\n",
			year, humanize.Comma(int64(view.Summary.Count)),
			view.Summary.AvgMean, view.Summary.MaxMax, view.Summary.MinMin)
	}
	for _, warn := range view.Warnings {
		fmt.Fprintf(w, "warning: %s: %s (%s)\n", warn.Key, warn.Reason, warn.Kind)
	}
	return view, nil
}

func imageSize(encoded string) string {
	data, _, err := render.DecodeImage(encoded)
	if err != nil {
		return "-"
	}
	return humanize.Bytes(uint64(len(data)))
}
