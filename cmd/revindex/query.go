package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/revindex"
	"github.com/hupe1980/revindex/codec"
	"github.com/hupe1980/revindex/sketch"
	"github.com/spf13/cobra"
)

type queryFlags struct {
	thresholdBP uint64
	storageSpec string
	jsonOut     bool
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().Uint64Var(&f.thresholdBP, "threshold-bp", 50_000, "minimum overlap in base pairs")
	cmd.Flags().StringVar(&f.storageSpec, "storage", "", "dataset storage spec overriding the one recorded in the index")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "write one JSON object per line")
}

// threshold converts the base pair threshold to a hash count at the scaled
// value of q.
func (f *queryFlags) threshold(q *sketch.MinHash) uint64 {
	return f.thresholdBP / uint64(q.Scaled())
}

func loadQueries(path string) ([]*sketch.Signature, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return sketch.Load(file)
}

// runQueries opens the index read-only and calls fn with every prepared
// query sketch found in the query files.
func runQueries(ctx context.Context, g *globalFlags, f *queryFlags, indexPath string, queryPaths []string, fn func(idx revindex.Index, sig *sketch.Signature, q *sketch.MinHash) error) error {
	idx, err := revindex.Open(ctx, indexPath, true, f.storageSpec, g.cfg.options()...)
	if err != nil {
		return err
	}
	defer idx.Close()

	sel := g.selection()
	for _, path := range queryPaths {
		sigs, err := loadQueries(path)
		if err != nil {
			return fmt.Errorf("load query %s: %w", path, err)
		}
		for _, sig := range sigs {
			q, err := idx.PrepareQuery(sig, &sel)
			if err != nil {
				return fmt.Errorf("query %s: %w", sig.DisplayName(), err)
			}
			if err := fn(idx, sig, q); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := codec.Default.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func newSearchCmd(g *globalFlags) *cobra.Command {
	f := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "search <index> <query.sig...>",
		Short: "Rank datasets by the number of query hashes they contain",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			return runQueries(ctx, g, f, args[0], args[1:], func(idx revindex.Index, sig *sketch.Signature, q *sketch.MinHash) error {
				counter, err := idx.CounterForQuery(ctx, q)
				if err != nil {
					return err
				}
				matches, err := idx.MatchesFromCounter(counter, f.threshold(q))
				if err != nil {
					return err
				}
				if f.jsonOut {
					for _, m := range matches {
						if err := writeJSON(out, struct {
							Query string `json:"query"`
							revindex.Match
						}{sig.DisplayName(), m}); err != nil {
							return err
						}
					}
					return nil
				}

				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintf(tw, "# %s: %d hashes, %d matches\n", sig.DisplayName(), q.Len(), len(matches))
				fmt.Fprintln(tw, "count\toverlap\tname")
				for _, m := range matches {
					fmt.Fprintf(tw, "%d\t%s\t%s\n", m.Count, humanize.SIWithDigits(float64(m.Count*uint64(q.Scaled())), 1, "bp"), m.Name)
				}
				return tw.Flush()
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newGatherCmd(g *globalFlags) *cobra.Command {
	f := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "gather <index> <query.sig...>",
		Short: "Decompose queries into the datasets that explain them best",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			sel := g.selection()
			return runQueries(ctx, g, f, args[0], args[1:], func(idx revindex.Index, sig *sketch.Signature, q *sketch.MinHash) error {
				counters, err := idx.PrepareGatherCounters(ctx, q)
				if err != nil {
					return err
				}
				results, err := idx.Gather(ctx, counters, f.threshold(q), q, &sel)
				if err != nil {
					return err
				}
				if f.jsonOut {
					for _, r := range results {
						if err := writeJSON(out, struct {
							Query string `json:"query_name"`
							revindex.GatherResult
						}{sig.DisplayName(), r}); err != nil {
							return err
						}
					}
					return nil
				}

				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintf(tw, "# %s: %d hashes\n", sig.DisplayName(), q.Len())
				fmt.Fprintln(tw, "overlap\tp_query\tp_match\tani\tname")
				var found float64
				for _, r := range results {
					found += r.FUniqueToQuery
					fmt.Fprintf(tw, "%s\t%.1f%%\t%.1f%%\t%.3f\t%s\n",
						humanize.SIWithDigits(float64(r.IntersectBP), 1, "bp"),
						100*r.FUniqueToQuery, 100*r.FMatch, r.AverageContainmentANI, r.Name)
				}
				fmt.Fprintf(tw, "# %d matches, %.1f%% of the query classified\n", len(results), 100*found)
				return tw.Flush()
			})
		},
	}
	f.register(cmd)
	return cmd
}
