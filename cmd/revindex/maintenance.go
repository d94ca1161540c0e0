package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/hupe1980/revindex"
	"github.com/spf13/cobra"
)

func newCheckCmd(g *globalFlags) *cobra.Command {
	var quick, jsonOut bool
	cmd := &cobra.Command{
		Use:   "check <index>",
		Short: "Scan an index and report statistics; deep checks verify every entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			idx, err := revindex.Open(ctx, args[0], true, "", g.cfg.options()...)
			if err != nil {
				return err
			}
			defer idx.Close()

			st, err := idx.Check(ctx, quick)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, st)
			}
			fmt.Fprintf(out, "datasets in manifest: %s\n", humanize.Comma(int64(idx.Collection().Len())))
			fmt.Fprintf(out, "hashes:               %s\n", humanize.Comma(int64(st.TotalKeys)))
			fmt.Fprintf(out, "key bytes:            %s\n", humanize.IBytes(st.KCount))
			fmt.Fprintf(out, "value bytes:          %s\n", humanize.IBytes(st.VCount))
			if st.Histogram != nil {
				fmt.Fprintf(out, "referenced datasets:  %s\n", humanize.Comma(int64(st.TotalDatasets)))
				fmt.Fprintf(out, "datasets per hash:    mean %.2f, max %d\n", st.Histogram.Mean(), st.Histogram.Max)
				fmt.Fprintln(out, st.Histogram.String())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&quick, "quick", false, "only scan the hash mappings")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "write the statistics as JSON")
	return cmd
}

func newCompactCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "compact <index>",
		Short: "Reclaim space in an index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			idx, err := revindex.Open(ctx, args[0], false, "", g.cfg.options()...)
			if err != nil {
				return err
			}
			defer idx.Close()
			return idx.Compact(ctx)
		},
	}
}

func newConvertCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <index> <target>",
		Short: "Copy an index into a new directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			src, err := revindex.Open(ctx, args[0], true, "", g.cfg.options()...)
			if err != nil {
				return err
			}
			defer src.Close()

			dst, err := revindex.CreateEmpty(ctx, args[1], g.cfg.options()...)
			if err != nil {
				return err
			}
			defer dst.Close()
			return src.Convert(ctx, dst)
		},
	}
}

func newInternalizeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "internalize <index>",
		Short: "Copy every dataset into the index so it no longer depends on external storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			idx, err := revindex.Open(ctx, args[0], false, "", g.cfg.options()...)
			if err != nil {
				return err
			}
			defer idx.Close()
			if err := idx.InternalizeStorage(ctx); err != nil {
				return err
			}
			if st := idx.Collection().Storage(); st != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "storage: %s\n", st.Spec())
			}
			return nil
		},
	}
}
