package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/revindex"
	"github.com/hupe1980/revindex/collection"
	"github.com/hupe1980/revindex/sketch"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	configPath string
	workers    int
	logLevel   string
	ksize      uint32
	scaled     uint32
	moltype    string

	cfg Config
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "revindex",
		Short:         "Build and query reverse indexes over MinHash sketches",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = g.workers
			}
			if g.logLevel != "" {
				cfg.Log.Level = g.logLevel
				if _, err := cfg.Log.level(); err != nil {
					return err
				}
			}
			g.cfg = cfg
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "YAML config file (default ./"+defaultConfigPath+" if present)")
	pf.IntVarP(&g.workers, "workers", "j", 0, "parallel build workers (0 = GOMAXPROCS)")
	pf.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.Uint32VarP(&g.ksize, "ksize", "k", 0, "k-mer size to select")
	pf.Uint32Var(&g.scaled, "scaled", 0, "scaled value to select")
	pf.StringVar(&g.moltype, "moltype", "", "molecule type to select")

	root.AddCommand(
		newCreateCmd(g),
		newUpdateCmd(g),
		newSearchCmd(g),
		newGatherCmd(g),
		newCheckCmd(g),
		newCompactCmd(g),
		newConvertCmd(g),
		newInternalizeCmd(g),
	)
	return root
}

func (g *globalFlags) selection() sketch.Selection {
	return sketch.Selection{Ksize: g.ksize, Scaled: g.scaled, Moltype: g.moltype}
}

// loadCollection reads signatures from a zip archive or from files and
// directories, keeping the sketches matching the selection flags.
func (g *globalFlags) loadCollection(ctx context.Context, args []string) (*collection.Collection, error) {
	var (
		coll *collection.Collection
		err  error
	)
	if len(args) == 1 && strings.HasSuffix(args[0], ".zip") {
		coll, err = collection.FromZip(ctx, args[0])
	} else {
		var paths []string
		if paths, err = signatureFiles(args); err != nil {
			return nil, err
		}
		coll, err = collection.FromPaths(ctx, paths)
	}
	if err != nil {
		return nil, err
	}

	coll = coll.Select(g.selection())
	if coll.Len() == 0 {
		return nil, fmt.Errorf("no sketch matches %s", g.selection())
	}
	return coll, nil
}

// signatureFiles expands directories to the signature files below them.
func signatureFiles(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		fi, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			out = append(out, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && (strings.HasSuffix(path, ".sig") || strings.HasSuffix(path, ".sig.gz")) {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func newCreateCmd(g *globalFlags) *cobra.Command {
	var colored bool
	cmd := &cobra.Command{
		Use:   "create <index> <signatures...>",
		Short: "Create an index from signature files, directories or a zip archive",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			coll, err := g.loadCollection(ctx, args[1:])
			if err != nil {
				return err
			}
			idx, err := revindex.Create(ctx, args[0], coll, colored, g.cfg.options()...)
			if err != nil {
				if st := coll.Storage(); st != nil {
					_ = st.Close()
				}
				return err
			}
			defer idx.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d datasets (%s) into %s\n", coll.Len(), idx.Selection(), args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&colored, "colored", false, "use the color-merge variant")
	return cmd
}

func newUpdateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "update <index> <signatures...>",
		Short: "Append datasets to an index; the signatures must include every indexed dataset first",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			idx, err := revindex.Open(ctx, args[0], false, "", g.cfg.options()...)
			if err != nil {
				return err
			}
			defer idx.Close()

			before := idx.Collection().Len()
			coll, err := g.loadCollection(ctx, args[1:])
			if err != nil {
				return err
			}
			if err := idx.Update(ctx, coll); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d datasets, %d total\n", coll.Len()-before, coll.Len())
			return nil
		},
	}
}
