package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/datadash/internal/core"
	"github.com/JonMunkholm/datadash/internal/frame"
	"github.com/JonMunkholm/datadash/internal/kaggle"
	"github.com/JonMunkholm/datadash/internal/session"
	"github.com/JonMunkholm/datadash/internal/staging"
)

// newFetcher builds the dataset fetcher; tests replace it.
var newFetcher = func(s settings) (core.Fetcher, error) {
	creds, err := kaggle.LoadCredentials(s.KaggleConfigDir)
	if err != nil && !errors.Is(err, kaggle.ErrNoCredentials) {
		return nil, err
	}
	return kaggle.NewClient(s.KaggleBaseURL, creds, s.KaggleTimeout), nil
}

func (c *cli) fetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <link>",
		Short: "Download and unpack a Kaggle dataset into staging",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.settings()
			if err != nil {
				return err
			}
			fetcher, err := newFetcher(s)
			if err != nil {
				return err
			}
			svc := core.NewService(fetcher, staging.NewRegistry(s.StagingDir), nil, core.Options{
				Encoding:        s.Encoding,
				DownloadTimeout: s.KaggleTimeout,
			})
			sess, _ := session.NewStore().GetOrCreate("")

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			res, err := svc.Download(ctx, sess, args[0])
			if err != nil {
				if core.IsUserFacing(err) {
					return core.NewUserError(err)
				}
				return err
			}
			fmt.Fprintf(c.out, "✓ Downloaded %s into %s\n", res.Ref.Slug(), s.StagingDir)
			if len(res.Files) == 0 {
				fmt.Fprintln(c.out, "(no CSV files extracted)")
			}
			for _, f := range res.Files {
				fmt.Fprintf(c.out, "- %s\n", f)
			}
			return nil
		},
	}
}

func (c *cli) lsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List CSV files in staging",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.settings()
			if err != nil {
				return err
			}
			files, err := staging.NewRegistry(s.StagingDir).List()
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintln(c.out, "(no files)")
				return nil
			}
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			for _, f := range files {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Name, humanize.Bytes(uint64(f.Size)), humanize.Time(f.ModTime))
			}
			return tw.Flush()
		},
	}
}

// inspection is the document printed by inspect.
type inspection struct {
	File     string              `json:"file" yaml:"file"`
	Overview frame.Overview      `json:"overview" yaml:"overview"`
	Describe []frame.ColumnStats `json:"describe" yaml:"describe"`
}

func (c *cli) inspectCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Print the overview, schema and statistics of a CSV file",
		Long:  `inspect reads a file named as "dashctl ls" lists it, or any path on disk, and prints its shape, schema and descriptive statistics.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.settings()
			if err != nil {
				return err
			}
			path, err := staging.NewRegistry(s.StagingDir).Resolve(args[0])
			if err != nil {
				if _, statErr := os.Stat(args[0]); statErr != nil {
					return err
				}
				path = args[0]
			}
			t, err := frame.ReadFile(path, frame.ReadOptions{Encoding: s.Encoding})
			if err != nil {
				return err
			}
			doc := inspection{File: args[0], Overview: frame.Summarize(t), Describe: frame.Describe(t)}

			switch format {
			case "json":
				enc := json.NewEncoder(c.out)
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			case "yaml":
				enc := yaml.NewEncoder(c.out)
				enc.SetIndent(2)
				if err := enc.Encode(doc); err != nil {
					return err
				}
				return enc.Close()
			case "text", "":
				return c.printInspection(doc)
			default:
				return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or yaml")
	return cmd
}

func (c *cli) printInspection(doc inspection) error {
	ov := doc.Overview
	fmt.Fprintf(c.out, "%s: %s rows, %d columns, %.1f KB\n\n",
		doc.File, humanize.Comma(int64(ov.Rows)), ov.Cols, ov.MemoryKB)

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tTYPE\tNULLS\tUNIQUE")
	for _, col := range ov.Columns {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", col.Name, col.DType, col.Nulls, col.Unique)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(doc.Describe) == 0 {
		return nil
	}

	fmt.Fprintln(c.out)
	tw = tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tCOUNT\tMEAN\tSTD\tMIN\tMAX\tUNIQUE\tTOP\tFREQ")
	for _, st := range doc.Describe {
		switch {
		case st.Numeric != nil:
			n := st.Numeric
			std := "NaN"
			if n.Std != nil {
				std = fmt.Sprintf("%.4g", *n.Std)
			}
			fmt.Fprintf(tw, "%s\t%d\t%.4g\t%s\t%.4g\t%.4g\t\t\t\n", st.Column, st.Count, n.Mean, std, n.Min, n.Max)
		case st.Categorical != nil:
			k := st.Categorical
			fmt.Fprintf(tw, "%s\t%d\t\t\t\t\t%d\t%s\t%d\n", st.Column, st.Count, k.Unique, k.Top, k.Freq)
		default:
			fmt.Fprintf(tw, "%s\t%d\t\t\t\t\t\t\t\n", st.Column, st.Count)
		}
	}
	return tw.Flush()
}

func (c *cli) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every file in staging",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.settings()
			if err != nil {
				return err
			}
			n, err := staging.NewRegistry(s.StagingDir).Clear()
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "✓ Removed %d entries from %s\n", n, s.StagingDir)
			return nil
		},
	}
}
