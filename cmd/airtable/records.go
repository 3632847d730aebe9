package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/airtable/pkg/airtable"
	"github.com/ajitpratap0/airtable/pkg/errors"
	"github.com/ajitpratap0/airtable/pkg/json"
)

func recordsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List, read and write records",
	}
	cmd.AddCommand(
		recordsListCmd(a),
		recordsGetCmd(a),
		recordsCreateCmd(a),
		recordsUpdateCmd(a),
		recordsDeleteCmd(a),
	)
	return cmd
}

func recordsListCmd(a *app) *cobra.Command {
	var (
		opts  airtable.ListOptions
		sorts []string
		lines bool
	)
	cmd := &cobra.Command{
		Use:   "list TABLE",
		Short: "List the records of a table",
		Long: `List the records of a table, following pagination to the end.

--sort takes field names; prefix a name with - for descending order.

Example:
  airtable records list Tasks --filter "{Status}='Todo'" --sort -Estimate --fields Name,Estimate`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Sort = parseSorts(sorts)

			if !lines {
				records, err := a.client.FetchAll(cmd.Context(), args[0], opts)
				if err != nil {
					return err
				}
				return a.printJSON(records)
			}

			// one JSON object per line, printed as pages arrive
			enc := json.NewEncoder(a.out)
			it := a.client.FetchRecords(args[0], opts)
			for it.Next(cmd.Context()) {
				if err := enc.Encode(it.Record()); err != nil {
					return err
				}
			}
			return it.Err()
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.Filter, "filter", "", "Airtable formula selecting records")
	flags.StringSliceVar(&opts.Fields, "fields", nil, "Only return these fields")
	flags.StringVar(&opts.View, "view", "", "Return the records of a view, in view order")
	flags.IntVar(&opts.MaxRecords, "max-records", 0, "Stop after this many records (0 = all)")
	flags.IntVar(&opts.PageSize, "page-size", 0, "Records per request (1-100)")
	flags.StringSliceVar(&sorts, "sort", nil, "Sort by field; prefix with - for descending")
	flags.BoolVar(&lines, "lines", false, "Stream newline-delimited JSON")
	return cmd
}

func parseSorts(specs []string) []airtable.Sort {
	out := make([]airtable.Sort, 0, len(specs))
	for _, s := range specs {
		if name, ok := strings.CutPrefix(s, "-"); ok {
			out = append(out, airtable.Sort{Field: name, Direction: airtable.SortDesc})
			continue
		}
		out = append(out, airtable.Sort{Field: strings.TrimPrefix(s, "+"), Direction: airtable.SortAsc})
	}
	return out
}

func recordsGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get TABLE RECORD_ID",
		Short: "Print one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.client.GetRecord(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return a.printJSON(rec)
		},
	}
}

func recordsCreateCmd(a *app) *cobra.Command {
	var (
		file string
		opts airtable.WriteOptions
	)
	cmd := &cobra.Command{
		Use:   "create TABLE",
		Short: "Create records from a JSON array of field objects",
		Long: `Create records from a JSON array of field objects read from --file (or
stdin). Records are sent in batches of 10.

Example:
  echo '[{"Name":"Write docs"},{"Name":"Ship"}]' | airtable records create Tasks`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows []airtable.Fields
			if err := readJSONInput(cmd, file, &rows); err != nil {
				return err
			}
			created, err := a.client.CreateRecords(cmd.Context(), args[0], rows, opts)
			return a.printWriteResult(created, err)
		},
	}
	addWriteFlags(cmd, &file, &opts)
	return cmd
}

func recordsUpdateCmd(a *app) *cobra.Command {
	var (
		file string
		opts airtable.WriteOptions
	)
	cmd := &cobra.Command{
		Use:   "update TABLE",
		Short: "Update records from a JSON array of {id, fields} objects",
		Long: `Update records from a JSON array of {"id": ..., "fields": {...}} objects
read from --file (or stdin). Given fields are merged into the record unless
--destructive is set, in which case the record is replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var records []airtable.Record
			if err := readJSONInput(cmd, file, &records); err != nil {
				return err
			}
			updated, err := a.client.UpdateRecords(cmd.Context(), args[0], records, opts)
			return a.printWriteResult(updated, err)
		},
	}
	addWriteFlags(cmd, &file, &opts)
	cmd.Flags().BoolVar(&opts.Destructive, "destructive", false, "Replace records, clearing fields not given")
	return cmd
}

func recordsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete TABLE RECORD_ID...",
		Short: "Delete records by id",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			deleted, err := a.client.DeleteRecords(cmd.Context(), args[0], args[1:])
			if len(deleted) > 0 {
				if perr := a.printJSON(deleted); perr != nil {
					return perr
				}
			}
			return err
		},
	}
}

func addWriteFlags(cmd *cobra.Command, file *string, opts *airtable.WriteOptions) {
	cmd.Flags().StringVarP(file, "file", "f", "-", "JSON input file (- for stdin)")
	cmd.Flags().BoolVar(&opts.Typecast, "typecast", false, "Let Airtable convert values to the field types")
	cmd.Flags().BoolVar(&opts.ContinueOnError, "continue-on-error", false, "Send the remaining batches after a failed one")
}

// printWriteResult prints the committed records and, for a partial batch
// failure, a summary of what was not written.
func (a *app) printWriteResult(records []airtable.Record, err error) error {
	var batchErr *errors.BatchError
	if errors.As(err, &batchErr) {
		a.warn("%d of %d inputs committed; failed batches %v, %d inputs skipped",
			len(batchErr.Succeeded), len(batchErr.Succeeded)+len(batchErr.Failed())+len(batchErr.Skipped),
			batchErr.FailedBatches(), len(batchErr.Skipped))
	}
	if len(records) > 0 || err == nil {
		if perr := a.printJSON(records); perr != nil {
			return perr
		}
	}
	return err
}

// readJSONInput decodes path, or the command's stdin when path is "-"
func readJSONInput(cmd *cobra.Command, path string, v any) error {
	var r io.Reader
	if path == "" || path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path) //nolint:gosec // G304: path is supplied by the user
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid JSON input: %w", err)
	}
	return nil
}
