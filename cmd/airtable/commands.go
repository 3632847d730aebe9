package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/airtable/pkg/airtable"
	"github.com/ajitpratap0/airtable/pkg/errors"
	"github.com/ajitpratap0/airtable/pkg/json"
)

func schemaCmd(a *app) *cobra.Command {
	var tablesOnly bool
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the tables, fields and views of the base",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := a.client.GetSchema(cmd.Context())
			if err != nil {
				return err
			}
			if !tablesOnly {
				return a.printJSON(schema)
			}
			for _, t := range schema.Tables {
				fmt.Fprintf(a.out, "%s\t%s\t%d fields\n", t.ID, t.Name, len(t.Fields))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&tablesOnly, "tables", false, "Print one line per table instead of JSON")
	return cmd
}

func resolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve TABLE_NAME",
		Short: "Print the id of the table with the given name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.client.ResolveTableID(cmd.Context(), args[0])
			var dup *airtable.DuplicateNameWarning
			if errors.As(err, &dup) {
				a.warn("%v", dup)
				err = nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, id)
			return nil
		},
	}
}

func fieldsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "Manage table fields",
	}

	var description, options string
	create := &cobra.Command{
		Use:   "create TABLE NAME TYPE",
		Short: "Add a field to a table",
		Long: `Add a field to a table. Existing fields are never modified.

Example:
  airtable fields create Tasks Due date --options '{"dateFormat":{"name":"iso"}}'`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := airtable.FieldSpec{
				Name:        args[1],
				Type:        airtable.FieldType(args[2]),
				Description: description,
			}
			if options != "" {
				if err := json.Unmarshal([]byte(options), &spec.Options); err != nil {
					return fmt.Errorf("invalid --options: %w", err)
				}
			}
			field, err := a.client.CreateField(cmd.Context(), args[0], spec)
			if err != nil {
				return err
			}
			return a.printJSON(field)
		},
	}
	create.Flags().StringVar(&description, "description", "", "Field description")
	create.Flags().StringVar(&options, "options", "", "Field options as JSON")

	cmd.AddCommand(create)
	return cmd
}

func tablesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Manage tables",
	}

	var file string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a table from a JSON definition",
		Long: `Create a table from a JSON definition read from --file (or stdin).

Example:
  echo '{"name":"Projects","fields":[{"name":"Title","type":"singleLineText"}]}' | airtable tables create`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var spec airtable.TableSpec
			if err := readJSONInput(cmd, file, &spec); err != nil {
				return err
			}
			table, err := a.client.CreateTable(cmd.Context(), spec)
			if err != nil {
				return err
			}
			return a.printJSON(table)
		},
	}
	create.Flags().StringVarP(&file, "file", "f", "-", "JSON file with the table definition (- for stdin)")

	cmd.AddCommand(create)
	return cmd
}

func uploadCmd(a *app) *cobra.Command {
	var mimeType, filename, url string
	cmd := &cobra.Command{
		Use:   "upload TABLE RECORD_ID FIELD [FILE]",
		Short: "Attach a file to a record",
		Long: `Attach a local file (at most 5 MB) to an attachment field, or with
--url have Airtable download the attachment itself.`,
		Args: cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, recordID, field := args[0], args[1], args[2]

			if url != "" {
				if len(args) == 4 {
					return fmt.Errorf("FILE and --url are mutually exclusive")
				}
				attachments, err := a.client.AttachURL(cmd.Context(), table, recordID, field, url, filename)
				if err != nil {
					return err
				}
				return a.printJSON(attachments)
			}

			if len(args) != 4 {
				return fmt.Errorf("FILE or --url is required")
			}
			path := args[3]
			f, err := os.Open(path) //nolint:gosec // G304: path is supplied by the user
			if err != nil {
				return err
			}
			defer f.Close()

			if filename == "" {
				filename = filepath.Base(path)
			}
			if mimeType == "" {
				mimeType = mime.TypeByExtension(filepath.Ext(path))
			}

			attachments, err := a.client.UploadAttachment(cmd.Context(), table, recordID, field, f, filename, mimeType)
			if err != nil {
				return err
			}
			return a.printJSON(attachments)
		},
	}
	cmd.Flags().StringVar(&mimeType, "mime", "", "Content type (guessed from the extension by default)")
	cmd.Flags().StringVar(&filename, "name", "", "Attachment filename (defaults to the file's base name)")
	cmd.Flags().StringVar(&url, "url", "", "Public URL for Airtable to download instead of uploading FILE")
	return cmd
}
