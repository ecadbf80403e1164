package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/petal-labs/oaikit/providers/openai"
)

func (a *App) newFilesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Manage uploaded files",
	}
	cmd.AddCommand(
		a.newFilesUploadCommand(),
		a.newFilesListCommand(),
		a.newFilesGetCommand(),
		a.newFilesDownloadCommand(),
		a.newFilesDeleteCommand(),
	)
	return cmd
}

func (a *App) newFilesUploadCommand() *cobra.Command {
	var (
		purpose string
		expires int
		name    string
	)
	cmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a file",
		Long: `Upload a file. "-" reads stdin and requires --name.

Examples:
  oaikit files upload requests.jsonl --purpose batch
  oaikit files upload notes.pdf --purpose user_data --expires 86400`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if name == "" {
				if path == "-" {
					return validationErr("--name is required when reading stdin")
				}
				name = filepath.Base(path)
			}
			r, err := a.openInput(path)
			if err != nil {
				return err
			}
			defer r.Close()

			req := &openai.FileUploadRequest{
				File:     r,
				Filename: name,
				Purpose:  openai.FilePurpose(purpose),
			}
			if expires > 0 {
				req.ExpiresAfter = &openai.ExpiresAfter{Anchor: "created_at", Seconds: expires}
			}

			p, err := a.directProvider()
			if err != nil {
				return err
			}
			f, err := p.UploadFile(cmd.Context(), req)
			if err != nil {
				return providerErr(err)
			}
			return a.printFile(f)
		},
	}
	cmd.Flags().StringVar(&purpose, "purpose", string(openai.FilePurposeUserData), "file purpose (batch, user_data, assistants, vision, fine-tune, evals)")
	cmd.Flags().IntVar(&expires, "expires", 0, "seconds after creation until the file expires")
	cmd.Flags().StringVar(&name, "name", "", "filename sent to the API (default: base name of path)")
	return cmd
}

func (a *App) newFilesListCommand() *cobra.Command {
	var (
		purpose string
		limit   int
		after   string
		order   string
		all     bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.directProvider()
			if err != nil {
				return err
			}
			req := &openai.FileListRequest{
				Purpose: openai.FilePurpose(purpose),
				Limit:   limit,
				After:   after,
				Order:   order,
			}

			var (
				files   []openai.File
				hasMore bool
				lastID  string
			)
			if all {
				for f, err := range p.AllFiles(cmd.Context(), req) {
					if err != nil {
						return providerErr(err)
					}
					files = append(files, f)
				}
			} else {
				page, err := p.ListFiles(cmd.Context(), req)
				if err != nil {
					return providerErr(err)
				}
				files, hasMore, lastID = page.Data, page.HasMore, page.LastID
			}

			if a.jsonOutput {
				return a.printJSON(map[string]any{"data": files, "has_more": hasMore, "last_id": lastID})
			}
			tw := a.table()
			fmt.Fprintln(tw, "ID\tPURPOSE\tBYTES\tCREATED\tFILENAME")
			for _, f := range files {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", f.ID, f.Purpose, f.Bytes, unixTime(f.CreatedAt), f.Filename)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if hasMore {
				fmt.Fprintf(a.stdout, "more results: --after %s\n", lastID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&purpose, "purpose", "", "only files with this purpose")
	cmd.Flags().IntVar(&limit, "limit", 0, "page size")
	cmd.Flags().StringVar(&after, "after", "", "cursor: list files after this ID")
	cmd.Flags().StringVar(&order, "order", "", "asc or desc by creation time")
	cmd.Flags().BoolVar(&all, "all", false, "follow pagination to the end")
	return cmd
}

func (a *App) newFilesGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <file-id>",
		Short: "Show file metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.directProvider()
			if err != nil {
				return err
			}
			f, err := p.GetFile(cmd.Context(), args[0])
			if err != nil {
				return providerErr(err)
			}
			return a.printFile(f)
		},
	}
}

func (a *App) newFilesDownloadCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "download <file-id>",
		Short: "Download file content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.directProvider()
			if err != nil {
				return err
			}
			body, err := p.GetFileContent(cmd.Context(), args[0])
			if err != nil {
				return providerErr(err)
			}
			defer body.Close()
			n, err := a.writeOutput(output, body)
			if err != nil {
				return providerErr(err)
			}
			if output != "" && output != "-" {
				fmt.Fprintf(a.stderr, "wrote %d bytes to %s\n", n, output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this path instead of stdout")
	return cmd
}

func (a *App) newFilesDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <file-id>",
		Short: "Delete a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.directProvider()
			if err != nil {
				return err
			}
			res, err := p.DeleteFile(cmd.Context(), args[0])
			if err != nil {
				return providerErr(err)
			}
			if a.jsonOutput {
				return a.printJSON(res)
			}
			fmt.Fprintf(a.stdout, "File %s deleted.\n", res.ID)
			return nil
		},
	}
}

func (a *App) printFile(f *openai.File) error {
	if a.jsonOutput {
		return a.printJSON(f)
	}
	tw := a.table()
	fmt.Fprintf(tw, "id:\t%s\n", f.ID)
	fmt.Fprintf(tw, "filename:\t%s\n", f.Filename)
	fmt.Fprintf(tw, "purpose:\t%s\n", f.Purpose)
	fmt.Fprintf(tw, "bytes:\t%d\n", f.Bytes)
	fmt.Fprintf(tw, "created:\t%s\n", unixTime(f.CreatedAt))
	if f.ExpiresAt != nil {
		fmt.Fprintf(tw, "expires:\t%s\n", unixTime(*f.ExpiresAt))
	}
	if f.Status != "" {
		fmt.Fprintf(tw, "status:\t%s\n", f.Status)
	}
	return tw.Flush()
}
