package commands

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petal-labs/oaikit/core"
	"github.com/petal-labs/oaikit/providers/openai"
)

type embedOptions struct {
	file       string
	dimensions int
	encoding   string
}

func (a *App) newEmbedCommand() *cobra.Command {
	var opts embedOptions
	cmd := &cobra.Command{
		Use:   "embed [text...]",
		Short: "Create embeddings",
		Long: `Create one embedding per argument, or per line of --file ("-" reads stdin).

Examples:
  oaikit embed "the quick brown fox" "a lazy dog"
  oaikit embed --file sentences.txt --dimensions 256 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEmbed(cmd.Context(), args, &opts)
		},
	}
	cmd.Flags().StringVar(&opts.file, "file", "", "read inputs from a file, one per line")
	cmd.Flags().IntVar(&opts.dimensions, "dimensions", 0, "output dimensions (text-embedding-3 models)")
	cmd.Flags().StringVar(&opts.encoding, "encoding", "float", "wire encoding: float or base64")
	return cmd
}

func (a *App) runEmbed(ctx context.Context, args []string, opts *embedOptions) error {
	texts := append([]string(nil), args...)
	if opts.file != "" {
		lines, err := a.readLines(opts.file)
		if err != nil {
			return err
		}
		texts = append(texts, lines...)
	}
	if len(texts) == 0 {
		return validationErr("no input: pass text arguments or --file")
	}

	enc := core.EncodingFormat(opts.encoding)
	if enc != core.EncodingFormatFloat && enc != core.EncodingFormatBase64 {
		return validationErr("--encoding must be float or base64, got %q", opts.encoding)
	}
	model, err := a.modelOr(openai.ModelTextEmbedding3Small)
	if err != nil {
		return err
	}

	req := &core.EmbeddingRequest{
		Model:          model,
		Input:          core.Texts(texts...),
		EncodingFormat: enc,
	}
	if opts.dimensions > 0 {
		req.Dimensions = &opts.dimensions
	}

	p, err := a.provider()
	if err != nil {
		return err
	}
	resp, err := a.client(p).Embed(ctx, req)
	if err != nil {
		return providerErr(err)
	}

	type row struct {
		Index  int       `json:"index"`
		Text   string    `json:"text"`
		Vector []float32 `json:"vector"`
	}
	rows := make([]row, 0, len(resp.Vectors))
	for _, v := range resp.Vectors {
		floats, err := v.Floats()
		if err != nil {
			return providerErr(err)
		}
		text := ""
		if v.Index >= 0 && v.Index < len(texts) {
			text = texts[v.Index]
		}
		rows = append(rows, row{Index: v.Index, Text: text, Vector: floats})
	}

	if a.jsonOutput {
		return a.printJSON(map[string]any{
			"model":      resp.Model,
			"embeddings": rows,
			"usage":      resp.Usage,
		})
	}

	tw := a.table()
	fmt.Fprintln(tw, "INDEX\tDIMS\tPREVIEW\tTEXT")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", r.Index, len(r.Vector), preview(r.Vector, 3), truncate(r.Text, 40))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s: %d tokens\n", resp.Model, resp.Usage.TotalTokens)
	return nil
}

// readLines returns the non-blank lines of path.
func (a *App) readLines(path string) ([]string, error) {
	r, err := a.openInput(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, validationErr("read %s: %w", path, err)
	}
	return lines, nil
}

func preview(v []float32, n int) string {
	parts := make([]string, 0, n+1)
	for i := 0; i < len(v) && i < n; i++ {
		parts = append(parts, fmt.Sprintf("%.4f", v[i]))
	}
	if len(v) > n {
		parts = append(parts, "...")
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
