package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/petal-labs/oaikit/core"
	"github.com/petal-labs/oaikit/providers/openai"
)

func (a *App) newBatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run asynchronous batch jobs",
		Long: `Run asynchronous batch jobs.

A typical flow:
  oaikit batch create prompts.txt -o requests.jsonl --model gpt-4o-mini
  oaikit batch submit requests.jsonl --wait
  oaikit batch results <batch-id>`,
	}
	cmd.AddCommand(
		a.newBatchCreateCommand(),
		a.newBatchSubmitCommand(),
		a.newBatchGetCommand(),
		a.newBatchListCommand(),
		a.newBatchCancelCommand(),
		a.newBatchWaitCommand(),
		a.newBatchResultsCommand(),
	)
	return cmd
}

var batchEndpoints = map[string]openai.BatchEndpoint{
	"chat":        openai.BatchEndpointChat,
	"embeddings":  openai.BatchEndpointEmbeddings,
	"moderations": openai.BatchEndpointModerations,
}

func parseEndpoint(s string) (openai.BatchEndpoint, error) {
	if e, ok := batchEndpoints[s]; ok {
		return e, nil
	}
	if strings.HasPrefix(s, "/v1/") {
		return openai.BatchEndpoint(s), nil
	}
	return "", validationErr("unknown endpoint %q: use chat, embeddings or moderations", s)
}

func (a *App) newBatchCreateCommand() *cobra.Command {
	var (
		output    string
		system    string
		endpoint  string
		maxTokens int
		randomIDs bool
		idPrefix  string
	)
	cmd := &cobra.Command{
		Use:   "create <inputs>",
		Short: "Build a batch input file from one input per line",
		Long: `Build a JSONL batch input file. Each non-blank line of <inputs> becomes one
request. Custom IDs are <prefix><line number> unless --uuid is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ep, err := parseEndpoint(endpoint)
			if err != nil {
				return err
			}
			inputs, err := a.readLines(args[0])
			if err != nil {
				return err
			}
			if len(inputs) == 0 {
				return validationErr("%s has no inputs", args[0])
			}

			var model core.ModelID
			switch ep {
			case openai.BatchEndpointChat:
				model, err = a.chatModel()
			case openai.BatchEndpointEmbeddings:
				model, err = a.modelOr(openai.ModelTextEmbedding3Small)
			default:
				return validationErr("batch create supports chat and embeddings inputs")
			}
			if err != nil {
				return err
			}

			lines := make([]openai.BatchLine, 0, len(inputs))
			for i, in := range inputs {
				id := fmt.Sprintf("%s%d", idPrefix, i+1)
				if randomIDs {
					id = ""
				}
				var line openai.BatchLine
				if ep == openai.BatchEndpointChat {
					req := &core.ChatRequest{Model: model}
					if maxTokens > 0 {
						req.MaxTokens = &maxTokens
					}
					if system != "" {
						req.Messages = append(req.Messages, core.Message{Role: core.RoleSystem, Content: system})
					}
					req.Messages = append(req.Messages, core.Message{Role: core.RoleUser, Content: in})
					line, err = openai.NewChatBatchLine(id, req)
				} else {
					line, err = openai.NewEmbeddingBatchLine(id, &core.EmbeddingRequest{
						Model: model,
						Input: core.Texts(in),
					})
				}
				if err != nil {
					return exitWithCode(ExitValidation, fmt.Errorf("line %d: %w", i+1, err))
				}
				lines = append(lines, line)
			}

			w := a.stdout
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return validationErr("create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			if err := openai.WriteBatchInput(w, lines); err != nil {
				return exitWithCode(ExitValidation, err)
			}
			if output != "" && output != "-" {
				fmt.Fprintf(a.stderr, "wrote %d requests to %s\n", len(lines), output)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "write JSONL here instead of stdout")
	f.StringVar(&system, "system", "", "system message for every chat request")
	f.StringVar(&endpoint, "endpoint", "chat", "chat or embeddings")
	f.IntVar(&maxTokens, "max-tokens", 0, "max tokens per chat request")
	f.BoolVar(&randomIDs, "uuid", false, "use random UUIDs as custom IDs")
	f.StringVar(&idPrefix, "id-prefix", "req-", "custom ID prefix")
	return cmd
}

func (a *App) newBatchSubmitCommand() *cobra.Command {
	var (
		endpoint string
		metadata map[string]string
		wait     bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "submit <requests.jsonl>",
		Short: "Upload a batch input file and start the batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ep, err := parseEndpoint(endpoint)
			if err != nil {
				return err
			}
			r, err := a.openInput(args[0])
			if err != nil {
				return err
			}
			defer r.Close()

			p, err := a.directProvider()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			f, err := p.UploadFile(ctx, &openai.FileUploadRequest{
				File:     r,
				Filename: filepath.Base(args[0]),
				Purpose:  openai.FilePurposeBatch,
			})
			if err != nil {
				return providerErr(err)
			}
			a.log().Debug("batch input uploaded", zap.String("file_id", f.ID))

			b, err := p.CreateBatch(ctx, &openai.BatchCreateRequest{
				InputFileID:      f.ID,
				Endpoint:         ep,
				CompletionWindow: openai.DefaultCompletionWindow,
				Metadata:         metadata,
			})
			if err != nil {
				return providerErr(err)
			}
			if wait {
				return a.waitBatch(ctx, p, b.ID, interval)
			}
			return a.printBatch(b)
		},
	}
	f := cmd.Flags()
	f.StringVar(&endpoint, "endpoint", "chat", "chat, embeddings, moderations, or a /v1/ path")
	f.StringToStringVar(&metadata, "metadata", nil, "key=value metadata, repeatable")
	f.BoolVar(&wait, "wait", false, "wait until the batch finishes")
	f.DurationVar(&interval, "interval", openai.DefaultBatchPollInterval, "poll interval with --wait")
	return cmd
}

func (a *App) newBatchGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <batch-id>",
		Short: "Show batch status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.directProvider()
			if err != nil {
				return err
			}
			b, err := p.GetBatch(cmd.Context(), args[0])
			if err != nil {
				return providerErr(err)
			}
			return a.printBatch(b)
		},
	}
}

func (a *App) newBatchListCommand() *cobra.Command {
	var (
		limit int
		after string
		all   bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.directProvider()
			if err != nil {
				return err
			}
			req := &openai.BatchListRequest{After: after, Limit: limit}

			var (
				batches []openai.Batch
				hasMore bool
				lastID  string
			)
			if all {
				for b, err := range p.AllBatches(cmd.Context(), req) {
					if err != nil {
						return providerErr(err)
					}
					batches = append(batches, b)
				}
			} else {
				page, err := p.ListBatches(cmd.Context(), req)
				if err != nil {
					return providerErr(err)
				}
				batches, hasMore, lastID = page.Data, page.HasMore, page.LastID
			}

			if a.jsonOutput {
				return a.printJSON(map[string]any{"data": batches, "has_more": hasMore, "last_id": lastID})
			}
			tw := a.table()
			fmt.Fprintln(tw, "ID\tSTATUS\tENDPOINT\tDONE\tFAILED\tTOTAL\tCREATED")
			for _, b := range batches {
				c := b.RequestCounts
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					b.ID, b.Status, b.Endpoint, c.Completed, c.Failed, c.Total, unixTime(b.CreatedAt))
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
	cmd.Flags().IntVar(&limit, "limit", 0, "page size")
	cmd.Flags().StringVar(&after, "after", "", "cursor: list batches after this ID")
	cmd.Flags().BoolVar(&all, "all", false, "follow pagination to the end")
	return cmd
}

func (a *App) newBatchCancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <batch-id>",
		Short: "Cancel a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.directProvider()
			if err != nil {
				return err
			}
			b, err := p.CancelBatch(cmd.Context(), args[0])
			if err != nil {
				return providerErr(err)
			}
			return a.printBatch(b)
		},
	}
}

func (a *App) newBatchWaitCommand() *cobra.Command {
	var (
		interval time.Duration
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "wait <batch-id>",
		Short: "Wait until a batch reaches a terminal status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			p, err := a.directProvider()
			if err != nil {
				return err
			}
			return a.waitBatch(ctx, p, args[0], interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", openai.DefaultBatchPollInterval, "poll interval")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up after this long (0 = no limit)")
	return cmd
}

// waitBatch polls until the batch is terminal. A batch that ends in any
// status other than completed is a provider failure.
func (a *App) waitBatch(ctx context.Context, p *openai.OpenAI, id string, interval time.Duration) error {
	b, err := p.WaitForBatch(ctx, id, interval)
	if err != nil {
		return providerErr(err)
	}
	if err := a.printBatch(b); err != nil {
		return err
	}
	if b.Status != openai.BatchStatusCompleted {
		return exitWithCode(ExitProvider, fmt.Errorf("batch %s ended with status %s", b.ID, b.Status))
	}
	return nil
}

func (a *App) newBatchResultsCommand() *cobra.Command {
	var (
		errorsFile bool
		raw        bool
		output     string
	)
	cmd := &cobra.Command{
		Use:   "results <batch-id>",
		Short: "Show the results of a finished batch",
		Long: `Download and decode the output of a finished batch. --raw writes the JSONL
file unchanged; --errors reads the error file instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := a.directProvider()
			if err != nil {
				return err
			}
			b, err := p.GetBatch(ctx, args[0])
			if err != nil {
				return providerErr(err)
			}
			fileID, kind := b.OutputFileID, "output"
			if errorsFile {
				fileID, kind = b.ErrorFileID, "error"
			}
			if fileID == "" {
				return validationErr("batch %s has no %s file (status %s)", b.ID, kind, b.Status)
			}

			body, err := p.GetFileContent(ctx, fileID)
			if err != nil {
				return providerErr(err)
			}
			defer body.Close()

			if raw {
				_, err := a.writeOutput(output, body)
				return providerErr(err)
			}
			return a.printBatchResults(b.Endpoint, body)
		},
	}
	cmd.Flags().BoolVar(&errorsFile, "errors", false, "read the error file")
	cmd.Flags().BoolVar(&raw, "raw", false, "write the JSONL file unchanged")
	cmd.Flags().StringVarP(&output, "output", "o", "", "with --raw, write to this path")
	return cmd
}

type batchResultJSON struct {
	CustomID string          `json:"custom_id"`
	Output   string          `json:"output,omitempty"`
	Usage    core.TokenUsage `json:"usage"`
	Dims     int             `json:"dimensions,omitempty"`
	Error    string          `json:"error,omitempty"`
}

func (a *App) printBatchResults(endpoint openai.BatchEndpoint, body io.Reader) error {
	var results []batchResultJSON
	failed := 0
	for res, err := range openai.ReadBatchOutput(body) {
		if err != nil {
			return providerErr(err)
		}
		out := batchResultJSON{CustomID: res.CustomID}
		switch endpoint {
		case openai.BatchEndpointEmbeddings:
			emb, err := res.Embeddings()
			if err == nil && len(emb.Vectors) > 0 {
				floats, ferr := emb.Vectors[0].Floats()
				err = ferr
				out.Dims = len(floats)
				out.Usage = core.TokenUsage{PromptTokens: emb.Usage.PromptTokens, TotalTokens: emb.Usage.TotalTokens}
			}
			if err != nil {
				out.Error = err.Error()
			}
		default:
			resp, err := res.ChatResponse()
			if err != nil {
				out.Error = err.Error()
			} else {
				out.Output = resp.Output
				out.Usage = resp.Usage
			}
		}
		if out.Error != "" {
			failed++
		}
		results = append(results, out)
	}

	if a.jsonOutput {
		return a.printJSON(results)
	}
	for _, r := range results {
		switch {
		case r.Error != "":
			fmt.Fprintf(a.stdout, "[%s] error: %s\n", r.CustomID, r.Error)
		case r.Dims > 0:
			fmt.Fprintf(a.stdout, "[%s] %d dimensions\n", r.CustomID, r.Dims)
		default:
			fmt.Fprintf(a.stdout, "[%s] %s\n", r.CustomID, r.Output)
		}
	}
	fmt.Fprintf(a.stdout, "%d results, %d failed\n", len(results), failed)
	return nil
}

func (a *App) printBatch(b *openai.Batch) error {
	if a.jsonOutput {
		return a.printJSON(b)
	}
	tw := a.table()
	fmt.Fprintf(tw, "id:\t%s\n", b.ID)
	fmt.Fprintf(tw, "status:\t%s\n", b.Status)
	fmt.Fprintf(tw, "endpoint:\t%s\n", b.Endpoint)
	fmt.Fprintf(tw, "input:\t%s\n", b.InputFileID)
	if b.OutputFileID != "" {
		fmt.Fprintf(tw, "output:\t%s\n", b.OutputFileID)
	}
	if b.ErrorFileID != "" {
		fmt.Fprintf(tw, "errors:\t%s\n", b.ErrorFileID)
	}
	c := b.RequestCounts
	fmt.Fprintf(tw, "requests:\t%d completed, %d failed, %d total\n", c.Completed, c.Failed, c.Total)
	fmt.Fprintf(tw, "created:\t%s\n", unixTime(b.CreatedAt))
	if b.Errors != nil {
		for _, e := range b.Errors.Data {
			line := ""
			if e.Line != nil {
				line = fmt.Sprintf(" (line %d)", *e.Line)
			}
			fmt.Fprintf(tw, "error:\t%s: %s%s\n", e.Code, e.Message, line)
		}
	}
	return tw.Flush()
}
