package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petal-labs/oaikit/core"
)

// builtinPersonas are the system prompts available in every REPL session.
// Personas from the config file override these by name.
var builtinPersonas = map[string]string{
	"assistant":  "You are a helpful assistant.",
	"concise":    "You are a helpful assistant. Answer in as few words as possible.",
	"tutor":      "You are a patient tutor. Explain step by step and end with a short question that checks understanding.",
	"critic":     "You are a careful reviewer. Point out mistakes and missing cases before anything else.",
	"translator": "You are a translator. Translate each message into English, or into Spanish if it is already English.",
}

type chatOptions struct {
	prompt      string
	system      string
	persona     string
	temperature float32
	maxTokens   int
	stream      bool
	interactive bool
	history     int
}

func (a *App) newChatCommand() *cobra.Command {
	var opts chatOptions
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Send a chat completion request",
		Long: `Send a chat completion request, or start an interactive session.

Examples:
  oaikit chat --model gpt-4o-mini --prompt "Hello"
  oaikit chat --prompt "Hello" --stream
  oaikit chat --profile groq --prompt "Hello" --json
  oaikit chat --interactive --persona tutor`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runChat(cmd.Context(), &opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.prompt, "prompt", "", "user message")
	f.StringVar(&opts.system, "system", "", "system message")
	f.StringVar(&opts.persona, "persona", "", "named system prompt (see /personas in interactive mode)")
	f.Float32Var(&opts.temperature, "temperature", 0, "temperature (0 = use default)")
	f.IntVar(&opts.maxTokens, "max-tokens", 0, "max tokens (0 = use default)")
	f.BoolVar(&opts.stream, "stream", false, "stream output as it is generated")
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "start an interactive session")
	f.IntVar(&opts.history, "history", 0, "interactive mode: messages of history sent per turn (0 = all)")
	cmd.MarkFlagsMutuallyExclusive("system", "persona")
	return cmd
}

func (a *App) personas() map[string]string {
	out := maps.Clone(builtinPersonas)
	maps.Copy(out, a.cfg.Personas)
	return out
}

func (a *App) runChat(ctx context.Context, opts *chatOptions) error {
	if !opts.interactive && opts.prompt == "" {
		return validationErr("prompt required: use --prompt or --interactive")
	}
	system := opts.system
	if opts.persona != "" {
		p, ok := a.personas()[opts.persona]
		if !ok {
			return validationErr("unknown persona %q (available: %s)", opts.persona, strings.Join(slices.Sorted(maps.Keys(a.personas())), ", "))
		}
		system = p
	}

	model, err := a.chatModel()
	if err != nil {
		return err
	}
	p, err := a.provider()
	if err != nil {
		return err
	}
	client := a.client(p)

	configure := func(b *core.ChatBuilder) {
		if opts.temperature > 0 {
			b.Temperature(opts.temperature)
		}
		if opts.maxTokens > 0 {
			b.MaxTokens(opts.maxTokens)
		}
	}

	if opts.interactive {
		conv := core.NewConversation(client, model,
			core.WithSystemMessage(system),
			core.WithMaxHistory(opts.history),
			core.WithRequestOptions(configure),
		)
		return a.repl(ctx, conv, opts.stream)
	}

	builder := client.Chat(model)
	if system != "" {
		builder.System(system)
	}
	builder.User(opts.prompt)
	configure(builder)

	if opts.stream {
		return a.streamChat(ctx, builder, opts.prompt)
	}
	resp, err := builder.GetResponse(ctx)
	if err != nil {
		return providerErr(err)
	}
	if a.jsonOutput {
		return a.printJSON(chatJSON(resp))
	}
	fmt.Fprintf(a.stdout, "> %s\n", opts.prompt)
	fmt.Fprintln(a.stdout, resp.Output)
	a.printUsage(resp.Usage)
	return nil
}

func (a *App) streamChat(ctx context.Context, builder *core.ChatBuilder, prompt string) error {
	stream, err := builder.Stream(ctx)
	if err != nil {
		return providerErr(err)
	}

	if a.jsonOutput {
		resp, err := core.DrainStream(ctx, stream)
		if err != nil {
			return providerErr(err)
		}
		return a.printJSON(chatJSON(resp))
	}

	fmt.Fprintf(a.stdout, "> %s\n", prompt)
	tee := &core.ChatStream{Err: stream.Err, Final: stream.Final}
	deltas := make(chan core.ChatChunk)
	tee.Ch = deltas
	go func() {
		defer close(deltas)
		for chunk := range stream.Ch {
			fmt.Fprint(a.stdout, chunk.Delta)
			select {
			case deltas <- chunk:
			case <-ctx.Done():
			}
		}
	}()
	resp, err := core.DrainStream(ctx, tee)
	fmt.Fprintln(a.stdout)
	if err != nil {
		return providerErr(err)
	}
	a.printUsage(resp.Usage)
	return nil
}

// printUsage reports token usage on stderr with --verbose.
func (a *App) printUsage(u core.TokenUsage) {
	if !a.verbose || u.TotalTokens == 0 {
		return
	}
	fmt.Fprintf(a.stderr, "Usage: %d prompt + %d completion = %d total tokens\n",
		u.PromptTokens, u.CompletionTokens, u.TotalTokens)
}

func chatJSON(resp *core.ChatResponse) map[string]any {
	out := map[string]any{
		"id":            resp.ID,
		"model":         resp.Model,
		"output":        resp.Output,
		"finish_reason": resp.FinishReason,
		"usage": map[string]int{
			"prompt_tokens":     resp.Usage.PromptTokens,
			"completion_tokens": resp.Usage.CompletionTokens,
			"total_tokens":      resp.Usage.TotalTokens,
		},
	}
	if len(resp.ToolCalls) > 0 {
		out["tool_calls"] = resp.ToolCalls
	}
	return out
}

const replHelp = `Commands:
  /persona <name>   switch persona (keeps history)
  /personas         list personas
  /system <text>    set a custom system prompt
  /clear            forget the conversation
  /history          show the conversation
  /exit             quit
`

// repl runs an interactive session reading one message per line.
func (a *App) repl(ctx context.Context, conv *core.Conversation, stream bool) error {
	personas := a.personas()
	in := bufio.NewScanner(a.stdin)
	in.Buffer(make([]byte, 0, 64*1024), 1<<20)

	fmt.Fprintln(a.stdout, "Type /help for commands, /exit to quit.")
	for {
		fmt.Fprint(a.stdout, ">>> ")
		if !in.Scan() {
			fmt.Fprintln(a.stdout)
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			cmd, arg, _ := strings.Cut(line, " ")
			arg = strings.TrimSpace(arg)
			switch cmd {
			case "/exit", "/quit":
				return nil
			case "/help":
				fmt.Fprint(a.stdout, replHelp)
			case "/personas":
				for _, name := range slices.Sorted(maps.Keys(personas)) {
					fmt.Fprintf(a.stdout, "  %-12s %s\n", name, personas[name])
				}
			case "/persona":
				p, ok := personas[arg]
				if !ok {
					fmt.Fprintf(a.stdout, "unknown persona %q, try /personas\n", arg)
					continue
				}
				conv.SetSystem(p)
				fmt.Fprintf(a.stdout, "persona: %s\n", arg)
			case "/system":
				conv.SetSystem(arg)
				fmt.Fprintln(a.stdout, "system prompt updated")
			case "/clear":
				conv.Clear()
				fmt.Fprintln(a.stdout, "conversation cleared")
			case "/history":
				a.printHistory(a.stdout, conv)
			default:
				fmt.Fprintf(a.stdout, "unknown command %s, try /help\n", cmd)
			}
			continue
		}

		var (
			resp *core.ChatResponse
			err  error
		)
		if stream {
			resp, err = conv.Stream(ctx, line, func(d string) { fmt.Fprint(a.stdout, d) })
			fmt.Fprintln(a.stdout)
		} else {
			resp, err = conv.Send(ctx, line)
			if err == nil {
				fmt.Fprintln(a.stdout, resp.Output)
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return providerErr(err)
			}
			// Keep the session alive; the failed turn is not recorded.
			a.reportError(err)
			continue
		}
		a.printUsage(resp.Usage)
	}
}

func (a *App) printHistory(w io.Writer, conv *core.Conversation) {
	if s := conv.System(); s != "" {
		fmt.Fprintf(w, "[system] %s\n", s)
	}
	for _, m := range conv.History() {
		fmt.Fprintf(w, "[%s] %s\n", m.Role, m.Content)
	}
}
