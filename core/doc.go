// Package core provides the oaikit client and provider-agnostic types.
//
// The primary entry point is [Client], which wraps a [Provider] and adds
// telemetry, retry logic, and a fluent builder API:
//
//	provider := openai.New(os.Getenv("OPENAI_API_KEY"))
//	client := core.NewClient(provider,
//	    core.WithTelemetry(hook),
//	    core.WithRetryPolicy(core.DefaultRetryPolicy()),
//	)
//
//	resp, err := client.Chat("gpt-4o-mini").
//	    System("You are a helpful assistant.").
//	    User("Hello!").
//	    Temperature(0.7).
//	    GetResponse(ctx)
//
// [ChatBuilder] is NOT thread-safe. Use [ChatBuilder.Clone] to branch from a
// shared base:
//
//	base := client.Chat(model).System("You are helpful.")
//	go func() { base.Clone().User("Q1").GetResponse(ctx) }()
//	go func() { base.Clone().User("Q2").GetResponse(ctx) }()
//
// # Streaming
//
//	stream, err := client.Chat(model).User("Tell me a story.").Stream(ctx)
//	if err != nil {
//	    return err
//	}
//	for chunk := range stream.Ch {
//	    fmt.Print(chunk.Delta)
//	}
//
// [ChatStream] has three channels: Ch emits deltas in order, Err emits at most
// one error, and Final emits the assembled response. [DrainStream] collects
// all of them.
//
// # Errors
//
// Provider failures are [*ProviderError] values wrapping a sentinel:
//
//	if errors.Is(err, core.ErrRateLimited) { ... }
//	var pe *core.ProviderError
//	if errors.As(err, &pe) { log.Println(pe.RequestID) }
//
// Only rate limiting, server errors, and transport failures are retried.
//
// # Tools
//
// [RunTools] drives the tool-call loop against a [ToolExecutor] such as
// tools.Registry.
//
// # Conversations
//
// [Conversation] keeps multi-turn history and lets the system prompt be
// swapped between turns.
package core
