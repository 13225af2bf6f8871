// Package llm wraps the OpenAI and Anthropic SDKs behind one JSON completion
// client used for script writing and scene code generation.
//
// # Provider Selection
//
// Resolve honours an explicit preference when that provider has a
// credential. Otherwise claude wins over openai, and with neither configured
// the caller gets a services.ErrConfiguration carrying MissingKeyMessage.
//
// # Entry Points
//
// NewSet: build a provider set from Config; clients are created lazily.
// Set.Client: fetch the client for a resolved provider.
// Client.CompleteJSON: send system/user prompts, receive the raw JSON text.
// DecodeLLMJSON: decode a response, tolerating code fences and stray prose.
//
// # Structured Output
//
// Requests may carry a JSON schema (see GenerateSchema). The OpenAI client
// forwards it as a strict json_schema response format for models that accept
// one; Claude and older OpenAI models rely on the prompt.
//
// Retries are left to the SDKs' own transport policy.
package llm
