// Package generation turns batch requests into validated vocabulary words,
// grammar exercises and grammar topic metadata by prompting a generative AI.
//
// The AI is reached through the Completer interface, a plain prompt-to-text
// function implemented by internal/platform/gemini. Requests larger than the
// configured chunk size are split into sequential calls with a fixed delay
// between them. Responses are parsed defensively (see ExtractJSON) since models
// wrap JSON in Markdown fences or get truncated at their token limit.
//
// Failures never escape as errors: each Generate method returns a result value
// whose Failure field carries the reason when nothing usable was produced.
package generation
