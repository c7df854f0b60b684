// Package gemini provides an implementation of the generation.Completer interface
// backed by Google's Gemini API.
//
// This package is an infrastructure adapter, connecting the content generator
// to Google's external Gemini AI service without exposing the details of the
// external service to the rest of the feeder.
//
// Key components:
//
// 1. Client:
//   - Implements the generation.Completer interface
//   - Sends one prompt per call and returns the concatenated text parts
//
// 2. Error Handling:
//   - Retries transient failures with exponential backoff and jitter
//   - Maps safety blocks to generation.ErrContentBlocked
//   - Maps empty or malformed responses to generation.ErrInvalidResponse
//
// The package depends on the google.golang.org/genai client library.
package gemini
