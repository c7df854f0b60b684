// Package domain contains the records the feeding pipeline produces and persists:
// vocabulary words, grammar topics and grammar exercises, together with the
// fixed enumerations (CEFR levels, exercise types) they are validated against.
// It has no dependencies on storage, transport, or the generative AI.
package domain
