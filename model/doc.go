// Package model defines the provider-agnostic abstractions for driving
// language models inside TaskMesh.
//
// Core goals:
//   - Unify streaming + non-streaming generation behind a single interface
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockProvider)
//
// Providers (OpenAI, Anthropic, Ollama) implement the Provider interface from
// this package so the task engine remains decoupled from vendor SDKs.
package model
