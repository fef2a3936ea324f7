// Package model defines the provider-agnostic abstractions and concrete
// helpers for interacting with language models inside AgentNet.
//
// Core goals:
//   - One-shot inference behind a single interface (Infer)
//   - Normalized tool and tool-choice representation (ToolDefinition,
//     ToolChoice)
//   - Request/response shapes built from core messages, transport
//     independent
//   - Lightweight scripted mocking for tests (Mock)
//
// Providers (e.g. OpenAI, Anthropic) implement the Model interface from
// this package so higher layers (agents, networks, routers) remain
// decoupled from vendor SDKs.
package model
