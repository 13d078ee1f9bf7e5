// Package models defines the domain entities and persistence contracts for
// the recordkeeper storage layer.
//
// The package contains two categories of types:
//
// 1. Domain entities, shared by the assistant core and every storage backend:
//   - [Track] : an immutable snapshot of a provider track
//   - [Playlist] : an ordered list of track references owned by a user
//   - [UserAccount] : cached profile attributes for the assistant's user
//   - [Artist] : a followed artist record
//
// 2. Persistence contracts implemented by each backend adapter:
//   - [Repository] : the technology-agnostic CRUD and query contract
//   - [Store] : the per-process facade bundling one repository per entity
//   - [Capabilities] : what the active backend can and cannot do
//
// The assistant core depends only on this package. Backend adapters import it
// and implement the contracts; nothing here imports an adapter.
package models
