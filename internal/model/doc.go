// Package model holds the data types shared by the intake pipeline and the
// search engine.
//
// This package contains type definitions and the metadata wire codec only.
// Every other internal package may import model; model imports nothing
// internal, so it stays the bottom layer of the dependency graph.
//
// Key constraints:
//   - Metadata is ordered: fields are encoded in the order the form declares them
//   - Optional metadata fields are encoded as null, never omitted
//   - All JSON tags use snake_case to match the backend contract
package model
