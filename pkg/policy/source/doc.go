// Package source loads module definitions for the registry.
//
// The file source reads YAML module files, one module per document,
// and normalizes them into the registry's input shape. The memory
// source serves definitions constructed in code, mostly for tests.
package source
