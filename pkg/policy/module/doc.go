// Package module implements the namespace registry and the
// dependency-ordered module loader.
//
// A Registry is an immutable, versioned map from namespace to entry
// (module or one-hop alias); every mutation returns a new registry and
// bumps the version, which callers use for cache invalidation. Reserved
// namespaces (doc, fn, self, param, event, uri) cannot be registered.
//
// LoadModules validates module definitions, detects duplicates, import
// cycles (reported as the offending node sequence) and missing imports,
// orders modules so dependencies load first, and folds them into the
// registry atomically: on any error the supplied registry is returned
// untouched.
package module
