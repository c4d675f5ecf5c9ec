package ast

import "strings"

// Keyword is a namespaced symbolic identifier used throughout policy
// expressions: operators ("=", "<"), quantifiers ("forall"), accessors
// ("doc/user.name", "param/limit"), value functions ("fn/count"), and
// policy references ("inventory/in-stock").
//
// The namespace is everything before the first "/"; keywords without a
// "/" have an empty namespace.
type Keyword string

// Namespace returns the namespace portion of the keyword, or "" if the
// keyword is not namespaced.
func (k Keyword) Namespace() string {
	if i := strings.Index(string(k), "/"); i >= 0 {
		return string(k)[:i]
	}
	return ""
}

// Name returns the name portion of the keyword (everything after the
// first "/"), or the whole keyword if it is not namespaced.
func (k Keyword) Name() string {
	if i := strings.Index(string(k), "/"); i >= 0 {
		return string(k)[i+1:]
	}
	return string(k)
}

// HasNamespace returns true if the keyword carries a namespace.
func (k Keyword) HasNamespace() bool {
	return strings.Contains(string(k), "/")
}

// String returns the keyword as a plain string.
func (k Keyword) String() string {
	return string(k)
}

// Reserved accessor namespaces. These cannot be registered as module
// namespaces and are classified specially by the parser.
const (
	NamespaceDoc   = "doc"
	NamespaceFn    = "fn"
	NamespaceSelf  = "self"
	NamespaceParam = "param"
	NamespaceEvent = "event"
	NamespaceURI   = "uri"
)

// ReservedNamespaces lists every namespace with built-in meaning.
var ReservedNamespaces = []string{
	NamespaceDoc,
	NamespaceFn,
	NamespaceSelf,
	NamespaceParam,
	NamespaceEvent,
	NamespaceURI,
}

// IsReservedNamespace returns true if ns has built-in meaning and cannot
// be used as a module namespace.
func IsReservedNamespace(ns string) bool {
	for _, r := range ReservedNamespaces {
		if ns == r {
			return true
		}
	}
	return false
}

// Reserved quantifier keys recognized by the parser.
const (
	KeywordForall Keyword = "forall"
	KeywordExists Keyword = "exists"
)

// Boolean connective keys.
const (
	KeywordAnd Keyword = "and"
	KeywordOr  Keyword = "or"
	KeywordNot Keyword = "not"
	KeywordLet Keyword = "let"
)

// IsQuantifierKey returns true if k is one of the reserved quantifier
// heads.
func IsQuantifierKey(k Keyword) bool {
	return k == KeywordForall || k == KeywordExists
}
