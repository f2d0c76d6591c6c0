// Package service assembles a graph of providers keyed by key.Key and turns
// it into an immutable runtime structure.
//
// An Assembly owns a tree of scopes. Each scope is a Graph: a mutable,
// single-writer registry of Setup nodes built through the composer methods
// (Provide, Prototype, Map, Replace, Decorate, Rekey, Remove, ...). When a
// scope finishes, its ExportManager projects the exported services into the
// parent scope. Build validates the whole assembly, reporting every missing
// dependency and export problem at once, and Launch converts the frozen
// graph into RuntimeService entries behind a read-only Locator.
//
// Graph and ExportManager are not safe for concurrent mutation. Runtime
// conversion and the Locator are safe for concurrent use.
package service
