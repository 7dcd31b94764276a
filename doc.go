// Package abstraction indexes a source tree into per-function structural
// facts, assembles a static call graph from them, and tracks human-authored
// behavioral contracts against function bodies so drift between documented
// intent and current code is detectable.
package abstraction
