// Package locate finds an excerpt inside a larger document and renders the document
// with that excerpt marked.
//
// Excerpts usually come from an upstream generative step that was asked to quote the
// document verbatim. They frequently are not: line breaks get collapsed into spaces,
// indentation disappears, or casing drifts. The locator therefore tries three
// strategies in order and stops at the first one that succeeds:
//
//  1. exact, case-sensitive containment
//  2. whitespace-tolerant, case-insensitive matching, where every run of whitespace in
//     the excerpt matches any run of whitespace in the document
//  3. token sequence matching over whitespace-delimited tokens, case-sensitive
//
// When all three fail the document is returned unmarked. Every function in this
// package is pure and safe for concurrent use; none of them return errors, because
// "not found" is an ordinary outcome rather than a failure.
package locate
