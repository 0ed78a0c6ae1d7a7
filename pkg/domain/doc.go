// Package domain defines the core types shared by the sourcemark packages.
//
// This package contains pure domain types with ZERO external dependencies outside the
// Go standard library. Documents, excerpts, spans and rendered segments live here so
// the locator, the rule annotator, the HTTP service and the CLI all agree on a single
// representation.
//
// The dependency direction is always:
//
//	Infrastructure → Domain (CORRECT)
//	Domain → Infrastructure (FORBIDDEN)
package domain
