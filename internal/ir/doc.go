// Package ir provides the value and definition types shared by every ranked
// package.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps ir the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere - scope values are string, int, bool or null
//   - Scope keys compare by value; null is a matchable value, never a wildcard
//   - Canonical encoding (MarshalCanonical) is the only form used for
//     scope identity in logs, locks and snapshots
package ir
