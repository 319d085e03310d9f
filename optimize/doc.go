// Package optimize rewrites brio IR.
//
// This package contains:
//   - The condense pass: data-flow tracking of pending adds/sets/moves and
//     known cell values
//   - The loop recognizer: multiplication, zeroing, and seek loops
//   - The fixed-point driver
package optimize
