// Package textutil provides text processing utilities for slug derivation and
// corpus text cleanup.
//
// The primary use cases are:
//   - Deriving filesystem-safe slugs from human track titles
//   - Normalizing scraped text (NFKC + whitespace collapse) before keyword
//     matching so full-width and half-width variants compare equal
//   - Splitting running text into sentences on CJK and ASCII terminators
//
// Slugs keep Unicode letters and digits so Chinese titles survive the
// transformation instead of degrading to underscores.
package textutil
