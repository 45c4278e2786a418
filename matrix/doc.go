// SPDX-License-Identifier: MIT

// Package matrix provides the dense row-major storage used for constraint
// Jacobians of the continuous routing formulation.
//
// A Jacobian of m residuals over n variables is an m×n Dense. Zero-row
// matrices are legal: an instance without mid-currencies has an empty
// flow-conservation block, and stacking blocks must not special-case it.
//
// What:
//
//   - Dense:   checked At/Set/Add, row copies, cloning, Do iteration
//   - MulVec:  J·x  (directional derivative of residuals)
//   - TMulVec: Jᵀ·y (gradient contribution of multiplier-weighted residuals)
//   - VStack:  concatenate blocks that share the column space
//
// Errors:
//
//   - ErrBadShape           negative dimensions
//   - ErrOutOfRange         row or column outside bounds
//   - ErrDimensionMismatch  incompatible operands
//   - ErrNaNInf             non-finite value written through Set/Add
//   - ErrNilMatrix          nil receiver or operand
//
// Complexity:
//
//   - At/Set/Add: O(1)
//   - MulVec/TMulVec: O(r·c)
//   - VStack: O(Σ r·c)
package matrix
