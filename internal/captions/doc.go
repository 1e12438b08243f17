// Package captions groups word-level narration timestamps into on-screen
// caption pages.
//
// Group is pure and deterministic: identical input always yields identical
// pages. Line length is measured in printable grapheme clusters after markup
// is stripped, so emoji and combining marks count as one character each.
package captions
