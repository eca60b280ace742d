// Package conv provides bounds-checked integer conversions.
//
// Use these where a value crosses into a narrower identifier space (slot
// keys, counters). For conversions that are provably safe, use a direct cast.
package conv
