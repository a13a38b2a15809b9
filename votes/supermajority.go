// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package votes

// SupermajorityPercent is the cross-multiplied percentage threshold: a
// count reaches supermajority when count*100 >= total*SupermajorityPercent.
// The spec's default is 66 (spec.md §4.2).
const SupermajorityPercent = 66

// HasSupermajority reports whether count meets the cross-multiplied
// percentage threshold out of total. Cross-multiplication avoids the
// truncation that (count*100)/total >= percent would introduce
// (spec.md §9, "Integer arithmetic").
func HasSupermajority(count, total uint64) bool {
	return count*100 >= total*SupermajorityPercent
}

// MinSupermajority returns the minimum count that reaches supermajority
// out of total: ceil(2*total/3) = (2*total + 2) / 3 using integer
// arithmetic (spec.md §4.2).
func MinSupermajority(total uint64) uint64 {
	return (2*total + 2) / 3
}
