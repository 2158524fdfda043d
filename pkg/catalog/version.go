// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// CompareVersions orders two mod versions. Mod versions are dotted numbers
// with up to four components ("1.5.78.11833"); the first three compare as
// semver, any further components compare numerically. Versions that cannot
// be read as numbers fall back to plain string ordering.
func CompareVersions(a, b string) int {
	sa, resta, okA := toSemver(a)
	sb, restb, okB := toSemver(b)
	if !okA || !okB {
		return strings.Compare(a, b)
	}
	if c := semver.Compare(sa, sb); c != 0 {
		return c
	}
	for i := 0; i < max(len(resta), len(restb)); i++ {
		x, y := component(resta, i), component(restb, i)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

// IsNewer reports whether candidate is strictly newer than current.
func IsNewer(candidate, current string) bool {
	return CompareVersions(candidate, current) > 0
}

// toSemver splits "1.2.3.4" into "v1.2.3" and the trailing [4].
func toSemver(v string) (string, []int, bool) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if v == "" {
		return "", nil, false
	}
	parts := strings.Split(v, ".")
	nums := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return "", nil, false
		}
		nums = append(nums, n)
	}
	for len(nums) < 3 {
		nums = append(nums, 0)
	}
	sv := "v" + strconv.Itoa(nums[0]) + "." + strconv.Itoa(nums[1]) + "." + strconv.Itoa(nums[2])
	if !semver.IsValid(sv) {
		return "", nil, false
	}
	return sv, nums[3:], true
}

func component(parts []int, i int) int {
	if i < len(parts) {
		return parts[i]
	}
	return 0
}
