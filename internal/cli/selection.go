package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseSelection parses a 1-based selection expression like "1,3-5,8" against
// a list of n options. Duplicates collapse and order follows the option list.
func ParseSelection(expr string, n int) ([]int, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("empty selection")
	}
	if strings.EqualFold(expr, "all") {
		indices := make([]int, n)
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}

	picked := make(map[int]bool)
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if lo, hi, ok := strings.Cut(part, "-"); ok {
			start, err := parseIndex(lo, n)
			if err != nil {
				return nil, err
			}
			end, err := parseIndex(hi, n)
			if err != nil {
				return nil, err
			}
			if start > end {
				return nil, fmt.Errorf("invalid range %q", part)
			}
			for i := start; i <= end; i++ {
				picked[i] = true
			}
			continue
		}

		idx, err := parseIndex(part, n)
		if err != nil {
			return nil, err
		}
		picked[idx] = true
	}

	if len(picked) == 0 {
		return nil, fmt.Errorf("empty selection")
	}

	var indices []int
	for i := 0; i < n; i++ {
		if picked[i] {
			indices = append(indices, i)
		}
	}
	return indices, nil
}

func parseIndex(s string, n int) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid selection %q", s)
	}
	if v < 1 || v > n {
		return 0, fmt.Errorf("selection %d out of range 1-%d", v, n)
	}
	return v - 1, nil
}
