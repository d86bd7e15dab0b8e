package main

import (
	"fmt"
	"strconv"
)

// parsePositiveIDs converts command arguments into queue item IDs, rejecting
// anything that is not a positive integer.
func parsePositiveIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid item id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
