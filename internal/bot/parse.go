package bot

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseIDArg extracts a thread ID from a command argument string.
// A leading '#' is accepted.
func ParseIDArg(args string) (int64, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 0, fmt.Errorf("thread ID is required")
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(fields[0], "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid thread ID %q", fields[0])
	}
	return id, nil
}
