package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Strip the 0x prefix (if any) from a hex string.
func Trim0xPrefix(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}

func Prepend0xPrefix(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s
	}
	return "0x" + s
}

// HexToUint64 parses a 0x-prefixed hex quantity (the encoding both the ledger
// node and the payment-channel node use for numbers on the wire).
func HexToUint64(s string) (uint64, error) {
	v, err := strconv.ParseUint(Trim0xPrefix(s), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("not a hex quantity: %q", s)
	}
	return v, nil
}

func Uint64ToHex(v uint64) string {
	return "0x" + strconv.FormatUint(v, 16)
}

// HexMsToTime parses a hex quantity of milliseconds-since-epoch.
// The payment-channel node reports all timestamps this way.
func HexMsToTime(s string) (time.Time, error) {
	ms, err := HexToUint64(s)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(int64(ms)).UTC(), nil
}

func TimeToHexMs(t time.Time) string {
	return Uint64ToHex(uint64(t.UnixMilli()))
}

// HourBucket returns the UTC calendar-hour bucket key for t, e.g. "2024073115".
// Used to bucket the hourly transfer counters.
func HourBucket(t time.Time) string {
	return t.UTC().Format("2006010215")
}
