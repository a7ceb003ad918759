package yarasp

import (
	"math"
	"strconv"

	"github.com/yarasp/yarasp-go/internal/constants"
)

var sizeUnits = []string{"B", "KB", "MB"}

// FormatSize renders a byte count as a rounded B, KB or MB value.
func FormatSize(size int) string {
	value := float64(size)
	index := 0

	for value >= constants.BytesPerKB && index < len(sizeUnits)-1 {
		value /= constants.BytesPerKB
		index++
	}

	return strconv.FormatFloat(math.Round(value), 'f', 0, 64) + sizeUnits[index]
}

// IsSuspiciousSize reports whether a response body is large enough to
// suggest the client is being misused.
func IsSuspiciousSize(size int) bool {
	return size > constants.SuspiciousSizeMB*constants.BytesPerKB*constants.BytesPerKB
}
