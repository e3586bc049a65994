package bili

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Metrics tracks operational counters across the platform client.
var metrics struct {
	NavCalls      atomic.Int64
	QRGenerates   atomic.Int64
	QRPolls       atomic.Int64
	GroupLists    atomic.Int64
	MemberPages   atomic.Int64
	VideoLists    atomic.Int64
	DetailFetches atomic.Int64
	Retries       atomic.Int64
}

// GetMetrics returns a snapshot of all client counters.
func GetMetrics() map[string]int64 {
	return map[string]int64{
		"nav_calls":      metrics.NavCalls.Load(),
		"qr_generates":   metrics.QRGenerates.Load(),
		"qr_polls":       metrics.QRPolls.Load(),
		"group_lists":    metrics.GroupLists.Load(),
		"member_pages":   metrics.MemberPages.Load(),
		"video_lists":    metrics.VideoLists.Load(),
		"detail_fetches": metrics.DetailFetches.Load(),
		"retries":        metrics.Retries.Load(),
	}
}

// FormatMetrics returns counters as simple key value lines for logs.
func FormatMetrics() string {
	m := GetMetrics()
	keys := []string{
		"nav_calls", "qr_generates", "qr_polls",
		"group_lists", "member_pages",
		"video_lists", "detail_fetches",
		"retries",
	}
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

func IncrNavCalls()      { metrics.NavCalls.Add(1) }
func IncrQRGenerates()   { metrics.QRGenerates.Add(1) }
func IncrQRPolls()       { metrics.QRPolls.Add(1) }
func IncrGroupLists()    { metrics.GroupLists.Add(1) }
func IncrMemberPages()   { metrics.MemberPages.Add(1) }
func IncrVideoLists()    { metrics.VideoLists.Add(1) }
func IncrDetailFetches() { metrics.DetailFetches.Add(1) }
func IncrRetries()       { metrics.Retries.Add(1) }
