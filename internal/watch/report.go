package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// WriteReport writes the run's new videos as a text list under
// dataDir/list/ and returns the file path. Entries are sorted by creator
// name; duration and publish time print as "-" when detail enrichment
// failed.
func WriteReport(dataDir, runID string, videos []NewVideo) (string, error) {
	sorted := make([]NewVideo, len(videos))
	copy(sorted, videos)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].CreatorName != sorted[j].CreatorName {
			return sorted[i].CreatorName < sorted[j].CreatorName
		}
		return sorted[i].ID < sorted[j].ID
	})

	dir := filepath.Join(dataDir, "list")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	name := "new_videos_" + time.Now().Format("20060102-150405")
	if runID != "" {
		name += "_" + runID
	}
	path := filepath.Join(dir, name+".txt")

	var b strings.Builder
	for _, v := range sorted {
		fmt.Fprintf(&b, "- %s | 作者: %s | 链接: %s | 时长: %s | 发布时间: %s | bvid: %s | cid: %d\n",
			v.Title, v.CreatorName, v.URL,
			formatSeconds(v.Duration), formatWhen(v.PublishedAt), v.ID, v.Cid)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

func formatSeconds(d *int64) string {
	if d == nil {
		return "-"
	}
	return strconv.FormatInt(*d, 10)
}

func formatWhen(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.DateTime)
}
