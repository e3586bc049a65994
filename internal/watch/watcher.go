// Package watch walks the configured follow groups and records videos that
// have not been seen before.
package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"biliwatch/internal/bili"
	"biliwatch/internal/store"
)

// Options tunes one traversal run.
type Options struct {
	// Groups are the follow-group names to check, matched exactly against
	// the account's groups. Unmatched names are skipped with a warning.
	Groups []string

	// Pause is the minimum spacing between creator checks across all
	// workers. Defaults to 5s.
	Pause time.Duration

	// Workers bounds concurrent creator checks. Defaults to 1, which keeps
	// the traversal strictly sequential.
	Workers int

	// Debug limits each matched group to its first creator.
	Debug bool
}

// NewVideo is a registry record plus the cid, which is reported but not
// persisted.
type NewVideo struct {
	store.VideoRecord
	Cid int64
}

// Result summarizes one run. NewVideos is in discovery order; the report
// writer sorts.
type Result struct {
	NewVideos       []NewVideo
	GroupsMatched   int
	CreatorsChecked int
}

// Watcher ties the platform client to the registry. One Watcher runs one
// traversal at a time.
type Watcher struct {
	client  *bili.Client
	reg     store.Registry
	seen    *store.SeenCache
	opts    Options
	limiter *rate.Limiter
}

// New builds a Watcher. seen may be nil to run on the registry alone.
func New(client *bili.Client, reg store.Registry, seen *store.SeenCache, opts Options) *Watcher {
	if opts.Pause <= 0 {
		opts.Pause = 5 * time.Second
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Watcher{
		client:  client,
		reg:     reg,
		seen:    seen,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Every(opts.Pause), 1),
	}
}

type creatorTask struct {
	creator bili.Creator
	group   string
	index   int
	total   int
}

// Run resolves the configured group names, then checks every member
// creator's latest videos, inserting unseen ones into the registry. A
// failing group listing downgrades to "no groups matched" rather than
// aborting, matching how a broken session surfaces as an empty run.
func (w *Watcher) Run(ctx context.Context) (Result, error) {
	groups, err := w.client.ListFollowGroups(ctx)
	if err != nil {
		slog.Warn("watch: listing follow groups failed", slog.Any("error", err))
		groups = nil
	}
	byName := make(map[string]bili.FollowGroup, len(groups))
	for _, g := range groups {
		byName[g.Name] = g
	}

	var (
		res Result
		mu  sync.Mutex
	)

	tasks := make(chan creatorTask)
	var wg sync.WaitGroup
	for i := 0; i < w.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				if ctx.Err() != nil {
					continue // drain remaining tasks
				}
				if err := w.limiter.Wait(ctx); err != nil {
					continue
				}
				w.checkCreator(ctx, task, &res, &mu)
			}
		}()
	}

	matched := 0
produce:
	for _, name := range w.opts.Groups {
		group, ok := byName[name]
		if !ok {
			slog.Warn("watch: configured group not found", slog.String("group", name))
			continue
		}
		matched++
		slog.Info("watch: processing group",
			slog.String("group", group.Name),
			slog.Int64("tagid", group.TagID),
			slog.Int("count", group.Count))

		members, err := w.client.ListGroupMembers(ctx, group.TagID)
		if err != nil {
			slog.Warn("watch: listing group members failed",
				slog.String("group", group.Name), slog.Any("error", err))
			continue
		}
		if w.opts.Debug && len(members) > 1 {
			slog.Debug("watch: debug run, checking first creator only",
				slog.String("group", group.Name))
			members = members[:1]
		}

		for i, creator := range members {
			select {
			case tasks <- creatorTask{creator: creator, group: group.Name, index: i + 1, total: len(members)}:
			case <-ctx.Done():
				break produce
			}
		}
	}
	close(tasks)
	wg.Wait()

	res.GroupsMatched = matched
	return res, ctx.Err()
}

// checkCreator fetches one creator's first video page and records the
// videos the registry has not seen.
func (w *Watcher) checkCreator(ctx context.Context, task creatorTask, res *Result, mu *sync.Mutex) {
	slog.Info("watch: checking creator",
		slog.String("group", task.group),
		slog.String("creator", task.creator.Uname),
		slog.Int64("mid", task.creator.Mid),
		slog.Int("index", task.index),
		slog.Int("total", task.total))

	videos, err := w.client.ListCreatorVideos(ctx, task.creator.Mid, 1, bili.DefaultVideoPageSize)
	if err != nil {
		slog.Warn("watch: listing videos failed",
			slog.String("creator", task.creator.Uname),
			slog.Int64("mid", task.creator.Mid),
			slog.Any("error", err))
	}

	var fresh []NewVideo
	for _, v := range videos {
		if nv, ok := w.recordVideo(ctx, task.creator, v); ok {
			fresh = append(fresh, nv)
		}
	}

	mu.Lock()
	res.CreatorsChecked++
	res.NewVideos = append(res.NewVideos, fresh...)
	mu.Unlock()
}

// recordVideo inserts a video the registry does not know yet, enriched with
// detail metadata when the detail fetch succeeds. The registry's primary key
// is the dedup authority; the seen cache only short-circuits lookups.
func (w *Watcher) recordVideo(ctx context.Context, creator bili.Creator, v bili.VideoSummary) (NewVideo, bool) {
	if w.seen.IsSeen(ctx, v.Bvid) {
		return NewVideo{}, false
	}

	exists, err := w.reg.Exists(ctx, v.Bvid)
	if err != nil {
		slog.Warn("watch: registry lookup failed",
			slog.String("bvid", v.Bvid), slog.Any("error", err))
		return NewVideo{}, false
	}
	if exists {
		w.seen.MarkSeen(ctx, v.Bvid)
		return NewVideo{}, false
	}

	rec := store.VideoRecord{
		ID:          v.Bvid,
		CreatorID:   creator.Mid,
		CreatorName: creator.Uname,
		Title:       v.Title,
		URL:         bili.VideoURL(v.Bvid),
	}
	var cid int64
	if detail, err := w.client.FetchVideoDetail(ctx, v.Bvid); err != nil {
		// Recorded anyway; the id is what dedup needs, metadata is a bonus.
		slog.Warn("watch: detail fetch failed",
			slog.String("bvid", v.Bvid), slog.Any("error", err))
	} else {
		duration := detail.Duration
		rec.Duration = &duration
		if detail.Pubdate > 0 {
			published := time.Unix(detail.Pubdate, 0).UTC()
			rec.PublishedAt = &published
		}
		cid = detail.Cid
	}

	inserted, err := w.reg.InsertIfAbsent(ctx, rec)
	if err != nil {
		slog.Warn("watch: registry insert failed",
			slog.String("bvid", v.Bvid), slog.Any("error", err))
		return NewVideo{}, false
	}
	w.seen.MarkSeen(ctx, v.Bvid)
	if !inserted {
		return NewVideo{}, false
	}

	slog.Info("watch: new video",
		slog.String("creator", creator.Uname),
		slog.String("title", v.Title),
		slog.String("bvid", v.Bvid))
	return NewVideo{VideoRecord: rec, Cid: cid}, true
}
