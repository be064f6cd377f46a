package newsfeed

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	"freegle/internal/core"
	"freegle/pkg/fdapi"

	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"
)

var _ core.NewsfeedStore = (*Store)(nil)

// Store caches newsfeed threads for a single user session.
//
// Every item is kept in a flat mapping keyed by id, replies at any depth included, so lookups do not
// depend on nesting. At most one request per id is in flight; callers asking for the same id share it.
// Each fetch takes a sequence number when it starts and may only overwrite ids last written by an
// older fetch, so a slow response cannot replace fresher data.
type Store struct {
	Logger *slog.Logger
	API    core.NewsAPI

	ctx    context.Context
	cancel context.CancelFunc
	group  singleflight.Group
	bg     sync.WaitGroup

	mu       sync.RWMutex
	feed     []*fdapi.NewsSummary
	distance string
	list     map[int64]*fdapi.NewsItem
	written  map[int64]uint64
	seq      uint64
	floor    uint64
	maxSeen  int64
	count    int
}

func (s *Store) Init(ctx context.Context) error {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	s.Logger = s.Logger.With("component", "newsfeed.Store")

	// Shared fetches outlive the request that started them.
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.Reset()

	return nil
}

// Reset drops all cached state. Fetches that started before the reset are discarded when they complete.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.feed = nil
	s.distance = ""
	s.list = map[int64]*fdapi.NewsItem{}
	s.written = map[int64]uint64{}
	s.floor = s.seq
	s.maxSeen = 0
	s.count = 0
}

func (s *Store) Shutdown(_ context.Context) error {
	s.cancel()
	s.bg.Wait()
	return nil
}

// Wait blocks until background refreshes and seen markers have completed.
func (s *Store) Wait() {
	s.bg.Wait()
}

func (s *Store) FetchCount(ctx context.Context, logErrors bool) (int, error) {
	count, err := s.API.NewsCount(ctx, logErrors)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.count = count
	s.mu.Unlock()

	return count, nil
}

// MergeItems stores items and all their nested replies, raising the high-water mark.
func (s *Store) MergeItems(items ...*fdapi.NewsItem) {
	s.merge(s.nextSeq(), items)
}

func (s *Store) merge(seq uint64, items []*fdapi.NewsItem) {
	s.mu.Lock()

	if seq <= s.floor {
		s.mu.Unlock()
		s.Logger.Debug("dropping fetch started before reset", "seq", seq)
		return
	}

	prevMax := s.maxSeen

	queue := slices.Clone(items)
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if item == nil {
			continue
		}

		if item.ID > s.maxSeen {
			s.maxSeen = item.ID
		}

		if seq >= s.written[item.ID] {
			s.list[item.ID] = item
			s.written[item.ID] = seq
		} else {
			s.Logger.Debug("dropping stale item", "id", item.ID, "seq", seq, "written", s.written[item.ID])
		}

		queue = append(queue, item.Replies...)
	}

	maxSeen := s.maxSeen
	s.mu.Unlock()

	if maxSeen > prevMax {
		s.markSeen(maxSeen)
	}
}

func (s *Store) markSeen(id int64) {
	s.background(func(ctx context.Context) {
		if err := s.API.NewsSeen(ctx, id); err != nil {
			s.Logger.Error("failed to mark newsfeed as seen", "id", id, "error", err)
		}

		if _, err := s.FetchCount(ctx, true); err != nil {
			s.Logger.Error("failed to fetch newsfeed count", "error", err)
		}
	})
}

// FetchFeed replaces the ordered feed. An empty distance reuses the last one requested.
func (s *Store) FetchFeed(ctx context.Context, distance string) ([]*fdapi.NewsSummary, error) {
	s.mu.RLock()
	if distance == "" {
		distance = s.distance
	}
	s.mu.RUnlock()

	feed, err := s.API.FetchNewsFeed(ctx, distance)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.feed = feed
	s.distance = distance
	s.mu.Unlock()

	return feed, nil
}

// Fetch returns the thread with the given id.
//
// A cached thread is returned straight away and refreshed in the background. Otherwise, or when force is
// set, the caller waits for the shared request. Failures are logged and the last known value is returned,
// which may be nil.
func (s *Store) Fetch(ctx context.Context, id int64, force, lovelist bool) *fdapi.NewsItem {
	if cached := s.ByID(id); cached != nil && !force {
		ch := s.load(id, lovelist)
		s.background(func(context.Context) { <-ch })
		return cached
	}

	select {
	case <-s.load(id, lovelist):
	case <-ctx.Done():
		s.Logger.Debug("stopped waiting for newsfeed fetch", "id", id, "error", ctx.Err())
	}

	return s.ByID(id)
}

// load starts the request for id, or joins the one already in flight.
func (s *Store) load(id int64, lovelist bool) <-chan singleflight.Result {
	return s.group.DoChan(strconv.FormatInt(id, 10), func() (any, error) {
		seq := s.nextSeq()

		item, err := s.API.FetchNewsItem(s.ctx, id, lovelist, false)
		if err != nil {
			s.Logger.Error("Fetch of newsfeed failed", "id", id, "error", err)
			return nil, err
		}

		if item != nil && item.ID != 0 {
			s.merge(seq, []*fdapi.NewsItem{item})
		}

		return item, nil
	})
}

func (s *Store) Love(ctx context.Context, id, threadHead int64) error {
	if err := s.API.LoveNews(ctx, id); err != nil {
		return err
	}
	s.Fetch(ctx, threadHead, true, false)
	return nil
}

func (s *Store) Unlove(ctx context.Context, id, threadHead int64) error {
	if err := s.API.UnloveNews(ctx, id); err != nil {
		return err
	}
	s.Fetch(ctx, threadHead, true, false)
	return nil
}

// Send posts a new thread (threadHead == 0) or a reply and returns the new id.
func (s *Store) Send(ctx context.Context, message string, replyTo, threadHead, imageID int64) (int64, error) {
	// A trailing newline from the enter key tends to produce duplicates.
	message = strings.TrimSpace(message)

	id, err := s.API.SendNews(ctx, fdapi.SendNews{
		Message:    message,
		ReplyTo:    replyTo,
		ThreadHead: threadHead,
		ImageID:    imageID,
	})
	if err != nil {
		return 0, err
	}

	if threadHead == 0 {
		if _, err := s.FetchFeed(ctx, ""); err != nil {
			return id, err
		}
	} else {
		s.Fetch(ctx, threadHead, true, false)
	}

	return id, nil
}

func (s *Store) Edit(ctx context.Context, id int64, message string, threadHead int64) error {
	if err := s.API.EditNews(ctx, id, message); err != nil {
		return err
	}
	s.Fetch(ctx, threadHead, true, false)
	return nil
}

// Delete removes an item. Deleting a thread head drops the thread from the feed, deleting a reply
// refreshes its thread.
func (s *Store) Delete(ctx context.Context, id, threadHead int64) error {
	if err := s.API.DeleteNews(ctx, id); err != nil {
		return err
	}

	if id != threadHead {
		s.Fetch(ctx, threadHead, true, false)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.list[id] = nil
	s.written[id] = s.seq
	s.feed = lo.Reject(s.feed, func(item *fdapi.NewsSummary, _ int) bool {
		return item.ID == id
	})

	return nil
}

func (s *Store) Unfollow(ctx context.Context, id int64) error {
	return s.API.UnfollowNews(ctx, id)
}

func (s *Store) Unhide(ctx context.Context, id int64) error {
	if err := s.API.UnhideNews(ctx, id); err != nil {
		return err
	}
	s.Fetch(ctx, id, true, false)
	return nil
}

func (s *Store) ReferTo(ctx context.Context, id int64, target string) error {
	if err := s.API.ReferNewsTo(ctx, id, target); err != nil {
		return err
	}
	s.Fetch(ctx, id, true, false)
	return nil
}

func (s *Store) Report(ctx context.Context, id int64, reason string) error {
	return s.API.ReportNews(ctx, id, reason)
}

func (s *Store) ByID(id int64) *fdapi.NewsItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list[id]
}

func (s *Store) Feed() []*fdapi.NewsSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.feed)
}

func (s *Store) MaxSeen() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxSeen
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

func (s *Store) nextSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

func (s *Store) background(fn func(ctx context.Context)) {
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		fn(s.ctx)
	}()
}
