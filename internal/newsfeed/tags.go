package newsfeed

import (
	"slices"
	"strings"

	"freegle/internal/core"
	"freegle/pkg/fdapi"

	"github.com/samber/lo"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// TagUsers lists the authors of every cached item and its direct replies, once per user, sorted by
// display name ignoring case, in dictionary order rather than byte order.
func (s *Store) TagUsers() []core.TagUser {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := lo.Keys(s.list)
	slices.Sort(ids)

	seen := map[int64]bool{}
	var users []core.TagUser

	add := func(item *fdapi.NewsItem) {
		if item == nil || item.UserID == 0 || item.DisplayName == "" || seen[item.UserID] {
			return
		}
		seen[item.UserID] = true
		users = append(users, core.TagUser{ID: item.UserID, DisplayName: item.DisplayName})
	}

	for _, id := range ids {
		item := s.list[id]
		add(item)

		if item != nil {
			lo.ForEach(item.Replies, func(reply *fdapi.NewsItem, _ int) {
				add(reply)
			})
		}
	}

	// Collators are not safe for concurrent use.
	col := collate.New(language.English)
	slices.SortStableFunc(users, func(a, b core.TagUser) int {
		return col.CompareString(strings.ToLower(a.DisplayName), strings.ToLower(b.DisplayName))
	})

	return users
}
