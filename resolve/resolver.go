// Package resolve joins raw cross-service records into display-ready rows.
// One resolver implementation serves every composite endpoint; the call sites
// differ only in which lookups they combine. Lookup failures never escape to
// the handler layer: movie joins drop the affected rows, username joins fall
// back to a sentinel.
package resolve

import (
	"context"
	"log/slog"
	"sync"

	"github.com/movieverse/movieverse-gateway/session"
	"github.com/movieverse/movieverse-gateway/upstream"
)

// UnknownUser is the display name substituted when a user id cannot be
// resolved. Sentinel rows are kept, never dropped, and the failed lookup is
// not cached so a later resolve retries it.
const UnknownUser = "Unknown"

// FeedEntry is one joined newsfeed row: an activity record with its movie and
// username resolved.
type FeedEntry struct {
	Movie     upstream.MovieRef `json:"movie"`
	UserID    int               `json:"user_id"`
	Username  string            `json:"username"`
	WatchedAt string            `json:"watched_at"`
}

// RatingEntry is one joined rating row for a movie's detail view.
type RatingEntry struct {
	RatingID int    `json:"rating_id"`
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
}

// RatedMovie is one of a user's ratings joined with its movie record.
type RatedMovie struct {
	Movie  upstream.MovieRef `json:"movie"`
	Rating int               `json:"rating"`
}

// Resolver performs cross-service joins on behalf of one session, reusing the
// session's lookup caches across calls.
type Resolver struct {
	client *upstream.Client
	sess   *session.Session
}

// New creates a resolver bound to a session. Resolvers are cheap; handlers
// create one per request.
func New(client *upstream.Client, sess *session.Session) *Resolver {
	return &Resolver{client: client, sess: sess}
}

// Movies resolves the given movie ids to their catalog records, deduplicated
// and in first-appearance order. Ids already in the session cache are served
// from it; the rest are fetched with a single batched request, regardless of
// how many there are. An empty id set issues no request at all. Ids the
// catalog does not return are dropped.
func (r *Resolver) Movies(ctx context.Context, ids []int) []upstream.MovieRef {
	index, order := r.movieIndex(ctx, ids)
	out := make([]upstream.MovieRef, 0, len(order))
	for _, id := range order {
		if ref, ok := index[id]; ok {
			out = append(out, ref)
		}
	}
	return out
}

// movieIndex resolves ids to an id→record index plus the deduplicated
// first-appearance order. The index only holds ids that resolved.
func (r *Resolver) movieIndex(ctx context.Context, ids []int) (map[int]upstream.MovieRef, []int) {
	index := make(map[int]upstream.MovieRef, len(ids))
	order := make([]int, 0, len(ids))
	seen := make(map[int]struct{}, len(ids))
	var missing []int

	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		order = append(order, id)

		if ref, ok := r.sess.MovieRef(id); ok {
			index[id] = ref
		} else {
			missing = append(missing, id)
		}
	}

	if len(missing) == 0 {
		return index, order
	}

	movies, err := r.client.MovieList(ctx, r.sess, missing)
	if err != nil {
		// Uncached ids stay unresolved and their rows are dropped by the
		// caller; cached ids still render.
		slog.Warn("batched movie lookup failed",
			"session_id", r.sess.ID(), "requested", len(missing), "error", err)
		return index, order
	}

	for _, m := range movies {
		index[m.MovieID] = m.MovieRef
		r.sess.StoreMovieRef(m.MovieRef)
	}
	return index, order
}

// Usernames resolves user ids to display names. The user service has no batch
// endpoint, so uncached ids fan out concurrently over the single-user lookup.
// Every requested id is present in the result: failed lookups map to
// UnknownUser and are left uncached so they retry on the next resolve.
func (r *Resolver) Usernames(ctx context.Context, userIDs []int) map[int]string {
	names := make(map[int]string, len(userIDs))
	var missing []int

	for _, id := range userIDs {
		if _, dup := names[id]; dup {
			continue
		}
		if name, ok := r.sess.Username(id); ok {
			names[id] = name
		} else {
			names[id] = UnknownUser
			missing = append(missing, id)
		}
	}

	if len(missing) == 0 {
		return names
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, id := range missing {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			user, err := r.client.User(ctx, r.sess, id)
			if err != nil {
				slog.Warn("username lookup failed",
					"session_id", r.sess.ID(), "user_id", id, "error", err)
				return
			}
			r.sess.StoreUsername(id, user.Username)
			mu.Lock()
			names[id] = user.Username
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	return names
}

// ActivityWithMovies joins watched-activity records with their movie and
// username lookups. Rows whose movie cannot be resolved are dropped; unknown
// users are kept with the sentinel name. Output order follows input order.
func (r *Resolver) ActivityWithMovies(ctx context.Context, records []upstream.ActivityRecord) []FeedEntry {
	if len(records) == 0 {
		return []FeedEntry{}
	}

	movieIDs := make([]int, 0, len(records))
	userIDs := make([]int, 0, len(records))
	for _, rec := range records {
		movieIDs = append(movieIDs, rec.MovieID)
		userIDs = append(userIDs, rec.UserID)
	}

	index, _ := r.movieIndex(ctx, movieIDs)
	names := r.Usernames(ctx, userIDs)

	out := make([]FeedEntry, 0, len(records))
	for _, rec := range records {
		movie, ok := index[rec.MovieID]
		if !ok {
			continue
		}
		out = append(out, FeedEntry{
			Movie:     movie,
			UserID:    rec.UserID,
			Username:  names[rec.UserID],
			WatchedAt: rec.WatchedAt,
		})
	}
	return out
}

// RatingsWithUsernames joins a movie's rating records with their reviewers'
// usernames. Every rating produces exactly one row; a reviewer that cannot be
// resolved is shown as UnknownUser.
func (r *Resolver) RatingsWithUsernames(ctx context.Context, ratings []upstream.RatingRecord) []RatingEntry {
	if len(ratings) == 0 {
		return []RatingEntry{}
	}

	userIDs := make([]int, 0, len(ratings))
	for _, rating := range ratings {
		userIDs = append(userIDs, rating.UserID)
	}
	names := r.Usernames(ctx, userIDs)

	out := make([]RatingEntry, 0, len(ratings))
	for _, rating := range ratings {
		out = append(out, RatingEntry{
			RatingID: rating.RatingID,
			UserID:   rating.UserID,
			Username: names[rating.UserID],
			Rating:   rating.Rating,
		})
	}
	return out
}

// RatedMovies joins a user's ratings with their movie records, dropping
// ratings whose movie cannot be resolved.
func (r *Resolver) RatedMovies(ctx context.Context, ratings []upstream.UserRating) []RatedMovie {
	if len(ratings) == 0 {
		return []RatedMovie{}
	}

	movieIDs := make([]int, 0, len(ratings))
	for _, rating := range ratings {
		movieIDs = append(movieIDs, rating.MovieID)
	}
	index, _ := r.movieIndex(ctx, movieIDs)

	out := make([]RatedMovie, 0, len(ratings))
	for _, rating := range ratings {
		movie, ok := index[rating.MovieID]
		if !ok {
			continue
		}
		out = append(out, RatedMovie{Movie: movie, Rating: rating.Rating})
	}
	return out
}
