package preference

import (
	"context"
	"fmt"

	"github.com/movieverse/movieverse-gateway/session"
	"github.com/movieverse/movieverse-gateway/upstream"
)

// favoriteSource binds the favorite relation to the preference service.
type favoriteSource struct {
	client *upstream.Client
	sess   *session.Session
}

func (s *favoriteSource) Mutate(ctx context.Context, set bool, target Target) error {
	if set {
		return s.client.SetFavorite(ctx, s.sess, target.ID)
	}
	return s.client.UnsetFavorite(ctx, s.sess, target.ID)
}

func (s *favoriteSource) Fetch(ctx context.Context) ([]Target, error) {
	movies, err := s.client.FavoriteMovies(ctx, s.sess)
	if err != nil {
		return nil, err
	}
	targets := make([]Target, 0, len(movies))
	for _, m := range movies {
		targets = append(targets, Target{ID: m.MovieID, Name: m.Title})
	}
	return targets, nil
}

// watchedSource binds the watched relation to the activity service. The
// service has no unwatch operation, so Mutate rejects unset; the toggler
// never requests it for set-only relations.
type watchedSource struct {
	client *upstream.Client
	sess   *session.Session
}

func (s *watchedSource) Mutate(ctx context.Context, set bool, target Target) error {
	if !set {
		return fmt.Errorf("watched marks cannot be removed")
	}
	return s.client.MarkWatched(ctx, s.sess, target.ID)
}

func (s *watchedSource) Fetch(ctx context.Context) ([]Target, error) {
	records, err := s.client.WatchedByUsers(ctx, s.sess, []int{s.sess.UserID()})
	if err != nil {
		return nil, err
	}
	targets := make([]Target, 0, len(records))
	for _, rec := range records {
		targets = append(targets, Target{ID: rec.MovieID})
	}
	return targets, nil
}

// friendSource binds the friend relation to the user service. The wire keys
// friend edges by username, the index by user id, so Target carries both.
type friendSource struct {
	client *upstream.Client
	sess   *session.Session
}

func (s *friendSource) Mutate(ctx context.Context, set bool, target Target) error {
	if set {
		return s.client.AddFriend(ctx, s.sess, target.Name)
	}
	return s.client.RemoveFriend(ctx, s.sess, target.Name)
}

func (s *friendSource) Fetch(ctx context.Context) ([]Target, error) {
	friends, err := s.client.Friends(ctx, s.sess)
	if err != nil {
		return nil, err
	}
	targets := make([]Target, 0, len(friends))
	for _, f := range friends {
		targets = append(targets, Target{ID: f.UserID, Name: f.Username})
	}
	return targets, nil
}
