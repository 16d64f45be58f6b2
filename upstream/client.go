// Package upstream provides the HTTP client for the MovieVerse service
// gateway: the catalog, activity, user and preference services reached through
// one base URL. Reads decode JSON envelopes; mutations attach the caller's
// cookie material and anti-forgery token.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrUnexpectedStatus wraps every non-2xx upstream response. Callers that only
// need to know "the service said no" can errors.Is against it instead of
// parsing the message.
var ErrUnexpectedStatus = errors.New("unexpected upstream status")

// Credentials supplies the browser-session material attached to upstream
// requests. The cookie header is forwarded verbatim; the CSRF token is re-read
// for every mutation so a rotated token is always picked up.
type Credentials interface {
	CookieHeader() string
	CSRFToken() string
}

// Client is the HTTP client for the upstream service gateway. A single Client
// is created at startup and shared across all request handlers.
type Client struct {
	baseURL    string
	jsonClient *http.Client
}

// New builds a Client for the given gateway base URL. timeout bounds the
// total duration of one JSON call; pass 0 for the default of 10s.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: timeout,
		MaxIdleConnsPerHost:   10,
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		jsonClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}
}

// BaseURL returns the configured gateway base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// GetJSON issues a GET and decodes the response body into v.
// A network-level failure or a non-2xx status is returned as an error; the
// status code is reported alongside so callers can distinguish rejection from
// unreachability.
func (c *Client) GetJSON(ctx context.Context, creds Credentials, path string, query url.Values, v interface{}) (int, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, creds)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.jsonClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("upstream request to %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("reading upstream response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("GET %s: %w: %d", path, ErrUnexpectedStatus, resp.StatusCode)
	}
	if v == nil || len(raw) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return resp.StatusCode, fmt.Errorf("decoding %s response: %w", path, err)
	}
	return resp.StatusCode, nil
}

// GetRaw issues a GET and returns the raw body and content type without JSON
// decoding. Used for poster passthrough.
func (c *Client) GetRaw(ctx context.Context, creds Credentials, path string, query url.Values) ([]byte, string, int, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, creds)
	if err != nil {
		return nil, "", 0, err
	}
	resp, err := c.jsonClient.Do(req)
	if err != nil {
		return nil, "", 0, fmt.Errorf("upstream request to %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", resp.StatusCode, err
	}
	return body, resp.Header.Get("Content-Type"), resp.StatusCode, nil
}

// Mutate issues a state-changing request. Every mutation carries the
// anti-forgery token from the session's cookie store in the X-CSRF-TOKEN
// header; a missing token is sent as-is and left for the upstream to reject.
// A non-2xx status is an error wrapping ErrUnexpectedStatus.
func (c *Client) Mutate(ctx context.Context, creds Credentials, method, path string, query url.Values) error {
	req, err := c.newRequest(ctx, method, path, query, creds)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRF-TOKEN", creds.CSRFToken())

	resp, err := c.jsonClient.Do(req)
	if err != nil {
		return fmt.Errorf("upstream request to %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: %w: %d", method, path, ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, creds Credentials) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building upstream request: %w", err)
	}
	if creds != nil {
		if ch := creds.CookieHeader(); ch != "" {
			req.Header.Set("Cookie", ch)
		}
	}
	return req, nil
}

// ── typed reads ───────────────────────────────────────────────────────────────

// resultsEnvelope is the {"results": [...]} wrapper every list endpoint uses.
// Some endpoints return {"message": ...} with no results key when the list is
// empty; a missing array decodes to nil and is treated as empty.
type resultsEnvelope[T any] struct {
	Results []T `json:"results"`
}

// MovieList fetches the batched catalog lookup for the given ids, repeated as
// movie_ids query parameters. The caller is responsible for deduplication.
func (c *Client) MovieList(ctx context.Context, creds Credentials, ids []int) ([]MovieComposite, error) {
	q := url.Values{}
	for _, id := range ids {
		q.Add("movie_ids", strconv.Itoa(id))
	}
	var env resultsEnvelope[MovieComposite]
	if _, err := c.GetJSON(ctx, creds, "/api/movies/list", q, &env); err != nil {
		return nil, err
	}
	return env.Results, nil
}

// Movie fetches a single movie's full composite record.
func (c *Client) Movie(ctx context.Context, creds Credentials, movieID int) (MovieComposite, error) {
	var m MovieComposite
	if _, err := c.GetJSON(ctx, creds, "/api/movies/"+strconv.Itoa(movieID), nil, &m); err != nil {
		return MovieComposite{}, err
	}
	return m, nil
}

// SimilarByGenre fetches the catalog's genre-based recommendations for a
// movie.
func (c *Client) SimilarByGenre(ctx context.Context, creds Credentials, movieID int) ([]MovieComposite, error) {
	var env resultsEnvelope[MovieComposite]
	if _, err := c.GetJSON(ctx, creds, "/api/movies/"+strconv.Itoa(movieID)+"/same_genres", nil, &env); err != nil {
		return nil, err
	}
	return env.Results, nil
}

// SimilarByRuntime fetches the catalog's runtime-based recommendations for a
// movie.
func (c *Client) SimilarByRuntime(ctx context.Context, creds Credentials, movieID int) ([]MovieComposite, error) {
	var env resultsEnvelope[MovieComposite]
	if _, err := c.GetJSON(ctx, creds, "/api/movies/"+strconv.Itoa(movieID)+"/similar_runtime", nil, &env); err != nil {
		return nil, err
	}
	return env.Results, nil
}

// User fetches a single user record. The user service has no batch endpoint;
// multi-user resolution fans out over this call.
func (c *Client) User(ctx context.Context, creds Credentials, userID int) (UserRef, error) {
	var u UserRef
	if _, err := c.GetJSON(ctx, creds, "/api/users/retrieve/"+strconv.Itoa(userID), nil, &u); err != nil {
		return UserRef{}, err
	}
	return u, nil
}

// Users fetches every registered user.
func (c *Client) Users(ctx context.Context, creds Credentials) ([]UserRef, error) {
	var env resultsEnvelope[UserRef]
	if _, err := c.GetJSON(ctx, creds, "/api/users/retrieve", nil, &env); err != nil {
		return nil, err
	}
	return env.Results, nil
}

// Friends fetches the authenticated user's friend list.
func (c *Client) Friends(ctx context.Context, creds Credentials) ([]UserRef, error) {
	var env resultsEnvelope[UserRef]
	if _, err := c.GetJSON(ctx, creds, "/api/users/friends", nil, &env); err != nil {
		return nil, err
	}
	return env.Results, nil
}

// WatchedByUsers fetches watched-movie activity for the given user ids,
// repeated as user_id query parameters. An empty id set returns the whole
// activity stream, so callers should short-circuit before reaching here.
func (c *Client) WatchedByUsers(ctx context.Context, creds Credentials, userIDs []int) ([]ActivityRecord, error) {
	q := url.Values{}
	for _, id := range userIDs {
		q.Add("user_id", strconv.Itoa(id))
	}
	var env resultsEnvelope[ActivityRecord]
	if _, err := c.GetJSON(ctx, creds, "/api/activity/watched", q, &env); err != nil {
		return nil, err
	}
	return env.Results, nil
}

// RatingsForMovie fetches all ratings submitted for one movie.
func (c *Client) RatingsForMovie(ctx context.Context, creds Credentials, movieID int) ([]RatingRecord, error) {
	var env resultsEnvelope[RatingRecord]
	if _, err := c.GetJSON(ctx, creds, "/api/preference/rating/"+strconv.Itoa(movieID), nil, &env); err != nil {
		return nil, err
	}
	return env.Results, nil
}

// RatingsByUser fetches the ratings one user has submitted.
func (c *Client) RatingsByUser(ctx context.Context, creds Credentials, userID int) ([]UserRating, error) {
	var env resultsEnvelope[UserRating]
	if _, err := c.GetJSON(ctx, creds, "/api/preference/rating/friends/"+strconv.Itoa(userID), nil, &env); err != nil {
		return nil, err
	}
	return env.Results, nil
}

// FavoriteMovies fetches the authenticated user's favorite movies.
func (c *Client) FavoriteMovies(ctx context.Context, creds Credentials) ([]MovieComposite, error) {
	var env resultsEnvelope[MovieComposite]
	if _, err := c.GetJSON(ctx, creds, "/api/preference/favorite", nil, &env); err != nil {
		return nil, err
	}
	return env.Results, nil
}

// ── typed mutations ───────────────────────────────────────────────────────────

// SetFavorite adds a movie to the caller's favorites.
func (c *Client) SetFavorite(ctx context.Context, creds Credentials, movieID int) error {
	return c.Mutate(ctx, creds, http.MethodPost, "/api/preference/favorite/"+strconv.Itoa(movieID), nil)
}

// UnsetFavorite removes a movie from the caller's favorites.
func (c *Client) UnsetFavorite(ctx context.Context, creds Credentials, movieID int) error {
	return c.Mutate(ctx, creds, http.MethodDelete, "/api/preference/favorite/"+strconv.Itoa(movieID), nil)
}

// MarkWatched records the movie as watched by the caller. The activity
// service offers no unwatch operation.
func (c *Client) MarkWatched(ctx context.Context, creds Credentials, movieID int) error {
	return c.Mutate(ctx, creds, http.MethodPost, "/api/activity/watched/"+strconv.Itoa(movieID), nil)
}

// AddFriend creates a friend edge to the named user.
func (c *Client) AddFriend(ctx context.Context, creds Credentials, username string) error {
	return c.Mutate(ctx, creds, http.MethodPost, "/api/users/friends/"+url.PathEscape(username), nil)
}

// RemoveFriend deletes the friend edge to the named user.
func (c *Client) RemoveFriend(ctx context.Context, creds Credentials, username string) error {
	return c.Mutate(ctx, creds, http.MethodDelete, "/api/users/friends/"+url.PathEscape(username), nil)
}

// SubmitRating records a 1..10 rating for a movie.
func (c *Client) SubmitRating(ctx context.Context, creds Credentials, movieID, rating int) error {
	q := url.Values{"rating": {strconv.Itoa(rating)}}
	return c.Mutate(ctx, creds, http.MethodPost, "/api/preference/rating/"+strconv.Itoa(movieID), q)
}

// ReactToReview records agreement or disagreement with a rating review.
func (c *Client) ReactToReview(ctx context.Context, creds Credentials, ratingID int, agreed bool) error {
	q := url.Values{"agreed": {strconv.FormatBool(agreed)}}
	return c.Mutate(ctx, creds, http.MethodPost, "/api/rating_review/"+strconv.Itoa(ratingID), q)
}
