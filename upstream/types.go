package upstream

// Genre is a catalog genre as returned inside a movie record.
type Genre struct {
	ID   int    `json:"genre_id"`
	Name string `json:"genre_name"`
}

// MovieRef is the minimal movie shape the catalog service returns from the
// batched list endpoint. Immutable once fetched.
type MovieRef struct {
	MovieID    int    `json:"movie_id"`
	Title      string `json:"movie_name"`
	PosterPath string `json:"poster_path"`
}

// MovieComposite is a MovieRef plus the context-specific detail fields the
// catalog attaches when they are known. Rebuilt on every refetch; composites
// are never persisted across a page's render cycle.
type MovieComposite struct {
	MovieRef
	Plot        string  `json:"plot,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	Genres      []Genre `json:"genres,omitempty"`
	MetaScore   int     `json:"meta_score,omitempty"`
	Runtime     int     `json:"runtime,omitempty"`
	ReleaseDate string  `json:"release_date,omitempty"`
}

// UserRef identifies a user by id and display name.
type UserRef struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
}

// ActivityRecord is a raw watched-movie entry. It carries only foreign keys
// and is never rendered directly; callers join it against movie and user
// lookups first.
type ActivityRecord struct {
	MovieID   int    `json:"movie_id"`
	UserID    int    `json:"user_id"`
	WatchedAt string `json:"watched_at"`
}

// RatingRecord is one user's rating of one movie, as returned by the
// preference service's per-movie listing.
type RatingRecord struct {
	UserID   int `json:"user_id"`
	Rating   int `json:"rating"`
	RatingID int `json:"rating_id"`
}

// UserRating is one rating submitted by a specific user, as returned by the
// preference service's per-user listing. Carries the movie foreign key.
type UserRating struct {
	MovieID int `json:"movie_id"`
	Rating  int `json:"rating"`
}
