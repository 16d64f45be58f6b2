package handler_test

import (
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Session endpoints", func() {
	var gw *gateway

	BeforeEach(func() {
		gw = newGateway()
	})

	AfterEach(func() {
		gw.close()
	})

	It("registers a session from the browser's cookies", func() {
		gw.register()
		Expect(gw.sessionID).NotTo(BeEmpty())
		Expect(gw.registry.Len()).To(Equal(1))
	})

	It("rejects registration without cookies", func() {
		rec := gw.do(http.MethodPost, "/session", `{"user_id": 1}`, nil)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("rejects registration without a user id", func() {
		rec := gw.do(http.MethodPost, "/session", `{}`, map[string]string{
			"Cookie": "csrf_access_token=tok",
		})
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("rejects composite requests without a session", func() {
		rec := gw.doGet("/view/feed")
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("rejects requests with an unknown session id", func() {
		gw.sessionID = "6f9619ff-8b86-d011-b42d-00cf4fc964ff"
		rec := gw.doGet("/view/feed")
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("tears the session down on unregister", func() {
		gw.register()
		rec := gw.do(http.MethodDelete, "/session", "", nil)
		Expect(rec.Code).To(Equal(http.StatusNoContent))
		Expect(gw.registry.Len()).To(Equal(0))

		rec = gw.doGet("/view/feed")
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})
})

var _ = Describe("View endpoints", func() {
	var gw *gateway

	BeforeEach(func() {
		gw = newGateway()
		gw.fake.addMovie(5, "Heat")
		gw.fake.addMovie(7, "Alien")
		gw.fake.mu.Lock()
		gw.fake.users[1] = "me"
		gw.fake.users[2] = "bob"
		gw.fake.mu.Unlock()
		gw.register()
	})

	AfterEach(func() {
		gw.close()
	})

	Describe("feed", func() {
		It("returns the friends' activity joined with movies and names", func() {
			gw.fake.mu.Lock()
			gw.fake.friends[2] = "bob"
			gw.fake.watched = append(gw.fake.watched,
				map[string]any{"movie_id": 5, "user_id": 2, "watched_at": "2026-08-29"},
				map[string]any{"movie_id": 999, "user_id": 2, "watched_at": "2026-08-30"},
			)
			gw.fake.mu.Unlock()

			rec := gw.doGet("/view/feed")
			Expect(rec.Code).To(Equal(http.StatusOK))

			entries := decodeBody(rec)["entries"].([]any)
			// The unresolvable movie 999 is dropped.
			Expect(entries).To(HaveLen(1))
			entry := entries[0].(map[string]any)
			Expect(entry["username"]).To(Equal("bob"))
			Expect(entry["movie"].(map[string]any)["movie_name"]).To(Equal("Heat"))
		})

		It("returns an empty feed when the caller has no friends", func() {
			rec := gw.doGet("/view/feed")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(decodeBody(rec)["entries"]).To(BeEmpty())
		})
	})

	Describe("movie detail", func() {
		It("returns the composite with joined ratings", func() {
			gw.fake.mu.Lock()
			gw.fake.ratings[5] = []map[string]any{
				{"user_id": 2, "rating": 9, "rating_id": 31},
				{"user_id": 404, "rating": 2, "rating_id": 32},
			}
			gw.fake.mu.Unlock()

			rec := gw.doGet("/view/movies/5")
			Expect(rec.Code).To(Equal(http.StatusOK))

			body := decodeBody(rec)
			Expect(body["movie"].(map[string]any)["movie_name"]).To(Equal("Heat"))

			ratings := body["ratings"].([]any)
			// One row per rating, unknown reviewers included.
			Expect(ratings).To(HaveLen(2))
			Expect(ratings[0].(map[string]any)["username"]).To(Equal("bob"))
			Expect(ratings[1].(map[string]any)["username"]).To(Equal("Unknown"))
			Expect(body["favorite_state"]).To(Equal("unset"))
		})

		It("includes both recommendation rails", func() {
			gw.fake.mu.Lock()
			gw.fake.similarGenres[5] = []int{7}
			gw.fake.mu.Unlock()

			rec := gw.doGet("/view/movies/5")
			Expect(rec.Code).To(Equal(http.StatusOK))

			body := decodeBody(rec)
			byGenre := body["similar_by_genre"].([]any)
			Expect(byGenre).To(HaveLen(1))
			Expect(byGenre[0].(map[string]any)["movie_name"]).To(Equal("Alien"))
			Expect(body["similar_by_runtime"]).To(BeEmpty())
		})

		It("degrades the rails to empty when recommendations fail", func() {
			gw.fake.mu.Lock()
			gw.fake.similarGenres[5] = []int{7}
			gw.fake.failSimilar = true
			gw.fake.mu.Unlock()

			rec := gw.doGet("/view/movies/5")
			Expect(rec.Code).To(Equal(http.StatusOK))

			body := decodeBody(rec)
			Expect(body["similar_by_genre"]).To(BeEmpty())
			Expect(body["similar_by_runtime"]).To(BeEmpty())
			Expect(body["movie"].(map[string]any)["movie_name"]).To(Equal("Heat"))
		})

		It("404s for a movie the catalog does not know", func() {
			rec := gw.doGet("/view/movies/999")
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("rejects a non-numeric movie id", func() {
			rec := gw.doGet("/view/movies/abc")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("user profile", func() {
		It("returns watched and rated movies with misses dropped", func() {
			gw.fake.mu.Lock()
			gw.fake.watched = append(gw.fake.watched,
				map[string]any{"movie_id": 7, "user_id": 2, "watched_at": "2026-08-28"},
				map[string]any{"movie_id": 999, "user_id": 2, "watched_at": "2026-08-29"},
			)
			gw.fake.mu.Unlock()

			rec := gw.doGet("/view/users/2")
			Expect(rec.Code).To(Equal(http.StatusOK))

			body := decodeBody(rec)
			Expect(body["user"].(map[string]any)["username"]).To(Equal("bob"))
			watched := body["watched_movies"].([]any)
			Expect(watched).To(HaveLen(1))
			Expect(watched[0].(map[string]any)["movie_id"]).To(BeNumerically("==", 7))
		})

		It("404s for an unknown user", func() {
			rec := gw.doGet("/view/users/999")
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("friends view", func() {
		It("lists every other user with their friend-edge state", func() {
			gw.fake.mu.Lock()
			gw.fake.users[3] = "carol"
			gw.fake.mu.Unlock()

			rec := gw.doGet("/view/friends")
			Expect(rec.Code).To(Equal(http.StatusOK))

			users := decodeBody(rec)["users"].([]any)
			Expect(users).To(HaveLen(2))
			for _, raw := range users {
				row := raw.(map[string]any)
				// The caller is excluded from their own friends screen.
				Expect(row["username"]).NotTo(Equal("me"))
				Expect(row["friend_state"]).To(Equal("unset"))
			}
		})
	})
})

var _ = Describe("Toggle endpoints", func() {
	var gw *gateway

	BeforeEach(func() {
		gw = newGateway()
		gw.fake.addMovie(5, "Heat")
		gw.fake.mu.Lock()
		gw.fake.users[1] = "me"
		gw.fake.users[2] = "bob"
		gw.fake.mu.Unlock()
		gw.register()
	})

	AfterEach(func() {
		gw.close()
	})

	It("answers a favorite toggle optimistically and converges", func() {
		rec := gw.doPost("/toggle/favorite/5", "")
		Expect(rec.Code).To(Equal(http.StatusAccepted))
		Expect(decodeBody(rec)["state"]).To(Equal("pending_set"))

		Eventually(func() any {
			return decodeBody(gw.doGet("/view/movies/5"))["favorite_state"]
		}).Should(Equal("set"))

		gw.fake.mu.Lock()
		defer gw.fake.mu.Unlock()
		Expect(gw.fake.favorites).To(HaveKey(5))
	})

	It("marks a movie watched through the set-only toggle", func() {
		rec := gw.doPost("/toggle/watched/5", "")
		Expect(rec.Code).To(Equal(http.StatusAccepted))
		Expect(decodeBody(rec)["state"]).To(Equal("pending_set"))

		Eventually(func() any {
			return decodeBody(gw.doGet("/view/movies/5"))["watched_state"]
		}).Should(Equal("set"))
	})

	It("toggles a friend edge by user id with the username on the wire", func() {
		rec := gw.doPost("/toggle/friend/2", `{"username": "bob"}`)
		Expect(rec.Code).To(Equal(http.StatusAccepted))

		Eventually(func() bool {
			gw.fake.mu.Lock()
			defer gw.fake.mu.Unlock()
			_, ok := gw.fake.friends[2]
			return ok
		}).Should(BeTrue())
	})

	It("resolves the username when the body omits it", func() {
		rec := gw.doPost("/toggle/friend/2", "")
		Expect(rec.Code).To(Equal(http.StatusAccepted))
	})

	It("404s a friend toggle for an unresolvable user", func() {
		rec := gw.doPost("/toggle/friend/999", "")
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("rejects a non-numeric target id", func() {
		rec := gw.doPost("/toggle/favorite/abc", "")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})
})

var _ = Describe("Rating endpoints", func() {
	var gw *gateway

	BeforeEach(func() {
		gw = newGateway()
		gw.fake.addMovie(5, "Heat")
		gw.fake.mu.Lock()
		gw.fake.users[1] = "me"
		gw.fake.mu.Unlock()
		gw.register()
	})

	AfterEach(func() {
		gw.close()
	})

	It("submits a rating and returns the refreshed joined list", func() {
		rec := gw.doPost("/ratings/5?rating=8", "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		ratings := decodeBody(rec)["ratings"].([]any)
		Expect(ratings).To(HaveLen(1))
		row := ratings[0].(map[string]any)
		Expect(row["rating"]).To(BeNumerically("==", 8))
		Expect(row["username"]).To(Equal("me"))
	})

	It("rejects an out-of-range rating", func() {
		Expect(gw.doPost("/ratings/5?rating=11", "").Code).To(Equal(http.StatusBadRequest))
		Expect(gw.doPost("/ratings/5?rating=0", "").Code).To(Equal(http.StatusBadRequest))
	})

	It("passes review reactions through", func() {
		rec := gw.doPost("/reviews/31/reaction?agreed=true", "")
		Expect(rec.Code).To(Equal(http.StatusNoContent))

		gw.fake.mu.Lock()
		defer gw.fake.mu.Unlock()
		Expect(gw.fake.reactions).To(ContainElement("/api/rating_review/31?agreed=true"))
	})

	It("rejects a reaction without a valid agreed flag", func() {
		rec := gw.doPost("/reviews/31/reaction?agreed=maybe", "")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})
})

var _ = Describe("Poster passthrough", func() {
	var gw *gateway

	BeforeEach(func() {
		gw = newGateway()
		gw.register()
	})

	AfterEach(func() {
		gw.close()
	})

	It("forwards poster bytes with a sniffed content type", func() {
		rec := gw.doGet("/posters/5.png")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(HavePrefix("image/png"))
		Expect(rec.Body.Bytes()).To(Equal(pngBytes))
	})
})

var _ = Describe("Probes", func() {
	var gw *gateway

	BeforeEach(func() {
		gw = newGateway()
	})

	AfterEach(func() {
		gw.close()
	})

	It("reports liveness", func() {
		rec := gw.doGet("/health")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(strings.TrimSpace(rec.Body.String())).To(ContainSubstring("ok"))
	})

	It("reports readiness before any upstream check has run", func() {
		rec := gw.doGet("/ready")
		Expect(rec.Code).To(Equal(http.StatusOK))
	})
})
