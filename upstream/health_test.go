package upstream_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/movieverse/movieverse-gateway/upstream"
)

var _ = Describe("HealthChecker", func() {
	var (
		mu     sync.Mutex
		status int
		server *httptest.Server
		hc     *upstream.HealthChecker
		cancel context.CancelFunc
	)

	setStatus := func(s int) {
		mu.Lock()
		status = s
		mu.Unlock()
	}

	BeforeEach(func() {
		status = http.StatusOK
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			s := status
			mu.Unlock()
			w.WriteHeader(s)
		}))

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		hc = upstream.NewHealthChecker(upstream.New(server.URL, time.Second), 20*time.Millisecond)
		hc.Start(ctx)
	})

	AfterEach(func() {
		cancel()
		hc.Stop()
		server.Close()
	})

	It("reports all services available while checks succeed", func() {
		Eventually(hc.Statuses).ShouldNot(BeEmpty())
		Expect(hc.AllAvailable()).To(BeTrue())
		Expect(hc.IsAvailable("catalog")).To(BeTrue())
	})

	It("counts an authentication rejection as healthy", func() {
		setStatus(http.StatusUnauthorized)

		Consistently(hc.AllAvailable, 200*time.Millisecond).Should(BeTrue())
	})

	It("marks services unavailable after consecutive failures and recovers", func() {
		setStatus(http.StatusInternalServerError)
		Eventually(hc.AllAvailable).Should(BeFalse())
		Expect(hc.IsAvailable("catalog")).To(BeFalse())

		setStatus(http.StatusOK)
		Eventually(hc.AllAvailable).Should(BeTrue())
	})

	It("assumes unknown services are available", func() {
		Expect(hc.IsAvailable("billing")).To(BeTrue())
	})
})
