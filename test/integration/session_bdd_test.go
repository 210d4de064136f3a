//go:build integration

package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/focusfade/focusfade/internal/domain"
	"github.com/focusfade/focusfade/internal/infra"
	"github.com/focusfade/focusfade/internal/usecase"
)

var _ = Describe("Focus Session", func() {
	var (
		tmpDir   string
		logStore *infra.FileLogStore
		archive  *infra.SQLCipherArchive
		tracker  *usecase.Tracker
		logger   *zap.Logger
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		logger = zap.NewNop()

		logStore = infra.NewFileLogStore(filepath.Join(tmpDir, "logs.json"))

		keyProvider := infra.NewFileKeyProvider(tmpDir)
		key, err := infra.EnsureKey(keyProvider)
		Expect(err).NotTo(HaveOccurred())

		archive, err = infra.NewSQLCipherArchive(tmpDir, key)
		Expect(err).NotTo(HaveOccurred())

		tracker = usecase.NewTracker(logStore, archive, logger)
	})

	AfterEach(func() {
		Expect(archive.Close()).To(Succeed())
	})

	Describe("a full session lifecycle", func() {
		It("aggregates focus time, persists the log and archives the session", func() {
			start := time.Now()

			id, err := tracker.Start("coding", start)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).NotTo(BeEmpty())

			_, err = tracker.Observe("Cursor", start)
			Expect(err).NotTo(HaveOccurred())
			_, err = tracker.Observe("YouTube", start.Add(20*time.Second))
			Expect(err).NotTo(HaveOccurred())

			tracker.ApplyVerdicts(id, []domain.RelevanceVerdict{
				{AppName: "Cursor", IsRelevant: true, Reason: "IDE"},
				{AppName: "YouTube", IsRelevant: false, Reason: "entertainment"},
			})

			archived, err := tracker.Stop(start.Add(30 * time.Second))
			Expect(err).NotTo(HaveOccurred())

			// Per-app totals cover the whole session
			Expect(archived.AppStats["Cursor"]).To(Equal(int64(20000)))
			Expect(archived.AppStats["YouTube"]).To(Equal(int64(10000)))

			// Only the not-relevant app scored
			Expect(archived.DistractionScore).To(Equal(int64(10000)))

			// The flat log file holds one record per closed bucket
			records, err := logStore.All()
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
			Expect(records[0].App).To(Equal("Cursor"))
			Expect(records[1].App).To(Equal("YouTube"))

			// The archive lists the completed session
			sessions, err := archive.Sessions()
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions).To(HaveLen(1))
			Expect(sessions[0].ID).To(Equal(id))
			Expect(sessions[0].FocusTask).To(Equal("coding"))
		})
	})

	Describe("restarting sessions", func() {
		It("keeps archived history across sessions and isolates live state", func() {
			start := time.Now()

			id1, err := tracker.Start("coding", start)
			Expect(err).NotTo(HaveOccurred())
			_, err = tracker.Observe("Cursor", start)
			Expect(err).NotTo(HaveOccurred())
			_, err = tracker.Stop(start.Add(10 * time.Second))
			Expect(err).NotTo(HaveOccurred())

			id2, err := tracker.Start("writing", start.Add(time.Minute))
			Expect(err).NotTo(HaveOccurred())
			Expect(id2).NotTo(Equal(id1))

			snap := tracker.Snapshot()
			Expect(snap.AppStats).To(BeEmpty())
			Expect(snap.FocusTask).To(Equal("writing"))

			_, err = tracker.Stop(start.Add(2 * time.Minute))
			Expect(err).NotTo(HaveOccurred())

			sessions, err := archive.Sessions()
			Expect(err).NotTo(HaveOccurred())
			Expect(sessions).To(HaveLen(2))
			// Newest first
			Expect(sessions[0].ID).To(Equal(id2))
			Expect(sessions[1].ID).To(Equal(id1))
		})
	})

	Describe("classification against a model server", func() {
		It("turns the model's JSON answer into verdicts for every app", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Path).To(Equal("/api/generate"))
				w.Write([]byte(`{"response":"[{\"app\":\"Cursor\",\"isRelevant\":true,\"reason\":\"IDE\"}]","done":true}`))
			}))
			defer server.Close()

			model := infra.NewOllamaClient(server.URL, "llama3")
			classifier := usecase.NewRelevanceClassifier(model, logger)

			verdicts, err := classifier.Classify(context.Background(), "coding", []string{"Cursor", "Slack"})
			Expect(err).NotTo(HaveOccurred())
			Expect(verdicts).To(HaveLen(2))
			Expect(verdicts[0].IsRelevant).To(BeTrue())
			Expect(verdicts[1].Reason).To(Equal(domain.ReasonNotAnalyzed))
		})
	})
})
