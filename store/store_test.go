package store_test

import (
	"sync"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/WIPACrepo/lta/cmn"
	"github.com/WIPACrepo/lta/store"
)

var _ = Describe("TransferRequests", func() {
	var s *store.Store

	BeforeEach(func() {
		var err error
		s, err = store.Open(":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(s.Close()).To(Succeed())
	})

	It("assigns a uuid and unclaimed status on create", func() {
		uuid, err := s.CreateTransferRequest(cmn.TransferRequest{
			Source: "WIPAC",
			Dest:   []string{"DESY"},
			Path:   "/data/exp/foo",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(uuid).NotTo(BeEmpty())

		got, err := s.GetTransferRequest(uuid)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Status).To(Equal(cmn.TransferRequestUnclaimed))
		Expect(got.Claimed).To(BeFalse())
	})

	It("rejects a create missing required fields", func() {
		_, err := s.CreateTransferRequest(cmn.TransferRequest{Source: "WIPAC"})
		Expect(err).To(HaveOccurred())
	})

	It("pops exactly one unclaimed request per source and marks it processing", func() {
		_, err := s.CreateTransferRequest(cmn.TransferRequest{Source: "WIPAC", Dest: []string{"DESY"}, Path: "/a"})
		Expect(err).NotTo(HaveOccurred())
		_, err = s.CreateTransferRequest(cmn.TransferRequest{Source: "WIPAC", Dest: []string{"DESY"}, Path: "/b"})
		Expect(err).NotTo(HaveOccurred())
		_, err = s.CreateTransferRequest(cmn.TransferRequest{Source: "DESY", Dest: []string{"WIPAC"}, Path: "/c"})
		Expect(err).NotTo(HaveOccurred())

		first, err := s.PopTransferRequest("WIPAC", "picker-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Status).To(Equal(cmn.TransferRequestProcessing))
		Expect(first.Claimed).To(BeTrue())
		Expect(first.Claimant).To(Equal("picker-1"))
		Expect(first.Path).To(Equal("/a"))

		second, err := s.PopTransferRequest("WIPAC", "picker-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(second.Path).To(Equal("/b"))

		third, err := s.PopTransferRequest("WIPAC", "picker-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(third).To(BeNil())
	})

	It("never claims the same request twice under concurrent pops", func() {
		for i := 0; i < 20; i++ {
			_, err := s.CreateTransferRequest(cmn.TransferRequest{Source: "WIPAC", Dest: []string{"DESY"}, Path: "/x"})
			Expect(err).NotTo(HaveOccurred())
		}

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			claimed = map[string]bool{}
			dupes   int
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				r, err := s.PopTransferRequest("WIPAC", "worker")
				Expect(err).NotTo(HaveOccurred())
				if r == nil {
					return
				}
				mu.Lock()
				if claimed[r.UUID] {
					dupes++
				}
				claimed[r.UUID] = true
				mu.Unlock()
			}(i)
		}
		wg.Wait()
		Expect(dupes).To(Equal(0))
		Expect(claimed).To(HaveLen(20))
	})

	It("rejects patch attempts that change uuid", func() {
		uuid, _ := s.CreateTransferRequest(cmn.TransferRequest{Source: "WIPAC", Dest: []string{"DESY"}, Path: "/a"})
		err := s.PatchTransferRequest(uuid, map[string]interface{}{"uuid": "not-the-same"})
		Expect(err).To(MatchError(cmn.ErrIdentityField))
	})
})

var _ = Describe("Bundles", func() {
	var s *store.Store

	BeforeEach(func() {
		var err error
		s, err = store.Open(":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(s.Close()).To(Succeed())
	})

	It("claims the bundle with the earliest work priority timestamp first", func() {
		_, err := s.CreateBundle(cmn.Bundle{
			Source: "WIPAC", Dest: "DESY", Status: cmn.BundleCreated,
			WorkPriorityTimestamp: "2026-07-30T12:00:00Z",
		})
		Expect(err).NotTo(HaveOccurred())
		earlyUUID, err := s.CreateBundle(cmn.Bundle{
			Source: "WIPAC", Dest: "DESY", Status: cmn.BundleCreated,
			WorkPriorityTimestamp: "2026-07-30T08:00:00Z",
		})
		Expect(err).NotTo(HaveOccurred())

		claimed, err := s.PopBundle("WIPAC", "DESY", cmn.BundleCreated, "bundler-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(claimed.UUID).To(Equal(earlyUUID))
		Expect(claimed.Claimed).To(BeTrue())
		Expect(claimed.Claimant).To(Equal("bundler-1"))
	})

	It("sorts unset priority timestamps ahead of set ones", func() {
		setUUID, err := s.CreateBundle(cmn.Bundle{
			Source: "WIPAC", Dest: "DESY", Status: cmn.BundleCreated,
			WorkPriorityTimestamp: "2026-07-30T01:00:00Z",
		})
		Expect(err).NotTo(HaveOccurred())
		unsetUUID, err := s.CreateBundle(cmn.Bundle{
			Source: "WIPAC", Dest: "DESY", Status: cmn.BundleCreated,
		})
		Expect(err).NotTo(HaveOccurred())

		claimed, err := s.PopBundle("WIPAC", "DESY", cmn.BundleCreated, "bundler-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(claimed.UUID).To(Equal(unsetUUID))

		claimed, err = s.PopBundle("WIPAC", "DESY", cmn.BundleCreated, "bundler-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(claimed.UUID).To(Equal(setUUID))
	})

	It("never double-claims a bundle across concurrent poppers", func() {
		for i := 0; i < 30; i++ {
			_, err := s.CreateBundle(cmn.Bundle{Source: "WIPAC", Dest: "DESY", Status: cmn.BundleCreated})
			Expect(err).NotTo(HaveOccurred())
		}

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			claimed = map[string]bool{}
			dupes   int
		)
		for i := 0; i < 30; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				b, err := s.PopBundle("WIPAC", "DESY", cmn.BundleCreated, "w")
				Expect(err).NotTo(HaveOccurred())
				if b == nil {
					return
				}
				mu.Lock()
				if claimed[b.UUID] {
					dupes++
				}
				claimed[b.UUID] = true
				mu.Unlock()
			}()
		}
		wg.Wait()
		Expect(dupes).To(Equal(0))
		Expect(claimed).To(HaveLen(30))
	})

	It("rejects a pop missing both source and dest", func() {
		_, err := s.PopBundle("", "", cmn.BundleCreated, "w")
		Expect(err).To(HaveOccurred())
	})

	It("filters list results by location prefix, status, and request", func() {
		_, err := s.CreateBundle(cmn.Bundle{Request: "req-1", Source: "WIPAC:/data/exp/a", Status: cmn.BundleCompleted})
		Expect(err).NotTo(HaveOccurred())
		_, err = s.CreateBundle(cmn.Bundle{Request: "req-2", Source: "DESY:/data/exp/b", Status: cmn.BundleCompleted})
		Expect(err).NotTo(HaveOccurred())

		got, err := s.ListBundles(store.BundleFilter{Location: "WIPAC"})
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(HaveLen(1))
		Expect(got[0].Request).To(Equal("req-1"))

		got, err = s.ListBundles(store.BundleFilter{Request: "req-2"})
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(HaveLen(1))
		Expect(got[0].Request).To(Equal("req-2"))

		got, err = s.ListBundles(store.BundleFilter{Status: cmn.BundleCompleted})
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(HaveLen(2))

		got, err = s.ListBundles(store.BundleFilter{Status: cmn.BundleCreated})
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeEmpty())
	})

	It("bulk-creates and bulk-deletes, reporting only the uuids actually removed", func() {
		uuids, err := s.BulkCreateBundles([]cmn.Bundle{
			{Source: "WIPAC", Dest: "DESY", Status: cmn.BundleSpecified},
			{Source: "WIPAC", Dest: "DESY", Status: cmn.BundleSpecified},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(uuids).To(HaveLen(2))

		removed, err := s.BulkDeleteBundles(append(uuids, "does-not-exist"))
		Expect(err).NotTo(HaveOccurred())
		Expect(removed).To(ConsistOf(uuids))
	})
})

var _ = Describe("Metadata", func() {
	var s *store.Store

	BeforeEach(func() {
		var err error
		s, err = store.Open(":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(s.Close()).To(Succeed())
	})

	It("bulk-creates one row per file and reports the exact count on bulk delete", func() {
		bundleUUID := "bundle-1"
		uuids, err := s.BulkCreateMetadata(bundleUUID, []string{"fc-1", "fc-2", "fc-3"})
		Expect(err).NotTo(HaveOccurred())
		Expect(uuids).To(HaveLen(3))

		page, err := s.ListMetadata(bundleUUID, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(page).To(HaveLen(3))

		count, err := s.BulkDeleteMetadata(uuids)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(len(uuids)))

		remaining, err := s.ListMetadata(bundleUUID, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(remaining).To(BeEmpty())
	})

	It("counts only the uuids that actually existed, for the verifier's BAD MOJO assertion", func() {
		uuids, err := s.BulkCreateMetadata("bundle-1", []string{"fc-1", "fc-2"})
		Expect(err).NotTo(HaveOccurred())

		count, err := s.BulkDeleteMetadata(append(uuids, "ghost-uuid"))
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(2))
		Expect(count).NotTo(Equal(3))
	})
})
