package document_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/frahmantamala/policy-register/internal"
	"github.com/frahmantamala/policy-register/internal/access"
	"github.com/frahmantamala/policy-register/internal/core/events"
	"github.com/frahmantamala/policy-register/internal/document"
	"github.com/frahmantamala/policy-register/internal/taxonomy"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func upload(name, body string) document.Upload {
	return document.Upload{
		FileName: name,
		Size:     int64(len(body)),
		Reader:   strings.NewReader(body),
	}
}

func ptr[T any](v T) *T {
	return &v
}

var _ = Describe("Document Service", func() {
	var (
		f   *fixture
		ctx context.Context
	)

	BeforeEach(func() {
		f = newFixture()
		ctx = f.admin()
	})

	createPolicy := func(title, date string) *document.Document {
		doc, err := f.policies.Create(ctx, document.CreateDocumentDTO{
			Title:        title,
			CategoryID:   f.opsID,
			PolicyTypeID: f.policyTypeID,
			DateIssued:   date,
		}, upload("safety.pdf", "%PDF-1.4 safety"))
		Expect(err).NotTo(HaveOccurred())
		return doc
	}

	Describe("Create", func() {
		It("should number, store and record the first version", func() {
			doc := createPolicy("Safety Rules", "2025-01-01")

			Expect(doc.DocumentNumber).To(Equal("OPS-P-001-2025-v1"))
			Expect(doc.PolicyNumber).To(Equal(doc.DocumentNumber))
			Expect(doc.DocumentType).To(Equal(document.TypePolicy))
			Expect(doc.Version).To(Equal(1))
			Expect(doc.Status).To(Equal(access.StatusActive))
			Expect(doc.IsVisibleToUsers).To(BeTrue())
			Expect(doc.VisibleToGroups).To(BeEmpty())
			Expect(doc.CreatedBy).To(Equal("admin"))

			Expect(doc.VersionHistory).To(HaveLen(1))
			first := doc.VersionHistory[0]
			Expect(first.VersionNumber).To(Equal(1))
			Expect(first.ChangeSummary).To(Equal(document.DefaultInitialSummary))
			Expect(first.FileName).To(Equal("safety.pdf"))
			Expect(first.Size).To(Equal(int64(len("%PDF-1.4 safety"))))
			Expect(first.Checksum).To(HaveLen(64))

			Expect(doc.BlobKey).To(Equal("OPS_P_001_2025_v1_v1.pdf"))
			Expect(doc.FileURL).To(Equal("/uploads/OPS_P_001_2025_v1_v1.pdf"))
			exists, err := f.blobs.Exists(ctx, doc.BlobKey)
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeTrue())

			Expect(f.publisher.Types()).To(ConsistOf(events.DocumentCreated))
		})

		It("should allocate sequences per category and year", func() {
			Expect(createPolicy("One", "2025-01-01").DocumentNumber).To(Equal("OPS-P-001-2025-v1"))
			Expect(createPolicy("Two", "2025-06-30T12:00:00Z").DocumentNumber).To(Equal("OPS-P-002-2025-v1"))
			Expect(createPolicy("Three", "2024-12-31").DocumentNumber).To(Equal("OPS-P-001-2024-v1"))
		})

		It("should number by the year as written and store the instant in UTC", func() {
			doc := createPolicy("New Year", "2025-01-01T00:30:00+05:00")
			Expect(doc.DocumentNumber).To(Equal("OPS-P-001-2025-v1"))
			Expect(doc.DateIssued).To(BeTemporally("==", time.Date(2024, 12, 31, 19, 30, 0, 0, time.UTC)))
		})

		It("should fall back to the document type code without a policy type", func() {
			doc, err := f.documents.Create(ctx, document.CreateDocumentDTO{
				Title:        "Canteen hours",
				DocumentType: document.TypeMemo,
				CategoryID:   f.opsID,
				DateIssued:   "2025-03-04",
				Tags:         []string{"canteen", " canteen", "hours"},
			}, upload("hours notice.txt", "open 8-5"))
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.DocumentNumber).To(Equal("OPS-M-001-2025-v1"))
			Expect(doc.PolicyNumber).To(BeEmpty())
			Expect(doc.Tags).To(Equal([]string{"canteen", "hours"}))
			Expect(doc.BlobKey).To(Equal(doc.ID + "_v1_hours_notice.txt"))
		})

		It("should force the policy type on the policy collection", func() {
			doc, err := f.policies.Create(ctx, document.CreateDocumentDTO{
				Title:        "Forced",
				DocumentType: document.TypeMemo,
				CategoryID:   f.opsID,
				DateIssued:   "2025-01-01",
			}, upload("forced.docx", "x"))
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.DocumentType).To(Equal(document.TypePolicy))
			Expect(doc.DocumentNumber).To(Equal("OPS-P-001-2025-v1"))
		})

		It("should honour an explicit visibility flag", func() {
			doc, err := f.documents.Create(ctx, document.CreateDocumentDTO{
				Title:            "Draft",
				CategoryID:       f.opsID,
				DateIssued:       "2025-01-01",
				IsVisibleToUsers: ptr(false),
			}, upload("draft.pdf", "x"))
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.IsVisibleToUsers).To(BeFalse())
			Expect(doc.DocumentType).To(Equal(document.TypeDocument))
		})

		It("should reject extensions outside the whitelist", func() {
			_, err := f.policies.Create(ctx, document.CreateDocumentDTO{
				Title:      "Wrong",
				CategoryID: f.opsID,
				DateIssued: "2025-01-01",
			}, upload("notes.txt", "x"))
			Expect(codeOf(err)).To(Equal(internal.ErrCodeValidationFailed))
			Expect(fieldCodeOf(err)).To(Equal(string(internal.ErrCodeInvalidFileType)))
			Expect(f.publisher.Types()).To(BeEmpty())
		})

		It("should reject an unparsable date", func() {
			_, err := f.policies.Create(ctx, document.CreateDocumentDTO{
				Title:      "Wrong",
				CategoryID: f.opsID,
				DateIssued: "01/02/2025",
			}, upload("a.pdf", "x"))
			Expect(codeOf(err)).To(Equal(internal.ErrCodeValidationFailed))
			Expect(fieldCodeOf(err)).To(Equal(string(internal.ErrCodeInvalidDate)))
		})

		It("should reject a deleted category as not found", func() {
			Expect(f.categories.Delete(ctx, f.opsID)).To(Succeed())
			_, err := f.policies.Create(ctx, document.CreateDocumentDTO{
				Title:      "Orphan",
				CategoryID: f.opsID,
				DateIssued: "2025-01-01",
			}, upload("a.pdf", "x"))
			Expect(err).To(MatchError(internal.ErrCategoryNotFound))
		})

		It("should reject an inactive policy type as not found", func() {
			_, err := f.policyTypes.Update(ctx, f.policyTypeID, taxonomy.UpdateTermDTO{IsActive: ptr(false)})
			Expect(err).NotTo(HaveOccurred())
			_, err = f.policies.Create(ctx, document.CreateDocumentDTO{
				Title:        "Orphan",
				CategoryID:   f.opsID,
				PolicyTypeID: f.policyTypeID,
				DateIssued:   "2025-01-01",
			}, upload("a.pdf", "x"))
			Expect(err).To(MatchError(internal.ErrPolicyTypeAbsent))
		})

		It("should accept a manual policy number without advancing the counter", func() {
			doc, err := f.policies.Create(ctx, document.CreateDocumentDTO{
				Title:        "Legacy",
				CategoryID:   f.opsID,
				DateIssued:   "2025-01-01",
				PolicyNumber: "LEGACY-7",
			}, upload("legacy.pdf", "x"))
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.DocumentNumber).To(Equal("LEGACY-7"))

			Expect(createPolicy("Next", "2025-01-01").DocumentNumber).To(Equal("OPS-P-001-2025-v1"))

			_, err = f.policies.Create(ctx, document.CreateDocumentDTO{
				Title:        "Again",
				CategoryID:   f.opsID,
				DateIssued:   "2025-01-01",
				PolicyNumber: "LEGACY-7",
			}, upload("again.pdf", "x"))
			Expect(codeOf(err)).To(Equal(internal.ErrCodeDuplicateNumber))
		})

		It("should require a title", func() {
			_, err := f.documents.Create(ctx, document.CreateDocumentDTO{
				CategoryID: f.opsID,
				DateIssued: "2025-01-01",
			}, upload("a.pdf", "x"))
			Expect(codeOf(err)).To(Equal(internal.ErrCodeValidationFailed))
		})
	})

	Describe("Visibility", func() {
		var (
			visible *document.Document
			hidden  *document.Document
			member  context.Context
			outside context.Context
		)

		BeforeEach(func() {
			visible = createPolicy("Visible", "2025-01-01")
			hidden = createPolicy("Granted", "2025-01-02")
			_, err := f.policies.SetVisibility(ctx, hidden.ID, document.VisibilityDTO{
				IsVisibleToUsers: ptr(false),
				VisibleToGroups:  ptr([]string{financeGroupID}),
			})
			Expect(err).NotTo(HaveOccurred())

			member = f.as("u-1", "member", access.RoleUser, financeGroupID)
			outside = f.as("u-2", "outside", access.RoleUser)
		})

		ids := func(docs []*document.Document) []string {
			out := []string{}
			for _, d := range docs {
				out = append(out, d.ID)
			}
			return out
		}

		It("should show group members the granted document", func() {
			docs, err := f.policies.List(member, document.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(docs)).To(ConsistOf(visible.ID, hidden.ID))

			doc, err := f.policies.Get(member, hidden.ID, document.ReadOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.VisibleToGroups).To(Equal([]string{financeGroupID}))
		})

		It("should answer not found to users outside the group", func() {
			docs, err := f.policies.List(outside, document.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(docs)).To(ConsistOf(visible.ID))

			_, err = f.policies.Get(outside, hidden.ID, document.ReadOptions{})
			Expect(err).To(MatchError(internal.ErrDocumentNotFound))
		})

		It("should keep granted documents off the public surface", func() {
			docs, err := f.policies.List(context.Background(), document.ListQuery{ReadOptions: document.ReadOptions{Public: true}})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(docs)).To(ConsistOf(visible.ID))

			_, err = f.policies.Get(member, hidden.ID, document.ReadOptions{Public: true})
			Expect(err).To(MatchError(internal.ErrDocumentNotFound))
		})

		It("should revoke access when the grant is removed", func() {
			_, err := f.policies.SetVisibility(ctx, hidden.ID, document.VisibilityDTO{VisibleToGroups: ptr([]string{})})
			Expect(err).NotTo(HaveOccurred())

			_, err = f.policies.Get(member, hidden.ID, document.ReadOptions{})
			Expect(err).To(MatchError(internal.ErrDocumentNotFound))

			doc, err := f.policies.Get(ctx, hidden.ID, document.ReadOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.VisibleToGroups).To(BeEmpty())
		})

		It("should hide hidden-status records from managers unless asked", func() {
			_, err := f.policies.Update(ctx, hidden.ID, document.UpdateDocumentDTO{Status: ptr(access.StatusHidden)})
			Expect(err).NotTo(HaveOccurred())
			manager := f.as("m-1", "manager", access.RolePolicyManager)

			docs, err := f.policies.List(manager, document.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(docs)).To(ConsistOf(visible.ID))

			docs, err = f.policies.List(manager, document.ListQuery{ReadOptions: document.ReadOptions{IncludeHidden: true}})
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(docs)).To(ConsistOf(visible.ID, hidden.ID))
		})

		It("should reject an empty visibility change", func() {
			_, err := f.policies.SetVisibility(ctx, visible.ID, document.VisibilityDTO{})
			Expect(err).To(MatchError(internal.ErrEmptyUpdate))
		})
	})

	Describe("List filters", func() {
		BeforeEach(func() {
			createPolicy("Fire Safety", "2025-01-01")
			_, err := f.documents.Create(ctx, document.CreateDocumentDTO{
				Title:           "Cafeteria memo",
				DocumentType:    document.TypeMemo,
				CategoryID:      f.opsID,
				DateIssued:      "2025-01-01",
				OwnerDepartment: "Facilities",
				Tags:            []string{"Lunch"},
			}, upload("memo.txt", "x"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("should search case-insensitively across text fields", func() {
			docs, err := f.documents.List(ctx, document.ListQuery{Search: "SAFETY"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))

			docs, err = f.documents.List(ctx, document.ListQuery{Search: "facil"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))

			docs, err = f.documents.List(ctx, document.ListQuery{Search: "lunch"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))

			docs, err = f.documents.List(ctx, document.ListQuery{Search: "ops-"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(2))
		})

		It("should restrict the policy collection to policies", func() {
			docs, err := f.policies.List(ctx, document.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))

			docs, err = f.policies.List(ctx, document.ListQuery{DocumentType: document.TypeMemo})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(BeEmpty())

			docs, err = f.documents.List(ctx, document.ListQuery{DocumentType: document.TypeMemo})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
		})

		It("should reject an unknown status filter", func() {
			_, err := f.documents.List(ctx, document.ListQuery{Status: "gone"})
			Expect(codeOf(err)).To(Equal(internal.ErrCodeValidationFailed))
		})
	})

	Describe("Lifecycle", func() {
		var doc *document.Document

		BeforeEach(func() {
			doc = createPolicy("Safety Rules", "2025-01-01")
		})

		It("should delete softly and restore idempotently", func() {
			deleted, err := f.policies.Delete(ctx, doc.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted.Status).To(Equal(access.StatusDeleted))

			docs, err := f.policies.List(ctx, document.ListQuery{})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(BeEmpty())

			docs, err = f.policies.List(ctx, document.ListQuery{ReadOptions: document.ReadOptions{IncludeDeleted: true}})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Status).To(Equal(access.StatusDeleted))

			for i := 0; i < 2; i++ {
				restored, err := f.policies.Restore(ctx, doc.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(restored.Status).To(Equal(access.StatusActive))
				Expect(restored.DocumentNumber).To(Equal(doc.DocumentNumber))
				Expect(restored.VersionHistory).To(HaveLen(1))
			}

			Expect(f.publisher.Types()).To(Equal([]string{
				events.DocumentCreated, events.DocumentDeleted, events.DocumentRestored, events.DocumentRestored,
			}))
		})

		It("should answer not found for an unknown id", func() {
			_, err := f.policies.Delete(ctx, "missing")
			Expect(err).To(MatchError(internal.ErrDocumentNotFound))
			Expect(err.Error()).To(ContainSubstring("Policy not found"))
		})

		It("should not address a memo through the policy collection", func() {
			memo, err := f.documents.Create(ctx, document.CreateDocumentDTO{
				Title:        "Memo",
				DocumentType: document.TypeMemo,
				CategoryID:   f.opsID,
				DateIssued:   "2025-01-01",
			}, upload("memo.pdf", "x"))
			Expect(err).NotTo(HaveOccurred())

			_, err = f.policies.Get(ctx, memo.ID, document.ReadOptions{})
			Expect(err).To(MatchError(internal.ErrDocumentNotFound))

			got, err := f.documents.Get(ctx, doc.ID, document.ReadOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(got.DocumentType).To(Equal(document.TypePolicy))
		})
	})

	Describe("Update", func() {
		var doc *document.Document

		BeforeEach(func() {
			doc = createPolicy("Safety Rules", "2025-01-01")
		})

		It("should succeed without writing on an empty patch", func() {
			got, err := f.policies.Update(ctx, doc.ID, document.UpdateDocumentDTO{})
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ModifiedAt).To(BeTemporally("==", doc.ModifiedAt))
			Expect(f.publisher.Types()).To(ConsistOf(events.DocumentCreated))
		})

		It("should patch the given fields and stamp the editor", func() {
			editor := f.as("m-1", "manager", access.RolePolicyManager)
			got, err := f.policies.Update(editor, doc.ID, document.UpdateDocumentDTO{
				Title:        ptr("Safety Rules 2"),
				PolicyTypeID: ptr(""),
				Tags:         ptr([]string{"safety", "ops"}),
				DateIssued:   ptr("2025-02-01"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Title).To(Equal("Safety Rules 2"))
			Expect(got.PolicyTypeID).To(BeNil())
			Expect(got.Tags).To(Equal([]string{"safety", "ops"}))
			Expect(got.ModifiedBy).To(Equal("manager"))
			Expect(got.DocumentNumber).To(Equal(doc.DocumentNumber))

			reread, err := f.policies.Get(ctx, doc.ID, document.ReadOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(reread.Title).To(Equal("Safety Rules 2"))
			Expect(reread.PolicyTypeID).To(BeNil())
			Expect(reread.DateIssued.Month().String()).To(Equal("February"))
		})

		It("should revalidate a new category", func() {
			_, err := f.policies.Update(ctx, doc.ID, document.UpdateDocumentDTO{CategoryID: ptr("nope")})
			Expect(err).To(MatchError(internal.ErrCategoryNotFound))
		})

		It("should write a false visibility flag", func() {
			_, err := f.policies.Update(ctx, doc.ID, document.UpdateDocumentDTO{IsVisibleToUsers: ptr(false)})
			Expect(err).NotTo(HaveOccurred())

			_, err = f.policies.Get(context.Background(), doc.ID, document.ReadOptions{Public: true})
			Expect(err).To(MatchError(internal.ErrDocumentNotFound))
		})
	})

	Describe("Replace", func() {
		var doc *document.Document

		BeforeEach(func() {
			doc = createPolicy("Safety Rules", "2025-01-01")
		})

		It("should append exactly one version", func() {
			got, err := f.policies.Replace(ctx, doc.ID, "", upload("safety-2025.docx", "new bytes"))
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Version).To(Equal(2))
			Expect(got.FileName).To(Equal("safety-2025.docx"))
			Expect(got.BlobKey).To(Equal("OPS_P_001_2025_v1_v2.docx"))

			history, err := f.policies.Versions(ctx, doc.ID, document.ReadOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(2))
			for i, v := range history {
				Expect(v.VersionNumber).To(Equal(i + 1))
			}
			Expect(history[1].FileName).To(Equal("safety-2025.docx"))
			Expect(history[1].ChangeSummary).To(Equal(document.DefaultReplaceSummary))

			exists, err := f.blobs.Exists(ctx, doc.BlobKey)
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeTrue(), "superseded blobs are retained")
		})

		It("should re-validate the extension", func() {
			_, err := f.policies.Replace(ctx, doc.ID, "oops", upload("notes.txt", "x"))
			Expect(codeOf(err)).To(Equal(internal.ErrCodeValidationFailed))
			Expect(fieldCodeOf(err)).To(Equal(string(internal.ErrCodeInvalidFileType)))
		})

		It("should answer not found for an unknown id", func() {
			_, err := f.policies.Replace(ctx, "missing", "", upload("a.pdf", "x"))
			Expect(err).To(MatchError(internal.ErrDocumentNotFound))
		})
	})

	Describe("Open", func() {
		It("should stream the current blob", func() {
			doc := createPolicy("Safety Rules", "2025-01-01")
			_, rc, err := f.policies.Open(context.Background(), doc.ID, document.ReadOptions{Public: true})
			Expect(err).NotTo(HaveOccurred())
			defer rc.Close()
			body, err := io.ReadAll(rc)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(Equal("%PDF-1.4 safety"))
		})

		It("should answer file not found when the blob is gone", func() {
			doc := createPolicy("Safety Rules", "2025-01-01")
			Expect(os.Remove(filepath.Join(f.blobDir, doc.BlobKey))).To(Succeed())

			_, _, err := f.policies.Open(ctx, doc.ID, document.ReadOptions{})
			Expect(err).To(MatchError(internal.ErrFileNotFound))
		})
	})

	Describe("malformed ids", func() {
		It("should answer not found on every read surface", func() {
			createPolicy("Safety Rules", "2025-01-01")
			_, err := f.policies.Get(context.Background(), "abc", document.ReadOptions{Public: true})
			Expect(err).To(MatchError(internal.ErrDocumentNotFound))
			_, err = f.policies.Get(ctx, "abc", document.ReadOptions{})
			Expect(err).To(MatchError(internal.ErrDocumentNotFound))
			_, err = f.documents.Versions(ctx, "1", document.ReadOptions{})
			Expect(err).To(MatchError(internal.ErrDocumentNotFound))
			_, _, err = f.policies.Open(ctx, "../etc", document.ReadOptions{})
			Expect(err).To(MatchError(internal.ErrDocumentNotFound))
		})

		It("should answer not found on mutations", func() {
			_, err := f.policies.Update(ctx, "abc", document.UpdateDocumentDTO{Title: ptr("x")})
			Expect(err).To(MatchError(internal.ErrDocumentNotFound))
			_, err = f.policies.Delete(ctx, "abc")
			Expect(err).To(MatchError(internal.ErrDocumentNotFound))
		})

		It("should match nothing for a malformed category filter", func() {
			createPolicy("Safety Rules", "2025-01-01")
			docs, err := f.policies.List(ctx, document.ListQuery{CategoryID: "ops"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(BeEmpty())
		})

		It("should reject group grants that are not ids", func() {
			doc := createPolicy("Safety Rules", "2025-01-01")
			_, err := f.policies.SetVisibility(ctx, doc.ID, document.VisibilityDTO{
				VisibleToGroups: ptr([]string{financeGroupID, "bogus"}),
			})
			Expect(codeOf(err)).To(Equal(internal.ErrCodeValidationFailed))
			Expect(fieldCodeOf(err)).To(Equal(string(internal.ErrCodeInvalidID)))

			_, err = f.policies.Update(ctx, doc.ID, document.UpdateDocumentDTO{VisibleToGroups: ptr([]string{"bogus"})})
			Expect(fieldCodeOf(err)).To(Equal(string(internal.ErrCodeInvalidID)))

			got, err := f.policies.Get(ctx, doc.ID, document.ReadOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(got.VisibleToGroups).To(BeEmpty())
		})
	})
})
