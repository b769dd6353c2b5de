package document_test

import (
	"time"

	"github.com/frahmantamala/policy-register/internal"
	"github.com/frahmantamala/policy-register/internal/document"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Numbering", func() {
	It("should format the number with a zero-padded sequence", func() {
		Expect(document.FormatNumber("OPS", "P", 1, 2025)).To(Equal("OPS-P-001-2025-v1"))
		Expect(document.FormatNumber("HR", "G", 1234, 2024)).To(Equal("HR-G-1234-2024-v1"))
	})

	It("should map document types to codes", func() {
		Expect(document.TypeCode(document.TypeProcedure)).To(Equal("PR"))
		Expect(document.TypeCode("unknown")).To(Equal("D"))
	})

	DescribeTable("ParseDateIssued",
		func(input string, expected time.Time) {
			got, err := document.ParseDateIssued(input)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeTemporally("==", expected))
		},
		Entry("date", "2025-01-01", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		Entry("trailing Z", "2025-01-01T08:30:00Z", time.Date(2025, 1, 1, 8, 30, 0, 0, time.UTC)),
		Entry("offset", "2025-01-01T08:30:00+07:00", time.Date(2025, 1, 1, 1, 30, 0, 0, time.UTC)),
		Entry("naive date-time", "2025-01-01T08:30:00", time.Date(2025, 1, 1, 8, 30, 0, 0, time.UTC)),
		Entry("minutes only", "2025-01-01T08:30", time.Date(2025, 1, 1, 8, 30, 0, 0, time.UTC)),
	)

	It("should keep the written offset so the year is not shifted", func() {
		got, err := document.ParseDateIssued("2025-01-01T00:30:00+05:00")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Year()).To(Equal(2025))
		Expect(got.UTC().Year()).To(Equal(2024))
	})

	It("should reject dates it cannot parse", func() {
		_, err := document.ParseDateIssued("yesterday")
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
		details, ok := appErr.Details.(internal.ValidationErrors)
		Expect(ok).To(BeTrue())
		Expect(details.Errors[0].Field).To(Equal("date_issued"))
		Expect(details.Errors[0].Code).To(Equal(string(internal.ErrCodeInvalidDate)))
	})

	It("should check extensions case-insensitively", func() {
		ext, err := document.CheckExtension("Report.PDF", []string{".pdf", ".docx"})
		Expect(err).NotTo(HaveOccurred())
		Expect(ext).To(Equal(".pdf"))

		_, err = document.CheckExtension("noext", []string{".pdf"})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(Equal("Only PDF files are allowed"))
	})

	It("should derive server-controlled blob names", func() {
		Expect(document.PolicyBlobKey("OPS-P-001-2025-v1", 2, ".pdf")).To(Equal("OPS_P_001_2025_v1_v2.pdf"))
		Expect(document.DocumentBlobKey("id", 1, `C:\tmp\my report (final).docx`)).To(Equal("id_v1_my_report_final_.docx"))
		Expect(document.SanitizeFileName("../../etc/passwd")).To(Equal("passwd"))
		Expect(document.SanitizeFileName("..")).To(Equal("file"))
	})

	It("should split comma-separated tags", func() {
		Expect(document.ParseTags(" a, b ,,a")).To(Equal([]string{"a", "b"}))
		Expect(document.ParseTags("")).To(BeEmpty())
	})
})
