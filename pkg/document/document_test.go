package document_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/dossier/pkg/document"
	"github.com/papercomputeco/dossier/pkg/summary"
)

var _ = Describe("Render", func() {
	full := summary.Item{
		Title:     "Quantum error correction",
		Summary:   []string{"Surface codes scale", "Logical qubits demonstrated"},
		Source:    "https://example.com/qec",
		Date:      "2024-05-01",
		Thumbnail: "https://example.com/qec.png",
	}
	bare := summary.Item{Title: "Bare", Source: "https://example.com/bare"}

	It("renders only the heading for no items", func() {
		Expect(document.Render("quantum", nil)).To(Equal("# Research Report: quantum\n\n"))
	})

	It("renders every part of an item", func() {
		out := document.Render("quantum", []summary.Item{full})
		Expect(out).To(Equal("# Research Report: quantum\n\n" +
			"### Quantum error correction\n\n" +
			"- Surface codes scale\n" +
			"- Logical qubits demonstrated\n" +
			"\n**Source**: [https://example.com/qec](https://example.com/qec) (2024-05-01)\n\n" +
			"![thumbnail](https://example.com/qec.png)\n\n" +
			"---\n\n"))
	})

	It("omits the date, bullets and thumbnail when absent", func() {
		block := document.RenderItem(bare)
		Expect(block).To(Equal("### Bare\n\n\n**Source**: [https://example.com/bare](https://example.com/bare)\n\n---\n\n"))
	})

	It("is idempotent", func() {
		items := []summary.Item{full, bare}
		Expect(document.Render("q", items)).To(Equal(document.Render("q", items)))
	})

	It("grows monotonically as items are appended", func() {
		before := document.Render("q", []summary.Item{full})
		after := document.Render("q", []summary.Item{full, bare})

		Expect(strings.HasPrefix(after, before)).To(BeTrue())
		Expect(strings.TrimPrefix(after, before)).To(Equal(document.RenderItem(bare)))
	})
})
