package nop_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/dossier/pkg/eventstream"
	"github.com/papercomputeco/dossier/pkg/eventstream/nop"
)

var _ = Describe("Publisher", func() {
	It("returns ErrNilSessionEvent for nil events", func() {
		p := nop.NewPublisher()
		err := p.PublishSession(context.Background(), nil)
		Expect(err).To(MatchError(eventstream.ErrNilSessionEvent))
	})

	It("succeeds for non-nil events", func() {
		p := nop.NewPublisher()
		err := p.PublishSession(context.Background(), &eventstream.SessionFinishedEvent{})
		Expect(err).NotTo(HaveOccurred())
	})

	It("closes successfully", func() {
		Expect(nop.NewPublisher().Close()).To(Succeed())
	})
})
