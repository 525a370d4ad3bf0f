package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Clock", func() {
	var clock *Clock

	BeforeEach(func() {
		clock = &Clock{}
	})

	It("should start at zero", func() {
		Expect(clock.Time()).To(Equal(LogicalTime(0)))
	})

	It("should increment by exactly 1 on a local event", func() {
		Expect(clock.Increment()).To(Equal(LogicalTime(1)))
		Expect(clock.Increment()).To(Equal(LogicalTime(2)))
		Expect(clock.Time()).To(Equal(LogicalTime(2)))
	})

	It("should jump past a higher remote clock on receive", func() {
		clock.Increment()

		Expect(clock.Witness(10)).To(Equal(LogicalTime(11)))
		Expect(clock.Time()).To(Equal(LogicalTime(11)))
	})

	It("should advance past the local clock when the remote is behind", func() {
		for i := 0; i < 5; i++ {
			clock.Increment()
		}

		Expect(clock.Witness(2)).To(Equal(LogicalTime(6)))
	})

	It("should advance past an equal remote clock", func() {
		for i := 0; i < 3; i++ {
			clock.Increment()
		}

		Expect(clock.Witness(3)).To(Equal(LogicalTime(4)))
	})
})
