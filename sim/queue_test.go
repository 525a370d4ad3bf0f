package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("InboundQueue", func() {
	var queue *InboundQueue

	BeforeEach(func() {
		queue = NewInboundQueue()
	})

	It("should start empty", func() {
		Expect(queue.Size()).To(Equal(0))

		_, ok := queue.Pop()
		Expect(ok).To(BeFalse())
	})

	It("should pop messages in arrival order", func() {
		queue.Push(ClockMsg{ID: "a", SenderClock: 1})
		queue.Push(ClockMsg{ID: "b", SenderClock: 2})
		queue.Push(ClockMsg{ID: "c", SenderClock: 3})

		first, _ := queue.Pop()
		second, _ := queue.Pop()
		third, _ := queue.Pop()

		Expect(first.ID).To(Equal("a"))
		Expect(second.ID).To(Equal("b"))
		Expect(third.ID).To(Equal("c"))
	})

	It("should peek without removing", func() {
		queue.Push(ClockMsg{ID: "a"})

		head, ok := queue.Peek()
		Expect(ok).To(BeTrue())
		Expect(head.ID).To(Equal("a"))
		Expect(queue.Size()).To(Equal(1))
	})

	It("should track its size through pushes and pops", func() {
		for i := 0; i < 100; i++ {
			queue.Push(ClockMsg{})
		}
		Expect(queue.Size()).To(Equal(100))

		for i := 0; i < 40; i++ {
			queue.Pop()
		}
		Expect(queue.Size()).To(Equal(60))
	})
})

var _ = Describe("ClockMsgBuilder", func() {
	It("should build a message with a fresh id", func() {
		msg := ClockMsgBuilder{}.
			WithSrc(1).
			WithDst(2).
			WithSenderClock(42).
			Build()

		Expect(msg.ID).NotTo(BeEmpty())
		Expect(msg.Src).To(Equal(MachineID(1)))
		Expect(msg.Dst).To(Equal(MachineID(2)))
		Expect(msg.SenderClock).To(Equal(LogicalTime(42)))
	})

	It("should refuse a message back to its source", func() {
		Expect(func() {
			ClockMsgBuilder{}.WithSrc(1).WithDst(1).Build()
		}).To(Panic())
	})
})
