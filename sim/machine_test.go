package sim

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

// captureSink collects records and is safe for concurrent use.
type captureSink struct {
	lock    sync.Mutex
	records []EventRecord
}

func (s *captureSink) Record(rec EventRecord) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.records = append(s.records, rec)
}

func (s *captureSink) all() []EventRecord {
	s.lock.Lock()
	defer s.lock.Unlock()

	out := make([]EventRecord, len(s.records))
	copy(out, s.records)

	return out
}

// loadedDice always rolls the same value.
type loadedDice int

func (d loadedDice) Roll() int {
	return int(d)
}

// testMesh builds a seeded topology with every machine's sink replaced by a
// shared capture sink.
func testMesh(count int) (*Topology, *captureSink) {
	sink := &captureSink{}

	topology, err := MakeTopologyBuilder().
		WithMachineCount(count).
		WithRateSpec(FixedRate(1)).
		WithEventSink(sink).
		WithSeed(42).
		Build()
	Expect(err).To(BeNil())

	return topology, sink
}

var _ = Describe("Machine addressing", func() {
	It("should address next and after-next from the global id order", func() {
		topology, _ := testMesh(5)

		m1 := topology.Machine(1)
		Expect(m1.NextPeer()).To(Equal(MachineID(2)))
		Expect(m1.AfterNextPeer()).To(Equal(MachineID(3)))

		m4 := topology.Machine(4)
		Expect(m4.NextPeer()).To(Equal(MachineID(0)))
		Expect(m4.AfterNextPeer()).To(Equal(MachineID(1)))
	})

	It("should fall back to the next peer when after-next wraps to self", func() {
		topology, _ := testMesh(2)

		m0 := topology.Machine(0)
		Expect(m0.NextPeer()).To(Equal(MachineID(1)))
		Expect(m0.AfterNextPeer()).To(Equal(MachineID(1)))
	})
})

var _ = Describe("Machine tick", func() {
	var (
		topology *Topology
		sink     *captureSink
	)

	BeforeEach(func() {
		topology, sink = testMesh(3)
		for _, m := range topology.Machines() {
			m.state.set(StateRunning)
		}
	})

	It("should apply the Lamport receive rule to a queued message", func() {
		// A machine at clock 0 with a pending message carrying clock 5
		// must tick to exactly 6.
		m := topology.Machine(0)
		m.deliver(ClockMsg{Src: 1, Dst: 0, SenderClock: 5})

		m.Step(time.Now())

		records := sink.all()
		Expect(records).To(HaveLen(1))
		Expect(records[0].Kind).To(Equal(EventRecv))
		Expect(records[0].ClockAfter).To(Equal(LogicalTime(6)))
		Expect(records[0].QueueLenAfter).To(Equal(0))
	})

	It("should drain the queue before generating local work", func() {
		m := topology.Machine(0)
		m.dice = loadedDice(1) // would send if the queue were empty
		m.deliver(ClockMsg{Src: 1, Dst: 0, SenderClock: 1})

		m.Step(time.Now())

		records := sink.all()
		Expect(records[0].Kind).To(Equal(EventRecv))
		Expect(topology.Machine(1).QueueLen()).To(Equal(0))
	})

	It("should dequeue same-sender messages in send order", func() {
		m0 := topology.Machine(0)
		m1 := topology.Machine(1)

		m0.dice = loadedDice(1) // always send to next
		m0.Step(time.Now())
		m0.Step(time.Now())
		m0.Step(time.Now())

		Expect(m1.QueueLen()).To(Equal(3))

		var witnessed []LogicalTime
		for i := 0; i < 3; i++ {
			msg, ok := m1.queue.Pop()
			Expect(ok).To(BeTrue())
			witnessed = append(witnessed, msg.SenderClock)
		}

		Expect(witnessed).To(Equal([]LogicalTime{1, 2, 3}))
	})

	It("should order a receive after its causing send", func() {
		m0 := topology.Machine(0)
		m1 := topology.Machine(1)

		m0.dice = loadedDice(1)
		m0.Step(time.Now()) // SEND at clock 1
		m1.Step(time.Now()) // RECV

		records := sink.all()
		Expect(records).To(HaveLen(2))

		send, recv := records[0], records[1]
		Expect(send.Kind).To(Equal(EventSend))
		Expect(recv.Kind).To(Equal(EventRecv))
		Expect(recv.ClockAfter).To(BeNumerically(">", send.ClockAfter))
	})

	It("should deliver a broadcast to every peer", func() {
		m0 := topology.Machine(0)
		m0.dice = loadedDice(3)

		m0.Step(time.Now())

		Expect(sink.all()[0].Kind).To(Equal(EventBroadcast))
		Expect(topology.Machine(1).QueueLen()).To(Equal(1))
		Expect(topology.Machine(2).QueueLen()).To(Equal(1))
	})

	It("should keep the clock strictly increasing over successive ticks", func() {
		m := topology.Machine(0)
		for i := 0; i < 200; i++ {
			m.Step(time.Now())
		}

		prev := LogicalTime(0)
		for _, rec := range sink.all() {
			if rec.MachineID != 0 {
				continue
			}

			Expect(rec.ClockAfter).To(BeNumerically(">", prev))
			prev = rec.ClockAfter
		}
	})
})

var _ = Describe("Machine delivery failure", func() {
	It("should report the failure and still advance the clock", func() {
		mockCtrl := gomock.NewController(GinkgoT())
		defer mockCtrl.Finish()

		topology, sink := testMesh(3)
		m0 := topology.Machine(0)
		m0.state.set(StateRunning)
		// Peers 1 and 2 stay in INIT: they never completed CONNECTING.

		reporter := NewMockFailureReporter(mockCtrl)
		reporter.EXPECT().
			ReportDeliveryFailure(MachineID(0), MachineID(1), gomock.Any())
		m0.reporter = reporter

		m0.dice = loadedDice(1)
		m0.Step(time.Now())

		Expect(m0.ClockTime()).To(Equal(LogicalTime(1)))

		records := sink.all()
		Expect(records).To(HaveLen(1))
		Expect(records[0].Kind).To(Equal(EventSend))
		Expect(records[0].ClockAfter).To(Equal(LogicalTime(1)))
	})
})

var _ = Describe("Machine event policy", func() {
	It("should map draws to the closed action set", func() {
		Expect(actionForDraw(1)).To(Equal(actSendNext))
		Expect(actionForDraw(2)).To(Equal(actSendAfterNext))
		Expect(actionForDraw(3)).To(Equal(actBroadcast))
		for n := 4; n <= 10; n++ {
			Expect(actionForDraw(n)).To(Equal(actInternal))
		}
	})

	It("should refuse a draw outside [1, 10]", func() {
		Expect(func() { actionForDraw(0) }).To(Panic())
		Expect(func() { actionForDraw(11) }).To(Panic())
	})

	It("should approach a 10/10/10/70 split over many empty-queue ticks", func() {
		topology, sink := testMesh(3)
		for _, m := range topology.Machines() {
			m.state.set(StateRunning)
		}

		m0 := topology.Machine(0)
		for i := 0; i < 1000; i++ {
			m0.Step(time.Now())
		}

		counts := map[EventKind]int{}
		for _, rec := range sink.all() {
			counts[rec.Kind]++
		}

		// Draws 1 and 2 both surface as SEND; 3 as BROADCAST.
		Expect(counts[EventSend]).To(BeNumerically("~", 200, 60))
		Expect(counts[EventBroadcast]).To(BeNumerically("~", 100, 45))
		Expect(counts[EventInternal]).To(BeNumerically("~", 700, 75))
		Expect(counts[EventRecv]).To(Equal(0))
	})
})

var _ = Describe("Machine lifecycle", func() {
	It("should tick until cancelled and then stop cleanly", func() {
		sink := &captureSink{}
		topology, err := MakeTopologyBuilder().
			WithMachineCount(2).
			WithRateSpec(FixedRate(100)).
			WithEventSink(sink).
			WithSeed(7).
			Build()
		Expect(err).To(BeNil())

		ctx, cancel := context.WithTimeout(
			context.Background(), 250*time.Millisecond)
		defer cancel()

		var wg sync.WaitGroup
		for _, m := range topology.Machines() {
			wg.Add(1)
			go func(m *Machine) {
				defer GinkgoRecover()
				defer wg.Done()

				Expect(m.Connect(ctx)).To(Succeed())
				Expect(m.Run(ctx)).To(Succeed())
			}(m)
		}
		wg.Wait()

		for _, m := range topology.Machines() {
			Expect(m.State()).To(Equal(StateStopped))
		}

		Expect(len(sink.all())).To(BeNumerically(">", 0))
	})
})
