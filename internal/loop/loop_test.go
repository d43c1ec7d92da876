package loop

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/kelos-dev/floodwatch/api/v1alpha1"
	"github.com/kelos-dev/floodwatch/internal/narrative"
	"github.com/kelos-dev/floodwatch/internal/scheduler"
)

const (
	timeout  = time.Second * 10
	interval = time.Millisecond * 10
)

func ginkgoLogger() logr.Logger {
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(GinkgoWriter),
		zapcore.DebugLevel,
	)
	return zapr.NewLogger(zap.New(core))
}

var _ = Describe("Loop", func() {
	var (
		ctx     context.Context
		cancel  context.CancelFunc
		fake    *clocktesting.FakeClock
		sched   *scheduler.Scheduler
		ctrl    *narrative.Controller
		l       *Loop
		runDone chan error
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		fake = clocktesting.NewFakeClock(time.Date(2026, 2, 7, 9, 0, 0, 0, time.UTC))
		log := ginkgoLogger()
		sched = scheduler.New(fake.Now(), log)

		var err error
		ctrl, err = narrative.NewController(narrative.Options{
			Config:    narrative.DefaultConfig(),
			Scheduler: sched,
			Clock:     fake,
			Log:       log,
		})
		Expect(err).NotTo(HaveOccurred())

		l = New(fake, sched, log)
		runDone = make(chan error, 1)
		go func() { runDone <- l.Run(ctx) }()
	})

	AfterEach(func() {
		cancel()
		Eventually(runDone, timeout, interval).Should(Receive(BeNil()))
	})

	status := func() v1alpha1.MonitorStatus {
		var s v1alpha1.MonitorStatus
		Expect(l.Do(ctx, func() { s = ctrl.Snapshot().MonitorStatus })).To(Succeed())
		return s
	}

	Context("When commands are sent", func() {
		It("Should run them in order on the loop", func() {
			var order []int
			for i := 1; i <= 3; i++ {
				Expect(l.Do(ctx, func() { order = append(order, i) })).To(Succeed())
			}
			Expect(order).To(Equal([]int{1, 2, 3}))
		})

		It("Should run posted commands", func() {
			ran := make(chan struct{})
			Expect(l.Post(func() { close(ran) })).To(Succeed())
			Eventually(ran, timeout, interval).Should(BeClosed())
		})
	})

	Context("When the monitoring stage runs on the wall clock", func() {
		It("Should fail and then restore the link as time passes", func() {
			By("Entering the monitoring stage")
			Expect(l.Do(ctx, func() {
				ctrl.Advance()
				ctrl.Advance()
			})).To(Succeed())
			Expect(status()).To(Equal(v1alpha1.MonitorStatusConnecting))

			By("Waiting for the loop to sleep until the fail deadline")
			Eventually(fake.HasWaiters, timeout, interval).Should(BeTrue())
			fake.Step(3 * time.Second)
			Eventually(status, timeout, interval).Should(Equal(v1alpha1.MonitorStatusFailed))

			By("Waiting for the loop to sleep until the recover deadline")
			Eventually(fake.HasWaiters, timeout, interval).Should(BeTrue())
			fake.Step(4 * time.Second)
			Eventually(status, timeout, interval).Should(Equal(v1alpha1.MonitorStatusRestored))
		})

		It("Should fire due timers before a later command", func() {
			Expect(l.Do(ctx, func() {
				ctrl.Advance()
				ctrl.Advance()
			})).To(Succeed())
			Eventually(fake.HasWaiters, timeout, interval).Should(BeTrue())

			fake.Step(5 * time.Second)
			Expect(status()).To(Equal(v1alpha1.MonitorStatusFailed))
		})

		It("Should not fire timers of a stage that was left", func() {
			Expect(l.Do(ctx, func() {
				ctrl.Advance()
				ctrl.Advance()
			})).To(Succeed())
			Eventually(fake.HasWaiters, timeout, interval).Should(BeTrue())

			fake.Step(time.Second)
			Expect(l.Do(ctx, func() { ctrl.Advance() })).To(Succeed())
			fake.Step(10 * time.Second)

			var (
				snap    v1alpha1.Snapshot
				pending int
			)
			Expect(l.Do(ctx, func() {
				snap = ctrl.Snapshot()
				pending = sched.Len()
			})).To(Succeed())
			Expect(snap.Stage).To(Equal(v1alpha1.StageAnalysis))
			Expect(snap.MonitorStatus).To(Equal(v1alpha1.MonitorStatusNone))
			Expect(pending).To(Equal(0))
		})
	})

	Context("When the loop is stopped", func() {
		It("Should reject further commands", func() {
			cancel()
			Eventually(l.Done(), timeout, interval).Should(BeClosed())

			Expect(l.Do(context.Background(), func() {})).NotTo(Succeed())
			Expect(l.Post(func() {})).NotTo(Succeed())
		})
	})
})
