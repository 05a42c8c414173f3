package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given a metrics manager on a private registry", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(
			WithNamespace("test"),
			WithSubsystem("gen"),
			WithHistogramBuckets([]float64{1, 10, 100}),
			WithConstLabels(map[string]string{"env": "test"}),
			WithPrometheusRegistry(registry),
		)

		Convey("When a generation is recorded", func() {
			m.generations.WithLabelValues("success").Inc()
			m.relaxIterations.Observe(2)

			Convey("Then the collectors are registered under the configured names", func() {
				count, err := testutil.GatherAndCount(registry, "test_gen_generations_total")
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 1)
				So(testutil.ToFloat64(m.generations.WithLabelValues("success")), ShouldEqual, 1)
			})

			Convey("And the const labels are attached", func() {
				err := testutil.GatherAndCompare(registry, strings.NewReader(`
# HELP test_gen_generations_total Schedule generations by outcome (success, precondition, infeasible, relax_exhausted)
# TYPE test_gen_generations_total counter
test_gen_generations_total{env="test",outcome="success"} 1
`), "test_gen_generations_total")
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		before := testutil.ToFloat64(globalManager.ratingUpdates.WithLabelValues("baseline"))

		Convey("When rating updates are recorded", func() {
			RecordRatingUpdates("baseline", 8)
			RecordEventCompleted()
			RecordScore("TIE")
			RecordSwap("ok")
			RecordGeneration("success", 3, 1, 12)
			RecordStateTransition("RELAXING")
			RecordWorkerJob("success", 4)
			RecordErrorByComponent("worker", "generation_failed")
			RecordStoreLatency("complete_event", 2)
			UpdateQueueSize(3)
			UpdateQueueCapacity(10)
			UpdateWorkerCount(2)
			UpdateStandingsPlayers("g1", 12)

			Convey("Then the counters move", func() {
				So(testutil.ToFloat64(globalManager.ratingUpdates.WithLabelValues("baseline")), ShouldEqual, before+8)
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.standingsPlayers.WithLabelValues("g1")), ShouldEqual, 12)
			})
		})

		Convey("The registry is exposed", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
