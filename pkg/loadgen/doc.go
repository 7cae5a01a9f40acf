// Package loadgen drives a push target with a group of concurrent
// producers, for load tests and benchmarks of bounded queues.
//
// A Group owns nothing about the target beyond a push function, so it can
// drive a queue, a network client, or a plain counter. Producers run as
// goroutines; each generates and pushes its share of messages, optionally
// throttled to a per-producer rate.
//
// # Basic Usage
//
//	group, err := loadgen.New[string](4, 10000,
//		func(producer, index int) string {
//			return fmt.Sprintf("p%d-%d", producer, index)
//		},
//		queue.Push,
//		loadgen.WithRate[string](5000),
//	)
//	if err != nil {
//		return err
//	}
//
//	stats, err := group.Run(ctx)
//	if err != nil {
//		return err
//	}
//	fmt.Printf("admitted %d, rejected %d in %s\n",
//		stats.Admitted, stats.Rejected, stats.Elapsed)
//
// Run blocks until every producer finishes or the context is cancelled.
// Groups are single-use.
package loadgen
