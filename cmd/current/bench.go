package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/CBNU-BigDataLab/Current/journal"
	"github.com/CBNU-BigDataLab/Current/metric"
	"github.com/CBNU-BigDataLab/Current/mq"
	"github.com/CBNU-BigDataLab/Current/natsclient"
	"github.com/CBNU-BigDataLab/Current/pkg/loadgen"
	"github.com/CBNU-BigDataLab/Current/replication"
)

// Sink names accepted by the bench command.
const (
	sinkNull        = "null"
	sinkJournal     = "journal"
	sinkReplication = "replication"
)

// scenario describes one bench run. A YAML file can provide it wholesale;
// flags override individual fields.
type scenario struct {
	Producers     int    `yaml:"producers"`
	Messages      int    `yaml:"messages"` // per producer
	Capacity      int    `yaml:"capacity"`
	Policy        string `yaml:"policy"`
	PayloadBytes  int    `yaml:"payload_bytes"`
	Rate          int    `yaml:"rate"`           // messages/sec per producer, 0 = unthrottled
	ConsumerDelay string `yaml:"consumer_delay"` // simulated downstream work per delivery
	Sink          string `yaml:"sink"`

	Journal struct {
		Dir  string `yaml:"dir"`
		Sync bool   `yaml:"sync"`
	} `yaml:"journal"`

	NATS struct {
		URL     string `yaml:"url"`
		Subject string `yaml:"subject"`
	} `yaml:"nats"`
}

func defaultScenario() scenario {
	s := scenario{
		Producers:    4,
		Messages:     10000,
		Capacity:     1024,
		Policy:       "block",
		PayloadBytes: 128,
		Sink:         sinkNull,
	}
	s.NATS.URL = "nats://localhost:4222"
	s.NATS.Subject = "current.bench"
	return s
}

func loadScenario(path string) (scenario, error) {
	s := defaultScenario()

	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read scenario file: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse scenario file: %w", err)
	}
	return s, nil
}

func (s *scenario) validate() error {
	if s.Producers <= 0 {
		return fmt.Errorf("producers must be positive, got %d", s.Producers)
	}
	if s.Messages <= 0 {
		return fmt.Errorf("messages must be positive, got %d", s.Messages)
	}
	if s.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive, got %d", s.Capacity)
	}
	switch s.Policy {
	case "block", "drop":
	default:
		return fmt.Errorf("policy must be block or drop, got %q", s.Policy)
	}
	switch s.Sink {
	case sinkNull, sinkJournal, sinkReplication:
	default:
		return fmt.Errorf("sink must be null, journal, or replication, got %q", s.Sink)
	}
	if s.Sink == sinkJournal && s.Journal.Dir == "" {
		return fmt.Errorf("journal sink requires a journal directory")
	}
	if s.ConsumerDelay != "" {
		if _, err := time.ParseDuration(s.ConsumerDelay); err != nil {
			return fmt.Errorf("consumer_delay: %w", err)
		}
	}
	return nil
}

func (s *scenario) consumerDelay() time.Duration {
	if s.ConsumerDelay == "" {
		return 0
	}
	d, _ := time.ParseDuration(s.ConsumerDelay)
	return d
}

// benchMessage is the payload pushed through the queue during a bench run.
type benchMessage struct {
	Producer int    `json:"producer"`
	Index    int    `json:"index"`
	Body     string `json:"body"`
}

// countingConsumer simulates downstream work, counts deliveries, and
// forwards to the configured sink.
type countingConsumer struct {
	next      mq.Consumer[benchMessage]
	delay     time.Duration
	delivered atomic.Uint64
}

func (c *countingConsumer) Consume(message benchMessage, sequence, total uint64) {
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	c.delivered.Add(1)
	if c.next != nil {
		c.next.Consume(message, sequence, total)
	}
}

func newBenchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Load-test a queue pipeline",
		Long: `Push messages through a bounded queue from concurrent producers and report
admission, rejection, and delivery statistics. Deliveries can feed a null
sink, a durable journal, or NATS replication.`,
		RunE: runBench,
	}

	defaults := defaultScenario()

	cmd.Flags().String("scenario", "", "YAML scenario file (flags override its fields)")
	cmd.Flags().Int("producers", defaults.Producers, "Concurrent producer goroutines")
	cmd.Flags().Int("messages", defaults.Messages, "Messages per producer")
	cmd.Flags().Int("capacity", defaults.Capacity, "Queue capacity in slots")
	cmd.Flags().String("policy", defaults.Policy, "Overflow policy: block|drop")
	cmd.Flags().Int("payload-bytes", defaults.PayloadBytes, "Payload body size per message")
	cmd.Flags().Int("rate", defaults.Rate, "Messages/sec per producer (0 = unthrottled)")
	cmd.Flags().Duration("consumer-delay", 0, "Simulated downstream work per delivery")
	cmd.Flags().String("sink", defaults.Sink, "Delivery sink: null|journal|replication")
	cmd.Flags().String("journal-dir", "", "Journal directory (sink=journal)")
	cmd.Flags().Bool("journal-sync", false, "Fsync each journal batch (sink=journal)")
	cmd.Flags().String("nats-url", defaults.NATS.URL, "NATS server URL (sink=replication)")
	cmd.Flags().String("subject", defaults.NATS.Subject, "NATS subject (sink=replication)")
	cmd.Flags().Int("metrics-port", 0, "Serve Prometheus metrics on this port during the run (0 = off)")

	return cmd
}

func runBench(cmd *cobra.Command, _ []string) error {
	logger := loggerFromFlags(cmd)

	s, err := resolveScenario(cmd)
	if err != nil {
		return err
	}
	if err := s.validate(); err != nil {
		return fmt.Errorf("invalid scenario: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	registry := metric.NewRegistry()
	if port, _ := cmd.Flags().GetInt("metrics-port"); port > 0 {
		server := metric.NewServer(port, "/metrics", registry)
		go func() {
			if err := server.Start(); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() { _ = server.Stop() }()
		logger.Info("serving metrics", "address", server.Address())
	}

	sink, teardown, err := buildSink(ctx, s, registry, logger)
	if err != nil {
		return err
	}

	counter := &countingConsumer{next: sink, delay: s.consumerDelay()}

	policy := mq.Block
	if s.Policy == "drop" {
		policy = mq.Drop
	}

	q, err := mq.New[benchMessage](counter,
		mq.WithCapacity[benchMessage](s.Capacity),
		mq.WithOverflowPolicy[benchMessage](policy),
		mq.WithMetrics[benchMessage](registry, "bench"),
	)
	if err != nil {
		teardown()
		return fmt.Errorf("create queue: %w", err)
	}

	body := strings.Repeat("x", s.PayloadBytes)
	group, err := loadgen.New[benchMessage](s.Producers, s.Messages,
		func(producer, index int) benchMessage {
			return benchMessage{Producer: producer, Index: index, Body: body}
		},
		q.Push,
		loadgen.WithRate[benchMessage](s.Rate),
		loadgen.WithLogger[benchMessage](logger),
	)
	if err != nil {
		teardown()
		return fmt.Errorf("create producer group: %w", err)
	}

	logger.Info("starting bench",
		"producers", s.Producers,
		"messages_per_producer", s.Messages,
		"capacity", s.Capacity,
		"policy", s.Policy,
		"sink", s.Sink)

	start := time.Now()
	if _, err := group.Run(ctx); err != nil {
		logger.Warn("producer group", "error", err)
	}
	if err := q.Close(); err != nil {
		logger.Warn("queue close", "error", err)
	}
	elapsed := time.Since(start)

	teardown()

	printSummary(cmd, s, q, counter, elapsed)
	return nil
}

// resolveScenario loads the scenario file if given, then lets explicitly set
// flags override its fields.
func resolveScenario(cmd *cobra.Command) (scenario, error) {
	s := defaultScenario()

	if path, _ := cmd.Flags().GetString("scenario"); path != "" {
		loaded, err := loadScenario(path)
		if err != nil {
			return s, err
		}
		s = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("producers") {
		s.Producers, _ = flags.GetInt("producers")
	}
	if flags.Changed("messages") {
		s.Messages, _ = flags.GetInt("messages")
	}
	if flags.Changed("capacity") {
		s.Capacity, _ = flags.GetInt("capacity")
	}
	if flags.Changed("policy") {
		policy, _ := flags.GetString("policy")
		s.Policy = strings.ToLower(policy)
	}
	if flags.Changed("payload-bytes") {
		s.PayloadBytes, _ = flags.GetInt("payload-bytes")
	}
	if flags.Changed("rate") {
		s.Rate, _ = flags.GetInt("rate")
	}
	if flags.Changed("consumer-delay") {
		d, _ := flags.GetDuration("consumer-delay")
		s.ConsumerDelay = d.String()
	}
	if flags.Changed("sink") {
		sink, _ := flags.GetString("sink")
		s.Sink = strings.ToLower(sink)
	}
	if flags.Changed("journal-dir") {
		s.Journal.Dir, _ = flags.GetString("journal-dir")
	}
	if flags.Changed("journal-sync") {
		s.Journal.Sync, _ = flags.GetBool("journal-sync")
	}
	if flags.Changed("nats-url") {
		s.NATS.URL, _ = flags.GetString("nats-url")
	}
	if flags.Changed("subject") {
		s.NATS.Subject, _ = flags.GetString("subject")
	}

	return s, nil
}

// buildSink wires the chosen delivery sink and returns it with a teardown
// that flushes and closes it. The teardown order is the shutdown contract:
// the queue closes first, then the sink, then its storage or transport.
func buildSink(
	ctx context.Context,
	s scenario,
	registry *metric.Registry,
	logger *slog.Logger,
) (mq.Consumer[benchMessage], func(), error) {
	switch s.Sink {
	case sinkNull:
		return nil, func() {}, nil

	case sinkJournal:
		j, err := journal.Open(journal.Options{
			Dir:     s.Journal.Dir,
			Sync:    s.Journal.Sync,
			Logger:  logger,
			Metrics: registry,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open journal: %w", err)
		}

		persister, err := journal.NewPersister[benchMessage](j, journal.JSONEncoder[benchMessage](), journal.PersisterConfig{
			Logger:  logger,
			Metrics: registry,
		})
		if err != nil {
			_ = j.Close()
			return nil, nil, fmt.Errorf("create persister: %w", err)
		}

		teardown := func() {
			if err := persister.Close(); err != nil {
				logger.Warn("persister close", "error", err)
			}
			if last, ok := j.LastSequence(); ok {
				logger.Info("journal flushed", "last_sequence", last)
			}
			if err := j.Close(); err != nil {
				logger.Warn("journal close", "error", err)
			}
		}
		return persister, teardown, nil

	case sinkReplication:
		client, err := natsclient.NewClient(s.NATS.URL,
			natsclient.WithName("current-bench"),
			natsclient.WithLogger(logger),
			natsclient.WithMetrics(registry),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("create NATS client: %w", err)
		}

		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := client.Connect(connectCtx); err != nil {
			return nil, nil, fmt.Errorf("connect to NATS: %w", err)
		}

		replicator, err := replication.NewReplicator(client, replication.JSONEncoder[benchMessage](), replication.Config{
			Subject:  s.NATS.Subject,
			Pipeline: "bench",
			Logger:   logger,
			Metrics:  registry,
		})
		if err != nil {
			_ = client.Close(context.Background())
			return nil, nil, fmt.Errorf("create replicator: %w", err)
		}

		teardown := func() {
			if err := replicator.Close(); err != nil {
				logger.Warn("replicator close", "error", err)
			}
			if err := client.Close(context.Background()); err != nil {
				logger.Warn("NATS close", "error", err)
			}
		}
		return replicator, teardown, nil

	default:
		return nil, nil, fmt.Errorf("unknown sink %q", s.Sink)
	}
}

func printSummary(cmd *cobra.Command, s scenario, q *mq.Queue[benchMessage], counter *countingConsumer, elapsed time.Duration) {
	summary := q.Stats().Summary()
	out := cmd.OutOrStdout()

	pushed := uint64(s.Producers) * uint64(s.Messages)
	rejectPct := 0.0
	if pushed > 0 {
		rejectPct = float64(summary.Rejected) / float64(pushed) * 100
	}

	_, _ = fmt.Fprintf(out, "\nBench complete in %s\n\n", elapsed.Round(time.Millisecond))
	_, _ = fmt.Fprintf(out, "  Pushed:         %d (%d producers x %d messages)\n", pushed, s.Producers, s.Messages)
	_, _ = fmt.Fprintf(out, "  Admitted:       %d\n", summary.Admitted)
	_, _ = fmt.Fprintf(out, "  Rejected:       %d (%.2f%%)\n", summary.Rejected, rejectPct)
	_, _ = fmt.Fprintf(out, "  Delivered:      %d (sink saw %d)\n", summary.Delivered, counter.delivered.Load())
	_, _ = fmt.Fprintf(out, "  Producer waits: %d\n", summary.ProducerWaits)
	_, _ = fmt.Fprintf(out, "  Max occupancy:  %d/%d\n", summary.MaxOccupancy, s.Capacity)
	_, _ = fmt.Fprintf(out, "  Throughput:     %.1f admitted/s, %.1f delivered/s\n",
		float64(summary.Admitted)/elapsed.Seconds(),
		float64(summary.Delivered)/elapsed.Seconds())

	switch s.Sink {
	case sinkJournal:
		_, _ = fmt.Fprintf(out, "  Journal:        %s (sync=%v)\n", s.Journal.Dir, s.Journal.Sync)
	case sinkReplication:
		_, _ = fmt.Fprintf(out, "  Replication:    %s -> %s\n", s.NATS.URL, s.NATS.Subject)
	}
}
