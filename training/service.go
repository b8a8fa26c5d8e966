package training

import (
	"context"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	auth "github.com/goliatone/go-campus-auth"
)

// DefaultTopic carries training requests
const DefaultTopic = "training.requested"

// Service queues training runs on a gochannel pub/sub and executes them one
// at a time. Job state lives in memory only.
type Service struct {
	runner Runner
	logger auth.Logger
	topic  string
	now    func() time.Time

	pubSub *gochannel.GoChannel

	mu     sync.RWMutex
	jobs   map[string]*auth.TrainingJob
	closed bool

	cancel context.CancelFunc
	done   chan struct{}
}

var _ auth.TrainingService = (*Service)(nil)

type Option func(*Service)

func WithLogger(logger auth.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithTopic(topic string) Option {
	return func(s *Service) {
		if topic != "" {
			s.topic = topic
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates the service. Call Start before Trigger.
func NewService(runner Runner, opts ...Option) *Service {
	s := &Service{
		runner: runner,
		logger: auth.NopLogger{},
		topic:  DefaultTopic,
		now:    time.Now,
		jobs:   map[string]*auth.TrainingJob{},
		done:   make(chan struct{}),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.pubSub = gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, NewLoggerAdapter(s.logger))

	return s
}

// Start subscribes the worker. It returns once the subscription is active.
func (s *Service) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	messages, err := s.pubSub.Subscribe(ctx, s.topic)
	if err != nil {
		cancel()
		return err
	}

	s.cancel = cancel
	go s.work(ctx, messages)
	return nil
}

// Close stops the worker and the pub/sub
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	return s.pubSub.Close()
}

// Trigger records a pending job and publishes it
func (s *Service) Trigger(ctx context.Context, requestedBy string) (*auth.TrainingJob, error) {
	job := &auth.TrainingJob{
		ID:          watermill.NewUUID(),
		Status:      auth.TrainingPending,
		RequestedBy: requestedBy,
		CreatedAt:   s.now().UTC(),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.jobs[job.ID] = job
	snapshot := *job
	s.mu.Unlock()

	msg := message.NewMessage(watermill.NewUUID(), []byte(job.ID))
	msg.Metadata.Set("requested_by", requestedBy)

	if err := s.pubSub.Publish(s.topic, msg); err != nil {
		s.finish(job.ID, "", err)
		return nil, err
	}

	s.logger.Info("training job %s queued by %s", job.ID, requestedBy)
	return &snapshot, nil
}

// Status returns a copy of the job
func (s *Service) Status(_ context.Context, jobID string) (*auth.TrainingJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		clone := ErrJobNotFound.Clone()
		clone.Source = ErrJobNotFound
		return nil, clone.WithMetadata(map[string]any{
			"id": jobID,
		})
	}

	snapshot := *job
	return &snapshot, nil
}

func (s *Service) work(ctx context.Context, messages <-chan *message.Message) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			s.run(ctx, string(msg.Payload))
			msg.Ack()
		}
	}
}

func (s *Service) run(ctx context.Context, jobID string) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("training job %s not registered, skipping", jobID)
		return
	}
	started := s.now().UTC()
	job.Status = auth.TrainingRunning
	job.StartedAt = &started
	s.mu.Unlock()

	output, err := s.runner.Run(ctx)
	s.finish(jobID, output, err)
}

func (s *Service) finish(jobID, output string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return
	}

	finished := s.now().UTC()
	job.FinishedAt = &finished
	job.Output = output

	if err != nil {
		job.Status = auth.TrainingFailed
		job.Error = err.Error()
		s.logger.Error("training job %s failed: %v", jobID, err)
		return
	}

	job.Status = auth.TrainingSucceeded
	s.logger.Info("training job %s finished", jobID)
}
