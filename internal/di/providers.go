package di

import (
	"context"
	"fmt"
	"time"

	domrepo "FxDesk/internal/domain/repository"
	domsvc "FxDesk/internal/domain/service"
	"FxDesk/internal/handler/api"
	"FxDesk/internal/middleware"
	internalrepo "FxDesk/internal/repository"
	svcmetrics "FxDesk/internal/service/metrics"
	"FxDesk/internal/service/ratelimit"
	"FxDesk/internal/services/analysis"
	"FxDesk/internal/services/analytics"
	"FxDesk/internal/services/gemini"
	"FxDesk/internal/services/obs"
	"FxDesk/internal/usecase"
	"FxDesk/pkg/cache"
	pkgch "FxDesk/pkg/clickhouse"
	"FxDesk/pkg/config"
	xhttp "FxDesk/pkg/http"
	httpmw "FxDesk/pkg/http/middleware"
	pkgkafka "FxDesk/pkg/kafka"
	"FxDesk/pkg/logger"
	"FxDesk/pkg/metrics"
	"FxDesk/pkg/queue"
	"FxDesk/pkg/server"
	"FxDesk/pkg/tracing"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

// Collaborators are the analysis services behind the stages, already
// decorated with tracing and latency metrics.
type Collaborators struct {
	News        domsvc.NewsAnalyzer
	Technical   domsvc.TechnicalAnalyzer
	Fundamental domsvc.FundamentalAnalyzer
	Decision    domsvc.DecisionService
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

func ProvideTracing(cfg *config.Config) (*tracing.Provider, error) {
	tp, err := tracing.New(cfg.Tracing, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	return tp, nil
}

func ProvideTracer(tp *tracing.Provider) trace.Tracer {
	return tp.Tracer()
}

func ProvideInstrumenter(tracer trace.Tracer, log *logger.Logger) *obs.Instrumenter {
	svcmetrics.Register()
	return obs.NewInstrumenter(tracer, log)
}

// ProvideCollaborators picks Gemini for news and synthesis when an API key is
// set and the remote analysis service for technical and fundamental data when
// a URL is set. Everything else falls back to the local generators.
func ProvideCollaborators(cfg *config.Config, in *obs.Instrumenter, log *logger.Logger) (Collaborators, error) {
	rng := analysis.NewRNG(cfg.Analysis.Seed)

	c := Collaborators{
		News:        in.News(analysis.NewNewsMock(rng), "mock"),
		Technical:   in.Technical(analysis.NewTechnicalMock(rng), "mock"),
		Fundamental: in.Fundamental(analysis.NewFundamentalMock(rng), "mock"),
		Decision:    in.Decision(analysis.NewHeuristicDecision(), "heuristic"),
	}

	if cfg.Gemini.Configured() {
		gen, err := gemini.NewClient(context.Background(), cfg.Gemini)
		if err != nil {
			return Collaborators{}, fmt.Errorf("gemini client: %w", err)
		}
		c.News = in.News(gemini.NewNewsAnalyzer(gen, cfg.Gemini.NewsTemperature), "gemini")
		c.Decision = in.Decision(gemini.NewDecisionService(gen, cfg.Gemini.SynthesisTemperature, cfg.Pipeline.SynthesisMinConfidence), "gemini")
		log.Info("gemini collaborators enabled", logger.String("model", cfg.Gemini.Model))
	} else {
		log.Warn("gemini api key not set, using mock news and heuristic synthesis")
	}

	if cfg.Analysis.ServiceURL != "" {
		remote := analytics.NewRemoteAnalyzer(cfg.Analysis, xhttp.WithUserAgent("fxdesk/"+cfg.Version))
		c.Technical = in.Technical(remote, "remote")
		c.Fundamental = in.Fundamental(remote, "remote")
		log.Info("remote analysis service enabled", logger.String("url", cfg.Analysis.ServiceURL))
	}
	return c, nil
}

func ProvideStages(c Collaborators, cfg *config.Config, m domrepo.Metrics, log *logger.Logger) *usecase.Stages {
	return usecase.NewStages(
		c.News,
		c.Technical,
		c.Fundamental,
		c.Decision,
		cfg.Pipeline.StageTimeout,
		cfg.Pipeline.SynthesisMinConfidence,
		m,
		log,
	)
}

// ProvideFanOutBudget bounds concurrent analysis stages across all runs.
func ProvideFanOutBudget(cfg *config.Config) *semaphore.Weighted {
	return semaphore.NewWeighted(cfg.Pipeline.FanOutWorkers)
}

// ProvideRedisClient returns nil when redis is disabled.
func ProvideRedisClient(cfg *config.Config) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rc, nil
}

// ProvideCache layers an in-process cache over redis when it is available.
func ProvideCache(cfg *config.Config, rc *redis.Client) cache.Service {
	memOpts := []cache.MemoryOption{
		cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize),
		cache.WithMemoryDefaultTTL(cfg.Cache.ResultTTL),
	}
	if rc == nil {
		return cache.NewMemoryCache(memOpts...)
	}
	return cache.NewLayeredCache(cache.NewRedisCacheFromClient(rc, cfg.Redis.Prefix), memOpts...)
}

func ProvideResultCache(cfg *config.Config, c cache.Service, log *logger.Logger) domrepo.ResultCache {
	if !cfg.Cache.Enabled {
		return nil
	}
	return internalrepo.NewResultCache(c, cfg.Cache.ResultTTL, log)
}

// ProvideKafkaProducer returns nil when neither decision publishing nor log
// collection needs Kafka.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Backend.Publishes() && !cfg.Log.Collector.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideClickHouseClient returns nil unless decisions are stored in ClickHouse.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.Backend.Stores() {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, false),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideRecordBuffer builds the decision record sinks for the configured backend.
func ProvideRecordBuffer(
	cfg *config.Config,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	m domrepo.Metrics,
	log *logger.Logger,
) (*middleware.RecordBuffer, error) {
	var sinks []middleware.Sink

	if cfg.Backend.Publishes() && producer != nil {
		var pub domrepo.DecisionPublisher = internalrepo.NewKafkaDecisionPublisher(producer, cfg.Kafka.DecisionsTopic)
		sinks = append(sinks, middleware.Sink{Name: "kafka", Write: pub.PublishDecision})
	}

	if cfg.Backend.Stores() && ch != nil {
		var store domrepo.DecisionStore = internalrepo.NewCHDecisionStore(ch, log)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Init(ctx); err != nil {
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		sinks = append(sinks, middleware.Sink{Name: "clickhouse", Write: store.StoreDecision})
	}

	return middleware.NewRecordBuffer(sinks, m, log,
		middleware.WithBufferSize(cfg.Backend.BufferSize),
		middleware.WithRetry(cfg.Backend.MaxRetries, cfg.Backend.RetryBackoff),
		middleware.WithWriteTimeout(cfg.Backend.WriteTimeout),
	), nil
}

func ProvideRecorder(b *middleware.RecordBuffer) domrepo.DecisionRecorder {
	return b
}

func ProvideAnalysisService(
	orch *usecase.Orchestrator,
	rc domrepo.ResultCache,
	recorder domrepo.DecisionRecorder,
	cfg *config.Config,
	log *logger.Logger,
) *usecase.AnalysisService {
	return usecase.NewAnalysisService(orch, rc, recorder, cfg.Pipeline.ObserverTimeout, log)
}

// ProvideJobQueue returns nil when the job queue is disabled.
func ProvideJobQueue(cfg *config.Config, rc *redis.Client, log *logger.Logger) *queue.RedisQueue {
	if !cfg.Queue.Enabled || rc == nil {
		return nil
	}
	return queue.NewRedisQueue(log, queue.Config{
		Workers:    cfg.Queue.Workers,
		QueueSize:  cfg.Queue.QueueSize,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}, rc, queue.WithKeyPrefix(cfg.Redis.Prefix+":queue:"+cfg.Queue.Name))
}

// ProvideJobService registers the analysis job on q. It returns nil when q is nil.
func ProvideJobService(
	cfg *config.Config,
	svc *usecase.AnalysisService,
	q *queue.RedisQueue,
	c cache.Service,
	log *logger.Logger,
) *usecase.JobService {
	if q == nil {
		return nil
	}
	js := usecase.NewJobService(svc, q, c, cfg.Queue.StatusTTL, log)
	q.RegisterJob(js.Job())
	return js
}

// ProvideKafkaConsumer returns nil unless the analysis request consumer is enabled.
func ProvideKafkaConsumer(
	cfg *config.Config,
	svc *usecase.AnalysisService,
	c cache.Service,
	log *logger.Logger,
) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(log,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(usecase.NewRequestConsumer(cfg.Kafka.RequestsTopic, svc, c, cfg.Kafka.Consumer.DedupTTL, log))
	consumer.WithConsumerHook(pkgkafka.LoggingHook(log))
	return consumer, nil
}

// ProvideRateLimiter returns nil when rate limiting is disabled.
func ProvideRateLimiter(cfg *config.Config) httpmw.Allower {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec)
}

func ProvideAnalysisHandler(
	cfg *config.Config,
	log *logger.Logger,
	svc *usecase.AnalysisService,
	js *usecase.JobService,
	limiter httpmw.Allower,
) *api.AnalysisHandler {
	var jobs api.Jobs
	if js != nil {
		jobs = js
	}
	return api.NewAnalysisHandler(log, svc, jobs, limiter, cfg.Version)
}

func ProvideHTTPServer(cfg *config.Config, log *logger.Logger, h *api.AnalysisHandler) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithAddress(cfg.Server.Host, cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, cfg.Metrics.SlowThreshold))
	}
	return xhttp.NewServer(log, []xhttp.Handler{h}, opts...)
}

// ProvideApp attaches the log collector and hands every long-lived component
// to the application.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	srv *xhttp.Server,
	buf *middleware.RecordBuffer,
	q *queue.RedisQueue,
	consumer *pkgkafka.Consumer,
	tp *tracing.Provider,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	c cache.Service,
) *server.App {
	if cfg.Log.Collector.Enabled && producer != nil {
		log.AttachCollector(&logger.CollectionConfig{
			FlushInterval:  cfg.Log.Collector.FlushInterval,
			CountThreshold: cfg.Log.Collector.CountThreshold,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      producer,
		})
	}

	// The layered cache closes the shared redis client.
	closers := []server.Closer{{Name: "cache", Close: c.Close}}
	if producer != nil {
		closers = append(closers, server.Closer{Name: "kafka producer", Close: producer.Close})
	}
	if ch != nil {
		closers = append(closers, server.Closer{Name: "clickhouse", Close: ch.Close})
	}
	return server.New(cfg, log, srv, buf, q, consumer, tp, closers...)
}
