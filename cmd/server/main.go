// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"guia-turismo-go/internal/config"
	"guia-turismo-go/internal/handler"
	"guia-turismo-go/internal/model"
	"guia-turismo-go/internal/pipeline"
	"guia-turismo-go/internal/repository"
	"guia-turismo-go/internal/service"
	"guia-turismo-go/pkg/database"
	"guia-turismo-go/pkg/embedding"
	"guia-turismo-go/pkg/es"
	"guia-turismo-go/pkg/extract"
	"guia-turismo-go/pkg/geocode"
	"guia-turismo-go/pkg/kafka"
	"guia-turismo-go/pkg/llm"
	"guia-turismo-go/pkg/log"
	"guia-turismo-go/pkg/mapview"
	"guia-turismo-go/pkg/search"
	"guia-turismo-go/pkg/storage"
	"guia-turismo-go/pkg/tika"
	"guia-turismo-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// 1. 初始化配置，本地 .env 中的 GUIA_* 变量会覆盖配置文件
	if err := godotenv.Load(); err == nil {
		fmt.Println("已加载 .env")
	}
	configPath := "./configs/config.yaml"
	if p := os.Getenv("GUIA_CONFIG"); p != "" {
		configPath = p
	}
	config.Init(configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 对话记忆与审计
	var conversationRepo repository.ConversationRepository
	if cfg.Memory.Backend == "redis" {
		if err := database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB); err != nil {
			log.Fatal("Redis 初始化失败", err)
		}
		conversationRepo = repository.NewConversationRepository(database.RDB, cfg.Memory.RedisTTL)
	} else {
		conversationRepo = repository.NewMemoryConversationRepository()
	}

	auditRepo := repository.NewNoopAuditRepository()
	if cfg.Database.MySQL.Enabled {
		if err := database.InitMySQL(cfg.Database.MySQL.DSN, &model.LocationSearch{}, &model.Conversation{}); err != nil {
			log.Fatal("MySQL 初始化失败", err)
		}
		auditRepo = repository.NewAuditRepository(database.DB)
	}

	// 4. 可选的写出端：ES 归档、MinIO 快照、Kafka 事件
	var sinks []service.CorpusSink
	var archiveSearch service.ArchiveSearcher
	if cfg.Elasticsearch.Enabled {
		if err := es.InitES(cfg.Elasticsearch); err != nil {
			log.Errorf("es 初始化失败, 归档不可用: %v", err)
		} else {
			sinks = append(sinks, service.NewArchiveSink(cfg.Elasticsearch.IndexName))
			archiveSearch = es.SearchByLocation
		}
	}
	if cfg.MinIO.Enabled {
		if err := storage.InitMinIO(cfg.MinIO); err != nil {
			log.Errorf("MinIO 初始化失败, 快照不可用: %v", err)
		} else {
			sinks = append(sinks, service.NewSnapshotSink(cfg.MinIO.BucketName))
		}
	}
	if cfg.Kafka.Enabled {
		kafka.InitProducer(cfg.Kafka)
		sinks = append(sinks, service.NewEventSink())
	}

	// 5. 初始化客户端与流水线
	var tikaClient *tika.Client
	if cfg.Tika.Enabled {
		tikaClient = tika.NewClient(cfg.Tika)
	}
	searchClient := search.NewClient(cfg.Search)
	extractor := extract.NewClient(cfg.Extract, tikaClient)
	processor := pipeline.NewProcessor(
		extractor,
		pipeline.NewSplitter(cfg.Chunking.Size, cfg.Chunking.Overlap),
		cfg.Extract.Workers,
		cfg.Extract.MaxChars,
	)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)
	geocoder := geocode.NewClient(cfg.Geocode)

	// 6. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.Session.Secret, cfg.Session.TTLHours)
	sessionService := service.NewSessionService(embeddingClient, cfg.Retrieval.EmbedBatchSize, jwtManager, conversationRepo, initialMap(geocoder))
	answerService := service.NewAnswerService(llmClient, conversationRepo, auditRepo, cfg.Retrieval, cfg.LLM)
	locationService := service.NewLocationService(geocoder, searchClient, processor, answerService, auditRepo, cfg.Search.MaxResults, sinks...)
	corpusService := service.NewCorpusService(archiveSearch, cfg.Elasticsearch.IndexName, cfg.Retrieval.MaxContextChars)

	// 7. 后台清理空闲会话
	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	defer cancelSweep()
	go sweepSessions(sweepCtx, sessionService, time.Duration(cfg.Session.TTLHours)*time.Hour)

	// 8. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	r := handler.NewRouter(handler.Deps{
		Sessions:         sessionService,
		Locations:        locationService,
		Answers:          answerService,
		Corpus:           corpusService,
		ConversationRepo: conversationRepo,
		AuditRepo:        auditRepo,
		PublicURL:        cfg.Server.PublicURL,
	})

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}
	// 等待后台归档、快照与事件写完
	if err := locationService.Close(ctx); err != nil {
		log.Warnf("等待后台写出超时: %v", err)
	}
	if err := kafka.Close(); err != nil {
		log.Warnf("关闭 Kafka 生产者失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}

// initialMap 渲染新会话使用的巴西全图，取不到国家轮廓时只显示底图。
func initialMap(geocoder geocode.Geocoder) string {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	place, err := geocoder.Geocode(ctx, mapview.BrazilName)
	if err != nil {
		log.Warnf("获取巴西轮廓失败, 使用无轮廓地图: %v", err)
		return mapview.Initial(nil)
	}
	return mapview.Initial(place.GeoJSON)
}

func sweepSessions(ctx context.Context, sessions service.SessionService, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.Sweep(ctx, ttl)
		}
	}
}
