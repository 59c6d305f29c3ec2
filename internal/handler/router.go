package handler

import (
	"guia-turismo-go/internal/middleware"
	"guia-turismo-go/internal/repository"
	"guia-turismo-go/internal/service"

	"github.com/gin-gonic/gin"
)

// Deps 汇总路由需要的所有服务。
type Deps struct {
	Sessions         service.SessionService
	Locations        service.LocationService
	Answers          service.AnswerService
	Corpus           service.CorpusService
	ConversationRepo repository.ConversationRepository
	AuditRepo        repository.AuditRepository
	PublicURL        string
}

// NewRouter 创建路由引擎并注册所有路由。
func NewRouter(d Deps) *gin.Engine {
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	chatHandler := NewChatHandler(d.Answers, d.Sessions)
	conversationHandler := NewConversationHandler(d.Sessions, d.ConversationRepo, d.AuditRepo)

	apiV1 := r.Group("/api/v1")
	{
		// 无需认证：创建会话
		apiV1.POST("/sessions", NewSessionHandler(d.Sessions, d.PublicURL).Create)

		// 需要会话 token 的路由
		authed := apiV1.Group("/")
		authed.Use(middleware.SessionAuth(d.Sessions))
		{
			authed.POST("/locations", NewLocationHandler(d.Locations, d.PublicURL).Process)
			authed.GET("/searches", conversationHandler.ListSearches)
			authed.POST("/chat", chatHandler.Ask)
			authed.GET("/chat/history", conversationHandler.GetHistory)
			authed.DELETE("/chat/memory", conversationHandler.ResetMemory)
			authed.GET("/corpus", NewSearchHandler(d.Corpus).LookupCorpus)
		}
	}

	// token 放在路径中：iframe 和 WebSocket 无法设置授权头
	r.GET("/map/:token", NewMapHandler(d.Sessions).Show)
	r.GET("/chat/:token", chatHandler.Handle)
	return r
}
