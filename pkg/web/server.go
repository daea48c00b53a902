package web

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/davronov/tg-speaking-exam/pkg/exam"
	"github.com/davronov/tg-speaking-exam/pkg/questions"
)

const initDataMaxAge = 24 * time.Hour

// Server is the mini-app REST API on top of the same exam service the bot uses.
type Server struct {
	engine    *gin.Engine
	exam      *exam.Service
	bank      *questions.Bank
	botToken  string
	jwtSecret string
	now       func() time.Time
}

func NewServer(examSvc *exam.Service, bank *questions.Bank, botToken, jwtSecret string, now func() time.Time) *Server {
	if now == nil {
		now = time.Now
	}
	s := &Server{
		exam:      examSvc,
		bank:      bank,
		botToken:  botToken,
		jwtSecret: jwtSecret,
		now:       now,
	}
	s.engine = s.buildEngine()
	return s
}

func (s *Server) buildEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	api := engine.Group("/api")
	api.POST("/auth/login", s.handleLogin)

	auth := api.Group("", s.authRequired())
	auth.GET("/user/me", s.handleMe)
	auth.PUT("/user/settings", s.handleUpdateSettings)
	auth.GET("/questions", s.handleQuestions)
	auth.GET("/tests", s.handleTests)
	auth.POST("/sessions/start", s.handleSessionStart)
	auth.POST("/sessions/:id/respond", s.handleSessionRespond)
	auth.POST("/sessions/:id/complete", s.handleSessionComplete)
	auth.GET("/history", s.handleHistory)
	auth.GET("/history/:id", s.handleHistoryDetail)
	auth.GET("/progress/weekly", s.handleWeeklyProgress)
	auth.GET("/progress/streak", s.handleStreak)
	auth.GET("/referral", s.handleReferral)

	return engine
}

// Run blocks serving HTTP on addr.
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

// Handler exposes the engine for tests.
func (s *Server) Handler() *gin.Engine {
	return s.engine
}

const userIDKey = "user_id"

func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			c.AbortWithStatusJSON(401, gin.H{"error": "unauthorized"})
			return
		}
		userID, err := parseToken(s.jwtSecret, token)
		if err != nil {
			c.AbortWithStatusJSON(401, gin.H{"error": "unauthorized"})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}
