package service

import (
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/filestore-backend/internal/pkg/logger"
	"github.com/lk2023060901/filestore-backend/internal/pkg/response"
	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
)

// UserService 用户、统计与管理接口
type UserService struct {
	uc     *biz.UserUseCase
	logger *logger.Logger
}

// NewUserService 创建用户服务
func NewUserService(uc *biz.UserUseCase, logger *logger.Logger) *UserService {
	return &UserService{
		uc:     uc,
		logger: logger,
	}
}

// RegisterRoutes registers user, leaderboard and admin routes
func (s *UserService) RegisterRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	{
		users.POST("", s.RegisterUser)
		users.GET("/me/stats", s.UserStats)
	}

	r.GET("/leaderboard", s.Leaderboard)

	admin := r.Group("/admin")
	{
		admin.GET("/stats", s.AdminStats)
		admin.POST("/users/:id/deactivate", s.DeactivateUser)
	}
}

// RegisterUser 注册或更新当前用户
func (s *UserService) RegisterUser(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}

	var req RegisterUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := s.uc.RegisterUser(c.Request.Context(), actorID, req.DisplayName, req.Username)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toUserResponse(user))
}

// UserStats 当前用户的上传下载统计
func (s *UserService) UserStats(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}

	stats, err := s.uc.UserStats(c.Request.Context(), actorID)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, stats)
}

// Leaderboard 上传排行榜
func (s *UserService) Leaderboard(c *gin.Context) {
	var q ListQuery
	if !bindQuery(c, &q) {
		return
	}

	top, err := s.uc.Leaderboard(c.Request.Context(), q.Limit)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Items(c, top)
}

// DeactivateUser 停用用户（仅管理员）
func (s *UserService) DeactivateUser(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}
	userID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := s.uc.DeactivateUser(c.Request.Context(), actorID, userID); err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, nil)
}

// AdminStats 全局统计（仅管理员）
func (s *UserService) AdminStats(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}

	stats, err := s.uc.AdminStats(c.Request.Context(), actorID)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, stats)
}
