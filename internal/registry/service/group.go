package service

import (
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/filestore-backend/internal/pkg/response"
	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
)

// GroupService 分组接口
type GroupService struct {
	groups *biz.GroupUseCase
	files  *biz.FileUseCase
}

// NewGroupService 创建分组服务
func NewGroupService(groups *biz.GroupUseCase, files *biz.FileUseCase) *GroupService {
	return &GroupService{
		groups: groups,
		files:  files,
	}
}

// RegisterRoutes registers group routes
func (s *GroupService) RegisterRoutes(r *gin.RouterGroup) {
	groups := r.Group("/groups")
	{
		groups.POST("", s.CreateGroup)
		groups.GET("", s.ListGroups)
		groups.PATCH("/:id", s.RenameGroup)
		groups.DELETE("/:id", s.DeleteGroup)
		groups.GET("/:id/files", s.ListFiles)
		groups.GET("/:id/files/:serial", s.FindFileBySerial)
	}
}

// CreateGroup 创建分组
func (s *GroupService) CreateGroup(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}

	var req GroupNameRequest
	if !bindJSON(c, &req) {
		return
	}

	group, err := s.groups.CreateGroup(c.Request.Context(), actorID, req.Name)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Created(c, toGroupResponse(group))
}

// ListGroups 当前用户的分组，最新的在前
func (s *GroupService) ListGroups(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}

	var q ListQuery
	if !bindQuery(c, &q) {
		return
	}

	groups, err := s.groups.ListGroups(c.Request.Context(), actorID, q.Limit)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Items(c, toGroupResponses(groups))
}

// RenameGroup 重命名分组
func (s *GroupService) RenameGroup(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}
	groupID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req GroupNameRequest
	if !bindJSON(c, &req) {
		return
	}

	group, err := s.groups.RenameGroup(c.Request.Context(), actorID, groupID, req.Name)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toGroupResponse(group))
}

// DeleteGroup 删除分组及其中的文件和链接
func (s *GroupService) DeleteGroup(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}
	groupID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := s.groups.DeleteGroup(c.Request.Context(), actorID, groupID); err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, nil)
}

// ListFiles 分组内的文件，序号倒序
func (s *GroupService) ListFiles(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}
	groupID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var q ListQuery
	if !bindQuery(c, &q) {
		return
	}

	files, err := s.files.ListFiles(c.Request.Context(), actorID, groupID, q.Limit)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Items(c, toFileResponses(files))
}

// FindFileBySerial 按组内序号查找文件
func (s *GroupService) FindFileBySerial(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}
	groupID, ok := paramID(c, "id")
	if !ok {
		return
	}
	serial, ok := paramID(c, "serial")
	if !ok {
		return
	}

	file, err := s.files.FindFileBySerial(c.Request.Context(), actorID, groupID, serial)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toFileResponse(file))
}
