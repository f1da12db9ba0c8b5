package service

import (
	"context"

	"github.com/gin-gonic/gin"
	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
	"github.com/lk2023060901/filestore-backend/internal/pkg/logger"
	"github.com/lk2023060901/filestore-backend/internal/pkg/response"
	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
	"go.uber.org/zap"
)

// FileService 文件接口
type FileService struct {
	uc        *biz.FileUseCase
	presigner Presigner
	logger    *logger.Logger
}

// NewFileService 创建文件服务。presigner 为 nil 时下载只返回 storage handle。
func NewFileService(uc *biz.FileUseCase, presigner Presigner, logger *logger.Logger) *FileService {
	return &FileService{
		uc:        uc,
		presigner: presigner,
		logger:    logger,
	}
}

// RegisterRoutes registers file routes
func (s *FileService) RegisterRoutes(r *gin.RouterGroup) {
	files := r.Group("/files")
	{
		files.GET("/search", s.SearchFiles)
		files.GET("/recent", s.ListRecentFiles)
		files.GET("/:id", s.GetFile)
		files.PATCH("/:id", s.UpdateFile)
		files.PUT("/:id/content", s.ReplaceFile)
		files.POST("/:id/download", s.DownloadFile)
		files.DELETE("/:id", s.DeleteFile)
	}
}

// SearchFiles 在当前用户的文件中按名称搜索
func (s *FileService) SearchFiles(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}

	var q SearchQuery
	if !bindQuery(c, &q) {
		return
	}

	files, err := s.uc.SearchFiles(c.Request.Context(), actorID, q.Query, q.Limit)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Items(c, toFileResponses(files))
}

// ListRecentFiles 当前用户最近上传的文件
func (s *FileService) ListRecentFiles(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}

	var q ListQuery
	if !bindQuery(c, &q) {
		return
	}

	files, err := s.uc.ListRecentFiles(c.Request.Context(), actorID, q.Limit)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Items(c, toFileResponses(files))
}

// GetFile 文件详情，会增加浏览次数
func (s *FileService) GetFile(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}
	fileID, ok := paramID(c, "id")
	if !ok {
		return
	}

	file, err := s.uc.GetFile(c.Request.Context(), actorID, fileID)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toFileResponse(file))
}

// UpdateFile 修改文件名、描述或标签
func (s *FileService) UpdateFile(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}
	fileID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req UpdateFileRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.FileName == nil && req.Caption == nil && req.Tags == nil {
		response.HandleError(c, apperrors.New(apperrors.ErrInvalidParams, "nothing to update"))
		return
	}

	ctx := c.Request.Context()
	var (
		file *biz.File
		err  error
	)
	if req.FileName != nil {
		if file, err = s.uc.RenameFile(ctx, actorID, fileID, *req.FileName); err != nil {
			response.HandleError(c, err)
			return
		}
	}
	if req.Caption != nil {
		if file, err = s.uc.EditCaption(ctx, actorID, fileID, *req.Caption); err != nil {
			response.HandleError(c, err)
			return
		}
	}
	if req.Tags != nil {
		if file, err = s.uc.SetTags(ctx, actorID, fileID, req.Tags); err != nil {
			response.HandleError(c, err)
			return
		}
	}

	response.Success(c, toFileResponse(file))
}

// ReplaceFile 替换文件内容，序号与链接保持不变
func (s *FileService) ReplaceFile(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}
	fileID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req AttachmentRequest
	if !bindJSON(c, &req) {
		return
	}

	att, err := req.attachment()
	if err != nil {
		response.HandleError(c, err)
		return
	}

	file, err := s.uc.ReplaceFile(c.Request.Context(), actorID, fileID, att)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toFileResponse(file))
}

// DownloadFile 所有者直接下载，计入下载统计
func (s *FileService) DownloadFile(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}
	fileID, ok := paramID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	file, err := s.uc.DownloadFile(ctx, actorID, fileID)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, downloadResponse(ctx, s.presigner, s.logger, file))
}

// DeleteFile 删除文件及其链接
func (s *FileService) DeleteFile(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}
	fileID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := s.uc.DeleteFile(c.Request.Context(), actorID, fileID); err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, nil)
}

// downloadResponse 组装下载结果。预签名失败不影响已经计数的下载，只是不返回 URL。
func downloadResponse(ctx context.Context, presigner Presigner, log *logger.Logger, f *biz.File) DownloadResponse {
	out := DownloadResponse{
		File:          toFileResponse(f),
		StorageHandle: f.StorageHandle,
	}
	if presigner == nil {
		return out
	}

	url, err := presigner.PresignGet(ctx, f.StorageHandle, f.FileName)
	if err != nil {
		log.WithContext(ctx).Warn("presign download url failed",
			zap.Int64("file_id", f.ID),
			zap.Error(err),
		)
		return out
	}
	out.DownloadURL = url
	return out
}
