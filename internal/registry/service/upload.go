package service

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
	"github.com/lk2023060901/filestore-backend/internal/pkg/logger"
	"github.com/lk2023060901/filestore-backend/internal/pkg/response"
	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
	"go.uber.org/zap"
)

// UploadService 上传会话接口
type UploadService struct {
	uc      *biz.UploadUseCase
	blobs   BlobUploader
	maxSize int64
	logger  *logger.Logger
}

// NewUploadService 创建上传服务。blobs 为 nil 时不接受 multipart 上传。
func NewUploadService(uc *biz.UploadUseCase, blobs BlobUploader, opts Options, logger *logger.Logger) *UploadService {
	return &UploadService{
		uc:      uc,
		blobs:   blobs,
		maxSize: opts.MaxUploadSize,
		logger:  logger,
	}
}

// RegisterRoutes registers upload session routes
func (s *UploadService) RegisterRoutes(r *gin.RouterGroup) {
	uploads := r.Group("/uploads")
	{
		uploads.POST("", s.StartUploadSession)
		uploads.GET("", s.CurrentSession)
		uploads.DELETE("", s.CancelUpload)
		uploads.POST("/begin", s.BeginUpload)
		uploads.POST("/choose", s.ChooseGroup)
		uploads.POST("/files", s.IngestFile)
		uploads.POST("/finish", s.FinishUpload)
	}
}

// StartUploadSession 打开指定分组（不存在时按名称创建）的上传会话
func (s *UploadService) StartUploadSession(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}

	var req StartUploadRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.empty() {
		response.HandleError(c, apperrors.New(apperrors.ErrInvalidParams, "group_id or group_name is required"))
		return
	}

	session, err := s.uc.StartUploadSession(c.Request.Context(), actorID, req.ref(), req.Mode)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Created(c, toSessionResponse(session))
}

// BeginUpload 打开等待选择分组的上传会话
func (s *UploadService) BeginUpload(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}

	var req BeginUploadRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := s.uc.BeginUpload(c.Request.Context(), actorID, req.Mode)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Created(c, toSessionResponse(session))
}

// ChooseGroup 为等待中的会话选择分组
func (s *UploadService) ChooseGroup(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}

	var req ChooseGroupRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.empty() {
		response.HandleError(c, apperrors.New(apperrors.ErrInvalidParams, "group_id or group_name is required"))
		return
	}

	session, err := s.uc.ChooseGroup(c.Request.Context(), actorID, req.ref(), req.Create)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toSessionResponse(session))
}

// IngestFile 登记文件。JSON 请求携带传输层已存储的 storage_handle；
// multipart 请求把 file 字段写入对象存储后再登记。
func (s *UploadService) IngestFile(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}

	if strings.HasPrefix(c.ContentType(), binding.MIMEMultipartPOSTForm) {
		s.ingestMultipart(c, actorID)
		return
	}

	var req IngestFileRequest
	if !bindJSON(c, &req) {
		return
	}

	att, err := req.attachment()
	if err != nil {
		response.HandleError(c, err)
		return
	}

	res, err := s.uc.IngestFile(c.Request.Context(), actorID, req.SessionID, att, req.StorageHandle)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Created(c, &IngestResponse{
		File:    toFileResponse(res.File),
		Session: toSessionResponse(res.Session),
	})
}

func (s *UploadService) ingestMultipart(c *gin.Context, actorID int64) {
	if s.blobs == nil {
		response.HandleError(c, apperrors.New(apperrors.ErrBadRequest, "blob storage is not configured"))
		return
	}
	if s.maxSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxSize)
	}

	var req IngestFileRequest
	if err := c.ShouldBindWith(&req, binding.FormMultipart); err != nil {
		response.HandleError(c, apperrors.New(apperrors.ErrInvalidParams, err.Error()))
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		response.HandleError(c, apperrors.New(apperrors.ErrInvalidParams, "file is required"))
		return
	}
	if req.Kind == "" {
		req.Kind = biz.KindDocument
	}
	if req.FileName == "" {
		req.FileName = fh.Filename
	}
	req.FileSize = fh.Size
	req.StorageHandle = ""

	att, err := req.attachment()
	if err != nil {
		response.HandleError(c, err)
		return
	}

	src, err := fh.Open()
	if err != nil {
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrBadRequest, "failed to read upload"))
		return
	}
	defer src.Close()

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ctx := c.Request.Context()
	handle, err := s.blobs.Put(ctx, att.Name(), src, fh.Size, contentType)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	res, err := s.uc.IngestFile(ctx, actorID, req.SessionID, att, handle)
	if err != nil {
		// 登记失败时对象无人引用，尽力删除
		if rmErr := s.blobs.Remove(ctx, []string{handle}); rmErr != nil {
			s.logger.WithContext(ctx).Warn("orphan upload not removed", zap.String("handle", handle), zap.Error(rmErr))
		}
		response.HandleError(c, err)
		return
	}

	response.Created(c, &IngestResponse{
		File:    toFileResponse(res.File),
		Session: toSessionResponse(res.Session),
	})
}

// FinishUpload 结束会话并返回汇总
func (s *UploadService) FinishUpload(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}

	summary, err := s.uc.FinishUpload(c.Request.Context(), actorID)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, summary)
}

// CancelUpload 取消会话，已提交的文件保留
func (s *UploadService) CancelUpload(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}

	if err := s.uc.CancelUpload(c.Request.Context(), actorID); err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, nil)
}

// CurrentSession 当前会话
func (s *UploadService) CurrentSession(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}

	session, err := s.uc.CurrentSession(c.Request.Context(), actorID)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, &CurrentSessionResponse{Session: toSessionResponse(session)})
}
