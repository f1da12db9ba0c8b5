package service

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/filestore-backend/internal/auth/middleware"
	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
	"github.com/lk2023060901/filestore-backend/internal/pkg/logger"
	"github.com/lk2023060901/filestore-backend/internal/pkg/response"
	"github.com/lk2023060901/filestore-backend/internal/registry/biz"
	"github.com/skip2/go-qrcode"
)

const defaultQRSize = 256

// LinkService 分享链接接口
type LinkService struct {
	uc           *biz.LinkUseCase
	presigner    Presigner
	shareBaseURL string
	logger       *logger.Logger
}

// NewLinkService 创建链接服务
func NewLinkService(uc *biz.LinkUseCase, presigner Presigner, opts Options, logger *logger.Logger) *LinkService {
	return &LinkService{
		uc:           uc,
		presigner:    presigner,
		shareBaseURL: opts.ShareBaseURL,
		logger:       logger,
	}
}

// RegisterRoutes registers the owner-side link routes
func (s *LinkService) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/files/:id/links", s.IssueLink)

	links := r.Group("/links")
	{
		links.GET("", s.ListLinks)
		links.GET("/presets", s.ExpiryPresets)
		links.GET("/:code", s.GetLink)
		links.PATCH("/:code", s.ExtendLink)
		links.DELETE("/:code", s.RevokeLink)
		links.GET("/:code/qr", s.LinkQRCode)
	}
}

// RegisterPublicRoutes registers redemption, which works without a token.
// handlers run before the redeem handler (optional auth, rate limiting).
func (s *LinkService) RegisterPublicRoutes(r *gin.RouterGroup, handlers ...gin.HandlerFunc) {
	chain := append(append([]gin.HandlerFunc{}, handlers...), s.RedeemLink)
	r.POST("/links/:code/redeem", chain...)
}

func (s *LinkService) toLinkResponse(l *biz.Link) *LinkResponse {
	out := &LinkResponse{
		Code:               l.Code,
		FileID:             l.FileID,
		GroupID:            l.GroupID,
		OwnerID:            l.OwnerID,
		CreatedAt:          l.CreatedAt,
		ExpiresAt:          l.ExpiresAt,
		MaxUses:            l.MaxUses,
		CurrentUses:        l.CurrentUses,
		Active:             l.Active,
		DeactivationReason: string(l.DeactivationReason),
		DeactivatedAt:      l.DeactivatedAt,
	}
	if s.shareBaseURL != "" {
		out.ShareURL = s.shareBaseURL + l.Code
	}
	return out
}

func (s *LinkService) toLinkResponses(links []*biz.Link) []*LinkResponse {
	out := make([]*LinkResponse, 0, len(links))
	for _, l := range links {
		out = append(out, s.toLinkResponse(l))
	}
	return out
}

// IssueLink 为文件创建分享链接
func (s *LinkService) IssueLink(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}
	fileID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req IssueLinkRequest
	if !bindJSON(c, &req) {
		return
	}

	ttl, err := parseTTL(req.TTL)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	link, err := s.uc.IssueLink(c.Request.Context(), actorID, fileID, ttl, req.MaxUses)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Created(c, s.toLinkResponse(link))
}

// ListLinks 当前用户的链接，最新的在前
func (s *LinkService) ListLinks(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}

	var q ListQuery
	if !bindQuery(c, &q) {
		return
	}

	links, err := s.uc.ListLinks(c.Request.Context(), actorID, q.Limit)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Items(c, s.toLinkResponses(links))
}

// ExpiryPresets 可选的有效期
func (s *LinkService) ExpiryPresets(c *gin.Context) {
	response.Items(c, toPresetResponses(biz.ExpiryPresets()))
}

// GetLink 链接详情（仅所有者）
func (s *LinkService) GetLink(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}

	link, err := s.uc.GetLink(c.Request.Context(), actorID, c.Param("code"))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, s.toLinkResponse(link))
}

// ExtendLink 修改有效期，"never" 取消过期时间
func (s *LinkService) ExtendLink(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}

	var req ExtendLinkRequest
	if !bindJSON(c, &req) {
		return
	}

	ttl, err := parseTTL(req.TTL)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	link, err := s.uc.ExtendLink(c.Request.Context(), actorID, c.Param("code"), ttl)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, s.toLinkResponse(link))
}

// RevokeLink 撤销链接，重复撤销无副作用
func (s *LinkService) RevokeLink(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}

	if err := s.uc.RevokeLink(c.Request.Context(), actorID, c.Param("code")); err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, nil)
}

// LinkQRCode 分享地址的二维码 PNG
func (s *LinkService) LinkQRCode(c *gin.Context) {
	actorID, ok := actor(c)
	if !ok {
		return
	}
	if s.shareBaseURL == "" {
		response.HandleError(c, apperrors.New(apperrors.ErrBadRequest, "share base url is not configured"))
		return
	}

	var q QRQuery
	if !bindQuery(c, &q) {
		return
	}
	if q.Size == 0 {
		q.Size = defaultQRSize
	}

	link, err := s.uc.GetLink(c.Request.Context(), actorID, c.Param("code"))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	png, err := qrcode.Encode(s.shareBaseURL+link.Code, qrcode.Medium, q.Size)
	if err != nil {
		response.HandleError(c, apperrors.Wrap(err, apperrors.ErrInternalServer, "failed to render qr code"))
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// RedeemLink 兑换链接。匿名可用，已认证时计入兑换者的下载统计。
func (s *LinkService) RedeemLink(c *gin.Context) {
	redeemerID, _ := middleware.GetActorID(c)

	ctx := c.Request.Context()
	res, err := s.uc.RedeemLink(ctx, c.Param("code"), redeemerID)
	if err != nil {
		// 已撤销与不存在对外不可区分
		if apperrors.Is(err, apperrors.ErrLinkRevoked) {
			err = apperrors.New(apperrors.ErrLinkNotFound)
		}
		response.HandleError(c, err)
		return
	}

	response.Success(c, &RedeemResponse{
		DownloadResponse: downloadResponse(ctx, s.presigner, s.logger, res.File),
		Link:             s.toLinkResponse(res.Link),
	})
}
