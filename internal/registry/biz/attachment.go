package biz

import (
	"strings"

	apperrors "github.com/lk2023060901/filestore-backend/internal/pkg/errors"
)

// AttachmentKind 附件类型
type AttachmentKind string

const (
	KindDocument AttachmentKind = "document"
	KindPhoto    AttachmentKind = "photo"
	KindVideo    AttachmentKind = "video"
	KindAudio    AttachmentKind = "audio"
	KindVoice    AttachmentKind = "voice"
)

// AllKinds lists every attachment kind the registry accepts
var AllKinds = []AttachmentKind{KindDocument, KindPhoto, KindVideo, KindAudio, KindVoice}

// Attachment is an inbound file as delivered by the transport.
// The set of implementations is closed: Document, Photo, Video, Audio and Voice.
type Attachment interface {
	Kind() AttachmentKind
	Name() string
	Size() int64
	StorageHandle() string

	attachment()
}

// Document 普通文件，必须带文件名
type Document struct {
	FileName string
	FileSize int64
	Handle   string
}

func (d Document) Kind() AttachmentKind  { return KindDocument }
func (d Document) Name() string          { return d.FileName }
func (d Document) Size() int64           { return d.FileSize }
func (d Document) StorageHandle() string { return d.Handle }
func (Document) attachment()             {}

// Photo 图片，没有文件名，按 content code 命名
type Photo struct {
	ContentCode string
	FileSize    int64
	Handle      string
}

func (p Photo) Kind() AttachmentKind  { return KindPhoto }
func (p Photo) Name() string          { return "photo_" + p.ContentCode + ".jpg" }
func (p Photo) Size() int64           { return p.FileSize }
func (p Photo) StorageHandle() string { return p.Handle }
func (Photo) attachment()             {}

// Video 视频，文件名可选
type Video struct {
	FileName    string
	ContentCode string
	FileSize    int64
	Handle      string
}

func (v Video) Kind() AttachmentKind  { return KindVideo }
func (v Video) Name() string          { return nameOr(v.FileName, "video_"+v.ContentCode) }
func (v Video) Size() int64           { return v.FileSize }
func (v Video) StorageHandle() string { return v.Handle }
func (Video) attachment()             {}

// Audio 音频，文件名可选
type Audio struct {
	FileName    string
	ContentCode string
	FileSize    int64
	Handle      string
}

func (a Audio) Kind() AttachmentKind  { return KindAudio }
func (a Audio) Name() string          { return nameOr(a.FileName, "audio_"+a.ContentCode) }
func (a Audio) Size() int64           { return a.FileSize }
func (a Audio) StorageHandle() string { return a.Handle }
func (Audio) attachment()             {}

// Voice 语音消息
type Voice struct {
	ContentCode string
	FileSize    int64
	Handle      string
}

func (v Voice) Kind() AttachmentKind  { return KindVoice }
func (v Voice) Name() string          { return "voice_" + v.ContentCode }
func (v Voice) Size() int64           { return v.FileSize }
func (v Voice) StorageHandle() string { return v.Handle }
func (Voice) attachment()             {}

func nameOr(name, fallback string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	return fallback
}

// NewAttachment builds the variant for kind. name is ignored for photos and voice notes.
func NewAttachment(kind AttachmentKind, name, contentCode string, size int64, handle string) (Attachment, error) {
	switch kind {
	case KindDocument:
		if strings.TrimSpace(name) == "" {
			return nil, apperrors.New(apperrors.ErrInvalidAttachment, "document requires a file name")
		}
		return Document{FileName: name, FileSize: size, Handle: handle}, nil
	case KindPhoto:
		return Photo{ContentCode: contentCode, FileSize: size, Handle: handle}, nil
	case KindVideo:
		return Video{FileName: name, ContentCode: contentCode, FileSize: size, Handle: handle}, nil
	case KindAudio:
		return Audio{FileName: name, ContentCode: contentCode, FileSize: size, Handle: handle}, nil
	case KindVoice:
		return Voice{ContentCode: contentCode, FileSize: size, Handle: handle}, nil
	default:
		return nil, apperrors.New(apperrors.ErrUnsupportedFileType, string(kind))
	}
}
