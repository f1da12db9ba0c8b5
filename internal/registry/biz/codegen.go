package biz

import (
	"encoding/base64"

	"github.com/google/uuid"
)

// CodeLength 链接码和文件唯一码的长度
const CodeLength = 18

// CodeGenerator 生成不可猜测的 URL 安全短码
type CodeGenerator func() string

// NewCode returns the first 18 characters of the unpadded base64url encoding of a random UUID.
func NewCode() string {
	id := uuid.New()
	return base64.RawURLEncoding.EncodeToString(id[:])[:CodeLength]
}
