package minio

import (
	"fmt"
	"mime"
	"net"
	"path"
	"regexp"
	"strings"
)

const (
	maxObjectNameLen = 1024
	fallbackBlobName = "blob"
	octetStream      = "application/octet-stream"
)

var bucketNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9\-]{1,61}[a-z0-9]$`)

// S3 保留的 bucket 前后缀
var reservedBucketAffixes = struct{ prefix, suffix []string }{
	prefix: []string{"xn--", "sthree-"},
	suffix: []string{"-s3alias", "--ol-s3"},
}

// ValidateBucketName 按 S3 命名规则校验 bucket，启动时在 Config.Validate 中调用
func ValidateBucketName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("bucket name is required")
	case !bucketNamePattern.MatchString(name):
		return fmt.Errorf("bucket %q: 3-63 lowercase letters, digits or hyphens, starting and ending alphanumeric", name)
	case strings.Contains(name, "--"):
		return fmt.Errorf("bucket %q: consecutive hyphens are not allowed", name)
	case net.ParseIP(name) != nil:
		return fmt.Errorf("bucket %q: must not look like an IP address", name)
	}

	for _, p := range reservedBucketAffixes.prefix {
		if strings.HasPrefix(name, p) {
			return fmt.Errorf("bucket %q: reserved prefix %q", name, p)
		}
	}
	for _, s := range reservedBucketAffixes.suffix {
		if strings.HasSuffix(name, s) {
			return fmt.Errorf("bucket %q: reserved suffix %q", name, s)
		}
	}
	return nil
}

func validObjectName(key string) bool {
	return key != "" && len(key) <= maxObjectNameLen && !strings.ContainsRune(key, 0)
}

// contentTypeFor 根据附件文件名猜测 Content-Type，用于客户端没有声明类型的上传
func contentTypeFor(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return octetStream
}

// ObjectKey builds "<prefix>/<id>/<base name>" for a stored attachment.
// 原始文件名只保留最后一段，避免用户提交的 "../" 跳出前缀。
func ObjectKey(prefix, id, fileName string) string {
	name := strings.ReplaceAll(fileName, "\x00", "")
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		name = fallbackBlobName
	}

	parts := []string{id, name}
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		parts = append([]string{prefix}, parts...)
	}
	return strings.Join(parts, "/")
}
