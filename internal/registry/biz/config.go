package biz

import "time"

// Config 注册中心业务配置
type Config struct {
	AdminIDs         []int64
	AllowListEnabled bool
	AllowedUserIDs   []int64

	StoreTimeout     time.Duration
	SerialMaxRetries int
	CodeMaxRetries   int
	TransientRetries int
	TransientBackoff time.Duration

	MaxGroupNameLen int
	MaxFileSize     int64 // 0 表示不限制
	AllowedKinds    []AttachmentKind

	GroupListLimit int
	FileListLimit  int
	LinkListLimit  int
	SearchLimit    int
	MaxListLimit   int
	SweepBatchSize int
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		StoreTimeout:     5 * time.Second,
		SerialMaxRetries: 5,
		CodeMaxRetries:   5,
		TransientRetries: 3,
		TransientBackoff: 50 * time.Millisecond,
		MaxGroupNameLen:  80,
		AllowedKinds:     AllKinds,
		GroupListLimit:   12,
		FileListLimit:    12,
		LinkListLimit:    25,
		SearchLimit:      25,
		MaxListLimit:     100,
		SweepBatchSize:   500,
	}
}

func (c *Config) withDefaults() *Config {
	def := DefaultConfig()
	if c == nil {
		return def
	}
	out := *c
	if out.StoreTimeout <= 0 {
		out.StoreTimeout = def.StoreTimeout
	}
	if out.SerialMaxRetries <= 0 {
		out.SerialMaxRetries = def.SerialMaxRetries
	}
	if out.CodeMaxRetries <= 0 {
		out.CodeMaxRetries = def.CodeMaxRetries
	}
	if out.TransientRetries <= 0 {
		out.TransientRetries = def.TransientRetries
	}
	if out.TransientBackoff <= 0 {
		out.TransientBackoff = def.TransientBackoff
	}
	if out.MaxGroupNameLen <= 0 {
		out.MaxGroupNameLen = def.MaxGroupNameLen
	}
	if len(out.AllowedKinds) == 0 {
		out.AllowedKinds = def.AllowedKinds
	}
	if out.GroupListLimit <= 0 {
		out.GroupListLimit = def.GroupListLimit
	}
	if out.FileListLimit <= 0 {
		out.FileListLimit = def.FileListLimit
	}
	if out.LinkListLimit <= 0 {
		out.LinkListLimit = def.LinkListLimit
	}
	if out.SearchLimit <= 0 {
		out.SearchLimit = def.SearchLimit
	}
	if out.MaxListLimit <= 0 {
		out.MaxListLimit = def.MaxListLimit
	}
	if out.SweepBatchSize <= 0 {
		out.SweepBatchSize = def.SweepBatchSize
	}
	return &out
}
