package validator

import (
	"net"
	"strings"
)

// ipv6SubnetBits 同一 /64 网段视为同一个客户端
const ipv6SubnetBits = 64

// IsValidIP 验证 IP 地址格式（支持 IPv4 和 IPv6）
func IsValidIP(ip string) bool {
	if ip == "" {
		return false
	}
	return net.ParseIP(NormalizeIP(ip)) != nil
}

// NormalizeIP 移除 IPv6 的 zone identifier (例如 fe80::1%eth0 -> fe80::1)
func NormalizeIP(ip string) string {
	if idx := strings.IndexByte(ip, '%'); idx != -1 {
		return ip[:idx]
	}
	return ip
}

// ClientKey 把客户端 IP 归一化为限流用的 key：IPv4 原样返回，IPv6 聚合到 /64。
// 无法解析时返回 "unknown"。
func ClientKey(raw string) string {
	ip := net.ParseIP(NormalizeIP(raw))
	if ip == nil {
		return "unknown"
	}
	if v4 := ip.To4(); v4 != nil {
		return v4.String()
	}
	return ip.Mask(net.CIDRMask(ipv6SubnetBits, 128)).String() + "/64"
}
