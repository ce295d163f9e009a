package tlsutil

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// aeadSuites TLS 1.2 下允许的密码套件；TLS 1.3 的套件由标准库固定
var aeadSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
}

// ClientTLSConfig 出站连接使用的 TLS 设置，每次返回新副本
func ClientTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		CipherSuites: append([]uint16(nil), aeadSuites...),
	}
}

// transportOptions 区分规划请求与后端握手的连接池形态
type transportOptions struct {
	idlePerHost int
	http2       bool
}

func newTransport(o transportOptions) *http.Transport {
	if o.idlePerHost <= 0 {
		o.idlePerHost = http.DefaultMaxIdleConnsPerHost
	}
	return &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: ClientTLSConfig(),
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     o.http2,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   o.idlePerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
}

// PlannerClient 规划服务客户端。整支舰队的 NPC 共用同一规划端点，
// idlePerHost 即希望保持的并发空闲连接数，<=0 使用标准库默认值。
func PlannerClient(timeout time.Duration, idlePerHost int) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: newTransport(transportOptions{idlePerHost: idlePerHost, http2: true}),
	}
}

// BackendDialClient 游戏后端 WebSocket 握手客户端。
// 升级只能走 HTTP/1.1；没有整体超时，握手期限由拨号 ctx 决定，升级后的连接不受 Client.Timeout 约束。
func BackendDialClient() *http.Client {
	return &http.Client{Transport: newTransport(transportOptions{})}
}
