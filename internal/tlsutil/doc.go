// Package tlsutil 为 npcagent 的两类出站连接构造 TLS 客户端：
// 规划服务的 HTTP 请求与游戏后端的 WebSocket 升级握手。
// 两者共享同一份客户端 TLS 设置（TLS 1.2+，仅 AEAD 密码套件）。
package tlsutil
