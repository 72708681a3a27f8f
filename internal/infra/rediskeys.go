package infra

import "fmt"

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "clickpulse"
)

// Ключи для Sets и строк (состояние)
const (
	RedisKeyRealtimeUnits = RedisNamespace + ":units:realtime_set"
	RedisKeyLockRealtime  = RedisNamespace + ":lock:warmup:realtime"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanRealtime "<domain>:on|off", включение real-time режима юнита
	RedisChanRealtime = RedisNamespace + ":units:realtime-signal"
	// RedisChanRefresh "<domain>:now" или "all:now", принудительное обновление
	RedisChanRefresh = RedisNamespace + ":units:refresh-signal"
	// RedisChanSnapshots снимки состояния юнитов после каждой фиксации
	RedisChanSnapshots = RedisNamespace + ":units:snapshots"
)

// SnapshotKey последний снимок юнита, для инстансов, которые подключились позже
func SnapshotKey(domain string) string {
	return fmt.Sprintf("%s:units:snapshot:%s", RedisNamespace, domain)
}
