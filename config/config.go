// Package config, uygulamanın tüm konfigürasyonunu merkezi olarak yönetir.
// Environment variable'lardan okur, .env dosyasını da destekler.
//
// Config struct'ı tüm ayarları tek bir yerde toplar, böylece
// her yerde ayrı ayrı os.Getenv() çağırmak yerine tek bir Config nesnesi taşırız.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config, uygulamanın tüm konfigürasyon değerlerini taşır.
// Her alt bölüm ayrı bir struct: her struct tek bir concern'ü temsil eder.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Chat       ChatConfig
	RateLimit  RateLimitConfig
	Membership MembershipConfig
}

// ServerConfig, HTTP server ayarları.
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // CORS izinli origin listesi
}

// DatabaseConfig, SQLite database ayarları.
type DatabaseConfig struct {
	Path string // SQLite dosya yolu (ör: ./data/teamchat.db)
}

// JWTConfig, access token doğrulama ayarları.
// Token üretimi bu servisin işi değildir: sadece doğrulama yapılır.
type JWTConfig struct {
	Secret string // Token imzalama anahtarı. GİZLİ TUTULMALI
}

// ChatConfig, takım sohbeti davranış ayarları.
type ChatConfig struct {
	MaxMessageLength int           // Rune cinsinden (varsayılan: 2000)
	AutoJoinOnSend   bool          // Katılmadan gönderilen mesajda otomatik join (false → not_joined hatası)
	JoinAllOnConnect bool          // Bağlantıda üye olunan tüm takımlara otomatik join
	TypingWindow     time.Duration // Client'lara ready event'inde bildirilen typing süresi
}

// RateLimitConfig, mesaj ve bağlantı rate limit ayarları.
type RateLimitConfig struct {
	MessageMax      int
	MessageWindow   time.Duration
	MessageCooldown time.Duration
	ConnectMax      int
	ConnectWindow   time.Duration
}

// MembershipConfig, takım üyeliği lookup ayarları.
type MembershipConfig struct {
	CacheTTL time.Duration
	// Seed, development için başlangıç üyelikleri: teamID → userID listesi.
	// Boşsa tabloya dokunulmaz.
	Seed map[string][]string
}

// Load, environment variable'lardan Config oluşturur.
// .env dosyası varsa önce onu yükler (development kolaylığı için).
func Load() (*Config, error) {
	// .env dosyası yoksa hata vermez, sessizce devam eder.
	_ = godotenv.Load()

	port, err := getEnvInt("SERVER_PORT", 9090)
	if err != nil {
		return nil, err
	}

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	maxLen, err := getEnvInt("CHAT_MAX_MESSAGE_LENGTH", 2000)
	if err != nil {
		return nil, err
	}
	if maxLen < 1 {
		return nil, fmt.Errorf("invalid CHAT_MAX_MESSAGE_LENGTH: must be positive")
	}

	autoJoin, err := getEnvBool("CHAT_AUTO_JOIN_ON_SEND", true)
	if err != nil {
		return nil, err
	}

	joinAll, err := getEnvBool("CHAT_JOIN_ALL_ON_CONNECT", false)
	if err != nil {
		return nil, err
	}

	typingMS, err := getEnvInt("CHAT_TYPING_WINDOW_MS", 2000)
	if err != nil {
		return nil, err
	}

	msgMax, err := getEnvInt("CHAT_MESSAGE_RATE_MAX", 5)
	if err != nil {
		return nil, err
	}
	msgWindow, err := getEnvInt("CHAT_MESSAGE_RATE_WINDOW_SECONDS", 5)
	if err != nil {
		return nil, err
	}
	msgCooldown, err := getEnvInt("CHAT_MESSAGE_RATE_COOLDOWN_SECONDS", 15)
	if err != nil {
		return nil, err
	}

	connectMax, err := getEnvInt("WS_CONNECT_RATE_MAX", 20)
	if err != nil {
		return nil, err
	}
	connectWindow, err := getEnvInt("WS_CONNECT_RATE_WINDOW_SECONDS", 60)
	if err != nil {
		return nil, err
	}

	cacheTTL, err := getEnvInt("MEMBERSHIP_CACHE_TTL_SECONDS", 30)
	if err != nil {
		return nil, err
	}

	seed, err := ParseMemberships(getEnv("CHAT_SEED_MEMBERSHIPS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid CHAT_SEED_MEMBERSHIPS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "./data/teamchat.db"),
		},
		JWT: JWTConfig{
			Secret: jwtSecret,
		},
		Chat: ChatConfig{
			MaxMessageLength: maxLen,
			AutoJoinOnSend:   autoJoin,
			JoinAllOnConnect: joinAll,
			TypingWindow:     time.Duration(typingMS) * time.Millisecond,
		},
		RateLimit: RateLimitConfig{
			MessageMax:      msgMax,
			MessageWindow:   time.Duration(msgWindow) * time.Second,
			MessageCooldown: time.Duration(msgCooldown) * time.Second,
			ConnectMax:      connectMax,
			ConnectWindow:   time.Duration(connectWindow) * time.Second,
		},
		Membership: MembershipConfig{
			CacheTTL: time.Duration(cacheTTL) * time.Second,
			Seed:     seed,
		},
	}

	return cfg, nil
}

// Addr, HTTP server'ın dinleyeceği adresi döner (ör: "0.0.0.0:9090").
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ParseMemberships, "ops:alice,bob;sales:bob" formatındaki üyelik listesini parse eder.
//
// Boş string → nil map (seed yok).
func ParseMemberships(raw string) (map[string][]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	out := make(map[string][]string)
	for _, group := range strings.Split(raw, ";") {
		group = strings.TrimSpace(group)
		if group == "" {
			continue
		}

		teamID, users, ok := strings.Cut(group, ":")
		teamID = strings.TrimSpace(teamID)
		if !ok || teamID == "" {
			return nil, fmt.Errorf("malformed group %q, expected team:user1,user2", group)
		}

		out[teamID] = append(out[teamID], splitList(users)...)
	}
	return out, nil
}

// getEnv, environment variable'ı okur, yoksa fallback değeri döner.
func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(val))
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

// splitList, virgülle ayrılmış listeyi boşlukları temizleyerek böler.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
