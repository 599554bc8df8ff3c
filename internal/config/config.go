package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port             int
	DataPath         string
	DBPath           string
	SubtitlePath     string
	ClipPath         string
	TmpPath          string
	JWTSecret        string
	AdminUsername    string
	AdminPassword    string
	CORSOrigins      []string
	DefaultLang      string
	YtdlpPath        string
	CookiesBrowser   string
	WhisperURL       string
	FasterWhisperURL string
	WhisperModel     string
	OpenAIKey        string
	EmbeddingURL     string
	EmbeddingModel   string
	MinScore         float64
	TopK             int
	ClipMaxSeconds   float64
	FontFile         string
}

func Load() *Config {
	port, _ := strconv.Atoi(getEnv("PORT", "8080"))
	dataPath := getEnv("DATA_PATH", "/data")

	// JWT secret: require explicit setting or generate random
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			log.Fatalf("Failed to generate random JWT secret: %v", err)
		}
		jwtSecret = hex.EncodeToString(b)
		log.Println("WARNING: JWT_SECRET not set, using random secret. Sessions will not survive restarts. Set JWT_SECRET env var for persistent sessions.")
	}

	// CORS origins: comma-separated list or "*" (default)
	corsOrigins := []string{"*"}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		corsOrigins = make([]string, 0, len(origins))
		for _, o := range origins {
			o = strings.TrimSpace(o)
			if o != "" {
				corsOrigins = append(corsOrigins, o)
			}
		}
	}

	minScore, err := strconv.ParseFloat(getEnv("MIN_SCORE", "0.25"), 64)
	if err != nil {
		minScore = 0.25
	}
	topK, _ := strconv.Atoi(getEnv("TOP_K", "10"))
	clipMax, err := strconv.ParseFloat(getEnv("CLIP_MAX_SECONDS", "10"), 64)
	if err != nil {
		clipMax = 10
	}

	return &Config{
		Port:             port,
		DataPath:         dataPath,
		DBPath:           getEnv("DB_PATH", dataPath+"/gifsubs.db"),
		SubtitlePath:     getEnv("SUB_PATH", dataPath+"/subs"),
		ClipPath:         getEnv("GIF_PATH", dataPath+"/gifs"),
		TmpPath:          getEnv("TMP_PATH", dataPath+"/tmp"),
		JWTSecret:        jwtSecret,
		AdminUsername:    getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:    getEnv("ADMIN_PASSWORD", "admin"),
		CORSOrigins:      corsOrigins,
		DefaultLang:      getEnv("DEFAULT_LANG", "en"),
		YtdlpPath:        getEnv("YTDLP_PATH", "yt-dlp"),
		CookiesBrowser:   getEnv("COOKIES_BROWSER", ""),
		WhisperURL:       getEnv("WHISPER_URL", ""),
		FasterWhisperURL: getEnv("FASTER_WHISPER_URL", ""),
		WhisperModel:     getEnv("WHISPER_MODEL", "small"),
		OpenAIKey:        getEnv("OPENAI_API_KEY", ""),
		EmbeddingURL:     getEnv("EMBEDDING_URL", "http://localhost:8090"),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", ""),
		MinScore:         minScore,
		TopK:             topK,
		ClipMaxSeconds:   clipMax,
		FontFile:         getEnv("FONT_FILE", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
