package config

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/davronov/tg-speaking-exam/pkg/logger"
	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig `json:"database"`
	Telegram TelegramConfig `json:"telegram"`
	Speech   SpeechConfig   `json:"speech"`
	Scoring  ScoringConfig  `json:"scoring"`
	Exam     ExamConfig     `json:"exam"`
	Server   ServerConfig   `json:"server"`
	Logging  LoggingConfig  `json:"logging"`
}

type DatabaseConfig struct {
	Driver   string `json:"driver"` // "postgres" or "sqlite"
	Host     string `json:"host"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	Port     int    `json:"port"`
	SSLMode  string `json:"sslmode"`
	Path     string `json:"path"` // sqlite only
}

type TelegramConfig struct {
	Token       string  `json:"token"`
	BotUsername string  `json:"bot_username"` // for referral deep links
	Channel     string  `json:"channel"`      // required channel, e.g. "@MultilevelSpeaking9"
	WebAppURL   string  `json:"webapp_url"`
	AdminIDs    []int64 `json:"admin_ids"`
}

type SpeechConfig struct {
	TranscribeAPIKey  string `json:"transcribe_api_key"`
	TranscribeBaseURL string `json:"transcribe_base_url"` // OpenAI-compatible, e.g. Groq
	TranscribeModel   string `json:"transcribe_model"`
	TTSAPIKey         string `json:"tts_api_key"`
	TTSModel          string `json:"tts_model"`
	TTSVoice          string `json:"tts_voice"`
}

type ScoringConfig struct {
	Provider     string `json:"provider"` // "openai" or "gemini"
	APIKey       string `json:"api_key"`
	Model        string `json:"model"`
	GeminiAPIKey string `json:"gemini_api_key"`
	GeminiModel  string `json:"gemini_model"`
}

// ExamConfig keeps the scoring shortcuts and rate ceilings out of the code.
type ExamConfig struct {
	QuestionsFile    string `json:"questions_file"`
	DurationSeconds  int    `json:"duration_seconds"`
	FreeAttempts     int    `json:"free_attempts"`
	GoldAttempts     int    `json:"gold_attempts"`
	MinAnswerSeconds int    `json:"min_answer_seconds"`
	MinAudioBytes    int    `json:"min_audio_bytes"`
	BriefBandLow     int    `json:"brief_band_low"`
	BriefBandHigh    int    `json:"brief_band_high"`
}

type ServerConfig struct {
	Addr      string `json:"addr"`
	JWTSecret string `json:"jwt_secret"`
}

type LoggingConfig struct {
	Level     string `json:"level"`
	File      string `json:"file"`
	GormLevel string `json:"gorm_level"`
}

var AppConfig Config

// LoadConfig reads the JSON config file and applies environment overrides for
// secrets. A missing .env file is not an error.
func LoadConfig(filename string) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to load .env file", "error", err)
	}

	file, err := os.Open(filename)
	if err != nil {
		logger.Error("failed to open config file", "error", err)
		return err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&AppConfig); err != nil {
		logger.Error("failed to decode config file", "error", err)
		return err
	}

	applyEnvOverrides(&AppConfig)
	applyDefaults(&AppConfig)
	return nil
}

func applyEnvOverrides(cfg *Config) {
	override(&cfg.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	override(&cfg.Scoring.APIKey, "OPENAI_API_KEY")
	override(&cfg.Scoring.GeminiAPIKey, "GEMINI_API_KEY")
	override(&cfg.Speech.TranscribeAPIKey, "GROQ_API_KEY")
	override(&cfg.Speech.TTSAPIKey, "OPENAI_API_KEY")
	override(&cfg.Server.JWTSecret, "JWT_SECRET")
	override(&cfg.Database.Password, "DB_PASSWORD")
}

func override(dst *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*dst = value
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Exam.QuestionsFile == "" {
		cfg.Exam.QuestionsFile = "questions.json"
	}
	if cfg.Exam.DurationSeconds <= 0 {
		cfg.Exam.DurationSeconds = 1800
	}
	if cfg.Exam.FreeAttempts <= 0 {
		cfg.Exam.FreeAttempts = 2
	}
	if cfg.Exam.GoldAttempts <= 0 {
		cfg.Exam.GoldAttempts = 5
	}
	if cfg.Exam.MinAnswerSeconds <= 0 {
		cfg.Exam.MinAnswerSeconds = 5
	}
	if cfg.Exam.MinAudioBytes <= 0 {
		cfg.Exam.MinAudioBytes = 10000
	}
	if cfg.Exam.BriefBandLow <= 0 {
		cfg.Exam.BriefBandLow = 5
	}
	if cfg.Exam.BriefBandHigh <= 0 {
		cfg.Exam.BriefBandHigh = 8
	}
	if cfg.Speech.TranscribeModel == "" {
		cfg.Speech.TranscribeModel = "whisper-large-v3-turbo"
	}
	if cfg.Scoring.Provider == "" {
		cfg.Scoring.Provider = "openai"
	}
	if cfg.Scoring.Model == "" {
		cfg.Scoring.Model = "gpt-4o-mini"
	}
	if cfg.Scoring.GeminiModel == "" {
		cfg.Scoring.GeminiModel = "gemini-1.5-flash"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
}
