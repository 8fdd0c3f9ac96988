package config

import (
	"os"
	"path"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	Pg            Pg          `yaml:"pg"`
	JwtTTLHours   int         `yaml:"jwt_ttl_hours"`
	OtpTTLMinutes int         `yaml:"otp_ttl_minutes"`
	MinVoterAge   int         `yaml:"min_voter_age"`
	FaceService   FaceService `yaml:"face_service"`
	LogLevel      string      `yaml:"log_level"`
	LogJSON       bool        `yaml:"log_json"`
}

type Pg struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	User   string `yaml:"user"`
	Dbname string `yaml:"dbname"`
}

type FaceService struct {
	Address        string `yaml:"address"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	// MatchThreshold is the Euclidean distance below which two encodings
	// count as the same person. 0.6 is fixed by the descriptor space of
	// the external matcher and must not drift.
	MatchThreshold float64 `yaml:"match_threshold"`
}

func (f *FaceService) Timeout() time.Duration {
	if f.TimeoutSeconds == 0 {
		return 10 * time.Second
	}
	return time.Duration(f.TimeoutSeconds) * time.Second
}

type Private struct {
	JwtKey     string `yaml:"jwt_key"`
	PgPassword string `yaml:"pg_password"`
	Email      Email  `yaml:"email"`
}

type Email struct {
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	SenderName string `yaml:"sender_name"`
	Timeout    int    `yaml:"timeout"` // seconds
}

func (c *Config) JwtKey() string {
	return c.Private.JwtKey
}

func (c *Config) JwtTTL() time.Duration {
	return time.Duration(c.Public.JwtTTLHours) * time.Hour
}

func (c *Config) OtpTTL() time.Duration {
	return c.Public.OtpTTL()
}

func (p *Public) OtpTTL() time.Duration {
	return time.Duration(p.OtpTTLMinutes) * time.Minute
}

func mustLoadPath(configPath string, output interface{}) {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}
	configFile, err := os.ReadFile(configPath)

	if err != nil {
		panic("can't read config file")
	}

	err = yaml.Unmarshal(configFile, output)
	if err != nil {
		panic("can't unmarshal config file")
	}
}

// applyEnv lets container deployments override secrets and addresses
// without editing the yaml files. Load a .env via godotenv before
// MustLoad if one exists.
func applyEnv(cfg *Config) {
	if v := os.Getenv("JWT_KEY"); v != "" {
		cfg.Private.JwtKey = v
	}
	if v := os.Getenv("PG_PASSWORD"); v != "" {
		cfg.Private.PgPassword = v
	}
	if v := os.Getenv("PG_HOST"); v != "" {
		cfg.Public.Pg.Host = v
	}
	if v := os.Getenv("PG_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Public.Pg.Port = port
		}
	}
	if v := os.Getenv("FACE_SERVICE_ADDR"); v != "" {
		cfg.Public.FaceService.Address = v
	}
	if v := os.Getenv("EMAIL_USER"); v != "" {
		cfg.Private.Email.Username = v
	}
	if v := os.Getenv("EMAIL_PASS"); v != "" {
		cfg.Private.Email.Password = v
	}
}

func MustLoad(configFolder string) *Config {
	var public Public
	mustLoadPath(path.Join(configFolder, "public.yaml"), &public)

	var private Private
	mustLoadPath(path.Join(configFolder, "private.yaml"), &private)

	cfg := &Config{public, private}
	applyEnv(cfg)
	return cfg
}
