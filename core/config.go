package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		DebugHost       string
		ShutdownTimeout time.Duration
		JWTAudience     string
	}

	DatabaseConfig struct {
		Engine        string // postgres | pgx | sqlite
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite file or DSN
	}

	BlobConfig struct {
		Driver        string // memory | fs | s3
		Root          string
		Bucket        string
		Region        string
		Endpoint      string
		PathStyle     bool
		PresignExpiry time.Duration
	}

	WorksheetConfig struct {
		Width        float64
		Height       float64
		Background   string
		Outline      bool
		SaveAttempts int
	}

	Config struct {
		Build            string
		Env              string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		WorkDir          string
		RollbarToken     string
		SendgridApiKey   string
		DefaultFromEmail mail.Address

		Server    ServerConfig
		Database  DatabaseConfig
		Blob      BlobConfig
		Worksheet WorksheetConfig
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// NewConfig reads the configuration from the environment. ENV selects the
// environment (DEV by default, TEST, QA or PROD); its name is the prefix of
// every variable, e.g. DEV_DATABASE_HOST. A config/.env.<env> file is loaded
// first when it exists.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("build", "dev")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "ECD Materials")
	v.SetDefault("secretKey", "d5f1-ecd)materials$+generator=k3y&2(h!x)#*c2(#yg4h^")
	v.SetDefault("frontendBaseURL", "http://localhost:8080")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("defaultFromName", "ECD Materials")
	v.SetDefault("defaultFromEmail", "noreply@localhost")

	v.SetDefault("server.host", "0.0.0.0:8000")
	v.SetDefault("server.debugHost", "0.0.0.0:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtAudience", "ecd-materials")

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "ecd_materials")
	v.SetDefault("database.user", "ecd")
	v.SetDefault("database.password", "ecd")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.path", "ecd_materials.db")

	v.SetDefault("blob.driver", "fs")
	v.SetDefault("blob.root", "./blobdata")
	v.SetDefault("blob.bucket", "")
	v.SetDefault("blob.region", "us-east-1")
	v.SetDefault("blob.endpoint", "")
	v.SetDefault("blob.pathStyle", false)
	v.SetDefault("blob.presignExpiry", 15*time.Minute)

	v.SetDefault("worksheet.width", 1200.0)
	v.SetDefault("worksheet.height", 800.0)
	v.SetDefault("worksheet.background", "#ffffff")
	v.SetDefault("worksheet.outline", false)
	v.SetDefault("worksheet.saveAttempts", 3)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
		v.SetDefault("database.engine", "sqlite")
		v.SetDefault("database.path", "file::memory:?cache=shared")
		v.SetDefault("blob.driver", "memory")
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	workDir := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Build:           v.GetString("build"),
		Env:             env,
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		AppName:         v.GetString("appName"),
		SecretKey:       v.GetString("secretKey"),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		WorkDir:         workDir,
		RollbarToken:    v.GetString("rollbarToken"),
		SendgridApiKey:  v.GetString("sendgridApiKey"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("defaultFromName"),
			Address: v.GetString("defaultFromEmail"),
		},
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			JWTAudience:     v.GetString("server.jwtAudience"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			Path:          v.GetString("database.path"),
		},
		Blob: BlobConfig{
			Driver:        v.GetString("blob.driver"),
			Root:          v.GetString("blob.root"),
			Bucket:        v.GetString("blob.bucket"),
			Region:        v.GetString("blob.region"),
			Endpoint:      v.GetString("blob.endpoint"),
			PathStyle:     v.GetBool("blob.pathStyle"),
			PresignExpiry: v.GetDuration("blob.presignExpiry"),
		},
		Worksheet: WorksheetConfig{
			Width:        v.GetFloat64("worksheet.width"),
			Height:       v.GetFloat64("worksheet.height"),
			Background:   v.GetString("worksheet.background"),
			Outline:      v.GetBool("worksheet.outline"),
			SaveAttempts: v.GetInt("worksheet.saveAttempts"),
		},
	}
}
