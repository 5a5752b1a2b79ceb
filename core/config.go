package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug        bool
		TestMode     bool
		AppName      string `validate:"required"`
		Build        string
		Env          string `validate:"oneof=DEV TEST QA PROD"`
		WorkDir      string
		RollbarToken string
		Operator     string // portal username of the person running the tool, attached to error reports
		Portal       PortalConfig
	}

	// PortalConfig locates the admissions portal receiving the bulk updates.
	PortalConfig struct {
		BaseURL string        `validate:"required,url"`
		Token   string        // sent as a Bearer token when set
		Cookie  string        // session cookie, e.g. "JSESSIONID=..."
		Timeout time.Duration `validate:"gt=0"`
	}
)

// NewConfig loads the app configuration from the environment.
// `ENV` selects the env prefix (DEV by default) and the optional `config/.env.<env>` file.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Admissions")
	v.SetDefault("build", "develop")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("operator", "")
	v.SetDefault("portal.baseURL", "http://localhost:8080")
	v.SetDefault("portal.token", "")
	v.SetDefault("portal.cookie", "")
	v.SetDefault("portal.timeout", 30*time.Second)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd(): %v", err)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		AppName:      v.GetString("appName"),
		Build:        v.GetString("build"),
		Env:          env,
		WorkDir:      wd,
		RollbarToken: v.GetString("rollbarToken"),
		Operator:     v.GetString("operator"),
		Portal: PortalConfig{
			BaseURL: v.GetString("portal.baseURL"),
			Token:   v.GetString("portal.token"),
			Cookie:  v.GetString("portal.cookie"),
			Timeout: v.GetDuration("portal.timeout"),
		},
	}
}

// Validate checks the loaded configuration is usable.
// The portal is left out: it is only needed to post changes (see PortalConfig.Validate).
func (c *Config) Validate(validate *validator.Validate) error {
	return validate.StructExcept(c, "Portal")
}

// Validate checks the portal can be posted to.
func (c PortalConfig) Validate(validate *validator.Validate) error {
	return validate.Struct(c)
}
