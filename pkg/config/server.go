package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// ServerConfig holds runtime configuration for the deployment service.
type ServerConfig struct {
	Environment        string
	Addr               string
	ProjectPath        string
	AEMServerURL       string
	AEMUsername        string
	AEMPassword        string
	MavenProfiles      string
	SkipTests          bool
	MockMode           bool
	RateLimitRedisAddr string
	RateLimitRedisPass string
	RateLimitRedisDB   int
}

// fileConfig mirrors the optional TOML configuration file. Environment
// variables take precedence over file values.
type fileConfig struct {
	Server struct {
		Addr        string `toml:"addr"`
		Environment string `toml:"environment"`
	} `toml:"server"`
	AEM struct {
		URL      string `toml:"url"`
		Username string `toml:"username"`
		Password string `toml:"password"`
		MockMode *bool  `toml:"mock_mode"`
	} `toml:"aem"`
	Maven struct {
		ProjectPath string `toml:"project_path"`
		Profiles    string `toml:"profiles"`
		SkipTests   *bool  `toml:"skip_tests"`
	} `toml:"maven"`
	Redis struct {
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       *int   `toml:"db"`
	} `toml:"redis"`
}

// LoadServerConfig constructs a ServerConfig from environment variables,
// overlaid on the TOML file named by DXP_CONFIG_FILE when present.
func LoadServerConfig() (ServerConfig, error) {
	cfg := ServerConfig{
		Environment:   "development",
		Addr:          ":8000",
		ProjectPath:   "./project_code",
		AEMServerURL:  "http://localhost:4502",
		AEMUsername:   "admin",
		AEMPassword:   "admin",
		MavenProfiles: "adobe-public,autoInstallPackage",
		SkipTests:     true,
		MockMode:      false,
	}

	if path := GetString("DXP_CONFIG_FILE", ""); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return ServerConfig{}, err
		}
	}

	cfg.Environment = GetString("APP_ENV", cfg.Environment)
	cfg.Addr = GetString("DXP_ADDR", cfg.Addr)
	cfg.ProjectPath = GetString("PROJECT_CODE_PATH", cfg.ProjectPath)
	cfg.AEMServerURL = GetString("AEM_AUTHOR_URL", cfg.AEMServerURL)
	cfg.AEMUsername = GetString("AEM_USERNAME", cfg.AEMUsername)
	cfg.AEMPassword = GetString("AEM_PASSWORD", cfg.AEMPassword)
	cfg.MavenProfiles = GetString("MAVEN_PROFILES", cfg.MavenProfiles)
	cfg.SkipTests = GetBool("SKIP_TESTS", cfg.SkipTests)
	cfg.MockMode = GetBool("AEM_MOCK_MODE", cfg.MockMode)
	cfg.RateLimitRedisAddr = GetString("RATE_LIMIT_REDIS_ADDR", cfg.RateLimitRedisAddr)
	cfg.RateLimitRedisPass = GetString("RATE_LIMIT_REDIS_PASSWORD", cfg.RateLimitRedisPass)
	cfg.RateLimitRedisDB = GetInt("RATE_LIMIT_REDIS_DB", cfg.RateLimitRedisDB)
	return cfg, nil
}

func applyFile(cfg *ServerConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if fc.Server.Addr != "" {
		cfg.Addr = fc.Server.Addr
	}
	if fc.Server.Environment != "" {
		cfg.Environment = fc.Server.Environment
	}
	if fc.AEM.URL != "" {
		cfg.AEMServerURL = fc.AEM.URL
	}
	if fc.AEM.Username != "" {
		cfg.AEMUsername = fc.AEM.Username
	}
	if fc.AEM.Password != "" {
		cfg.AEMPassword = fc.AEM.Password
	}
	if fc.AEM.MockMode != nil {
		cfg.MockMode = *fc.AEM.MockMode
	}
	if fc.Maven.ProjectPath != "" {
		cfg.ProjectPath = fc.Maven.ProjectPath
	}
	if fc.Maven.Profiles != "" {
		cfg.MavenProfiles = fc.Maven.Profiles
	}
	if fc.Maven.SkipTests != nil {
		cfg.SkipTests = *fc.Maven.SkipTests
	}
	if fc.Redis.Addr != "" {
		cfg.RateLimitRedisAddr = fc.Redis.Addr
	}
	if fc.Redis.Password != "" {
		cfg.RateLimitRedisPass = fc.Redis.Password
	}
	if fc.Redis.DB != nil {
		cfg.RateLimitRedisDB = *fc.Redis.DB
	}
	return nil
}
