// Package config owns runtime configuration: defaults, the optional
// JSON config file, and typed views over the resulting tree.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/stellarworks/universe-simulator/astro"
)

// ConfigFileName is looked up in the directory passed to Load.
const ConfigFileName = "universe.cfg.json"

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Address        string
	MetricsAddress string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RateLimit      float64 // requests per second per client
	RateBurst      int
}

// DatabaseConfig holds persistence settings. Driver selects between
// "sqlite" and "postgres"; Path applies to sqlite only.
type DatabaseConfig struct {
	Driver      string
	Path        string
	Host        string
	Port        string
	Username    string
	Password    string
	Database    string
	AutoMigrate bool
}

// PostgresDSN renders the keyword/value connection string.
func (c DatabaseConfig) PostgresDSN() string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// SimConfig holds simulation engine settings.
type SimConfig struct {
	TickInterval  time.Duration
	TimeScale     float64
	Granularity   string // "years" | "days"
	Workers       int
	EphemerisStep float64       // offset units between ephemeris samples, 0 disables
	SyncInterval  time.Duration // 0 disables periodic catalog persistence
}

// CatalogConfig controls what gets loaded at startup.
type CatalogConfig struct {
	Seed         bool
	ScenarioPath string
}

// OTelConfig holds tracing exporter settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	Endpoint     string
	Insecure     bool
	BatchTimeout time.Duration
}

// Load sets defaults and reads the optional config file from configDir.
// A missing file is fine; the defaults stand. A malformed file is an
// error.
func Load(configDir string) error {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logFormat", "text")

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.metricsAddress", ":9090")
	viper.SetDefault("server.readTimeout", "10s")
	viper.SetDefault("server.writeTimeout", "15s")
	viper.SetDefault("server.rateLimit", 50.0)
	viper.SetDefault("server.rateBurst", 100)

	viper.SetDefault("db.driver", "sqlite")
	viper.SetDefault("db.path", "./universe_simulator.db")
	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "universe")
	viper.SetDefault("db.autoMigrate", true)

	viper.SetDefault("sim.tickInterval", "1s")
	viper.SetDefault("sim.timeScale", 1.0)
	viper.SetDefault("sim.granularity", "years")
	viper.SetDefault("sim.workers", 4)
	viper.SetDefault("sim.ephemerisStep", 0.0)
	viper.SetDefault("sim.syncInterval", "30s")

	viper.SetDefault("catalog.seed", true)
	viper.SetDefault("catalog.scenarioPath", "")

	lod := astro.DefaultLODConfig()
	viper.SetDefault("lod.nearAU", lod.NearAU)
	viper.SetDefault("lod.midAU", lod.MidAU)
	viper.SetDefault("lod.farAU", lod.FarAU)
	viper.SetDefault("lod.nearLimitMag", lod.NearLimitMag)
	viper.SetDefault("lod.farLimitMag", lod.FarLimitMag)

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "universe-server")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
	viper.SetDefault("otel.batchTimeout", "5s")

	viper.SetConfigName(ConfigFileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// GetServerConfig returns the HTTP server settings.
func GetServerConfig() ServerConfig {
	return ServerConfig{
		Address:        viper.GetString("server.address"),
		MetricsAddress: viper.GetString("server.metricsAddress"),
		ReadTimeout:    viper.GetDuration("server.readTimeout"),
		WriteTimeout:   viper.GetDuration("server.writeTimeout"),
		RateLimit:      viper.GetFloat64("server.rateLimit"),
		RateBurst:      viper.GetInt("server.rateBurst"),
	}
}

// GetDatabaseConfig returns the persistence settings.
func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:      viper.GetString("db.driver"),
		Path:        viper.GetString("db.path"),
		Host:        viper.GetString("db.host"),
		Port:        viper.GetString("db.port"),
		Username:    viper.GetString("db.username"),
		Password:    viper.GetString("db.password"),
		Database:    viper.GetString("db.database"),
		AutoMigrate: viper.GetBool("db.autoMigrate"),
	}
}

// GetSimConfig returns the simulation engine settings.
func GetSimConfig() SimConfig {
	return SimConfig{
		TickInterval:  viper.GetDuration("sim.tickInterval"),
		TimeScale:     viper.GetFloat64("sim.timeScale"),
		Granularity:   viper.GetString("sim.granularity"),
		Workers:       viper.GetInt("sim.workers"),
		EphemerisStep: viper.GetFloat64("sim.ephemerisStep"),
		SyncInterval:  viper.GetDuration("sim.syncInterval"),
	}
}

// GetCatalogConfig returns the startup catalog settings.
func GetCatalogConfig() CatalogConfig {
	return CatalogConfig{
		Seed:         viper.GetBool("catalog.seed"),
		ScenarioPath: viper.GetString("catalog.scenarioPath"),
	}
}

// GetLODConfig returns the level-of-detail tier bounds.
func GetLODConfig() astro.LODConfig {
	return astro.LODConfig{
		NearAU:       viper.GetFloat64("lod.nearAU"),
		MidAU:        viper.GetFloat64("lod.midAU"),
		FarAU:        viper.GetFloat64("lod.farAU"),
		NearLimitMag: viper.GetFloat64("lod.nearLimitMag"),
		FarLimitMag:  viper.GetFloat64("lod.farLimitMag"),
	}
}

// GetOTelConfig returns the tracing exporter settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
