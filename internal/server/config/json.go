package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
	"github.com/dmitrijs2005/authkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "15m" and integer nanoseconds are accepted.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	StorageDriver                string         `json:"storage_driver"`
	DatabaseDSN                  string         `json:"database_dsn"`
	RedisAddr                    string         `json:"redis_addr"`
	RedisPassword                string         `json:"redis_password"`
	RedisDB                      int            `json:"redis_db"`
	SecretKey                    string         `json:"secret_key"`
	SigningAlgorithm             string         `json:"signing_algorithm"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	RegistryTimeout              timex.Duration `json:"registry_timeout"`
	StoreTimeout                 timex.Duration `json:"store_timeout"`
	RevocationFailOpen           bool           `json:"revocation_fail_open"`
	LoginRateLimitRPM            int            `json:"login_rate_limit_rpm"`
	TrustedProxies               []string       `json:"trusted_proxies"`
	JanitorInterval              timex.Duration `json:"janitor_interval"`
	LogBackend                   string         `json:"log_backend"`
	LogLevel                     string         `json:"log_level"`
	BootstrapLogin               string         `json:"bootstrap_login"`
	BootstrapPassword            string         `json:"bootstrap_password"`
}

// parseJson overlays the file named by -c/-config onto config. Keys missing
// from the file keep their current values. No flag means nothing to do.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := fromConfig(config)
	if err := json.Unmarshal(data, c); err != nil {
		return err
	}
	c.apply(config)
	return nil
}

func fromConfig(cfg *Config) *JsonConfig {
	return &JsonConfig{
		EndpointAddrHTTP:             cfg.EndpointAddrHTTP,
		EndpointAddrGRPC:             cfg.EndpointAddrGRPC,
		StorageDriver:                cfg.StorageDriver,
		DatabaseDSN:                  cfg.DatabaseDSN,
		RedisAddr:                    cfg.RedisAddr,
		RedisPassword:                cfg.RedisPassword,
		RedisDB:                      cfg.RedisDB,
		SecretKey:                    cfg.SecretKey,
		SigningAlgorithm:             cfg.SigningAlgorithm,
		AccessTokenValidityDuration:  timex.Duration{Duration: cfg.AccessTokenValidityDuration},
		RefreshTokenValidityDuration: timex.Duration{Duration: cfg.RefreshTokenValidityDuration},
		RegistryTimeout:              timex.Duration{Duration: cfg.RegistryTimeout},
		StoreTimeout:                 timex.Duration{Duration: cfg.StoreTimeout},
		RevocationFailOpen:           cfg.RevocationFailOpen,
		LoginRateLimitRPM:            cfg.LoginRateLimitRPM,
		TrustedProxies:               cfg.TrustedProxies,
		JanitorInterval:              timex.Duration{Duration: cfg.JanitorInterval},
		LogBackend:                   cfg.LogBackend,
		LogLevel:                     cfg.LogLevel,
		BootstrapLogin:               cfg.BootstrapLogin,
		BootstrapPassword:            cfg.BootstrapPassword,
	}
}

func (c *JsonConfig) apply(cfg *Config) {
	cfg.EndpointAddrHTTP = c.EndpointAddrHTTP
	cfg.EndpointAddrGRPC = c.EndpointAddrGRPC
	cfg.StorageDriver = c.StorageDriver
	cfg.DatabaseDSN = c.DatabaseDSN
	cfg.RedisAddr = c.RedisAddr
	cfg.RedisPassword = c.RedisPassword
	cfg.RedisDB = c.RedisDB
	cfg.SecretKey = c.SecretKey
	cfg.SigningAlgorithm = c.SigningAlgorithm
	cfg.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	cfg.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	cfg.RegistryTimeout = c.RegistryTimeout.Duration
	cfg.StoreTimeout = c.StoreTimeout.Duration
	cfg.RevocationFailOpen = c.RevocationFailOpen
	cfg.LoginRateLimitRPM = c.LoginRateLimitRPM
	cfg.TrustedProxies = c.TrustedProxies
	cfg.JanitorInterval = c.JanitorInterval.Duration
	cfg.LogBackend = c.LogBackend
	cfg.LogLevel = c.LogLevel
	cfg.BootstrapLogin = c.BootstrapLogin
	cfg.BootstrapPassword = c.BootstrapPassword
}
