/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides of configuration keys, e.g.
// QUERYDSL_CONNECTION_CONFIG_TYPE=postgres.
const EnvPrefix = "QUERYDSL"

// LoadConfig reads a YAML or JSON configuration file on top of DefaultConfig.
// An empty path loads defaults and environment overrides only. Durations
// accept Go duration strings such as "5s".
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.StringToTimeDurationHookFunc()))
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	cc := cfg.ConnectionConfig
	defaults := map[string]any{
		"type":                  cc.Type,
		"host":                  cc.Host,
		"port":                  cc.Port,
		"username":              cc.Username,
		"password":              cc.Password,
		"dbname":                cc.DBName,
		"sslmode":               cc.SSLMode,
		"max_idle_conns":        cc.MaxIdleConns,
		"max_open_conns":        cc.MaxOpenConns,
		"conn_max_lifetime":     cc.ConnMaxLifetime,
		"conn_max_idle_time":    cc.ConnMaxIdleTime,
		"connect_timeout":       cc.ConnectTimeout,
		"read_timeout":          cc.ReadTimeout,
		"write_timeout":         cc.WriteTimeout,
		"enable_reconnect":      cc.EnableReconnect,
		"reconnect_interval":    cc.ReconnectInterval,
		"max_reconnect_tries":   cc.MaxReconnectTries,
		"health_check_interval": cc.HealthCheckInterval,
		"enable_query_log":      cc.EnableQueryLog,
		"slow_query_time":       cc.SlowQueryTime,
	}
	for k, val := range defaults {
		v.SetDefault("connection_config."+k, val)
	}
	mc := cfg.DataMigrateConfig
	v.SetDefault("data_migrate_config.enable_migrate_on_startup", mc.EnableMigrateOnStartup)
	v.SetDefault("data_migrate_config.enable_foreign_key", mc.EnableForeignKey)
	v.SetDefault("data_migrate_config.foreign_key_file", mc.ForeignKeyFile)
}

// Validate checks the settings a connection cannot be opened without.
func (c *Config) Validate() error {
	cc := c.ConnectionConfig
	if !isSupportedType(cc.Type) {
		return fmt.Errorf("unsupported database type: %s, supported types: %v", cc.Type, supportedTypes)
	}
	if cc.DBName == "" {
		return fmt.Errorf("database name cannot be empty")
	}
	if cc.Type != "sqlite" && cc.Host == "" {
		return fmt.Errorf("database host cannot be empty for %s", cc.Type)
	}
	return nil
}

var supportedTypes = []string{"mysql", "postgres", "sqlite"}

func isSupportedType(t string) bool {
	_, ok := connectorFor(t)
	return ok
}
