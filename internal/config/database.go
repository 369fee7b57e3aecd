package config

import (
	"fmt"
	"sync"
)

type DBConfig struct {
	Host     string `mapstructure:"db_host"`
	Port     string `mapstructure:"db_port"`
	User     string `mapstructure:"db_user"`
	Password string `mapstructure:"db_password"`
	Name     string `mapstructure:"db_name"`
	SSLMode  string `mapstructure:"db_sslmode"`
	TimeZone string `mapstructure:"db_timezone"`
}

var (
	dbConfig *DBConfig
	dbOnce   sync.Once
)

func LoadDBConfig() *DBConfig {
	dbOnce.Do(func() {
		cfg := &DBConfig{}
		loadEnv(map[string]any{
			"db_host":     "localhost",
			"db_port":     "5432",
			"db_user":     "postgres",
			"db_password": "",
			"db_name":     "interview",
			"db_sslmode":  "disable",
			"db_timezone": "UTC",
		}, cfg)
		dbConfig = cfg
	})
	return dbConfig
}

// DSN formats the postgres connection string used by gorm.
func (c *DBConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.Host,
		c.User,
		c.Password,
		c.Name,
		c.Port,
		c.SSLMode,
		c.TimeZone,
	)
}
