package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Load 初始化 Viper 配置
// cfgFile: 可选，用户显式指定的配置文件路径
func Load(cfgFile string) error {
	// 1. 设置默认值 (Defaults)
	SetDefaults()

	// 2. 配置搜索路径
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		// 搜索顺序：当前目录 -> ./.tilesink -> ~/.tilesink
		viper.AddConfigPath(".")
		viper.AddConfigPath(".tilesink")
		viper.AddConfigPath(filepath.Join(home, ".tilesink"))

		viper.SetConfigType("yaml")
		viper.SetConfigName("config") // 找 config.yaml
	}

	// 3. 读取环境变量 (TILESINK_STORAGE_TYPE 等)
	viper.SetEnvPrefix("TILESINK")
	viper.SetEnvKeyReplacer(envReplacer)
	viper.AutomaticEnv()

	// 4. 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		// 没找到配置文件不算错，可能全靠环境变量
		// 但配置文件格式错就是错
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("fatal error config file: %w", err)
		}
	}

	return nil
}

// SetDefaults 写入所有默认值，测试里也会直接调用
func SetDefaults() {
	wd, _ := os.Getwd()

	// 存储
	viper.SetDefault("storage.type", "disk")
	viper.SetDefault("storage.path", filepath.Join(wd, "exports"))
	viper.SetDefault("s3.region", "us-east-1")

	// 缓存 (为空表示不启用 Redis)
	viper.SetDefault("cache.redis_url", "")
	viper.SetDefault("cache.ttl", time.Hour)

	// 导出格式
	viper.SetDefault("export.format", "dzi")
	viper.SetDefault("dzi.image_format", "png")
	viper.SetDefault("dzi.overlap", 0)
	viper.SetDefault("dzi.zip", false)

	// 任务记录
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.path", filepath.Join(wd, ".tilesink", "jobs.db"))
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")

	// 服务端
	viper.SetDefault("server.addr", ":8080")
}
