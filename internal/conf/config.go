package conf

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/aerokb/rag-backend/internal/pkg/errors"
)

type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Chunking ChunkingConfig `mapstructure:"chunking"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

type LogConfig struct {
	Level            string        `mapstructure:"level"`
	Format           string        `mapstructure:"format"`
	Output           string        `mapstructure:"output"`
	File             FileLogConfig `mapstructure:"file"`
	EnableCaller     bool          `mapstructure:"enablecaller"`
	EnableStacktrace bool          `mapstructure:"enablestacktrace"`
}

type FileLogConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"maxsize"`
	MaxAge     int    `mapstructure:"maxage"`
	MaxBackups int    `mapstructure:"maxbackups"`
	Compress   bool   `mapstructure:"compress"`
}

// ChunkingConfig 分块配置：默认预设名和按名覆盖的预设参数。
// 文件中未出现的预设使用编译进程序的内置参数。
type ChunkingConfig struct {
	DefaultPreset   string                  `mapstructure:"default_preset"`
	QualityStrategy string                  `mapstructure:"quality_strategy"`
	Presets         map[string]PresetConfig `mapstructure:"presets"`
}

// PresetConfig 单个分块预设的可配置参数，未出现的字段保持内置预设的值。
// 布尔项和合法零值项（重叠、最小分块）用指针区分"未配置"和"显式为零"。
type PresetConfig struct {
	ChunkSize        int      `mapstructure:"chunk_size"`
	ChunkOverlap     *int     `mapstructure:"chunk_overlap"`
	MinChunkSize     *int     `mapstructure:"min_chunk_size"`
	MaxChunkSize     int      `mapstructure:"max_chunk_size"`
	Separators       []string `mapstructure:"separators"`
	IsSeparatorRegex *bool    `mapstructure:"is_separator_regex"`
	KeepSeparator    *bool    `mapstructure:"keep_separator"`
	AddStartIndex    *bool    `mapstructure:"add_start_index"`
	StripWhitespace  *bool    `mapstructure:"strip_whitespace"`
	LengthUnit       string   `mapstructure:"length_unit"`
	TokenEncoding    string   `mapstructure:"token_encoding"`
}

type WorkerConfig struct {
	Workers int `mapstructure:"workers"`
}

// DefaultConfig 编译进程序的默认配置
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:            "info",
			Format:           "json",
			Output:           "console",
			EnableCaller:     true,
			EnableStacktrace: true,
			File: FileLogConfig{
				Filename:   "logs/rag-backend.log",
				MaxSize:    100,
				MaxAge:     30,
				MaxBackups: 10,
				Compress:   true,
			},
		},
		Chunking: ChunkingConfig{
			DefaultPreset:   "generic",
			QualityStrategy: "aviation",
		},
		Worker: WorkerConfig{Workers: 8},
	}
}

// LoadConfig 读取配置文件并叠加到默认配置之上
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	viper.SetConfigFile(path)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate 校验分块参数。只检查文件里实际出现的字段：
// 预设是对内置参数的部分覆盖，缺省字段在叠加后由分块器构造时兜底校验。
// 所有显式的配置错误在加载时暴露，不会等到分块过程中才出现。
func (c *Config) Validate() error {
	for name, p := range c.Chunking.Presets {
		if p.ChunkSize < 0 {
			return errors.Newf(errors.ErrKBInvalidChunkConfig,
				"preset %q: chunk_size cannot be negative, got %d", name, p.ChunkSize)
		}
		if p.ChunkOverlap != nil && *p.ChunkOverlap < 0 {
			return errors.Newf(errors.ErrKBInvalidChunkConfig,
				"preset %q: chunk_overlap cannot be negative, got %d", name, *p.ChunkOverlap)
		}
		if p.MinChunkSize != nil && *p.MinChunkSize < 0 {
			return errors.Newf(errors.ErrKBInvalidChunkConfig,
				"preset %q: min_chunk_size cannot be negative, got %d", name, *p.MinChunkSize)
		}
		if p.MaxChunkSize < 0 {
			return errors.Newf(errors.ErrKBInvalidChunkConfig,
				"preset %q: max_chunk_size cannot be negative, got %d", name, p.MaxChunkSize)
		}
		if p.MinChunkSize != nil && p.MaxChunkSize > 0 && p.MaxChunkSize < *p.MinChunkSize {
			return errors.Newf(errors.ErrKBInvalidChunkConfig,
				"preset %q: max_chunk_size %d below min_chunk_size %d", name, p.MaxChunkSize, *p.MinChunkSize)
		}
		switch p.LengthUnit {
		case "", "char", "token":
		default:
			return errors.Newf(errors.ErrKBInvalidLengthUnit,
				"preset %q: length_unit must be char or token, got %q", name, p.LengthUnit)
		}
	}
	return nil
}
