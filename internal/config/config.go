package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/ironsheep/image-normalizer/internal/batch"
	imgops "github.com/ironsheep/image-normalizer/internal/imaging"
	"github.com/ironsheep/image-normalizer/internal/normalize"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// IMAGE_NORMALIZER_BATCH_SIZE=8 or IMAGE_NORMALIZER_NORMALIZE_TRIM_THRESHOLD=230.
const EnvPrefix = "IMAGE_NORMALIZER"

type Config struct {
	Normalize Normalize `mapstructure:"normalize"`
	Batch     Batch     `mapstructure:"batch"`
	Output    Output    `mapstructure:"output"`
	Minio     Minio     `mapstructure:"minio"`
	LogLevel  string    `mapstructure:"log_level"`
}

type Normalize struct {
	DetectBorders bool              `mapstructure:"detect_borders"`
	TrimThreshold int               `mapstructure:"trim_threshold"`
	OutputFormat  string            `mapstructure:"output_format"` // cover, square or original
	Width         int               `mapstructure:"width"`
	Height        int               `mapstructure:"height"`
	Background    imgops.Background `mapstructure:"background"`
}

type Batch struct {
	Size                 int  `mapstructure:"size"`
	PassThroughOnFailure bool `mapstructure:"pass_through_on_failure"`
}

type Output struct {
	Dir string `mapstructure:"dir"`
}

type Minio struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// Enabled reports whether MinIO output is configured.
func (m Minio) Enabled() bool {
	return m.Endpoint != "" && m.Bucket != ""
}

// Debug reports whether debug logging is requested.
func (c *Config) Debug() bool {
	return strings.EqualFold(c.LogLevel, "debug")
}

// Options converts the normalize section into pipeline options.
func (c *Config) Options() (normalize.Options, error) {
	mode, err := imgops.ParseResizeMode(c.Normalize.OutputFormat)
	if err != nil {
		return normalize.Options{}, err
	}

	opts := normalize.Options{
		DetectBorders: c.Normalize.DetectBorders,
		TrimThreshold: c.Normalize.TrimThreshold,
		Resize: imgops.ResizePolicy{
			Mode:   mode,
			Width:  c.Normalize.Width,
			Height: c.Normalize.Height,
		},
		Background: c.Normalize.Background,
	}
	if err := opts.Validate(); err != nil {
		return normalize.Options{}, err
	}
	return opts, nil
}

// setDefaults mirrors normalize.DefaultOptions and batch.DefaultBatchSize.
func setDefaults(v *viper.Viper) {
	d := normalize.DefaultOptions()

	v.SetDefault("normalize.detect_borders", d.DetectBorders)
	v.SetDefault("normalize.trim_threshold", d.TrimThreshold)
	v.SetDefault("normalize.output_format", string(d.Resize.Mode))
	v.SetDefault("normalize.width", d.Resize.Width)
	v.SetDefault("normalize.height", d.Resize.Height)
	v.SetDefault("normalize.background.r", d.Background.R)
	v.SetDefault("normalize.background.g", d.Background.G)
	v.SetDefault("normalize.background.b", d.Background.B)
	v.SetDefault("normalize.background.alpha", d.Background.Alpha)
	v.SetDefault("batch.size", batch.DefaultBatchSize)
	v.SetDefault("batch.pass_through_on_failure", false)
	v.SetDefault("output.dir", "normalized")
	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.bucket", "")
	v.SetDefault("minio.prefix", "")
	v.SetDefault("minio.use_ssl", true)
	v.SetDefault("log_level", "info")
}

// InitConfig loads configuration from defaults, the optional YAML file at
// filename, and IMAGE_NORMALIZER_* environment variables, in increasing
// order of precedence. An empty filename skips the file.
func InitConfig(filename string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if filename != "" {
		v.SetConfigFile(filename)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", filename, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
