package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"batchfleet/pkg/logger"
	"batchfleet/pkg/model"
)

// DefaultFileName 默认配置文件名，放在可执行文件旁或工作目录
const DefaultFileName = "batchfleet.yaml"

var ErrInvalidConfig = errors.New("invalid configuration")

// Config 一次运行所需的全部配置，加载后只读
type Config struct {
	CataloguePath string        `yaml:"catalogue_path" env:"BF_CATALOGUE_PATH"`
	ExportPath    string        `yaml:"export_path" env:"BF_EXPORT_PATH"`
	Nodes         []*model.Node `yaml:"nodes"`

	Remote   RemoteConfig   `yaml:"remote"`
	Probe    ProbeConfig    `yaml:"probe"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	SSH      SSHConfig      `yaml:"ssh"`
	Docker   DockerConfig   `yaml:"docker"`
	Store    StoreConfig    `yaml:"store"`
	Logging  logger.Config  `yaml:"logging"`
}

// RemoteConfig 节点上处理程序的布局，路径相对登录用户的 home
type RemoteConfig struct {
	ProgramDir         string   `yaml:"program_dir" env:"BF_REMOTE_PROGRAM_DIR"`
	Program            string   `yaml:"program" env:"BF_REMOTE_PROGRAM"`
	ScratchDir         string   `yaml:"scratch_dir" env:"BF_REMOTE_SCRATCH_DIR"`
	PosixInterpreter   string   `yaml:"posix_interpreter" env:"BF_REMOTE_POSIX_INTERPRETER"`
	WindowsInterpreter string   `yaml:"windows_interpreter" env:"BF_REMOTE_WINDOWS_INTERPRETER"`
	ExtraArgs          []string `yaml:"extra_args" env:"BF_REMOTE_EXTRA_ARGS"`
}

type ProbeConfig struct {
	Timeout time.Duration `yaml:"timeout" env:"BF_PROBE_TIMEOUT"`
}

// DispatchConfig 分区策略: sweep (默认) 或 balanced
type DispatchConfig struct {
	Strategy string `yaml:"strategy" env:"BF_DISPATCH_STRATEGY"`
}

type SSHConfig struct {
	Binary    string   `yaml:"binary" env:"BF_SSH_BINARY"`
	SCPBinary string   `yaml:"scp_binary" env:"BF_SCP_BINARY"`
	Options   []string `yaml:"options" env:"BF_SSH_OPTIONS"`
}

type DockerConfig struct {
	Host       string `yaml:"host" env:"BF_DOCKER_HOST"`
	APIVersion string `yaml:"api_version" env:"BF_DOCKER_API_VERSION"`
}

// StoreConfig 运行历史 (etcd)，默认关闭
type StoreConfig struct {
	Enabled     bool          `yaml:"enabled" env:"BF_STORE_ENABLED"`
	Endpoints   []string      `yaml:"endpoints" env:"BF_STORE_ENDPOINTS"`
	DialTimeout time.Duration `yaml:"dial_timeout" env:"BF_STORE_DIAL_TIMEOUT"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Nodes: []*model.Node{},
		Remote: RemoteConfig{
			ProgramDir:         "batcher",
			Program:            "batch_node.py",
			ScratchDir:         "batch_temp",
			PosixInterpreter:   "python3",
			WindowsInterpreter: "python",
			ExtraArgs:          []string{"-r"},
		},
		Probe: ProbeConfig{
			Timeout: 10 * time.Second,
		},
		Dispatch: DispatchConfig{
			Strategy: "sweep",
		},
		SSH: SSHConfig{
			Binary:    "ssh",
			SCPBinary: "scp",
			Options:   []string{"-o", "BatchMode=yes"},
		},
		Docker: DockerConfig{
			APIVersion: "1.44",
		},
		Store: StoreConfig{
			Enabled:     false,
			Endpoints:   []string{"localhost:2379"},
			DialTimeout: 5 * time.Second,
		},
		Logging: logger.Config{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
	}
}

// Loader handles configuration loading from multiple sources.
type Loader struct {
	configPath string
	explicit   bool
	lookupEnv  func(string) (string, bool)
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		lookupEnv: os.LookupEnv,
	}
}

// WithConfigPath 显式指定配置文件，文件不存在时报错
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	l.explicit = path != ""
	return l
}

// WithEnv 替换环境变量来源 (测试用)
func (l *Loader) WithEnv(lookup func(string) (string, bool)) *Loader {
	l.lookupEnv = lookup
	return l
}

// Load loads configuration with precedence defaults < YAML file < environment variables.
// 命令行参数由 cmd 在 Load 之后覆盖
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	path := l.configPath
	if path == "" {
		path = DefaultPath()
	}
	if path != "" {
		if err := l.loadFromFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := l.applyEnvToStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	cfg.CataloguePath = normalizePath(cfg.CataloguePath)
	cfg.ExportPath = normalizePath(cfg.ExportPath)
	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !l.explicit {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}
	parsed, err := ParseConfig(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	*cfg = *parsed
	return nil
}

// DefaultPath 先找可执行文件旁的 batchfleet.yaml，再找工作目录
func DefaultPath() string {
	if exe, err := os.Executable(); err == nil {
		p := filepath.Join(filepath.Dir(exe), DefaultFileName)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	if _, err := os.Stat(DefaultFileName); err == nil {
		return DefaultFileName
	}
	return ""
}

// normalizePath 配置文件里允许用 // 作为跨平台分隔符
func normalizePath(p string) string {
	if p == "" {
		return p
	}
	return strings.ReplaceAll(p, "//", string(os.PathSeparator))
}

func (l *Loader) applyEnvToStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if field.Kind() == reflect.Struct {
			if err := l.applyEnvToStruct(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}
		envValue, ok := l.lookupEnv(envTag)
		if !ok || envValue == "" {
			continue
		}
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("%s -> %s: %w", envTag, fieldType.Name, err)
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return fmt.Errorf("field cannot be set")
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.SetInt(int64(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(i)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid bool: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}

// Serialize serializes the configuration to YAML bytes (config 子命令打印生效配置)
func (c *Config) Serialize() ([]byte, error) {
	return yaml.Marshal(c)
}

// ParseConfig parses a YAML configuration from bytes on top of the defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}
