package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	// HTTP сервер
	ListenAddr      string
	ShutdownTimeout time.Duration

	// Логирование
	LogLevel      string
	LogFile       string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int

	// Профилирование
	ProfileEnable   bool
	ProfileHTTPPort int
	ProfileCPUFile  string
	ProfileMemFile  string
	ProfileTime     int
}

// NewConfig создает новую конфигурацию с значениями по умолчанию
func NewConfig() *Config {
	return &Config{
		ListenAddr:      ":8000",
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
		LogFile:         "",
		LogMaxSize:      100,
		LogMaxBackups:   3,
		LogMaxAge:       28,
		ProfileEnable:   false,
		ProfileHTTPPort: 6060,
		ProfileCPUFile:  "",
		ProfileMemFile:  "",
		ProfileTime:     30,
	}
}

// Load загружает конфигурацию из переменных окружения и флагов командной строки
func (c *Config) Load(cmd *cobra.Command) error {
	// Загружаем из переменных окружения сначала
	c.loadFromEnv()

	// Затем из флагов (они имеют приоритет)
	flags := cmd.Flags()
	if flags.Changed("listen") {
		c.ListenAddr, _ = flags.GetString("listen")
	}
	if flags.Changed("shutdown-timeout") {
		sec, _ := flags.GetInt("shutdown-timeout")
		c.ShutdownTimeout = time.Duration(sec) * time.Second
	}
	if flags.Changed("log-level") {
		c.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-file") {
		c.LogFile, _ = flags.GetString("log-file")
	}
	if flags.Changed("log-max-size") {
		c.LogMaxSize, _ = flags.GetInt("log-max-size")
	}
	if flags.Changed("log-max-backups") {
		c.LogMaxBackups, _ = flags.GetInt("log-max-backups")
	}
	if flags.Changed("log-max-age") {
		c.LogMaxAge, _ = flags.GetInt("log-max-age")
	}
	if flags.Changed("profile") {
		c.ProfileEnable, _ = flags.GetBool("profile")
	}
	if flags.Changed("profile-http-port") {
		c.ProfileHTTPPort, _ = flags.GetInt("profile-http-port")
	}
	if flags.Changed("profile-cpu") {
		c.ProfileCPUFile, _ = flags.GetString("profile-cpu")
	}
	if flags.Changed("profile-mem") {
		c.ProfileMemFile, _ = flags.GetString("profile-mem")
	}
	if flags.Changed("profile-time") {
		c.ProfileTime, _ = flags.GetInt("profile-time")
	}

	return c.Validate()
}

// loadFromEnv загружает конфигурацию из переменных окружения
func (c *Config) loadFromEnv() {
	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		c.ListenAddr = addr
	}
	if v, ok := envInt("SHUTDOWN_TIMEOUT"); ok {
		c.ShutdownTimeout = time.Duration(v) * time.Second
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}
	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		c.LogFile = logFile
	}
	if v, ok := envInt("LOG_MAX_SIZE"); ok {
		c.LogMaxSize = v
	}
	if v, ok := envInt("LOG_MAX_BACKUPS"); ok {
		c.LogMaxBackups = v
	}
	if v, ok := envInt("LOG_MAX_AGE"); ok {
		c.LogMaxAge = v
	}
	if profileStr := os.Getenv("PROFILE_ENABLE"); profileStr != "" {
		if profile, err := strconv.ParseBool(profileStr); err == nil {
			c.ProfileEnable = profile
		}
	}
	if v, ok := envInt("PROFILE_HTTP_PORT"); ok {
		c.ProfileHTTPPort = v
	}
	if cpuFile := os.Getenv("PROFILE_CPU_FILE"); cpuFile != "" {
		c.ProfileCPUFile = cpuFile
	}
	if memFile := os.Getenv("PROFILE_MEM_FILE"); memFile != "" {
		c.ProfileMemFile = memFile
	}
	if v, ok := envInt("PROFILE_TIME"); ok {
		c.ProfileTime = v
	}
}

// envInt читает целое из переменной окружения; некорректные значения игнорируются
func envInt(key string) (int, bool) {
	s := os.Getenv(key)
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address is required")
	}
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", c.ListenAddr, err)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}

	// Проверяем уровень логирования
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	if c.LogFile != "" {
		if c.LogMaxSize <= 0 {
			return fmt.Errorf("log max size must be positive")
		}
		if c.LogMaxBackups < 0 || c.LogMaxAge < 0 {
			return fmt.Errorf("log retention settings must not be negative")
		}
	}

	// Валидация профилирования
	if c.ProfileEnable {
		// Порт 0 оставляет только запись профилей в файлы
		if c.ProfileHTTPPort < 0 || c.ProfileHTTPPort > 65535 {
			return fmt.Errorf("invalid profile HTTP port: %d", c.ProfileHTTPPort)
		}
		if c.ProfileTime <= 0 {
			return fmt.Errorf("profile time must be positive")
		}
	}

	return nil
}

// AddFlags добавляет флаги в cobra команду
func AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("listen", ":8000", "HTTP listen address")
	cmd.Flags().Int("shutdown-timeout", 10, "Graceful shutdown timeout in seconds")
	cmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().String("log-file", "", "Log file path (stderr when empty)")
	cmd.Flags().Int("log-max-size", 100, "Maximum log file size in megabytes before rotation")
	cmd.Flags().Int("log-max-backups", 3, "Number of rotated log files to keep")
	cmd.Flags().Int("log-max-age", 28, "Days to keep rotated log files")

	// Флаги профилирования
	cmd.Flags().Bool("profile", false, "Enable profiling")
	cmd.Flags().Int("profile-http-port", 6060, "HTTP port for pprof endpoints, 0 disables them")
	cmd.Flags().String("profile-cpu", "", "CPU profile output file")
	cmd.Flags().String("profile-mem", "", "Memory profile output file")
	cmd.Flags().Int("profile-time", 30, "CPU profile duration in seconds")
}
