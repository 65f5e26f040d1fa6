package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	DriverPostgres   = "postgres"
	DriverSQLite     = "sqlite3"
	SourceSQL        = "sql"
	SourceClickHouse = "clickhouse"
)

type Config struct {
	App           App           `mapstructure:",squash"`
	Server        Server        `mapstructure:",squash"`
	Database      Database      `mapstructure:",squash"`
	ClickHouse    ClickHouse    `mapstructure:",squash"`
	Source        Source        `mapstructure:",squash"`
	Tables        Tables        `mapstructure:",squash"`
	Pipeline      Pipeline      `mapstructure:",squash"`
	Retry         Retry         `mapstructure:",squash"`
	ReconcileSync ReconcileSync `mapstructure:",squash"`
	Auth          Auth          `mapstructure:",squash"`
}

type App struct {
	LogLevel string `mapstructure:"log_level"`
}

type Server struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

type Database struct {
	DSN      string `mapstructure:"-"`
	Driver   string `mapstructure:"database_driver"`
	Password string `mapstructure:"database_password"`
	URL      string `mapstructure:"database_url"`
	User     string `mapstructure:"database_user"`
}

type ClickHouse struct {
	Host         string        `mapstructure:"clickhouse_host"`
	Port         int           `mapstructure:"clickhouse_port"`
	Database     string        `mapstructure:"clickhouse_database"`
	Username     string        `mapstructure:"clickhouse_username"`
	Password     string        `mapstructure:"clickhouse_password"`
	DialTimeout  time.Duration `mapstructure:"clickhouse_dial_timeout"`
	TargetMirror string        `mapstructure:"clickhouse_target_mirror"`
}

type Source struct {
	Driver   string `mapstructure:"source_driver"`
	Table    string `mapstructure:"source_table"`
	PageSize int    `mapstructure:"source_page_size"`
}

type Tables struct {
	Staging           string `mapstructure:"staging_table"`
	Target            string `mapstructure:"target_table"`
	Runs              string `mapstructure:"runs_table"`
	TimezoneDirectory string `mapstructure:"timezone_directory_table"`
}

type Pipeline struct {
	CanonicalTimezone string `mapstructure:"canonical_timezone"`
	BatchSize         int    `mapstructure:"batch_size"`
	SeedSentinelRow   bool   `mapstructure:"seed_sentinel_row"`
}

type Retry struct {
	MaxAttempts int           `mapstructure:"retry_max_attempts"`
	BaseDelay   time.Duration `mapstructure:"retry_base_delay"`
	MaxDelay    time.Duration `mapstructure:"retry_max_delay"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

type ReconcileSync struct {
	CronSchedule string `mapstructure:"reconcile_sync_cron"`
	Enabled      bool   `mapstructure:"reconcile_sync_enabled"`
}

type Auth struct {
	Secret string `mapstructure:"auth_secret"`
}

func SetDefaults() {
	viper.SetDefault("HOST", "localhost")
	viper.SetDefault("PORT", 8000)

	viper.SetDefault("DATABASE_DRIVER", DriverPostgres)
	viper.SetDefault("DATABASE_URL", "localhost:5432/traffic?sslmode=disable")
	viper.SetDefault("DATABASE_USER", "postgres")
	viper.SetDefault("DATABASE_PASSWORD", "root")

	viper.SetDefault("CLICKHOUSE_HOST", "localhost")
	viper.SetDefault("CLICKHOUSE_PORT", 9000)
	viper.SetDefault("CLICKHOUSE_DATABASE", "default")
	viper.SetDefault("CLICKHOUSE_USERNAME", "default")
	viper.SetDefault("CLICKHOUSE_PASSWORD", "")
	viper.SetDefault("CLICKHOUSE_DIAL_TIMEOUT", "30s")
	viper.SetDefault("CLICKHOUSE_TARGET_MIRROR", "spend_hourly_normalized_pg")

	viper.SetDefault("SOURCE_DRIVER", SourceSQL)
	viper.SetDefault("SOURCE_TABLE", "meta_hourly_spend")
	viper.SetDefault("SOURCE_PAGE_SIZE", 1000)

	viper.SetDefault("STAGING_TABLE", "spend_hourly_staging")
	viper.SetDefault("TARGET_TABLE", "spend_hourly_normalized")
	viper.SetDefault("RUNS_TABLE", "reconcile_runs")
	viper.SetDefault("TIMEZONE_DIRECTORY_TABLE", "mb_accountrelation_main")

	viper.SetDefault("CANONICAL_TIMEZONE", "America/Los_Angeles")
	viper.SetDefault("BATCH_SIZE", 10000)
	viper.SetDefault("SEED_SENTINEL_ROW", false) // Postgres não precisa de destino não vazio para o merge

	viper.SetDefault("RETRY_MAX_ATTEMPTS", 3)
	viper.SetDefault("RETRY_BASE_DELAY", "500ms")
	viper.SetDefault("RETRY_MAX_DELAY", "10s")
	viper.SetDefault("CALL_TIMEOUT", "30s")

	viper.SetDefault("RECONCILE_SYNC_CRON", "0 * * * *") // A cada hora cheia
	viper.SetDefault("RECONCILE_SYNC_ENABLED", false)

	viper.SetDefault("AUTH_SECRET", "")

	viper.SetDefault("LOG_LEVEL", "info")
}

func NewConfig() (*Config, error) {
	// Primeiro carregar o arquivo .env usando godotenv
	loadEnvFile()

	config := &Config{}

	SetDefaults()

	viper.SetConfigType("env")
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logrus.Debug("Usando variáveis carregadas pelo godotenv (viper não conseguiu ler .env): ", err)
	} else {
		logrus.Debug("Arquivo .env lido pelo Viper com sucesso")
	}

	err := viper.Unmarshal(&config, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return nil, err
	}

	config.Database.DSN = BuildDSN(config.Database)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// BuildDSN monta a string de conexão de acordo com o driver
func BuildDSN(db Database) string {
	if db.Driver == DriverSQLite {
		return db.URL
	}

	return fmt.Sprintf(
		"%s://%s:%s@%s",
		db.Driver,
		db.User,
		db.Password,
		db.URL,
	)
}

// Validate verifica valores que impediriam uma execução correta
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("database_driver inválido: %q", c.Database.Driver)
	}

	switch c.Source.Driver {
	case SourceSQL, SourceClickHouse:
	default:
		return fmt.Errorf("source_driver inválido: %q", c.Source.Driver)
	}

	if c.Pipeline.BatchSize <= 0 {
		return fmt.Errorf("batch_size deve ser positivo: %d", c.Pipeline.BatchSize)
	}

	if c.Source.PageSize <= 0 {
		return fmt.Errorf("source_page_size deve ser positivo: %d", c.Source.PageSize)
	}

	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry_max_attempts deve ser positivo: %d", c.Retry.MaxAttempts)
	}

	if _, err := time.LoadLocation(c.Pipeline.CanonicalTimezone); err != nil {
		return fmt.Errorf("canonical_timezone inválido %q: %w", c.Pipeline.CanonicalTimezone, err)
	}

	return nil
}

// Função auxiliar para carregar o arquivo .env usando godotenv
func loadEnvFile() {
	cwd, err := os.Getwd()
	if err != nil {
		logrus.Warn("Não foi possível obter o diretório atual:", err)
		return
	}

	locations := []string{
		filepath.Join(cwd, ".env"),
		filepath.Join(filepath.Dir(cwd), ".env"),
	}

	for _, location := range locations {
		if err := godotenv.Load(location); err == nil {
			logrus.Debug("Arquivo .env carregado de: ", location)
			return
		}
	}

	logrus.Debug("Nenhum arquivo .env encontrado, usando apenas variáveis de ambiente")
}
