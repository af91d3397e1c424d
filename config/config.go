package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const configFileEnvName = "STOREFRONT_CONFIG_FILE"

type consumers struct {
	CatalogReloadGroup     string `mapstructure:"catalog_reload_group"`
	ReservationLedgerGroup string `mapstructure:"reservation_ledger_group"`
}

type topics struct {
	StockEvents    string `mapstructure:"stock_events"`
	CatalogChanges string `mapstructure:"catalog_changes"`
}

type tls struct {
	CA   string `mapstructure:"ca"`
	Cert string `mapstructure:"cert"`
	Key  string `mapstructure:"key"`
}

type broker struct {
	SeedBrokers        []string  `mapstructure:"seed_brokers"`
	SchemaRegistryURLs []string  `mapstructure:"schema_registry_urls"`
	TLS                tls       `mapstructure:"tls"`
	Topics             topics    `mapstructure:"topics"`
	Consumers          consumers `mapstructure:"consumers"`
}

type catalog struct {
	PageSize        int    `mapstructure:"page_size"`
	DefaultImage    string `mapstructure:"default_image"`
	DefaultCurrency string `mapstructure:"default_currency"`
	AutoConfirm     bool   `mapstructure:"auto_confirm"`
}

type Config struct {
	LogLevel       slog.Level `mapstructure:"log_level"`
	HTTPServerAddr string     `mapstructure:"http_server_addr"`
	SQLDB          string     `mapstructure:"sql_db"`
	Catalog        catalog    `mapstructure:"catalog"`
	Broker         broker     `mapstructure:"broker"`
}

// Load reads the config file or exits the process.
func Load() Config {
	cfg, err := LoadFile(getConfigFilepath())
	if err != nil {
		die(err)
	}
	return cfg
}

// LoadFile reads the file at path over the defaults. Unknown keys are an
// error.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, err
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.UnmarshalExact(&cfg, hook); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("http_server_addr", ":8080")
	v.SetDefault("catalog.page_size", 7)
	v.SetDefault("catalog.default_image", "assets/images/default.jpg")
	v.SetDefault("catalog.default_currency", "€")
	v.SetDefault("catalog.auto_confirm", true)
	v.SetDefault("broker.topics.stock_events", "stock-events")
	v.SetDefault("broker.topics.catalog_changes", "catalog-changes")
	v.SetDefault("broker.consumers.catalog_reload_group", "catalog-reload")
	v.SetDefault("broker.consumers.reservation_ledger_group", "reservation-ledger")
}

func getConfigFilepath() string {
	cmdLine := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	arg := cmdLine.String("config", "/config.yaml", "config file")
	_ = cmdLine.Parse(os.Args[1:])
	if env, ok := os.LookupEnv(configFileEnvName); ok {
		return env
	}
	return *arg
}

func die(err error) {
	fmt.Printf("failed to load config file: %v\n", err)
	os.Exit(2)
}

func (c Config) Print() {
	template := `
	General:
	LogLevel=%q
	HTTPServerAddr=%q
	SQLDB=%q

	Catalog:
	PageSize=%d
	DefaultImage=%q
	DefaultCurrency=%q
	AutoConfirm=%t

	BrokerConfig:
	SeedBrokers=%q
	SchemaRegistryURLs=%q
	TLS=%t
	Topics:
		StockEvents=%q
		CatalogChanges=%q
	Consumers:
		CatalogReloadGroup=%q
		ReservationLedgerGroup=%q

`
	fmt.Println("Loaded config:")
	fmt.Printf(
		strings.TrimLeft(template, "\n"),
		c.LogLevel,
		c.HTTPServerAddr,
		redactDSN(c.SQLDB),
		c.Catalog.PageSize,
		c.Catalog.DefaultImage,
		c.Catalog.DefaultCurrency,
		c.Catalog.AutoConfirm,
		c.Broker.SeedBrokers,
		c.Broker.SchemaRegistryURLs,
		c.Broker.TLS.CA != "",
		c.Broker.Topics.StockEvents,
		c.Broker.Topics.CatalogChanges,
		c.Broker.Consumers.CatalogReloadGroup,
		c.Broker.Consumers.ReservationLedgerGroup,
	)
}

// redactDSN hides the password of a postgres URL.
func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || scheme > at {
		return dsn
	}
	userinfo := dsn[scheme+3 : at]
	user, _, found := strings.Cut(userinfo, ":")
	if !found {
		return dsn
	}
	return dsn[:scheme+3] + user + ":***" + dsn[at:]
}
