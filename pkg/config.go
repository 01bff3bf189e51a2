package bctron

import (
	"github.com/jinzhu/configor"
)

type Config struct {
	Grid struct {
		// grid dimensions, fixed for the process lifetime
		DimX int `default:"100" env:"BCTRON_DIM_X"`
		DimY int `default:"100" env:"BCTRON_DIM_Y"`
		// "unbounded" keeps every displaced occupant, "capped" keeps the
		// last HistoryCap per cell
		Retention  string `default:"unbounded"`
		HistoryCap int    `default:"0"`
	}

	// where position/head events come from
	Upstream struct {
		Transport  string `default:"ws"` // ws | zmq | none
		WSURL      string `default:"ws://localhost:1337/"`
		ZMQAddress string `default:"tcp://localhost:28332"`
	}

	WebAPI struct {
		Bind        string `default:""`
		Port        string `default:"8080"`
		AdminBind   string `default:"localhost"`
		AdminPort   string `default:"8081"`
		ExplorerURL string `default:"https://etherscan.io/tx/%s"`
	}

	// Message bus destinations
	Loggers   map[string]LoggerConfig
	Callbacks map[string]CallbackConfig
}

type LoggerConfig struct {
	Path  string
	Types []string
}

type CallbackConfig struct {
	Path       string
	Types      []string
	HMACSecret string
}

// GridConfig extracts the grid model settings from the service config.
func (c Config) GridConfig() GridConfig {
	return GridConfig{
		DimX:       c.Grid.DimX,
		DimY:       c.Grid.DimY,
		Retention:  Retention(c.Grid.Retention),
		HistoryCap: c.Grid.HistoryCap,
	}
}

// LoadConfig reads the given files (TOML, YAML or JSON) over the
// struct defaults. With no files only defaults and env apply.
func LoadConfig(files ...string) (Config, error) {
	c := Config{}
	err := configor.Load(&c, files...)
	return c, err
}

// TestConfig is a small deterministic config used by tests.
func TestConfig() Config {
	c := Config{}
	c.Grid.DimX = 4
	c.Grid.DimY = 3
	c.Grid.Retention = string(RetentionUnbounded)
	c.Upstream.Transport = "none"
	c.WebAPI.Port = "18080"
	c.WebAPI.AdminBind = "localhost"
	c.WebAPI.AdminPort = "18081"
	c.WebAPI.ExplorerURL = "https://explorer.test/tx/%s"
	return c
}
