package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	bct "github.com/bctron/bctron/pkg"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	// Load config
	config := LoadConfig()

	// define root command
	rootCmd := &cobra.Command{
		Use: "bctron",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
			os.Exit(0)
		},
	}

	// Add flags for each configuration option, config file values are the defaults
	rootCmd.PersistentFlags().IntVar(&config.Grid.DimX, "dim-x", config.Grid.DimX, "Grid width")
	rootCmd.PersistentFlags().IntVar(&config.Grid.DimY, "dim-y", config.Grid.DimY, "Grid height")
	rootCmd.PersistentFlags().StringVar(&config.Grid.Retention, "retention", config.Grid.Retention, "History retention: unbounded or capped")
	rootCmd.PersistentFlags().IntVar(&config.Grid.HistoryCap, "history-cap", config.Grid.HistoryCap, "History entries kept per cell with capped retention")
	rootCmd.PersistentFlags().StringVar(&config.Upstream.Transport, "upstream", config.Upstream.Transport, "Upstream transport: ws, zmq or none")
	rootCmd.PersistentFlags().StringVar(&config.Upstream.WSURL, "ws-url", config.Upstream.WSURL, "Chain watcher websocket URL")
	rootCmd.PersistentFlags().StringVar(&config.Upstream.ZMQAddress, "zmq-address", config.Upstream.ZMQAddress, "Chain watcher ZMQ address")
	rootCmd.PersistentFlags().StringVar(&config.WebAPI.Port, "webapi-port", config.WebAPI.Port, "Grid API port")
	rootCmd.PersistentFlags().StringVar(&config.WebAPI.Bind, "webapi-bind", config.WebAPI.Bind, "Grid API bind")
	rootCmd.PersistentFlags().StringVar(&config.WebAPI.AdminPort, "admin-port", config.WebAPI.AdminPort, "Admin API port")
	rootCmd.PersistentFlags().StringVar(&config.WebAPI.AdminBind, "admin-bind", config.WebAPI.AdminBind, "Admin API bind")
	// Bind flags to config fields
	viper.BindPFlags(rootCmd.PersistentFlags())

	var remote string
	rootCmd.PersistentFlags().StringVar(&remote, "remote", "", "Base URL of a running BCTron (default: from config)")

	serverCmd := &cobra.Command{
		Use:   "server",
		Short: "Start the BCTron grid server",
		Run: func(cmd *cobra.Command, args []string) {
			Server(config)
		},
	}

	configCmd := &cobra.Command{
		Use:   "showconf",
		Short: "Print the config state and exit",
		Run: func(cmd *cobra.Command, args []string) {
			o, _ := json.MarshalIndent(config, ">", " ")
			fmt.Println(string(o))
			os.Exit(0)
		},
	}

	pushCmd := &cobra.Command{
		Use:   "push-position <x> <y> <id> [hash]",
		Short: "Apply a position on a running BCTron via the admin API",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("x must be an integer: %v", err)
			}
			y, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("y must be an integer: %v", err)
			}
			p := bct.Position{X: x, Y: y, OccupantID: args[2], OccupantHash: bct.EmptyHash}
			if len(args) == 4 {
				p.OccupantHash = args[3]
			}
			return PushPosition(p, config, remote)
		},
	}

	historyCmd := &cobra.Command{
		Use:   "history <x> <y>",
		Short: "Print the occupancy history of a cell",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return PrintHistory(args[0], args[1], config, remote)
		},
	}

	viewCmd := &cobra.Command{
		Use:   "view",
		Short: "Watch a running BCTron grid in the terminal",
		Run: func(cmd *cobra.Command, args []string) {
			LaunchViewer(config, remote)
		},
	}

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(viewCmd)

	// Execute the Cobra command
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

}

// LoadConfig finds a config file with viper (BCTRON_ENV names it,
// default "config") and loads it with configor so struct defaults and
// env overrides apply. Without a file the defaults are used.
func LoadConfig() bct.Config {

	configFileName, set := os.LookupEnv("BCTRON_ENV")
	if set {
		viper.SetConfigName(configFileName)
	} else {
		viper.SetConfigName("config")
	}

	// Set config file name and search paths
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/bctron/")
	viper.AddConfigPath("$HOME/.bctron")

	files := []string{}
	if err := viper.ReadInConfig(); err != nil {
		fmt.Println("no config file found, using defaults: ", err)
	} else {
		files = append(files, viper.ConfigFileUsed())
	}

	config, err := bct.LoadConfig(files...)
	if err != nil {
		panic(fmt.Errorf("failed to load config: %s", err))
	}
	return config
}
