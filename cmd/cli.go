package cmd

import (
	"os"

	"audiometry/internal/config"
	"audiometry/pkg/build"

	"github.com/spf13/cobra"
)

// Options is the parsed command line: the loaded configuration plus which
// one-off command (if any) was requested.
type Options struct {
	Config  *config.Config
	Command string // "", "list", "calibrate" or "simulate"
}

// ParseArgs parses the command line and loads configuration. The root
// command runs a full session; subcommands select one-off modes.
func ParseArgs() (*Options, error) {
	buildInfo := build.GetBuildFlags()
	options := &Options{}

	var (
		configPath  string
		participant string
		deviceID    int
		dataDir     string
		seed        int64
		debug       bool
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "list"
		},
	}
	rootCmd.AddCommand(listCmd)

	calibrateCmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Synthesize test stimuli and report their spectral quality",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "calibrate"
		},
	}
	rootCmd.AddCommand(calibrateCmd)

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a full session with a simulated participant, no audio hardware",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "simulate"
		},
	}
	rootCmd.AddCommand(simulateCmd)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "f", "",
		"Path to YAML configuration file")
	rootCmd.PersistentFlags().StringVarP(&participant, "participant", "p", "",
		"Participant identifier, e.g. P001")
	rootCmd.PersistentFlags().IntVarP(&deviceID, "device", "d", config.MinDeviceID,
		"Output device ID. Use 'list' command to see available devices.")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "o", "",
		"Directory for raw and processed CSV output")
	rootCmd.PersistentFlags().Int64VarP(&seed, "seed", "s", 0,
		"Random seed override for deterministic stimulus ordering")
	rootCmd.PersistentFlags().BoolVarP(&debug, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	// Flags given on the command line win over file and environment.
	if participant != "" {
		cfg.Session.Participant = participant
	}
	if deviceID != config.MinDeviceID {
		cfg.Audio.OutputDevice = deviceID
	}
	if dataDir != "" {
		cfg.Session.DataDir = dataDir
	}
	if seed != 0 {
		cfg.Session.Seed = seed
	}
	if debug {
		cfg.Debug = true
	}

	options.Config = cfg
	return options, nil
}
