package main

import (
	"fmt"
	"os"

	"github.com/core-tools/edr-gen-go/pkg/commander"
	"github.com/core-tools/edr-gen-go/pkg/events"
	"github.com/core-tools/edr-gen-go/pkg/logging"
	"github.com/core-tools/edr-gen-go/pkg/rowsource"

	flags "github.com/jessevdk/go-flags"
)

type flagOptions struct {
	Delimiter  string `short:"d" long:"delimiter" description:"field delimiter for the input file (default: ',')"`
	OutputFile string `short:"o" long:"outfile" description:"output file location for generated events (default: 'log.csv')"`
	ConfigFile string `long:"config" description:"path to an optional YAML configuration file"`
	LogLevel   string `long:"log-level" description:"log level: debug, info, warn, error"`
	Args       struct {
		Input string `positional-arg-name:"INPUT" description:"input file to use for event creation"`
	} `positional-args:"yes" required:"yes"`
}

func logPrefix(module string) string {
	return fmt.Sprintf("module: %s , ", module)
}

func main() {
	var opts flagOptions
	var argv []string = os.Args[1:]
	var parser = flags.NewParser(&opts, flags.HelpFlag)
	var err error
	_, err = parser.ParseArgs(argv)
	if err != nil {
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		os.Exit(1)
	}

	config := commander.DefaultConfig()
	if opts.ConfigFile != "" {
		config, err = commander.LoadConfigFromFile(opts.ConfigFile)
		if err != nil {
			fmt.Printf("Configuration loading failed: %v\n", err)
			os.Exit(1)
		}
	}

	// flags override file values
	if opts.Delimiter != "" {
		config.Input.Delimiter = opts.Delimiter
	}
	if opts.OutputFile != "" {
		config.Output.Path = opts.OutputFile
	}
	if opts.LogLevel != "" {
		config.LogLevel = opts.LogLevel
	}
	if err := commander.ValidateConfig(config); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewZapLogger(config.LogLevel)

	logger.Debugf("opts: %+v", opts)

	// missing input is fatal before any row is processed
	source, err := rowsource.NewCSVSource(opts.Args.Input, config.DelimiterRune())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Encountered an unexpected error when setting up: %v\n", err)
		os.Exit(1)
	}
	defer source.Close()

	sink, err := events.NewCSVSink(config.Output.Path, logging.NewLoggerFrom(logPrefix("sink"), logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Encountered an unexpected error when setting up: %v\n", err)
		os.Exit(1)
	}

	commanderLogger := logging.NewLoggerFrom(logPrefix("commander"), logger)
	cmdr := commander.NewCommander(source, sink, commander.Options{
		GraceWindow: config.Process.GraceWindow,
	}, commanderLogger)

	// safety net only; the explicit Close below is the authoritative
	// teardown
	defer func() {
		if err := cmdr.Close(); err != nil {
			logger.Errorf("Cleanup failed: %v", err)
		}
	}()

	commandsProcessed := 0
	for cmdr.ReadNext() {
		commandsProcessed++
	}

	exitCode := 0
	if err := cmdr.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Audit record lost, aborting: %v\n", err)
		exitCode = 1
	}

	if commandsProcessed <= 0 {
		fmt.Fprintln(os.Stderr, "Input file was empty or was of bad format. No commands processed.")
	} else {
		fmt.Printf("Done. %d instructions found. Encountered %d error(s).\n", commandsProcessed, cmdr.NumErrors())
	}

	if err := cmdr.Close(); err != nil {
		logger.Errorf("Process teardown failed: %v", err)
	}
	if err := sink.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Audit record lost, aborting: %v\n", err)
		exitCode = 1
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
