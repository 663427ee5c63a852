package main

import (
	"context"
	"flag"
	"fmt"
	"github.com/jypelle/busboard/internal/srv"
	"github.com/jypelle/busboard/internal/stopfinder"
	"github.com/jypelle/busboard/internal/version"
	"github.com/sirupsen/logrus"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
)

const configSuffix = "busboard"

func main() {

	// Logger
	logrus.SetFormatter(&logrus.TextFormatter{ForceColors: true})

	mainCommand := filepath.Base(os.Args[0])

	// region Flags and Commands definition

	// Debug Mode
	debugMode := flag.Bool("d", false, "Enable debug mode")

	// Simulation Mode
	simulationMode := flag.Bool("s", false, "Enable simulation mode")

	// User config dir
	defaultConfigDir := "./." + configSuffix
	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		defaultConfigDir = filepath.Join(userConfigDir, configSuffix)
	}
	configDir := flag.String("c", defaultConfigDir, "Location of busboard config folder")

	// Usage
	flag.Usage = func() {
		fmt.Printf("\nUsage: %s [OPTIONS] [COMMAND]\n", mainCommand)
		fmt.Printf("\nAn e-paper bus departure board\n")
		fmt.Printf("\nOptions:\n")
		flag.PrintDefaults()
		fmt.Printf("\nCommands:\n")
		fmt.Printf("  run        Run server\n")
		fmt.Printf("  findstop   Find the STIF id of a stop\n")
		fmt.Printf("  version    Show the version number\n")
		fmt.Printf("\nRun '%s COMMAND --help' for more information on a command.\n", mainCommand)
	}

	// run command
	runCmd := flag.NewFlagSet("run", flag.ExitOnError)
	fastMode := runCmd.Bool("f", false, "Use the fast refresh profile")

	runCmd.Usage = func() {
		fmt.Printf("\nUsage: %s run [OPTIONS]\n", mainCommand)
		fmt.Printf("\nRun the server\n")
		fmt.Printf("\nOptions:\n")
		runCmd.PrintDefaults()
	}

	// findstop command
	findStopCmd := flag.NewFlagSet("findstop", flag.ExitOnError)
	findStopEndpoint := findStopCmd.String("u", stopfinder.DefaultEndpoint, "IDFM stop list export url")

	findStopCmd.Usage = func() {
		fmt.Printf("\nUsage: %s findstop [OPTIONS] SEARCH_TERM\n", mainCommand)
		fmt.Printf("\nSearch IDFM open data for stops whose name contains SEARCH_TERM\n")
		fmt.Printf("\nOptions:\n")
		findStopCmd.PrintDefaults()
	}

	// version command
	versionCmd := flag.NewFlagSet("version", flag.ExitOnError)

	versionCmd.Usage = func() {
		fmt.Printf("\nUsage: %s version\n", mainCommand)
		fmt.Printf("\nShow the version information\n")
	}

	// endregion

	// region Flags and Commands Parsing
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	switch flag.Arg(0) {
	case "run":
		runCmd.Parse(flag.Args()[1:])
		if runCmd.NArg() > 0 {
			fmt.Printf("\n\"%s %s\" accepts no arguments\n", mainCommand, flag.Arg(0))
			runCmd.Usage()
			os.Exit(1)
		}
	case "findstop":
		findStopCmd.Parse(flag.Args()[1:])
		if findStopCmd.NArg() != 1 {
			fmt.Printf("\n\"%s %s\" requires exactly one search term\n", mainCommand, flag.Arg(0))
			findStopCmd.Usage()
			os.Exit(1)
		}
	case "version":
		versionCmd.Parse(flag.Args()[1:])
		if versionCmd.NArg() > 0 {
			fmt.Printf("\n\"%s %s\" accepts no arguments\n", mainCommand, flag.Arg(0))
			versionCmd.Usage()
			os.Exit(1)
		}
	default:
		fmt.Printf("\n%s is not a busboard command\n", flag.Args()[0])
		flag.Usage()
		os.Exit(1)
	}
	// endregion

	if *debugMode {
		logrus.SetLevel(logrus.DebugLevel)
		logrus.SetFormatter(&logrus.TextFormatter{ForceColors: true, FullTimestamp: true, TimestampFormat: time.RFC3339Nano})
		logrus.Printf("Debug mode activated")
	}

	switch {
	case versionCmd.Parsed():
		fmt.Printf("Version %s\n", version.AppVersion.Full())

	case findStopCmd.Parsed():
		term := findStopCmd.Arg(0)
		fmt.Printf("\nSearching IDFM database for '%s'...\n", term)
		fmt.Printf("(Downloading the whole stop list, may take a while)\n\n")
		stops, err := stopfinder.NewFinder(*findStopEndpoint).Search(context.Background(), term)
		if err != nil {
			logrus.Fatalf("Unable to search stops: %v", err)
		}
		stopfinder.Print(os.Stdout, term, stops)

	case runCmd.Parsed():
		// Create busboard server
		serverApp := srv.NewServerApp(*configDir, *debugMode, *simulationMode, *fastMode)

		// Listen stop signal
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)

		if err := serverApp.Start(); err != nil {
			logrus.Fatalf("Unable to start server: %v", err)
		}

		sig := <-ch
		logrus.Infof("Received signal: %v", sig)
		serverApp.Stop()
	}

}
