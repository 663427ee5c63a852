package main

import (
	"flag"
	"fmt"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jypelle/busboard/apimodel"
	"github.com/jypelle/busboard/internal/remote"
	"github.com/jypelle/busboard/internal/version"
	"github.com/sirupsen/logrus"
	"os"
	"path/filepath"
)

func main() {

	// Logger
	logrus.SetFormatter(&logrus.TextFormatter{ForceColors: true})

	mainCommand := filepath.Base(os.Args[0])

	controlFile := flag.String("control", apimodel.DefaultControlFilename, "Command file read by the server")
	statusFile := flag.String("status", apimodel.DefaultStatusFilename, "Status file written by the server")
	showVersion := flag.Bool("version", false, "Show the version number")

	flag.Usage = func() {
		fmt.Printf("\nUsage: %s [OPTIONS]\n", mainCommand)
		fmt.Printf("\nRemote control of the e-paper bus departure board\n")
		fmt.Printf("\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("Version %s\n", version.AppVersion.Full())
		return
	}

	model := remote.NewModel(remote.Config{
		ControlFile: *controlFile,
		StatusFile:  *statusFile,
	})
	if _, err := tea.NewProgram(model).Run(); err != nil {
		logrus.Fatalf("Remote control stopped: %v", err)
	}
}
