package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config string `short:"c" long:"config" default:"digrig.json" description:"Configuration file"`

	Setup  SetupCommand  `command:"setup" description:"Scan for servos, assign them to rig devices and calibrate their travel"`
	Run    RunCommand    `command:"run" description:"Run the excavation controller"`
	Status StatusCommand `command:"status" description:"Discover equipment and print the rig status"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "digrig - excavation rig controller"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
