package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/zedseven/bmpsteg"
)

const (
	exitFailure   = 1
	exitUsage     = 2
	exitCapacity  = 3
	exitCorrupted = 4
)

// Program entry point

func main() {
	digToggle := flag.Bool("dig", false, "Whether to extract a hidden file instead of hiding one")
	imgPath := flag.String("img", "", "The filepath to the .bmp image on disk")
	filePath := flag.String("file", "", "The filepath to the file to hide")
	outPath := flag.String("out", "", "The filepath to write to (default \"stego.bmp\" when hiding, \"decoded\" plus the hidden extension when digging)")
	verbosity := flag.Int("v", -1, "The amount of output to print: 0 quiet, 1 steps, 2 info, 3 debug (default 1 on a terminal, 0 otherwise)")

	flag.Parse()

	if len(*imgPath) <= 0 || (!*digToggle && len(*filePath) <= 0) || *verbosity > int(bmpsteg.OutputDebug) {
		flag.PrintDefaults()
		os.Exit(exitUsage)
	}

	outputLevel := defaultOutputLevel(term.IsTerminal(int(os.Stdout.Fd())))
	if *verbosity >= 0 {
		outputLevel = bmpsteg.OutputLevel(*verbosity)
	}

	var err error
	if !*digToggle {
		_, err = bmpsteg.Hide(&bmpsteg.HideConfig{
			ImagePath: *imgPath,
			FilePath:  *filePath,
			OutPath:   *outPath,
		}, outputLevel)
	} else {
		_, err = bmpsteg.Dig(bmpsteg.DigConfig{
			ImagePath:   *imgPath,
			OutPath:     *outPath,
			OutputLevel: outputLevel,
		})
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(exitCode(err))
	}
}

func defaultOutputLevel(interactive bool) bmpsteg.OutputLevel {
	if interactive {
		return bmpsteg.OutputSteps
	}
	return bmpsteg.OutputQuiet
}

// exitCode maps each failure kind to its own process exit status.
func exitCode(err error) int {
	var (
		invalid     *bmpsteg.InvalidFormatError
		unsupported *bmpsteg.UnsupportedFormatError
		capacity    *bmpsteg.InsufficientCapacityError
		corrupted   *bmpsteg.CorruptedStegoError
	)
	switch {
	case err == nil:
		return 0
	case errors.As(err, &invalid), errors.As(err, &unsupported):
		return exitUsage
	case errors.As(err, &capacity):
		return exitCapacity
	case errors.As(err, &corrupted):
		return exitCorrupted
	default:
		return exitFailure
	}
}
