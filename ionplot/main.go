package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"github.com/itohio/ionplot/pkg/acquire"
	"github.com/itohio/ionplot/pkg/config"
	"github.com/itohio/ionplot/pkg/ion"
	"github.com/itohio/ionplot/pkg/scope"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run parses args, records until interrupted and returns the process exit code.
func run(args []string) int {
	fs := flag.NewFlagSet("ionplot", flag.ContinueOnError)
	var (
		portFlag     = fs.String("port", "", "Serial port (e.g., COM3 or /dev/ttyACM0), required unless -mock")
		configFlag   = fs.String("config", "config.yaml", "Configuration file path")
		mockFlag     = fs.Bool("mock", false, "Use simulated front-end instead of serial port")
		headlessFlag = fs.Bool("headless", false, "Record without opening the chart window")
		pngFlag      = fs.String("png", "", "Write a chart snapshot to this file on exit (overrides config)")
		listFlag     = fs.Bool("list", false, "List serial ports and exit")
	)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	// Load configuration
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}

	// Command line overrides
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *pngFlag != "" {
		cfg.Chart.PNG = *pngFlag
	}

	if err := cfg.Validate(); err != nil {
		log.Printf("Invalid configuration: %v", err)
		return 1
	}

	if closer := setupLogging(cfg.Log); closer != nil {
		defer closer.Close()
	}

	if *listFlag {
		if err := listPorts(); err != nil {
			log.Printf("%v", err)
			return 1
		}
		return 0
	}

	if cfg.Serial.Port == "" && !*mockFlag {
		log.Printf("--port is required")
		fs.Usage()
		return 2
	}

	if *mockFlag {
		fmt.Println("Using mocked device")
	} else {
		fmt.Printf("Reading from serial port %s...\n", cfg.Serial.Port)
	}

	device, err := openDevice(cfg, *mockFlag)
	if err != nil {
		log.Printf("%v", err)
		return 1
	}

	acq, err := newAcquirer(cfg, device)
	if err != nil {
		log.Printf("Failed to start acquisition: %v", err)
		return 1
	}

	// Interrupt and terminate request a graceful shutdown between ticks
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		// Restore default handling so a second signal kills a stuck process
		<-ctx.Done()
		stop()
	}()

	if *headlessFlag {
		fmt.Printf("Recording to %s...\n", cfg.Record.Path)
		err = runAcquisition(ctx, acq, shutdownGrace(cfg))
	} else {
		fmt.Println("Plotting data...")
		err = runWindow(ctx, stop, cfg, acq)
	}

	report(cfg, acq)

	if err != nil {
		log.Printf("Acquisition failed: %v", err)
		return 1
	}
	fmt.Println("Exiting.")
	return 0
}

// runWindow shows the chart and runs the acquisition loop beside the UI event loop.
// It returns once the window is closed (or ctx is done) and the loop has finished.
func runWindow(ctx context.Context, stop context.CancelFunc, cfg *config.Config, acq *acquire.Acquirer) error {
	application := app.NewWithID("com.itohio.ionplot")

	window := application.NewWindow(cfg.Chart.Title)
	window.Resize(fyne.NewSize(1000, 600))
	window.CenterOnScreen()

	chart := scope.New(scope.OptionsFromConfig(cfg))
	window.SetContent(container.NewStack(chart))

	// Update the chart on the main thread, the callback only hands over copies
	acq.OnUpdate(func(u acquire.Update) {
		fyne.Do(func() {
			chart.UpdateData(u.Sample.Label, u.Series)
		})
	})

	done := make(chan error, 1)
	go func() {
		err := runAcquisition(ctx, acq, shutdownGrace(cfg))
		done <- err
		fyne.Do(func() {
			if ctx.Err() != nil {
				application.Quit()
				return
			}
			// Keep the last data on screen when the transport fails
			window.SetTitle(cfg.Chart.Title + " (stopped)")
		})
	}()

	window.ShowAndRun()

	// Window closed: stop between ticks, a silent device is interrupted after the grace period
	stop()
	return <-done
}

// listPorts prints the serial ports that can be passed to --port.
func listPorts() error {
	ports, err := ion.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p.Name)
	}
	return nil
}
