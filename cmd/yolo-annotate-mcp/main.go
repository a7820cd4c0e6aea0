package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/yolo-annotate/internal/catalog"
	"github.com/ironsheep/yolo-annotate/internal/config"
	"github.com/ironsheep/yolo-annotate/internal/darknet"
	"github.com/ironsheep/yolo-annotate/internal/logging"
	"github.com/ironsheep/yolo-annotate/internal/ocr"
	"github.com/ironsheep/yolo-annotate/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// configEnv names the variable holding the path of the YAML config file.
const configEnv = config.EnvPrefix + "CONFIG"

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("yolo-annotate-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			fmt.Printf("  Tesseract:  %s\n", ocr.Version())
			return
		case "--help", "-h", "help":
			fmt.Println("yolo-annotate-mcp - MCP server for darknet YOLO detection and annotation")
			fmt.Println()
			fmt.Println("Usage: yolo-annotate-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Printf("  %s=<file>    YAML configuration file\n", configEnv)
			fmt.Printf("  %sLOG_LEVEL=debug    Enable debug logging\n", config.EnvPrefix)
			fmt.Printf("  %s*    Override any configuration value\n", config.EnvPrefix)
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := config.Load(os.Getenv(configEnv))
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger := logging.New(os.Stderr, cfg.Level())
	defer logger.Close()
	logger.Debugf("YOLO annotate MCP server v%v (built %v, commit %v)", Version, BuildTime, GitCommit)

	cat, err := catalog.Load(cfg.Classes)
	if err != nil {
		log.Fatalf("Failed to load class names: %v", err)
	}
	logger.Infof("Loaded %v classes from %v", cat.Len(), cfg.Classes)

	runner := darknet.NewRunner(logger, cfg.Darknet.RunnerOptions())
	logger.Debugf("Detector command: %v", runner.CommandLine())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(logger, cfg, cat, runner)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Server error: %v", err)
	}
}
