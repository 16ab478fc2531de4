// Command cubes renders a slowly spinning cube, and any configured OBJ meshes,
// with Vulkan.
package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/vkngwrapper/cubes/internal/app"
	"github.com/vkngwrapper/cubes/internal/config"
	"github.com/vkngwrapper/cubes/internal/logging"
)

//go:generate glslc ../../shaders/simple.vert -o ../../shaders/simple.vert.spv
//go:generate glslc ../../shaders/simple.frag -o ../../shaders/simple.frag.spv

func main() {
	runtime.LockOSThread()

	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("%+v\n", err)
	}

	logger := log.StandardLogger()
	err = logging.Configure(logger, cfg.Log, os.Stderr)
	if err != nil {
		log.Fatalf("%+v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = app.Run(ctx, cfg, logger)
	if err != nil {
		stop()
		log.Fatalf("%+v\n", err)
	}
}
