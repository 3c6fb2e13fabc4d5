// ormgen generates entity registration code from a schema definition
// file. Run: ormgen -schema orm.yaml -out ./model
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fcjm/hibernate-orm/gen"
)

func main() {
	var (
		schemaPath = flag.String("schema", "orm.yaml", "path to the schema definition file")
		outDir     = flag.String("out", "./model", "output directory for generated files")
		pkg        = flag.String("pkg", "", "package name of generated files (overrides the definition)")
		watch      = flag.Bool("watch", false, "regenerate on definition changes")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	run := func(def *gen.Definition) error {
		if *pkg != "" {
			def.Package = *pkg
		}
		if err := gen.Generate(def, *outDir); err != nil {
			return err
		}
		log.Info("generated", "entities", len(def.Entities), "out", *outDir)
		return nil
	}

	def, err := gen.Load(*schemaPath)
	if err != nil {
		log.Error("load definitions", "err", err)
		os.Exit(1)
	}
	if err := run(def); err != nil {
		log.Error("generate", "err", err)
		os.Exit(1)
	}
	if !*watch {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.Info("watching", "schema", *schemaPath)
	if err := gen.Watch(ctx, *schemaPath, run); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("watch", "err", err)
		os.Exit(1)
	}
}
