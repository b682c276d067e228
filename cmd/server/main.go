package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"runtime/debug"
	"time"

	"github.com/gorilla/mux"

	"github.com/qoox/smartcsv/modules/content"
	"github.com/qoox/smartcsv/modules/content/presentation/controllers"
	"github.com/qoox/smartcsv/pkg/configuration"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	mod, err := content.Load(ctx, conf)
	if err != nil {
		log.Fatalf("failed to load pipeline: %v", err)
	}
	defer mod.Close()

	router := mux.NewRouter()
	controller := controllers.NewCSVAPIController(controllers.CSVAPIControllerConfig{
		BasePath:      conf.APIBasePath,
		FieldService:  mod.Fields,
		ExportService: mod.Exporter,
		BatchService:  mod.Batch,
		MaxUploadSize: conf.MaxUploadSize,
		Logger:        logger,
	})
	controller.Register(router)

	srv := &http.Server{
		Addr:         conf.SocketAddress,
		Handler:      router,
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
	}

	logger.Infof("listening on %s", conf.SocketAddress)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
