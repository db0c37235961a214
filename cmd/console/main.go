package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/adminconsole/internal/blob"
	"github.com/dmitrijs2005/adminconsole/internal/blob/memblob"
	"github.com/dmitrijs2005/adminconsole/internal/blob/s3blob"
	"github.com/dmitrijs2005/adminconsole/internal/buildinfo"
	"github.com/dmitrijs2005/adminconsole/internal/client/config"
	"github.com/dmitrijs2005/adminconsole/internal/client/console"
	"github.com/dmitrijs2005/adminconsole/internal/client/storeclient"
	"github.com/dmitrijs2005/adminconsole/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	logger := logging.NewText(os.Stderr, slog.LevelWarn)

	store, err := storeclient.New(cfg.ServerEndpointAddr, cfg.AccessToken, storeclient.WithLogger(logger))
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer store.Close()

	var blobs blob.Store
	if cfg.S3Bucket == "" {
		logger.Warn(ctx, "no S3 bucket given, photos are kept in memory")
		blobs = memblob.New("photos")
	} else {
		blobs, err = s3blob.New(ctx, s3blob.Config{
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			URLExpiry: cfg.URLExpiry,
		})
		if err != nil {
			log.Fatalf("%v", err)
		}
	}

	app := console.NewApp(store, blobs,
		console.WithLogger(logger),
		console.WithPinger(store, cfg.OnlineCheckInterval),
	)

	app.Run(ctx)

}
