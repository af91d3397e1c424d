package main

import (
	"context"
	"time"

	"github.com/niksmo/storefront/config"
	"github.com/niksmo/storefront/internal/app"
	"github.com/niksmo/storefront/pkg/sigctx"
)

const closeTimeout = 5 * time.Second

func main() {
	sigCtx, stop := sigctx.NotifyContext()
	defer stop()

	cfg := config.Load()
	cfg.Print()

	storefront := app.New(sigCtx, cfg)
	storefront.Run(stop)

	<-sigCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	storefront.Close(ctx)
}
