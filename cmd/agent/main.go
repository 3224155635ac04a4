package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/webtrail/internal/agent"
	"github.com/dmitrijs2005/webtrail/internal/agent/config"
	"github.com/dmitrijs2005/webtrail/internal/buildinfo"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := agent.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
