package main

import (
	"log"

	"github.com/fanforge/accessgate/core/gateway"
	"github.com/fanforge/accessgate/core/infra/buildinfo"
	"github.com/fanforge/accessgate/core/infra/config"
)

func main() {
	log.Println("accessgate starting...")
	buildinfo.Log("accessgate")
	cfg := config.Load()
	if err := gateway.Run(cfg); err != nil {
		log.Fatalf("accessgate error: %v", err)
	}
}
