package main

import (
	"github.com/joho/godotenv"

	_ "github.com/yassir2222/Wild-Fire-Detection/docs"
	"github.com/yassir2222/Wild-Fire-Detection/internal/bootstrap"
)

// @title WildfireGuard Console API
// @version 1.0.0
// @description Operator console for the WildfireGuard detection service: media submission sessions, annotated results, and the live detection feed.

// @host localhost:8080
// @BasePath /api/v1

func main() {
	_ = godotenv.Load()
	bootstrap.Run()
}
