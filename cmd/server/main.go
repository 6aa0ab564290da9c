// @title           Photo Studio Backend API
// @version         1.0.0
// @description     Backend API for organizing AI-generated photos into projects and albums, managing prompt templates, and running fal.ai generations.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

//go:generate swag init -g cmd/server/main.go -o ../../docs --dir ../..

package main

import "photo-studio-backend/cmd/server/cmd"

func main() {
	cmd.Execute()
}
