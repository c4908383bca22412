// cmd/poabench/main.go
package main

import (
	"poabench/internal/app"
	"poabench/internal/appshell"
)

func main() {
	appshell.Main(app.Run)
}
