package main

import (
	"advisorbrief/cmd/handlers"
	"advisorbrief/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
